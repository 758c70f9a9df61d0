package vaultid

import (
	"encoding/hex"

	"lukechampine.com/blake3"

	"github.com/objectvault/objectvault/pkg/vaulterrs"
)

// ContentHash is a 256-bit BLAKE3 digest of byte content. Equal hashes
// are, for the store's purposes, cryptographic proof of equal content.
type ContentHash [32]byte

// HashContent returns the BLAKE3-256 digest of data.
func HashContent(data []byte) ContentHash {
	return ContentHash(blake3.Sum256(data))
}

// ContentHashFromBytes validates and wraps a 32-byte digest.
func ContentHashFromBytes(b []byte) (ContentHash, error) {
	if len(b) != 32 {
		return ContentHash{}, vaulterrs.Serialization.New("content hash must be 32 bytes, got %d", len(b))
	}
	var h ContentHash
	copy(h[:], b)
	return h, nil
}

// ContentHashFromHex parses a hex-encoded digest.
func ContentHashFromHex(s string) (ContentHash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return ContentHash{}, vaulterrs.Serialization.Wrap(err)
	}
	return ContentHashFromBytes(b)
}

// Bytes returns the digest as a byte slice.
func (h ContentHash) Bytes() []byte { return h[:] }

// Hex renders the digest as lowercase hex.
func (h ContentHash) Hex() string { return hex.EncodeToString(h[:]) }

// String implements fmt.Stringer.
func (h ContentHash) String() string { return h.Hex() }

// MarshalText implements encoding.TextMarshaler.
func (h ContentHash) MarshalText() ([]byte, error) { return []byte(h.Hex()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *ContentHash) UnmarshalText(text []byte) error {
	parsed, err := ContentHashFromHex(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
