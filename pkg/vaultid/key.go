package vaultid

import (
	"strings"
	"unicode"

	"github.com/objectvault/objectvault/pkg/vaulterrs"
)

// Key is a validated, non-empty object key, ordered lexicographically by
// its byte representation.
type Key struct {
	raw string
}

// NewKey validates raw and returns the corresponding Key. raw must be
// non-empty and free of control characters.
func NewKey(raw string) (Key, error) {
	if raw == "" {
		return Key{}, vaulterrs.InvalidKey.New("empty key")
	}
	for _, r := range raw {
		if unicode.IsControl(r) {
			return Key{}, vaulterrs.InvalidKey.New("control characters not allowed")
		}
	}
	return Key{raw: raw}, nil
}

// String returns the key's textual form.
func (k Key) String() string { return k.raw }

// Bytes returns the key's byte representation.
func (k Key) Bytes() []byte { return []byte(k.raw) }

// HasPrefix reports whether the key starts with prefix.
func (k Key) HasPrefix(prefix string) bool { return strings.HasPrefix(k.raw, prefix) }

// Less reports whether k sorts strictly before other, lexicographically
// over the raw bytes.
func (k Key) Less(other Key) bool { return k.raw < other.raw }

// MarshalText implements encoding.TextMarshaler.
func (k Key) MarshalText() ([]byte, error) { return []byte(k.raw), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Key) UnmarshalText(text []byte) error {
	key, err := NewKey(string(text))
	if err != nil {
		return err
	}
	*k = key
	return nil
}
