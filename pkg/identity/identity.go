// Package identity implements the store's key and signature primitives:
// Ed25519 keypairs, public keys, and the stable key identifier derived
// from them (spec.md §4.7).
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"

	"lukechampine.com/blake3"

	"github.com/objectvault/objectvault/pkg/vaulterrs"
)

// KeyId is a stable, short identifier for a public key: the first 16
// bytes of BLAKE3(public key bytes), rendered as 32 hex characters. It is
// used in tokens, audit logs, and revocation lists.
type KeyId string

// KeyIdFromPublicKey derives the KeyId of an Ed25519 public key.
func KeyIdFromPublicKey(pub ed25519.PublicKey) KeyId {
	sum := blake3.Sum256(pub)
	return KeyId(hex.EncodeToString(sum[:16]))
}

// String implements fmt.Stringer.
func (id KeyId) String() string { return string(id) }

// PublicKey wraps an Ed25519 verifying key.
type PublicKey struct {
	raw ed25519.PublicKey
}

// PublicKeyFromBytes validates and wraps a 32-byte Ed25519 public key.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	if len(b) != ed25519.PublicKeySize {
		return PublicKey{}, vaulterrs.AuthenticationFailed.New("invalid public key length %d", len(b))
	}
	cp := make([]byte, ed25519.PublicKeySize)
	copy(cp, b)
	return PublicKey{raw: cp}, nil
}

// Bytes returns the raw 32-byte public key.
func (p PublicKey) Bytes() []byte { return append([]byte(nil), p.raw...) }

// KeyId derives this public key's stable identifier.
func (p PublicKey) KeyId() KeyId { return KeyIdFromPublicKey(p.raw) }

// Verify checks sig over msg against this public key.
func (p PublicKey) Verify(msg, sig []byte) error {
	if len(sig) != ed25519.SignatureSize {
		return vaulterrs.InvalidSignature.New("invalid signature length %d", len(sig))
	}
	if !ed25519.Verify(p.raw, msg, sig) {
		return vaulterrs.InvalidSignature.New("signature verification failed")
	}
	return nil
}

// KeyPair is an Ed25519 signing keypair generated from the OS CSPRNG.
type KeyPair struct {
	public  ed25519.PublicKey
	private ed25519.PrivateKey
}

// GenerateKeyPair creates a fresh Ed25519 keypair.
func GenerateKeyPair() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, vaulterrs.Internal.Wrap(err)
	}
	return KeyPair{public: pub, private: priv}, nil
}

// KeyPairFromSeed reconstructs a keypair from a 32-byte Ed25519 seed.
func KeyPairFromSeed(seed []byte) (KeyPair, error) {
	if len(seed) != ed25519.SeedSize {
		return KeyPair{}, vaulterrs.AuthenticationFailed.New("invalid seed length %d", len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return KeyPair{public: priv.Public().(ed25519.PublicKey), private: priv}, nil
}

// Public returns the keypair's public half.
func (k KeyPair) Public() PublicKey { return PublicKey{raw: k.public} }

// KeyId derives this keypair's stable identifier.
func (k KeyPair) KeyId() KeyId { return KeyIdFromPublicKey(k.public) }

// Sign produces a 64-byte Ed25519 signature over msg.
func (k KeyPair) Sign(msg []byte) []byte { return ed25519.Sign(k.private, msg) }

// Seed returns the 32-byte seed backing this keypair, for persistence.
func (k KeyPair) Seed() []byte { return append([]byte(nil), k.private.Seed()...) }
