// Package capability implements signed capability tokens: a subject key
// bound to a permission set under an issuer's Ed25519 signature, with a
// validity window and a delegation chain (spec.md §4.8).
package capability

import (
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/objectvault/objectvault/pkg/identity"
	"github.com/objectvault/objectvault/pkg/vaulterrs"
)

// Op names an operation a token may or may not permit.
type Op int

const (
	OpRead Op = iota
	OpWrite
	OpDelete
	OpBatch
	OpDelegate
	OpRevoke
)

var canonicalEncMode = func() cbor.EncMode {
	opts := cbor.CanonicalEncOptions()
	mode, err := opts.EncMode()
	if err != nil {
		panic(err)
	}
	return mode
}()

// Claims is the payload carried by a capability token.
type Claims struct {
	SubjectKeyId    identity.KeyId   `cbor:"subject_key_id"`
	IssuerKeyId     identity.KeyId   `cbor:"issuer_key_id"`
	Permissions     Permissions      `cbor:"permissions"`
	DelegationChain []identity.KeyId `cbor:"delegation_chain"`
	IssuedAt        time.Time        `cbor:"iat"`
	ExpiresAt       time.Time        `cbor:"exp"`

	// Label is an optional, human-readable audit tag. It rides along in
	// the serialized token but is excluded from the bytes that are
	// signed and verified (see SPEC_FULL.md Capability Token module).
	Label string `cbor:"label,omitempty"`
}

// signingPayload is the subset of Claims that is actually signed: Label
// is deliberately excluded so relabeling a token for audit purposes
// never requires re-signing.
type signingPayload struct {
	SubjectKeyId    identity.KeyId   `cbor:"subject_key_id"`
	IssuerKeyId     identity.KeyId   `cbor:"issuer_key_id"`
	Permissions     Permissions      `cbor:"permissions"`
	DelegationChain []identity.KeyId `cbor:"delegation_chain"`
	IssuedAt        time.Time        `cbor:"iat"`
	ExpiresAt       time.Time        `cbor:"exp"`
}

func (c Claims) signingBytes() ([]byte, error) {
	payload := signingPayload{
		SubjectKeyId:    c.SubjectKeyId,
		IssuerKeyId:     c.IssuerKeyId,
		Permissions:     c.Permissions,
		DelegationChain: c.DelegationChain,
		IssuedAt:        c.IssuedAt,
		ExpiresAt:       c.ExpiresAt,
	}
	b, err := canonicalEncMode.Marshal(payload)
	if err != nil {
		return nil, vaulterrs.Serialization.Wrap(err)
	}
	return b, nil
}

// Token is a signed capability: Claims plus the issuer's signature over
// Claims.signingBytes().
type Token struct {
	Claims    Claims
	Signature []byte
}

// Issue signs a fresh token binding subject to permissions, valid for ttl
// starting now.
func Issue(subject identity.KeyId, issuer identity.KeyPair, permissions Permissions, ttl time.Duration) (Token, error) {
	now := time.Now().UTC()
	claims := Claims{
		SubjectKeyId:    subject,
		IssuerKeyId:     issuer.KeyId(),
		Permissions:     permissions,
		DelegationChain: []identity.KeyId{issuer.KeyId()},
		IssuedAt:        now,
		ExpiresAt:       now.Add(ttl),
	}
	return sign(claims, issuer)
}

func sign(claims Claims, signer identity.KeyPair) (Token, error) {
	payload, err := claims.signingBytes()
	if err != nil {
		return Token{}, err
	}
	return Token{Claims: claims, Signature: signer.Sign(payload)}, nil
}

// ParseAndVerify verifies token's signature against issuerPublicKey and
// checks its validity window against now. It returns the verified claims.
func ParseAndVerify(token Token, issuerPublicKey identity.PublicKey, now time.Time) (Claims, error) {
	if token.Claims.IssuerKeyId != issuerPublicKey.KeyId() {
		return Claims{}, vaulterrs.InvalidKeyPacket.New("token issuer does not match supplied public key")
	}
	payload, err := token.Claims.signingBytes()
	if err != nil {
		return Claims{}, vaulterrs.InvalidKeyPacket.Wrap(err)
	}
	if err := issuerPublicKey.Verify(payload, token.Signature); err != nil {
		return Claims{}, vaulterrs.InvalidKeyPacket.Wrap(err)
	}
	if now.Before(token.Claims.IssuedAt) || !now.Before(token.Claims.ExpiresAt) {
		return Claims{}, vaulterrs.ExpiredKeyPacket.New(
			"token not valid at %s (iat=%s, exp=%s)",
			now, token.Claims.IssuedAt, token.Claims.ExpiresAt)
	}
	return token.Claims, nil
}

// Delegate issues a new token for targetSubject, restricted to
// restrictedPerms, signed by delegatorKey. The parent token must carry
// CanDelegate and restrictedPerms must be a subset of the parent's
// permissions; the delegation chain grows by delegatorKey's id.
func Delegate(
	parent Claims,
	targetSubject identity.KeyId,
	restrictedPerms Permissions,
	ttl time.Duration,
	delegatorKey identity.KeyPair,
) (Token, error) {
	if !restrictedPerms.IsSubsetOf(parent.Permissions) {
		return Token{}, vaulterrs.AuthorizationFailed.New("delegated permissions are not a subset of the parent's")
	}
	if !parent.Permissions.CanDelegate {
		return Token{}, vaulterrs.InsufficientPermissions.New("parent token cannot delegate")
	}

	now := time.Now().UTC()
	chain := make([]identity.KeyId, len(parent.DelegationChain), len(parent.DelegationChain)+1)
	copy(chain, parent.DelegationChain)
	chain = append(chain, delegatorKey.KeyId())

	claims := Claims{
		SubjectKeyId:    targetSubject,
		IssuerKeyId:     delegatorKey.KeyId(),
		Permissions:     restrictedPerms,
		DelegationChain: chain,
		IssuedAt:        now,
		ExpiresAt:       now.Add(ttl),
	}
	return sign(claims, delegatorKey)
}

// Allows reports whether claims' permissions grant op against bucket.
// Validity-window checks belong to ParseAndVerify; Allows assumes the
// token has already been verified and only checks the permission bits.
func Allows(claims Claims, op Op, bucket string) bool {
	if !claims.Permissions.AllowsBucket(bucket) {
		return false
	}
	switch op {
	case OpRead:
		return claims.Permissions.CanRead
	case OpWrite:
		return claims.Permissions.CanWrite
	case OpDelete:
		return claims.Permissions.CanDelete
	case OpBatch:
		return claims.Permissions.CanBatch
	case OpDelegate:
		return claims.Permissions.CanDelegate
	case OpRevoke:
		return claims.Permissions.CanRevoke
	default:
		return false
	}
}
