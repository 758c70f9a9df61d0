// Package vaulterrs defines the error taxonomy shared by every layer of
// the store: storage, wire protocol, and the security plane. Each row of
// the taxonomy is its own errs.Class so callers can classify a returned
// error with Class.Has(err) instead of string matching or type switches.
package vaulterrs

import "github.com/zeebo/errs"

var (
	// InvalidBucketName is returned when a bucket name fails validation.
	InvalidBucketName = errs.Class("invalid bucket name")
	// InvalidKey is returned when a key fails validation.
	InvalidKey = errs.Class("invalid key")
	// NotFound is returned when a GET/DELETE addresses a missing object.
	NotFound = errs.Class("object not found")
	// Storage covers backend I/O failures, corruption, and missing chunks.
	Storage = errs.Class("storage")
	// Serialization covers metadata encode/decode failures.
	Serialization = errs.Class("serialization")
	// Io covers filesystem-level failures underneath the backend.
	Io = errs.Class("io")

	// AuthenticationFailed covers a signature or key packet that could
	// not be verified.
	AuthenticationFailed = errs.Class("authentication failed")
	// InvalidSignature is returned by PublicKey.Verify on a bad signature.
	InvalidSignature = errs.Class("invalid signature")
	// InvalidKeyPacket is returned when a token is malformed or signed
	// by an unexpected key.
	InvalidKeyPacket = errs.Class("invalid key packet")
	// ExpiredKeyPacket is returned when now >= exp or now < iat.
	ExpiredKeyPacket = errs.Class("expired key packet")
	// ReplayAttack is returned when a nonce is reused or its timestamp
	// falls outside the replay window.
	ReplayAttack = errs.Class("replay attack")
	// KeyRevoked is returned when the subject or a delegation chain
	// member has been revoked.
	KeyRevoked = errs.Class("key revoked")
	// InsufficientPermissions is returned when an operation is not
	// permitted by a token's permission set.
	InsufficientPermissions = errs.Class("insufficient permissions")
	// AuthorizationFailed covers delegation/revocation policy violations
	// that are not simply a permission check.
	AuthorizationFailed = errs.Class("authorization failed")
	// Internal marks an invariant violation that should be operator
	// visible (e.g. a missing chunk for a live manifest).
	Internal = errs.Class("internal")
)

// IsAuthError reports whether err belongs to any of the authentication or
// authorization classes, which the surrounding transport collapses into
// a single opaque Unauthorized response (see spec §7).
func IsAuthError(err error) bool {
	switch {
	case AuthenticationFailed.Has(err),
		InvalidSignature.Has(err),
		InvalidKeyPacket.Has(err),
		ExpiredKeyPacket.Has(err),
		ReplayAttack.Has(err),
		KeyRevoked.Has(err),
		InsufficientPermissions.Has(err),
		AuthorizationFailed.Has(err):
		return true
	default:
		return false
	}
}
