package registry

import (
	"time"

	monkit "gopkg.in/spacemonkeygo/monkit.v2"

	"github.com/objectvault/objectvault/pkg/capability"
	"github.com/objectvault/objectvault/pkg/identity"
	"github.com/objectvault/objectvault/pkg/vaulterrs"
)

// mon is this package's monkit scope: AuthorizeRequest is the hot path
// every incoming request runs through, so it reports timing the same
// way the rest of the codebase instruments request handling.
var mon = monkit.Package()

// KeyAuthority composes a root keypair, the set of keypairs allowed to
// issue tokens (the root is always one of them), and a
// DelegationRegistry. It is the single entry point for issuing,
// revoking, and authorizing capability tokens.
type KeyAuthority struct {
	root     identity.KeyPair
	issuers  map[identity.KeyId]identity.KeyPair
	registry *DelegationRegistry
}

// NewKeyAuthority builds an authority rooted at root, backed by
// registry.
func NewKeyAuthority(root identity.KeyPair, registry *DelegationRegistry) *KeyAuthority {
	return &KeyAuthority{
		root:     root,
		issuers:  map[identity.KeyId]identity.KeyPair{root.KeyId(): root},
		registry: registry,
	}
}

// AddIssuer grants issuer the ability to sign tokens under this
// authority.
func (a *KeyAuthority) AddIssuer(issuer identity.KeyPair) {
	a.issuers[issuer.KeyId()] = issuer
}

// Registry exposes the underlying DelegationRegistry, e.g. for a
// scheduled Cleanup call.
func (a *KeyAuthority) Registry() *DelegationRegistry {
	return a.registry
}

// Issue signs a fresh token for subject under issuerKeyId. issuerKeyId
// must have been registered via NewKeyAuthority or AddIssuer.
func (a *KeyAuthority) Issue(issuerKeyId identity.KeyId, subject identity.KeyId, permissions capability.Permissions, ttl time.Duration) (capability.Token, error) {
	issuer, ok := a.issuers[issuerKeyId]
	if !ok {
		return capability.Token{}, vaulterrs.AuthorizationFailed.New("unknown issuer key id %s", issuerKeyId)
	}
	return capability.Issue(subject, issuer, permissions, ttl)
}

// Revoke marks keyId revoked on behalf of revoker.
func (a *KeyAuthority) Revoke(keyId, revoker identity.KeyId, reason string, now time.Time) error {
	return a.registry.Revoke(keyId, revoker, reason, now)
}

// AuthorizeRequest verifies token against its claimed issuer, checks the
// validity window, and consults the revocation registry for the
// subject and its delegation chain. It returns the verified claims.
func (a *KeyAuthority) AuthorizeRequest(token capability.Token, now time.Time) (claims capability.Claims, err error) {
	defer mon.Task()(nil)(&err)

	issuer, ok := a.issuers[token.Claims.IssuerKeyId]
	if !ok {
		return capability.Claims{}, vaulterrs.AuthorizationFailed.New("unknown issuer key id %s", token.Claims.IssuerKeyId)
	}

	claims, err = capability.ParseAndVerify(token, issuer.Public(), now)
	if err != nil {
		return capability.Claims{}, err
	}

	if err := a.registry.ValidateToken(claims); err != nil {
		return capability.Claims{}, err
	}

	return claims, nil
}

// Delegate issues a delegated token on behalf of delegatorKey, which
// must itself hold a verified, non-revoked parent token, and records
// the delegation edge in the registry so a future revocation of
// delegatorKey cascades to the new token's subject.
func (a *KeyAuthority) Delegate(
	parent capability.Claims,
	targetSubject identity.KeyId,
	restrictedPerms capability.Permissions,
	ttl time.Duration,
	delegatorKey identity.KeyPair,
) (capability.Token, error) {
	if err := a.registry.ValidateToken(parent); err != nil {
		return capability.Token{}, err
	}

	token, err := capability.Delegate(parent, targetSubject, restrictedPerms, ttl, delegatorKey)
	if err != nil {
		return capability.Token{}, err
	}

	a.registry.RecordDelegation(delegatorKey.KeyId(), targetSubject)
	return token, nil
}
