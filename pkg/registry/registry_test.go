package registry_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectvault/objectvault/pkg/capability"
	"github.com/objectvault/objectvault/pkg/identity"
	"github.com/objectvault/objectvault/pkg/registry"
	"github.com/objectvault/objectvault/pkg/vaulterrs"
)

func TestRevokeIsIdempotentError(t *testing.T) {
	reg := registry.NewDelegationRegistry(time.Minute)
	kp, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	revoker, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, reg.Revoke(kp.KeyId(), revoker.KeyId(), "compromised", now))

	err = reg.Revoke(kp.KeyId(), revoker.KeyId(), "compromised again", now)
	assert.True(t, vaulterrs.AuthorizationFailed.Has(err))

	history := reg.History()
	require.Len(t, history, 1)
	assert.Equal(t, kp.KeyId(), history[0].KeyId)
	assert.Equal(t, "compromised", history[0].Reason)
}

func TestValidateTokenRejectsRevokedSubjectAndChainMember(t *testing.T) {
	reg := registry.NewDelegationRegistry(time.Minute)
	root, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	child, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	rootClaims := capability.Claims{SubjectKeyId: root.KeyId(), DelegationChain: []identity.KeyId{root.KeyId()}}
	childClaims := capability.Claims{SubjectKeyId: child.KeyId(), DelegationChain: []identity.KeyId{root.KeyId(), child.KeyId()}}

	assert.NoError(t, reg.ValidateToken(rootClaims))
	assert.NoError(t, reg.ValidateToken(childClaims))

	require.NoError(t, reg.Revoke(root.KeyId(), root.KeyId(), "", time.Now()))

	assert.True(t, vaulterrs.KeyRevoked.Has(reg.ValidateToken(rootClaims)))
	assert.True(t, vaulterrs.KeyRevoked.Has(reg.ValidateToken(childClaims)), "chain member revocation must reject the child")
}

func TestRevocationCascadesToDelegatedDescendants(t *testing.T) {
	reg := registry.NewDelegationRegistry(time.Minute)
	root, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	child, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	grandchild, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	reg.RecordDelegation(root.KeyId(), child.KeyId())
	reg.RecordDelegation(child.KeyId(), grandchild.KeyId())

	now := time.Now()
	reg.CachePermissions(child.KeyId(), capability.ReadOnlyPermissions(), now)
	reg.CachePermissions(grandchild.KeyId(), capability.ReadOnlyPermissions(), now)

	_, ok := reg.CachedPermissions(grandchild.KeyId(), now)
	require.True(t, ok)

	require.NoError(t, reg.Revoke(root.KeyId(), root.KeyId(), "compromised", now))

	_, ok = reg.CachedPermissions(child.KeyId(), now)
	assert.False(t, ok, "direct delegate's cache must be invalidated")
	_, ok = reg.CachedPermissions(grandchild.KeyId(), now)
	assert.False(t, ok, "transitive delegate's cache must be invalidated too")
}

func TestCleanupPrunesHistoryNotRevokedSet(t *testing.T) {
	reg := registry.NewDelegationRegistry(time.Minute)
	kp, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	old := time.Now().Add(-time.Hour)
	require.NoError(t, reg.Revoke(kp.KeyId(), kp.KeyId(), "old", old))

	reg.Cleanup(time.Minute, time.Now())

	assert.Empty(t, reg.History())
	assert.True(t, reg.IsRevoked(kp.KeyId()), "revoked set must survive cleanup")
}

func TestKeyAuthorityIssueAuthorizeRevoke(t *testing.T) {
	root, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	subject, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	reg := registry.NewDelegationRegistry(time.Minute)
	authority := registry.NewKeyAuthority(root, reg)

	token, err := authority.Issue(root.KeyId(), subject.KeyId(), capability.AllPermissions(), time.Hour)
	require.NoError(t, err)

	claims, err := authority.AuthorizeRequest(token, time.Now())
	require.NoError(t, err)
	assert.Equal(t, subject.KeyId(), claims.SubjectKeyId)

	require.NoError(t, authority.Revoke(subject.KeyId(), root.KeyId(), "test", time.Now()))

	_, err = authority.AuthorizeRequest(token, time.Now())
	assert.True(t, vaulterrs.KeyRevoked.Has(err))
}

func TestKeyAuthorityDelegateCascadesOnParentRevocation(t *testing.T) {
	root, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	child, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	grandchild, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	reg := registry.NewDelegationRegistry(time.Minute)
	authority := registry.NewKeyAuthority(root, reg)

	rootToken, err := authority.Issue(root.KeyId(), root.KeyId(), capability.AllPermissions(), time.Hour)
	require.NoError(t, err)
	rootClaims, err := authority.AuthorizeRequest(rootToken, time.Now())
	require.NoError(t, err)

	childToken, err := authority.Delegate(rootClaims, child.KeyId(), capability.ReadOnlyPermissions(), time.Hour, root)
	require.NoError(t, err)

	require.NoError(t, authority.Revoke(root.KeyId(), root.KeyId(), "compromised", time.Now()))

	_, err = authority.AuthorizeRequest(childToken, time.Now())
	assert.True(t, vaulterrs.KeyRevoked.Has(err), "descendant of a revoked root must fail authorization")

	_, err = authority.Delegate(childToken.Claims, grandchild.KeyId(), capability.ReadOnlyPermissions(), time.Hour, child)
	assert.Error(t, err)
}
