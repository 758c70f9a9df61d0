package capability_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectvault/objectvault/pkg/capability"
	"github.com/objectvault/objectvault/pkg/identity"
	"github.com/objectvault/objectvault/pkg/vaulterrs"
)

func TestIssueParseAndVerify(t *testing.T) {
	issuer, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	subject, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	tok, err := capability.Issue(subject.KeyId(), issuer, capability.AllPermissions(), time.Hour)
	require.NoError(t, err)

	claims, err := capability.ParseAndVerify(tok, issuer.Public(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, subject.KeyId(), claims.SubjectKeyId)
	assert.True(t, capability.Allows(claims, capability.OpRead, "any-bucket"))
}

func TestParseAndVerifyRejectsWrongIssuer(t *testing.T) {
	issuer, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	other, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	subject, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	tok, err := capability.Issue(subject.KeyId(), issuer, capability.AllPermissions(), time.Hour)
	require.NoError(t, err)

	_, err = capability.ParseAndVerify(tok, other.Public(), time.Now())
	assert.True(t, vaulterrs.InvalidKeyPacket.Has(err))
}

func TestParseAndVerifyExpiration(t *testing.T) {
	issuer, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	subject, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	tok, err := capability.Issue(subject.KeyId(), issuer, capability.AllPermissions(), time.Minute)
	require.NoError(t, err)

	_, err = capability.ParseAndVerify(tok, issuer.Public(), tok.Claims.IssuedAt.Add(-time.Second))
	assert.True(t, vaulterrs.ExpiredKeyPacket.Has(err), "before iat must fail")

	_, err = capability.ParseAndVerify(tok, issuer.Public(), tok.Claims.ExpiresAt)
	assert.True(t, vaulterrs.ExpiredKeyPacket.Has(err), "at or after exp must fail")

	_, err = capability.ParseAndVerify(tok, issuer.Public(), tok.Claims.IssuedAt.Add(time.Second))
	assert.NoError(t, err)
}

func TestLabelExcludedFromSignature(t *testing.T) {
	issuer, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	subject, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	tok, err := capability.Issue(subject.KeyId(), issuer, capability.AllPermissions(), time.Hour)
	require.NoError(t, err)

	tok.Claims.Label = "operator note"
	_, err = capability.ParseAndVerify(tok, issuer.Public(), time.Now())
	assert.NoError(t, err, "relabeling must not invalidate the signature")
}

func TestDelegateSubsetEnforcement(t *testing.T) {
	issuer, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	root, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	child, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	grandchild, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	rootPerms := capability.AllPermissions()
	rootTok, err := capability.Issue(root.KeyId(), issuer, rootPerms, time.Hour)
	require.NoError(t, err)

	readOnly := capability.ReadOnlyPermissions()
	childTok, err := capability.Delegate(rootTok.Claims, child.KeyId(), readOnly, time.Hour, root)
	require.NoError(t, err)
	assert.Equal(t, []identity.KeyId{issuer.KeyId(), root.KeyId()}, childTok.Claims.DelegationChain)

	// delegating read-write from a read-only parent must fail
	_, err = capability.Delegate(childTok.Claims, grandchild.KeyId(), capability.ReadWritePermissions(), time.Hour, child)
	assert.True(t, vaulterrs.AuthorizationFailed.Has(err))

	// parent without CanDelegate cannot delegate at all
	noDelegate := readOnly
	noDelegate.CanDelegate = false
	restrictedTok, err := capability.Issue(root.KeyId(), issuer, noDelegate, time.Hour)
	require.NoError(t, err)
	_, err = capability.Delegate(restrictedTok.Claims, child.KeyId(), readOnly, time.Hour, root)
	assert.True(t, vaulterrs.InsufficientPermissions.Has(err))
}

func TestAllowsBucketScoping(t *testing.T) {
	issuer, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	subject, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	perms := capability.ForBuckets("photos")
	tok, err := capability.Issue(subject.KeyId(), issuer, perms, time.Hour)
	require.NoError(t, err)

	claims, err := capability.ParseAndVerify(tok, issuer.Public(), time.Now())
	require.NoError(t, err)

	assert.True(t, capability.Allows(claims, capability.OpRead, "photos"))
	assert.False(t, capability.Allows(claims, capability.OpRead, "videos"))
	assert.False(t, capability.Allows(claims, capability.OpDelegate, "photos"))
}
