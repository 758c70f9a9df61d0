package identity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectvault/objectvault/pkg/identity"
)

func TestGenerateKeyPairSignVerify(t *testing.T) {
	kp, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	msg := []byte("test message")
	sig := kp.Sign(msg)

	pub := kp.Public()
	assert.NoError(t, pub.Verify(msg, sig))

	// deterministic key id
	assert.Equal(t, kp.KeyId(), kp.KeyId())
	assert.Equal(t, kp.KeyId(), pub.KeyId())
}

func TestVerifyRejectsMutation(t *testing.T) {
	kp, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	msg := []byte("test message")
	sig := kp.Sign(msg)
	pub := kp.Public()

	mutated := append([]byte(nil), msg...)
	mutated[0] ^= 0xFF
	assert.Error(t, pub.Verify(mutated, sig))

	badSig := append([]byte(nil), sig...)
	badSig[0] ^= 0xFF
	assert.Error(t, pub.Verify(msg, badSig))
}

func TestKeyPairFromSeedRoundTrip(t *testing.T) {
	kp, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	seed := kp.Seed()
	reconstructed, err := identity.KeyPairFromSeed(seed)
	require.NoError(t, err)

	msg := []byte("another message")
	assert.Equal(t, kp.Sign(msg), reconstructed.Sign(msg))
	assert.Equal(t, kp.KeyId(), reconstructed.KeyId())
}

func TestDifferentKeyPairsHaveDifferentIds(t *testing.T) {
	a, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	b, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	assert.NotEqual(t, a.KeyId(), b.KeyId())
}
