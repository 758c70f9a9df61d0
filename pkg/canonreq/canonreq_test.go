package canonreq_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectvault/objectvault/pkg/canonreq"
	"github.com/objectvault/objectvault/pkg/identity"
	"github.com/objectvault/objectvault/pkg/vaulterrs"
)

func TestSignVerifyRoundTripAcrossMethods(t *testing.T) {
	kp, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	pub := kp.Public()

	for _, method := range []canonreq.Method{canonreq.MethodGet, canonreq.MethodPut, canonreq.MethodDelete} {
		var payload []byte
		if method == canonreq.MethodPut {
			payload = []byte("test data")
		}
		req := canonreq.New(method, "test-bucket", "test-key", payload, 1700000000, "nonce-1")
		signed := canonreq.Sign(req, kp)
		assert.Equal(t, req.CanonicalString(), signed.Request.CanonicalString())
		assert.NoError(t, canonreq.Verify(signed, pub))
	}
}

func TestVerifyRejectsMutation(t *testing.T) {
	kp, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	other, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	req := canonreq.New(canonreq.MethodPut, "bucket", "key", []byte("body"), 1700000000, "nonce-1")
	signed := canonreq.Sign(req, kp)

	// wrong public key
	assert.Error(t, canonreq.Verify(signed, other.Public()))

	// mutated method
	mutated := signed
	mutated.Request.Method = canonreq.MethodDelete
	assert.Error(t, canonreq.Verify(mutated, kp.Public()))

	// mutated timestamp
	mutated = signed
	mutated.Request.TimestampSec++
	assert.Error(t, canonreq.Verify(mutated, kp.Public()))

	// mutated nonce
	mutated = signed
	mutated.Request.Nonce = "nonce-2"
	assert.Error(t, canonreq.Verify(mutated, kp.Public()))
}

func TestCanonicalStringFormat(t *testing.T) {
	req := canonreq.New(canonreq.MethodPut, "test-bucket", "test/key with spaces", []byte("hello world"), 1700000000, "abc")
	req.AddQueryParam("param1", "value1")
	req.AddHeader("Content-Type", "application/octet-stream")

	s := req.CanonicalString()
	assert.Contains(t, s, "PUT")
	assert.Contains(t, s, "/v1/test-bucket")
	assert.Contains(t, s, "test%2Fkey%20with%20spaces")
	assert.Contains(t, s, "param1=value1")
	assert.Contains(t, s, "content-type:application/octet-stream")
}

func TestNonceCacheAcceptsOnceRejectsReplay(t *testing.T) {
	cache := canonreq.NewNonceCache(300 * time.Second)
	now := time.Unix(1700000000, 0)

	require.NoError(t, cache.Check("nonce1", now, now))
	err := cache.Check("nonce1", now, now)
	assert.True(t, vaulterrs.ReplayAttack.Has(err))

	// past the window
	err = cache.Check("nonce2", now.Add(-600*time.Second), now)
	assert.True(t, vaulterrs.ReplayAttack.Has(err))

	// future beyond the window
	err = cache.Check("nonce3", now.Add(600*time.Second), now)
	assert.True(t, vaulterrs.ReplayAttack.Has(err))

	require.NoError(t, cache.Check("nonce4", now, now))
	assert.Equal(t, 2, cache.Len())
}

func TestNonceCacheAcceptsAfterWindowElapses(t *testing.T) {
	cache := canonreq.NewNonceCache(300 * time.Second)
	t0 := time.Unix(1700000000, 0)

	require.NoError(t, cache.Check("nonce1", t0, t0))
	t1 := t0.Add(301 * time.Second)
	require.NoError(t, cache.Check("nonce1", t1, t1))
}

func TestDefaultReplayWindowAppliesForZeroOrNegative(t *testing.T) {
	cache := canonreq.NewNonceCache(0)
	now := time.Now()
	require.NoError(t, cache.Check("n", now, now))

	negative := canonreq.NewNonceCache(-time.Second)
	require.NoError(t, negative.Check("n", now, now))
}
