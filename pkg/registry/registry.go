// Package registry implements the delegation registry and key authority
// that sit above pkg/capability: revocation tracking, delegation-chain
// validation, and issuance (spec.md §4.10).
package registry

import (
	"sync"
	"time"

	"github.com/objectvault/objectvault/pkg/capability"
	"github.com/objectvault/objectvault/pkg/identity"
	"github.com/objectvault/objectvault/pkg/vaulterrs"
)

// RevocationRecord is one entry of the append-only revocation history.
type RevocationRecord struct {
	KeyId     identity.KeyId
	RevokedAt time.Time
	RevokedBy identity.KeyId
	Reason    string
}

type permissionCacheEntry struct {
	permissions capability.Permissions
	expiresAt   time.Time
}

// DelegationRegistry tracks revoked keys, the delegator of every
// delegated key, and a bounded-TTL cache of resolved effective
// permissions. Readers (ValidateToken) and the writer (Revoke) share one
// sync.RWMutex: readers take the read lock, writers the exclusive lock.
type DelegationRegistry struct {
	mu sync.RWMutex

	revoked   map[identity.KeyId]struct{}
	history   []RevocationRecord
	delegator map[identity.KeyId]identity.KeyId // delegated key -> delegator key
	children  map[identity.KeyId][]identity.KeyId
	permCache map[identity.KeyId]permissionCacheEntry
	cacheTTL  time.Duration
}

// NewDelegationRegistry builds an empty registry. cacheTTL <= 0 disables
// the permission cache (every lookup is treated as a miss).
func NewDelegationRegistry(cacheTTL time.Duration) *DelegationRegistry {
	return &DelegationRegistry{
		revoked:   make(map[identity.KeyId]struct{}),
		delegator: make(map[identity.KeyId]identity.KeyId),
		children:  make(map[identity.KeyId][]identity.KeyId),
		permCache: make(map[identity.KeyId]permissionCacheEntry),
		cacheTTL:  cacheTTL,
	}
}

// RecordDelegation notes that child was delegated from parent, so a
// future revocation of parent recursively invalidates child's cache
// entry (and its own descendants, transitively).
func (r *DelegationRegistry) RecordDelegation(parent, child identity.KeyId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delegator[child] = parent
	r.children[parent] = append(r.children[parent], child)
}

// CachePermissions records the effective permissions resolved for
// keyId, valid until the configured TTL elapses.
func (r *DelegationRegistry) CachePermissions(keyId identity.KeyId, perms capability.Permissions, now time.Time) {
	if r.cacheTTL <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.permCache[keyId] = permissionCacheEntry{permissions: perms, expiresAt: now.Add(r.cacheTTL)}
}

// CachedPermissions returns the cached permissions for keyId, if any
// and not expired as of now.
func (r *DelegationRegistry) CachedPermissions(keyId identity.KeyId, now time.Time) (capability.Permissions, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.permCache[keyId]
	if !ok || now.After(entry.expiresAt) {
		return capability.Permissions{}, false
	}
	return entry.permissions, true
}

// Revoke marks keyId revoked, appends a history record, and recursively
// invalidates the permission cache for keyId and everything delegated
// from it (transitively). A second revocation of an already-revoked key
// is an AuthorizationFailed error.
func (r *DelegationRegistry) Revoke(keyId identity.KeyId, revoker identity.KeyId, reason string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, already := r.revoked[keyId]; already {
		return vaulterrs.AuthorizationFailed.New("key already revoked")
	}

	r.revoked[keyId] = struct{}{}
	r.history = append(r.history, RevocationRecord{
		KeyId: keyId, RevokedAt: now, RevokedBy: revoker, Reason: reason,
	})

	// Invalidate this key and every descendant's cached permissions via
	// a worklist rather than recursion, so a long delegation chain can't
	// blow the stack.
	worklist := []identity.KeyId{keyId}
	for len(worklist) > 0 {
		next := worklist[0]
		worklist = worklist[1:]
		delete(r.permCache, next)
		worklist = append(worklist, r.children[next]...)
	}

	return nil
}

// IsRevoked reports whether keyId has been revoked.
func (r *DelegationRegistry) IsRevoked(keyId identity.KeyId) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.revoked[keyId]
	return ok
}

// ValidateToken fails with KeyRevoked if claims' subject or any link of
// its delegation chain has been revoked.
func (r *DelegationRegistry) ValidateToken(claims capability.Claims) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.revoked[claims.SubjectKeyId]; ok {
		return vaulterrs.KeyRevoked.New("key %s is revoked", claims.SubjectKeyId)
	}
	for _, link := range claims.DelegationChain {
		if _, ok := r.revoked[link]; ok {
			return vaulterrs.KeyRevoked.New("key %s is revoked", link)
		}
	}
	return nil
}

// History returns a copy of the revocation history.
func (r *DelegationRegistry) History() []RevocationRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RevocationRecord, len(r.history))
	copy(out, r.history)
	return out
}

// Cleanup removes history entries older than retention, measured from
// now. The revoked set itself is never pruned.
func (r *DelegationRegistry) Cleanup(retention time.Duration, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := now.Add(-retention)
	kept := r.history[:0:0]
	for _, rec := range r.history {
		if rec.RevokedAt.After(cutoff) {
			kept = append(kept, rec)
		}
	}
	r.history = kept
}
