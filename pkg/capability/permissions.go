package capability

// Permissions describes what a capability token's holder may do. An
// empty Buckets set means "all buckets" (spec.md §3).
type Permissions struct {
	Buckets     map[string]struct{} `cbor:"buckets,omitempty"`
	CanRead     bool                `cbor:"can_read"`
	CanWrite    bool                `cbor:"can_write"`
	CanDelete   bool                `cbor:"can_delete"`
	CanBatch    bool                `cbor:"can_batch"`
	CanDelegate bool                `cbor:"can_delegate"`
	CanRevoke   bool                `cbor:"can_revoke"`
}

// AllPermissions grants every capability across every bucket.
func AllPermissions() Permissions {
	return Permissions{
		CanRead: true, CanWrite: true, CanDelete: true,
		CanBatch: true, CanDelegate: true, CanRevoke: true,
	}
}

// ReadOnlyPermissions grants read access across every bucket.
func ReadOnlyPermissions() Permissions {
	return Permissions{CanRead: true}
}

// ReadWritePermissions grants read and write access across every bucket.
func ReadWritePermissions() Permissions {
	return Permissions{CanRead: true, CanWrite: true}
}

// ForBuckets grants read, write, delete, and batch access restricted to
// the given bucket names; it does not grant delegate or revoke.
func ForBuckets(buckets ...string) Permissions {
	set := make(map[string]struct{}, len(buckets))
	for _, b := range buckets {
		set[b] = struct{}{}
	}
	return Permissions{
		Buckets: set,
		CanRead: true, CanWrite: true, CanDelete: true, CanBatch: true,
	}
}

// AllowsBucket reports whether the permission set grants access to bucket.
func (p Permissions) AllowsBucket(bucket string) bool {
	if len(p.Buckets) == 0 {
		return true
	}
	_, ok := p.Buckets[bucket]
	return ok
}

// IsSubsetOf reports whether p grants no more than other: every bucket p
// allows is allowed by other, and every boolean capability p holds is
// also held by other.
func (p Permissions) IsSubsetOf(other Permissions) bool {
	bucketsOK := true
	switch {
	case len(other.Buckets) == 0:
		bucketsOK = true
	case len(p.Buckets) == 0:
		bucketsOK = false
	default:
		for b := range p.Buckets {
			if _, ok := other.Buckets[b]; !ok {
				bucketsOK = false
				break
			}
		}
	}

	return bucketsOK &&
		(!p.CanRead || other.CanRead) &&
		(!p.CanWrite || other.CanWrite) &&
		(!p.CanDelete || other.CanDelete) &&
		(!p.CanBatch || other.CanBatch) &&
		(!p.CanDelegate || other.CanDelegate) &&
		(!p.CanRevoke || other.CanRevoke)
}

// Intersect returns the most restrictive permission set allowed by both
// p and other.
func (p Permissions) Intersect(other Permissions) Permissions {
	var buckets map[string]struct{}
	switch {
	case len(p.Buckets) == 0:
		buckets = other.Buckets
	case len(other.Buckets) == 0:
		buckets = p.Buckets
	default:
		buckets = make(map[string]struct{})
		for b := range p.Buckets {
			if _, ok := other.Buckets[b]; ok {
				buckets[b] = struct{}{}
			}
		}
	}
	return Permissions{
		Buckets:     buckets,
		CanRead:     p.CanRead && other.CanRead,
		CanWrite:    p.CanWrite && other.CanWrite,
		CanDelete:   p.CanDelete && other.CanDelete,
		CanBatch:    p.CanBatch && other.CanBatch,
		CanDelegate: p.CanDelegate && other.CanDelegate,
		CanRevoke:   p.CanRevoke && other.CanRevoke,
	}
}
