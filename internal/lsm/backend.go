// Package lsm wraps a single embedded LSM store (dgraph-io/badger/v4)
// behind the narrow interface the rest of the store needs: named
// partitions, point get/put/remove, ordered range iteration, and a
// synchronous durability barrier (spec.md §4.2).
package lsm

import (
	"bytes"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/objectvault/objectvault/pkg/vaulterrs"
)

// DefaultValueThreshold is the value-separation cutoff: values at or
// above this size spill to Badger's value log instead of living inline
// in the LSM tree.
const DefaultValueThreshold = 64 * 1024

// Backend owns a single Badger instance. Partitions are realized as key
// prefixes over that one keyspace — Badger itself has no native
// namespace concept, so "<partition>/" prefixing is the customary way
// to host several logical keyspaces in one instance.
type Backend struct {
	db  *badger.DB
	log *zap.Logger
}

// Open opens (or creates) a Badger database rooted at dir with the
// given value-separation threshold.
func Open(dir string, valueThreshold int, log *zap.Logger) (*Backend, error) {
	if valueThreshold <= 0 {
		valueThreshold = DefaultValueThreshold
	}
	if log == nil {
		log = zap.NewNop()
	}

	opts := badger.DefaultOptions(dir).
		WithValueThreshold(int64(valueThreshold)).
		WithLogger(zapBadgerLogger{sugar: log.Sugar()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, vaulterrs.Storage.Wrap(err)
	}
	return &Backend{db: db, log: log}, nil
}

// Close releases the underlying Badger handle.
func (b *Backend) Close() error {
	if err := b.db.Close(); err != nil {
		return vaulterrs.Storage.Wrap(err)
	}
	return nil
}

// Flush is the durability barrier: on return, every mutation applied
// before the call is guaranteed to survive a process or host crash.
func (b *Backend) Flush() error {
	if err := b.db.Sync(); err != nil {
		return vaulterrs.Storage.Wrap(err)
	}
	return nil
}

// Partition returns a handle to the named partition. Partitions are
// created implicitly on first write and persist across restarts because
// they are nothing more than a key prefix.
func (b *Backend) Partition(name string) *Partition {
	return &Partition{backend: b, prefix: []byte(name + "/")}
}

// Partition is a namespaced view over the backend's single keyspace.
type Partition struct {
	backend *Backend
	prefix  []byte
}

func (p *Partition) fullKey(key []byte) []byte {
	full := make([]byte, 0, len(p.prefix)+len(key))
	full = append(full, p.prefix...)
	full = append(full, key...)
	return full
}

// Flush issues the backend's durability barrier on behalf of this
// partition. Badger has no per-partition sync, so this is the same
// barrier as Backend.Flush.
func (p *Partition) Flush() error {
	return p.backend.Flush()
}

// Get returns the value stored at key, or (nil, false) if absent.
func (p *Partition) Get(key []byte) ([]byte, bool, error) {
	var value []byte
	err := p.backend.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(p.fullKey(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			value = append([]byte(nil), v...)
			return nil
		})
	})
	if err != nil {
		return nil, false, vaulterrs.Storage.Wrap(err)
	}
	return value, value != nil, nil
}

// Put writes key=value in this partition.
func (p *Partition) Put(key, value []byte) error {
	err := p.backend.db.Update(func(txn *badger.Txn) error {
		return txn.Set(p.fullKey(key), value)
	})
	if err != nil {
		return vaulterrs.Storage.Wrap(err)
	}
	return nil
}

// Delete removes key from this partition. Deleting a missing key is not
// an error.
func (p *Partition) Delete(key []byte) error {
	err := p.backend.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(p.fullKey(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
	if err != nil {
		return vaulterrs.Storage.Wrap(err)
	}
	return nil
}

// KV is one entry of a range scan.
type KV struct {
	Key   []byte
	Value []byte
}

// ScanPrefix iterates entries whose key (with the partition prefix
// stripped) starts with prefix, in strict lexicographic order, yielding
// at most limit entries. limit <= 0 means unbounded.
func (p *Partition) ScanPrefix(prefix []byte, limit int) ([]KV, error) {
	fullPrefix := p.fullKey(prefix)
	var out []KV

	err := p.backend.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = fullPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(fullPrefix); it.ValidForPrefix(fullPrefix); it.Next() {
			if limit > 0 && len(out) >= limit {
				break
			}
			item := it.Item()
			key := bytes.TrimPrefix(append([]byte(nil), item.Key()...), p.prefix)
			var value []byte
			if err := item.Value(func(v []byte) error {
				value = append([]byte(nil), v...)
				return nil
			}); err != nil {
				return err
			}
			out = append(out, KV{Key: key, Value: value})
		}
		return nil
	})
	if err != nil {
		return nil, vaulterrs.Storage.Wrap(err)
	}
	return out, nil
}
