// Package storage implements the size-routed Storage Facade: automatic
// chunk split on PUT, automatic reassembly on GET, and best-effort
// concurrent batch execution (spec.md §4.4).
package storage

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
	monkit "gopkg.in/spacemonkeygo/monkit.v2"

	"github.com/objectvault/objectvault/internal/lsm"
	"github.com/objectvault/objectvault/pkg/bucket"
	"github.com/objectvault/objectvault/pkg/vaulterrs"
	"github.com/objectvault/objectvault/pkg/vaultid"
)

// mon is this package's monkit scope: PutObject, GetObject, and Batch
// report call counts and timing through it the same way the rest of the
// codebase instruments its request paths.
var mon = monkit.Package()

// DefaultChunkSize is the size objects above the value threshold are
// split into before being handed to Bucket.PutLarge.
const DefaultChunkSize = 4 * 1024 * 1024

// Facade is the top-level storage entry point: it decides between
// inline and chunked layout per object and runs a batch's operations
// concurrently.
type Facade struct {
	backend        *lsm.Backend
	valueThreshold int
	chunkSize      int

	mu      sync.Mutex
	buckets map[string]*bucket.Bucket
}

// New builds a Facade over backend. valueThreshold and chunkSize fall
// back to lsm.DefaultValueThreshold and DefaultChunkSize when <= 0.
func New(backend *lsm.Backend, valueThreshold, chunkSize int) *Facade {
	if valueThreshold <= 0 {
		valueThreshold = lsm.DefaultValueThreshold
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Facade{
		backend:        backend,
		valueThreshold: valueThreshold,
		chunkSize:      chunkSize,
		buckets:        make(map[string]*bucket.Bucket),
	}
}

// bucketFor returns (creating on first access, per spec.md §4.2) the
// bucket named id, partitioned as "<bucket>_main".
func (f *Facade) bucketFor(id vaultid.BucketID) *bucket.Bucket {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.buckets[id.String()]; ok {
		return b
	}
	b := bucket.New(id, f.backend.Partition(id.String()+"_main"))
	f.buckets[id.String()] = b
	return b
}

// PutObject routes data by size: inline for |data| <= value threshold,
// chunked otherwise (default chunk size 4 MiB, last chunk may be
// short). It returns the resulting metadata.
func (f *Facade) PutObject(ctx context.Context, bucketID vaultid.BucketID, key vaultid.Key, data []byte) (meta vaultid.ObjectMetadata, err error) {
	defer mon.Task()(&ctx)(&err)

	b := f.bucketFor(bucketID)

	if len(data) <= f.valueThreshold {
		return b.PutSmall(ctx, key, data)
	}

	chunks := splitChunks(data, f.chunkSize)
	return b.PutLarge(ctx, key, chunks)
}

func splitChunks(data []byte, chunkSize int) [][]byte {
	chunks := make([][]byte, 0, (len(data)+chunkSize-1)/chunkSize)
	for offset := 0; offset < len(data); offset += chunkSize {
		end := offset + chunkSize
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, data[offset:end])
	}
	return chunks
}

// GetObject reads key's metadata, then returns its bytes: the inline
// value directly, or each chunk fetched in manifest order and
// concatenated. A manifest referencing a missing chunk fails with an
// Internal integrity error.
func (f *Facade) GetObject(ctx context.Context, bucketID vaultid.BucketID, key vaultid.Key) (data []byte, meta vaultid.ObjectMetadata, err error) {
	defer mon.Task()(&ctx)(&err)

	b := f.bucketFor(bucketID)

	meta, ok, err := b.GetMetadata(ctx, key)
	if err != nil {
		return nil, vaultid.ObjectMetadata{}, err
	}
	if !ok {
		return nil, vaultid.ObjectMetadata{}, vaulterrs.NotFound.New("no object at key %q", key)
	}

	if !meta.IsChunked() {
		data, ok, err := b.GetSmall(ctx, key)
		if err != nil {
			return nil, vaultid.ObjectMetadata{}, err
		}
		if !ok {
			return nil, vaultid.ObjectMetadata{}, vaulterrs.Internal.New("metadata present but inline data missing for key %q", key)
		}
		return data, meta, nil
	}

	out := make([]byte, 0, meta.Size)
	for _, hash := range meta.ChunkManifest.Chunks {
		chunk, ok, err := b.GetChunk(ctx, hash)
		if err != nil {
			return nil, vaultid.ObjectMetadata{}, err
		}
		if !ok {
			return nil, vaultid.ObjectMetadata{}, vaulterrs.Internal.New("manifest references missing chunk %s for key %q", hash, key)
		}
		out = append(out, chunk...)
	}
	return out, meta, nil
}

// DeleteObject is a thin delegation to the bucket.
func (f *Facade) DeleteObject(ctx context.Context, bucketID vaultid.BucketID, key vaultid.Key) error {
	return f.bucketFor(bucketID).Delete(ctx, key)
}

// GetMetadata is a thin delegation to the bucket.
func (f *Facade) GetMetadata(ctx context.Context, bucketID vaultid.BucketID, key vaultid.Key) (vaultid.ObjectMetadata, bool, error) {
	return f.bucketFor(bucketID).GetMetadata(ctx, key)
}

// ListObjects is a thin delegation to the bucket's prefix scan.
func (f *Facade) ListObjects(ctx context.Context, bucketID vaultid.BucketID, prefix string, limit int) ([]vaultid.Key, error) {
	return f.bucketFor(bucketID).ScanPrefix(ctx, prefix, limit)
}

// Flush issues the backend's durability barrier.
func (f *Facade) Flush() error {
	return f.backend.Flush()
}

// OpKind distinguishes the two batch operation shapes.
type OpKind int

const (
	OpPut OpKind = iota
	OpDelete
)

// BatchOp is one operation within a Batch call.
type BatchOp struct {
	Kind OpKind
	Key  vaultid.Key
	Data []byte // only meaningful for OpPut
}

// BatchResult is one op's outcome: exactly one of Metadata or Err is
// meaningful, per Kind.
type BatchResult struct {
	Metadata vaultid.ObjectMetadata
	Err      error
}

// Batch executes ops concurrently against bucketID. A batch is not a
// cross-op transaction: each op reports its own Success/Error slot
// independently, and a failing op never aborts its siblings (Batch
// Atomicity design decision in DESIGN.md). Puts go through PutObject,
// which applies no upper size limit: a large Put is stored chunked and
// does not fail its slot for its size.
func (f *Facade) Batch(ctx context.Context, bucketID vaultid.BucketID, ops []BatchOp) (results []BatchResult) {
	defer mon.Task()(&ctx)(nil)

	results = make([]BatchResult, len(ops))

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(runtime.GOMAXPROCS(0))

	for i, op := range ops {
		i, op := i, op
		group.Go(func() error {
			switch op.Kind {
			case OpPut:
				meta, err := f.PutObject(gctx, bucketID, op.Key, op.Data)
				results[i] = BatchResult{Metadata: meta, Err: err}
			case OpDelete:
				err := f.DeleteObject(gctx, bucketID, op.Key)
				results[i] = BatchResult{Err: err}
			}
			// Batch slots never abort the group: each op's failure is
			// reported in its own result, not propagated to errgroup.
			return nil
		})
	}
	_ = group.Wait()

	return results
}
