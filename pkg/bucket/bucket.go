// Package bucket implements one bucket's key-object layout over a
// single LSM partition: size-routed put/get/delete, a content-addressed
// chunk store with reference counting, and prefix-ordered scans
// (spec.md §4.3).
package bucket

import (
	"context"
	"encoding/binary"

	"github.com/objectvault/objectvault/internal/lsm"
	"github.com/objectvault/objectvault/pkg/vaulterrs"
	"github.com/objectvault/objectvault/pkg/vaultid"
)

const (
	prefixMeta     = "meta:"
	prefixData     = "data:"
	prefixChunk    = "chunk:"
	prefixChunkRef = "chunkref:"
)

// Bucket owns one named LSM partition and enforces the key discriminator
// scheme (meta:/data:/chunk:/chunkref:) that every reader of the
// partition's on-disk state relies on.
type Bucket struct {
	id        vaultid.BucketID
	partition *lsm.Partition
}

// New wraps partition as the storage for bucket id.
func New(id vaultid.BucketID, partition *lsm.Partition) *Bucket {
	return &Bucket{id: id, partition: partition}
}

// ID returns this bucket's identifier.
func (b *Bucket) ID() vaultid.BucketID { return b.id }

func metaKey(key vaultid.Key) []byte { return append([]byte(prefixMeta), key.Bytes()...) }
func dataKey(key vaultid.Key) []byte { return append([]byte(prefixData), key.Bytes()...) }

func chunkKey(hash vaultid.ContentHash) []byte {
	return []byte(prefixChunk + hash.Hex())
}

func chunkRefKey(hash vaultid.ContentHash) []byte {
	return []byte(prefixChunkRef + hash.Hex())
}

func encodeRefCount(n uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, n)
	return buf
}

func decodeRefCount(b []byte) (uint32, error) {
	if len(b) != 4 {
		return 0, vaulterrs.Serialization.New("malformed chunk refcount (want 4 bytes, got %d)", len(b))
	}
	return binary.LittleEndian.Uint32(b), nil
}

// PutSmall writes an inline object: metadata carrying data's content
// hash, plus the raw bytes themselves, followed by a durability
// barrier. If key already holds an object, its old resources (chunk
// references, in particular) are released once the new object is safely
// committed. The caller is responsible for enforcing the
// value-threshold precondition.
func (b *Bucket) PutSmall(_ context.Context, key vaultid.Key, data []byte) (vaultid.ObjectMetadata, error) {
	old, hadOld, err := b.loadMetadata(key)
	if err != nil {
		return vaultid.ObjectMetadata{}, err
	}

	hash := vaultid.HashContent(data)
	meta := vaultid.NewInlineMetadata(uint64(len(data)), hash)

	encodedMeta, err := marshalMetadata(meta)
	if err != nil {
		return vaultid.ObjectMetadata{}, err
	}

	if err := b.partition.Put(metaKey(key), encodedMeta); err != nil {
		return vaultid.ObjectMetadata{}, err
	}
	if err := b.partition.Put(dataKey(key), data); err != nil {
		return vaultid.ObjectMetadata{}, err
	}

	if hadOld && old.IsChunked() {
		if err := b.releaseChunks(old.ChunkManifest.Chunks); err != nil {
			return vaultid.ObjectMetadata{}, err
		}
	}

	if err := b.partition.Flush(); err != nil {
		return vaultid.ObjectMetadata{}, err
	}
	return meta, nil
}

// PutLarge writes a chunked object: each chunk is content-addressed and
// reference-counted, then a manifest referencing them is recorded as
// the object's metadata, followed by a durability barrier. If key
// already holds an object, its old resources are released once the new
// manifest is safely committed — new chunks are retained before any old
// chunk is released, so a chunk shared between the old and new object
// never has its refcount touch zero.
func (b *Bucket) PutLarge(_ context.Context, key vaultid.Key, chunks [][]byte) (vaultid.ObjectMetadata, error) {
	if len(chunks) == 0 {
		return vaultid.ObjectMetadata{}, vaulterrs.InvalidKey.New("put_large requires at least one chunk")
	}

	old, hadOld, err := b.loadMetadata(key)
	if err != nil {
		return vaultid.ObjectMetadata{}, err
	}

	hashes := make([]vaultid.ContentHash, 0, len(chunks))
	var totalSize uint64
	for _, chunk := range chunks {
		hash := vaultid.HashContent(chunk)
		if err := b.retainChunk(hash, chunk); err != nil {
			return vaultid.ObjectMetadata{}, err
		}
		hashes = append(hashes, hash)
		totalSize += uint64(len(chunk))
	}

	manifest := vaultid.NewChunkManifest(hashes, uint32(len(chunks[0])), totalSize)
	if err := manifest.Validate(); err != nil {
		return vaultid.ObjectMetadata{}, err
	}

	meta := vaultid.NewChunkedMetadata(manifest)
	encodedMeta, err := marshalMetadata(meta)
	if err != nil {
		return vaultid.ObjectMetadata{}, err
	}
	if err := b.partition.Put(metaKey(key), encodedMeta); err != nil {
		return vaultid.ObjectMetadata{}, err
	}

	if hadOld {
		if old.IsChunked() {
			if err := b.releaseChunks(old.ChunkManifest.Chunks); err != nil {
				return vaultid.ObjectMetadata{}, err
			}
		} else if err := b.partition.Delete(dataKey(key)); err != nil {
			return vaultid.ObjectMetadata{}, err
		}
	}

	if err := b.partition.Flush(); err != nil {
		return vaultid.ObjectMetadata{}, err
	}
	return meta, nil
}

// retainChunk writes a fresh chunk blob with refcount 1, or increments
// the refcount of an already-stored identical chunk.
func (b *Bucket) retainChunk(hash vaultid.ContentHash, chunk []byte) error {
	existing, ok, err := b.partition.Get(chunkRefKey(hash))
	if err != nil {
		return err
	}
	if !ok {
		if err := b.partition.Put(chunkKey(hash), chunk); err != nil {
			return err
		}
		return b.partition.Put(chunkRefKey(hash), encodeRefCount(1))
	}
	count, err := decodeRefCount(existing)
	if err != nil {
		return err
	}
	return b.partition.Put(chunkRefKey(hash), encodeRefCount(count+1))
}

// GetSmall returns the inline bytes stored at key, or (nil, false) if
// absent.
func (b *Bucket) GetSmall(_ context.Context, key vaultid.Key) ([]byte, bool, error) {
	return b.partition.Get(dataKey(key))
}

// GetMetadata returns the object metadata stored at key, or (meta,
// false) if absent.
func (b *Bucket) GetMetadata(_ context.Context, key vaultid.Key) (vaultid.ObjectMetadata, bool, error) {
	return b.loadMetadata(key)
}

// loadMetadata is GetMetadata's context-free core, reused by the put
// path to inspect an about-to-be-replaced object.
func (b *Bucket) loadMetadata(key vaultid.Key) (vaultid.ObjectMetadata, bool, error) {
	raw, ok, err := b.partition.Get(metaKey(key))
	if err != nil || !ok {
		return vaultid.ObjectMetadata{}, ok, err
	}
	meta, err := unmarshalMetadata(raw)
	if err != nil {
		return vaultid.ObjectMetadata{}, false, err
	}
	return meta, true, nil
}

// GetChunk returns the chunk blob addressed by hash, for reassembly.
func (b *Bucket) GetChunk(_ context.Context, hash vaultid.ContentHash) ([]byte, bool, error) {
	return b.partition.Get(chunkKey(hash))
}

// Delete removes key's metadata and, depending on its shape, either the
// inline data or each referenced chunk (decrementing refcounts, and
// removing blobs whose refcount drops to zero), followed by a
// durability barrier. Deleting a missing key is a no-op.
func (b *Bucket) Delete(ctx context.Context, key vaultid.Key) error {
	meta, ok, err := b.GetMetadata(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	if err := b.partition.Delete(metaKey(key)); err != nil {
		return err
	}

	if !meta.IsChunked() {
		if err := b.partition.Delete(dataKey(key)); err != nil {
			return err
		}
		return b.partition.Flush()
	}

	if err := b.releaseChunks(meta.ChunkManifest.Chunks); err != nil {
		return err
	}
	return b.partition.Flush()
}

// releaseChunks releases every chunk in hashes, e.g. the manifest of an
// object that is being deleted or replaced.
func (b *Bucket) releaseChunks(hashes []vaultid.ContentHash) error {
	for _, hash := range hashes {
		if err := b.releaseChunk(hash); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bucket) releaseChunk(hash vaultid.ContentHash) error {
	raw, ok, err := b.partition.Get(chunkRefKey(hash))
	if err != nil {
		return err
	}
	if !ok {
		// Already gone; nothing to release.
		return nil
	}
	count, err := decodeRefCount(raw)
	if err != nil {
		return err
	}
	if count > 1 {
		return b.partition.Put(chunkRefKey(hash), encodeRefCount(count-1))
	}
	if err := b.partition.Delete(chunkKey(hash)); err != nil {
		return err
	}
	return b.partition.Delete(chunkRefKey(hash))
}

// ScanPrefix enumerates keys whose text begins with prefix, in strict
// lexicographic order, up to limit results (limit <= 0 means unbounded).
// An empty prefix enumerates every key in the bucket.
func (b *Bucket) ScanPrefix(_ context.Context, prefix string, limit int) ([]vaultid.Key, error) {
	entries, err := b.partition.ScanPrefix([]byte(prefixMeta+prefix), limit)
	if err != nil {
		return nil, err
	}
	keys := make([]vaultid.Key, 0, len(entries))
	for _, entry := range entries {
		key, err := vaultid.NewKey(string(entry.Key[len(prefixMeta):]))
		if err != nil {
			return nil, vaulterrs.Serialization.Wrap(err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}
