package vaultid

import (
	"time"

	"github.com/objectvault/objectvault/pkg/vaulterrs"
)

// ChunkManifest is the ordered list of chunk hashes composing a large
// object, plus the uniform chunk size used to split it and the object's
// total size. Reassembly concatenates chunks in manifest order; only the
// last chunk may be shorter than ChunkSize.
type ChunkManifest struct {
	Chunks    []ContentHash `cbor:"chunks"`
	ChunkSize uint32        `cbor:"chunk_size"`
	TotalSize uint64        `cbor:"total_size"`
}

// NewChunkManifest builds a manifest from the given chunk hashes.
func NewChunkManifest(chunks []ContentHash, chunkSize uint32, totalSize uint64) ChunkManifest {
	return ChunkManifest{Chunks: chunks, ChunkSize: chunkSize, TotalSize: totalSize}
}

// ChunkCount returns the number of chunks in the manifest.
func (m ChunkManifest) ChunkCount() int { return len(m.Chunks) }

// Validate checks the manifest's internal consistency: chunk_size must be
// positive whenever there is more than one chunk, and the total_size must
// be representable by chunk_count-1 full chunks plus a final, possibly
// short, chunk. This is supplemental to spec.md, ported from the
// original's implicit construction invariant (see SPEC_FULL.md).
func (m ChunkManifest) Validate() error {
	n := len(m.Chunks)
	if n == 0 {
		return vaulterrs.Serialization.New("chunk manifest has no chunks")
	}
	if n > 1 && m.ChunkSize == 0 {
		return vaulterrs.Serialization.New("chunk manifest has zero chunk_size with %d chunks", n)
	}
	if m.ChunkSize > 0 {
		maxTotal := uint64(m.ChunkSize) * uint64(n)
		minTotal := uint64(m.ChunkSize)*uint64(n-1) + 1
		if n == 1 {
			minTotal = 1
		}
		if m.TotalSize < minTotal || m.TotalSize > maxTotal {
			return vaulterrs.Serialization.New(
				"chunk manifest total_size %d inconsistent with %d chunks of size %d",
				m.TotalSize, n, m.ChunkSize)
		}
	}
	return nil
}

// ObjectMetadata describes a stored object. Exactly one of ContentHash or
// ChunkManifest is populated.
type ObjectMetadata struct {
	Size          uint64          `cbor:"size"`
	Version       Version         `cbor:"version"`
	ContentHash   *ContentHash    `cbor:"content_hash,omitempty"`
	CreatedAt     time.Time       `cbor:"created_at"`
	ChunkManifest *ChunkManifest  `cbor:"chunk_manifest,omitempty"`
}

// NewInlineMetadata builds metadata for a small, inline object.
func NewInlineMetadata(size uint64, hash ContentHash) ObjectMetadata {
	return ObjectMetadata{
		Size:        size,
		Version:     NewVersion(),
		ContentHash: &hash,
		CreatedAt:   time.Now().UTC(),
	}
}

// NewChunkedMetadata builds metadata for a chunked object.
func NewChunkedMetadata(manifest ChunkManifest) ObjectMetadata {
	return ObjectMetadata{
		Size:          manifest.TotalSize,
		Version:       NewVersion(),
		CreatedAt:     time.Now().UTC(),
		ChunkManifest: &manifest,
	}
}

// IsChunked reports whether the metadata describes a chunked object.
func (m ObjectMetadata) IsChunked() bool { return m.ChunkManifest != nil }
