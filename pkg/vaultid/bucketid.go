package vaultid

import (
	"regexp"

	"github.com/objectvault/objectvault/pkg/vaulterrs"
)

var bucketNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// BucketID identifies an isolated namespace within the store. It is
// immutable once constructed and valid.
type BucketID struct {
	name string
}

// NewBucketID validates name and returns the corresponding BucketID.
func NewBucketID(name string) (BucketID, error) {
	if name == "" {
		return BucketID{}, vaulterrs.InvalidBucketName.New("empty name")
	}
	if !bucketNamePattern.MatchString(name) {
		return BucketID{}, vaulterrs.InvalidBucketName.New("invalid characters in %q", name)
	}
	return BucketID{name: name}, nil
}

// String returns the bucket name.
func (b BucketID) String() string { return b.name }

// MarshalText implements encoding.TextMarshaler.
func (b BucketID) MarshalText() ([]byte, error) { return []byte(b.name), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *BucketID) UnmarshalText(text []byte) error {
	id, err := NewBucketID(string(text))
	if err != nil {
		return err
	}
	*b = id
	return nil
}
