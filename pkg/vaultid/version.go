package vaultid

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/objectvault/objectvault/pkg/vaulterrs"
)

// Version is a lexicographically sortable, time-prefixed identifier: a
// 48-bit millisecond Unix timestamp followed by 80 random bits, ULID
// shaped. Versions generated on the same host are strictly increasing
// even when produced within the same millisecond.
type Version [16]byte

var versionState struct {
	mu     sync.Mutex
	lastMS int64
	lastLo uint64 // low 64 of the 80 random bits, used for monotonic bump
	lastHi uint16 // high 16 of the 80 random bits
}

// NewVersion returns a fresh Version. Repeated calls within the same
// process and millisecond remain strictly increasing by incrementing the
// random tail instead of reusing independent randomness, mirroring the
// teacher's monotonic node/piece id generation.
func NewVersion() Version {
	versionState.mu.Lock()
	defer versionState.mu.Unlock()

	now := time.Now().UnixMilli()

	var v Version
	binary.BigEndian.PutUint16(v[0:2], uint16(now>>32))
	binary.BigEndian.PutUint32(v[2:6], uint32(now))

	if now == versionState.lastMS {
		versionState.lastLo++
		if versionState.lastLo == 0 {
			versionState.lastHi++
		}
	} else {
		versionState.lastMS = now
		var buf [10]byte
		_, _ = rand.Read(buf[:])
		versionState.lastHi = binary.BigEndian.Uint16(buf[0:2])
		versionState.lastLo = binary.BigEndian.Uint64(buf[2:10])
	}

	binary.BigEndian.PutUint16(v[6:8], versionState.lastHi)
	binary.BigEndian.PutUint64(v[8:16], versionState.lastLo)
	return v
}

// Timestamp returns the millisecond Unix timestamp encoded in v.
func (v Version) Timestamp() int64 {
	hi := uint64(binary.BigEndian.Uint16(v[0:2]))
	lo := uint64(binary.BigEndian.Uint32(v[2:6]))
	return int64(hi<<32 | lo)
}

// String renders v as lowercase hex.
func (v Version) String() string { return hex.EncodeToString(v[:]) }

// Less reports whether v sorts strictly before other.
func (v Version) Less(other Version) bool {
	for i := range v {
		if v[i] != other[i] {
			return v[i] < other[i]
		}
	}
	return false
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil || len(b) != 16 {
		return vaulterrs.Serialization.New("invalid version %q", text)
	}
	copy(v[:], b)
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (v Version) MarshalBinary() ([]byte, error) { return append([]byte(nil), v[:]...), nil }

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (v *Version) UnmarshalBinary(data []byte) error {
	if len(data) != 16 {
		return vaulterrs.Serialization.New("invalid version length %d", len(data))
	}
	copy(v[:], data)
	return nil
}

var _ fmt.Stringer = Version{}
