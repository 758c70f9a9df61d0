// Package wire implements the length-prefixed frame codec carrying a
// structured header plus an opaque body (spec.md §4.5): u32 LE
// hdr_len | header | body, with the body exposed as a zero-copy view
// into the parsed buffer. Modeled on drpcwire's Append/Parse free
// functions operating directly on byte slices.
package wire

import (
	"encoding/binary"
	"io"

	"github.com/zeebo/errs"
)

// MaxHeaderSize bounds hdr_len.
const MaxHeaderSize = 64 * 1024

// MaxBodySize bounds the body of a single frame; larger payloads must
// be streamed as multiple frames by the surrounding transport.
const MaxBodySize = 64 * 1024 * 1024

const lengthPrefixSize = 4

var (
	// TooShort is returned when fewer than 4 bytes are available to even
	// read hdr_len.
	TooShort = errs.Class("frame too short")
	// IncompleteFrame is returned when hdr_len or the body promises more
	// bytes than are actually present.
	IncompleteFrame = errs.Class("incomplete frame")
	// HeaderTooLarge is returned when hdr_len exceeds MaxHeaderSize.
	HeaderTooLarge = errs.Class("header too large")
	// BodyTooLarge is returned when the body exceeds MaxBodySize.
	BodyTooLarge = errs.Class("body too large")
)

// AppendFrame appends the encoded frame for (header, body) to buf and
// returns the extended slice, following the teacher's Append-style
// buffer-growing convention.
func AppendFrame(buf []byte, header, body []byte) ([]byte, error) {
	if len(header) > MaxHeaderSize {
		return nil, HeaderTooLarge.New("header is %d bytes, max %d", len(header), MaxHeaderSize)
	}
	if len(body) > MaxBodySize {
		return nil, BodyTooLarge.New("body is %d bytes, max %d", len(body), MaxBodySize)
	}

	var lenBuf [lengthPrefixSize]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(header)))

	buf = append(buf, lenBuf[:]...)
	buf = append(buf, header...)
	buf = append(buf, body...)
	return buf, nil
}

// Serialize builds a complete frame for (header, body).
func Serialize(header, body []byte) ([]byte, error) {
	return AppendFrame(nil, header, body)
}

// ParseFrame parses a single complete frame out of data, returning
// zero-copy views into data for both the header and body: the wire
// format carries no self-describing body length, so body is everything
// in data after the header (the transport is responsible for handing
// parse exactly one frame's worth of bytes).
func ParseFrame(data []byte) (header, body []byte, err error) {
	if len(data) < lengthPrefixSize {
		return nil, nil, TooShort.New("need %d bytes for length prefix, have %d", lengthPrefixSize, len(data))
	}

	hdrLen := binary.LittleEndian.Uint32(data[:lengthPrefixSize])
	if hdrLen > MaxHeaderSize {
		return nil, nil, HeaderTooLarge.New("hdr_len %d exceeds max %d", hdrLen, MaxHeaderSize)
	}

	rem := data[lengthPrefixSize:]
	if uint64(len(rem)) < uint64(hdrLen) {
		return nil, nil, IncompleteFrame.New("header promises %d bytes, %d available", hdrLen, len(rem))
	}

	header = rem[:hdrLen]
	body = rem[hdrLen:]

	if uint64(len(body)) > MaxBodySize {
		return nil, nil, BodyTooLarge.New("body is %d bytes, max %d", len(body), MaxBodySize)
	}

	return header, body, nil
}

// WriteFrame streams (header, body) to w as a single frame.
func WriteFrame(w io.Writer, header, body []byte) error {
	frame, err := Serialize(header, body)
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	if err != nil {
		return errs.Wrap(err)
	}
	return nil
}

// ReadHeader reads the 4-byte length prefix and the header from r. The
// wire format carries no self-describing body length — the caller
// recovers it from the decoded header's own content_length field (see
// pkg/protocol) and passes it to ReadBody.
func ReadHeader(r io.Reader) (header []byte, err error) {
	var lenBuf [lengthPrefixSize]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, TooShort.Wrap(err)
	}
	hdrLen := binary.LittleEndian.Uint32(lenBuf[:])
	if hdrLen > MaxHeaderSize {
		return nil, HeaderTooLarge.New("hdr_len %d exceeds max %d", hdrLen, MaxHeaderSize)
	}

	header = make([]byte, hdrLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, IncompleteFrame.Wrap(err)
	}
	return header, nil
}

// ReadBody reads exactly bodyLen bytes from r as the frame's body.
func ReadBody(r io.Reader, bodyLen int) (body []byte, err error) {
	if bodyLen < 0 || bodyLen > MaxBodySize {
		return nil, BodyTooLarge.New("body length %d invalid or exceeds max %d", bodyLen, MaxBodySize)
	}
	body = make([]byte, bodyLen)
	if bodyLen > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, IncompleteFrame.Wrap(err)
		}
	}
	return body, nil
}

// ReadFrame reads exactly one frame from r: the header, then bodyLen
// bytes of body.
func ReadFrame(r io.Reader, bodyLen int) (header, body []byte, err error) {
	header, err = ReadHeader(r)
	if err != nil {
		return nil, nil, err
	}
	body, err = ReadBody(r, bodyLen)
	if err != nil {
		return nil, nil, err
	}
	return header, body, nil
}
