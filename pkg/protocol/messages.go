// Package protocol defines the typed request/response envelopes carried
// in a wire frame's header, and their canonicalization and validation
// rules (spec.md §4.6).
package protocol

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/objectvault/objectvault/pkg/vaulterrs"
)

// RequestType enumerates the operations a RequestMessage may carry.
type RequestType string

const (
	RequestGet    RequestType = "Get"
	RequestPut    RequestType = "Put"
	RequestDelete RequestType = "Delete"
	RequestScan   RequestType = "Scan"
	RequestBatch  RequestType = "Batch"
)

// Status enumerates the outcomes a ResponseMessage may carry.
type Status string

const (
	StatusOk           Status = "Ok"
	StatusNotFound     Status = "NotFound"
	StatusError        Status = "Error"
	StatusUnauthorized Status = "Unauthorized"
)

// RequestMessage is the typed envelope for an incoming request, carried
// as the frame's header.
type RequestMessage struct {
	RequestID     string      `cbor:"request_id"`
	Bucket        string      `cbor:"bucket"`
	Key           string      `cbor:"key"`
	RequestType   RequestType `cbor:"request_type"`
	TimestampMs   int64       `cbor:"timestamp_ms"`
	Nonce         string      `cbor:"nonce"`
	ContentLength int64       `cbor:"content_length"`
	ContentHash   string      `cbor:"content_hash,omitempty"`
}

// Validate enforces RequestMessage's required fields: unknown fields
// are already silently dropped by CBOR decoding, so only missing
// required fields need checking here.
func (m RequestMessage) Validate() error {
	if m.RequestID == "" {
		return vaulterrs.Serialization.New("request_id is required")
	}
	if m.Bucket == "" {
		return vaulterrs.Serialization.New("bucket is required")
	}
	switch m.RequestType {
	case RequestGet, RequestPut, RequestDelete, RequestScan, RequestBatch:
	default:
		return vaulterrs.Serialization.New("invalid request_type %q", m.RequestType)
	}
	if m.RequestType != RequestScan && m.RequestType != RequestBatch && m.Key == "" {
		return vaulterrs.Serialization.New("key is required for request_type %q", m.RequestType)
	}
	if m.ContentLength < 0 {
		return vaulterrs.Serialization.New("content_length must be non-negative")
	}
	return nil
}

// ResponseMessage is the typed envelope for an outgoing response,
// carried as the frame's header.
type ResponseMessage struct {
	RequestID     string `cbor:"request_id"`
	Status        Status `cbor:"status"`
	ErrorMessage  string `cbor:"error_message,omitempty"`
	ContentLength int64  `cbor:"content_length"`
	ContentHash   string `cbor:"content_hash,omitempty"`
	Version       string `cbor:"version,omitempty"`
	IsChunked     bool   `cbor:"is_chunked"`
}

// Validate enforces ResponseMessage's required fields.
func (m ResponseMessage) Validate() error {
	if m.RequestID == "" {
		return vaulterrs.Serialization.New("request_id is required")
	}
	switch m.Status {
	case StatusOk, StatusNotFound, StatusError, StatusUnauthorized:
	default:
		return vaulterrs.Serialization.New("invalid status %q", m.Status)
	}
	if m.Status == StatusError && m.ErrorMessage == "" {
		return vaulterrs.Serialization.New("error_message is required when status is Error")
	}
	if m.ContentLength < 0 {
		return vaulterrs.Serialization.New("content_length must be non-negative")
	}
	return nil
}

// canonicalEncMode serializes headers deterministically: canonical CBOR
// key ordering, applied to struct fields as well as maps, so two requests with identical semantic content produce
// byte-identical canonical forms.
var canonicalEncMode = func() cbor.EncMode {
	opts := cbor.CanonicalEncOptions()
	mode, err := opts.EncMode()
	if err != nil {
		panic(err)
	}
	return mode
}()

// EncodeRequest canonically encodes a RequestMessage for the frame
// header.
func EncodeRequest(msg RequestMessage) ([]byte, error) {
	b, err := canonicalEncMode.Marshal(msg)
	if err != nil {
		return nil, vaulterrs.Serialization.Wrap(err)
	}
	return b, nil
}

// DecodeRequest decodes a frame header into a RequestMessage and
// validates required fields. Unknown fields in raw are ignored by CBOR
// decoding, giving forward-compatible schema evolution for free.
func DecodeRequest(raw []byte) (RequestMessage, error) {
	var msg RequestMessage
	if err := cbor.Unmarshal(raw, &msg); err != nil {
		return RequestMessage{}, vaulterrs.Serialization.Wrap(err)
	}
	if err := msg.Validate(); err != nil {
		return RequestMessage{}, err
	}
	return msg, nil
}

// EncodeResponse canonically encodes a ResponseMessage for the frame
// header.
func EncodeResponse(msg ResponseMessage) ([]byte, error) {
	b, err := canonicalEncMode.Marshal(msg)
	if err != nil {
		return nil, vaulterrs.Serialization.Wrap(err)
	}
	return b, nil
}

// DecodeResponse decodes a frame header into a ResponseMessage and
// validates required fields.
func DecodeResponse(raw []byte) (ResponseMessage, error) {
	var msg ResponseMessage
	if err := cbor.Unmarshal(raw, &msg); err != nil {
		return ResponseMessage{}, vaulterrs.Serialization.Wrap(err)
	}
	if err := msg.Validate(); err != nil {
		return ResponseMessage{}, err
	}
	return msg, nil
}
