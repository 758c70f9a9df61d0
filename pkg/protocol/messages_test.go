package protocol_test

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectvault/objectvault/pkg/protocol"
)

func TestEncodeDecodeRequestRoundTrip(t *testing.T) {
	msg := protocol.RequestMessage{
		RequestID:     "req-1",
		Bucket:        "photos",
		Key:           "vacation.jpg",
		RequestType:   protocol.RequestPut,
		TimestampMs:   1700000000000,
		Nonce:         "nonce-1",
		ContentLength: 1024,
		ContentHash:   "deadbeef",
	}

	encoded, err := protocol.EncodeRequest(msg)
	require.NoError(t, err)

	decoded, err := protocol.DecodeRequest(encoded)
	require.NoError(t, err)
	assert.Equal(t, msg, decoded)
}

func TestEncodeIsDeterministic(t *testing.T) {
	msg := protocol.RequestMessage{RequestID: "r", Bucket: "b", Key: "k", RequestType: protocol.RequestGet}
	a, err := protocol.EncodeRequest(msg)
	require.NoError(t, err)
	b, err := protocol.EncodeRequest(msg)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDecodeRequestRejectsMissingRequiredFields(t *testing.T) {
	msg := protocol.RequestMessage{Bucket: "b", Key: "k", RequestType: protocol.RequestGet}
	encoded, err := protocol.EncodeRequest(msg)
	require.NoError(t, err)

	_, err = protocol.DecodeRequest(encoded)
	assert.Error(t, err, "missing request_id must fail validation")
}

func TestDecodeRequestAllowsScanAndBatchWithoutKey(t *testing.T) {
	for _, rt := range []protocol.RequestType{protocol.RequestScan, protocol.RequestBatch} {
		msg := protocol.RequestMessage{RequestID: "r", Bucket: "b", RequestType: rt}
		encoded, err := protocol.EncodeRequest(msg)
		require.NoError(t, err)
		_, err = protocol.DecodeRequest(encoded)
		assert.NoError(t, err)
	}
}

func TestDecodeRequestIgnoresUnknownFields(t *testing.T) {
	raw := map[string]interface{}{
		"request_id":         "r",
		"bucket":             "b",
		"key":                "k",
		"request_type":       string(protocol.RequestGet),
		"timestamp_ms":       int64(0),
		"nonce":              "",
		"content_length":     int64(0),
		"extra_future_field": "from the future",
	}
	encoded, err := cbor.Marshal(raw)
	require.NoError(t, err)

	decoded, err := protocol.DecodeRequest(encoded)
	require.NoError(t, err)
	assert.Equal(t, "r", decoded.RequestID)
	assert.Equal(t, protocol.RequestGet, decoded.RequestType)
}

func TestEncodeDecodeResponseRoundTrip(t *testing.T) {
	msg := protocol.ResponseMessage{
		RequestID:     "req-1",
		Status:        protocol.StatusOk,
		ContentLength: 42,
		Version:       "v1",
		IsChunked:     true,
	}
	encoded, err := protocol.EncodeResponse(msg)
	require.NoError(t, err)

	decoded, err := protocol.DecodeResponse(encoded)
	require.NoError(t, err)
	assert.Equal(t, msg, decoded)
}

func TestDecodeResponseRequiresErrorMessageOnError(t *testing.T) {
	msg := protocol.ResponseMessage{RequestID: "r", Status: protocol.StatusError}
	encoded, err := protocol.EncodeResponse(msg)
	require.NoError(t, err)

	_, err = protocol.DecodeResponse(encoded)
	assert.Error(t, err)
}
