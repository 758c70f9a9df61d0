// Package canonreq implements deterministic request canonicalization for
// signing and a bounded nonce cache for replay defense (spec.md §4.9).
package canonreq

import (
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"lukechampine.com/blake3"

	"github.com/objectvault/objectvault/pkg/identity"
	"github.com/objectvault/objectvault/pkg/vaulterrs"
)

// Method is one of the HTTP verbs the store's surface accepts.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPut    Method = "PUT"
	MethodPost   Method = "POST"
	MethodDelete Method = "DELETE"
)

// UnsignedPayload marks a request whose body is not covered by the
// signature (e.g. a GET with no body).
const UnsignedPayload = "UNSIGNED-PAYLOAD"

// CanonicalRequest is the deterministic, sortable view of a request that
// the canonical string is built from.
type CanonicalRequest struct {
	Method       Method
	Bucket       string
	Key          string // empty means "no key segment"
	QueryParams  map[string]string
	Headers      map[string]string // keys are lower-cased on insert
	PayloadHash  string             // hex, or UnsignedPayload
	TimestampSec int64
	Nonce        string
}

// New builds a CanonicalRequest, hashing payload with BLAKE3 when present.
func New(method Method, bucket, key string, payload []byte, timestampSec int64, nonce string) CanonicalRequest {
	hash := UnsignedPayload
	if payload != nil {
		sum := blake3.Sum256(payload)
		hash = hex.EncodeToString(sum[:])
	}
	return CanonicalRequest{
		Method:       method,
		Bucket:       bucket,
		Key:          key,
		QueryParams:  make(map[string]string),
		Headers:      make(map[string]string),
		PayloadHash:  hash,
		TimestampSec: timestampSec,
		Nonce:        nonce,
	}
}

// AddQueryParam records a query parameter to be included in the
// canonical string, sorted by key at render time.
func (r *CanonicalRequest) AddQueryParam(key, value string) {
	if r.QueryParams == nil {
		r.QueryParams = make(map[string]string)
	}
	r.QueryParams[key] = value
}

// AddHeader records a header to be signed; the name is lower-cased.
func (r *CanonicalRequest) AddHeader(name, value string) {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	r.Headers[strings.ToLower(name)] = value
}

// CanonicalString renders the deterministic, newline-separated signing
// input described in spec.md §4.9.
func (r CanonicalRequest) CanonicalString() string {
	var b strings.Builder

	b.WriteString(string(r.Method))
	b.WriteByte('\n')

	b.WriteString("/v1/")
	b.WriteString(r.Bucket)
	if r.Key != "" {
		b.WriteByte('/')
		b.WriteString(uriEncode(r.Key))
	}
	b.WriteByte('\n')

	queryKeys := sortedKeys(r.QueryParams)
	parts := make([]string, 0, len(queryKeys))
	for _, k := range queryKeys {
		parts = append(parts, uriEncode(k)+"="+uriEncode(r.QueryParams[k]))
	}
	b.WriteString(strings.Join(parts, "&"))
	b.WriteByte('\n')

	headerKeys := sortedKeys(r.Headers)
	headerLines := make([]string, 0, len(headerKeys))
	for _, k := range headerKeys {
		headerLines = append(headerLines, k+":"+strings.TrimSpace(r.Headers[k]))
	}
	b.WriteString(strings.Join(headerLines, "\n"))
	b.WriteByte('\n')

	b.WriteString(strings.Join(headerKeys, ";"))
	b.WriteByte('\n')

	b.WriteString(r.PayloadHash)
	b.WriteByte('\n')

	b.WriteString(strconv.FormatInt(r.TimestampSec, 10))
	b.WriteByte('\n')

	b.WriteString(r.Nonce)

	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func uriEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '-', c == '.', c == '_', c == '~':
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			const hexDigits = "0123456789ABCDEF"
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0x0F])
		}
	}
	return b.String()
}

// SignedRequest pairs a CanonicalRequest with its Ed25519 signature and
// the key id that produced it.
type SignedRequest struct {
	Request     CanonicalRequest
	Signature   []byte
	SignerKeyId identity.KeyId
}

// Sign signs request's canonical string with signer.
func Sign(request CanonicalRequest, signer identity.KeyPair) SignedRequest {
	sig := signer.Sign([]byte(request.CanonicalString()))
	return SignedRequest{Request: request, Signature: sig, SignerKeyId: signer.KeyId()}
}

// Verify checks that signed was produced by the holder of publicKey.
func Verify(signed SignedRequest, publicKey identity.PublicKey) error {
	if signed.SignerKeyId != publicKey.KeyId() {
		return vaulterrs.AuthenticationFailed.New("signer key id does not match supplied public key")
	}
	canonical := []byte(signed.Request.CanonicalString())
	if err := publicKey.Verify(canonical, signed.Signature); err != nil {
		return vaulterrs.InvalidSignature.Wrap(err)
	}
	return nil
}
