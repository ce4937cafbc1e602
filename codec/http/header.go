package http

import (
	"bytes"
	"io"
	"strings"
)

var _ Header = &orderedHeader{}

const headerDelim = ": "

func NewHeader() (Header, error) {
	return &orderedHeader{values: make(map[string]string)}, nil
}

// orderedHeader stores header fields case-insensitively (RFC 2616 §4.2)
// while preserving first-insertion order for WriteTo, so a request built
// field-by-field serializes in the order the caller set it.
type orderedHeader struct {
	keys   []string
	values map[string]string // keyed by lowercased field name
}

func canonicalKey(key string) string {
	return strings.ToLower(key)
}

func (h *orderedHeader) Add(key, value string) {
	ck := canonicalKey(key)
	if _, ok := h.values[ck]; !ok {
		h.keys = append(h.keys, key)
	}
	h.values[ck] = value
}

// Set behaves exactly like Add: both assign the field's value, overwriting
// any earlier value in place and keeping the field's original position.
func (h *orderedHeader) Set(key, value string) {
	h.Add(key, value)
}

func (h *orderedHeader) Get(key string) string {
	return h.values[canonicalKey(key)]
}

func (h *orderedHeader) Del(key string) {
	ck := canonicalKey(key)
	if _, ok := h.values[ck]; !ok {
		return
	}
	delete(h.values, ck)
	for i, k := range h.keys {
		if canonicalKey(k) == ck {
			h.keys = append(h.keys[:i], h.keys[i+1:]...)
			break
		}
	}
}

func (h *orderedHeader) Has(key string) bool {
	_, ok := h.values[canonicalKey(key)]
	return ok
}

func (h *orderedHeader) Len() int {
	return len(h.keys)
}

func (h *orderedHeader) Reset() {
	h.keys = h.keys[:0]
	for k := range h.values {
		delete(h.values, k)
	}
}

func (h *orderedHeader) Range(fn func(key, value string)) {
	for _, k := range h.keys {
		fn(k, h.values[canonicalKey(k)])
	}
}

func (h *orderedHeader) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, k := range h.keys {
		v := h.values[canonicalKey(k)]
		n, err := io.WriteString(w, k+headerDelim+v+CLRF)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	n, err := io.WriteString(w, CLRF)
	total += int64(n)
	return total, err
}

// DecodeHeaderLine splits a single "Key: Value" header line. It does not
// enforce uniqueness; callers implement RFC 2616 §4.2's "first field wins"
// rule themselves (see addFirstWriteWins in the request/response codecs).
func DecodeHeaderLine(line []byte) (key, value []byte, err error) {
	if i := bytes.IndexByte(line, ':'); i >= 0 {
		key = bytes.TrimSpace(line[:i])
		value = bytes.TrimSpace(line[i+1:])
	} else {
		err = ErrInvalidHeader
	}
	return
}

func addFirstWriteWins(h Header, key, value string) {
	if !h.Has(key) {
		h.Add(key, value)
	}
}

func ExpectBody(header Header) bool {
	return header.Has("Content-Length") || header.Has("Transfer-Encoding")
}

func isChunked(header Header) bool {
	return strings.EqualFold(strings.TrimSpace(header.Get("Transfer-Encoding")), "chunked")
}
