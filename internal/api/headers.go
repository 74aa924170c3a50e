package api

import (
	"iter"
	"net/http"
)

// Headers is an ordered set of request headers.
//
// Keys are kept exactly as supplied (no canonicalization) and iterate in
// insertion order. Replacing the value of an existing key keeps its position.
// The zero value is an empty set ready to use.
type Headers struct {
	keys   []string
	values map[string]string
}

// NewHeaders builds a header set from alternating key/value pairs.
// A trailing key without a value is ignored.
func NewHeaders(kv ...string) Headers {
	var h Headers
	for i := 0; i+1 < len(kv); i += 2 {
		h.Set(kv[i], kv[i+1])
	}
	return h
}

// Set adds or replaces a header.
func (h *Headers) Set(key, value string) {
	if h.values == nil {
		h.values = make(map[string]string)
	}
	if _, ok := h.values[key]; !ok {
		h.keys = append(h.keys, key)
	}
	h.values[key] = value
}

// Del removes a header. Removing an absent key is a no-op.
func (h *Headers) Del(key string) {
	if _, ok := h.values[key]; !ok {
		return
	}
	delete(h.values, key)
	for i, k := range h.keys {
		if k == key {
			h.keys = append(h.keys[:i:i], h.keys[i+1:]...)
			break
		}
	}
}

// Get returns the value for key and whether it is present.
func (h Headers) Get(key string) (string, bool) {
	v, ok := h.values[key]
	return v, ok
}

// Has reports whether key is present.
func (h Headers) Has(key string) bool {
	_, ok := h.values[key]
	return ok
}

// Len returns the number of headers.
func (h Headers) Len() int {
	return len(h.keys)
}

// Keys returns the header names in insertion order.
func (h Headers) Keys() []string {
	out := make([]string, len(h.keys))
	copy(out, h.keys)
	return out
}

// All iterates headers in insertion order.
func (h Headers) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, k := range h.keys {
			if !yield(k, h.values[k]) {
				return
			}
		}
	}
}

// Clone returns an independent copy.
func (h Headers) Clone() Headers {
	var out Headers
	for k, v := range h.All() {
		out.Set(k, v)
	}
	return out
}

// Merge returns a copy of h with every header of over applied on top.
// Values from over win on key collision.
func (h Headers) Merge(over Headers) Headers {
	out := h.Clone()
	for k, v := range over.All() {
		out.Set(k, v)
	}
	return out
}

// Map returns the headers as a plain map.
func (h Headers) Map() map[string]string {
	out := make(map[string]string, len(h.keys))
	for k, v := range h.All() {
		out[k] = v
	}
	return out
}

// applyTo copies the headers onto an http.Header. Keys are assigned directly
// so the caller's spelling reaches the wire unchanged.
func (h Headers) applyTo(dst http.Header) {
	for k, v := range h.All() {
		dst[k] = []string{v}
	}
}
