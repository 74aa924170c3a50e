package api

import "strings"

const upperHex = "0123456789ABCDEF"

// Escape percent-encodes s byte by byte. Bytes in the unreserved set
// [A-Za-z0-9-_.~] pass through; every other byte becomes %XX with uppercase
// hex digits. Multi-byte UTF-8 sequences are escaped one byte at a time.
func Escape(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if !unreserved(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&0x0F])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '-', c == '_', c == '.', c == '~':
		return true
	}
	return false
}

// Param is a single query parameter.
type Param struct {
	Key   string
	Value string
}

// Query is an ordered list of query parameters. Order is preserved on the
// wire and duplicate keys are allowed.
type Query []Param

// Add appends a parameter and returns the extended query.
func (q Query) Add(key, value string) Query {
	return append(q, Param{Key: key, Value: value})
}

// Encode renders the query as a URL suffix: "" for no parameters, otherwise
// "?k1=v1&k2=v2" with keys and values escaped.
func (q Query) Encode() string {
	if len(q) == 0 {
		return ""
	}
	var b strings.Builder
	for i, p := range q {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(Escape(p.Key))
		b.WriteByte('=')
		b.WriteString(Escape(p.Value))
	}
	return b.String()
}
