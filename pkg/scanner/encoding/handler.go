// Package encoding decodes raw header bytes into text for pattern matching.
//
// Frame headers are read as a fixed-size binary prefix, so the tail of the
// window routinely lands in the middle of pixel data or a multi-byte
// sequence. Decoding therefore has to be total: every input produces some
// text, and bytes that carry no meaning simply decode to noise the header
// patterns will never match.
package encoding

import (
	"bytes"
	"unicode"

	"golang.org/x/net/html/charset"
	textencoding "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// DecodeHandler converts a raw byte window into text. Implementations must
// never fail: malformed input degrades to partial text, not an error.
type DecodeHandler interface {
	Decode(raw []byte) string
}

// permissiveDecodeHandler decodes with a charset resolved at construction
// time. The default is ISO 8859-1 (latin-1), whose decode is total over
// arbitrary binary input because every byte maps to exactly one rune.
type permissiveDecodeHandler struct {
	name string
	enc  textencoding.Encoding
}

// NewPermissiveDecodeHandler creates a DecodeHandler for the named charset.
// The name is resolved through the WHATWG charset registry (so "latin1",
// "iso-8859-1" and "windows-1252" all work); an empty or unknown name falls
// back to ISO 8859-1.
func NewPermissiveDecodeHandler(name string) DecodeHandler {
	h := &permissiveDecodeHandler{
		name: "iso-8859-1",
		enc:  charmap.ISO8859_1,
	}
	if name != "" {
		if enc, canonical := charset.Lookup(name); enc != nil {
			h.name = canonical
			h.enc = enc
		}
	}
	return h
}

// Name reports the canonical charset name in use.
func (h *permissiveDecodeHandler) Name() string { return h.name }

// Decode implements DecodeHandler. A transform failure (possible with
// multi-byte charsets fed a truncated window) degrades to an ASCII-only
// filter of the raw bytes rather than an error.
func (h *permissiveDecodeHandler) Decode(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	decoded, err := h.enc.NewDecoder().Bytes(raw)
	if err != nil {
		return asciiFallback(raw)
	}
	return string(decoded)
}

// asciiFallback keeps printable ASCII and common whitespace and drops
// everything else.
func asciiFallback(raw []byte) string {
	var b bytes.Buffer
	b.Grow(len(raw))
	for _, c := range raw {
		if c < 0x80 && (unicode.IsPrint(rune(c)) || c == '\n' || c == '\r' || c == '\t') {
			b.WriteByte(c)
		}
	}
	return b.String()
}
