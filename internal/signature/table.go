// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package signature implements the fixed header/trailer pattern catalog
// used to fingerprint recovered files. The table is data, not code:
// callers needing a different format set build their own []Format and
// pass it to DetectIn rather than editing match logic.
package signature

import (
	"encoding/hex"

	"github.com/sscafiti/fatdigler/pkg/table"
)

// pattern is one header or trailer byte pattern. A non-negative WildcardAt
// marks the offset (within Bytes) where 4 wildcard bytes are skipped;
// Bytes holds the fixed prefix followed by the fixed suffix with no gap.
type pattern struct {
	Bytes      []byte
	WildcardAt int // -1 when the pattern has no wildcard region
}

func fixed(b ...byte) pattern { return pattern{Bytes: b, WildcardAt: -1} }

func fixedStr(s string) pattern { return pattern{Bytes: []byte(s), WildcardAt: -1} }

// wildcardAfter builds a pattern whose prefix is prefix, followed by a
// 4-byte wildcard region, followed by suffix.
func wildcardAfter(prefix []byte, suffix []byte) pattern {
	return pattern{Bytes: append(append([]byte{}, prefix...), suffix...), WildcardAt: len(prefix)}
}

// Format is one row of the signature table: an extension plus its header
// and trailer pattern sets.
type Format struct {
	Ext      string
	Headers  []pattern
	Trailers []pattern
}

// DefaultCatalog is the built-in format table. Patterns are tried in
// table order; the first header match wins.
var DefaultCatalog = []Format{
	{
		Ext: "jpg",
		Headers: []pattern{
			fixed(0xFF, 0xD8, 0xFF),
			fixed(0xFF, 0xD8, 0xFF, 0xE0),
			fixed(0xFF, 0xD8, 0xFF, 0xE1),
		},
		Trailers: []pattern{fixed(0xFF, 0xD9)},
	},
	{
		Ext:      "png",
		Headers:  []pattern{fixed(0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A)},
		Trailers: []pattern{fixed(0x49, 0x45, 0x4E, 0x44, 0xAE, 0x42, 0x60, 0x82)},
	},
	{
		Ext: "gif",
		Headers: []pattern{
			fixedStr("GIF87a"),
			fixedStr("GIF89a"),
		},
		Trailers: []pattern{fixed(0x3B)},
	},
	{
		Ext:     "bmp",
		Headers: []pattern{fixedStr("BM")},
	},
	{
		Ext:     "webp",
		Headers: []pattern{wildcardAfter([]byte("RIFF"), []byte("WEBP"))},
	},
	{
		Ext: "heic",
		Headers: []pattern{
			fixed(0x00, 0x00, 0x00, 0x18, 0x66, 0x74, 0x79, 0x70, 0x68, 0x65, 0x69, 0x63),
		},
	},
	{
		Ext:      "pdf",
		Headers:  []pattern{fixedStr("%PDF")},
		Trailers: []pattern{fixedStr("%%EOF")},
	},
	{
		Ext:     "doc",
		Headers: []pattern{fixed(0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1)},
	},
	{
		Ext:      "docx",
		Headers:  []pattern{fixed(0x50, 0x4B, 0x03, 0x04)},
		Trailers: []pattern{fixed(0x50, 0x4B, 0x05, 0x06)},
	},
	{
		Ext:      "rar",
		Headers:  []pattern{fixedStr("Rar!\x1A\x07")},
		Trailers: []pattern{fixed(0xC4, 0x3D, 0x7B, 0x00, 0x40, 0x07, 0x00)},
	},
	{
		Ext:     "7z",
		Headers: []pattern{fixed(0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C)},
	},
}

// extensionIndex backs LookupExtension's by-name lookup (used by the
// trailer checks and EOF truncation) with pkg/table's prefix table rather
// than a linear scan over DefaultCatalog.
// Detection itself never consults this index: it needs an ordered,
// first-match scan over the catalog's header patterns, which a prefix
// table's multi-match Walk does not preserve.
var extensionIndex = buildExtensionIndex()

func buildExtensionIndex() *table.PrefixTable[Format] {
	idx := table.New[Format]()
	for _, f := range DefaultCatalog {
		idx.Insert([]byte(f.Ext), f)
	}
	return idx
}

// LookupExtension returns the Format row for ext, if the catalog has one.
func LookupExtension(ext string) (Format, bool) {
	return extensionIndex.Get([]byte(ext))
}

// HeaderHex renders f's header patterns as hex strings, for display by the
// "formats" CLI subcommand. A wildcard region renders as "??".
func (f Format) HeaderHex() []string { return hexPatterns(f.Headers) }

// TrailerHex is HeaderHex for f's trailer patterns.
func (f Format) TrailerHex() []string { return hexPatterns(f.Trailers) }

func hexPatterns(patterns []pattern) []string {
	out := make([]string, len(patterns))
	for i, p := range patterns {
		if p.WildcardAt < 0 {
			out[i] = hex.EncodeToString(p.Bytes)
			continue
		}
		out[i] = hex.EncodeToString(p.Bytes[:p.WildcardAt]) + "??" + hex.EncodeToString(p.Bytes[p.WildcardAt:])
	}
	return out
}
