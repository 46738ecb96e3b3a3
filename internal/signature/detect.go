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

package signature

import "bytes"

// probeLen is the number of leading bytes a detection probe inspects.
const probeLen = 50

// Detect scans DefaultCatalog's header patterns in table order and
// returns the extension of the first match, or "" if none match. data
// longer than probeLen is truncated first.
func Detect(data []byte) string {
	return DetectIn(DefaultCatalog, data)
}

// DetectIn is Detect against an explicit catalog, so callers (tests, a
// future --signatures flag) can probe a restricted format set.
func DetectIn(catalog []Format, data []byte) string {
	if len(data) > probeLen {
		data = data[:probeLen]
	}
	for _, f := range catalog {
		for _, h := range f.Headers {
			if matchHeader(h, data) {
				return f.Ext
			}
		}
	}
	return ""
}

// matchHeader applies the wildcard rule: a pattern without a wildcard
// must prefix data exactly; a pattern with one must have its prefix
// (before WildcardAt) start data, and its suffix (after the wildcard
// gap) appear anywhere within data.
func matchHeader(p pattern, data []byte) bool {
	if p.WildcardAt < 0 {
		return bytes.HasPrefix(data, p.Bytes)
	}

	prefix := p.Bytes[:p.WildcardAt]
	suffix := p.Bytes[p.WildcardAt:]

	if !bytes.HasPrefix(data, prefix) {
		return false
	}
	return bytes.Contains(data, suffix)
}

// HasTrailer reports whether any trailer pattern registered for ext
// appears anywhere within data. Used by the recovery engine's
// contiguity loop and content fallback to recognise a file's end.
func HasTrailer(ext string, data []byte) bool {
	f, ok := LookupExtension(ext)
	if !ok {
		return false
	}
	return TrailerIndex(f, data) >= 0
}

// TrailerIndex returns the byte offset just past the last occurrence of
// any of f's trailer patterns within data, or -1 if none occur. A
// trailer magic can legitimately repeat inside a file (e.g. embedded
// thumbnails carrying their own JPEG EOI), so truncation must use the
// final one.
func TrailerIndex(f Format, data []byte) int {
	best := -1
	for _, t := range f.Trailers {
		if t.WildcardAt >= 0 {
			continue // no trailer pattern in the default catalog uses one
		}
		idx := lastIndex(data, t.Bytes)
		if idx < 0 {
			continue
		}
		end := idx + len(t.Bytes)
		if end > best {
			best = end
		}
	}
	return best
}

func lastIndex(data, pattern []byte) int {
	last := -1
	for off := 0; ; {
		i := bytes.Index(data[off:], pattern)
		if i < 0 {
			return last
		}
		last = off + i
		off += i + 1
	}
}
