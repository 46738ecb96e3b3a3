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

package catalog

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/encoding/charmap"
)

// lfnChars extracts the 13 UTF-16LE code units a single LFN fragment
// carries, in slot order (the name1, name2, name3 fields).
func lfnChars(raw [32]byte) []uint16 {
	out := make([]uint16, 0, 13)
	add := func(lo, hi int) {
		for o := lo; o < hi; o += 2 {
			out = append(out, uint16(raw[o])|uint16(raw[o+1])<<8)
		}
	}
	add(1, 11)
	add(14, 26)
	add(28, 32)
	return out
}

// reassembleLFN orders a run of fragments by ascending Order (sequence
// number 1 carries the first 13 characters of the name) and decodes the
// UTF-16LE payload, stopping at the first NUL or 0xFFFF padding unit.
func reassembleLFN(fragments []LFNFragment) string {
	sort.Slice(fragments, func(i, j int) bool { return fragments[i].Order < fragments[j].Order })

	var units []uint16
	for _, f := range fragments {
		units = append(units, lfnChars(f.Raw)...)
	}

	for i, u := range units {
		if u == 0x0000 || u == 0xFFFF {
			units = units[:i]
			break
		}
	}
	return string(utf16.Decode(units))
}

// shortName8Dot3 renders an 11-byte 8.3 field as "NAME.EXT", decoding the
// OEM code page with charmap.CodePage437. For a deleted entry (first byte
// still the 0xE5 marker) position zero is replaced with '_', since the
// original character is unrecoverable from FAT32 metadata alone.
func shortName8Dot3(raw [11]byte, deleted bool) string {
	name := raw

	decoder := charmap.CodePage437.NewDecoder()
	base := strings.TrimRight(string(name[0:8]), " ")
	ext := strings.TrimRight(string(name[8:11]), " ")

	if decodedBase, err := decoder.String(base); err == nil {
		base = decodedBase
	}
	if decodedExt, err := decoder.String(ext); err == nil {
		ext = decodedExt
	}

	if deleted {
		baseRunes := []rune(base)
		if len(baseRunes) > 0 {
			baseRunes[0] = '_'
			base = string(baseRunes)
		} else {
			base = "_"
		}
	}

	if ext == "" {
		return base
	}
	return fmt.Sprintf("%s.%s", base, ext)
}

// lfnChecksum computes the 8.3-name checksum every LFN fragment carries
// redundantly so a reader can validate it belongs to the short entry
// that follows. Unused by the current walker (entries are trusted as
// written) but kept for future validation.
func lfnChecksum(shortName [11]byte) byte {
	var sum byte
	for _, b := range shortName {
		sum = (sum>>1 | sum<<7) + b
	}
	return sum
}
