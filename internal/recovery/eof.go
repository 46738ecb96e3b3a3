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

package recovery

import (
	"os"

	"github.com/sscafiti/fatdigler/internal/mmap"
	"github.com/sscafiti/fatdigler/internal/signature"
)

// eofScanThreshold is the point past which TruncateAtEOFFile prefers a
// memory-mapped positional scan over reading the whole output file into
// the process heap.
const eofScanThreshold = 64 << 20

// TruncateAtEOFFile runs EOF truncation against an already-written output
// file, for callers that didn't keep the reassembled bytes in memory
// (e.g. a recovery resumed from a prior partial run). Small files are
// read whole; large ones are scanned through an mmap.MmapFile so the
// whole reassembly never has to live in the heap at once.
func TruncateAtEOFFile(path, ext string) error {
	if ext == "" {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if info.Size() < eofScanThreshold {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		truncated := TruncateAtEOF(data, ext)
		if len(truncated) == len(data) {
			return nil
		}
		return os.WriteFile(path, truncated, 0644)
	}

	region, err := mmap.NewMmapFile(path)
	if err != nil {
		return err
	}
	defer region.Close()

	format, ok := signature.LookupExtension(ext)
	if !ok {
		return nil
	}
	end := signature.TrailerIndex(format, region.Data)
	if end < 0 || end >= region.FileSize {
		return nil
	}
	return os.Truncate(path, int64(end))
}

// TruncateAtEOF finds the last occurrence of any trailer pattern
// registered for ext and cuts data to end just past it. Types without a
// trailer catalog, or data with no trailer occurrence, are returned
// unmodified.
func TruncateAtEOF(data []byte, ext string) []byte {
	if ext == "" {
		return data
	}

	format, ok := signature.LookupExtension(ext)
	if !ok {
		return data
	}

	end := signature.TrailerIndex(format, data)
	if end < 0 || end > len(data) {
		return data
	}
	return data[:end]
}
