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
package fat32

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// EOCSentinel is the end-of-chain value FATEntry returns for out-of-range
// clusters, and the top of the end-of-chain sentinel range.
const EOCSentinel = 0x0FFFFFFF

// EOCRangeStart marks the start of the end-of-chain sentinel range
// 0x0FFFFFF8..0x0FFFFFFF.
const EOCRangeStart = 0x0FFFFFF8

// maxChainLength guards against cycles or corrupted FAT data.
const maxChainLength = 1_000_000

// ErrInvalidCluster is returned by filesystem-aware cluster reads for
// cluster numbers below 2.
var ErrInvalidCluster = errors.New("fat32: invalid cluster number")

// FATEntry reads the 32-bit little-endian value at byte offset cluster*4
// within the FAT region and returns its low 28 bits, masking the
// reserved top nibble. Clusters outside [2, cluster_count+2) return the
// end-of-chain sentinel.
func (g Geometry) FATEntry(r sectorReader, cluster uint32) (uint32, error) {
	if uint64(cluster) < 2 || uint64(cluster) >= g.ClusterCount+2 {
		return EOCSentinel, nil
	}

	byteOff := int64(g.FATBeginLBA)*int64(g.BytesPerSector) + int64(cluster)*4

	var buf [4]byte
	if _, err := r.ReadAt(buf[:], byteOff); err != nil {
		return 0, fmt.Errorf("fat32: read FAT entry %d: %w", cluster, err)
	}
	return binary.LittleEndian.Uint32(buf[:]) & 0x0FFFFFFF, nil
}

// Chain walks FATEntry from start until the next value falls in the
// end-of-chain range, capping at maxChainLength entries to guard against
// cycles.
func (g Geometry) Chain(r sectorReader, start uint32) ([]uint32, error) {
	chain := make([]uint32, 0, 16)
	cluster := start

	for i := 0; i < maxChainLength; i++ {
		chain = append(chain, cluster)

		next, err := g.FATEntry(r, cluster)
		if err != nil {
			return chain, err
		}
		if next >= EOCRangeStart {
			return chain, nil
		}
		cluster = next
	}
	return chain, nil
}

// ReadClusterFS reads sectors_per_cluster consecutive sectors starting at
// ClusterToLBA(cluster). Unlike a raw device-addressed read, this is
// filesystem-addressed and rejects cluster numbers below 2.
func (g Geometry) ReadClusterFS(r sectorReader, cluster uint32) ([]byte, error) {
	if cluster < 2 {
		return nil, ErrInvalidCluster
	}

	buf := make([]byte, g.BytesPerCluster())
	off := int64(g.ClusterToLBA(cluster)) * int64(g.BytesPerSector)
	if _, err := r.ReadAt(buf, off); err != nil {
		return nil, fmt.Errorf("fat32: read cluster %d: %w", cluster, err)
	}
	return buf, nil
}
