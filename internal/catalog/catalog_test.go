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
	"encoding/binary"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sscafiti/fatdigler/internal/fat32"
)

// memDevice is an in-memory sectorReader/clusterReader backing a
// synthetic single-FAT, single-directory-cluster FAT32 image.
type memDevice struct{ data []byte }

func (m *memDevice) ReadAt(p []byte, off int64) (int, error) {
	return copy(p, m.data[off:]), nil
}

const (
	bytesPerSector    = 512
	sectorsPerCluster = 1
	reservedSectors   = 1
	fatCount          = 1
	sectorsPerFAT     = 1
)

func newFixture(t *testing.T, clusterCount int) (*memDevice, fat32.Geometry) {
	t.Helper()

	fatBytes := sectorsPerFAT * bytesPerSector
	dataBytes := clusterCount * bytesPerSector * sectorsPerCluster
	total := reservedSectors*bytesPerSector + fatCount*fatBytes + dataBytes

	dev := &memDevice{data: make([]byte, total)}

	geo := fat32.Geometry{
		BytesPerSector:    bytesPerSector,
		SectorsPerCluster: sectorsPerCluster,
		ReservedSectors:   reservedSectors,
		FATCount:          fatCount,
		SectorsPerFAT:     sectorsPerFAT,
		RootCluster:       2,
	}
	geo.TotalSectors = uint32(total / bytesPerSector)

	return dev, recomputeDerived(geo)
}

// recomputeDerived mirrors fat32's unexported deriveLayout so the test
// fixture can populate a Geometry without depending on fat32 internals.
func recomputeDerived(g fat32.Geometry) fat32.Geometry {
	g.FATBeginLBA = uint64(g.ReservedSectors)
	g.ClusterBeginLBA = g.FATBeginLBA + uint64(g.FATCount)*uint64(g.SectorsPerFAT)
	g.DataSectors = uint64(g.TotalSectors) - g.ClusterBeginLBA
	g.ClusterCount = g.DataSectors / uint64(g.SectorsPerCluster)
	return g
}

func setFATEntry(dev *memDevice, geo fat32.Geometry, cluster, value uint32) {
	off := int64(geo.FATBeginLBA)*bytesPerSector + int64(cluster)*4
	binary.LittleEndian.PutUint32(dev.data[off:off+4], value)
}

func writeShortEntry(buf []byte, off int, name string, attr byte, firstCluster uint32, size uint32, deleted bool) {
	var raw [32]byte
	for i := range raw[0:11] {
		raw[i] = ' '
	}

	base, ext, _ := strings.Cut(strings.ToUpper(name), ".")
	copy(raw[0:8], []byte(base))
	copy(raw[8:11], []byte(ext))

	if deleted {
		raw[0] = 0xE5
	}
	raw[11] = attr
	binary.LittleEndian.PutUint16(raw[20:22], uint16(firstCluster>>16))
	binary.LittleEndian.PutUint16(raw[26:28], uint16(firstCluster&0xFFFF))
	binary.LittleEndian.PutUint32(raw[28:32], size)
	copy(buf[off:off+32], raw[:])
}

func clusterOffset(geo fat32.Geometry, cluster uint32) int64 {
	return int64(geo.ClusterToLBA(cluster)) * bytesPerSector
}

func TestWalkDirectorySingleDeletedFile(t *testing.T) {
	dev, geo := newFixture(t, 4)
	setFATEntry(dev, geo, 2, fat32.EOCSentinel)

	off := clusterOffset(geo, 2)
	writeShortEntry(dev.data, int(off), "HELLO.TXT", 0x20, 0, 1234, false)
	writeShortEntry(dev.data, int(off)+32, "GONE.TXT", 0x20, 0, 99, true)

	w := NewWalker(geo, dev)
	records, err := w.WalkDirectory(2, "")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "HELLO.TXT", records[0].ShortName)
	assert.False(t, records[0].Deleted)
	assert.Equal(t, uint64(1234), records[0].Size)

	assert.True(t, records[1].Deleted)
	assert.True(t, strings.HasPrefix(records[1].ShortName, "_"))
}

func TestWalkDirectoryRecursesIntoSubdirectory(t *testing.T) {
	dev, geo := newFixture(t, 6)
	setFATEntry(dev, geo, 2, fat32.EOCSentinel)
	setFATEntry(dev, geo, 3, fat32.EOCSentinel)

	rootOff := clusterOffset(geo, 2)
	writeShortEntry(dev.data, int(rootOff), "SUBDIR", 0x10, 3, 0, false)

	subOff := clusterOffset(geo, 3)
	writeShortEntry(dev.data, int(subOff), ".", 0x10, 3, 0, false)
	writeShortEntry(dev.data, int(subOff)+32, "..", 0x10, 2, 0, false)
	writeShortEntry(dev.data, int(subOff)+64, "NESTED.DAT", 0x20, 0, 42, false)

	w := NewWalker(geo, dev)
	records, err := w.WalkDirectory(2, "")
	require.NoError(t, err)

	var found bool
	for _, r := range records {
		if r.ShortName == "NESTED.DAT" {
			found = true
			assert.Equal(t, "/SUBDIR", r.ParentPath)
		}
	}
	assert.True(t, found, "expected to recurse into SUBDIR and find NESTED.DAT")
}

func TestWalkDirectoryGuardsAgainstCycles(t *testing.T) {
	dev, geo := newFixture(t, 4)
	setFATEntry(dev, geo, 2, fat32.EOCSentinel)

	off := clusterOffset(geo, 2)
	// A directory pointing back at its own cluster must not loop forever.
	writeShortEntry(dev.data, int(off), "LOOP", 0x10, 2, 0, false)

	w := NewWalker(geo, dev)
	done := make(chan struct{})
	go func() {
		_, _ = w.WalkDirectory(2, "")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("WalkDirectory did not terminate on a self-referential directory")
	}
}

func TestReassembleLFN(t *testing.T) {
	frags := []LFNFragment{}
	name := "résumé.txt"
	units := []uint16{}
	for _, r := range name {
		units = append(units, uint16(r))
	}
	units = append(units, 0x0000)

	for len(units) > 0 {
		chunk := units
		if len(chunk) > 13 {
			chunk = chunk[:13]
		}
		var raw [32]byte
		fill := func(lo, hi int, u []uint16) []uint16 {
			for o := lo; o < hi && len(u) > 0; o += 2 {
				binary.LittleEndian.PutUint16(raw[o:o+2], u[0])
				u = u[1:]
			}
			return u
		}
		rem := chunk
		rem = fill(1, 11, rem)
		rem = fill(14, 26, rem)
		_ = fill(28, 32, rem)
		frags = append(frags, LFNFragment{Raw: raw, Order: byte(len(frags) + 1)})
		units = units[len(chunk):]
	}
	frags[len(frags)-1].Last = true

	got := reassembleLFN(frags)
	assert.Equal(t, name, got)
}

// lfnFragmentsFor builds the LFN fragments for name in on-disk order: the
// highest-order fragment (carrying the LAST_LONG_ENTRY bit) first,
// immediately followed by order N-1 down to order 1, which carries the
// first 13 characters. This mirrors the order a real directory walk
// encounters them in and appends them to its pending slice.
func lfnFragmentsFor(name string) []LFNFragment {
	units := make([]uint16, 0, len(name)+1)
	for _, r := range name {
		units = append(units, uint16(r))
	}
	units = append(units, 0x0000)

	var chunks [][]uint16
	for len(units) > 0 {
		n := 13
		if n > len(units) {
			n = len(units)
		}
		chunks = append(chunks, units[:n])
		units = units[n:]
	}

	frags := make([]LFNFragment, len(chunks))
	for i, chunk := range chunks {
		var raw [32]byte
		fill := func(lo, hi int, u []uint16) []uint16 {
			for o := lo; o < hi && len(u) > 0; o += 2 {
				binary.LittleEndian.PutUint16(raw[o:o+2], u[0])
				u = u[1:]
			}
			return u
		}
		rem := chunk
		rem = fill(1, 11, rem)
		rem = fill(14, 26, rem)
		_ = fill(28, 32, rem)
		frags[i] = LFNFragment{Raw: raw, Order: byte(i + 1)}
	}
	frags[len(frags)-1].Last = true

	// Reverse into on-disk order: highest order first.
	onDisk := make([]LFNFragment, len(frags))
	for i, f := range frags {
		onDisk[len(frags)-1-i] = f
	}
	return onDisk
}

// TestReassembleLFNMultiFragment covers a long name spanning three LFN
// fragments (ordinals 1, 2, 3), supplied in the on-disk, highest-order-first
// order a directory walk actually accumulates them in. A name short enough
// to fit in a single fragment (as in TestReassembleLFN) never exercises the
// ordering, since there is nothing to sort.
func TestReassembleLFNMultiFragment(t *testing.T) {
	name := "long_name_in_three_fragments.txt"
	frags := lfnFragmentsFor(name)
	require.Len(t, frags, 3)

	got := reassembleLFN(frags)
	assert.Equal(t, name, got)
}
