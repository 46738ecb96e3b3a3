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

package scanner

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sscafiti/fatdigler/internal/blockdev"
)

// buildFAT32Image assembles a minimal-but-valid FAT32 image in memory:
// bytes_per_sector=512, sectors_per_cluster=8, two FATs of 32 sectors
// each, reserved=32.
func buildFAT32Image(t *testing.T, dataClusterCount int) (path string, layout imageLayout) {
	t.Helper()

	const (
		bytesPerSector    = 512
		sectorsPerCluster = 8
		reservedSectors   = 32
		fatCount          = 2
		sectorsPerFAT     = 32
	)

	fatRegion := fatCount * sectorsPerFAT * bytesPerSector
	dataRegion := dataClusterCount * sectorsPerCluster * bytesPerSector
	total := reservedSectors*bytesPerSector + fatRegion + dataRegion

	img := make([]byte, total)

	// BPB (bytes 0..89), matching internal/fat32's decode offsets.
	img[0], img[1], img[2] = 0xEB, 0x58, 0x90
	copy(img[3:11], []byte("MSWIN4.1"))
	binary.LittleEndian.PutUint16(img[11:13], bytesPerSector)
	img[13] = sectorsPerCluster
	binary.LittleEndian.PutUint16(img[14:16], reservedSectors)
	img[16] = fatCount
	binary.LittleEndian.PutUint32(img[36:40], uint32(sectorsPerFAT))
	binary.LittleEndian.PutUint32(img[44:48], 2) // root cluster
	binary.LittleEndian.PutUint32(img[32:36], uint32(total/bytesPerSector))
	copy(img[82:90], []byte("FAT32   "))
	img[510], img[511] = 0x55, 0xAA

	layout = imageLayout{
		bytesPerSector:    bytesPerSector,
		sectorsPerCluster: sectorsPerCluster,
		reservedSectors:   reservedSectors,
		fatCount:          fatCount,
		sectorsPerFAT:     sectorsPerFAT,
	}

	path = filepath.Join(t.TempDir(), "image.img")
	require.NoError(t, os.WriteFile(path, img, 0644))
	return path, layout
}

type imageLayout struct {
	bytesPerSector    int
	sectorsPerCluster int
	reservedSectors   int
	fatCount          int
	sectorsPerFAT     int
}

func (l imageLayout) clusterOffset(cluster int) int64 {
	fatBegin := l.reservedSectors
	clusterBegin := fatBegin + l.fatCount*l.sectorsPerFAT
	return int64(clusterBegin+(cluster-2)*l.sectorsPerCluster) * int64(l.bytesPerSector)
}

func (l imageLayout) fatEntryOffset(fatIdx, cluster int) int64 {
	fatBegin := l.reservedSectors * l.bytesPerSector
	return int64(fatBegin+fatIdx*l.sectorsPerFAT*l.bytesPerSector) + int64(cluster)*4
}

func writeFATEntry(img []byte, layout imageLayout, cluster int, value uint32) {
	for f := 0; f < layout.fatCount; f++ {
		off := layout.fatEntryOffset(f, cluster)
		binary.LittleEndian.PutUint32(img[off:off+4], value)
	}
}

func writeRootShortEntry(img []byte, layout imageLayout, name string, attr byte, firstCluster uint32, size uint32, deleted bool) {
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

	off := layout.clusterOffset(2)
	copy(img[off:off+32], raw[:])
}

func TestScanDeletedSmallContiguousJPEG(t *testing.T) {
	path, layout := buildFAT32Image(t, 64)

	img, err := os.ReadFile(path)
	require.NoError(t, err)

	writeFATEntry(img, layout, 2, eocSentinel) // root dir is one cluster
	writeRootShortEntry(img, layout, "PHOTO.JPG", 0x20, 10, 12000, true)

	jpegOff := layout.clusterOffset(10)
	copy(img[jpegOff:], []byte{0xFF, 0xD8, 0xFF, 0xE0})
	tailOff := jpegOff + 11999
	img[tailOff-1] = 0xFF
	img[tailOff] = 0xD9

	require.NoError(t, os.WriteFile(path, img, 0644))

	p, err := blockdev.ParsePath(path)
	require.NoError(t, err)

	result, err := ScanDeleted(p)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "jpg", result.Records[0].DetectedType)
	assert.True(t, result.Records[0].Deleted)
}

func TestScanDeletedFallbackGeometry(t *testing.T) {
	// A zeroed BPB region must fall back to DefaultGeometry and still
	// attempt the speculative probe over clusters 2..99 without panicking.
	path := filepath.Join(t.TempDir(), "zero.img")
	blank := make([]byte, 1<<20)
	require.NoError(t, os.WriteFile(path, blank, 0644))

	p, err := blockdev.ParsePath(path)
	require.NoError(t, err)

	result, err := ScanDeleted(p)
	require.Error(t, err) // boot sector parse failure is aggregated, not fatal
	assert.Empty(t, result.Records)
}

const eocSentinel uint32 = 0x0FFFFFFF
