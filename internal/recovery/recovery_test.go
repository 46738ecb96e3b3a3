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
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sscafiti/fatdigler/internal/blockdev"
	"github.com/sscafiti/fatdigler/internal/catalog"
)

const (
	testBytesPerSector    = 512
	testSectorsPerCluster = 8
	testReservedSectors   = 32
	testFATCount          = 2
	testSectorsPerFAT     = 32
)

type testLayout struct{}

func (testLayout) clusterOffset(cluster int) int64 {
	fatBegin := testReservedSectors
	clusterBegin := fatBegin + testFATCount*testSectorsPerFAT
	return int64(clusterBegin+(cluster-2)*testSectorsPerCluster) * testBytesPerSector
}

func (testLayout) fatEntryOffset(fatIdx, cluster int) int64 {
	fatBegin := testReservedSectors * testBytesPerSector
	return int64(fatBegin+fatIdx*testSectorsPerFAT*testBytesPerSector) + int64(cluster)*4
}

func buildImage(t *testing.T, dataClusters int) (string, testLayout) {
	t.Helper()
	fatRegion := testFATCount * testSectorsPerFAT * testBytesPerSector
	dataRegion := dataClusters * testSectorsPerCluster * testBytesPerSector
	total := testReservedSectors*testBytesPerSector + fatRegion + dataRegion

	img := make([]byte, total)
	img[0], img[1], img[2] = 0xEB, 0x58, 0x90
	copy(img[3:11], []byte("MSWIN4.1"))
	binary.LittleEndian.PutUint16(img[11:13], testBytesPerSector)
	img[13] = testSectorsPerCluster
	binary.LittleEndian.PutUint16(img[14:16], testReservedSectors)
	img[16] = testFATCount
	binary.LittleEndian.PutUint32(img[36:40], testSectorsPerFAT)
	binary.LittleEndian.PutUint32(img[44:48], 2)
	binary.LittleEndian.PutUint32(img[32:36], uint32(total/testBytesPerSector))
	copy(img[82:90], []byte("FAT32   "))
	img[510], img[511] = 0x55, 0xAA

	path := filepath.Join(t.TempDir(), "image.img")
	require.NoError(t, os.WriteFile(path, img, 0644))
	return path, testLayout{}
}

func rewrite(t *testing.T, path string, img []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, img, 0644))
}

func setFAT(img []byte, l testLayout, cluster int, value uint32) {
	for f := 0; f < testFATCount; f++ {
		off := l.fatEntryOffset(f, cluster)
		binary.LittleEndian.PutUint32(img[off:off+4], value)
	}
}

func TestRecoverSmallContiguousJPEG(t *testing.T) {
	path, layout := buildImage(t, 64)
	img, err := os.ReadFile(path)
	require.NoError(t, err)

	jpegOff := layout.clusterOffset(10)
	content := make([]byte, 12000)
	for i := range content {
		content[i] = 0x41 // non-zero filler so the JPEG validity check passes
	}
	copy(content, []byte{0xFF, 0xD8, 0xFF, 0xE0})
	content[len(content)-2] = 0xFF
	content[len(content)-1] = 0xD9
	copy(img[jpegOff:], content)
	rewrite(t, path, img)

	devPath, err := blockdev.ParsePath(path)
	require.NoError(t, err)

	rec := catalog.Record{
		Deleted:      true,
		FirstCluster: 10,
		Size:         12000,
		AbsolutePath: "/PHOTO.JPG",
	}

	outPath := filepath.Join(t.TempDir(), "out")
	report, err := Recover(devPath, rec, outPath)
	require.NoError(t, err)
	assert.Equal(t, "jpg", report.DetectedType)
	assert.True(t, report.FullRecovery)
	assert.Equal(t, uint64(12000), report.Written)

	got, err := os.ReadFile(report.OutputPath)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(got, content))
}

func TestRecoverStopsAtAllocatedCluster(t *testing.T) {
	// S3: size spans 3 clusters (20, 21, 22); cluster 22 is allocated to a
	// live file. Recovery must write clusters 20 and 21 only.
	path, layout := buildImage(t, 64)
	img, err := os.ReadFile(path)
	require.NoError(t, err)

	bpc := testSectorsPerCluster * testBytesPerSector
	setFAT(img, layout, 22, 0xDEADBEEF&0x0FFFFFFF|1) // nonzero: allocated
	rewrite(t, path, img)

	devPath, err := blockdev.ParsePath(path)
	require.NoError(t, err)

	size := uint64(3 * bpc)
	rec := catalog.Record{Deleted: true, FirstCluster: 20, Size: size}

	outPath := filepath.Join(t.TempDir(), "out.bin")
	report, err := Recover(devPath, rec, outPath)
	require.NoError(t, err)

	assert.False(t, report.FullRecovery)
	assert.InDelta(t, 0.67, report.Ratio(), 0.01)
	assert.Equal(t, uint64(2*bpc), report.Written)
}

func TestRecoverStopsOnJPEGValidityFailure(t *testing.T) {
	// S4: cluster 32 is all-zero; the JPEG validity check must reject it.
	path, layout := buildImage(t, 64)
	img, err := os.ReadFile(path)
	require.NoError(t, err)

	bpc := testSectorsPerCluster * testBytesPerSector
	startOff := layout.clusterOffset(30)
	copy(img[startOff:], []byte{0xFF, 0xD8, 0xFF, 0xE0})
	for i := range img[startOff : startOff+int64(bpc)] {
		if i >= 4 {
			img[startOff+int64(i)] = 0x41 // non-zero filler, valid-looking
		}
	}
	nextOff := layout.clusterOffset(31)
	for i := range img[nextOff : nextOff+int64(bpc)] {
		img[nextOff+int64(i)] = 0x41
	}
	// cluster 32 stays all-zero.
	rewrite(t, path, img)

	devPath, err := blockdev.ParsePath(path)
	require.NoError(t, err)

	rec := catalog.Record{Deleted: true, FirstCluster: 30, Size: uint64(4 * bpc)}
	outPath := filepath.Join(t.TempDir(), "out.jpg")
	report, err := Recover(devPath, rec, outPath)
	require.NoError(t, err)

	assert.Equal(t, uint64(2*bpc), report.Written)
	assert.Equal(t, "JPEG validity check failed", report.StoppedReason)
}

func TestTruncateAtEOFHandlesEmbeddedTrailer(t *testing.T) {
	// S5: output contains an inner FF D9 (embedded thumbnail) before the
	// true end of stream; truncation must cut at the last occurrence.
	data := make([]byte, 20000)
	copy(data, []byte{0xFF, 0xD8, 0xFF, 0xE0})
	data[5000] = 0xFF
	data[5001] = 0xD9 // inner EOI from an embedded thumbnail
	data[17342] = 0xFF
	data[17343] = 0xD9 // true end of stream

	got := TruncateAtEOF(data, "jpg")
	assert.Equal(t, 17344, len(got))
}
