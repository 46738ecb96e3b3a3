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
package blockdev

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverPartitionsFallsBackToWholeDisk(t *testing.T) {
	img := make([]byte, 8192)
	path := filepath.Join(t.TempDir(), "raw.img")
	require.NoError(t, os.WriteFile(path, img, 0644))

	p, err := ParsePath(path)
	require.NoError(t, err)

	parts, err := DiscoverPartitions(p)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, uint64(0), parts[0].Offset)
	assert.Equal(t, uint64(8192), parts[0].Size)
}

func TestDiscoverPartitionsParsesMBR(t *testing.T) {
	img := make([]byte, 20*512)
	entry := img[446:462]
	entry[4] = byte(PartitionFAT32)
	binary.LittleEndian.PutUint32(entry[8:12], 2)  // start LBA
	binary.LittleEndian.PutUint32(entry[12:16], 16) // total sectors
	img[510], img[511] = 0x55, 0xAA

	path := filepath.Join(t.TempDir(), "mbr.img")
	require.NoError(t, os.WriteFile(path, img, 0644))

	p, err := ParsePath(path)
	require.NoError(t, err)

	parts, err := DiscoverPartitions(p)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, PartitionFAT32, parts[0].Type)
	assert.Equal(t, uint64(2*512), parts[0].Offset)
	assert.Equal(t, uint64(16*512), parts[0].Size)
}

func TestOffsetTranslatesReads(t *testing.T) {
	img := make([]byte, 4096)
	for i := range img {
		img[i] = byte(i)
	}
	path := filepath.Join(t.TempDir(), "disk.img")
	require.NoError(t, os.WriteFile(path, img, 0644))

	p, err := ParsePath(path)
	require.NoError(t, err)
	h, err := Open(p)
	require.NoError(t, err)
	defer h.Close()

	off := NewOffset(h, 1024)
	buf := make([]byte, 16)
	n, err := off.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 16, n)
	assert.Equal(t, img[1024:1040], buf)
}
