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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempImage(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "disk.img")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestParsePath(t *testing.T) {
	p, err := ParsePath("L:")
	require.NoError(t, err)
	assert.Equal(t, LogicalVolume, p.Kind)
	assert.Equal(t, "L", p.Drive)

	p, err = ParsePath("2")
	require.NoError(t, err)
	assert.Equal(t, PhysicalDrive, p.Kind)
	assert.Equal(t, 2, p.Index)

	p, err = ParsePath("disk.img")
	require.NoError(t, err)
	assert.Equal(t, ImageFile, p.Kind)

	_, err = ParsePath("not-a-path")
	assert.ErrorIs(t, err, ErrPathUnsupported)
}

func TestReadSectorAndCluster(t *testing.T) {
	data := make([]byte, 8192)
	for i := range data {
		data[i] = byte(i)
	}
	path := writeTempImage(t, data)

	p, err := ParsePath(path)
	require.NoError(t, err)

	h, err := Open(p)
	require.NoError(t, err)
	defer h.Close()

	sector, err := h.ReadSector(1, 512)
	require.NoError(t, err)
	assert.Equal(t, data[512:1024], sector)

	cluster, err := h.ReadCluster(0, 4096)
	require.NoError(t, err)
	assert.Equal(t, data[:4096], cluster)
}

func TestReadSectorEmptyRead(t *testing.T) {
	path := writeTempImage(t, make([]byte, 512))

	p, err := ParsePath(path)
	require.NoError(t, err)

	h, err := Open(p)
	require.NoError(t, err)
	defer h.Close()

	_, err = h.ReadSector(10, 512)
	assert.ErrorIs(t, err, ErrEmptyRead)
}
