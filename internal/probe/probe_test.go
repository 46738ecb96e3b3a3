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

package probe

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sscafiti/fatdigler/internal/blockdev"
)

func writeImage(t *testing.T, data []byte) blockdev.Path {
	t.Helper()
	path := filepath.Join(t.TempDir(), "disk.img")
	require.NoError(t, os.WriteFile(path, data, 0644))
	p, err := blockdev.ParsePath(path)
	require.NoError(t, err)
	return p
}

func ntfsSector(mftCluster uint64, sectorsPerCluster byte) []byte {
	sector := make([]byte, 512)
	copy(sector[3:11], []byte("NTFS    "))
	sector[13] = sectorsPerCluster
	binary.LittleEndian.PutUint64(sector[48:56], mftCluster)
	return sector
}

func TestFindMFTSector(t *testing.T) {
	sector := ntfsSector(4, 8)
	devPath := writeImage(t, sector)

	got, err := FindMFTSector(devPath)
	require.NoError(t, err)
	assert.Equal(t, uint64(32), got)
}

func TestFindMFTSectorRejectsNonNTFS(t *testing.T) {
	sector := make([]byte, 512)
	copy(sector[3:11], []byte("MSWIN4.1"))
	devPath := writeImage(t, sector)

	_, err := FindMFTSector(devPath)
	assert.ErrorIs(t, err, ErrNotNTFS)
}

func TestFindRootDirectoryNTFS(t *testing.T) {
	sector := ntfsSector(4, 8)
	devPath := writeImage(t, sector)

	got, err := FindRootDirectory(devPath)
	require.NoError(t, err)
	assert.Equal(t, "NTFS root → $MFT sector 32", got)
}

// TestFindRootDirectoryPrefersFAT32SignatureOverOEMName covers a boot
// sector that carries the ambiguous "MSDOS5.0" OEM name (as plenty of
// non-FAT32 media do for compatibility) while the authoritative FAT32
// signature at 82..90 is absent; FindRootDirectory must not be fooled
// by the OEM name alone.
func TestFindRootDirectoryPrefersFAT32SignatureOverOEMName(t *testing.T) {
	sector := make([]byte, 512)
	copy(sector[3:11], []byte("MSDOS5.0")) // ambiguous OEM name, not a FAT32 proof
	devPath := writeImage(t, sector)

	_, err := FindRootDirectory(devPath)
	assert.ErrorIs(t, err, ErrUnknownFilesystem)
}

func TestFindRootDirectoryFAT32ComputesRootSector(t *testing.T) {
	sector := make([]byte, 512)
	copy(sector[3:11], []byte("MSDOS5.0"))
	binary.LittleEndian.PutUint16(sector[14:16], 32) // reserved_sectors
	sector[16] = 2                                   // fat_count
	binary.LittleEndian.PutUint32(sector[36:40], 243) // sectors_per_fat
	sector[13] = 8                                   // sectors_per_cluster
	binary.LittleEndian.PutUint32(sector[44:48], 2)  // root_cluster
	copy(sector[82:90], []byte("FAT32   "))
	devPath := writeImage(t, sector)

	got, err := FindRootDirectory(devPath)
	require.NoError(t, err)
	// root_sector = 32 + 2*243 + (2-2)*8 = 518
	assert.Equal(t, "FAT32 root directory → sector 518", got)
}

func TestFindRootDirectoryFAT16(t *testing.T) {
	sector := make([]byte, 512)
	copy(sector[3:11], []byte("MSDOS5.0"))
	copy(sector[54:62], []byte("FAT16   "))
	devPath := writeImage(t, sector)

	got, err := FindRootDirectory(devPath)
	require.NoError(t, err)
	assert.Equal(t, "FAT16 root directory → conventional fixed-offset sector", got)
}

func TestFindRootDirectoryUnknown(t *testing.T) {
	devPath := writeImage(t, make([]byte, 512))

	_, err := FindRootDirectory(devPath)
	assert.ErrorIs(t, err, ErrUnknownFilesystem)
}
