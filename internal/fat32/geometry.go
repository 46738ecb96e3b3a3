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

// Package fat32 decodes the on-disk geometry of a FAT32 volume: the boot
// sector / BPB, the FAT chain, and cluster<->LBA arithmetic.
package fat32

import (
	"errors"
	"fmt"
)

// ErrNotFAT32 is returned when neither the primary nor the backup boot
// sector passes the FAT32 acceptance test.
var ErrNotFAT32 = errors.New("fat32: volume does not look like FAT32")

// backupBootSector is the conventional sector holding a copy of the boot
// sector on FAT32 volumes (BPB.BackupBootSector is usually 6 too, but the
// probe at this layer doesn't trust the primary sector enough to read it).
const backupBootSector = 6

// Geometry is the decoded, derived layout of a FAT32 volume.
type Geometry struct {
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	FATCount          uint8
	SectorsPerFAT     uint32
	TotalSectors      uint32
	RootCluster       uint32

	FATBeginLBA     uint64
	ClusterBeginLBA uint64
	DataSectors     uint64
	ClusterCount    uint64
}

func newGeometry(b *bpb) Geometry {
	bytesPerSector := b.BytesPerSector
	if bytesPerSector == 0 || bytesPerSector > 4096 {
		bytesPerSector = 512
	}

	totalSectors := b.TotalSectors32
	if totalSectors == 0 {
		totalSectors = uint32(b.TotalSectors16)
	}

	g := Geometry{
		BytesPerSector:    bytesPerSector,
		SectorsPerCluster: b.SectorsPerCluster,
		ReservedSectors:   b.ReservedSectors,
		FATCount:          b.NumFATs,
		SectorsPerFAT:     b.SectorsPerFAT32,
		TotalSectors:      totalSectors,
		RootCluster:       b.RootCluster,
	}
	g.deriveLayout()
	return g
}

func (g *Geometry) deriveLayout() {
	g.FATBeginLBA = uint64(g.ReservedSectors)
	g.ClusterBeginLBA = g.FATBeginLBA + uint64(g.FATCount)*uint64(g.SectorsPerFAT)

	if uint64(g.TotalSectors) > g.ClusterBeginLBA {
		g.DataSectors = uint64(g.TotalSectors) - g.ClusterBeginLBA
	}
	if g.SectorsPerCluster > 0 {
		g.ClusterCount = g.DataSectors / uint64(g.SectorsPerCluster)
	}
}

// Valid reports whether the geometry is usable: a nonzero sector and
// cluster size and a root cluster within the valid range.
func (g Geometry) Valid() bool {
	return g.BytesPerSector > 0 && g.SectorsPerCluster > 0 && g.RootCluster >= 2
}

// BytesPerCluster returns bytes_per_sector * sectors_per_cluster.
func (g Geometry) BytesPerCluster() uint64 {
	return uint64(g.BytesPerSector) * uint64(g.SectorsPerCluster)
}

// ClusterToLBA converts a cluster number to its starting sector (LBA).
func (g Geometry) ClusterToLBA(cluster uint32) uint64 {
	return g.ClusterBeginLBA + uint64(cluster-2)*uint64(g.SectorsPerCluster)
}

// DefaultGeometry is the permissive fallback geometry used when the boot
// sector cannot be parsed at all: common FAT32 defaults with a large
// assumed data region, so the speculative cluster probe still has
// something to bound its search against.
func DefaultGeometry() Geometry {
	g := Geometry{
		BytesPerSector:    512,
		SectorsPerCluster: 8,
		ReservedSectors:   32,
		FATCount:          2,
		SectorsPerFAT:     8192,
		RootCluster:       2,
		TotalSectors:      32 + 2*8192 + 1_000_000,
	}
	g.deriveLayout()
	return g
}

// sectorReader reads one or more whole sectors of a device-addressed
// block source. fat32 only needs this much of blockdev.Handle.
type sectorReader interface {
	ReadAt(p []byte, off int64) (int, error)
}

// ParseBootSector decodes the primary boot sector, falling back to the
// conventional backup copy at sector 6 if the primary fails the FAT32
// acceptance test. Returns ErrNotFAT32 if neither passes.
func ParseBootSector(r sectorReader) (Geometry, error) {
	primary := make([]byte, BootSectorSize)
	if _, err := r.ReadAt(primary, 0); err != nil {
		return Geometry{}, fmt.Errorf("fat32: read boot sector: %w", err)
	}

	if g, ok := tryParse(primary); ok {
		return g, nil
	}

	backup := make([]byte, BootSectorSize)
	if _, err := r.ReadAt(backup, backupBootSector*int64(BootSectorSize)); err == nil {
		if g, ok := tryParse(backup); ok {
			return g, nil
		}
	}
	return Geometry{}, ErrNotFAT32
}

func tryParse(sector []byte) (Geometry, bool) {
	b, err := decodeBPB(sector)
	if err != nil {
		return Geometry{}, false
	}
	if !looksLikeFAT32(sector, b) {
		return Geometry{}, false
	}
	return newGeometry(b), true
}
