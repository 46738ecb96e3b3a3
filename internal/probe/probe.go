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

// Package probe is a lightweight, read-one-sector classifier that
// locates the root directory (or $MFT) of a volume without parsing a
// full filesystem. Unlike internal/fat32, it never requires the volume
// to actually be FAT32, it's the raw-viewer's "what is this" entry
// point.
package probe

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/sscafiti/fatdigler/internal/blockdev"
)

// ErrNotNTFS is returned by FindMFTSector when sector 0 doesn't carry
// the NTFS OEM signature.
var ErrNotNTFS = errors.New("probe: not an NTFS volume")

// ErrUnknownFilesystem is returned by FindRootDirectory when sector 0
// matches none of the three recognized signatures.
var ErrUnknownFilesystem = errors.New("probe: unrecognized boot sector signature")

const bootSectorSize = 512

func readBootSector(devPath blockdev.Path) ([]byte, error) {
	dev, err := blockdev.Open(devPath)
	if err != nil {
		return nil, fmt.Errorf("probe: open: %w", err)
	}
	defer dev.Close()

	sector, err := dev.ReadSector(0, bootSectorSize)
	if err != nil {
		return nil, fmt.Errorf("probe: read boot sector: %w", err)
	}
	return sector, nil
}

// FindMFTSector reads sector 0 and, if bytes 3..11 read "NTFS    ",
// derives the $MFT's starting sector from sectors_per_cluster (offset
// 13) and mft_cluster (a 64-bit LE value at offset 48).
func FindMFTSector(devPath blockdev.Path) (uint64, error) {
	sector, err := readBootSector(devPath)
	if err != nil {
		return 0, err
	}
	if !isNTFS(sector) {
		return 0, ErrNotNTFS
	}
	return mftSector(sector), nil
}

func isNTFS(sector []byte) bool {
	return len(sector) >= 11 && string(sector[3:11]) == "NTFS    "
}

func mftSector(sector []byte) uint64 {
	sectorsPerCluster := uint64(sector[13])
	mftCluster := binary.LittleEndian.Uint64(sector[48:56])
	return mftCluster * sectorsPerCluster
}

// isFAT32 checks the FAT32 signature string at bytes 82..90, which the
// format reserves for exactly this purpose, rather than the OEM name
// field at bytes 3..11: that field is free-form and ambiguous, plenty of
// non-FAT32 media carry "MSDOS5.0" there for compatibility.
func isFAT32(sector []byte) bool {
	return len(sector) >= 90 && string(sector[82:90]) == "FAT32   "
}

func isFAT16(sector []byte) bool {
	return len(sector) >= 62 && string(sector[54:62]) == "FAT16   "
}

// FindRootDirectory classifies the boot sector and locates its root
// directory. NTFS volumes report their $MFT sector; FAT32 volumes
// compute the root directory's starting sector from the BPB's
// reserved/FAT-region layout; FAT16 volumes (a fixed,
// conventionally-placed root directory) report a descriptive sentinel
// rather than walking their BPB.
func FindRootDirectory(devPath blockdev.Path) (string, error) {
	sector, err := readBootSector(devPath)
	if err != nil {
		return "", err
	}

	switch {
	case isNTFS(sector):
		return fmt.Sprintf("NTFS root → $MFT sector %d", mftSector(sector)), nil

	case isFAT32(sector):
		rootSector := fat32RootSector(sector)
		return fmt.Sprintf("FAT32 root directory → sector %d", rootSector), nil

	case isFAT16(sector):
		return "FAT16 root directory → conventional fixed-offset sector", nil

	default:
		return "", ErrUnknownFilesystem
	}
}

// fat32RootSector computes the root directory's starting sector
// directly off the raw BPB bytes, independent of
// internal/fat32.ParseBootSector, since the probe is meant to work even
// when the rest of the BPB is too malformed for a full Geometry parse.
func fat32RootSector(sector []byte) uint64 {
	reservedSectors := uint64(binary.LittleEndian.Uint16(sector[14:16]))
	fatCount := uint64(sector[16])
	sectorsPerFAT := uint64(binary.LittleEndian.Uint32(sector[36:40]))
	sectorsPerCluster := uint64(sector[13])
	rootCluster := uint64(binary.LittleEndian.Uint32(sector[44:48]))

	return reservedSectors + fatCount*sectorsPerFAT + (rootCluster-2)*sectorsPerCluster
}
