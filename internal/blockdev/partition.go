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
	"fmt"
)

// PartitionType identifies an MBR partition table entry's type byte. Only
// the FAT family is named; DiscoverPartitions skips entries of any other
// type.
type PartitionType uint8

const (
	PartitionFAT12         PartitionType = 0x01
	PartitionFAT16         PartitionType = 0x06
	PartitionFAT16B        PartitionType = 0x0E
	PartitionFAT32         PartitionType = 0x0B
	PartitionFAT32X        PartitionType = 0x0C
	PartitionGPTProtective PartitionType = 0xEE
)

func (t PartitionType) IsFAT() bool {
	switch t {
	case PartitionFAT12, PartitionFAT16, PartitionFAT16B, PartitionFAT32, PartitionFAT32X:
		return true
	default:
		return false
	}
}

// Partition describes one slice of a device the FAT32 Geometry parser
// should be pointed at.
type Partition struct {
	Type PartitionType
	Num  int
	// Offset and Size are in bytes from the start of the device.
	Offset uint64
	Size   uint64
}

const (
	mbrSignatureOffset = 510
	mbrEntrySize       = 16
	mbrEntriesOffset   = 446
	mbrEntryCount      = 4
	defaultBlockSize   = 512
)

// DiscoverPartitions parses the MBR at sector 0 if one is present and
// picks its FAT-typed entries; otherwise it synthesizes a single
// partition spanning the entire device, so an unpartitioned raw FAT32
// image still scans.
func DiscoverPartitions(path Path) ([]Partition, error) {
	dev, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer dev.Close()

	sector, err := dev.ReadSector(0, mbrEntriesOffset+mbrEntryCount*mbrEntrySize+2)
	if err == nil && len(sector) >= mbrSignatureOffset+2 {
		if entries := parseMBREntries(sector); len(entries) > 0 {
			return entries, nil
		}
	}

	return []Partition{{
		Type:   PartitionFAT32,
		Num:    0,
		Offset: 0,
		Size:   uint64(dev.Size()),
	}}, nil
}

// parseMBREntries returns the FAT-typed partition entries found in an
// MBR sector, or nil if the sector doesn't carry the 0x55AA boot
// signature or has no FAT-typed entries (a protective GPT MBR, an
// unpartitioned image, or simply a non-MBR first sector).
func parseMBREntries(sector []byte) []Partition {
	if sector[mbrSignatureOffset] != 0x55 || sector[mbrSignatureOffset+1] != 0xAA {
		return nil
	}

	var out []Partition
	for i := 0; i < mbrEntryCount; i++ {
		off := mbrEntriesOffset + i*mbrEntrySize
		entry := sector[off : off+mbrEntrySize]

		partType := PartitionType(entry[4])
		if !partType.IsFAT() {
			continue
		}

		startLBA := binary.LittleEndian.Uint32(entry[8:12])
		totalSectors := binary.LittleEndian.Uint32(entry[12:16])
		if totalSectors == 0 {
			continue
		}

		out = append(out, Partition{
			Type:   partType,
			Num:    i,
			Offset: uint64(startLBA) * defaultBlockSize,
			Size:   uint64(totalSectors) * defaultBlockSize,
		})
	}
	return out
}

// String renders a partition the way a "probe"-style listing would.
func (p Partition) String() string {
	return fmt.Sprintf("partition %d: type 0x%02X, offset %d, size %d bytes", p.Num, p.Type, p.Offset, p.Size)
}

// Offset wraps a device handle (or any positioned-read source) behind a
// fixed byte offset, letting internal/fat32 and internal/catalog address
// one partition's geometry without knowing it sits inside a larger
// device.
type reader interface {
	ReadAt(p []byte, off int64) (int, error)
}

type Offset struct {
	dev  reader
	base int64
}

// NewOffset builds an Offset view starting at byteOffset into dev.
func NewOffset(dev reader, byteOffset int64) *Offset {
	return &Offset{dev: dev, base: byteOffset}
}

func (o *Offset) ReadAt(p []byte, off int64) (int, error) {
	return o.dev.ReadAt(p, o.base+off)
}
