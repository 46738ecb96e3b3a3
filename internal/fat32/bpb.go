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
	"fmt"

	"github.com/go-restruct/restruct"
)

const (
	BootSectorSize  = 512
	bootSectorMagic = 0xAA55
	fat32LabelOff   = 82
	fat32LabelLen   = 8
)

// bpb mirrors the FAT32 BIOS Parameter Block, offsets 0..90. The trailing
// boot code, FSInfo backpointer padding and the 0xAA55 marker live outside
// this struct and are read separately; restruct only needs to walk the
// fields we actually consume.
type bpb struct {
	Jump              [3]byte
	OEMName           [8]byte
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFATs           uint8
	RootEntries       uint16
	TotalSectors16    uint16
	Media             uint8
	SectorsPerFAT16   uint16
	SectorsPerTrack   uint16
	NumHeads          uint16
	HiddenSectors     uint32
	TotalSectors32    uint32
	SectorsPerFAT32   uint32
	ExtFlags          uint16
	FSVersion         uint16
	RootCluster       uint32
	FSInfoSector      uint16
	BackupBootSector  uint16
	Reserved          [12]byte
	DriveNumber       uint8
	Reserved1         uint8
	BootSignature     uint8
	VolumeID          uint32
	VolumeLabel       [11]byte
	FSTypeLabel       [8]byte
}

// decodeBPB unpacks the first 90 bytes of a boot sector and validates the
// 0xAA55 marker at offset 510, independently of whether the BPB itself
// looks like FAT32, that classification is Geometry's job.
func decodeBPB(sector []byte) (*bpb, error) {
	if len(sector) != BootSectorSize {
		return nil, fmt.Errorf("fat32: boot sector must be %d bytes, got %d", BootSectorSize, len(sector))
	}

	var b bpb
	if err := restruct.Unpack(sector[:90], binary.LittleEndian, &b); err != nil {
		return nil, fmt.Errorf("fat32: decode BPB: %w", err)
	}

	if marker := binary.LittleEndian.Uint16(sector[510:512]); marker != bootSectorMagic {
		return nil, fmt.Errorf("fat32: bad boot sector marker 0x%04X", marker)
	}
	return &b, nil
}

// looksLikeFAT32 accepts a BPB if the 8-byte label at offset 82 equals
// "FAT32   ", or if both root_cluster >= 2 and reserved_sectors >= 32
// hold.
func looksLikeFAT32(sector []byte, b *bpb) bool {
	label := sector[fat32LabelOff : fat32LabelOff+fat32LabelLen]
	if string(label) == "FAT32   " {
		return true
	}
	return b.RootCluster >= 2 && b.ReservedSectors >= 32
}
