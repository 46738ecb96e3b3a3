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

// Package catalog decodes FAT32 directory entries and walks a directory
// tree into a flat list of CatalogRecord.
package catalog

import "encoding/binary"

// EntryKind tags the variant a decoded 32-byte directory slot belongs to.
type EntryKind int

const (
	EntryEmpty EntryKind = iota
	EntryLFNFragment
	EntryShort
)

const (
	deletedMarker = 0xE5
	lfnAttr       = 0x0F

	attrReadOnly = 0x01
	attrHidden   = 0x02
	attrSystem   = 0x04
	attrVolume   = 0x08
	attrDir      = 0x10
	attrArchive  = 0x20
)

// LFNFragment is one long-file-name directory slot.
type LFNFragment struct {
	Order   byte
	Last    bool
	Deleted bool
	Raw     [32]byte
}

// ShortEntry is a decoded 8.3 directory slot.
type ShortEntry struct {
	NameRaw      [11]byte // 8.3, space-padded, byte 0 may be the deleted marker
	Attr         byte
	CreateDate   uint16
	CreateTime   uint16
	AccessDate   uint16
	ModifyDate   uint16
	ModifyTime   uint16
	Size         uint32
	FirstCluster uint32
	Deleted      bool
	Raw          [32]byte
}

func (s ShortEntry) IsDir() bool     { return s.Attr&attrDir != 0 }
func (s ShortEntry) IsHidden() bool  { return s.Attr&attrHidden != 0 }
func (s ShortEntry) IsSystem() bool  { return s.Attr&attrSystem != 0 }
func (s ShortEntry) IsVolume() bool  { return s.Attr&attrVolume != 0 }
func (s ShortEntry) IsReadOnly() bool { return s.Attr&attrReadOnly != 0 }

// DirEntry is the tagged union of a decoded directory slot.
type DirEntry struct {
	Kind  EntryKind
	LFN   LFNFragment
	Short ShortEntry
}

// DecodeDirEntry decodes one 32-byte directory slot.
func DecodeDirEntry(slot []byte) DirEntry {
	if slot[0] == 0x00 {
		return DirEntry{Kind: EntryEmpty}
	}

	if slot[11] == lfnAttr {
		var frag LFNFragment
		copy(frag.Raw[:], slot)
		frag.Deleted = slot[0] == deletedMarker
		frag.Order = slot[0] & 0x3F
		frag.Last = slot[0]&0x40 != 0
		return DirEntry{Kind: EntryLFNFragment, LFN: frag}
	}

	var se ShortEntry
	copy(se.Raw[:], slot)
	copy(se.NameRaw[:], slot[0:11])
	se.Deleted = slot[0] == deletedMarker
	se.Attr = slot[11]
	se.CreateTime = binary.LittleEndian.Uint16(slot[14:16])
	se.CreateDate = binary.LittleEndian.Uint16(slot[16:18])
	se.AccessDate = binary.LittleEndian.Uint16(slot[18:20])
	hi := binary.LittleEndian.Uint16(slot[20:22])
	se.ModifyTime = binary.LittleEndian.Uint16(slot[22:24])
	se.ModifyDate = binary.LittleEndian.Uint16(slot[24:26])
	lo := binary.LittleEndian.Uint16(slot[26:28])
	se.FirstCluster = uint32(hi)<<16 | uint32(lo)
	se.Size = binary.LittleEndian.Uint32(slot[28:32])
	return DirEntry{Kind: EntryShort, Short: se}
}

// IsDotEntry reports whether name is "." or "..".
func IsDotEntry(name string) bool {
	return name == "." || name == ".."
}
