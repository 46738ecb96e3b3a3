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
	"errors"
	"fmt"
	"io"
	"os"
)

// DefaultSectorSize is used when a device's sector size cannot be
// determined from the OS.
const DefaultSectorSize = 512

// DefaultClusterSize is the device-addressed cluster read default used
// when no FAT32 geometry has been parsed yet: a raw-viewer convenience,
// not derived from any real volume layout.
const DefaultClusterSize = 4096

// Handle is an open positioned-read handle over a LogicalVolume,
// PhysicalDrive, or ImageFile path.
type Handle struct {
	path       Path
	file       *os.File
	sectorSize int64
	size       int64
	isDevice   bool
}

// Open dispatches on path.Kind. LogicalVolume and PhysicalDrive attempt
// a raw-device open first; ImageFile opens a read-only file handle
// directly.
func Open(path Path) (*Handle, error) {
	switch path.Kind {
	case LogicalVolume:
		return openLogicalVolume(path)
	case PhysicalDrive:
		return openPhysicalDrive(path)
	case ImageFile:
		return openImageFile(path)
	default:
		return nil, ErrPathUnsupported
	}
}

func openImageFile(path Path) (*Handle, error) {
	f, err := os.Open(path.File)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}
	return &Handle{path: path, file: f, sectorSize: DefaultSectorSize, size: info.Size()}, nil
}

// openLogicalVolume attempts a raw-device read first and, on failure,
// falls back to a standard file-handle read of the same path. Either
// success returns immediately.
func openLogicalVolume(path Path) (*Handle, error) {
	native := nativeVolumePath(path.Drive)

	h, err := openRawDevice(path, native)
	if err == nil {
		return h, nil
	}

	f, ferr := os.Open(native)
	if ferr != nil {
		return nil, fmt.Errorf("%w: raw open: %v; file open: %v", ErrOpenFailed, err, ferr)
	}
	sectorSize, size := probeSize(f)
	return &Handle{path: path, file: f, sectorSize: sectorSize, size: size, isDevice: true}, nil
}

func openPhysicalDrive(path Path) (*Handle, error) {
	native := nativePhysicalDrivePath(path.Index)
	h, err := openRawDevice(path, native)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}
	return h, nil
}

func openRawDevice(path Path, native string) (*Handle, error) {
	f, err := os.OpenFile(native, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	sectorSize, size := probeSize(f)
	return &Handle{path: path, file: f, sectorSize: sectorSize, size: size, isDevice: true}, nil
}

// Close releases the underlying OS handle.
func (h *Handle) Close() error {
	if h.file == nil {
		return nil
	}
	return h.file.Close()
}

// Size returns the total size of the device or image, in bytes.
func (h *Handle) Size() int64 { return h.size }

// SectorSize returns the handle's physical or assumed sector size.
func (h *Handle) SectorSize() int64 { return h.sectorSize }

// ReadAt satisfies fat32.sectorReader, letting Handle stand in directly
// as the geometry layer's device-addressed reader.
func (h *Handle) ReadAt(p []byte, off int64) (int, error) {
	n, err := h.file.ReadAt(p, off)
	if n == 0 && err != nil {
		return n, fmt.Errorf("%w: %v", ErrIOError, err)
	}
	return n, err
}

// ReadSector reads a single sector at sectorNo.
func (h *Handle) ReadSector(sectorNo uint64, sectorSize uint32) ([]byte, error) {
	if sectorSize == 0 {
		sectorSize = uint32(h.sectorSize)
	}
	return h.readAtExact(int64(sectorNo)*int64(sectorSize), int(sectorSize))
}

// ReadSectors reads count consecutive sectors starting at start.
func (h *Handle) ReadSectors(start uint64, count uint32, sectorSize uint32) ([]byte, error) {
	if sectorSize == 0 {
		sectorSize = uint32(h.sectorSize)
	}
	return h.readAtExact(int64(start)*int64(sectorSize), int(count)*int(sectorSize))
}

// ReadCluster is a device-addressed read that does not consult any
// FAT32 geometry. The filesystem-aware equivalent lives on
// fat32.Geometry.ReadClusterFS.
func (h *Handle) ReadCluster(clusterNo uint64, clusterSize uint32) ([]byte, error) {
	if clusterSize == 0 {
		clusterSize = DefaultClusterSize
	}
	return h.readAtExact(int64(clusterNo)*int64(clusterSize), int(clusterSize))
}

func (h *Handle) readAtExact(off int64, n int) ([]byte, error) {
	buf := make([]byte, n)
	read, err := h.file.ReadAt(buf, off)
	if read == 0 {
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %v", ErrIOError, err)
		}
		return nil, ErrEmptyRead
	}
	return buf[:read], nil
}
