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
//go:build windows

package blockdev

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

// nativeVolumePath rewrites a drive letter into Windows' raw-volume
// syntax, e.g. "C" -> `\\.\C:`.
func nativeVolumePath(drive string) string {
	return fmt.Sprintf(`\\.\%s:`, drive)
}

func nativePhysicalDrivePath(index int) string {
	return fmt.Sprintf(`\\.\PhysicalDrive%d`, index)
}

// diskGeometry mirrors DISK_GEOMETRY, the structure
// IOCTL_DISK_GET_DRIVE_GEOMETRY fills in.
type diskGeometry struct {
	Cylinders         int64
	MediaType         uint32
	TracksPerCylinder uint32
	SectorsPerTrack   uint32
	BytesPerSector    uint32
}

const ioctlDiskGetDriveGeometry = 0x70000

// probeSize queries IOCTL_DISK_GET_DRIVE_GEOMETRY for raw \\.\PhysicalDriveN
// and \\.\X: handles, since those rarely support Seek(SEEK_END) the way a
// regular file does; image files fall back to seek-to-end.
func probeSize(f *os.File) (sectorSize int64, size int64) {
	var geometry diskGeometry
	var bytesReturned uint32

	err := windows.DeviceIoControl(
		windows.Handle(f.Fd()),
		ioctlDiskGetDriveGeometry,
		nil, 0,
		(*byte)(unsafe.Pointer(&geometry)), uint32(unsafe.Sizeof(geometry)),
		&bytesReturned, nil,
	)
	if err == nil && geometry.BytesPerSector > 0 {
		total := geometry.Cylinders * int64(geometry.TracksPerCylinder) * int64(geometry.SectorsPerTrack) * int64(geometry.BytesPerSector)
		return int64(geometry.BytesPerSector), total
	}

	if end, serr := f.Seek(0, os.SEEK_END); serr == nil {
		f.Seek(0, os.SEEK_SET)
		return DefaultSectorSize, end
	}
	return DefaultSectorSize, 0
}
