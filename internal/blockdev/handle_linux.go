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
//go:build linux

package blockdev

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	blkSSZGet    = 0x1268
	blkGetSize64 = 0x80081272
)

func nativeVolumePath(drive string) string {
	// On Linux there is no drive-letter namespace; callers pass a mount
	// point or a /dev/disk/by-label path already resolved by the caller.
	return drive
}

func nativePhysicalDrivePath(index int) string {
	return fmt.Sprintf("/dev/sd%c", 'a'+index)
}

// probeSize queries the kernel's block-device ioctls when the open file
// is backed by a block device, falling back to seek-to-end otherwise.
func probeSize(f *os.File) (sectorSize int64, size int64) {
	fd := int(f.Fd())

	if n, err := unix.IoctlGetInt(fd, blkSSZGet); err == nil {
		sectorSize = int64(n)
	} else {
		sectorSize = DefaultSectorSize
	}

	if sz, err := ioctlGetSize64(fd); err == nil {
		size = sz
		return sectorSize, size
	}

	if end, err := f.Seek(0, os.SEEK_END); err == nil {
		size = end
		f.Seek(0, os.SEEK_SET)
	}
	return sectorSize, size
}

func ioctlGetSize64(fd int) (int64, error) {
	var sz uint64
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(blkGetSize64), uintptr(unsafe.Pointer(&sz)))
	if errno != 0 {
		return 0, errno
	}
	return int64(sz), nil
}
