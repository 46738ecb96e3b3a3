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

// Package blockdev exposes a uniform sector/cluster read surface over
// three block-device transports: a logical volume, a physical drive, or
// an image file.
package blockdev

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind tags which of the three BlockDevicePath variants a Path holds.
type Kind int

const (
	LogicalVolume Kind = iota
	PhysicalDrive
	ImageFile
)

func (k Kind) String() string {
	switch k {
	case LogicalVolume:
		return "LogicalVolume"
	case PhysicalDrive:
		return "PhysicalDrive"
	case ImageFile:
		return "ImageFile"
	default:
		return "Unknown"
	}
}

// Path is a tagged identifier for one of the three block-device kinds.
type Path struct {
	Kind  Kind
	Drive string // LogicalVolume: the drive letter, e.g. "L"
	Index int    // PhysicalDrive: 0..N
	File  string // ImageFile: filesystem path
}

var imageExts = []string{".vhd", ".img", ".bin"}

// ParsePath classifies a raw path string into one of the three
// BlockDevicePath variants, failing with ErrPathUnsupported when none
// match.
func ParsePath(raw string) (Path, error) {
	if len(raw) == 2 && raw[1] == ':' {
		letter := raw[0]
		if letter >= 'A' && letter <= 'Z' {
			return Path{Kind: LogicalVolume, Drive: string(letter)}, nil
		}
		if letter >= 'a' && letter <= 'z' {
			return Path{Kind: LogicalVolume, Drive: strings.ToUpper(string(letter))}, nil
		}
	}

	if idx, err := strconv.Atoi(raw); err == nil && idx >= 0 {
		return Path{Kind: PhysicalDrive, Index: idx}, nil
	}

	lower := strings.ToLower(raw)
	for _, ext := range imageExts {
		if strings.HasSuffix(lower, ext) {
			return Path{Kind: ImageFile, File: raw}, nil
		}
	}

	return Path{}, fmt.Errorf("%w: %q", ErrPathUnsupported, raw)
}

func (p Path) String() string {
	switch p.Kind {
	case LogicalVolume:
		return p.Drive + ":"
	case PhysicalDrive:
		return strconv.Itoa(p.Index)
	case ImageFile:
		return p.File
	default:
		return "<invalid>"
	}
}
