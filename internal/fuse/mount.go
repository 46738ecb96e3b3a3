//go:build !linux
// +build !linux

package fuse

import (
	"fmt"
	"io"

	"github.com/sscafiti/fatdigler/internal/catalog"
	"github.com/sscafiti/fatdigler/internal/fat32"
)

func Mount(mountpoint string, r io.ReaderAt, geo fat32.Geometry, records []catalog.Record) error {
	return fmt.Errorf("FUSE mount is only supported on Linux")
}
