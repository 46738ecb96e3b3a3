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
package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sscafiti/fatdigler/internal/blockdev"
	"github.com/sscafiti/fatdigler/internal/catalog"
	"github.com/sscafiti/fatdigler/internal/fat32"
	"github.com/sscafiti/fatdigler/pkg/dfxml"
)

// resolvePartition discovers which slice of path the scanner/recovery
// engine should address: the first FAT-typed MBR partition, or the
// whole device when no partition table is present. It never keeps the
// device open.
func resolvePartition(path blockdev.Path) (blockdev.Partition, error) {
	parts, err := blockdev.DiscoverPartitions(path)
	if err != nil {
		return blockdev.Partition{}, fmt.Errorf("discover partitions: %w", err)
	}
	if len(parts) == 0 {
		return blockdev.Partition{}, fmt.Errorf("no partitions found on %s", path)
	}
	return parts[0], nil
}

// openVolume opens path, resolves its partition, and parses its FAT32
// geometry from a reader already addressed at that partition's start,
// the same resolution sequence scanner.ScanDeletedWithOptions performs,
// so recover and mount see the same byte offsets a prior scan did.
func openVolume(path blockdev.Path) (dev *blockdev.Handle, src *blockdev.Offset, geo fat32.Geometry, partition blockdev.Partition, err error) {
	dev, err = blockdev.Open(path)
	if err != nil {
		return nil, nil, fat32.Geometry{}, blockdev.Partition{}, fmt.Errorf("open %s: %w", path, err)
	}

	partition = blockdev.Partition{Type: blockdev.PartitionFAT32, Offset: 0, Size: uint64(dev.Size())}
	if p, perr := resolvePartition(path); perr == nil {
		partition = p
	}

	src = blockdev.NewOffset(dev, int64(partition.Offset))

	geo, err = fat32.ParseBootSector(src)
	if err != nil {
		geo = fat32.DefaultGeometry()
		err = nil
	}
	return dev, src, geo, partition, nil
}

// loadReport reads a scan report back into CatalogRecords. A ".csv"
// extension is read with internal/catalog's gocsv round trip directly
// (full fidelity, including FirstCluster); anything else is read as the
// DFXML report scan writes by default, resolving each <fileobject>'s
// byte offset back into a cluster number against geo.
func loadReport(path string, geo fat32.Geometry) ([]catalog.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return catalog.ReadCSV(f)
	}

	objs, err := dfxml.ReadFileObjects(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("read DFXML report: %w", err)
	}
	return catalog.FromFileObjects(geo, objs), nil
}
