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

// Package scanner opens a block source, parses its geometry, walks its
// directory tree, and annotates deleted entries with a signature-detected
// type.
package scanner

import (
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/hashicorp/go-multierror"

	"github.com/sscafiti/fatdigler/internal/blockdev"
	"github.com/sscafiti/fatdigler/internal/catalog"
	"github.com/sscafiti/fatdigler/internal/fat32"
	"github.com/sscafiti/fatdigler/internal/signature"
)

// probeCeiling bounds the speculative directory-head probe to clusters
// from 2 up to, but not including, min(100, cluster_count).
const probeCeiling = 100

// Options configures a scan. Log is optional; a nil Log discards
// diagnostics.
type Options struct {
	Log *slog.Logger
}

// Result is scan_deleted's return value plus the geometry it resolved,
// which the "scan" subcommand uses to express record offsets in its
// report.
type Result struct {
	Geometry  Geometry
	Records   []catalog.Record
	Partition blockdev.Partition
}

// device is the minimal positioned-read surface the scan needs,
// satisfied by *blockdev.Handle directly, or by a *blockdev.Offset view
// into one partition of it.
type device interface {
	ReadAt(p []byte, off int64) (int, error)
}

// Geometry aliases fat32.Geometry so callers of this package don't need
// a second import for the common case of threading it through.
type Geometry = fat32.Geometry

// ScanDeleted never returns a hard error for a recoverable condition (a
// bad boot sector, an empty directory): those degrade to documented
// fallbacks. The returned error, when non-nil, is a *multierror.Error
// aggregating every non-fatal problem encountered along the way, for the
// caller to log or display.
func ScanDeleted(path blockdev.Path) (Result, error) {
	return ScanDeletedWithOptions(path, Options{})
}

func ScanDeletedWithOptions(path blockdev.Path, opts Options) (Result, error) {
	log := opts.Log
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var errs *multierror.Error

	dev, err := blockdev.Open(path)
	if err != nil {
		// Open failure degrades to an empty catalog, not a hard error.
		log.Warn("open failed, returning empty catalog", "path", path.String(), "err", err)
		return Result{}, multierror.Append(errs, fmt.Errorf("open %s: %w", path, err)).ErrorOrNil()
	}
	defer dev.Close()

	partition := wholeDiskPartition(dev)
	if parts, err := blockdev.DiscoverPartitions(path); err != nil {
		log.Debug("partition discovery failed, scanning whole device", "err", err)
	} else if len(parts) > 0 {
		partition = parts[0]
	}

	var src device = dev
	if partition.Offset != 0 {
		src = blockdev.NewOffset(dev, int64(partition.Offset))
	}

	geo, err := fat32.ParseBootSector(src)
	if err != nil {
		log.Warn("boot sector did not parse, using fallback geometry", "err", err)
		errs = multierror.Append(errs, fmt.Errorf("parse boot sector: %w", err))
		geo = fat32.DefaultGeometry()
	}

	walker := catalog.NewWalker(geo, src)

	records, err := walker.WalkDirectory(geo.RootCluster, "")
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("walk root directory: %w", err))
	}

	if len(records) == 0 {
		log.Info("root directory produced no entries, probing speculative cluster heads")
		records = probeSpeculativeHeads(catalog.NewWalker(geo, src), geo)
	}

	deleted := filterDeleted(records)
	detectTypes(src, geo, deleted, log)

	sort.Slice(deleted, func(i, j int) bool { return deleted[i].AbsolutePath < deleted[j].AbsolutePath })

	log.Info("scan complete", "total_entries", len(records), "deleted_entries", len(deleted))

	return Result{Geometry: geo, Records: deleted, Partition: partition}, errs.ErrorOrNil()
}

// wholeDiskPartition is the degenerate single-partition fallback used
// when DiscoverPartitions fails or finds no FAT partition.
func wholeDiskPartition(dev *blockdev.Handle) blockdev.Partition {
	return blockdev.Partition{Type: blockdev.PartitionFAT32, Offset: 0, Size: uint64(dev.Size())}
}

// probeSpeculativeHeads treats every cluster from 2 up to, but not
// including, min(100, cluster_count) as a candidate directory head and keeps whatever entries it finds,
// under synthetic /unknown_N paths. It takes its own Walker so its
// visited-cluster bitmap starts clean, independent of whatever the root
// directory walk already marked.
func probeSpeculativeHeads(walker *catalog.Walker, geo Geometry) []catalog.Record {
	ceiling := uint64(probeCeiling)
	if geo.ClusterCount < ceiling {
		ceiling = geo.ClusterCount
	}

	var out []catalog.Record
	for c := uint32(2); uint64(c) < ceiling; c++ {
		parent := fmt.Sprintf("/unknown_%d", c)
		found, err := walker.WalkDirectory(c, parent)
		if err != nil {
			continue
		}
		out = append(out, found...)
	}
	return out
}

func filterDeleted(records []catalog.Record) []catalog.Record {
	out := make([]catalog.Record, 0, len(records))
	for _, r := range records {
		if r.Deleted {
			out = append(out, r)
		}
	}
	return out
}

// detectTypes reads the first cluster of each deleted record with a
// plausible one and runs signature detection against it.
func detectTypes(dev device, geo Geometry, deleted []catalog.Record, log *slog.Logger) {
	for i := range deleted {
		rec := &deleted[i]
		if rec.FirstCluster < 2 {
			continue
		}

		data, err := geo.ReadClusterFS(dev, rec.FirstCluster)
		if err != nil {
			log.Debug("could not read first cluster for signature probe", "path", rec.AbsolutePath, "err", err)
			continue
		}

		if ext := signature.Detect(data); ext != "" {
			rec.DetectedType = ext
		}
	}
}
