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

package catalog

import (
	"path"

	"github.com/sscafiti/fatdigler/internal/fat32"
	"github.com/sscafiti/fatdigler/pkg/dfxml"
)

// ToFileObjects renders records for a scan's DFXML report: each deleted
// record becomes one <fileobject>, its first cluster addressed as an
// absolute byte offset into the partition so recover and mount can
// resolve it back into a cluster number without replaying the original
// directory walk.
func ToFileObjects(geo fat32.Geometry, records []Record) []dfxml.FileObject {
	out := make([]dfxml.FileObject, len(records))
	for i, r := range records {
		var offset uint64
		if r.FirstCluster >= 2 {
			offset = geo.ClusterToLBA(r.FirstCluster) * uint64(geo.BytesPerSector)
		}
		out[i] = dfxml.FileObject{
			Filename: r.AbsolutePath,
			FileSize: r.Size,
			ByteRuns: dfxml.ByteRuns{Runs: []dfxml.ByteRun{{
				ImgOffset: offset,
				Length:    r.Size,
			}}},
		}
	}
	return out
}

// FromFileObjects is ToFileObjects's inverse: it reconstructs the Record
// fields recover and mount need from a DFXML report. Every entry in a
// scan's report is, by construction, a deleted entry, so Deleted is set
// unconditionally; FirstCluster is set only when the byte-run offset maps
// back to a data-region cluster, and stays 0 otherwise.
func FromFileObjects(geo fat32.Geometry, objs []dfxml.FileObject) []Record {
	out := make([]Record, 0, len(objs))
	for _, o := range objs {
		if len(o.ByteRuns.Runs) == 0 {
			continue
		}
		run := o.ByteRuns.Runs[0]

		rec := Record{
			LongName:     path.Base(o.Filename),
			AbsolutePath: o.Filename,
			Deleted:      true,
			Size:         o.FileSize,
		}
		if cluster, ok := offsetToCluster(geo, run.ImgOffset); ok {
			rec.FirstCluster = cluster
		}
		out = append(out, rec)
	}
	return out
}

func offsetToCluster(geo fat32.Geometry, byteOffset uint64) (uint32, bool) {
	if geo.BytesPerSector == 0 || geo.SectorsPerCluster == 0 {
		return 0, false
	}
	sector := byteOffset / uint64(geo.BytesPerSector)
	if sector < geo.ClusterBeginLBA {
		return 0, false
	}
	return uint32((sector-geo.ClusterBeginLBA)/uint64(geo.SectorsPerCluster)) + 2, true
}
