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

// Package recovery reassembles a deleted FAT32 file from its first
// cluster forward, stopping at the first sign of fragmentation, then
// truncates the result at its trailer signature.
package recovery

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/noxer/bytewriter"

	"github.com/sscafiti/fatdigler/internal/blockdev"
	"github.com/sscafiti/fatdigler/internal/catalog"
	"github.com/sscafiti/fatdigler/internal/fat32"
	"github.com/sscafiti/fatdigler/internal/signature"
)

// ErrNotDeleted and ErrInvalidCluster guard recover's preconditions.
var (
	ErrNotDeleted     = errors.New("recovery: record is not marked deleted")
	ErrInvalidCluster = errors.New("recovery: record has no usable first cluster")
)

// Report is recover's result: whether reconstruction stopped early, how
// many bytes were written, and against how many were needed.
type Report struct {
	OutputPath    string
	DetectedType  string
	Written       uint64
	Needed        uint64
	FullRecovery  bool
	StoppedReason string
}

// Ratio returns written / needed, the fraction of the original file
// size actually recovered.
func (r Report) Ratio() float64 {
	if r.Needed == 0 {
		return 1
	}
	return float64(r.Written) / float64(r.Needed)
}

// device is the minimal positioned-read surface the recovery loop needs,
// satisfied directly by *blockdev.Handle, or by a *blockdev.Offset view
// into one partition of a larger device.
type device interface {
	ReadAt(p []byte, off int64) (int, error)
}

// Recover reopens the device and re-parses the boot sector itself rather
// than trusting scanner.Result state from an earlier scan, then
// reassembles rec's data into outputPath.
func Recover(devPath blockdev.Path, rec catalog.Record, outputPath string) (Report, error) {
	return RecoverInPartition(devPath, 0, rec, outputPath)
}

// RecoverInPartition is Recover against one partition of a larger
// device, at partitionOffset bytes from the start of devPath. Recover is
// the partitionOffset == 0 case of this.
func RecoverInPartition(devPath blockdev.Path, partitionOffset uint64, rec catalog.Record, outputPath string) (Report, error) {
	if !rec.Deleted {
		return Report{}, ErrNotDeleted
	}
	if rec.FirstCluster < 2 {
		return Report{}, ErrInvalidCluster
	}

	handle, err := blockdev.Open(devPath)
	if err != nil {
		return Report{}, fmt.Errorf("recovery: reopen block source: %w", err)
	}
	defer handle.Close()

	var dev device = handle
	if partitionOffset != 0 {
		dev = blockdev.NewOffset(handle, int64(partitionOffset))
	}

	geo, err := fat32.ParseBootSector(dev)
	if err != nil {
		geo = fat32.DefaultGeometry()
	}

	return recoverWithGeometry(dev, geo, rec, outputPath)
}

func recoverWithGeometry(dev device, geo fat32.Geometry, rec catalog.Record, outputPath string) (Report, error) {
	bpc := geo.BytesPerCluster()
	need := rec.Size

	first, err := geo.ReadClusterFS(dev, rec.FirstCluster)
	if err != nil {
		return Report{}, fmt.Errorf("recovery: read first cluster: %w", err)
	}

	probeLen := len(first)
	if probeLen > 50 {
		probeLen = 50
	}
	detectedType := signature.Detect(first[:probeLen])
	outputPath = withDetectedExtension(outputPath, detectedType)

	buf := make([]byte, need)
	w := bytewriter.New(buf)

	if need <= bpc {
		n, _ := w.Write(first[:need])
		return finish(outputPath, buf[:n], detectedType, uint64(n), need, "")
	}

	written := uint64(bpc)
	if _, err := w.Write(first); err != nil {
		return Report{}, fmt.Errorf("recovery: write first cluster: %w", err)
	}

	current := rec.FirstCluster
	count := uint64(1)
	required := uint64(math.Ceil(float64(need) / float64(bpc)))

	stopReason := ""
	for written < need && count < required {
		next := current + 1
		if uint64(next) >= geo.ClusterCount+2 {
			stopReason = "end of volume"
			break
		}

		entry, err := geo.FATEntry(dev, next)
		if err != nil {
			stopReason = "FAT read error"
			break
		}
		if entry != 0 {
			stopReason = "next cluster already allocated"
			break
		}

		cluster, err := geo.ReadClusterFS(dev, next)
		if err != nil {
			stopReason = "cluster read error"
			break
		}

		take := bpc
		if need-written < take {
			take = need - written
		}

		// A trailer occurrence ends the stream legitimately even though its
		// own marker (e.g. JPEG's EOI, FF D9) would otherwise trip the
		// generic mid-cluster marker rule below; check it first.
		reachedTrailer := detectedType != "" && hasTrailerSignature(detectedType, cluster[:take])

		if !reachedTrailer && isJPEGType(detectedType) && !jpegClusterValid(cluster[:take]) {
			stopReason = "JPEG validity check failed"
			break
		}

		if _, err := w.Write(cluster[:take]); err != nil {
			stopReason = "write error"
			break
		}

		written += take
		current = next
		count++

		if reachedTrailer {
			stopReason = "trailer signature reached"
			break
		}
	}

	return finish(outputPath, buf[:written], detectedType, written, need, stopReason)
}

func finish(outputPath string, data []byte, detectedType string, written, need uint64, stopReason string) (Report, error) {
	truncated := TruncateAtEOF(data, detectedType)

	if err := os.WriteFile(outputPath, truncated, 0644); err != nil {
		return Report{}, fmt.Errorf("recovery: write output: %w", err)
	}

	report := Report{
		OutputPath:    outputPath,
		DetectedType:  detectedType,
		Written:       written,
		Needed:        need,
		StoppedReason: stopReason,
	}
	report.FullRecovery = report.Ratio() >= 0.99
	return report, nil
}

func withDetectedExtension(outputPath, detectedType string) string {
	if detectedType == "" {
		return outputPath
	}
	if filepath.Ext(outputPath) != "" {
		return outputPath
	}
	return outputPath + "." + detectedType
}

func isJPEGType(ext string) bool {
	return strings.EqualFold(ext, "jpg") || strings.EqualFold(ext, "jpeg")
}

func hasTrailerSignature(ext string, cluster []byte) bool {
	return signature.HasTrailer(ext, cluster)
}
