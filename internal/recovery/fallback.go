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

package recovery

import (
	"bytes"

	"github.com/sscafiti/fatdigler/internal/fat32"
)

// fallbackRadius is the ±20 cluster window FindNextByContent searches
// before widening.
const fallbackRadius = 20

// pngAnchors are the chunk tags that make a cluster a plausible PNG
// fragment even without a trailer signature.
var pngAnchors = [][]byte{
	[]byte("IDAT"), []byte("IEND"), []byte("PLTE"), []byte("tRNS"), []byte("gAMA"), []byte("pHYs"),
}

// hasJPEGRestartAnchor reports a JPEG restart marker pair, used as a
// format-specific anchor by the same heuristic.
func hasJPEGRestartAnchor(data []byte) bool {
	for i := 0; i < len(data)-1; i++ {
		if data[i] == 0xFF && data[i+1] >= restartMarkerLow && data[i+1] <= restartMarkerHigh {
			return true
		}
	}
	return false
}

func hasPNGAnchor(data []byte) bool {
	for _, tag := range pngAnchors {
		if bytes.Contains(data, tag) {
			return true
		}
	}
	return false
}

// clusterDevice is the minimal device surface FindNextByContent needs.
type clusterDevice interface {
	ReadAt(p []byte, off int64) (int, error)
}

// FindNextByContent is an optional, secondary fragmentation fallback:
// when the conservative-contiguity loop halts, it scans nearby free
// clusters (±fallbackRadius of current, then unboundedly outward) for
// one that looks like a continuation of ext, by trailer signature, by a
// format-specific anchor, or simply by being unallocated and contiguous
// with processed. Nothing in the recovery path or the CLI calls it; a
// caller that wants it invokes it directly.
func FindNextByContent(dev clusterDevice, geo fat32.Geometry, current uint32, ext string, processed map[uint32]bool) (uint32, bool) {
	candidate, ok := searchRadius(dev, geo, current, ext, processed, fallbackRadius)
	if ok {
		return candidate, true
	}

	// Widen to the whole data region once the local window is exhausted.
	return searchRadius(dev, geo, current, ext, processed, int(geo.ClusterCount))
}

func searchRadius(dev clusterDevice, geo fat32.Geometry, current uint32, ext string, processed map[uint32]bool, radius int) (uint32, bool) {
	for d := 1; d <= radius; d++ {
		for _, candidate := range []int64{int64(current) + int64(d), int64(current) - int64(d)} {
			if candidate < 2 || uint64(candidate) >= geo.ClusterCount+2 {
				continue
			}
			cluster := uint32(candidate)
			if processed[cluster] {
				continue
			}

			entry, err := geo.FATEntry(dev, cluster)
			if err != nil || entry != 0 {
				continue
			}

			data, err := geo.ReadClusterFS(dev, cluster)
			if err != nil {
				continue
			}

			if looksLikeContinuation(data, ext) || processed[cluster-1] {
				return cluster, true
			}
		}
	}
	return 0, false
}

func looksLikeContinuation(data []byte, ext string) bool {
	if isJPEGType(ext) {
		return hasJPEGRestartAnchor(data) || hasTrailerSignature(ext, data)
	}
	if ext == "png" {
		return hasPNGAnchor(data) || hasTrailerSignature(ext, data)
	}
	return hasTrailerSignature(ext, data)
}
