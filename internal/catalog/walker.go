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

	"github.com/boljen/go-bitmap"

	"github.com/sscafiti/fatdigler/internal/fat32"
)

// clusterReader is the subset of fat32.Geometry's dependency a Walker
// needs: whole-device positioned reads.
type clusterReader interface {
	ReadAt(p []byte, off int64) (int, error)
}

// work is one pending directory to expand; the walker processes these
// from an explicit stack rather than recursing, so a deep or cyclic
// directory tree can't exhaust the goroutine stack.
type work struct {
	cluster    uint32
	parentPath string
}

// Walker reconstructs the directory tree of a FAT32 volume into a flat
// list of Record.
type Walker struct {
	geo fat32.Geometry
	dev clusterReader

	// visited guards against a corrupted or adversarial FAT steering the
	// walk back into a directory already expanded.
	visited    bitmap.Bitmap
	visitedLen int
}

// NewWalker builds a Walker over an already-parsed Geometry and a device
// handle able to satisfy filesystem-addressed cluster reads.
func NewWalker(geo fat32.Geometry, dev clusterReader) *Walker {
	size := int(geo.ClusterCount) + 2
	if size < 2 {
		size = 2
	}
	return &Walker{geo: geo, dev: dev, visited: bitmap.New(size), visitedLen: size}
}

// WalkDirectory expands startCluster and every subdirectory reachable
// from it, returning every entry (deleted or not) it sees. Callers
// filter for the deleted flag downstream.
func (w *Walker) WalkDirectory(startCluster uint32, parentPath string) ([]Record, error) {
	var out []Record
	stack := []work{{cluster: startCluster, parentPath: parentPath}}

	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if w.markVisited(item.cluster) {
			continue
		}

		records, subdirs, err := w.expandDirectory(item.cluster, item.parentPath)
		if err != nil {
			continue // non-fatal: a corrupt directory cluster doesn't abort the walk
		}
		out = append(out, records...)
		stack = append(stack, subdirs...)
	}
	return out, nil
}

// markVisited reports whether cluster was already visited, marking it
// visited as a side effect. Clusters outside the bitmap's range (e.g. the
// synthetic root at cluster 2 of an undersized image) are never treated
// as visited so the scan can still proceed.
func (w *Walker) markVisited(cluster uint32) bool {
	idx := int(cluster)
	if idx < 0 || idx >= w.visitedLen {
		return false
	}
	if w.visited.Get(idx) {
		return true
	}
	w.visited.Set(idx, true)
	return false
}

// expandDirectory decodes one directory's cluster chain into Records and
// the subdirectory work items it discovers.
func (w *Walker) expandDirectory(cluster uint32, parentPath string) ([]Record, []work, error) {
	chain, err := w.geo.Chain(w.dev, cluster)
	if err != nil {
		return nil, nil, err
	}

	var (
		records []Record
		subdirs []work
		pending []LFNFragment
		delLFN  bool
	)

	for _, c := range chain {
		buf, err := w.geo.ReadClusterFS(w.dev, c)
		if err != nil {
			continue
		}

		for off := 0; off+32 <= len(buf); off += 32 {
			slot := buf[off : off+32]
			entry := DecodeDirEntry(slot)

			switch entry.Kind {
			case EntryEmpty:
				continue

			case EntryLFNFragment:
				pending = append(pending, entry.LFN)
				if entry.LFN.Deleted {
					delLFN = true
				}
				continue

			case EntryShort:
				rec, isDir, firstCluster, ok := w.buildRecord(entry.Short, pending, delLFN, parentPath)
				pending, delLFN = nil, false
				if !ok {
					continue
				}
				records = append(records, rec)
				if isDir && !rec.Deleted && firstCluster >= 2 {
					subdirs = append(subdirs, work{cluster: firstCluster, parentPath: rec.AbsolutePath})
				}
			}
		}
	}
	return records, subdirs, nil
}

// buildRecord assembles one Record from a ShortEntry and any LFN
// fragments pending before it.
func (w *Walker) buildRecord(se ShortEntry, pending []LFNFragment, delLFN bool, parentPath string) (Record, bool, uint32, bool) {
	longName := ""
	if len(pending) > 0 {
		longName = reassembleLFN(pending)
	}

	shortName := shortName8Dot3(se.NameRaw, se.Deleted)

	name := longName
	if name == "" {
		name = shortName
	}
	if IsDotEntry(name) {
		return Record{}, false, 0, false
	}

	deleted := delLFN || se.Deleted

	return Record{
		LongName:     longName,
		ShortName:    shortName,
		ParentPath:   parentPath,
		AbsolutePath: path.Join("/", parentPath, name),
		IsDir:        se.IsDir(),
		IsSystem:     se.IsSystem(),
		IsHidden:     se.IsHidden(),
		Deleted:      deleted,
		FirstCluster: se.FirstCluster,
		Size:         uint64(se.Size),
		CreatedAt:    fat32.DecodeDateTime(se.CreateDate, se.CreateTime),
	}, se.IsDir(), se.FirstCluster, true
}
