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

import "time"

// Record is the flat, in-memory representation of a discovered
// directory entry. Records exist only for the duration of a scan; there
// is no persisted index.
type Record struct {
	LongName     string    `csv:"long_name"`
	ShortName    string    `csv:"short_name"`
	ParentPath   string    `csv:"parent_path"`
	AbsolutePath string    `csv:"absolute_path"`
	IsDir        bool      `csv:"is_dir"`
	IsSystem     bool      `csv:"is_system"`
	IsHidden     bool      `csv:"is_hidden"`
	Deleted      bool      `csv:"deleted"`
	FirstCluster uint32    `csv:"first_cluster"`
	Size         uint64    `csv:"size"`
	CreatedAt    time.Time `csv:"created_at"`
	DetectedType string    `csv:"detected_type"`
}

// Name returns the preferred display name: the reconstructed long name
// when present, the short name otherwise.
func (r Record) Name() string {
	if r.LongName != "" {
		return r.LongName
	}
	return r.ShortName
}
