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
package blockdev

import (
	"bufio"
	"os/exec"
	"runtime"
	"strings"

	"github.com/dustin/go-humanize"
)

// CandidateInfo describes a disk-listing entry: a BlockDevicePath the
// caller may pass to Open, plus a human-readable size for display.
type CandidateInfo struct {
	Path Path
	Size string
}

// ListCandidates enumerates plausible BlockDevicePath targets on the
// host. On Linux it shells out to lsblk; elsewhere it returns an empty
// list for the caller to supplement with an explicit path. It never
// opens a handle, discovery only.
func ListCandidates() ([]CandidateInfo, error) {
	if runtime.GOOS != "linux" {
		return nil, nil
	}

	out, err := exec.Command("lsblk", "-b", "-n", "-o", "NAME,SIZE,TYPE").Output()
	if err != nil {
		return nil, nil
	}

	var candidates []CandidateInfo
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 || fields[2] != "disk" {
			continue
		}
		name := strings.TrimLeft(fields[0], "├─└│ ")
		candidates = append(candidates, CandidateInfo{
			Path: Path{Kind: PhysicalDrive, Index: len(candidates)},
			Size: humanize.Bytes(parseUint(fields[1])),
		})
		_ = name
	}
	return candidates, nil
}

func parseUint(s string) uint64 {
	var v uint64
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		v = v*10 + uint64(c-'0')
	}
	return v
}
