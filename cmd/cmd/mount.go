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
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sscafiti/fatdigler/internal/blockdev"
	"github.com/sscafiti/fatdigler/internal/fuse"
)

func DefineMountCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mount <device> <report>",
		Short: "Mount a scan's deleted entries as a read-only FUSE filesystem",
		Long: `The 'mount' command re-opens the device a prior 'scan' ran against and exposes every
deleted record in the given report (DFXML by default, or CSV when the path ends in .csv) as a
flat, read-only directory. Each file is read from its first cluster forward straight off the
device; this is a quick-look preview, not a full defragmented recovery, use 'recover' for that.`,
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE:         RunMount,
	}
	cmd.Flags().StringP("mountpoint", "m", "", "directory to mount at; created if missing")
	return cmd
}

func RunMount(cmd *cobra.Command, args []string) error {
	path, err := blockdev.ParsePath(args[0])
	if err != nil {
		return err
	}

	dev, src, geo, _, err := openVolume(path)
	if err != nil {
		return err
	}
	defer dev.Close()

	records, err := loadReport(args[1], geo)
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}

	mountpoint, _ := cmd.Flags().GetString("mountpoint")
	if mountpoint == "" {
		mountpoint = defaultMountpoint(args[1])
	}

	return fuse.Mount(mountpoint, src, geo, records)
}

// defaultMountpoint derives a mountpoint name from a report file name by
// stripping its extension, falling back to a "_mnt" suffix when there
// wasn't one to strip.
func defaultMountpoint(reportFileName string) string {
	base := filepath.Base(reportFileName)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	if ext == "" {
		name += "_mnt"
	}
	return name
}
