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
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sscafiti/fatdigler/internal/blockdev"
	"github.com/sscafiti/fatdigler/internal/logger"
	"github.com/sscafiti/fatdigler/internal/recovery"
	"github.com/sscafiti/fatdigler/pkg/pbar"
	osutils "github.com/sscafiti/fatdigler/pkg/util/os"
)

func DefineRecoverCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recover <device> <report>",
		Short: "Reassemble deleted files listed in a scan report",
		Long: `The 'recover' command re-opens the same device a prior 'scan' ran against and, for every
deleted record in the given report (DFXML by default, or CSV when the path ends in .csv), walks
its cluster chain forward from the first cluster, stopping at the first sign of fragmentation or
a detected trailer signature. Recovered files are written to the output directory under their
catalogued name.`,
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE:         RunRecover,
	}
	cmd.Flags().StringP("output-dir", "d", "", "directory recovered files are written to")
	return cmd
}

func RunRecover(cmd *cobra.Command, args []string) error {
	path, err := blockdev.ParsePath(args[0])
	if err != nil {
		return err
	}

	dev, _, geo, partition, err := openVolume(path)
	if err != nil {
		return err
	}
	dev.Close()

	records, err := loadReport(args[1], geo)
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}

	outDir, _ := cmd.Flags().GetString("output-dir")
	if outDir == "" {
		base := filepath.Base(args[1])
		outDir = base[:len(base)-len(filepath.Ext(base))] + "-recovered"
	}
	if _, err := osutils.EnsureDir(outDir, true); err != nil {
		return err
	}

	log := logger.New(os.Stdout, logger.InfoLevel)

	var totalBytes int64
	for _, rec := range records {
		if rec.Deleted {
			totalBytes += int64(rec.Size)
		}
	}
	bar := pbar.NewProgressBarState(totalBytes)

	for _, rec := range records {
		if !rec.Deleted {
			continue
		}

		outPath := filepath.Join(outDir, sanitizeName(rec.Name()))
		report, err := recovery.RecoverInPartition(path, partition.Offset, rec, outPath)
		if err != nil {
			log.Errorf("recover %s: %s", rec.AbsolutePath, err)
			continue
		}

		bar.ProcessedBytes += int64(report.Written)
		if report.FullRecovery {
			bar.FilesFound++
		}
		if totalBytes > 0 {
			bar.Render(false)
		}

		log.Infof("recovered %s -> %s (%d/%d bytes, %s)", rec.AbsolutePath, report.OutputPath, report.Written, report.Needed, recoveryOutcome(report))
	}
	if totalBytes > 0 {
		bar.Render(true)
		bar.Finish()
	}
	return nil
}

func recoveryOutcome(r recovery.Report) string {
	if r.FullRecovery {
		return "full recovery"
	}
	if r.StoppedReason == "" {
		return "partial recovery"
	}
	return "partial recovery: " + r.StoppedReason
}

// sanitizeName strips path separators a reconstructed long/short name
// could carry from a corrupted directory entry, since the recovered
// file always lands directly under outDir.
func sanitizeName(name string) string {
	return filepath.Base(filepath.Clean("/" + name))
}
