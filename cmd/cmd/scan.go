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
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sscafiti/fatdigler/internal/blockdev"
	"github.com/sscafiti/fatdigler/internal/catalog"
	"github.com/sscafiti/fatdigler/internal/env"
	"github.com/sscafiti/fatdigler/internal/scanner"
	"github.com/sscafiti/fatdigler/pkg/dfxml"
	humanfmt "github.com/sscafiti/fatdigler/pkg/util/format"
)

func DefineScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <device>",
		Short: "Walk a FAT32 volume's directory tree and catalog its deleted entries",
		Long: `The 'scan' command opens a LogicalVolume, PhysicalDrive, or ImageFile path, parses its
FAT32 geometry, and walks the directory tree reconstructing deleted entries along the way.
Each deleted entry still carrying a plausible first cluster is probed against the signature
catalog so its likely file type can be reported alongside it. The report defaults to DFXML;
pass an --output path ending in .csv for the plain CatalogRecord CSV export instead.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunScan,
	}

	cmd.Flags().StringP("output", "o", "", "write the scan report to this path instead of printing a table")
	return cmd
}

func RunScan(cmd *cobra.Command, args []string) error {
	path, err := blockdev.ParsePath(args[0])
	if err != nil {
		return err
	}

	logLevel, _ := cmd.Flags().GetString("log-level")
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseSlogLevel(logLevel)}))

	result, err := scanner.ScanDeletedWithOptions(path, scanner.Options{Log: log})
	if err != nil {
		log.Warn("scan completed with warnings", "err", err)
	}

	outputPath, _ := cmd.Flags().GetString("output")
	if outputPath == "" {
		return printRecords(os.Stdout, result.Records)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(outputPath), ".csv") {
		return catalog.WriteCSV(f, result.Records)
	}
	return writeDFXMLReport(f, path.String(), result)
}

// writeDFXMLReport emits a DFXML document whose <source> describes the
// scanned path and whose <fileobject> elements are the scan's deleted
// records (internal/catalog.ToFileObjects).
func writeDFXMLReport(w io.Writer, imagePath string, result scanner.Result) error {
	enc := dfxml.NewDFXMLWriter(w)

	info, _ := os.Stat(imagePath)
	var imageSize int64
	if info != nil {
		imageSize = info.Size()
	}

	header := dfxml.DFXMLHeader{
		XmlOutput: dfxml.XmlOutputVersion,
		Metadata:  dfxml.DefaultMetadata,
		Creator: dfxml.Creator{
			Package:              env.AppName,
			Version:              env.Version,
			ExecutionEnvironment: dfxml.GetExecEnv(),
		},
		Source: dfxml.Source{
			ImageFilename: imagePath,
			SectorSize:    int(result.Geometry.BytesPerSector),
			ImageSize:     uint64(imageSize),
		},
	}
	if err := enc.WriteHeader(header); err != nil {
		return err
	}

	for _, obj := range catalog.ToFileObjects(result.Geometry, result.Records) {
		if err := enc.WriteFileObject(obj); err != nil {
			return err
		}
	}
	return enc.Close()
}

func printRecords(w io.Writer, records []catalog.Record) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tSIZE\tFIRST_CLUSTER\tDETECTED_TYPE")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.AbsolutePath, humanfmt.Bytes(r.Size), r.FirstCluster, r.DetectedType)
	}
	fmt.Fprintf(tw, "\n%d deleted entries found\n", len(records))
	return tw.Flush()
}

func parseSlogLevel(level string) slog.Level {
	switch level {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
