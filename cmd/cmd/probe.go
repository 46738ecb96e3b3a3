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

	"github.com/spf13/cobra"

	"github.com/sscafiti/fatdigler/internal/blockdev"
	"github.com/sscafiti/fatdigler/internal/probe"
)

func DefineProbeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "probe <device>",
		Short: "Identify a volume's filesystem from its boot sector alone",
		Long: `The 'probe' command reads only sector 0 of the given device and reports what it looks
like: NTFS (reporting the $MFT's starting sector), FAT32 or FAT16 (reporting the root directory's
location), or unknown. It never attempts a full FAT32 geometry parse, so it still reports
something useful on a volume too malformed for 'scan' to walk.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunProbe,
	}
}

func RunProbe(cmd *cobra.Command, args []string) error {
	path, err := blockdev.ParsePath(args[0])
	if err != nil {
		return err
	}

	root, err := probe.FindRootDirectory(path)
	if err != nil {
		return fmt.Errorf("probe %s: %w", path, err)
	}

	fmt.Println(root)
	return nil
}
