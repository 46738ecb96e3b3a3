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
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sscafiti/fatdigler/internal/blockdev"
)

func DefineListCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "list",
		Short:        "List candidate block devices this host can scan",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         RunList,
	}
}

func RunList(cmd *cobra.Command, args []string) error {
	candidates, err := blockdev.ListCandidates()
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		fmt.Println("no candidate devices found on this host; pass an image file or device path directly")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tSIZE")
	for _, c := range candidates {
		fmt.Fprintf(w, "%s\t%s\n", c.Path, c.Size)
	}
	return w.Flush()
}
