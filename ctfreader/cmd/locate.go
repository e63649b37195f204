// Copyright © 2024-2025 the ctfreader authors
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

	"github.com/spf13/cobra"

	"github.com/mldata/ctfreader/ctfreader/index"
)

var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "map byte offsets of a corpus file back to their sequences",
	Long: `map byte offsets of a corpus file back to their sequences

Offsets usually come from parser diagnostics ("... at offset 12345 in
the input file ..."). The sidecar index built by 'ctf index' is used
when present, otherwise the corpus is scanned first.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)

		offsets := make([]int64, 0, 8)
		for _, v := range getFlagInt64Slice(cmd, "offset") {
			if v < 0 {
				checkError(fmt.Errorf("offsets should be non-negative: %d", v))
			}
			offsets = append(offsets, v)
		}
		if len(offsets) == 0 {
			checkError(fmt.Errorf("flag -p/--offset needed"))
		}

		if len(args) != 1 {
			checkError(fmt.Errorf("exactly one corpus file needed"))
		}
		corpus := expandPath(args[0])

		var idx *index.Index
		var err error
		sidecar := corpus + index.IndexFileExt
		if _, errStat := os.Stat(sidecar); errStat == nil {
			idx, err = index.Read(sidecar)
			checkError(err)
			if opt.Verbose {
				log.Infof("loaded the sidecar index: %s", sidecar)
			}
		} else {
			idx, err = buildIndex(corpus, false, 0)
			checkError(err)
			if opt.Verbose {
				log.Infof("no sidecar index found, scanned the corpus")
			}
		}

		locator := index.NewLocator(idx)
		fmt.Printf("offset\tsequence\tchunk\n")
		for _, offset := range offsets {
			loc, found := locator.Locate(offset)
			if !found {
				fmt.Printf("%d\t-\t-\n", offset)
				continue
			}
			fmt.Printf("%d\t%d\t%d\n", offset, loc.SequenceID, loc.ChunkID)
		}
	},
}

func getFlagInt64Slice(cmd *cobra.Command, flag string) []int64 {
	value, err := cmd.Flags().GetInt64Slice(flag)
	checkError(err)
	return value
}

func init() {
	RootCmd.AddCommand(locateCmd)

	locateCmd.Flags().Int64SliceP("offset", "p", []int64{},
		"byte offset(s) to look up, repeatable or comma separated")
}
