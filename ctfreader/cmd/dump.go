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
	"strconv"
	"time"

	"github.com/shenwei356/xopen"
	"github.com/spf13/cobra"

	"github.com/mldata/ctfreader/ctfreader/text"
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "decode a corpus chunk by chunk and print it as text",
	Long: `decode a corpus chunk by chunk and print it as text

Every sequence is re-emitted in the canonical row layout, one row per
line, with the sequence id as the leading column. The output should
decode back to the same samples, modulo floating point rounding.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)

		var fhLog *os.File
		if opt.Log2File {
			fhLog = addLog(opt.LogFile, opt.Verbose)
		}
		outputLog := opt.Verbose || opt.Log2File

		timeStart := time.Now()
		defer func() {
			if outputLog {
				log.Info()
				log.Infof("elapsed time: %s", time.Since(timeStart))
				log.Info()
			}
			if opt.Log2File {
				fhLog.Close()
			}
		}()

		cfgFile := getFlagString(cmd, "config")
		if cfgFile == "" {
			checkError(fmt.Errorf("flag -C/--config needed"))
		}
		outFile := getFlagString(cmd, "out-file")

		if len(args) != 1 {
			checkError(fmt.Errorf("exactly one corpus file needed"))
		}
		corpus := expandPath(args[0])

		cfg := loadCorpusConfig(cfgFile)
		streams := cfg.streamDescriptors()

		parser, err := text.NewParser[float64](corpus, streams, cfg.parserConfig())
		checkError(err)
		checkError(parser.Initialize())
		defer parser.Close()

		outfh, err := xopen.Wopen(outFile)
		checkError(err)
		defer outfh.Close()

		var nSequences, nRows int
		for _, chunkDesc := range parser.ChunkDescriptions() {
			chunk, err := parser.GetChunk(chunkDesc.ID)
			checkError(err)

			sequences, err := parser.SequencesForChunk(chunkDesc.ID)
			checkError(err)

			for _, s := range sequences {
				data, err := chunk.GetSequence(s.ID)
				checkError(err)
				nSequences++
				nRows += dumpSequence(outfh, s.ID, streams, data)
			}
		}

		if outputLog {
			log.Infof("dumped %d row(s) of %d sequence(s)", nRows, nSequences)
		}
	},
}

// dumpSequence prints one sequence in the canonical row layout and
// returns the number of rows written.
func dumpSequence(outfh *xopen.Writer, id uint64, streams []text.StreamDescriptor, data []*text.SequenceData[float64]) int {
	rows := 0
	for _, d := range data {
		if d.NumberOfSamples > rows {
			rows = d.NumberOfSamples
		}
	}

	// per-stream cursor into the sparse buffers
	nnzOffsets := make([]int, len(data))

	for row := 0; row < rows; row++ {
		fmt.Fprintf(outfh, "%d", id)
		for j, d := range data {
			if row >= d.NumberOfSamples {
				continue
			}
			fmt.Fprintf(outfh, " |%s", streams[j].Alias)
			if d.Storage == text.Dense {
				dim := d.SampleDimension
				for _, v := range d.Values[row*dim : (row+1)*dim] {
					fmt.Fprintf(outfh, " %s", strconv.FormatFloat(v, 'g', -1, 64))
				}
			} else {
				nnz := int(d.NnzCounts[row])
				from := nnzOffsets[j]
				for k := from; k < from+nnz; k++ {
					fmt.Fprintf(outfh, " %d:%s", d.Indices[k],
						strconv.FormatFloat(d.Values[k], 'g', -1, 64))
				}
				nnzOffsets[j] += nnz
			}
		}
		fmt.Fprintln(outfh)
	}
	return rows
}

func init() {
	RootCmd.AddCommand(dumpCmd)

	dumpCmd.Flags().StringP("config", "C", "",
		"corpus config file declaring the input streams (TOML)")
	dumpCmd.Flags().StringP("out-file", "o", "-",
		`out file, supports the ".gz" suffix ("-" for stdout)`)
}
