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
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/twotwotwo/sorts"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/mldata/ctfreader/ctfreader/text"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "summarise sample values of a corpus per input stream",
	Long: `summarise sample values of a corpus per input stream

For every declared stream the whole corpus is decoded and the value
count, mean, standard deviation and quartiles are reported. With
--hist-file, a histogram of one stream's values is plotted to a PNG/PDF
file (the stream is picked with --hist-stream, defaulting to the first
declared one).

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
		histFile := getFlagString(cmd, "hist-file")
		histStream := getFlagString(cmd, "hist-stream")
		histBins := getFlagPositiveInt(cmd, "hist-bins")

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

		values := make([][]float64, len(streams))
		var nSequences int
		for _, chunkDesc := range parser.ChunkDescriptions() {
			chunk, err := parser.GetChunk(chunkDesc.ID)
			checkError(err)

			sequences, err := parser.SequencesForChunk(chunkDesc.ID)
			checkError(err)

			for _, s := range sequences {
				data, err := chunk.GetSequence(s.ID)
				checkError(err)
				nSequences++
				for j, d := range data {
					values[j] = append(values[j], d.Values...)
				}
			}
		}

		fmt.Printf("file\tstream\tstorage\tdim\tn\tmean\tstdev\tq1\tmedian\tq3\n")
		for j, stream := range streams {
			vals := values[j]
			sorts.Quicksort(sort.Float64Slice(vals))

			var mean, stdev, q1, median, q3 float64
			if len(vals) > 0 {
				mean = stat.Mean(vals, nil)
				stdev = stat.StdDev(vals, nil)
				q1 = stat.Quantile(0.25, stat.Empirical, vals, nil)
				median = stat.Quantile(0.5, stat.Empirical, vals, nil)
				q3 = stat.Quantile(0.75, stat.Empirical, vals, nil)
			}
			fmt.Printf("%s\t%s\t%s\t%d\t%d\t%.6g\t%.6g\t%.6g\t%.6g\t%.6g\n",
				corpus, stream.Name, stream.Storage, stream.SampleDimension,
				len(vals), mean, stdev, q1, median, q3)
		}

		if outputLog {
			log.Infof("decoded %d sequence(s)", nSequences)
		}

		if histFile != "" {
			j := 0
			if histStream != "" {
				j = -1
				for i, stream := range streams {
					if stream.Alias == histStream || stream.Name == histStream {
						j = i
						break
					}
				}
				if j < 0 {
					checkError(fmt.Errorf("unknown stream for the histogram: %s", histStream))
				}
			}
			checkError(plotHistogram(values[j], streams[j].Name, histFile, histBins))
			if outputLog {
				log.Infof("histogram of stream '%s' saved to %s", streams[j].Name, histFile)
			}
		}
	},
}

// plotHistogram saves a histogram of the values to an image file.
func plotHistogram(vals []float64, name string, file string, bins int) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("values of stream '%s'", name)
	p.X.Label.Text = "value"
	p.Y.Label.Text = "count"

	h, err := plotter.NewHist(plotter.Values(vals), bins)
	if err != nil {
		return err
	}
	p.Add(h)

	return p.Save(5*vg.Inch, 4*vg.Inch, file)
}

func init() {
	RootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringP("config", "C", "",
		"corpus config file declaring the input streams (TOML)")
	statsCmd.Flags().StringP("hist-file", "O", "",
		"plot a value histogram to this file (.png, .pdf, .svg)")
	statsCmd.Flags().StringP("hist-stream", "S", "",
		"stream (alias or name) to plot, default: the first declared one")
	statsCmd.Flags().IntP("hist-bins", "b", 50,
		"number of histogram bins")
}
