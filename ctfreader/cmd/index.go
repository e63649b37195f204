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
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/mldata/ctfreader/ctfreader/index"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "build the byte-offset index of corpus files",
	Long: `build the byte-offset index of corpus files

The index records, for every sequence, its byte range and row count, and
groups consecutive sequences into chunks of --chunk-size bytes. It is
saved next to each corpus file with the '` + index.IndexFileExt + `' extension,
where 'ctf locate' uses it instead of scanning the corpus. The 'dump' and
'stats' commands do not read it and always scan.

Attentions:
  1. Input corpus files must be plain 8-bit text; UTF-16 is rejected.
  2. Directories given as arguments are walked, keeping files matching
     the regular expression of -r/--file-regexp.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)

		var fhLog *os.File
		if opt.Log2File {
			fhLog = addLog(opt.LogFile, opt.Verbose)
		}
		verbose := opt.Verbose
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

		chunkSize := getFlagInt64(cmd, "chunk-size")
		skipIDs := getFlagBool(cmd, "skip-sequence-ids")
		force := getFlagBool(cmd, "force")
		pattern := getFlagString(cmd, "file-regexp")

		if len(args) == 0 {
			checkError(fmt.Errorf("corpus files or directories needed"))
		}
		files := getCorpusFiles(args, pattern, opt.NumCPUs)

		if outputLog {
			log.Infof("ctf v%s", VERSION)
			log.Info()
			log.Infof("  %d corpus file(s) given", len(files))
		}

		// process bar
		showProgressBar := len(files) > 1 && verbose
		var pbs *mpb.Progress
		var bar *mpb.Bar
		var chDuration chan time.Duration
		var doneDuration chan int
		if showProgressBar {
			pbs = mpb.New(mpb.WithWidth(40), mpb.WithOutput(os.Stderr))
			bar = pbs.AddBar(int64(len(files)),
				mpb.PrependDecorators(
					decor.Name("processed files: ", decor.WC{W: len("processed files: "), C: decor.DindentRight}),
					decor.Name("", decor.WCSyncSpaceR),
					decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
				),
				mpb.AppendDecorators(
					decor.Name("ETA: ", decor.WC{W: len("ETA: ")}),
					decor.EwmaETA(decor.ET_STYLE_GO, 20),
					decor.OnComplete(decor.Name(""), ". done"),
				),
			)

			chDuration = make(chan time.Duration, opt.NumCPUs)
			doneDuration = make(chan int)
			go func() {
				for t := range chDuration {
					bar.EwmaIncrBy(1, t)
				}
				doneDuration <- 1
			}()
		}

		var nSequences, nChunks int
		for _, file := range files {
			fileStart := time.Now()

			outFile := file + index.IndexFileExt
			if _, err := os.Stat(outFile); err == nil && !force {
				checkError(fmt.Errorf("index file existed: %s, use -f/--force to overwrite", outFile))
			}

			idx, err := buildIndex(file, skipIDs, chunkSize)
			checkError(err)
			checkError(errors.Wrap(idx.Write(outFile), outFile))

			nSequences += idx.NumberOfSequences()
			nChunks += len(idx.Chunks)

			if outputLog && !showProgressBar {
				log.Infof("  %s: %d sequence(s) in %d chunk(s), sequence ids: %v",
					file, idx.NumberOfSequences(), len(idx.Chunks), idx.HasSequenceIDs)
			}
			if showProgressBar {
				chDuration <- time.Since(fileStart)
			}
		}

		if showProgressBar {
			close(chDuration)
			<-doneDuration
			pbs.Wait()
		}

		if outputLog {
			log.Info()
			log.Infof("finished indexing %d file(s): %d sequence(s) in %d chunk(s)",
				len(files), nSequences, nChunks)
		}
	},
}

// buildIndex scans one corpus file and returns its index.
func buildIndex(file string, skipIDs bool, chunkSize int64) (*index.Index, error) {
	fh, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	utf16, err := hasUTF16BOM(fh)
	if err != nil {
		return nil, errors.Wrap(err, file)
	}
	if utf16 {
		return nil, fmt.Errorf("found a UTF-16 BOM at the beginning of the input file (%s), "+
			"UTF-16 encoding is currently not supported", file)
	}

	return index.NewIndexer(fh, skipIDs, chunkSize).Build()
}

func hasUTF16BOM(fh *os.File) (bool, error) {
	var bom [2]byte
	n, err := io.ReadFull(fh, bom[:])
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return false, err
	}
	if _, err := fh.Seek(0, io.SeekStart); err != nil {
		return false, err
	}
	return n == 2 && ((bom[0] == 0xFF && bom[1] == 0xFE) || (bom[0] == 0xFE && bom[1] == 0xFF)), nil
}

func init() {
	RootCmd.AddCommand(indexCmd)

	indexCmd.Flags().Int64P("chunk-size", "c", 32<<20,
		"target chunk size in bytes, non-positive for a single chunk")
	indexCmd.Flags().BoolP("skip-sequence-ids", "s", false,
		"treat every row as its own sequence even if rows carry ids")
	indexCmd.Flags().BoolP("force", "f", false,
		"overwrite existing index files")
	indexCmd.Flags().StringP("file-regexp", "r", `\.(txt|ctf)$`,
		"regular expression for corpus files in given directories")
}
