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
	"runtime"

	colorable "github.com/mattn/go-colorable"
	"github.com/shenwei356/go-logging"
	"github.com/spf13/cobra"
)

// VERSION of ctf.
const VERSION = "0.3.1"

var log = logging.MustGetLogger("ctf")

var logFormat = logging.MustStringFormatter(
	`%{color}[%{level:.4s}]%{color:reset} %{message}`,
)

func init() {
	backend := logging.NewLogBackend(colorable.NewColorableStderr(), "", 0)
	logging.SetBackend(logging.NewBackendFormatter(backend, logFormat))
}

// addLog mirrors the log to a file, in addition to stderr when verbose.
func addLog(logfile string, verbose bool) *os.File {
	fh, err := os.Create(logfile)
	checkError(err)

	backendStderr := logging.NewBackendFormatter(
		logging.NewLogBackend(colorable.NewColorableStderr(), "", 0), logFormat)
	backendFile := logging.NewBackendFormatter(
		logging.NewLogBackend(fh, "", 0),
		logging.MustStringFormatter(`[%{level:.4s}] %{message}`))
	if verbose {
		logging.SetBackend(backendStderr, backendFile)
	} else {
		logging.SetBackend(backendFile)
	}
	return fh
}

// RootCmd is the root command of ctf.
var RootCmd = &cobra.Command{
	Use:   "ctf",
	Short: "indexing and decoding of pipe-delimited text corpora",
	Long: fmt.Sprintf(`ctf -- indexing and decoding of pipe-delimited text corpora

Version: v%s

Documentation: https://github.com/mldata/ctfreader

A corpus file holds many sequences, one row per line, with samples of
named input streams separated by vertical bars:

  100 |F 0.1 -2.5 3e-2 |L 7:1
  100 |F 0.4 0.5 0.6

The 'index' command scans a corpus once and saves a byte-offset index,
'dump' decodes sequences chunk by chunk, 'stats' summarises sample
values, and 'locate' maps a byte offset back to its sequence.

`, VERSION),
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().IntP("threads", "j", runtime.NumCPU(),
		"number of CPU cores to use")
	RootCmd.PersistentFlags().BoolP("quiet", "q", false,
		"do not print any verbose information")
	RootCmd.PersistentFlags().StringP("log", "", "",
		"log file")

	RootCmd.CompletionOptions.DisableDefaultCmd = true
}
