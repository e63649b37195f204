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
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/iafan/cwalk"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/shenwei356/util/pathutil"
	"github.com/spf13/cobra"
	"github.com/twotwotwo/sorts"

	"github.com/mldata/ctfreader/ctfreader/text"
)

// Options contains the global flags.
type Options struct {
	NumCPUs int
	Verbose bool

	LogFile  string
	Log2File bool
}

func getOptions(cmd *cobra.Command) *Options {
	threads := getFlagNonNegativeInt(cmd, "threads")
	if threads == 0 {
		threads = runtime.NumCPU()
	}

	sorts.MaxProcs = threads
	runtime.GOMAXPROCS(threads)

	logfile := getFlagString(cmd, "log")
	return &Options{
		NumCPUs: threads,
		Verbose: !getFlagBool(cmd, "quiet"),

		LogFile:  logfile,
		Log2File: logfile != "",
	}
}

func checkError(err error) {
	if err != nil {
		log.Error(err)
		os.Exit(-1)
	}
}

func isStdin(file string) bool {
	return file == "-"
}

func getFlagBool(cmd *cobra.Command, flag string) bool {
	value, err := cmd.Flags().GetBool(flag)
	checkError(err)
	return value
}

func getFlagString(cmd *cobra.Command, flag string) string {
	value, err := cmd.Flags().GetString(flag)
	checkError(err)
	return value
}

func getFlagInt(cmd *cobra.Command, flag string) int {
	value, err := cmd.Flags().GetInt(flag)
	checkError(err)
	return value
}

func getFlagInt64(cmd *cobra.Command, flag string) int64 {
	value, err := cmd.Flags().GetInt64(flag)
	checkError(err)
	return value
}

func getFlagNonNegativeInt(cmd *cobra.Command, flag string) int {
	value, err := cmd.Flags().GetInt(flag)
	checkError(err)
	if value < 0 {
		checkError(fmt.Errorf("value of flag --%s should be non-negative: %d", flag, value))
	}
	return value
}

func getFlagPositiveInt(cmd *cobra.Command, flag string) int {
	value, err := cmd.Flags().GetInt(flag)
	checkError(err)
	if value <= 0 {
		checkError(fmt.Errorf("value of flag --%s should be positive: %d", flag, value))
	}
	return value
}

func expandPath(path string) string {
	expanded, err := homedir.Expand(path)
	checkError(err)
	return expanded
}

func getFileListFromDir(path string, pattern *regexp.Regexp, threads int) ([]string, error) {
	files := make([]string, 0, 512)
	ch := make(chan string, threads)
	done := make(chan int)
	go func() {
		for file := range ch {
			files = append(files, file)
		}
		done <- 1
	}()

	cwalk.NumWorkers = threads
	err := cwalk.WalkWithSymlinks(path, func(_path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && pattern.MatchString(info.Name()) {
			ch <- filepath.Join(path, _path)
		}
		return nil
	})
	close(ch)
	<-done
	if err != nil {
		return nil, err
	}

	sorts.Quicksort(StringSlice(files))
	return files, nil
}

// StringSlice makes a string slice sortable.
type StringSlice []string

func (s StringSlice) Len() int           { return len(s) }
func (s StringSlice) Less(i, j int) bool { return s[i] < s[j] }
func (s StringSlice) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

// getCorpusFiles collects corpus files from positional arguments;
// directories are walked concurrently with the given pattern.
func getCorpusFiles(args []string, pattern string, threads int) []string {
	re, err := regexp.Compile(pattern)
	if err != nil {
		checkError(errors.Wrapf(err, "failed to compile file pattern: %s", pattern))
	}

	files := make([]string, 0, len(args))
	for _, arg := range args {
		arg = expandPath(arg)
		if _, err := os.Stat(arg); err != nil {
			checkError(errors.Wrap(err, arg))
		}

		isDir, err := pathutil.DirExists(arg)
		checkError(errors.Wrap(err, arg))
		if isDir {
			fromDir, err := getFileListFromDir(arg, re, threads)
			checkError(errors.Wrap(err, arg))
			files = append(files, fromDir...)
		} else {
			files = append(files, arg)
		}
	}
	if len(files) == 0 {
		checkError(fmt.Errorf("no corpus files given"))
	}
	return files
}

// CorpusConfig is the on-disk description of a corpus: its declared
// input streams plus the parser tunables.
type CorpusConfig struct {
	TraceLevel       string `toml:"trace_level"`
	MaxAllowedErrors int    `toml:"max_allowed_errors"`
	ChunkSizeBytes   int64  `toml:"chunk_size_bytes"`
	ChunkCacheSize   int    `toml:"chunk_cache_size"`
	SkipSequenceIDs  bool   `toml:"skip_sequence_ids"`
	NumRetries       int    `toml:"num_retries"`

	Streams []StreamConfig `toml:"streams"`
}

// StreamConfig declares one input stream in the config file.
type StreamConfig struct {
	Name    string `toml:"name"`
	Alias   string `toml:"alias"`
	Storage string `toml:"storage"`
	Dim     int    `toml:"dim"`
}

func loadCorpusConfig(file string) *CorpusConfig {
	data, err := os.ReadFile(expandPath(file))
	checkError(errors.Wrapf(err, "failed to read the config file: %s", file))

	cfg := &CorpusConfig{}
	checkError(errors.Wrapf(toml.Unmarshal(data, cfg), "failed to parse the config file: %s", file))

	if len(cfg.Streams) == 0 {
		checkError(fmt.Errorf("no input streams declared in the config file: %s", file))
	}
	return cfg
}

func (cfg *CorpusConfig) streamDescriptors() []text.StreamDescriptor {
	streams := make([]text.StreamDescriptor, 0, len(cfg.Streams))
	for _, s := range cfg.Streams {
		var storage text.StorageType
		switch strings.ToLower(s.Storage) {
		case "dense", "":
			storage = text.Dense
		case "sparse":
			storage = text.Sparse
		default:
			checkError(fmt.Errorf("unknown storage type for stream '%s': %s", s.Name, s.Storage))
		}
		streams = append(streams, text.StreamDescriptor{
			Name:            s.Name,
			Alias:           s.Alias,
			Storage:         storage,
			SampleDimension: s.Dim,
		})
	}
	return streams
}

func (cfg *CorpusConfig) parserConfig() text.Config {
	var level text.TraceLevel
	switch strings.ToLower(cfg.TraceLevel) {
	case "", "error":
		level = text.Error
	case "warning":
		level = text.Warning
	case "info":
		level = text.Info
	default:
		checkError(fmt.Errorf("unknown trace level: %s", cfg.TraceLevel))
	}
	return text.Config{
		TraceLevel:       level,
		MaxAllowedErrors: cfg.MaxAllowedErrors,
		ChunkSizeBytes:   cfg.ChunkSizeBytes,
		ChunkCacheSize:   cfg.ChunkCacheSize,
		SkipSequenceIDs:  cfg.SkipSequenceIDs,
		NumRetries:       cfg.NumRetries,
	}
}
