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

// Package text implements a streaming parser for pipe-delimited text corpora.
//
// An input file holds many sequences, a sequence is a list of rows, and a row
// holds samples for zero or more named input streams, e.g.
//
//	100 |F 3.5 -1e2 0.05 |L 0:1
//	100 |F 0.1 0.2 0.3
//
// The parser works in two phases: an offline scan (package index) records the
// byte range of every sequence and groups sequences into chunks, then chunks
// are decoded on demand and kept in a small cache.
package text

import (
	"errors"

	"github.com/shenwei356/go-logging"
)

var log = logging.MustGetLogger("ctf")

// Significant bytes of the corpus format.
const (
	RowDelimiter    = '\n'
	CarriageReturn  = '\r'
	ColumnDelimiter = '\t'
	ValueDelimiter  = ' '
	NamePrefix      = '|'
	EscapeSymbol    = '#'
	IndexDelimiter  = ':'
)

// BufferSize is the size of the read buffer.
var BufferSize = 65536

// ErrEmptyInput means a fully decoded sequence has an input stream with
// no samples in it.
var ErrEmptyInput = errors.New("text parser: malformed input, empty input stream")

// Element is the floating-point element type of decoded samples.
type Element interface {
	~float32 | ~float64
}

// StorageType tells how samples of a stream are laid out in the file.
type StorageType uint8

const (
	// Dense samples are fixed-length vectors of values.
	Dense StorageType = iota
	// Sparse samples are lists of index:value pairs.
	Sparse
)

func (t StorageType) String() string {
	if t == Dense {
		return "dense"
	}
	return "sparse"
}

// StreamDescriptor declares one named input stream of the corpus.
// Descriptors are immutable after the parser is constructed.
type StreamDescriptor struct {
	Name            string      // display identifier
	Alias           string      // short tag appearing in the file after the name prefix
	Storage         StorageType // dense or sparse
	SampleDimension int         // size of a dense sample / upper bound of sparse indices
}

// TraceLevel controls the verbosity of parser diagnostics.
type TraceLevel uint8

const (
	// Error only reports fatal conditions.
	Error TraceLevel = iota
	// Warning additionally reports recoverable anomalies.
	Warning
	// Info additionally reports progress of sequence loading.
	Info
)

func isDelimiter(c byte) bool {
	return c == ValueDelimiter || c == NamePrefix || c == ColumnDelimiter ||
		c == IndexDelimiter || c == RowDelimiter || c == CarriageReturn
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isSign(c byte) bool {
	return c == '-' || c == '+'
}

func isE(c byte) bool {
	return c == 'e' || c == 'E'
}
