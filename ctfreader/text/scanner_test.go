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

package text

import (
	"math"
	"testing"
)

// scannerParser prepares a parser whose buffer holds the given bytes.
// The budget equals the buffer length, so the scanners never refill.
func scannerParser(data string) (*Parser[float64], *int64) {
	p := &Parser[float64]{
		filename:  "scanner-test",
		buffer:    []byte(data),
		bufferEnd: len(data),
	}
	budget := int64(len(data))
	return p, &budget
}

func TestReadUint64(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
		ok   bool
	}{
		{"123 ", 123, true},
		{"0\t", 0, true},
		{"42|", 42, true},
		{"7:", 7, true},
		{"9\r", 9, true},
		{"5\n", 5, true},
		{" ", 0, false},                     // no digits before the delimiter
		{"x ", 0, false},                    // not a number
		{"12a ", 0, false},                  // unexpected character
		{"99999999999999999999:", 0, false}, // overflow
		{"", 0, false},                      // exhausted input
		{"123", 0, false},                   // exhausted before a delimiter
	}

	for _, test := range tests {
		p, budget := scannerParser(test.in)
		var value uint64
		ok, err := p.tryReadUint64(&value, budget)
		if err != nil {
			t.Errorf("%q: unexpected error: %s", test.in, err)
			continue
		}
		if ok != test.ok {
			t.Errorf("%q: ok mismatch, expected: %v, result: %v", test.in, test.ok, ok)
			continue
		}
		if ok && value != test.want {
			t.Errorf("%q: value mismatch, expected: %d, result: %d", test.in, test.want, value)
		}
	}
}

func TestReadRealNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1 ", 1, true},
		{"0 ", 0, true},
		{"-1.5|", -1.5, true},
		{"+2\t", 2, true},
		{"1e2 ", 100, true},
		{"1E2 ", 100, true},
		{"2.5e-3 ", 0.0025, true},
		{"1.25E2\n", 125, true},
		{"-0.125e+1 ", -1.25, true},
		{"1. ", 1, true},      // a trailing period is dropped
		{"3.14", 3.14, true},  // the end of input terminates the number
		{"42", 42, true},      // same, integral only
		{"-7.5", -7.5, true},  // same, with a sign
		{"6e1", 60, true},     // same, with an exponent
		{"- ", 0, false},      // a sign must be followed by a digit
		{"e5 ", 0, false},     // must start with a digit or a sign
		{"1e ", 0, false},     // an exponent symbol must be followed by a digit or a sign
		{"1e- ", 0, false},    // an exponent sign must be followed by a digit
		{"1e-", 0, false},     // exhausted after an exponent sign
		{"", 0, false},        // empty input
		{":2 ", 0, false},     // a delimiter is not a number
	}

	for _, test := range tests {
		p, budget := scannerParser(test.in)
		var value float64
		ok, err := p.tryReadRealNumber(&value, budget)
		if err != nil {
			t.Errorf("%q: unexpected error: %s", test.in, err)
			continue
		}
		if ok != test.ok {
			t.Errorf("%q: ok mismatch, expected: %v, result: %v", test.in, test.ok, ok)
			continue
		}
		if !ok {
			continue
		}
		if !closeEnough(value, test.want) {
			t.Errorf("%q: value mismatch, expected: %g, result: %g", test.in, test.want, value)
		}
	}
}

func TestReadRealNumberStopsOnTerminator(t *testing.T) {
	p, budget := scannerParser("1.5|L")
	var value float64
	ok, err := p.tryReadRealNumber(&value, budget)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !ok {
		t.Fatal("expected a successful parse")
	}
	if p.buffer[p.pos] != '|' {
		t.Errorf("the terminator should not be consumed, parser stopped at %q", p.buffer[p.pos])
	}
	if *budget != 2 {
		t.Errorf("budget mismatch, expected: 2, result: %d", *budget)
	}
}

func closeEnough(a, b float64) bool {
	if a == b {
		return true
	}
	diff := math.Abs(a - b)
	return diff <= math.Abs(b)*1e-12
}
