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

import "fmt"

func (p *Parser[E]) shouldWarn() bool {
	p.hadWarnings = true
	return p.traceLevel >= Warning
}

func (p *Parser[E]) warnf(format string, args ...interface{}) {
	if p.shouldWarn() {
		log.Warningf(format, args...)
	}
}

// printWarningNotification tells the user that suppressed warnings exist.
// It is called on every fatal path and when the parser is closed.
func (p *Parser[E]) printWarningNotification() {
	if p.hadWarnings && p.traceLevel < Warning {
		log.Errorf("a number of warnings were generated while reading input data, "+
			"to see them please set the trace level to a value greater or equal to %d", Warning)
	}
}

// countError consumes one unit of the error budget. Once the budget is
// exhausted the next anomaly is fatal.
func (p *Parser[E]) countError() error {
	if p.numAllowedErrors == 0 {
		p.printWarningNotification()
		return fmt.Errorf("Reached the maximum number of allowed errors"+
			" while reading the input file (%s).", p.filename)
	}
	p.numAllowedErrors--
	return nil
}
