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
	"fmt"
	"io"
)

// The read buffer is a fixed-size window over the input file.
// Invariant: fileOffsetStart + (pos - bufferStart) is the absolute
// offset of the next byte to consume, and fileOffsetEnd is the absolute
// offset one past the window.

// tryRefillBuffer reads the next BufferSize bytes at fileOffsetEnd.
// It returns false at the end of the file, and a non-nil error on a
// read failure, after printing any pending warning summary.
func (p *Parser[E]) tryRefillBuffer() (bool, error) {
	n, err := p.file.Read(p.buffer)
	if err != nil && err != io.EOF {
		p.printWarningNotification()
		return false, fmt.Errorf("could not read from the input file (%s): %w", p.filename, err)
	}

	if n == 0 {
		return false, nil
	}

	p.fileOffsetStart = p.fileOffsetEnd
	p.fileOffsetEnd += int64(n)
	p.bufferStart = 0
	p.pos = 0
	p.bufferEnd = n
	return true, nil
}

// setFileOffset repositions the window at an absolute file offset,
// discarding the current contents, and refills once.
func (p *Parser[E]) setFileOffset(offset int64) error {
	if _, err := p.file.Seek(offset, io.SeekStart); err != nil {
		p.printWarningNotification()
		return fmt.Errorf("error seeking to position %d in the input file (%s): %w",
			offset, p.filename, err)
	}

	p.fileOffsetStart = offset
	p.fileOffsetEnd = offset

	_, err := p.tryRefillBuffer()
	return err
}

// canRead reports whether at least one byte is available, refilling the
// window if it has been drained.
func (p *Parser[E]) canRead() (bool, error) {
	if p.pos < p.bufferEnd {
		return true, nil
	}
	return p.tryRefillBuffer()
}

// fileOffset is the absolute offset of the next byte to consume.
func (p *Parser[E]) fileOffset() int64 {
	return p.fileOffsetStart + int64(p.pos-p.bufferStart)
}

func (p *Parser[E]) fileInfo() string {
	return fmt.Sprintf("at offset %d in the input file (%s)", p.fileOffset(), p.filename)
}
