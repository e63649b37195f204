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

// tryReadRow reads one row of samples into the sequence buffer.
// It reports whether at least one sample was read; a non-nil error is fatal.
func (p *Parser[E]) tryReadRow(sequence sequenceBuffer[E], bytesToRead *int64) (bool, error) {
	// skip an embedded sequence id prefix
	for *bytesToRead > 0 {
		ok, err := p.canRead()
		if err != nil {
			return false, err
		}
		if !ok || !isDigit(p.buffer[p.pos]) {
			break
		}
		p.pos++
		*bytesToRead--
	}

	numSamplesRead := 0
	for *bytesToRead > 0 {
		ok, err := p.canRead()
		if err != nil {
			return false, err
		}
		if !ok {
			break
		}
		c := p.buffer[p.pos]

		if c == ColumnDelimiter || c == ValueDelimiter || c == CarriageReturn {
			// skip column and value separators, as well as carriage returns
			p.pos++
			*bytesToRead--
			continue
		}

		if c == RowDelimiter {
			// found the end of the row, skip the delimiter, return
			p.pos++
			*bytesToRead--

			if numSamplesRead == 0 {
				p.warnf("empty input row %s", p.fileInfo())
			} else if numSamplesRead > len(p.streams) {
				p.warnf("input row %s contains more samples than expected (%d vs. %d)",
					p.fileInfo(), numSamplesRead, len(p.streams))
			}

			return numSamplesRead > 0, nil
		}

		ok, err = p.tryReadSample(sequence, bytesToRead)
		if err != nil {
			return false, err
		}
		if ok {
			numSamplesRead++
		} else {
			// skip over until the next sample or the end of the row
			if err := p.skipToNextInput(bytesToRead); err != nil {
				return false, err
			}
		}
	}

	p.warnf("exhausted all input expected for the current sequence"+
		" while reading an input row %s, possibly a trailing newline is missing", p.fileInfo())
	return false, nil
}

// tryReadSample reads one sample, a pipe-prefixed input identifier
// followed by a list of values.
func (p *Parser[E]) tryReadSample(sequence sequenceBuffer[E], bytesToRead *int64) (bool, error) {
	// prefix check
	if p.buffer[p.pos] != NamePrefix {
		p.warnf("unexpected character ('%c') in place of a name prefix ('%c') in an input name %s",
			p.buffer[p.pos], NamePrefix, p.fileInfo())
		if err := p.countError(); err != nil {
			return false, err
		}
		return false, nil
	}

	// skip the name prefix
	p.pos++
	*bytesToRead--

	if *bytesToRead > 0 {
		ok, err := p.canRead()
		if err != nil {
			return false, err
		}
		if ok && p.buffer[p.pos] == EscapeSymbol {
			// A vertical bar followed by the number sign (|#) is an escape
			// sequence, everything that follows is ignored until the next
			// vertical bar or the end of the row, whichever comes first.
			p.pos++
			*bytesToRead--
			return false, nil
		}
	}

	var id int
	ok, err := p.tryGetInputID(&id, bytesToRead)
	if err != nil {
		return false, err
	}
	if !ok {
		if err := p.countError(); err != nil {
			return false, err
		}
		return false, nil
	}

	stream := p.streams[id]
	data := sequence[id]

	if stream.Storage == Dense {
		size := len(data.values)
		ok, err := p.tryReadDenseSample(data, stream.SampleDimension, bytesToRead)
		if err != nil {
			return false, err
		}
		if !ok {
			// expected a dense sample, but was not able to fully read it
			data.values = data.values[:size]
			if err := p.countError(); err != nil {
				return false, err
			}
			return false, nil
		}
		data.numberOfSamples++
	} else {
		size := len(data.values)
		ok, err := p.tryReadSparseSample(data, stream.SampleDimension, bytesToRead)
		if err != nil {
			return false, err
		}
		if !ok {
			// expected a sparse sample, but something went south
			data.values = data.values[:size]
			data.indices = data.indices[:size]
			if err := p.countError(); err != nil {
				return false, err
			}
			return false, nil
		}
		data.numberOfSamples++
		count := int32(len(data.values) - size)
		data.nnzCounts = append(data.nnzCounts, count)
		data.totalNnz += count
	}

	return true, nil
}

// tryGetInputID reads an input alias and resolves it to a stream index.
func (p *Parser[E]) tryGetInputID(id *int, bytesToRead *int64) (bool, error) {
	scratch := p.scratch[:0]

	for *bytesToRead > 0 {
		ok, err := p.canRead()
		if err != nil {
			return false, err
		}
		if !ok {
			break
		}
		c := p.buffer[p.pos]

		// an input id can be followed by a value marker, the end of the line
		// (also, a carriage return), a column separator or the name prefix
		// of the following input
		if c <= ValueDelimiter || c == NamePrefix {
			if len(scratch) > 0 {
				if streamID, found := p.aliasToID[string(scratch)]; found {
					*id = streamID
					return true, nil
				}
				p.warnf("invalid input name ('%s') %s", string(scratch), p.fileInfo())
			} else {
				p.warnf("input name prefix ('%c') is followed by an invalid character ('%c') %s",
					NamePrefix, c, p.fileInfo())
			}

			return false, nil
		} else if len(scratch) < p.maxAliasLength {
			scratch = append(scratch, c)
		} else {
			// the alias is already at the maximum expected length,
			// yet it is not followed by a delimiter
			p.warnf("did not find a valid input name %s", p.fileInfo())
			return false, nil
		}

		p.pos++
		*bytesToRead--
	}

	p.warnf("exhausted all input expected for the current sequence"+
		" while reading an input name %s", p.fileInfo())
	return false, nil
}

// tryReadDenseSample reads a run of values terminated by a non-printable
// byte or a name prefix. Short samples are padded with zeros up to the
// declared dimension, oversized ones are rejected.
func (p *Parser[E]) tryReadDenseSample(data *inputBuffer[E], sampleSize int, bytesToRead *int64) (bool, error) {
	counter := 0
	var value E

	for *bytesToRead > 0 {
		ok, err := p.canRead()
		if err != nil {
			return false, err
		}
		if !ok {
			break
		}
		c := p.buffer[p.pos]

		// return as soon as we hit a non-printable or a name prefix
		if c < ValueDelimiter || c == NamePrefix {
			if counter > sampleSize {
				p.warnf("dense sample (size = %d) %s exceeds the expected size (%d)",
					counter, p.fileInfo(), sampleSize)
				return false, nil
			}

			// For dense samples it is possible to input only the left part
			// when the suffix is sparse. Fill up the rest with zeros.
			if counter < sampleSize {
				p.warnf("a dense sample %s has a sparse suffix (expected size = %d, actual size = %d)",
					p.fileInfo(), sampleSize, counter)
				for ; counter < sampleSize; counter++ {
					data.values = append(data.values, 0)
				}
			}

			return true, nil
		}

		if c == ValueDelimiter {
			p.pos++
			*bytesToRead--
			continue
		}

		ok, err = p.tryReadRealNumber(&value, bytesToRead)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}

		data.values = append(data.values, value)
		counter++
	}

	// the budget or the input ran out; finalize as if a terminator was seen
	if counter > sampleSize {
		p.warnf("dense sample (size = %d) %s exceeds the expected size (%d)",
			counter, p.fileInfo(), sampleSize)
		return false, nil
	}
	if counter < sampleSize {
		p.warnf("a dense sample %s has a sparse suffix (expected size = %d, actual size = %d)",
			p.fileInfo(), sampleSize, counter)
		for ; counter < sampleSize; counter++ {
			data.values = append(data.values, 0)
		}
	}
	return true, nil
}

// tryReadSparseSample reads zero or more index:value pairs terminated by a
// non-printable byte or a name prefix. Empty sparse samples are legal.
func (p *Parser[E]) tryReadSparseSample(data *inputBuffer[E], sampleSize int, bytesToRead *int64) (bool, error) {
	var index uint64
	var value E

	for *bytesToRead > 0 {
		ok, err := p.canRead()
		if err != nil {
			return false, err
		}
		if !ok {
			break
		}
		c := p.buffer[p.pos]

		// return as soon as we hit a non-printable or a name prefix;
		// empty sparse samples are allowed ("|InputName_1|InputName_2...")
		if c < ValueDelimiter || c == NamePrefix {
			return true, nil
		}

		if c == ValueDelimiter {
			p.pos++
			*bytesToRead--
			continue
		}

		// read the next sparse index
		ok, err = p.tryReadUint64(&index, bytesToRead)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}

		if index > uint64(sampleSize) {
			p.warnf("sparse index value (%d) %s exceeds the expected sample size (%d)",
				index, p.fileInfo(), sampleSize)
			return false, nil
		}

		// an index must be followed by a delimiter
		c = p.buffer[p.pos]
		if c != IndexDelimiter {
			p.warnf("unexpected character ('%c') in place of the index delimiter ('%c')"+
				" after a sparse value index (%d) %s", c, IndexDelimiter, index, p.fileInfo())
			return false, nil
		}

		// skip the index delimiter
		p.pos++
		*bytesToRead--

		// read the corresponding value
		ok, err = p.tryReadRealNumber(&value, bytesToRead)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}

		data.values = append(data.values, value)
		data.indices = append(data.indices, int32(index))
	}

	// the budget or the input ran out after a complete pair; treat it
	// like a terminator
	return true, nil
}

// skipToNextValue advances to the next value marker, input marker or the
// end of the row.
func (p *Parser[E]) skipToNextValue(bytesToRead *int64) error {
	for *bytesToRead > 0 {
		ok, err := p.canRead()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		c := p.buffer[p.pos]
		if c == ValueDelimiter || c == RowDelimiter || c == NamePrefix {
			return nil
		}
		p.pos++
		*bytesToRead--
	}
	return nil
}

// skipToNextInput advances to the next input marker or the end of the row.
func (p *Parser[E]) skipToNextInput(bytesToRead *int64) error {
	for *bytesToRead > 0 {
		ok, err := p.canRead()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		c := p.buffer[p.pos]
		if c == NamePrefix || c == RowDelimiter {
			return nil
		}
		p.pos++
		*bytesToRead--
	}
	return nil
}
