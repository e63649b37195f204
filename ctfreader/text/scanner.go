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

import "math"

// Both scanners consume bytes in place and stop exactly on the first byte
// that cannot belong to the number, so the caller can dispatch on the
// terminator without lookahead. bytesToRead is the caller-owned budget of
// the enclosing sequence; it is decremented for every consumed byte.

// tryReadUint64 parses an unsigned decimal integer. It succeeds iff at
// least one digit was consumed and the terminator is a recognised
// delimiter. Overflow is a soft failure.
func (p *Parser[E]) tryReadUint64(value *uint64, bytesToRead *int64) (bool, error) {
	*value = 0
	found := false
	for *bytesToRead > 0 {
		ok, err := p.canRead()
		if err != nil {
			return false, err
		}
		if !ok {
			break
		}
		c := p.buffer[p.pos]

		if !isDigit(c) {
			if isDelimiter(c) {
				return found, nil
			}

			p.warnf("unexpected character ('%c') in a uint64 value %s", c, p.fileInfo())
			return false, nil
		}

		found = true

		temp := *value
		*value = *value*10 + uint64(c-'0')
		if temp > *value {
			p.warnf("overflow while reading a uint64 value %s", p.fileInfo())
			return false, nil
		}

		p.pos++
		*bytesToRead--
	}

	p.warnf("exhausted all input expected for the current sequence"+
		" while reading a uint64 value %s", p.fileInfo())
	return false, nil
}

type scanState uint8

const (
	stateInit scanState = iota
	stateSign
	stateIntegralPart
	statePeriod
	stateFractionalPart
	stateTheLetterE
	stateExponentSign
	stateExponent
)

// tryReadRealNumber parses a floating point value with a character-level
// state machine. Termination is implicit: the first byte that cannot
// extend the number ends it and is left unconsumed. The accuracy matches
// that of coefficient*pow(10, exponent); values outside the range of E
// saturate per IEEE conversion rules.
func (p *Parser[E]) tryReadRealNumber(value *E, bytesToRead *int64) (bool, error) {
	state := stateInit
	var coefficient, number, divider float64
	var negative bool

	for *bytesToRead > 0 {
		ok, err := p.canRead()
		if err != nil {
			return false, err
		}
		if !ok {
			break
		}
		c := p.buffer[p.pos]

		switch state {
		case stateInit:
			// the number must start with a digit or a sign
			if isDigit(c) {
				state = stateIntegralPart
				number = float64(c - '0')
			} else if isSign(c) {
				state = stateSign
				negative = c == '-'
			} else {
				p.warnf("unexpected character ('%c') in a floating point value %s", c, p.fileInfo())
				return false, nil
			}
		case stateSign:
			// the sign must be followed by a digit
			if isDigit(c) {
				state = stateIntegralPart
				number = float64(c - '0')
			} else {
				p.warnf("a sign symbol is followed by an invalid character ('%c')"+
					" in a floating point value %s", c, p.fileInfo())
				return false, nil
			}
		case stateIntegralPart:
			if isDigit(c) {
				number = number*10 + float64(c-'0')
			} else if c == '.' {
				state = statePeriod
			} else if isE(c) {
				state = stateTheLetterE
				if negative {
					coefficient = -number
				} else {
					coefficient = number
				}
				number = 0
			} else {
				if negative {
					number = -number
				}
				*value = E(number)
				return true, nil
			}
		case statePeriod:
			if isDigit(c) {
				state = stateFractionalPart
				coefficient = number
				number = float64(c - '0')
				divider = 10
			} else {
				if negative {
					number = -number
				}
				*value = E(number)
				return true, nil
			}
		case stateFractionalPart:
			if isDigit(c) {
				number = number*10 + float64(c-'0')
				divider *= 10
			} else if isE(c) {
				state = stateTheLetterE
				coefficient += number / divider
				if negative {
					coefficient = -coefficient
				}
			} else {
				coefficient += number / divider
				if negative {
					coefficient = -coefficient
				}
				*value = E(coefficient)
				return true, nil
			}
		case stateTheLetterE:
			// an optional sign, then a non-empty run of digits
			if isDigit(c) {
				state = stateExponent
				negative = false
				number = float64(c - '0')
			} else if isSign(c) {
				state = stateExponentSign
				negative = c == '-'
			} else {
				p.warnf("an exponent symbol is followed by an invalid character ('%c')"+
					" in a floating point value %s", c, p.fileInfo())
				return false, nil
			}
		case stateExponentSign:
			if isDigit(c) {
				state = stateExponent
				number = float64(c - '0')
			} else {
				p.warnf("an exponent sign symbol is followed by an unexpected character ('%c')"+
					" in a floating point value %s", c, p.fileInfo())
				return false, nil
			}
		case stateExponent:
			if isDigit(c) {
				number = number*10 + float64(c-'0')
			} else {
				exponent := number
				if negative {
					exponent = -exponent
				}
				*value = E(coefficient * math.Pow(10, exponent))
				return true, nil
			}
		}

		p.pos++
		*bytesToRead--
	}

	// The budget or the input ran out. When the accumulated prefix already
	// forms a complete number, the end of input acts as the terminator.
	switch state {
	case stateIntegralPart, statePeriod:
		if negative {
			number = -number
		}
		*value = E(number)
		return true, nil
	case stateFractionalPart:
		coefficient += number / divider
		if negative {
			coefficient = -coefficient
		}
		*value = E(coefficient)
		return true, nil
	case stateExponent:
		exponent := number
		if negative {
			exponent = -exponent
		}
		*value = E(coefficient * math.Pow(10, exponent))
		return true, nil
	}

	p.warnf("exhausted all input expected for the current sequence"+
		" while reading a floating point value %s", p.fileInfo())
	return false, nil
}
