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

package vdict

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

var be = binary.BigEndian

// Version is written in front of every serialized value.
var Version uint64 = 1

// ErrUnsupportedType means the stream carries a variant tag this version
// does not know.
var ErrUnsupportedType = errors.New("vdict: unsupported value type")

// ErrBrokenStream means the stream ended in the middle of a value.
var ErrBrokenStream = errors.New("vdict: broken stream")

// Write serializes the value: a version, the variant tag, then the
// length-prefixed payload.
func (v Value) Write(w io.Writer) error {
	buf := make([]byte, 9)
	be.PutUint64(buf[:8], Version)
	buf[8] = uint8(v.typ)
	if _, err := w.Write(buf); err != nil {
		return err
	}
	return v.writePayload(w, buf)
}

func (v Value) writePayload(w io.Writer, buf []byte) error {
	var err error
	switch v.typ {
	case None:
	case Bool:
		buf[0] = 0
		if v.b {
			buf[0] = 1
		}
		_, err = w.Write(buf[:1])
	case UInt:
		be.PutUint64(buf[:8], v.u)
		_, err = w.Write(buf[:8])
	case Float32:
		be.PutUint32(buf[:4], math.Float32bits(v.f32))
		_, err = w.Write(buf[:4])
	case Float64:
		be.PutUint64(buf[:8], math.Float64bits(v.f64))
		_, err = w.Write(buf[:8])
	case WString:
		err = writeString(w, buf, v.s)
	case Shape:
		err = writeShape(w, buf, v.shape)
	case Vector:
		be.PutUint32(buf[:4], uint32(len(v.vec)))
		if _, err = w.Write(buf[:4]); err != nil {
			return err
		}
		for _, e := range v.vec {
			if err = e.Write(w); err != nil {
				return err
			}
		}
	case DictType:
		err = v.dict.Write(w)
	case TensorType:
		err = v.tensor.write(w, buf)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedType, v.typ)
	}
	return err
}

// Read deserializes one value written by Write.
func Read(r io.Reader) (Value, error) {
	buf := make([]byte, 9)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Value{}, brokenOr(err)
	}
	// the version in front of each value is informational, only the tag
	// steers decoding
	typ := ValueType(buf[8])

	var v Value
	var err error
	switch typ {
	case None:
		v = Value{}
	case Bool:
		if _, err = io.ReadFull(r, buf[:1]); err == nil {
			v = NewBool(buf[0] == 1)
		}
	case UInt:
		if _, err = io.ReadFull(r, buf[:8]); err == nil {
			v = NewUInt(be.Uint64(buf[:8]))
		}
	case Float32:
		if _, err = io.ReadFull(r, buf[:4]); err == nil {
			v = NewFloat32(math.Float32frombits(be.Uint32(buf[:4])))
		}
	case Float64:
		if _, err = io.ReadFull(r, buf[:8]); err == nil {
			v = NewFloat64(math.Float64frombits(be.Uint64(buf[:8])))
		}
	case WString:
		var s string
		if s, err = readString(r, buf); err == nil {
			v = NewWString(s)
		}
	case Shape:
		var shape []uint64
		if shape, err = readShape(r, buf); err == nil {
			v = NewShape(shape)
		}
	case Vector:
		if _, err = io.ReadFull(r, buf[:4]); err != nil {
			break
		}
		size := int(be.Uint32(buf[:4]))
		vec := make([]Value, 0, size)
		for i := 0; i < size; i++ {
			var e Value
			if e, err = Read(r); err != nil {
				break
			}
			vec = append(vec, e)
		}
		if err == nil {
			v = NewVector(vec)
		}
	case DictType:
		var d Dict
		if d, err = ReadDict(r); err == nil {
			v = NewDict(d)
		}
	case TensorType:
		var t *Tensor
		if t, err = readTensor(r, buf); err == nil {
			v = NewTensor(t)
		}
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedType, typ)
	}
	if err != nil {
		return Value{}, brokenOr(err)
	}
	return v, nil
}

// Write serializes the dictionary: a version, the entry count, then the
// key/value pairs.
func (d Dict) Write(w io.Writer) error {
	buf := make([]byte, 12)
	be.PutUint64(buf[:8], Version)
	be.PutUint32(buf[8:12], uint32(len(d)))
	if _, err := w.Write(buf[:12]); err != nil {
		return err
	}
	for k, v := range d {
		if err := writeString(w, buf, k); err != nil {
			return err
		}
		if err := v.Write(w); err != nil {
			return err
		}
	}
	return nil
}

// ReadDict deserializes a dictionary written by Dict.Write.
func ReadDict(r io.Reader) (Dict, error) {
	buf := make([]byte, 12)
	if _, err := io.ReadFull(r, buf[:12]); err != nil {
		return nil, brokenOr(err)
	}
	size := int(be.Uint32(buf[8:12]))
	d := make(Dict, size)
	for i := 0; i < size; i++ {
		k, err := readString(r, buf)
		if err != nil {
			return nil, err
		}
		v, err := Read(r)
		if err != nil {
			return nil, err
		}
		d[k] = v
	}
	return d, nil
}

func (t *Tensor) write(w io.Writer, buf []byte) error {
	buf[0] = uint8(t.ElemType)
	if _, err := w.Write(buf[:1]); err != nil {
		return err
	}
	if err := writeShape(w, buf, t.Shape); err != nil {
		return err
	}
	if t.ElemType == Float32 {
		for _, v := range t.F32 {
			be.PutUint32(buf[:4], math.Float32bits(v))
			if _, err := w.Write(buf[:4]); err != nil {
				return err
			}
		}
		return nil
	}
	for _, v := range t.F64 {
		be.PutUint64(buf[:8], math.Float64bits(v))
		if _, err := w.Write(buf[:8]); err != nil {
			return err
		}
	}
	return nil
}

func readTensor(r io.Reader, buf []byte) (*Tensor, error) {
	if _, err := io.ReadFull(r, buf[:1]); err != nil {
		return nil, err
	}
	elemType := ValueType(buf[0])
	if elemType != Float32 && elemType != Float64 {
		return nil, fmt.Errorf("%w: tensor of %s", ErrUnsupportedType, elemType)
	}
	shape, err := readShape(r, buf)
	if err != nil {
		return nil, err
	}
	t := &Tensor{ElemType: elemType, Shape: shape}
	n := t.NumElements()
	if elemType == Float32 {
		t.F32 = make([]float32, 0, n)
		for i := 0; i < n; i++ {
			if _, err := io.ReadFull(r, buf[:4]); err != nil {
				return nil, err
			}
			t.F32 = append(t.F32, math.Float32frombits(be.Uint32(buf[:4])))
		}
		return t, nil
	}
	t.F64 = make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if _, err := io.ReadFull(r, buf[:8]); err != nil {
			return nil, err
		}
		t.F64 = append(t.F64, math.Float64frombits(be.Uint64(buf[:8])))
	}
	return t, nil
}

func writeString(w io.Writer, buf []byte, s string) error {
	be.PutUint32(buf[:4], uint32(len(s)))
	if _, err := w.Write(buf[:4]); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader, buf []byte) (string, error) {
	if _, err := io.ReadFull(r, buf[:4]); err != nil {
		return "", err
	}
	b := make([]byte, int(be.Uint32(buf[:4])))
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func writeShape(w io.Writer, buf []byte, shape []uint64) error {
	be.PutUint32(buf[:4], uint32(len(shape)))
	if _, err := w.Write(buf[:4]); err != nil {
		return err
	}
	for _, d := range shape {
		be.PutUint64(buf[:8], d)
		if _, err := w.Write(buf[:8]); err != nil {
			return err
		}
	}
	return nil
}

func readShape(r io.Reader, buf []byte) ([]uint64, error) {
	if _, err := io.ReadFull(r, buf[:4]); err != nil {
		return nil, err
	}
	n := int(be.Uint32(buf[:4]))
	shape := make([]uint64, 0, n)
	for i := 0; i < n; i++ {
		if _, err := io.ReadFull(r, buf[:8]); err != nil {
			return nil, err
		}
		shape = append(shape, be.Uint64(buf[:8]))
	}
	return shape, nil
}

func brokenOr(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return ErrBrokenStream
	}
	return err
}
