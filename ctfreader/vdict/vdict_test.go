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
	"bytes"
	"testing"
)

func roundTrip(t *testing.T, v Value) Value {
	t.Helper()
	var buf bytes.Buffer
	if err := v.Write(&buf); err != nil {
		t.Fatalf("%s", err)
	}
	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("%s", err)
	}
	return got
}

func TestValueRoundTrip(t *testing.T) {
	values := []Value{
		NewBool(true),
		NewBool(false),
		NewUInt(1<<63 + 42),
		NewFloat32(-0.5),
		NewFloat64(3.14159265358979),
		NewWString("a reader config with non-ASCII bytes: Δθ"),
		NewWString(""),
		NewShape([]uint64{28, 28, 3}),
		NewShape(nil),
		NewVector([]Value{NewUInt(1), NewWString("two"), NewBool(true)}),
		NewVector(nil),
		NewTensor(&Tensor{
			ElemType: Float32,
			Shape:    []uint64{2, 2},
			F32:      []float32{0.5, -1.5, 2.5, -3.5},
		}),
		NewTensor(&Tensor{
			ElemType: Float64,
			Shape:    []uint64{3},
			F64:      []float64{1e-8, 0, -1e8},
		}),
	}

	for _, v := range values {
		got := roundTrip(t, v)
		if !got.Equal(v) {
			t.Errorf("%s: round trip mismatch", v.Type())
		}
	}
}

func TestDictRoundTrip(t *testing.T) {
	d := Dict{
		"epochs":  NewUInt(10),
		"lr":      NewFloat64(0.001),
		"name":    NewWString("model"),
		"shape":   NewShape([]uint64{100, 10}),
		"nested":  NewDict(Dict{"inner": NewBool(true)}),
		"weights": NewTensor(&Tensor{ElemType: Float32, Shape: []uint64{2}, F32: []float32{1, 2}}),
	}

	var buf bytes.Buffer
	if err := d.Write(&buf); err != nil {
		t.Fatalf("%s", err)
	}
	got, err := ReadDict(&buf)
	if err != nil {
		t.Fatalf("%s", err)
	}
	if !got.Equal(d) {
		t.Fatal("dictionary round trip mismatch")
	}
}

func TestValueEquality(t *testing.T) {
	if NewUInt(1).Equal(NewUInt(2)) {
		t.Error("distinct uints should not be equal")
	}
	if NewUInt(1).Equal(NewFloat64(1)) {
		t.Error("values of different types should not be equal")
	}
	a := NewTensor(&Tensor{ElemType: Float32, Shape: []uint64{2}, F32: []float32{1, 2}})
	b := NewTensor(&Tensor{ElemType: Float32, Shape: []uint64{2}, F32: []float32{1, 3}})
	if a.Equal(b) {
		t.Error("tensors with different elements should not be equal")
	}
	c := NewTensor(&Tensor{ElemType: Float32, Shape: []uint64{1, 2}, F32: []float32{1, 2}})
	if a.Equal(c) {
		t.Error("tensors with different shapes should not be equal")
	}
}

func TestBrokenStream(t *testing.T) {
	var buf bytes.Buffer
	if err := NewShape([]uint64{1, 2, 3}).Write(&buf); err != nil {
		t.Fatalf("%s", err)
	}
	truncated := bytes.NewReader(buf.Bytes()[:buf.Len()-4])
	if _, err := Read(truncated); err != ErrBrokenStream {
		t.Fatalf("expected the broken stream error, result: %v", err)
	}
}
