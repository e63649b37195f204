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

// Package vdict provides a tagged heterogeneous value and a string-keyed
// dictionary of such values, with a binary round-trip used to persist
// reader configuration and model metadata.
package vdict

import "fmt"

// ValueType tags the variant held by a Value.
type ValueType uint8

const (
	// None marks the zero Value.
	None ValueType = iota
	Bool
	UInt
	Float32
	Float64
	WString
	Shape
	Vector
	DictType
	TensorType
)

var typeNames = []string{"none", "bool", "uint", "float32", "float64",
	"wstring", "shape", "vector", "dict", "tensor"}

func (t ValueType) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("valuetype(%d)", uint8(t))
}

// Tensor is a shaped array of float32 or float64 elements.
type Tensor struct {
	ElemType ValueType // Float32 or Float64
	Shape    []uint64
	F32      []float32
	F64      []float64
}

// NumElements returns the total element count of the shape.
func (t *Tensor) NumElements() int {
	n := 1
	for _, d := range t.Shape {
		n *= int(d)
	}
	return n
}

// Equal compares shapes and element sequences.
func (t *Tensor) Equal(other *Tensor) bool {
	if t.ElemType != other.ElemType || len(t.Shape) != len(other.Shape) {
		return false
	}
	for i, d := range t.Shape {
		if other.Shape[i] != d {
			return false
		}
	}
	if t.ElemType == Float32 {
		if len(t.F32) != len(other.F32) {
			return false
		}
		for i, v := range t.F32 {
			if other.F32[i] != v {
				return false
			}
		}
		return true
	}
	if len(t.F64) != len(other.F64) {
		return false
	}
	for i, v := range t.F64 {
		if other.F64[i] != v {
			return false
		}
	}
	return true
}

// Dict is a dictionary of named values.
type Dict map[string]Value

// Value is a sum of the supported variants. The zero Value has type None.
type Value struct {
	typ ValueType

	b      bool
	u      uint64
	f32    float32
	f64    float64
	s      string
	shape  []uint64
	vec    []Value
	dict   Dict
	tensor *Tensor
}

// Type returns the variant tag.
func (v Value) Type() ValueType { return v.typ }

func NewBool(b bool) Value       { return Value{typ: Bool, b: b} }
func NewUInt(u uint64) Value     { return Value{typ: UInt, u: u} }
func NewFloat32(f float32) Value { return Value{typ: Float32, f32: f} }
func NewFloat64(f float64) Value { return Value{typ: Float64, f64: f} }
func NewWString(s string) Value  { return Value{typ: WString, s: s} }
func NewShape(s []uint64) Value  { return Value{typ: Shape, shape: s} }
func NewVector(vs []Value) Value { return Value{typ: Vector, vec: vs} }
func NewDict(d Dict) Value       { return Value{typ: DictType, dict: d} }
func NewTensor(t *Tensor) Value  { return Value{typ: TensorType, tensor: t} }

func (v Value) Bool() bool       { return v.b }
func (v Value) UInt() uint64     { return v.u }
func (v Value) Float32() float32 { return v.f32 }
func (v Value) Float64() float64 { return v.f64 }
func (v Value) WString() string  { return v.s }
func (v Value) Shape() []uint64  { return v.shape }
func (v Value) Vector() []Value  { return v.vec }
func (v Value) Dict() Dict       { return v.dict }
func (v Value) Tensor() *Tensor  { return v.tensor }

// Equal compares two values variant by variant. Tensors compare their
// element sequences.
func (v Value) Equal(other Value) bool {
	if v.typ != other.typ {
		return false
	}
	switch v.typ {
	case None:
		return true
	case Bool:
		return v.b == other.b
	case UInt:
		return v.u == other.u
	case Float32:
		return v.f32 == other.f32
	case Float64:
		return v.f64 == other.f64
	case WString:
		return v.s == other.s
	case Shape:
		if len(v.shape) != len(other.shape) {
			return false
		}
		for i, d := range v.shape {
			if other.shape[i] != d {
				return false
			}
		}
		return true
	case Vector:
		if len(v.vec) != len(other.vec) {
			return false
		}
		for i, e := range v.vec {
			if !e.Equal(other.vec[i]) {
				return false
			}
		}
		return true
	case DictType:
		return v.dict.Equal(other.dict)
	case TensorType:
		return v.tensor.Equal(other.tensor)
	}
	return false
}

// Equal compares two dictionaries key by key.
func (d Dict) Equal(other Dict) bool {
	if len(d) != len(other) {
		return false
	}
	for k, v := range d {
		w, found := other[k]
		if !found || !v.Equal(w) {
			return false
		}
	}
	return true
}
