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

package index

import (
	"github.com/rdleal/intervalst/interval"
)

// Location names the sequence and chunk owning a byte of the corpus file.
type Location struct {
	SequenceID uint64
	ChunkID    int
}

// Locator answers "which sequence contains this byte offset" queries over
// a built index.
type Locator struct {
	tree *interval.SearchTree[Location, int64]
}

// NewLocator builds a locator from the byte ranges of all sequences.
func NewLocator(idx *Index) *Locator {
	cmpFn := func(x, y int64) int {
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	tree := interval.NewSearchTree[Location](cmpFn)
	for i := range idx.Chunks {
		chunk := &idx.Chunks[i]
		for _, s := range chunk.Sequences {
			tree.Insert(s.FileOffset, s.FileOffset+s.ByteSize,
				Location{SequenceID: s.ID, ChunkID: chunk.ID})
		}
	}
	return &Locator{tree: tree}
}

// Locate maps an absolute byte offset to the owning sequence.
func (l *Locator) Locate(offset int64) (Location, bool) {
	return l.tree.AnyIntersection(offset, offset+1)
}
