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

// inputBuffer accumulates the decoded samples of one stream of one
// sequence. Dense and sparse layouts share the struct; per-sample
// dispatch is a single branch on the sparse flag.
//
// Dense invariant: len(values) == numberOfSamples * SampleDimension.
// Sparse invariant: len(values) == len(indices) == sum(nnzCounts) == totalNnz
// and len(nnzCounts) == numberOfSamples.
type inputBuffer[E Element] struct {
	sparse          bool
	values          []E
	numberOfSamples int

	// sparse layout only
	indices   []int32
	nnzCounts []int32
	totalNnz  int32
}

// sequenceBuffer holds one input buffer per declared stream,
// ordered by stream index.
type sequenceBuffer[E Element] []*inputBuffer[E]

// SequenceData is one stream's slice of a decoded sequence, handed out to
// the consumer. It keeps a reference to the owning chunk, so a chunk stays
// alive until the cache has evicted it and every emitted handle is gone.
type SequenceData[E Element] struct {
	ID              uint64
	StreamIndex     int
	Storage         StorageType
	SampleDimension int
	NumberOfSamples int

	// Values holds the decoded elements. For a dense stream its length is
	// NumberOfSamples * SampleDimension; for a sparse stream it is TotalNnz.
	Values []E

	// Sparse layout only.
	Indices   []int32
	NnzCounts []int32
	TotalNnz  int32

	chunk *DataChunk[E]
}

// Chunk returns the chunk this handle shares ownership of.
func (d *SequenceData[E]) Chunk() *DataChunk[E] { return d.chunk }

// DataChunk is a fully decoded chunk: a mapping of sequence ids to their
// decoded per-stream buffers. Once the loader has finished, a chunk is
// read-only.
type DataChunk[E Element] struct {
	id          int
	sequenceMap map[uint64]sequenceBuffer[E]

	// how many times GetSequence was called; once it reaches the number of
	// sequences in the chunk, the chunk is a preferred eviction victim
	sequenceRequestCount int

	parser *Parser[E]
}

// ID returns the chunk id.
func (c *DataChunk[E]) ID() int { return c.id }

// NumberOfSequences returns the number of decoded sequences in the chunk.
func (c *DataChunk[E]) NumberOfSequences() int { return len(c.sequenceMap) }

// GetSequence returns the per-stream data of one sequence, ordered by
// stream index. Each returned handle shares ownership of the chunk.
func (c *DataChunk[E]) GetSequence(sequenceID uint64) ([]*SequenceData[E], error) {
	sequence, found := c.sequenceMap[sequenceID]
	if !found {
		return nil, fmt.Errorf("sequence (id = %d) is not present in chunk %d", sequenceID, c.id)
	}
	c.sequenceRequestCount++

	result := make([]*SequenceData[E], 0, len(c.parser.streams))
	for j, stream := range c.parser.streams {
		input := sequence[j]
		data := &SequenceData[E]{
			ID:              sequenceID,
			StreamIndex:     j,
			Storage:         stream.Storage,
			SampleDimension: stream.SampleDimension,
			NumberOfSamples: input.numberOfSamples,
			Values:          input.values,
			chunk:           c,
		}
		if input.sparse {
			data.Indices = input.indices
			data.NnzCounts = input.nnzCounts
			data.TotalNnz = input.totalNnz
		}
		result = append(result, data)
	}
	return result, nil
}
