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

// chunkCache is a bounded map of chunk id to decoded chunk. A capacity of
// zero disables caching, in which case every lookup misses and loads again.
type chunkCache[E Element] struct {
	capacity int
	chunks   map[int]*DataChunk[E]
}

func newChunkCache[E Element](capacity int) *chunkCache[E] {
	return &chunkCache[E]{
		capacity: capacity,
		chunks:   make(map[int]*DataChunk[E], capacity),
	}
}

func (cc *chunkCache[E]) get(chunkID int) (*DataChunk[E], bool) {
	chunk, found := cc.chunks[chunkID]
	return chunk, found
}

// insert stores a freshly decoded chunk. When the cache is full, the
// resident chunk with the fewest sequences remaining to serve is evicted:
// consumers that have drained a chunk will not ask for it again, so it is
// the cheapest one to drop.
func (cc *chunkCache[E]) insert(chunkID int, chunk *DataChunk[E]) {
	if cc.capacity == 0 {
		return
	}

	if len(cc.chunks) == cc.capacity {
		victimID := -1
		minSequencesLeft := int(^uint(0) >> 1)
		for id, cached := range cc.chunks {
			sequencesLeft := len(cached.sequenceMap) - cached.sequenceRequestCount
			if sequencesLeft < minSequencesLeft {
				minSequencesLeft = sequencesLeft
				victimID = id
			}
		}
		delete(cc.chunks, victimID)
	}

	cc.chunks[chunkID] = chunk
}

func (cc *chunkCache[E]) len() int {
	return len(cc.chunks)
}
