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

// Package index builds the byte-offset index of a text corpus: a one-pass
// scan over the file that records the byte range and row count of every
// sequence and groups consecutive sequences into fixed-size chunks.
package index

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/shenwei356/go-logging"
	"github.com/zeebo/wyhash"
)

var log = logging.MustGetLogger("ctf")

// bufferSize is the size of the scanning buffer.
var bufferSize = 65536

const keyHashSeed = 0x2b7e151628aed2a6

// SequenceDescriptor locates one sequence inside the corpus file.
// Within a chunk, descriptors are ordered by FileOffset and their byte
// ranges do not overlap.
type SequenceDescriptor struct {
	ID              uint64
	Key             string // textual sequence key; the decimal id when ids are embedded
	KeyHash         uint64 // wyhash of the raw key bytes
	ChunkID         int
	FileOffset      int64
	ByteSize        int64
	NumberOfSamples int // row count
	IsValid         bool
}

// ChunkDescriptor describes a contiguous run of sequences that is loaded
// and cached as a unit.
type ChunkDescriptor struct {
	ID                int
	NumberOfSequences int
	NumberOfSamples   int // sum of row counts across sequences
	Sequences         []SequenceDescriptor
}

// Index is the outcome of a Build: the ordered chunk list plus the
// verdict on whether rows carry embedded sequence ids.
type Index struct {
	HasSequenceIDs bool
	Chunks         []ChunkDescriptor
}

// NumberOfSequences returns the total sequence count across all chunks.
func (idx *Index) NumberOfSequences() int {
	var n int
	for i := range idx.Chunks {
		n += idx.Chunks[i].NumberOfSequences
	}
	return n
}

// Indexer scans a corpus file once and produces an Index.
type Indexer struct {
	file            *os.File
	skipSequenceIDs bool
	chunkSizeBytes  int64
}

// NewIndexer creates an indexer over an open corpus file.
// skipSequenceIDs forces the one-row-per-sequence interpretation without
// probing the file. A non-positive chunkSizeBytes produces a single chunk.
func NewIndexer(file *os.File, skipSequenceIDs bool, chunkSizeBytes int64) *Indexer {
	if chunkSizeBytes <= 0 {
		chunkSizeBytes = math.MaxInt64
	}
	return &Indexer{
		file:            file,
		skipSequenceIDs: skipSequenceIDs,
		chunkSizeBytes:  chunkSizeBytes,
	}
}

// pendingSequence accumulates rows of the sequence currently being scanned.
type pendingSequence struct {
	id      uint64
	key     []byte
	start   int64
	size    int64
	rows    int
	started bool
}

// chunkBuilder groups closed sequences into chunks of at least
// chunkSizeBytes, closing a chunk only on a sequence boundary.
type chunkBuilder struct {
	chunkSizeBytes int64
	chunks         []ChunkDescriptor
	sequences      []SequenceDescriptor
	bytes          int64
	samples        int
	seenKeys       map[uint64]struct{}
}

func (b *chunkBuilder) add(s SequenceDescriptor) {
	if _, seen := b.seenKeys[s.KeyHash]; seen {
		log.Warningf("duplicate sequence key (%s) at offset %d", s.Key, s.FileOffset)
		s.IsValid = false
	}
	b.seenKeys[s.KeyHash] = struct{}{}

	s.ChunkID = len(b.chunks)
	b.sequences = append(b.sequences, s)
	b.bytes += s.ByteSize
	b.samples += s.NumberOfSamples

	if b.bytes >= b.chunkSizeBytes {
		b.closeChunk()
	}
}

func (b *chunkBuilder) closeChunk() {
	if len(b.sequences) == 0 {
		return
	}
	b.chunks = append(b.chunks, ChunkDescriptor{
		ID:                len(b.chunks),
		NumberOfSequences: len(b.sequences),
		NumberOfSamples:   b.samples,
		Sequences:         b.sequences,
	})
	b.sequences = nil
	b.bytes = 0
	b.samples = 0
}

// Build scans the file from the beginning and produces the index.
// The file position is left at the end of the file.
func (ix *Indexer) Build() (*Index, error) {
	if _, err := ix.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("error seeking to the beginning of the input file (%s): %w",
			ix.file.Name(), err)
	}

	r := bufio.NewReaderSize(ix.file, bufferSize)
	builder := &chunkBuilder{
		chunkSizeBytes: ix.chunkSizeBytes,
		seenKeys:       make(map[uint64]struct{}, 1024),
	}

	hasIDs := false
	firstLine := true
	var ordinal uint64 // sequence id for files without embedded ids
	var offset int64
	var pending pendingSequence

	closePending := func() {
		if !pending.started {
			return
		}
		builder.add(SequenceDescriptor{
			ID:              pending.id,
			Key:             string(pending.key),
			KeyHash:         wyhash.Hash(pending.key, keyHashSeed),
			FileOffset:      pending.start,
			ByteSize:        pending.size,
			NumberOfSamples: pending.rows,
			IsValid:         true,
		})
		pending = pendingSequence{}
	}

	for {
		frag, err := r.ReadSlice('\n')
		size := int64(len(frag))
		head := frag
		if err == bufio.ErrBufferFull {
			// A row longer than the buffer; only the head carries the
			// prefix. Further reads recycle the scanning buffer, so the
			// head must be copied out first.
			head = append([]byte(nil), frag[:min(len(frag), 32)]...)
			for err == bufio.ErrBufferFull {
				var rest []byte
				rest, err = r.ReadSlice('\n')
				size += int64(len(rest))
			}
		}
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("error reading the input file (%s): %w", ix.file.Name(), err)
		}
		if size == 0 {
			break // clean end of file
		}

		if firstLine {
			firstLine = false
			if !ix.skipSequenceIDs {
				_, _, hasIDs = parseSequencePrefix(head)
			}
		}

		if hasIDs {
			id, key, ok := parseSequencePrefix(head)
			switch {
			case !ok && pending.started:
				// a row without a readable id (e.g. a blank line) stays
				// inside the enclosing sequence; when decoded, a row that
				// yields no sample is charged against the error budget
				pending.size += size
				pending.rows++
			case !ok:
				return nil, fmt.Errorf("expected a sequence id at offset %d in the input file (%s)",
					offset, ix.file.Name())
			default:
				if pending.started && id != pending.id {
					closePending()
				}
				if !pending.started {
					pending = pendingSequence{
						id:      id,
						key:     key,
						start:   offset,
						started: true,
					}
				}
				pending.size += size
				pending.rows++
			}
		} else {
			// every row is its own sequence
			closePending()
			key := []byte(fmt.Sprintf("%d", ordinal))
			pending = pendingSequence{
				id:      ordinal,
				key:     key,
				start:   offset,
				size:    size,
				rows:    1,
				started: true,
			}
			ordinal++
		}

		offset += size
		if err == io.EOF {
			break
		}
	}

	closePending()
	builder.closeChunk()

	if offset == 0 {
		return nil, fmt.Errorf("the input file (%s) is empty", ix.file.Name())
	}

	return &Index{
		HasSequenceIDs: hasIDs,
		Chunks:         builder.chunks,
	}, nil
}

// parseSequencePrefix extracts the leading decimal sequence id of a row.
// The id must consist of at least one digit and stop on a separator or
// the first name prefix.
func parseSequencePrefix(line []byte) (uint64, []byte, bool) {
	var id uint64
	var n int
	for n < len(line) {
		c := line[n]
		if c < '0' || c > '9' {
			break
		}
		next := id*10 + uint64(c-'0')
		if next < id {
			return 0, nil, false // overflow
		}
		id = next
		n++
	}
	if n == 0 || n >= len(line) {
		return 0, nil, false
	}
	switch line[n] {
	case ' ', '\t', '|', '\r', '\n':
		// copy the key out of the scanning buffer
		return id, append([]byte(nil), line[:n]...), true
	}
	return 0, nil, false
}
