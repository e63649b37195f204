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
	"os"

	"github.com/pkg/errors"

	"github.com/mldata/ctfreader/ctfreader/index"
)

// Config collects the tunables of a Parser.
type Config struct {
	TraceLevel       TraceLevel
	MaxAllowedErrors int   // soft-error budget before the parser gives up
	ChunkSizeBytes   int64 // target chunk granule; non-positive yields a single chunk
	ChunkCacheSize   int   // number of decoded chunks kept resident; 0 disables caching
	SkipSequenceIDs  bool  // force the one-row-per-sequence interpretation
	NumRetries       int   // bound on I/O retries; non-positive means the default of 5
}

// DefaultNumRetries bounds retrying of transient I/O failures.
var DefaultNumRetries = 5

// Parser decodes a pipe-delimited text corpus into per-stream sample
// buffers, chunk by chunk. A Parser owns its file handle and read buffer
// exclusively and must not be mutated concurrently.
type Parser[E Element] struct {
	filename string
	file     *os.File

	streams        []StreamDescriptor
	aliasToID      map[string]int
	maxAliasLength int
	scratch        []byte

	index *index.Index
	cache *chunkCache[E]

	buffer          []byte
	bufferStart     int
	bufferEnd       int
	pos             int
	fileOffsetStart int64
	fileOffsetEnd   int64

	chunkSizeBytes   int64
	chunkCacheSize   int
	traceLevel       TraceLevel
	hadWarnings      bool
	numAllowedErrors int
	skipSequenceIDs  bool
	numRetries       int
}

// NewParser validates the stream declarations and prepares a parser for
// the given corpus file. Call Initialize before using it.
func NewParser[E Element](filename string, streams []StreamDescriptor, cfg Config) (*Parser[E], error) {
	if len(streams) == 0 {
		return nil, errors.New("at least one input stream must be declared")
	}

	p := &Parser[E]{
		filename:         filename,
		streams:          append([]StreamDescriptor(nil), streams...),
		aliasToID:        make(map[string]int, len(streams)),
		buffer:           make([]byte, BufferSize),
		chunkSizeBytes:   cfg.ChunkSizeBytes,
		chunkCacheSize:   cfg.ChunkCacheSize,
		traceLevel:       cfg.TraceLevel,
		numAllowedErrors: cfg.MaxAllowedErrors,
		skipSequenceIDs:  cfg.SkipSequenceIDs,
		numRetries:       cfg.NumRetries,
	}
	if p.numRetries <= 0 {
		p.numRetries = DefaultNumRetries
	}

	for i, stream := range streams {
		if stream.Alias == "" {
			return nil, errors.Errorf("input stream '%s' has an empty alias", stream.Name)
		}
		if stream.SampleDimension < 1 {
			return nil, errors.Errorf("input stream '%s' has a non-positive sample dimension", stream.Name)
		}
		if _, clash := p.aliasToID[stream.Alias]; clash {
			return nil, errors.Errorf("duplicate input stream alias ('%s')", stream.Alias)
		}
		p.aliasToID[stream.Alias] = i
		if len(stream.Alias) > p.maxAliasLength {
			p.maxAliasLength = len(stream.Alias)
		}
	}

	p.scratch = make([]byte, 0, p.maxAliasLength)

	return p, nil
}

// Initialize opens the corpus file, rejects UTF-16 input and runs the
// offset indexer. It is a no-op when called twice.
func (p *Parser[E]) Initialize() error {
	if p.index != nil {
		return nil
	}

	err := attempt(p.numRetries, func() error {
		var err error
		p.file, err = os.Open(p.filename)
		return err
	})
	if err != nil {
		return errors.Wrapf(err, "could not open the input file (%s)", p.filename)
	}

	utf16, err := hasUTF16ByteOrderMark(p.file)
	if err != nil {
		return errors.Wrapf(err, "could not read from the input file (%s)", p.filename)
	}
	if utf16 {
		return errors.Errorf("found a UTF-16 BOM at the beginning of the input file (%s), "+
			"UTF-16 encoding is currently not supported", p.filename)
	}

	indexer := index.NewIndexer(p.file, p.skipSequenceIDs, p.chunkSizeBytes)
	var idx *index.Index
	err = attempt(p.numRetries, func() error {
		var err error
		idx, err = indexer.Build()
		return err
	})
	if err != nil {
		return err
	}
	p.index = idx

	// it is still possible that the actual input data has no sequence
	// id column; the indexer has the final say
	p.skipSequenceIDs = !idx.HasSequenceIDs

	position, err := p.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return errors.Wrapf(err, "error retrieving the current position in the input file (%s)", p.filename)
	}
	p.fileOffsetStart = position
	p.fileOffsetEnd = position

	p.cache = newChunkCache[E](p.chunkCacheSize)

	return nil
}

// Close releases the file handle. If warnings were suppressed by the
// trace level, a summary notice is printed first.
func (p *Parser[E]) Close() error {
	p.printWarningNotification()
	if p.file == nil {
		return nil
	}
	err := p.file.Close()
	p.file = nil
	return err
}

// Index exposes the built offset index.
func (p *Parser[E]) Index() *index.Index {
	return p.index
}

// StreamDescriptions returns the declared input streams.
func (p *Parser[E]) StreamDescriptions() []StreamDescriptor {
	return append([]StreamDescriptor(nil), p.streams...)
}

// ChunkDescription summarises one chunk for the consumer.
type ChunkDescription struct {
	ID                int
	NumberOfSequences int
	NumberOfSamples   int
}

// ChunkDescriptions returns a summary of every chunk of the corpus.
func (p *Parser[E]) ChunkDescriptions() []ChunkDescription {
	result := make([]ChunkDescription, 0, len(p.index.Chunks))
	for i := range p.index.Chunks {
		chunk := &p.index.Chunks[i]
		result = append(result, ChunkDescription{
			ID:                chunk.ID,
			NumberOfSequences: chunk.NumberOfSequences,
			NumberOfSamples:   chunk.NumberOfSamples,
		})
	}
	return result
}

// SequencesForChunk returns a copy of the sequence descriptors of one chunk.
func (p *Parser[E]) SequencesForChunk(chunkID int) ([]index.SequenceDescriptor, error) {
	if chunkID < 0 || chunkID >= len(p.index.Chunks) {
		return nil, errors.Errorf("chunk id (%d) out of range: [0, %d]", chunkID, len(p.index.Chunks)-1)
	}
	return append([]index.SequenceDescriptor(nil), p.index.Chunks[chunkID].Sequences...), nil
}

// GetChunk returns a resident decoded chunk, loading and caching it on a
// miss. With caching disabled every call decodes afresh.
func (p *Parser[E]) GetChunk(chunkID int) (*DataChunk[E], error) {
	if p.index == nil {
		return nil, errors.New("the parser is not initialized")
	}
	if chunkID < 0 || chunkID >= len(p.index.Chunks) {
		return nil, errors.Errorf("chunk id (%d) out of range: [0, %d]", chunkID, len(p.index.Chunks)-1)
	}

	if chunk, found := p.cache.get(chunkID); found {
		return chunk, nil
	}

	descriptor := &p.index.Chunks[chunkID]
	chunk := &DataChunk[E]{
		id:     chunkID,
		parser: p,
	}

	err := attempt(p.numRetries, func() error {
		return p.loadChunk(chunk, descriptor)
	})
	if err != nil {
		return nil, err
	}

	p.cache.insert(chunkID, chunk)

	return chunk, nil
}

// loadChunk materialises all sequences of a chunk, in file order.
func (p *Parser[E]) loadChunk(chunk *DataChunk[E], descriptor *index.ChunkDescriptor) error {
	chunk.sequenceMap = make(map[uint64]sequenceBuffer[E], len(descriptor.Sequences))
	for i := range descriptor.Sequences {
		s := &descriptor.Sequences[i]
		sequence, err := p.loadSequence(!p.skipSequenceIDs, s)
		if err != nil {
			return err
		}
		chunk.sequenceMap[s.ID] = sequence
	}
	return nil
}

// loadSequence seeks to a sequence's byte range and decodes exactly its
// declared number of rows, never reading past the range.
func (p *Parser[E]) loadSequence(verifyID bool, s *index.SequenceDescriptor) (sequenceBuffer[E], error) {
	fileOffset := s.FileOffset

	if fileOffset < p.fileOffsetStart || fileOffset > p.fileOffsetEnd {
		if err := p.setFileOffset(fileOffset); err != nil {
			return nil, err
		}
	}

	bufferOffset := fileOffset - p.fileOffsetStart
	p.pos = p.bufferStart + int(bufferOffset)
	bytesToRead := s.ByteSize

	if verifyID {
		var id uint64
		ok, err := p.tryReadUint64(&id, &bytesToRead)
		if err != nil {
			return nil, err
		}
		if !ok || id != s.ID {
			p.printWarningNotification()
			return nil, fmt.Errorf("did not find the expected sequence (id = %d) %s", s.ID, p.fileInfo())
		}
	}

	sequence := make(sequenceBuffer[E], 0, len(p.streams))
	for _, stream := range p.streams {
		if stream.Storage == Dense {
			sequence = append(sequence, &inputBuffer[E]{
				values: make([]E, 0, stream.SampleDimension*s.NumberOfSamples),
			})
		} else {
			sequence = append(sequence, &inputBuffer[E]{sparse: true})
		}
	}

	numRowsRead, expectedRowCount := 0, s.NumberOfSamples
	for i := 0; i < expectedRowCount; i++ {
		ok, err := p.tryReadRow(sequence, &bytesToRead)
		if err != nil {
			return nil, err
		}
		if ok {
			numRowsRead++
		} else {
			if err := p.countError(); err != nil {
				return nil, err
			}
			p.warnf("could not read a row (# %d) while loading sequence (id = %d) %s",
				i+1, s.ID, p.fileInfo())
		}

		if bytesToRead == 0 && numRowsRead < expectedRowCount {
			p.warnf("exhausted all input expected for the current sequence (id = %d) %s,"+
				" but only read %d out of %d expected rows",
				s.ID, p.fileInfo(), numRowsRead, expectedRowCount)
			break
		}
	}

	// double check whether there are empty or over-full input streams
	hasEmptyInputs, hasDuplicateInputs := false, false
	for i, input := range sequence {
		if input.numberOfSamples == 0 {
			log.Errorf("input ('%s') is empty in sequence (id = %d) %s",
				p.streams[i].Name, s.ID, p.fileInfo())
			hasEmptyInputs = true
		}

		if input.numberOfSamples > expectedRowCount {
			hasDuplicateInputs = true
			p.warnf("input ('%s') contains more samples than expected (%d vs. %d)"+
				" for sequence (id = %d) %s",
				p.streams[i].Name, input.numberOfSamples, expectedRowCount, s.ID, p.fileInfo())
		}
	}

	if hasEmptyInputs {
		p.printWarningNotification()
		return nil, errors.Wrapf(ErrEmptyInput, "sequence (id = %d) in the input file (%s)", s.ID, p.filename)
	}

	if hasDuplicateInputs {
		if err := p.countError(); err != nil {
			return nil, err
		}
	}

	if p.traceLevel >= Info {
		log.Infof("finished loading sequence (id = %d) %s, successfully read %d out of expected %d rows",
			s.ID, p.fileInfo(), numRowsRead, expectedRowCount)
	}

	return sequence, nil
}

// hasUTF16ByteOrderMark probes the first two bytes of the file and leaves
// the position untouched for the indexer.
func hasUTF16ByteOrderMark(file *os.File) (bool, error) {
	var bom [2]byte
	n, err := io.ReadFull(file, bom[:])
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return false, err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return false, err
	}
	return n == 2 && ((bom[0] == 0xFF && bom[1] == 0xFE) || (bom[0] == 0xFE && bom[1] == 0xFF)), nil
}

// attempt retries f up to numRetries times, but only for transient I/O
// failures; parse-level failures are returned immediately.
func attempt(numRetries int, f func() error) error {
	var err error
	for i := 0; i < numRetries; i++ {
		if err = f(); err == nil {
			return nil
		}
		if !isTransient(err) {
			return err
		}
	}
	return err
}

func isTransient(err error) bool {
	var pathErr *os.PathError
	return errors.As(err, &pathErr)
}
