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
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"os"
)

var be = binary.BigEndian

// Magic number for checking the file format.
var Magic = [8]byte{'.', 'c', 't', 'f', 'i', 'n', 'd', 'x'}

// IndexFileExt is the file extension of the sidecar index file.
var IndexFileExt = ".ctx"

// MainVersion is used for checking compatibility.
var MainVersion uint8 = 0

// MinorVersion is less important.
var MinorVersion uint8 = 1

// ErrInvalidFileFormat means invalid binary format.
var ErrInvalidFileFormat = errors.New("corpus index: invalid binary format")

// ErrBrokenFile means the file is not complete.
var ErrBrokenFile = errors.New("corpus index: broken file")

// ErrVersionMismatch means version mismatch between the file and the program.
var ErrVersionMismatch = errors.New("corpus index: version mismatch")

// Write saves the index to a sidecar file, so reopening a large corpus
// can skip the scan.
func (idx *Index) Write(file string) error {
	fh, err := os.Create(file)
	if err != nil {
		return err
	}
	w := bufio.NewWriterSize(fh, bufferSize)

	// 8-byte magic number
	if err = binary.Write(w, be, Magic); err != nil {
		return err
	}

	// 8-byte meta info, only 2 bytes used and the rest is preserved
	if err = binary.Write(w, be, [8]uint8{MainVersion, MinorVersion}); err != nil {
		return err
	}

	buf := make([]byte, 40)

	var flags uint8
	if idx.HasSequenceIDs {
		flags = 1
	}
	buf[0] = flags
	be.PutUint32(buf[1:5], uint32(len(idx.Chunks)))
	if _, err = w.Write(buf[:5]); err != nil {
		return err
	}

	for i := range idx.Chunks {
		chunk := &idx.Chunks[i]
		be.PutUint32(buf[:4], uint32(len(chunk.Sequences)))
		if _, err = w.Write(buf[:4]); err != nil {
			return err
		}

		for _, s := range chunk.Sequences {
			be.PutUint64(buf[:8], s.ID)
			be.PutUint64(buf[8:16], s.KeyHash)
			be.PutUint64(buf[16:24], uint64(s.FileOffset))
			be.PutUint64(buf[24:32], uint64(s.ByteSize))
			be.PutUint32(buf[32:36], uint32(s.NumberOfSamples))
			if s.IsValid {
				buf[36] = 1
			} else {
				buf[36] = 0
			}
			be.PutUint16(buf[37:39], uint16(len(s.Key)))
			if _, err = w.Write(buf[:39]); err != nil {
				return err
			}
			if _, err = w.Write([]byte(s.Key)); err != nil {
				return err
			}
		}
	}

	if err = w.Flush(); err != nil {
		return err
	}
	return fh.Close()
}

// Read loads an index written by Write, validating the magic number and
// the main version.
func Read(file string) (*Index, error) {
	fh, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	r := bufio.NewReaderSize(fh, bufferSize)
	buf := make([]byte, 40)

	// check the magic number
	if n, _ := io.ReadFull(r, buf[:8]); n < 8 {
		return nil, ErrBrokenFile
	}
	for i := 0; i < 8; i++ {
		if Magic[i] != buf[i] {
			return nil, ErrInvalidFileFormat
		}
	}

	// check compatibility
	if n, _ := io.ReadFull(r, buf[:8]); n < 8 {
		return nil, ErrBrokenFile
	}
	if MainVersion != buf[0] {
		return nil, ErrVersionMismatch
	}

	if n, _ := io.ReadFull(r, buf[:5]); n < 5 {
		return nil, ErrBrokenFile
	}
	idx := &Index{HasSequenceIDs: buf[0] == 1}
	nChunks := int(be.Uint32(buf[1:5]))
	idx.Chunks = make([]ChunkDescriptor, 0, nChunks)

	for i := 0; i < nChunks; i++ {
		if n, _ := io.ReadFull(r, buf[:4]); n < 4 {
			return nil, ErrBrokenFile
		}
		nSeqs := int(be.Uint32(buf[:4]))

		chunk := ChunkDescriptor{
			ID:        i,
			Sequences: make([]SequenceDescriptor, 0, nSeqs),
		}
		for j := 0; j < nSeqs; j++ {
			if n, _ := io.ReadFull(r, buf[:39]); n < 39 {
				return nil, ErrBrokenFile
			}
			s := SequenceDescriptor{
				ID:              be.Uint64(buf[:8]),
				KeyHash:         be.Uint64(buf[8:16]),
				ChunkID:         i,
				FileOffset:      int64(be.Uint64(buf[16:24])),
				ByteSize:        int64(be.Uint64(buf[24:32])),
				NumberOfSamples: int(be.Uint32(buf[32:36])),
				IsValid:         buf[36] == 1,
			}
			keyLen := int(be.Uint16(buf[37:39]))
			key := make([]byte, keyLen)
			if n, _ := io.ReadFull(r, key); n < keyLen {
				return nil, ErrBrokenFile
			}
			s.Key = string(key)

			chunk.Sequences = append(chunk.Sequences, s)
			chunk.NumberOfSamples += s.NumberOfSamples
		}
		chunk.NumberOfSequences = nSeqs
		idx.Chunks = append(idx.Chunks, chunk)
	}

	return idx, nil
}
