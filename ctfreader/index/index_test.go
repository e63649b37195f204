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
	"os"
	"path/filepath"
	"testing"
)

func buildFromContent(t *testing.T, content string, skipIDs bool, chunkSize int64) *Index {
	t.Helper()
	file := filepath.Join(t.TempDir(), "corpus.txt")
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatalf("%s", err)
	}
	fh, err := os.Open(file)
	if err != nil {
		t.Fatalf("%s", err)
	}
	defer fh.Close()

	idx, err := NewIndexer(fh, skipIDs, chunkSize).Build()
	if err != nil {
		t.Fatalf("%s", err)
	}
	return idx
}

func TestBuildWithoutSequenceIDs(t *testing.T) {
	idx := buildFromContent(t, "|x 1 2 3\n|x 4 5 6\n", false, 0)

	if idx.HasSequenceIDs {
		t.Fatal("rows without an integer prefix should not report sequence ids")
	}
	if len(idx.Chunks) != 1 {
		t.Fatalf("chunk count mismatch, expected: 1, result: %d", len(idx.Chunks))
	}
	chunk := idx.Chunks[0]
	if chunk.NumberOfSequences != 2 {
		t.Fatalf("sequence count mismatch, expected: 2, result: %d", chunk.NumberOfSequences)
	}

	s0, s1 := chunk.Sequences[0], chunk.Sequences[1]
	if s0.ID != 0 || s1.ID != 1 {
		t.Errorf("ordinal ids expected, result: %d, %d", s0.ID, s1.ID)
	}
	if s0.FileOffset != 0 || s0.ByteSize != 9 {
		t.Errorf("byte range mismatch for sequence 0: offset %d, size %d", s0.FileOffset, s0.ByteSize)
	}
	if s1.FileOffset != 9 || s1.ByteSize != 9 {
		t.Errorf("byte range mismatch for sequence 1: offset %d, size %d", s1.FileOffset, s1.ByteSize)
	}
	if s0.NumberOfSamples != 1 || s1.NumberOfSamples != 1 {
		t.Errorf("row count mismatch: %d, %d", s0.NumberOfSamples, s1.NumberOfSamples)
	}
}

func TestBuildWithSequenceIDs(t *testing.T) {
	idx := buildFromContent(t, "100 |x 1\n100 |x 2\n200 |x 3\n", false, 0)

	if !idx.HasSequenceIDs {
		t.Fatal("integer prefixes should be detected as sequence ids")
	}
	chunk := idx.Chunks[0]
	if chunk.NumberOfSequences != 2 {
		t.Fatalf("sequence count mismatch, expected: 2, result: %d", chunk.NumberOfSequences)
	}
	s0, s1 := chunk.Sequences[0], chunk.Sequences[1]
	if s0.ID != 100 || s1.ID != 200 {
		t.Errorf("id mismatch: %d, %d", s0.ID, s1.ID)
	}
	if s0.NumberOfSamples != 2 || s1.NumberOfSamples != 1 {
		t.Errorf("row count mismatch: %d, %d", s0.NumberOfSamples, s1.NumberOfSamples)
	}
	if s0.Key != "100" || s1.Key != "200" {
		t.Errorf("key mismatch: %q, %q", s0.Key, s1.Key)
	}
	if s1.FileOffset != 18 {
		t.Errorf("offset mismatch for sequence 200, expected: 18, result: %d", s1.FileOffset)
	}

	// descriptors are ordered by offset and byte ranges do not overlap
	if s0.FileOffset+s0.ByteSize != s1.FileOffset {
		t.Errorf("byte ranges should be adjacent: %d+%d vs %d", s0.FileOffset, s0.ByteSize, s1.FileOffset)
	}
}

func TestBuildSkipSequenceIDs(t *testing.T) {
	idx := buildFromContent(t, "100 |x 1\n100 |x 2\n", true, 0)

	if idx.HasSequenceIDs {
		t.Fatal("skipping ids should force the no-id interpretation")
	}
	if idx.NumberOfSequences() != 2 {
		t.Fatalf("sequence count mismatch, expected: 2, result: %d", idx.NumberOfSequences())
	}
}

func TestChunkBoundaries(t *testing.T) {
	// 4 rows of 5 bytes each; chunks close at the first sequence end
	// reaching the configured size
	idx := buildFromContent(t, "|x 1\n|x 2\n|x 3\n|x 4\n", false, 10)

	if len(idx.Chunks) != 2 {
		t.Fatalf("chunk count mismatch, expected: 2, result: %d", len(idx.Chunks))
	}
	for i, chunk := range idx.Chunks {
		if chunk.ID != i {
			t.Errorf("chunk ids should be dense: expected %d, result %d", i, chunk.ID)
		}
		if chunk.NumberOfSequences != 2 {
			t.Errorf("chunk %d sequence count mismatch, expected: 2, result: %d", i, chunk.NumberOfSequences)
		}
	}
}

func TestSingleChunk(t *testing.T) {
	idx := buildFromContent(t, "|x 1\n|x 2\n|x 3\n", false, 0)
	if len(idx.Chunks) != 1 {
		t.Fatalf("a non-positive chunk size should produce a single chunk, result: %d", len(idx.Chunks))
	}
}

func TestMissingTrailingNewlineIndexed(t *testing.T) {
	idx := buildFromContent(t, "|x 1\n|x 2", false, 0)
	chunk := idx.Chunks[0]
	if chunk.NumberOfSequences != 2 {
		t.Fatalf("sequence count mismatch, expected: 2, result: %d", chunk.NumberOfSequences)
	}
	if chunk.Sequences[1].ByteSize != 4 {
		t.Errorf("the last sequence should span to the end of file, size: %d", chunk.Sequences[1].ByteSize)
	}
}

func TestEmptyFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatalf("%s", err)
	}
	fh, err := os.Open(file)
	if err != nil {
		t.Fatalf("%s", err)
	}
	defer fh.Close()

	if _, err := NewIndexer(fh, false, 0).Build(); err == nil {
		t.Fatal("an empty file should be rejected")
	}
}

func TestParseSequencePrefix(t *testing.T) {
	tests := []struct {
		in string
		id uint64
		ok bool
	}{
		{"123 |x 1\n", 123, true},
		{"7\t|x\n", 7, true},
		{"0|x 1\n", 0, true},
		{"9\r\n", 9, true},
		{"12a |x\n", 0, false},
		{"|x 1\n", 0, false},
		{"\n", 0, false},
		{"99999999999999999999 |x\n", 0, false},
	}
	for _, test := range tests {
		id, key, ok := parseSequencePrefix([]byte(test.in))
		if ok != test.ok {
			t.Errorf("%q: ok mismatch, expected: %v, result: %v", test.in, test.ok, ok)
			continue
		}
		if !ok {
			continue
		}
		if id != test.id {
			t.Errorf("%q: id mismatch, expected: %d, result: %d", test.in, test.id, id)
		}
		if string(key) == "" {
			t.Errorf("%q: the key should hold the prefix digits", test.in)
		}
	}
}

func TestSerializationRoundTrip(t *testing.T) {
	idx := buildFromContent(t, "100 |x 1\n100 |x 2\n200 |x 3\n", false, 0)

	file := filepath.Join(t.TempDir(), "corpus.txt"+IndexFileExt)
	if err := idx.Write(file); err != nil {
		t.Fatalf("%s", err)
	}

	loaded, err := Read(file)
	if err != nil {
		t.Fatalf("%s", err)
	}

	if loaded.HasSequenceIDs != idx.HasSequenceIDs {
		t.Fatal("sequence id flag mismatch")
	}
	if len(loaded.Chunks) != len(idx.Chunks) {
		t.Fatalf("chunk count mismatch, expected: %d, result: %d", len(idx.Chunks), len(loaded.Chunks))
	}
	for i := range idx.Chunks {
		a, b := idx.Chunks[i], loaded.Chunks[i]
		if a.NumberOfSequences != b.NumberOfSequences || a.NumberOfSamples != b.NumberOfSamples {
			t.Fatalf("chunk %d summary mismatch", i)
		}
		for j := range a.Sequences {
			x, y := a.Sequences[j], b.Sequences[j]
			if x != y {
				t.Errorf("sequence descriptor mismatch, expected: %+v, result: %+v", x, y)
			}
		}
	}
}

func TestReadRejectsForeignFiles(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-an-index"+IndexFileExt)
	if err := os.WriteFile(file, []byte("not an index at all, definitely"), 0644); err != nil {
		t.Fatalf("%s", err)
	}
	if _, err := Read(file); err != ErrInvalidFileFormat {
		t.Fatalf("expected the invalid format error, result: %v", err)
	}
}

func TestLocator(t *testing.T) {
	idx := buildFromContent(t, "100 |x 1\n100 |x 2\n200 |x 3\n", false, 0)
	locator := NewLocator(idx)

	loc, found := locator.Locate(0)
	if !found || loc.SequenceID != 100 {
		t.Fatalf("offset 0 should belong to sequence 100, result: %+v found: %v", loc, found)
	}

	loc, found = locator.Locate(20)
	if !found || loc.SequenceID != 200 {
		t.Fatalf("offset 20 should belong to sequence 200, result: %+v found: %v", loc, found)
	}

	if _, found = locator.Locate(1 << 30); found {
		t.Fatal("an offset past the end of file should not be located")
	}
}
