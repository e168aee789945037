// Copyright © 2024 The ELPS authors

package token

import (
	"sort"
	"strings"
)

// LineIndex converts between byte offsets and 1-based line/column pairs for
// a fixed document text.
type LineIndex struct {
	text   string
	starts []int // byte offset of the first byte of each line
}

// NewLineIndex indexes the line starts of text.
func NewLineIndex(text string) *LineIndex {
	starts := make([]int, 1, strings.Count(text, "\n")+1)
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{text: text, starts: starts}
}

// LineCount returns the number of lines in the indexed text.
func (idx *LineIndex) LineCount() int {
	return len(idx.starts)
}

// Location returns the 1-based line and column of a byte offset.  Offsets
// past the end of the text are clamped.
func (idx *LineIndex) Location(file string, offset int) *Location {
	if offset < 0 {
		offset = 0
	}
	if offset > len(idx.text) {
		offset = len(idx.text)
	}
	line := sort.Search(len(idx.starts), func(i int) bool { return idx.starts[i] > offset }) - 1
	return &Location{
		File: file,
		Pos:  offset,
		Line: line + 1,
		Col:  offset - idx.starts[line] + 1,
	}
}

// LineSpan returns the span of a 1-based line, excluding its line
// terminator.  The boolean is false when line is out of range.
func (idx *LineIndex) LineSpan(line int) (start, end int, ok bool) {
	if line < 1 || line > len(idx.starts) {
		return 0, 0, false
	}
	start = idx.starts[line-1]
	end = len(idx.text)
	if line < len(idx.starts) {
		end = idx.starts[line] - 1
	}
	if end > start && idx.text[end-1] == '\r' {
		end--
	}
	return start, end, true
}

// Offset returns the byte offset of a 1-based line and column.  Columns past
// the end of the line are clamped to the line end.
func (idx *LineIndex) Offset(line, col int) (int, bool) {
	start, end, ok := idx.LineSpan(line)
	if !ok {
		return 0, false
	}
	if col < 1 {
		col = 1
	}
	off := start + col - 1
	if off > end {
		off = end
	}
	return off, true
}

// Line returns the text of a 1-based line without its terminator.
func (idx *LineIndex) Line(line int) string {
	start, end, ok := idx.LineSpan(line)
	if !ok {
		return ""
	}
	return idx.text[start:end]
}
