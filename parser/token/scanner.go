// Copyright © 2018 The ELPS authors

package token

import (
	"strings"
	"unicode/utf8"

	"fortio.org/safecast"
)

// InvalidRune is reported by Scanner for a byte which does not begin a valid
// UTF-8 sequence.  Such bytes are scanned one at a time.
const InvalidRune rune = -1

// Scanner facilitates construction of tokens from an in-memory document.
// Unlike a stream scanner it never fails: invalid UTF-8 is surfaced as
// InvalidRune so the lexer can classify it.
type Scanner struct {
	src   string
	start int // start of the current token
	pos   int // index of c in src
	next  int // index of the rune following c
	c     rune
}

// NewScanner initializes and returns a new Scanner over src.
func NewScanner(src string) *Scanner {
	return &Scanner{src: src}
}

// EmitToken returns a token containing the text scanned since the last call
// to either EmitToken or Ignore.
func (s *Scanner) EmitToken(typ Type) Token {
	tok := Token{
		Type: typ,
		Text: s.Text(),
		Span: Span{Start: offset32(s.start), End: offset32(s.next)},
	}
	s.Ignore()
	return tok
}

// Ignore causes the scanner to skip all text scanned since the last call to
// either EmitToken or Ignore.
func (s *Scanner) Ignore() {
	s.start = s.next
}

// Text returns the text scanned since the last call to either EmitToken or
// Ignore.
func (s *Scanner) Text() string {
	return s.src[s.start:s.next]
}

// Rune returns the last rune scanned.
func (s *Scanner) Rune() rune {
	return s.c
}

// Offset returns the byte offset of the next rune to be scanned.
func (s *Scanner) Offset() int {
	return s.next
}

// EOF reports whether all input has been scanned.
func (s *Scanner) EOF() bool {
	return s.next >= len(s.src)
}

// Peek returns the next rune to be scanned and its width in bytes.  At the
// end of input Peek returns a zero width.
func (s *Scanner) Peek() (rune, int) {
	if s.EOF() {
		return 0, 0
	}
	c, n := utf8.DecodeRuneInString(s.src[s.next:])
	if c == utf8.RuneError && n == 1 {
		return InvalidRune, 1
	}
	return c, n
}

// PeekString reports whether the unscanned input begins with prefix.
func (s *Scanner) PeekString(prefix string) bool {
	return strings.HasPrefix(s.src[s.next:], prefix)
}

// ScanRune scans the next rune into the current token.  It returns false at
// the end of input.
func (s *Scanner) ScanRune() bool {
	c, n := s.Peek()
	if n == 0 {
		return false
	}
	s.c = c
	s.pos = s.next
	s.next += n
	return true
}

// Accept scans the next rune if fn returns true for it.
func (s *Scanner) Accept(fn func(rune) bool) bool {
	c, n := s.Peek()
	if n == 0 || !fn(c) {
		return false
	}
	return s.ScanRune()
}

// AcceptRune scans the next rune if it is c.
func (s *Scanner) AcceptRune(c rune) bool {
	return s.Accept(func(r rune) bool { return r == c })
}

// AcceptSeq scans runes while fn returns true and returns the number of runes
// scanned.
func (s *Scanner) AcceptSeq(fn func(rune) bool) int {
	n := 0
	for s.Accept(fn) {
		n++
	}
	return n
}

// AcceptString scans prefix if the unscanned input begins with it.
func (s *Scanner) AcceptString(prefix string) bool {
	if !s.PeekString(prefix) {
		return false
	}
	for range prefix {
		s.ScanRune()
	}
	return true
}

// AcceptUntil scans runes up to and including the first occurrence of
// delim.  If delim never occurs nothing is scanned and false is returned.
func (s *Scanner) AcceptUntil(delim rune) bool {
	rest := s.src[s.next:]
	i := strings.IndexRune(rest, delim)
	if i < 0 {
		return false
	}
	end := s.next + i + utf8.RuneLen(delim)
	for s.next < end {
		s.ScanRune()
	}
	return true
}

func offset32(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic("token: document exceeds 4GiB")
	}
	return v
}
