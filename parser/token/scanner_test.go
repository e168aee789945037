// Copyright © 2018 The ELPS authors

package token

import (
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScannerEmit(t *testing.T) {
	s := NewScanner(`\foo bar`)
	require.True(t, s.AcceptRune('\\'))
	assert.Equal(t, 3, s.AcceptSeq(unicode.IsLetter))
	tok := s.EmitToken(COMMAND)
	assert.Equal(t, Token{Type: COMMAND, Text: `\foo`, Span: Span{0, 4}}, tok)

	assert.Equal(t, 1, s.AcceptSeq(unicode.IsSpace))
	s.Ignore()
	assert.Equal(t, 3, s.AcceptSeq(func(c rune) bool { return c != ' ' }))
	tok = s.EmitToken(TEXT)
	assert.Equal(t, Span{5, 8}, tok.Span)
	assert.True(t, s.EOF())
	assert.False(t, s.ScanRune())
}

func TestScannerInvalidUTF8(t *testing.T) {
	s := NewScanner("a\xffb")
	require.True(t, s.ScanRune())
	c, n := s.Peek()
	assert.Equal(t, InvalidRune, c)
	assert.Equal(t, 1, n)
	require.True(t, s.ScanRune())
	assert.Equal(t, 2, s.Offset())

	s = NewScanner("\uFFFD")
	c, n = s.Peek()
	assert.Equal(t, '\uFFFD', c)
	assert.Equal(t, 3, n)
}

func TestScannerAcceptUntil(t *testing.T) {
	s := NewScanner("[a,b] rest")
	assert.True(t, s.AcceptUntil(']'))
	assert.Equal(t, "[a,b]", s.Text())

	s = NewScanner("[a,b")
	assert.False(t, s.AcceptUntil(']'))
	assert.Equal(t, "", s.Text())
	assert.Equal(t, 0, s.Offset())
}

func TestScannerAcceptString(t *testing.T) {
	s := NewScanner(`\startitemize`)
	assert.False(t, s.AcceptString(`\stop`))
	assert.True(t, s.AcceptString(`\start`))
	assert.Equal(t, `\start`, s.Text())
}
