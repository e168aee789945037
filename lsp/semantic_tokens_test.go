// Copyright © 2024 The ELPS authors

package lsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func semanticTokensFor(t *testing.T, content string) []rawToken {
	t.Helper()
	s := testServer(t, warningBackend)
	openDoc(t, s, (&publisher{}).context(), testURI, content)
	result, err := s.textDocumentSemanticTokensFull(nil, &protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	return decodeTokens(result.Data)
}

func TestSemanticTokensFull(t *testing.T) {
	tokens := semanticTokensFor(t, "\\starttext\n\\bf{x}\n\\stoptext % c")
	assert.Equal(t, []rawToken{
		{line: 0, startChar: 0, length: 10, tokenType: semTokenNamespace},
		{line: 1, startChar: 0, length: 3, tokenType: semTokenFunction},
		{line: 1, startChar: 3, length: 1, tokenType: semTokenParameter},
		{line: 1, startChar: 5, length: 1, tokenType: semTokenParameter},
		{line: 2, startChar: 0, length: 9, tokenType: semTokenNamespace},
		{line: 2, startChar: 10, length: 3, tokenType: semTokenComment},
	}, tokens)
}

func TestSemanticTokensMultiline(t *testing.T) {
	tokens := semanticTokensFor(t, "\\def\\in[a\nb] x")
	assert.Equal(t, []rawToken{
		{line: 0, startChar: 0, length: 4, tokenType: semTokenKeyword},
		{line: 0, startChar: 4, length: 3, tokenType: semTokenFunction},
		{line: 0, startChar: 7, length: 2, tokenType: semTokenParameter},
		{line: 1, startChar: 0, length: 2, tokenType: semTokenParameter},
	}, tokens)
}

func TestSemanticTokensUnknownDocument(t *testing.T) {
	s := testServer(t, warningBackend)
	result, err := s.textDocumentSemanticTokensFull(nil, &protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: "file:///nope.tex"},
	})
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestDeltaEncode(t *testing.T) {
	tokens := []rawToken{
		{line: 0, startChar: 0, length: 3, tokenType: semTokenKeyword},
		{line: 0, startChar: 5, length: 4, tokenType: semTokenFunction},
		{line: 1, startChar: 2, length: 1, tokenType: semTokenComment},
	}
	data := deltaEncode(tokens)
	assert.Equal(t, []protocol.UInteger{
		0, 0, 3, semTokenKeyword, 0,
		0, 5, 4, semTokenFunction, 0,
		1, 2, 1, semTokenComment, 0,
	}, data)
	assert.Equal(t, tokens, decodeTokens(data))
}

func TestSemanticTokenLegend(t *testing.T) {
	legend := semanticTokenLegend()
	// Verify legend indices match our constants.
	assert.Equal(t, "namespace", legend.TokenTypes[semTokenNamespace])
	assert.Equal(t, "keyword", legend.TokenTypes[semTokenKeyword])
	assert.Equal(t, "function", legend.TokenTypes[semTokenFunction])
	assert.Equal(t, "parameter", legend.TokenTypes[semTokenParameter])
	assert.Equal(t, "comment", legend.TokenTypes[semTokenComment])
}

// decodeTokens converts delta-encoded data back to raw tokens for testing.
func decodeTokens(data []protocol.UInteger) []rawToken {
	var tokens []rawToken
	prevLine := 0
	prevChar := 0
	for i := 0; i+4 < len(data); i += 5 {
		line := prevLine + int(data[i])
		char := int(data[i+1])
		if data[i] == 0 {
			char = prevChar + int(data[i+1])
		}
		tokens = append(tokens, rawToken{
			line:      line,
			startChar: char,
			length:    int(data[i+2]),
			tokenType: int(data[i+3]),
			modifiers: int(data[i+4]),
		})
		prevLine = line
		prevChar = char
	}
	return tokens
}
