// Copyright © 2024 The ELPS authors

package lsp

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/luthersystems/ctxengine/highlight"
	"github.com/luthersystems/ctxengine/parser/token"
)

// Semantic token type indices. Must match the order in semanticTokenLegend().
const (
	semTokenNamespace = iota
	semTokenKeyword
	semTokenFunction
	semTokenParameter
	semTokenComment
)

// semanticTokenLegend returns the legend that the client uses to decode tokens.
func semanticTokenLegend() protocol.SemanticTokensLegend {
	return protocol.SemanticTokensLegend{
		TokenTypes: []string{
			"namespace", // 0
			"keyword",   // 1
			"function",  // 2
			"parameter", // 3
			"comment",   // 4
		},
		TokenModifiers: []string{},
	}
}

// semTokenType maps a highlight kind to a legend index.  Plain text is left
// to the client.
func semTokenType(kind highlight.Kind) (int, bool) {
	switch kind {
	case highlight.Environment:
		return semTokenNamespace, true
	case highlight.Keyword:
		return semTokenKeyword, true
	case highlight.Command:
		return semTokenFunction, true
	case highlight.Option:
		return semTokenParameter, true
	case highlight.Comment:
		return semTokenComment, true
	default:
		return 0, false
	}
}

// rawToken is an intermediate representation before delta encoding.
type rawToken struct {
	line      int // 0-based
	startChar int // 0-based
	length    int
	tokenType int
	modifiers int
}

// textDocumentSemanticTokensFull handles the textDocument/semanticTokens/full request.
func (s *Server) textDocumentSemanticTokensFull(_ *glsp.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	snap, ok := s.engine.Snapshot(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	tokens := semanticTokens(snap.Index, highlight.Extract(snap.Tree))
	return &protocol.SemanticTokens{Data: deltaEncode(tokens)}, nil
}

// semanticTokens converts ordered highlight spans into tokens, splitting
// spans which cross line breaks.
func semanticTokens(idx *token.LineIndex, spans []highlight.Span) []rawToken {
	var tokens []rawToken
	for _, sp := range spans {
		typ, ok := semTokenType(sp.Kind)
		if !ok {
			continue
		}
		start, end := int(sp.Range.Start), int(sp.Range.End)
		for start < end {
			loc := idx.Location("", start)
			_, lineEnd, _ := idx.LineSpan(loc.Line)
			if segEnd := min(end, lineEnd); segEnd > start {
				tokens = append(tokens, rawToken{
					line:      loc.Line - 1,
					startChar: loc.Col - 1,
					length:    segEnd - start,
					tokenType: typ,
				})
			}
			next, _, ok := idx.LineSpan(loc.Line + 1)
			if !ok {
				break
			}
			start = next
		}
	}
	return tokens
}

// deltaEncode converts sorted raw tokens into the LSP delta-encoded format.
// Each token is 5 integers: [deltaLine, deltaStartChar, length, tokenType, tokenModifiers].
func deltaEncode(tokens []rawToken) []protocol.UInteger {
	data := make([]protocol.UInteger, 0, len(tokens)*5)
	prevLine := 0
	prevChar := 0
	for _, tok := range tokens {
		deltaLine := tok.line - prevLine
		deltaChar := tok.startChar
		if deltaLine == 0 {
			deltaChar = tok.startChar - prevChar
		}
		data = append(data,
			safeUint(deltaLine),
			safeUint(deltaChar),
			safeUint(tok.length),
			safeUint(tok.tokenType),
			safeUint(tok.modifiers),
		)
		prevLine = tok.line
		prevChar = tok.startChar
	}
	return data
}
