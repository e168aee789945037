// Copyright © 2024 The ELPS authors

package lsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func TestDocumentSymbols(t *testing.T) {
	s := testServer(t, warningBackend)
	src := "\\startchapter[title={Intro}]\n\\section{Basics}\ntext\n\\startitemize\n\\item x\n\\stopitemize\n\\stopchapter\n"
	openDoc(t, s, (&publisher{}).context(), testURI, src)

	result, err := s.textDocumentDocumentSymbol(nil, &protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	})
	require.NoError(t, err)
	symbols, ok := result.([]protocol.DocumentSymbol)
	require.True(t, ok)
	require.Len(t, symbols, 1)

	chapter := symbols[0]
	assert.Equal(t, "chapter", chapter.Name)
	assert.Equal(t, protocol.SymbolKindNamespace, chapter.Kind)
	require.NotNil(t, chapter.Detail)
	assert.Equal(t, "[title={Intro}]", *chapter.Detail)
	assert.Equal(t, protocol.Range{Start: pos(0, 0), End: pos(0, 13)}, chapter.SelectionRange)
	assert.Equal(t, pos(6, 12), chapter.Range.End)

	require.Len(t, chapter.Children, 2)
	section := chapter.Children[0]
	assert.Equal(t, "Basics", section.Name)
	assert.Equal(t, protocol.SymbolKindString, section.Kind)
	assert.Equal(t, "section", *section.Detail)
	itemize := chapter.Children[1]
	assert.Equal(t, "itemize", itemize.Name)
	assert.Nil(t, itemize.Detail)
	assert.Empty(t, itemize.Children)
}

func TestDocumentSymbolsEmpty(t *testing.T) {
	s := testServer(t, warningBackend)
	openDoc(t, s, (&publisher{}).context(), testURI, "plain text")
	result, err := s.textDocumentDocumentSymbol(nil, &protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	})
	require.NoError(t, err)
	assert.Equal(t, []protocol.DocumentSymbol{}, result)
}
