// Copyright © 2024 The ELPS authors

package lsp

import (
	"strings"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/luthersystems/ctxengine/parser/syntax"
	"github.com/luthersystems/ctxengine/parser/token"
)

// headings are the sectioning commands reported as document symbols.
var headings = map[string]bool{
	`\part`: true, `\chapter`: true, `\section`: true, `\subsection`: true,
	`\subsubsection`: true, `\title`: true, `\subject`: true, `\subsubject`: true,
}

// textDocumentDocumentSymbol handles the textDocument/documentSymbol request.
func (s *Server) textDocumentDocumentSymbol(_ *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	snap, ok := s.engine.Snapshot(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	symbols := collectSymbols(snap.Tree.Root(), snap.Index)
	if symbols == nil {
		symbols = []protocol.DocumentSymbol{}
	}
	// Return as []DocumentSymbol (the preferred hierarchical form).
	return symbols, nil
}

// collectSymbols returns the environments and headings below n, nesting
// the contents of each environment under it.
func collectSymbols(n syntax.Node, idx *token.LineIndex) []protocol.DocumentSymbol {
	var symbols []protocol.DocumentSymbol
	for _, c := range n.Children() {
		child, ok := c.Node()
		if !ok {
			continue
		}
		switch child.Kind() {
		case syntax.EnvironmentBlock:
			sym := environmentSymbol(child, idx)
			sym.Children = collectSymbols(child, idx)
			symbols = append(symbols, sym)
			continue
		case syntax.CommandInvocation:
			if sym, ok := headingSymbol(child, idx); ok {
				symbols = append(symbols, sym)
				continue
			}
		}
		symbols = append(symbols, collectSymbols(child, idx)...)
	}
	return symbols
}

func firstLeaf(n syntax.Node) (syntax.Leaf, bool) {
	children := n.Children()
	if len(children) == 0 {
		return syntax.Leaf{}, false
	}
	return children[0].Leaf()
}

func environmentSymbol(n syntax.Node, idx *token.LineIndex) protocol.DocumentSymbol {
	sym := protocol.DocumentSymbol{
		Kind:  protocol.SymbolKindNamespace,
		Range: spanToLSPRange(idx, n.Span()),
	}
	sym.SelectionRange = sym.Range
	if marker, ok := firstLeaf(n); ok {
		sym.Name = marker.Token().EnvName()
		sym.SelectionRange = spanToLSPRange(idx, marker.Span())
	}
	if sym.Name == "" {
		sym.Name = "environment"
	}
	for _, c := range n.Children() {
		if opt, ok := c.Node(); ok && opt.Kind() == syntax.OptionGroup {
			sym.Detail = strPtr(opt.Text())
			break
		}
	}
	return sym
}

func headingSymbol(n syntax.Node, idx *token.LineIndex) (protocol.DocumentSymbol, bool) {
	cmd, ok := firstLeaf(n)
	if !ok || !headings[cmd.Text()] {
		return protocol.DocumentSymbol{}, false
	}
	name := ""
	for _, c := range n.Children() {
		if arg, ok := c.Node(); ok && arg.Kind() == syntax.Argument {
			name = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(arg.Text(), "{"), "}"))
			break
		}
	}
	if name == "" {
		name = cmd.Text()
	}
	return protocol.DocumentSymbol{
		Name:           name,
		Detail:         strPtr(strings.TrimPrefix(cmd.Text(), `\`)),
		Kind:           protocol.SymbolKindString,
		Range:          spanToLSPRange(idx, n.Span()),
		SelectionRange: spanToLSPRange(idx, cmd.Span()),
	}, true
}
