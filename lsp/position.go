// Copyright © 2024 The ELPS authors

package lsp

import (
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/luthersystems/ctxengine/parser/token"
)

// toLSPPosition converts a 1-based line and column to a 0-based LSP
// position.  Columns count bytes.
func toLSPPosition(line, col int) protocol.Position {
	if line > 0 {
		line--
	}
	if col > 0 {
		col--
	}
	return protocol.Position{
		Line:      safeUint(line),
		Character: safeUint(col),
	}
}

// safeUint converts a non-negative int to protocol.UInteger, clamping
// negative values to zero.
func safeUint(n int) protocol.UInteger {
	if n < 0 {
		return 0
	}
	return protocol.UInteger(n) // #nosec G115 -- line/col are always small positive ints
}

// spanToLSPRange converts a byte span to an LSP range.
func spanToLSPRange(idx *token.LineIndex, span token.Span) protocol.Range {
	start := idx.Location("", int(span.Start))
	end := idx.Location("", int(span.End))
	return protocol.Range{
		Start: toLSPPosition(start.Line, start.Col),
		End:   toLSPPosition(end.Line, end.Col),
	}
}
