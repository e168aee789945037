// Copyright © 2024 The ELPS authors

package lsp

import (
	"strings"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/luthersystems/ctxengine/parser/syntax"
	"github.com/luthersystems/ctxengine/parser/token"
)

// textDocumentFoldingRange handles the textDocument/foldingRange request.
// It returns folding ranges for multi-line environments and groups and for
// consecutive comment lines.
func (s *Server) textDocumentFoldingRange(_ *glsp.Context, params *protocol.FoldingRangeParams) ([]protocol.FoldingRange, error) {
	snap, ok := s.engine.Snapshot(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	ranges := structureFoldingRanges(snap.Tree, snap.Index)
	ranges = append(ranges, commentFoldingRanges(snap.Text)...)
	return ranges, nil
}

// structureFoldingRanges emits a region for each environment, group, or
// argument spanning more than one line.
func structureFoldingRanges(tree *syntax.Tree, idx *token.LineIndex) []protocol.FoldingRange {
	var ranges []protocol.FoldingRange
	syntax.Walk(tree.Root(), func(n syntax.Node) bool {
		switch n.Kind() {
		case syntax.EnvironmentBlock, syntax.Group, syntax.Argument:
		default:
			return true
		}
		span := n.Span()
		if span.Len() == 0 {
			return true
		}
		startLine := idx.Location("", int(span.Start)).Line - 1
		endLine := idx.Location("", int(span.End)-1).Line - 1
		if endLine > startLine {
			kind := string(protocol.FoldingRangeKindRegion)
			ranges = append(ranges, protocol.FoldingRange{
				StartLine: safeUint(startLine),
				EndLine:   safeUint(endLine),
				Kind:      &kind,
			})
		}
		return true
	})
	return ranges
}

// commentFoldingRanges detects consecutive lines starting with "%" and
// produces a folding range for each block of 2+ lines.
func commentFoldingRanges(content string) []protocol.FoldingRange {
	lines := strings.Split(content, "\n")
	var ranges []protocol.FoldingRange

	flush := func(start, end int) {
		if start >= 0 && end > start {
			kind := string(protocol.FoldingRangeKindComment)
			ranges = append(ranges, protocol.FoldingRange{
				StartLine: safeUint(start),
				EndLine:   safeUint(end),
				Kind:      &kind,
			})
		}
	}
	blockStart := -1
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "%") {
			if blockStart < 0 {
				blockStart = i
			}
			continue
		}
		flush(blockStart, i-1)
		blockStart = -1
	}
	// Handle comment block at end of file.
	flush(blockStart, len(lines)-1)
	return ranges
}
