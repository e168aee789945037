// Copyright © 2024 The ELPS authors

package lsp

import (
	"time"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/luthersystems/ctxengine/diagnostic"
)

const debounceDelay = 300 * time.Millisecond

// textDocumentDidOpen handles the textDocument/didOpen notification.
func (s *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.captureNotify(ctx)
	uri := params.TextDocument.URI
	if err := s.engine.OpenDocument(uri, params.TextDocument.Text); err != nil {
		// Clients may reopen without closing; treat it as a change.
		s.log.WithError(err).WithField("uri", uri).Debug("Reopening document")
		if err := s.engine.UpdateDocument(uri, params.TextDocument.Text); err != nil {
			s.log.WithError(err).WithField("uri", uri).Warn("Unable to open document")
			return nil
		}
	}
	s.publishDiagnostics(uri)
	return nil
}

// textDocumentDidChange handles the textDocument/didChange notification.
func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	s.captureNotify(ctx)
	// With full sync, the last content change is the complete document.
	var content string
	for _, change := range params.ContentChanges {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			content = c.Text
		case protocol.TextDocumentContentChangeEvent:
			content = c.Text
		}
	}

	uri := params.TextDocument.URI
	if err := s.engine.UpdateDocument(uri, content); err != nil {
		s.log.WithError(err).WithField("uri", uri).Warn("Change to unknown document")
		return nil
	}

	// Debounce: delay publishing to avoid thrashing during rapid edits.
	s.debounceMu.Lock()
	if t, ok := s.debounce[uri]; ok {
		t.Stop()
	}
	s.debounce[uri] = time.AfterFunc(debounceDelay, func() {
		s.publishDiagnostics(uri)
	})
	s.debounceMu.Unlock()
	return nil
}

// textDocumentDidSave handles the textDocument/didSave notification.
func (s *Server) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	s.captureNotify(ctx)
	uri := params.TextDocument.URI
	s.stopDebounce(uri)
	s.publishDiagnostics(uri)
	if s.compileOnSave {
		go s.compile(s.ctx, uri)
	}
	return nil
}

// textDocumentDidClose handles the textDocument/didClose notification.
func (s *Server) textDocumentDidClose(_ *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI
	s.stopDebounce(uri)

	// Clear diagnostics for the closed file.
	s.sendNotification(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})

	s.engine.Close(uri)
	return nil
}

func (s *Server) stopDebounce(uri string) {
	s.debounceMu.Lock()
	defer s.debounceMu.Unlock()
	if t, ok := s.debounce[uri]; ok {
		t.Stop()
		delete(s.debounce, uri)
	}
}

// publishDiagnostics sends the current diagnostics of uri to the client.
func (s *Server) publishDiagnostics(uri string) {
	if _, ok := s.engine.Source(uri); !ok {
		return
	}
	diags := s.engine.Diagnostics(uri)
	out := make([]protocol.Diagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, convertDiagnostic(d))
	}
	s.sendNotification(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: out,
	})
}

// convertDiagnostic converts a located diagnostic to an LSP Diagnostic.
func convertDiagnostic(d diagnostic.Diagnostic) protocol.Diagnostic {
	start := toLSPPosition(d.Line, d.Col)
	end := start // Default: zero-width range.
	if d.EndLine > 0 {
		end = toLSPPosition(d.EndLine, d.EndCol)
	}
	sev := mapSeverity(d.Severity)
	return protocol.Diagnostic{
		Range:    protocol.Range{Start: start, End: end},
		Severity: &sev,
		Source:   strPtr("ctxengine-" + d.Source),
		Message:  d.Message,
	}
}

// mapSeverity converts a diagnostic.Severity to a protocol.DiagnosticSeverity.
func mapSeverity(sev diagnostic.Severity) protocol.DiagnosticSeverity {
	switch sev {
	case diagnostic.SeverityError:
		return protocol.DiagnosticSeverityError
	case diagnostic.SeverityWarning:
		return protocol.DiagnosticSeverityWarning
	default:
		return protocol.DiagnosticSeverityWarning
	}
}
