// Copyright © 2024 The ELPS authors

// Package lsp implements a Language Server Protocol server over an engine.
// It provides diagnostics, semantic highlighting, folding ranges, document
// symbols, and a compile command.
package lsp

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tliron/glsp"
	glspserver "github.com/tliron/glsp/server"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/luthersystems/ctxengine/engine"
)

const serverName = "ctxengine-lsp"

// Server is the ctxengine language server.
type Server struct {
	handler protocol.Handler
	glspSrv *glspserver.Server
	engine  *engine.Engine
	log     *logrus.Entry

	compileOnSave bool

	// Debouncer for didChange notifications.
	debounceMu sync.Mutex
	debounce   map[string]*time.Timer

	// Context for sending notifications (captured from latest request).
	notifyMu sync.Mutex
	notify   glsp.NotifyFunc

	// ctx is canceled on shutdown and bounds background compilations.
	ctx    context.Context
	cancel context.CancelFunc

	// exitFn is called on the LSP exit notification. Defaults to os.Exit.
	// Overridable for testing.
	exitFn func(int)
}

// Option configures the LSP server.
type Option func(*Server)

// WithEngine serves documents from e.  The server owns e and shuts it down
// on the LSP shutdown request.
func WithEngine(e *engine.Engine) Option {
	return func(s *Server) { s.engine = e }
}

// WithLogger sets the logger for server events.
func WithLogger(log *logrus.Entry) Option {
	return func(s *Server) { s.log = log }
}

// WithCompileOnSave compiles a document each time the client saves it.
func WithCompileOnSave(enabled bool) Option {
	return func(s *Server) { s.compileOnSave = enabled }
}

// New creates a new language server.
func New(opts ...Option) *Server {
	s := &Server{
		debounce: make(map[string]*time.Timer),
		exitFn:   os.Exit,
	}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		l := logrus.New()
		l.Out = io.Discard
		s.log = logrus.NewEntry(l)
	}
	if s.engine == nil {
		s.engine = engine.New(engine.WithLogger(s.log))
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.handler = protocol.Handler{
		Initialize: s.initialize,
		Shutdown:   s.shutdown,
		Exit:       s.exit,
		SetTrace:   s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidSave:   s.textDocumentDidSave,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentSemanticTokensFull: s.textDocumentSemanticTokensFull,
		TextDocumentFoldingRange:       s.textDocumentFoldingRange,
		TextDocumentDocumentSymbol:     s.textDocumentDocumentSymbol,
		WorkspaceExecuteCommand:        s.workspaceExecuteCommand,
	}

	s.glspSrv = glspserver.NewServer(&s.handler, serverName, false)
	return s
}

// Engine returns the engine holding the server's documents.
func (s *Server) Engine() *engine.Engine {
	return s.engine
}

// RunStdio starts the server using stdio transport.
func (s *Server) RunStdio() error {
	return s.glspSrv.RunStdio()
}

// RunTCP starts the server listening on the given address.
func (s *Server) RunTCP(addr string) error {
	return s.glspSrv.RunTCP(addr)
}

// initialize handles the LSP initialize request.
func (s *Server) initialize(ctx *glsp.Context, _ *protocol.InitializeParams) (any, error) {
	s.captureNotify(ctx)

	capabilities := s.handler.CreateServerCapabilities()

	// Override text document sync to full.
	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
		Save:      &protocol.SaveOptions{IncludeText: boolPtr(false)},
	}
	capabilities.SemanticTokensProvider = &protocol.SemanticTokensOptions{
		Legend: semanticTokenLegend(),
		Full:   true,
	}
	capabilities.FoldingRangeProvider = true
	capabilities.DocumentSymbolProvider = true
	capabilities.ExecuteCommandProvider = &protocol.ExecuteCommandOptions{
		Commands: []string{CommandCompile},
	}

	version := "0.1.0"
	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &version,
		},
	}, nil
}

// shutdown handles the LSP shutdown request.
func (s *Server) shutdown(_ *glsp.Context) error {
	// Cancel any pending debounce timers.
	s.debounceMu.Lock()
	for _, t := range s.debounce {
		t.Stop()
	}
	s.debounce = make(map[string]*time.Timer)
	s.debounceMu.Unlock()

	s.cancel()
	s.engine.Shutdown()
	return nil
}

// exit handles the LSP exit notification by terminating the process.
func (s *Server) exit(_ *glsp.Context) error {
	s.exitFn(0)
	return nil
}

// setTrace handles the $/setTrace notification (required by some clients).
func (s *Server) setTrace(_ *glsp.Context, _ *protocol.SetTraceParams) error {
	return nil
}

// captureNotify stores the notification function from the context for
// async use (e.g., publishing diagnostics after a debounce).
func (s *Server) captureNotify(ctx *glsp.Context) {
	s.notifyMu.Lock()
	s.notify = ctx.Notify
	s.notifyMu.Unlock()
}

// sendNotification sends a notification to the client.
func (s *Server) sendNotification(method string, params any) {
	s.notifyMu.Lock()
	fn := s.notify
	s.notifyMu.Unlock()
	if fn != nil {
		fn(method, params)
	}
}

func boolPtr(b bool) *bool {
	return &b
}

func strPtr(s string) *string {
	return &s
}
