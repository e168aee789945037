// Copyright © 2024 The ELPS authors

package lsp

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/luthersystems/ctxengine/compile"
	"github.com/luthersystems/ctxengine/diagnostic"
	"github.com/luthersystems/ctxengine/engine"
	"github.com/luthersystems/ctxengine/enginetest"
	"github.com/luthersystems/ctxengine/parser/token"
)

const testURI = "file:///test/doc.tex"

type backendFunc func(ctx context.Context, req compile.Request) *compile.Result

func (f backendFunc) Compile(ctx context.Context, req compile.Request) *compile.Result {
	return f(ctx, req)
}

// warningBackend reports a single warning on the byte range [11,15).
var warningBackend = backendFunc(func(_ context.Context, _ compile.Request) *compile.Result {
	return &compile.Result{
		Success: true,
		PDFPath: "/out/doc.pdf",
		Warnings: []diagnostic.Diagnostic{{
			Range:    token.Span{Start: 11, End: 15},
			Severity: diagnostic.SeverityWarning,
			Message:  "Overfull \\hbox",
			Source:   diagnostic.SourceCompiler,
		}},
	}
})

// testServer creates a server whose engine compiles with b.
func testServer(t *testing.T, b compile.Backend, opts ...Option) *Server {
	log := enginetest.Logrus(t)
	e := engine.New(engine.WithLogger(log), engine.WithBackend(b))
	t.Cleanup(e.Shutdown)
	s := New(append([]Option{WithEngine(e), WithLogger(log)}, opts...)...)
	s.exitFn = func(int) {}
	return s
}

// publisher records published diagnostics.
type publisher struct {
	mu        sync.Mutex
	published []*protocol.PublishDiagnosticsParams
}

func (p *publisher) context() *glsp.Context {
	return &glsp.Context{
		Notify: func(method string, params any) {
			if method == protocol.ServerTextDocumentPublishDiagnostics {
				p.mu.Lock()
				p.published = append(p.published, params.(*protocol.PublishDiagnosticsParams))
				p.mu.Unlock()
			}
		},
	}
}

func (p *publisher) all() []*protocol.PublishDiagnosticsParams {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*protocol.PublishDiagnosticsParams(nil), p.published...)
}

func (p *publisher) last(t *testing.T) *protocol.PublishDiagnosticsParams {
	t.Helper()
	all := p.all()
	require.NotEmpty(t, all, "no diagnostics published")
	return all[len(all)-1]
}

func openDoc(t *testing.T, s *Server, ctx *glsp.Context, uri, content string) {
	t.Helper()
	require.NoError(t, s.textDocumentDidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, LanguageID: "context", Version: 1, Text: content},
	}))
}

func pos(line, char protocol.UInteger) protocol.Position {
	return protocol.Position{Line: line, Character: char}
}

func TestPositionConversion(t *testing.T) {
	assert.Equal(t, pos(0, 0), toLSPPosition(1, 1))
	assert.Equal(t, pos(4, 9), toLSPPosition(5, 10))
	assert.Equal(t, pos(0, 0), toLSPPosition(0, 0), "zero values clamp")

	idx := token.NewLineIndex("ab\ncd")
	assert.Equal(t, protocol.Range{Start: pos(0, 1), End: pos(1, 1)}, spanToLSPRange(idx, token.Span{Start: 1, End: 4}))
}

func TestInitialize(t *testing.T) {
	s := testServer(t, warningBackend)
	res, err := s.initialize(&glsp.Context{}, &protocol.InitializeParams{})
	require.NoError(t, err)
	init, ok := res.(protocol.InitializeResult)
	require.True(t, ok)
	assert.Equal(t, serverName, init.ServerInfo.Name)
	caps := init.Capabilities
	require.NotNil(t, caps.ExecuteCommandProvider)
	assert.Equal(t, []string{CommandCompile}, caps.ExecuteCommandProvider.Commands)
	sem, ok := caps.SemanticTokensProvider.(*protocol.SemanticTokensOptions)
	require.True(t, ok)
	assert.Equal(t, semanticTokenLegend(), sem.Legend)
	assert.Equal(t, true, caps.FoldingRangeProvider)
	assert.Equal(t, true, caps.DocumentSymbolProvider)
}

func TestDiagnosticsPublishedOnOpen(t *testing.T) {
	s := testServer(t, warningBackend)
	var p publisher
	openDoc(t, s, p.context(), testURI, "\\starttext\n{oops\n")

	params := p.last(t)
	assert.Equal(t, testURI, params.URI)
	require.Len(t, params.Diagnostics, 2)
	env := params.Diagnostics[0]
	assert.Equal(t, protocol.Range{Start: pos(0, 0), End: pos(0, 10)}, env.Range)
	assert.Equal(t, protocol.DiagnosticSeverityError, *env.Severity)
	assert.Equal(t, "ctxengine-parser", *env.Source)
	assert.Contains(t, env.Message, "unterminated environment")
	group := params.Diagnostics[1]
	assert.Equal(t, protocol.Range{Start: pos(1, 0), End: pos(1, 1)}, group.Range)
}

func TestReopenActsAsChange(t *testing.T) {
	s := testServer(t, warningBackend)
	var p publisher
	openDoc(t, s, p.context(), testURI, "}")
	openDoc(t, s, p.context(), testURI, "ok")
	src, ok := s.Engine().Source(testURI)
	require.True(t, ok)
	assert.Equal(t, "ok", src)
	assert.Empty(t, p.last(t).Diagnostics)
}

func TestDidChangeDebounced(t *testing.T) {
	s := testServer(t, warningBackend)
	var p publisher
	ctx := p.context()
	openDoc(t, s, ctx, testURI, "ok")
	require.Len(t, p.all(), 1)

	for _, text := range []string{"}", "}}"} {
		require.NoError(t, s.textDocumentDidChange(ctx, &protocol.DidChangeTextDocumentParams{
			TextDocument: protocol.VersionedTextDocumentIdentifier{
				TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: testURI},
				Version:                2,
			},
			ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: text}},
		}))
	}
	src, _ := s.Engine().Source(testURI)
	assert.Equal(t, "}}", src, "changes apply immediately")

	require.Eventually(t, func() bool { return len(p.all()) == 2 }, 5*time.Second, 20*time.Millisecond)
	assert.Len(t, p.last(t).Diagnostics, 2)
	time.Sleep(2 * debounceDelay)
	assert.Len(t, p.all(), 2, "rapid changes publish once")
}

func TestDidClose(t *testing.T) {
	s := testServer(t, warningBackend)
	var p publisher
	ctx := p.context()
	openDoc(t, s, ctx, testURI, "}")
	require.NoError(t, s.textDocumentDidClose(ctx, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	}))
	last := p.last(t)
	assert.Equal(t, testURI, last.URI)
	assert.Empty(t, last.Diagnostics)
	_, ok := s.Engine().Source(testURI)
	assert.False(t, ok)
}

func TestExecuteCompile(t *testing.T) {
	s := testServer(t, warningBackend)
	var p publisher
	ctx := p.context()
	openDoc(t, s, ctx, testURI, "\\starttext\n\\foo Hello\n\\stoptext\n")

	res, err := s.workspaceExecuteCommand(ctx, &protocol.ExecuteCommandParams{
		Command:   CommandCompile,
		Arguments: []any{testURI},
	})
	require.NoError(t, err)
	result, ok := res.(*compile.Result)
	require.True(t, ok)
	assert.True(t, result.Success)
	assert.Equal(t, "/out/doc.pdf", result.PDFPath)

	diags := p.last(t).Diagnostics
	require.Len(t, diags, 1)
	assert.Equal(t, "ctxengine-compiler", *diags[0].Source)
	assert.Equal(t, protocol.DiagnosticSeverityWarning, *diags[0].Severity)
	assert.Equal(t, protocol.Range{Start: pos(1, 0), End: pos(1, 4)}, diags[0].Range)
}

func TestExecuteCommandErrors(t *testing.T) {
	s := testServer(t, warningBackend)
	ctx := (&publisher{}).context()
	_, err := s.workspaceExecuteCommand(ctx, &protocol.ExecuteCommandParams{Command: "nope"})
	assert.Error(t, err)
	_, err = s.workspaceExecuteCommand(ctx, &protocol.ExecuteCommandParams{Command: CommandCompile})
	assert.Error(t, err)
	_, err = s.workspaceExecuteCommand(ctx, &protocol.ExecuteCommandParams{Command: CommandCompile, Arguments: []any{42.0}})
	assert.Error(t, err)

	res, err := s.workspaceExecuteCommand(ctx, &protocol.ExecuteCommandParams{Command: CommandCompile, Arguments: []any{"file:///missing.tex"}})
	require.NoError(t, err)
	assert.False(t, res.(*compile.Result).Success)
}

func TestCompileOnSave(t *testing.T) {
	var calls sync.WaitGroup
	calls.Add(1)
	b := backendFunc(func(ctx context.Context, req compile.Request) *compile.Result {
		defer calls.Done()
		return warningBackend(ctx, req)
	})
	s := testServer(t, b, WithCompileOnSave(true))
	var p publisher
	ctx := p.context()
	openDoc(t, s, ctx, testURI, "\\starttext\n\\foo Hello\n\\stoptext\n")
	require.NoError(t, s.textDocumentDidSave(ctx, &protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	}))
	calls.Wait()
	require.Eventually(t, func() bool {
		last := p.all()
		return len(last[len(last)-1].Diagnostics) == 1
	}, 5*time.Second, 20*time.Millisecond)
}

func TestShutdown(t *testing.T) {
	s := testServer(t, warningBackend)
	openDoc(t, s, (&publisher{}).context(), testURI, "x")
	require.NoError(t, s.shutdown(&glsp.Context{}))
	_, ok := s.Engine().Source(testURI)
	assert.False(t, ok)
	assert.Error(t, s.ctx.Err())
}
