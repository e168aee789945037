// Copyright © 2024 The ELPS authors

// Package engine manages open document sessions.  Each session keeps the
// current text of a document and its syntax tree, answers highlight and
// diagnostic queries, and compiles the document on request.
//
// An Engine is safe for concurrent use.  Operations on distinct documents
// proceed independently; operations on the same document are serialized and
// at most one compilation per document is in flight at a time.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/luthersystems/ctxengine/compile"
	"github.com/luthersystems/ctxengine/diagnostic"
	"github.com/luthersystems/ctxengine/highlight"
	"github.com/luthersystems/ctxengine/parser/syntax"
	"github.com/luthersystems/ctxengine/parser/token"
	"github.com/luthersystems/ctxengine/profiler"
)

var (
	// ErrAlreadyOpen is returned when opening a document which is open.
	ErrAlreadyOpen = errors.New("document already open")
	// ErrNotOpen is returned when updating a document which is not open.
	ErrNotOpen = errors.New("document not open")
	// ErrShutdown is returned by operations on an engine that has been shut
	// down.
	ErrShutdown = errors.New("engine shut down")
)

// Engine owns the sessions of open documents, keyed by URI.
type Engine struct {
	mu       sync.RWMutex
	sessions map[string]*session
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc

	cfg     compile.Config
	backend compile.Backend
	log     *logrus.Entry
	prof    profiler.Profiler
}

// New returns an Engine with no open documents.
func New(opts ...Option) *Engine {
	e := &Engine{
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		l := logrus.New()
		l.Out = io.Discard
		e.log = logrus.NewEntry(l)
	}
	if e.backend == nil {
		e.backend = compile.New(e.cfg, e.log)
	}
	if e.prof == nil {
		e.prof = profiler.Nop()
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())
	return e
}

func (e *Engine) get(uri string) *session {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sessions[uri]
}

// Open starts a session for uri and reports whether it did.  It fails when
// a session for uri is already open.
func (e *Engine) Open(uri, text string) bool {
	return e.OpenDocument(uri, text) == nil
}

// OpenDocument is like Open but reports why a session was not started.
func (e *Engine) OpenDocument(uri, text string) (err error) {
	_, end := e.prof.Start(e.ctx, profiler.Span{Op: profiler.OpOpen, URI: uri})
	defer func() { end(err) }()

	e.mu.RLock()
	_, exists := e.sessions[uri]
	closed := e.closed
	e.mu.RUnlock()
	switch {
	case closed:
		return ErrShutdown
	case exists:
		return fmt.Errorf("%w: %s", ErrAlreadyOpen, uri)
	}

	// Parse before taking the write lock so other documents are not held up.
	s := newSession(e.ctx, uri, text)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		s.close()
		return ErrShutdown
	}
	if _, ok := e.sessions[uri]; ok {
		s.close()
		return fmt.Errorf("%w: %s", ErrAlreadyOpen, uri)
	}
	e.sessions[uri] = s
	e.log.WithFields(logrus.Fields{
		"uri":      uri,
		"revision": s.revision,
		"errors":   len(s.tree.Errors()),
	}).Debug("Document opened")
	return nil
}

// Update replaces the text of an open document and reports whether it did.
// Compiler diagnostics of the previous revision are discarded.
func (e *Engine) Update(uri, text string) bool {
	return e.UpdateDocument(uri, text) == nil
}

// UpdateDocument is like Update but reports why the document was not
// updated.
func (e *Engine) UpdateDocument(uri, text string) (err error) {
	_, end := e.prof.Start(e.ctx, profiler.Span{Op: profiler.OpUpdate, URI: uri})
	defer func() { end(err) }()

	s := e.get(uri)
	if s == nil {
		return fmt.Errorf("%w: %s", ErrNotOpen, uri)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%w: %s", ErrNotOpen, uri)
	}
	s.reparse(text)
	s.revision++
	e.log.WithFields(logrus.Fields{
		"uri":      uri,
		"revision": s.revision,
		"errors":   len(s.tree.Errors()),
	}).Debug("Document updated")
	return nil
}

// Close discards the session for uri and cancels its compilation, if any.
// Closing a document which is not open does nothing.
func (e *Engine) Close(uri string) {
	_, end := e.prof.Start(e.ctx, profiler.Span{Op: profiler.OpClose, URI: uri})
	defer end(nil)

	e.mu.Lock()
	s := e.sessions[uri]
	delete(e.sessions, uri)
	e.mu.Unlock()
	if s == nil {
		return
	}
	s.close()
	e.log.WithField("uri", uri).Debug("Document closed")
}

// Source returns the current text of uri.  The boolean is false when the
// document is not open.
func (e *Engine) Source(uri string) (string, bool) {
	s := e.get(uri)
	if s == nil {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false
	}
	return s.text, true
}

// Revision returns the number of updates applied to uri since it was
// opened.
func (e *Engine) Revision(uri string) (uint64, bool) {
	s := e.get(uri)
	if s == nil {
		return 0, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, false
	}
	return s.revision, true
}

// Tree returns the syntax tree of the current revision of uri.
func (e *Engine) Tree(uri string) (*syntax.Tree, bool) {
	s := e.get(uri)
	if s == nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false
	}
	return s.tree, true
}

// Snapshot is a consistent view of one revision of a document.
type Snapshot struct {
	URI      string
	Text     string
	Revision uint64
	Tree     *syntax.Tree
	Index    *token.LineIndex
}

// Snapshot returns the current revision of uri.
func (e *Engine) Snapshot(uri string) (Snapshot, bool) {
	s := e.get(uri)
	if s == nil {
		return Snapshot{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Snapshot{}, false
	}
	return Snapshot{
		URI:      uri,
		Text:     s.text,
		Revision: s.revision,
		Tree:     s.tree,
		Index:    s.idx,
	}, true
}

// Documents returns the URIs of the open documents in no particular order.
func (e *Engine) Documents() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	uris := make([]string, 0, len(e.sessions))
	for uri := range e.sessions {
		uris = append(uris, uri)
	}
	return uris
}

// Highlights returns the highlight spans of uri ordered by position.  The
// result is empty when the document is not open.
func (e *Engine) Highlights(uri string) []highlight.Span {
	s := e.get(uri)
	if s == nil {
		return []highlight.Span{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return []highlight.Span{}
	}
	_, end := e.prof.Start(s.ctx, profiler.Span{Op: profiler.OpHighlights, URI: uri, Revision: s.revision})
	defer end(nil)
	spans := highlight.Extract(s.tree)
	if spans == nil {
		spans = []highlight.Span{}
	}
	return spans
}

// Diagnostics returns the parse errors of uri followed by the diagnostics
// of its last compilation, when that compilation saw the current revision.
// The result is empty when the document is not open.
func (e *Engine) Diagnostics(uri string) []diagnostic.Diagnostic {
	s := e.get(uri)
	if s == nil {
		return []diagnostic.Diagnostic{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return []diagnostic.Diagnostic{}
	}
	_, end := e.prof.Start(s.ctx, profiler.Span{Op: profiler.OpDiagnostics, URI: uri, Revision: s.revision})
	defer end(nil)
	var compiled []diagnostic.Diagnostic
	if c := s.compiled; c != nil && c.revision == s.revision {
		compiled = c.result.Diagnostics()
	}
	return diagnostic.Extract(s.tree, s.idx, compiled)
}

// Compile typesets the current revision of uri.  A second compilation of
// the same document waits for the first to finish.  Compilation stops when
// ctx is done or the document is closed.  Failures of any kind are reported
// in the result.
func (e *Engine) Compile(ctx context.Context, uri string) (res *compile.Result) {
	s := e.get(uri)
	if s == nil {
		e.log.WithField("uri", uri).Debug("Compile of unknown document")
		return compile.NoSuchDocument(uri)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	if err := s.compiling.Acquire(ctx, 1); err != nil {
		if s.ctx.Err() != nil {
			return compile.NoSuchDocument(uri)
		}
		return compile.Failed("", compile.ErrCanceled)
	}
	defer s.compiling.Release(1)

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return compile.NoSuchDocument(uri)
	}
	text, idx, rev := s.text, s.idx, s.revision
	s.mu.RUnlock()

	ctx, end := e.prof.Start(ctx, profiler.Span{Op: profiler.OpCompile, URI: uri, Revision: rev})
	defer func() {
		var err error
		if !res.Success {
			err = errors.New("compilation failed")
		}
		end(err)
	}()

	log := e.log.WithFields(logrus.Fields{"uri": uri, "revision": rev})
	log.Debug("Compiling document")
	res = e.backend.Compile(ctx, compile.Request{URI: uri, Text: text})
	for i := range res.Errors {
		res.Errors[i].Locate(idx)
	}
	for i := range res.Warnings {
		res.Warnings[i].Locate(idx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.revision != rev {
		log.Debug("Discarding compilation of stale revision")
		return res
	}
	s.compiled = &compiled{revision: rev, result: res}
	return res
}

// Shutdown closes every session and cancels their compilations.  The engine
// accepts no new documents afterwards.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	sessions := e.sessions
	e.sessions = make(map[string]*session)
	e.closed = true
	e.mu.Unlock()
	for _, s := range sessions {
		s.close()
	}
	e.cancel()
	e.log.WithField("documents", len(sessions)).Debug("Engine shut down")
}
