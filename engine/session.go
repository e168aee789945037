// Copyright © 2024 The ELPS authors

package engine

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/luthersystems/ctxengine/compile"
	"github.com/luthersystems/ctxengine/parser"
	"github.com/luthersystems/ctxengine/parser/syntax"
	"github.com/luthersystems/ctxengine/parser/token"
)

// arenaSlack bounds arena growth relative to the current document.  Old
// revisions leave unreachable nodes behind in a shared arena.
const arenaSlack = 8

// session is the state of one open document.
type session struct {
	uri string

	mu       sync.RWMutex
	text     string
	idx      *token.LineIndex
	tree     *syntax.Tree
	arena    *syntax.Arena
	revision uint64
	compiled *compiled // nil until a compile of the current revision lands
	closed   bool

	// ctx is canceled when the session closes.
	ctx    context.Context
	cancel context.CancelFunc
	// compiling admits one compile at a time.
	compiling *semaphore.Weighted
}

type compiled struct {
	revision uint64
	result   *compile.Result
}

func newSession(parent context.Context, uri, text string) *session {
	ctx, cancel := context.WithCancel(parent)
	s := &session{
		uri:       uri,
		ctx:       ctx,
		cancel:    cancel,
		compiling: semaphore.NewWeighted(1),
	}
	s.reparse(text)
	return s
}

// reparse replaces the document text.  The caller must hold s.mu or have
// exclusive access to s.
func (s *session) reparse(text string) {
	if s.arena == nil || s.arena.Len() > arenaSlack*(len(text)+1024) {
		s.arena = syntax.NewArena(uint(len(text) / 4))
	}
	s.text = text
	s.idx = token.NewLineIndex(text)
	s.tree = parser.Parse(text, s.arena)
	s.compiled = nil
}

// close discards the session state.  It is idempotent.
func (s *session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
	s.text = ""
	s.idx = nil
	s.tree = nil
	s.arena = nil
	s.compiled = nil
}
