// Copyright © 2018 The ELPS authors

// Package profiler annotates engine operations with tracing spans.
package profiler

import (
	"context"
	"math"

	"fortio.org/safecast"
)

// Op names an annotated engine operation.
type Op string

const (
	OpOpen        Op = "open"
	OpUpdate      Op = "update"
	OpClose       Op = "close"
	OpHighlights  Op = "highlights"
	OpDiagnostics Op = "diagnostics"
	OpCompile     Op = "compile"
)

// Span describes one engine operation on a document.
type Span struct {
	Op       Op
	URI      string
	Revision uint64
}

// EndFunc completes a span.  A non-nil err marks the operation failed.
type EndFunc func(err error)

// Profiler starts spans for engine operations.  The returned context carries
// the span so that nested operations are recorded as its children.
type Profiler interface {
	Start(ctx context.Context, s Span) (context.Context, EndFunc)
}

// SkipFilter reports whether a span should not be recorded.
type SkipFilter func(s Span) bool

// Labeler provides an alternative name for a span.
type Labeler func(s Span) string

// Option configures an annotator.
type Option func(*profiler)

// WithSkipFilter sets the filter for recorded spans.
func WithSkipFilter(skipFilter SkipFilter) Option {
	return func(p *profiler) {
		p.skipFilter = skipFilter
	}
}

// WithOps restricts recording to the named operations.
func WithOps(ops ...Op) Option {
	keep := make(map[Op]bool, len(ops))
	for _, op := range ops {
		keep[op] = true
	}
	return WithSkipFilter(func(s Span) bool { return !keep[s.Op] })
}

// WithLabeler sets the labeler for recorded spans.
func WithLabeler(labeler Labeler) Option {
	return func(p *profiler) {
		p.labeler = labeler
	}
}

// profiler holds the configuration shared by annotators.
type profiler struct {
	skipFilter SkipFilter
	labeler    Labeler
}

func (p *profiler) applyConfigs(opts ...Option) {
	for _, opt := range opts {
		opt(p)
	}
}

func (p *profiler) skipTrace(s Span) bool {
	return p.skipFilter != nil && p.skipFilter(s)
}

// label returns the span name for s.
func (p *profiler) label(s Span) string {
	if p.labeler != nil {
		if name := p.labeler(s); name != "" {
			return name
		}
	}
	return DefaultLabel(s)
}

// DefaultLabel names a span after its operation.
func DefaultLabel(s Span) string {
	return "ctxengine." + string(s.Op)
}

// Nop returns a Profiler which records nothing.
func Nop() Profiler {
	return nop{}
}

type nop struct{}

func (nop) Start(ctx context.Context, _ Span) (context.Context, EndFunc) {
	return ctx, func(error) {}
}

func revision64(rev uint64) int64 {
	v, err := safecast.Conv[int64](rev)
	if err != nil {
		return math.MaxInt64
	}
	return v
}
