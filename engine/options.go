// Copyright © 2024 The ELPS authors

package engine

import (
	"github.com/sirupsen/logrus"

	"github.com/luthersystems/ctxengine/compile"
	"github.com/luthersystems/ctxengine/profiler"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for engine events.
func WithLogger(log *logrus.Entry) Option {
	return func(e *Engine) { e.log = log }
}

// WithBackend sets the backend used to compile documents.  It takes
// precedence over WithConfig.
func WithBackend(b compile.Backend) Option {
	return func(e *Engine) { e.backend = b }
}

// WithConfig configures the default compile backend.
func WithConfig(cfg compile.Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithProfiler annotates engine operations with p.
func WithProfiler(p profiler.Profiler) Option {
	return func(e *Engine) { e.prof = p }
}
