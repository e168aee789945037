// Copyright © 2024 The ELPS authors

package cmd

import (
	"github.com/luthersystems/ctxengine/compile"
	"github.com/luthersystems/ctxengine/profiler"
)

// Option configures an exported command factory (CompileCommand,
// LSPCommand, ShellCommand).
type Option func(*cmdConfig)

type cmdConfig struct {
	backend  compile.Backend
	profiler profiler.Profiler
}

func newCmdConfig(opts ...Option) *cmdConfig {
	var cfg cmdConfig
	for _, o := range opts {
		o(&cfg)
	}
	return &cfg
}

// WithBackend injects the backend documents are compiled with, replacing
// the one selected by the compiler configuration.
func WithBackend(b compile.Backend) Option {
	return func(c *cmdConfig) { c.backend = b }
}

// WithProfiler annotates the engine operations a command performs.
func WithProfiler(p profiler.Profiler) Option {
	return func(c *cmdConfig) { c.profiler = p }
}
