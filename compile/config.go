// Copyright © 2024 The ELPS authors

package compile

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultArgs are passed to the engine ahead of the input file.
var DefaultArgs = []string{"--batchmode", "--nonstopmode", "--purgeall"}

// DefaultExecutables are searched for on PATH, in order, when no executable
// is configured.
var DefaultExecutables = []string{"context", "mtxrun"}

const DefaultTimeout = 2 * time.Minute

// Config controls how documents are compiled.
type Config struct {
	// Executable is a path or command name.  Empty searches PATH for
	// DefaultExecutables.
	Executable string
	// Args precede the input file name.  Nil means DefaultArgs.
	Args []string
	// Timeout bounds a single compilation.  Zero means DefaultTimeout.
	Timeout time.Duration
	// OutputDir receives produced artifacts.  Empty means a ctxengine
	// directory under os.TempDir.
	OutputDir string
	// Remote selects the HTTP backend when its Endpoint is set.
	Remote RemoteConfig
}

// RemoteConfig locates a compile service.
type RemoteConfig struct {
	Endpoint string
	Token    string
}

func (c Config) args() []string {
	if c.Args == nil {
		return DefaultArgs
	}
	return c.Args
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

func (c Config) outputDir() string {
	if c.OutputDir == "" {
		return filepath.Join(os.TempDir(), "ctxengine")
	}
	return c.OutputDir
}

// New returns the backend selected by cfg.  A nil log discards output.
func New(cfg Config, log *logrus.Entry) Backend {
	if cfg.Remote.Endpoint != "" {
		return NewRemoteBackend(cfg, log)
	}
	return NewLocalBackend(cfg, log)
}

func discardLogger() *logrus.Entry {
	l := logrus.New()
	l.Out = io.Discard
	return logrus.NewEntry(l)
}
