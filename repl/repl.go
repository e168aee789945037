// Copyright © 2018 The ELPS authors

// Package repl implements an interactive shell over an engine.  Each input
// line is a command operating on the documents open in the engine.
//
//	open URI [FILE]      open a document from FILE (default: the URI path)
//	edit URI             open or replace a document with the lines that
//	                     follow, up to a line containing a single "."
//	update URI [FILE]    replace a document with the contents of FILE
//	close URI            close a document
//	docs                 list open documents
//	source URI           print the current text of a document
//	tree URI             print the syntax tree of a document
//	highlights URI       print highlight spans
//	diagnostics URI      print parser and compiler diagnostics
//	compile URI          compile a document
//	help                 list commands
//	quit                 leave the shell
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ergochat/readline"

	"github.com/luthersystems/ctxengine/diagnostic"
	"github.com/luthersystems/ctxengine/engine"
)

type config struct {
	stdin   io.ReadCloser
	stderr  io.WriteCloser
	history string
	color   diagnostic.ColorMode
}

func newConfig(opts ...Option) *config {
	config := &config{
		history: historyPath(),
	}
	for _, opt := range opts {
		opt(config)
	}
	return config
}

type Option func(*config)

// WithStdin allows overriding the input to the shell.
func WithStdin(stdin io.ReadCloser) Option {
	return func(c *config) {
		c.stdin = stdin
	}
}

// WithStderr allows overriding the output of the shell.
func WithStderr(stderr io.WriteCloser) Option {
	return func(c *config) {
		c.stderr = stderr
	}
}

// WithHistoryFile sets the file command history is persisted to.  An empty
// path disables persistence.
func WithHistoryFile(path string) Option {
	return func(c *config) {
		c.history = path
	}
}

// WithColor sets the color mode used to render diagnostics.
func WithColor(mode diagnostic.ColorMode) Option {
	return func(c *config) {
		c.color = mode
	}
}

// errQuit stops the read loop.
var errQuit = errors.New("quit")

// Shell holds the state of one interactive session.
type Shell struct {
	eng *engine.Engine
	out io.Writer
	r   *diagnostic.Renderer
	// pending is the URI of an edit awaiting its terminating line.
	pending string
	lines   []string
}

// Run reads commands until the input ends or quit is entered.  Documents
// remain open in eng when Run returns.
func Run(ctx context.Context, eng *engine.Engine, prompt string, opts ...Option) error {
	cfg := newConfig(opts...)
	var out io.Writer = os.Stderr
	if cfg.stderr != nil {
		out = cfg.stderr
	}
	sh := newShell(eng, out, cfg.color)

	ensureHistoryFilePermissions(cfg.history)
	rlCfg := &readline.Config{
		Stdout:            out,
		Stderr:            out,
		Prompt:            prompt,
		HistoryFile:       cfg.history,
		HistorySearchFold: true,
		AutoComplete:      &commandCompleter{eng: eng},
	}
	if cfg.stdin != nil {
		rlCfg.Stdin = cfg.stdin
	}
	rl, err := readline.NewEx(rlCfg)
	if err != nil {
		return fmt.Errorf("initialize line editor: %w", err)
	}
	defer rl.Close() //nolint:errcheck // best-effort cleanup

	cont := strings.Repeat(".", len(strings.TrimRight(prompt, " "))) + " "
	for {
		if sh.pending != "" {
			rl.SetPrompt(cont)
		} else {
			rl.SetPrompt(prompt)
		}
		line, err := rl.ReadSlice()
		if err == readline.ErrInterrupt {
			sh.cancelEdit()
			continue
		}
		if err != nil {
			sh.finishEdit()
			return nil
		}
		if err := sh.Exec(ctx, string(line)); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			errlnf(out, "error: %v", err)
		}
	}
}

func newShell(eng *engine.Engine, out io.Writer, color diagnostic.ColorMode) *Shell {
	return &Shell{
		eng: eng,
		out: out,
		r: &diagnostic.Renderer{
			Color:        color,
			SourceReader: sourceReader(eng),
		},
	}
}

// Exec executes one input line.
func (sh *Shell) Exec(ctx context.Context, line string) error {
	line = strings.TrimRight(line, "\r\n")
	if sh.pending != "" {
		if strings.TrimSpace(line) == "." {
			return sh.finishEdit()
		}
		sh.lines = append(sh.lines, line)
		return nil
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	name, args := fields[0], fields[1:]
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q (try help)", name)
	}
	if len(args) < cmd.minArgs || len(args) > cmd.maxArgs {
		return fmt.Errorf("usage: %s %s", name, cmd.usage)
	}
	return cmd.run(ctx, sh, args)
}

func (sh *Shell) cancelEdit() {
	if sh.pending != "" {
		errlnf(sh.out, "edit of %s abandoned", sh.pending)
	}
	sh.pending = ""
	sh.lines = nil
}

// finishEdit stores the collected lines of an edit.
func (sh *Shell) finishEdit() error {
	if sh.pending == "" {
		return nil
	}
	uri, text := sh.pending, strings.Join(sh.lines, "\n")
	if len(sh.lines) > 0 {
		text += "\n"
	}
	sh.pending = ""
	sh.lines = nil
	return sh.store(uri, text)
}

// store opens uri or replaces its text when it is already open.
func (sh *Shell) store(uri, text string) error {
	if _, ok := sh.eng.Revision(uri); ok {
		return sh.update(uri, text)
	}
	if err := sh.eng.OpenDocument(uri, text); err != nil {
		return err
	}
	rev, _ := sh.eng.Revision(uri)
	errlnf(sh.out, "opened %s (revision %d)", uri, rev)
	return nil
}

func (sh *Shell) update(uri, text string) error {
	if err := sh.eng.UpdateDocument(uri, text); err != nil {
		return err
	}
	rev, _ := sh.eng.Revision(uri)
	errlnf(sh.out, "updated %s (revision %d)", uri, rev)
	return nil
}

func sourceReader(eng *engine.Engine) func(string) ([]byte, error) {
	return func(uri string) ([]byte, error) {
		text, ok := eng.Source(uri)
		if !ok {
			return nil, engine.ErrNotOpen
		}
		return []byte(text), nil
	}
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ctxengine_history")
}

// ensureHistoryFilePermissions creates the history file if needed and
// restricts it to the owner.  Documents typed into the shell end up in it.
func ensureHistoryFilePermissions(path string) {
	if path == "" {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0o600) //nolint:gosec // user history file
	if err != nil {
		return
	}
	_ = f.Close()
	_ = os.Chmod(path, 0o600)
}

func errlnf(w io.Writer, format string, v ...interface{}) {
	if strings.HasSuffix(format, "\n") {
		errf(w, format, v...)
		return
	}
	errf(w, format+"\n", v...)
}

func errf(w io.Writer, format string, v ...interface{}) {
	fmt.Fprintf(w, format, v...) //nolint:errcheck // best-effort shell output
}
