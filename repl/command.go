// Copyright © 2024 The ELPS authors

package repl

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/luthersystems/ctxengine/diagnostic"
	"github.com/luthersystems/ctxengine/engine"
	"github.com/luthersystems/ctxengine/parser/syntax"
)

type command struct {
	usage   string
	help    string
	minArgs int
	maxArgs int
	// takesURI enables completion of open documents for the first argument.
	takesURI bool
	run      func(ctx context.Context, sh *Shell, args []string) error
}

var commands map[string]*command

func init() {
	commands = map[string]*command{
		"open":        {"URI [FILE]", "open a document from FILE", 1, 2, false, runOpen},
		"edit":        {"URI", "enter document text, ending with a line \".\"", 1, 1, true, runEdit},
		"update":      {"URI [FILE]", "replace a document with the contents of FILE", 1, 2, true, runUpdate},
		"close":       {"URI", "close a document", 1, 1, true, runClose},
		"docs":        {"", "list open documents", 0, 0, false, runDocs},
		"source":      {"URI", "print document text", 1, 1, true, runSource},
		"tree":        {"URI", "print the syntax tree", 1, 1, true, runTree},
		"highlights":  {"URI", "print highlight spans", 1, 1, true, runHighlights},
		"diagnostics": {"URI", "print diagnostics", 1, 1, true, runDiagnostics},
		"compile":     {"URI", "compile a document", 1, 1, true, runCompile},
		"help":        {"", "list commands", 0, 0, false, runHelp},
		"quit":        {"", "leave the shell", 0, 0, false, runQuit},
	}
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// readDocument reads the text for uri from file, or from the path named by
// uri when file is empty.
func readDocument(uri, file string) (string, error) {
	if file == "" {
		file = uri
		if u, err := url.Parse(uri); err == nil && u.Scheme == "file" {
			file = u.Path
		}
	}
	b, err := os.ReadFile(file) //nolint:gosec // user-named document
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func fileArg(args []string) string {
	if len(args) > 1 {
		return args[1]
	}
	return ""
}

func runOpen(_ context.Context, sh *Shell, args []string) error {
	text, err := readDocument(args[0], fileArg(args))
	if err != nil {
		return err
	}
	if err := sh.eng.OpenDocument(args[0], text); err != nil {
		return err
	}
	rev, _ := sh.eng.Revision(args[0])
	errlnf(sh.out, "opened %s (revision %d)", args[0], rev)
	return nil
}

func runEdit(_ context.Context, sh *Shell, args []string) error {
	sh.pending = args[0]
	sh.lines = nil
	return nil
}

func runUpdate(_ context.Context, sh *Shell, args []string) error {
	text, err := readDocument(args[0], fileArg(args))
	if err != nil {
		return err
	}
	return sh.update(args[0], text)
}

func runClose(_ context.Context, sh *Shell, args []string) error {
	if _, ok := sh.eng.Revision(args[0]); !ok {
		return fmt.Errorf("%w: %s", engine.ErrNotOpen, args[0])
	}
	sh.eng.Close(args[0])
	errlnf(sh.out, "closed %s", args[0])
	return nil
}

func runDocs(_ context.Context, sh *Shell, _ []string) error {
	uris := sh.eng.Documents()
	sort.Strings(uris)
	for _, uri := range uris {
		rev, _ := sh.eng.Revision(uri)
		errlnf(sh.out, "%s\trevision %d", uri, rev)
	}
	return nil
}

func snapshot(sh *Shell, uri string) (engine.Snapshot, error) {
	snap, ok := sh.eng.Snapshot(uri)
	if !ok {
		return snap, fmt.Errorf("%w: %s", engine.ErrNotOpen, uri)
	}
	return snap, nil
}

func runSource(_ context.Context, sh *Shell, args []string) error {
	snap, err := snapshot(sh, args[0])
	if err != nil {
		return err
	}
	errf(sh.out, "%s", snap.Text)
	if snap.Text != "" && !strings.HasSuffix(snap.Text, "\n") {
		errf(sh.out, "\n")
	}
	return nil
}

func runTree(_ context.Context, sh *Shell, args []string) error {
	snap, err := snapshot(sh, args[0])
	if err != nil {
		return err
	}
	return syntax.Dump(sh.out, snap.Tree.Root())
}

func runHighlights(_ context.Context, sh *Shell, args []string) error {
	snap, err := snapshot(sh, args[0])
	if err != nil {
		return err
	}
	for _, span := range sh.eng.Highlights(args[0]) {
		start := snap.Index.Location("", int(span.Range.Start))
		end := snap.Index.Location("", int(span.Range.End))
		text := ""
		if int(span.Range.End) <= len(snap.Text) {
			text = snap.Text[span.Range.Start:span.Range.End]
		}
		errlnf(sh.out, "%d:%d-%d:%d\t%s\t%q", start.Line, start.Col, end.Line, end.Col, span.Kind, text)
	}
	return nil
}

func runDiagnostics(_ context.Context, sh *Shell, args []string) error {
	if _, err := snapshot(sh, args[0]); err != nil {
		return err
	}
	diags := sh.eng.Diagnostics(args[0])
	if len(diags) == 0 {
		errlnf(sh.out, "no diagnostics")
		return nil
	}
	return sh.render(args[0], diags)
}

func runCompile(ctx context.Context, sh *Shell, args []string) error {
	res := sh.eng.Compile(ctx, args[0])
	diags := append(append([]diagnostic.Diagnostic(nil), res.Errors...), res.Warnings...)
	if err := sh.render(args[0], diags); err != nil {
		return err
	}
	nerr, nwarn := diagnostic.Count(diags)
	if res.Success {
		errlnf(sh.out, "compiled %s: %s (%d warnings)", args[0], res.PDFPath, nwarn)
		return nil
	}
	errlnf(sh.out, "compilation of %s failed (%d errors, %d warnings)", args[0], nerr, nwarn)
	return nil
}

func (sh *Shell) render(uri string, diags []diagnostic.Diagnostic) error {
	for _, d := range diags {
		if err := sh.r.Render(sh.out, uri, d); err != nil {
			return err
		}
	}
	return nil
}

func runHelp(_ context.Context, sh *Shell, _ []string) error {
	for _, name := range commandNames() {
		cmd := commands[name]
		errlnf(sh.out, "  %-24s %s", strings.TrimSpace(name+" "+cmd.usage), cmd.help)
	}
	return nil
}

func runQuit(context.Context, *Shell, []string) error {
	return errQuit
}
