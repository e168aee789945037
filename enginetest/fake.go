// Copyright © 2024 The ELPS authors

// Package enginetest provides helpers for testing code that drives the
// typesetting engine.
package enginetest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// Scripts for common fake engine behaviors.  The input file is the last
// argument and the working directory is the job directory.
const (
	// ScriptSuccess writes an artifact and a clean log.
	ScriptSuccess = `for a; do in=$a; done
echo "system          > ConTeXt  ver: fake"
printf '%%PDF-1.5 fake' > "${in%.tex}.pdf"
`
	// ScriptTeXError writes an artifact and reports an error on line 2.
	ScriptTeXError = `for a; do in=$a; done
echo "tex error       > tex error on line 2 in file $in: ! Undefined control sequence"
printf '%%PDF-1.5 fake' > "${in%.tex}.pdf"
`
	// ScriptWarning writes an artifact and reports a box warning on line 1.
	ScriptWarning = `for a; do in=$a; done
printf '%s\n' 'Overfull \hbox (12.0pt too wide) in paragraph at lines 1--1'
printf '%%PDF-1.5 fake' > "${in%.tex}.pdf"
`
	// ScriptNoArtifact exits without producing any output file.
	ScriptNoArtifact = `echo "nothing to do"
`
	// ScriptSleep never finishes on its own.
	ScriptSleep = `echo "started"
exec sleep 30
`
	// ScriptForkSleep starts a long running child, reports its pid, and
	// waits for it.
	ScriptForkSleep = `sleep 30 &
echo "child $!"
wait
`
	// ScriptCrash kills itself with a signal.
	ScriptCrash = `for a; do in=$a; done
printf '%%PDF-1.5 fake' > "${in%.tex}.pdf"
kill -9 $$
`
	// ScriptArgs echoes its arguments.
	ScriptArgs = `echo "args: $*"
`
)

// FakeEngine writes an executable shell script named name into a temporary
// directory and returns its path.  The test is skipped where shell scripts
// cannot be executed.
func FakeEngine(t testing.TB, name, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake engines are shell scripts")
	}
	path := filepath.Join(t.TempDir(), name)
	err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o700) //nolint:gosec // test executable
	if err != nil {
		t.Fatalf("write fake engine: %v", err)
	}
	return path
}
