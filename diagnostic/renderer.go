// Copyright © 2024 The ELPS authors

package diagnostic

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"

	"github.com/luthersystems/ctxengine/parser/token"
)

// Renderer formats diagnostics as annotated source snippets.
type Renderer struct {
	// Color controls ANSI color output. Default is ColorAuto.
	Color ColorMode

	// Width wraps messages at the given column when positive.
	Width int

	// SourceReader reads source file contents. If nil, os.ReadFile is used.
	SourceReader func(string) ([]byte, error)
}

// Render writes a single diagnostic for file to w.  The diagnostic must
// have been located for its source snippet to be shown.
func (r *Renderer) Render(w io.Writer, file string, d Diagnostic) error {
	p := choosePalette(r.Color, fileFromWriter(w))
	bw := bufio.NewWriter(w)
	ew := &errWriter{w: bw}

	r.writeHeader(ew, d, p)
	r.writeSpan(ew, file, d, p)

	if ew.err != nil {
		return ew.err
	}
	return bw.Flush()
}

// RenderAll writes all diagnostics to w separated by blank lines.
func (r *Renderer) RenderAll(w io.Writer, file string, diags []Diagnostic) error {
	for i, d := range diags {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := r.Render(w, file, d); err != nil {
			return err
		}
	}
	return nil
}

// errWriter wraps a writer and captures the first error, short-circuiting
// subsequent writes. This avoids checking every fmt.Fprintf return value.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, a ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, a...)
}

func (ew *errWriter) print(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = io.WriteString(ew.w, s)
}

func (r *Renderer) writeHeader(ew *errWriter, d Diagnostic, p palette) {
	sevColor := p.boldRed
	if d.Severity == SeverityWarning {
		sevColor = p.yellow
	}
	head := d.Severity.String()
	if d.Source != "" {
		head += "[" + d.Source + "]"
	}
	msg := strings.TrimRight(d.Message, "\n")
	if r.Width > 0 {
		msg = wordwrap.String(msg, r.Width)
	}
	first, rest, _ := strings.Cut(msg, "\n")
	ew.printf("%s: %s\n", sevColor.Sprint(head), p.bold.Sprint(first))
	if rest != "" {
		ew.print(indent.String(rest, uint(len(head)+2)) + "\n")
	}
}

func (r *Renderer) writeSpan(ew *errWriter, file string, d Diagnostic, p palette) {
	// Location line: "  --> file:line:col"
	loc := &token.Location{File: file, Pos: int(d.Range.Start), Line: d.Line, Col: d.Col}
	ew.printf("  %s %s\n", p.boldBlue.Sprint("-->"), loc)

	source := r.readSourceLine(file, d.Line)
	if source == "" {
		ew.printf("   %s\n", p.boldBlue.Sprint("|"))
		return
	}

	lineStr := fmt.Sprintf("%d", d.Line)
	pad := strings.Repeat(" ", len(lineStr))
	gutter := p.boldBlue.Sprint(pad + " |")

	ew.printf(" %s\n", gutter)
	displaySource := strings.ReplaceAll(source, "\t", "    ")
	ew.printf(" %s  %s\n", p.boldBlue.Sprint(lineStr+" |"), displaySource)

	col := d.Col
	if col <= 0 {
		col = 1
	}
	endCol := col
	switch {
	case d.EndLine == d.Line && d.EndCol > col:
		// EndCol is exclusive
		endCol = d.EndCol - 1
	case d.EndLine > d.Line:
		endCol = len(source)
	default:
		endCol = detectEndCol(source, col)
	}
	if endCol < col {
		endCol = col
	}

	prefix := ""
	if col > 1 && col-1 <= len(source) {
		prefix = source[:col-1]
	}
	underPad := strings.Repeat(" ", displayWidth(prefix))
	underline := strings.Repeat("^", endCol-col+1)
	ew.printf(" %s  %s%s\n", gutter, underPad, p.boldRed.Sprint(underline))
	ew.printf(" %s\n", gutter)
}

func (r *Renderer) readSourceLine(file string, line int) string {
	if line <= 0 || file == "" {
		return ""
	}
	reader := r.SourceReader
	if reader == nil {
		reader = func(name string) ([]byte, error) {
			return os.ReadFile(name) //nolint:gosec // reads user-specified source files for display
		}
	}
	data, err := reader(file)
	if err != nil {
		return ""
	}
	return token.NewLineIndex(string(data)).Line(line)
}

// detectEndCol scans from col to find the end of the control word or text
// run beginning there.  Zero-width ranges are widened this way so they
// remain visible.
func detectEndCol(source string, col int) int {
	if col <= 0 || col > len(source) {
		return col
	}
	end := col - 1 // 0-based
	if source[end] == '\\' {
		end++
	}
	for end < len(source) {
		ch, size := utf8.DecodeRuneInString(source[end:])
		if ch == ' ' || ch == '\t' || ch == '\\' || ch == '{' || ch == '}' || ch == '[' || ch == ']' {
			break
		}
		end += size
	}
	if end <= col-1 {
		return col // single character
	}
	return end // convert back to 1-based end column
}

// displayWidth returns the display width of a string, expanding tabs to 4 spaces.
func displayWidth(s string) int {
	w := 0
	for _, ch := range s {
		if ch == '\t' {
			w += 4
		} else {
			w++
		}
	}
	return w
}

// fileFromWriter attempts to extract an *os.File from a writer for terminal
// detection. Returns nil if the writer is not backed by a file.
func fileFromWriter(w io.Writer) *os.File {
	if f, ok := w.(*os.File); ok {
		return f
	}
	return nil
}
