// Copyright © 2024 The ELPS authors

// Package diagnostic holds the uniform diagnostic model shared by the parser
// and the compile orchestrator, merges the two sources for a document, and
// renders diagnostics as annotated source snippets for CLI output.
package diagnostic

import (
	"fmt"
	"sort"

	"github.com/luthersystems/ctxengine/parser/syntax"
	"github.com/luthersystems/ctxengine/parser/token"
)

// Sources identifying where a diagnostic came from.
const (
	SourceParser   = "parser"
	SourceCompiler = "compiler"
)

// Severity indicates the severity level of a diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	switch s {
	case SeverityError, SeverityWarning:
		return []byte(s.String()), nil
	}
	return nil, fmt.Errorf("invalid severity: %d", int(s))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(b []byte) error {
	switch string(b) {
	case "error":
		*s = SeverityError
	case "warning":
		*s = SeverityWarning
	default:
		return fmt.Errorf("unknown severity: %q", b)
	}
	return nil
}

// Diagnostic is a located, severity-tagged report of a problem with a
// document.  Range is authoritative; the line and column fields are derived
// from it for display and are zero when unknown.
type Diagnostic struct {
	Range    token.Span `json:"range" msgpack:"range"`
	Severity Severity   `json:"severity" msgpack:"severity"`
	Message  string     `json:"message" msgpack:"message"`
	Source   string     `json:"source" msgpack:"source"`
	Line     int        `json:"line,omitempty" msgpack:"line,omitempty"`
	Col      int        `json:"col,omitempty" msgpack:"col,omitempty"`
	EndLine  int        `json:"end_line,omitempty" msgpack:"end_line,omitempty"`
	EndCol   int        `json:"end_col,omitempty" msgpack:"end_col,omitempty"`
}

func (d Diagnostic) Error() string {
	if d.Line > 0 {
		return fmt.Sprintf("%d:%d: %s: %s", d.Line, d.Col, d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Range, d.Severity, d.Message)
}

// Locate fills the line and column fields of d from idx.
func (d *Diagnostic) Locate(idx *token.LineIndex) {
	start := idx.Location("", int(d.Range.Start))
	end := idx.Location("", int(d.Range.End))
	d.Line, d.Col = start.Line, start.Col
	d.EndLine, d.EndCol = end.Line, end.Col
}

// FromTree converts the parse errors of tree into diagnostics ordered by
// start offset.
func FromTree(tree *syntax.Tree) []Diagnostic {
	errs := tree.Errors()
	diags := make([]Diagnostic, 0, len(errs))
	for _, err := range errs {
		diags = append(diags, Diagnostic{
			Range:    err.Span,
			Severity: SeverityError,
			Message:  err.Message,
			Source:   SourceParser,
		})
	}
	sort.SliceStable(diags, func(i, j int) bool {
		return diags[i].Range.Start < diags[j].Range.Start
	})
	return diags
}

// Extract merges the parse errors of tree with compiler diagnostics.  Parser
// diagnostics come first in document order followed by compiled in the
// order given.  Nothing is deduplicated.  When idx is non-nil every
// diagnostic is located against it.
func Extract(tree *syntax.Tree, idx *token.LineIndex, compiled []Diagnostic) []Diagnostic {
	diags := FromTree(tree)
	for _, d := range compiled {
		d.Source = SourceCompiler
		diags = append(diags, d)
	}
	if idx != nil {
		for i := range diags {
			diags[i].Locate(idx)
		}
	}
	return diags
}

// Count returns the number of errors and warnings in diags.
func Count(diags []Diagnostic) (errors, warnings int) {
	for _, d := range diags {
		switch d.Severity {
		case SeverityError:
			errors++
		case SeverityWarning:
			warnings++
		}
	}
	return errors, warnings
}
