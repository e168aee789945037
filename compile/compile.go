// Copyright © 2024 The ELPS authors

// Package compile drives an external typesetting engine over a document and
// reports the produced artifact together with the errors and warnings found
// in the engine's log.
//
// Compilation never fails with a Go error.  Missing executables, launch
// failures, timeouts, and unknown documents all produce a Result with
// Success false and a single synthetic diagnostic so callers always have
// something to display.
package compile

import (
	"context"
	"errors"
	"fmt"

	"github.com/luthersystems/ctxengine/diagnostic"
)

var (
	// ErrExecutableNotFound is reported when no typesetting engine can be
	// located.
	ErrExecutableNotFound = errors.New("executable not found")
	// ErrNoSuchDocument is reported when compiling a document that is not
	// open.
	ErrNoSuchDocument = errors.New("no such document")
	// ErrTimeout is reported when the engine does not finish in time.
	ErrTimeout = errors.New("compilation timed out")
	// ErrCanceled is reported when the caller abandons a compilation.
	ErrCanceled = errors.New("compilation canceled")
)

// Request is the input to a compilation.
type Request struct {
	URI  string
	Text string
}

// Result is the outcome of one compilation.
type Result struct {
	Success  bool                    `json:"success" msgpack:"success"`
	PDFPath  string                  `json:"pdf_path,omitempty" msgpack:"pdf_path,omitempty"`
	Log      string                  `json:"log" msgpack:"log"`
	Errors   []diagnostic.Diagnostic `json:"errors" msgpack:"errors"`
	Warnings []diagnostic.Diagnostic `json:"warnings" msgpack:"warnings"`
}

// Diagnostics returns the errors followed by the warnings of r.
func (r *Result) Diagnostics() []diagnostic.Diagnostic {
	diags := make([]diagnostic.Diagnostic, 0, len(r.Errors)+len(r.Warnings))
	diags = append(diags, r.Errors...)
	return append(diags, r.Warnings...)
}

// Backend compiles documents.  Implementations must be safe for concurrent
// use and must honor ctx cancellation.
type Backend interface {
	Compile(ctx context.Context, req Request) *Result
}

// Failed returns an unsuccessful result carrying err as its only error.  The
// error is attached to the start of the document.
func Failed(log string, err error) *Result {
	return &Result{
		Log: log,
		Errors: []diagnostic.Diagnostic{
			synthetic(err),
		},
	}
}

// NoSuchDocument returns the result of compiling a document which is not
// open.
func NoSuchDocument(uri string) *Result {
	return Failed("", fmt.Errorf("%w: %s", ErrNoSuchDocument, uri))
}

func synthetic(err error) diagnostic.Diagnostic {
	return diagnostic.Diagnostic{
		Severity: diagnostic.SeverityError,
		Message:  err.Error(),
		Source:   diagnostic.SourceCompiler,
	}
}
