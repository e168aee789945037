// Copyright © 2024 The ELPS authors

package lsp

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/luthersystems/ctxengine/compile"
)

// CommandCompile compiles the document named by its only argument and
// returns the compile result.
const CommandCompile = "ctxengine.compile"

// workspaceExecuteCommand handles the workspace/executeCommand request.
func (s *Server) workspaceExecuteCommand(ctx *glsp.Context, params *protocol.ExecuteCommandParams) (any, error) {
	s.captureNotify(ctx)
	switch params.Command {
	case CommandCompile:
		if len(params.Arguments) != 1 {
			return nil, fmt.Errorf("%s: expected one argument, got %d", CommandCompile, len(params.Arguments))
		}
		uri, ok := params.Arguments[0].(string)
		if !ok {
			return nil, fmt.Errorf("%s: argument must be a document uri", CommandCompile)
		}
		return s.compile(s.ctx, uri), nil
	default:
		return nil, fmt.Errorf("unknown command %q", params.Command)
	}
}

// compile compiles uri and publishes the resulting diagnostics.
func (s *Server) compile(ctx context.Context, uri string) *compile.Result {
	res := s.engine.Compile(ctx, uri)
	s.log.WithFields(logrus.Fields{
		"uri":      uri,
		"success":  res.Success,
		"pdf_path": res.PDFPath,
	}).Info("Compiled document")
	s.publishDiagnostics(uri)
	return res
}
