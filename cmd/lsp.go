// Copyright © 2024 The ELPS authors

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/luthersystems/ctxengine/lsp"
)

// LSPCommand creates the "lsp" cobra command with optional embedder
// configuration.  Embedders can pass WithBackend to compile documents
// somewhere other than the configured engine.
func LSPCommand(opts ...Option) *cobra.Command {
	cfg := newCmdConfig(opts...)

	var (
		stdio         bool
		port          int
		compileOnSave bool
	)

	cmd := &cobra.Command{
		Use:   "lsp [flags]",
		Short: "Start the ConTeXt Language Server Protocol server",
		Long: `Start an LSP server for ConTeXt source files.

The language server keeps a session for every open document and provides
semantic highlighting, diagnostics, folding ranges, and document symbols.
The workspace command "ctxengine.compile" typesets a document and publishes
the diagnostics scraped from the engine log.

Transport modes:
  --stdio      Use stdin/stdout for LSP communication (default)
  --port N     Listen for an LSP client on TCP port N

Examples:
  ctxengine lsp                           Start with stdio transport
  ctxengine lsp --stdio                   Same as above (explicit)
  ctxengine lsp --port 7998               Start with TCP on port 7998
  ctxengine lsp --compile-on-save         Compile whenever a document is saved`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			log := newLogger()
			srv := lsp.New(
				lsp.WithEngine(cfg.newEngine()),
				lsp.WithLogger(log),
				lsp.WithCompileOnSave(compileOnSave),
			)

			if !stdio && port > 0 {
				addr := fmt.Sprintf("localhost:%d", port)
				log.WithField("addr", addr).Info("LSP server listening")
				if err := srv.RunTCP(addr); err != nil {
					return fmt.Errorf("lsp server: %w", err)
				}
				return nil
			}
			if err := srv.RunStdio(); err != nil {
				return fmt.Errorf("lsp server: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&stdio, "stdio", false,
		"Use stdin/stdout for LSP communication (default behavior)")
	cmd.Flags().IntVar(&port, "port", 0,
		"TCP port for LSP server (use instead of --stdio)")
	cmd.Flags().BoolVar(&compileOnSave, "compile-on-save", false,
		"Compile documents when the client saves them")

	return cmd
}

func init() {
	rootCmd.AddCommand(LSPCommand())
}
