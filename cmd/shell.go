// Copyright © 2018 The ELPS authors

package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/luthersystems/ctxengine/repl"
)

// ShellCommand creates the "shell" cobra command.
func ShellCommand(opts ...Option) *cobra.Command {
	cfg := newCmdConfig(opts...)
	return &cobra.Command{
		Use:   "shell [files...]",
		Short: "Start an interactive document session shell",
		Long: `Start an interactive shell over a set of document sessions.

Files named on the command line are opened before the first prompt and
are known by their file URIs.  Line editing, completion of commands and
open documents, and command history are supported via readline.  Use
Ctrl-D or quit to exit.

Example session:
  ctx> edit memo
  ...  \starttext
  ...  Hello \bf{world}
  ...  .
  opened memo (revision 0)
  ctx> diagnostics memo
  error[parser]: unterminated environment \starttext: missing \stoptext
  ctx> highlights memo
  ...
  ctx> compile memo
  ...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng := cfg.newEngine()
			defer eng.Shutdown()
			docs, err := openDocuments(eng, args)
			if err != nil {
				return err
			}
			for _, doc := range docs {
				cmd.PrintErrf("opened %s\n", doc.URI)
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return repl.Run(ctx, eng, "ctx> ", repl.WithColor(colorMode()))
		},
	}
}

func init() {
	rootCmd.AddCommand(ShellCommand())
}
