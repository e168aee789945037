// Copyright © 2024 The ELPS authors

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/luthersystems/ctxengine/diagnostic"
)

type diagnosticReport struct {
	File        string                  `json:"file" msgpack:"file"`
	Diagnostics []diagnostic.Diagnostic `json:"diagnostics" msgpack:"diagnostics"`
}

// DiagnoseCommand creates the "diagnose" cobra command.
func DiagnoseCommand(opts ...Option) *cobra.Command {
	cfg := newCmdConfig(opts...)
	var excludes []string
	cmd := &cobra.Command{
		Use:   "diagnose [flags] files...",
		Short: "Report malformed markup in ConTeXt documents",
		Long: `Report malformed markup in ConTeXt documents.

Documents are parsed without being compiled.  Unterminated environments and
groups, unmatched closers, and invalid characters are reported.

Exit codes:
  0  No errors found
  1  One or more errors were reported
  2  Bad invocation (invalid flags, unreadable files)

Examples:
  ctxengine diagnose doc.tex
  ctxengine diagnose --exclude=build ./...
  ctxengine diagnose --format=json doc.tex`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat()
			if err != nil {
				return err
			}
			paths, err := expandArgs(args, excludes)
			if err != nil {
				return err
			}
			eng := cfg.newEngine()
			defer eng.Shutdown()
			docs, err := openDocuments(eng, paths)
			if err != nil {
				return err
			}
			reports := make([]diagnosticReport, 0, len(docs))
			failed := false
			for _, doc := range docs {
				diags := eng.Diagnostics(doc.URI)
				if n, _ := diagnostic.Count(diags); n > 0 {
					failed = true
				}
				reports = append(reports, diagnosticReport{File: doc.Path, Diagnostics: diags})
			}
			if format != formatText {
				if err := encode(cmd.OutOrStdout(), format, reports); err != nil {
					return err
				}
			} else {
				r := newRenderer()
				for _, rep := range reports {
					if err := r.RenderAll(cmd.ErrOrStderr(), rep.File, rep.Diagnostics); err != nil {
						return err
					}
				}
			}
			if failed {
				return errProblems
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&excludes, "exclude", nil,
		"Glob pattern for files to exclude (may be repeated).")
	return cmd
}

func init() {
	rootCmd.AddCommand(DiagnoseCommand())
}
