// Copyright © 2024 The ELPS authors

package cmd

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/muesli/reflow/indent"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/luthersystems/ctxengine/compile"
	"github.com/luthersystems/ctxengine/diagnostic"
	"github.com/luthersystems/ctxengine/engine"
)

type compileReport struct {
	File     string                  `json:"file" msgpack:"file"`
	Success  bool                    `json:"success" msgpack:"success"`
	PDFPath  string                  `json:"pdf_path,omitempty" msgpack:"pdf_path,omitempty"`
	Errors   []diagnostic.Diagnostic `json:"errors" msgpack:"errors"`
	Warnings []diagnostic.Diagnostic `json:"warnings" msgpack:"warnings"`
	Log      string                  `json:"log,omitempty" msgpack:"log,omitempty"`
}

// CompileCommand creates the "compile" cobra command.
func CompileCommand(opts ...Option) *cobra.Command {
	cfg := newCmdConfig(opts...)
	var (
		excludes []string
		jobs     int
		showLog  bool
	)
	cmd := &cobra.Command{
		Use:   "compile [flags] files...",
		Short: "Typeset ConTeXt documents",
		Long: `Typeset ConTeXt documents with the configured engine.

Documents are compiled concurrently, at most --jobs at a time.  Errors and
warnings scraped from the engine log are reported against the document
source.  Produced PDF files are stored in compiler.output_dir.

Exit codes:
  0  Every document compiled
  1  One or more documents failed to compile
  2  Bad invocation (invalid flags, unreadable files)

Examples:
  ctxengine compile doc.tex
  ctxengine compile --jobs=2 --log ./...
  ctxengine compile --executable=/opt/context/bin/context doc.tex
  ctxengine compile --remote=https://compile.example.com doc.tex`,
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
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			reports, err := compileAll(ctx, eng, docs, jobs)
			if err != nil {
				return err
			}
			if !showLog {
				for i := range reports {
					reports[i].Log = ""
				}
			}
			if format != formatText {
				if err := encode(cmd.OutOrStdout(), format, reports); err != nil {
					return err
				}
			} else if err := writeCompileReports(cmd.OutOrStdout(), cmd.ErrOrStderr(), reports); err != nil {
				return err
			}
			for _, r := range reports {
				if !r.Success {
					return errProblems
				}
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&excludes, "exclude", nil,
		"Glob pattern for files to exclude (may be repeated).")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0,
		"Maximum concurrent compilations (default: GOMAXPROCS).")
	cmd.Flags().BoolVar(&showLog, "log", false,
		"Include the engine log in the output.")
	return cmd
}

// compileAll compiles docs concurrently.  Reports are in the order of docs.
func compileAll(ctx context.Context, eng *engine.Engine, docs []document, jobs int) ([]compileReport, error) {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	reports := make([]compileReport, len(docs))
	if len(docs) == 0 {
		return reports, nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(docs)))
	for i, doc := range docs {
		i, doc := i, doc
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := eng.Compile(gctx, doc.URI)
			reports[i] = newCompileReport(doc.Path, res)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func newCompileReport(file string, res *compile.Result) compileReport {
	return compileReport{
		File:     file,
		Success:  res.Success,
		PDFPath:  res.PDFPath,
		Errors:   res.Errors,
		Warnings: res.Warnings,
		Log:      res.Log,
	}
}

// writeCompileReports renders diagnostics and logs to stderr and a summary
// line per document to stdout.
func writeCompileReports(stdout, stderr io.Writer, reports []compileReport) error {
	r := newRenderer()
	for _, rep := range reports {
		if err := r.RenderAll(stderr, rep.File, append(append([]diagnostic.Diagnostic(nil), rep.Errors...), rep.Warnings...)); err != nil {
			return err
		}
		if rep.Log != "" {
			if _, err := fmt.Fprintf(stderr, "%s: engine log:\n%s\n", rep.File, indent.String(strings.TrimRight(rep.Log, "\n"), 4)); err != nil {
				return err
			}
		}
		var err error
		if rep.Success {
			_, err = fmt.Fprintf(stdout, "%s: ok %s (%d warnings)\n", rep.File, rep.PDFPath, len(rep.Warnings))
		} else {
			_, err = fmt.Fprintf(stdout, "%s: failed (%d errors, %d warnings)\n", rep.File, len(rep.Errors), len(rep.Warnings))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(CompileCommand())
}
