// Copyright © 2024 The ELPS authors

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/luthersystems/ctxengine/engine"
	"github.com/luthersystems/ctxengine/highlight"
)

type highlightReport struct {
	File  string           `json:"file" msgpack:"file"`
	Spans []highlight.Span `json:"spans" msgpack:"spans"`
}

// HighlightCommand creates the "highlight" cobra command.
func HighlightCommand(opts ...Option) *cobra.Command {
	cfg := newCmdConfig(opts...)
	var excludes []string
	cmd := &cobra.Command{
		Use:   "highlight [flags] files...",
		Short: "Print the highlight spans of ConTeXt documents",
		Long: `Print the highlight spans of ConTeXt documents.

Each span covers one token and is labeled Keyword, Command, Option, Text,
Comment, or Environment.  Whitespace is not labeled.  In text format each
line holds the span as file:line:col-line:col followed by its kind and
source text.  Columns count bytes.

Examples:
  ctxengine highlight doc.tex
  ctxengine highlight --format=json chapters/...`,
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
			reports := make([]highlightReport, 0, len(docs))
			for _, doc := range docs {
				reports = append(reports, highlightReport{File: doc.Path, Spans: eng.Highlights(doc.URI)})
			}
			if format != formatText {
				return encode(cmd.OutOrStdout(), format, reports)
			}
			for i, r := range reports {
				if err := writeHighlights(cmd.OutOrStdout(), eng, docs[i], r.Spans); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&excludes, "exclude", nil,
		"Glob pattern for files to exclude (may be repeated).")
	return cmd
}

func writeHighlights(w io.Writer, eng *engine.Engine, doc document, spans []highlight.Span) error {
	snap, ok := eng.Snapshot(doc.URI)
	if !ok {
		return fmt.Errorf("%s: %w", doc.Path, engine.ErrNotOpen)
	}
	for _, span := range spans {
		start := snap.Index.Location(doc.Path, int(span.Range.Start))
		end := snap.Index.Location("", int(span.Range.End))
		text := snap.Text[span.Range.Start:span.Range.End]
		_, err := fmt.Fprintf(w, "%s-%d:%d\t%s\t%q\n", start, end.Line, end.Col, span.Kind, text)
		if err != nil {
			return err
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(HighlightCommand())
}
