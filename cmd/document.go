// Copyright © 2024 The ELPS authors

package cmd

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/luthersystems/ctxengine/engine"
)

// document is a source file opened in an engine.
type document struct {
	Path string
	URI  string
}

// fileURI returns the file URI naming path.
func fileURI(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}

// openDocuments reads each path and opens it in eng.  A path naming an
// already opened file is skipped.
func openDocuments(eng *engine.Engine, paths []string) ([]document, error) {
	docs := make([]document, 0, len(paths))
	for _, path := range paths {
		if _, ok := eng.Revision(fileURI(path)); ok {
			continue
		}
		src, err := os.ReadFile(path) //nolint:gosec // CLI tool reads user-specified files
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		doc := document{Path: path, URI: fileURI(path)}
		if err := eng.OpenDocument(doc.URI, string(src)); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
