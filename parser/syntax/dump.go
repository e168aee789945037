// Copyright © 2024 The ELPS authors

package syntax

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes an indented outline of the tree under n to w.  Each line names
// a node kind or token type with its span.
func Dump(w io.Writer, n Node) error {
	return dump(w, n, 0)
}

func dump(w io.Writer, n Node, depth int) error {
	indent := strings.Repeat("  ", depth)
	if _, err := fmt.Fprintf(w, "%s%s %s\n", indent, n.Kind(), n.Span()); err != nil {
		return err
	}
	for _, c := range n.Children() {
		if node, ok := c.Node(); ok {
			if err := dump(w, node, depth+1); err != nil {
				return err
			}
			continue
		}
		leaf, _ := c.Leaf()
		_, err := fmt.Fprintf(w, "%s  %s %s %q\n", indent, leaf.Type(), leaf.Span(), leaf.Text())
		if err != nil {
			return err
		}
	}
	return nil
}
