// Copyright © 2024 The ELPS authors

package syntax

import (
	"sort"
	"strings"

	"github.com/luthersystems/ctxengine/parser/token"
)

// ParseError is a recoverable problem found while building a tree.
type ParseError struct {
	Span    token.Span
	Message string
}

func (e ParseError) Error() string {
	return e.Span.String() + ": " + e.Message
}

// Tree is the immutable result of parsing one document revision.
type Tree struct {
	arena  *Arena
	root   NodeID
	errors []ParseError
}

// NewTree returns a tree rooted at root.  Errors are ordered by start offset.
func NewTree(arena *Arena, root NodeID, errs []ParseError) *Tree {
	errs = append([]ParseError(nil), errs...)
	sort.SliceStable(errs, func(i, j int) bool {
		return errs[i].Span.Start < errs[j].Span.Start
	})
	return &Tree{arena: arena, root: root, errors: errs}
}

// Arena returns the arena holding the tree.
func (t *Tree) Arena() *Arena {
	return t.arena
}

// Root returns the document node.
func (t *Tree) Root() Node {
	return Node{arena: t.arena, id: t.root}
}

// Errors returns the parse errors recorded while building the tree.
func (t *Tree) Errors() []ParseError {
	return append([]ParseError(nil), t.errors...)
}

// Len returns the length in bytes of the document text.
func (t *Tree) Len() uint32 {
	return t.arena.node(t.root).width
}

// Text renders the tree back to the exact document text.
func (t *Tree) Text() string {
	return t.Root().Text()
}

// Node is a positioned view of an interior node.
type Node struct {
	arena *Arena
	id    NodeID
	start uint32
}

func (n Node) ID() NodeID {
	return n.id
}

func (n Node) Kind() Kind {
	return n.arena.node(n.id).kind
}

// Span returns the byte range covered by n in its document.
func (n Node) Span() token.Span {
	return token.Span{Start: n.start, End: n.start + n.arena.node(n.id).width}
}

// Children returns the direct children of n in document order.
func (n Node) Children() []Child {
	g := n.arena.node(n.id)
	children := make([]Child, len(g.children))
	off := n.start
	for i, e := range g.children {
		if e.IsNode() {
			c := Node{arena: n.arena, id: e.Node, start: off}
			children[i] = Child{node: c, isNode: true}
			off += n.arena.node(e.Node).width
		} else {
			c := Leaf{arena: n.arena, id: e.Token, start: off}
			children[i] = Child{leaf: c}
			off += uint32(len(n.arena.token(e.Token).text))
		}
	}
	return children
}

// Text returns the document text spanned by n.
func (n Node) Text() string {
	var b strings.Builder
	Leaves(n, func(l Leaf, _ []Kind) {
		b.WriteString(l.Text())
	})
	return b.String()
}

// Leaf is a positioned view of a token in the tree.
type Leaf struct {
	arena *Arena
	id    TokenID
	start uint32
}

func (l Leaf) ID() TokenID {
	return l.id
}

func (l Leaf) Type() token.Type {
	return l.arena.token(l.id).typ
}

func (l Leaf) Text() string {
	return l.arena.token(l.id).text
}

func (l Leaf) Span() token.Span {
	return token.Span{Start: l.start, End: l.start + uint32(len(l.Text()))}
}

// Token returns the lexical token represented by l.
func (l Leaf) Token() token.Token {
	g := l.arena.token(l.id)
	return token.Token{
		Type: g.typ,
		Text: g.text,
		Span: token.Span{Start: l.start, End: l.start + uint32(len(g.text))},
	}
}

// Child is either a Node or a Leaf.
type Child struct {
	node   Node
	leaf   Leaf
	isNode bool
}

func (c Child) IsNode() bool {
	return c.isNode
}

// Node returns the child as a node.  The boolean is false for a leaf.
func (c Child) Node() (Node, bool) {
	return c.node, c.isNode
}

// Leaf returns the child as a leaf.  The boolean is false for a node.
func (c Child) Leaf() (Leaf, bool) {
	return c.leaf, !c.isNode
}

func (c Child) Span() token.Span {
	if c.isNode {
		return c.node.Span()
	}
	return c.leaf.Span()
}

// Walk calls fn for n and its descendant nodes in pre-order.  When fn
// returns false the children of that node are skipped.
func Walk(n Node, fn func(Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children() {
		if c.isNode {
			Walk(c.node, fn)
		}
	}
}

// Leaves calls fn for every token under n in document order.  The ancestors
// slice lists the kinds of the enclosing nodes, outermost first, and is only
// valid for the duration of the call.
func Leaves(n Node, fn func(l Leaf, ancestors []Kind)) {
	var stack []Kind
	var visit func(Node)
	visit = func(n Node) {
		stack = append(stack, n.Kind())
		for _, c := range n.Children() {
			if c.isNode {
				visit(c.node)
			} else {
				fn(c.leaf, stack)
			}
		}
		stack = stack[:len(stack)-1]
	}
	visit(n)
}
