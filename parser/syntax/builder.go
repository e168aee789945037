// Copyright © 2024 The ELPS authors

package syntax

import (
	"github.com/luthersystems/ctxengine/parser/token"
)

type frame struct {
	kind  Kind
	first int // index of the frame's first child in Builder.children
}

// Builder assembles a tree bottom-up.  Calls to StartNode and FinishNode must
// nest properly and the outermost node is the tree root.
type Builder struct {
	arena    *Arena
	stack    []frame
	children []Element
	errors   []ParseError
}

// NewBuilder returns a Builder allocating into arena.  A nil arena is
// replaced by a fresh one.
func NewBuilder(arena *Arena) *Builder {
	if arena == nil {
		arena = NewArena(0)
	}
	return &Builder{arena: arena}
}

// StartNode opens a node of the given kind.  Subsequent tokens and nodes
// become its children until the matching FinishNode.
func (b *Builder) StartNode(kind Kind) {
	b.stack = append(b.stack, frame{kind: kind, first: len(b.children)})
}

// Token appends tok to the current node.
func (b *Builder) Token(tok token.Token) {
	if len(b.stack) == 0 {
		panic("syntax: token outside of any node")
	}
	id := b.arena.internToken(tok.Type, tok.Text)
	b.children = append(b.children, Element{Token: id})
}

// FinishNode closes the current node.
func (b *Builder) FinishNode() {
	if len(b.stack) == 0 {
		panic("syntax: unbalanced FinishNode")
	}
	f := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	id := b.arena.internNode(f.kind, b.children[f.first:])
	b.children = append(b.children[:f.first], Element{Node: id})
}

// Error records a parse error for the tree under construction.
func (b *Builder) Error(span token.Span, msg string) {
	b.errors = append(b.errors, ParseError{Span: span, Message: msg})
}

// Finish returns the completed tree.  Every started node must have been
// finished and exactly one root node built.
func (b *Builder) Finish() *Tree {
	if len(b.stack) != 0 || len(b.children) != 1 || !b.children[0].IsNode() {
		panic("syntax: incomplete tree")
	}
	return NewTree(b.arena, b.children[0].Node, b.errors)
}
