// Copyright © 2018 The ELPS authors

// Package rdparser is an error tolerant recursive descent parser which
// builds a lossless syntax tree from lexed tokens.
//
//	document    := item*
//	item        := environment | command | group | text-run | trivia
//	environment := start-marker groups item* stop-marker
//	command     := (command | keyword) groups
//	groups      := (ws? (option-list | argument))*
//	argument    := '{' item* '}'
//	group       := '{' item* '}'
//	text-run    := (text | ws)+ containing at least one text token
//
// Whitespace before a group may span at most one line break.  A closer
// closes the innermost pending opener of its family; openers left pending
// by it are reported as unterminated.  Closers with no pending opener are
// wrapped in error nodes.  Every token ends up in the tree.
package rdparser

import (
	"fmt"
	"strings"

	"github.com/luthersystems/ctxengine/parser/syntax"
	"github.com/luthersystems/ctxengine/parser/token"
)

type openerKind uint8

const (
	openEnv openerKind = iota
	openBrace
)

type opener struct {
	kind openerKind
	name string
}

// Parser builds a syntax tree from a token sequence.
type Parser struct {
	src *TokenSource
	b   *syntax.Builder
	// pending counts the open openers of each family.
	pending map[opener]int
}

// NewFromSource initializes and returns a Parser that reads tokens from src
// and allocates tree nodes in arena.  A nil arena is replaced by a fresh one.
func NewFromSource(src *TokenSource, arena *syntax.Arena) *Parser {
	return &Parser{
		src:     src,
		b:       syntax.NewBuilder(arena),
		pending: make(map[opener]int),
	}
}

// New initializes and returns a Parser over toks.
func New(toks []token.Token, arena *syntax.Arena) *Parser {
	return NewFromSource(NewTokenSource(toks), arena)
}

// Parse builds the tree for toks.  It never fails; malformed input is
// recorded in the tree's errors.
func Parse(toks []token.Token, arena *syntax.Arena) *syntax.Tree {
	return New(toks, arena).ParseDocument()
}

// ParseDocument consumes every remaining token and returns the tree.
func (p *Parser) ParseDocument() *syntax.Tree {
	p.b.StartNode(syntax.Document)
	// Nothing is pending at the top level so every token is consumed.
	p.parseItems()
	p.b.FinishNode()
	return p.b.Finish()
}

// parseItems parses items until the end of input or a closer belonging to a
// pending opener.
func (p *Parser) parseItems() {
	for {
		tok, ok := p.src.Peek()
		if !ok {
			return
		}
		switch {
		case tok.IsStopMarker():
			if p.isPending(openEnv, tok.EnvName()) {
				return
			}
			p.parseStray()
		case tok.IsGroupClose():
			if p.isPending(openBrace, "") {
				return
			}
			p.parseStray()
		default:
			p.parseItem(tok)
		}
	}
}

func (p *Parser) parseItem(tok token.Token) {
	switch {
	case tok.IsStartMarker():
		p.parseEnvironment()
	case tok.Type == token.COMMAND, tok.Type == token.KEYWORD:
		p.parseCommand()
	case tok.IsGroupOpen():
		p.parseBraceGroup(syntax.Group)
	case tok.IsOptionList():
		p.parseOptionGroup()
	case tok.Type == token.TEXT, tok.Type == token.WHITESPACE:
		p.parseText()
	case tok.Type == token.COMMENT:
		p.src.Scan()
		p.b.Token(p.src.Token)
	case tok.Type == token.ERROR:
		p.src.Scan()
		p.errorNode(p.src.Token, invalidMessage(p.src.Token))
	default:
		p.src.Scan()
		p.errorNode(p.src.Token, fmt.Sprintf("unexpected %s token", p.src.Token.Type))
	}
}

func (p *Parser) parseEnvironment() {
	p.src.Scan()
	start := p.src.Token
	name := start.EnvName()

	p.b.StartNode(syntax.EnvironmentBlock)
	p.b.Token(start)
	p.parseGroups()

	p.push(openEnv, name)
	p.parseItems()
	p.pop(openEnv, name)

	if p.src.Accept(func(tok token.Token) bool { return tok.IsStopMarker() && tok.EnvName() == name }) {
		p.b.Token(p.src.Token)
	} else {
		p.b.Error(start.Span, fmt.Sprintf("unterminated environment %s: missing %s%s", start.Text, `\stop`, name))
	}
	p.b.FinishNode()
}

func (p *Parser) parseCommand() {
	p.src.Scan()
	p.b.StartNode(syntax.CommandInvocation)
	p.b.Token(p.src.Token)
	p.parseGroups()
	p.b.FinishNode()
}

// parseGroups attaches adjacent option lists and arguments to the current
// node.
func (p *Parser) parseGroups() {
	for {
		i := 0
		if tok, ok := p.src.Peek(); ok && tok.Type == token.WHITESPACE && strings.Count(tok.Text, "\n") <= 1 {
			i = 1
		}
		next, ok := p.src.PeekAt(i)
		if !ok || !(next.IsOptionList() || next.IsGroupOpen()) {
			return
		}
		if i > 0 {
			p.src.Scan()
			p.b.Token(p.src.Token)
		}
		if next.IsGroupOpen() {
			p.parseBraceGroup(syntax.Argument)
		} else {
			p.parseOptionGroup()
		}
	}
}

func (p *Parser) parseOptionGroup() {
	p.src.Scan()
	tok := p.src.Token
	p.b.StartNode(syntax.OptionGroup)
	p.b.Token(tok)
	if tok.IsUnterminated() {
		p.b.Error(tok.Span, fmt.Sprintf("unterminated option group: missing %c", closerOf(tok.Text[0])))
	}
	p.b.FinishNode()
}

func (p *Parser) parseBraceGroup(kind syntax.Kind) {
	p.src.Scan()
	open := p.src.Token

	p.b.StartNode(kind)
	p.b.Token(open)

	p.push(openBrace, "")
	p.parseItems()
	p.pop(openBrace, "")

	if p.src.Accept(token.Token.IsGroupClose) {
		p.b.Token(p.src.Token)
	} else {
		p.b.Error(open.Span, "unterminated group: missing }")
	}
	p.b.FinishNode()
}

// parseText consumes a maximal run of text and whitespace.  A run without
// any text is left as bare trivia.
func (p *Parser) parseText() {
	n := 0
	hasText := false
	for {
		tok, ok := p.src.PeekAt(n)
		if !ok || (tok.Type != token.TEXT && tok.Type != token.WHITESPACE) {
			break
		}
		hasText = hasText || tok.Type == token.TEXT
		n++
	}
	if hasText {
		p.b.StartNode(syntax.TextRun)
	}
	for ; n > 0; n-- {
		p.src.Scan()
		p.b.Token(p.src.Token)
	}
	if hasText {
		p.b.FinishNode()
	}
}

// parseStray wraps a closer with no matching opener in an error node.
func (p *Parser) parseStray() {
	p.src.Scan()
	tok := p.src.Token
	p.errorNode(tok, fmt.Sprintf("unmatched %s", tok.Text))
}

func (p *Parser) errorNode(tok token.Token, msg string) {
	p.b.StartNode(syntax.ErrorNode)
	p.b.Token(tok)
	p.b.FinishNode()
	p.b.Error(tok.Span, msg)
}

func (p *Parser) push(kind openerKind, name string) {
	p.pending[opener{kind: kind, name: name}]++
}

func (p *Parser) pop(kind openerKind, name string) {
	o := opener{kind: kind, name: name}
	if p.pending[o]--; p.pending[o] == 0 {
		delete(p.pending, o)
	}
}

func (p *Parser) isPending(kind openerKind, name string) bool {
	return p.pending[opener{kind: kind, name: name}] > 0
}

func invalidMessage(tok token.Token) string {
	if tok.Text == `\` {
		return "incomplete control sequence"
	}
	return fmt.Sprintf("invalid character %q", tok.Text)
}

func closerOf(c byte) byte {
	if c == '(' {
		return ')'
	}
	return ']'
}
