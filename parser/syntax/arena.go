// Copyright © 2024 The ELPS authors

// Package syntax implements an immutable lossless concrete syntax tree.
//
// Tree nodes live in an Arena and are addressed by index.  Nodes record only
// their width, never their absolute position, and the arena interns every
// node and token it allocates.  Parsing a revised document into the same
// arena therefore yields the existing index for any subtree whose text and
// structure did not change, so consecutive revisions share all unaffected
// subtrees and only the changed spine is allocated.
package syntax

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/luthersystems/ctxengine/parser/token"
)

// NodeID is a 1-based index of an interior node in an Arena.
type NodeID uint32

// TokenID is a 1-based index of a leaf token in an Arena.
type TokenID uint32

// Element is a child reference.  Exactly one of Node and Token is non-zero.
type Element struct {
	Node  NodeID
	Token TokenID
}

// IsNode reports whether e refers to an interior node.
func (e Element) IsNode() bool {
	return e.Node != 0
}

type greenNode struct {
	kind     Kind
	children []Element
	width    uint32
}

type greenToken struct {
	typ  token.Type
	text string
}

type tokenKey struct {
	typ  token.Type
	text string
}

// Arena stores tree nodes and tokens for any number of trees.  Trees built
// in one arena share storage for identical subtrees.  An Arena is safe for
// concurrent use; elements are never removed, so a long-lived owner should
// replace its arena once Len grows well past the size of its live trees.
type Arena struct {
	mu         sync.RWMutex
	nodes      []greenNode
	tokens     []greenToken
	nodeCache  map[string]NodeID
	tokenCache map[tokenKey]TokenID
}

// NewArena creates an empty Arena.  capHint is a hint for the number of
// tokens it will hold; zero is allowed.
func NewArena(capHint uint) *Arena {
	return &Arena{
		nodes:      make([]greenNode, 0, capHint/2),
		tokens:     make([]greenToken, 0, capHint),
		nodeCache:  make(map[string]NodeID),
		tokenCache: make(map[tokenKey]TokenID),
	}
}

// Len returns the total number of nodes and tokens allocated in the arena.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.nodes) + len(a.tokens)
}

func (a *Arena) internToken(typ token.Type, text string) TokenID {
	key := tokenKey{typ, text}
	a.mu.RLock()
	id, ok := a.tokenCache[key]
	a.mu.RUnlock()
	if ok {
		return id
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if id, ok := a.tokenCache[key]; ok {
		return id
	}
	a.tokens = append(a.tokens, greenToken{typ: typ, text: text})
	id = TokenID(len(a.tokens))
	a.tokenCache[key] = id
	return id
}

func (a *Arena) internNode(kind Kind, children []Element) NodeID {
	key := nodeKey(kind, children)
	a.mu.RLock()
	id, ok := a.nodeCache[key]
	a.mu.RUnlock()
	if ok {
		return id
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if id, ok := a.nodeCache[key]; ok {
		return id
	}
	var width uint32
	for _, c := range children {
		width += a.widthLocked(c)
	}
	a.nodes = append(a.nodes, greenNode{
		kind:     kind,
		children: append([]Element(nil), children...),
		width:    width,
	})
	id = NodeID(len(a.nodes))
	a.nodeCache[key] = id
	return id
}

func nodeKey(kind Kind, children []Element) string {
	buf := make([]byte, 0, 1+5*len(children))
	buf = append(buf, byte(kind))
	for _, c := range children {
		if c.IsNode() {
			buf = append(buf, 'n')
			buf = binary.LittleEndian.AppendUint32(buf, uint32(c.Node))
		} else {
			buf = append(buf, 't')
			buf = binary.LittleEndian.AppendUint32(buf, uint32(c.Token))
		}
	}
	return string(buf)
}

// widthLocked requires a.mu be held.
func (a *Arena) widthLocked(e Element) uint32 {
	if e.IsNode() {
		return a.nodeLocked(e.Node).width
	}
	return uint32(len(a.tokenLocked(e.Token).text))
}

func (a *Arena) node(id NodeID) greenNode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.nodeLocked(id)
}

func (a *Arena) token(id TokenID) greenToken {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.tokenLocked(id)
}

func (a *Arena) nodeLocked(id NodeID) greenNode {
	if id == 0 || int(id) > len(a.nodes) {
		panic(fmt.Sprintf("syntax: node %d out of range", id))
	}
	return a.nodes[id-1]
}

func (a *Arena) tokenLocked(id TokenID) greenToken {
	if id == 0 || int(id) > len(a.tokens) {
		panic(fmt.Sprintf("syntax: token %d out of range", id))
	}
	return a.tokens[id-1]
}
