// Copyright © 2024 The ELPS authors

package syntax

// Kind identifies the syntactic role of an interior tree node.
type Kind uint8

// Kind constants produced by the parser.
const (
	InvalidKind Kind = iota
	Document
	EnvironmentBlock
	CommandInvocation
	OptionGroup
	Argument
	Group
	TextRun
	ErrorNode

	numKinds
)

func (k Kind) String() string {
	kindStrings := [numKinds]string{
		InvalidKind:       "invalid",
		Document:          "document",
		EnvironmentBlock:  "environment-block",
		CommandInvocation: "command-invocation",
		OptionGroup:       "option-group",
		Argument:          "argument",
		Group:             "group",
		TextRun:           "text-run",
		ErrorNode:         "error-node",
	}
	if k >= numKinds {
		return kindStrings[InvalidKind]
	}
	return kindStrings[k]
}
