// Copyright © 2024 The ELPS authors

package diagnostic

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luthersystems/ctxengine/parser"
	"github.com/luthersystems/ctxengine/parser/token"
)

func TestFromTree(t *testing.T) {
	diags := FromTree(parser.Parse(`\command{`, nil))
	require.Len(t, diags, 1)
	assert.Equal(t, SourceParser, diags[0].Source)
	assert.Equal(t, SeverityError, diags[0].Severity)
	assert.Equal(t, uint32(8), diags[0].Range.Start)
}

func TestExtract(t *testing.T) {
	const src = "} text\n\\starta"
	tree := parser.Parse(src, nil)
	compiled := []Diagnostic{
		{Range: token.Span{Start: 7, End: 14}, Severity: SeverityWarning, Message: "late"},
		{Range: token.Span{Start: 0, End: 0}, Severity: SeverityError, Message: "early"},
	}
	diags := Extract(tree, token.NewLineIndex(src), compiled)
	require.Len(t, diags, 4)

	// parser diagnostics in document order
	assert.Equal(t, SourceParser, diags[0].Source)
	assert.Equal(t, "unmatched }", diags[0].Message)
	assert.Equal(t, SourceParser, diags[1].Source)
	assert.Equal(t, 2, diags[1].Line)
	assert.Equal(t, 1, diags[1].Col)

	// compiler diagnostics in log order, not re-sorted
	assert.Equal(t, "late", diags[2].Message)
	assert.Equal(t, SourceCompiler, diags[2].Source)
	assert.Equal(t, "early", diags[3].Message)
	assert.Equal(t, 1, diags[3].Line)

	errs, warns := Count(diags)
	assert.Equal(t, 3, errs)
	assert.Equal(t, 1, warns)
}

func TestExtractNoDedup(t *testing.T) {
	tree := parser.Parse(`\command{`, nil)
	same := Diagnostic{Range: token.Span{Start: 8, End: 9}, Severity: SeverityError, Message: "unterminated group: missing }"}
	diags := Extract(tree, nil, []Diagnostic{same})
	require.Len(t, diags, 2)
	assert.Equal(t, diags[0].Range, diags[1].Range)
	assert.Zero(t, diags[0].Line)
}

func TestSeverityText(t *testing.T) {
	b, err := json.Marshal(Diagnostic{
		Range:    token.Span{Start: 1, End: 2},
		Severity: SeverityWarning,
		Message:  "m",
		Source:   SourceCompiler,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"range":{"start":1,"end":2},"severity":"warning","message":"m","source":"compiler"}`, string(b))

	var d Diagnostic
	require.NoError(t, json.Unmarshal(b, &d))
	assert.Equal(t, SeverityWarning, d.Severity)

	var s Severity
	assert.Error(t, s.UnmarshalText([]byte("fatal")))
	_, err = Severity(7).MarshalText()
	assert.Error(t, err)
}

func TestDiagnosticError(t *testing.T) {
	d := Diagnostic{Range: token.Span{Start: 3, End: 4}, Message: "bad"}
	assert.Equal(t, "[3,4): error: bad", d.Error())
	d.Line, d.Col = 2, 5
	assert.Equal(t, "2:5: error: bad", d.Error())
}
