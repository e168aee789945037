// Copyright © 2024 The ELPS authors

package compile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luthersystems/ctxengine/diagnostic"
	"github.com/luthersystems/ctxengine/parser/token"
)

const scrapeText = "line one\n\\foo bar\nline three"

func TestScrape(t *testing.T) {
	tests := []struct {
		name     string
		log      string
		severity diagnostic.Severity
		message  string
		rng      token.Span
	}{
		{RuleContextTeXError,
			"tex error       > tex error on line 2 in file job.tex: ! Undefined control sequence",
			diagnostic.SeverityError, "! Undefined control sequence", token.Span{Start: 9, End: 17}},
		{RuleContextLuaError,
			"lua error       > lua error on line 1 in file /tmp/w/job.tex: attempt to call a nil value",
			diagnostic.SeverityError, "attempt to call a nil value", token.Span{Start: 0, End: 8}},
		{RuleFileLineCol,
			"job.tex:2:3: warning: something odd",
			diagnostic.SeverityWarning, "something odd", token.Span{Start: 11, End: 17}},
		{RuleFileLine,
			"./job.tex:3: Missing $ inserted",
			diagnostic.SeverityError, "Missing $ inserted", token.Span{Start: 18, End: 28}},
		{RuleBoxWarning,
			`Overfull \hbox (12.0pt too wide) in paragraph at lines 1--1`,
			diagnostic.SeverityWarning, `Overfull \hbox (12.0pt too wide) in paragraph at lines 1--1`, token.Span{Start: 0, End: 8}},
		{RuleBoxWarning + " unlocated",
			`Underfull \vbox (badness 10000) has occurred while \output is active`,
			diagnostic.SeverityWarning, `Underfull \vbox (badness 10000) has occurred while \output is active`, token.Span{}},
		{RuleContextWarning,
			"references      > warning: missing reference 'fig'",
			diagnostic.SeverityWarning, "references: missing reference 'fig'", token.Span{}},
		{"other file",
			"tex error       > tex error on line 4 in file other.tex: oops",
			diagnostic.SeverityError, "other.tex:4: oops", token.Span{}},
		{"past end",
			"job.tex:99:1: error: far away",
			diagnostic.SeverityError, "far away", token.Span{}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			errs, warns := NewScraper("job.tex", scrapeText).Scrape(test.log)
			diags := append(errs, warns...)
			require.Len(t, diags, 1)
			d := diags[0]
			assert.Equal(t, test.severity, d.Severity)
			assert.Equal(t, test.message, d.Message)
			assert.Equal(t, test.rng, d.Range)
			assert.Equal(t, diagnostic.SourceCompiler, d.Source)
		})
	}
}

func TestScrapeTeXBang(t *testing.T) {
	log := "This is a log\n" +
		"! Undefined control sequence.\n" +
		"<argument> \\foo\n" +
		"l.2 \\foo\n" +
		"      bar\n" +
		"! Missing } inserted.\n"
	errs, warns := NewScraper("job.tex", scrapeText).Scrape(log)
	assert.Empty(t, warns)
	require.Len(t, errs, 2)
	assert.Equal(t, "Undefined control sequence.", errs[0].Message)
	assert.Equal(t, token.Span{Start: 9, End: 17}, errs[0].Range)
	assert.Equal(t, "Missing } inserted.", errs[1].Message)
	assert.Equal(t, token.Span{}, errs[1].Range)
}

func TestScrapeOrder(t *testing.T) {
	log := "job.tex:3:1: warning: w1\n" +
		"job.tex:2:1: error: e1\n" +
		"unrelated chatter\n" +
		"job.tex:1:1: error: e2\r\n" +
		"job.tex:1:1: warning: w2\n"
	errs, warns := NewScraper("job.tex", scrapeText).Scrape(log)
	require.Len(t, errs, 2)
	require.Len(t, warns, 2)
	assert.Equal(t, "e1", errs[0].Message)
	assert.Equal(t, "e2", errs[1].Message)
	assert.Equal(t, "w1", warns[0].Message)
	assert.Equal(t, "w2", warns[1].Message)
}

func TestScrapeEmpty(t *testing.T) {
	errs, warns := NewScraper("job.tex", scrapeText).Scrape("")
	assert.Empty(t, errs)
	assert.Empty(t, warns)
}

func TestScrapeLongLine(t *testing.T) {
	log := strings.Repeat("x", 2<<20) + "\n" +
		"tex error       > tex error on line 1 in file job.tex: ! Emergency stop\n"
	errs, _ := NewScraper("job.tex", scrapeText).Scrape(log)
	require.Len(t, errs, 1)
	assert.Equal(t, "! Emergency stop", errs[0].Message)
}
