// Copyright © 2024 The ELPS authors

package compile

import (
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"fortio.org/safecast"
	parsec "github.com/prataprc/goparsec"

	"github.com/luthersystems/ctxengine/diagnostic"
	"github.com/luthersystems/ctxengine/parser/token"
)

/*
Engine logs are scraped one line at a time.  Rules are tried in order and
the first match classifies the line.

	context-tex-error  "tex error" '>' "tex error on line" N "in file" F ':' MSG
	context-lua-error  "lua error" '>' "lua error on line" N "in file" F ':' MSG
	file-line-col      F ':' N ':' C ':' ("error" | "warning") ':' MSG
	file-line          F ".tex" ':' N ':' MSG
	tex-bang           '!' MSG, located by a later "l." N line
	box-warning        ("Overfull" | "Underfull") BOX DETAIL ... "at line" 's'? N
	context-warning    CATEGORY '>' ... "warning" ... ':' MSG

A location naming a file other than the compiled document, or a line past
its end, is dropped and the diagnostic attaches to the document start.
*/

// Rule names, reported in debug logging.
const (
	RuleContextTeXError = "context-tex-error"
	RuleContextLuaError = "context-lua-error"
	RuleFileLineCol     = "file-line-col"
	RuleFileLine        = "file-line"
	RuleTeXBang         = "tex-bang"
	RuleBoxWarning      = "box-warning"
	RuleContextWarning  = "context-warning"
)

// match is the information a rule extracts from one log line.
type match struct {
	rule     string
	severity diagnostic.Severity
	file     string
	line     int
	col      int
	message  string
}

type rule struct {
	name     string
	severity diagnostic.Severity
	parser   parsec.Parser
	// build converts the named terminals of a successful parse.
	build func(f map[string]string, m *match)
}

type fields map[string]string

// collect gathers the terminals of a parse into a map keyed by terminal
// name.  Repeated names keep their first value.
func collect(nodes []parsec.ParsecNode) parsec.ParsecNode {
	f := fields{}
	var walk func(n parsec.ParsecNode)
	walk = func(n parsec.ParsecNode) {
		switch n := n.(type) {
		case *parsec.Terminal:
			if _, ok := f[n.Name]; !ok {
				f[n.Name] = n.Value
			}
		case []parsec.ParsecNode:
			for _, c := range n {
				walk(c)
			}
		case fields:
			for k, v := range n {
				if _, ok := f[k]; !ok {
					f[k] = v
				}
			}
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return f
}

func newRules() []rule {
	number := func(name string) parsec.Parser { return parsec.Token(`[0-9]+`, name) }
	rest := parsec.Token(`.+`, "MSG")
	colon := parsec.Atom(":", "COLON")

	engineError := func(kind string) parsec.Parser {
		return parsec.And(collect,
			parsec.Atom(kind+" error", "KIND"),
			parsec.Atom(">", "GT"),
			parsec.Atom(kind+" error on line", "AT"),
			number("LINE"),
			parsec.Atom("in file", "IN"),
			parsec.Token(`[^:]+`, "FILE"),
			colon,
			rest,
		)
	}
	fileLineCol := parsec.And(collect,
		parsec.Token(`[^:\s]+`, "FILE"), colon,
		number("LINE"), colon,
		number("COL"), colon,
		parsec.Token(`(?:error|warning)`, "SEV"), colon,
		rest,
	)
	fileLine := parsec.And(collect,
		parsec.Token(`[^:\s]+\.tex`, "FILE"), colon,
		number("LINE"), colon,
		rest,
	)
	bang := parsec.And(collect, parsec.Atom("!", "BANG"), rest)
	boxHead := []interface{}{
		parsec.Token(`(?:Overfull|Underfull)`, "BOX"),
		parsec.Token(`\\[hv]box`, "KIND"),
		parsec.Token(`\([^)]*\)`, "DETAIL"),
	}
	box := parsec.OrdChoice(nil,
		parsec.And(collect, append(boxHead,
			parsec.Token(`.*?at lines?`, "WHERE"),
			number("LINE"),
		)...),
		parsec.And(collect, boxHead...),
	)
	contextWarning := parsec.And(collect,
		parsec.Token(`[a-zA-Z][a-zA-Z ]*>`, "CATEGORY"),
		parsec.Token(`[^:]*\bwarning\b[^:]*:`, "WHAT"),
		rest,
	)

	lineOf := func(f map[string]string, m *match) {
		m.file = strings.TrimSpace(f["FILE"])
		m.line, _ = strconv.Atoi(f["LINE"])
		m.col, _ = strconv.Atoi(f["COL"])
		m.message = strings.TrimSpace(f["MSG"])
	}
	return []rule{
		{RuleContextTeXError, diagnostic.SeverityError, engineError("tex"), lineOf},
		{RuleContextLuaError, diagnostic.SeverityError, engineError("lua"), lineOf},
		{RuleFileLineCol, diagnostic.SeverityError, fileLineCol, func(f map[string]string, m *match) {
			lineOf(f, m)
			if f["SEV"] == "warning" {
				m.severity = diagnostic.SeverityWarning
			}
		}},
		{RuleFileLine, diagnostic.SeverityError, fileLine, lineOf},
		{RuleTeXBang, diagnostic.SeverityError, bang, lineOf},
		{RuleBoxWarning, diagnostic.SeverityWarning, box, func(f map[string]string, m *match) {
			m.line, _ = strconv.Atoi(f["LINE"])
		}},
		{RuleContextWarning, diagnostic.SeverityWarning, contextWarning, func(f map[string]string, m *match) {
			category := strings.TrimSpace(strings.TrimSuffix(f["CATEGORY"], ">"))
			m.message = category + ": " + strings.TrimSpace(f["MSG"])
		}},
	}
}

var (
	defaultRules = newRules()
	texLineRef   = parsec.And(collect, parsec.Atom("l.", "L"), parsec.Token(`[0-9]+`, "LINE"))
)

func (r rule) apply(line string) (*match, bool) {
	node, _ := r.parser(parsec.NewScanner([]byte(line)))
	f, ok := node.(fields)
	if !ok {
		return nil, false
	}
	m := &match{rule: r.name, severity: r.severity, message: strings.TrimSpace(line)}
	r.build(f, m)
	if m.message == "" {
		m.message = strings.TrimSpace(line)
	}
	return m, true
}

// Scraper classifies engine log lines for one compiled document.
type Scraper struct {
	rules []rule
	job   string // input file name of the compiled document
	idx   *token.LineIndex
}

// NewScraper returns a Scraper locating diagnostics in text, which was
// compiled as the input file named input.
func NewScraper(input, text string) *Scraper {
	return &Scraper{
		rules: defaultRules,
		job:   input,
		idx:   token.NewLineIndex(text),
	}
}

// Scrape returns the errors and warnings found in log, each in log order.
func (s *Scraper) Scrape(log string) (errs, warnings []diagnostic.Diagnostic) {
	var matches []*match
	var bang *match // awaiting an "l." line
	for _, line := range strings.Split(log, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if bang != nil {
			if node, _ := texLineRef(parsec.NewScanner([]byte(line))); node != nil {
				if f, ok := node.(fields); ok {
					bang.line, _ = strconv.Atoi(f["LINE"])
					bang = nil
					continue
				}
			}
		}
		m, ok := s.classify(line)
		if !ok {
			continue
		}
		bang = nil
		if m.rule == RuleTeXBang {
			bang = m
		}
		matches = append(matches, m)
	}
	for _, m := range matches {
		d := s.diagnostic(m)
		if d.Severity == diagnostic.SeverityWarning {
			warnings = append(warnings, d)
		} else {
			errs = append(errs, d)
		}
	}
	return errs, warnings
}

func (s *Scraper) classify(line string) (*match, bool) {
	for _, r := range s.rules {
		if m, ok := r.apply(line); ok {
			return m, true
		}
	}
	return nil, false
}

func (s *Scraper) diagnostic(m *match) diagnostic.Diagnostic {
	d := diagnostic.Diagnostic{
		Severity: m.severity,
		Message:  m.message,
		Source:   diagnostic.SourceCompiler,
	}
	if m.file != "" && !s.isInput(m.file) {
		d.Message = m.file + ":" + strconv.Itoa(m.line) + ": " + m.message
		return d
	}
	start, end, ok := s.idx.LineSpan(m.line)
	if !ok {
		return d
	}
	if m.col > 0 {
		off, _ := s.idx.Offset(m.line, m.col)
		start = off
	}
	d.Range = token.Span{Start: offset32(start), End: offset32(end)}
	return d
}

func (s *Scraper) isInput(file string) bool {
	return s.job == "" || filepath.Base(filepath.FromSlash(file)) == s.job
}

func offset32(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		return math.MaxUint32
	}
	return v
}
