// Copyright © 2018 The ELPS authors

package repl

import (
	"sort"
	"strings"

	"github.com/luthersystems/ctxengine/engine"
)

// commandCompleter implements readline.AutoCompleter by completing command
// names and the URIs of open documents.
type commandCompleter struct {
	eng *engine.Engine
}

func (c *commandCompleter) Do(line []rune, pos int) ([][]rune, int) {
	// Extract the word being typed (backwards from cursor to whitespace).
	start := pos
	for start > 0 {
		ch := line[start-1]
		if ch == ' ' || ch == '\t' {
			break
		}
		start--
	}
	prefix := string(line[start:pos])
	words := strings.Fields(string(line[:start]))

	var candidates []string
	switch len(words) {
	case 0:
		candidates = matching(commandNames(), prefix)
	case 1:
		cmd, ok := commands[words[0]]
		if !ok || !cmd.takesURI {
			return nil, 0
		}
		uris := c.eng.Documents()
		sort.Strings(uris)
		candidates = matching(uris, prefix)
	}
	if len(candidates) == 0 {
		return nil, 0
	}

	// Build completions: each entry is the suffix to append.
	result := make([][]rune, 0, len(candidates))
	for _, s := range candidates {
		result = append(result, []rune(s[len(prefix):]))
	}
	return result, len([]rune(prefix))
}

func matching(names []string, prefix string) []string {
	var result []string
	for _, name := range names {
		if strings.HasPrefix(name, prefix) {
			result = append(result, name)
		}
	}
	return result
}
