package repl

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luthersystems/ctxengine/compile"
	"github.com/luthersystems/ctxengine/engine"
)

type fixedBackend struct {
	res *compile.Result
}

func (b fixedBackend) Compile(context.Context, compile.Request) *compile.Result {
	r := *b.res
	return &r
}

func runShellWithString(t *testing.T, eng *engine.Engine, input string) string {
	t.Helper()
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	go func() {
		defer inW.Close() //nolint:errcheck // test cleanup
		_, _ = io.WriteString(inW, input)
	}()

	go func() {
		err := Run(context.Background(), eng, "ctx> ",
			WithStdin(inR), WithStderr(outW), WithHistoryFile(""))
		assert.NoError(t, err)
		inR.Close()  //nolint:errcheck,gosec // test cleanup
		outW.Close() //nolint:errcheck,gosec // test cleanup
	}()

	var output bytes.Buffer
	_, _ = io.Copy(&output, outR)
	outR.Close() //nolint:errcheck,gosec // test cleanup

	return output.String()
}

func newEngine(t *testing.T, opts ...engine.Option) *engine.Engine {
	t.Helper()
	eng := engine.New(opts...)
	t.Cleanup(eng.Shutdown)
	return eng
}

func TestEnsureHistoryFilePermissions_CreatesWithRestrictedMode(t *testing.T) {
	dir := t.TempDir()
	histFile := filepath.Join(dir, ".ctxengine_history")

	// File does not exist yet.
	ensureHistoryFilePermissions(histFile)

	info, err := os.Stat(histFile)
	require.NoError(t, err, "history file should be created")
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "new history file should have mode 0600")
}

func TestEnsureHistoryFilePermissions_RestrictsExistingFile(t *testing.T) {
	dir := t.TempDir()
	histFile := filepath.Join(dir, ".ctxengine_history")

	err := os.WriteFile(histFile, []byte("some history"), 0644)
	require.NoError(t, err)

	ensureHistoryFilePermissions(histFile)

	info, err := os.Stat(histFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "existing history file should be restricted to 0600")

	data, err := os.ReadFile(histFile)
	require.NoError(t, err)
	assert.Equal(t, "some history", string(data))
}

func TestEnsureHistoryFilePermissions_EmptyPathNoOp(t *testing.T) {
	ensureHistoryFilePermissions("")
}

func TestRun(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "Edit",
			input:    "edit doc\n\\starttext\nHello\n\\stoptext\n.\ndocs\n",
			expected: []string{"opened doc (revision 0)", "doc\trevision 0"},
		},
		{
			name:  "Highlights",
			input: "edit doc\n\\bf{x}\n.\nhighlights doc\n",
			expected: []string{
				"1:1-1:4\tCommand\t\"\\\\bf\"",
				"1:5-1:6\tText\t\"x\"",
			},
		},
		{
			name:  "Diagnostics",
			input: "edit doc\n\\starttext\nHello\n.\ndiagnostics doc\n",
			expected: []string{
				`error[parser]: unterminated environment \starttext: missing \stoptext`,
				"--> doc:1:1",
			},
		},
		{
			name:     "Update",
			input:    "edit doc\na\n.\nedit doc\nb\n.\nsource doc\n",
			expected: []string{"updated doc (revision 1)", "b\n"},
		},
		{
			name:     "Close",
			input:    "edit doc\na\n.\nclose doc\nsource doc\n",
			expected: []string{"closed doc", "error: document not open: doc"},
		},
		{
			name:     "Unknown",
			input:    "frobnicate\n",
			expected: []string{`error: unknown command "frobnicate" (try help)`},
		},
		{
			name:     "Usage",
			input:    "close\n",
			expected: []string{"error: usage: close URI"},
		},
		{
			name:     "Help",
			input:    "help\n",
			expected: []string{"compile URI", "leave the shell"},
		},
		{
			name:     "Quit",
			input:    "quit\nfrobnicate\n",
			expected: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := runShellWithString(t, newEngine(t), tc.input)
			for _, want := range tc.expected {
				assert.Contains(t, got, want)
			}
			if tc.name == "Quit" {
				assert.NotContains(t, got, "unknown command")
			}
		})
	}
}

func TestRunOpenFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.tex")
	require.NoError(t, os.WriteFile(path, []byte("\\starttext\n\\stoptext\n"), 0o600))

	eng := newEngine(t)
	got := runShellWithString(t, eng, "open file://"+path+"\n")
	assert.Contains(t, got, "opened file://"+path)

	text, ok := eng.Source("file://" + path)
	require.True(t, ok)
	assert.Equal(t, "\\starttext\n\\stoptext\n", text)
	assert.Empty(t, eng.Diagnostics("file://"+path))
}

func TestRunCompile(t *testing.T) {
	eng := newEngine(t, engine.WithBackend(fixedBackend{res: &compile.Result{
		Success: true,
		PDFPath: "/tmp/doc.pdf",
	}}))
	got := runShellWithString(t, eng, "edit doc\nx\n.\ncompile doc\n")
	assert.Contains(t, got, "compiled doc: /tmp/doc.pdf (0 warnings)")

	eng = newEngine(t, engine.WithBackend(fixedBackend{res: compile.Failed("", compile.ErrTimeout)}))
	got = runShellWithString(t, eng, "edit doc\nx\n.\ncompile doc\n")
	assert.Contains(t, got, "compilation of doc failed (1 errors, 0 warnings)")
}

func TestExecEditAtEOF(t *testing.T) {
	eng := newEngine(t)
	var out strings.Builder
	sh := newShell(eng, &out, 0)
	require.NoError(t, sh.Exec(context.Background(), "edit doc"))
	require.NoError(t, sh.Exec(context.Background(), "line one"))
	require.NoError(t, sh.finishEdit())
	text, ok := eng.Source("doc")
	require.True(t, ok)
	assert.Equal(t, "line one\n", text)
}
