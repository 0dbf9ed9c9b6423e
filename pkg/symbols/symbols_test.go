package symbols

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSource = `"""Module docstring."""


def top_level(x, y):
    """Add two numbers."""
    return x + y


class Greeter:
    """Greets people."""

    def greet(self, name):
        """Say hello."""
        return f"hello {name}"

    def _hidden(self):
        pass


@decorator
def decorated(a):
    return a
`

func parseSample(t *testing.T) []Symbol {
	t.Helper()

	symbols, err := NewParser().Parse(context.Background(), "src/app.py", []byte(sampleSource))
	require.NoError(t, err)
	return symbols
}

func TestParseSymbols(t *testing.T) {
	symbols := parseSample(t)

	byName := make(map[string]Symbol)
	for _, sym := range symbols {
		byName[sym.Qualified] = sym
	}

	top, ok := byName["top_level"]
	require.True(t, ok)
	assert.Equal(t, KindFunction, top.Kind)
	assert.Equal(t, "def top_level(x, y):", top.Signature)
	assert.Equal(t, "Add two numbers.", top.Doc)
	assert.Equal(t, "src/app.py", top.File)

	class, ok := byName["Greeter"]
	require.True(t, ok)
	assert.Equal(t, KindClass, class.Kind)
	assert.Equal(t, "Greets people.", class.Doc)

	method, ok := byName["Greeter.greet"]
	require.True(t, ok)
	assert.Equal(t, KindMethod, method.Kind)
	assert.Equal(t, "Greeter", method.Parent)
	assert.Equal(t, "Say hello.", method.Doc)

	decorated, ok := byName["decorated"]
	require.True(t, ok)
	assert.Equal(t, KindFunction, decorated.Kind)
}

func TestIndexLookup(t *testing.T) {
	index := NewIndex()
	require.NoError(t, index.AddFile(context.Background(), "src/app.py", []byte(sampleSource)))

	entries := index.Lookup("greet")
	require.Len(t, entries, 1)
	assert.Equal(t, "Greeter.greet", entries[0].Qualified)

	assert.Empty(t, index.Lookup("missing"))
}

func TestIndexAddFileReplaces(t *testing.T) {
	index := NewIndex()
	ctx := context.Background()

	require.NoError(t, index.AddFile(ctx, "a.py", []byte("def f():\n    pass\n")))
	require.NoError(t, index.AddFile(ctx, "a.py", []byte("def g():\n    pass\n")))

	assert.Empty(t, index.Lookup("f"))
	assert.Len(t, index.Lookup("g"), 1)
}

func TestIndexLookupAtPrefersSameFile(t *testing.T) {
	index := NewIndex()
	ctx := context.Background()

	require.NoError(t, index.AddFile(ctx, "a.py", []byte("def shared():\n    pass\n")))
	require.NoError(t, index.AddFile(ctx, "b.py", []byte("def shared():\n    return 2\n")))

	sym, ok := index.LookupAt("shared", "b.py", 1)
	require.True(t, ok)
	assert.Equal(t, "b.py", sym.File)

	sym, ok = index.LookupAt("shared", "c.py", 1)
	require.True(t, ok)
	assert.Equal(t, "a.py", sym.File)
}

func TestIndexBuild(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.py"), []byte(sampleSource), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "__pycache__"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "__pycache__", "x.py"), []byte("def cached():\n    pass\n"), 0o644))

	index := NewIndex()
	require.NoError(t, index.Build(context.Background(), root))

	assert.Equal(t, []string{"main.py"}, index.Files())
	assert.Empty(t, index.Lookup("cached"))
	assert.NotEmpty(t, index.Lookup("Greeter"))
}

func TestQueryTool(t *testing.T) {
	index := NewIndex()
	require.NoError(t, index.AddFile(context.Background(), "src/app.py", []byte(sampleSource)))

	tool := NewQueryTool(index)
	assert.Equal(t, "query_symbol", tool.Name())

	out, err := tool.Execute(context.Background(), `{"symbol_name":"greet"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "Greeter.greet")
	assert.Contains(t, out, "def greet(self, name):")
	assert.Contains(t, out, `return f"hello {name}"`)

	out, err = tool.Execute(context.Background(), `{"symbol_name":"nope","row":7,"col":3}`)
	require.NoError(t, err)
	assert.Equal(t, `Symbol "nope" not found at row 7, column 3.`, out)

	_, err = tool.Execute(context.Background(), `{}`)
	assert.Error(t, err)
}

func TestIndexSource(t *testing.T) {
	index := NewIndex()
	require.NoError(t, index.AddFile(context.Background(), "src/app.py", []byte(sampleSource)))

	source, ok := index.Source("src/app.py", 4, 6)
	require.True(t, ok)
	assert.Equal(t, "def top_level(x, y):\n    \"\"\"Add two numbers.\"\"\"\n    return x + y", source)

	source, ok = index.Source("src/app.py", 20, 99)
	require.True(t, ok)
	assert.Contains(t, source, "def decorated(a):")

	_, ok = index.Source("missing.py", 1, 2)
	assert.False(t, ok)

	_, ok = index.Source("src/app.py", 500, 510)
	assert.False(t, ok)
}
