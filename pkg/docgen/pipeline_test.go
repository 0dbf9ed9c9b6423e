package docgen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codescribe-ai/codescribe/pkg/interfaces"
)

// patternLLM answers based on what kind of prompt it receives, so it works
// regardless of the order concurrent tasks reach it.
type patternLLM struct {
	mu       sync.Mutex
	calls    int
	failFor  string
	snippets []string
}

func (p *patternLLM) respond(prompt string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++

	if p.failFor != "" && strings.Contains(prompt, p.failFor) {
		return "", fmt.Errorf("model refused")
	}
	if strings.Contains(prompt, "<documentation>") {
		return "<improved_documentation>polished\n" + extractBetween(prompt, "<documentation>", "</documentation>") + "</improved_documentation>", nil
	}
	p.snippets = append(p.snippets, prompt)
	return "<documentation>explains the snippet</documentation>", nil
}

func (p *patternLLM) Generate(ctx context.Context, prompt string, options ...interfaces.GenerateOption) (string, error) {
	return p.respond(prompt)
}

func (p *patternLLM) GenerateWithTools(ctx context.Context, prompt string, tools []interfaces.Tool, options ...interfaces.GenerateOption) (string, error) {
	return p.respond(prompt)
}

func (p *patternLLM) Name() string { return "pattern" }

func extractBetween(s, start, end string) string {
	i := strings.Index(s, start)
	j := strings.Index(s, end)
	if i < 0 || j < 0 || j < i {
		return ""
	}
	return s[i+len(start) : j]
}

func writeTestCodebase(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vectors.py"), []byte(
		"def dot_product(v1, v2):\n    return sum(a * b for a, b in zip(v1, v2))\n\n\nclass Matrix:\n    def rows(self):\n        return self._rows\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "web"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "web", "app.js"), []byte(
		"export function hello() { return 'hi'; }\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not source"), 0o644))
	return dir
}

func TestPipelineWritesPerDirectoryDocs(t *testing.T) {
	llm := &patternLLM{}
	pipeline, err := NewPipeline(llm, WithConcurrency(2))
	require.NoError(t, err)

	codebase := writeTestCodebase(t)
	output := t.TempDir()

	report, err := pipeline.Run(context.Background(), codebase, output)
	require.NoError(t, err)

	assert.Equal(t, []string{"vectors.py", filepath.Join("web", "app.js")}, report.Documented)
	assert.Empty(t, report.Errors)

	rootDocs, err := os.ReadFile(filepath.Join(output, "docs.md"))
	require.NoError(t, err)
	assert.Contains(t, string(rootDocs), "polished")
	assert.Contains(t, string(rootDocs), "## Documentation for vectors.py")

	webDocs, err := os.ReadFile(filepath.Join(output, "web", "docs.md"))
	require.NoError(t, err)
	assert.Contains(t, string(webDocs), "## Documentation for app.js")
}

func TestPipelineDocumentsPythonPerSymbol(t *testing.T) {
	llm := &patternLLM{}
	pipeline, err := NewPipeline(llm, WithoutFormatting())
	require.NoError(t, err)

	codebase := writeTestCodebase(t)

	_, err = pipeline.Run(context.Background(), codebase, t.TempDir())
	require.NoError(t, err)

	var pySnippets []string
	for _, snippet := range llm.snippets {
		if strings.Contains(snippet, "vectors.py") {
			pySnippets = append(pySnippets, snippet)
		}
	}
	// One snippet per top-level definition: dot_product and Matrix.
	require.Len(t, pySnippets, 2)
}

func TestPipelineWithoutFormattingKeepsRawSections(t *testing.T) {
	pipeline, err := NewPipeline(&patternLLM{}, WithoutFormatting())
	require.NoError(t, err)

	codebase := writeTestCodebase(t)
	output := t.TempDir()

	_, err = pipeline.Run(context.Background(), codebase, output)
	require.NoError(t, err)

	rootDocs, err := os.ReadFile(filepath.Join(output, "docs.md"))
	require.NoError(t, err)
	assert.Contains(t, string(rootDocs), "# Documentation for .")
	assert.NotContains(t, string(rootDocs), "polished")
	assert.Contains(t, string(rootDocs), "explains the snippet")
}

func TestPipelineRecordsFileErrorsAndContinues(t *testing.T) {
	llm := &patternLLM{failFor: "app.js"}
	pipeline, err := NewPipeline(llm, WithoutFormatting())
	require.NoError(t, err)

	codebase := writeTestCodebase(t)
	output := t.TempDir()

	report, err := pipeline.Run(context.Background(), codebase, output)
	require.NoError(t, err)

	assert.Equal(t, []string{"vectors.py"}, report.Documented)
	require.Contains(t, report.Errors, filepath.Join("web", "app.js"))

	_, err = os.Stat(filepath.Join(output, "docs.md"))
	require.NoError(t, err)
}

func TestPipelineRejectsEmptyCodebase(t *testing.T) {
	pipeline, err := NewPipeline(&patternLLM{})
	require.NoError(t, err)

	_, err = pipeline.Run(context.Background(), t.TempDir(), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no supported source files")
}
