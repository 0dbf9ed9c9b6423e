package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateRender(t *testing.T) {
	tmpl := New("greet", "Greeting", "Hello {{.Name}}!")

	out, err := tmpl.Render(map[string]interface{}{"Name": "world"})
	require.NoError(t, err)
	assert.Equal(t, "Hello world!", out)
}

func TestTemplateRenderInvalid(t *testing.T) {
	tmpl := New("bad", "Broken", "Hello {{.Name")

	_, err := tmpl.Render(nil)
	assert.Error(t, err)
}

func TestStoreHasLibrary(t *testing.T) {
	store := NewStore()

	for _, id := range []string{DocumentCodeID, FormatDocsID, FormatDocsUserID, GenerateCodeID, RefineCodeID, EvaluateCodeID} {
		tmpl, err := store.Get(id)
		require.NoError(t, err, id)
		assert.NotEmpty(t, tmpl.Content)
	}

	_, err := store.Get("unknown")
	assert.Error(t, err)
}

func TestStoreSaveOverrides(t *testing.T) {
	store := NewStore()

	store.Save(New(GenerateCodeID, "Custom", "custom content {{.ProblemStatement}}"))

	out, err := store.Render(GenerateCodeID, map[string]interface{}{"ProblemStatement": "task"})
	require.NoError(t, err)
	assert.Equal(t, "custom content task", out)
}

func TestLibraryRenders(t *testing.T) {
	store := NewStore()

	doc, err := store.Render(DocumentCodeID, map[string]interface{}{
		"GoodDocumentation": GoodDocumentation(),
	})
	require.NoError(t, err)
	assert.Contains(t, doc, "<documentation>")
	assert.Contains(t, doc, "query_symbol")

	gen, err := store.Render(GenerateCodeID, map[string]interface{}{
		"ProblemStatement": "build a CLI",
	})
	require.NoError(t, err)
	assert.Contains(t, gen, "build a CLI")
	assert.Contains(t, gen, "query_documentation")
	assert.Contains(t, gen, "execute_python")

	verdict, err := store.Render(EvaluateCodeID, map[string]interface{}{
		"ProblemStatement": "p",
		"ExecutionOutput":  "o",
	})
	require.NoError(t, err)
	assert.Contains(t, verdict, "<verdict>")
}

func TestStoreListOrdered(t *testing.T) {
	store := NewStore()

	list := store.List()
	require.NotEmpty(t, list)
	for i := 1; i < len(list); i++ {
		assert.True(t, strings.Compare(list[i-1].ID, list[i].ID) < 0)
	}
}
