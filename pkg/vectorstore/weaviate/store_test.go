package weaviate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codescribe-ai/codescribe/pkg/interfaces"
)

func TestObjectIDDeterministic(t *testing.T) {
	first := objectID("src/app.py#3")
	second := objectID("src/app.py#3")
	other := objectID("src/app.py#4")

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
	assert.Len(t, string(first), 36)
}

func TestProperties(t *testing.T) {
	store := &Store{class: defaultClass}

	properties, err := store.properties(interfaces.Document{
		ID:      "doc-1",
		Content: "def main(): ...",
		Metadata: map[string]interface{}{
			"source":    "src/app.py",
			"filename":  "app.py",
			"file_type": "python",
			"chunk":     3,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "doc-1", properties["docId"])
	assert.Equal(t, "src/app.py", properties["source"])
	assert.Equal(t, "python", properties["file_type"])
	assert.JSONEq(t, `{"chunk":3}`, properties["metaJson"].(string))
}

func TestBuildWhere(t *testing.T) {
	assert.Nil(t, buildWhere(nil))
	assert.Nil(t, buildWhere(map[string]interface{}{"chunk": 3}))

	single := buildWhere(map[string]interface{}{"file_type": "python"})
	require.NotNil(t, single)

	combined := buildWhere(map[string]interface{}{
		"file_type": "python",
		"source":    "src/app.py",
	})
	require.NotNil(t, combined)
}
