package flat

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codescribe-ai/codescribe/pkg/interfaces"
)

// stubEmbedder maps known texts to fixed vectors so ranking is predictable.
type stubEmbedder struct {
	vectors map[string][]float32
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec, ok := s.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no vector for %q", text)
	}
	return vec, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (s *stubEmbedder) CalculateSimilarity(_, _ []float32, _ string) (float32, error) {
	return 0, nil
}

func newTestStore(t *testing.T) *Store {
	t.Helper()

	embedder := &stubEmbedder{vectors: map[string][]float32{
		"alpha": {1, 0, 0},
		"beta":  {0, 1, 0},
		"gamma": {0.9, 0.1, 0},
		"query": {1, 0, 0},
	}}

	store := New(WithEmbedder(embedder))
	err := store.Store(context.Background(), []interfaces.Document{
		{ID: "doc-a", Content: "alpha", Metadata: map[string]interface{}{"file_type": "markdown"}},
		{ID: "doc-b", Content: "beta", Metadata: map[string]interface{}{"file_type": "python"}},
		{ID: "doc-c", Content: "gamma", Metadata: map[string]interface{}{"file_type": "markdown"}},
	})
	require.NoError(t, err)

	return store
}

func TestStoreAssignsIDs(t *testing.T) {
	store := New()

	err := store.Store(context.Background(), []interfaces.Document{
		{Content: "alpha", Vector: []float32{1, 0}},
	}, interfaces.WithGenerateVectors(false))
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
}

func TestStoreRequiresVectorWhenGenerationDisabled(t *testing.T) {
	store := New()

	err := store.Store(context.Background(), []interfaces.Document{
		{ID: "doc", Content: "alpha"},
	}, interfaces.WithGenerateVectors(false))
	assert.Error(t, err)
}

func TestSearchRanksBySimilarity(t *testing.T) {
	store := newTestStore(t)

	results, err := store.Search(context.Background(), "query", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "doc-a", results[0].Document.ID)
	assert.Equal(t, "doc-c", results[1].Document.ID)
	assert.Equal(t, "doc-b", results[2].Document.ID)
	assert.True(t, results[0].Score >= results[1].Score)
	assert.True(t, results[1].Score >= results[2].Score)
}

func TestSearchLimit(t *testing.T) {
	store := newTestStore(t)

	results, err := store.Search(context.Background(), "query", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-a", results[0].Document.ID)
}

func TestSearchMinScore(t *testing.T) {
	store := newTestStore(t)

	results, err := store.Search(context.Background(), "query", 5, interfaces.WithMinScore(0.5))
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, result := range results {
		assert.GreaterOrEqual(t, result.Score, float32(0.5))
	}
}

func TestSearchFilters(t *testing.T) {
	store := newTestStore(t)

	results, err := store.Search(context.Background(), "query", 5,
		interfaces.WithFilters(map[string]interface{}{"file_type": "python"}))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-b", results[0].Document.ID)
}

func TestSearchTieBreakByID(t *testing.T) {
	store := New()

	err := store.Store(context.Background(), []interfaces.Document{
		{ID: "doc-z", Content: "z", Vector: []float32{1, 0}},
		{ID: "doc-a", Content: "a", Vector: []float32{1, 0}},
		{ID: "doc-m", Content: "m", Vector: []float32{1, 0}},
	}, interfaces.WithGenerateVectors(false))
	require.NoError(t, err)

	results, err := store.SearchByVector(context.Background(), []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "doc-a", results[0].Document.ID)
	assert.Equal(t, "doc-m", results[1].Document.ID)
	assert.Equal(t, "doc-z", results[2].Document.ID)
}

func TestSearchDimensionMismatch(t *testing.T) {
	store := newTestStore(t)

	_, err := store.SearchByVector(context.Background(), []float32{1, 0}, 3)
	assert.Error(t, err)
}

func TestDeleteAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Delete(ctx, []string{"doc-b", "missing"}))
	assert.Equal(t, 2, store.Len())

	docs, err := store.Get(ctx, []string{"doc-a", "doc-b", "doc-c"})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "doc-a", docs[0].ID)
	assert.Equal(t, "doc-c", docs[1].ID)
}

func TestSaveAndLoad(t *testing.T) {
	store := newTestStore(t)
	path := filepath.Join(t.TempDir(), "index", "store.gob")

	require.NoError(t, store.Save(path))

	restored := New(WithEmbedder(&stubEmbedder{vectors: map[string][]float32{
		"query": {1, 0, 0},
	}}))
	require.NoError(t, restored.Load(path))
	assert.Equal(t, 3, restored.Len())

	results, err := restored.Search(context.Background(), "query", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-a", results[0].Document.ID)
	assert.Equal(t, "markdown", results[0].Document.Metadata["file_type"])
}
