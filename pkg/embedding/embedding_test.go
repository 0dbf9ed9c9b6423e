package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig("")
	assert.Equal(t, "text-embedding-3-small", config.Deployment)
	assert.Equal(t, "cosine", config.SimilarityMetric)

	config = DefaultConfig("my-deployment")
	assert.Equal(t, "my-deployment", config.Deployment)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0, 0}, []float32{1, 0, 0}), 1e-6)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 2}, []float32{-1, -2}), 1e-6)

	// Magnitude does not affect cosine similarity
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 1}, []float32{10, 10}), 1e-6)

	// Zero vectors compare as dissimilar rather than dividing by zero
	assert.Equal(t, float32(0), CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}

func TestSimilarityMetrics(t *testing.T) {
	vec1 := []float32{1, 2, 3}
	vec2 := []float32{4, 5, 6}

	score, err := Similarity(vec1, vec2, "dot_product")
	require.NoError(t, err)
	assert.InDelta(t, 32.0, score, 1e-6)

	score, err = Similarity(vec1, vec1, "euclidean")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-6)

	_, err = Similarity(vec1, vec2, "manhattan")
	assert.Error(t, err)

	_, err = Similarity([]float32{1}, []float32{1, 2}, "cosine")
	assert.Error(t, err)
}

func TestCalculateSimilarityDefaultMetric(t *testing.T) {
	embedder := &AzureEmbedder{config: DefaultConfig("")}

	score, err := embedder.CalculateSimilarity([]float32{1, 0}, []float32{1, 0}, "")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-6)
}
