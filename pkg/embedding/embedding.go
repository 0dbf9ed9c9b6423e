package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"

	openai "github.com/sashabaranov/go-openai"

	"github.com/codescribe-ai/codescribe/pkg/retry"
)

// Config contains configuration options for embedding generation
type Config struct {
	// Deployment is the Azure deployment name of the embedding model
	Deployment string

	// Dimensions specifies the dimensionality of the embedding vectors
	// Only supported by some models (e.g., text-embedding-3-*)
	Dimensions int

	// BatchSize caps how many texts are sent in a single request
	BatchSize int

	// SimilarityMetric specifies the similarity metric to use when comparing embeddings
	// Options: "cosine" (default), "euclidean", "dot_product"
	SimilarityMetric string
}

// DefaultConfig returns a default configuration for embedding generation
func DefaultConfig(deployment string) Config {
	if deployment == "" {
		deployment = "text-embedding-3-small"
	}

	return Config{
		Deployment:       deployment,
		Dimensions:       0, // Use model default
		BatchSize:        64,
		SimilarityMetric: "cosine",
	}
}

// AzureEmbedder implements embedding generation against an Azure OpenAI deployment
type AzureEmbedder struct {
	client   *openai.Client
	config   Config
	executor *retry.Executor
}

// Option configures an AzureEmbedder
type Option func(*AzureEmbedder)

// WithConfig replaces the embedder configuration
func WithConfig(config Config) Option {
	return func(e *AzureEmbedder) {
		if config.Deployment == "" {
			config.Deployment = e.config.Deployment
		}
		e.config = config
	}
}

// WithRetryPolicy sets the retry policy for embedding requests
func WithRetryPolicy(policy *retry.Policy) Option {
	return func(e *AzureEmbedder) {
		e.executor = retry.NewExecutor(policy)
	}
}

// NewAzureEmbedder creates an embedder for the given Azure OpenAI endpoint.
// The deployment name doubles as the model identifier on Azure.
func NewAzureEmbedder(apiKey, endpoint, apiVersion, deployment string, options ...Option) *AzureEmbedder {
	azureConfig := openai.DefaultAzureConfig(apiKey, endpoint)
	if apiVersion != "" {
		azureConfig.APIVersion = apiVersion
	}

	embedder := &AzureEmbedder{
		client:   openai.NewClientWithConfig(azureConfig),
		config:   DefaultConfig(deployment),
		executor: retry.NewExecutor(nil),
	}

	for _, option := range options {
		option(embedder)
	}

	return embedder
}

// Embed generates an embedding for the given text
func (e *AzureEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts. The result preserves
// input order regardless of the order the API returns them in.
func (e *AzureEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	embeddings := make([][]float32, len(texts))

	batchSize := e.config.BatchSize
	if batchSize <= 0 {
		batchSize = len(texts)
	}

	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}

		copy(embeddings[start:end], batch)
	}

	return embeddings, nil
}

func (e *AzureEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.config.Deployment),
	}

	if e.config.Dimensions > 0 {
		req.Dimensions = e.config.Dimensions
	}

	var resp openai.EmbeddingResponse
	err := e.executor.Execute(ctx, func() error {
		var callErr error
		resp, callErr = e.client.CreateEmbeddings(ctx, req)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	// Sort embeddings by index to ensure correct order
	embeddings := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if int(data.Index) >= len(embeddings) {
			return nil, fmt.Errorf("invalid embedding index: %d", data.Index)
		}
		embeddings[data.Index] = data.Embedding
	}

	for i, embedding := range embeddings {
		if embedding == nil {
			return nil, fmt.Errorf("missing embedding for input %d", i)
		}
	}

	return embeddings, nil
}

// CalculateSimilarity calculates the similarity between two embeddings
func (e *AzureEmbedder) CalculateSimilarity(vec1, vec2 []float32, metric string) (float32, error) {
	if metric == "" {
		metric = e.config.SimilarityMetric
	}
	return Similarity(vec1, vec2, metric)
}

// Similarity compares two vectors using the named metric
func Similarity(vec1, vec2 []float32, metric string) (float32, error) {
	if len(vec1) != len(vec2) {
		return 0, errors.New("embedding vectors must have the same dimensions")
	}

	switch metric {
	case "cosine":
		return CosineSimilarity(vec1, vec2), nil
	case "euclidean":
		return euclideanSimilarity(vec1, vec2), nil
	case "dot_product":
		return dotProduct(vec1, vec2), nil
	default:
		return 0, fmt.Errorf("unsupported similarity metric: %s", metric)
	}
}

// CosineSimilarity calculates the cosine similarity between two vectors.
// A zero vector yields a similarity of 0.
func CosineSimilarity(vec1, vec2 []float32) float32 {
	var dotProd, mag1, mag2 float64

	for i := 0; i < len(vec1); i++ {
		dotProd += float64(vec1[i]) * float64(vec2[i])
		mag1 += float64(vec1[i]) * float64(vec1[i])
		mag2 += float64(vec2[i]) * float64(vec2[i])
	}

	if mag1 == 0 || mag2 == 0 {
		return 0
	}

	return float32(dotProd / (math.Sqrt(mag1) * math.Sqrt(mag2)))
}

// euclideanSimilarity converts euclidean distance to a similarity score
func euclideanSimilarity(vec1, vec2 []float32) float32 {
	var sum float64

	for i := 0; i < len(vec1); i++ {
		diff := float64(vec1[i]) - float64(vec2[i])
		sum += diff * diff
	}

	return float32(1.0 / (1.0 + math.Sqrt(sum)))
}

// dotProduct calculates the dot product between two vectors
func dotProduct(vec1, vec2 []float32) float32 {
	var sum float32

	for i := 0; i < len(vec1); i++ {
		sum += vec1[i] * vec2[i]
	}

	return sum
}

// GetConfig returns the current embedding configuration
func (e *AzureEmbedder) GetConfig() Config {
	return e.config
}
