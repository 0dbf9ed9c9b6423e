package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/codescribe-ai/codescribe/pkg/interfaces"
)

// Retriever runs similarity searches against an indexed corpus
type Retriever struct {
	store    interfaces.VectorStore
	topK     int
	minScore float32
}

// RetrieverOption configures a Retriever
type RetrieverOption func(*Retriever)

// WithTopK sets how many snippets a retrieval returns
func WithTopK(k int) RetrieverOption {
	return func(r *Retriever) {
		r.topK = k
	}
}

// WithMinScore drops results scoring below the threshold
func WithMinScore(score float32) RetrieverOption {
	return func(r *Retriever) {
		r.minScore = score
	}
}

// NewRetriever creates a retriever over the given store
func NewRetriever(store interfaces.VectorStore, options ...RetrieverOption) *Retriever {
	retriever := &Retriever{
		store: store,
		topK:  5,
	}

	for _, option := range options {
		option(retriever)
	}

	return retriever
}

// Retrieve returns the most relevant chunks for the query using the
// configured result count
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]interfaces.SearchResult, error) {
	return r.RetrieveN(ctx, query, r.topK)
}

// RetrieveN returns at most limit chunks for the query. A non-positive
// limit falls back to the configured count.
func (r *Retriever) RetrieveN(ctx context.Context, query string, limit int) ([]interfaces.SearchResult, error) {
	if limit <= 0 {
		limit = r.topK
	}

	var options []interfaces.SearchOption
	if r.minScore > 0 {
		options = append(options, interfaces.WithMinScore(r.minScore))
	}

	results, err := r.store.Search(ctx, query, limit, options...)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	return results, nil
}

// RetrieveFormatted retrieves and renders snippets for injection into a
// prompt. Each snippet is numbered and labeled with its source file.
func (r *Retriever) RetrieveFormatted(ctx context.Context, query string) (string, error) {
	results, err := r.Retrieve(ctx, query)
	if err != nil {
		return "", err
	}

	return FormatSnippets(results), nil
}

// FormatSnippets renders search results as numbered snippets
func FormatSnippets(results []interfaces.SearchResult) string {
	if len(results) == 0 {
		return "No relevant documentation found."
	}

	var sb strings.Builder
	for i, result := range results {
		source, _ := result.Document.Metadata["source"].(string)
		if source == "" {
			source = "unknown"
		}

		fmt.Fprintf(&sb, "--- Snippet %d (from %s) ---\n", i+1, source)
		sb.WriteString(strings.TrimSpace(result.Document.Content))
		sb.WriteString("\n\n")
	}

	return strings.TrimSpace(sb.String())
}
