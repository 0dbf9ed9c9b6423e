// Package flat provides an in-process vector store backed by a flat index.
// Every stored vector is compared against the query with cosine similarity,
// which keeps behavior exact and deterministic for corpora of the size a
// single documentation run produces.
package flat

import (
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/codescribe-ai/codescribe/pkg/embedding"
	"github.com/codescribe-ai/codescribe/pkg/interfaces"
)

// Store is an in-memory flat vector index. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	docs     map[string]interfaces.Document
	embedder interfaces.Embedder
}

// Option configures a Store
type Option func(*Store)

// WithEmbedder sets the embedder used to vectorize documents and queries
func WithEmbedder(embedder interfaces.Embedder) Option {
	return func(s *Store) {
		s.embedder = embedder
	}
}

// New creates an empty flat vector store
func New(options ...Option) *Store {
	store := &Store{
		docs: make(map[string]interfaces.Document),
	}

	for _, option := range options {
		option(store)
	}

	return store
}

// Store stores documents in the index. Documents without an ID are assigned
// one. When GenerateVectors is set, documents without a vector are embedded
// in batches through the configured embedder.
func (s *Store) Store(ctx context.Context, documents []interfaces.Document, options ...interfaces.StoreOption) error {
	opts := &interfaces.StoreOptions{
		BatchSize:       100,
		GenerateVectors: true,
	}
	for _, option := range options {
		option(opts)
	}

	docs := make([]interfaces.Document, len(documents))
	copy(docs, documents)

	for i := range docs {
		if docs[i].ID == "" {
			docs[i].ID = uuid.NewString()
		}
	}

	if opts.GenerateVectors {
		if err := s.generateVectors(ctx, docs, opts.BatchSize); err != nil {
			return err
		}
	}

	for i := range docs {
		if docs[i].Vector == nil {
			return fmt.Errorf("document %s has no vector and vector generation is disabled", docs[i].ID)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, doc := range docs {
		s.docs[doc.ID] = doc
	}

	return nil
}

func (s *Store) generateVectors(ctx context.Context, docs []interfaces.Document, batchSize int) error {
	if batchSize <= 0 {
		batchSize = len(docs)
	}

	var pending []int
	for i := range docs {
		if docs[i].Vector == nil {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	if s.embedder == nil {
		return fmt.Errorf("no embedder configured for vector generation")
	}

	for start := 0; start < len(pending); start += batchSize {
		end := start + batchSize
		if end > len(pending) {
			end = len(pending)
		}

		texts := make([]string, 0, end-start)
		for _, idx := range pending[start:end] {
			texts = append(texts, docs[idx].Content)
		}

		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed documents: %w", err)
		}

		for i, idx := range pending[start:end] {
			docs[idx].Vector = vectors[i]
		}
	}

	return nil
}

// Search embeds the query text and returns the closest documents
func (s *Store) Search(ctx context.Context, query string, limit int, options ...interfaces.SearchOption) ([]interfaces.SearchResult, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("no embedder configured for query embedding")
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	return s.SearchByVector(ctx, vector, limit, options...)
}

// SearchByVector returns up to limit documents ranked by cosine similarity
// to the given vector. Ties in score are broken by document ID so repeated
// searches over the same corpus return the same order.
func (s *Store) SearchByVector(_ context.Context, vector []float32, limit int, options ...interfaces.SearchOption) ([]interfaces.SearchResult, error) {
	opts := &interfaces.SearchOptions{}
	for _, option := range options {
		option(opts)
	}

	if limit <= 0 {
		limit = 5
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]interfaces.SearchResult, 0, len(s.docs))
	for _, doc := range s.docs {
		if !matchesFilters(doc, opts.Filters) {
			continue
		}
		if len(doc.Vector) != len(vector) {
			return nil, fmt.Errorf("dimension mismatch: query has %d, document %s has %d", len(vector), doc.ID, len(doc.Vector))
		}

		score := embedding.CosineSimilarity(vector, doc.Vector)
		if score < opts.MinScore {
			continue
		}

		results = append(results, interfaces.SearchResult{Document: doc, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Document.ID < results[j].Document.ID
	})

	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

func matchesFilters(doc interfaces.Document, filters map[string]interface{}) bool {
	for key, want := range filters {
		got, ok := doc.Metadata[key]
		if !ok || got != want {
			return false
		}
	}
	return true
}

// Delete removes documents from the index. Unknown IDs are ignored.
func (s *Store) Delete(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.docs, id)
	}

	return nil
}

// Get retrieves documents by their IDs, skipping IDs that are not present
func (s *Store) Get(_ context.Context, ids []string) ([]interfaces.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]interfaces.Document, 0, len(ids))
	for _, id := range ids {
		if doc, ok := s.docs[id]; ok {
			docs = append(docs, doc)
		}
	}

	return docs, nil
}

// Len returns the number of stored documents
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.docs)
}

type snapshot struct {
	Docs map[string]interfaces.Document
}

// gob needs concrete metadata value types registered before encoding them
// through the interface{} map.
func init() {
	gob.Register("")
	gob.Register(0)
	gob.Register(float64(0))
	gob.Register(true)
	gob.Register(map[string]interface{}{})
	gob.Register([]interface{}{})
}

// Save writes the index to path so a later process can reload it
func (s *Store) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(snapshot{Docs: s.docs}); err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}

	return nil
}

// Load replaces the index contents with a snapshot written by Save
func (s *Store) Load(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open index file: %w", err)
	}
	defer file.Close()

	var snap snapshot
	if err := gob.NewDecoder(file).Decode(&snap); err != nil {
		return fmt.Errorf("failed to decode index: %w", err)
	}
	if snap.Docs == nil {
		snap.Docs = make(map[string]interfaces.Document)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs = snap.Docs

	return nil
}
