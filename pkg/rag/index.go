package rag

import (
	"context"
	"fmt"

	"github.com/codescribe-ai/codescribe/pkg/interfaces"
	"github.com/codescribe-ai/codescribe/pkg/logging"
)

// Indexer loads a source tree into a vector store
type Indexer struct {
	loader *Loader
	store  interfaces.VectorStore
	logger logging.Logger
}

// IndexerOption configures an Indexer
type IndexerOption func(*Indexer)

// WithLoader replaces the default loader
func WithLoader(loader *Loader) IndexerOption {
	return func(i *Indexer) {
		i.loader = loader
	}
}

// WithLogger sets the logger used during indexing
func WithLogger(logger logging.Logger) IndexerOption {
	return func(i *Indexer) {
		i.logger = logger
	}
}

// NewIndexer creates an indexer writing into the given store
func NewIndexer(store interfaces.VectorStore, options ...IndexerOption) *Indexer {
	indexer := &Indexer{
		loader: NewLoader(),
		store:  store,
	}

	for _, option := range options {
		option(indexer)
	}

	return indexer
}

// IndexDirectory loads every supported file under root into the store and
// returns the number of chunks stored.
func (i *Indexer) IndexDirectory(ctx context.Context, root string) (int, error) {
	docs, err := i.loader.LoadDirectory(root)
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}

	if err := i.store.Store(ctx, docs); err != nil {
		return 0, fmt.Errorf("failed to store documents: %w", err)
	}

	if i.logger != nil {
		i.logger.Info(ctx, "indexed directory", map[string]interface{}{
			"root":   root,
			"chunks": len(docs),
		})
	}

	return len(docs), nil
}

// IndexContent chunks and stores a single in-memory document
func (i *Indexer) IndexContent(ctx context.Context, content, source string) (int, error) {
	docs, err := i.loader.Split(content, source)
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}

	if err := i.store.Store(ctx, docs); err != nil {
		return 0, fmt.Errorf("failed to store documents: %w", err)
	}

	return len(docs), nil
}
