// Package weaviate provides a vector store backed by a Weaviate server, for
// deployments where the index must outlive the process or be shared.
package weaviate

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/codescribe-ai/codescribe/pkg/interfaces"
)

const defaultClass = "CodescribeChunk"

// Metadata keys promoted to filterable Weaviate properties. Everything else
// rides along in a JSON blob.
var indexedKeys = []string{"source", "filename", "file_type"}

// Store implements a vector store on a Weaviate instance
type Store struct {
	client   *weaviate.Client
	class    string
	embedder interfaces.Embedder
}

// Option configures a Store
type Option func(*Store)

// WithEmbedder sets the embedder used for documents and queries
func WithEmbedder(embedder interfaces.Embedder) Option {
	return func(s *Store) {
		s.embedder = embedder
	}
}

// WithClass overrides the Weaviate class name used for storage
func WithClass(class string) Option {
	return func(s *Store) {
		s.class = class
	}
}

// New creates a Store connected to the Weaviate instance in config
func New(config interfaces.VectorStoreConfig, options ...Option) (*Store, error) {
	scheme := config.Scheme
	if scheme == "" {
		scheme = "http"
	}

	clientConfig := weaviate.Config{
		Host:   config.Host,
		Scheme: scheme,
	}
	if config.APIKey != "" {
		clientConfig.AuthConfig = auth.ApiKey{Value: config.APIKey}
	}

	client, err := weaviate.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}

	store := &Store{
		client: client,
		class:  defaultClass,
	}
	if config.ClassPrefix != "" {
		store.class = config.ClassPrefix + "Chunk"
	}

	for _, option := range options {
		option(store)
	}

	return store, nil
}

// EnsureSchema creates the chunk class if it does not already exist
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.client.Schema().ClassGetter().WithClassName(s.class).Do(ctx)
	if err == nil {
		return nil
	}

	class := &models.Class{
		Class:      s.class,
		Vectorizer: "none",
		Properties: []*models.Property{
			{Name: "docId", DataType: []string{"text"}, Tokenization: "field"},
			{Name: "content", DataType: []string{"text"}, Tokenization: "word"},
			{Name: "source", DataType: []string{"text"}, Tokenization: "field"},
			{Name: "filename", DataType: []string{"text"}, Tokenization: "field"},
			{Name: "file_type", DataType: []string{"text"}, Tokenization: "field"},
			{Name: "metaJson", DataType: []string{"text"}, Tokenization: "word"},
		},
	}

	if err := s.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("failed to create class %s: %w", s.class, err)
	}

	return nil
}

// objectID derives a stable Weaviate UUID from a document ID so re-indexing
// the same corpus overwrites rather than duplicates.
func objectID(docID string) strfmt.UUID {
	hash := sha256.Sum256([]byte(docID))
	id, _ := uuid.FromBytes(hash[:16])
	return strfmt.UUID(id.String())
}

// Store batch imports documents, generating vectors where missing
func (s *Store) Store(ctx context.Context, documents []interfaces.Document, options ...interfaces.StoreOption) error {
	opts := &interfaces.StoreOptions{
		BatchSize:       100,
		GenerateVectors: true,
	}
	for _, option := range options {
		option(opts)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}

	docs := make([]interfaces.Document, len(documents))
	copy(docs, documents)

	for i := range docs {
		if docs[i].ID == "" {
			docs[i].ID = uuid.NewString()
		}
	}

	if opts.GenerateVectors {
		if s.embedder == nil {
			return fmt.Errorf("no embedder configured for vector generation")
		}
		for i := range docs {
			if docs[i].Vector != nil {
				continue
			}
			vector, err := s.embedder.Embed(ctx, docs[i].Content)
			if err != nil {
				return fmt.Errorf("failed to embed document %s: %w", docs[i].ID, err)
			}
			docs[i].Vector = vector
		}
	}

	for start := 0; start < len(docs); start += opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := start + opts.BatchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		objects := make([]*models.Object, len(batch))
		for i, doc := range batch {
			properties, err := s.properties(doc)
			if err != nil {
				return err
			}
			objects[i] = &models.Object{
				ID:         objectID(doc.ID),
				Class:      s.class,
				Properties: properties,
				Vector:     doc.Vector,
			}
		}

		result, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
		if err != nil {
			return fmt.Errorf("batch import failed: %w", err)
		}
		for _, obj := range result {
			if obj.Result != nil && obj.Result.Errors != nil && len(obj.Result.Errors.Error) > 0 {
				return fmt.Errorf("batch import rejected object: %s", obj.Result.Errors.Error[0].Message)
			}
		}
	}

	return nil
}

func (s *Store) properties(doc interfaces.Document) (map[string]interface{}, error) {
	properties := map[string]interface{}{
		"docId":   doc.ID,
		"content": doc.Content,
	}

	rest := make(map[string]interface{})
	for key, value := range doc.Metadata {
		switch key {
		case "source", "filename", "file_type":
			if str, ok := value.(string); ok {
				properties[key] = str
				continue
			}
			rest[key] = value
		default:
			rest[key] = value
		}
	}

	if len(rest) > 0 {
		data, err := json.Marshal(rest)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata for %s: %w", doc.ID, err)
		}
		properties["metaJson"] = string(data)
	}

	return properties, nil
}

// Search embeds the query and delegates to SearchByVector
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

// SearchByVector runs a nearVector query, returning certainty as the score
func (s *Store) SearchByVector(ctx context.Context, vector []float32, limit int, options ...interfaces.SearchOption) ([]interfaces.SearchResult, error) {
	opts := &interfaces.SearchOptions{}
	for _, option := range options {
		option(opts)
	}

	if limit <= 0 {
		limit = 5
	}

	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vector)
	if opts.MinScore > 0 {
		nearVector = nearVector.WithCertainty(opts.MinScore)
	}

	fields := []graphql.Field{
		{Name: "docId"},
		{Name: "content"},
		{Name: "source"},
		{Name: "filename"},
		{Name: "file_type"},
		{Name: "metaJson"},
		{Name: "_additional", Fields: []graphql.Field{
			{Name: "certainty"},
		}},
	}

	builder := s.client.GraphQL().Get().
		WithClassName(s.class).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(limit)

	if filter := buildWhere(opts.Filters); filter != nil {
		builder = builder.WithWhere(filter)
	}

	result, err := builder.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate search failed: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("weaviate search error: %s", result.Errors[0].Message)
	}

	return s.parseResults(result.Data)
}

func buildWhere(metadataFilters map[string]interface{}) *filters.WhereBuilder {
	var operands []*filters.WhereBuilder
	for _, key := range indexedKeys {
		value, ok := metadataFilters[key]
		if !ok {
			continue
		}
		str, ok := value.(string)
		if !ok {
			continue
		}
		operands = append(operands, filters.Where().
			WithPath([]string{key}).
			WithOperator(filters.Equal).
			WithValueString(str))
	}

	switch len(operands) {
	case 0:
		return nil
	case 1:
		return operands[0]
	default:
		return filters.Where().
			WithOperator(filters.And).
			WithOperands(operands)
	}
}

func (s *Store) parseResults(data map[string]models.JSONObject) ([]interfaces.SearchResult, error) {
	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return []interfaces.SearchResult{}, nil
	}
	objects, ok := get[s.class].([]interface{})
	if !ok {
		return []interfaces.SearchResult{}, nil
	}

	results := make([]interfaces.SearchResult, 0, len(objects))
	for _, obj := range objects {
		m, ok := obj.(map[string]interface{})
		if !ok {
			continue
		}

		doc := interfaces.Document{
			ID:       getString(m, "docId"),
			Content:  getString(m, "content"),
			Metadata: make(map[string]interface{}),
		}
		for _, key := range indexedKeys {
			if value := getString(m, key); value != "" {
				doc.Metadata[key] = value
			}
		}
		if metaJSON := getString(m, "metaJson"); metaJSON != "" {
			rest := make(map[string]interface{})
			if err := json.Unmarshal([]byte(metaJSON), &rest); err == nil {
				for key, value := range rest {
					doc.Metadata[key] = value
				}
			}
		}

		var score float32
		if additional, ok := m["_additional"].(map[string]interface{}); ok {
			if certainty, ok := additional["certainty"].(float64); ok {
				score = float32(certainty)
			}
		}

		results = append(results, interfaces.SearchResult{Document: doc, Score: score})
	}

	return results, nil
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Delete removes documents by their document IDs
func (s *Store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	filter := filters.Where().
		WithPath([]string{"docId"}).
		WithOperator(filters.ContainsAny).
		WithValueText(ids...)

	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(s.class).
		WithWhere(filter).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("batch delete failed: %w", err)
	}

	return nil
}

// Get retrieves documents by their document IDs
func (s *Store) Get(ctx context.Context, ids []string) ([]interfaces.Document, error) {
	if len(ids) == 0 {
		return []interfaces.Document{}, nil
	}

	filter := filters.Where().
		WithPath([]string{"docId"}).
		WithOperator(filters.ContainsAny).
		WithValueText(ids...)

	fields := []graphql.Field{
		{Name: "docId"},
		{Name: "content"},
		{Name: "source"},
		{Name: "filename"},
		{Name: "file_type"},
		{Name: "metaJson"},
	}

	result, err := s.client.GraphQL().Get().
		WithClassName(s.class).
		WithFields(fields...).
		WithWhere(filter).
		WithLimit(len(ids)).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate get failed: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("weaviate get error: %s", result.Errors[0].Message)
	}

	found, err := s.parseResults(result.Data)
	if err != nil {
		return nil, err
	}

	docs := make([]interfaces.Document, 0, len(found))
	for _, res := range found {
		docs = append(docs, res.Document)
	}

	return docs, nil
}
