package rag

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/codescribe-ai/codescribe/pkg/interfaces"
)

// QueryTool exposes the retriever to an agent as a callable tool
type QueryTool struct {
	retriever *Retriever
}

// NewQueryTool wraps a retriever as a tool
func NewQueryTool(retriever *Retriever) *QueryTool {
	return &QueryTool{retriever: retriever}
}

// Name returns the tool name
func (t *QueryTool) Name() string {
	return "query_documentation"
}

// Description returns the tool description
func (t *QueryTool) Description() string {
	return "Search the indexed project documentation and source code for snippets relevant to a natural language query. Use this before writing code that depends on project APIs."
}

// Parameters returns the tool parameter specification
func (t *QueryTool) Parameters() map[string]interfaces.ParameterSpec {
	return map[string]interfaces.ParameterSpec{
		"query": {
			Type:        "string",
			Description: "Natural language description of the functionality to look up",
			Required:    true,
		},
		"num_results": {
			Type:        "integer",
			Description: "Maximum number of snippets to return",
			Default:     5,
		},
	}
}

// Execute runs the documentation query. Arguments arrive as a JSON object.
func (t *QueryTool) Execute(ctx context.Context, args string) (string, error) {
	var params struct {
		Query      string `json:"query"`
		NumResults int    `json:"num_results"`
	}
	if err := json.Unmarshal([]byte(args), &params); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if params.Query == "" {
		return "", fmt.Errorf("query must not be empty")
	}

	results, err := t.retriever.RetrieveN(ctx, params.Query, params.NumResults)
	if err != nil {
		return "", err
	}

	return FormatSnippets(results), nil
}
