package symbols

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/codescribe-ai/codescribe/pkg/interfaces"
)

// QueryTool exposes the symbol index to an agent as a callable tool
type QueryTool struct {
	index *Index
}

// NewQueryTool wraps a symbol index as a tool
func NewQueryTool(index *Index) *QueryTool {
	return &QueryTool{index: index}
}

// Name returns the tool name
func (t *QueryTool) Name() string {
	return "query_symbol"
}

// Description returns the tool description
func (t *QueryTool) Description() string {
	return "Look up the definition of a symbol in the indexed source tree. Returns the full source of the matching class, function or method."
}

// Parameters returns the tool parameter specification
func (t *QueryTool) Parameters() map[string]interfaces.ParameterSpec {
	return map[string]interfaces.ParameterSpec{
		"symbol_name": {
			Type:        "string",
			Description: "Name of the class, function or method to look up",
			Required:    true,
		},
		"file": {
			Type:        "string",
			Description: "Repo-relative path of the file the symbol is referenced from, used to disambiguate",
		},
		"row": {
			Type:        "integer",
			Description: "1-based line number of the reference, used to disambiguate",
		},
		"col": {
			Type:        "integer",
			Description: "1-based column number of the reference",
		},
	}
}

// Execute looks the symbol up and renders its definitions
func (t *QueryTool) Execute(_ context.Context, args string) (string, error) {
	var params struct {
		SymbolName string `json:"symbol_name"`
		File       string `json:"file"`
		Row        int    `json:"row"`
		Col        int    `json:"col"`
	}
	if err := json.Unmarshal([]byte(args), &params); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if params.SymbolName == "" {
		return "", fmt.Errorf("symbol_name must not be empty")
	}

	notFound := fmt.Sprintf("Symbol %q not found at row %d, column %d.",
		params.SymbolName, params.Row, params.Col)

	if params.File != "" {
		if sym, ok := t.index.LookupAt(params.SymbolName, params.File, params.Row); ok {
			return t.render([]Symbol{sym}), nil
		}
		return notFound, nil
	}

	entries := t.index.Lookup(params.SymbolName)
	if len(entries) == 0 {
		return notFound, nil
	}

	return t.render(entries), nil
}

// render formats each definition as a header line followed by its source.
// The signature and docstring stand in when the source is unavailable.
func (t *QueryTool) render(entries []Symbol) string {
	var sb strings.Builder
	for i, sym := range entries {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "%s %s (%s:%d-%d)\n", sym.Kind, sym.Qualified, sym.File, sym.StartLine, sym.EndLine)
		if source, ok := t.index.Source(sym.File, sym.StartLine, sym.EndLine); ok {
			sb.WriteString(source)
			continue
		}
		sb.WriteString(sym.Signature)
		if sym.Doc != "" {
			sb.WriteString("\n")
			sb.WriteString(sym.Doc)
		}
	}
	return sb.String()
}
