package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/codescribe-ai/codescribe/pkg/interfaces"
)

// FuncTool adapts a plain function into a tool. Arguments are decoded from
// the JSON object the model produced and validated against the parameter
// specification before the function runs.
type FuncTool struct {
	name        string
	description string
	parameters  map[string]interfaces.ParameterSpec
	fn          func(ctx context.Context, args map[string]interface{}) (string, error)
}

// NewFuncTool creates a tool from a function
func NewFuncTool(
	name, description string,
	parameters map[string]interfaces.ParameterSpec,
	fn func(ctx context.Context, args map[string]interface{}) (string, error),
) *FuncTool {
	return &FuncTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

// Name returns the tool name
func (t *FuncTool) Name() string {
	return t.name
}

// Description returns the tool description
func (t *FuncTool) Description() string {
	return t.description
}

// Parameters returns the tool parameter specification
func (t *FuncTool) Parameters() map[string]interfaces.ParameterSpec {
	return t.parameters
}

// Execute decodes and validates args, then runs the wrapped function
func (t *FuncTool) Execute(ctx context.Context, args string) (string, error) {
	decoded := make(map[string]interface{})
	if args != "" {
		if err := json.Unmarshal([]byte(args), &decoded); err != nil {
			return "", fmt.Errorf("invalid arguments for %s: %w", t.name, err)
		}
	}

	for name, spec := range t.parameters {
		if _, ok := decoded[name]; ok {
			continue
		}
		if spec.Default != nil {
			decoded[name] = spec.Default
			continue
		}
		if spec.Required {
			return "", fmt.Errorf("missing required parameter %q for %s", name, t.name)
		}
	}

	return t.fn(ctx, decoded)
}
