package sandbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/codescribe-ai/codescribe/pkg/interfaces"
)

// ExecTool exposes the sandbox to an agent so it can test code while
// generating it. Execution failures are reported back as tool output
// rather than errors, so the model sees the transcript and can react.
type ExecTool struct {
	runner *Runner
}

// NewExecTool wraps a runner as a tool
func NewExecTool(runner *Runner) *ExecTool {
	return &ExecTool{runner: runner}
}

// Name returns the tool name
func (t *ExecTool) Name() string {
	return "execute_python"
}

// Description returns the tool description
func (t *ExecTool) Description() string {
	return "Execute a Python snippet in a sandbox and return its output. Use this to test code while writing it."
}

// Parameters returns the tool parameter specification
func (t *ExecTool) Parameters() map[string]interfaces.ParameterSpec {
	return map[string]interfaces.ParameterSpec{
		"code": {
			Type:        "string",
			Description: "The Python code to execute",
			Required:    true,
		},
	}
}

// Execute runs the snippet. Arguments arrive as a JSON object.
func (t *ExecTool) Execute(ctx context.Context, args string) (string, error) {
	var params struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal([]byte(args), &params); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if params.Code == "" {
		return "", fmt.Errorf("code must not be empty")
	}

	result, err := t.runner.RunCode(ctx, params.Code)
	if err != nil {
		return "", err
	}

	if result.Failed() {
		return "Execution error:\n\n" + result.Output(), nil
	}
	return "Execution successful:\n\n" + result.Output(), nil
}
