package interfaces

import (
	"context"
	"errors"
)

// ErrIterationLimit reports that a tool-call loop hit its iteration cap
// before the model stopped calling tools. The content returned alongside
// it is the model's forced final answer.
var ErrIterationLimit = errors.New("tool iteration limit reached")

// LLM represents a large language model provider
type LLM interface {
	// Generate generates text based on the provided prompt
	Generate(ctx context.Context, prompt string, options ...GenerateOption) (string, error)

	// GenerateWithTools generates text and can use tools
	GenerateWithTools(ctx context.Context, prompt string, tools []Tool, options ...GenerateOption) (string, error)

	// Name returns the name of the LLM provider
	Name() string
}

// GenerateOption represents options for text generation
type GenerateOption func(options *GenerateOptions)

// GenerateOptions contains configuration for text generation
type GenerateOptions struct {
	LLMConfig     *LLMConfig // LLM config for the generation
	SystemMessage string     // System message for chat models
	MaxIterations int        // Maximum tool-call rounds before the loop is cut off
}

// LLMConfig contains sampling configuration for a generation request
type LLMConfig struct {
	Temperature      float64  // Temperature for the generation
	TopP             float64  // Top P for the generation
	FrequencyPenalty float64  // Frequency penalty for the generation
	PresencePenalty  float64  // Presence penalty for the generation
	StopSequences    []string // Stop sequences for the generation
}
