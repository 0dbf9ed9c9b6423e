// Package agent provides the conversational core that ties an LLM to
// memory, tools, guardrails and tracing.
package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/codescribe-ai/codescribe/pkg/interfaces"
)

// Agent orchestrates a single LLM with optional memory, tools,
// guardrails and tracing.
type Agent struct {
	llm           interfaces.LLM
	memory        interfaces.Memory
	tools         []interfaces.Tool
	tracer        interfaces.Tracer
	guardrails    interfaces.Guardrails
	systemPrompt  string
	name          string
	llmConfig     *interfaces.LLMConfig
	maxIterations int
}

// Option represents an option for configuring an agent
type Option func(*Agent)

// WithLLM sets the LLM for the agent
func WithLLM(llm interfaces.LLM) Option {
	return func(a *Agent) {
		a.llm = llm
	}
}

// WithMemory sets the memory for the agent
func WithMemory(memory interfaces.Memory) Option {
	return func(a *Agent) {
		a.memory = memory
	}
}

// WithTools sets the tools available to the agent
func WithTools(tools ...interfaces.Tool) Option {
	return func(a *Agent) {
		a.tools = tools
	}
}

// WithTracer sets the tracer for the agent
func WithTracer(tracer interfaces.Tracer) Option {
	return func(a *Agent) {
		a.tracer = tracer
	}
}

// WithGuardrails sets the guardrails for the agent
func WithGuardrails(guardrails interfaces.Guardrails) Option {
	return func(a *Agent) {
		a.guardrails = guardrails
	}
}

// WithSystemPrompt sets the system prompt for the agent
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) {
		a.systemPrompt = prompt
	}
}

// WithName sets a human-readable name for the agent
func WithName(name string) Option {
	return func(a *Agent) {
		a.name = name
	}
}

// WithLLMConfig sets the sampling configuration used on every generation
func WithLLMConfig(config interfaces.LLMConfig) Option {
	return func(a *Agent) {
		a.llmConfig = &config
	}
}

// WithMaxIterations caps the number of tool-call rounds per Run
func WithMaxIterations(n int) Option {
	return func(a *Agent) {
		a.maxIterations = n
	}
}

// NewAgent creates a new agent with the given options
func NewAgent(options ...Option) (*Agent, error) {
	agent := &Agent{
		name: "agent",
	}

	for _, option := range options {
		option(agent)
	}

	if agent.llm == nil {
		return nil, fmt.Errorf("LLM is required")
	}

	return agent, nil
}

// Name returns the agent's name
func (a *Agent) Name() string {
	return a.name
}

// SystemPrompt returns the agent's system prompt
func (a *Agent) SystemPrompt() string {
	return a.systemPrompt
}

// Run executes the agent with the given input and returns the response
func (a *Agent) Run(ctx context.Context, input string) (string, error) {
	if a.tracer != nil {
		var span interfaces.Span
		ctx, span = a.tracer.StartSpan(ctx, "agent.Run")
		span.SetAttribute("agent.name", a.name)
		defer span.End()
	}

	if a.guardrails != nil {
		processed, err := a.guardrails.ProcessInput(ctx, input)
		if err != nil {
			return "", fmt.Errorf("input rejected: %w", err)
		}
		input = processed
	}

	if a.memory != nil {
		err := a.memory.AddMessage(ctx, interfaces.Message{
			Role:    "user",
			Content: input,
		})
		if err != nil {
			return "", fmt.Errorf("failed to store user message: %w", err)
		}
	}

	prompt := input
	if a.memory != nil {
		history, err := a.memory.GetMessages(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to load conversation history: %w", err)
		}
		prompt = formatHistoryIntoPrompt(history)
	}

	options := a.generateOptions()

	var response string
	var err error
	if len(a.tools) > 0 {
		response, err = a.llm.GenerateWithTools(ctx, prompt, a.tools, options...)
		// A capped tool loop still produces a forced final answer; keep it.
		if errors.Is(err, interfaces.ErrIterationLimit) && response != "" {
			err = nil
		}
	} else {
		response, err = a.llm.Generate(ctx, prompt, options...)
	}
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}

	if a.guardrails != nil {
		processed, err := a.guardrails.ProcessOutput(ctx, response)
		if err != nil {
			return "", fmt.Errorf("output rejected: %w", err)
		}
		response = processed
	}

	if a.memory != nil {
		err := a.memory.AddMessage(ctx, interfaces.Message{
			Role:    "assistant",
			Content: response,
		})
		if err != nil {
			return "", fmt.Errorf("failed to store assistant message: %w", err)
		}
	}

	return response, nil
}

func (a *Agent) generateOptions() []interfaces.GenerateOption {
	var options []interfaces.GenerateOption

	if a.systemPrompt != "" {
		systemPrompt := a.systemPrompt
		options = append(options, func(o *interfaces.GenerateOptions) {
			o.SystemMessage = systemPrompt
		})
	}

	if a.llmConfig != nil {
		config := a.llmConfig
		options = append(options, func(o *interfaces.GenerateOptions) {
			o.LLMConfig = config
		})
	}

	if a.maxIterations > 0 {
		max := a.maxIterations
		options = append(options, func(o *interfaces.GenerateOptions) {
			o.MaxIterations = max
		})
	}

	return options
}

// formatHistoryIntoPrompt flattens a conversation into a single prompt string.
func formatHistoryIntoPrompt(history []interfaces.Message) string {
	var prompt string

	for _, msg := range history {
		prompt += msg.Role + ": " + msg.Content + "\n"
	}

	return prompt
}
