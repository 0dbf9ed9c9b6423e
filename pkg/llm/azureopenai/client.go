// Package azureopenai implements the LLM interface against an Azure OpenAI
// deployment. Tool use runs as an iterative loop: the model may request
// tools, see their results, and request more, until it produces a final
// answer or the iteration cap is reached.
package azureopenai

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/codescribe-ai/codescribe/pkg/interfaces"
	"github.com/codescribe-ai/codescribe/pkg/logging"
	"github.com/codescribe-ai/codescribe/pkg/retry"
)

// DefaultMaxIterations caps the tool-call rounds in GenerateWithTools
const DefaultMaxIterations = 15

// Client implements the LLM interface for Azure OpenAI
type Client struct {
	Client        *openai.Client
	Deployment    string
	logger        logging.Logger
	retryExecutor *retry.Executor
}

// Option represents an option for configuring the client
type Option func(*Client)

// WithDeployment sets the chat deployment name
func WithDeployment(deployment string) Option {
	return func(c *Client) {
		c.Deployment = deployment
	}
}

// WithLogger sets the logger for the client
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRetry configures retry policy for the client
func WithRetry(opts ...retry.Option) Option {
	return func(c *Client) {
		c.retryExecutor = retry.NewExecutor(retry.NewPolicy(opts...))
	}
}

// NewClient creates a client for the given Azure OpenAI endpoint
func NewClient(apiKey, endpoint, apiVersion string, options ...Option) *Client {
	config := openai.DefaultAzureConfig(apiKey, endpoint)
	if apiVersion != "" {
		config.APIVersion = apiVersion
	}

	client := &Client{
		Client:     openai.NewClientWithConfig(config),
		Deployment: "gpt-4o",
		logger:     logging.New(),
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// Name implements interfaces.LLM.Name
func (c *Client) Name() string {
	return "azure-openai"
}

func applyOptions(options []interfaces.GenerateOption) *interfaces.GenerateOptions {
	params := &interfaces.GenerateOptions{
		LLMConfig: &interfaces.LLMConfig{
			Temperature: 0.7,
			TopP:        1.0,
		},
		MaxIterations: DefaultMaxIterations,
	}

	for _, option := range options {
		if option != nil {
			option(params)
		}
	}

	if params.LLMConfig == nil {
		params.LLMConfig = &interfaces.LLMConfig{Temperature: 0.7, TopP: 1.0}
	}
	if params.MaxIterations <= 0 {
		params.MaxIterations = DefaultMaxIterations
	}

	return params
}

func (c *Client) request(params *interfaces.GenerateOptions, messages []openai.ChatCompletionMessage) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:            c.Deployment,
		Messages:         messages,
		Temperature:      float32(params.LLMConfig.Temperature),
		TopP:             float32(params.LLMConfig.TopP),
		FrequencyPenalty: float32(params.LLMConfig.FrequencyPenalty),
		PresencePenalty:  float32(params.LLMConfig.PresencePenalty),
		Stop:             params.LLMConfig.StopSequences,
	}
}

func (c *Client) complete(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	var resp openai.ChatCompletionResponse

	operation := func() error {
		c.logger.Debug(ctx, "Executing Azure OpenAI request", map[string]interface{}{
			"deployment": c.Deployment,
			"messages":   len(req.Messages),
			"tools":      len(req.Tools),
		})

		var err error
		resp, err = c.Client.CreateChatCompletion(ctx, req)
		if err != nil {
			c.logger.Error(ctx, "Error from Azure OpenAI API", map[string]interface{}{
				"error":      err.Error(),
				"deployment": c.Deployment,
			})
			return fmt.Errorf("failed to create chat completion: %w", err)
		}
		return nil
	}

	var err error
	if c.retryExecutor != nil {
		err = c.retryExecutor.Execute(ctx, operation)
	} else {
		err = operation()
	}
	if err != nil {
		return resp, err
	}

	if len(resp.Choices) == 0 {
		return resp, fmt.Errorf("no completions returned")
	}

	return resp, nil
}

// Generate generates text from a prompt
func (c *Client) Generate(ctx context.Context, prompt string, options ...interfaces.GenerateOption) (string, error) {
	params := applyOptions(options)

	messages := []openai.ChatCompletionMessage{}
	if params.SystemMessage != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: params.SystemMessage,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := c.complete(ctx, c.request(params, messages))
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// GenerateWithTools implements interfaces.LLM.GenerateWithTools. The model
// may call tools across multiple rounds; each round's results are appended
// to the conversation before asking again. When the iteration cap is hit
// the last request is sent without tools to force a final answer.
func (c *Client) GenerateWithTools(ctx context.Context, prompt string, tools []interfaces.Tool, options ...interfaces.GenerateOption) (string, error) {
	params := applyOptions(options)

	messages := []openai.ChatCompletionMessage{}
	if params.SystemMessage != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: params.SystemMessage,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	openaiTools := convertTools(tools)

	for iteration := 0; iteration < params.MaxIterations; iteration++ {
		req := c.request(params, messages)
		req.Tools = openaiTools

		resp, err := c.complete(ctx, req)
		if err != nil {
			return "", err
		}

		choice := resp.Choices[0].Message
		if len(choice.ToolCalls) == 0 {
			return strings.TrimSpace(choice.Content), nil
		}

		messages = append(messages, choice)

		c.logger.Info(ctx, "Processing tool calls", map[string]interface{}{
			"count":     len(choice.ToolCalls),
			"iteration": iteration + 1,
		})

		for _, toolCall := range choice.ToolCalls {
			messages = append(messages, c.executeToolCall(ctx, toolCall, tools))
		}
	}

	// Iteration cap reached, ask for a final answer without tools
	c.logger.Warn(ctx, "Tool iteration cap reached, forcing final answer", map[string]interface{}{
		"max_iterations": params.MaxIterations,
	})

	resp, err := c.complete(ctx, c.request(params, messages))
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content),
		fmt.Errorf("after %d iterations: %w", params.MaxIterations, interfaces.ErrIterationLimit)
}

// executeToolCall runs a single requested tool and renders its result as a
// tool message. Tool failures are reported back to the model rather than
// aborting the loop, so it can recover or try another tool.
func (c *Client) executeToolCall(ctx context.Context, toolCall openai.ToolCall, tools []interfaces.Tool) openai.ChatCompletionMessage {
	var selected interfaces.Tool
	for _, tool := range tools {
		if tool.Name() == toolCall.Function.Name {
			selected = tool
			break
		}
	}

	if selected == nil {
		c.logger.Error(ctx, "Tool not found", map[string]interface{}{"toolName": toolCall.Function.Name})
		return openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    fmt.Sprintf("Error: tool not found: %s", toolCall.Function.Name),
			Name:       toolCall.Function.Name,
			ToolCallID: toolCall.ID,
		}
	}

	c.logger.Info(ctx, "Executing tool", map[string]interface{}{"toolName": selected.Name()})

	result, err := selected.Execute(ctx, toolCall.Function.Arguments)
	if err != nil {
		c.logger.Error(ctx, "Error executing tool", map[string]interface{}{
			"toolName": selected.Name(),
			"error":    err.Error(),
		})
		return openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    fmt.Sprintf("Error: %v", err),
			Name:       selected.Name(),
			ToolCallID: toolCall.ID,
		}
	}

	return openai.ChatCompletionMessage{
		Role:       openai.ChatMessageRoleTool,
		Content:    result,
		Name:       selected.Name(),
		ToolCallID: toolCall.ID,
	}
}

// convertTools maps tool parameter specs to the JSON Schema OpenAI expects
func convertTools(tools []interfaces.Tool) []openai.Tool {
	openaiTools := make([]openai.Tool, len(tools))
	for i, tool := range tools {
		properties := make(map[string]interface{})
		required := []string{}

		for name, param := range tool.Parameters() {
			property := map[string]interface{}{
				"type":        param.Type,
				"description": param.Description,
			}
			if param.Default != nil {
				property["default"] = param.Default
			}
			if param.Enum != nil {
				property["enum"] = param.Enum
			}
			properties[name] = property

			if param.Required {
				required = append(required, name)
			}
		}

		openaiTools[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters: map[string]interface{}{
					"type":       "object",
					"properties": properties,
					"required":   required,
				},
			},
		}
	}

	return openaiTools
}

// WithTemperature creates a GenerateOption to set the temperature
func WithTemperature(temperature float64) interfaces.GenerateOption {
	return func(options *interfaces.GenerateOptions) {
		if options.LLMConfig == nil {
			options.LLMConfig = &interfaces.LLMConfig{}
		}
		options.LLMConfig.Temperature = temperature
	}
}

// WithTopP creates a GenerateOption to set the top_p
func WithTopP(topP float64) interfaces.GenerateOption {
	return func(options *interfaces.GenerateOptions) {
		if options.LLMConfig == nil {
			options.LLMConfig = &interfaces.LLMConfig{}
		}
		options.LLMConfig.TopP = topP
	}
}

// WithStopSequences creates a GenerateOption to set the stop sequences
func WithStopSequences(stopSequences []string) interfaces.GenerateOption {
	return func(options *interfaces.GenerateOptions) {
		if options.LLMConfig == nil {
			options.LLMConfig = &interfaces.LLMConfig{}
		}
		options.LLMConfig.StopSequences = stopSequences
	}
}

// WithSystemMessage creates a GenerateOption to set the system message
func WithSystemMessage(systemMessage string) interfaces.GenerateOption {
	return func(options *interfaces.GenerateOptions) {
		options.SystemMessage = systemMessage
	}
}

// WithMaxIterations creates a GenerateOption capping tool-call rounds
func WithMaxIterations(maxIterations int) interfaces.GenerateOption {
	return func(options *interfaces.GenerateOptions) {
		options.MaxIterations = maxIterations
	}
}
