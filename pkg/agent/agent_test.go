package agent

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codescribe-ai/codescribe/pkg/interfaces"
	"github.com/codescribe-ai/codescribe/pkg/memory"
)

// scriptedLLM replays canned responses and records everything it was asked.
type scriptedLLM struct {
	responses []string
	prompts   []string
	options   []interfaces.GenerateOptions
	withTools bool
}

func (s *scriptedLLM) next(prompt string, options ...interfaces.GenerateOption) (string, error) {
	opts := interfaces.GenerateOptions{}
	for _, option := range options {
		option(&opts)
	}
	s.prompts = append(s.prompts, prompt)
	s.options = append(s.options, opts)
	if len(s.responses) == 0 {
		return "", fmt.Errorf("no scripted response left")
	}
	response := s.responses[0]
	s.responses = s.responses[1:]
	return response, nil
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt string, options ...interfaces.GenerateOption) (string, error) {
	return s.next(prompt, options...)
}

func (s *scriptedLLM) GenerateWithTools(ctx context.Context, prompt string, tools []interfaces.Tool, options ...interfaces.GenerateOption) (string, error) {
	s.withTools = true
	return s.next(prompt, options...)
}

func (s *scriptedLLM) Name() string {
	return "scripted"
}

type rejectingGuardrails struct{}

func (rejectingGuardrails) ProcessInput(ctx context.Context, input string) (string, error) {
	return "", fmt.Errorf("input not allowed")
}

func (rejectingGuardrails) ProcessOutput(ctx context.Context, output string) (string, error) {
	return output, nil
}

type stubTool struct{ name string }

func (t stubTool) Name() string        { return t.name }
func (t stubTool) Description() string { return "stub" }

func (t stubTool) Parameters() map[string]interfaces.ParameterSpec { return nil }

func (t stubTool) Execute(ctx context.Context, args string) (string, error) {
	return "", nil
}

// cappedLLM simulates a tool loop that hit its iteration cap but still
// produced a forced final answer.
type cappedLLM struct{}

func (cappedLLM) Generate(context.Context, string, ...interfaces.GenerateOption) (string, error) {
	return "", fmt.Errorf("unexpected call")
}

func (cappedLLM) GenerateWithTools(context.Context, string, []interfaces.Tool, ...interfaces.GenerateOption) (string, error) {
	return "best effort", fmt.Errorf("after 2 iterations: %w", interfaces.ErrIterationLimit)
}

func (cappedLLM) Name() string { return "capped" }

func TestNewAgentRequiresLLM(t *testing.T) {
	_, err := NewAgent(WithName("no-llm"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM is required")
}

func TestRunPassesSystemPromptAndConfig(t *testing.T) {
	llm := &scriptedLLM{responses: []string{"hi there"}}
	agent, err := NewAgent(
		WithLLM(llm),
		WithSystemPrompt("You are terse."),
		WithLLMConfig(interfaces.LLMConfig{Temperature: 0.1}),
	)
	require.NoError(t, err)

	response, err := agent.Run(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi there", response)

	require.Len(t, llm.options, 1)
	assert.Equal(t, "You are terse.", llm.options[0].SystemMessage)
	require.NotNil(t, llm.options[0].LLMConfig)
	assert.Equal(t, 0.1, llm.options[0].LLMConfig.Temperature)
	assert.False(t, llm.withTools)
}

func TestRunKeepsAnswerOnIterationLimit(t *testing.T) {
	agent, err := NewAgent(WithLLM(cappedLLM{}), WithTools(stubTool{name: "echo"}))
	require.NoError(t, err)

	response, err := agent.Run(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, "best effort", response)
}

func TestRunFormatsHistoryFromMemory(t *testing.T) {
	llm := &scriptedLLM{responses: []string{"four"}}
	mem := memory.NewConversationBuffer()
	agent, err := NewAgent(WithLLM(llm), WithMemory(mem))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, mem.AddMessage(ctx, interfaces.Message{Role: "assistant", Content: "ask away"}))

	_, err = agent.Run(ctx, "what is 2+2?")
	require.NoError(t, err)

	require.Len(t, llm.prompts, 1)
	assert.Equal(t, "assistant: ask away\nuser: what is 2+2?\n", llm.prompts[0])

	messages, err := mem.GetMessages(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "assistant", messages[2].Role)
	assert.Equal(t, "four", messages[2].Content)
}

func TestRunUsesToolsWhenConfigured(t *testing.T) {
	llm := &scriptedLLM{responses: []string{"done"}}
	agent, err := NewAgent(WithLLM(llm), WithTools(stubTool{name: "lookup"}))
	require.NoError(t, err)

	_, err = agent.Run(context.Background(), "go")
	require.NoError(t, err)
	assert.True(t, llm.withTools)
}

func TestRunRejectsBlockedInput(t *testing.T) {
	llm := &scriptedLLM{responses: []string{"never reached"}}
	agent, err := NewAgent(WithLLM(llm), WithGuardrails(rejectingGuardrails{}))
	require.NoError(t, err)

	_, err = agent.Run(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input rejected")
	assert.Empty(t, llm.prompts)
}

func TestExtractCodeBlock(t *testing.T) {
	text := "Plan first.\n```python\nprint('scratch')\n```\nFinal answer:\n```python\nprint('final')\n```\n"
	assert.Equal(t, "print('final')", ExtractCodeBlock(text))
}

func TestExtractCodeBlockMissing(t *testing.T) {
	assert.Equal(t, "", ExtractCodeBlock("no fences here"))
}

func TestExtractCodeBlockUnlabeled(t *testing.T) {
	assert.Equal(t, "x = 1", ExtractCodeBlock("```\nx = 1\n```"))
}

func TestExtractTag(t *testing.T) {
	text := "<verdict>draft</verdict> later <verdict> pass </verdict>"
	assert.Equal(t, "pass", ExtractTag(text, "verdict"))
	assert.Equal(t, "", ExtractTag(text, "feedback"))
	assert.Equal(t, "", ExtractTag("<verdict>unclosed", "verdict"))
}
