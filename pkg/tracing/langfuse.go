package tracing

import (
	"context"
	"fmt"
	"time"

	"github.com/henomis/langfuse-go"
	"github.com/henomis/langfuse-go/model"

	"github.com/codescribe-ai/codescribe/pkg/interfaces"
	"github.com/codescribe-ai/codescribe/pkg/logging"
)

// LangfuseTracer records LLM generations in Langfuse. Credentials come
// from the standard LANGFUSE_* environment variables.
type LangfuseTracer struct {
	client      *langfuse.Langfuse
	enabled     bool
	environment string
}

// LangfuseConfig contains configuration for Langfuse
type LangfuseConfig struct {
	// Enabled determines whether Langfuse tracing is enabled
	Enabled bool

	// Environment is the environment name (e.g., "production", "staging")
	Environment string
}

// NewLangfuseTracer creates a new Langfuse tracer
func NewLangfuseTracer(config LangfuseConfig) *LangfuseTracer {
	if !config.Enabled {
		return &LangfuseTracer{enabled: false}
	}

	return &LangfuseTracer{
		client:      langfuse.New(context.Background()),
		enabled:     true,
		environment: config.Environment,
	}
}

// TraceGeneration records a single LLM generation
func (t *LangfuseTracer) TraceGeneration(ctx context.Context, modelName string, prompt string, response string, startTime time.Time, endTime time.Time, metadata map[string]interface{}) (string, error) {
	if !t.enabled {
		return "", nil
	}

	if metadata == nil {
		metadata = make(map[string]interface{})
	}
	metadata["environment"] = t.environment
	if jobID, ok := logging.JobID(ctx); ok {
		metadata["job_id"] = jobID
	}

	metadataM := make(model.M)
	for k, v := range metadata {
		metadataM[k] = v
	}

	generation := &model.Generation{
		Name:      fmt.Sprintf("generation-%d", time.Now().UnixNano()),
		StartTime: &startTime,
		EndTime:   &endTime,
		Model:     modelName,
		Input: []model.M{
			{"prompt": prompt},
		},
		Output: model.M{
			"completion": response,
		},
		Metadata: metadataM,
	}

	var id string
	generationID, err := t.client.Generation(generation, &id)
	if err != nil {
		return "", fmt.Errorf("failed to create Langfuse generation: %w", err)
	}

	return generationID.ID, nil
}

// Flush flushes pending Langfuse events
func (t *LangfuseTracer) Flush(ctx context.Context) {
	if !t.enabled {
		return
	}
	t.client.Flush(ctx)
}

// LLMMiddleware wraps an LLM so every generation is recorded in Langfuse.
// Trace failures are logged and never fail the request.
type LLMMiddleware struct {
	llm    interfaces.LLM
	tracer *LangfuseTracer
	logger logging.Logger
}

// NewLLMMiddleware creates a new LLM middleware with Langfuse tracing
func NewLLMMiddleware(llm interfaces.LLM, tracer *LangfuseTracer, logger logging.Logger) *LLMMiddleware {
	return &LLMMiddleware{
		llm:    llm,
		tracer: tracer,
		logger: logger,
	}
}

// Generate generates text from a prompt with Langfuse tracing
func (m *LLMMiddleware) Generate(ctx context.Context, prompt string, options ...interfaces.GenerateOption) (string, error) {
	startTime := time.Now()
	response, err := m.llm.Generate(ctx, prompt, options...)
	m.trace(ctx, prompt, response, startTime, map[string]interface{}{}, err)
	return response, err
}

// GenerateWithTools generates text with tool access and Langfuse tracing
func (m *LLMMiddleware) GenerateWithTools(ctx context.Context, prompt string, tools []interfaces.Tool, options ...interfaces.GenerateOption) (string, error) {
	startTime := time.Now()
	response, err := m.llm.GenerateWithTools(ctx, prompt, tools, options...)

	toolNames := make([]string, 0, len(tools))
	for _, tool := range tools {
		toolNames = append(toolNames, tool.Name())
	}
	m.trace(ctx, prompt, response, startTime, map[string]interface{}{"tools": toolNames}, err)

	return response, err
}

// Name implements interfaces.LLM.Name
func (m *LLMMiddleware) Name() string {
	return m.llm.Name()
}

func (m *LLMMiddleware) trace(ctx context.Context, prompt, response string, startTime time.Time, metadata map[string]interface{}, genErr error) {
	if genErr != nil {
		metadata["error"] = genErr.Error()
		response = ""
	}

	_, err := m.tracer.TraceGeneration(ctx, m.llm.Name(), prompt, response, startTime, time.Now(), metadata)
	if err != nil && m.logger != nil {
		m.logger.Warn(ctx, "Failed to trace generation", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
