package tracing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codescribe-ai/codescribe/pkg/interfaces"
)

func TestDisabledOTelTracerReturnsNoopSpans(t *testing.T) {
	tracer, err := NewOTelTracer(OTelConfig{Enabled: false})
	require.NoError(t, err)

	ctx := context.Background()
	spanCtx, span := tracer.StartSpan(ctx, "op")
	assert.Equal(t, ctx, spanCtx)

	// Must not panic.
	span.SetAttribute("key", "value")
	span.AddEvent("event", map[string]interface{}{"n": 1})
	span.End()

	require.NoError(t, tracer.Shutdown(ctx))
}

func TestConvertAttribute(t *testing.T) {
	assert.Equal(t, "value", convertAttribute("k", "value").Value.AsString())
	assert.Equal(t, int64(7), convertAttribute("k", 7).Value.AsInt64())
	assert.Equal(t, true, convertAttribute("k", true).Value.AsBool())
	assert.Equal(t, 1.5, convertAttribute("k", 1.5).Value.AsFloat64())
	assert.Equal(t, "[1 2]", convertAttribute("k", []int{1, 2}).Value.AsString())
}

func TestDisabledLangfuseTracerIsInert(t *testing.T) {
	tracer := NewLangfuseTracer(LangfuseConfig{Enabled: false})

	id, err := tracer.TraceGeneration(context.Background(), "model", "p", "r", time.Now(), time.Now(), nil)
	require.NoError(t, err)
	assert.Empty(t, id)

	tracer.Flush(context.Background())
}

type passthroughLLM struct {
	err error
}

func (p passthroughLLM) Generate(ctx context.Context, prompt string, options ...interfaces.GenerateOption) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return "response to " + prompt, nil
}

func (p passthroughLLM) GenerateWithTools(ctx context.Context, prompt string, tools []interfaces.Tool, options ...interfaces.GenerateOption) (string, error) {
	return p.Generate(ctx, prompt, options...)
}

func (p passthroughLLM) Name() string { return "passthrough" }

func TestLLMMiddlewarePassesThrough(t *testing.T) {
	tracer := NewLangfuseTracer(LangfuseConfig{Enabled: false})
	middleware := NewLLMMiddleware(passthroughLLM{}, tracer, nil)

	response, err := middleware.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "response to hello", response)
	assert.Equal(t, "passthrough", middleware.Name())
}

func TestLLMMiddlewarePropagatesErrors(t *testing.T) {
	tracer := NewLangfuseTracer(LangfuseConfig{Enabled: false})
	middleware := NewLLMMiddleware(passthroughLLM{err: fmt.Errorf("rate limited")}, tracer, nil)

	_, err := middleware.Generate(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}
