package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-redis/redis/v8"

	"github.com/codescribe-ai/codescribe/pkg/agent"
	"github.com/codescribe-ai/codescribe/pkg/config"
	"github.com/codescribe-ai/codescribe/pkg/docgen"
	"github.com/codescribe-ai/codescribe/pkg/embedding"
	"github.com/codescribe-ai/codescribe/pkg/guardrails"
	"github.com/codescribe-ai/codescribe/pkg/interfaces"
	"github.com/codescribe-ai/codescribe/pkg/llm/azureopenai"
	"github.com/codescribe-ai/codescribe/pkg/logging"
	"github.com/codescribe-ai/codescribe/pkg/memory"
	"github.com/codescribe-ai/codescribe/pkg/rag"
	"github.com/codescribe-ai/codescribe/pkg/sandbox"
	"github.com/codescribe-ai/codescribe/pkg/tools"
	"github.com/codescribe-ai/codescribe/pkg/tracing"
	"github.com/codescribe-ai/codescribe/pkg/vectorstore/flat"
	"github.com/codescribe-ai/codescribe/pkg/vectorstore/weaviate"
)

// app bundles the shared components every subcommand needs.
type app struct {
	cfg        *config.Config
	logger     logging.Logger
	llm        interfaces.LLM
	codegenLLM interfaces.LLM
	embedder   *embedding.AzureEmbedder
	tracer     *tracing.OTelTracer
	langfuse   *tracing.LangfuseTracer
}

// buildApp loads configuration and wires the LLM, embedder and tracers.
func buildApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	logger := logging.New(logging.WithLevel(cfg.LogLevel))

	if cfg.AzureOpenAI.APIKey == "" || cfg.AzureOpenAI.Endpoint == "" {
		return nil, fmt.Errorf("AZURE_OPENAI_API_KEY and AZURE_OPENAI_ENDPOINT must be set")
	}

	tracer, err := tracing.NewOTelTracer(tracing.OTelConfig{
		Enabled:           cfg.Tracing.Enabled,
		ServiceName:       cfg.Tracing.ServiceName,
		CollectorEndpoint: cfg.Tracing.OTLPEndpoint,
	})
	if err != nil {
		return nil, err
	}

	langfuse := tracing.NewLangfuseTracer(tracing.LangfuseConfig{
		Enabled:     cfg.Tracing.LangfuseEnabled,
		Environment: cfg.Tracing.LangfuseEnvironment,
	})

	newLLM := func(deployment string) interfaces.LLM {
		var llm interfaces.LLM = azureopenai.NewClient(
			cfg.AzureOpenAI.APIKey,
			cfg.AzureOpenAI.Endpoint,
			cfg.AzureOpenAI.APIVersion,
			azureopenai.WithDeployment(deployment),
			azureopenai.WithLogger(logger),
			azureopenai.WithRetry(),
		)
		if cfg.Tracing.LangfuseEnabled {
			llm = tracing.NewLLMMiddleware(llm, langfuse, logger)
		}
		return llm
	}

	llm := newLLM(cfg.AzureOpenAI.ChatDeployment)
	codegenLLM := newLLM(cfg.AzureOpenAI.CodegenDeployment)

	embedder := embedding.NewAzureEmbedder(
		cfg.AzureOpenAI.APIKey,
		cfg.AzureOpenAI.Endpoint,
		cfg.AzureOpenAI.APIVersion,
		cfg.AzureOpenAI.EmbedDeployment,
	)

	return &app{
		cfg:        cfg,
		logger:     logger,
		llm:        llm,
		codegenLLM: codegenLLM,
		embedder:   embedder,
		tracer:     tracer,
		langfuse:   langfuse,
	}, nil
}

// shutdown flushes the tracers.
func (a *app) shutdown(ctx context.Context) {
	a.langfuse.Flush(ctx)
	if err := a.tracer.Shutdown(ctx); err != nil {
		a.logger.Warn(ctx, "Tracer shutdown failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// newVectorStore builds the configured vector store backend.
func (a *app) newVectorStore(ctx context.Context) (interfaces.VectorStore, error) {
	switch a.cfg.VectorStore.Backend {
	case "", "flat":
		store := flat.New(flat.WithEmbedder(a.embedder))
		if path := a.indexPath(); path != "" {
			if err := store.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				a.logger.Warn(ctx, "Could not load index snapshot, starting empty", map[string]interface{}{
					"path":  path,
					"error": err.Error(),
				})
			}
		}
		return store, nil
	case "weaviate":
		store, err := weaviate.New(interfaces.VectorStoreConfig{
			Host:        a.cfg.VectorStore.Host,
			Scheme:      a.cfg.VectorStore.Scheme,
			APIKey:      a.cfg.VectorStore.APIKey,
			ClassPrefix: a.cfg.VectorStore.ClassPrefix,
		}, weaviate.WithEmbedder(a.embedder))
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown vector store backend %q", a.cfg.VectorStore.Backend)
	}
}

// indexPath returns the flat index snapshot file, or "" when the backend
// is not flat or no persist dir is configured.
func (a *app) indexPath() string {
	backend := a.cfg.VectorStore.Backend
	if backend != "" && backend != "flat" {
		return ""
	}
	if a.cfg.VectorStore.Path == "" {
		return ""
	}
	return filepath.Join(a.cfg.VectorStore.Path, "index.gob")
}

// persistIndex snapshots a flat store to the configured persist dir so the
// next run can skip re-embedding. Failures are logged, not fatal.
func (a *app) persistIndex(ctx context.Context, store interfaces.VectorStore) {
	path := a.indexPath()
	if path == "" {
		return
	}
	flatStore, ok := store.(*flat.Store)
	if !ok {
		return
	}
	if err := flatStore.Save(path); err != nil {
		a.logger.Warn(ctx, "Could not save index snapshot", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
	}
}

// newGuardrails builds the guardrail chain applied to agent traffic.
// PII is redacted rather than blocked so code containing test fixtures
// still flows through, and oversized inputs are truncated from the end.
func (a *app) newGuardrails() *guardrails.Chain {
	return guardrails.NewChain([]guardrails.Guardrail{
		guardrails.NewPiiFilter(guardrails.ActionModify),
		guardrails.NewTokenLimit(120000, &guardrails.SimpleTokenCounter{}, guardrails.ActionModify, "end"),
	}, guardrails.WithLogger(a.logger))
}

// newMemory builds the configured conversation memory backend.
func (a *app) newMemory() (interfaces.Memory, error) {
	switch a.cfg.Memory.Backend {
	case "", "buffer":
		var options []memory.Option
		if a.cfg.Memory.MaxSize > 0 {
			options = append(options, memory.WithMaxSize(a.cfg.Memory.MaxSize))
		}
		return memory.NewConversationBuffer(options...), nil
	case "redis":
		opts, err := redis.ParseURL(a.cfg.Memory.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return memory.NewRedisMemory(redis.NewClient(opts)), nil
	default:
		return nil, fmt.Errorf("unknown memory backend %q", a.cfg.Memory.Backend)
	}
}

// runDocumentation documents codebaseDir into outputDir.
func (a *app) runDocumentation(ctx context.Context, codebaseDir, outputDir string) error {
	pipeline, err := docgen.NewPipeline(a.llm,
		docgen.WithLogger(a.logger),
		docgen.WithTracer(a.tracer),
		docgen.WithGuardrails(a.newGuardrails()),
	)
	if err != nil {
		return err
	}

	report, err := pipeline.Run(ctx, codebaseDir, outputDir)
	if err != nil {
		return err
	}

	for file, fileErr := range report.Errors {
		a.logger.Warn(ctx, "File skipped", map[string]interface{}{
			"file":  file,
			"error": fileErr.Error(),
		})
	}
	a.logger.Info(ctx, "Documentation written", map[string]interface{}{
		"files":   len(report.Documented),
		"outputs": report.OutputFiles,
	})

	return nil
}

// runCodeGeneration indexes docsDir (plus examplesDir when given), runs
// the generation loop for problemStatement and writes generated_code.py
// under outputDir.
func (a *app) runCodeGeneration(ctx context.Context, docsDir, examplesDir, problemStatement, outputDir string) error {
	store, err := a.newVectorStore(ctx)
	if err != nil {
		return err
	}

	loader := rag.NewLoader(
		rag.WithChunkSize(a.cfg.Retrieval.ChunkSize),
		rag.WithChunkOverlap(a.cfg.Retrieval.ChunkOverlap),
	)
	indexer := rag.NewIndexer(store,
		rag.WithLoader(loader),
		rag.WithLogger(a.logger),
	)

	docCount, err := indexer.IndexDirectory(ctx, docsDir)
	if err != nil {
		return fmt.Errorf("failed to index documentation: %w", err)
	}
	if !hasMarkdown(docsDir) {
		a.logger.Warn(ctx, "No Markdown documentation found, generation will rely on source alone", map[string]interface{}{
			"docs_dir": docsDir,
		})
	}

	exampleCount := 0
	if examplesDir != "" && examplesDir != docsDir {
		exampleCount, err = indexer.IndexDirectory(ctx, examplesDir)
		if err != nil {
			return fmt.Errorf("failed to index examples: %w", err)
		}
	}
	a.logger.Info(ctx, "Index built", map[string]interface{}{
		"doc_chunks":     docCount,
		"example_chunks": exampleCount,
	})
	a.persistIndex(ctx, store)

	retriever := rag.NewRetriever(store,
		rag.WithTopK(a.cfg.Retrieval.TopK),
		rag.WithMinScore(a.cfg.Retrieval.MinScore),
	)

	runner := sandbox.NewRunner(
		sandbox.WithInterpreter(a.cfg.Sandbox.Interpreter),
		sandbox.WithTimeout(a.cfg.Sandbox.Timeout),
		sandbox.WithWorkDir(a.cfg.Sandbox.WorkDir),
		sandbox.WithLogger(a.logger),
	)

	mem, err := a.newMemory()
	if err != nil {
		return err
	}

	registry := tools.NewRegistry()
	registry.Register(rag.NewQueryTool(retriever))
	registry.Register(sandbox.NewExecTool(runner))

	codegenAgent, err := agent.NewAgent(
		agent.WithLLM(a.codegenLLM),
		agent.WithName("code_generation_agent"),
		agent.WithMemory(mem),
		agent.WithTracer(a.tracer),
		agent.WithGuardrails(a.newGuardrails()),
		agent.WithTools(registry.List()...),
	)
	if err != nil {
		return err
	}

	generator, err := agent.NewCodeGenerator(codegenAgent, runner,
		agent.WithRetriever(retriever),
		agent.WithCodeGenLogger(a.logger),
	)
	if err != nil {
		return err
	}

	result, err := generator.Run(ctx, problemStatement)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	target := filepath.Join(outputDir, "generated_code.py")
	if err := os.WriteFile(target, []byte(result.Code+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write generated code: %w", err)
	}

	fields := map[string]interface{}{
		"file":     target,
		"attempts": result.Attempts,
		"passed":   result.Passed,
	}
	if result.Passed {
		a.logger.Info(ctx, "Generated program verified", fields)
	} else {
		fields["feedback"] = result.Feedback
		a.logger.Warn(ctx, "Generated program still failing, writing last candidate", fields)
	}

	return nil
}

// hasMarkdown reports whether dir contains at least one .md file.
func hasMarkdown(dir string) bool {
	found := false
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".md") {
			found = true
			return filepath.SkipAll
		}
		return nil
	})
	return found
}

// requireDir errors when path is missing or not a directory.
func requireDir(flag, path string) error {
	if path == "" {
		return fmt.Errorf("--%s is required", flag)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("--%s: %w", flag, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("--%s: %s is not a directory", flag, path)
	}
	return nil
}
