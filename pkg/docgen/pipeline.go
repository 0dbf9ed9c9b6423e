// Package docgen walks a codebase and produces per-directory Markdown
// documentation through a documentation agent and a formatting agent.
package docgen

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/codescribe-ai/codescribe/pkg/agent"
	"github.com/codescribe-ai/codescribe/pkg/interfaces"
	"github.com/codescribe-ai/codescribe/pkg/logging"
	"github.com/codescribe-ai/codescribe/pkg/orchestration"
	"github.com/codescribe-ai/codescribe/pkg/prompts"
	"github.com/codescribe-ai/codescribe/pkg/symbols"
)

// supportedExts are the source file extensions the pipeline documents.
var supportedExts = map[string]bool{
	".py":   true,
	".java": true,
	".cs":   true,
	".rs":   true,
	".ts":   true,
	".js":   true,
	".go":   true,
	".rb":   true,
}

// Report summarizes a pipeline run.
type Report struct {
	// Documented lists the files that produced documentation, sorted.
	Documented []string

	// Errors maps files that failed to their error. A file failing does
	// not abort the run.
	Errors map[string]error

	// OutputFiles lists the docs.md paths written, sorted.
	OutputFiles []string
}

// Pipeline generates documentation for a codebase directory.
type Pipeline struct {
	llm         interfaces.LLM
	prompts     *prompts.Store
	logger      logging.Logger
	guardrails  interfaces.Guardrails
	tracer      interfaces.Tracer
	concurrency int
	skipFormat  bool
}

// PipelineOption represents an option for configuring a pipeline
type PipelineOption func(*Pipeline)

// WithPromptStore sets the prompt store templates are rendered from
func WithPromptStore(store *prompts.Store) PipelineOption {
	return func(p *Pipeline) {
		p.prompts = store
	}
}

// WithLogger sets the logger for pipeline progress
func WithLogger(logger logging.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithGuardrails sets guardrails applied to both agents
func WithGuardrails(guardrails interfaces.Guardrails) PipelineOption {
	return func(p *Pipeline) {
		p.guardrails = guardrails
	}
}

// WithTracer sets the tracer applied to both agents
func WithTracer(tracer interfaces.Tracer) PipelineOption {
	return func(p *Pipeline) {
		p.tracer = tracer
	}
}

// WithConcurrency sets how many files are documented at once
func WithConcurrency(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithoutFormatting disables the Markdown formatting pass
func WithoutFormatting() PipelineOption {
	return func(p *Pipeline) {
		p.skipFormat = true
	}
}

// NewPipeline creates a documentation pipeline around an LLM
func NewPipeline(llm interfaces.LLM, options ...PipelineOption) (*Pipeline, error) {
	if llm == nil {
		return nil, fmt.Errorf("LLM is required")
	}

	pipeline := &Pipeline{
		llm:         llm,
		prompts:     prompts.NewStore(),
		concurrency: 4,
	}

	for _, option := range options {
		option(pipeline)
	}

	return pipeline, nil
}

// Run documents every supported file under codebaseDir and writes one
// docs.md per directory under outputDir, mirroring the directory layout.
func (p *Pipeline) Run(ctx context.Context, codebaseDir, outputDir string) (*Report, error) {
	files, err := collectFiles(codebaseDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no supported source files under %s", codebaseDir)
	}

	index := symbols.NewIndex()
	if err := index.Build(ctx, codebaseDir); err != nil {
		return nil, fmt.Errorf("failed to index symbols: %w", err)
	}

	docAgent, err := p.documentationAgent(index)
	if err != nil {
		return nil, err
	}

	report := &Report{Errors: make(map[string]error)}

	workflow := orchestration.NewWorkflow()
	for _, relPath := range files {
		relPath := relPath
		workflow.AddTask(relPath, "", func(ctx context.Context, _ string) (string, error) {
			return p.documentFile(ctx, docAgent, index, codebaseDir, relPath)
		})
	}

	runner := orchestration.NewRunner(
		orchestration.WithConcurrency(p.concurrency),
		orchestration.WithRunnerLogger(p.logger),
	)
	if _, err := runner.ExecuteWorkflow(ctx, workflow); err != nil {
		return nil, err
	}

	sections := make(map[string]map[string]string)
	for _, task := range workflow.Tasks {
		if task.Error != nil {
			report.Errors[task.ID] = task.Error
			continue
		}
		report.Documented = append(report.Documented, task.ID)
		dir := filepath.Dir(task.ID)
		if sections[dir] == nil {
			sections[dir] = make(map[string]string)
		}
		sections[dir][filepath.Base(task.ID)] = task.Result
	}
	sort.Strings(report.Documented)

	for dir, bySection := range sections {
		content := assembleDirectory(dir, bySection)
		if !p.skipFormat {
			formatted, err := p.formatDocumentation(ctx, content)
			if err != nil {
				report.Errors[filepath.Join(dir, "docs.md")] = err
			} else {
				content = formatted
			}
		}

		target := filepath.Join(outputDir, dir, "docs.md")
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", target, err)
		}
		report.OutputFiles = append(report.OutputFiles, target)
	}
	sort.Strings(report.OutputFiles)

	if p.logger != nil {
		p.logger.Info(ctx, "Documentation run finished", map[string]interface{}{
			"documented": len(report.Documented),
			"failed":     len(report.Errors),
			"outputs":    len(report.OutputFiles),
		})
	}

	return report, nil
}

// documentationAgent builds the agent used for per-snippet documentation,
// wired with the symbol lookup tool.
func (p *Pipeline) documentationAgent(index *symbols.Index) (*agent.Agent, error) {
	systemPrompt, err := p.prompts.Render(prompts.DocumentCodeID, map[string]interface{}{
		"GoodDocumentation": prompts.GoodDocumentation(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render documentation prompt: %w", err)
	}

	options := []agent.Option{
		agent.WithLLM(p.llm),
		agent.WithName("documentation_agent"),
		agent.WithSystemPrompt(systemPrompt),
		agent.WithTools(symbols.NewQueryTool(index)),
	}
	if p.guardrails != nil {
		options = append(options, agent.WithGuardrails(p.guardrails))
	}
	if p.tracer != nil {
		options = append(options, agent.WithTracer(p.tracer))
	}
	return agent.NewAgent(options...)
}

// documentFile produces the "## Documentation for <file>" section for one
// source file. Python files are documented symbol by symbol; other
// languages are documented as a single snippet.
func (p *Pipeline) documentFile(ctx context.Context, docAgent *agent.Agent, index *symbols.Index, codebaseDir, relPath string) (string, error) {
	content, err := os.ReadFile(filepath.Join(codebaseDir, relPath))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", relPath, err)
	}
	lines := strings.Split(string(content), "\n")

	var snippets []string
	if filepath.Ext(relPath) == ".py" {
		for _, sym := range index.Symbols(filepath.ToSlash(relPath)) {
			if sym.Parent != "" {
				// Nested definitions are covered by their enclosing snippet.
				continue
			}
			snippets = append(snippets, snippetForSymbol(lines, sym))
		}
	}
	if len(snippets) == 0 {
		snippets = []string{string(content)}
	}

	var parts []string
	for _, snippet := range snippets {
		message, err := p.prompts.Render(prompts.DocumentCodeUserID, map[string]interface{}{
			"File": relPath,
			"Code": snippet,
		})
		if err != nil {
			return "", fmt.Errorf("failed to render snippet message: %w", err)
		}

		response, err := docAgent.Run(ctx, message)
		if err != nil {
			return "", fmt.Errorf("documentation failed for %s: %w", relPath, err)
		}

		doc := agent.ExtractTag(response, "documentation")
		if doc == "" {
			doc = strings.TrimSpace(response)
		}
		parts = append(parts, doc)
	}

	if p.logger != nil {
		p.logger.Debug(ctx, "File documented", map[string]interface{}{
			"file":     relPath,
			"snippets": len(snippets),
		})
	}

	return fmt.Sprintf("## Documentation for %s\n\n%s\n", filepath.Base(relPath), strings.Join(parts, "\n\n")), nil
}

// formatDocumentation runs the Markdown cleanup pass over an assembled
// document. The raw document is kept when the formatter response carries
// no improved_documentation tag.
func (p *Pipeline) formatDocumentation(ctx context.Context, content string) (string, error) {
	systemPrompt, err := p.prompts.Render(prompts.FormatDocsID, nil)
	if err != nil {
		return "", err
	}

	options := []agent.Option{
		agent.WithLLM(p.llm),
		agent.WithName("documentation_formatter"),
		agent.WithSystemPrompt(systemPrompt),
	}
	if p.guardrails != nil {
		options = append(options, agent.WithGuardrails(p.guardrails))
	}
	formatter, err := agent.NewAgent(options...)
	if err != nil {
		return "", err
	}

	message, err := p.prompts.Render(prompts.FormatDocsUserID, map[string]interface{}{
		"Documentation": content,
	})
	if err != nil {
		return "", err
	}

	response, err := formatter.Run(ctx, message)
	if err != nil {
		return "", fmt.Errorf("formatting failed: %w", err)
	}

	improved := agent.ExtractTag(response, "improved_documentation")
	if improved == "" {
		return content, nil
	}
	return improved + "\n", nil
}

// assembleDirectory joins file sections into the per-directory document,
// file names sorted for stable output.
func assembleDirectory(dir string, bySection map[string]string) string {
	names := make([]string, 0, len(bySection))
	for name := range bySection {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "# Documentation for %s\n\n", dir)
	for _, name := range names {
		b.WriteString(bySection[name])
		b.WriteString("\n")
	}
	return b.String()
}

// snippetForSymbol cuts the symbol's source span out of the file.
func snippetForSymbol(lines []string, sym symbols.Symbol) string {
	start := sym.StartLine - 1
	end := sym.EndLine
	if start < 0 {
		start = 0
	}
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start:end], "\n")
}

// collectFiles returns the supported source files under root, as sorted
// root-relative paths. Hidden directories and common build output are
// skipped.
func collectFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (strings.HasPrefix(name, ".") || skipDir(name)) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !supportedExts[filepath.Ext(name)] {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

func skipDir(name string) bool {
	switch name {
	case "node_modules", "vendor", "venv", "__pycache__", "target", "dist", "build":
		return true
	}
	return false
}
