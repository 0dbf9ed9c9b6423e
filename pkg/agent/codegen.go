package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/codescribe-ai/codescribe/pkg/logging"
	"github.com/codescribe-ai/codescribe/pkg/prompts"
	"github.com/codescribe-ai/codescribe/pkg/rag"
	"github.com/codescribe-ai/codescribe/pkg/sandbox"
)

// State identifies a phase of the code-generation loop.
type State string

const (
	StateQueryDocs State = "QUERY_DOCS"
	StateGenerate  State = "GENERATE"
	StateExecute   State = "EXECUTE"
	StateEvaluate  State = "EVALUATE"
	StateDone      State = "DONE"
	StateError     State = "ERROR"
)

// DefaultMaxRefinements is the number of regenerate-after-failure rounds
// allowed before the loop gives up and returns the last candidate.
const DefaultMaxRefinements = 3

// CodeResult is the outcome of a code-generation run.
type CodeResult struct {
	// Code is the last candidate program, with the fence stripped.
	Code string

	// Passed reports whether the final candidate executed successfully
	// and was judged to solve the problem.
	Passed bool

	// Attempts is the number of generate/execute rounds performed.
	Attempts int

	// Feedback is the evaluator's explanation for the final verdict, or
	// the execution transcript when the last run failed outright.
	Feedback string

	// LastRun holds the sandbox result of the final execution.
	LastRun sandbox.Result

	// History records every state the loop passed through, in order.
	History []State
}

// CodeGenerator drives the retrieval-grounded generate/execute/refine loop.
type CodeGenerator struct {
	agent          *Agent
	retriever      *rag.Retriever
	runner         *sandbox.Runner
	prompts        *prompts.Store
	logger         logging.Logger
	maxRefinements int
}

// CodeGeneratorOption represents an option for configuring a code generator
type CodeGeneratorOption func(*CodeGenerator)

// WithRetriever sets the documentation retriever used before each generation
func WithRetriever(retriever *rag.Retriever) CodeGeneratorOption {
	return func(g *CodeGenerator) {
		g.retriever = retriever
	}
}

// WithPromptStore sets the prompt store the loop renders templates from
func WithPromptStore(store *prompts.Store) CodeGeneratorOption {
	return func(g *CodeGenerator) {
		g.prompts = store
	}
}

// WithCodeGenLogger sets the logger for state transitions
func WithCodeGenLogger(logger logging.Logger) CodeGeneratorOption {
	return func(g *CodeGenerator) {
		g.logger = logger
	}
}

// WithMaxRefinements caps the number of regenerate-after-failure rounds
func WithMaxRefinements(n int) CodeGeneratorOption {
	return func(g *CodeGenerator) {
		g.maxRefinements = n
	}
}

// NewCodeGenerator creates a code generator around an agent and a sandbox
// runner. The agent performs all LLM calls, so its tools and guardrails
// apply to every round.
func NewCodeGenerator(agent *Agent, runner *sandbox.Runner, options ...CodeGeneratorOption) (*CodeGenerator, error) {
	if agent == nil {
		return nil, fmt.Errorf("agent is required")
	}
	if runner == nil {
		return nil, fmt.Errorf("sandbox runner is required")
	}

	generator := &CodeGenerator{
		agent:          agent,
		runner:         runner,
		prompts:        prompts.NewStore(),
		maxRefinements: DefaultMaxRefinements,
	}

	for _, option := range options {
		option(generator)
	}

	return generator, nil
}

// Run executes the loop for a problem statement and returns the final
// candidate. A candidate that still fails after the refinement budget is
// exhausted is returned with Passed set to false rather than as an error;
// errors are reserved for infrastructure failures and for responses that
// never contain a code block.
func (g *CodeGenerator) Run(ctx context.Context, problemStatement string) (*CodeResult, error) {
	result := &CodeResult{}

	message, err := g.prompts.Render(prompts.GenerateCodeID, map[string]interface{}{
		"ProblemStatement": problemStatement,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render generation prompt: %w", err)
	}

	for round := 0; round <= g.maxRefinements; round++ {
		prompt := message
		if g.retriever != nil {
			g.transition(ctx, result, StateQueryDocs, map[string]interface{}{"round": round})
			snippets, err := g.retriever.RetrieveFormatted(ctx, g.retrievalQuery(problemStatement, result))
			if err != nil {
				result.History = append(result.History, StateError)
				return result, fmt.Errorf("documentation retrieval failed: %w", err)
			}
			prompt = message + "\n\nDocumentation retrieved for the problem:\n\n" + snippets
		}

		g.transition(ctx, result, StateGenerate, map[string]interface{}{"round": round})
		result.Attempts++
		response, err := g.agent.Run(ctx, prompt)
		if err != nil {
			result.History = append(result.History, StateError)
			return result, fmt.Errorf("generation round %d failed: %w", round, err)
		}

		code := ExtractCodeBlock(response)
		if code == "" {
			if round == g.maxRefinements {
				result.History = append(result.History, StateError)
				return result, fmt.Errorf("no code block in response after %d attempts", result.Attempts)
			}
			message, err = g.refineMessage("the response contained no fenced code block; emit the complete program in a triple-backtick python block")
			if err != nil {
				return result, err
			}
			continue
		}
		result.Code = code

		g.transition(ctx, result, StateExecute, map[string]interface{}{"round": round})
		run, err := g.runner.RunCode(ctx, code)
		if err != nil {
			result.History = append(result.History, StateError)
			return result, fmt.Errorf("sandbox execution failed: %w", err)
		}
		result.LastRun = run

		g.transition(ctx, result, StateEvaluate, map[string]interface{}{
			"round":     round,
			"exit_code": run.ExitCode,
		})
		passed, feedback, err := g.evaluate(ctx, problemStatement, run)
		if err != nil {
			result.History = append(result.History, StateError)
			return result, err
		}
		result.Feedback = feedback

		if passed {
			result.Passed = true
			g.transition(ctx, result, StateDone, map[string]interface{}{"attempts": result.Attempts})
			return result, nil
		}

		if round == g.maxRefinements {
			break
		}
		message, err = g.refineMessage(feedback)
		if err != nil {
			return result, err
		}
	}

	// Budget exhausted. The last candidate is still returned so the
	// caller can inspect it alongside the failure report.
	g.transition(ctx, result, StateDone, map[string]interface{}{
		"attempts": result.Attempts,
		"passed":   false,
	})
	return result, nil
}

// evaluate judges an execution. A failed run is a fail verdict without an
// LLM call; a successful run is judged against the problem statement.
func (g *CodeGenerator) evaluate(ctx context.Context, problemStatement string, run sandbox.Result) (bool, string, error) {
	if run.Failed() {
		return false, run.Output(), nil
	}

	prompt, err := g.prompts.Render(prompts.EvaluateCodeID, map[string]interface{}{
		"ProblemStatement": problemStatement,
		"ExecutionOutput":  run.Output(),
	})
	if err != nil {
		return false, "", fmt.Errorf("failed to render evaluation prompt: %w", err)
	}

	response, err := g.agent.Run(ctx, prompt)
	if err != nil {
		return false, "", fmt.Errorf("evaluation failed: %w", err)
	}

	verdict := strings.ToLower(ExtractTag(response, "verdict"))
	feedback := ExtractTag(response, "feedback")

	switch verdict {
	case "pass":
		return true, feedback, nil
	case "fail":
		if feedback == "" {
			feedback = "the evaluator rejected the output without feedback"
		}
		return false, feedback, nil
	default:
		// The run itself succeeded, so an unparsable verdict is treated
		// as a pass rather than burning a refinement round on it.
		if g.logger != nil {
			g.logger.Warn(ctx, "Evaluation verdict missing, accepting successful run", map[string]interface{}{
				"response_length": len(response),
			})
		}
		return true, feedback, nil
	}
}

func (g *CodeGenerator) refineMessage(executionOutput string) (string, error) {
	message, err := g.prompts.Render(prompts.RefineCodeID, map[string]interface{}{
		"ExecutionOutput": executionOutput,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render refinement prompt: %w", err)
	}
	return message, nil
}

// retrievalQuery widens the documentation query with the latest failure so
// refinement rounds can surface snippets about the failing API.
func (g *CodeGenerator) retrievalQuery(problemStatement string, result *CodeResult) string {
	if result.Feedback == "" {
		return problemStatement
	}
	return problemStatement + "\n" + firstLine(result.Feedback)
}

func (g *CodeGenerator) transition(ctx context.Context, result *CodeResult, state State, fields map[string]interface{}) {
	result.History = append(result.History, state)
	if g.logger != nil {
		fields["state"] = string(state)
		g.logger.Info(ctx, "Code generation state", fields)
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
