// Package sandbox runs generated code in a subprocess with a hard timeout.
// Execution output is captured so an agent can judge whether its code works
// and refine it when it does not.
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/codescribe-ai/codescribe/pkg/logging"
)

// Result is the outcome of a single execution
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
	Duration time.Duration
}

// Failed reports whether the execution should count as unsuccessful
func (r Result) Failed() bool {
	return r.TimedOut || r.ExitCode != 0
}

// Output renders the result for feeding back to an agent
func (r Result) Output() string {
	var buf bytes.Buffer
	if r.Stdout != "" {
		buf.WriteString(r.Stdout)
	}
	if r.Stderr != "" {
		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString("stderr:\n")
		buf.WriteString(r.Stderr)
	}
	if r.TimedOut {
		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(fmt.Sprintf("execution timed out after %s", r.Duration.Round(time.Millisecond)))
	}
	return buf.String()
}

// Runner executes code files through an interpreter
type Runner struct {
	interpreter string
	timeout     time.Duration
	workDir     string
	logger      logging.Logger
}

// Option configures a Runner
type Option func(*Runner)

// WithInterpreter sets the interpreter binary
func WithInterpreter(interpreter string) Option {
	return func(r *Runner) {
		r.interpreter = interpreter
	}
}

// WithTimeout sets the per-execution timeout
func WithTimeout(timeout time.Duration) Option {
	return func(r *Runner) {
		r.timeout = timeout
	}
}

// WithWorkDir sets the directory executions run in
func WithWorkDir(dir string) Option {
	return func(r *Runner) {
		r.workDir = dir
	}
}

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a Runner with the default Python interpreter
func NewRunner(options ...Option) *Runner {
	runner := &Runner{
		interpreter: "python3",
		timeout:     60 * time.Second,
		logger:      logging.New(),
	}

	for _, option := range options {
		option(runner)
	}

	return runner
}

// RunCode writes code to a temporary file and executes it
func (r *Runner) RunCode(ctx context.Context, code string) (Result, error) {
	dir := r.workDir
	if dir == "" {
		dir = os.TempDir()
	}

	path := filepath.Join(dir, fmt.Sprintf("snippet-%s.py", uuid.NewString()))
	if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
		return Result{}, fmt.Errorf("failed to write code file: %w", err)
	}
	defer os.Remove(path)

	return r.RunFile(ctx, path)
}

// RunFile executes a file and captures its output. A timeout produces a
// Result with TimedOut set rather than an error; errors are reserved for
// failures to start the process at all.
func (r *Runner) RunFile(ctx context.Context, path string) (Result, error) {
	runCtx := ctx
	var cancel context.CancelFunc
	if r.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, r.interpreter, path)
	if r.workDir != "" {
		cmd.Dir = r.workDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if runCtx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		result.ExitCode = -1
		r.logger.Warn(ctx, "execution timed out", map[string]interface{}{
			"file":    filepath.Base(path),
			"timeout": r.timeout.String(),
		})
		return result, nil
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("failed to run %s: %w", filepath.Base(path), err)
	}

	return result, nil
}
