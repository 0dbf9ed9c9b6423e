// Package orchestration runs dependency-ordered workflows of tasks with
// bounded concurrency.
package orchestration

import (
	"context"
	"fmt"
	"sync"

	"github.com/codescribe-ai/codescribe/pkg/logging"
)

// TaskStatus represents the status of a task
type TaskStatus string

const (
	// TaskPending indicates the task is pending
	TaskPending TaskStatus = "pending"

	// TaskRunning indicates the task is running
	TaskRunning TaskStatus = "running"

	// TaskCompleted indicates the task is completed
	TaskCompleted TaskStatus = "completed"

	// TaskFailed indicates the task failed
	TaskFailed TaskStatus = "failed"
)

// TaskFunc is the unit of work a task executes. The input is the task's
// configured input, extended with the results of its dependencies.
type TaskFunc func(ctx context.Context, input string) (string, error)

// Task represents a unit of work in a workflow
type Task struct {
	// ID is the unique identifier for the task
	ID string

	// Input is the input to provide to the task function
	Input string

	// Run is the function executed for this task
	Run TaskFunc

	// Dependencies are the IDs of tasks that must complete before this one
	Dependencies []string

	// Status is the current status of the task
	Status TaskStatus

	// Result is the result of the task
	Result string

	// Error is any error that occurred during execution
	Error error
}

// Workflow represents a workflow of tasks
type Workflow struct {
	// Tasks is the list of tasks in the workflow
	Tasks []*Task

	// Results is a map of task IDs to results
	Results map[string]string

	// Errors is a map of task IDs to errors
	Errors map[string]error

	// FinalTaskID is the ID of the task that produces the final result
	FinalTaskID string
}

// NewWorkflow creates a new workflow
func NewWorkflow() *Workflow {
	return &Workflow{
		Tasks:   make([]*Task, 0),
		Results: make(map[string]string),
		Errors:  make(map[string]error),
	}
}

// AddTask adds a task to the workflow
func (w *Workflow) AddTask(id string, input string, run TaskFunc, dependencies ...string) {
	task := &Task{
		ID:           id,
		Input:        input,
		Run:          run,
		Dependencies: dependencies,
		Status:       TaskPending,
	}

	w.Tasks = append(w.Tasks, task)
}

// SetFinalTask sets the task whose result ExecuteWorkflow returns
func (w *Workflow) SetFinalTask(id string) {
	w.FinalTaskID = id
}

// Runner executes workflows with a concurrency limit
type Runner struct {
	concurrency int
	logger      logging.Logger
}

// RunnerOption represents an option for configuring a runner
type RunnerOption func(*Runner)

// WithConcurrency sets the maximum number of tasks running at once
func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithRunnerLogger sets the logger for task lifecycle events
func WithRunnerLogger(logger logging.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a new workflow runner
func NewRunner(options ...RunnerOption) *Runner {
	runner := &Runner{
		concurrency: 4,
	}

	for _, option := range options {
		option(runner)
	}

	return runner
}

// ExecuteWorkflow runs all tasks in dependency order. Tasks whose
// dependencies all completed run concurrently, up to the configured limit.
// A failed task fails its dependents without aborting unrelated tasks.
// If a final task is set, its result is returned.
func (r *Runner) ExecuteWorkflow(ctx context.Context, workflow *Workflow) (string, error) {
	var mu sync.Mutex
	sem := make(chan struct{}, r.concurrency)

	for {
		ready := r.collectReady(&mu, workflow)
		if len(ready) == 0 {
			r.failUnrunnable(&mu, workflow)
			break
		}

		var wg sync.WaitGroup
		for _, task := range ready {
			wg.Add(1)
			go func(task *Task) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				r.executeTask(ctx, task, &mu, workflow)
			}(task)
		}
		wg.Wait()
	}

	if workflow.FinalTaskID != "" {
		if err, ok := workflow.Errors[workflow.FinalTaskID]; ok {
			return "", fmt.Errorf("final task failed: %w", err)
		}
		if result, ok := workflow.Results[workflow.FinalTaskID]; ok {
			return result, nil
		}
		return "", fmt.Errorf("final task %q did not run", workflow.FinalTaskID)
	}

	return "", nil
}

// collectReady marks every pending task whose dependencies completed as
// running and returns them.
func (r *Runner) collectReady(mu *sync.Mutex, workflow *Workflow) []*Task {
	mu.Lock()
	defer mu.Unlock()

	var ready []*Task
	for _, task := range workflow.Tasks {
		if task.Status != TaskPending {
			continue
		}
		satisfied := true
		for _, depID := range task.Dependencies {
			if _, ok := workflow.Results[depID]; !ok {
				satisfied = false
				break
			}
		}
		if satisfied {
			task.Status = TaskRunning
			ready = append(ready, task)
		}
	}
	return ready
}

// failUnrunnable fails every task still pending once no task is ready:
// either a dependency failed, a dependency ID is unknown, or the tasks
// form a cycle.
func (r *Runner) failUnrunnable(mu *sync.Mutex, workflow *Workflow) {
	mu.Lock()
	defer mu.Unlock()

	for _, task := range workflow.Tasks {
		if task.Status != TaskPending {
			continue
		}
		task.Status = TaskFailed
		task.Error = r.blockReason(workflow, task)
		workflow.Errors[task.ID] = task.Error
	}
}

func (r *Runner) blockReason(workflow *Workflow, task *Task) error {
	for _, depID := range task.Dependencies {
		if err, ok := workflow.Errors[depID]; ok {
			return fmt.Errorf("dependency %s failed: %w", depID, err)
		}
	}
	return fmt.Errorf("dependencies of task %s cannot be satisfied", task.ID)
}

func (r *Runner) executeTask(ctx context.Context, task *Task, mu *sync.Mutex, workflow *Workflow) {
	if r.logger != nil {
		r.logger.Debug(ctx, "Task started", map[string]interface{}{"task_id": task.ID})
	}

	input := task.Input
	mu.Lock()
	for _, depID := range task.Dependencies {
		if result, ok := workflow.Results[depID]; ok {
			input = fmt.Sprintf("%s\n\nResult from %s: %s", input, depID, result)
		}
	}
	mu.Unlock()

	result, err := task.Run(ctx, input)

	mu.Lock()
	defer mu.Unlock()
	if err != nil {
		task.Status = TaskFailed
		task.Error = err
		workflow.Errors[task.ID] = err
		if r.logger != nil {
			r.logger.Warn(ctx, "Task failed", map[string]interface{}{
				"task_id": task.ID,
				"error":   err.Error(),
			})
		}
		return
	}

	task.Status = TaskCompleted
	task.Result = result
	workflow.Results[task.ID] = result
	if r.logger != nil {
		r.logger.Debug(ctx, "Task completed", map[string]interface{}{"task_id": task.ID})
	}
}
