package interfaces

import (
	"context"
	"time"
)

// JobStatus represents the lifecycle state of a job
type JobStatus string

const (
	// JobQueued indicates the job is waiting to run
	JobQueued JobStatus = "queued"

	// JobRunning indicates the job is running
	JobRunning JobStatus = "running"

	// JobCompleted indicates the job finished successfully
	JobCompleted JobStatus = "completed"

	// JobFailed indicates the job failed
	JobFailed JobStatus = "failed"
)

// Job records one documentation or code-generation request
type Job struct {
	// ID is the unique identifier for the job
	ID string

	// Mode is the pipeline the job runs (documentation or code_generation)
	Mode string

	// Status is the current lifecycle state
	Status JobStatus

	// InputPath is where the unpacked upload lives
	InputPath string

	// OutputPath is where the result archive lives
	OutputPath string

	// Error holds the failure message for failed jobs
	Error string

	// CreatedAt is when the job was accepted
	CreatedAt time.Time

	// UpdatedAt is when the job last changed state
	UpdatedAt time.Time
}

// JobStore persists job records
type JobStore interface {
	// CreateJob stores a new job
	CreateJob(ctx context.Context, job *Job) error

	// GetJob retrieves a job by ID
	GetJob(ctx context.Context, id string) (*Job, error)

	// UpdateJob updates an existing job
	UpdateJob(ctx context.Context, job *Job) error

	// ListJobs returns the most recent jobs, newest first
	ListJobs(ctx context.Context, limit int) ([]*Job, error)

	// Close releases the store's resources
	Close() error
}
