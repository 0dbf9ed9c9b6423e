// Package datastore provides job record persistence.
package datastore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/codescribe-ai/codescribe/pkg/interfaces"
)

// InMemoryStore keeps job records in memory. It is the default store when
// no database is configured.
type InMemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]interfaces.Job
}

// NewInMemoryStore creates an empty in-memory job store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		jobs: make(map[string]interfaces.Job),
	}
}

// CreateJob stores a new job
func (s *InMemoryStore) CreateJob(ctx context.Context, job *interfaces.Job) error {
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}

	now := time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	s.jobs[job.ID] = *job

	return nil
}

// GetJob retrieves a job by ID
func (s *InMemoryStore) GetJob(ctx context.Context, id string) (*interfaces.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s not found", id)
	}

	return &job, nil
}

// UpdateJob updates an existing job
func (s *InMemoryStore) UpdateJob(ctx context.Context, job *interfaces.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; !ok {
		return fmt.Errorf("job %s not found", job.ID)
	}

	job.UpdatedAt = time.Now()
	s.jobs[job.ID] = *job

	return nil
}

// ListJobs returns the most recent jobs, newest first
func (s *InMemoryStore) ListJobs(ctx context.Context, limit int) ([]*interfaces.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]*interfaces.Job, 0, len(s.jobs))
	for id := range s.jobs {
		job := s.jobs[id]
		jobs = append(jobs, &job)
	}

	sort.Slice(jobs, func(i, j int) bool {
		if !jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
		}
		return jobs[i].ID < jobs[j].ID
	})

	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}

	return jobs, nil
}

// Close implements interfaces.JobStore
func (s *InMemoryStore) Close() error {
	return nil
}
