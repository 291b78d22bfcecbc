package results

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrJobNotFound = errors.New("job not found")
)

// ListFilter narrows job listings.
type ListFilter struct {
	Status   JobStatus
	TenantID string
	Limit    int
	Offset   int
}

// Store persists processing jobs and document results.
type Store interface {
	CreateJob(ctx context.Context, job *ProcessingJob) error
	GetJob(ctx context.Context, id uuid.UUID) (*ProcessingJob, error)
	UpdateJob(ctx context.Context, job *ProcessingJob) error
	ListJobs(ctx context.Context, filter ListFilter) ([]*ProcessingJob, error)

	SaveDocumentResult(ctx context.Context, doc *DocumentResult) error
	DocumentResultsByJob(ctx context.Context, jobID uuid.UUID) ([]DocumentResult, error)
}

// MemoryStore is an in-memory Store for development and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]ProcessingJob
	docs map[uuid.UUID][]DocumentResult
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[uuid.UUID]ProcessingJob),
		docs: make(map[uuid.UUID][]DocumentResult),
	}
}

// CreateJob stores a new job.
func (s *MemoryStore) CreateJob(ctx context.Context, job *ProcessingJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now
	s.jobs[job.ID] = *job
	return nil
}

// GetJob returns a copy of the stored job.
func (s *MemoryStore) GetJob(ctx context.Context, id uuid.UUID) (*ProcessingJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return &job, nil
}

// UpdateJob replaces the stored job.
func (s *MemoryStore) UpdateJob(ctx context.Context, job *ProcessingJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return ErrJobNotFound
	}
	job.UpdatedAt = time.Now()
	s.jobs[job.ID] = *job
	return nil
}

// ListJobs returns jobs matching the filter, newest first.
func (s *MemoryStore) ListJobs(ctx context.Context, filter ListFilter) ([]*ProcessingJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*ProcessingJob
	for _, job := range s.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if filter.TenantID != "" && job.TenantID != filter.TenantID {
			continue
		}
		j := job
		out = append(out, &j)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// SaveDocumentResult appends a document result for its job.
func (s *MemoryStore) SaveDocumentResult(ctx context.Context, doc *DocumentResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	s.docs[doc.JobID] = append(s.docs[doc.JobID], *doc)
	return nil
}

// DocumentResultsByJob returns all results for a job ordered by page range.
func (s *MemoryStore) DocumentResultsByJob(ctx context.Context, jobID uuid.UUID) ([]DocumentResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]DocumentResult, len(s.docs[jobID]))
	copy(docs, s.docs[jobID])
	sort.Slice(docs, func(i, j int) bool { return docs[i].PageRangeStart < docs[j].PageRangeStart })
	return docs, nil
}
