// Package job tracks builds started in the background over the API.
package job

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/pipboard/internal/core"
)

// Status represents job status.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Job is one background build of a pair.
type Job struct {
	ID        string    `json:"id"`
	Pair      string    `json:"pair"`
	Status    Status    `json:"status"`
	Result    any       `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Done reports whether the job finished either way.
func (j Job) Done() bool {
	return j.Status == StatusComplete || j.Status == StatusFailed
}

// Store keeps at most maxSize jobs. Finished jobs older than ttl are
// pruned when a new job is created.
type Store struct {
	jobs    map[string]*Job
	order   []string
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
}

// NewStore creates a job store.
func NewStore(maxSize int, ttl time.Duration) *Store {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Store{
		jobs:    make(map[string]*Job),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Create registers a pending job for pair.
func (s *Store) Create(pair string) Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.prune(now)

	if len(s.order) >= s.maxSize {
		delete(s.jobs, s.order[0])
		s.order = s.order[1:]
	}

	j := &Job{
		ID:        uuid.NewString(),
		Pair:      pair,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.jobs[j.ID] = j
	s.order = append(s.order, j.ID)
	return *j
}

// Get returns a copy of the job.
func (s *Store) Get(id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return Job{}, core.WrapError(core.ErrNoData, fmt.Errorf("job %q not found", id))
	}
	return *j, nil
}

// Update modifies a job in place.
func (s *Store) Update(id string, fn func(*Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return core.WrapError(core.ErrNoData, fmt.Errorf("job %q not found", id))
	}
	fn(j)
	j.UpdatedAt = s.now()
	return nil
}

// List returns every job, oldest first.
func (s *Store) List() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Job, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, *s.jobs[id])
	}
	return result
}

func (s *Store) prune(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	kept := s.order[:0]
	for _, id := range s.order {
		j := s.jobs[id]
		if j.Done() && now.Sub(j.UpdatedAt) > s.ttl {
			delete(s.jobs, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
}
