package jobs

import (
	"context"
	"sync"
	"time"
)

// Store persists job records. Implementations must allow concurrent use and
// must refuse any transition out of a terminal state with ErrTerminal.
type Store interface {
	// Create inserts a new record; ErrAlreadyExists if the id is taken.
	Create(ctx context.Context, job *Job) error
	// Get returns a copy of the record or ErrNotFound.
	Get(ctx context.Context, id string) (*Job, error)
	Complete(ctx context.Context, id string, res Result) error
	Fail(ctx context.Context, id string, msg string) error
}

// MemoryStore keeps records in process memory for the life of the process.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]Job
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]Job), now: time.Now}
}

func (s *MemoryStore) Create(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return ErrAlreadyExists
	}
	s.jobs[job.ID] = *job
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &j, nil
}

func (s *MemoryStore) Complete(_ context.Context, id string, res Result) error {
	return s.update(id, func(j *Job) error { return j.complete(res, s.now().UTC()) })
}

func (s *MemoryStore) Fail(_ context.Context, id string, msg string) error {
	return s.update(id, func(j *Job) error { return j.fail(msg, s.now().UTC()) })
}

func (s *MemoryStore) update(id string, mutate func(*Job) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if err := mutate(&j); err != nil {
		return err
	}
	s.jobs[id] = j
	return nil
}

// Len reports how many records are held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
