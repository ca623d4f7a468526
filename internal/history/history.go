// Package history keeps a record of completed import and export jobs.
package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind is the type of job recorded.
type Kind string

const (
	KindImport  Kind = "import"
	KindExport  Kind = "export"
	KindPreview Kind = "preview"
)

// Job is one finished import or export.
type Job struct {
	ID        uuid.UUID     `json:"id"`
	Kind      Kind          `json:"kind"`
	Name      string        `json:"name"`
	Rows      int           `json:"rows"`
	Columns   int           `json:"columns"`
	Duration  time.Duration `json:"duration_ns"`
	Error     string        `json:"error,omitempty"`
	ClientIP  string        `json:"client_ip,omitempty"`
	UserAgent string        `json:"user_agent,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// Failed reports whether the job ended with an error.
func (j Job) Failed() bool {
	return j.Error != ""
}

// Store persists jobs.
type Store interface {
	Record(ctx context.Context, job Job) error
	Recent(ctx context.Context, limit int) ([]Job, error)
}

// Pruner is implemented by stores that can drop old jobs.
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// DefaultMemoryCapacity is the number of jobs a MemoryStore keeps when no
// capacity is given.
const DefaultMemoryCapacity = 500

// MemoryStore keeps the most recent jobs in a ring buffer.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs []Job
	next int
	full bool
}

// NewMemoryStore returns a store holding at most capacity jobs.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryStore{jobs: make([]Job, capacity)}
}

// Record stores job, evicting the oldest one when full.
func (m *MemoryStore) Record(_ context.Context, job Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.jobs[m.next] = job
	m.next = (m.next + 1) % len(m.jobs)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

// Recent returns up to limit jobs, newest first. A limit <= 0 returns all.
func (m *MemoryStore) Recent(_ context.Context, limit int) ([]Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := m.next
	if m.full {
		n = len(m.jobs)
	}
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]Job, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (m.next - i + len(m.jobs)) % len(m.jobs)
		out = append(out, m.jobs[idx])
	}
	return out, nil
}

// Prune drops jobs created before the cutoff and returns how many went.
func (m *MemoryStore) Prune(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.next
	if m.full {
		n = len(m.jobs)
	}

	// Rebuild oldest first so the ring order survives.
	kept := make([]Job, 0, n)
	for i := n; i >= 1; i-- {
		j := m.jobs[(m.next-i+len(m.jobs))%len(m.jobs)]
		if !j.CreatedAt.Before(before) {
			kept = append(kept, j)
		}
	}

	jobs := make([]Job, len(m.jobs))
	copy(jobs, kept)
	m.jobs = jobs
	m.next = len(kept) % len(jobs)
	m.full = len(kept) == len(jobs)
	return int64(n - len(kept)), nil
}

// Len returns the number of jobs held.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.full {
		return len(m.jobs)
	}
	return m.next
}
