package qservice

import (
	"sync"

	"github.com/google/uuid"
	"github.com/neuralground/qmk/internal/executor"
	"github.com/neuralground/qmk/internal/qmkapi"
)

// Job is one submitted program's execution record: the assembled
// graph's outcome plus enough bookkeeping to answer status/wait/cancel
// while it runs. Adapted from the teacher's programStore entry
// (internal/qservice/qservice.go's original uuid-keyed map), widened
// from an immutable saved program to a mutable in-flight job.
type Job struct {
	ID        string
	SessionID string

	mu       sync.Mutex
	state    qmkapi.JobState
	result   executor.Result
	events   map[string]int
	cancel   func()
	done     chan struct{}
}

func newJob(id, sessionID string, cancel func()) *Job {
	return &Job{
		ID:        id,
		SessionID: sessionID,
		state:     qmkapi.Queued,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

func (j *Job) setRunning() {
	j.mu.Lock()
	j.state = qmkapi.Running
	j.mu.Unlock()
}

// finish records the terminal outcome of the job's execution and
// unblocks any Wait callers. cancelled distinguishes a context
// cancellation from an ordinary execution failure (§6 status.state).
func (j *Job) finish(result executor.Result, cancelled bool) {
	j.mu.Lock()
	j.result = result
	j.events = result.Events
	switch {
	case cancelled:
		j.state = qmkapi.Cancelled
	case result.Status == executor.Completed:
		j.state = qmkapi.Completed
	default:
		j.state = qmkapi.Failed
	}
	j.mu.Unlock()
	close(j.done)
}

func (j *Job) snapshot() (state qmkapi.JobState, result executor.Result, events map[string]int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state, j.result, j.events
}

// JobStore is the in-memory job registry. Grounded on the teacher's
// programStore: a uuid-keyed map guarded by a single mutex.
type JobStore interface {
	Create(sessionID string, cancel func()) *Job
	Get(id string) (*Job, bool)
}

type jobStore struct {
	sync.RWMutex
	jobs map[string]*Job
}

// NewJobStore creates a new in-memory job store.
func NewJobStore() JobStore {
	return &jobStore{jobs: make(map[string]*Job)}
}

func (s *jobStore) Create(sessionID string, cancel func()) *Job {
	j := newJob(uuid.New().String(), sessionID, cancel)
	s.Lock()
	s.jobs[j.ID] = j
	s.Unlock()
	return j
}

func (s *jobStore) Get(id string) (*Job, bool) {
	s.RLock()
	defer s.RUnlock()
	j, ok := s.jobs[id]
	return j, ok
}
