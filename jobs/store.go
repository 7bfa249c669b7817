package jobs

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"meetingSummarize/core"
)

// ErrNotFound is returned when no job has the requested id.
var ErrNotFound = errors.New("job not found")

// ErrConflict is returned when a transition's expected state does not match
// the job's current state. Conflicting callers must treat the job as owned
// by another runner and perform no side effects.
var ErrConflict = errors.New("job state conflict")

// Store tracks pipeline jobs in memory. Jobs are transient operational
// state; the transcript store holds the durable artifacts.
type Store struct {
	mu   sync.Mutex
	jobs map[string]*core.Job
}

func NewStore() *Store {
	return &Store{jobs: map[string]*core.Job{}}
}

// Create registers a new job in the queued state.
func (s *Store) Create(audioPath, model string, summarize bool, transcriptID string) *core.Job {
	now := time.Now()
	job := &core.Job{
		ID:           core.NewID(),
		State:        core.JobStateQueued,
		AudioPath:    audioPath,
		Model:        model,
		Summarize:    summarize,
		TranscriptID: transcriptID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	out := *job
	return &out
}

// Get returns a snapshot of the job.
func (s *Store) Get(id string) (*core.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *job
	return &out, nil
}

// Transition atomically moves a job from one state to another. The whole
// check-and-mutate runs under the store lock: if the job is not currently in
// the from state the call returns ErrConflict and mutates nothing, which is
// what serializes concurrent runners per job and makes terminal states
// final. The optional apply mutator runs inside the critical section.
func (s *Store) Transition(id string, from, to core.JobState, apply func(*core.Job)) (*core.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	if job.State != from {
		return nil, fmt.Errorf("%w: job %s is %s, expected %s", ErrConflict, id, job.State, from)
	}
	if !validTransition(from, to) {
		return nil, fmt.Errorf("invalid transition: %s -> %s", from, to)
	}

	job.State = to
	job.UpdatedAt = time.Now()
	if apply != nil {
		apply(job)
	}
	out := *job
	return &out, nil
}

// Delete removes a job after its terminal state has been observed.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
}

// validTransition enforces the strict forward path of the state machine.
// Terminal states have no outgoing edges.
func validTransition(from, to core.JobState) bool {
	switch from {
	case core.JobStateQueued:
		return to == core.JobStateTranscribing || to == core.JobStateFailed
	case core.JobStateTranscribing:
		return to == core.JobStateSummarizing || to == core.JobStateDone || to == core.JobStateFailed
	case core.JobStateSummarizing:
		return to == core.JobStateDone || to == core.JobStateFailed
	default:
		return false
	}
}
