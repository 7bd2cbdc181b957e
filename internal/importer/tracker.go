package importer

import (
	"sync"
	"time"
)

// State is the lifecycle state of an import job.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// maxJobsPerSession bounds the history kept for one session.
const maxJobsPerSession = 10

// Status describes one import job.
type Status struct {
	JobID      string     `json:"jobId"`
	File       string     `json:"file"`
	State      State      `json:"state"`
	Records    int        `json:"records"`
	Dropped    int        `json:"dropped"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// Tracker keeps the recent import jobs of every session.
type Tracker struct {
	mu   sync.RWMutex
	jobs map[string][]*Status
	now  func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		jobs: make(map[string][]*Status),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Add registers a pending job for session.
func (t *Tracker) Add(session, jobID, file string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	jobs := append(t.jobs[session], &Status{
		JobID:     jobID,
		File:      file,
		State:     StatePending,
		CreatedAt: t.now(),
	})
	if len(jobs) > maxJobsPerSession {
		jobs = jobs[len(jobs)-maxJobsPerSession:]
	}
	t.jobs[session] = jobs
}

func (t *Tracker) update(session, jobID string, fn func(*Status)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, s := range t.jobs[session] {
		if s.JobID == jobID {
			fn(s)
			return
		}
	}
}

// Start marks a job as running.
func (t *Tracker) Start(session, jobID string) {
	t.update(session, jobID, func(s *Status) { s.State = StateRunning })
}

// Succeed marks a job as done.
func (t *Tracker) Succeed(session, jobID string, records, dropped int) {
	now := t.now()
	t.update(session, jobID, func(s *Status) {
		s.State = StateSucceeded
		s.Records = records
		s.Dropped = dropped
		s.FinishedAt = &now
	})
}

// Fail marks a job as failed with err.
func (t *Tracker) Fail(session, jobID string, err error) {
	now := t.now()
	t.update(session, jobID, func(s *Status) {
		s.State = StateFailed
		s.Error = err.Error()
		s.FinishedAt = &now
	})
}

// Jobs returns copies of the jobs of session, oldest first.
func (t *Tracker) Jobs(session string) []Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Status, 0, len(t.jobs[session]))
	for _, s := range t.jobs[session] {
		out = append(out, *s)
	}
	return out
}

// Latest returns the most recent job of session.
func (t *Tracker) Latest(session string) (Status, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	jobs := t.jobs[session]
	if len(jobs) == 0 {
		return Status{}, false
	}
	return *jobs[len(jobs)-1], true
}

// Importing reports whether session has a pending or running job.
func (t *Tracker) Importing(session string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, s := range t.jobs[session] {
		if s.State == StatePending || s.State == StateRunning {
			return true
		}
	}
	return false
}

// Forget drops the history of the given sessions.
func (t *Tracker) Forget(sessions ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, id := range sessions {
		delete(t.jobs, id)
	}
}
