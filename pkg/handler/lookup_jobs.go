package handler

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// LookupJobStatus represents the lifecycle of one module definition lookup.
type LookupJobStatus string

const (
	LookupJobQueued    LookupJobStatus = "queued"
	LookupJobRunning   LookupJobStatus = "running"
	LookupJobCompleted LookupJobStatus = "completed"
	LookupJobCached    LookupJobStatus = "cached"
	LookupJobFailed    LookupJobStatus = "failed"
)

// LookupJob keeps track of one module lookup while the command runs.
type LookupJob struct {
	ID        string
	Module    string
	Status    LookupJobStatus
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LookupJobManager stores lookup states indexed by job ID, in creation order.
type LookupJobManager struct {
	mu    sync.RWMutex
	jobs  map[string]*LookupJob
	order []string
}

func NewLookupJobManager() *LookupJobManager {
	return &LookupJobManager{
		jobs: make(map[string]*LookupJob),
	}
}

// NewJob registers a queued lookup for module.
func (m *LookupJobManager) NewJob(module string) *LookupJob {
	job := &LookupJob{
		ID:        uuid.NewString(),
		Module:    module,
		Status:    LookupJobQueued,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.order = append(m.order, job.ID)
	m.mu.Unlock()
	return job
}

func (m *LookupJobManager) SetRunning(jobID string) {
	m.updateJob(jobID, func(job *LookupJob) {
		job.Status = LookupJobRunning
	})
}

// CompleteJob marks the job done; cached says the definition came from the
// local cache instead of KEGG.
func (m *LookupJobManager) CompleteJob(jobID string, cached bool) {
	m.updateJob(jobID, func(job *LookupJob) {
		job.Status = LookupJobCompleted
		if cached {
			job.Status = LookupJobCached
		}
	})
}

func (m *LookupJobManager) FailJob(jobID string, err error) {
	m.updateJob(jobID, func(job *LookupJob) {
		job.Status = LookupJobFailed
		job.Error = err.Error()
	})
}

func (m *LookupJobManager) GetJob(jobID string) (*LookupJob, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[jobID]
	return job, ok
}

// Counts tallies jobs per status.
func (m *LookupJobManager) Counts() map[LookupJobStatus]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[LookupJobStatus]int)
	for _, job := range m.jobs {
		out[job.Status]++
	}
	return out
}

// Failed returns copies of the failed jobs in creation order.
func (m *LookupJobManager) Failed() []LookupJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []LookupJob
	for _, id := range m.order {
		if job := m.jobs[id]; job.Status == LookupJobFailed {
			out = append(out, *job)
		}
	}
	return out
}

func (m *LookupJobManager) updateJob(jobID string, update func(job *LookupJob)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return
	}

	update(job)
	job.UpdatedAt = time.Now()
}
