package jobs

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// ErrNotFound is returned when a job ID is unknown to the registry.
var ErrNotFound = errors.New("job not found")

// Registry is the process-wide job store and the single source of truth for
// progress polling. Jobs live for the process lifetime; there is no eviction.
type Registry struct {
	mu     sync.RWMutex
	jobs   map[string]*Job
	logger hclog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger hclog.Logger) *Registry {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &Registry{
		jobs:   make(map[string]*Job),
		logger: logger.Named("registry"),
	}
}

// Create registers a new queued job and returns its snapshot.
func (r *Registry) Create() Job {
	now := time.Now()
	job := &Job{
		ID:        uuid.New().String(),
		Status:    StatusQueued,
		Progress:  0,
		Message:   "Queued",
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()

	r.logger.Debug("created job", "job_id", job.ID)
	return *job
}

// Get returns a consistent snapshot of one job, or ErrNotFound.
func (r *Registry) Get(id string) (Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return *job, nil
}

// List returns snapshots of all jobs, most recently created first.
func (r *Registry) List() []Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		list = append(list, *job)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list
}

// Counts reports how many jobs are still running and how many were ever
// created.
func (r *Registry) Counts() (active, total int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, job := range r.jobs {
		if !job.Status.IsTerminal() {
			active++
		}
	}
	return active, len(r.jobs)
}

// UpdateStage moves a job to a new lifecycle stage. Progress never decreases;
// terminal jobs refuse further transitions.
func (r *Registry) UpdateStage(id string, status Status, progress int, message string) error {
	return r.mutate(id, func(job *Job) {
		job.Status = status
		job.Message = message
		if progress > job.Progress {
			job.Progress = progress
		}
	})
}

// Complete marks a job terminal-successful and records its artifact.
func (r *Registry) Complete(id, filename, downloadURL string) error {
	err := r.mutate(id, func(job *Job) {
		job.Status = StatusCompleted
		job.Progress = progressDone
		job.Message = "Download ready"
		job.Filename = filename
		job.DownloadURL = downloadURL
	})
	if err == nil {
		r.logger.Info("job completed", "job_id", id, "filename", filename)
	}
	return err
}

// Fail marks a job terminal-failed, keeping its last progress value so a
// poller can see how far it got.
func (r *Registry) Fail(id string, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}

	err := r.mutate(id, func(job *Job) {
		job.Status = StatusError
		job.Message = msg
		job.Error = msg
	})
	if err == nil {
		r.logger.Error("job failed", "job_id", id, "error", msg)
	}
	return err
}

// mutate applies fn to the stored record under the write lock and stamps a
// fresh update time. Terminal records are immutable.
func (r *Registry) mutate(id string, fn func(*Job)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if job.Status.IsTerminal() {
		return fmt.Errorf("job %s is already %s", id, job.Status)
	}

	fn(job)
	job.UpdatedAt = time.Now()
	return nil
}
