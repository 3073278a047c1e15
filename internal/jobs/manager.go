package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/muxfetch/muxfetch/internal/events"
	"github.com/muxfetch/muxfetch/internal/resolver"
)

// ManagerConfig contains configuration for the job manager.
type ManagerConfig struct {
	// WorkDir holds the per-job workspaces.
	WorkDir string

	// DownloadsDir receives completed artifacts.
	DownloadsDir string

	// MaxConcurrent bounds simultaneously running jobs; 0 means unbounded.
	MaxConcurrent int

	// ShutdownTimeout bounds how long Shutdown waits for running jobs.
	ShutdownTimeout time.Duration
}

// Manager owns the registry and spawns one background worker per accepted
// job. Submission never blocks on the work itself: when the concurrency
// bound is reached the job waits in the queued state.
type Manager struct {
	logger   hclog.Logger
	registry *Registry
	runner   *runner
	eventBus events.EventBus

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	sem    chan struct{}

	shutdownTimeout time.Duration
}

// NewManager wires the job pipeline together.
func NewManager(cfg ManagerConfig, svc resolver.Service, merger Merger, eventBus events.EventBus, logger hclog.Logger) *Manager {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	registry := NewRegistry(logger)

	m := &Manager{
		logger:          logger.Named("jobs"),
		registry:        registry,
		eventBus:        eventBus,
		ctx:             ctx,
		cancel:          cancel,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
	if cfg.MaxConcurrent > 0 {
		m.sem = make(chan struct{}, cfg.MaxConcurrent)
	}

	m.runner = &runner{
		logger:       m.logger.Named("runner"),
		registry:     registry,
		resolver:     svc,
		merger:       merger,
		eventBus:     eventBus,
		workDir:      cfg.WorkDir,
		downloadsDir: cfg.DownloadsDir,
	}

	return m
}

// Submit accepts a download request, registers a queued job, and detaches the
// background worker. The returned snapshot carries the ID used for polling.
func (m *Manager) Submit(req Request) (Job, error) {
	if req.URL == "" {
		return Job{}, fmt.Errorf("url is required")
	}
	if req.Type == "" {
		req.Type = TypeMP4
	}
	if !req.Type.Valid() {
		return Job{}, fmt.Errorf("unsupported output type %q", req.Type)
	}

	select {
	case <-m.ctx.Done():
		return Job{}, fmt.Errorf("job manager is shut down")
	default:
	}

	job := m.registry.Create()
	m.publishQueued(job.ID, req)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		if m.sem != nil {
			select {
			case m.sem <- struct{}{}:
				defer func() { <-m.sem }()
			case <-m.ctx.Done():
				_ = m.registry.Fail(job.ID, fmt.Errorf("canceled before start: %w", m.ctx.Err()))
				return
			}
		}

		m.runner.Run(m.ctx, job.ID, req)
	}()

	m.logger.Info("job submitted", "job_id", job.ID, "type", req.Type, "url", req.URL)
	return job, nil
}

// GetJob returns the current snapshot for a job ID.
func (m *Manager) GetJob(id string) (Job, error) {
	return m.registry.Get(id)
}

// ListJobs returns snapshots of all jobs, most recent first.
func (m *Manager) ListJobs() []Job {
	return m.registry.List()
}

// Counts reports running and total job numbers.
func (m *Manager) Counts() (active, total int) {
	return m.registry.Counts()
}

// Shutdown cancels running jobs and waits for them to settle.
func (m *Manager) Shutdown() error {
	m.logger.Info("shutting down job manager")
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("job manager shutdown complete")
		return nil
	case <-time.After(m.shutdownTimeout):
		return fmt.Errorf("timed out waiting for running jobs after %s", m.shutdownTimeout)
	}
}

func (m *Manager) publishQueued(jobID string, req Request) {
	if m.eventBus == nil {
		return
	}

	event := events.NewJobEvent(events.EventJobQueued, jobID, "Job Queued", req.URL)
	event.Data = map[string]interface{}{"type": string(req.Type)}
	if err := m.eventBus.PublishAsync(event); err != nil {
		m.logger.Debug("event publish dropped", "type", event.Type, "error", err)
	}
}
