package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jackzampolin/colorbook/internal/pipeline"
)

// Controllable is implemented by jobs that expose pause/resume/cancel.
type Controllable interface {
	Control() *pipeline.Control
}

type entry struct {
	rec    *Record
	job    Job
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager runs jobs in background goroutines and keeps their records in
// memory. At most one active job is allowed per session, so a session's
// sequential stages never overlap.
type Manager struct {
	logger *slog.Logger

	mu   sync.Mutex
	jobs map[string]*entry
}

// NewManager creates a new job manager.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		logger: logger,
		jobs:   make(map[string]*entry),
	}
}

// Submit starts job for a session. It returns ErrStageRunning when the
// session already has an active job.
func (m *Manager) Submit(sessionID string, job Job) (*Record, error) {
	m.mu.Lock()
	if sessionID != "" {
		for _, e := range m.jobs {
			if e.rec.SessionID == sessionID && e.rec.Status.Active() {
				m.mu.Unlock()
				return nil, fmt.Errorf("%w: job %s", ErrStageRunning, e.rec.ID)
			}
		}
	}

	rec := NewRecord(job, sessionID)
	ctx, cancel := context.WithCancel(context.Background())
	e := &entry{rec: rec, job: job, cancel: cancel, done: make(chan struct{})}
	m.jobs[rec.ID] = e
	out := rec.clone()
	m.mu.Unlock()

	m.logger.Info("job created", "id", rec.ID, "type", rec.JobType, "session_id", sessionID)

	ctx = ContextWithDeps(ctx, Dependencies{Logger: m.logger.With("job_id", rec.ID)})
	go m.run(ctx, e)
	return out, nil
}

func (m *Manager) run(ctx context.Context, e *entry) {
	defer close(e.done)
	defer e.cancel()

	m.setStatus(e, StatusRunning, "")
	err := e.job.Execute(ctx)

	id, jobType := e.job.ID(), e.job.Type()
	switch {
	case err == nil:
		m.setStatus(e, StatusCompleted, "")
		m.logger.Info("job completed", "id", id, "type", jobType)
	case errors.Is(err, pipeline.ErrCancelled), errors.Is(err, context.Canceled):
		m.setStatus(e, StatusCancelled, "")
		m.logger.Info("job cancelled", "id", id, "type", jobType)
	default:
		m.setStatus(e, StatusFailed, err.Error())
		m.logger.Error("job failed", "id", id, "type", jobType, "error", err)
	}
}

func (m *Manager) setStatus(e *entry, status Status, errMsg string) {
	live, _ := e.job.Status(context.Background())

	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	e.rec.Status = status
	switch status {
	case StatusRunning:
		e.rec.StartedAt = &now
	case StatusCompleted, StatusFailed, StatusCancelled:
		e.rec.CompletedAt = &now
	}
	if errMsg != "" {
		e.rec.Error = errMsg
	}
	if live != nil {
		e.rec.Metadata = live
	}
}

// Get returns a job record by ID with the job's live status merged in.
func (m *Manager) Get(ctx context.Context, jobID string) (*Record, error) {
	m.mu.Lock()
	e, ok := m.jobs[jobID]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	return m.snapshot(ctx, e), nil
}

func (m *Manager) snapshot(ctx context.Context, e *entry) *Record {
	live, err := e.job.Status(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	rec := e.rec.clone()
	if err == nil && live != nil && rec.Status.Active() {
		rec.Metadata = live
	}
	return rec
}

// ListFilter specifies criteria for listing jobs.
type ListFilter struct {
	SessionID string // Filter by session (empty = all)
	Status    Status // Filter by status (empty = all)
	JobType   string // Filter by job type (empty = all)
	Limit     int    // Max results (0 = default 100)
}

// List returns jobs matching the filter, newest first.
func (m *Manager) List(ctx context.Context, filter ListFilter) []*Record {
	m.mu.Lock()
	entries := make([]*entry, 0, len(m.jobs))
	for _, e := range m.jobs {
		if filter.SessionID != "" && e.rec.SessionID != filter.SessionID {
			continue
		}
		if filter.Status != "" && e.rec.Status != filter.Status {
			continue
		}
		if filter.JobType != "" && e.rec.JobType != filter.JobType {
			continue
		}
		entries = append(entries, e)
	}
	m.mu.Unlock()

	records := make([]*Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, m.snapshot(ctx, e))
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(records) > limit {
		records = records[:limit]
	}
	return records
}

// Active returns the session's running job, if any.
func (m *Manager) Active(sessionID string) (*Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.jobs {
		if e.rec.SessionID == sessionID && e.rec.Status.Active() {
			return e.rec.clone(), true
		}
	}
	return nil, false
}

// Control returns the control object of the session's active job.
func (m *Manager) Control(sessionID string) (*pipeline.Control, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.jobs {
		if e.rec.SessionID != sessionID || !e.rec.Status.Active() {
			continue
		}
		if c, ok := e.job.(Controllable); ok {
			return c.Control(), true
		}
	}
	return nil, false
}

// Cancel stops a job. Controllable jobs stop at their next checkpoint so the
// item in flight keeps its result; other jobs have their context cancelled.
func (m *Manager) Cancel(jobID string) error {
	m.mu.Lock()
	e, ok := m.jobs[jobID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	if c, ok := e.job.(Controllable); ok {
		c.Control().Cancel()
	} else {
		e.cancel()
	}
	return nil
}

// Wait blocks until the job finishes or ctx is done.
func (m *Manager) Wait(ctx context.Context, jobID string) (*Record, error) {
	m.mu.Lock()
	e, ok := m.jobs[jobID]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	select {
	case <-e.done:
		return m.snapshot(ctx, e), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown cancels every active job and waits for them to return.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	entries := make([]*entry, 0, len(m.jobs))
	for _, e := range m.jobs {
		entries = append(entries, e)
	}
	m.mu.Unlock()

	for _, e := range entries {
		if c, ok := e.job.(Controllable); ok {
			c.Control().Cancel()
		}
		e.cancel()
	}
	for _, e := range entries {
		select {
		case <-e.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
