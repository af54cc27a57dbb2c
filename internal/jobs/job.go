package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrStageRunning is returned when a session already has an active job.
var ErrStageRunning = errors.New("a stage job is already running for this session")

// ErrNotFound is returned for unknown job ids.
var ErrNotFound = errors.New("job not found")

// Job is the interface that all job types must implement.
type Job interface {
	// ID returns the job id, assigned at construction.
	ID() string

	// Type returns the job type identifier.
	Type() string

	// Execute runs the job. It should respect context cancellation.
	// Dependencies are retrieved via DepsFromContext(ctx).
	//
	// Execute must be safe to run after an earlier attempt of the same work
	// stopped partway: stages only pick up items that are still eligible.
	Execute(ctx context.Context) error

	// Status returns the current status of the job as key-value pairs.
	// Returns nil map if no status to report.
	Status(ctx context.Context) (map[string]string, error)
}

// Dependencies provides access to shared resources for job execution.
type Dependencies struct {
	Logger *slog.Logger
}

// depsKey is the context key for Dependencies.
type depsKey struct{}

// ContextWithDeps returns a new context with Dependencies attached.
func ContextWithDeps(ctx context.Context, deps Dependencies) context.Context {
	return context.WithValue(ctx, depsKey{}, deps)
}

// DepsFromContext retrieves Dependencies from the context.
// Returns a Dependencies with nil fields if not found.
func DepsFromContext(ctx context.Context) Dependencies {
	deps, ok := ctx.Value(depsKey{}).(Dependencies)
	if !ok {
		return Dependencies{}
	}
	return deps
}

// Status represents the current state of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Active reports whether the job has not finished yet.
func (s Status) Active() bool {
	return s == StatusQueued || s == StatusRunning
}

// Record is the manager's view of one job.
type Record struct {
	ID          string            `json:"id" yaml:"id"`
	SessionID   string            `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	JobType     string            `json:"job_type" yaml:"job_type"`
	Status      Status            `json:"status" yaml:"status"`
	CreatedAt   time.Time         `json:"created_at" yaml:"created_at"`
	StartedAt   *time.Time        `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Error       string            `json:"error,omitempty" yaml:"error,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// NewRecord creates a new job record for submission.
func NewRecord(job Job, sessionID string) *Record {
	return &Record{
		ID:        job.ID(),
		SessionID: sessionID,
		JobType:   job.Type(),
		Status:    StatusQueued,
		CreatedAt: time.Now().UTC(),
	}
}

func (r *Record) clone() *Record {
	c := *r
	if r.Metadata != nil {
		c.Metadata = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}
