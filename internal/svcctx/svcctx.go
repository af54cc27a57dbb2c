// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/jackzampolin/colorbook/internal/config"
	"github.com/jackzampolin/colorbook/internal/export"
	"github.com/jackzampolin/colorbook/internal/home"
	"github.com/jackzampolin/colorbook/internal/jobs"
	"github.com/jackzampolin/colorbook/internal/pipeline"
	"github.com/jackzampolin/colorbook/internal/studio"
	"github.com/jackzampolin/colorbook/internal/wizard"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Config     *config.Manager
	Home       *home.Dir
	Logger     *slog.Logger
	Studio     *studio.Client
	Sessions   *wizard.Sessions
	JobManager *jobs.Manager
	Exporter   *export.Exporter
	Handoff    *export.Handoff
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// Stages builds the stage registry from the current configuration.
func (s *Services) Stages() *pipeline.Registry {
	cfg := s.Config.Get().Stages
	return pipeline.NewStageRegistry(s.Studio, pipeline.StageOptions{
		ImageSize:       cfg.ImageSize,
		ValidateOutline: cfg.ValidateOutline,
		ValidateNoColor: cfg.ValidateNoColor,
		EnhanceScale:    cfg.EnhanceScale,
		MarginPercent:   cfg.MarginPercent,
	})
}

// SchedulerFor builds a scheduler over a session's store from the current
// configuration. Outcomes are recorded in the session's ledger.
func (s *Services) SchedulerFor(sess *wizard.Session) *pipeline.Scheduler {
	runner := &pipeline.Runner{Store: sess.Store, Logger: s.Logger.With("session_id", sess.ID)}
	if l := sess.Ledger(); l != nil {
		runner.OnOutcome = l.Record
	}
	return NewScheduler(runner, s.Config.Get().Scheduler, s.Logger)
}

// NewScheduler applies scheduler settings to a new scheduler.
func NewScheduler(r *pipeline.Runner, cfg config.SchedulerCfg, logger *slog.Logger) *pipeline.Scheduler {
	sched := pipeline.NewScheduler(r, logger)
	if cfg.BookConcurrency > 0 {
		sched.BookConcurrency = cfg.BookConcurrency
	}
	if cfg.PageConcurrency > 0 {
		sched.PageConcurrency = cfg.PageConcurrency
	}
	image, enhance := cfg.Delays()
	sched.Delays[pipeline.StageImages] = image
	sched.Delays[pipeline.StageEnhance] = enhance
	return sched
}

// ConfigFrom extracts the config manager from context.
func ConfigFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}

// JobManagerFrom extracts the job manager from context.
func JobManagerFrom(ctx context.Context) *jobs.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.JobManager
	}
	return nil
}

// SessionsFrom extracts the session registry from context.
func SessionsFrom(ctx context.Context) *wizard.Sessions {
	if s := ServicesFrom(ctx); s != nil {
		return s.Sessions
	}
	return nil
}

// StudioFrom extracts the studio client from context.
func StudioFrom(ctx context.Context) *studio.Client {
	if s := ServicesFrom(ctx); s != nil {
		return s.Studio
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}

// NewStudio builds a studio client from configuration.
func NewStudio(cfg *config.Config, logger *slog.Logger) (*studio.Client, error) {
	return studio.NewClient(studio.Config{
		BaseURL:           cfg.Studio.BaseURL,
		APIKey:            cfg.Studio.ResolvedAPIKey(),
		Timeout:           cfg.Studio.Timeout(),
		MaxAttempts:       cfg.Studio.MaxAttempts,
		RetryDelay:        cfg.Studio.RetryDelay(),
		RequestsPerMinute: cfg.Studio.RequestsPerMinute,
		ImageSize:         cfg.Stages.ImageSize,
		Logger:            logger,
	})
}
