package jobs

import (
	"context"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/jackzampolin/colorbook/internal/pipeline"
)

// Job types.
const (
	StageJobType    = "stage"
	RetryJobType    = "retry"
	PipelineJobType = "pipeline"
)

// StageJob runs one stage, a retry of one stage, or every stage of a
// registry over a session's batch.
type StageJob struct {
	id        string
	jobType   string
	scheduler *pipeline.Scheduler
	stage     pipeline.Stage
	registry  *pipeline.Registry
	ctl       *pipeline.Control

	mu      sync.Mutex
	current string
	reports []pipeline.Report

	// OnFinish, if set, receives the reports after Execute returns.
	OnFinish func(reports []pipeline.Report, err error)
}

// NewStageJob runs st once over the batch.
func NewStageJob(s *pipeline.Scheduler, st pipeline.Stage) *StageJob {
	return &StageJob{id: uuid.NewString(), jobType: StageJobType, scheduler: s, stage: st, ctl: pipeline.NewControl()}
}

// NewRetryJob resets st's failures and reruns st.
func NewRetryJob(s *pipeline.Scheduler, st pipeline.Stage) *StageJob {
	j := NewStageJob(s, st)
	j.jobType = RetryJobType
	return j
}

// NewPipelineJob runs every stage of reg in dependency order.
func NewPipelineJob(s *pipeline.Scheduler, reg *pipeline.Registry) *StageJob {
	return &StageJob{id: uuid.NewString(), jobType: PipelineJobType, scheduler: s, registry: reg, ctl: pipeline.NewControl()}
}

func (j *StageJob) ID() string   { return j.id }
func (j *StageJob) Type() string { return j.jobType }

// Control exposes pause/resume/cancel for the job.
func (j *StageJob) Control() *pipeline.Control { return j.ctl }

// Reports returns the reports of the stages run so far.
func (j *StageJob) Reports() []pipeline.Report {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]pipeline.Report, len(j.reports))
	copy(out, j.reports)
	return out
}

func (j *StageJob) Execute(ctx context.Context) error {
	logger := DepsFromContext(ctx).Logger

	var err error
	switch {
	case j.registry != nil:
		stages, oerr := j.registry.GetOrdered()
		if oerr != nil {
			err = oerr
			break
		}
		for _, st := range stages {
			if err = j.runOne(ctx, st, false); err != nil {
				break
			}
		}
	case j.jobType == RetryJobType:
		err = j.runOne(ctx, j.stage, true)
	default:
		err = j.runOne(ctx, j.stage, false)
	}

	if logger != nil {
		logger.Info("stage job finished", "type", j.jobType, "stages", len(j.Reports()), "error", err)
	}
	if j.OnFinish != nil {
		j.OnFinish(j.Reports(), err)
	}
	return err
}

func (j *StageJob) runOne(ctx context.Context, st pipeline.Stage, retry bool) error {
	j.mu.Lock()
	j.current = st.Name()
	j.mu.Unlock()

	var rep pipeline.Report
	var err error
	if retry {
		rep, err = j.scheduler.Retry(ctx, st, j.ctl)
	} else {
		rep, err = j.scheduler.RunStage(ctx, st, j.ctl)
	}

	j.mu.Lock()
	j.reports = append(j.reports, rep)
	j.mu.Unlock()
	return err
}

// Status reports the current stage and the tallies of the latest report.
func (j *StageJob) Status(ctx context.Context) (map[string]string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	status := map[string]string{
		"paused":    strconv.FormatBool(j.ctl.Paused()),
		"cancelled": strconv.FormatBool(j.ctl.Cancelled()),
	}
	if j.current != "" {
		status["stage"] = j.current
	}
	status["stages_done"] = strconv.Itoa(len(j.reports))
	if n := len(j.reports); n > 0 {
		last := j.reports[n-1]
		status["succeeded"] = strconv.Itoa(last.Succeeded)
		status["failed"] = strconv.Itoa(last.Failed)
		status["skipped"] = strconv.Itoa(last.Skipped)
	}
	return status, nil
}
