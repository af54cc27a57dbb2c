package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/colorbook/internal/api"
	"github.com/jackzampolin/colorbook/internal/jobs"
	"github.com/jackzampolin/colorbook/internal/pipeline"
	"github.com/jackzampolin/colorbook/internal/svcctx"
	"github.com/jackzampolin/colorbook/internal/wizard"
)

// StartStageResponse is returned when a stage job is accepted.
type StartStageResponse struct {
	JobID     string `json:"job_id"`
	SessionID string `json:"session_id"`
	JobType   string `json:"job_type"`
	Stage     string `json:"stage,omitempty"`
}

// submitStageJob starts a job for the session. build receives the services
// and the session and returns the job to run.
func submitStageJob(w http.ResponseWriter, r *http.Request, stage string, build func(*svcctx.Services, *wizard.Session) (*jobs.StageJob, error)) {
	sess := sessionFrom(w, r)
	if sess == nil {
		return
	}
	if sess.Store.Snapshot() == nil {
		writeErr(w, pipeline.ErrNoBatch)
		return
	}
	svc := svcctx.ServicesFrom(r.Context())
	job, err := build(svc, sess)
	if err != nil {
		writeErr(w, err)
		return
	}
	logger := svc.Logger.With("session_id", sess.ID, "job_id", job.ID())
	job.OnFinish = func(reports []pipeline.Report, err error) {
		for _, rep := range reports {
			logger.Info("stage report", "stage", rep.Stage, "succeeded", rep.Succeeded,
				"failed", rep.Failed, "skipped", rep.Skipped, "cancelled", rep.Cancelled)
		}
	}
	rec, err := svc.JobManager.Submit(sess.ID, job)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, StartStageResponse{
		JobID:     rec.ID,
		SessionID: sess.ID,
		JobType:   rec.JobType,
		Stage:     stage,
	})
}

// StartStageEndpoint handles POST /api/sessions/{id}/stages/{stage}.
type StartStageEndpoint struct{}

func (e *StartStageEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/stages/{stage}", e.handler
}

func (e *StartStageEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Run a stage
//	@Description	Starts a background job running one stage over the batch
//	@Tags			stages
//	@Produce		json
//	@Param			id		path		string	true	"Session ID"
//	@Param			stage	path		string	true	"Stage: plans, prompts, images, enhance"
//	@Success		202		{object}	StartStageResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Router			/api/sessions/{id}/stages/{stage} [post]
func (e *StartStageEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("stage")
	submitStageJob(w, r, name, func(svc *svcctx.Services, sess *wizard.Session) (*jobs.StageJob, error) {
		st, err := stageByName(svc, name)
		if err != nil {
			return nil, err
		}
		return jobs.NewStageJob(svc.SchedulerFor(sess), st), nil
	})
}

func (e *StartStageEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "stage <session-id> <plans|prompts|images|enhance>",
		Short: "Run one stage over a session's batch",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StartStageResponse
			if err := client.Post(cmd.Context(), "/api/sessions/"+args[0]+"/stages/"+args[1], nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// RetryStageEndpoint handles POST /api/sessions/{id}/retry/{stage}.
type RetryStageEndpoint struct{}

func (e *RetryStageEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/retry/{stage}", e.handler
}

func (e *RetryStageEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Retry failed items
//	@Description	Resets the stage's failed items and runs the stage again
//	@Tags			stages
//	@Produce		json
//	@Param			id		path		string	true	"Session ID"
//	@Param			stage	path		string	true	"Stage: plans, prompts, images, enhance"
//	@Success		202		{object}	StartStageResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Router			/api/sessions/{id}/retry/{stage} [post]
func (e *RetryStageEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("stage")
	submitStageJob(w, r, name, func(svc *svcctx.Services, sess *wizard.Session) (*jobs.StageJob, error) {
		st, err := stageByName(svc, name)
		if err != nil {
			return nil, err
		}
		return jobs.NewRetryJob(svc.SchedulerFor(sess), st), nil
	})
}

func (e *RetryStageEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <session-id> <plans|prompts|images|enhance>",
		Short: "Retry a stage's failed items",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StartStageResponse
			if err := client.Post(cmd.Context(), "/api/sessions/"+args[0]+"/retry/"+args[1], nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// RunPipelineEndpoint handles POST /api/sessions/{id}/run.
type RunPipelineEndpoint struct{}

func (e *RunPipelineEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/run", e.handler
}

func (e *RunPipelineEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Run every stage
//	@Description	Starts a background job running plans, prompts, images and enhance in order
//	@Tags			stages
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		202	{object}	StartStageResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		409	{object}	ErrorResponse
//	@Router			/api/sessions/{id}/run [post]
func (e *RunPipelineEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	submitStageJob(w, r, "", func(svc *svcctx.Services, sess *wizard.Session) (*jobs.StageJob, error) {
		return jobs.NewPipelineJob(svc.SchedulerFor(sess), svc.Stages()), nil
	})
}

func (e *RunPipelineEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "run <session-id>",
		Short: "Run every stage over a session's batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StartStageResponse
			if err := client.Post(cmd.Context(), "/api/sessions/"+args[0]+"/run", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

func stageByName(svc *svcctx.Services, name string) (pipeline.Stage, error) {
	st, ok := svc.Stages().Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", pipeline.ErrStageNotFound, name)
	}
	return st, nil
}
