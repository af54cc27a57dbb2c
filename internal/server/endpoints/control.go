package endpoints

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/colorbook/internal/api"
	"github.com/jackzampolin/colorbook/internal/book"
	"github.com/jackzampolin/colorbook/internal/jobs"
	"github.com/jackzampolin/colorbook/internal/pipeline"
	"github.com/jackzampolin/colorbook/internal/svcctx"
)

// ControlAction is one of pause, resume, cancel.
type ControlAction string

const (
	ActionPause  ControlAction = "pause"
	ActionResume ControlAction = "resume"
	ActionCancel ControlAction = "cancel"
)

var errNoActiveJob = errors.New("no job is running for this session")

// ControlResponse reports the state after a control action.
type ControlResponse struct {
	JobID       string           `json:"job_id"`
	Action      ControlAction    `json:"action"`
	Paused      bool             `json:"paused"`
	Cancelled   bool             `json:"cancelled"`
	BatchStatus book.BatchStatus `json:"batch_status,omitempty"`
}

// ControlEndpoint handles POST /api/sessions/{id}/pause, /resume and /cancel.
// Pause and resume take effect between items; cancel lets the item in
// flight finish and keeps its result.
type ControlEndpoint struct {
	Action ControlAction
}

func (e *ControlEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/" + string(e.Action), e.handler
}

func (e *ControlEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Pause, resume or cancel the running job
//	@Tags			stages
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	ControlResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		409	{object}	ErrorResponse
//	@Router			/api/sessions/{id}/pause [post]
//	@Router			/api/sessions/{id}/resume [post]
//	@Router			/api/sessions/{id}/cancel [post]
func (e *ControlEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(w, r)
	if sess == nil {
		return
	}
	jm := svcctx.JobManagerFrom(r.Context())
	rec, ok := jm.Active(sess.ID)
	if !ok {
		writeError(w, http.StatusConflict, errNoActiveJob.Error())
		return
	}
	ctl, ok := jm.Control(sess.ID)
	if !ok {
		writeError(w, http.StatusConflict, errNoActiveJob.Error())
		return
	}

	switch e.Action {
	case ActionPause:
		ctl.Pause()
	case ActionResume:
		ctl.Resume()
	case ActionCancel:
		if err := jm.Cancel(rec.ID); err != nil {
			writeErr(w, err)
			return
		}
	}

	resp := ControlResponse{
		JobID:     rec.ID,
		Action:    e.Action,
		Paused:    ctl.Paused(),
		Cancelled: ctl.Cancelled(),
	}
	if b := sess.Store.Snapshot(); b != nil {
		resp.BatchStatus = b.Status
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *ControlEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   string(e.Action) + " <session-id>",
		Short: controlShort[e.Action],
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ControlResponse
			if err := client.Post(cmd.Context(), "/api/sessions/"+args[0]+"/"+string(e.Action), nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

var controlShort = map[ControlAction]string{
	ActionPause:  "Pause the session's running job between items",
	ActionResume: "Resume a paused job",
	ActionCancel: "Cancel the session's running job",
}

// RegenerateResponse is the outcome of regenerating one page.
type RegenerateResponse struct {
	PageID     string          `json:"page_id"`
	Status     string          `json:"status"`
	DurationMs int64           `json:"duration_ms"`
	Error      string          `json:"error,omitempty"`
	Warning    string          `json:"warning,omitempty"`
	PageStatus book.PageStatus `json:"page_status"`
}

// RegeneratePageEndpoint handles POST /api/sessions/{id}/pages/{page_id}/regenerate.
type RegeneratePageEndpoint struct{}

func (e *RegeneratePageEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/pages/{page_id}/regenerate", e.handler
}

func (e *RegeneratePageEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Regenerate one page
//	@Description	Clears the page's images and generates it again. Blocks until the image returns.
//	@Tags			pages
//	@Produce		json
//	@Param			id		path		string	true	"Session ID"
//	@Param			page_id	path		string	true	"Page ID"
//	@Success		200		{object}	RegenerateResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Router			/api/sessions/{id}/pages/{page_id}/regenerate [post]
func (e *RegeneratePageEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(w, r)
	if sess == nil {
		return
	}
	svc := svcctx.ServicesFrom(r.Context())
	if rec, ok := svc.JobManager.Active(sess.ID); ok {
		writeErr(w, fmt.Errorf("%w: job %s", jobs.ErrStageRunning, rec.ID))
		return
	}
	st, err := svc.Stages().PageStage(pipeline.StageImages)
	if err != nil {
		writeErr(w, err)
		return
	}

	pageID := r.PathValue("page_id")
	o, err := svc.SchedulerFor(sess).RegeneratePage(r.Context(), st, pageID)
	if err != nil {
		writeErr(w, err)
		return
	}

	resp := RegenerateResponse{
		PageID:     pageID,
		Status:     o.Status,
		DurationMs: o.Duration.Milliseconds(),
		Error:      o.Error,
		Warning:    o.Warning,
	}
	if b := sess.Store.Snapshot(); b != nil {
		if bi, pi, ok := b.FindPage(pageID); ok {
			resp.PageStatus = b.Books[bi].Pages[pi].Status
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *RegeneratePageEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate <session-id> <page-id>",
		Short: "Regenerate one page's image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp RegenerateResponse
			if err := client.Post(cmd.Context(), "/api/sessions/"+args[0]+"/pages/"+args[1]+"/regenerate", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
