package endpoints

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/colorbook/internal/api"
	"github.com/jackzampolin/colorbook/internal/report"
	"github.com/jackzampolin/colorbook/internal/svcctx"
)

// ReportResponse summarizes a session's run ledger.
type ReportResponse struct {
	BatchID string                `json:"batch_id"`
	Rows    int                   `json:"rows"`
	Stages  []report.StageSummary `json:"stages"`
	Path    string                `json:"path,omitempty"`
}

// GetReportEndpoint handles GET /api/sessions/{id}/report.
type GetReportEndpoint struct{}

func (e *GetReportEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions/{id}/report", e.handler
}

func (e *GetReportEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Run report
//	@Description	Per-stage outcome counts and average durations of the current batch
//	@Tags			reports
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	ReportResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		409	{object}	ErrorResponse
//	@Router			/api/sessions/{id}/report [get]
func (e *GetReportEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(w, r)
	if sess == nil {
		return
	}
	l := sess.Ledger()
	if l == nil {
		writeError(w, http.StatusConflict, "session has no batch")
		return
	}
	rows := l.Rows()
	writeJSON(w, http.StatusOK, ReportResponse{
		BatchID: sess.Store.Snapshot().ID,
		Rows:    len(rows),
		Stages:  report.Summarize(rows),
	})
}

func (e *GetReportEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "report <session-id>",
		Short: "Show per-stage outcome counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ReportResponse
			if err := client.Get(cmd.Context(), "/api/sessions/"+args[0]+"/report", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// WriteReportEndpoint handles POST /api/sessions/{id}/report.
type WriteReportEndpoint struct{}

func (e *WriteReportEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/report", e.handler
}

func (e *WriteReportEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Write the run ledger
//	@Description	Writes the ledger of the current batch as Parquet under the reports directory
//	@Tags			reports
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		201	{object}	ReportResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		409	{object}	ErrorResponse
//	@Router			/api/sessions/{id}/report [post]
func (e *WriteReportEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(w, r)
	if sess == nil {
		return
	}
	l := sess.Ledger()
	if l == nil || l.Len() == 0 {
		writeError(w, http.StatusConflict, "ledger is empty")
		return
	}
	h := svcctx.HomeFrom(r.Context())
	path, err := l.Write(h.ReportsDir(), time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	rows := l.Rows()
	writeJSON(w, http.StatusCreated, ReportResponse{
		BatchID: sess.Store.Snapshot().ID,
		Rows:    len(rows),
		Stages:  report.Summarize(rows),
		Path:    path,
	})
}

func (e *WriteReportEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "report-write <session-id>",
		Short: "Write the run ledger as Parquet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ReportResponse
			if err := client.Post(cmd.Context(), "/api/sessions/"+args[0]+"/report", nil, &resp); err != nil {
				return err
			}
			fmt.Printf("Wrote %d rows to %s\n", resp.Rows, resp.Path)
			return nil
		},
	}
}
