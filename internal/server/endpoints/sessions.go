package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/colorbook/internal/api"
	"github.com/jackzampolin/colorbook/internal/book"
	"github.com/jackzampolin/colorbook/internal/progress"
	"github.com/jackzampolin/colorbook/internal/svcctx"
	"github.com/jackzampolin/colorbook/internal/wizard"
)

// sessionFrom resolves the {id} path value. It writes the error response and
// returns nil when the session cannot be used.
func sessionFrom(w http.ResponseWriter, r *http.Request) *wizard.Session {
	sessions := svcctx.SessionsFrom(r.Context())
	if sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "sessions not initialized")
		return nil
	}
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "session id is required")
		return nil
	}
	sess, err := sessions.Get(id)
	if err != nil {
		writeErr(w, err)
		return nil
	}
	return sess
}

// CreateSessionRequest is the request body for creating a session.
type CreateSessionRequest struct {
	Flow     string `json:"flow,omitempty"`
	BookType string `json:"book_type,omitempty"`
}

// CreateSessionEndpoint handles POST /api/sessions.
type CreateSessionEndpoint struct{}

func (e *CreateSessionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions", e.handler
}

func (e *CreateSessionEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Create a session
//	@Description	Start a wizard session for the bulk or single-book flow
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateSessionRequest	false	"Flow (bulk or single)"
//	@Success		201		{object}	wizard.View
//	@Failure		400		{object}	ErrorResponse
//	@Router			/api/sessions [post]
func (e *CreateSessionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	flow, err := wizard.ParseFlow(req.Flow)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var bookType book.BookType
	if req.BookType != "" {
		if bookType, err = book.ParseBookType(req.BookType); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	sess := svcctx.SessionsFrom(r.Context()).Create(flow)
	if bookType != "" {
		if err := sess.SetBookType(bookType); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if logger := svcctx.LoggerFrom(r.Context()); logger != nil {
		logger.Info("session created", "session_id", sess.ID, "flow", flow)
	}
	writeJSON(w, http.StatusCreated, sess.View())
}

func (e *CreateSessionEndpoint) Command(getServerURL func() string) *cobra.Command {
	var flow, bookType string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a wizard session",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp wizard.View
			if err := client.Post(cmd.Context(), "/api/sessions", CreateSessionRequest{Flow: flow, BookType: bookType}, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&flow, "flow", "bulk", "Wizard flow: bulk or single")
	cmd.Flags().StringVar(&bookType, "book-type", "", "Book type for the single flow: scenes or quotes")
	return cmd
}

// SessionSummary is one row of the session list.
type SessionSummary struct {
	ID       string           `json:"id"`
	Flow     wizard.Flow      `json:"flow"`
	Ideas    int              `json:"ideas"`
	Books    int              `json:"books"`
	Progress progress.Summary `json:"progress"`
}

// ListSessionsResponse is the response for listing sessions.
type ListSessionsResponse struct {
	Sessions []SessionSummary `json:"sessions"`
}

// ListSessionsEndpoint handles GET /api/sessions.
type ListSessionsEndpoint struct{}

func (e *ListSessionsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions", e.handler
}

func (e *ListSessionsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List sessions
//	@Tags			sessions
//	@Produce		json
//	@Success		200	{object}	ListSessionsResponse
//	@Router			/api/sessions [get]
func (e *ListSessionsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := ListSessionsResponse{Sessions: []SessionSummary{}}
	for _, sess := range svcctx.SessionsFrom(r.Context()).List() {
		st := sess.State()
		row := SessionSummary{
			ID:       sess.ID,
			Flow:     sess.Flow,
			Ideas:    len(st.Ideas),
			Progress: progress.Summarize(st.Batch),
		}
		if st.Batch != nil {
			row.Books = len(st.Batch.Books)
		}
		resp.Sessions = append(resp.Sessions, row)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *ListSessionsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListSessionsResponse
			if err := client.Get(cmd.Context(), "/api/sessions", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// GetSessionEndpoint handles GET /api/sessions/{id}.
type GetSessionEndpoint struct{}

func (e *GetSessionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions/{id}", e.handler
}

func (e *GetSessionEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get a session
//	@Description	Snapshot of ideas, batch, progress and step reachability
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	wizard.View
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/sessions/{id} [get]
func (e *GetSessionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(w, r)
	if sess == nil {
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (e *GetSessionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <session-id>",
		Short: "Get a session snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp wizard.View
			if err := client.Get(cmd.Context(), "/api/sessions/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// DeleteSessionEndpoint handles DELETE /api/sessions/{id}.
type DeleteSessionEndpoint struct{}

func (e *DeleteSessionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/sessions/{id}", e.handler
}

func (e *DeleteSessionEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Delete a session
//	@Description	Cancels the session's running job and forgets the session
//	@Tags			sessions
//	@Param			id	path	string	true	"Session ID"
//	@Success		204
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/sessions/{id} [delete]
func (e *DeleteSessionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(w, r)
	if sess == nil {
		return
	}
	jm := svcctx.JobManagerFrom(r.Context())
	if rec, ok := jm.Active(sess.ID); ok {
		if err := jm.Cancel(rec.ID); err != nil {
			writeErr(w, err)
			return
		}
	}
	svcctx.SessionsFrom(r.Context()).Delete(sess.ID)
	if h := svcctx.ServicesFrom(r.Context()).Handoff; h != nil {
		h.Take(sess.ID)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (e *DeleteSessionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/sessions/"+args[0]); err != nil {
				return err
			}
			fmt.Printf("Session %s deleted\n", args[0])
			return nil
		},
	}
}

// SetBookTypeRequest is the request body for choosing a book type.
type SetBookTypeRequest struct {
	BookType string `json:"book_type"`
}

// SetBookTypeEndpoint handles PUT /api/sessions/{id}/book-type.
type SetBookTypeEndpoint struct{}

func (e *SetBookTypeEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/api/sessions/{id}/book-type", e.handler
}

func (e *SetBookTypeEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Choose the book type
//	@Description	First step of the single-book flow
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Session ID"
//	@Param			request	body		SetBookTypeRequest	true	"Book type (scenes or quotes)"
//	@Success		200		{object}	wizard.View
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/sessions/{id}/book-type [put]
func (e *SetBookTypeEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(w, r)
	if sess == nil {
		return
	}
	var req SetBookTypeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t, err := book.ParseBookType(req.BookType)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := sess.SetBookType(t); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (e *SetBookTypeEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "book-type <session-id> <scenes|quotes>",
		Short: "Choose the book type of a single-book session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp wizard.View
			path := "/api/sessions/" + args[0] + "/book-type"
			if err := client.Put(cmd.Context(), path, SetBookTypeRequest{BookType: args[1]}, &resp); err != nil {
				return err
			}
			return api.Output(resp.Steps)
		},
	}
}

// StepsResponse is the reachability table of a session.
type StepsResponse struct {
	Flow  wizard.Flow         `json:"flow"`
	Steps []wizard.StepStatus `json:"steps"`
}

// StepsEndpoint handles GET /api/sessions/{id}/steps.
type StepsEndpoint struct{}

func (e *StepsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions/{id}/steps", e.handler
}

func (e *StepsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Step reachability
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	StepsResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/sessions/{id}/steps [get]
func (e *StepsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(w, r)
	if sess == nil {
		return
	}
	writeJSON(w, http.StatusOK, StepsResponse{Flow: sess.Flow, Steps: sess.Steps()})
}

func (e *StepsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "steps <session-id>",
		Short: "Show which wizard steps are reachable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StepsResponse
			if err := client.Get(cmd.Context(), "/api/sessions/"+args[0]+"/steps", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// ProgressResponse is the progress of a session's batch plus its running job.
type ProgressResponse struct {
	progress.Summary
	JobID string `json:"job_id,omitempty"`
}

// ProgressEndpoint handles GET /api/sessions/{id}/progress.
type ProgressEndpoint struct{}

func (e *ProgressEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions/{id}/progress", e.handler
}

func (e *ProgressEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Batch progress
//	@Description	Status counts, completion percentage, average duration and ETA
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	ProgressResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/sessions/{id}/progress [get]
func (e *ProgressEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(w, r)
	if sess == nil {
		return
	}
	resp := ProgressResponse{Summary: progress.Summarize(sess.Store.Snapshot())}
	if rec, ok := svcctx.JobManagerFrom(r.Context()).Active(sess.ID); ok {
		resp.JobID = rec.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *ProgressEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "progress <session-id>",
		Short: "Show batch progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ProgressResponse
			if err := client.Get(cmd.Context(), "/api/sessions/"+args[0]+"/progress", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
