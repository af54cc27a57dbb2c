package endpoints

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/colorbook/internal/api"
	"github.com/jackzampolin/colorbook/internal/book"
	"github.com/jackzampolin/colorbook/internal/studio"
	"github.com/jackzampolin/colorbook/internal/svcctx"
	"github.com/jackzampolin/colorbook/internal/wizard"
)

// GenerateIdeasRequest is the request body for idea generation. Zero values
// fall back to the configured defaults.
type GenerateIdeasRequest struct {
	Count     int      `json:"count,omitempty"`
	Themes    []string `json:"themes,omitempty"`
	TargetAge string   `json:"target_age,omitempty"`
	BookType  string   `json:"book_type,omitempty"`
}

// IdeasResponse lists a session's ideas.
type IdeasResponse struct {
	Ideas []book.BookIdea `json:"ideas"`
	Added int             `json:"added,omitempty"`
}

// GenerateIdeasEndpoint handles POST /api/sessions/{id}/ideas/generate.
type GenerateIdeasEndpoint struct{}

func (e *GenerateIdeasEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/ideas/generate", e.handler
}

func (e *GenerateIdeasEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Generate book ideas
//	@Description	Calls the remote idea generator and appends the results, unapproved
//	@Tags			ideas
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Session ID"
//	@Param			request	body		GenerateIdeasRequest	false	"Generation options"
//	@Success		200		{object}	IdeasResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Router			/api/sessions/{id}/ideas/generate [post]
func (e *GenerateIdeasEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(w, r)
	if sess == nil {
		return
	}
	var req GenerateIdeasRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	defaults := svcctx.ConfigFrom(r.Context()).Get().Defaults
	if req.Count <= 0 {
		req.Count = defaults.IdeaCount
	}
	if req.TargetAge == "" {
		req.TargetAge = defaults.Audience
	}
	bookType := sess.BookType()
	if req.BookType != "" {
		t, err := book.ParseBookType(req.BookType)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		bookType = t
	}

	generated, err := svcctx.StudioFrom(r.Context()).GenerateIdeas(r.Context(), studio.IdeasRequest{
		Count:     req.Count,
		Themes:    req.Themes,
		TargetAge: req.TargetAge,
		BookType:  string(bookType),
	})
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	ideas := make([]book.BookIdea, 0, len(generated))
	for _, g := range generated {
		idea := wizard.IdeaFromStudio(g)
		if g.PageCount <= 0 && defaults.PageCount > 0 {
			idea.PageCount = min(defaults.PageCount, book.MaxPageCount)
		}
		if bookType != "" {
			idea.Type = bookType
		}
		ideas = append(ideas, idea)
	}
	if err := sess.AddIdeas(ideas...); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, IdeasResponse{Ideas: sess.Ideas(), Added: len(ideas)})
}

func (e *GenerateIdeasEndpoint) Command(getServerURL func() string) *cobra.Command {
	var req GenerateIdeasRequest
	cmd := &cobra.Command{
		Use:   "generate <session-id>",
		Short: "Generate book ideas for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp IdeasResponse
			if err := client.Post(cmd.Context(), "/api/sessions/"+args[0]+"/ideas/generate", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().IntVar(&req.Count, "count", 0, "Number of ideas (default from config)")
	cmd.Flags().StringSliceVar(&req.Themes, "theme", nil, "Theme hint (repeatable)")
	cmd.Flags().StringVar(&req.TargetAge, "audience", "", "Target audience: kids, teens, adults, all")
	cmd.Flags().StringVar(&req.BookType, "book-type", "", "Book type: scenes or quotes")
	return cmd
}

// SetIdeasRequest replaces a session's ideas.
type SetIdeasRequest struct {
	Ideas []book.BookIdea `json:"ideas"`
}

// SetIdeasEndpoint handles PUT /api/sessions/{id}/ideas.
type SetIdeasEndpoint struct{}

func (e *SetIdeasEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/api/sessions/{id}/ideas", e.handler
}

func (e *SetIdeasEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Replace ideas
//	@Description	Edit, approve or remove ideas by sending the full list
//	@Tags			ideas
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session ID"
//	@Param			request	body		SetIdeasRequest	true	"Ideas"
//	@Success		200		{object}	IdeasResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/sessions/{id}/ideas [put]
func (e *SetIdeasEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(w, r)
	if sess == nil {
		return
	}
	var req SetIdeasRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := sess.SetIdeas(req.Ideas); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, IdeasResponse{Ideas: sess.Ideas()})
}

func (e *SetIdeasEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "set <session-id> <ideas.yaml>",
		Short: "Replace a session's ideas from a YAML file",
		Long: `Replace a session's ideas from a YAML file of the form:

  ideas:
    - title: Ocean Friends
      concept: Sea animals at play
      page_count: 8

Ideas without an explicit approved flag are approved.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			ideas, err := wizard.ParseIdeas(data)
			if err != nil {
				return err
			}
			client := api.NewClient(getServerURL())
			var resp IdeasResponse
			if err := client.Put(cmd.Context(), "/api/sessions/"+args[0]+"/ideas", SetIdeasRequest{Ideas: ideas}, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// CreateBatchEndpoint handles POST /api/sessions/{id}/batch.
type CreateBatchEndpoint struct{}

func (e *CreateBatchEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/batch", e.handler
}

func (e *CreateBatchEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Create the batch
//	@Description	Turns the approved ideas into books, replacing any earlier batch
//	@Tags			ideas
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		201	{object}	book.Batch
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		409	{object}	ErrorResponse
//	@Router			/api/sessions/{id}/batch [post]
func (e *CreateBatchEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(w, r)
	if sess == nil {
		return
	}
	if rec, ok := svcctx.JobManagerFrom(r.Context()).Active(sess.ID); ok {
		writeError(w, http.StatusConflict, fmt.Sprintf("job %s is running", rec.ID))
		return
	}
	b, err := sess.CreateBatch()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if logger := svcctx.LoggerFrom(r.Context()); logger != nil {
		logger.Info("batch created", "session_id", sess.ID, "batch_id", b.ID, "books", len(b.Books), "pages", b.TotalPages)
	}
	writeJSON(w, http.StatusCreated, b)
}

func (e *CreateBatchEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "batch <session-id>",
		Short: "Create the batch from the approved ideas",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp book.Batch
			if err := client.Post(cmd.Context(), "/api/sessions/"+args[0]+"/batch", nil, &resp); err != nil {
				return err
			}
			fmt.Printf("Batch %s: %d books, %d pages\n", resp.ID, len(resp.Books), resp.TotalPages)
			return nil
		},
	}
}
