package endpoints

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/colorbook/internal/api"
	"github.com/jackzampolin/colorbook/internal/book"
	"github.com/jackzampolin/colorbook/internal/pipeline"
)

// writePageErr answers 404 for unknown pages and 400 for refused changes.
func writePageErr(w http.ResponseWriter, err error) {
	if errors.Is(err, pipeline.ErrNotFound) || errors.Is(err, pipeline.ErrNoBatch) || errors.Is(err, pipeline.ErrBusy) {
		writeErr(w, err)
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

// pageFrom finds {page_id} in the snapshot.
func pageFrom(b *book.Batch, pageID string) (*book.Page, bool) {
	if b == nil {
		return nil, false
	}
	bi, pi, ok := b.FindPage(pageID)
	if !ok {
		return nil, false
	}
	return &b.Books[bi].Pages[pi], true
}

// ApprovePageEndpoint handles POST /api/sessions/{id}/pages/{page_id}/approve.
type ApprovePageEndpoint struct{}

func (e *ApprovePageEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/pages/{page_id}/approve", e.handler
}

func (e *ApprovePageEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Approve a page
//	@Tags			pages
//	@Produce		json
//	@Param			id		path		string	true	"Session ID"
//	@Param			page_id	path		string	true	"Page ID"
//	@Success		200		{object}	book.Page
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/sessions/{id}/pages/{page_id}/approve [post]
func (e *ApprovePageEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(w, r)
	if sess == nil {
		return
	}
	pageID := r.PathValue("page_id")
	if err := sess.ApprovePage(pageID); err != nil {
		writePageErr(w, err)
		return
	}
	p, _ := pageFrom(sess.Store.Snapshot(), pageID)
	writeJSON(w, http.StatusOK, p)
}

func (e *ApprovePageEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "approve <session-id> <page-id>",
		Short: "Approve a generated page",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp book.Page
			if err := client.Post(cmd.Context(), "/api/sessions/"+args[0]+"/pages/"+args[1]+"/approve", nil, &resp); err != nil {
				return err
			}
			fmt.Printf("Page %d: %s\n", resp.Index, resp.Status)
			return nil
		},
	}
}

// SelectVersionRequest chooses the displayed artifact of a page.
type SelectVersionRequest struct {
	Version book.ActiveVersion `json:"version"`
}

// SelectVersionEndpoint handles PUT /api/sessions/{id}/pages/{page_id}/version.
type SelectVersionEndpoint struct{}

func (e *SelectVersionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/api/sessions/{id}/pages/{page_id}/version", e.handler
}

func (e *SelectVersionEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Select a page version
//	@Description	Chooses original, enhanced or final_letter for display and export
//	@Tags			pages
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Session ID"
//	@Param			page_id	path		string					true	"Page ID"
//	@Param			request	body		SelectVersionRequest	true	"Version"
//	@Success		200		{object}	book.Page
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/sessions/{id}/pages/{page_id}/version [put]
func (e *SelectVersionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(w, r)
	if sess == nil {
		return
	}
	var req SelectVersionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pageID := r.PathValue("page_id")
	if err := sess.SelectVersion(pageID, req.Version); err != nil {
		writePageErr(w, err)
		return
	}
	p, _ := pageFrom(sess.Store.Snapshot(), pageID)
	writeJSON(w, http.StatusOK, p)
}

func (e *SelectVersionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "version <session-id> <page-id> <original|enhanced|final_letter>",
		Short: "Select which image of a page is displayed and exported",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp book.Page
			req := SelectVersionRequest{Version: book.ActiveVersion(args[2])}
			if err := client.Put(cmd.Context(), "/api/sessions/"+args[0]+"/pages/"+args[1]+"/version", req, &resp); err != nil {
				return err
			}
			fmt.Printf("Page %d: %s\n", resp.Index, resp.ActiveVersion)
			return nil
		},
	}
}

// PageImageEndpoint handles GET /api/sessions/{id}/pages/{page_id}/image.
type PageImageEndpoint struct{}

var _ api.Endpoint = (*PageImageEndpoint)(nil)

func (e *PageImageEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions/{id}/pages/{page_id}/image", e.handler
}

func (e *PageImageEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get page image
//	@Description	Get the active image of a page
//	@Tags			pages
//	@Produce		image/png
//	@Param			id		path		string	true	"Session ID"
//	@Param			page_id	path		string	true	"Page ID"
//	@Success		200		{file}		binary
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/sessions/{id}/pages/{page_id}/image [get]
func (e *PageImageEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(w, r)
	if sess == nil {
		return
	}
	pageID := r.PathValue("page_id")
	p, ok := pageFrom(sess.Store.Snapshot(), pageID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("page %s not found", pageID))
		return
	}
	img := p.ActiveImage()
	if len(img) == 0 {
		writeError(w, http.StatusNotFound, fmt.Sprintf("page %d has no image", p.Index))
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(img))
	w.Header().Set("X-Active-Version", string(p.ResolveActiveVersion()))
	w.WriteHeader(http.StatusOK)
	w.Write(img)
}

func (e *PageImageEndpoint) Command(getServerURL func() string) *cobra.Command {
	var outputFile string
	cmd := &cobra.Command{
		Use:   "image <session-id> <page-id>",
		Short: "Download the active image of a page",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			data, err := client.GetRaw(cmd.Context(), "/api/sessions/"+args[0]+"/pages/"+args[1]+"/image")
			if err != nil {
				return err
			}
			if outputFile == "" {
				outputFile = args[1] + ".png"
			}
			if err := os.WriteFile(outputFile, data, 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s (%d bytes)\n", outputFile, len(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputFile, "file", "f", "", "Output file (default: <page-id>.png)")
	return cmd
}
