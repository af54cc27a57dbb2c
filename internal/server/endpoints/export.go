package endpoints

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/colorbook/internal/api"
	"github.com/jackzampolin/colorbook/internal/book"
	"github.com/jackzampolin/colorbook/internal/config"
	"github.com/jackzampolin/colorbook/internal/export"
	"github.com/jackzampolin/colorbook/internal/studio"
	"github.com/jackzampolin/colorbook/internal/svcctx"
	"github.com/jackzampolin/colorbook/internal/wizard"
)

// ExportRequest selects the format of a book export. Nil PDF toggles use
// the configured export defaults.
type ExportRequest struct {
	Format           string  `json:"format"`
	IncludeTitlePage *bool   `json:"include_title_page,omitempty"`
	IncludeCopyright *bool   `json:"include_copyright_page,omitempty"`
	IncludeBelongsTo *bool   `json:"include_belongs_to_page,omitempty"`
	InsertBlankPages *bool   `json:"insert_blank_pages,omitempty"`
	Author           *string `json:"author,omitempty"`
	CopyrightText    *string `json:"copyright_text,omitempty"`
}

// PDFOptions merges the request over the configured defaults.
func (r ExportRequest) PDFOptions(cfg config.ExportCfg) export.PDFOptions {
	opts := PDFOptionsFromConfig(cfg)
	if r.IncludeTitlePage != nil {
		opts.IncludeTitlePage = *r.IncludeTitlePage
	}
	if r.IncludeCopyright != nil {
		opts.IncludeCopyright = *r.IncludeCopyright
	}
	if r.IncludeBelongsTo != nil {
		opts.IncludeBelongsTo = *r.IncludeBelongsTo
	}
	if r.InsertBlankPages != nil {
		opts.InsertBlankPages = *r.InsertBlankPages
	}
	if r.Author != nil {
		opts.Author = *r.Author
	}
	if r.CopyrightText != nil {
		opts.CopyrightText = *r.CopyrightText
	}
	return opts
}

// PDFOptionsFromConfig returns the configured PDF front matter.
func PDFOptionsFromConfig(cfg config.ExportCfg) export.PDFOptions {
	return export.PDFOptions{
		IncludeTitlePage: cfg.IncludeTitlePage,
		IncludeCopyright: cfg.IncludeCopyright,
		IncludeBelongsTo: cfg.IncludeBelongsTo,
		InsertBlankPages: cfg.InsertBlankPages,
		Author:           cfg.Author,
		CopyrightText:    cfg.CopyrightText,
	}
}

// bookFrom finds {book_id} in the session's batch.
func bookFrom(sess *wizard.Session, bookID string) (*book.Book, bool) {
	b := sess.Store.Snapshot()
	if b == nil {
		return nil, false
	}
	i, ok := b.BookByID(bookID)
	if !ok {
		return nil, false
	}
	return &b.Books[i], true
}

// ExportBookEndpoint handles POST /api/sessions/{id}/books/{book_id}/export.
type ExportBookEndpoint struct{}

func (e *ExportBookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/books/{book_id}/export", e.handler
}

func (e *ExportBookEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Export a book
//	@Description	Builds a PDF or a ZIP of page images and writes it under the exports directory
//	@Tags			export
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session ID"
//	@Param			book_id	path		string			true	"Book ID"
//	@Param			request	body		ExportRequest	false	"Format (pdf or zip) and PDF options"
//	@Success		200		{object}	export.Result
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Router			/api/sessions/{id}/books/{book_id}/export [post]
func (e *ExportBookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(w, r)
	if sess == nil {
		return
	}
	req := ExportRequest{Format: export.FormatPDF}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	bookID := r.PathValue("book_id")
	bk, ok := bookFrom(sess, bookID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("book %s not found", bookID))
		return
	}

	svc := svcctx.ServicesFrom(r.Context())
	var res *export.Result
	var err error
	switch req.Format {
	case export.FormatPDF, "":
		res, err = svc.Exporter.PDF(r.Context(), bk, req.PDFOptions(svc.Config.Get().Export))
	case export.FormatZIP:
		res, err = svc.Exporter.ZIP(r.Context(), bk)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown format %q (want pdf or zip)", req.Format))
		return
	}
	if err != nil {
		if errors.Is(err, export.ErrNoPages) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (e *ExportBookEndpoint) Command(getServerURL func() string) *cobra.Command {
	var format string
	var blank bool
	cmd := &cobra.Command{
		Use:   "export <session-id> <book-id>",
		Short: "Export a book as PDF or ZIP",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			req := ExportRequest{Format: format}
			if cmd.Flags().Changed("blank-pages") {
				req.InsertBlankPages = &blank
			}
			var resp export.Result
			if err := client.Post(cmd.Context(), "/api/sessions/"+args[0]+"/books/"+args[1]+"/export", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&format, "format", export.FormatPDF, "Export format: pdf or zip")
	cmd.Flags().BoolVar(&blank, "blank-pages", false, "Insert a blank page after every image")
	return cmd
}

// HandoffRequest stores an export bundle. When BookID is set the bundle is
// built from that book's active images and Pages is ignored.
type HandoffRequest struct {
	BookID string              `json:"book_id,omitempty"`
	Pages  []studio.ExportPage `json:"pages,omitempty"`
}

// PutHandoffEndpoint handles PUT /api/sessions/{id}/handoff.
type PutHandoffEndpoint struct{}

func (e *PutHandoffEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/api/sessions/{id}/handoff", e.handler
}

func (e *PutHandoffEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Store an export hand-off
//	@Description	Keeps the pages to export for the configured hand-off lifetime
//	@Tags			export
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session ID"
//	@Param			request	body		HandoffRequest	true	"Book or pages"
//	@Success		200		{object}	export.Bundle
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/sessions/{id}/handoff [put]
func (e *PutHandoffEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(w, r)
	if sess == nil {
		return
	}
	var req HandoffRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	bundle := export.Bundle{Pages: req.Pages}
	if req.BookID != "" {
		bk, ok := bookFrom(sess, req.BookID)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("book %s not found", req.BookID))
			return
		}
		bundle.Pages = export.Pages(bk)
	}
	if len(bundle.Pages) == 0 {
		writeError(w, http.StatusBadRequest, export.ErrNoPages.Error())
		return
	}
	svcctx.ServicesFrom(r.Context()).Handoff.Put(sess.ID, bundle)
	writeJSON(w, http.StatusOK, bundle)
}

func (e *PutHandoffEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "handoff-put <session-id> <book-id>",
		Short: "Hand a book's pages to the export step",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp export.Bundle
			if err := client.Put(cmd.Context(), "/api/sessions/"+args[0]+"/handoff", HandoffRequest{BookID: args[1]}, &resp); err != nil {
				return err
			}
			fmt.Printf("Handed off %d pages\n", len(resp.Pages))
			return nil
		},
	}
}

// GetHandoffEndpoint handles GET /api/sessions/{id}/handoff.
type GetHandoffEndpoint struct{}

func (e *GetHandoffEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions/{id}/handoff", e.handler
}

func (e *GetHandoffEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Read the export hand-off
//	@Tags			export
//	@Produce		json
//	@Param			id		path		string	true	"Session ID"
//	@Param			take	query		bool	false	"Remove the bundle after reading it"
//	@Success		200		{object}	export.Bundle
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/sessions/{id}/handoff [get]
func (e *GetHandoffEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(w, r)
	if sess == nil {
		return
	}
	h := svcctx.ServicesFrom(r.Context()).Handoff
	var bundle export.Bundle
	var ok bool
	if r.URL.Query().Get("take") == "true" {
		bundle, ok = h.Take(sess.ID)
	} else {
		bundle, ok = h.Get(sess.ID)
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no hand-off for this session")
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

func (e *GetHandoffEndpoint) Command(getServerURL func() string) *cobra.Command {
	var take bool
	cmd := &cobra.Command{
		Use:   "handoff <session-id>",
		Short: "Show the pages handed to the export step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			path := "/api/sessions/" + args[0] + "/handoff"
			if take {
				path += "?take=true"
			}
			var resp export.Bundle
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			for _, p := range resp.Pages {
				fmt.Printf("page %d: %s (%d base64 bytes)\n", p.Index, p.Title, len(p.ImageBase64))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&take, "take", false, "Remove the hand-off after reading it")
	return cmd
}
