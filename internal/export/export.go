// Package export packages a finished book as a PDF or a ZIP of page images.
// Assembly happens on the remote service; this package selects the pages,
// checks the returned artifact, and writes it under the exports directory.
package export

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/jackzampolin/colorbook/internal/book"
	"github.com/jackzampolin/colorbook/internal/studio"
)

// Formats.
const (
	FormatPDF = "pdf"
	FormatZIP = "zip"
)

// ErrNoPages is returned when a book has no page with an image.
var ErrNoPages = errors.New("no generated pages")

// Studio is the subset of the remote service used for exports.
type Studio interface {
	ExportPDF(ctx context.Context, req studio.PDFRequest) (*studio.PDFResult, error)
	ExportZIP(ctx context.Context, req studio.ZIPRequest) (*studio.ZIPResult, error)
}

// PDFOptions are the front-matter toggles of a PDF export.
type PDFOptions struct {
	IncludeTitlePage bool   `json:"include_title_page"`
	IncludeCopyright bool   `json:"include_copyright_page"`
	IncludeBelongsTo bool   `json:"include_belongs_to_page"`
	InsertBlankPages bool   `json:"insert_blank_pages"`
	Author           string `json:"author,omitempty"`
	CopyrightText    string `json:"copyright_text,omitempty"`
}

// Result describes a written export.
type Result struct {
	Format string `json:"format"`
	Path   string `json:"path"`
	Bytes  int    `json:"bytes"`
	Pages  int    `json:"pages"`
}

// Exporter writes exports to Dir/<batch id>/.
type Exporter struct {
	Studio Studio
	Dir    string
	Logger *slog.Logger
}

// Pages returns the pages of a book that have an image, in index order,
// each carrying its active version.
func Pages(bk *book.Book) []studio.ExportPage {
	pages := make([]studio.ExportPage, 0, len(bk.Pages))
	for i := range bk.Pages {
		p := &bk.Pages[i]
		img := p.ActiveImage()
		if len(img) == 0 {
			continue
		}
		pages = append(pages, studio.ExportPage{
			Index:       p.Index,
			ImageBase64: studio.EncodeImage(img),
			Title:       bk.Title,
			Prompt:      p.FinalPrompt,
		})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Index < pages[j].Index })
	return pages
}

// PDF exports bk as a printable PDF.
func (e *Exporter) PDF(ctx context.Context, bk *book.Book, opts PDFOptions) (*Result, error) {
	pages := Pages(bk)
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: book %q", ErrNoPages, bk.Title)
	}

	res, err := e.Studio.ExportPDF(ctx, studio.PDFRequest{
		Pages:            pages,
		IncludeTitlePage: opts.IncludeTitlePage,
		IncludeCopyright: opts.IncludeCopyright,
		IncludeBelongsTo: opts.IncludeBelongsTo,
		InsertBlankPages: opts.InsertBlankPages,
		Title:            bk.Title,
		Author:           opts.Author,
		CopyrightText:    opts.CopyrightText,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to export pdf: %w", err)
	}

	count, err := PDFPageCount(res.PDF)
	if err != nil {
		return nil, err
	}
	if res.TotalPages > 0 && count != res.TotalPages {
		return nil, fmt.Errorf("pdf has %d pages, service reported %d", count, res.TotalPages)
	}

	path, err := e.write(bk, FormatPDF, res.PDF)
	if err != nil {
		return nil, err
	}
	e.logger().Info("exported pdf", "book", bk.Title, "pages", count, "path", path)
	return &Result{Format: FormatPDF, Path: path, Bytes: len(res.PDF), Pages: count}, nil
}

// ZIP exports the page images of bk as an archive.
func (e *Exporter) ZIP(ctx context.Context, bk *book.Book) (*Result, error) {
	pages := Pages(bk)
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: book %q", ErrNoPages, bk.Title)
	}

	res, err := e.Studio.ExportZIP(ctx, studio.ZIPRequest{Pages: pages})
	if err != nil {
		return nil, fmt.Errorf("failed to export zip: %w", err)
	}

	entries, err := ZIPEntryCount(res.ZIP)
	if err != nil {
		return nil, err
	}
	if res.ProcessedPages > 0 && entries < res.ProcessedPages {
		return nil, fmt.Errorf("zip has %d entries, service reported %d pages", entries, res.ProcessedPages)
	}

	path, err := e.write(bk, FormatZIP, res.ZIP)
	if err != nil {
		return nil, err
	}
	e.logger().Info("exported zip", "book", bk.Title, "entries", entries, "path", path)
	return &Result{Format: FormatZIP, Path: path, Bytes: len(res.ZIP), Pages: entries}, nil
}

// PDFPageCount parses a PDF and returns its page count.
func PDFPageCount(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	n, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("invalid pdf: %w", err)
	}
	return n, nil
}

// ZIPEntryCount opens an archive and counts its file entries.
func ZIPEntryCount(data []byte) (int, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid zip: %w", err)
	}
	n := 0
	for _, f := range zr.File {
		if !f.FileInfo().IsDir() {
			n++
		}
	}
	return n, nil
}

func (e *Exporter) write(bk *book.Book, format string, data []byte) (string, error) {
	dir := filepath.Join(e.Dir, bk.BatchID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(dir, FileName(bk)+"."+format)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}

func (e *Exporter) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug makes a file-name-safe form of a title. Accents are folded to their
// base letter; a title with no Latin letters or digits slugs to "book".
func Slug(title string) string {
	// A Chain keeps buffers, so each call builds its own.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripMarks, title)
	if err != nil {
		folded = title
	}
	s := nonSlug.ReplaceAllString(strings.ToLower(folded), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "book"
	}
	return s
}

// FileName is the export base name of a book: its slug plus a short form of
// its id, so books sharing a title do not overwrite each other.
func FileName(bk *book.Book) string {
	id := nonSlug.ReplaceAllString(strings.ToLower(bk.ID), "")
	if len(id) > 8 {
		id = id[:8]
	}
	if id == "" {
		return Slug(bk.Title)
	}
	return Slug(bk.Title) + "-" + id
}
