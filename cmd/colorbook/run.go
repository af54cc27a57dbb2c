package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/colorbook/internal/api"
	"github.com/jackzampolin/colorbook/internal/book"
	"github.com/jackzampolin/colorbook/internal/config"
	"github.com/jackzampolin/colorbook/internal/export"
	"github.com/jackzampolin/colorbook/internal/home"
	"github.com/jackzampolin/colorbook/internal/jobs"
	"github.com/jackzampolin/colorbook/internal/pipeline"
	"github.com/jackzampolin/colorbook/internal/progress"
	"github.com/jackzampolin/colorbook/internal/server/endpoints"
	"github.com/jackzampolin/colorbook/internal/studio"
	"github.com/jackzampolin/colorbook/internal/svcctx"
	"github.com/jackzampolin/colorbook/internal/wizard"
)

// runOptions selects the ideas and the export format of a headless run.
type runOptions struct {
	IdeasFile string
	Count     int
	Themes    []string
	BookType  string
	Format    string
	NoExport  bool
}

// runResult is printed when a headless run finishes.
type runResult struct {
	BatchID   string            `json:"batch_id" yaml:"batch_id"`
	JobStatus jobs.Status       `json:"job_status" yaml:"job_status"`
	Progress  progress.Summary  `json:"progress" yaml:"progress"`
	Reports   []pipeline.Report `json:"reports" yaml:"reports"`
	Exports   []export.Result   `json:"exports,omitempty" yaml:"exports,omitempty"`
	IdeasFile string            `json:"ideas_file" yaml:"ideas_file"`
	Ledger    string            `json:"ledger,omitempty" yaml:"ledger,omitempty"`
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a whole batch without the server",
	Long: `Run every stage over a batch and export each book.

Ideas come from --ideas, a YAML file of the form

  ideas:
    - title: Ocean Friends
      concept: Sea animals at play
      page_count: 8

or are generated by the studio when --ideas is not given. The ideas of the
batch are saved next to its exports so the run can be repeated, and the run
ledger is written as Parquet under the reports directory.

Ctrl+C cancels the run after the pages in flight finish; the ledger is still
written.

Examples:
  colorbook run --ideas ideas.yaml
  colorbook run --count 3 --theme dinosaurs --theme space
  colorbook run --ideas ideas.yaml --format zip`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger()
		if err != nil {
			return err
		}
		h, err := openHome()
		if err != nil {
			return err
		}
		cm, err := loadConfig(h)
		if err != nil {
			return err
		}
		res, err := runBatch(cmd.Context(), cm, h, logger, runOpts)
		if res != nil {
			if oerr := api.Output(res); oerr != nil {
				return oerr
			}
		}
		return err
	},
}

func init() {
	runCmd.Flags().StringVar(&runOpts.IdeasFile, "ideas", "", "YAML file of book ideas")
	runCmd.Flags().IntVar(&runOpts.Count, "count", 0, "Ideas to generate when --ideas is not set (default: defaults.idea_count)")
	runCmd.Flags().StringSliceVar(&runOpts.Themes, "theme", nil, "Theme for generated ideas (repeatable)")
	runCmd.Flags().StringVar(&runOpts.BookType, "book-type", "", "Book type for generated ideas: scenes or quotes")
	runCmd.Flags().StringVar(&runOpts.Format, "format", export.FormatPDF, "Export format: pdf or zip")
	runCmd.Flags().BoolVar(&runOpts.NoExport, "no-export", false, "Skip exporting books")

	rootCmd.AddCommand(runCmd)
}

// logBatchProgress returns a store observer that logs a line whenever the
// batch status changes or another page completes.
func logBatchProgress(logger *slog.Logger) func(*book.Batch) {
	var lastStatus book.BatchStatus
	lastCompleted := -1
	return func(b *book.Batch) {
		sum := progress.Summarize(b)
		if b.Status == lastStatus && sum.Completed == lastCompleted {
			return
		}
		lastStatus, lastCompleted = b.Status, sum.Completed
		args := []any{"status", b.Status, "completed", sum.Completed, "total", sum.Total, "percent", sum.Percent}
		if sum.ETA != "" {
			args = append(args, "eta", sum.ETA)
		}
		logger.Info("batch progress", args...)
	}
}

// runBatch drives one batch through every stage, then exports its books
// and writes the run ledger. The result is returned even when the run was
// cancelled or failed.
func runBatch(ctx context.Context, cm *config.Manager, h *home.Dir, logger *slog.Logger, opts runOptions) (*runResult, error) {
	if opts.Format != export.FormatPDF && opts.Format != export.FormatZIP {
		return nil, fmt.Errorf("unknown format %q (want pdf or zip)", opts.Format)
	}
	cfg := cm.Get()
	st, err := svcctx.NewStudio(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create studio client: %w", err)
	}
	svc := &svcctx.Services{
		Config:   cm,
		Home:     h,
		Logger:   logger,
		Studio:   st,
		Exporter: &export.Exporter{Studio: st, Dir: h.ExportsDir(), Logger: logger},
	}

	ideas, err := runIdeas(ctx, st, cfg.Defaults, opts)
	if err != nil {
		return nil, err
	}
	sess := wizard.NewSession(wizard.FlowBulk)
	if err := sess.SetIdeas(ideas); err != nil {
		return nil, err
	}
	b, err := sess.CreateBatch()
	if err != nil {
		return nil, err
	}
	logger.Info("batch created", "batch_id", b.ID, "books", len(b.Books), "pages", b.TotalPages)
	sess.Store.OnChange(logBatchProgress(logger))

	res := &runResult{BatchID: b.ID, IdeasFile: h.IdeasPath(b.ID)}
	if err := saveIdeas(res.IdeasFile, sess.Ideas()); err != nil {
		return nil, err
	}

	jm := jobs.NewManager(logger)
	job := jobs.NewPipelineJob(svc.SchedulerFor(sess), svc.Stages())
	rec, err := jm.Submit(sess.ID, job)
	if err != nil {
		return nil, err
	}
	final, runErr := jm.Wait(ctx, rec.ID)
	if runErr != nil {
		// Interrupted: stop the job and keep what finished.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		if err := jm.Shutdown(shutdownCtx); err != nil {
			logger.Error("job shutdown error", "error", err)
		}
		cancel()
		if final, err = jm.Get(context.Background(), rec.ID); err != nil {
			return nil, err
		}
	}
	res.JobStatus = final.Status
	res.Reports = job.Reports()

	snap := sess.Store.Snapshot()
	res.Progress = progress.Summarize(snap)

	if !opts.NoExport && runErr == nil {
		for i := range snap.Books {
			r, err := exportBook(ctx, svc, &snap.Books[i], opts.Format)
			if errors.Is(err, export.ErrNoPages) {
				logger.Warn("skipping export", "book", snap.Books[i].Title, "reason", err)
				continue
			}
			if err != nil {
				return res, err
			}
			res.Exports = append(res.Exports, *r)
		}
	}

	if l := sess.Ledger(); l != nil && l.Len() > 0 {
		path, err := l.Write(h.ReportsDir(), time.Now())
		if err != nil {
			return res, err
		}
		res.Ledger = path
	}

	switch {
	case runErr != nil:
		return res, runErr
	case final.Status == jobs.StatusFailed:
		return res, fmt.Errorf("pipeline failed: %s", final.Error)
	}
	return res, nil
}

// runIdeas loads the ideas file, or generates approved ideas.
func runIdeas(ctx context.Context, st *studio.Client, defaults config.DefaultsCfg, opts runOptions) ([]book.BookIdea, error) {
	if opts.IdeasFile != "" {
		return wizard.LoadIdeas(opts.IdeasFile)
	}

	count := opts.Count
	if count <= 0 {
		count = defaults.IdeaCount
	}
	bookType := opts.BookType
	if bookType == "" {
		bookType = defaults.BookType
	}
	t, err := book.ParseBookType(bookType)
	if err != nil {
		return nil, err
	}
	generated, err := st.GenerateIdeas(ctx, studio.IdeasRequest{
		Count:     count,
		Themes:    opts.Themes,
		TargetAge: defaults.Audience,
		BookType:  string(t),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate ideas: %w", err)
	}
	ideas := make([]book.BookIdea, 0, len(generated))
	for _, g := range generated {
		idea := wizard.IdeaFromStudio(g)
		if g.PageCount <= 0 && defaults.PageCount > 0 {
			idea.PageCount = min(defaults.PageCount, book.MaxPageCount)
		}
		idea.Type = t
		idea.Approved = true
		ideas = append(ideas, idea)
	}
	return ideas, nil
}

func saveIdeas(path string, ideas []book.BookIdea) error {
	data, err := wizard.WriteIdeas(ideas)
	if err != nil {
		return fmt.Errorf("failed to encode ideas: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func exportBook(ctx context.Context, svc *svcctx.Services, bk *book.Book, format string) (*export.Result, error) {
	if format == export.FormatZIP {
		return svc.Exporter.ZIP(ctx, bk)
	}
	return svc.Exporter.PDF(ctx, bk, endpoints.PDFOptionsFromConfig(svc.Config.Get().Export))
}
