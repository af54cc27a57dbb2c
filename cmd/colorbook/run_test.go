package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackzampolin/colorbook/internal/book"
	"github.com/jackzampolin/colorbook/internal/config"
	"github.com/jackzampolin/colorbook/internal/export"
	"github.com/jackzampolin/colorbook/internal/home"
	"github.com/jackzampolin/colorbook/internal/jobs"
	"github.com/jackzampolin/colorbook/internal/report"
	"github.com/jackzampolin/colorbook/internal/studio"
	"github.com/jackzampolin/colorbook/internal/wizard"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newRunFixture(t *testing.T) (*config.Manager, *home.Dir, *studio.MockServer) {
	t.Helper()
	mock := studio.NewMockServer()
	t.Cleanup(mock.Close)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	cfgYAML := "studio:\n" +
		"  base_url: " + mock.URL() + "\n" +
		"  max_attempts: 1\n" +
		"scheduler:\n" +
		"  image_delay_ms: 0\n" +
		"  enhance_delay_ms: 0\n" +
		"defaults:\n" +
		"  page_count: 2\n"
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	cm, err := config.NewManager(cfgPath)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	h, err := home.New(filepath.Join(dir, "home"))
	if err != nil {
		t.Fatalf("home.New() error = %v", err)
	}
	if err := h.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists() error = %v", err)
	}
	return cm, h, mock
}

func writeIdeasFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ideas.yaml")
	data := `ideas:
  - title: Ocean Friends
    concept: Sea animals at play
    page_count: 3
  - title: Garden Bugs
    concept: Insects in a flower garden
    page_count: 2
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestRunBatch_IdeasFile(t *testing.T) {
	cm, h, _ := newRunFixture(t)

	res, err := runBatch(context.Background(), cm, h, discardLogger, runOptions{
		IdeasFile: writeIdeasFile(t),
		Format:    export.FormatZIP,
	})
	if err != nil {
		t.Fatalf("runBatch() error = %v", err)
	}
	if res.JobStatus != jobs.StatusCompleted {
		t.Errorf("JobStatus = %s, want %s", res.JobStatus, jobs.StatusCompleted)
	}
	if len(res.Reports) != 4 {
		t.Errorf("got %d stage reports, want 4", len(res.Reports))
	}
	if res.Progress.Total != 5 || res.Progress.Completed != 5 {
		t.Errorf("progress = %d/%d, want 5/5", res.Progress.Completed, res.Progress.Total)
	}
	if len(res.Exports) != 2 {
		t.Fatalf("got %d exports, want 2", len(res.Exports))
	}
	for _, e := range res.Exports {
		if _, err := os.Stat(e.Path); err != nil {
			t.Errorf("export %s: %v", e.Path, err)
		}
	}

	t.Run("ideas saved", func(t *testing.T) {
		ideas, err := wizard.LoadIdeas(res.IdeasFile)
		if err != nil {
			t.Fatalf("LoadIdeas() error = %v", err)
		}
		if len(ideas) != 2 || ideas[0].Title != "Ocean Friends" {
			t.Errorf("saved ideas = %+v", ideas)
		}
	})

	t.Run("ledger written", func(t *testing.T) {
		rows, err := report.Read(res.Ledger)
		if err != nil {
			t.Fatalf("report.Read() error = %v", err)
		}
		// one plan row per book plus prompts, images and enhance per page
		if want := 2 + 3*5; len(rows) != want {
			t.Errorf("ledger has %d rows, want %d", len(rows), want)
		}
	})
}

func TestRunBatch_GeneratedIdeas(t *testing.T) {
	cm, h, mock := newRunFixture(t)

	res, err := runBatch(context.Background(), cm, h, discardLogger, runOptions{
		Count:    2,
		Themes:   []string{"space"},
		Format:   export.FormatPDF,
		NoExport: true,
	})
	if err != nil {
		t.Fatalf("runBatch() error = %v", err)
	}
	if got := mock.Calls(studio.PathIdeas); got != 1 {
		t.Errorf("ideas calls = %d, want 1", got)
	}
	if len(res.Exports) != 0 {
		t.Errorf("got %d exports with --no-export", len(res.Exports))
	}
	if res.Progress.Total == 0 {
		t.Error("batch has no pages")
	}
}

func TestRunBatch_FailedPageSkipsNothingElse(t *testing.T) {
	cm, h, mock := newRunFixture(t)
	mock.FailPage(2, "content policy")

	res, err := runBatch(context.Background(), cm, h, discardLogger, runOptions{
		IdeasFile: writeIdeasFile(t),
		Format:    export.FormatZIP,
	})
	if err != nil {
		t.Fatalf("runBatch() error = %v", err)
	}
	// page 2 of both books fails; every other page is generated
	if res.Progress.Completed != 3 {
		t.Errorf("completed = %d, want 3", res.Progress.Completed)
	}
	if len(res.Exports) != 2 {
		t.Errorf("got %d exports, want 2", len(res.Exports))
	}
}

func TestRunBatch_BadFormat(t *testing.T) {
	cm, h, _ := newRunFixture(t)
	if _, err := runBatch(context.Background(), cm, h, discardLogger, runOptions{Format: "epub"}); err == nil {
		t.Error("runBatch() with unknown format should fail")
	}
}

func TestLogBatchProgress(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	observe := logBatchProgress(logger)

	idea := book.NewBookIdea()
	idea.Title = "Ocean Friends"
	idea.PageCount = 2
	idea.Approved = true
	b, err := book.BatchFromIdeas([]book.BookIdea{idea})
	if err != nil {
		t.Fatalf("BatchFromIdeas() error = %v", err)
	}

	observe(b)
	observe(b)
	if n := strings.Count(buf.String(), "batch progress"); n != 1 {
		t.Fatalf("logged %d lines for an unchanged batch, want 1", n)
	}

	b.Status = book.BatchGenerating
	b.Books[0].Pages[0].Status = book.PageGenerated
	b.Recount()
	observe(b)
	if n := strings.Count(buf.String(), "batch progress"); n != 2 {
		t.Fatalf("logged %d lines, want 2", n)
	}
	if !strings.Contains(buf.String(), "completed=1") || !strings.Contains(buf.String(), "status=generating") {
		t.Errorf("log = %q, want completed=1 and status=generating", buf.String())
	}
}
