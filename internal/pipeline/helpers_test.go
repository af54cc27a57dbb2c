package pipeline

import (
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackzampolin/colorbook/internal/book"
	"github.com/jackzampolin/colorbook/internal/studio"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// newTestBatch builds a batch of books with prompts ready for image generation.
func newTestBatch(t *testing.T, mode book.BookMode, pageCounts ...int) *book.Batch {
	t.Helper()
	ideas := make([]book.BookIdea, len(pageCounts))
	for i, n := range pageCounts {
		ideas[i] = book.NewBookIdea()
		ideas[i].Title = fmt.Sprintf("Book %d", i+1)
		ideas[i].Concept = "dinosaurs"
		ideas[i].Mode = mode
		ideas[i].PageCount = n
		ideas[i].Approved = true
	}
	b, err := book.BatchFromIdeas(ideas)
	if err != nil {
		t.Fatalf("BatchFromIdeas() error = %v", err)
	}
	for i := range b.Books {
		b.Books[i].Status = book.BookPlanned
		for j := range b.Books[i].Pages {
			p := &b.Books[i].Pages[j]
			p.IdeaText = fmt.Sprintf("idea %d", p.Index)
			p.FinalPrompt = fmt.Sprintf("prompt %d", p.Index)
			p.PromptStatus = book.PromptReady
		}
	}
	return b
}

func newMockClient(t *testing.T, m *studio.MockServer) *studio.Client {
	t.Helper()
	c, err := studio.NewClient(studio.Config{
		BaseURL:     m.URL(),
		MaxAttempts: 1,
		RetryDelay:  time.Millisecond,
		Logger:      discardLogger,
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func newTestScheduler(store *Store) *Scheduler {
	s := NewScheduler(&Runner{Store: store, Logger: discardLogger}, discardLogger)
	s.Delays = nil
	return s
}

func pagesOf(b *book.Batch) []book.Page {
	var out []book.Page
	b.ForEachPage(func(_ *book.Book, p *book.Page) {
		out = append(out, *p)
	})
	return out
}
