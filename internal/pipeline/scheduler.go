package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackzampolin/colorbook/internal/book"
)

// Report tallies the outcomes of one stage run.
type Report struct {
	Stage     string `json:"stage"`
	Attempted int    `json:"attempted"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
	Cancelled bool   `json:"cancelled"`
}

func (r *Report) add(o Outcome) {
	switch o.Status {
	case OutcomeDone:
		r.Attempted++
		r.Succeeded++
	case OutcomeFailed:
		r.Attempted++
		r.Failed++
	case OutcomeSkipped:
		r.Skipped++
	}
}

// Scheduler drives a stage over every item of the store's batch.
type Scheduler struct {
	Runner *Runner
	Logger *slog.Logger

	// BookConcurrency is the chunk size for book-level stages.
	BookConcurrency int
	// PageConcurrency is the chunk size for chunked page-level stages.
	PageConcurrency int
	// Delays between items of sequential stages, by stage name.
	Delays map[string]time.Duration
}

// NewScheduler returns a scheduler with the default chunk sizes.
func NewScheduler(r *Runner, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		Runner:          r,
		Logger:          logger,
		BookConcurrency: 3,
		PageConcurrency: 3,
		Delays: map[string]time.Duration{
			StageImages:  time.Second,
			StageEnhance: 500 * time.Millisecond,
		},
	}
}

type pageRef struct {
	bookID string
	pageID string
}

// RunStage runs st over the batch. Item failures are recorded on the items
// and tallied in the report; the returned error is ErrCancelled when ctl was
// cancelled, the context error, or a store error.
func (s *Scheduler) RunStage(ctx context.Context, st Stage, ctl *Control) (Report, error) {
	rep := Report{Stage: st.Name()}
	store := s.Runner.Store

	snap, err := store.Update(func(tx *Tx) error {
		b := tx.Batch()
		b.Status = book.BatchGenerating
		if b.StartedAt == nil {
			now := time.Now().UTC()
			b.StartedAt = &now
		}
		b.CompletedAt = nil
		return nil
	})
	if err != nil {
		return rep, err
	}

	// Registered after the start update so a control paused between stages
	// shows as paused rather than generating.
	ctl.Observe(func(paused bool) {
		status := book.BatchGenerating
		if paused {
			status = book.BatchPaused
		}
		if _, err := store.SetStatus(status); err != nil {
			s.Logger.Warn("failed to record pause state", "error", err)
		}
	})

	var mu sync.Mutex
	tally := func(o Outcome) {
		mu.Lock()
		rep.add(o)
		mu.Unlock()
	}

	s.Logger.Info("stage started", "stage", st.Name(), "mode", st.Mode().String(), "batch_id", snap.ID)

	switch st := st.(type) {
	case BookStage:
		ids := make([]string, 0, len(snap.Books))
		for i := range snap.Books {
			bk := &snap.Books[i]
			if st.Eligible(bk) {
				ids = append(ids, bk.ID)
			} else {
				tally(s.Runner.skip(Outcome{BatchID: snap.ID, BookID: bk.ID, Stage: st.Name()}))
			}
		}
		err = RunChunked(ctx, ids, s.BookConcurrency, ctl, func(ctx context.Context, id string) error {
			o, err := s.Runner.RunBook(ctx, st, id)
			if err != nil {
				return err
			}
			tally(o)
			return nil
		})

	case PageStage:
		var refs []pageRef
		snap.ForEachPage(func(bk *book.Book, p *book.Page) {
			if st.Eligible(bk, p) {
				refs = append(refs, pageRef{bookID: bk.ID, pageID: p.ID})
			} else {
				tally(s.Runner.skip(Outcome{
					BatchID:   snap.ID,
					BookID:    bk.ID,
					PageID:    p.ID,
					PageIndex: p.Index,
					Stage:     st.Name(),
				}))
			}
		})
		run := func(ctx context.Context, ref pageRef) error {
			o, err := s.Runner.RunPage(ctx, st, ref.bookID, ref.pageID)
			if err != nil {
				return err
			}
			tally(o)
			return nil
		}
		if st.Mode() == Sequential {
			err = RunSequential(ctx, refs, s.Delays[st.Name()], ctl, run)
		} else {
			err = RunChunked(ctx, refs, s.PageConcurrency, ctl, run)
		}

	default:
		err = fmt.Errorf("stage %q has no item type", st.Name())
	}

	rep.Cancelled = errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
	ctl.Observe(nil)
	if _, uerr := store.Update(func(tx *Tx) error {
		b := tx.Batch()
		if rep.Cancelled {
			b.Status = book.BatchIdle
			return nil
		}
		b.Status = book.BatchCompleted
		now := time.Now().UTC()
		b.CompletedAt = &now
		return nil
	}); uerr != nil && err == nil {
		err = uerr
	}

	s.Logger.Info("stage finished",
		"stage", st.Name(),
		"succeeded", rep.Succeeded,
		"failed", rep.Failed,
		"skipped", rep.Skipped,
		"cancelled", rep.Cancelled)
	return rep, err
}

// RetryFailed resets every item st failed back to st's initial status and
// returns how many were reset. Items in any other state are untouched.
func RetryFailed(store *Store, st Stage) (int, error) {
	n := 0
	_, err := store.Update(func(tx *Tx) error {
		switch st := st.(type) {
		case BookStage:
			for i := range tx.Batch().Books {
				bk, err := tx.Book(tx.Batch().Books[i].ID)
				if err != nil {
					return err
				}
				if st.Reset(bk) {
					n++
				}
			}
		case PageStage:
			tx.Pages(func(_ *book.Book, p *book.Page) {
				if st.Reset(p) {
					n++
				}
			})
		default:
			return fmt.Errorf("stage %q has no item type", st.Name())
		}
		return nil
	})
	return n, err
}

// Retry resets st's failures and reruns st over the batch.
func (s *Scheduler) Retry(ctx context.Context, st Stage, ctl *Control) (Report, error) {
	n, err := RetryFailed(s.Runner.Store, st)
	if err != nil {
		return Report{Stage: st.Name()}, err
	}
	s.Logger.Info("retrying failed items", "stage", st.Name(), "reset", n)
	return s.RunStage(ctx, st, ctl)
}

// RegeneratePage clears one page's artifacts and generates its image again.
func (s *Scheduler) RegeneratePage(ctx context.Context, st PageStage, pageID string) (Outcome, error) {
	var bookID string
	_, err := s.Runner.Store.Update(func(tx *Tx) error {
		bi, _, ok := tx.Batch().FindPage(pageID)
		if !ok {
			return fmt.Errorf("%w: page %s", ErrNotFound, pageID)
		}
		bookID = tx.Batch().Books[bi].ID
		_, p, err := tx.Page(bookID, pageID)
		if err != nil {
			return err
		}
		if p.Status.InFlight() {
			return fmt.Errorf("%w: page %d is %s", ErrBusy, p.Index, p.Status)
		}
		p.ClearArtifacts()
		p.Status = book.PageDraft
		p.Error = ""
		p.FailedStage = ""
		return nil
	})
	if err != nil {
		return Outcome{Stage: st.Name(), PageID: pageID}, err
	}
	return s.Runner.RunPage(ctx, st, bookID, pageID)
}

// RunAll runs every stage of the registry in dependency order, stopping at
// the first cancellation or error.
func (s *Scheduler) RunAll(ctx context.Context, reg *Registry, ctl *Control) ([]Report, error) {
	stages, err := reg.GetOrdered()
	if err != nil {
		return nil, err
	}
	reports := make([]Report, 0, len(stages))
	for _, st := range stages {
		rep, err := s.RunStage(ctx, st, ctl)
		reports = append(reports, rep)
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}
