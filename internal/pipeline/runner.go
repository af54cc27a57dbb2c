package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackzampolin/colorbook/internal/book"
	"github.com/jackzampolin/colorbook/internal/studio"
)

// Outcome statuses.
const (
	OutcomeDone    = "done"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Outcome is the result of running one stage for one item.
type Outcome struct {
	BatchID   string
	BookID    string
	PageID    string // empty for book-level stages
	PageIndex int
	Stage     string
	Status    string
	Duration  time.Duration
	Error     string
	Warning   string
	At        time.Time
}

// Runner performs one remote operation for one item and records the
// transitions in the store. A failed remote call becomes item state; it is
// never returned as an error.
type Runner struct {
	Store  *Store
	Logger *slog.Logger

	// OnOutcome, if set, receives every outcome including skips.
	OnOutcome func(Outcome)

	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// RunPage runs st for one page. The returned error is non-nil only when the
// page cannot be found; remote failures are stored on the page.
func (r *Runner) RunPage(ctx context.Context, st PageStage, bookID, pageID string) (Outcome, error) {
	out := Outcome{BookID: bookID, PageID: pageID, Stage: st.Name()}

	var bkSnap book.Book
	var pSnap book.Page
	eligible := false
	snap, err := r.Store.Update(func(tx *Tx) error {
		bk, p, err := tx.Page(bookID, pageID)
		if err != nil {
			return err
		}
		if !st.Eligible(bk, p) {
			return nil
		}
		eligible = true
		st.Begin(p)
		bkSnap = *bk
		pSnap = *p
		return nil
	})
	if err != nil {
		return out, err
	}
	out.BatchID = snap.ID
	if !eligible {
		return r.skip(out), nil
	}
	out.PageIndex = pSnap.Index

	start := time.Now()
	merge, callErr := st.Call(ctx, &bkSnap, &pSnap)
	elapsed := time.Since(start)
	out.Duration = elapsed
	out.At = r.now()

	_, err = r.Store.Update(func(tx *Tx) error {
		_, p, err := tx.Page(bookID, pageID)
		if err != nil {
			return err
		}
		if callErr != nil {
			st.Fail(p)
			p.Error = errorText(callErr)
			p.FailedStage = st.Name()
			return nil
		}
		if merge != nil {
			merge(p)
		}
		st.Done(p, elapsed, out.At)
		out.Warning = p.Warning
		if st.Timed() {
			tx.AddSample(float64(elapsed.Milliseconds()))
		}
		return nil
	})
	if err != nil {
		return out, err
	}

	if callErr != nil {
		out.Status = OutcomeFailed
		out.Error = errorText(callErr)
		r.logger().Warn("stage failed", "stage", st.Name(), "book_id", bookID, "page", out.PageIndex, "error", callErr)
	} else {
		out.Status = OutcomeDone
		r.logger().Debug("stage done", "stage", st.Name(), "book_id", bookID, "page", out.PageIndex, "duration", elapsed)
	}
	r.emit(out)
	return out, nil
}

// RunBook runs a book-level stage for one book.
func (r *Runner) RunBook(ctx context.Context, st BookStage, bookID string) (Outcome, error) {
	out := Outcome{BookID: bookID, Stage: st.Name()}

	var bkSnap book.Book
	eligible := false
	snap, err := r.Store.Update(func(tx *Tx) error {
		bk, err := tx.Book(bookID)
		if err != nil {
			return err
		}
		if !st.Eligible(bk) {
			return nil
		}
		eligible = true
		st.Begin(bk)
		bk.Error = ""
		bkSnap = *bk
		return nil
	})
	if err != nil {
		return out, err
	}
	out.BatchID = snap.ID
	if !eligible {
		return r.skip(out), nil
	}

	start := time.Now()
	merge, callErr := st.Call(ctx, &bkSnap)
	out.Duration = time.Since(start)
	out.At = r.now()

	_, err = r.Store.Update(func(tx *Tx) error {
		bk, err := tx.Book(bookID)
		if err != nil {
			return err
		}
		if callErr != nil {
			st.Fail(bk)
			bk.Error = errorText(callErr)
			return nil
		}
		if merge != nil {
			merge(bk)
		}
		st.Done(bk)
		return nil
	})
	if err != nil {
		return out, err
	}

	if callErr != nil {
		out.Status = OutcomeFailed
		out.Error = errorText(callErr)
		r.logger().Warn("stage failed", "stage", st.Name(), "book_id", bookID, "error", callErr)
	} else {
		out.Status = OutcomeDone
		r.logger().Debug("stage done", "stage", st.Name(), "book_id", bookID, "duration", out.Duration)
	}
	r.emit(out)
	return out, nil
}

// skip records o as skipped and emits it.
func (r *Runner) skip(o Outcome) Outcome {
	o.Status = OutcomeSkipped
	o.At = r.now()
	r.emit(o)
	return o
}

func (r *Runner) emit(o Outcome) {
	if r.OnOutcome != nil {
		r.OnOutcome(o)
	}
}

// errorText is the message stored on a failed item.
func errorText(err error) string {
	var se *studio.Error
	if errors.As(err, &se) {
		return se.Message
	}
	return studio.Truncate(err.Error(), 200)
}
