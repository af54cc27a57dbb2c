package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jackzampolin/colorbook/internal/book"
	"github.com/jackzampolin/colorbook/internal/progress"
)

// Sentinel errors for the pipeline package.
var (
	// ErrNotFound is returned when a book or page id does not resolve.
	ErrNotFound = errors.New("not found")

	// ErrNoBatch is returned when the store holds no batch yet.
	ErrNoBatch = errors.New("no batch")

	// ErrBusy is returned when an item is in flight and cannot be changed.
	ErrBusy = errors.New("item is in flight")

	// ErrCancelled is returned by the scheduler when the control was cancelled.
	ErrCancelled = errors.New("cancelled")
)

// Store is the single writer of a batch.
//
// Every update produces a new *book.Batch; books and pages touched by the
// update are copied first, so a snapshot returned earlier never changes.
// Snapshots are shared and must be treated as read-only.
type Store struct {
	mu        sync.Mutex
	batch     *book.Batch
	observers []func(*book.Batch)
}

// NewStore creates a store. b may be nil until a batch is created.
func NewStore(b *book.Batch) *Store {
	s := &Store{}
	if b != nil {
		next := b.Clone()
		next.Recount()
		s.batch = next
	}
	return s
}

// Snapshot returns the current batch, or nil.
func (s *Store) Snapshot() *book.Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batch
}

// Replace swaps in a new batch.
func (s *Store) Replace(b *book.Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b == nil {
		s.batch = nil
		return
	}
	next := b.Clone()
	next.Recount()
	s.batch = next
	s.notify(next)
}

// OnChange registers fn to receive every new snapshot. Observers run with
// the store locked and must not call back into it.
func (s *Store) OnChange(fn func(*book.Batch)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Update applies fn to a copy of the current batch and publishes the result.
// If fn returns an error nothing is published. Counters are recomputed and
// duration samples folded into the running mean before publishing.
func (s *Store) Update(fn func(tx *Tx) error) (*book.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.batch == nil {
		return nil, ErrNoBatch
	}

	next := *s.batch
	next.Books = make([]book.Book, len(s.batch.Books))
	copy(next.Books, s.batch.Books)

	tx := &Tx{batch: &next, owned: make(map[int]bool)}
	if err := fn(tx); err != nil {
		return s.batch, err
	}

	mean := progress.RunningMean{Mean: next.AvgGenerationMs, Count: next.TimedPages}
	for _, ms := range tx.samples {
		mean = mean.Add(ms)
	}
	next.AvgGenerationMs = mean.Mean
	next.TimedPages = mean.Count
	next.Recount()

	s.batch = &next
	s.notify(&next)
	return &next, nil
}

// SetStatus is a shortcut for an update that only changes the batch status.
func (s *Store) SetStatus(status book.BatchStatus) (*book.Batch, error) {
	return s.Update(func(tx *Tx) error {
		tx.Batch().Status = status
		return nil
	})
}

func (s *Store) notify(b *book.Batch) {
	for _, fn := range s.observers {
		fn(b)
	}
}

// Tx is a pending update. Books and pages must be reached through Book,
// Page or Pages so they are copied before being written.
type Tx struct {
	batch   *book.Batch
	owned   map[int]bool
	samples []float64
}

// Batch returns the batch under construction. Its top-level fields may be
// written directly; its books may not.
func (tx *Tx) Batch() *book.Batch {
	return tx.batch
}

// Book returns a writable copy of a book.
func (tx *Tx) Book(bookID string) (*book.Book, error) {
	i, ok := tx.batch.BookByID(bookID)
	if !ok {
		return nil, fmt.Errorf("%w: book %s", ErrNotFound, bookID)
	}
	tx.own(i)
	return &tx.batch.Books[i], nil
}

// Page returns a writable copy of a page and its owning book.
func (tx *Tx) Page(bookID, pageID string) (*book.Book, *book.Page, error) {
	bk, err := tx.Book(bookID)
	if err != nil {
		return nil, nil, err
	}
	j, ok := bk.PageByID(pageID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: page %s", ErrNotFound, pageID)
	}
	return bk, &bk.Pages[j], nil
}

// Pages calls fn for every page in batch order, copying every book first.
func (tx *Tx) Pages(fn func(bk *book.Book, p *book.Page)) {
	for i := range tx.batch.Books {
		tx.own(i)
	}
	tx.batch.ForEachPage(fn)
}

// AddSample records a generation duration for the running mean.
func (tx *Tx) AddSample(ms float64) {
	tx.samples = append(tx.samples, ms)
}

func (tx *Tx) own(i int) {
	if tx.owned[i] {
		return
	}
	tx.batch.Books[i] = tx.batch.Books[i].Clone()
	tx.owned[i] = true
}
