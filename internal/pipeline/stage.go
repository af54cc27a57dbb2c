package pipeline

import (
	"context"
	"time"

	"github.com/jackzampolin/colorbook/internal/book"
)

// Stage names.
const (
	StagePlans   = "plans"
	StagePrompts = "prompts"
	StageImages  = "images"
	StageEnhance = "enhance"
)

// Mode selects how the scheduler drives a stage over its items.
type Mode int

const (
	// Chunked runs items in ordered chunks, concurrently within a chunk.
	Chunked Mode = iota
	// Sequential runs one item at a time with a fixed delay between items.
	Sequential
)

func (m Mode) String() string {
	switch m {
	case Chunked:
		return "chunked"
	case Sequential:
		return "sequential"
	}
	return "unknown"
}

// Stage is the interface that all pipeline stages implement.
// A stage is one remote operation applied to a book or a page.
type Stage interface {
	// Identity
	Name() string           // e.g., "prompts", "images"
	Dependencies() []string // Stages that must run first
	Description() string

	// Mode is how the scheduler iterates the stage's items.
	Mode() Mode
}

// PageMerge folds a successful remote result into a page.
type PageMerge func(p *book.Page)

// BookMerge folds a successful remote result into a book.
type BookMerge func(bk *book.Book)

// PageStage is a stage whose item is a single page.
//
// Eligible, Begin, Done, Fail and Reset are pure transitions applied by the
// runner inside a store update. Call performs the remote operation against
// snapshots and must not retain or modify them.
type PageStage interface {
	Stage

	Eligible(bk *book.Book, p *book.Page) bool
	Begin(p *book.Page)
	Call(ctx context.Context, bk *book.Book, p *book.Page) (PageMerge, error)
	Done(p *book.Page, elapsed time.Duration, now time.Time)
	Fail(p *book.Page)

	// Reset returns a page this stage failed to the stage's initial status.
	// It reports false for pages it does not own.
	Reset(p *book.Page) bool

	// Timed reports whether durations feed the batch running mean.
	Timed() bool
}

// BookStage is a stage whose item is a whole book.
type BookStage interface {
	Stage

	Eligible(bk *book.Book) bool
	Begin(bk *book.Book)
	Call(ctx context.Context, bk *book.Book) (BookMerge, error)
	Done(bk *book.Book)
	Fail(bk *book.Book)
	Reset(bk *book.Book) bool
}
