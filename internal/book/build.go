package book

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Defaults applied to new book ideas.
const (
	DefaultPageCount = 10
	MaxPageCount     = 60
)

var (
	DefaultBookType = TypeScenes
	DefaultBookMode = ModeVaried
	DefaultAudience = AudienceKids
)

// NewID returns a fresh unique id.
func NewID() string {
	return uuid.New().String()
}

// NewBookIdea returns an empty idea with a fresh id and default tags.
func NewBookIdea() BookIdea {
	return BookIdea{
		ID:        NewID(),
		Type:      DefaultBookType,
		Mode:      DefaultBookMode,
		Audience:  DefaultAudience,
		PageCount: DefaultPageCount,
	}
}

// NewBatch returns an empty idle batch.
func NewBatch() *Batch {
	return &Batch{
		ID:        NewID(),
		Books:     []Book{},
		Status:    BatchIdle,
		CreatedAt: time.Now().UTC(),
	}
}

// NewPage returns a draft page at the given 1-based index.
func NewPage(index int) Page {
	return Page{
		ID:            NewID(),
		Index:         index,
		PromptStatus:  PromptIdle,
		Status:        PageDraft,
		ActiveVersion: VersionOriginal,
	}
}

// BookFromIdea expands an idea into a book with exactly idea.PageCount
// draft pages, indexed 1..N.
func BookFromIdea(idea BookIdea, batchID string) Book {
	n := idea.PageCount
	if n < 0 {
		n = 0
	}
	pages := make([]Page, n)
	for i := range pages {
		pages[i] = NewPage(i + 1)
	}
	return Book{
		ID:       NewID(),
		BatchID:  batchID,
		Title:    idea.Title,
		Concept:  idea.Concept,
		Type:     idea.Type,
		Mode:     idea.Mode,
		Audience: idea.Audience,
		Settings: idea.Settings,
		Status:   BookDraft,
		Pages:    pages,
	}
}

// BatchFromIdeas creates a batch with one book per approved idea, in idea order.
// Unapproved ideas are skipped. TotalPages is fixed here.
func BatchFromIdeas(ideas []BookIdea) (*Batch, error) {
	batch := NewBatch()
	for _, idea := range ideas {
		if !idea.Approved {
			continue
		}
		if err := idea.Validate(); err != nil {
			return nil, fmt.Errorf("idea %q: %w", idea.Title, err)
		}
		bk := BookFromIdea(idea, batch.ID)
		batch.Books = append(batch.Books, bk)
		batch.TotalPages += len(bk.Pages)
	}
	if len(batch.Books) == 0 {
		return nil, fmt.Errorf("no approved ideas")
	}
	return batch, nil
}

// Validate checks the fields required before an idea becomes a book.
func (i BookIdea) Validate() error {
	if i.PageCount < 1 || i.PageCount > MaxPageCount {
		return fmt.Errorf("page count %d out of range 1..%d", i.PageCount, MaxPageCount)
	}
	if !i.Type.Valid() {
		return fmt.Errorf("unknown book type: %q", i.Type)
	}
	if !i.Mode.Valid() {
		return fmt.Errorf("unknown book mode: %q", i.Mode)
	}
	if !i.Audience.Valid() {
		return fmt.Errorf("unknown audience: %q", i.Audience)
	}
	return nil
}

// Progress is the completion summary of a batch.
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
	Percent   int `json:"percent"`
}

// CalculateBatchProgress counts pages that have finished generation.
// It does not modify the batch.
func CalculateBatchProgress(b *Batch) Progress {
	if b == nil {
		return Progress{}
	}
	var p Progress
	for i := range b.Books {
		for j := range b.Books[i].Pages {
			p.Total++
			if b.Books[i].Pages[j].Status.HasImage() {
				p.Completed++
			}
		}
	}
	if p.Total > 0 {
		p.Percent = int(math.Round(float64(p.Completed) * 100 / float64(p.Total)))
	}
	return p
}

// FormatETA renders a duration in seconds as "45s", "3m 20s" or "1h 5m".
func FormatETA(seconds float64) string {
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return "0s"
	}
	s := int(math.Ceil(seconds))
	switch {
	case s < 60:
		return fmt.Sprintf("%ds", s)
	case s < 3600:
		return fmt.Sprintf("%dm %ds", s/60, s%60)
	default:
		return fmt.Sprintf("%dh %dm", s/3600, (s%3600)/60)
	}
}
