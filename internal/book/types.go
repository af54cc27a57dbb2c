// Package book holds the item model for coloring book generation:
// pages, books, batches of books, and the book ideas they are derived from.
//
// Values in this package are plain data. Image artifacts are byte slices that
// are replaced on change and never modified in place, so copying a Page by
// value is enough to take an independent snapshot of it.
package book

import (
	"time"
)

// Settings is the type-specific settings bag of a book.
type Settings struct {
	// Quote books
	DecorationLevel string `json:"decoration_level,omitempty" yaml:"decoration_level,omitempty"`
	TypographyStyle string `json:"typography_style,omitempty" yaml:"typography_style,omitempty"`

	// Storybook-mode scene books
	CharacterDescription string `json:"character_description,omitempty" yaml:"character_description,omitempty"`
}

// Page is the atomic unit of work.
type Page struct {
	ID    string `json:"id"`
	Index int    `json:"index"` // 1-based, stable within its book

	IdeaText    string `json:"idea_text"`
	FinalPrompt string `json:"final_prompt,omitempty"`

	IsIdeaApproved   bool `json:"is_idea_approved"`
	IsPromptApproved bool `json:"is_prompt_approved"`

	PromptStatus PromptStatus `json:"prompt_status"`
	Status       PageStatus   `json:"status"`

	OriginalImage    []byte        `json:"original_image,omitempty"`
	EnhancedImage    []byte        `json:"enhanced_image,omitempty"`
	FinalLetterImage []byte        `json:"final_letter_image,omitempty"`
	ActiveVersion    ActiveVersion `json:"active_version"`

	GenerationMs  int64      `json:"generation_ms,omitempty"`
	EnhancementMs int64      `json:"enhancement_ms,omitempty"`
	PromptAt      *time.Time `json:"prompt_at,omitempty"`
	GeneratedAt   *time.Time `json:"generated_at,omitempty"`
	EnhancedAt    *time.Time `json:"enhanced_at,omitempty"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`

	Warning     string `json:"warning,omitempty"`
	Error       string `json:"error,omitempty"`
	FailedStage string `json:"failed_stage,omitempty"`
}

// Book is an ordered collection of pages plus descriptive metadata.
type Book struct {
	ID       string     `json:"id"`
	BatchID  string     `json:"batch_id"`
	Title    string     `json:"title"`
	Concept  string     `json:"concept"`
	Type     BookType   `json:"book_type"`
	Mode     BookMode   `json:"book_mode"`
	Audience Audience   `json:"audience"`
	Settings Settings   `json:"settings"`
	Status   BookStatus `json:"status"`
	Error    string     `json:"error,omitempty"`
	Pages    []Page     `json:"pages"`
}

// Batch is an ordered collection of books with batch-wide aggregates.
type Batch struct {
	ID    string `json:"id"`
	Books []Book `json:"books"`

	TotalPages     int `json:"total_pages"`
	GeneratedPages int `json:"generated_pages"`
	FailedPages    int `json:"failed_pages"`
	EnhancedPages  int `json:"enhanced_pages"`
	ApprovedPages  int `json:"approved_pages"`

	// Running mean of successful generation durations.
	AvgGenerationMs float64 `json:"avg_generation_ms"`
	TimedPages      int     `json:"timed_pages"`

	Status      BatchStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// BookIdea is a mutable draft of a book before page plans exist.
type BookIdea struct {
	ID        string   `json:"id" yaml:"id,omitempty"`
	Title     string   `json:"title" yaml:"title"`
	Concept   string   `json:"concept" yaml:"concept"`
	Type      BookType `json:"book_type" yaml:"book_type"`
	Mode      BookMode `json:"book_mode" yaml:"book_mode"`
	Audience  Audience `json:"audience" yaml:"audience"`
	PageCount int      `json:"page_count" yaml:"page_count"`
	Settings  Settings `json:"settings" yaml:"settings,omitempty"`
	Approved  bool     `json:"approved" yaml:"approved"`
}

// Clone returns a copy of the book with its own page slice.
func (b Book) Clone() Book {
	out := b
	out.Pages = make([]Page, len(b.Pages))
	copy(out.Pages, b.Pages)
	return out
}

// PageByID returns the position of a page within the book.
func (b *Book) PageByID(pageID string) (int, bool) {
	for i := range b.Pages {
		if b.Pages[i].ID == pageID {
			return i, true
		}
	}
	return -1, false
}

// Anchor returns the reference image that steers storybook-mode generations:
// the original image of the lowest-indexed generated page. Varied books have no anchor.
func (b *Book) Anchor() []byte {
	if b.Mode != ModeStorybook {
		return nil
	}
	for i := range b.Pages {
		if len(b.Pages[i].OriginalImage) > 0 {
			return b.Pages[i].OriginalImage
		}
	}
	return nil
}

// Clone returns a deep copy of the batch structure. Image bytes are shared.
func (b *Batch) Clone() *Batch {
	if b == nil {
		return nil
	}
	out := *b
	out.Books = make([]Book, len(b.Books))
	for i := range b.Books {
		out.Books[i] = b.Books[i].Clone()
	}
	return &out
}

// BookByID returns the position of a book within the batch.
func (b *Batch) BookByID(bookID string) (int, bool) {
	for i := range b.Books {
		if b.Books[i].ID == bookID {
			return i, true
		}
	}
	return -1, false
}

// FindPage locates a page by traversal from the batch.
func (b *Batch) FindPage(pageID string) (bookIdx, pageIdx int, ok bool) {
	for i := range b.Books {
		if j, found := b.Books[i].PageByID(pageID); found {
			return i, j, true
		}
	}
	return -1, -1, false
}

// ForEachPage calls fn for every page in batch order.
func (b *Batch) ForEachPage(fn func(bk *Book, p *Page)) {
	for i := range b.Books {
		for j := range b.Books[i].Pages {
			fn(&b.Books[i], &b.Books[i].Pages[j])
		}
	}
}

// Recount recomputes the status counters from page statuses.
// TotalPages is left untouched: it is fixed at creation.
func (b *Batch) Recount() {
	generated, failed, enhanced, approved := 0, 0, 0, 0
	b.ForEachPage(func(_ *Book, p *Page) {
		switch p.Status {
		case PageGenerated, PageEnhancing:
			generated++
		case PageEnhanced:
			generated++
			enhanced++
		case PageApproved:
			generated++
			approved++
			if len(p.EnhancedImage) > 0 {
				enhanced++
			}
		case PageFailed:
			failed++
		case PageDraft, PageGenerating:
		}
	})
	b.GeneratedPages = generated
	b.FailedPages = failed
	b.EnhancedPages = enhanced
	b.ApprovedPages = approved
}
