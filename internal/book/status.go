package book

import "fmt"

// PageStatus is the image generation status of a page.
type PageStatus string

const (
	PageDraft      PageStatus = "draft"
	PageGenerating PageStatus = "generating"
	PageGenerated  PageStatus = "generated"
	PageFailed     PageStatus = "failed"
	PageEnhancing  PageStatus = "enhancing"
	PageEnhanced   PageStatus = "enhanced"
	PageApproved   PageStatus = "approved"
)

// PageStatuses lists every page status in pipeline order.
var PageStatuses = []PageStatus{
	PageDraft, PageGenerating, PageGenerated, PageFailed,
	PageEnhancing, PageEnhanced, PageApproved,
}

// Valid reports whether s is a known page status.
func (s PageStatus) Valid() bool {
	switch s {
	case PageDraft, PageGenerating, PageGenerated, PageFailed,
		PageEnhancing, PageEnhanced, PageApproved:
		return true
	}
	return false
}

// InFlight reports whether a remote call is currently running for the page.
func (s PageStatus) InFlight() bool {
	return s == PageGenerating || s == PageEnhancing
}

// HasImage reports whether a page in this status carries a generated image.
func (s PageStatus) HasImage() bool {
	switch s {
	case PageGenerated, PageEnhancing, PageEnhanced, PageApproved:
		return true
	}
	return false
}

// PromptStatus tracks the prompt-improvement stage of a page.
type PromptStatus string

const (
	PromptIdle      PromptStatus = "idle"
	PromptImproving PromptStatus = "improving"
	PromptReady     PromptStatus = "ready"
	PromptFailed    PromptStatus = "failed"
)

func (s PromptStatus) Valid() bool {
	switch s {
	case PromptIdle, PromptImproving, PromptReady, PromptFailed:
		return true
	}
	return false
}

// BookStatus tracks the book-level page-plan stage.
type BookStatus string

const (
	BookDraft    BookStatus = "draft"
	BookPlanning BookStatus = "planning"
	BookPlanned  BookStatus = "planned"
	BookFailed   BookStatus = "failed"
)

func (s BookStatus) Valid() bool {
	switch s {
	case BookDraft, BookPlanning, BookPlanned, BookFailed:
		return true
	}
	return false
}

// BatchStatus is the lifecycle status of a batch.
type BatchStatus string

const (
	BatchIdle       BatchStatus = "idle"
	BatchGenerating BatchStatus = "generating"
	BatchPaused     BatchStatus = "paused"
	BatchCompleted  BatchStatus = "completed"
)

func (s BatchStatus) Valid() bool {
	switch s {
	case BatchIdle, BatchGenerating, BatchPaused, BatchCompleted:
		return true
	}
	return false
}

// ActiveVersion selects which artifact of a page is displayed and exported.
type ActiveVersion string

const (
	VersionOriginal    ActiveVersion = "original"
	VersionEnhanced    ActiveVersion = "enhanced"
	VersionFinalLetter ActiveVersion = "final_letter"
)

func (v ActiveVersion) Valid() bool {
	switch v {
	case VersionOriginal, VersionEnhanced, VersionFinalLetter:
		return true
	}
	return false
}

// BookType distinguishes illustrated scene books from typographic quote books.
type BookType string

const (
	TypeScenes BookType = "scenes"
	TypeQuotes BookType = "quotes"
)

func (t BookType) Valid() bool {
	switch t {
	case TypeScenes, TypeQuotes:
		return true
	}
	return false
}

// BookMode distinguishes one recurring character from varied pages.
type BookMode string

const (
	ModeStorybook BookMode = "storybook"
	ModeVaried    BookMode = "varied"
)

func (m BookMode) Valid() bool {
	switch m {
	case ModeStorybook, ModeVaried:
		return true
	}
	return false
}

// Audience is the target age group of a book.
type Audience string

const (
	AudienceKids   Audience = "kids"
	AudienceTeens  Audience = "teens"
	AudienceAdults Audience = "adults"
	AudienceAll    Audience = "all"
)

func (a Audience) Valid() bool {
	switch a {
	case AudienceKids, AudienceTeens, AudienceAdults, AudienceAll:
		return true
	}
	return false
}

// ParseBookType parses a book type, accepting the empty string as the default.
func ParseBookType(s string) (BookType, error) {
	if s == "" {
		return DefaultBookType, nil
	}
	t := BookType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown book type: %q", s)
	}
	return t, nil
}

// ParseBookMode parses a book mode, accepting the empty string as the default.
func ParseBookMode(s string) (BookMode, error) {
	if s == "" {
		return DefaultBookMode, nil
	}
	m := BookMode(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown book mode: %q", s)
	}
	return m, nil
}

// ParseAudience parses an audience, accepting the empty string as the default.
func ParseAudience(s string) (Audience, error) {
	if s == "" {
		return DefaultAudience, nil
	}
	a := Audience(s)
	if !a.Valid() {
		return "", fmt.Errorf("unknown audience: %q", s)
	}
	return a, nil
}
