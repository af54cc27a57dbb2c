package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackzampolin/colorbook/internal/book"
	"github.com/jackzampolin/colorbook/internal/studio"
)

// Studio is the subset of the remote service the stages call.
type Studio interface {
	GeneratePageIdeas(ctx context.Context, req studio.PageIdeasRequest) ([]string, error)
	ImprovePrompt(ctx context.Context, req studio.ImprovePromptRequest) (*studio.ImprovePromptResponse, error)
	GenerateImage(ctx context.Context, req studio.ImageRequest) (*studio.ImageResult, error)
	EnhanceImage(ctx context.Context, req studio.EnhanceRequest) (*studio.EnhanceResult, error)
}

var _ Studio = (*studio.Client)(nil)

func wireSettings(s book.Settings) studio.Settings {
	return studio.Settings{
		DecorationLevel:      s.DecorationLevel,
		TypographyStyle:      s.TypographyStyle,
		CharacterDescription: s.CharacterDescription,
	}
}

// PagePlanStage asks for one idea per page of a book.
type PagePlanStage struct {
	Studio Studio
}

func (s *PagePlanStage) Name() string           { return StagePlans }
func (s *PagePlanStage) Dependencies() []string { return nil }
func (s *PagePlanStage) Description() string    { return "Generate an idea for every page of each book" }
func (s *PagePlanStage) Mode() Mode             { return Chunked }

func (s *PagePlanStage) Eligible(bk *book.Book) bool {
	return bk.Status == book.BookDraft && len(bk.Pages) > 0
}

func (s *PagePlanStage) Begin(bk *book.Book) { bk.Status = book.BookPlanning }

func (s *PagePlanStage) Call(ctx context.Context, bk *book.Book) (BookMerge, error) {
	ideas, err := s.Studio.GeneratePageIdeas(ctx, studio.PageIdeasRequest{
		BookID:    bk.ID,
		BookType:  string(bk.Type),
		Concept:   bk.Concept,
		PageCount: len(bk.Pages),
		Settings:  wireSettings(bk.Settings),
		TargetAge: string(bk.Audience),
	})
	if err != nil {
		return nil, err
	}
	if len(ideas) < len(bk.Pages) {
		return nil, fmt.Errorf("expected %d page ideas, got %d", len(bk.Pages), len(ideas))
	}
	return func(b *book.Book) {
		for i := range b.Pages {
			b.Pages[i].IdeaText = strings.TrimSpace(ideas[i])
		}
	}, nil
}

func (s *PagePlanStage) Done(bk *book.Book) { bk.Status = book.BookPlanned }
func (s *PagePlanStage) Fail(bk *book.Book) { bk.Status = book.BookFailed }

func (s *PagePlanStage) Reset(bk *book.Book) bool {
	if bk.Status != book.BookFailed {
		return false
	}
	bk.Status = book.BookDraft
	bk.Error = ""
	return true
}

// PromptStage turns each page idea into a final image prompt.
type PromptStage struct {
	Studio Studio
}

func (s *PromptStage) Name() string           { return StagePrompts }
func (s *PromptStage) Dependencies() []string { return []string{StagePlans} }
func (s *PromptStage) Description() string    { return "Improve each page idea into an image prompt" }
func (s *PromptStage) Mode() Mode             { return Chunked }
func (s *PromptStage) Timed() bool            { return false }

func (s *PromptStage) Eligible(_ *book.Book, p *book.Page) bool {
	return p.PromptStatus == book.PromptIdle && strings.TrimSpace(p.IdeaText) != "" && !p.Status.InFlight()
}

func (s *PromptStage) Begin(p *book.Page) { p.PromptStatus = book.PromptImproving }

func (s *PromptStage) Call(ctx context.Context, bk *book.Book, p *book.Page) (PageMerge, error) {
	resp, err := s.Studio.ImprovePrompt(ctx, studio.ImprovePromptRequest{
		BookID:    bk.ID,
		PageID:    p.ID,
		PageIndex: p.Index,
		IdeaText:  p.IdeaText,
		BookType:  string(bk.Type),
		Concept:   bk.Concept,
		Settings:  wireSettings(bk.Settings),
		TargetAge: string(bk.Audience),
	})
	if err != nil {
		return nil, err
	}
	return func(p *book.Page) {
		p.FinalPrompt = strings.TrimSpace(resp.FinalPrompt)
		if !resp.GeneratedAt.IsZero() {
			at := resp.GeneratedAt.UTC()
			p.PromptAt = &at
		}
	}, nil
}

func (s *PromptStage) Done(p *book.Page, _ time.Duration, now time.Time) {
	p.PromptStatus = book.PromptReady
	if p.PromptAt == nil {
		p.PromptAt = &now
	}
}

func (s *PromptStage) Fail(p *book.Page) { p.PromptStatus = book.PromptFailed }

func (s *PromptStage) Reset(p *book.Page) bool {
	if p.PromptStatus != book.PromptFailed {
		return false
	}
	p.PromptStatus = book.PromptIdle
	if p.FailedStage == StagePrompts {
		p.Error = ""
		p.FailedStage = ""
	}
	return true
}

// ImageStage generates the line-art image of each page. In storybook mode
// the book's first image is sent along as the anchor for later pages.
type ImageStage struct {
	Studio          Studio
	Size            string
	ValidateOutline bool
	ValidateNoColor bool
}

func (s *ImageStage) Name() string           { return StageImages }
func (s *ImageStage) Dependencies() []string { return []string{StagePrompts} }
func (s *ImageStage) Description() string    { return "Generate a coloring page image from each prompt" }
func (s *ImageStage) Mode() Mode             { return Sequential }
func (s *ImageStage) Timed() bool            { return true }

func (s *ImageStage) Eligible(_ *book.Book, p *book.Page) bool {
	return p.Status == book.PageDraft && strings.TrimSpace(p.FinalPrompt) != ""
}

func (s *ImageStage) Begin(p *book.Page) {
	p.ClearArtifacts()
	p.Status = book.PageGenerating
	p.Error = ""
	p.FailedStage = ""
}

func (s *ImageStage) Call(ctx context.Context, bk *book.Book, p *book.Page) (PageMerge, error) {
	req := studio.ImageRequest{
		PageIndex:       p.Index,
		Prompt:          p.FinalPrompt,
		Size:            s.Size,
		BookType:        string(bk.Type),
		IsStorybookMode: bk.Mode == book.ModeStorybook,
		ValidateOutline: s.ValidateOutline,
		ValidateNoColor: s.ValidateNoColor,
	}
	if req.IsStorybookMode {
		req.CharacterDescription = bk.Settings.CharacterDescription
		if anchor := bk.Anchor(); len(anchor) > 0 {
			req.AnchorImageBase64 = studio.EncodeImage(anchor)
		}
	}
	res, err := s.Studio.GenerateImage(ctx, req)
	if err != nil {
		return nil, err
	}
	return func(p *book.Page) {
		p.OriginalImage = res.Image
		p.ActiveVersion = book.VersionOriginal
		p.Warning = res.Warning
	}, nil
}

func (s *ImageStage) Done(p *book.Page, elapsed time.Duration, now time.Time) {
	p.Status = book.PageGenerated
	p.GenerationMs = elapsed.Milliseconds()
	p.GeneratedAt = &now
}

func (s *ImageStage) Fail(p *book.Page) { p.Status = book.PageFailed }

func (s *ImageStage) Reset(p *book.Page) bool {
	if p.Status != book.PageFailed || p.FailedStage != StageImages {
		return false
	}
	p.ClearArtifacts()
	p.Status = book.PageDraft
	p.Error = ""
	p.FailedStage = ""
	return true
}

// EnhanceStage upscales each generated image and reframes it to letter size.
type EnhanceStage struct {
	Studio        Studio
	Scale         int
	MarginPercent float64
}

func (s *EnhanceStage) Name() string           { return StageEnhance }
func (s *EnhanceStage) Dependencies() []string { return []string{StageImages} }
func (s *EnhanceStage) Description() string    { return "Upscale images and produce letter-size finals" }
func (s *EnhanceStage) Mode() Mode             { return Sequential }
func (s *EnhanceStage) Timed() bool            { return false }

func (s *EnhanceStage) Eligible(_ *book.Book, p *book.Page) bool {
	return p.Status == book.PageGenerated && len(p.OriginalImage) > 0
}

func (s *EnhanceStage) Begin(p *book.Page) {
	p.Status = book.PageEnhancing
	p.Error = ""
	p.FailedStage = ""
}

func (s *EnhanceStage) Call(ctx context.Context, _ *book.Book, p *book.Page) (PageMerge, error) {
	res, err := s.Studio.EnhanceImage(ctx, studio.EnhanceRequest{
		ImageBase64:   studio.EncodeImage(p.OriginalImage),
		Scale:         s.Scale,
		MarginPercent: s.MarginPercent,
	})
	if err != nil {
		return nil, err
	}
	return func(p *book.Page) {
		p.EnhancedImage = res.Enhanced
		p.FinalLetterImage = res.FinalLetter
		switch {
		case len(res.FinalLetter) > 0:
			p.ActiveVersion = book.VersionFinalLetter
		case len(res.Enhanced) > 0:
			p.ActiveVersion = book.VersionEnhanced
		}
	}, nil
}

func (s *EnhanceStage) Done(p *book.Page, elapsed time.Duration, now time.Time) {
	p.Status = book.PageEnhanced
	p.EnhancementMs = elapsed.Milliseconds()
	p.EnhancedAt = &now
}

// Fail keeps the original image; only the enhancement is lost.
func (s *EnhanceStage) Fail(p *book.Page) {
	p.ClearEnhancement()
	p.Status = book.PageFailed
}

func (s *EnhanceStage) Reset(p *book.Page) bool {
	if p.Status != book.PageFailed || p.FailedStage != StageEnhance {
		return false
	}
	p.Status = book.PageGenerated
	p.Error = ""
	p.FailedStage = ""
	return true
}
