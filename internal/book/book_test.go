package book

import (
	"reflect"
	"testing"
	"time"
)

func TestNewBookIdea(t *testing.T) {
	a := NewBookIdea()
	b := NewBookIdea()

	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("expected unique non-empty ids, got %q and %q", a.ID, b.ID)
	}
	if a.PageCount != DefaultPageCount {
		t.Errorf("PageCount = %d, want %d", a.PageCount, DefaultPageCount)
	}
	if a.Type != TypeScenes || a.Mode != ModeVaried || a.Audience != AudienceKids {
		t.Errorf("unexpected defaults: %+v", a)
	}
	if a.Approved {
		t.Error("new idea should not be approved")
	}
}

func TestNewBatch(t *testing.T) {
	b := NewBatch()
	if b.Status != BatchIdle {
		t.Errorf("Status = %s, want idle", b.Status)
	}
	if len(b.Books) != 0 || b.TotalPages != 0 || b.GeneratedPages != 0 || b.AvgGenerationMs != 0 {
		t.Errorf("expected zeroed batch, got %+v", b)
	}
}

func TestBookFromIdea_IndicesContiguous(t *testing.T) {
	for _, n := range []int{1, 2, 7, 25} {
		idea := NewBookIdea()
		idea.PageCount = n
		idea.Settings.CharacterDescription = "a small fox"

		bk := BookFromIdea(idea, "batch-1")
		if len(bk.Pages) != n {
			t.Fatalf("len(pages) = %d, want %d", len(bk.Pages), n)
		}
		seen := map[string]bool{}
		for i, p := range bk.Pages {
			if p.Index != i+1 {
				t.Errorf("pages[%d].Index = %d, want %d", i, p.Index, i+1)
			}
			if seen[p.ID] {
				t.Errorf("duplicate page id %s", p.ID)
			}
			seen[p.ID] = true
			if p.Status != PageDraft || p.PromptStatus != PromptIdle {
				t.Errorf("page %d not draft: %s/%s", p.Index, p.Status, p.PromptStatus)
			}
		}
		if bk.BatchID != "batch-1" {
			t.Errorf("BatchID = %q", bk.BatchID)
		}
		if bk.Settings.CharacterDescription != "a small fox" {
			t.Error("settings not inherited")
		}
	}
}

func TestBatchFromIdeas_OnlyApproved(t *testing.T) {
	ideas := []BookIdea{NewBookIdea(), NewBookIdea(), NewBookIdea()}
	ideas[0].Title, ideas[0].PageCount, ideas[0].Approved = "Ocean", 5, true
	ideas[1].Title, ideas[1].PageCount = "Forest", 12
	ideas[2].Title, ideas[2].PageCount, ideas[2].Approved = "Space", 8, true

	batch, err := BatchFromIdeas(ideas)
	if err != nil {
		t.Fatalf("BatchFromIdeas() error = %v", err)
	}
	if len(batch.Books) != 2 {
		t.Fatalf("len(books) = %d, want 2", len(batch.Books))
	}
	if batch.TotalPages != 13 {
		t.Errorf("TotalPages = %d, want 13", batch.TotalPages)
	}
	for _, bk := range batch.Books {
		if bk.Title == "Forest" {
			t.Error("unapproved idea appeared in batch")
		}
		if bk.BatchID != batch.ID {
			t.Errorf("book batch id = %q, want %q", bk.BatchID, batch.ID)
		}
	}
	if batch.Books[0].Title != "Ocean" || batch.Books[1].Title != "Space" {
		t.Error("books not in idea order")
	}
}

func TestBatchFromIdeas_Errors(t *testing.T) {
	t.Run("none approved", func(t *testing.T) {
		if _, err := BatchFromIdeas([]BookIdea{NewBookIdea()}); err == nil {
			t.Error("expected error")
		}
	})
	t.Run("invalid page count", func(t *testing.T) {
		idea := NewBookIdea()
		idea.Approved = true
		idea.PageCount = 0
		if _, err := BatchFromIdeas([]BookIdea{idea}); err == nil {
			t.Error("expected error")
		}
	})
}

func TestCalculateBatchProgress_Pure(t *testing.T) {
	idea := NewBookIdea()
	idea.PageCount = 4
	idea.Approved = true
	batch, err := BatchFromIdeas([]BookIdea{idea})
	if err != nil {
		t.Fatal(err)
	}
	batch.Books[0].Pages[0].Status = PageGenerated
	batch.Books[0].Pages[1].Status = PageEnhanced
	batch.Books[0].Pages[2].Status = PageFailed

	before := batch.Clone()
	first := CalculateBatchProgress(batch)
	second := CalculateBatchProgress(batch)

	if first != second {
		t.Errorf("results differ: %+v vs %+v", first, second)
	}
	if first.Completed != 2 || first.Total != 4 || first.Percent != 50 {
		t.Errorf("progress = %+v, want 2/4 50%%", first)
	}
	if !reflect.DeepEqual(before, batch) {
		t.Error("CalculateBatchProgress mutated its input")
	}
}

func TestFormatETA(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "0s"},
		{-5, "0s"},
		{0.2, "1s"},
		{45, "45s"},
		{60, "1m 0s"},
		{200, "3m 20s"},
		{3900, "1h 5m"},
	}
	for _, tt := range tests {
		if got := FormatETA(tt.seconds); got != tt.want {
			t.Errorf("FormatETA(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestPage_ResolveActiveVersion(t *testing.T) {
	p := NewPage(1)
	if v := p.ResolveActiveVersion(); v != "" {
		t.Errorf("empty page resolved to %q", v)
	}

	p.OriginalImage = []byte("orig")
	p.ActiveVersion = VersionEnhanced
	if v := p.ResolveActiveVersion(); v != VersionOriginal {
		t.Errorf("missing enhanced should fall back to original, got %q", v)
	}

	p.EnhancedImage = []byte("enh")
	p.ActiveVersion = VersionFinalLetter
	if v := p.ResolveActiveVersion(); v != VersionEnhanced {
		t.Errorf("missing final letter should fall back to enhanced, got %q", v)
	}
	if string(p.ActiveImage()) != "enh" {
		t.Errorf("ActiveImage() = %q", p.ActiveImage())
	}

	if err := p.SetActiveVersion(VersionFinalLetter); err == nil {
		t.Error("SetActiveVersion should reject an absent artifact")
	}
}

func TestPage_ClearArtifacts(t *testing.T) {
	now := time.Now()
	p := NewPage(3)
	p.OriginalImage = []byte("a")
	p.EnhancedImage = []byte("b")
	p.ActiveVersion = VersionEnhanced
	p.GeneratedAt = &now
	p.GenerationMs = 1200

	p.ClearArtifacts()

	if p.OriginalImage != nil || p.EnhancedImage != nil || p.FinalLetterImage != nil {
		t.Error("artifacts not cleared")
	}
	if p.ActiveVersion != VersionOriginal {
		t.Errorf("ActiveVersion = %q, want original", p.ActiveVersion)
	}
	if p.GeneratedAt != nil || p.GenerationMs != 0 {
		t.Error("timing not cleared")
	}
}

func TestPage_Approve(t *testing.T) {
	p := NewPage(1)
	if err := p.Approve(time.Now()); err == nil {
		t.Error("draft page should not be approvable")
	}
	p.Status = PageGenerated
	p.OriginalImage = []byte("x")
	if err := p.Approve(time.Now()); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if p.Status != PageApproved || p.ApprovedAt == nil {
		t.Errorf("page not approved: %+v", p)
	}
}

func TestBatch_Recount(t *testing.T) {
	idea := NewBookIdea()
	idea.PageCount = 5
	idea.Approved = true
	batch, _ := BatchFromIdeas([]BookIdea{idea})
	pages := batch.Books[0].Pages
	pages[0].Status = PageGenerated
	pages[1].Status = PageEnhanced
	pages[2].Status = PageApproved
	pages[2].EnhancedImage = []byte("e")
	pages[3].Status = PageFailed

	batch.Recount()

	if batch.GeneratedPages != 3 || batch.EnhancedPages != 2 || batch.ApprovedPages != 1 || batch.FailedPages != 1 {
		t.Errorf("counts = gen %d enh %d appr %d fail %d",
			batch.GeneratedPages, batch.EnhancedPages, batch.ApprovedPages, batch.FailedPages)
	}
	if batch.TotalPages != 5 {
		t.Errorf("TotalPages = %d, want 5", batch.TotalPages)
	}
}

func TestBook_Anchor(t *testing.T) {
	bk := BookFromIdea(BookIdea{PageCount: 3, Mode: ModeStorybook}, "b")
	if bk.Anchor() != nil {
		t.Error("no anchor expected before generation")
	}
	bk.Pages[1].OriginalImage = []byte("second")
	bk.Pages[2].OriginalImage = []byte("third")
	if string(bk.Anchor()) != "second" {
		t.Errorf("Anchor() = %q, want second", bk.Anchor())
	}
	bk.Mode = ModeVaried
	if bk.Anchor() != nil {
		t.Error("varied books have no anchor")
	}
}
