package wizard

import (
	"errors"
	"testing"

	"github.com/jackzampolin/colorbook/internal/book"
	"github.com/jackzampolin/colorbook/internal/pipeline"
	"github.com/jackzampolin/colorbook/internal/studio"
)

func approvedIdea(title string, pages int) book.BookIdea {
	idea := book.NewBookIdea()
	idea.Title = title
	idea.Concept = title + " concept"
	idea.PageCount = pages
	idea.Approved = true
	return idea
}

func TestReachable_FirstStepAlways(t *testing.T) {
	for _, f := range []Flow{FlowBulk, FlowSingle} {
		if !Reachable(f, 1, State{}) {
			t.Errorf("%s: step 1 unreachable on empty state", f)
		}
		if Reachable(f, 2, State{}) {
			t.Errorf("%s: step 2 reachable on empty state", f)
		}
		if Reachable(f, 0, State{}) || Reachable(f, 99, State{}) {
			t.Errorf("%s: out of range step reachable", f)
		}
	}
}

func TestReachable_BulkFlow(t *testing.T) {
	unapproved := book.NewBookIdea()
	st := State{Ideas: []book.BookIdea{unapproved}}
	if Reachable(FlowBulk, BulkPagePlans, st) {
		t.Error("page plans reachable without an approved idea")
	}

	st.Ideas = append(st.Ideas, approvedIdea("Ocean", 3))
	if !Reachable(FlowBulk, BulkPagePlans, st) {
		t.Error("page plans unreachable with an approved idea")
	}
	if Reachable(FlowBulk, BulkPrompts, st) {
		t.Error("prompts reachable without a batch")
	}

	b, err := book.BatchFromIdeas(st.Ideas)
	if err != nil {
		t.Fatalf("BatchFromIdeas() error = %v", err)
	}
	st.Batch = b
	if !Reachable(FlowBulk, BulkPrompts, st) {
		t.Error("prompts unreachable with a batch")
	}
	if Reachable(FlowBulk, BulkGenerate, st) {
		t.Error("generate reachable without any final prompt")
	}

	b.Books[0].Pages[2].FinalPrompt = "a whale"
	if !Reachable(FlowBulk, BulkGenerate, st) {
		t.Error("generate unreachable with a final prompt")
	}
	if Reachable(FlowBulk, BulkReview, st) {
		t.Error("review reachable without a generated page")
	}

	b.Books[0].Pages[2].Status = book.PageGenerated
	if !Reachable(FlowBulk, BulkReview, st) {
		t.Error("review unreachable with a generated page")
	}

	// Emptying state makes a step unreachable again.
	st.Ideas = nil
	if Reachable(FlowBulk, BulkPagePlans, st) {
		t.Error("page plans still reachable after ideas were removed")
	}
}

func TestReachable_PromptGrowthIsMonotonic(t *testing.T) {
	b, err := book.BatchFromIdeas([]book.BookIdea{approvedIdea("Farm", 4), approvedIdea("Space", 2)})
	if err != nil {
		t.Fatalf("BatchFromIdeas() error = %v", err)
	}
	b.Books[1].Pages[0].FinalPrompt = "a rocket"
	st := State{Batch: b}

	check := func(when string) {
		t.Helper()
		if !Reachable(FlowBulk, BulkPrompts, st) || !Reachable(FlowBulk, BulkGenerate, st) {
			t.Errorf("%s: prompts/generate not both reachable", when)
		}
	}
	check("initial")

	b.Books[0].Title = "Farm Friends"
	check("after retitle")
	b.Books[0].Pages[1].IdeaText = "a cow"
	check("after idea edit")
	b.Books[0].Pages[0].Status = book.PageFailed
	check("after unrelated failure")
	b.Books[1].Pages[1].FinalPrompt = "an astronaut"
	check("after another prompt")
	st.Ideas = append(st.Ideas, book.NewBookIdea())
	check("after adding an idea")
}

func TestReachable_ApprovalDoesNotGate(t *testing.T) {
	b, _ := book.BatchFromIdeas([]book.BookIdea{approvedIdea("Farm", 1)})
	b.Books[0].Pages[0].FinalPrompt = "a barn"
	b.Books[0].Pages[0].IsPromptApproved = false
	if !Reachable(FlowBulk, BulkGenerate, State{Batch: b}) {
		t.Error("generate gated on prompt approval")
	}
}

func TestReachable_SingleFlow(t *testing.T) {
	st := State{}
	if Reachable(FlowSingle, SingleIdea, st) {
		t.Error("idea reachable before a book type is chosen")
	}
	st.BookType = book.TypeQuotes
	if !Reachable(FlowSingle, SingleIdea, st) {
		t.Error("idea unreachable with a book type")
	}

	b, _ := book.BatchFromIdeas([]book.BookIdea{approvedIdea("Quotes", 2)})
	st.Batch = b
	if Reachable(FlowSingle, SinglePrompts, st) {
		t.Error("prompts reachable before page ideas exist")
	}
	b.Books[0].Pages[0].IdeaText = "be kind"
	if !Reachable(FlowSingle, SinglePrompts, st) {
		t.Error("prompts unreachable with a page idea")
	}
	if Reachable(FlowSingle, SingleExport, st) {
		t.Error("export reachable without an image")
	}
	b.Books[0].Pages[0].Status = book.PageEnhanced
	if !Reachable(FlowSingle, SingleReview, st) || !Reachable(FlowSingle, SingleExport, st) {
		t.Error("review/export unreachable with an enhanced page")
	}
}

func TestSteps(t *testing.T) {
	steps := Steps(FlowSingle, State{BookType: book.TypeScenes})
	if len(steps) != 6 {
		t.Fatalf("got %d steps, want 6", len(steps))
	}
	if steps[0].Name != "book_type" || !steps[1].Reachable || steps[2].Reachable {
		t.Errorf("steps = %+v", steps)
	}
	if s, ok := StepByName(FlowBulk, "generate"); !ok || s != BulkGenerate {
		t.Errorf("StepByName(generate) = %d, %v", s, ok)
	}
}

func TestSession_CreateBatch(t *testing.T) {
	s := NewSession(FlowBulk)
	if _, err := s.CreateBatch(); err == nil {
		t.Fatal("expected error without approved ideas")
	}
	if s.Ledger() != nil {
		t.Error("ledger exists before a batch")
	}

	unapproved := approvedIdea("Skip", 4)
	unapproved.Approved = false
	if err := s.SetIdeas([]book.BookIdea{approvedIdea("One", 5), unapproved, approvedIdea("Three", 8)}); err != nil {
		t.Fatalf("SetIdeas() error = %v", err)
	}
	b, err := s.CreateBatch()
	if err != nil {
		t.Fatalf("CreateBatch() error = %v", err)
	}
	if len(b.Books) != 2 || b.TotalPages != 13 {
		t.Errorf("books/pages = %d/%d, want 2/13", len(b.Books), b.TotalPages)
	}
	for _, bk := range b.Books {
		if bk.Title == "Skip" {
			t.Error("unapproved idea became a book")
		}
	}
	if !s.Reachable(BulkPrompts) {
		t.Error("prompts unreachable after batch creation")
	}
	if s.Ledger() == nil || s.Ledger().Len() != 0 {
		t.Error("batch creation did not start an empty ledger")
	}
}

func TestSession_SingleFlowUsesFirstApproved(t *testing.T) {
	s := NewSession(FlowSingle)
	if err := s.SetBookType(book.TypeScenes); err != nil {
		t.Fatalf("SetBookType() error = %v", err)
	}
	if err := s.SetBookType("poems"); err == nil {
		t.Error("expected error for unknown book type")
	}
	_ = s.AddIdeas(approvedIdea("First", 2), approvedIdea("Second", 3))
	b, err := s.CreateBatch()
	if err != nil {
		t.Fatalf("CreateBatch() error = %v", err)
	}
	if len(b.Books) != 1 || b.Books[0].Title != "First" {
		t.Errorf("books = %+v, want only First", b.Books)
	}
}

func TestSession_ApproveAndSelectVersion(t *testing.T) {
	s := NewSession(FlowBulk)
	_ = s.SetIdeas([]book.BookIdea{approvedIdea("One", 1)})
	b, _ := s.CreateBatch()
	pageID := b.Books[0].Pages[0].ID

	if err := s.ApprovePage(pageID); err == nil {
		t.Error("expected error approving a page without an image")
	}

	_, err := s.Store.Update(func(tx *pipeline.Tx) error {
		_, p, err := tx.Page(b.Books[0].ID, pageID)
		if err != nil {
			return err
		}
		p.Status = book.PageEnhanced
		p.OriginalImage = []byte("o")
		p.EnhancedImage = []byte("e")
		return nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if err := s.SelectVersion(pageID, book.VersionFinalLetter); err == nil {
		t.Error("expected error selecting a missing artifact")
	}
	if err := s.SelectVersion(pageID, book.VersionEnhanced); err != nil {
		t.Fatalf("SelectVersion() error = %v", err)
	}
	if err := s.ApprovePage(pageID); err != nil {
		t.Fatalf("ApprovePage() error = %v", err)
	}
	got := s.Store.Snapshot()
	if got.ApprovedPages != 1 || got.Books[0].Pages[0].ActiveVersion != book.VersionEnhanced {
		t.Errorf("approved=%d version=%s", got.ApprovedPages, got.Books[0].Pages[0].ActiveVersion)
	}
	if err := s.ApprovePage("missing"); !errors.Is(err, pipeline.ErrNotFound) {
		t.Errorf("ApprovePage(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSessions(t *testing.T) {
	r := NewSessions()
	a := r.Create(FlowBulk)
	r.Create(FlowSingle)

	got, err := r.Get(a.ID)
	if err != nil || got != a {
		t.Fatalf("Get() = %v, %v", got, err)
	}
	if _, err := r.Get("nope"); !errors.Is(err, pipeline.ErrNotFound) {
		t.Errorf("Get(nope) error = %v, want ErrNotFound", err)
	}
	if n := len(r.List()); n != 2 {
		t.Errorf("List() = %d sessions, want 2", n)
	}
	r.Delete(a.ID)
	if n := len(r.List()); n != 1 {
		t.Errorf("List() after delete = %d sessions, want 1", n)
	}
}

func TestParseIdeas(t *testing.T) {
	data := []byte(`
ideas:
  - title: Dinosaur Days
    concept: friendly dinosaurs at play
    page_count: 4
  - title: Kind Words
    concept: short kind quotes
    book_type: quotes
    approved: false
`)
	ideas, err := ParseIdeas(data)
	if err != nil {
		t.Fatalf("ParseIdeas() error = %v", err)
	}
	if len(ideas) != 2 {
		t.Fatalf("got %d ideas, want 2", len(ideas))
	}
	if !ideas[0].Approved || ideas[1].Approved {
		t.Errorf("approved = %v/%v, want true/false", ideas[0].Approved, ideas[1].Approved)
	}
	if ideas[0].Type != book.TypeScenes || ideas[1].Type != book.TypeQuotes {
		t.Errorf("types = %s/%s", ideas[0].Type, ideas[1].Type)
	}
	if ideas[1].PageCount != book.DefaultPageCount || ideas[0].ID == "" {
		t.Errorf("defaults not applied: %+v", ideas[1])
	}

	if _, err := ParseIdeas([]byte("ideas:\n  - title: x\n    book_mode: comic\n")); err == nil {
		t.Error("expected error for unknown book mode")
	}
	if _, err := ParseIdeas([]byte("ideas: []\n")); err == nil {
		t.Error("expected error for empty file")
	}

	out, err := WriteIdeas(ideas)
	if err != nil {
		t.Fatalf("WriteIdeas() error = %v", err)
	}
	back, err := ParseIdeas(out)
	if err != nil || len(back) != 2 || back[1].Approved {
		t.Errorf("round trip = %+v, %v", back, err)
	}
}

func TestIdeaFromStudio(t *testing.T) {
	idea := IdeaFromStudio(studio.Idea{
		Title:     " Robots ",
		Concept:   "helpful robots",
		BookType:  "quotes",
		BookMode:  "storybook",
		TargetAge: "nonsense",
		PageCount: 500,
	})
	if idea.Title != "Robots" || idea.Type != book.TypeQuotes || idea.Mode != book.ModeStorybook {
		t.Errorf("idea = %+v", idea)
	}
	if idea.Audience != book.DefaultAudience {
		t.Errorf("audience = %s, want default", idea.Audience)
	}
	if idea.PageCount != book.MaxPageCount {
		t.Errorf("page count = %d, want %d", idea.PageCount, book.MaxPageCount)
	}
	if idea.Approved {
		t.Error("generated ideas start unapproved")
	}
}
