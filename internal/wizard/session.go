package wizard

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackzampolin/colorbook/internal/book"
	"github.com/jackzampolin/colorbook/internal/pipeline"
	"github.com/jackzampolin/colorbook/internal/progress"
	"github.com/jackzampolin/colorbook/internal/report"
)

// Session is one user's pass through a flow. The batch lives in Store; the
// ideas and the chosen book type live on the session itself.
type Session struct {
	ID        string
	Flow      Flow
	CreatedAt time.Time
	Store     *pipeline.Store

	mu       sync.RWMutex
	bookType book.BookType
	ideas    []book.BookIdea
	ledger   *report.Ledger
}

// NewSession starts a session with no ideas and no batch.
func NewSession(flow Flow) *Session {
	return &Session{
		ID:        book.NewID(),
		Flow:      flow,
		CreatedAt: time.Now().UTC(),
		Store:     pipeline.NewStore(nil),
	}
}

func (s *Session) BookType() book.BookType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bookType
}

// SetBookType records the type chosen in the first step of the single flow.
func (s *Session) SetBookType(t book.BookType) error {
	if !t.Valid() {
		return fmt.Errorf("unknown book type: %q", t)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookType = t
	return nil
}

// Ideas returns a copy of the session's ideas.
func (s *Session) Ideas() []book.BookIdea {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]book.BookIdea(nil), s.ideas...)
}

// SetIdeas replaces the ideas. Missing ids and tags are filled with defaults.
func (s *Session) SetIdeas(ideas []book.BookIdea) error {
	normalized := make([]book.BookIdea, len(ideas))
	for i, idea := range ideas {
		n, err := normalizeIdea(idea)
		if err != nil {
			return fmt.Errorf("idea %d: %w", i+1, err)
		}
		normalized[i] = n
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ideas = normalized
	return nil
}

// AddIdeas appends ideas after normalizing them.
func (s *Session) AddIdeas(ideas ...book.BookIdea) error {
	normalized := make([]book.BookIdea, 0, len(ideas))
	for i, idea := range ideas {
		n, err := normalizeIdea(idea)
		if err != nil {
			return fmt.Errorf("idea %d: %w", i+1, err)
		}
		normalized = append(normalized, n)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ideas = append(s.ideas, normalized...)
	return nil
}

// CreateBatch turns the approved ideas into a batch and installs it in the
// store, replacing any earlier batch. The single flow uses only its first
// approved idea.
func (s *Session) CreateBatch() (*book.Batch, error) {
	ideas := s.Ideas()
	if s.Flow == FlowSingle {
		for _, idea := range ideas {
			if idea.Approved {
				ideas = []book.BookIdea{idea}
				break
			}
		}
	}
	b, err := book.BatchFromIdeas(ideas)
	if err != nil {
		return nil, err
	}
	s.Store.Replace(b)
	s.mu.Lock()
	s.ledger = report.NewLedger(b.ID)
	s.mu.Unlock()
	return s.Store.Snapshot(), nil
}

// Ledger returns the outcome ledger of the current batch, or nil before a
// batch exists.
func (s *Session) Ledger() *report.Ledger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger
}

// State captures what the step guard needs.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		BookType: s.bookType,
		Ideas:    append([]book.BookIdea(nil), s.ideas...),
		Batch:    s.Store.Snapshot(),
	}
}

func (s *Session) Steps() []StepStatus {
	return Steps(s.Flow, s.State())
}

func (s *Session) Reachable(step Step) bool {
	return Reachable(s.Flow, step, s.State())
}

// ApprovePage marks a generated page as approved.
func (s *Session) ApprovePage(pageID string) error {
	_, err := s.Store.Update(func(tx *pipeline.Tx) error {
		bi, _, ok := tx.Batch().FindPage(pageID)
		if !ok {
			return fmt.Errorf("%w: page %s", pipeline.ErrNotFound, pageID)
		}
		_, p, err := tx.Page(tx.Batch().Books[bi].ID, pageID)
		if err != nil {
			return err
		}
		return p.Approve(time.Now().UTC())
	})
	return err
}

// SelectVersion chooses which artifact of a page is displayed and exported.
func (s *Session) SelectVersion(pageID string, v book.ActiveVersion) error {
	_, err := s.Store.Update(func(tx *pipeline.Tx) error {
		bi, _, ok := tx.Batch().FindPage(pageID)
		if !ok {
			return fmt.Errorf("%w: page %s", pipeline.ErrNotFound, pageID)
		}
		_, p, err := tx.Page(tx.Batch().Books[bi].ID, pageID)
		if err != nil {
			return err
		}
		return p.SetActiveVersion(v)
	})
	return err
}

// View is the serializable snapshot of a session.
type View struct {
	ID        string           `json:"id"`
	Flow      Flow             `json:"flow"`
	CreatedAt time.Time        `json:"created_at"`
	BookType  book.BookType    `json:"book_type,omitempty"`
	Ideas     []book.BookIdea  `json:"ideas"`
	Batch     *book.Batch      `json:"batch,omitempty"`
	Progress  progress.Summary `json:"progress"`
	Steps     []StepStatus     `json:"steps"`
}

// View snapshots the session.
func (s *Session) View() View {
	st := s.State()
	return View{
		ID:        s.ID,
		Flow:      s.Flow,
		CreatedAt: s.CreatedAt,
		BookType:  st.BookType,
		Ideas:     st.Ideas,
		Batch:     st.Batch,
		Progress:  progress.Summarize(st.Batch),
		Steps:     Steps(s.Flow, st),
	}
}

// Sessions is the in-memory set of live sessions.
type Sessions struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[string]*Session)}
}

// Create starts and registers a new session.
func (r *Sessions) Create(flow Flow) *Session {
	s := NewSession(flow)
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

// Get returns a session by id.
func (r *Sessions) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", pipeline.ErrNotFound, id)
	}
	return s, nil
}

// List returns all sessions, oldest first.
func (r *Sessions) List() []*Session {
	r.mu.RLock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Delete forgets a session.
func (r *Sessions) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}
