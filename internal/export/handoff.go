package export

import (
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jackzampolin/colorbook/internal/studio"
)

// Bundle is the page set handed from the review step to the export step.
type Bundle struct {
	Pages []studio.ExportPage `json:"pages"`
}

// Handoff keeps one bundle per session for a limited time.
type Handoff struct {
	c *cache.Cache
}

// NewHandoff creates a hand-off store whose entries expire after ttl.
func NewHandoff(ttl time.Duration) *Handoff {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Handoff{c: cache.New(ttl, ttl/2)}
}

// Put stores the bundle for a session, replacing any earlier one.
func (h *Handoff) Put(sessionID string, b Bundle) {
	h.c.SetDefault(sessionID, b)
}

// Get returns the bundle for a session if it has not expired.
func (h *Handoff) Get(sessionID string) (Bundle, bool) {
	v, ok := h.c.Get(sessionID)
	if !ok {
		return Bundle{}, false
	}
	return v.(Bundle), true
}

// Take returns and removes the bundle for a session.
func (h *Handoff) Take(sessionID string) (Bundle, bool) {
	b, ok := h.Get(sessionID)
	if ok {
		h.c.Delete(sessionID)
	}
	return b, ok
}
