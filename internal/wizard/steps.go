// Package wizard holds the per-session state of the book creation flow and
// decides which steps of the flow are reachable.
package wizard

import (
	"fmt"
	"strings"

	"github.com/jackzampolin/colorbook/internal/book"
)

// Flow is a wizard variant.
type Flow string

const (
	FlowBulk   Flow = "bulk"
	FlowSingle Flow = "single"
)

func (f Flow) Valid() bool {
	switch f {
	case FlowBulk, FlowSingle:
		return true
	}
	return false
}

// ParseFlow maps "" to the bulk flow.
func ParseFlow(s string) (Flow, error) {
	if s == "" {
		return FlowBulk, nil
	}
	f := Flow(strings.ToLower(s))
	if !f.Valid() {
		return "", fmt.Errorf("unknown flow: %q", s)
	}
	return f, nil
}

// Step is a 1-based position in a flow.
type Step int

// Bulk flow steps.
const (
	BulkIdeas Step = iota + 1
	BulkPagePlans
	BulkPrompts
	BulkGenerate
	BulkReview
)

// Single-book flow steps.
const (
	SingleBookType Step = iota + 1
	SingleIdea
	SinglePrompts
	SingleGenerate
	SingleReview
	SingleExport
)

// State is the part of a session the guard looks at.
type State struct {
	BookType book.BookType
	Ideas    []book.BookIdea
	Batch    *book.Batch
}

type stepDef struct {
	name  string
	check func(State) bool
}

var flows = map[Flow][]stepDef{
	FlowBulk: {
		{"ideas", always},
		{"page_plans", hasApprovedIdea},
		{"prompts", hasBook},
		{"generate", hasFinalPrompt},
		{"review", hasGeneratedPage},
	},
	FlowSingle: {
		{"book_type", always},
		{"idea", hasBookType},
		{"prompts", hasPageIdea},
		{"generate", hasFinalPrompt},
		{"review", hasGeneratedPage},
		{"export", hasGeneratedPage},
	},
}

// Reachable reports whether step can be entered given st. It is evaluated
// from scratch on every call, so emptying state can make a step unreachable
// again.
func Reachable(f Flow, step Step, st State) bool {
	defs := flows[f]
	if step < 1 || int(step) > len(defs) {
		return false
	}
	return defs[step-1].check(st)
}

// StepStatus is one row of the reachability table.
type StepStatus struct {
	Step      Step   `json:"step"`
	Name      string `json:"name"`
	Reachable bool   `json:"reachable"`
}

// Steps returns the reachability of every step of the flow, in order.
func Steps(f Flow, st State) []StepStatus {
	defs := flows[f]
	out := make([]StepStatus, len(defs))
	for i, d := range defs {
		out[i] = StepStatus{Step: Step(i + 1), Name: d.name, Reachable: d.check(st)}
	}
	return out
}

// StepByName resolves a step name within a flow.
func StepByName(f Flow, name string) (Step, bool) {
	for i, d := range flows[f] {
		if d.name == name {
			return Step(i + 1), true
		}
	}
	return 0, false
}

func always(State) bool { return true }

func hasBookType(st State) bool { return st.BookType.Valid() }

func hasApprovedIdea(st State) bool {
	for _, idea := range st.Ideas {
		if idea.Approved {
			return true
		}
	}
	return false
}

func hasBook(st State) bool {
	return st.Batch != nil && len(st.Batch.Books) > 0
}

func anyPage(st State, fn func(p *book.Page) bool) bool {
	if st.Batch == nil {
		return false
	}
	for i := range st.Batch.Books {
		for j := range st.Batch.Books[i].Pages {
			if fn(&st.Batch.Books[i].Pages[j]) {
				return true
			}
		}
	}
	return false
}

func hasPageIdea(st State) bool {
	return anyPage(st, func(p *book.Page) bool { return strings.TrimSpace(p.IdeaText) != "" })
}

// Prompt approval does not gate generation; a non-empty prompt is enough.
func hasFinalPrompt(st State) bool {
	return anyPage(st, func(p *book.Page) bool { return strings.TrimSpace(p.FinalPrompt) != "" })
}

func hasGeneratedPage(st State) bool {
	return anyPage(st, func(p *book.Page) bool { return p.Status.HasImage() })
}
