// Package progress derives display-ready aggregates from a batch:
// counts per status, the running mean duration, and an ETA.
package progress

import (
	"github.com/jackzampolin/colorbook/internal/book"
)

// RunningMean is an incrementally updated arithmetic mean.
type RunningMean struct {
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
}

// Add folds one sample into the mean and returns the updated value.
func (m RunningMean) Add(sample float64) RunningMean {
	if m.Count <= 0 {
		return RunningMean{Mean: sample, Count: 1}
	}
	n := float64(m.Count)
	return RunningMean{
		Mean:  (m.Mean*n + sample) / (n + 1),
		Count: m.Count + 1,
	}
}

// Summary is the aggregate view of a batch.
type Summary struct {
	Total       int                       `json:"total"`
	ByStatus    map[book.PageStatus]int   `json:"by_status"`
	ByPrompt    map[book.PromptStatus]int `json:"by_prompt_status"`
	Completed   int                       `json:"completed"`
	Remaining   int                       `json:"remaining"`
	Percent     int                       `json:"percent"`
	AvgMs       float64                   `json:"avg_generation_ms"`
	ETASeconds  *float64                  `json:"eta_seconds,omitempty"`
	ETA         string                    `json:"eta,omitempty"`
	BatchStatus book.BatchStatus          `json:"batch_status"`
}

// Summarize scans every page of the batch. It never mutates the batch.
// The ETA is only present while the batch is generating and at least one
// page has completed, so an average is known.
func Summarize(b *book.Batch) Summary {
	s := Summary{
		ByStatus: make(map[book.PageStatus]int, len(book.PageStatuses)),
		ByPrompt: make(map[book.PromptStatus]int, 4),
	}
	if b == nil {
		return s
	}
	for i := range b.Books {
		for j := range b.Books[i].Pages {
			p := &b.Books[i].Pages[j]
			s.Total++
			s.ByStatus[p.Status]++
			s.ByPrompt[p.PromptStatus]++
		}
	}

	pc := book.CalculateBatchProgress(b)
	s.Completed = pc.Completed
	s.Percent = pc.Percent
	s.Remaining = s.Total - s.Completed - s.ByStatus[book.PageFailed]
	if s.Remaining < 0 {
		s.Remaining = 0
	}
	s.AvgMs = b.AvgGenerationMs
	s.BatchStatus = b.Status

	if eta, ok := ETA(s.Remaining, b.AvgGenerationMs, b.TimedPages, b.Status == book.BatchGenerating); ok {
		s.ETASeconds = &eta
		s.ETA = book.FormatETA(eta)
	}
	return s
}

// ETA returns remaining * avgMs / 1000 seconds. ok is false when no sample
// exists yet or the batch is not running.
func ETA(remaining int, avgMs float64, samples int, running bool) (float64, bool) {
	if !running || samples <= 0 || avgMs <= 0 {
		return 0, false
	}
	return float64(remaining) * avgMs / 1000, true
}
