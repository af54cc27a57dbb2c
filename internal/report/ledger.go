// Package report records per-page stage outcomes and writes them as a
// Parquet file for offline analysis of a run.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/jackzampolin/colorbook/internal/pipeline"
)

// Row is one stage outcome.
type Row struct {
	BatchID    string `parquet:"batch_id"`
	BookID     string `parquet:"book_id"`
	PageID     string `parquet:"page_id"`
	PageIndex  int32  `parquet:"page_index"`
	Stage      string `parquet:"stage"`
	Status     string `parquet:"status"`
	DurationMs int64  `parquet:"duration_ms"`
	Error      string `parquet:"error"`
	Warning    string `parquet:"warning"`
	At         int64  `parquet:"at_ms"`
}

// Ledger collects rows for one batch. It is safe for concurrent use and
// its Record method fits pipeline.Runner.OnOutcome.
type Ledger struct {
	mu      sync.Mutex
	batchID string
	rows    []Row
}

// NewLedger creates an empty ledger for a batch.
func NewLedger(batchID string) *Ledger {
	return &Ledger{batchID: batchID}
}

// Record appends an outcome.
func (l *Ledger) Record(o pipeline.Outcome) {
	row := Row{
		BatchID:    o.BatchID,
		BookID:     o.BookID,
		PageID:     o.PageID,
		PageIndex:  int32(o.PageIndex),
		Stage:      o.Stage,
		Status:     o.Status,
		DurationMs: o.Duration.Milliseconds(),
		Error:      o.Error,
		Warning:    o.Warning,
		At:         o.At.UnixMilli(),
	}
	l.mu.Lock()
	if row.BatchID == "" {
		row.BatchID = l.batchID
	}
	l.rows = append(l.rows, row)
	l.mu.Unlock()
}

// Rows returns a copy of the recorded rows.
func (l *Ledger) Rows() []Row {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Row, len(l.rows))
	copy(out, l.rows)
	return out
}

// Len is the number of recorded rows.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rows)
}

// Write stores the rows as dir/<batch>-<unix>.parquet and returns the path.
func (l *Ledger) Write(dir string, now time.Time) (string, error) {
	rows := l.Rows()
	if len(rows) == 0 {
		return "", fmt.Errorf("ledger for batch %s is empty", l.batchID)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%d.parquet", l.batchID, now.Unix()))
	if err := parquet.WriteFile(path, rows); err != nil {
		return "", fmt.Errorf("failed to write ledger: %w", err)
	}
	return path, nil
}

// Read loads a ledger file written by Write.
func Read(path string) ([]Row, error) {
	rows, err := parquet.ReadFile[Row](path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	return rows, nil
}

// StageSummary aggregates rows of one stage.
type StageSummary struct {
	Stage     string  `json:"stage" yaml:"stage"`
	Done      int     `json:"done" yaml:"done"`
	Failed    int     `json:"failed" yaml:"failed"`
	Skipped   int     `json:"skipped" yaml:"skipped"`
	AverageMs float64 `json:"average_ms" yaml:"average_ms"`
}

// Summarize groups rows by stage in first-seen order. Averages count
// completed items only.
func Summarize(rows []Row) []StageSummary {
	var out []StageSummary
	idx := map[string]int{}
	totals := map[string]int64{}
	for _, r := range rows {
		i, ok := idx[r.Stage]
		if !ok {
			i = len(out)
			idx[r.Stage] = i
			out = append(out, StageSummary{Stage: r.Stage})
		}
		switch r.Status {
		case pipeline.OutcomeDone:
			out[i].Done++
			totals[r.Stage] += r.DurationMs
		case pipeline.OutcomeFailed:
			out[i].Failed++
		case pipeline.OutcomeSkipped:
			out[i].Skipped++
		}
	}
	for i := range out {
		if out[i].Done > 0 {
			out[i].AverageMs = float64(totals[out[i].Stage]) / float64(out[i].Done)
		}
	}
	return out
}
