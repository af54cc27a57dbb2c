package jobs

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const MockJobType = "mock"

// MockJob waits for Duration in small steps. It is used to exercise the
// manager without a batch.
type MockJob struct {
	id         string
	Duration   time.Duration
	ShouldFail bool

	step atomic.Int32
}

// NewMockJob creates a new mock job with default settings.
func NewMockJob() *MockJob {
	return &MockJob{id: uuid.NewString(), Duration: 50 * time.Millisecond}
}

func (j *MockJob) ID() string   { return j.id }
func (j *MockJob) Type() string { return MockJobType }

// Execute advances through five steps over Duration.
func (j *MockJob) Execute(ctx context.Context) error {
	deps := DepsFromContext(ctx)
	tick := j.Duration / 5
	for i := 1; i <= 5; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(tick):
		}
		j.step.Store(int32(i))
		if deps.Logger != nil {
			deps.Logger.Debug("mock job step", "step", i)
		}
	}
	if j.ShouldFail {
		return fmt.Errorf("mock job failed")
	}
	return nil
}

func (j *MockJob) Status(ctx context.Context) (map[string]string, error) {
	return map[string]string{"step": strconv.Itoa(int(j.step.Load()))}, nil
}
