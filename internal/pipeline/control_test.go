package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestControl_WaitRunning(t *testing.T) {
	ctl := NewControl()
	if err := ctl.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}

func TestControl_PauseResume(t *testing.T) {
	ctl := NewControl()
	var seen []bool
	ctl.Observe(func(paused bool) { seen = append(seen, paused) })

	ctl.Pause()
	if !ctl.Paused() {
		t.Fatal("Paused() = false after Pause()")
	}

	done := make(chan error, 1)
	go func() { done <- ctl.Wait(context.Background()) }()

	select {
	case <-done:
		t.Fatal("Wait() returned while paused")
	case <-time.After(30 * time.Millisecond):
	}

	ctl.Resume()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait() not released by Resume()")
	}

	if len(seen) != 2 || !seen[0] || seen[1] {
		t.Errorf("observed %v, want [true false]", seen)
	}
}

func TestControl_CancelReleasesPaused(t *testing.T) {
	ctl := NewControl()
	ctl.Pause()

	done := make(chan error, 1)
	go func() { done <- ctl.Wait(context.Background()) }()
	ctl.Cancel()

	select {
	case err := <-done:
		if !errors.Is(err, ErrCancelled) {
			t.Fatalf("Wait() error = %v, want ErrCancelled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait() not released by Cancel()")
	}
	if ctl.Paused() {
		t.Error("Paused() = true after Cancel()")
	}

	// Pause after cancel is ignored.
	ctl.Pause()
	if ctl.Paused() {
		t.Error("Pause() took effect after Cancel()")
	}
	select {
	case <-ctl.Done():
	default:
		t.Error("Done() not closed after Cancel()")
	}
}

func TestControl_WaitContext(t *testing.T) {
	ctl := NewControl()
	ctl.Pause()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := ctl.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want DeadlineExceeded", err)
	}
}

func TestControl_ObserveWhilePaused(t *testing.T) {
	ctl := NewControl()
	ctl.Pause()

	var seen []bool
	ctl.Observe(func(paused bool) { seen = append(seen, paused) })
	if len(seen) != 1 || !seen[0] {
		t.Fatalf("observed %v on registration, want [true]", seen)
	}

	ctl.Observe(nil)
	ctl.Resume()
	if len(seen) != 1 {
		t.Errorf("removed observer still called: %v", seen)
	}
}
