package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSweepSpinnerCounts(t *testing.T) {
	s := newSweepSpinner(&bytes.Buffer{})
	ctx := context.Background()

	s.OnSweepStart(ctx, "id", 4)
	s.OnRunComplete(ctx, "35", 1, time.Millisecond, nil)
	s.OnRunComplete(ctx, "35", 2, time.Millisecond, errors.New("boom"))

	if got, want := s.message(), "sweeping 2/4 runs, 1 failed"; got != want {
		t.Errorf("message() = %q, want %q", got, want)
	}
}

func TestSweepSpinnerStop(t *testing.T) {
	var buf bytes.Buffer
	s := newSweepSpinner(&buf)
	s.Start(context.Background())
	time.Sleep(200 * time.Millisecond)
	s.Stop()
	s.Stop()

	out := buf.String()
	if !strings.Contains(out, "sweeping 0/0 runs") {
		t.Errorf("spinner output %q missing progress", out)
	}
	if !strings.HasSuffix(out, "\r") {
		t.Errorf("spinner should clear its line, got %q", out)
	}
}

func TestSweepSpinnerCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newSweepSpinner(&bytes.Buffer{})
	s.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after cancellation")
	}
}
