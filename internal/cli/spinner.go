package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// sweepSpinner animates sweep progress on a terminal. It implements
// observability.SweepHooks, so registering it makes the sweep report every
// finished run.
type sweepSpinner struct {
	w      io.Writer
	total  atomic.Int64
	done   atomic.Int64
	failed atomic.Int64

	mu      sync.Mutex
	width   int
	stop    chan struct{}
	stopped chan struct{}
}

func newSweepSpinner(w io.Writer) *sweepSpinner {
	return &sweepSpinner{w: w, stop: make(chan struct{}), stopped: make(chan struct{})}
}

func (s *sweepSpinner) OnSweepStart(_ context.Context, _ string, tasks int) {
	s.total.Store(int64(tasks))
}

func (s *sweepSpinner) OnRunComplete(_ context.Context, _ string, _ int, _ time.Duration, err error) {
	s.done.Add(1)
	if err != nil {
		s.failed.Add(1)
	}
}

func (s *sweepSpinner) OnSweepComplete(context.Context, string, int, int, time.Duration) {}

// message describes the current progress.
func (s *sweepSpinner) message() string {
	msg := fmt.Sprintf("sweeping %d/%d runs", s.done.Load(), s.total.Load())
	if f := s.failed.Load(); f > 0 {
		msg += fmt.Sprintf(", %d failed", f)
	}
	return msg
}

// Start animates until Stop is called or ctx is done.
func (s *sweepSpinner) Start(ctx context.Context) {
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				s.draw(spinnerFrames[i%len(spinnerFrames)])
			}
		}
	}()
}

func (s *sweepSpinner) draw(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := s.message()
	s.width = max(s.width, len(msg)+2)
	fmt.Fprintf(s.w, "\r%s %s", styleIconSpinner.Render(frame), StyleDim.Render(msg))
}

// Stop ends the animation and clears the line. It is safe to call twice.
func (s *sweepSpinner) Stop() {
	s.mu.Lock()
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	s.mu.Unlock()
	<-s.stopped

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.width > 0 {
		fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", s.width+2))
	}
}
