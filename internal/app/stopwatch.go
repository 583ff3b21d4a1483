package app

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Stopwatch measures a quiz session and reports the elapsed time on a fixed
// interval. The displayed value is always recomputed from the start time, so
// skipped ticks never drift the display.
type Stopwatch struct {
	now      func() time.Time
	interval time.Duration

	mu      sync.Mutex
	start   time.Time
	stopped time.Time
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewStopwatch(now func() time.Time, interval time.Duration) *Stopwatch {
	if now == nil {
		now = time.Now
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Stopwatch{now: now, interval: interval}
}

// Start records the start time and begins ticking. A running stopwatch is
// stopped first. onTick may be nil; it must not call back into the owner
// that stops this stopwatch.
func (w *Stopwatch) Start(onTick func(elapsed time.Duration)) {
	w.Stop()

	w.mu.Lock()
	defer w.mu.Unlock()
	w.start = w.now()
	w.stopped = time.Time{}
	w.running = true
	if onTick == nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	w.cancel = cancel
	w.done = done
	start := w.start

	go func() {
		defer close(done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if ctx.Err() != nil {
					return
				}
				onTick(clampElapsed(w.now().Sub(start)))
			}
		}
	}()
}

// Stop freezes the elapsed time and waits for the tick goroutine to exit.
// Stopping an idle stopwatch is a no-op.
func (w *Stopwatch) Stop() time.Duration {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	if w.running {
		w.stopped = w.now()
		w.running = false
	}
	elapsed := clampElapsed(w.stopped.Sub(w.start))
	w.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return elapsed
}

// Elapsed is the time since Start, or the frozen value after Stop.
func (w *Stopwatch) Elapsed() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.start.IsZero() {
		return 0
	}
	if w.running {
		return clampElapsed(w.now().Sub(w.start))
	}
	return clampElapsed(w.stopped.Sub(w.start))
}

// Running reports whether the stopwatch is measuring.
func (w *Stopwatch) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// FormatClock renders d as MM:SS, truncating fractions of a second.
func FormatClock(d time.Duration) string {
	secs := int64(clampElapsed(d) / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

func clampElapsed(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
