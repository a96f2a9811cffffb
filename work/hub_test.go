package work

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

type countingWorker struct {
	name      string
	freq      float64
	ticks     atomic.Int64
	closed    atomic.Int64
	workErr   error
	failAfter int64
	panics    bool
}

func (w *countingWorker) Name() string       { return w.name }
func (w *countingWorker) Frequency() float64 { return w.freq }

func (w *countingWorker) Work(ctx context.Context) error {
	n := w.ticks.Add(1)
	if w.panics {
		panic("boom")
	}
	if w.failAfter != 0 && n >= w.failAfter {
		return w.workErr
	}
	return nil
}

func (w *countingWorker) Close() error {
	w.closed.Add(1)
	return nil
}

func TestHubRunsAndStops(t *testing.T) {
	logger := golog.NewTestLogger(t)
	w := &countingWorker{name: "ticker", freq: 100}

	hub := NewHub(logger)
	hub.Add(w)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- hub.Run(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()
	test.That(t, <-done, test.ShouldBeNil)

	test.That(t, w.ticks.Load(), test.ShouldBeGreaterThan, 1)
	test.That(t, w.closed.Load(), test.ShouldEqual, 1)
}

func TestHubIsolatesFailingWorker(t *testing.T) {
	logger := golog.NewTestLogger(t)
	failing := &countingWorker{name: "failing", freq: 100, failAfter: 3, workErr: errors.New("tick failed")}
	healthy := &countingWorker{name: "healthy", freq: 100}

	hub := NewHub(logger)
	hub.Add(failing, healthy)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- hub.Run(ctx)
	}()

	time.Sleep(150 * time.Millisecond)
	cancel()
	test.That(t, <-done, test.ShouldBeNil)

	// the failing worker stopped at its third tick; its peer kept running
	test.That(t, failing.ticks.Load(), test.ShouldEqual, 3)
	test.That(t, healthy.ticks.Load(), test.ShouldBeGreaterThan, 5)
	test.That(t, failing.closed.Load(), test.ShouldEqual, 1)
	test.That(t, healthy.closed.Load(), test.ShouldEqual, 1)
}

func TestHubIsolatesPanickingWorker(t *testing.T) {
	logger := golog.NewTestLogger(t)
	panicking := &countingWorker{name: "panicking", freq: 100, panics: true}
	healthy := &countingWorker{name: "healthy", freq: 100}

	hub := NewHub(logger)
	hub.Add(panicking, healthy)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- hub.Run(ctx)
	}()

	time.Sleep(150 * time.Millisecond)
	cancel()
	test.That(t, <-done, test.ShouldBeNil)

	test.That(t, panicking.ticks.Load(), test.ShouldEqual, 1)
	test.That(t, healthy.ticks.Load(), test.ShouldBeGreaterThan, 5)
}

func TestHubShutdownIsPromptInsideTickWait(t *testing.T) {
	logger := golog.NewTestLogger(t)
	// one tick per hour: shutdown must interrupt the wait, not ride it out
	slow := &countingWorker{name: "slow", freq: 1.0 / 3600}

	hub := NewHub(logger)
	hub.Add(slow)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- hub.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	start := time.Now()
	cancel()
	test.That(t, <-done, test.ShouldBeNil)
	test.That(t, time.Since(start), test.ShouldBeLessThan, time.Second)
}
