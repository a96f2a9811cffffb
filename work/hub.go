package work

import (
	"context"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
)

// Hub supervises a set of workers. Each worker runs on its own goroutine;
// a fault in one cannot corrupt another, and an unhandled error or panic
// terminates only the faulty worker while the rest continue degraded. For
// a physical system "stop moving" beats "stop existing".
type Hub struct {
	logger  golog.Logger
	workers []Worker
}

// NewHub returns an empty hub.
func NewHub(logger golog.Logger) *Hub {
	return &Hub{logger: logger}
}

// Add registers workers to run. Not safe to call once Run has started.
func (h *Hub) Add(workers ...Worker) {
	h.workers = append(h.workers, workers...)
}

// Run starts every worker and blocks until ctx is canceled, then
// propagates the cancellation, waits for every loop to exit, and closes
// the workers. The combined close error is returned.
func (h *Hub) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for _, w := range h.workers {
		w := w
		wg.Add(1)
		goutils.PanicCapturingGo(func() {
			defer wg.Done()
			h.runWorker(runCtx, w)
		})
	}

	<-ctx.Done()
	cancel()
	wg.Wait()

	var err error
	for _, w := range h.workers {
		err = multierr.Combine(err, w.Close())
	}
	return err
}

func (h *Hub) runWorker(ctx context.Context, w Worker) {
	h.logger.Infow("worker starting", "worker", w.Name(), "frequency", w.Frequency())
	var period time.Duration
	if freq := w.Frequency(); freq > 0 {
		period = time.Duration(float64(time.Second) / freq)
	}
	for {
		if ctx.Err() != nil {
			h.logger.Infow("worker stopping", "worker", w.Name())
			return
		}
		start := time.Now()
		if err := w.Work(ctx); err != nil {
			if ctx.Err() != nil {
				h.logger.Infow("worker stopping", "worker", w.Name())
				return
			}
			h.logger.Errorw("worker failed; continuing without it", "worker", w.Name(), "error", err)
			return
		}
		if period > 0 {
			if rest := period - time.Since(start); rest > 0 {
				if !goutils.SelectContextOrWait(ctx, rest) {
					h.logger.Infow("worker stopping", "worker", w.Name())
					return
				}
			}
		}
	}
}
