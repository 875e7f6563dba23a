package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Source supplies the current live event set on each evaluation tick. It is
// expected to be backed by an out-of-band refresh (a persistence query); the
// runner itself performs no other I/O.
type Source func(ctx context.Context) ([]Event, error)

// Sink receives each due-signal. It must not block for long: signals are
// delivered synchronously from the tick loop.
type Sink func(Event)

// RunnerOptions tunes the runner's cadences and dependencies.
type RunnerOptions struct {
	EvaluateEvery time.Duration
	CleanupEvery  time.Duration
	Now           func() time.Time
	Logger        *slog.Logger
}

// Runner owns the scheduler's two tick cadences: a fast evaluation tick and a
// slower cleanup tick. It exists so the polling loop has an explicit start and
// stop lifecycle instead of ambient process-wide timers, and so tests can
// drive ticks by hand through the Scheduler.
type Runner struct {
	scheduler     *Scheduler
	source        Source
	sink          Sink
	evaluateEvery time.Duration
	cleanupEvery  time.Duration
	now           func() time.Time
	logger        *slog.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewRunner wires a Runner around the scheduler, source and sink.
func NewRunner(scheduler *Scheduler, source Source, sink Sink, opts RunnerOptions) *Runner {
	if opts.EvaluateEvery <= 0 {
		opts.EvaluateEvery = DefaultEvaluateEvery
	}
	if opts.CleanupEvery <= 0 {
		opts.CleanupEvery = DefaultCleanupEvery
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Runner{
		scheduler:     scheduler,
		source:        source,
		sink:          sink,
		evaluateEvery: opts.EvaluateEvery,
		cleanupEvery:  opts.CleanupEvery,
		now:           opts.Now,
		logger:        opts.Logger.With("component", "notify.Runner"),
	}
}

// Start launches the tick loop. Calling Start on a running runner is a no-op.
func (r *Runner) Start(ctx context.Context) {
	if r == nil || r.scheduler == nil || r.source == nil || r.sink == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true

	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	go r.loop(loopCtx)
}

// Stop halts the tick loop and waits for it to exit. There is no in-flight
// work to cancel beyond the loop itself.
func (r *Runner) Stop() {
	if r == nil {
		return
	}

	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.started = false
	cancel := r.cancel
	done := r.done
	r.mu.Unlock()

	cancel()
	<-done
}

func (r *Runner) loop(ctx context.Context) {
	defer close(r.done)

	evaluate := time.NewTicker(r.evaluateEvery)
	defer evaluate.Stop()
	cleanup := time.NewTicker(r.cleanupEvery)
	defer cleanup.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-evaluate.C:
			r.evaluateOnce(ctx)
		case <-cleanup.C:
			r.scheduler.Cleanup(r.now())
		}
	}
}

// evaluateOnce fetches the live event set and dispatches due-signals. A
// failing fetch degrades to a skipped tick; a missed alert is preferred over
// surfacing an error from the notification path.
func (r *Runner) evaluateOnce(ctx context.Context) {
	events, err := r.source(ctx)
	if err != nil {
		r.logger.WarnContext(ctx, "event refresh failed, skipping tick", "error", err)
		return
	}

	for _, event := range r.scheduler.Evaluate(events, r.now()) {
		r.sink(event)
	}
}
