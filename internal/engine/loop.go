package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrStopped is returned by Run and RunUntil once the loop has been stopped.
var ErrStopped = errors.New("engine: loop stopped")

// DefaultPollInterval is how often idle polls run when no task wakes the loop.
const DefaultPollInterval = 50 * time.Millisecond

// Poll is an idle callback. It is called once per tick until it returns true.
type Poll func() bool

// Loop is the single-threaded cooperative scheduler.
//
// Post is safe from any goroutine. DoOnIdleRepeating, Tick, RunPending, Run
// and RunUntil must only be called from the goroutine that owns the loop
// (tasks and polls already run there).
type Loop struct {
	queue    *taskQueue
	interval time.Duration
	logger   *slog.Logger

	mu    sync.Mutex
	polls []Poll
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithPollInterval sets the idle poll period used by Run and RunUntil.
func WithPollInterval(d time.Duration) LoopOption {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithLogger sets the loop's logger.
func WithLogger(logger *slog.Logger) LoopOption {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoop creates a loop with an empty queue and no polls.
func NewLoop(opts ...LoopOption) *Loop {
	l := &Loop{
		queue:    newTaskQueue(),
		interval: DefaultPollInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Post schedules t to run on the loop. Returns false if the loop is stopped,
// in which case t will never run.
func (l *Loop) Post(t Task) bool {
	if t == nil {
		return false
	}
	return l.queue.Enqueue(t)
}

// DoOnIdleRepeating registers p to run once per tick until it returns true.
func (l *Loop) DoOnIdleRepeating(p Poll) {
	if p == nil {
		return
	}
	l.mu.Lock()
	l.polls = append(l.polls, p)
	l.mu.Unlock()
}

// RunPending drains the task queue, including tasks posted while draining.
// Returns the number of tasks run.
func (l *Loop) RunPending() int {
	n := 0
	for {
		t, ok := l.queue.TryDequeue()
		if !ok {
			return n
		}
		t()
		n++
	}
}

// Tick drains the queue, runs each registered poll once, then drains again.
func (l *Loop) Tick() {
	l.RunPending()

	l.mu.Lock()
	polls := l.polls
	l.polls = nil
	l.mu.Unlock()

	var keep []Poll
	for _, p := range polls {
		if !p() {
			keep = append(keep, p)
		}
	}

	if len(keep) > 0 {
		l.mu.Lock()
		// Polls registered during this tick were appended to l.polls.
		l.polls = append(keep, l.polls...)
		l.mu.Unlock()
	}

	l.RunPending()
}

// PollCount returns the number of registered idle polls.
func (l *Loop) PollCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.polls)
}

// Idle reports whether there are no queued tasks and no idle polls.
func (l *Loop) Idle() bool {
	return l.queue.Len() == 0 && l.PollCount() == 0
}

// Run ticks until ctx is cancelled or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Debug("loop starting", "poll_interval", l.interval)
	return l.run(ctx, nil)
}

// RunUntil ticks until cond reports true, ctx is cancelled, or the loop is
// stopped. cond is evaluated on the loop goroutine after every tick.
func (l *Loop) RunUntil(ctx context.Context, cond func() bool) error {
	return l.run(ctx, cond)
}

func (l *Loop) run(ctx context.Context, cond func() bool) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		l.Tick()

		if cond != nil && cond() {
			return nil
		}

		if l.queue.Closed() {
			l.RunPending()
			l.logger.Debug("loop stopping: stopped")
			return ErrStopped
		}

		select {
		case <-ctx.Done():
			l.logger.Debug("loop stopping: context cancelled")
			return ctx.Err()
		case <-l.queue.Wait():
		case <-ticker.C:
		}
	}
}

// Stop closes the queue. Already queued tasks still run on the next drain;
// later Posts are rejected.
func (l *Loop) Stop() {
	l.queue.Close()
}
