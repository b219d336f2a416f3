// Package engagement counts engaged reads. A read counts once the reader
// has stayed on an entry for the dwell threshold; leaving earlier cancels
// it with no partial credit. Counting is best effort: a failed increment
// is logged and dropped.
package engagement

import (
	"context"
	"sync"
	"time"

	"quiettime/clock"
	"quiettime/logging"
)

// DwellThreshold is how long a reader must stay before a view counts.
const DwellThreshold = 30 * time.Second

const incrementTimeout = 10 * time.Second

// ViewCounter adds delta to an entry's view count atomically.
type ViewCounter interface {
	IncrementViews(ctx context.Context, id string, delta int64) error
}

type Tracker struct {
	counter   ViewCounter
	clock     clock.Clock
	logger    logging.Logger
	threshold time.Duration
	onCounted func(ctx context.Context, entryID string)
}

type Option func(*Tracker)

func WithThreshold(d time.Duration) Option {
	return func(t *Tracker) { t.threshold = d }
}

// WithOnCounted registers a callback run after each successful increment.
func WithOnCounted(fn func(ctx context.Context, entryID string)) Option {
	return func(t *Tracker) { t.onCounted = fn }
}

func NewTracker(counter ViewCounter, clk clock.Clock, logger logging.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		counter:   counter,
		clock:     clk,
		logger:    logger.With("module", "engagement"),
		threshold: DwellThreshold,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Activation is one reader's stay on one entry.
type Activation struct {
	tracker *Tracker
	entryID string

	mu        sync.Mutex
	timer     *clock.Timer
	started   bool
	cancelled bool
	fired     bool
	done      chan struct{}
}

// Start opens an activation for the entry and schedules its increment.
func (t *Tracker) Start(entryID string) *Activation {
	a := &Activation{
		tracker: t,
		entryID: entryID,
		done:    make(chan struct{}),
	}
	a.Start()
	return a
}

// Track holds an activation open until the threshold passes or ctx is
// done, whichever comes first. It reports whether the view was counted
// (or attempted). The activation is cancelled on every return path.
func (t *Tracker) Track(ctx context.Context, entryID string) bool {
	a := t.Start(entryID)
	defer a.Cancel()

	select {
	case <-a.Done():
		return true
	case <-ctx.Done():
		select {
		case <-a.Done():
			return true
		default:
			return false
		}
	}
}

// Start schedules the increment. Further calls on the same activation do
// nothing, so re-rendering a view never stacks timers.
func (a *Activation) Start() {
	a.mu.Lock()
	if a.started || a.cancelled {
		a.mu.Unlock()
		return
	}
	a.started = true
	a.mu.Unlock()

	// A zero threshold fires inside AfterFunc, so the lock is not held here.
	timer := a.tracker.clock.AfterFunc(a.tracker.threshold, a.fire)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.timer = timer
	if a.cancelled {
		timer.Stop()
	}
}

// Cancel stops a pending increment. It is safe to call more than once
// and after the increment has run.
func (a *Activation) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancelled || a.fired {
		return
	}
	a.cancelled = true
	if a.timer != nil {
		a.timer.Stop()
	}
}

// Done is closed once the increment has been attempted.
func (a *Activation) Done() <-chan struct{} {
	return a.done
}

func (a *Activation) EntryID() string {
	return a.entryID
}

func (a *Activation) fire() {
	a.mu.Lock()
	if a.cancelled || a.fired {
		a.mu.Unlock()
		return
	}
	a.fired = true
	a.mu.Unlock()

	defer close(a.done)
	a.tracker.increment(a.entryID)
}

func (t *Tracker) increment(entryID string) {
	ctx, cancel := context.WithTimeout(context.Background(), incrementTimeout)
	defer cancel()

	if err := t.counter.IncrementViews(ctx, entryID, 1); err != nil {
		t.logger.Error(ctx, "increment views failed", "entry_id", entryID, "err", err)
		return
	}
	t.logger.Debug(ctx, "view counted", "entry_id", entryID)

	if t.onCounted != nil {
		t.onCounted(ctx, entryID)
	}
}
