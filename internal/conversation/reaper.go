package conversation

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultMaxIdle is how long a session may sit without activity before
	// the reaper drops it.
	DefaultMaxIdle = 30 * time.Minute

	// DefaultReapInterval is how often the reaper sweeps.
	DefaultReapInterval = 1 * time.Minute
)

// Reaper periodically drops stale sessions from a Store. Reaping is not a
// user interaction: a dropped session sends no outbound message.
type Reaper struct {
	store    *Store
	maxIdle  time.Duration
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewReaper creates a reaper with the given idle timeout and sweep interval,
// falling back to defaults for non-positive values.
func NewReaper(store *Store, maxIdle time.Duration, interval time.Duration) *Reaper {
	if maxIdle <= 0 {
		maxIdle = DefaultMaxIdle
	}
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	return &Reaper{
		store:    store,
		maxIdle:  maxIdle,
		interval: interval,
	}
}

// Start begins the periodic sweep. Calling Start on a running reaper is a
// no-op.
func (r *Reaper) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return
	}

	reapCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.running = true

	go r.run(reapCtx)
}

// Stop halts the sweep and waits for the reaper goroutine to finish.
func (r *Reaper) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	done := r.done
	r.running = false
	r.mu.Unlock()

	cancel()
	<-done
}

func (r *Reaper) run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.store.Reap(r.maxIdle, time.Now()); n > 0 {
				slog.Info("Reaped stale sessions", "count", n)
			}
		}
	}
}
