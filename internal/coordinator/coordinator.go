// Package coordinator decides on every trigger whether to serve cached
// donations or query the explorer, and degrades to expired cache data when
// the explorer is unavailable.
package coordinator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"donation-tracker/internal/cache"
	"donation-tracker/internal/donation"
	"donation-tracker/internal/fetcher"
	"donation-tracker/internal/scheduler"
)

// ErrAlreadyStarted is returned by Start when the coordinator is running.
var ErrAlreadyStarted = errors.New("coordinator already started")

// CacheStore is the best-effort persistence used for the last good result.
type CacheStore interface {
	Read(ctx context.Context) (cache.Entry, bool)
	Write(ctx context.Context, entry cache.Entry)
}

// Observer is notified after a fresh network result has been adopted.
// previous is the entry that was cached before the fetch, nil if none.
type Observer interface {
	OnRefresh(ctx context.Context, previous *cache.Entry, fresh donation.Snapshot)
}

// State is what the presentation layer renders.
type State struct {
	Loading    bool
	Error      string
	Donations  []donation.Record
	Total      float64
	UsingCache bool
	// UpdatedAt is when the displayed payload was fetched from the explorer.
	UpdatedAt       time.Time
	CompletedCycles uint64
}

// Options tune the coordinator.
type Options struct {
	TTL             time.Duration
	Now             func() time.Time
	StartupDelay    time.Duration
	AlignToInterval bool
}

// Coordinator owns the refresh cycle and the observable State.
type Coordinator struct {
	opts     Options
	store    CacheStore
	fetcher  fetcher.DonationFetcher
	observer Observer
	logger   zerolog.Logger

	mu    sync.RWMutex
	state State

	inProgress atomic.Bool
	stopped    atomic.Bool

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
}

// New constructs a coordinator. observer may be nil.
func New(opts Options, store CacheStore, f fetcher.DonationFetcher, observer Observer, logger zerolog.Logger) *Coordinator {
	if opts.TTL <= 0 {
		panic("coordinator ttl must be positive")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Coordinator{
		opts:     opts,
		store:    store,
		fetcher:  f,
		observer: observer,
		logger:   logger.With().Str("component", "coordinator").Logger(),
	}
}

// State returns a copy of the current state.
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.state
	if c.state.Donations != nil {
		s.Donations = make([]donation.Record, len(c.state.Donations))
		copy(s.Donations, c.state.Donations)
	}
	return s
}

// Refresh runs one cycle. It returns false without doing anything when a
// cycle is already in progress or the coordinator has been stopped.
func (c *Coordinator) Refresh(ctx context.Context) bool {
	if c.stopped.Load() {
		return false
	}
	if !c.inProgress.CompareAndSwap(false, true) {
		c.logger.Debug().Msg("refresh skipped: cycle already in progress")
		return false
	}
	defer c.inProgress.Store(false)

	started := time.Now()
	c.apply(func(s *State) {
		s.Loading = true
		s.Error = ""
		s.UsingCache = false
	})

	var current *cache.Entry
	if entry, ok := c.store.Read(ctx); ok {
		current = &entry
	}

	freshness := cache.Classify(current, c.opts.Now(), c.opts.TTL)
	log := c.logger.With().Str("freshness", freshness.String()).Logger()

	if freshness == cache.Fresh {
		c.adopt(current.Snapshot, current.WrittenAt, true, "")
		log.Debug().Dur("age", current.Age(c.opts.Now())).Msg("serving fresh cache")
		return true
	}

	snap, err := c.fetcher.FetchDonations(ctx)
	if c.stopped.Load() {
		log.Debug().Msg("discarding cycle result after stop")
		return false
	}

	if err == nil {
		now := c.opts.Now()
		c.adopt(snap, now, false, "")
		c.store.Write(ctx, cache.Entry{WrittenAt: now, Snapshot: snap.Clone()})
		log.Info().
			Int("donations", len(snap.Donations)).
			Float64("total", snap.Total).
			Dur("took", time.Since(started)).
			Msg("adopted fresh result")
		if c.observer != nil {
			c.observer.OnRefresh(ctx, current, snap.Clone())
		}
		return true
	}

	if fallback, ok := c.store.Read(ctx); ok {
		c.adopt(fallback.Snapshot, fallback.WrittenAt, true, err.Error())
		log.Warn().Err(err).Time("cached_at", fallback.WrittenAt).Msg("fetch failed; serving stale cache")
		return true
	}

	c.apply(func(s *State) {
		s.Loading = false
		s.Error = err.Error()
		s.UsingCache = false
		s.CompletedCycles++
	})
	log.Error().Err(err).Msg("fetch failed and no cache is available")
	return true
}

func (c *Coordinator) adopt(snap donation.Snapshot, at time.Time, fromCache bool, errMsg string) {
	snap = snap.Clone()
	c.apply(func(s *State) {
		s.Donations = snap.Donations
		s.Total = snap.Total
		s.UpdatedAt = at
		s.UsingCache = fromCache
		s.Error = errMsg
		s.Loading = false
		s.CompletedCycles++
	})
}

// apply mutates state unless the coordinator has been torn down.
func (c *Coordinator) apply(fn func(s *State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped.Load() {
		return
	}
	fn(&c.state)
}

// Run blocks, running a cycle immediately and then every TTL until ctx is
// cancelled. Cycles run even when the cache is still fresh; they are cheap.
func (c *Coordinator) Run(ctx context.Context) error {
	sched := scheduler.New(scheduler.Options{
		Interval:     c.opts.TTL,
		RunOnStart:   true,
		AlignToStart: c.opts.AlignToInterval,
		StartupDelay: c.opts.StartupDelay,
	}, c.logger)

	return sched.Run(ctx, func(ctx context.Context, at time.Time) error {
		c.Refresh(ctx)
		return nil
	})
}

// Start runs the coordinator in the background until Stop is called.
func (c *Coordinator) Start(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.cancel != nil {
		return ErrAlreadyStarted
	}
	if c.stopped.Load() {
		return errors.New("coordinator stopped")
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)
		if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Error().Err(err).Msg("coordinator loop exited")
		}
	}()
	return nil
}

// Stop cancels the periodic trigger and waits for the loop to exit. Results
// of a cycle still in flight are discarded. Stop is idempotent.
func (c *Coordinator) Stop() {
	c.stopped.Store(true)

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
	c.cancel = nil
}
