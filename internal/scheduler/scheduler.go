package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JohnCCarter/crypto-bot-dashboard-nexus-sub001/internal/cache"
	"github.com/JohnCCarter/crypto-bot-dashboard-nexus-sub001/internal/model"
)

// endpointState tracks per-endpoint scheduling bookkeeping. Mutated
// only under the scheduler mutex.
type endpointState struct {
	desc        Endpoint
	lastFetchAt time.Time // Zero until the first successful pull
	inFlight    bool
	active      bool
}

// Scheduler drives the pull path: it decides per endpoint whether a
// pull is due, executes it, and writes the result into the shared
// cache through the monotonicity guard.
type Scheduler struct {
	cfg     Config
	fetcher Fetcher
	store   *cache.Store
	handler ResultHandler
	logger  *slog.Logger

	mu     sync.Mutex
	states map[model.EndpointKey]*endpointState

	pulls        int64
	failures     int64
	forced       int64
	deduplicated int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Scheduler. Endpoints missing from cfg.Endpoints
// fall back to the defaults.
func New(cfg Config, fetcher Fetcher, store *cache.Store, handler ResultHandler, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultConfig().Tick
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.Endpoints == nil {
		cfg.Endpoints = DefaultEndpoints()
	}

	states := make(map[model.EndpointKey]*endpointState)
	defaults := DefaultEndpoints()
	for _, key := range model.AllEndpoints() {
		desc, ok := cfg.Endpoints[key]
		if !ok {
			desc = defaults[key]
		}
		states[key] = &endpointState{desc: desc}
	}

	return &Scheduler{
		cfg:     cfg,
		fetcher: fetcher,
		store:   store,
		handler: handler,
		logger:  logger,
		states:  states,
	}
}

// Descriptor returns the static descriptor for key.
func (s *Scheduler) Descriptor(key model.EndpointKey) Endpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[key]; ok {
		return st.desc
	}
	return Endpoint{}
}

// Activate enables polling for key. Idempotent.
func (s *Scheduler) Activate(key model.EndpointKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[key]; ok && !st.active {
		st.active = true
		s.logger.Debug("endpoint activated", "key", key)
	}
}

// Deactivate suspends polling for key. Bookkeeping and any cached
// value are retained. Idempotent.
func (s *Scheduler) Deactivate(key model.EndpointKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[key]; ok && st.active {
		st.active = false
		s.logger.Debug("endpoint deactivated", "key", key)
	}
}

// Active reports whether polling for key is enabled.
func (s *Scheduler) Active(key model.EndpointKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[key]
	return ok && st.active
}

// ShouldFetch reports whether a pull for key is due at now.
func (s *Scheduler) ShouldFetch(key model.EndpointKey, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[key]
	if !ok {
		return false
	}
	return st.lastFetchAt.IsZero() || now.Sub(st.lastFetchAt) >= st.desc.MinInterval
}

// MarkInFlight claims the single pull slot for key. Returns false if a
// pull is already in flight, collapsing redundant requests from
// near-simultaneous ticks or forced refreshes into one.
func (s *Scheduler) MarkInFlight(key model.EndpointKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[key]
	if !ok || st.inFlight {
		if ok {
			s.deduplicated++
		}
		return false
	}
	st.inFlight = true
	return true
}

// MarkFetched records a successful pull at now and releases the
// in-flight slot.
func (s *Scheduler) MarkFetched(key model.EndpointKey, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[key]; ok {
		st.lastFetchAt = now
		st.inFlight = false
	}
}

// clearInFlight releases the in-flight slot without advancing the
// fetch clock.
func (s *Scheduler) clearInFlight(key model.EndpointKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[key]; ok {
		st.inFlight = false
	}
}

// Start begins the tick loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run()

	s.logger.Info("fetch scheduler started", "tick", s.cfg.Tick)
	return nil
}

// Stop cancels all pending timers and waits for in-flight pulls.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("fetch scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the main tick loop.
func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()

	// First pass immediately so a fresh subscription is not delayed by
	// a full tick.
	s.tick()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick issues pulls for every active, due endpoint.
func (s *Scheduler) tick() {
	now := time.Now()

	for _, key := range s.activeKeys() {
		if !s.ShouldFetch(key, now) {
			continue
		}
		if !s.MarkInFlight(key) {
			continue
		}

		s.wg.Add(1)
		go func(key model.EndpointKey) {
			defer s.wg.Done()
			s.fetchOne(s.ctx, key, false)
		}(key)
	}
}

func (s *Scheduler) activeKeys() []model.EndpointKey {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]model.EndpointKey, 0, len(s.states))
	for _, key := range model.AllEndpoints() {
		if st, ok := s.states[key]; ok && st.active {
			keys = append(keys, key)
		}
	}
	return keys
}

// Refresh executes a pull for each key immediately, bypassing the
// interval gate but not the in-flight guard. Keys already in flight
// are skipped: the pending pull serves the refresh. Steady-state
// interval bookkeeping is left untouched, so the regular cadence is
// not shifted by a manual refresh.
func (s *Scheduler) Refresh(ctx context.Context, keys ...model.EndpointKey) error {
	if len(keys) == 0 {
		keys = model.AllEndpoints()
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, key := range keys {
		key := key
		if !s.MarkInFlight(key) {
			continue
		}

		s.mu.Lock()
		s.forced++
		s.mu.Unlock()

		g.Go(func() error {
			s.fetchOne(gctx, key, true)
			return nil
		})
	}
	return g.Wait()
}

// fetchOne executes a single pull and writes the result to the cache.
// The in-flight slot for key must already be held.
func (s *Scheduler) fetchOne(ctx context.Context, key model.EndpointKey, forced bool) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	// The response reflects server state no newer than the request
	// start, so that is the observation time. A push event arriving
	// while the request is in flight then correctly outranks it.
	observedAt := time.Now()
	value, err := s.fetcher.Fetch(fetchCtx, key)

	if err != nil {
		// Transient failure: release the slot, keep the fetch clock
		// so the next tick retries immediately. Surfaces only as
		// staleness, never as an error to observers.
		s.clearInFlight(key)

		s.mu.Lock()
		s.failures++
		s.mu.Unlock()

		s.logger.Warn("pull failed", "key", key, "forced", forced, "err", err)
		return
	}

	applied := s.store.Write(key, value, observedAt, model.SourcePull)

	if forced {
		s.clearInFlight(key) // Forced pulls do not shift the steady cadence.
	} else {
		s.MarkFetched(key, observedAt)
	}

	s.mu.Lock()
	s.pulls++
	s.mu.Unlock()

	if !applied {
		s.logger.Debug("pull result superseded by fresher data", "key", key)
	}

	if s.handler != nil {
		s.handler.HandleResult(key, applied)
	}
}

// Stats returns current counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Pulls:        s.pulls,
		Failures:     s.failures,
		Forced:       s.forced,
		Deduplicated: s.deduplicated,
	}
}
