package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JohnCCarter/crypto-bot-dashboard-nexus-sub001/internal/cache"
	"github.com/JohnCCarter/crypto-bot-dashboard-nexus-sub001/internal/model"
)

func testConfig() Config {
	return Config{
		Tick:    20 * time.Millisecond,
		Timeout: time.Second,
		Endpoints: map[model.EndpointKey]Endpoint{
			model.KeyTicker:    {MinInterval: 50 * time.Millisecond, Staleness: 150 * time.Millisecond},
			model.KeyOrderBook: {MinInterval: 80 * time.Millisecond, Staleness: 200 * time.Millisecond},
		},
	}
}

func TestScheduler_ShouldFetch(t *testing.T) {
	s := New(testConfig(), nil, cache.NewStore(), nil, nil)
	now := time.Now()

	if !s.ShouldFetch(model.KeyTicker, now) {
		t.Error("never-fetched endpoint should be due")
	}

	s.MarkFetched(model.KeyTicker, now)

	if s.ShouldFetch(model.KeyTicker, now.Add(30*time.Millisecond)) {
		t.Error("endpoint should not be due before min interval")
	}
	if !s.ShouldFetch(model.KeyTicker, now.Add(50*time.Millisecond)) {
		t.Error("endpoint should be due exactly at min interval")
	}
}

func TestScheduler_MarkInFlight(t *testing.T) {
	s := New(testConfig(), nil, cache.NewStore(), nil, nil)

	if !s.MarkInFlight(model.KeyTicker) {
		t.Fatal("first claim should succeed")
	}
	if s.MarkInFlight(model.KeyTicker) {
		t.Fatal("second claim while in flight should fail")
	}

	// A different key has its own slot.
	if !s.MarkInFlight(model.KeyOrderBook) {
		t.Error("claim for a different key should succeed")
	}

	s.MarkFetched(model.KeyTicker, time.Now())
	if !s.MarkInFlight(model.KeyTicker) {
		t.Error("claim after release should succeed")
	}
}

func TestScheduler_OnlyActiveKeysPolled(t *testing.T) {
	var fetched sync.Map
	fetcher := FetcherFunc(func(ctx context.Context, key model.EndpointKey) (any, error) {
		fetched.Store(key, true)
		return &model.Ticker{}, nil
	})

	s := New(testConfig(), fetcher, cache.NewStore(), nil, nil)
	s.Activate(model.KeyTicker)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	time.Sleep(60 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if _, ok := fetched.Load(model.KeyTicker); !ok {
		t.Error("active endpoint was never fetched")
	}
	if _, ok := fetched.Load(model.KeyOrderBook); ok {
		t.Error("inactive endpoint was fetched")
	}
}

func TestScheduler_IntervalGating(t *testing.T) {
	var calls atomic.Int32
	fetcher := FetcherFunc(func(ctx context.Context, key model.EndpointKey) (any, error) {
		calls.Add(1)
		return &model.Ticker{}, nil
	})

	cfg := testConfig()
	cfg.Endpoints[model.KeyTicker] = Endpoint{MinInterval: time.Hour, Staleness: 2 * time.Hour}

	s := New(cfg, fetcher, cache.NewStore(), nil, nil)
	s.Activate(model.KeyTicker)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Many ticks pass; only the initial pull should fire.
	time.Sleep(120 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(stopCtx)

	if got := calls.Load(); got != 1 {
		t.Errorf("fetch calls = %d, want 1 (interval gate)", got)
	}
}

func TestScheduler_FailureDoesNotAdvanceClock(t *testing.T) {
	var calls atomic.Int32
	fetcher := FetcherFunc(func(ctx context.Context, key model.EndpointKey) (any, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("network timeout")
		}
		return &model.Ticker{}, nil
	})

	store := cache.NewStore()
	s := New(testConfig(), fetcher, store, nil, nil)

	// First pull fails: slot released, clock not advanced.
	if !s.MarkInFlight(model.KeyTicker) {
		t.Fatal("claim should succeed")
	}
	s.fetchOne(context.Background(), model.KeyTicker, false)

	if !s.ShouldFetch(model.KeyTicker, time.Now()) {
		t.Error("endpoint should still be due after a failed pull")
	}
	if store.Stats().Applied != 0 {
		t.Error("failed pull must not write to the cache")
	}

	// Retry succeeds.
	if !s.MarkInFlight(model.KeyTicker) {
		t.Fatal("claim after failure should succeed")
	}
	s.fetchOne(context.Background(), model.KeyTicker, false)

	if s.ShouldFetch(model.KeyTicker, time.Now()) {
		t.Error("endpoint should not be due right after a successful pull")
	}

	stats := s.Stats()
	if stats.Failures != 1 {
		t.Errorf("Stats().Failures = %d, want 1", stats.Failures)
	}
	if stats.Pulls != 1 {
		t.Errorf("Stats().Pulls = %d, want 1", stats.Pulls)
	}
}

func TestScheduler_RefreshDedup(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	fetcher := FetcherFunc(func(ctx context.Context, key model.EndpointKey) (any, error) {
		calls.Add(1)
		<-release
		return &model.Ticker{}, nil
	})

	s := New(testConfig(), fetcher, cache.NewStore(), nil, nil)

	// N concurrent forced refreshes for the same key while one pull is
	// in flight must produce exactly one network call.
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Refresh(context.Background(), model.KeyTicker)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("fetch calls = %d, want 1", got)
	}
}

func TestScheduler_RefreshBypassesIntervalGate(t *testing.T) {
	var calls atomic.Int32
	fetcher := FetcherFunc(func(ctx context.Context, key model.EndpointKey) (any, error) {
		calls.Add(1)
		return &model.Ticker{}, nil
	})

	cfg := testConfig()
	cfg.Endpoints[model.KeyTicker] = Endpoint{MinInterval: time.Hour, Staleness: 2 * time.Hour}

	s := New(cfg, fetcher, cache.NewStore(), nil, nil)
	s.MarkFetched(model.KeyTicker, time.Now())

	if err := s.Refresh(context.Background(), model.KeyTicker); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("fetch calls = %d, want 1 (refresh must bypass interval gate)", got)
	}
}

func TestScheduler_ResultHandlerCalled(t *testing.T) {
	fetcher := FetcherFunc(func(ctx context.Context, key model.EndpointKey) (any, error) {
		return &model.Ticker{}, nil
	})

	var handled atomic.Int32
	handler := ResultHandlerFunc(func(key model.EndpointKey, applied bool) {
		if key == model.KeyTicker && applied {
			handled.Add(1)
		}
	})

	s := New(testConfig(), fetcher, cache.NewStore(), handler, nil)
	if !s.MarkInFlight(model.KeyTicker) {
		t.Fatal("claim should succeed")
	}
	s.fetchOne(context.Background(), model.KeyTicker, false)

	if handled.Load() != 1 {
		t.Error("result handler was not called with applied=true")
	}
}

func TestScheduler_DefaultsAreStaggered(t *testing.T) {
	eps := DefaultEndpoints()

	if len(eps) != len(model.AllEndpoints()) {
		t.Fatalf("DefaultEndpoints() has %d entries, want %d", len(eps), len(model.AllEndpoints()))
	}

	fast := eps[model.KeyTicker].MinInterval
	slow := eps[model.KeyLogs].MinInterval
	if fast >= eps[model.KeyBalances].MinInterval {
		t.Error("ticker interval should be shorter than balances")
	}
	if eps[model.KeyBalances].MinInterval >= slow {
		t.Error("balances interval should be shorter than logs")
	}

	for key, ep := range eps {
		if ep.Staleness <= ep.MinInterval {
			t.Errorf("%s: staleness %v should exceed min interval %v", key, ep.Staleness, ep.MinInterval)
		}
	}
}
