package scheduler

import (
	"context"
	"time"

	"github.com/JohnCCarter/crypto-bot-dashboard-nexus-sub001/internal/model"
)

// Endpoint is the static descriptor for one logical data feed.
type Endpoint struct {
	MinInterval time.Duration // Minimum time between successful pulls
	Staleness   time.Duration // Max age before a cached value is untrustworthy
}

// Fetcher executes the pull for one endpoint.
type Fetcher interface {
	Fetch(ctx context.Context, key model.EndpointKey) (any, error)
}

// FetcherFunc is a function adapter for Fetcher.
type FetcherFunc func(ctx context.Context, key model.EndpointKey) (any, error)

func (f FetcherFunc) Fetch(ctx context.Context, key model.EndpointKey) (any, error) {
	return f(ctx, key)
}

// ResultHandler receives the outcome of each completed pull.
type ResultHandler interface {
	HandleResult(key model.EndpointKey, applied bool)
}

// ResultHandlerFunc is a function adapter for ResultHandler.
type ResultHandlerFunc func(key model.EndpointKey, applied bool)

func (f ResultHandlerFunc) HandleResult(key model.EndpointKey, applied bool) {
	f(key, applied)
}

// Config holds scheduler configuration.
type Config struct {
	Tick      time.Duration                  // Scheduler tick (default: 500ms)
	Timeout   time.Duration                  // Per-pull timeout (default: 10s)
	Endpoints map[model.EndpointKey]Endpoint // Per-endpoint descriptors
}

// DefaultEndpoints returns the staggered per-endpoint descriptors.
// Fast feeds (ticker, orderbook) refresh every 2-3s, account state
// every 5-7s, logs every 12s, bounding aggregate request volume
// regardless of observer count.
func DefaultEndpoints() map[model.EndpointKey]Endpoint {
	return map[model.EndpointKey]Endpoint{
		model.KeyTicker:    {MinInterval: 2 * time.Second, Staleness: 5 * time.Second},
		model.KeyOrderBook: {MinInterval: 3 * time.Second, Staleness: 8 * time.Second},
		model.KeyTrades:    {MinInterval: 5 * time.Second, Staleness: 15 * time.Second},
		model.KeyBotStatus: {MinInterval: 5 * time.Second, Staleness: 15 * time.Second},
		model.KeyOrders:    {MinInterval: 6 * time.Second, Staleness: 18 * time.Second},
		model.KeyBalances:  {MinInterval: 7 * time.Second, Staleness: 20 * time.Second},
		model.KeyLogs:      {MinInterval: 12 * time.Second, Staleness: 36 * time.Second},
	}
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Tick:      500 * time.Millisecond,
		Timeout:   10 * time.Second,
		Endpoints: DefaultEndpoints(),
	}
}

// Stats contains scheduler counters.
type Stats struct {
	Pulls        int64 // Successful pulls
	Failures     int64 // Failed pulls
	Forced       int64 // Forced refreshes executed
	Deduplicated int64 // Pulls skipped by the in-flight guard
}
