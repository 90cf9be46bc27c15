package coordinator

import (
	"errors"
	"time"

	"github.com/JohnCCarter/crypto-bot-dashboard-nexus-sub001/internal/scheduler"
)

// Errors
var (
	ErrUnknownTopic = errors.New("unknown topic")
	ErrNoTopics     = errors.New("no topics given")
	ErrClosed       = errors.New("coordinator closed")
)

// Config holds coordinator configuration.
type Config struct {
	Symbol    string           // Trading symbol this coordinator tracks
	Scheduler scheduler.Config // Fetch scheduler settings

	// Notification batching
	Debounce   time.Duration // Quiet window before a flush (default: 50ms)
	MaxLatency time.Duration // Upper bound on flush delay under write storms (default: 250ms)

	// Watchdog cadence for re-evaluating push-vs-pull authority.
	// Defaults to the scheduler tick.
	WatchdogInterval time.Duration

	// PushTradeDepth bounds the trade list kept from push events.
	PushTradeDepth int // Default: 100
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Scheduler:      scheduler.DefaultConfig(),
		Debounce:       50 * time.Millisecond,
		MaxLatency:     250 * time.Millisecond,
		PushTradeDepth: 100,
	}
}

// Stats contains coordinator counters.
type Stats struct {
	Subscribers   int   // Currently registered observers
	Notifications int64 // Snapshot batches delivered
	PushApplied   int64 // Push events written to the cache
	PushDiscarded int64 // Push events rejected by the monotonicity guard
	Failovers     int64 // Push-to-pull authority transitions
}
