package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultSymbol              = "BTC/USD"
	DefaultAPITimeout          = 10 * time.Second
	DefaultMaxRetries          = 3
	DefaultOrderbookDepth      = 25
	DefaultHeartbeatTimeout    = 10 * time.Second
	DefaultMaxMissedHeartbeats = 3
	DefaultReconnectBaseDelay  = 1 * time.Second
	DefaultReconnectMaxDelay   = 30 * time.Second
	DefaultTick                = 500 * time.Millisecond
	DefaultFetchTimeout        = 10 * time.Second
	DefaultDebounce            = 50 * time.Millisecond
	DefaultMaxLatency          = 250 * time.Millisecond
)

func (c *SyncConfig) applyDefaults() {
	// Instance defaults
	if c.Instance.Symbol == "" {
		c.Instance.Symbol = DefaultSymbol
	}

	// API defaults
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}
	if c.API.OrderbookDepth == 0 {
		c.API.OrderbookDepth = DefaultOrderbookDepth
	}

	// Push defaults
	if c.Push.HeartbeatTimeout == 0 {
		c.Push.HeartbeatTimeout = DefaultHeartbeatTimeout
	}
	if c.Push.MaxMissedHeartbeats == 0 {
		c.Push.MaxMissedHeartbeats = DefaultMaxMissedHeartbeats
	}
	if c.Push.ReconnectBaseDelay == 0 {
		c.Push.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Push.ReconnectMaxDelay == 0 {
		c.Push.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}

	// Scheduler defaults
	if c.Scheduler.Tick == 0 {
		c.Scheduler.Tick = DefaultTick
	}
	if c.Scheduler.Timeout == 0 {
		c.Scheduler.Timeout = DefaultFetchTimeout
	}

	// Notify defaults
	if c.Notify.Debounce == 0 {
		c.Notify.Debounce = DefaultDebounce
	}
	if c.Notify.MaxLatency == 0 {
		c.Notify.MaxLatency = DefaultMaxLatency
	}
}
