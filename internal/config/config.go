package config

import "time"

// SyncConfig is the root configuration for a sync daemon instance.
type SyncConfig struct {
	Instance  InstanceConfig  `yaml:"instance"`
	API       APIConfig       `yaml:"api"`
	Push      PushConfig      `yaml:"push"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Notify    NotifyConfig    `yaml:"notify"`
}

// InstanceConfig identifies this daemon and the symbol it tracks.
type InstanceConfig struct {
	ID     string `yaml:"id"`
	Symbol string `yaml:"symbol"`
}

// APIConfig holds REST API settings for the pull channel.
type APIConfig struct {
	RestURL        string        `yaml:"rest_url"`
	APIKey         string        `yaml:"api_key"` // Bearer token, ${VAR} expanded
	Timeout        time.Duration `yaml:"timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	OrderbookDepth int           `yaml:"orderbook_depth"`
}

// PushConfig holds WebSocket settings for the push channel.
type PushConfig struct {
	URL                 string        `yaml:"url"`
	Enabled             *bool         `yaml:"enabled"` // Defaults to true when a URL is set
	HeartbeatTimeout    time.Duration `yaml:"heartbeat_timeout"`
	MaxMissedHeartbeats int           `yaml:"max_missed_heartbeats"`
	ReconnectBaseDelay  time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay   time.Duration `yaml:"reconnect_max_delay"`
}

// PushEnabled reports whether the push channel should be started.
func (p PushConfig) PushEnabled() bool {
	if p.URL == "" {
		return false
	}
	if p.Enabled == nil {
		return true
	}
	return *p.Enabled
}

// SchedulerConfig holds fetch scheduler settings. Endpoints omitted
// from the map run with the built-in staggered defaults.
type SchedulerConfig struct {
	Tick      time.Duration             `yaml:"tick"`
	Timeout   time.Duration             `yaml:"timeout"`
	Endpoints map[string]EndpointConfig `yaml:"endpoints"`
}

// EndpointConfig overrides the cadence of a single endpoint.
type EndpointConfig struct {
	MinInterval time.Duration `yaml:"min_interval"`
	Staleness   time.Duration `yaml:"staleness"`
}

// NotifyConfig holds notification batching settings.
type NotifyConfig struct {
	Debounce   time.Duration `yaml:"debounce"`
	MaxLatency time.Duration `yaml:"max_latency"`
}
