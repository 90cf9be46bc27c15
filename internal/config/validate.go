package config

import (
	"errors"
	"fmt"

	"github.com/JohnCCarter/crypto-bot-dashboard-nexus-sub001/internal/model"
)

// Validate checks that all required fields are set and values are valid.
func (c *SyncConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.API.RestURL == "" {
		return errors.New("api.rest_url is required")
	}
	if c.API.MaxRetries < 0 {
		return errors.New("api.max_retries must be >= 0")
	}
	if c.API.OrderbookDepth < 1 {
		return errors.New("api.orderbook_depth must be >= 1")
	}

	if c.Push.PushEnabled() {
		if c.Push.MaxMissedHeartbeats < 1 {
			return errors.New("push.max_missed_heartbeats must be >= 1")
		}
		if c.Push.ReconnectBaseDelay > c.Push.ReconnectMaxDelay {
			return fmt.Errorf("push.reconnect_base_delay (%s) cannot exceed reconnect_max_delay (%s)",
				c.Push.ReconnectBaseDelay, c.Push.ReconnectMaxDelay)
		}
	}

	if c.Scheduler.Tick <= 0 {
		return errors.New("scheduler.tick must be > 0")
	}
	for name, ep := range c.Scheduler.Endpoints {
		if !model.EndpointKey(name).Valid() {
			return fmt.Errorf("scheduler.endpoints: unknown endpoint %q", name)
		}
		if ep.MinInterval <= 0 {
			return fmt.Errorf("scheduler.endpoints.%s.min_interval must be > 0", name)
		}
		if ep.Staleness < ep.MinInterval {
			return fmt.Errorf("scheduler.endpoints.%s.staleness must be >= min_interval", name)
		}
	}

	if c.Notify.Debounce <= 0 {
		return errors.New("notify.debounce must be > 0")
	}
	if c.Notify.MaxLatency < c.Notify.Debounce {
		return errors.New("notify.max_latency must be >= debounce")
	}

	return nil
}
