package coordinator

import (
	"time"

	"github.com/JohnCCarter/crypto-bot-dashboard-nexus-sub001/internal/cache"
	"github.com/JohnCCarter/crypto-bot-dashboard-nexus-sub001/internal/model"
	"github.com/JohnCCarter/crypto-bot-dashboard-nexus-sub001/internal/scheduler"
)

// Arbiter chooses, per endpoint, whether the authoritative value comes
// from the push channel or the pull path.
//
// Policy: push is authoritative while the connection is healthy AND the
// push-sourced entry is within the endpoint's staleness threshold.
// Everything else falls back to pull. The cache's
// last-writer-by-time-wins guard already performs the timestamp
// comparison between channels, so the surviving entry's source tag is
// the comparison result.
type Arbiter struct {
	store     *cache.Store
	describe  func(model.EndpointKey) scheduler.Endpoint
	connState func() model.ConnectionState
}

// NewArbiter creates a Source Arbiter reading entry freshness from
// store, endpoint descriptors from describe, and push health from
// connState.
func NewArbiter(store *cache.Store, describe func(model.EndpointKey) scheduler.Endpoint, connState func() model.ConnectionState) *Arbiter {
	return &Arbiter{
		store:     store,
		describe:  describe,
		connState: connState,
	}
}

// Resolve returns the authoritative source for key at now.
func (ar *Arbiter) Resolve(key model.EndpointKey, now time.Time) model.Source {
	if ar.connState() != model.StateConnected {
		return model.SourcePull
	}

	entry := ar.store.Read(key)
	if entry.Source != model.SourcePush {
		return model.SourcePull
	}

	staleness := ar.describe(key).Staleness
	if staleness > 0 && now.Sub(entry.UpdatedAt) > staleness {
		return model.SourcePull
	}

	return model.SourcePush
}
