package coordinator

import (
	"sync"

	"github.com/google/uuid"

	"github.com/JohnCCarter/crypto-bot-dashboard-nexus-sub001/internal/model"
)

// Observer receives merged snapshots. Called from the notifier
// goroutine; implementations must not block for long.
type Observer func(model.Snapshot)

// Subscription is the opaque handle returned by Subscribe. Snapshot
// holds the cache state at subscribe time so an observer can render
// immediately.
type Subscription struct {
	ID       uuid.UUID
	Topics   []model.EndpointKey
	Snapshot model.Snapshot

	c        *Coordinator
	observer Observer
	once     sync.Once
}

// Unsubscribe removes the observer. Idempotent and safe to call
// multiple times; an in-flight pull is shared infrastructure and is
// not cancelled, the observer is simply excluded from the next
// notification pass.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.c.remove(s)
	})
}
