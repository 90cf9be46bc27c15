package coordinator

import (
	"sync"
	"time"

	"github.com/JohnCCarter/crypto-bot-dashboard-nexus-sub001/internal/model"
)

// notifier coalesces cache writes into batched notification passes.
// Writes landing within the debounce window flush together; maxLatency
// bounds how long a flush can keep being pushed back under a write
// storm.
type notifier struct {
	debounce   time.Duration
	maxLatency time.Duration
	flushFn    func([]model.EndpointKey)

	mu           sync.Mutex
	dirty        []model.EndpointKey // In write order, deduplicated
	dirtySet     map[model.EndpointKey]struct{}
	timer        *time.Timer
	firstDirtyAt time.Time
	stopped      bool

	// flushMu serializes flushes so observers see batches in order.
	flushMu sync.Mutex

	batches int64
	writes  int64
}

func newNotifier(debounce, maxLatency time.Duration, flushFn func([]model.EndpointKey)) *notifier {
	return &notifier{
		debounce:   debounce,
		maxLatency: maxLatency,
		flushFn:    flushFn,
		dirtySet:   make(map[model.EndpointKey]struct{}),
	}
}

// Mark records a write for key and (re)schedules the flush.
func (n *notifier) Mark(key model.EndpointKey) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.stopped {
		return
	}

	n.writes++
	if _, ok := n.dirtySet[key]; !ok {
		n.dirtySet[key] = struct{}{}
		n.dirty = append(n.dirty, key)
	}

	n.scheduleLocked()
}

// Kick schedules a flush without marking any key dirty, used for
// connection-state changes that observers must see.
func (n *notifier) Kick() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.stopped {
		return
	}

	n.scheduleLocked()
}

// scheduleLocked arms or pushes back the flush timer. The delay never
// extends past firstDirtyAt+maxLatency.
func (n *notifier) scheduleLocked() {
	now := time.Now()
	if n.timer == nil {
		n.firstDirtyAt = now
	}

	delay := n.debounce
	if remaining := n.firstDirtyAt.Add(n.maxLatency).Sub(now); remaining < delay {
		delay = remaining
		if delay < 0 {
			delay = 0
		}
	}

	if n.timer != nil {
		n.timer.Stop()
	}
	n.timer = time.AfterFunc(delay, n.flush)
}

// flush delivers the accumulated batch.
func (n *notifier) flush() {
	n.flushMu.Lock()
	defer n.flushMu.Unlock()

	n.mu.Lock()
	if n.stopped {
		n.mu.Unlock()
		return
	}
	keys := n.dirty
	n.dirty = nil
	n.dirtySet = make(map[model.EndpointKey]struct{})
	n.timer = nil
	n.batches++
	n.mu.Unlock()

	n.flushFn(keys)
}

// Stop drops any pending batch.
func (n *notifier) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.stopped = true
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}
