package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JohnCCarter/crypto-bot-dashboard-nexus-sub001/internal/cache"
	"github.com/JohnCCarter/crypto-bot-dashboard-nexus-sub001/internal/model"
	"github.com/JohnCCarter/crypto-bot-dashboard-nexus-sub001/internal/push"
	"github.com/JohnCCarter/crypto-bot-dashboard-nexus-sub001/internal/scheduler"
)

// Coordinator owns the Shared Cache, the Fetch Scheduler, the Push
// Adapter, and the Source Arbiter, and is the only object observers
// talk to.
type Coordinator struct {
	cfg    Config
	logger *slog.Logger

	store    *cache.Store
	sched    *scheduler.Scheduler
	adapter  *push.Adapter // nil when push is disabled
	arbiter  *Arbiter
	notifier *notifier

	mu          sync.Mutex
	subs        map[uuid.UUID]*Subscription
	topicCount  map[model.EndpointKey]int
	authority   map[model.EndpointKey]model.Source
	connState   model.ConnectionState
	pushStarted bool
	closed      bool

	notifications int64
	pushApplied   int64
	pushDiscarded int64
	failovers     int64

	unsubEvent func()
	unsubState func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Coordinator. fetcher drives the pull path; adapter may
// be nil to run pull-only.
func New(cfg Config, fetcher scheduler.Fetcher, adapter *push.Adapter, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Debounce <= 0 {
		cfg.Debounce = def.Debounce
	}
	if cfg.MaxLatency <= 0 {
		cfg.MaxLatency = def.MaxLatency
	}
	if cfg.PushTradeDepth <= 0 {
		cfg.PushTradeDepth = def.PushTradeDepth
	}
	if cfg.WatchdogInterval <= 0 {
		cfg.WatchdogInterval = cfg.Scheduler.Tick
		if cfg.WatchdogInterval <= 0 {
			cfg.WatchdogInterval = def.Scheduler.Tick
		}
	}

	c := &Coordinator{
		cfg:        cfg,
		logger:     logger,
		store:      cache.NewStore(),
		adapter:    adapter,
		subs:       make(map[uuid.UUID]*Subscription),
		topicCount: make(map[model.EndpointKey]int),
		authority:  make(map[model.EndpointKey]model.Source),
		connState:  model.StateDisconnected,
	}

	c.sched = scheduler.New(
		cfg.Scheduler,
		fetcher,
		c.store,
		scheduler.ResultHandlerFunc(c.onPullResult),
		logger,
	)
	c.arbiter = NewArbiter(c.store, c.sched.Descriptor, c.ConnectionState)
	c.notifier = newNotifier(cfg.Debounce, cfg.MaxLatency, c.deliver)

	return c
}

// Store exposes the shared cache for read-only inspection.
func (c *Coordinator) Store() *cache.Store {
	return c.store
}

// Start begins the scheduler and the authority watchdog. The push
// adapter connects lazily on the first subscription.
func (c *Coordinator) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)

	if err := c.sched.Start(c.ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	c.wg.Add(1)
	go c.watchdog()

	c.logger.Info("coordinator started", "symbol", c.cfg.Symbol, "push_enabled", c.adapter != nil)
	return nil
}

// Stop performs full teardown: scheduler timers cancelled, push
// adapter closed, pending notifications dropped. Subsequent Subscribe
// calls fail with ErrClosed.
func (c *Coordinator) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	pushStarted := c.pushStarted
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	c.notifier.Stop()

	if c.unsubEvent != nil {
		c.unsubEvent()
	}
	if c.unsubState != nil {
		c.unsubState()
	}

	if err := c.sched.Stop(ctx); err != nil {
		return err
	}
	if c.adapter != nil && pushStarted {
		if err := c.adapter.Disconnect(ctx); err != nil {
			return err
		}
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("coordinator stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers an observer for the given topics. The first
// subscription to a topic activates its polling (and connects the push
// adapter, if configured). Subscribing with an unknown topic is a
// caller bug and fails fast.
func (c *Coordinator) Subscribe(observer Observer, topics ...model.EndpointKey) (*Subscription, error) {
	if len(topics) == 0 {
		return nil, ErrNoTopics
	}
	for _, topic := range topics {
		if !topic.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
		}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}

	sub := &Subscription{
		ID:       uuid.New(),
		Topics:   append([]model.EndpointKey(nil), topics...),
		c:        c,
		observer: observer,
	}
	c.subs[sub.ID] = sub

	var activated []model.EndpointKey
	for _, topic := range topics {
		c.topicCount[topic]++
		if c.topicCount[topic] == 1 {
			activated = append(activated, topic)
		}
	}

	startPush := c.adapter != nil && !c.pushStarted
	if startPush {
		c.pushStarted = true
	}
	c.mu.Unlock()

	for _, topic := range activated {
		c.sched.Activate(topic)
	}

	if startPush {
		c.startPush()
	}

	sub.Snapshot = c.Snapshot()

	c.logger.Debug("observer subscribed",
		"id", sub.ID,
		"topics", topics,
		"newly_active", activated,
	)

	return sub, nil
}

// remove is called by Subscription.Unsubscribe.
func (c *Coordinator) remove(sub *Subscription) {
	c.mu.Lock()
	if _, ok := c.subs[sub.ID]; !ok {
		c.mu.Unlock()
		return
	}
	delete(c.subs, sub.ID)

	var deactivated []model.EndpointKey
	for _, topic := range sub.Topics {
		c.topicCount[topic]--
		if c.topicCount[topic] == 0 {
			delete(c.topicCount, topic)
			deactivated = append(deactivated, topic)
		}
	}
	c.mu.Unlock()

	// Polling stops for orphaned topics; the cache entry remains
	// readable. The push connection stays up for remaining topics.
	for _, topic := range deactivated {
		c.sched.Deactivate(topic)
	}

	c.logger.Debug("observer unsubscribed", "id", sub.ID, "suspended", deactivated)
}

// ForceRefresh bypasses the interval gate for an immediate pull of the
// given topics (all subscribed topics when none are named). In-flight
// pulls are shared, never duplicated.
func (c *Coordinator) ForceRefresh(ctx context.Context, topics ...model.EndpointKey) error {
	for _, topic := range topics {
		if !topic.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
		}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if len(topics) == 0 {
		for topic := range c.topicCount {
			topics = append(topics, topic)
		}
	}
	c.mu.Unlock()

	if len(topics) == 0 {
		return nil
	}
	return c.sched.Refresh(ctx, topics...)
}

// ConnectionState returns the push channel's current state.
func (c *Coordinator) ConnectionState() model.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connState
}

// Resolve returns the authoritative source for key right now.
func (c *Coordinator) Resolve(key model.EndpointKey) model.Source {
	return c.arbiter.Resolve(key, time.Now())
}

// Stats returns current counters.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Subscribers:   len(c.subs),
		Notifications: c.notifications,
		PushApplied:   c.pushApplied,
		PushDiscarded: c.pushDiscarded,
		Failovers:     c.failovers,
	}
}

// startPush connects the adapter and wires its callbacks.
func (c *Coordinator) startPush() {
	c.unsubEvent = c.adapter.OnEvent(c.onPushEvent)
	c.unsubState = c.adapter.OnStateChange(c.onStateChange)

	if err := c.adapter.Connect(c.ctx); err != nil {
		c.logger.Warn("push adapter failed to start", "err", err)
	}
}

// onPullResult is the scheduler's result handler.
func (c *Coordinator) onPullResult(key model.EndpointKey, applied bool) {
	if applied {
		c.notifier.Mark(key)
	}
}

// onPushEvent normalizes a push event into a cache write.
func (c *Coordinator) onPushEvent(e push.Event) {
	key := e.Key()
	if key == "" {
		return
	}

	var value any
	switch e.Kind {
	case push.EventTicker:
		value = e.Ticker
	case push.EventOrderBook:
		value = e.Book
	case push.EventTrade:
		value = c.mergeTrade(e.Trade)
	default:
		return
	}

	applied := c.store.Write(key, value, e.ObservedAt, model.SourcePush)

	c.mu.Lock()
	if applied {
		c.pushApplied++
	} else {
		c.pushDiscarded++
	}
	c.mu.Unlock()

	if applied {
		c.notifier.Mark(key)
	}
}

// mergeTrade prepends a push trade onto the cached trade list, bounded
// by PushTradeDepth.
func (c *Coordinator) mergeTrade(t *model.Trade) []model.Trade {
	existing, _ := c.store.Read(model.KeyTrades).Value.([]model.Trade)

	merged := make([]model.Trade, 0, len(existing)+1)
	merged = append(merged, *t)
	merged = append(merged, existing...)
	if len(merged) > c.cfg.PushTradeDepth {
		merged = merged[:c.cfg.PushTradeDepth]
	}
	return merged
}

// onStateChange reacts to push channel transitions.
func (c *Coordinator) onStateChange(state model.ConnectionState) {
	c.mu.Lock()
	c.connState = state
	c.mu.Unlock()

	// Observers see connection state as part of the snapshot.
	c.notifier.Kick()

	if state == model.StateConnected {
		return
	}

	// Push is unhealthy: make sure every subscribed topic is being
	// pulled, and pull immediately to close the visible gap.
	topics := c.subscribedTopics()
	for _, topic := range topics {
		c.sched.Activate(topic)
	}
	if len(topics) > 0 && c.ctx != nil {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			if err := c.sched.Refresh(c.ctx, topics...); err != nil && c.ctx.Err() == nil {
				c.logger.Warn("failover refresh failed", "err", err)
			}
		}()
	}
}

func (c *Coordinator) subscribedTopics() []model.EndpointKey {
	c.mu.Lock()
	defer c.mu.Unlock()

	topics := make([]model.EndpointKey, 0, len(c.topicCount))
	for _, key := range model.AllEndpoints() {
		if c.topicCount[key] > 0 {
			topics = append(topics, key)
		}
	}
	return topics
}

// watchdog periodically re-evaluates push-vs-pull authority per topic:
// pull scheduling is suspended while push is authoritative and
// reactivated within one tick of push data going stale.
func (c *Coordinator) watchdog() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.WatchdogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.reconcileAuthority()
		}
	}
}

// reconcileAuthority aligns scheduler activation with the arbiter's
// verdict for every subscribed topic.
func (c *Coordinator) reconcileAuthority() {
	now := time.Now()

	for _, topic := range c.subscribedTopics() {
		source := c.arbiter.Resolve(topic, now)

		c.mu.Lock()
		prev := c.authority[topic]
		c.authority[topic] = source
		failover := prev == model.SourcePush && source == model.SourcePull
		if failover {
			c.failovers++
		}
		c.mu.Unlock()

		switch source {
		case model.SourcePull:
			c.sched.Activate(topic)
			if failover {
				c.logger.Info("failover to pull", "topic", topic)
				c.wg.Add(1)
				go func(topic model.EndpointKey) {
					defer c.wg.Done()
					if err := c.sched.Refresh(c.ctx, topic); err != nil && c.ctx.Err() == nil {
						c.logger.Warn("failover refresh failed", "topic", topic, "err", err)
					}
				}(topic)
			}
		case model.SourcePush:
			// Push is fresh and healthy: stop spending pull requests.
			c.sched.Deactivate(topic)
		}
	}
}

// deliver is the notifier's flush function: one consistent snapshot to
// every registered observer.
func (c *Coordinator) deliver(keys []model.EndpointKey) {
	snapshot := c.Snapshot()

	c.mu.Lock()
	observers := make([]Observer, 0, len(c.subs))
	for _, sub := range c.subs {
		observers = append(observers, sub.observer)
	}
	c.notifications++
	c.mu.Unlock()

	for _, fn := range observers {
		fn(snapshot)
	}

	if len(keys) > 0 {
		c.logger.Debug("snapshot delivered", "keys", keys, "observers", len(observers))
	}
}

// Snapshot builds a point-in-time value copy of all tracked entries.
func (c *Coordinator) Snapshot() model.Snapshot {
	now := time.Now()
	snap := model.Snapshot{
		Meta:       make(map[model.EndpointKey]model.EntryMeta, len(model.AllEndpoints())),
		Connection: c.ConnectionState(),
		TakenAt:    now,
	}

	for _, key := range model.AllEndpoints() {
		entry := c.store.Read(key)
		if entry.Value == nil {
			continue
		}

		staleness := c.sched.Descriptor(key).Staleness
		snap.Meta[key] = model.EntryMeta{
			UpdatedAt: entry.UpdatedAt,
			Source:    entry.Source,
			Stale:     staleness > 0 && now.Sub(entry.UpdatedAt) > staleness,
		}

		switch key {
		case model.KeyTicker:
			if v, ok := entry.Value.(*model.Ticker); ok {
				t := *v
				snap.Ticker = &t
			}
		case model.KeyOrderBook:
			if v, ok := entry.Value.(*model.OrderBook); ok {
				snap.OrderBook = model.CopyBook(v)
			}
		case model.KeyTrades:
			if v, ok := entry.Value.([]model.Trade); ok {
				snap.Trades = model.CopyTrades(v)
			}
		case model.KeyBalances:
			if v, ok := entry.Value.([]model.Balance); ok {
				snap.Balances = model.CopyBalances(v)
			}
		case model.KeyOrders:
			if v, ok := entry.Value.([]model.Order); ok {
				snap.Orders = model.CopyOrders(v)
			}
		case model.KeyBotStatus:
			if v, ok := entry.Value.(*model.BotStatus); ok {
				s := *v
				snap.BotStatus = &s
			}
		case model.KeyLogs:
			if v, ok := entry.Value.([]model.LogEntry); ok {
				snap.Logs = model.CopyLogs(v)
			}
		}
	}

	return snap
}
