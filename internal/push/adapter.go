package push

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/JohnCCarter/crypto-bot-dashboard-nexus-sub001/internal/model"
)

// Handler receives normalized push events.
type Handler func(Event)

// StateHandler receives connection state transitions.
type StateHandler func(model.ConnectionState)

// Adapter wraps the live feed behind a normalized event stream and a
// connection state signal. Reconnection is the adapter's own business;
// consumers only observe state transitions.
type Adapter struct {
	cfg    Config
	logger *slog.Logger

	// newClient builds the underlying connection. Swappable in tests.
	newClient func() Client

	mu            sync.Mutex
	state         model.ConnectionState
	misses        int
	client        Client
	handlers      map[int64]Handler
	stateHandlers map[int64]StateHandler
	nextID        int64

	events     int64
	unknown    int64
	parseFails int64
	reconnects int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewAdapter creates a new Push Adapter.
func NewAdapter(cfg Config, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.HeartbeatTimeout <= 0 {
		cfg.HeartbeatTimeout = def.HeartbeatTimeout
	}
	if cfg.MaxMissedHeartbeats <= 0 {
		cfg.MaxMissedHeartbeats = def.MaxMissedHeartbeats
	}
	if cfg.ReconnectBaseDelay <= 0 {
		cfg.ReconnectBaseDelay = def.ReconnectBaseDelay
	}
	if cfg.ReconnectMaxDelay <= 0 {
		cfg.ReconnectMaxDelay = def.ReconnectMaxDelay
	}

	a := &Adapter{
		cfg:           cfg,
		logger:        logger,
		state:         model.StateDisconnected,
		handlers:      make(map[int64]Handler),
		stateHandlers: make(map[int64]StateHandler),
	}
	a.newClient = func() Client {
		clientCfg := DefaultClientConfig()
		clientCfg.URL = cfg.URL
		clientCfg.APIKey = cfg.APIKey
		return NewClient(clientCfg, logger)
	}
	return a
}

// Connect starts the adapter's connection loop.
func (a *Adapter) Connect(ctx context.Context) error {
	a.ctx, a.cancel = context.WithCancel(ctx)

	a.wg.Add(1)
	go a.run()

	a.logger.Info("push adapter started", "url", a.cfg.URL, "symbol", a.cfg.Symbol)
	return nil
}

// Disconnect shuts the adapter down.
func (a *Adapter) Disconnect(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}

	a.mu.Lock()
	if a.client != nil {
		a.client.Close()
	}
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		a.setState(model.StateDisconnected)
		a.logger.Info("push adapter stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OnEvent registers a handler for normalized events. The returned
// function removes it; calling it more than once is safe.
func (a *Adapter) OnEvent(h Handler) (unsubscribe func()) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.nextID++
	id := a.nextID
	a.handlers[id] = h

	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.handlers, id)
	}
}

// OnStateChange registers a handler for connection state transitions.
func (a *Adapter) OnStateChange(h StateHandler) (unsubscribe func()) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.nextID++
	id := a.nextID
	a.stateHandlers[id] = h

	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.stateHandlers, id)
	}
}

// State returns the current connection state.
func (a *Adapter) State() model.ConnectionState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Stats returns current counters.
func (a *Adapter) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Stats{
		Events:     a.events,
		Unknown:    a.unknown,
		ParseFails: a.parseFails,
		Reconnects: a.reconnects,
	}
}

// setState transitions the state machine and notifies listeners.
// No-op when the state is unchanged.
func (a *Adapter) setState(next model.ConnectionState) {
	a.mu.Lock()
	if a.state == next {
		a.mu.Unlock()
		return
	}
	prev := a.state
	a.state = next
	listeners := make([]StateHandler, 0, len(a.stateHandlers))
	for _, h := range a.stateHandlers {
		listeners = append(listeners, h)
	}
	a.mu.Unlock()

	a.logger.Info("connection state changed", "from", prev, "to", next)

	for _, h := range listeners {
		h(next)
	}
}

// markTraffic resets the miss counter and restores connected after a
// degraded window.
func (a *Adapter) markTraffic() {
	a.mu.Lock()
	a.misses = 0
	degraded := a.state == model.StateDegraded
	a.mu.Unlock()

	if degraded {
		a.setState(model.StateConnected)
	}
}

// recordMiss counts one missed-heartbeat window. Returns true when the
// connection should be dropped.
func (a *Adapter) recordMiss() (drop bool) {
	a.mu.Lock()
	a.misses++
	misses := a.misses
	a.mu.Unlock()

	a.logger.Warn("heartbeat missed", "misses", misses, "max", a.cfg.MaxMissedHeartbeats)

	a.setState(model.StateDegraded)
	return misses >= a.cfg.MaxMissedHeartbeats
}

// run owns the connect/session/reconnect cycle.
func (a *Adapter) run() {
	defer a.wg.Done()

	wait := a.cfg.ReconnectBaseDelay

	for {
		select {
		case <-a.ctx.Done():
			return
		default:
		}

		a.setState(model.StateConnecting)

		c := a.newClient()
		if err := c.Connect(a.ctx); err != nil {
			a.logger.Warn("connect failed", "err", err)
			a.setState(model.StateDisconnected)

			a.mu.Lock()
			a.reconnects++
			a.mu.Unlock()

			select {
			case <-a.ctx.Done():
				return
			case <-time.After(wait):
			}
			wait *= 2
			if wait > a.cfg.ReconnectMaxDelay {
				wait = a.cfg.ReconnectMaxDelay
			}
			continue
		}

		a.mu.Lock()
		a.client = c
		a.misses = 0
		a.mu.Unlock()

		if err := a.subscribe(c); err != nil {
			a.logger.Warn("subscribe failed", "err", err)
			c.Close()
			a.setState(model.StateDisconnected)
			continue
		}

		a.setState(model.StateConnected)
		wait = a.cfg.ReconnectBaseDelay

		a.session(c)

		// Session ended: tear down and go around for reconnect.
		c.Close()
		a.setState(model.StateDisconnected)

		a.mu.Lock()
		a.reconnects++
		a.mu.Unlock()

		select {
		case <-a.ctx.Done():
			return
		case <-time.After(a.cfg.ReconnectBaseDelay):
		}
	}
}

// subscribe sends the channel subscription for the configured symbol.
func (a *Adapter) subscribe(c Client) error {
	cmd := subscribeCmd{
		Op:       "subscribe",
		Channels: []string{"ticker", "orderbook", "trades"},
		Symbol:   a.cfg.Symbol,
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	return c.Send(data)
}

// session consumes one connection until it fails or goes stale.
func (a *Adapter) session(c Client) {
	heartbeat := time.NewTicker(a.cfg.HeartbeatTimeout)
	defer heartbeat.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return

		case err := <-c.Errors():
			a.logger.Warn("connection error", "err", err)
			return

		case msg, ok := <-c.Messages():
			if !ok {
				return
			}
			a.markTraffic()
			a.handleMessage(msg)

		case <-heartbeat.C:
			if time.Since(c.LastActivity()) < a.cfg.HeartbeatTimeout {
				a.markTraffic()
				continue
			}
			if a.recordMiss() {
				a.logger.Warn("dropping stale connection", "err", ErrStaleConnection)
				return
			}
		}
	}
}

// handleMessage normalizes one raw message and dispatches it.
func (a *Adapter) handleMessage(msg TimestampedMessage) {
	event, ok := a.parseMessage(msg.Data, msg.ReceivedAt)
	if !ok {
		return
	}

	a.mu.Lock()
	a.events++
	listeners := make([]Handler, 0, len(a.handlers))
	for _, h := range a.handlers {
		listeners = append(listeners, h)
	}
	a.mu.Unlock()

	for _, h := range listeners {
		h(event)
	}
}

// parseMessage decodes a wire message into a normalized Event.
func (a *Adapter) parseMessage(data []byte, receivedAt time.Time) (Event, bool) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		a.countParseFail()
		a.logger.Debug("failed to parse message", "err", err)
		return Event{}, false
	}

	observedAt := receivedAt
	if env.TS > 0 {
		observedAt = time.UnixMilli(env.TS)
	}

	switch env.Channel {
	case "ticker":
		var w tickerWire
		if err := json.Unmarshal(env.Data, &w); err != nil {
			a.countParseFail()
			return Event{}, false
		}
		return Event{
			Kind:       EventTicker,
			ObservedAt: observedAt,
			Ticker: &model.Ticker{
				Symbol:    env.Symbol,
				Bid:       w.Bid,
				Ask:       w.Ask,
				LastPrice: w.LastPrice,
				Volume24h: w.Volume24h,
				High24h:   w.High24h,
				Low24h:    w.Low24h,
			},
		}, true

	case "orderbook":
		var w bookWire
		if err := json.Unmarshal(env.Data, &w); err != nil {
			a.countParseFail()
			return Event{}, false
		}
		book := &model.OrderBook{Symbol: env.Symbol}
		for _, p := range w.Bids {
			if len(p) >= 2 {
				book.Bids = append(book.Bids, model.PriceLevel{Price: p[0], Size: p[1]})
			}
		}
		for _, p := range w.Asks {
			if len(p) >= 2 {
				book.Asks = append(book.Asks, model.PriceLevel{Price: p[0], Size: p[1]})
			}
		}
		return Event{Kind: EventOrderBook, ObservedAt: observedAt, Book: book}, true

	case "trades":
		var w tradeWire
		if err := json.Unmarshal(env.Data, &w); err != nil {
			a.countParseFail()
			return Event{}, false
		}
		return Event{
			Kind:       EventTrade,
			ObservedAt: observedAt,
			Trade: &model.Trade{
				ID:     w.ID,
				Symbol: env.Symbol,
				Price:  w.Price,
				Size:   w.Size,
				Side:   w.Side,
				TS:     observedAt,
			},
		}, true
	}

	a.mu.Lock()
	a.unknown++
	a.mu.Unlock()
	a.logger.Debug("unknown channel", "channel", env.Channel)
	return Event{}, false
}

func (a *Adapter) countParseFail() {
	a.mu.Lock()
	a.parseFails++
	a.mu.Unlock()
}
