package push

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JohnCCarter/crypto-bot-dashboard-nexus-sub001/internal/model"
)

// fakeClient is an in-memory Client for driving the adapter without a
// network.
type fakeClient struct {
	mu           sync.Mutex
	messages     chan TimestampedMessage
	errors       chan error
	connected    bool
	lastActivity time.Time
	sent         [][]byte
	connectErr   error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		messages:     make(chan TimestampedMessage, 100),
		errors:       make(chan error, 1),
		lastActivity: time.Now(),
	}
}

func (f *fakeClient) Connect(ctx context.Context) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.mu.Lock()
	f.connected = true
	f.mu.Unlock()
	return nil
}

func (f *fakeClient) Close() error {
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()
	return nil
}

func (f *fakeClient) Send(data []byte) error {
	f.mu.Lock()
	f.sent = append(f.sent, data)
	f.mu.Unlock()
	return nil
}

func (f *fakeClient) Messages() <-chan TimestampedMessage { return f.messages }
func (f *fakeClient) Errors() <-chan error                { return f.errors }

func (f *fakeClient) LastActivity() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastActivity
}

func (f *fakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeClient) push(data string) {
	f.mu.Lock()
	f.lastActivity = time.Now()
	f.mu.Unlock()
	f.messages <- TimestampedMessage{Data: []byte(data), ReceivedAt: time.Now()}
}

// stateRecorder collects state transitions.
type stateRecorder struct {
	mu     sync.Mutex
	states []model.ConnectionState
}

func (r *stateRecorder) record(s model.ConnectionState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *stateRecorder) seen(want model.ConnectionState) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.states {
		if s == want {
			return true
		}
	}
	return false
}

func testAdapter(t *testing.T, fakes chan *fakeClient) *Adapter {
	t.Helper()
	cfg := Config{
		Symbol:              "BTC/USD",
		HeartbeatTimeout:    30 * time.Millisecond,
		MaxMissedHeartbeats: 2,
		ReconnectBaseDelay:  10 * time.Millisecond,
		ReconnectMaxDelay:   50 * time.Millisecond,
	}
	a := NewAdapter(cfg, nil)
	a.newClient = func() Client {
		f := newFakeClient()
		fakes <- f
		return f
	}
	return a
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestAdapter_ConnectAndSubscribe(t *testing.T) {
	fakes := make(chan *fakeClient, 10)
	a := testAdapter(t, fakes)

	rec := &stateRecorder{}
	a.OnStateChange(rec.record)

	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer a.Disconnect(context.Background())

	f := <-fakes
	waitFor(t, time.Second, func() bool { return a.State() == model.StateConnected })

	if !rec.seen(model.StateConnecting) {
		t.Error("connecting state was never observed")
	}

	f.mu.Lock()
	sent := len(f.sent)
	f.mu.Unlock()
	if sent != 1 {
		t.Errorf("subscribe commands sent = %d, want 1", sent)
	}
}

func TestAdapter_NormalizesTicker(t *testing.T) {
	fakes := make(chan *fakeClient, 10)
	a := testAdapter(t, fakes)

	var got atomic.Pointer[Event]
	a.OnEvent(func(e Event) {
		if e.Kind == EventTicker {
			got.Store(&e)
		}
	})

	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer a.Disconnect(context.Background())

	f := <-fakes
	waitFor(t, time.Second, func() bool { return a.State() == model.StateConnected })

	f.push(`{"channel":"ticker","symbol":"BTC/USD","ts":1700000000500,"data":{"bid":"99","ask":"101","last_price":"100"}}`)

	waitFor(t, time.Second, func() bool { return got.Load() != nil })

	e := got.Load()
	if e.Ticker == nil {
		t.Fatal("Ticker payload is nil")
	}
	if e.Ticker.Symbol != "BTC/USD" {
		t.Errorf("Symbol = %q, want BTC/USD", e.Ticker.Symbol)
	}
	if !e.Ticker.LastPrice.Equal(decimal.NewFromInt(100)) {
		t.Errorf("LastPrice = %s, want 100", e.Ticker.LastPrice)
	}
	if !e.ObservedAt.Equal(time.UnixMilli(1700000000500)) {
		t.Errorf("ObservedAt = %v, want server ts", e.ObservedAt)
	}
	if e.Key() != model.KeyTicker {
		t.Errorf("Key() = %q, want ticker", e.Key())
	}
}

func TestAdapter_HeartbeatDegradesAndDrops(t *testing.T) {
	fakes := make(chan *fakeClient, 10)
	a := testAdapter(t, fakes)

	rec := &stateRecorder{}
	a.OnStateChange(rec.record)

	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer a.Disconnect(context.Background())

	f := <-fakes
	waitFor(t, time.Second, func() bool { return a.State() == model.StateConnected })

	// Stop all traffic: the adapter should degrade, then drop and
	// reconnect on its own.
	f.mu.Lock()
	f.lastActivity = time.Now().Add(-time.Minute)
	f.mu.Unlock()

	waitFor(t, 2*time.Second, func() bool { return rec.seen(model.StateDegraded) })
	waitFor(t, 2*time.Second, func() bool { return rec.seen(model.StateDisconnected) })

	// A fresh client means a reconnect attempt happened.
	select {
	case <-fakes:
	case <-time.After(2 * time.Second):
		t.Fatal("adapter never reconnected")
	}
}

func TestAdapter_TrafficRecoversDegraded(t *testing.T) {
	a := NewAdapter(Config{Symbol: "BTC/USD"}, nil)

	a.mu.Lock()
	a.state = model.StateConnected
	a.mu.Unlock()

	if drop := a.recordMiss(); drop {
		t.Fatal("first miss should not drop with MaxMissedHeartbeats=3")
	}
	if a.State() != model.StateDegraded {
		t.Fatalf("state = %q after miss, want degraded", a.State())
	}

	a.markTraffic()
	if a.State() != model.StateConnected {
		t.Errorf("state = %q after traffic, want connected", a.State())
	}

	a.mu.Lock()
	misses := a.misses
	a.mu.Unlock()
	if misses != 0 {
		t.Errorf("misses = %d after traffic, want 0", misses)
	}
}

func TestAdapter_ErrorEndsSession(t *testing.T) {
	fakes := make(chan *fakeClient, 10)
	a := testAdapter(t, fakes)

	rec := &stateRecorder{}
	a.OnStateChange(rec.record)

	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer a.Disconnect(context.Background())

	f := <-fakes
	waitFor(t, time.Second, func() bool { return a.State() == model.StateConnected })

	f.errors <- ErrStaleConnection

	waitFor(t, 2*time.Second, func() bool { return rec.seen(model.StateDisconnected) })

	select {
	case <-fakes:
	case <-time.After(2 * time.Second):
		t.Fatal("adapter never reconnected after error")
	}
}

func TestAdapter_ParseMessage(t *testing.T) {
	a := NewAdapter(Config{Symbol: "BTC/USD"}, nil)
	now := time.Now()

	tests := []struct {
		name     string
		data     string
		wantKind EventKind
		wantOK   bool
	}{
		{
			name:     "orderbook",
			data:     `{"channel":"orderbook","symbol":"BTC/USD","data":{"bids":[["100","2"]],"asks":[["101","1"]]}}`,
			wantKind: EventOrderBook,
			wantOK:   true,
		},
		{
			name:     "trade",
			data:     `{"channel":"trades","symbol":"BTC/USD","ts":1700000000000,"data":{"id":"t1","price":"100.5","amount":"0.1","side":"buy"}}`,
			wantKind: EventTrade,
			wantOK:   true,
		},
		{
			name:   "unknown channel",
			data:   `{"channel":"candles","data":{}}`,
			wantOK: false,
		},
		{
			name:   "malformed json",
			data:   `{"channel":`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ok := a.parseMessage([]byte(tt.data), now)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if e.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", e.Kind, tt.wantKind)
			}
		})
	}

	stats := a.Stats()
	if stats.Unknown != 1 {
		t.Errorf("Stats().Unknown = %d, want 1", stats.Unknown)
	}
	if stats.ParseFails != 1 {
		t.Errorf("Stats().ParseFails = %d, want 1", stats.ParseFails)
	}
}

func TestAdapter_ParseBook_UsesReceiveTimeWithoutTS(t *testing.T) {
	a := NewAdapter(Config{Symbol: "BTC/USD"}, nil)
	now := time.Now()

	e, ok := a.parseMessage([]byte(`{"channel":"orderbook","symbol":"BTC/USD","data":{"bids":[["100","1"]],"asks":[]}}`), now)
	if !ok {
		t.Fatal("parse failed")
	}
	if !e.ObservedAt.Equal(now) {
		t.Errorf("ObservedAt = %v, want receive time %v", e.ObservedAt, now)
	}
	if len(e.Book.Bids) != 1 || !e.Book.Bids[0].Price.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Book.Bids = %+v, want one level at 100", e.Book.Bids)
	}
}

func TestAdapter_OnEventUnsubscribe(t *testing.T) {
	a := NewAdapter(Config{Symbol: "BTC/USD"}, nil)

	var calls atomic.Int32
	unsub := a.OnEvent(func(Event) { calls.Add(1) })

	a.handleMessage(TimestampedMessage{
		Data:       []byte(`{"channel":"ticker","symbol":"BTC/USD","data":{"last_price":"1"}}`),
		ReceivedAt: time.Now(),
	})
	if calls.Load() != 1 {
		t.Fatalf("handler calls = %d, want 1", calls.Load())
	}

	// Unsubscribing is idempotent.
	unsub()
	unsub()

	a.handleMessage(TimestampedMessage{
		Data:       []byte(`{"channel":"ticker","symbol":"BTC/USD","data":{"last_price":"2"}}`),
		ReceivedAt: time.Now(),
	})
	if calls.Load() != 1 {
		t.Errorf("handler calls = %d after unsubscribe, want 1", calls.Load())
	}
}
