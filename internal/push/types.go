package push

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JohnCCarter/crypto-bot-dashboard-nexus-sub001/internal/model"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no traffic)")
	ErrAlreadyClosed   = errors.New("already closed")
)

// EventKind tags the payload variant carried by an Event.
type EventKind string

const (
	EventTicker    EventKind = "ticker"
	EventOrderBook EventKind = "orderbook"
	EventTrade     EventKind = "trade"
)

// Event is a normalized push update. Exactly one payload field matching
// Kind is non-nil.
type Event struct {
	Kind       EventKind
	ObservedAt time.Time // Server timestamp when present, receive time otherwise

	Ticker *model.Ticker
	Book   *model.OrderBook
	Trade  *model.Trade
}

// Key returns the endpoint the event belongs to.
func (e Event) Key() model.EndpointKey {
	switch e.Kind {
	case EventTicker:
		return model.KeyTicker
	case EventOrderBook:
		return model.KeyOrderBook
	case EventTrade:
		return model.KeyTrades
	}
	return ""
}

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte
	ReceivedAt time.Time
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL          string        // WebSocket URL
	APIKey       string        // Bearer token, empty for public feeds
	WriteTimeout time.Duration // Write deadline for sends
	BufferSize   int           // Message channel buffer size
	PingInterval time.Duration // Keepalive ping cadence
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		WriteTimeout: 5 * time.Second,
		BufferSize:   1000,
		PingInterval: 5 * time.Second,
	}
}

// Config configures the Push Adapter.
type Config struct {
	URL                 string        // WebSocket URL
	APIKey              string        // Bearer token, empty for public feeds
	Symbol              string        // Trading symbol to subscribe
	HeartbeatTimeout    time.Duration // Window without traffic counting as one miss
	MaxMissedHeartbeats int           // Consecutive misses before dropping the connection
	ReconnectBaseDelay  time.Duration // Base wait for reconnection backoff
	ReconnectMaxDelay   time.Duration // Max wait for reconnection backoff
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		HeartbeatTimeout:    10 * time.Second,
		MaxMissedHeartbeats: 3,
		ReconnectBaseDelay:  time.Second,
		ReconnectMaxDelay:   30 * time.Second,
	}
}

// Stats contains adapter counters.
type Stats struct {
	Events     int64 // Normalized events dispatched
	Unknown    int64 // Messages with an unrecognized channel, dropped
	ParseFails int64 // Messages that failed to decode
	Reconnects int64 // Reconnection attempts
}

// subscribeCmd is the subscription command sent after connect.
type subscribeCmd struct {
	Op       string   `json:"op"`
	Channels []string `json:"channels"`
	Symbol   string   `json:"symbol"`
}

// envelope is used for channel extraction on every inbound message.
type envelope struct {
	Channel string          `json:"channel"`
	Symbol  string          `json:"symbol"`
	TS      int64           `json:"ts"` // Milliseconds since epoch, 0 if absent
	Data    json.RawMessage `json:"data"`
}

// tickerWire is the push wire format for ticker updates.
type tickerWire struct {
	Bid       decimal.Decimal `json:"bid"`
	Ask       decimal.Decimal `json:"ask"`
	LastPrice decimal.Decimal `json:"last_price"`
	Volume24h decimal.Decimal `json:"volume"`
	High24h   decimal.Decimal `json:"high"`
	Low24h    decimal.Decimal `json:"low"`
}

// bookWire is the push wire format for order book snapshots.
// Levels arrive as [price, size] pairs, best-first.
type bookWire struct {
	Bids [][]decimal.Decimal `json:"bids"`
	Asks [][]decimal.Decimal `json:"asks"`
}

// tradeWire is the push wire format for trade events.
type tradeWire struct {
	ID    string          `json:"id"`
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"amount"`
	Side  string          `json:"side"`
}
