package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EndpointKey identifies one logical, independently-scheduled data feed.
type EndpointKey string

const (
	KeyTicker    EndpointKey = "ticker"
	KeyOrderBook EndpointKey = "orderbook"
	KeyTrades    EndpointKey = "trades"
	KeyBalances  EndpointKey = "balances"
	KeyOrders    EndpointKey = "orders"
	KeyBotStatus EndpointKey = "botStatus"
	KeyLogs      EndpointKey = "logs"
)

// AllEndpoints returns every known endpoint key in canonical order.
func AllEndpoints() []EndpointKey {
	return []EndpointKey{
		KeyTicker,
		KeyOrderBook,
		KeyTrades,
		KeyBalances,
		KeyOrders,
		KeyBotStatus,
		KeyLogs,
	}
}

// Valid reports whether k is a known endpoint key.
func (k EndpointKey) Valid() bool {
	switch k {
	case KeyTicker, KeyOrderBook, KeyTrades, KeyBalances, KeyOrders, KeyBotStatus, KeyLogs:
		return true
	}
	return false
}

// Source identifies which channel produced a cached value.
type Source string

const (
	SourcePush Source = "push"
	SourcePull Source = "pull"
	SourceNone Source = "none"
)

// ConnectionState describes the health of the push channel.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateDegraded     ConnectionState = "degraded"
)

// -----------------------------------------------------------------------------
// Market Data Types
// -----------------------------------------------------------------------------

// Ticker is a price/volume snapshot for a symbol.
type Ticker struct {
	Symbol    string
	Bid       decimal.Decimal
	Ask       decimal.Decimal
	LastPrice decimal.Decimal
	Volume24h decimal.Decimal
	High24h   decimal.Decimal
	Low24h    decimal.Decimal
}

// PriceLevel is a single price level in an order book.
type PriceLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// OrderBook is the aggregated book for a symbol at a point in time.
type OrderBook struct {
	Symbol string
	Bids   []PriceLevel // Sorted best-first
	Asks   []PriceLevel // Sorted best-first
}

// BestBid returns the top bid, or a zero level if the book is empty.
func (b OrderBook) BestBid() PriceLevel {
	if len(b.Bids) == 0 {
		return PriceLevel{}
	}
	return b.Bids[0]
}

// BestAsk returns the top ask, or a zero level if the book is empty.
func (b OrderBook) BestAsk() PriceLevel {
	if len(b.Asks) == 0 {
		return PriceLevel{}
	}
	return b.Asks[0]
}

// Trade is a single executed trade.
type Trade struct {
	ID     string
	Symbol string
	Price  decimal.Decimal
	Size   decimal.Decimal
	Side   string // "buy" or "sell" (taker side)
	TS     time.Time
}

// Balance is the state of one wallet currency.
type Balance struct {
	Currency  string
	Total     decimal.Decimal
	Available decimal.Decimal
}

// Order is an open order on the exchange.
type Order struct {
	ID        string
	Symbol    string
	Side      string // "buy" or "sell"
	Type      string // "limit", "market", ...
	Price     decimal.Decimal
	Amount    decimal.Decimal
	Filled    decimal.Decimal
	Status    string
	CreatedAt time.Time
}

// BotStatus is the trading bot's operational state.
type BotStatus struct {
	Running      bool
	Strategy     string
	ActiveTrades int
	Uptime       time.Duration
	LastTickAt   time.Time
}

// LogEntry is a single bot log line.
type LogEntry struct {
	TS      time.Time
	Level   string
	Message string
}
