package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/JohnCCarter/crypto-bot-dashboard-nexus-sub001/internal/model"
)

// tickerWire is the wire format for /market/ticker responses.
type tickerWire struct {
	Symbol    string          `json:"symbol"`
	Bid       decimal.Decimal `json:"bid"`
	Ask       decimal.Decimal `json:"ask"`
	LastPrice decimal.Decimal `json:"last_price"`
	Volume24h decimal.Decimal `json:"volume"`
	High24h   decimal.Decimal `json:"high"`
	Low24h    decimal.Decimal `json:"low"`
}

func (w tickerWire) ToModel() *model.Ticker {
	return &model.Ticker{
		Symbol:    w.Symbol,
		Bid:       w.Bid,
		Ask:       w.Ask,
		LastPrice: w.LastPrice,
		Volume24h: w.Volume24h,
		High24h:   w.High24h,
		Low24h:    w.Low24h,
	}
}

// orderBookWire is the wire format for /market/orderbook responses.
// Levels arrive as [price, size] pairs.
type orderBookWire struct {
	Symbol string              `json:"symbol"`
	Bids   [][]decimal.Decimal `json:"bids"`
	Asks   [][]decimal.Decimal `json:"asks"`
}

func (w orderBookWire) ToModel() *model.OrderBook {
	return &model.OrderBook{
		Symbol: w.Symbol,
		Bids:   toLevels(w.Bids),
		Asks:   toLevels(w.Asks),
	}
}

func toLevels(pairs [][]decimal.Decimal) []model.PriceLevel {
	levels := make([]model.PriceLevel, 0, len(pairs))
	for _, p := range pairs {
		if len(p) < 2 {
			continue
		}
		levels = append(levels, model.PriceLevel{Price: p[0], Size: p[1]})
	}
	return levels
}

// tradeWire is one element of a /market/trades response.
type tradeWire struct {
	ID     string          `json:"id"`
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	Size   decimal.Decimal `json:"amount"`
	Side   string          `json:"side"`
	TS     int64           `json:"timestamp"` // Milliseconds since epoch
}

type tradesWire struct {
	Trades []tradeWire `json:"trades"`
}

func (w tradesWire) ToModel() []model.Trade {
	trades := make([]model.Trade, 0, len(w.Trades))
	for _, t := range w.Trades {
		trades = append(trades, model.Trade{
			ID:     t.ID,
			Symbol: t.Symbol,
			Price:  t.Price,
			Size:   t.Size,
			Side:   t.Side,
			TS:     time.UnixMilli(t.TS),
		})
	}
	return trades
}

// balanceWire is one element of an /account/balances response.
type balanceWire struct {
	Currency  string          `json:"currency"`
	Total     decimal.Decimal `json:"total"`
	Available decimal.Decimal `json:"available"`
}

type balancesWire struct {
	Balances []balanceWire `json:"balances"`
}

func (w balancesWire) ToModel() []model.Balance {
	balances := make([]model.Balance, 0, len(w.Balances))
	for _, b := range w.Balances {
		balances = append(balances, model.Balance{
			Currency:  b.Currency,
			Total:     b.Total,
			Available: b.Available,
		})
	}
	return balances
}

// orderWire is one element of an /account/orders response.
type orderWire struct {
	ID        string          `json:"id"`
	Symbol    string          `json:"symbol"`
	Side      string          `json:"side"`
	Type      string          `json:"type"`
	Price     decimal.Decimal `json:"price"`
	Amount    decimal.Decimal `json:"amount"`
	Filled    decimal.Decimal `json:"filled"`
	Status    string          `json:"status"`
	CreatedAt int64           `json:"created_at"` // Milliseconds since epoch
}

type ordersWire struct {
	Orders []orderWire `json:"orders"`
}

func (w ordersWire) ToModel() []model.Order {
	orders := make([]model.Order, 0, len(w.Orders))
	for _, o := range w.Orders {
		orders = append(orders, model.Order{
			ID:        o.ID,
			Symbol:    o.Symbol,
			Side:      o.Side,
			Type:      o.Type,
			Price:     o.Price,
			Amount:    o.Amount,
			Filled:    o.Filled,
			Status:    o.Status,
			CreatedAt: time.UnixMilli(o.CreatedAt),
		})
	}
	return orders
}

// botStatusWire is the wire format for /bot/status responses.
type botStatusWire struct {
	Running       bool   `json:"running"`
	Strategy      string `json:"strategy"`
	ActiveTrades  int    `json:"active_trades"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	LastTick      int64  `json:"last_tick"` // Milliseconds since epoch
}

func (w botStatusWire) ToModel() *model.BotStatus {
	return &model.BotStatus{
		Running:      w.Running,
		Strategy:     w.Strategy,
		ActiveTrades: w.ActiveTrades,
		Uptime:       time.Duration(w.UptimeSeconds) * time.Second,
		LastTickAt:   time.UnixMilli(w.LastTick),
	}
}

// logWire is one element of a /bot/logs response.
type logWire struct {
	TS      int64  `json:"timestamp"` // Milliseconds since epoch
	Level   string `json:"level"`
	Message string `json:"message"`
}

type logsWire struct {
	Logs []logWire `json:"logs"`
}

func (w logsWire) ToModel() []model.LogEntry {
	logs := make([]model.LogEntry, 0, len(w.Logs))
	for _, l := range w.Logs {
		logs = append(logs, model.LogEntry{
			TS:      time.UnixMilli(l.TS),
			Level:   l.Level,
			Message: l.Message,
		})
	}
	return logs
}
