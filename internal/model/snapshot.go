package model

import "time"

// EntryMeta describes the provenance of one snapshot field.
type EntryMeta struct {
	UpdatedAt time.Time // Zero if the endpoint has never been populated
	Source    Source
	Stale     bool // True if UpdatedAt is older than the endpoint's staleness threshold
}

// Snapshot is an immutable, point-in-time copy of every tracked cache
// entry, handed to observers on each notification. Slices are deep
// copies, so an observer can never corrupt coordinator state.
type Snapshot struct {
	Ticker    *Ticker
	OrderBook *OrderBook
	Trades    []Trade
	Balances  []Balance
	Orders    []Order
	BotStatus *BotStatus
	Logs      []LogEntry

	Meta       map[EndpointKey]EntryMeta
	Connection ConnectionState
	TakenAt    time.Time
}

// MetaFor returns the metadata for key, or a zero EntryMeta with
// SourceNone if the endpoint has never been written.
func (s Snapshot) MetaFor(key EndpointKey) EntryMeta {
	if m, ok := s.Meta[key]; ok {
		return m
	}
	return EntryMeta{Source: SourceNone}
}

// CopyTrades returns a deep copy of a trade slice.
func CopyTrades(in []Trade) []Trade {
	if in == nil {
		return nil
	}
	out := make([]Trade, len(in))
	copy(out, in)
	return out
}

// CopyBalances returns a deep copy of a balance slice.
func CopyBalances(in []Balance) []Balance {
	if in == nil {
		return nil
	}
	out := make([]Balance, len(in))
	copy(out, in)
	return out
}

// CopyOrders returns a deep copy of an order slice.
func CopyOrders(in []Order) []Order {
	if in == nil {
		return nil
	}
	out := make([]Order, len(in))
	copy(out, in)
	return out
}

// CopyLogs returns a deep copy of a log slice.
func CopyLogs(in []LogEntry) []LogEntry {
	if in == nil {
		return nil
	}
	out := make([]LogEntry, len(in))
	copy(out, in)
	return out
}

// CopyBook returns a deep copy of an order book, including its levels.
func CopyBook(in *OrderBook) *OrderBook {
	if in == nil {
		return nil
	}
	out := &OrderBook{Symbol: in.Symbol}
	if in.Bids != nil {
		out.Bids = make([]PriceLevel, len(in.Bids))
		copy(out.Bids, in.Bids)
	}
	if in.Asks != nil {
		out.Asks = make([]PriceLevel, len(in.Asks))
		copy(out.Asks, in.Asks)
	}
	return out
}
