package model

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestEndpointKey_Valid(t *testing.T) {
	tests := []struct {
		key  EndpointKey
		want bool
	}{
		{KeyTicker, true},
		{KeyOrderBook, true},
		{KeyTrades, true},
		{KeyBalances, true},
		{KeyOrders, true},
		{KeyBotStatus, true},
		{KeyLogs, true},
		{EndpointKey("candles"), false},
		{EndpointKey(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			if got := tt.key.Valid(); got != tt.want {
				t.Errorf("Valid(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestAllEndpoints_CoversValidSet(t *testing.T) {
	keys := AllEndpoints()
	if len(keys) != 7 {
		t.Fatalf("AllEndpoints() returned %d keys, want 7", len(keys))
	}
	seen := make(map[EndpointKey]struct{})
	for _, k := range keys {
		if !k.Valid() {
			t.Errorf("AllEndpoints() contains invalid key %q", k)
		}
		if _, dup := seen[k]; dup {
			t.Errorf("AllEndpoints() contains duplicate key %q", k)
		}
		seen[k] = struct{}{}
	}
}

func TestOrderBook_BestLevels(t *testing.T) {
	book := OrderBook{
		Symbol: "BTC/USD",
		Bids: []PriceLevel{
			{Price: decimal.NewFromInt(100), Size: decimal.NewFromInt(2)},
			{Price: decimal.NewFromInt(99), Size: decimal.NewFromInt(5)},
		},
		Asks: []PriceLevel{
			{Price: decimal.NewFromInt(101), Size: decimal.NewFromInt(1)},
		},
	}

	if got := book.BestBid().Price; !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("BestBid().Price = %s, want 100", got)
	}
	if got := book.BestAsk().Price; !got.Equal(decimal.NewFromInt(101)) {
		t.Errorf("BestAsk().Price = %s, want 101", got)
	}

	empty := OrderBook{}
	if !empty.BestBid().Price.IsZero() {
		t.Error("BestBid() on empty book should be zero level")
	}
	if !empty.BestAsk().Price.IsZero() {
		t.Error("BestAsk() on empty book should be zero level")
	}
}

func TestCopyBook_IsDeep(t *testing.T) {
	orig := &OrderBook{
		Symbol: "BTC/USD",
		Bids:   []PriceLevel{{Price: decimal.NewFromInt(100), Size: decimal.NewFromInt(1)}},
		Asks:   []PriceLevel{{Price: decimal.NewFromInt(101), Size: decimal.NewFromInt(1)}},
	}

	cp := CopyBook(orig)
	cp.Bids[0].Price = decimal.NewFromInt(999)

	if !orig.Bids[0].Price.Equal(decimal.NewFromInt(100)) {
		t.Errorf("mutating copy changed original bid price to %s", orig.Bids[0].Price)
	}
}

func TestSnapshot_MetaFor(t *testing.T) {
	s := Snapshot{
		Meta: map[EndpointKey]EntryMeta{
			KeyTicker: {Source: SourcePush},
		},
	}

	if got := s.MetaFor(KeyTicker).Source; got != SourcePush {
		t.Errorf("MetaFor(ticker).Source = %q, want %q", got, SourcePush)
	}
	if got := s.MetaFor(KeyOrders).Source; got != SourceNone {
		t.Errorf("MetaFor(orders).Source = %q, want %q", got, SourceNone)
	}
}
