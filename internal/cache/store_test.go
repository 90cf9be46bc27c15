package cache

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JohnCCarter/crypto-bot-dashboard-nexus-sub001/internal/model"
)

func TestStore_WriteAndRead(t *testing.T) {
	s := NewStore()
	now := time.Now()

	tick := &model.Ticker{Symbol: "BTC/USD", LastPrice: decimal.NewFromInt(100)}
	if !s.Write(model.KeyTicker, tick, now, model.SourcePull) {
		t.Fatal("first write should be applied")
	}

	e := s.Read(model.KeyTicker)
	if e.Source != model.SourcePull {
		t.Errorf("Source = %q, want %q", e.Source, model.SourcePull)
	}
	if !e.UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt = %v, want %v", e.UpdatedAt, now)
	}
	got, ok := e.Value.(*model.Ticker)
	if !ok {
		t.Fatalf("Value has type %T, want *model.Ticker", e.Value)
	}
	if !got.LastPrice.Equal(decimal.NewFromInt(100)) {
		t.Errorf("LastPrice = %s, want 100", got.LastPrice)
	}
}

func TestStore_MonotonicityGuard(t *testing.T) {
	s := NewStore()
	base := time.Now()

	newer := &model.Ticker{Symbol: "BTC/USD", LastPrice: decimal.NewFromInt(100)}
	if !s.Write(model.KeyTicker, newer, base.Add(500*time.Millisecond), model.SourcePush) {
		t.Fatal("push write should be applied")
	}

	// A pull result observed before the push event must be discarded.
	older := &model.Ticker{Symbol: "BTC/USD", LastPrice: decimal.NewFromInt(99)}
	if s.Write(model.KeyTicker, older, base.Add(400*time.Millisecond), model.SourcePull) {
		t.Fatal("strictly older write should be rejected")
	}

	e := s.Read(model.KeyTicker)
	if e.Source != model.SourcePush {
		t.Errorf("Source = %q, want %q (rejected write must not change entry)", e.Source, model.SourcePush)
	}
	if price := e.Value.(*model.Ticker).LastPrice; !price.Equal(decimal.NewFromInt(100)) {
		t.Errorf("LastPrice = %s, want 100 (rejected write must not change entry)", price)
	}

	stats := s.Stats()
	if stats.Applied != 1 {
		t.Errorf("Stats().Applied = %d, want 1", stats.Applied)
	}
	if stats.Rejected != 1 {
		t.Errorf("Stats().Rejected = %d, want 1", stats.Rejected)
	}
}

func TestStore_EqualTimestampAccepted(t *testing.T) {
	s := NewStore()
	now := time.Now()

	s.Write(model.KeyTicker, &model.Ticker{Symbol: "BTC/USD"}, now, model.SourcePush)
	if !s.Write(model.KeyTicker, &model.Ticker{Symbol: "BTC/USD"}, now, model.SourcePull) {
		t.Fatal("equal-timestamp write should be applied")
	}

	if got := s.Read(model.KeyTicker).Source; got != model.SourcePull {
		t.Errorf("Source = %q, want %q after equal-timestamp write", got, model.SourcePull)
	}
}

func TestStore_UnwrittenKey(t *testing.T) {
	s := NewStore()

	e := s.Read(model.KeyOrders)
	if e.Value != nil {
		t.Errorf("Value = %v, want nil for unwritten key", e.Value)
	}
	if e.Source != model.SourceNone {
		t.Errorf("Source = %q, want %q", e.Source, model.SourceNone)
	}
	if !e.UpdatedAt.IsZero() {
		t.Errorf("UpdatedAt = %v, want zero", e.UpdatedAt)
	}
	if !s.UpdatedAt(model.KeyOrders).IsZero() {
		t.Error("UpdatedAt() for unwritten key should be zero")
	}
}

func TestStore_IndependentKeys(t *testing.T) {
	s := NewStore()
	base := time.Now()

	s.Write(model.KeyTicker, &model.Ticker{}, base.Add(time.Second), model.SourcePush)

	// An older timestamp on a different key is unrelated to ticker's clock.
	if !s.Write(model.KeyBalances, []model.Balance{}, base, model.SourcePull) {
		t.Fatal("write to a different key should not be gated by ticker's timestamp")
	}
}
