package marketdata

import (
	"context"
	"testing"
	"time"

	"TradeQuorum/internal/domain/models"
)

func fixedBook(t0 time.Time, opts ...BookOption) *StatsBook {
	b := NewStatsBook(opts...)
	b.now = func() time.Time { return t0 }
	return b
}

func TestBookAccumulatesQuoteVolume(t *testing.T) {
	t0 := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	b := fixedBook(t0)

	_ = b.Apply(context.Background(), &models.Tick{Symbol: "BTC", Timestamp: t0.Unix(), Price: 100, Volume: 2, Bid: 99, Ask: 101})
	_ = b.Apply(context.Background(), &models.Tick{Symbol: "BTC", Timestamp: t0.Unix(), Price: 100, Volume: 3, Bid: 99, Ask: 101})

	ms, ok, err := b.GetMarketStats(context.Background(), "BTC")
	if err != nil || !ok {
		t.Fatalf("expected stats, ok=%v err=%v", ok, err)
	}
	if ms.Volume24h != 500 {
		t.Fatalf("volume = %v, want 500", ms.Volume24h)
	}
	if ms.LastPrice != 100 {
		t.Fatalf("last price = %v", ms.LastPrice)
	}
	// spread: (101-99)/100*100 = 2%
	if ms.Spread != 2 {
		t.Fatalf("spread = %v, want 2", ms.Spread)
	}
}

func TestBookPrunesOutsideWindow(t *testing.T) {
	t0 := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	b := fixedBook(t0, WithWindow(time.Hour))

	old := t0.Add(-2 * time.Hour)
	_ = b.Apply(context.Background(), &models.Tick{Symbol: "BTC", Timestamp: old.Unix(), Price: 100, Volume: 5, Bid: 99, Ask: 101})
	_ = b.Apply(context.Background(), &models.Tick{Symbol: "BTC", Timestamp: t0.Unix(), Price: 100, Volume: 1, Bid: 99, Ask: 101})

	ms, ok, _ := b.GetMarketStats(context.Background(), "BTC")
	if !ok {
		t.Fatalf("expected stats")
	}
	if ms.Volume24h != 100 {
		t.Fatalf("stale volume not pruned: %v", ms.Volume24h)
	}
}

func TestBookUnknownTicker(t *testing.T) {
	b := fixedBook(time.Now())
	_, ok, err := b.GetMarketStats(context.Background(), "NOPE")
	if err != nil || ok {
		t.Fatalf("unknown ticker must be a clean miss, ok=%v err=%v", ok, err)
	}
}
