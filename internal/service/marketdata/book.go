package marketdata

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"TradeQuorum/internal/domain/models"
	drepo "TradeQuorum/internal/domain/repository"
	icache "TradeQuorum/internal/service/cache"
)

// StatsBook folds raw ticks into per-symbol rolling stats: trailing
// quote volume and the latest bid/ask spread. It is the in-process
// MarketData source; snapshots are written through to a shared cache
// so restarts and sibling processes can still answer.
type StatsBook struct {
	mu         sync.RWMutex
	window     time.Duration
	staleAfter time.Duration
	books      map[string]*symbolBook

	cache      icache.BytesCache
	cacheTTL   time.Duration
	flushEvery time.Duration

	now func() time.Time
}

type volPoint struct {
	ts    int64 // unix seconds
	quote float64
}

type symbolBook struct {
	points    []volPoint
	volume    float64 // running sum over points
	lastPrice float64
	bid, ask  float64
	updatedAt time.Time
	flushedAt time.Time
}

type BookOption func(*StatsBook)

// WithCache enables snapshot write-through.
func WithCache(c icache.BytesCache, ttl time.Duration) BookOption {
	return func(b *StatsBook) {
		b.cache = c
		if ttl > 0 {
			b.cacheTTL = ttl
		}
	}
}

// WithWindow overrides the trailing volume window.
func WithWindow(w time.Duration) BookOption {
	return func(b *StatsBook) {
		if w > 0 {
			b.window = w
		}
	}
}

// NewStatsBook creates an empty book with a 24h volume window.
func NewStatsBook(opts ...BookOption) *StatsBook {
	b := &StatsBook{
		window:     24 * time.Hour,
		staleAfter: 5 * time.Minute,
		books:      make(map[string]*symbolBook),
		cacheTTL:   10 * time.Minute,
		flushEvery: 5 * time.Second,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Apply folds one tick into the book.
func (b *StatsBook) Apply(ctx context.Context, t *models.Tick) error {
	if t == nil || t.Symbol == "" {
		return nil
	}
	now := b.now()

	b.mu.Lock()
	sb, ok := b.books[t.Symbol]
	if !ok {
		sb = &symbolBook{}
		b.books[t.Symbol] = sb
	}
	quote := t.Price * t.Volume
	sb.points = append(sb.points, volPoint{ts: t.Timestamp, quote: quote})
	sb.volume += quote
	sb.lastPrice = t.Price
	if t.Bid > 0 {
		sb.bid = t.Bid
	}
	if t.Ask > 0 {
		sb.ask = t.Ask
	}
	sb.updatedAt = now
	b.prune(sb, now)

	flush := b.cache != nil && now.Sub(sb.flushedAt) >= b.flushEvery
	if flush {
		sb.flushedAt = now
	}
	snap := b.snapshotLocked(t.Symbol, sb)
	b.mu.Unlock()

	if flush {
		if raw, err := json.Marshal(snap); err == nil {
			_ = b.cache.SetBytes(statsKey(t.Symbol), raw, b.cacheTTL)
		}
	}
	return nil
}

// GetMarketStats answers from the live book when fresh, falling back
// to the shared cache. The bool is false when the ticker is unknown;
// that is a drop condition for consensus, not an error.
func (b *StatsBook) GetMarketStats(ctx context.Context, ticker string) (models.MarketStats, bool, error) {
	now := b.now()

	b.mu.RLock()
	sb, ok := b.books[ticker]
	if ok && now.Sub(sb.updatedAt) <= b.staleAfter {
		snap := b.snapshotLocked(ticker, sb)
		b.mu.RUnlock()
		return snap, true, nil
	}
	b.mu.RUnlock()

	if b.cache != nil {
		raw, hit, err := b.cache.GetBytes(statsKey(ticker))
		if err != nil {
			return models.MarketStats{}, false, err
		}
		if hit {
			var snap models.MarketStats
			if err := json.Unmarshal(raw, &snap); err == nil {
				return snap, true, nil
			}
		}
	}
	return models.MarketStats{}, false, nil
}

// snapshotLocked assumes at least a read lock is held.
func (b *StatsBook) snapshotLocked(symbol string, sb *symbolBook) models.MarketStats {
	return models.MarketStats{
		Symbol:    symbol,
		Volume24h: sb.volume,
		Spread:    spreadPercent(sb.bid, sb.ask),
		LastPrice: sb.lastPrice,
		UpdatedAt: sb.updatedAt,
	}
}

// prune drops points that fell out of the window, keeping the running
// sum consistent.
func (b *StatsBook) prune(sb *symbolBook, now time.Time) {
	horizon := now.Add(-b.window).Unix()
	i := 0
	for ; i < len(sb.points) && sb.points[i].ts < horizon; i++ {
		sb.volume -= sb.points[i].quote
	}
	if i > 0 {
		sb.points = sb.points[i:]
		if sb.volume < 0 {
			sb.volume = 0
		}
	}
}

func spreadPercent(bid, ask float64) float64 {
	if bid <= 0 || ask <= 0 || ask < bid {
		return 0
	}
	mid := (bid + ask) / 2
	if mid == 0 {
		return 0
	}
	return (ask - bid) / mid * 100
}

func statsKey(symbol string) string { return "marketstats:" + symbol }

var _ drepo.MarketData = (*StatsBook)(nil)
