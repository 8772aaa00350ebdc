package repository

import (
	"context"
	"time"

	"TradeQuorum/internal/domain/models"
)

// MarketData supplies the live stats a ticker needs before it can be
// scored. A ticker the adapter cannot answer for is dropped from
// consensus, it is not an error.
type MarketData interface {
	GetMarketStats(ctx context.Context, ticker string) (models.MarketStats, bool, error)
}

// MarketStream delivers raw ticks that the stats book folds into
// rolling volume and spread windows.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Tick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// FactStore is the append-only audit trail per round. The core calls
// it but does not own its durability; an unreachable store degrades a
// round, it never aborts one stage on its own.
type FactStore interface {
	StartRound(ctx context.Context, id string, cutoff time.Time) error
	EndRound(ctx context.Context, id string, status models.RoundState, claims, orders int, totalPnL float64) error
	StoreClaims(ctx context.Context, roundID string, claims []models.Claim) error
	StoreConsensus(ctx context.Context, roundID string, recs []models.ConsensusRec) error
	StoreResults(ctx context.Context, roundID string, set *models.DecisionSet) error
	GetRound(ctx context.Context, id string) (*models.RoundReport, error)
	Health(ctx context.Context) error
	Close() error
}

// Execution consumes the emitted decisions. Once Submit returns nil
// the round is committed for audit and cannot be rolled back here.
type Execution interface {
	Submit(ctx context.Context, roundID string, set *models.DecisionSet) error
	Close() error
}

// Metrics records operational counters for the pipeline.
type Metrics interface {
	RecordClaim(role string, accepted bool)
	RecordViolation(kind string, severity string)
	RecordDecision(action string)
	RecordLatency(op string, seconds float64)
	RecordError(kind string)
}
