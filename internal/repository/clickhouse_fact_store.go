package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"TradeQuorum/internal/domain/models"
	"TradeQuorum/internal/domain/repository"
	xlogger "TradeQuorum/pkg/logger"
)

// Schema statements for the fact store tables. Append-only per round:
// the store keeps every event, status rows supersede by ended_at.
var FactStoreSchema = []string{
	"CREATE DATABASE IF NOT EXISTS tradequorum",
	"CREATE TABLE IF NOT EXISTS tradequorum.rounds (round_id String, cutoff DateTime, started_at DateTime) ENGINE=MergeTree ORDER BY (round_id)",
	"CREATE TABLE IF NOT EXISTS tradequorum.round_status (round_id String, status String, claims_count UInt32, orders_count UInt32, total_pnl Float64, ended_at DateTime) ENGINE=MergeTree ORDER BY (round_id, ended_at)",
	"CREATE TABLE IF NOT EXISTS tradequorum.claims (round_id String, claim_id String, ticker String, role String, claim String, confidence Float64, ts DateTime, risk_flags Array(String), evidence String) ENGINE=MergeTree ORDER BY (round_id, claim_id)",
	"CREATE TABLE IF NOT EXISTS tradequorum.consensus (round_id String, ticker String, avg_confidence Float64, coverage Float64, liquidity Float64, final_score Float64, claim_ids Array(String)) ENGINE=MergeTree ORDER BY (round_id, ticker)",
	"CREATE TABLE IF NOT EXISTS tradequorum.decisions (round_id String, ticker String, action String, confidence Float64, score Float64, position_size Float64, stop_loss Float64, take_profit Float64, rationale String) ENGINE=MergeTree ORDER BY (round_id, ticker)",
}

// ClickHouseFactStore implements FactStore over ClickHouse.
type ClickHouseFactStore struct {
	db  *sql.DB
	log *xlogger.Logger
}

// NewClickHouseFactStore creates the ClickHouse-backed fact store.
func NewClickHouseFactStore(db *sql.DB) repository.FactStore {
	return &ClickHouseFactStore{db: db}
}

// SetLogger attaches an optional logger for slow-path diagnostics.
func (s *ClickHouseFactStore) SetLogger(l *xlogger.Logger) { s.log = l }

func (s *ClickHouseFactStore) StartRound(ctx context.Context, id string, cutoff time.Time) error {
	q := "INSERT INTO tradequorum.rounds (round_id, cutoff, started_at) VALUES (?, ?, ?)"
	_, err := s.db.ExecContext(ctx, q, id, cutoff, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("start round: %w", err)
	}
	return nil
}

func (s *ClickHouseFactStore) EndRound(ctx context.Context, id string, status models.RoundState, claims, orders int, totalPnL float64) error {
	q := "INSERT INTO tradequorum.round_status (round_id, status, claims_count, orders_count, total_pnl, ended_at) VALUES (?, ?, ?, ?, ?, ?)"
	_, err := s.db.ExecContext(ctx, q, id, string(status), uint32(claims), uint32(orders), totalPnL, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("end round: %w", err)
	}
	return nil
}

func (s *ClickHouseFactStore) StoreClaims(ctx context.Context, roundID string, claims []models.Claim) error {
	if len(claims) == 0 {
		return nil
	}
	values := make([]string, 0, len(claims))
	args := make([]interface{}, 0, len(claims)*9)
	for _, c := range claims {
		ev, err := json.Marshal(c.Evidence)
		if err != nil {
			ev = []byte("[]")
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args, roundID, c.ID, c.Ticker, string(c.Role), c.Claim, c.Confidence, c.Timestamp, c.RiskFlags, string(ev))
	}
	q := "INSERT INTO tradequorum.claims (round_id, claim_id, ticker, role, claim, confidence, ts, risk_flags, evidence) VALUES " + strings.Join(values, ",")
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("store claims: %w", err)
	}
	return nil
}

func (s *ClickHouseFactStore) StoreConsensus(ctx context.Context, roundID string, recs []models.ConsensusRec) error {
	if len(recs) == 0 {
		return nil
	}
	values := make([]string, 0, len(recs))
	args := make([]interface{}, 0, len(recs)*7)
	for _, r := range recs {
		values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
		args = append(args, roundID, r.Ticker, r.AvgConfidence, r.Coverage, r.Liquidity, r.FinalScore, r.ClaimIDs)
	}
	q := "INSERT INTO tradequorum.consensus (round_id, ticker, avg_confidence, coverage, liquidity, final_score, claim_ids) VALUES " + strings.Join(values, ",")
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("store consensus: %w", err)
	}
	return nil
}

func (s *ClickHouseFactStore) StoreResults(ctx context.Context, roundID string, set *models.DecisionSet) error {
	if set == nil || len(set.Decisions) == 0 {
		return nil
	}
	values := make([]string, 0, len(set.Decisions))
	args := make([]interface{}, 0, len(set.Decisions)*9)
	for _, d := range set.Decisions {
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args, roundID, d.Ticker, string(d.Action), d.Confidence, d.Score, d.PositionSize, d.StopLoss, d.TakeProfit, d.Rationale)
	}
	q := "INSERT INTO tradequorum.decisions (round_id, ticker, action, confidence, score, position_size, stop_loss, take_profit, rationale) VALUES " + strings.Join(values, ",")
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("store results: %w", err)
	}
	return nil
}

// GetRound returns the round summary (id, cutoff, lifecycle). Claim
// and decision rows stay queryable by round_id; the live report is
// served from the controller's memory.
func (s *ClickHouseFactStore) GetRound(ctx context.Context, id string) (*models.RoundReport, error) {
	report := &models.RoundReport{ID: id}

	q := "SELECT cutoff, started_at FROM tradequorum.rounds WHERE round_id = ? LIMIT 1"
	if err := s.db.QueryRowContext(ctx, q, id).Scan(&report.Cutoff, &report.StartedAt); err != nil {
		return nil, fmt.Errorf("get round: %w", err)
	}

	var status string
	q = "SELECT status, ended_at FROM tradequorum.round_status WHERE round_id = ? ORDER BY ended_at DESC LIMIT 1"
	err := s.db.QueryRowContext(ctx, q, id).Scan(&status, &report.EndedAt)
	switch {
	case err == sql.ErrNoRows:
		report.State = models.RoundCollecting // started, not yet settled
	case err != nil:
		return nil, fmt.Errorf("get round status: %w", err)
	default:
		report.State = models.RoundState(status)
	}
	return report, nil
}

func (s *ClickHouseFactStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseFactStore) Close() error {
	return nil // connection pool managed by pkg/clickhouse
}
