package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"TradeQuorum/internal/domain/models"
	drepo "TradeQuorum/internal/domain/repository"
	domsvc "TradeQuorum/internal/domain/service"
	xlogger "TradeQuorum/pkg/logger"
)

// ClaimSource hands over externally delivered claims (e.g. Kafka
// intake) accumulated since the previous round. Implementations must
// only return claims stamped at or before the given cutoff.
type ClaimSource interface {
	Drain(cutoff time.Time) []models.Claim
}

// RoundControllerConfig carries the per-instance round policy.
type RoundControllerConfig struct {
	Universe     []string
	Profile      models.RiskProfile
	MaxPositions int
	AgentTimeout time.Duration
}

// RoundController drives one verify -> consensus -> decide pipeline
// round at a time. The agent registry is constructor-injected and
// scoped to this instance; there is no process-wide role map.
type RoundController struct {
	cfg       RoundControllerConfig
	agents    []domsvc.Agent
	verifier  *ClaimVerifier
	consensus *ConsensusBuilder
	decisions *DecisionGenerator
	market    drepo.MarketData
	facts     drepo.FactStore
	exec      drepo.Execution
	intake    ClaimSource
	metrics   drepo.Metrics
	log       *xlogger.Logger

	// mu serializes rounds; the cutoff cursor advances monotonically
	// under it, so two active rounds can never share a cutoff.
	mu         sync.Mutex
	lastCutoff time.Time
	lastReport *models.RoundReport
}

// NewRoundController wires the pipeline. facts, exec, intake and
// metrics may be nil; missing collaborators degrade per the round
// error policy.
func NewRoundController(
	cfg RoundControllerConfig,
	agents []domsvc.Agent,
	verifier *ClaimVerifier,
	consensus *ConsensusBuilder,
	decisions *DecisionGenerator,
	market drepo.MarketData,
	facts drepo.FactStore,
	exec drepo.Execution,
	intake ClaimSource,
	metrics drepo.Metrics,
	log *xlogger.Logger,
) *RoundController {
	if cfg.AgentTimeout <= 0 {
		cfg.AgentTimeout = 30 * time.Second
	}
	if cfg.MaxPositions <= 0 {
		cfg.MaxPositions = 5
	}
	if cfg.Profile == "" {
		cfg.Profile = models.RiskNeutral
	}
	return &RoundController{
		cfg:       cfg,
		agents:    agents,
		verifier:  verifier,
		consensus: consensus,
		decisions: decisions,
		market:    market,
		facts:     facts,
		exec:      exec,
		intake:    intake,
		metrics:   metrics,
		log:       log,
	}
}

// LastReport returns the most recently finished round, or nil.
func (rc *RoundController) LastReport() *models.RoundReport {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.lastReport
}

// RoundOverrides replaces parts of the configured risk policy for a
// single round. Zero values keep the configured defaults.
type RoundOverrides struct {
	Profile      models.RiskProfile
	MaxPositions int
}

// RunRound executes one full round under the configured policy and
// returns its report. The report is returned even for aborted rounds;
// the error mirrors the abort reason for callers that only care about
// success.
func (rc *RoundController) RunRound(ctx context.Context) (*models.RoundReport, error) {
	return rc.RunRoundWith(ctx, RoundOverrides{})
}

// RunRoundWith executes one full round with per-round overrides.
func (rc *RoundController) RunRoundWith(ctx context.Context, ov RoundOverrides) (*models.RoundReport, error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	profile := rc.cfg.Profile
	if ov.Profile != "" {
		profile = ov.Profile
	}
	maxPositions := rc.cfg.MaxPositions
	if ov.MaxPositions > 0 {
		maxPositions = ov.MaxPositions
	}

	cutoff := time.Now().UTC()
	if !cutoff.After(rc.lastCutoff) {
		cutoff = rc.lastCutoff.Add(time.Second)
	}
	rc.lastCutoff = cutoff

	report := &models.RoundReport{
		ID:          uuid.NewString(),
		Cutoff:      cutoff,
		Profile:     profile,
		State:       models.RoundIdle,
		AgentErrors: make(map[string][]string),
		StartedAt:   time.Now().UTC(),
	}
	rc.lastReport = report

	err := rc.run(ctx, report, maxPositions)
	report.EndedAt = time.Now().UTC()
	rc.settle(ctx, report)
	return report, err
}

func (rc *RoundController) run(ctx context.Context, report *models.RoundReport, maxPositions int) error {
	start := time.Now()

	rc.advance(report, models.RoundCollecting)
	if err := rc.startRound(ctx, report); err != nil {
		return rc.abort(report, fmt.Sprintf("fact store unreachable: %v", err))
	}
	stats := rc.collectStats(ctx, report)

	rc.advance(report, models.RoundClaimGeneration)
	report.Claims = rc.generateClaims(ctx, report, stats)
	if rc.intake != nil {
		report.Claims = append(report.Claims, rc.intake.Drain(report.Cutoff)...)
	}
	rc.storeClaims(ctx, report)

	rc.advance(report, models.RoundVerification)
	report.Verification = rc.verifier.Verify(ctx, report.Claims, report.Cutoff)

	rc.advance(report, models.RoundConsensus)
	report.Consensus = rc.consensus.Build(report.Verification.Verified, stats, maxPositions)
	report.RiskAdjusted = rc.consensus.ApplyRiskAdjustments(report.Consensus, report.Profile)
	report.Conflicts = rc.consensus.DetectConflicts(report.Verification.Verified)
	rc.storeConsensus(ctx, report)

	rc.advance(report, models.RoundDecision)
	// Decisions consume the multiplicative base ranking; the additive
	// re-weighting stays a separate, named output on the report.
	report.Decisions = rc.decisions.Generate(report.Consensus, report.Profile, maxPositions)

	rc.advance(report, models.RoundExecution)
	if rc.exec != nil && report.Decisions != nil {
		if err := rc.exec.Submit(ctx, report.ID, report.Decisions); err != nil {
			// Past the abort boundary: the round is committed, the
			// failure is recorded and the round still settles.
			report.AgentErrors["execution"] = append(report.AgentErrors["execution"], err.Error())
			if rc.log != nil {
				rc.log.Error("execution handoff failed", xlogger.String("round", report.ID), xlogger.Error(err))
			}
			if rc.metrics != nil {
				rc.metrics.RecordError("execution")
			}
		}
	}

	rc.advance(report, models.RoundSettled)
	if rc.metrics != nil {
		rc.metrics.RecordLatency("round", time.Since(start).Seconds())
	}
	return nil
}

// generateClaims fans out all registered agents concurrently. Agents
// share no mutable state; a failing agent contributes zero claims and
// an error entry for its role, never aborting siblings.
func (rc *RoundController) generateClaims(ctx context.Context, report *models.RoundReport, stats map[string]models.MarketStats) []models.Claim {
	actx := domsvc.AgentContext{
		RoundID:     report.ID,
		Cutoff:      report.Cutoff,
		Universe:    rc.cfg.Universe,
		MarketStats: stats,
		RiskProfile: report.Profile,
	}

	type item struct {
		role   models.AgentRole
		result domsvc.AgentResult
		err    error
	}
	ch := make(chan item, len(rc.agents))
	var wg sync.WaitGroup

	runCtx, cancel := context.WithTimeout(ctx, rc.cfg.AgentTimeout)
	defer cancel()

	for _, ag := range rc.agents {
		wg.Add(1)
		go func(ag domsvc.Agent) {
			defer wg.Done()
			res, err := ag.Run(runCtx, actx)
			ch <- item{role: ag.Role(), result: res, err: err}
		}(ag)
	}
	go func() { wg.Wait(); close(ch) }()

	var claims []models.Claim
	for it := range ch {
		role := string(it.role)
		if it.err != nil {
			report.AgentErrors[role] = append(report.AgentErrors[role], it.err.Error())
			if rc.metrics != nil {
				rc.metrics.RecordError("agent_" + role)
			}
			if rc.log != nil {
				rc.log.Warn("agent failed", xlogger.String("role", role), xlogger.Error(it.err))
			}
			continue
		}
		claims = append(claims, it.result.Claims...)
		report.AgentErrors[role] = append(report.AgentErrors[role], it.result.Errors...)
	}
	for role, errs := range report.AgentErrors {
		if len(errs) == 0 {
			delete(report.AgentErrors, role)
		}
	}
	return claims
}

// collectStats materializes market stats for the universe before any
// stage runs; no stage blocks on network I/O afterwards.
func (rc *RoundController) collectStats(ctx context.Context, report *models.RoundReport) map[string]models.MarketStats {
	stats := make(map[string]models.MarketStats, len(rc.cfg.Universe))
	if rc.market == nil {
		return stats
	}
	for _, ticker := range rc.cfg.Universe {
		ms, ok, err := rc.market.GetMarketStats(ctx, ticker)
		if err != nil {
			if rc.log != nil {
				rc.log.Warn("market stats unavailable", xlogger.String("ticker", ticker), xlogger.Error(err))
			}
			continue
		}
		if ok {
			stats[ticker] = ms
		}
	}
	return stats
}

// startRound opens the audit trail. The store being down is only a
// round-level hard failure when it cannot be reached at all.
func (rc *RoundController) startRound(ctx context.Context, report *models.RoundReport) error {
	if rc.facts == nil {
		return nil
	}
	if err := rc.facts.StartRound(ctx, report.ID, report.Cutoff); err != nil {
		if herr := rc.facts.Health(ctx); herr != nil {
			return herr
		}
		if rc.log != nil {
			rc.log.Warn("start round not recorded", xlogger.String("round", report.ID), xlogger.Error(err))
		}
	}
	return nil
}

func (rc *RoundController) storeClaims(ctx context.Context, report *models.RoundReport) {
	if rc.facts == nil || len(report.Claims) == 0 {
		return
	}
	if err := rc.facts.StoreClaims(ctx, report.ID, report.Claims); err != nil {
		if rc.log != nil {
			rc.log.Warn("claims not recorded", xlogger.String("round", report.ID), xlogger.Error(err))
		}
		if rc.metrics != nil {
			rc.metrics.RecordError("fact_store")
		}
	}
}

func (rc *RoundController) storeConsensus(ctx context.Context, report *models.RoundReport) {
	if rc.facts == nil || len(report.Consensus) == 0 {
		return
	}
	if err := rc.facts.StoreConsensus(ctx, report.ID, report.Consensus); err != nil {
		if rc.log != nil {
			rc.log.Warn("consensus not recorded", xlogger.String("round", report.ID), xlogger.Error(err))
		}
		if rc.metrics != nil {
			rc.metrics.RecordError("fact_store")
		}
	}
}

// settle closes the audit trail for both settled and aborted rounds.
func (rc *RoundController) settle(ctx context.Context, report *models.RoundReport) {
	if rc.facts == nil {
		return
	}
	orders := 0
	if report.Decisions != nil {
		if err := rc.facts.StoreResults(ctx, report.ID, report.Decisions); err != nil && rc.log != nil {
			rc.log.Warn("results not recorded", xlogger.String("round", report.ID), xlogger.Error(err))
		}
		for _, d := range report.Decisions.Decisions {
			if d.Action != models.ActionHold {
				orders++
			}
		}
	}
	if err := rc.facts.EndRound(ctx, report.ID, report.State, len(report.Claims), orders, 0); err != nil && rc.log != nil {
		rc.log.Warn("end round not recorded", xlogger.String("round", report.ID), xlogger.Error(err))
	}
}

func (rc *RoundController) advance(report *models.RoundReport, to models.RoundState) {
	if !models.CanAdvance(report.State, to) {
		// Linear pipeline; an illegal transition is a programmer error.
		panic(fmt.Sprintf("illegal round transition %s -> %s", report.State, to))
	}
	report.State = to
	if rc.log != nil {
		rc.log.Debug("round state", xlogger.String("round", report.ID), xlogger.String("state", string(to)))
	}
}

func (rc *RoundController) abort(report *models.RoundReport, reason string) error {
	if !models.CanAdvance(report.State, models.RoundAborted) {
		return fmt.Errorf("round %s already committed, cannot abort", report.ID)
	}
	report.State = models.RoundAborted
	report.AbortReason = reason
	if rc.log != nil {
		rc.log.Error("round aborted", xlogger.String("round", report.ID), xlogger.String("reason", reason))
	}
	if rc.metrics != nil {
		rc.metrics.RecordError("round_aborted")
	}
	return fmt.Errorf("round aborted: %s", reason)
}
