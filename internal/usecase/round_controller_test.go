package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"TradeQuorum/internal/domain/models"
	domsvc "TradeQuorum/internal/domain/service"
)

type stubAgent struct {
	role   models.AgentRole
	claims []models.Claim
	errs   []string
	fail   error
}

func (a stubAgent) Role() models.AgentRole { return a.role }

func (a stubAgent) Run(ctx context.Context, actx domsvc.AgentContext) (domsvc.AgentResult, error) {
	if a.fail != nil {
		return domsvc.AgentResult{}, a.fail
	}
	return domsvc.AgentResult{Claims: a.claims, Errors: a.errs}, nil
}

type stubMarket struct {
	stats map[string]models.MarketStats
}

func (m stubMarket) GetMarketStats(ctx context.Context, ticker string) (models.MarketStats, bool, error) {
	ms, ok := m.stats[ticker]
	return ms, ok, nil
}

type stubFacts struct {
	healthy   bool
	startFail bool
	started   int
	ended     int
	claims    int
	status    models.RoundState
}

func (f *stubFacts) StartRound(ctx context.Context, id string, cutoff time.Time) error {
	if f.startFail {
		return fmt.Errorf("store down")
	}
	f.started++
	return nil
}

func (f *stubFacts) EndRound(ctx context.Context, id string, status models.RoundState, claims, orders int, totalPnL float64) error {
	f.ended++
	f.status = status
	return nil
}

func (f *stubFacts) StoreClaims(ctx context.Context, roundID string, claims []models.Claim) error {
	f.claims += len(claims)
	return nil
}

func (f *stubFacts) StoreConsensus(ctx context.Context, roundID string, recs []models.ConsensusRec) error {
	return nil
}

func (f *stubFacts) StoreResults(ctx context.Context, roundID string, set *models.DecisionSet) error {
	return nil
}

func (f *stubFacts) GetRound(ctx context.Context, id string) (*models.RoundReport, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *stubFacts) Health(ctx context.Context) error {
	if !f.healthy {
		return fmt.Errorf("unreachable")
	}
	return nil
}

func (f *stubFacts) Close() error { return nil }

type stubExec struct {
	submitted int
	fail      error
}

func (e *stubExec) Submit(ctx context.Context, roundID string, set *models.DecisionSet) error {
	if e.fail != nil {
		return e.fail
	}
	e.submitted++
	return nil
}

func (e *stubExec) Close() error { return nil }

func goodClaim(id, ticker string, role models.AgentRole, conf float64) models.Claim {
	return models.Claim{
		ID:         id,
		Ticker:     ticker,
		Role:       role,
		Claim:      "bullish structure holding",
		Confidence: conf,
		Timestamp:  time.Now().Add(-time.Hour),
	}
}

func newController(agents []domsvc.Agent, facts *stubFacts, exec *stubExec, stats map[string]models.MarketStats) *RoundController {
	return NewRoundController(
		RoundControllerConfig{Universe: []string{"BTC", "ETH"}, Profile: models.RiskNeutral, MaxPositions: 5},
		agents,
		NewClaimVerifier(DefaultVerifierConfig(), nil, nil, nil),
		NewConsensusBuilder(nil),
		NewDecisionGenerator(nil, nil),
		stubMarket{stats: stats},
		facts,
		exec,
		nil,
		nil,
		nil,
	)
}

func fullStats() map[string]models.MarketStats {
	return map[string]models.MarketStats{
		"BTC": statsWithLiquidity("BTC", 0.9),
		"ETH": statsWithLiquidity("ETH", 0.9),
	}
}

func TestRunRoundSettles(t *testing.T) {
	agents := []domsvc.Agent{
		stubAgent{role: models.RoleFundamental, claims: []models.Claim{goodClaim("c1", "BTC", models.RoleFundamental, 0.9)}},
		stubAgent{role: models.RoleSentiment, claims: []models.Claim{goodClaim("c2", "BTC", models.RoleSentiment, 0.8)}},
		stubAgent{role: models.RoleTechnical, claims: []models.Claim{goodClaim("c3", "BTC", models.RoleTechnical, 0.7)}},
	}
	facts := &stubFacts{healthy: true}
	exec := &stubExec{}

	report, err := newController(agents, facts, exec, fullStats()).RunRound(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.State != models.RoundSettled {
		t.Fatalf("expected SETTLED, got %s", report.State)
	}
	if len(report.Claims) != 3 || len(report.Consensus) != 1 {
		t.Fatalf("claims %d consensus %d", len(report.Claims), len(report.Consensus))
	}
	if report.Decisions == nil || len(report.Decisions.Decisions) != 1 {
		t.Fatalf("expected 1 decision, got %+v", report.Decisions)
	}
	if exec.submitted != 1 {
		t.Fatalf("expected handoff to execution")
	}
	if facts.started != 1 || facts.ended != 1 || facts.status != models.RoundSettled {
		t.Fatalf("audit trail incomplete: %+v", facts)
	}
}

func TestRunRoundIsolatesFailingAgent(t *testing.T) {
	agents := []domsvc.Agent{
		stubAgent{role: models.RoleFundamental, claims: []models.Claim{goodClaim("c1", "BTC", models.RoleFundamental, 0.9)}},
		stubAgent{role: models.RoleSentiment, fail: fmt.Errorf("model service 503")},
	}
	facts := &stubFacts{healthy: true}

	report, err := newController(agents, facts, &stubExec{}, fullStats()).RunRound(context.Background())
	if err != nil {
		t.Fatalf("one failing agent must not abort the round: %v", err)
	}
	if report.State != models.RoundSettled {
		t.Fatalf("expected SETTLED, got %s", report.State)
	}
	if len(report.AgentErrors["sentiment"]) != 1 {
		t.Fatalf("expected sentiment error entry, got %+v", report.AgentErrors)
	}
	if len(report.Claims) != 1 {
		t.Fatalf("expected surviving agent's claim, got %d", len(report.Claims))
	}
	// coverage drops with the missing role, denominator stays 3
	if len(report.Consensus) != 1 || report.Consensus[0].Coverage != 1.0/3.0 {
		t.Fatalf("expected coverage 1/3, got %+v", report.Consensus)
	}
}

func TestRunRoundAbortsWhenFactStoreUnreachable(t *testing.T) {
	agents := []domsvc.Agent{
		stubAgent{role: models.RoleFundamental, claims: []models.Claim{goodClaim("c1", "BTC", models.RoleFundamental, 0.9)}},
	}
	facts := &stubFacts{healthy: false, startFail: true}

	report, err := newController(agents, facts, &stubExec{}, fullStats()).RunRound(context.Background())
	if err == nil {
		t.Fatalf("expected abort error")
	}
	if report.State != models.RoundAborted {
		t.Fatalf("expected ABORTED, got %s", report.State)
	}
	if report.AbortReason == "" {
		t.Fatalf("abort reason must be recorded")
	}
}

func TestRunRoundDegradesWhenStartRoundFailsButStoreHealthy(t *testing.T) {
	agents := []domsvc.Agent{
		stubAgent{role: models.RoleFundamental, claims: []models.Claim{goodClaim("c1", "BTC", models.RoleFundamental, 0.9)}},
	}
	facts := &stubFacts{healthy: true, startFail: true}

	report, err := newController(agents, facts, &stubExec{}, fullStats()).RunRound(context.Background())
	if err != nil {
		t.Fatalf("healthy store with one failed write must degrade, got %v", err)
	}
	if report.State != models.RoundSettled {
		t.Fatalf("expected SETTLED, got %s", report.State)
	}
}

func TestRunRoundExecutionFailureStillSettles(t *testing.T) {
	agents := []domsvc.Agent{
		stubAgent{role: models.RoleFundamental, claims: []models.Claim{goodClaim("c1", "BTC", models.RoleFundamental, 0.9)}},
	}
	exec := &stubExec{fail: fmt.Errorf("broker down")}

	report, err := newController(agents, &stubFacts{healthy: true}, exec, fullStats()).RunRound(context.Background())
	if err != nil {
		t.Fatalf("execution failure is past the abort boundary: %v", err)
	}
	if report.State != models.RoundSettled {
		t.Fatalf("expected SETTLED, got %s", report.State)
	}
	if len(report.AgentErrors["execution"]) != 1 {
		t.Fatalf("expected execution error recorded, got %+v", report.AgentErrors)
	}
}

func TestRunRoundWithOverrides(t *testing.T) {
	agents := []domsvc.Agent{
		stubAgent{role: models.RoleFundamental, claims: []models.Claim{
			goodClaim("c1", "BTC", models.RoleFundamental, 0.8),
			goodClaim("c2", "ETH", models.RoleFundamental, 0.7),
		}},
	}
	rc := newController(agents, &stubFacts{healthy: true}, &stubExec{}, fullStats())

	report, err := rc.RunRoundWith(context.Background(), RoundOverrides{Profile: models.RiskBold, MaxPositions: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Profile != models.RiskBold {
		t.Fatalf("expected bold profile on the report, got %s", report.Profile)
	}
	if len(report.Consensus) != 1 || report.Consensus[0].Ticker != "BTC" {
		t.Fatalf("maxPositions override must truncate to the top ticker, got %+v", report.Consensus)
	}
	// score 0.8 * 1/3 * 0.81 = 0.216 buys under bold only
	if report.Decisions == nil || report.Decisions.Decisions[0].Action != models.ActionBuy {
		t.Fatalf("expected bold BUY, got %+v", report.Decisions)
	}

	second, err := rc.RunRoundWith(context.Background(), RoundOverrides{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Profile != models.RiskNeutral {
		t.Fatalf("zero overrides must keep the configured profile, got %s", second.Profile)
	}
	if second.Decisions.Decisions[0].Action != models.ActionHold {
		t.Fatalf("score 0.216 must hold under neutral, got %+v", second.Decisions.Decisions[0])
	}
}

func TestRunRoundCutoffMonotonic(t *testing.T) {
	rc := newController(nil, &stubFacts{healthy: true}, &stubExec{}, fullStats())

	first, _ := rc.RunRound(context.Background())
	second, _ := rc.RunRound(context.Background())
	if !second.Cutoff.After(first.Cutoff) {
		t.Fatalf("cutoff cursor must advance: %v then %v", first.Cutoff, second.Cutoff)
	}
}

func TestCanAdvanceRejectsAbortAfterExecution(t *testing.T) {
	if models.CanAdvance(models.RoundExecution, models.RoundAborted) {
		t.Fatalf("abort must be impossible once execution began")
	}
	if models.CanAdvance(models.RoundSettled, models.RoundAborted) {
		t.Fatalf("abort must be impossible after settle")
	}
	if !models.CanAdvance(models.RoundVerification, models.RoundAborted) {
		t.Fatalf("abort must be possible before execution")
	}
	if !models.CanAdvance(models.RoundIdle, models.RoundCollecting) {
		t.Fatalf("forward transition must be legal")
	}
	if models.CanAdvance(models.RoundIdle, models.RoundDecision) {
		t.Fatalf("skipping stages must be illegal")
	}
}
