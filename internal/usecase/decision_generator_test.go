package usecase

import (
	"math"
	"testing"

	"TradeQuorum/internal/domain/models"
)

func rec(ticker string, score, conf, liq float64) models.ConsensusRec {
	return models.ConsensusRec{
		Ticker:        ticker,
		AvgConfidence: conf,
		Coverage:      1,
		Liquidity:     liq,
		FinalScore:    score,
	}
}

func TestGenerateAverseBuyScenario(t *testing.T) {
	g := NewDecisionGenerator(nil, nil)
	set := g.Generate([]models.ConsensusRec{rec("BTC", 0.5, 0.8, 0.6)}, models.RiskAverse, 5)

	if len(set.Decisions) != 1 {
		t.Fatalf("expected 1 decision")
	}
	d := set.Decisions[0]
	if d.Action != models.ActionBuy {
		t.Fatalf("expected BUY, got %s", d.Action)
	}
	want := 0.20 * 0.5 * 0.8 * 0.6 * 0.5
	if math.Abs(d.PositionSize-want) > 1e-9 {
		t.Fatalf("position size = %v, want %v", d.PositionSize, want)
	}
	if math.Abs(set.PortfolioAllocation-want) > 1e-9 {
		t.Fatalf("allocation = %v, want %v", set.PortfolioAllocation, want)
	}
}

func TestGenerateHoldBelowThreshold(t *testing.T) {
	g := NewDecisionGenerator(nil, nil)
	// score clears the neutral buy threshold but confidence misses it
	set := g.Generate([]models.ConsensusRec{rec("ETH", 0.35, 0.55, 0.9)}, models.RiskNeutral, 5)

	d := set.Decisions[0]
	if d.Action != models.ActionHold {
		t.Fatalf("expected HOLD, got %s", d.Action)
	}
	if d.PositionSize != 0 || d.StopLoss != 0 || d.TakeProfit != 0 {
		t.Fatalf("HOLD must carry zero size and bands, got %+v", d)
	}
}

func TestGenerateSellUsesAbsoluteScore(t *testing.T) {
	g := NewDecisionGenerator(nil, nil)
	set := g.Generate([]models.ConsensusRec{rec("SOL", -0.5, 0.8, 0.6)}, models.RiskNeutral, 5)

	d := set.Decisions[0]
	if d.Action != models.ActionSell {
		t.Fatalf("expected SELL, got %s", d.Action)
	}
	want := 0.20 * 0.5 * 0.8 * 0.6 * 1.0
	if math.Abs(d.PositionSize-want) > 1e-9 {
		t.Fatalf("position size = %v, want %v", d.PositionSize, want)
	}
}

func TestGenerateThresholdsByProfile(t *testing.T) {
	g := NewDecisionGenerator(nil, nil)
	r := rec("BTC", 0.25, 0.75, 0.8)

	cases := []struct {
		profile models.RiskProfile
		want    models.Action
	}{
		{models.RiskAverse, models.ActionHold},  // 0.25 <= 0.4
		{models.RiskNeutral, models.ActionHold}, // 0.25 <= 0.3
		{models.RiskBold, models.ActionBuy},     // 0.25 > 0.2, conf 0.75 >= 0.5
	}
	for _, tc := range cases {
		set := g.Generate([]models.ConsensusRec{r}, tc.profile, 5)
		if got := set.Decisions[0].Action; got != tc.want {
			t.Fatalf("profile %s: expected %s, got %s", tc.profile, tc.want, got)
		}
	}
}

func TestGeneratePositionSizeCapped(t *testing.T) {
	g := NewDecisionGenerator(nil, nil)
	set := g.Generate([]models.ConsensusRec{rec("BTC", 1.0, 1.0, 1.0)}, models.RiskBold, 5)

	d := set.Decisions[0]
	if d.PositionSize > models.MaxPositionSize {
		t.Fatalf("position size %v exceeds cap", d.PositionSize)
	}
}

func TestGenerateSymmetricBands(t *testing.T) {
	g := NewDecisionGenerator(nil, nil)
	buy := g.Generate([]models.ConsensusRec{rec("BTC", 0.5, 0.8, 0.6)}, models.RiskNeutral, 5).Decisions[0]
	sell := g.Generate([]models.ConsensusRec{rec("BTC", -0.5, 0.8, 0.6)}, models.RiskNeutral, 5).Decisions[0]

	if buy.StopLoss != 0.05 || buy.TakeProfit != 0.15 {
		t.Fatalf("BUY bands %v/%v", buy.StopLoss, buy.TakeProfit)
	}
	if sell.StopLoss != buy.StopLoss || sell.TakeProfit != buy.TakeProfit {
		t.Fatalf("bands must stay symmetric, got %+v vs %+v", sell, buy)
	}
}

func TestGenerateRationaleReproducible(t *testing.T) {
	g := NewDecisionGenerator(nil, nil)
	r := models.ConsensusRec{Ticker: "BTC", AvgConfidence: 0.8, Coverage: 1, Liquidity: 0.6, FinalScore: 0.48}

	first := g.Generate([]models.ConsensusRec{r}, models.RiskNeutral, 5).Decisions[0].Rationale
	second := g.Generate([]models.ConsensusRec{r}, models.RiskNeutral, 5).Decisions[0].Rationale
	if first != second {
		t.Fatalf("rationale not reproducible: %q vs %q", first, second)
	}
	want := "BUY BTC: score 48.0%, confidence 80.0%, coverage 100%, liquidity 60.0%, neutral profile"
	if first != want {
		t.Fatalf("rationale = %q, want %q", first, want)
	}
}

func TestGenerateCappedAtMaxPositions(t *testing.T) {
	g := NewDecisionGenerator(nil, nil)
	recs := []models.ConsensusRec{
		rec("AAA", 0.9, 0.9, 0.9),
		rec("BBB", 0.8, 0.9, 0.9),
		rec("CCC", 0.7, 0.9, 0.9),
	}
	set := g.Generate(recs, models.RiskNeutral, 2)
	if len(set.Decisions) != 2 {
		t.Fatalf("expected 2 decisions, got %d", len(set.Decisions))
	}
}
