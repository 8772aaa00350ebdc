package usecase

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"TradeQuorum/internal/domain/models"
)

// statsWithLiquidity builds MarketStats whose liquidity score equals
// the given value by picking a saturating volume and solving spread.
func statsWithLiquidity(symbol string, liq float64) models.MarketStats {
	// volume term saturates at 0.7, so spread must contribute liq-0.7
	// unless liq < 0.7; easier to scale both from the same fraction.
	// liquidity = 0.7*f + 0.3*f = f when volume=f*1e6 and spread=(1-f)*100.
	return models.MarketStats{
		Symbol:    symbol,
		Volume24h: liq * liquidityVolumeScale,
		Spread:    (1 - liq) * 100,
		UpdatedAt: time.Now(),
	}
}

func roleClaim(id, ticker string, role models.AgentRole, conf float64, text string) models.Claim {
	return models.Claim{ID: id, Ticker: ticker, Role: role, Claim: text, Confidence: conf}
}

func approx(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func TestBuildFullCoverageScenario(t *testing.T) {
	b := NewConsensusBuilder(nil)
	claims := []models.Claim{
		roleClaim("c1", "BTC", models.RoleFundamental, 0.9, "bullish on-chain growth"),
		roleClaim("c2", "BTC", models.RoleSentiment, 0.8, "bullish social momentum"),
		roleClaim("c3", "BTC", models.RoleTechnical, 0.7, "bullish breakout pattern"),
	}
	stats := map[string]models.MarketStats{"BTC": statsWithLiquidity("BTC", 0.6)}

	recs := b.Build(claims, stats, 10)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	rec := recs[0]
	approx(t, "avgConfidence", rec.AvgConfidence, 0.8)
	approx(t, "coverage", rec.Coverage, 1.0)
	approx(t, "liquidity", rec.Liquidity, 0.6)
	approx(t, "finalScore", rec.FinalScore, 0.48)
	if diff := cmp.Diff([]string{"c1", "c2", "c3"}, rec.ClaimIDs); diff != "" {
		t.Fatalf("claim ids (-want +got):\n%s", diff)
	}
}

func TestBuildCoverageDenominatorFixedAtThree(t *testing.T) {
	b := NewConsensusBuilder(nil)
	claims := []models.Claim{
		roleClaim("c1", "ETH", models.RoleTechnical, 0.9, "bullish trend continuation"),
	}
	stats := map[string]models.MarketStats{"ETH": statsWithLiquidity("ETH", 1.0)}

	recs := b.Build(claims, stats, 10)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record")
	}
	approx(t, "coverage", recs[0].Coverage, 1.0/3.0)
}

func TestBuildDropsTickerWithoutStats(t *testing.T) {
	b := NewConsensusBuilder(nil)
	claims := []models.Claim{
		roleClaim("c1", "BTC", models.RoleFundamental, 0.9, "bullish accumulation phase"),
		roleClaim("c2", "DOGE", models.RoleSentiment, 0.9, "bullish meme cycle"),
	}
	stats := map[string]models.MarketStats{"BTC": statsWithLiquidity("BTC", 0.8)}

	recs := b.Build(claims, stats, 10)
	if len(recs) != 1 || recs[0].Ticker != "BTC" {
		t.Fatalf("expected only BTC, got %+v", recs)
	}
}

func TestBuildSortedAndTruncated(t *testing.T) {
	b := NewConsensusBuilder(nil)
	var claims []models.Claim
	tickers := []string{"AAA", "BBB", "CCC", "DDD"}
	confs := []float64{0.5, 0.9, 0.7, 0.8}
	stats := make(map[string]models.MarketStats)
	for i, tk := range tickers {
		claims = append(claims, roleClaim("c"+tk, tk, models.RoleFundamental, confs[i], "bullish setup building"))
		stats[tk] = statsWithLiquidity(tk, 1.0)
	}

	recs := b.Build(claims, stats, 3)
	if len(recs) != 3 {
		t.Fatalf("expected truncation to 3, got %d", len(recs))
	}
	for i := 1; i < len(recs); i++ {
		if recs[i].FinalScore > recs[i-1].FinalScore {
			t.Fatalf("not sorted descending: %+v", recs)
		}
	}
	if recs[0].Ticker != "BBB" {
		t.Fatalf("expected BBB ranked first, got %s", recs[0].Ticker)
	}
}

func TestScoreMonotonicInEachFactor(t *testing.T) {
	base := models.ConsensusRec{AvgConfidence: 0.5, Coverage: 2.0 / 3.0, Liquidity: 0.5}
	score := func(c, cov, l float64) float64 { return c * cov * l }

	s0 := score(base.AvgConfidence, base.Coverage, base.Liquidity)
	if score(0.6, base.Coverage, base.Liquidity) <= s0 {
		t.Fatalf("score not increasing in confidence")
	}
	if score(base.AvgConfidence, 1.0, base.Liquidity) <= s0 {
		t.Fatalf("score not increasing in coverage")
	}
	if score(base.AvgConfidence, base.Coverage, 0.6) <= s0 {
		t.Fatalf("score not increasing in liquidity")
	}
}

func TestApplyRiskAdjustmentsDistinctOutput(t *testing.T) {
	b := NewConsensusBuilder(nil)
	recs := []models.ConsensusRec{
		{Ticker: "AAA", AvgConfidence: 0.9, Coverage: 1.0 / 3.0, Liquidity: 0.2, FinalScore: 0.9 * (1.0 / 3.0) * 0.2},
		{Ticker: "BBB", AvgConfidence: 0.5, Coverage: 1, Liquidity: 0.9, FinalScore: 0.5 * 0.9},
	}

	adj := b.ApplyRiskAdjustments(recs, models.RiskAverse)
	// averse blend: 0.6*conf + 0.4*liq
	approx(t, "AAA adjusted", adjScore(adj, "AAA"), 0.6*0.9+0.4*0.2)
	approx(t, "BBB adjusted", adjScore(adj, "BBB"), 0.6*0.5+0.4*0.9)

	// original slice untouched
	approx(t, "AAA base", recs[0].FinalScore, 0.9*(1.0/3.0)*0.2)
}

func adjScore(recs []models.ConsensusRec, ticker string) float64 {
	for _, r := range recs {
		if r.Ticker == ticker {
			return r.FinalScore
		}
	}
	return math.NaN()
}

func TestDetectConflictsHighSeverity(t *testing.T) {
	b := NewConsensusBuilder(nil)
	claims := []models.Claim{
		roleClaim("c1", "BTC", models.RoleSentiment, 0.90, "strongly bullish narrative"),
		roleClaim("c2", "BTC", models.RoleTechnical, 0.85, "bearish divergence forming"),
	}

	conflicts := b.DetectConflicts(claims)
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(conflicts))
	}
	c := conflicts[0]
	if c.Severity != models.ConflictHigh {
		t.Fatalf("gap 0.05 must be high severity, got %s", c.Severity)
	}
	approx(t, "gap", c.Gap, 0.05)
}

func TestDetectConflictsSeverityBands(t *testing.T) {
	b := NewConsensusBuilder(nil)
	cases := []struct {
		bull, bear float64
		want       models.ConflictSeverity
	}{
		{0.9, 0.85, models.ConflictHigh},
		{0.9, 0.6, models.ConflictMedium},
		{0.9, 0.3, models.ConflictLow},
	}
	for _, tc := range cases {
		claims := []models.Claim{
			roleClaim("c1", "XRP", models.RoleSentiment, tc.bull, "bullish reversal expected"),
			roleClaim("c2", "XRP", models.RoleTechnical, tc.bear, "bearish continuation likely"),
		}
		got := b.DetectConflicts(claims)
		if len(got) != 1 || got[0].Severity != tc.want {
			t.Fatalf("bull %.2f bear %.2f: expected %s, got %+v", tc.bull, tc.bear, tc.want, got)
		}
	}
}

func TestDetectConflictsNoneWithoutBothSides(t *testing.T) {
	b := NewConsensusBuilder(nil)
	claims := []models.Claim{
		roleClaim("c1", "BTC", models.RoleSentiment, 0.9, "bullish momentum intact"),
		roleClaim("c2", "BTC", models.RoleTechnical, 0.8, "bullish trend confirmed"),
	}
	if got := b.DetectConflicts(claims); len(got) != 0 {
		t.Fatalf("expected no conflict, got %+v", got)
	}
}
