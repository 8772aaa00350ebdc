package usecase

import (
	"fmt"
	"math"

	"TradeQuorum/internal/domain/models"
	drepo "TradeQuorum/internal/domain/repository"
	xlogger "TradeQuorum/pkg/logger"
)

// riskParams holds every profile-dependent constant in one place:
// action thresholds and sizing multiplier for decisions, blend weights
// for the additive consensus re-weighting.
type riskParams struct {
	BuyThreshold   float64
	SellThreshold  float64
	MinConfidence  float64
	RiskMultiplier float64
	ConfWeight     float64
	LiqWeight      float64
}

var riskProfiles = map[models.RiskProfile]riskParams{
	models.RiskAverse:  {BuyThreshold: 0.4, SellThreshold: -0.4, MinConfidence: 0.7, RiskMultiplier: 0.5, ConfWeight: 0.6, LiqWeight: 0.4},
	models.RiskNeutral: {BuyThreshold: 0.3, SellThreshold: -0.3, MinConfidence: 0.6, RiskMultiplier: 1.0, ConfWeight: 0.7, LiqWeight: 0.3},
	models.RiskBold:    {BuyThreshold: 0.2, SellThreshold: -0.2, MinConfidence: 0.5, RiskMultiplier: 1.5, ConfWeight: 0.8, LiqWeight: 0.2},
}

// paramsFor falls back to neutral for unknown profiles.
func paramsFor(profile models.RiskProfile) riskParams {
	if p, ok := riskProfiles[profile]; ok {
		return p
	}
	return riskProfiles[models.RiskNeutral]
}

// Fixed exit bands. Symmetric for BUY and SELL; the SELL direction is
// kept literal pending product clarification.
const (
	stopLossBand   = 0.05
	takeProfitBand = 0.15
)

// DecisionGenerator converts ranked consensus records into bounded,
// risk-profiled trading decisions.
type DecisionGenerator struct {
	metrics drepo.Metrics
	log     *xlogger.Logger
}

func NewDecisionGenerator(metrics drepo.Metrics, log *xlogger.Logger) *DecisionGenerator {
	return &DecisionGenerator{metrics: metrics, log: log}
}

// Generate walks consensus records in ranked order, capped at
// maxPositions, and emits one decision per record. Position sizes are
// capped per ticker; the running allocation sum is reported but not
// itself capped, bounding total exposure is the execution side's
// concern.
func (g *DecisionGenerator) Generate(recs []models.ConsensusRec, profile models.RiskProfile, maxPositions int) *models.DecisionSet {
	p := paramsFor(profile)
	set := &models.DecisionSet{Profile: profile}

	n := len(recs)
	if maxPositions > 0 && n > maxPositions {
		n = maxPositions
	}

	for _, rec := range recs[:n] {
		d := g.decide(rec, profile, p)
		set.Decisions = append(set.Decisions, d)
		set.PortfolioAllocation += d.PositionSize
		if g.metrics != nil {
			g.metrics.RecordDecision(string(d.Action))
		}
	}
	return set
}

func (g *DecisionGenerator) decide(rec models.ConsensusRec, profile models.RiskProfile, p riskParams) models.TradingDecision {
	action := models.ActionHold
	switch {
	case rec.FinalScore > p.BuyThreshold && rec.AvgConfidence >= p.MinConfidence:
		action = models.ActionBuy
	case rec.FinalScore < p.SellThreshold && rec.AvgConfidence >= p.MinConfidence:
		action = models.ActionSell
	}

	d := models.TradingDecision{
		Ticker:     rec.Ticker,
		Action:     action,
		Confidence: rec.AvgConfidence,
		Score:      rec.FinalScore,
		Rationale:  rationale(rec, action, profile),
	}
	if action != models.ActionHold {
		d.PositionSize = positionSize(rec, p)
		d.StopLoss = stopLossBand
		d.TakeProfit = takeProfitBand
	}
	return d
}

// positionSize scales the 20% cap by score magnitude, confidence,
// liquidity and the profile multiplier.
func positionSize(rec models.ConsensusRec, p riskParams) float64 {
	size := models.MaxPositionSize * math.Abs(rec.FinalScore) * rec.AvgConfidence * rec.Liquidity * p.RiskMultiplier
	return math.Min(models.MaxPositionSize, size)
}

// rationale renders the deterministic audit line for a decision. Same
// inputs must reproduce the same bytes.
func rationale(rec models.ConsensusRec, action models.Action, profile models.RiskProfile) string {
	return fmt.Sprintf("%s %s: score %.1f%%, confidence %.1f%%, coverage %.0f%%, liquidity %.1f%%, %s profile",
		action, rec.Ticker,
		rec.FinalScore*100, rec.AvgConfidence*100, rec.Coverage*100, rec.Liquidity*100,
		profile)
}
