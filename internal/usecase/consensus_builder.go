package usecase

import (
	"math"
	"sort"
	"strings"

	"TradeQuorum/internal/domain/models"
	xlogger "TradeQuorum/pkg/logger"
)

// Liquidity blend constants. Volume saturates at 1M quote volume;
// spread is taken as a percentage penalty.
const (
	liquidityVolumeWeight = 0.7
	liquiditySpreadWeight = 0.3
	liquidityVolumeScale  = 1_000_000
)

// ConsensusBuilder aggregates verified claims into per-ticker scored
// recommendations. The base score is multiplicative on purpose: any
// single near-zero factor (no agreement, illiquid market, low
// confidence) collapses the whole score instead of being averaged
// away.
type ConsensusBuilder struct {
	log *xlogger.Logger
}

func NewConsensusBuilder(log *xlogger.Logger) *ConsensusBuilder {
	return &ConsensusBuilder{log: log}
}

// Build groups verified claims by ticker, scores each group, and
// returns at most maxPositions records sorted by FinalScore
// descending. Tickers absent from stats cannot be scored and are
// dropped outright; that is a hard filter, not a violation.
func (b *ConsensusBuilder) Build(claims []models.Claim, stats map[string]models.MarketStats, maxPositions int) []models.ConsensusRec {
	groups := make(map[string][]models.Claim)
	for _, c := range claims {
		groups[c.Ticker] = append(groups[c.Ticker], c)
	}

	recs := make([]models.ConsensusRec, 0, len(groups))
	for ticker, group := range groups {
		ms, ok := stats[ticker]
		if !ok {
			if b.log != nil {
				b.log.Debug("ticker dropped, no market stats", xlogger.String("ticker", ticker))
			}
			continue
		}

		var confSum float64
		roles := make(map[models.AgentRole]struct{})
		ids := make([]string, 0, len(group))
		for _, c := range group {
			confSum += c.Confidence
			roles[c.Role] = struct{}{}
			ids = append(ids, c.ID)
		}
		sort.Strings(ids)

		avgConf := confSum / float64(len(group))
		coverage := float64(len(roles)) / float64(models.RoleCount)
		liq := Liquidity(ms)

		recs = append(recs, models.ConsensusRec{
			Ticker:        ticker,
			AvgConfidence: avgConf,
			Coverage:      coverage,
			Liquidity:     liq,
			FinalScore:    avgConf * coverage * liq,
			ClaimIDs:      ids,
		})
	}

	sortByScore(recs)
	if maxPositions > 0 && len(recs) > maxPositions {
		recs = recs[:maxPositions]
	}
	return recs
}

// Liquidity scores market depth into [0,1] from 24h volume and spread.
func Liquidity(ms models.MarketStats) float64 {
	vol := math.Min(ms.Volume24h/liquidityVolumeScale, 1)
	spread := math.Max(0, 1-ms.Spread/100)
	return liquidityVolumeWeight*vol + liquiditySpreadWeight*spread
}

// ApplyRiskAdjustments recomputes scores as an additive blend of
// confidence and liquidity weighted by profile, and re-sorts. This is
// a distinct output from the multiplicative base score and never
// overwrites the input slice.
func (b *ConsensusBuilder) ApplyRiskAdjustments(recs []models.ConsensusRec, profile models.RiskProfile) []models.ConsensusRec {
	p := paramsFor(profile)
	out := make([]models.ConsensusRec, len(recs))
	copy(out, recs)
	for i := range out {
		out[i].FinalScore = out[i].AvgConfidence*p.ConfWeight + out[i].Liquidity*p.LiqWeight
	}
	sortByScore(out)
	return out
}

var (
	bullishWords = []string{"buy", "bullish", "long", "upside", "accumulate"}
	bearishWords = []string{"sell", "bearish", "short", "downside", "exit"}
)

// DetectConflicts flags tickers holding both bullish- and
// bearish-keyword claims in the same batch. Severity is derived from
// the confidence gap between the two camps; the result is
// informational and never vetoes consensus.
func (b *ConsensusBuilder) DetectConflicts(claims []models.Claim) []models.Conflict {
	type camp struct {
		bullIDs, bearIDs []string
		bullSum, bearSum float64
		bullN, bearN     int
	}
	byTicker := make(map[string]*camp)
	order := make([]string, 0)

	for _, c := range claims {
		text := strings.ToLower(c.Claim)
		bull := containsAny(text, bullishWords)
		bear := containsAny(text, bearishWords)
		if !bull && !bear {
			continue
		}
		g, ok := byTicker[c.Ticker]
		if !ok {
			g = &camp{}
			byTicker[c.Ticker] = g
			order = append(order, c.Ticker)
		}
		if bull {
			g.bullIDs = append(g.bullIDs, c.ID)
			g.bullSum += c.Confidence
			g.bullN++
		}
		if bear {
			g.bearIDs = append(g.bearIDs, c.ID)
			g.bearSum += c.Confidence
			g.bearN++
		}
	}

	sort.Strings(order)
	var conflicts []models.Conflict
	for _, ticker := range order {
		g := byTicker[ticker]
		if g.bullN == 0 || g.bearN == 0 {
			continue
		}
		bullAvg := g.bullSum / float64(g.bullN)
		bearAvg := g.bearSum / float64(g.bearN)
		gap := math.Abs(bullAvg - bearAvg)
		conflicts = append(conflicts, models.Conflict{
			Ticker:         ticker,
			BullishClaims:  g.bullIDs,
			BearishClaims:  g.bearIDs,
			BullConfidence: bullAvg,
			BearConfidence: bearAvg,
			Gap:            gap,
			Severity:       conflictSeverity(gap),
		})
	}
	return conflicts
}

// conflictSeverity grades a disagreement: the closer the confidence of
// the two sides, the harder the conflict is to dismiss.
func conflictSeverity(gap float64) models.ConflictSeverity {
	switch {
	case gap < 0.2:
		return models.ConflictHigh
	case gap < 0.4:
		return models.ConflictMedium
	default:
		return models.ConflictLow
	}
}

// sortByScore orders descending by FinalScore with ticker as a
// deterministic tie-break.
func sortByScore(recs []models.ConsensusRec) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].FinalScore != recs[j].FinalScore {
			return recs[i].FinalScore > recs[j].FinalScore
		}
		return recs[i].Ticker < recs[j].Ticker
	})
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
