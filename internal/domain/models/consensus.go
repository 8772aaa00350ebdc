package models

// ConsensusRec is the aggregated, scored recommendation for one ticker
// in one round. FinalScore is the multiplicative base score; a risk
// re-weighting pass produces a separate, additively blended score and
// never overwrites this one in place.
type ConsensusRec struct {
	Ticker        string
	AvgConfidence float64
	Coverage      float64 // |distinct roles| / RoleCount: 0, 1/3, 2/3 or 1
	Liquidity     float64 // [0,1]
	FinalScore    float64
	ClaimIDs      []string
}

// ConflictSeverity grades a directional disagreement by how close the
// two sides' confidence is.
type ConflictSeverity string

const (
	ConflictHigh   ConflictSeverity = "high"
	ConflictMedium ConflictSeverity = "medium"
	ConflictLow    ConflictSeverity = "low"
)

// Conflict flags a ticker holding both bullish and bearish claims in
// the same round. Informational only, never a veto on consensus.
type Conflict struct {
	Ticker         string
	BullishClaims  []string // claim ids
	BearishClaims  []string
	BullConfidence float64 // mean confidence of the bullish side
	BearConfidence float64
	Gap            float64
	Severity       ConflictSeverity
}
