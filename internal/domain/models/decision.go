package models

// RiskProfile selects thresholds, blend weights and the sizing
// multiplier for a round.
type RiskProfile string

const (
	RiskAverse  RiskProfile = "averse"
	RiskNeutral RiskProfile = "neutral"
	RiskBold    RiskProfile = "bold"
)

// Action is the terminal call for one ticker.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// MaxPositionSize caps the per-ticker allocation at 20% of portfolio.
const MaxPositionSize = 0.20

// TradingDecision is the terminal artifact of a round for one ticker.
// Handed to the execution adapter; not owned by this core afterwards.
type TradingDecision struct {
	Ticker       string
	Action       Action
	Confidence   float64
	Score        float64
	Rationale    string
	PositionSize float64 // [0, MaxPositionSize]; 0 for HOLD
	StopLoss     float64 // fraction, 0 for HOLD
	TakeProfit   float64 // fraction, 0 for HOLD
}

// DecisionSet bundles a round's decisions with the running allocation
// sum. The sum itself is not capped here; bounding total exposure is
// the execution side's concern.
type DecisionSet struct {
	Profile             RiskProfile
	Decisions           []TradingDecision
	PortfolioAllocation float64
}
