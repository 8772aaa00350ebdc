package models

import "time"

// RoundState is the lifecycle position of one pipeline round.
type RoundState string

const (
	RoundIdle            RoundState = "IDLE"
	RoundCollecting      RoundState = "COLLECTING"
	RoundClaimGeneration RoundState = "CLAIM_GENERATION"
	RoundVerification    RoundState = "VERIFICATION"
	RoundConsensus       RoundState = "CONSENSUS"
	RoundDecision        RoundState = "DECISION"
	RoundExecution       RoundState = "EXECUTION"
	RoundSettled         RoundState = "SETTLED"
	RoundAborted         RoundState = "ABORTED"
)

// next maps each state to its single forward successor.
var next = map[RoundState]RoundState{
	RoundIdle:            RoundCollecting,
	RoundCollecting:      RoundClaimGeneration,
	RoundClaimGeneration: RoundVerification,
	RoundVerification:    RoundConsensus,
	RoundConsensus:       RoundDecision,
	RoundDecision:        RoundExecution,
	RoundExecution:       RoundSettled,
}

// CanAdvance reports whether from -> to is a legal transition. The
// pipeline is strictly linear; ABORTED is reachable from any state
// before EXECUTION. Once decisions are handed to execution the round
// is committed and cannot be aborted.
func CanAdvance(from, to RoundState) bool {
	if to == RoundAborted {
		switch from {
		case RoundExecution, RoundSettled, RoundAborted:
			return false
		}
		return true
	}
	return next[from] == to
}

// RoundReport is the full audit record of one round.
type RoundReport struct {
	ID           string
	Cutoff       time.Time
	Profile      RiskProfile
	State        RoundState
	Claims       []Claim
	Verification *VerificationResult
	Consensus    []ConsensusRec
	RiskAdjusted []ConsensusRec // additive re-weighting output, kept distinct
	Conflicts    []Conflict
	Decisions    *DecisionSet
	AgentErrors  map[string][]string // role -> errors from claim generation
	AbortReason  string
	StartedAt    time.Time
	EndedAt      time.Time
}
