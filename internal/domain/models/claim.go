package models

import "time"

// AgentRole identifies which analysis desk produced a claim.
type AgentRole string

const (
	RoleFundamental AgentRole = "fundamental"
	RoleSentiment   AgentRole = "sentiment"
	RoleTechnical   AgentRole = "technical"
)

// RoleCount is the coverage denominator. It stays 3 even when fewer
// agents ran in a round; a missing role lowers coverage, it never
// shrinks the denominator.
const RoleCount = 3

// Roles lists all agent roles in canonical order.
func Roles() []AgentRole {
	return []AgentRole{RoleFundamental, RoleSentiment, RoleTechnical}
}

// EvidenceKind tags the origin class of an evidence item.
type EvidenceKind string

const (
	EvidenceNews   EvidenceKind = "news"
	EvidenceMarket EvidenceKind = "market"
	EvidenceTech   EvidenceKind = "tech"
)

// Evidence is a timestamped, sourced fact backing a claim.
// Owned by the evidence collaborator; referenced, never mutated, here.
type Evidence struct {
	Kind       EvidenceKind
	Source     string
	ObservedAt time.Time // observation or publication time
	Relevance  float64   // [0,1]
}

// Claim is one directional trading assertion produced by one agent for
// one ticker in one round. Immutable after creation.
type Claim struct {
	ID         string
	Ticker     string
	Role       AgentRole
	Claim      string // free-text action statement, e.g. "bullish breakout above 45k"
	Confidence float64
	Evidence   []Evidence
	Timestamp  time.Time
	RiskFlags  []string
}

// Severity of a risk violation. Warnings are retained for audit but
// never block a claim; a single critical rejects it.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Violation type constants emitted by the verifier.
const (
	ViolationTemporalTolerance  = "temporal-tolerance"
	ViolationEvidenceProvenance = "evidence-provenance"
	ViolationEvidenceSource     = "evidence-source"
	ViolationConfidenceBound    = "confidence-bound"
	ViolationSuspiciousConf     = "suspicious-confidence"
	ViolationExcessRiskFlags    = "excess-risk-flags"
	ViolationThinClaim          = "thin-claim"
)

// RiskViolation records one verification finding against a claim.
// Ephemeral: attached to the verification result only.
type RiskViolation struct {
	Type     string
	Current  float64
	Limit    float64
	Severity Severity
}

// VerificationResult is the partition produced by one verifier pass.
type VerificationResult struct {
	Verified   []Claim
	Rejected   []Claim
	Violations map[string][]RiskViolation // claim id -> findings, warnings included
}

// CriticalCount returns the number of critical violations recorded for
// the given claim id.
func (r *VerificationResult) CriticalCount(claimID string) int {
	n := 0
	for _, v := range r.Violations[claimID] {
		if v.Severity == SeverityCritical {
			n++
		}
	}
	return n
}
