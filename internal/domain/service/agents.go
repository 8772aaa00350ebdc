package service

import (
	"context"
	"time"

	"TradeQuorum/internal/domain/models"
)

// AgentContext carries everything one agent needs for one round.
// Agents share no mutable state; each receives its own copy of the
// slices it may iterate.
type AgentContext struct {
	RoundID     string
	Cutoff      time.Time
	Universe    []string // tickers under consideration
	MarketStats map[string]models.MarketStats
	RiskProfile models.RiskProfile
}

// AgentResult is what one role contributes to a round. Errors are
// isolated: they lower coverage for the role, they never abort
// sibling agents.
type AgentResult struct {
	Claims []models.Claim
	Errors []string
}

// Agent produces claims for one analysis role. Implementations are
// external collaborators (model-service clients, Kafka intake); the
// core only consumes this contract.
type Agent interface {
	Role() models.AgentRole
	Run(ctx context.Context, actx AgentContext) (AgentResult, error)
}
