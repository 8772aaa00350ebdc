package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"TradeQuorum/internal/domain/models"
	domsvc "TradeQuorum/internal/domain/service"
	xlogger "TradeQuorum/pkg/logger"
)

// HTTPModelAgent is one analysis role backed by the external model
// service. The service owns prompt construction and model selection;
// this client only ships the round context out and parses claims back.
type HTTPModelAgent struct {
	role    models.AgentRole
	base    *HTTPServiceBase
	retries int
	log     *xlogger.Logger
}

func NewHTTPModelAgent(role models.AgentRole, base *HTTPServiceBase, retries int, log *xlogger.Logger) *HTTPModelAgent {
	if retries <= 0 {
		retries = 3
	}
	return &HTTPModelAgent{role: role, base: base, retries: retries, log: log}
}

func (a *HTTPModelAgent) Role() models.AgentRole { return a.role }

type agentRequest struct {
	RoundID     string             `json:"round_id"`
	Role        string             `json:"role"`
	Universe    []string           `json:"universe"`
	Cutoff      int64              `json:"cutoff"` // unix seconds
	RiskProfile string             `json:"risk_profile"`
	MarketStats map[string]statDTO `json:"market_stats,omitempty"`
}

type statDTO struct {
	Volume24h float64 `json:"volume_24h"`
	Spread    float64 `json:"spread"`
	LastPrice float64 `json:"last_price"`
}

type agentResponse struct {
	Claims []json.RawMessage `json:"claims"`
	Errors []string          `json:"errors"`
}

// Run requests claims for the round and parses each payload through
// the tagged-variant parser. A payload the parser refuses becomes an
// error entry for this role; it never turns into a half-defaulted
// claim.
func (a *HTTPModelAgent) Run(ctx context.Context, actx domsvc.AgentContext) (domsvc.AgentResult, error) {
	req := agentRequest{
		RoundID:     actx.RoundID,
		Role:        string(a.role),
		Universe:    actx.Universe,
		Cutoff:      actx.Cutoff.Unix(),
		RiskProfile: string(actx.RiskProfile),
	}
	if len(actx.MarketStats) > 0 {
		req.MarketStats = make(map[string]statDTO, len(actx.MarketStats))
		for sym, ms := range actx.MarketStats {
			req.MarketStats[sym] = statDTO{Volume24h: ms.Volume24h, Spread: ms.Spread, LastPrice: ms.LastPrice}
		}
	}

	var resp agentResponse
	path := "/agents/" + string(a.role) + "/claims"
	if err := a.base.PostJSONWithRetry(ctx, path, req, &resp, a.retries); err != nil {
		return domsvc.AgentResult{}, fmt.Errorf("agent %s: %w", a.role, err)
	}

	result := domsvc.AgentResult{Errors: resp.Errors}
	for _, raw := range resp.Claims {
		c, err := ParseClaim(raw, a.role, actx.Cutoff)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			if a.log != nil {
				a.log.Warn("degraded claim dropped", xlogger.String("role", string(a.role)), xlogger.Error(err))
			}
			continue
		}
		result.Claims = append(result.Claims, c)
	}
	return result, nil
}

var _ domsvc.Agent = (*HTTPModelAgent)(nil)

// Registry is the per-orchestrator agent set. Constructor-injected on
// purpose: there is no process-wide role map to mutate.
type Registry struct {
	agents []domsvc.Agent
}

func NewRegistry(agents ...domsvc.Agent) *Registry {
	return &Registry{agents: agents}
}

// Agents returns the registered agents in registration order.
func (r *Registry) Agents() []domsvc.Agent { return r.agents }

// ByRole returns the agent registered for role, if any.
func (r *Registry) ByRole(role models.AgentRole) (domsvc.Agent, bool) {
	for _, a := range r.agents {
		if a.Role() == role {
			return a, true
		}
	}
	return nil, false
}
