package agents

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"TradeQuorum/internal/domain/models"
)

// Model responses are dynamically shaped. The parse step is a tagged
// choice: either a fully structured claim comes out, or an explicit
// ParseError does. Missing ticker/claim/confidence is never silently
// defaulted; the degraded claim is surfaced to the round's error list.

var validate = validator.New()

// ParseError describes one payload the parser refused.
type ParseError struct {
	Role   models.AgentRole
	Reason string
	Raw    json.RawMessage
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("agent %s payload rejected: %s", e.Role, e.Reason)
}

// claimPayload is the wire shape one claim arrives in. Confidence is a
// pointer so that an absent field is distinguishable from 0.
type claimPayload struct {
	Ticker     string            `json:"ticker" validate:"required"`
	Claim      string            `json:"claim" validate:"required"`
	Confidence *float64          `json:"confidence" validate:"required"`
	Evidence   []evidencePayload `json:"evidence" validate:"omitempty,dive"`
	RiskFlags  []string          `json:"risk_flags"`
	Timestamp  *int64            `json:"timestamp"` // unix seconds, optional
}

type evidencePayload struct {
	Kind       string  `json:"kind" validate:"required,oneof=news market tech"`
	Source     string  `json:"source" validate:"required"`
	ObservedAt int64   `json:"observed_at" validate:"required"` // unix seconds
	Relevance  float64 `json:"relevance" validate:"gte=0,lte=1"`
}

// ParseClaim turns one raw model payload into a Claim, or a ParseError
// when the payload does not carry the required shape. Confidence
// values outside [0,1] are passed through: bounding them is the
// verifier's call, not the parser's.
func ParseClaim(raw json.RawMessage, role models.AgentRole, fallback time.Time) (models.Claim, error) {
	var p claimPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return models.Claim{}, &ParseError{Role: role, Reason: fmt.Sprintf("malformed json: %v", err), Raw: raw}
	}
	if err := validate.Struct(p); err != nil {
		return models.Claim{}, &ParseError{Role: role, Reason: fmt.Sprintf("invalid shape: %v", err), Raw: raw}
	}

	ts := fallback
	if p.Timestamp != nil {
		ts = time.Unix(*p.Timestamp, 0).UTC()
	}

	c := models.Claim{
		ID:         uuid.NewString(),
		Ticker:     p.Ticker,
		Role:       role,
		Claim:      p.Claim,
		Confidence: *p.Confidence,
		Timestamp:  ts,
		RiskFlags:  p.RiskFlags,
	}
	for _, ev := range p.Evidence {
		c.Evidence = append(c.Evidence, models.Evidence{
			Kind:       models.EvidenceKind(ev.Kind),
			Source:     ev.Source,
			ObservedAt: time.Unix(ev.ObservedAt, 0).UTC(),
			Relevance:  ev.Relevance,
		})
	}
	return c, nil
}
