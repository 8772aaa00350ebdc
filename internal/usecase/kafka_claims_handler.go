package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"TradeQuorum/internal/domain/models"
	domrepo "TradeQuorum/internal/domain/repository"
	"TradeQuorum/internal/services/agents"
	pkgkafka "TradeQuorum/pkg/kafka"
	xlogger "TradeQuorum/pkg/logger"
)

// KafkaClaimsHandler consumes externally produced claims and queues
// them into the intake pool for the next round. Payloads go through
// the same tagged-variant parser as the HTTP agents; a refused payload
// is an error (routing it to the DLQ), not a half-defaulted claim.
type KafkaClaimsHandler struct {
	topic   string
	pool    *ClaimPool
	metrics domrepo.Metrics
	log     *xlogger.Logger
}

func NewKafkaClaimsHandler(topic string, pool *ClaimPool, metrics domrepo.Metrics, log *xlogger.Logger) *KafkaClaimsHandler {
	return &KafkaClaimsHandler{topic: topic, pool: pool, metrics: metrics, log: log}
}

func (h *KafkaClaimsHandler) Topic() string { return h.topic }

// incoming message schema: {"role": "...", "claim": {...}}
func (h *KafkaClaimsHandler) Handle(ctx context.Context, b []byte) error {
	var env struct {
		Role  string          `json:"role"`
		Claim json.RawMessage `json:"claim"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		if h.metrics != nil {
			h.metrics.RecordError("intake_unmarshal")
		}
		return err
	}

	role := models.AgentRole(env.Role)
	switch role {
	case models.RoleFundamental, models.RoleSentiment, models.RoleTechnical:
	default:
		if h.metrics != nil {
			h.metrics.RecordError("intake_role")
		}
		return fmt.Errorf("unknown agent role %q", env.Role)
	}

	// zero fallback: intake claims must carry their own timestamp
	c, err := agents.ParseClaim(env.Claim, role, time.Time{})
	if err != nil {
		if h.metrics != nil {
			h.metrics.RecordError("intake_parse")
		}
		return err
	}
	if c.Timestamp.IsZero() {
		// a claim with no timestamp cannot be ordered against a cutoff
		if h.metrics != nil {
			h.metrics.RecordError("intake_timestamp")
		}
		return fmt.Errorf("claim %s carries no timestamp", c.ID)
	}

	h.pool.Add(c)
	if h.log != nil {
		h.log.Debug("claim queued", xlogger.String("role", env.Role), xlogger.String("ticker", c.Ticker))
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaClaimsHandler)(nil)
