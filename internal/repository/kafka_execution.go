package repository

import (
	"context"
	"time"

	"TradeQuorum/internal/domain/models"
	"TradeQuorum/internal/domain/repository"
	pkgkafka "TradeQuorum/pkg/kafka"
)

// KafkaExecution hands decision sets to the execution side over
// Kafka. One message per decision, keyed by ticker so per-ticker
// ordering survives partitioning.
type KafkaExecution struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaExecution creates the Kafka execution adapter.
func NewKafkaExecution(producer *pkgkafka.Producer, topic string) repository.Execution {
	return &KafkaExecution{producer: producer, topic: topic}
}

func (e *KafkaExecution) Submit(ctx context.Context, roundID string, set *models.DecisionSet) error {
	if set == nil || len(set.Decisions) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(set.Decisions))
	for i, d := range set.Decisions {
		msgs[i] = pkgkafka.Message{
			Key: []byte(d.Ticker),
			Value: map[string]interface{}{
				"round_id":      roundID,
				"ticker":        d.Ticker,
				"action":        string(d.Action),
				"confidence":    d.Confidence,
				"score":         d.Score,
				"position_size": d.PositionSize,
				"stop_loss":     d.StopLoss,
				"take_profit":   d.TakeProfit,
				"rationale":     d.Rationale,
				"profile":       string(set.Profile),
				"emitted_at":    time.Now().UTC().Unix(),
			},
		}
	}
	return e.producer.PublishBatch(ctx, e.topic, msgs)
}

func (e *KafkaExecution) Close() error {
	if e.producer != nil {
		return e.producer.Close()
	}
	return nil
}
