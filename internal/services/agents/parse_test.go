package agents

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"TradeQuorum/internal/domain/models"
)

var fallback = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestParseClaimStructured(t *testing.T) {
	raw := json.RawMessage(`{
		"ticker": "BTC",
		"claim": "bullish breakout above 45k",
		"confidence": 0.82,
		"evidence": [{"kind": "news", "source": "reuters.com", "observed_at": 1770000000, "relevance": 0.9}],
		"risk_flags": ["leverage"]
	}`)

	c, err := ParseClaim(raw, models.RoleFundamental, fallback)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Ticker != "BTC" || c.Confidence != 0.82 || c.Role != models.RoleFundamental {
		t.Fatalf("unexpected claim: %+v", c)
	}
	if c.ID == "" {
		t.Fatalf("claim must get an id")
	}
	if len(c.Evidence) != 1 || c.Evidence[0].Kind != models.EvidenceNews {
		t.Fatalf("evidence not carried: %+v", c.Evidence)
	}
	if !c.Timestamp.Equal(fallback) {
		t.Fatalf("missing timestamp must fall back to cutoff, got %v", c.Timestamp)
	}
}

func TestParseClaimMissingFieldsRejected(t *testing.T) {
	cases := []string{
		`{"claim": "bullish setup", "confidence": 0.8}`,         // no ticker
		`{"ticker": "BTC", "confidence": 0.8}`,                  // no claim text
		`{"ticker": "BTC", "claim": "bullish setup building"}`,  // no confidence
		`{"ticker": "BTC", "claim": "x", "confidence": "high"}`, // wrong type
		`not json at all`,
	}
	for _, raw := range cases {
		_, err := ParseClaim(json.RawMessage(raw), models.RoleSentiment, fallback)
		if err == nil {
			t.Fatalf("payload %q must be rejected", raw)
		}
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("expected ParseError, got %T", err)
		}
		if pe.Role != models.RoleSentiment || pe.Reason == "" {
			t.Fatalf("parse error missing context: %+v", pe)
		}
	}
}

func TestParseClaimOutOfBoundsConfidencePassesThrough(t *testing.T) {
	// Bounding confidence is the verifier's job; the parser only
	// rejects shape problems.
	raw := json.RawMessage(`{"ticker": "BTC", "claim": "bullish beyond reason", "confidence": 1.4}`)
	c, err := ParseClaim(raw, models.RoleTechnical, fallback)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Confidence != 1.4 {
		t.Fatalf("confidence must pass through, got %v", c.Confidence)
	}
}

func TestParseClaimBadEvidenceRejected(t *testing.T) {
	raw := json.RawMessage(`{
		"ticker": "BTC",
		"claim": "bullish with bad evidence",
		"confidence": 0.8,
		"evidence": [{"kind": "rumor", "source": "forum", "observed_at": 1770000000, "relevance": 0.5}]
	}`)
	_, err := ParseClaim(raw, models.RoleFundamental, fallback)
	if err == nil {
		t.Fatalf("unknown evidence kind must be rejected")
	}
}

func TestParseClaimExplicitTimestamp(t *testing.T) {
	raw := json.RawMessage(`{"ticker": "ETH", "claim": "bearish funding flip", "confidence": 0.7, "timestamp": 1770000000}`)
	c, err := ParseClaim(raw, models.RoleTechnical, fallback)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Timestamp.Unix() != 1770000000 {
		t.Fatalf("timestamp not honored: %v", c.Timestamp)
	}
}
