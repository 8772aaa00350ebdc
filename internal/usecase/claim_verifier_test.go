package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"TradeQuorum/internal/domain/models"
)

var testCutoff = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestVerifier(sources SourceDirectory) *ClaimVerifier {
	return NewClaimVerifier(DefaultVerifierConfig(), sources, nil, nil)
}

func claimAt(id string, conf float64, ts time.Time, ev ...models.Evidence) models.Claim {
	return models.Claim{
		ID:         id,
		Ticker:     "BTC",
		Role:       models.RoleFundamental,
		Claim:      "bullish breakout above resistance",
		Confidence: conf,
		Evidence:   ev,
		Timestamp:  ts,
	}
}

func TestVerifyAcceptsCleanClaim(t *testing.T) {
	v := newTestVerifier(nil)
	c := claimAt("c1", 0.8, testCutoff.Add(-time.Minute))

	res := v.Verify(context.Background(), []models.Claim{c}, testCutoff)
	if len(res.Verified) != 1 || len(res.Rejected) != 0 {
		t.Fatalf("expected 1 verified, got %d verified %d rejected", len(res.Verified), len(res.Rejected))
	}
	if len(res.Violations["c1"]) != 0 {
		t.Fatalf("unexpected violations: %+v", res.Violations["c1"])
	}
}

func TestVerifyConfidenceOutOfBounds(t *testing.T) {
	v := newTestVerifier(nil)
	c := claimAt("c1", 1.4, testCutoff.Add(-time.Minute))

	res := v.Verify(context.Background(), []models.Claim{c}, testCutoff)
	if len(res.Rejected) != 1 {
		t.Fatalf("expected rejection, got %d rejected", len(res.Rejected))
	}
	want := models.RiskViolation{
		Type:     models.ViolationConfidenceBound,
		Current:  1.4,
		Limit:    1,
		Severity: models.SeverityCritical,
	}
	if diff := cmp.Diff([]models.RiskViolation{want}, res.Violations["c1"]); diff != "" {
		t.Fatalf("violations mismatch (-want +got):\n%s", diff)
	}
}

func TestVerifyNegativeConfidence(t *testing.T) {
	v := newTestVerifier(nil)
	c := claimAt("c1", -0.1, testCutoff.Add(-time.Minute))

	res := v.Verify(context.Background(), []models.Claim{c}, testCutoff)
	if len(res.Rejected) != 1 {
		t.Fatalf("expected rejection")
	}
	if res.CriticalCount("c1") != 1 {
		t.Fatalf("expected 1 critical, got %d", res.CriticalCount("c1"))
	}
}

func TestVerifyEvidenceAfterCutoffAlwaysCritical(t *testing.T) {
	v := newTestVerifier(nil)
	ev := models.Evidence{Kind: models.EvidenceNews, Source: "reuters.com", ObservedAt: testCutoff.Add(time.Second), Relevance: 0.9}
	c := claimAt("c1", 0.8, testCutoff.Add(-time.Minute), ev)

	res := v.Verify(context.Background(), []models.Claim{c}, testCutoff)
	if len(res.Rejected) != 1 {
		t.Fatalf("look-ahead evidence must reject the claim")
	}
	got := res.Violations["c1"]
	if len(got) != 1 || got[0].Type != models.ViolationEvidenceProvenance || got[0].Severity != models.SeverityCritical {
		t.Fatalf("expected critical provenance violation, got %+v", got)
	}
}

func TestVerifyTimestampSkewIsWarningOnly(t *testing.T) {
	v := newTestVerifier(nil)
	c := claimAt("c1", 0.8, testCutoff.Add(61*time.Second))

	res := v.Verify(context.Background(), []models.Claim{c}, testCutoff)
	if len(res.Verified) != 1 {
		t.Fatalf("skewed claim must still be accepted")
	}
	got := res.Violations["c1"]
	if len(got) != 1 || got[0].Type != models.ViolationTemporalTolerance || got[0].Severity != models.SeverityWarning {
		t.Fatalf("expected temporal warning, got %+v", got)
	}
}

func TestVerifyTimestampWithinSkewClean(t *testing.T) {
	v := newTestVerifier(nil)
	c := claimAt("c1", 0.8, testCutoff.Add(59*time.Second))

	res := v.Verify(context.Background(), []models.Claim{c}, testCutoff)
	if len(res.Violations["c1"]) != 0 {
		t.Fatalf("claim within skew must be clean, got %+v", res.Violations["c1"])
	}
}

func TestVerifySuspiciousPatternsAreWarnings(t *testing.T) {
	v := newTestVerifier(nil)
	c := claimAt("c1", 0.99, testCutoff.Add(-time.Minute))
	c.Claim = "go up"
	c.RiskFlags = []string{"a", "b", "c", "d"}

	res := v.Verify(context.Background(), []models.Claim{c}, testCutoff)
	if len(res.Verified) != 1 {
		t.Fatalf("warnings must never block")
	}
	got := res.Violations["c1"]
	if len(got) != 3 {
		t.Fatalf("expected 3 warnings, got %+v", got)
	}
	for _, rv := range got {
		if rv.Severity != models.SeverityWarning {
			t.Fatalf("expected warning severity, got %+v", rv)
		}
	}
}

func TestVerifyEmptyEvidenceValid(t *testing.T) {
	v := newTestVerifier(StaticSources{models.EvidenceNews: {"reuters.com"}})
	c := claimAt("c1", 0.7, testCutoff.Add(-time.Minute))

	res := v.Verify(context.Background(), []models.Claim{c}, testCutoff)
	if len(res.Verified) != 1 || len(res.Violations["c1"]) != 0 {
		t.Fatalf("empty evidence must pass clean, got %+v", res.Violations["c1"])
	}
}

func TestVerifySourceNotAllowListedWarns(t *testing.T) {
	v := newTestVerifier(StaticSources{models.EvidenceNews: {"reuters.com", "bloomberg.com"}})
	ev := models.Evidence{Kind: models.EvidenceNews, Source: "randomblog.example", ObservedAt: testCutoff.Add(-time.Hour), Relevance: 0.5}
	c := claimAt("c1", 0.8, testCutoff.Add(-time.Minute), ev)

	res := v.Verify(context.Background(), []models.Claim{c}, testCutoff)
	if len(res.Verified) != 1 {
		t.Fatalf("source mismatch is warning only")
	}
	got := res.Violations["c1"]
	if len(got) != 1 || got[0].Type != models.ViolationEvidenceSource {
		t.Fatalf("expected source warning, got %+v", got)
	}
}

type failingSources struct{}

func (failingSources) AllowedSources(context.Context) (map[models.EvidenceKind][]string, error) {
	return nil, fmt.Errorf("directory down")
}

func TestVerifyDegradesWhenSourceDirectoryUnreachable(t *testing.T) {
	v := newTestVerifier(failingSources{})
	ev := models.Evidence{Kind: models.EvidenceNews, Source: "anything.example", ObservedAt: testCutoff.Add(-time.Hour), Relevance: 0.5}
	c := claimAt("c1", 0.8, testCutoff.Add(-time.Minute), ev)

	res := v.Verify(context.Background(), []models.Claim{c}, testCutoff)
	if len(res.Verified) != 1 || len(res.Violations["c1"]) != 0 {
		t.Fatalf("unreachable directory must degrade to zero violations, got %+v", res.Violations["c1"])
	}
}

func TestVerifyIdempotent(t *testing.T) {
	v := newTestVerifier(StaticSources{models.EvidenceNews: {"reuters.com"}})
	claims := []models.Claim{
		claimAt("c1", 0.8, testCutoff.Add(-time.Minute)),
		claimAt("c2", 1.2, testCutoff.Add(-time.Minute)),
		claimAt("c3", 0.97, testCutoff.Add(2*time.Minute)),
	}

	first := v.Verify(context.Background(), claims, testCutoff)
	second := v.Verify(context.Background(), claims, testCutoff)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("verification not idempotent (-first +second):\n%s", diff)
	}
}
