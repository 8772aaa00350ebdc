package usecase

import (
	"context"
	"time"

	"TradeQuorum/internal/domain/models"
	drepo "TradeQuorum/internal/domain/repository"
	xlogger "TradeQuorum/pkg/logger"
)

// SourceDirectory resolves the per-kind evidence source allow-lists.
// Backed by an external collaborator; an unreachable directory must
// degrade, never fail verification.
type SourceDirectory interface {
	AllowedSources(ctx context.Context) (map[models.EvidenceKind][]string, error)
}

// StaticSources is a SourceDirectory over fixed config.
type StaticSources map[models.EvidenceKind][]string

func (s StaticSources) AllowedSources(context.Context) (map[models.EvidenceKind][]string, error) {
	return s, nil
}

// VerifierConfig tunes the soft-verification policy.
type VerifierConfig struct {
	ClockSkew      time.Duration // timestamp tolerance past cutoff, warning only
	MaxConfidence  float64       // suspicious-confidence ceiling
	MaxRiskFlags   int
	MinClaimLength int
}

// DefaultVerifierConfig returns the policy constants the pipeline ships with.
func DefaultVerifierConfig() VerifierConfig {
	return VerifierConfig{
		ClockSkew:      60 * time.Second,
		MaxConfidence:  0.95,
		MaxRiskFlags:   3,
		MinClaimLength: 10,
	}
}

// ClaimVerifier filters a raw claim batch against the round cutoff and
// evidence provenance rules. Policy is deliberately soft: a claim is
// rejected only on critical violations; warnings are kept for audit.
// Downstream scoring already discounts low-quality claims via
// confidence and coverage.
type ClaimVerifier struct {
	cfg     VerifierConfig
	sources SourceDirectory
	metrics drepo.Metrics
	log     *xlogger.Logger
}

// NewClaimVerifier creates a verifier. sources may be nil, in which
// case source allow-list checks are skipped.
func NewClaimVerifier(cfg VerifierConfig, sources SourceDirectory, metrics drepo.Metrics, log *xlogger.Logger) *ClaimVerifier {
	return &ClaimVerifier{cfg: cfg, sources: sources, metrics: metrics, log: log}
}

// Verify partitions claims into verified and rejected against the
// round cutoff. It never returns an error: degraded collaborators are
// absorbed per the round error policy, and re-verifying the same
// (claims, cutoff) pair yields an identical partition.
func (v *ClaimVerifier) Verify(ctx context.Context, claims []models.Claim, cutoff time.Time) *models.VerificationResult {
	res := &models.VerificationResult{
		Verified:   make([]models.Claim, 0, len(claims)),
		Rejected:   make([]models.Claim, 0),
		Violations: make(map[string][]models.RiskViolation),
	}

	allowed := v.allowedSources(ctx)

	for _, c := range claims {
		violations := v.checkClaim(c, cutoff, allowed)
		if len(violations) > 0 {
			res.Violations[c.ID] = violations
		}

		critical := false
		for _, rv := range violations {
			if rv.Severity == models.SeverityCritical {
				critical = true
			}
			if v.metrics != nil {
				v.metrics.RecordViolation(rv.Type, string(rv.Severity))
			}
		}

		if critical {
			res.Rejected = append(res.Rejected, c)
		} else {
			res.Verified = append(res.Verified, c)
		}
		if v.metrics != nil {
			v.metrics.RecordClaim(string(c.Role), !critical)
		}
	}

	return res
}

func (v *ClaimVerifier) checkClaim(c models.Claim, cutoff time.Time, allowed map[models.EvidenceKind][]string) []models.RiskViolation {
	var out []models.RiskViolation

	// Clock-skew allowance: a claim stamped slightly past cutoff is
	// suspicious but not blocking.
	if c.Timestamp.After(cutoff.Add(v.cfg.ClockSkew)) {
		out = append(out, models.RiskViolation{
			Type:     models.ViolationTemporalTolerance,
			Current:  c.Timestamp.Sub(cutoff).Seconds(),
			Limit:    v.cfg.ClockSkew.Seconds(),
			Severity: models.SeverityWarning,
		})
	}

	// Evidence provenance. Evidence dated after cutoff is the
	// look-ahead case and is never downgraded. An empty evidence list
	// is valid: no checks fire.
	for _, ev := range c.Evidence {
		if ev.ObservedAt.After(cutoff) {
			out = append(out, models.RiskViolation{
				Type:     models.ViolationEvidenceProvenance,
				Current:  ev.ObservedAt.Sub(cutoff).Seconds(),
				Limit:    0,
				Severity: models.SeverityCritical,
			})
		}
		if allowed != nil && !sourceAllowed(allowed, ev.Kind, ev.Source) {
			out = append(out, models.RiskViolation{
				Type:     models.ViolationEvidenceSource,
				Current:  ev.Relevance,
				Limit:    0,
				Severity: models.SeverityWarning,
			})
		}
	}

	// Confidence bound is the only hard reject on its own.
	if c.Confidence < 0 || c.Confidence > 1 {
		limit := 1.0
		if c.Confidence < 0 {
			limit = 0
		}
		out = append(out, models.RiskViolation{
			Type:     models.ViolationConfidenceBound,
			Current:  c.Confidence,
			Limit:    limit,
			Severity: models.SeverityCritical,
		})
	} else if c.Confidence > v.cfg.MaxConfidence {
		out = append(out, models.RiskViolation{
			Type:     models.ViolationSuspiciousConf,
			Current:  c.Confidence,
			Limit:    v.cfg.MaxConfidence,
			Severity: models.SeverityWarning,
		})
	}

	if len(c.RiskFlags) > v.cfg.MaxRiskFlags {
		out = append(out, models.RiskViolation{
			Type:     models.ViolationExcessRiskFlags,
			Current:  float64(len(c.RiskFlags)),
			Limit:    float64(v.cfg.MaxRiskFlags),
			Severity: models.SeverityWarning,
		})
	}
	if len(c.Claim) < v.cfg.MinClaimLength {
		out = append(out, models.RiskViolation{
			Type:     models.ViolationThinClaim,
			Current:  float64(len(c.Claim)),
			Limit:    float64(v.cfg.MinClaimLength),
			Severity: models.SeverityWarning,
		})
	}

	return out
}

// allowedSources resolves the directory, degrading to nil (skip source
// checks) when the collaborator is unreachable.
func (v *ClaimVerifier) allowedSources(ctx context.Context) map[models.EvidenceKind][]string {
	if v.sources == nil {
		return nil
	}
	allowed, err := v.sources.AllowedSources(ctx)
	if err != nil {
		if v.log != nil {
			v.log.Warn("source directory unreachable, skipping source checks", xlogger.Error(err))
		}
		if v.metrics != nil {
			v.metrics.RecordError("source_directory")
		}
		return nil
	}
	return allowed
}

func sourceAllowed(allowed map[models.EvidenceKind][]string, kind models.EvidenceKind, source string) bool {
	list, ok := allowed[kind]
	if !ok || len(list) == 0 {
		// no allow-list configured for this kind
		return true
	}
	for _, s := range list {
		if s == source {
			return true
		}
	}
	return false
}
