package usecase

import (
	"sync"
	"time"

	"TradeQuorum/internal/domain/models"
)

// ClaimPool buffers externally delivered claims between rounds. Drain
// hands over only claims stamped at or before the cutoff; later-
// stamped claims stay queued for the next round, which keeps two
// rounds from ever observing overlapping claim sets.
type ClaimPool struct {
	mu     sync.Mutex
	claims []models.Claim
}

func NewClaimPool() *ClaimPool {
	return &ClaimPool{}
}

// Add queues one claim.
func (p *ClaimPool) Add(c models.Claim) {
	p.mu.Lock()
	p.claims = append(p.claims, c)
	p.mu.Unlock()
}

// Drain removes and returns every queued claim with timestamp <= cutoff.
func (p *ClaimPool) Drain(cutoff time.Time) []models.Claim {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out, keep []models.Claim
	for _, c := range p.claims {
		if c.Timestamp.After(cutoff) {
			keep = append(keep, c)
		} else {
			out = append(out, c)
		}
	}
	p.claims = keep
	return out
}

// Len reports the queued claim count.
func (p *ClaimPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.claims)
}

var _ ClaimSource = (*ClaimPool)(nil)
