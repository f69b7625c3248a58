package processor

import (
	"math/rand"
	"strconv"
	"sync"

	"payment-gateway-backend/internal/models"
)

// DecisionPolicy derives an authorization decision from the card's
// last four digits. Implementations must be safe for concurrent use.
// Exactly one policy is active per process; deterministic and random
// decisions are never mixed.
type DecisionPolicy interface {
	Decide(lastFour string) (models.TransactionStatus, string)
}

const (
	reasonApproved = "Payment processed successfully"
	reasonDeclined = "Insufficient funds or card declined"
)

// ThresholdPolicy is the deterministic simulation rule: last four
// digits below 5000 authorize, 5000 and above decline.
type ThresholdPolicy struct{}

func (ThresholdPolicy) Decide(lastFour string) (models.TransactionStatus, string) {
	n, err := strconv.Atoi(lastFour)
	if err != nil || n >= 5000 {
		return models.StatusFailed, reasonDeclined
	}
	return models.StatusSuccess, reasonApproved
}

// RandomPolicy approves a weighted share of payments regardless of the
// card. SuccessRate is a percentage in [0,100].
type RandomPolicy struct {
	SuccessRate int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomPolicy returns a RandomPolicy seeded from src, approving
// successRate percent of payments.
func NewRandomPolicy(successRate int, src rand.Source) *RandomPolicy {
	return &RandomPolicy{SuccessRate: successRate, rng: rand.New(src)}
}

func (p *RandomPolicy) Decide(string) (models.TransactionStatus, string) {
	p.mu.Lock()
	n := p.rng.Intn(100)
	p.mu.Unlock()
	if n < p.SuccessRate {
		return models.StatusSuccess, reasonApproved
	}
	return models.StatusFailed, reasonDeclined
}
