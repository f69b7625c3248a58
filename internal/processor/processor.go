package processor

import (
	"context"
	"fmt"
	"time"

	"payment-gateway-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Ledger is the transaction-store client the processor settles
// against: one read, one compare-and-set write.
type Ledger interface {
	GetTransaction(ctx context.Context, id int64, authToken string) (*models.Transaction, error)
	UpdateStatus(ctx context.Context, id int64, status models.TransactionStatus, authToken string) (*models.Transaction, error)
}

// Outcome is a committed settlement result.
type Outcome struct {
	TransactionID int64
	Status        models.TransactionStatus
	Amount        decimal.Decimal
	Reason        string
	Timestamp     time.Time
}

// Processor simulates payment authorization. It holds no mutable
// state of its own: correctness under concurrent settlement attempts
// rests entirely on the store's transition guard, which keeps the
// processor stateless and horizontally replicable.
type Processor struct {
	ledger Ledger
	policy DecisionPolicy
	delay  time.Duration
	now    func() time.Time
	log    *logrus.Logger
}

// New initializes a processor. delay models authorization latency and
// is waited out (not busy-looped) before each settlement; now is
// injected for deterministic timestamps in tests.
func New(ledger Ledger, policy DecisionPolicy, delay time.Duration, log *logrus.Logger) *Processor {
	return &Processor{
		ledger: ledger,
		policy: policy,
		delay:  delay,
		now:    time.Now,
		log:    log,
	}
}

// WithClock replaces the processor's clock. Test hook.
func (p *Processor) WithClock(now func() time.Time) *Processor {
	p.now = now
	return p
}

// Settle runs one settlement attempt: wait out the simulated
// authorization latency, fetch the transaction, derive a decision from
// the data just read, and report it back. The decision is only
// returned to the caller once the store has committed it; a failed
// reconciliation leaves the transaction PENDING and surfaces as an
// error, never as a settled FAILED outcome.
func (p *Processor) Settle(ctx context.Context, transactionID int64, authToken string) (*Outcome, error) {
	select {
	case <-time.After(p.delay):
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", models.ErrCommunication, ctx.Err())
	}

	tx, err := p.ledger.GetTransaction(ctx, transactionID, authToken)
	if err != nil {
		p.log.WithField("transaction_id", transactionID).Warnf("settlement fetch failed: %v", err)
		return nil, err
	}
	if tx.CardDetails == nil || tx.CardDetails.LastFourDigits == "" {
		return nil, fmt.Errorf("%w: transaction %d has no card details", models.ErrCommunication, transactionID)
	}

	status, reason := p.policy.Decide(tx.CardDetails.LastFourDigits)

	if _, err := p.ledger.UpdateStatus(ctx, transactionID, status, authToken); err != nil {
		p.log.WithFields(logrus.Fields{
			"transaction_id": transactionID,
			"decision":       status,
		}).Warnf("reconciliation failed: %v", err)
		return nil, err
	}

	p.log.WithFields(logrus.Fields{
		"transaction_id": transactionID,
		"status":         status,
		"amount":         tx.Amount,
	}).Info("transaction settled")

	return &Outcome{
		TransactionID: transactionID,
		Status:        status,
		Amount:        tx.Amount,
		Reason:        reason,
		Timestamp:     p.now(),
	}, nil
}
