package processor

import (
	"context"
	"errors"
	"time"

	"payment-gateway-backend/internal/models"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// PendingLister lists stale PENDING transaction ids from the ledger.
type PendingLister interface {
	ListPending(ctx context.Context, olderThan time.Duration) ([]int64, error)
}

// Sweeper periodically settles transactions that have sat PENDING for
// too long, covering clients that created a transaction but never
// triggered settlement. Losing a race against a concurrent settlement
// attempt is expected and not an error.
type Sweeper struct {
	proc      *Processor
	lister    PendingLister
	olderThan time.Duration
	log       *logrus.Logger
}

// NewSweeper initializes a sweeper over transactions pending for at
// least olderThan.
func NewSweeper(proc *Processor, lister PendingLister, olderThan time.Duration, log *logrus.Logger) *Sweeper {
	return &Sweeper{proc: proc, lister: lister, olderThan: olderThan, log: log}
}

// Sweep settles every stale PENDING transaction once.
func (s *Sweeper) Sweep(ctx context.Context) {
	ids, err := s.lister.ListPending(ctx, s.olderThan)
	if err != nil {
		s.log.Warnf("pending sweep: failed to list transactions: %v", err)
		return
	}
	if len(ids) == 0 {
		return
	}
	s.log.Infof("pending sweep: settling %d transactions", len(ids))

	for _, id := range ids {
		if _, err := s.proc.Settle(ctx, id, ""); err != nil {
			// A terminal transaction means another settlement attempt
			// won the race; the desired state was already reached.
			if errors.Is(err, models.ErrInvalidTransition) {
				continue
			}
			s.log.WithField("transaction_id", id).Warnf("pending sweep: settlement failed: %v", err)
		}
	}
}

// Start schedules the sweep with the given cron spec and returns the
// running scheduler.
func (s *Sweeper) Start(spec string) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { s.Sweep(context.Background()) }); err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
