// Package testutil provides in-memory test doubles for the gateway's
// storage contract.
package testutil

import (
	"fmt"
	"io"
	"sync"
	"time"

	"payment-gateway-backend/internal/models"

	"github.com/sirupsen/logrus"
)

// FakeStore is an in-memory service.Store honoring the same contract
// as the Postgres repository, including the PENDING compare-and-set
// on TransitionIfPending.
type FakeStore struct {
	mu     sync.Mutex
	cards  map[int64]*models.Card
	txs    map[int64]*models.Transaction
	nextID int64
}

func NewFakeStore() *FakeStore {
	return &FakeStore{
		cards: make(map[int64]*models.Card),
		txs:   make(map[int64]*models.Transaction),
	}
}

// Logger returns a logrus logger that discards everything.
func Logger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func (s *FakeStore) CreateCard(card *models.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	card.ID = s.nextID
	card.CreatedAt = time.Now()
	clone := *card
	s.cards[card.ID] = &clone
	return nil
}

func (s *FakeStore) FindCardByID(id, userID int64) (*models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	card, ok := s.cards[id]
	if !ok || card.UserID != userID {
		return nil, fmt.Errorf("%w: card %d", models.ErrNotFound, id)
	}
	clone := *card
	return &clone, nil
}

func (s *FakeStore) ListCards(userID int64) ([]models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Card
	for _, c := range s.cards {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *FakeStore) DeleteCard(id, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	card, ok := s.cards[id]
	if !ok || card.UserID != userID {
		return fmt.Errorf("%w: card %d", models.ErrNotFound, id)
	}
	delete(s.cards, id)
	return nil
}

func (s *FakeStore) CreateTransaction(tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	tx.ID = s.nextID
	tx.Status = models.StatusPending
	tx.CreatedAt = time.Now()
	tx.UpdatedAt = tx.CreatedAt
	clone := *tx
	s.txs[tx.ID] = &clone
	return nil
}

func (s *FakeStore) FindTransactionByID(id int64) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return nil, fmt.Errorf("%w: transaction %d", models.ErrNotFound, id)
	}
	clone := *tx
	if card, ok := s.cards[tx.CardID]; ok {
		c := *card
		clone.CardDetails = &c
	}
	return &clone, nil
}

func (s *FakeStore) ListTransactions(userID int64, f models.TransactionFilter) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Transaction
	for _, tx := range s.txs {
		if tx.UserID != userID {
			continue
		}
		if f.Status != "" && tx.Status != f.Status {
			continue
		}
		if f.MinAmount != nil && tx.Amount.LessThan(*f.MinAmount) {
			continue
		}
		if f.MaxAmount != nil && tx.Amount.GreaterThan(*f.MaxAmount) {
			continue
		}
		if f.DateFrom != nil && tx.CreatedAt.Before(*f.DateFrom) {
			continue
		}
		if f.DateTo != nil && tx.CreatedAt.After(*f.DateTo) {
			continue
		}
		out = append(out, *tx)
	}
	return out, nil
}

func (s *FakeStore) ListPendingOlderThan(age time.Duration) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-age)
	var ids []int64
	for _, tx := range s.txs {
		if tx.Status == models.StatusPending && !tx.CreatedAt.After(cutoff) {
			ids = append(ids, tx.ID)
		}
	}
	return ids, nil
}

func (s *FakeStore) TransitionIfPending(id int64, status models.TransactionStatus) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return nil, fmt.Errorf("%w: transaction %d", models.ErrNotFound, id)
	}
	if tx.Status != models.StatusPending {
		return nil, fmt.Errorf("%w: transaction %d is already %s", models.ErrInvalidTransition, id, tx.Status)
	}
	tx.Status = status
	tx.UpdatedAt = time.Now()
	clone := *tx
	return &clone, nil
}

// Card returns the stored card by id, for assertions on persisted state.
func (s *FakeStore) Card(id int64) *models.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.cards[id]; ok {
		clone := *c
		return &clone
	}
	return nil
}

// Transaction returns the stored transaction by id.
func (s *FakeStore) Transaction(id int64) *models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx, ok := s.txs[id]; ok {
		clone := *tx
		return &clone
	}
	return nil
}
