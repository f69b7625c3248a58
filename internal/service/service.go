package service

import (
	"fmt"
	"time"

	"payment-gateway-backend/internal/cards"
	"payment-gateway-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Store is the durable record contract the lifecycle manager depends
// on. TransitionIfPending must be atomic: it commits only when the row
// is still PENDING and reports ErrInvalidTransition otherwise, so
// concurrent settlement attempts race safely at the store boundary.
type Store interface {
	CreateCard(card *models.Card) error
	FindCardByID(id, userID int64) (*models.Card, error)
	ListCards(userID int64) ([]models.Card, error)
	DeleteCard(id, userID int64) error

	CreateTransaction(tx *models.Transaction) error
	FindTransactionByID(id int64) (*models.Transaction, error)
	ListTransactions(userID int64, f models.TransactionFilter) ([]models.Transaction, error)
	ListPendingOlderThan(age time.Duration) ([]int64, error)
	TransitionIfPending(id int64, status models.TransactionStatus) (*models.Transaction, error)
}

// Notifier delivers best-effort receipts for settled transactions.
type Notifier interface {
	SendPaymentReceipt(to string, tx *models.Transaction) error
}

// Service handles card intake and the transaction lifecycle.
type Service struct {
	store    Store
	log      *logrus.Logger
	notifier Notifier
	cards    *cards.Validator
}

// NewService initializes a new service. notifier may be nil when
// receipts are disabled.
func NewService(store Store, log *logrus.Logger, notifier Notifier) *Service {
	return &Service{
		store:    store,
		log:      log,
		notifier: notifier,
		cards:    cards.NewValidator(),
	}
}

// AddCard validates raw card details and stores the non-sensitive
// projection for the user. The raw number and CVV are discarded here.
func (s *Service) AddCard(userID int64, req models.AddCardRequest) (*models.Card, error) {
	card, err := s.cards.Validate(req)
	if err != nil {
		return nil, err
	}
	card.UserID = userID

	if err := s.store.CreateCard(card); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":   userID,
		"card_id":   card.ID,
		"card_type": card.CardType,
	}).Info("card added")
	return card, nil
}

// ListCards returns the user's stored cards.
func (s *Service) ListCards(userID int64) ([]models.Card, error) {
	return s.store.ListCards(userID)
}

// GetCard returns one of the user's cards.
func (s *Service) GetCard(id, userID int64) (*models.Card, error) {
	return s.store.FindCardByID(id, userID)
}

// DeleteCard removes one of the user's cards.
func (s *Service) DeleteCard(id, userID int64) (string, error) {
	card, err := s.store.FindCardByID(id, userID)
	if err != nil {
		return "", err
	}
	if err := s.store.DeleteCard(id, userID); err != nil {
		return "", err
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "card_id": id}).Info("card deleted")
	return fmt.Sprintf("%s - %s", card.CardType, card.MaskedNumber), nil
}

// CreateTransaction opens a new PENDING transaction against one of the
// user's cards. No settlement call happens here; processing is a
// separate, explicitly triggered step.
func (s *Service) CreateTransaction(userID int64, ownerEmail string, req models.CreateTransactionRequest) (*models.Transaction, error) {
	if errs := validateTransactionRequest(req); len(errs) > 0 {
		return nil, errs
	}

	card, err := s.store.FindCardByID(req.CardID, userID)
	if err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	tx := &models.Transaction{
		UserID:        userID,
		CardID:        card.ID,
		Amount:        req.Amount,
		Currency:      currency,
		PaymentMethod: fmt.Sprintf("%s - %s", card.CardType, card.LastFourDigits),
		Description:   req.Description,
		OwnerEmail:    ownerEmail,
	}
	if err := s.store.CreateTransaction(tx); err != nil {
		return nil, err
	}
	tx.CardDetails = card

	s.log.WithFields(logrus.Fields{
		"user_id":        userID,
		"transaction_id": tx.ID,
		"amount":         tx.Amount,
		"currency":       tx.Currency,
	}).Info("transaction created")
	return tx, nil
}

func validateTransactionRequest(req models.CreateTransactionRequest) models.FieldErrors {
	var errs models.FieldErrors
	if !req.Amount.GreaterThan(decimal.Zero) {
		errs = errs.Add("amount", models.RuleRange, "Amount must be greater than 0")
	} else if req.Amount.GreaterThan(models.MaxAmount) {
		errs = errs.Add("amount", models.RuleRange, "Amount cannot exceed 100,000")
	}
	if req.Currency != "" && !models.Currencies[req.Currency] {
		errs = errs.Add("currency", models.RuleFormat, "Unsupported currency")
	}
	if req.CardID <= 0 {
		errs = errs.Add("card_id", models.RuleFormat, "Card ID must be positive")
	}
	return errs
}

// GetTransaction fetches a transaction by id. Ownership checks are the
// caller's concern: the settlement processor reads with a service
// credential and anonymous read-only status queries are permitted.
func (s *Service) GetTransaction(id int64) (*models.Transaction, error) {
	return s.store.FindTransactionByID(id)
}

// ListTransactions returns the user's transactions narrowed by filter.
func (s *Service) ListTransactions(userID int64, f models.TransactionFilter) ([]models.Transaction, error) {
	return s.store.ListTransactions(userID, f)
}

// ListPendingOlderThan exposes stale PENDING transaction ids for the
// settlement sweeper.
func (s *Service) ListPendingOlderThan(age time.Duration) ([]int64, error) {
	return s.store.ListPendingOlderThan(age)
}

// TransitionStatus commits a settlement decision. Only the terminal
// statuses are accepted, and only a PENDING transaction transitions; a
// repeated transition against an already-terminal transaction fails
// with ErrInvalidTransition rather than being silently accepted.
func (s *Service) TransitionStatus(id int64, status models.TransactionStatus) (*models.Transaction, error) {
	if !status.Terminal() {
		return nil, fmt.Errorf("%w: %q is not a terminal status", models.ErrInvalidStatus, status)
	}

	tx, err := s.store.TransitionIfPending(id, status)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"transaction_id": tx.ID,
		"status":         tx.Status,
	}).Info("transaction status updated")

	if s.notifier != nil && tx.OwnerEmail != "" {
		go func(tx models.Transaction) {
			if err := s.notifier.SendPaymentReceipt(tx.OwnerEmail, &tx); err != nil {
				s.log.WithField("transaction_id", tx.ID).Warnf("failed to send receipt: %v", err)
			}
		}(*tx)
	}
	return tx, nil
}
