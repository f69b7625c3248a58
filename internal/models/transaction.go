package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus is the lifecycle state of a transaction.
// PENDING is the only non-terminal state; SUCCESS and FAILED are
// terminal and immutable once reached.
type TransactionStatus string

const (
	StatusPending TransactionStatus = "PENDING"
	StatusSuccess TransactionStatus = "SUCCESS"
	StatusFailed  TransactionStatus = "FAILED"
)

// Terminal reports whether no further transition is permitted from s.
func (s TransactionStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Valid reports whether s is a known lifecycle status.
func (s TransactionStatus) Valid() bool {
	return s == StatusPending || s.Terminal()
}

// Currencies lists the supported transaction currencies.
var Currencies = map[string]bool{
	"USD": true,
	"EUR": true,
	"GBP": true,
	"INR": true,
}

// MaxAmount is the upper bound for a single transaction amount.
var MaxAmount = decimal.NewFromInt(100000)

// Transaction is a payment transaction record. CardID and Amount never
// change after creation; Status is mutated exactly once, into a terminal
// value, through the store's compare-and-set transition.
type Transaction struct {
	ID            int64             `json:"id"`
	UserID        int64             `json:"user"`
	CardID        int64             `json:"card"`
	CardDetails   *Card             `json:"card_details,omitempty"`
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency"`
	Status        TransactionStatus `json:"status"`
	PaymentMethod string            `json:"payment_method"`
	Description   string            `json:"description"`
	OwnerEmail    string            `json:"-"`
	CreatedAt     time.Time         `json:"transaction_date"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// TransactionFilter narrows a transaction listing.
type TransactionFilter struct {
	Status    TransactionStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
}
