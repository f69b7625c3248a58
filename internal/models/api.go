package models

import "github.com/shopspring/decimal"

// AddCardRequest carries raw card details for validation. The number
// and CVV exist only for the lifetime of the request.
type AddCardRequest struct {
	CardNumber     string `json:"card_number"`
	CVV            string `json:"cvv"`
	CardHolderName string `json:"card_holder_name"`
	ExpiryMonth    string `json:"expiry_month"`
	ExpiryYear     string `json:"expiry_year"`
}

// CreateTransactionRequest opens a new PENDING transaction.
type CreateTransactionRequest struct {
	CardID      int64           `json:"card_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
}

// UpdateStatusRequest moves a transaction to a terminal status. Used by
// the settlement processor's reconciliation call.
type UpdateStatusRequest struct {
	Status TransactionStatus `json:"status"`
}
