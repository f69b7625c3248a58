package models

import "time"

// CardType is the issuer family derived from the card number prefix.
type CardType string

const (
	CardTypeVisa       CardType = "VISA"
	CardTypeMastercard CardType = "MASTERCARD"
	CardTypeAmex       CardType = "AMEX"
	CardTypeDiscover   CardType = "DISCOVER"
	CardTypeUnknown    CardType = "UNKNOWN"
)

// Card is the stored, non-sensitive projection of a payment card.
// The raw card number and CVV are validated at intake and discarded;
// only the masked number and last four digits are ever persisted.
type Card struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"-"`
	CardType       CardType  `json:"card_type"`
	MaskedNumber   string    `json:"masked_number"`
	LastFourDigits string    `json:"last_four_digits"`
	CardHolderName string    `json:"card_holder_name"`
	ExpiryMonth    string    `json:"expiry_month"`
	ExpiryYear     string    `json:"expiry_year"`
	CreatedAt      time.Time `json:"created_at"`
}
