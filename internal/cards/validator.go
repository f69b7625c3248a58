package cards

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"payment-gateway-backend/internal/models"
)

var holderNamePattern = regexp.MustCompile(`^[A-Za-z ]+$`)

// Validator checks raw card details and derives the storable projection.
// It is pure and safe for concurrent use; the clock is injected so
// expiry boundary checks are testable.
type Validator struct {
	now func() time.Time
}

// NewValidator returns a Validator using the wall clock.
func NewValidator() *Validator {
	return &Validator{now: time.Now}
}

// NewValidatorAt returns a Validator with an injected clock.
func NewValidatorAt(now func() time.Time) *Validator {
	return &Validator{now: now}
}

// Validate applies every card rule and returns the non-sensitive
// projection. All violated rules are reported together as
// models.FieldErrors. The CVV is checked and discarded; it never
// appears in the returned card.
func (v *Validator) Validate(req models.AddCardRequest) (*models.Card, error) {
	var errs models.FieldErrors

	number := Normalize(req.CardNumber)
	switch {
	case !isDigits(number):
		errs = errs.Add("card_number", models.RuleFormat, "Card number must contain only digits")
	case len(number) < 13 || len(number) > 19:
		errs = errs.Add("card_number", models.RuleFormat, "Card number must be between 13 and 19 digits")
	case !LuhnValid(number):
		errs = errs.Add("card_number", models.RuleChecksum, "Invalid card number")
	}

	if !isDigits(req.CVV) || len(req.CVV) < 3 || len(req.CVV) > 4 {
		errs = errs.Add("cvv", models.RuleFormat, "CVV must be 3 or 4 digits")
	}

	if !holderNamePattern.MatchString(req.CardHolderName) {
		errs = errs.Add("card_holder_name", models.RuleFormat, "Card holder name must contain only letters")
	}

	month, err := strconv.Atoi(req.ExpiryMonth)
	monthOK := err == nil && month >= 1 && month <= 12
	if !monthOK {
		errs = errs.Add("expiry_month", models.RuleFormat, "Month must be between 01 and 12")
	}
	yearOK := len(req.ExpiryYear) == 4 && isDigits(req.ExpiryYear)
	if !yearOK {
		errs = errs.Add("expiry_year", models.RuleFormat, "Year must be 4 digits")
	}
	if monthOK && yearOK {
		year, _ := strconv.Atoi(req.ExpiryYear)
		now := v.now()
		if year < now.Year() || (year == now.Year() && month < int(now.Month())) {
			errs = errs.Add("expiry_date", models.RuleExpiry, "Card has expired")
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}

	return &models.Card{
		CardType:       DetectType(number),
		MaskedNumber:   Mask(number),
		LastFourDigits: number[len(number)-4:],
		CardHolderName: strings.ToUpper(req.CardHolderName),
		ExpiryMonth:    req.ExpiryMonth,
		ExpiryYear:     req.ExpiryYear,
	}, nil
}

// Normalize strips the spaces and hyphens commonly typed into card
// number fields.
func Normalize(raw string) string {
	raw = strings.ReplaceAll(raw, " ", "")
	return strings.ReplaceAll(raw, "-", "")
}

// LuhnValid reports whether number passes the Luhn checksum: starting
// from the second-to-last digit and moving left, every other digit is
// doubled (minus 9 when the double exceeds 9) and the total must be
// divisible by 10.
func LuhnValid(number string) bool {
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// DetectType classifies a normalized card number by its prefix.
// Checks run in priority order; the first match wins.
func DetectType(number string) models.CardType {
	if number == "" {
		return models.CardTypeUnknown
	}
	two := prefixInt(number, 2)
	four := prefixInt(number, 4)
	switch {
	case number[0] == '4':
		return models.CardTypeVisa
	case (two >= 51 && two <= 55) || (four >= 2221 && four <= 2720):
		return models.CardTypeMastercard
	case two == 34 || two == 37:
		return models.CardTypeAmex
	case four == 6011 || two == 65:
		return models.CardTypeDiscover
	default:
		return models.CardTypeUnknown
	}
}

// Mask hides all but the last four digits of a card number.
func Mask(number string) string {
	if len(number) < 4 {
		return "****"
	}
	return "**** **** **** " + number[len(number)-4:]
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func prefixInt(number string, n int) int {
	if len(number) < n {
		return -1
	}
	v, err := strconv.Atoi(number[:n])
	if err != nil {
		return -1
	}
	return v
}
