package cards_test

import (
	"testing"
	"time"

	"payment-gateway-backend/internal/cards"
	"payment-gateway-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC)
	}
}

func validRequest() models.AddCardRequest {
	return models.AddCardRequest{
		CardNumber:     "4532015112830366",
		CVV:            "123",
		CardHolderName: "John Doe",
		ExpiryMonth:    "12",
		ExpiryYear:     "2030",
	}
}

func TestValidateAcceptsValidCard(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	require := require.New(t)

	card, err := cards.NewValidatorAt(fixedClock()).Validate(validRequest())
	require.NoError(err)
	assert.Equal(models.CardTypeVisa, card.CardType)
	assert.Equal("**** **** **** 0366", card.MaskedNumber)
	assert.Equal("0366", card.LastFourDigits)
	assert.Equal("JOHN DOE", card.CardHolderName)
	assert.Equal("12", card.ExpiryMonth)
	assert.Equal("2030", card.ExpiryYear)
}

func TestValidateNormalizesSpacesAndHyphens(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	req := validRequest()
	req.CardNumber = "4532-0151 1283-0366"
	card, err := cards.NewValidatorAt(fixedClock()).Validate(req)
	require.NoError(err)
	require.Equal("0366", card.LastFourDigits)
}

func TestValidateCVVNeverStored(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	card, err := cards.NewValidatorAt(fixedClock()).Validate(validRequest())
	assert.NoError(err)
	// The projection has no CVV field at all; the masked number must
	// not leak the full PAN either.
	assert.NotContains(card.MaskedNumber, "453201511283")
}

func TestValidateLuhn(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		number string
		valid  bool
	}{
		{"known visa", "4532015112830366", true},
		{"classic test number", "4111111111111111", true},
		{"mastercard", "5425233430109903", true},
		{"amex", "374245455400126", true},
		{"off by one digit", "4532015112830367", false},
		{"transposed digits", "4532015112830636", false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.valid, cards.LuhnValid(tt.number))
		})
	}
}

func TestValidateRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*models.AddCardRequest)
		field  string
		rule   string
	}{
		{"non-digit number", func(r *models.AddCardRequest) { r.CardNumber = "4532abc112830366" }, "card_number", models.RuleFormat},
		{"too short", func(r *models.AddCardRequest) { r.CardNumber = "453201511283" }, "card_number", models.RuleFormat},
		{"too long", func(r *models.AddCardRequest) { r.CardNumber = "45320151128303661234" }, "card_number", models.RuleFormat},
		{"bad checksum", func(r *models.AddCardRequest) { r.CardNumber = "4532015112830367" }, "card_number", models.RuleChecksum},
		{"cvv too short", func(r *models.AddCardRequest) { r.CVV = "12" }, "cvv", models.RuleFormat},
		{"cvv too long", func(r *models.AddCardRequest) { r.CVV = "12345" }, "cvv", models.RuleFormat},
		{"cvv non-digit", func(r *models.AddCardRequest) { r.CVV = "12a" }, "cvv", models.RuleFormat},
		{"holder with digits", func(r *models.AddCardRequest) { r.CardHolderName = "John D0e" }, "card_holder_name", models.RuleFormat},
		{"empty holder", func(r *models.AddCardRequest) { r.CardHolderName = "" }, "card_holder_name", models.RuleFormat},
		{"month zero", func(r *models.AddCardRequest) { r.ExpiryMonth = "0" }, "expiry_month", models.RuleFormat},
		{"month thirteen", func(r *models.AddCardRequest) { r.ExpiryMonth = "13" }, "expiry_month", models.RuleFormat},
		{"two-digit year", func(r *models.AddCardRequest) { r.ExpiryYear = "30" }, "expiry_year", models.RuleFormat},
		{"expired year", func(r *models.AddCardRequest) { r.ExpiryYear = "2025" }, "expiry_date", models.RuleExpiry},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert := assert.New(t)
			require := require.New(t)

			req := validRequest()
			tt.mutate(&req)
			_, err := cards.NewValidatorAt(fixedClock()).Validate(req)
			require.Error(err)

			fe, ok := models.AsFieldErrors(err)
			require.True(ok, "expected FieldErrors, got %T", err)
			found := false
			for _, e := range fe {
				if e.Field == tt.field && e.Rule == tt.rule {
					found = true
				}
			}
			assert.True(found, "expected violation on %s/%s, got %v", tt.field, tt.rule, fe)
		})
	}
}

func TestValidateExpiryBoundary(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	v := cards.NewValidatorAt(fixedClock()) // clock pinned to 2026-08

	req := validRequest()
	req.ExpiryMonth = "8"
	req.ExpiryYear = "2026"
	_, err := v.Validate(req)
	assert.NoError(err, "card expiring in the current month is still valid")

	req.ExpiryMonth = "7"
	_, err = v.Validate(req)
	assert.Error(err, "card expired last month")
}

func TestValidateReportsAllViolations(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	req := models.AddCardRequest{
		CardNumber:     "not-a-number",
		CVV:            "x",
		CardHolderName: "123",
		ExpiryMonth:    "0",
		ExpiryYear:     "99",
	}
	_, err := cards.NewValidatorAt(fixedClock()).Validate(req)
	require.Error(err)

	fe, ok := models.AsFieldErrors(err)
	require.True(ok)
	byField := fe.ByField()
	for _, field := range []string{"card_number", "cvv", "card_holder_name", "expiry_month", "expiry_year"} {
		require.NotEmpty(byField[field], "expected a violation on %s", field)
	}
}

func TestDetectType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		number string
		want   models.CardType
	}{
		{"4532015112830366", models.CardTypeVisa},
		{"4111111111111111", models.CardTypeVisa},
		{"5425233430109903", models.CardTypeMastercard},
		{"5105105105105100", models.CardTypeMastercard},
		{"2221000000000009", models.CardTypeMastercard},
		{"2720990000000007", models.CardTypeMastercard},
		{"374245455400126", models.CardTypeAmex},
		{"341111111111111", models.CardTypeAmex},
		{"6011000990139424", models.CardTypeDiscover},
		{"6511111111111110", models.CardTypeDiscover},
		{"3056930009020004", models.CardTypeUnknown},
		{"9999999999999999", models.CardTypeUnknown},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.number, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, cards.DetectType(tt.number))
		})
	}
}

func TestMaskIdempotentDerivation(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	first := cards.Mask("4532015112830366")
	second := cards.Mask("4532015112830366")
	assert.Equal("**** **** **** 0366", first)
	assert.Equal(first, second)
	assert.Equal("****", cards.Mask("123"))
}
