package service_test

import (
	"sync"
	"testing"

	"payment-gateway-backend/internal/models"
	"payment-gateway-backend/internal/service"
	"payment-gateway-backend/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*service.Service, *testutil.FakeStore) {
	t.Helper()
	store := testutil.NewFakeStore()
	return service.NewService(store, testutil.Logger(), nil), store
}

func addCard(t *testing.T, svc *service.Service, userID int64) *models.Card {
	t.Helper()
	card, err := svc.AddCard(userID, models.AddCardRequest{
		CardNumber:     "4532015112830366",
		CVV:            "123",
		CardHolderName: "John Doe",
		ExpiryMonth:    "12",
		ExpiryYear:     "2031",
	})
	require.NoError(t, err)
	return card
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAddCardStoresProjectionOnly(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	svc, store := newTestService(t)
	card := addCard(t, svc, 1)

	stored := store.Card(card.ID)
	assert.Equal(models.CardTypeVisa, stored.CardType)
	assert.Equal("**** **** **** 0366", stored.MaskedNumber)
	assert.Equal("0366", stored.LastFourDigits)
	assert.Equal(int64(1), stored.UserID)
}

func TestCreateTransactionStartsPending(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	require := require.New(t)

	svc, _ := newTestService(t)
	card := addCard(t, svc, 1)

	tx, err := svc.CreateTransaction(1, "john@example.com", models.CreateTransactionRequest{
		CardID:      card.ID,
		Amount:      amount("49.99"),
		Description: "Coffee subscription",
	})
	require.NoError(err)
	assert.Equal(models.StatusPending, tx.Status)
	assert.Equal("USD", tx.Currency, "currency defaults to USD")
	assert.Equal("VISA - 0366", tx.PaymentMethod)
	assert.True(tx.Amount.Equal(amount("49.99")))
	assert.Equal("john@example.com", tx.OwnerEmail)
}

func TestCreateTransactionAmountBounds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		amount string
		ok     bool
	}{
		{"zero", "0", false},
		{"negative", "-10", false},
		{"over limit", "100000.01", false},
		{"at limit", "100000", true},
		{"one cent", "0.01", true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc, _ := newTestService(t)
			card := addCard(t, svc, 1)

			_, err := svc.CreateTransaction(1, "", models.CreateTransactionRequest{
				CardID: card.ID,
				Amount: amount(tt.amount),
			})
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				_, isFieldErrs := models.AsFieldErrors(err)
				assert.True(t, isFieldErrs, "amount violations carry field detail")
			}
		})
	}
}

func TestCreateTransactionRejectsUnknownCurrency(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	card := addCard(t, svc, 1)

	_, err := svc.CreateTransaction(1, "", models.CreateTransactionRequest{
		CardID:   card.ID,
		Amount:   amount("10"),
		Currency: "JPY",
	})
	require.Error(t, err)
}

func TestCreateTransactionForeignCard(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	svc, _ := newTestService(t)
	card := addCard(t, svc, 1)

	// Another user cannot pay with user 1's card.
	_, err := svc.CreateTransaction(2, "", models.CreateTransactionRequest{
		CardID: card.ID,
		Amount: amount("10"),
	})
	assert.ErrorIs(err, models.ErrNotFound)
}

func TestTransitionStatusRules(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	require := require.New(t)

	svc, _ := newTestService(t)
	card := addCard(t, svc, 1)
	tx, err := svc.CreateTransaction(1, "", models.CreateTransactionRequest{CardID: card.ID, Amount: amount("10")})
	require.NoError(err)

	// Re-entering PENDING is never permitted.
	_, err = svc.TransitionStatus(tx.ID, models.StatusPending)
	assert.ErrorIs(err, models.ErrInvalidStatus)

	// Unknown statuses are rejected before touching the store.
	_, err = svc.TransitionStatus(tx.ID, models.TransactionStatus("REFUNDED"))
	assert.ErrorIs(err, models.ErrInvalidStatus)

	updated, err := svc.TransitionStatus(tx.ID, models.StatusSuccess)
	require.NoError(err)
	assert.Equal(models.StatusSuccess, updated.Status)
	assert.False(updated.UpdatedAt.Before(updated.CreatedAt))

	// Terminal states are immutable, even for a repeated identical request.
	_, err = svc.TransitionStatus(tx.ID, models.StatusSuccess)
	assert.ErrorIs(err, models.ErrInvalidTransition)
	_, err = svc.TransitionStatus(tx.ID, models.StatusFailed)
	assert.ErrorIs(err, models.ErrInvalidTransition)

	_, err = svc.TransitionStatus(99999, models.StatusFailed)
	assert.ErrorIs(err, models.ErrNotFound)
}

func TestConcurrentTransitionsSingleWinner(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	require := require.New(t)

	svc, _ := newTestService(t)
	card := addCard(t, svc, 1)
	tx, err := svc.CreateTransaction(1, "", models.CreateTransactionRequest{CardID: card.ID, Amount: amount("10")})
	require.NoError(err)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status := models.StatusSuccess
			if i%2 == 1 {
				status = models.StatusFailed
			}
			_, errs[i] = svc.TransitionStatus(tx.ID, status)
		}(i)
	}
	wg.Wait()

	committed := 0
	for _, err := range errs {
		if err == nil {
			committed++
		} else {
			assert.ErrorIs(err, models.ErrInvalidTransition)
		}
	}
	assert.Equal(1, committed, "exactly one transition commits")

	final, err := svc.GetTransaction(tx.ID)
	require.NoError(err)
	assert.True(final.Status.Terminal())
}

func TestListPendingOlderThan(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	require := require.New(t)

	svc, _ := newTestService(t)
	card := addCard(t, svc, 1)
	tx, err := svc.CreateTransaction(1, "", models.CreateTransactionRequest{CardID: card.ID, Amount: amount("10")})
	require.NoError(err)

	ids, err := svc.ListPendingOlderThan(0)
	require.NoError(err)
	assert.Contains(ids, tx.ID)

	_, err = svc.TransitionStatus(tx.ID, models.StatusFailed)
	require.NoError(err)

	ids, err = svc.ListPendingOlderThan(0)
	require.NoError(err)
	assert.NotContains(ids, tx.ID)
}
