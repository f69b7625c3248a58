package processor_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"payment-gateway-backend/internal/config"
	"payment-gateway-backend/internal/handler"
	"payment-gateway-backend/internal/integrations/ledger"
	"payment-gateway-backend/internal/models"
	"payment-gateway-backend/internal/processor"
	"payment-gateway-backend/internal/service"
	"payment-gateway-backend/internal/testutil"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// e2e wires a real gateway over HTTP behind a real ledger client, so
// settlement runs the same path as in production: processor endpoint,
// gateway API, store transition guard.
type e2e struct {
	store     *testutil.FakeStore
	svc       *service.Service
	gateway   *httptest.Server
	processor *mux.Router
	client    *ledger.Client
}

func newE2E(t *testing.T) *e2e {
	t.Helper()

	store := testutil.NewFakeStore()
	svc := service.NewService(store, testutil.Logger(), nil)

	gr := mux.NewRouter()
	handler.NewHandler(svc, testutil.Logger()).Routes(gr, &config.Config{
		JWTSecret:    "secret",
		ServiceToken: "svc-token",
	})
	gateway := httptest.NewServer(gr)
	t.Cleanup(gateway.Close)

	client := ledger.NewClient(&config.Config{
		GatewayURL:   gateway.URL + "/api",
		ServiceToken: "svc-token",
		HTTPTimeout:  5 * time.Second,
	}, testutil.Logger())

	proc := processor.New(client, processor.ThresholdPolicy{}, 0, testutil.Logger())
	pr := mux.NewRouter()
	processor.NewHandler(proc, client, testutil.Logger()).Routes(pr)

	return &e2e{store: store, svc: svc, gateway: gateway, processor: pr, client: client}
}

// seed creates a card and a PENDING transaction for user 1.
func (e *e2e) seed(t *testing.T, cardNumber, amount string) int64 {
	t.Helper()
	card, err := e.svc.AddCard(1, models.AddCardRequest{
		CardNumber:     cardNumber,
		CVV:            "123",
		CardHolderName: "John Doe",
		ExpiryMonth:    "12",
		ExpiryYear:     "2031",
	})
	require.NoError(t, err)

	tx, err := e.svc.CreateTransaction(1, "", models.CreateTransactionRequest{
		CardID: card.ID,
		Amount: decimal.RequireFromString(amount),
	})
	require.NoError(t, err)
	return tx.ID
}

func (e *e2e) processPayment(t *testing.T, id int64) (*httptest.ResponseRecorder, processor.PaymentResponse) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(processor.PaymentRequest{TransactionID: id}))
	req := httptest.NewRequest(http.MethodPost, "/process-payment", &buf)
	rec := httptest.NewRecorder()
	e.processor.ServeHTTP(rec, req)

	var resp processor.PaymentResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec, resp
}

func TestProcessPaymentApproves(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	env := newE2E(t)

	id := env.seed(t, "4532015112830366", "49.99")

	rec, resp := env.processPayment(t, id)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal("success", resp.Status)
	assert.Equal("Payment processed successfully", resp.Message)
	assert.Equal(id, resp.TransactionID)
	assert.Equal("SUCCESS", resp.PaymentStatus)
	require.NotNil(t, resp.Amount)
	assert.True(resp.Amount.Equal(decimal.RequireFromString("49.99")))

	stored := env.store.Transaction(id)
	assert.Equal(models.StatusSuccess, stored.Status)
	assert.False(stored.UpdatedAt.Before(stored.CreatedAt))
}

func TestProcessPaymentDeclines(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	env := newE2E(t)

	id := env.seed(t, "4532015112855678", "10.00")

	rec, resp := env.processPayment(t, id)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal("Insufficient funds or card declined", resp.Message)
	assert.Equal("FAILED", resp.PaymentStatus)
	assert.Equal(models.StatusFailed, env.store.Transaction(id).Status)
}

func TestProcessPaymentRepeatConflicts(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	env := newE2E(t)

	id := env.seed(t, "4532015112830366", "10.00")

	rec, _ := env.processPayment(t, id)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp := env.processPayment(t, id)
	assert.Equal(http.StatusConflict, rec.Code)
	assert.Equal("Transaction already settled", resp.Message)
	assert.Equal(models.StatusSuccess, env.store.Transaction(id).Status, "first decision stands")
}

func TestProcessPaymentUnknownTransaction(t *testing.T) {
	t.Parallel()
	env := newE2E(t)

	rec, resp := env.processPayment(t, 99999)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Transaction not found", resp.Message)
}

func TestProcessPaymentRejectsBadID(t *testing.T) {
	t.Parallel()
	env := newE2E(t)

	rec, _ := env.processPayment(t, 0)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransactionStatusProxy(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	env := newE2E(t)

	id := env.seed(t, "4532015112830366", "25.00")
	env.processPayment(t, id)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/transaction-status/%d", id), nil)
	rec := httptest.NewRecorder()
	env.processor.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Status string             `json:"status"`
		Data   models.Transaction `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal("success", body.Status)
	assert.Equal(models.StatusSuccess, body.Data.Status)
	assert.Equal("0366", body.Data.CardDetails.LastFourDigits)
}

func TestSweeperSettlesStalePending(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	env := newE2E(t)

	approved := env.seed(t, "4532015112830366", "10.00")
	declined := env.seed(t, "4532015112855678", "10.00")

	proc := processor.New(env.client, processor.ThresholdPolicy{}, 0, testutil.Logger())
	sweeper := processor.NewSweeper(proc, env.client, 0, testutil.Logger())
	sweeper.Sweep(context.Background())

	assert.Equal(models.StatusSuccess, env.store.Transaction(approved).Status)
	assert.Equal(models.StatusFailed, env.store.Transaction(declined).Status)

	// A second sweep finds nothing left to settle.
	sweeper.Sweep(context.Background())
	assert.Equal(models.StatusSuccess, env.store.Transaction(approved).Status)
}
