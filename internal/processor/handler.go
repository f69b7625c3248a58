package processor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"payment-gateway-backend/internal/models"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// StatusReader is the read-only subset of the ledger used by the
// transaction-status proxy endpoint.
type StatusReader interface {
	GetTransaction(ctx context.Context, id int64, authToken string) (*models.Transaction, error)
}

// Handler exposes the processor's HTTP surface.
type Handler struct {
	proc   *Processor
	reader StatusReader
	log    *logrus.Logger
}

func NewHandler(proc *Processor, reader StatusReader, log *logrus.Logger) *Handler {
	return &Handler{proc: proc, reader: reader, log: log}
}

// PaymentRequest asks for settlement of one transaction. The auth
// token, when present, is forwarded unchanged on every outbound call.
type PaymentRequest struct {
	TransactionID int64  `json:"transaction_id"`
	AuthToken     string `json:"auth_token,omitempty"`
}

// PaymentResponse reports a committed settlement outcome.
type PaymentResponse struct {
	Status        string           `json:"status"`
	Message       string           `json:"message"`
	TransactionID int64            `json:"transaction_id"`
	PaymentStatus string           `json:"payment_status,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Timestamp     string           `json:"timestamp"`
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func (h *Handler) writeError(w http.ResponseWriter, code int, transactionID int64, message string) {
	writeJSON(w, code, PaymentResponse{
		Status:        "error",
		Message:       message,
		TransactionID: transactionID,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	})
}

// Root describes the service.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Payment Gateway - Payment Processor API",
		"version": "1.0.0",
		"status":  "active",
	})
}

// Health reports service liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ProcessPayment settles a pending transaction and reports the
// committed outcome. A communication or reconciliation failure is not
// a payment result: the stored status stays authoritative and the
// caller must re-query before retrying.
func (h *Handler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, 0, "Invalid request payload")
		return
	}
	if req.TransactionID <= 0 {
		h.writeError(w, http.StatusBadRequest, req.TransactionID, "Transaction ID must be positive")
		return
	}

	outcome, err := h.proc.Settle(r.Context(), req.TransactionID, req.AuthToken)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			h.writeError(w, http.StatusNotFound, req.TransactionID, "Transaction not found")
		case errors.Is(err, models.ErrInvalidTransition):
			h.writeError(w, http.StatusConflict, req.TransactionID, "Transaction already settled")
		case errors.Is(err, models.ErrReconciliation):
			h.writeError(w, http.StatusBadGateway, req.TransactionID, "Failed to update transaction status")
		case errors.Is(err, models.ErrCommunication):
			h.writeError(w, http.StatusBadGateway, req.TransactionID, "Communication error with payment gateway")
		default:
			h.writeError(w, http.StatusInternalServerError, req.TransactionID, "Payment processing failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, PaymentResponse{
		Status:        "success",
		Message:       outcome.Reason,
		TransactionID: outcome.TransactionID,
		PaymentStatus: string(outcome.Status),
		Amount:        &outcome.Amount,
		Timestamp:     outcome.Timestamp.UTC().Format(time.RFC3339),
	})
}

// TransactionStatus proxies a read of the transaction's current state,
// forwarding the caller's bearer token when present.
func (h *Handler) TransactionStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, 0, "Invalid transaction ID")
		return
	}

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	tx, err := h.reader.GetTransaction(r.Context(), id, token)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			h.writeError(w, http.StatusNotFound, id, "Transaction not found")
		default:
			h.writeError(w, http.StatusBadGateway, id, "Failed to fetch transaction status")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": tx})
}

type testCard struct {
	Number   string `json:"number"`
	Type     string `json:"type"`
	LastFour string `json:"last_four"`
	Result   string `json:"result"`
	CVV      string `json:"cvv"`
	Expiry   string `json:"expiry"`
}

// TestCards lists synthetic cards for exercising the simulation.
func (h *Handler) TestCards(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "Test cards for payment simulation",
		"cards": []testCard{
			{Number: "4532015112830366", Type: "Visa", LastFour: "0366", Result: "SUCCESS", CVV: "123", Expiry: "12/2030"},
			{Number: "5425233430109903", Type: "Mastercard", LastFour: "9903", Result: "FAILED", CVV: "456", Expiry: "06/2031"},
			{Number: "374245455400126", Type: "Amex", LastFour: "0126", Result: "SUCCESS", CVV: "7890", Expiry: "09/2030"},
			{Number: "4532015112855678", Type: "Visa", LastFour: "5678", Result: "FAILED", CVV: "789", Expiry: "09/2029"},
		},
		"note": "Cards with last 4 digits 0000-4999 will succeed, 5000-9999 will fail",
	})
}

// Routes registers the processor endpoints on r.
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/", h.Root).Methods("GET")
	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/process-payment", h.ProcessPayment).Methods("POST")
	r.HandleFunc("/transaction-status/{id:[0-9]+}", h.TransactionStatus).Methods("GET")
	r.HandleFunc("/dummy-cards", h.TestCards).Methods("GET")
}
