package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"payment-gateway-backend/internal/config"
	"payment-gateway-backend/internal/middleware"
	"payment-gateway-backend/internal/models"
	"payment-gateway-backend/internal/service"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Handler exposes the gateway HTTP surface.
type Handler struct {
	svc *service.Service
	log *logrus.Logger
}

func NewHandler(svc *service.Service, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Routes registers the gateway API under /api on r. Card and intake
// routes need an end-user token; transaction reads allow anonymous
// status queries; transitions and the pending sweep need the service
// token or a user token, never anonymous access.
func (h *Handler) Routes(r *mux.Router, cfg *config.Config) {
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", h.Health).Methods("GET")

	cardRouter := api.PathPrefix("/cards").Subrouter()
	cardRouter.Use(middleware.AuthMiddleware(cfg))
	cardRouter.HandleFunc("/", h.AddCard).Methods("POST")
	cardRouter.HandleFunc("/", h.ListCards).Methods("GET")
	cardRouter.HandleFunc("/{id:[0-9]+}", h.GetCard).Methods("GET")
	cardRouter.HandleFunc("/{id:[0-9]+}", h.DeleteCard).Methods("DELETE")

	txRouter := api.PathPrefix("/transactions").Subrouter()
	txRouter.Use(middleware.AuthMiddleware(cfg))
	txRouter.HandleFunc("/create", h.CreateTransaction).Methods("POST")
	txRouter.HandleFunc("/list", h.ListTransactions).Methods("GET")

	readRouter := api.PathPrefix("/transactions").Subrouter()
	readRouter.Use(middleware.OptionalAuthMiddleware(cfg))
	readRouter.HandleFunc("/{id:[0-9]+}", h.GetTransaction).Methods("GET")

	settleRouter := api.PathPrefix("/transactions").Subrouter()
	settleRouter.Use(middleware.ServiceAuthMiddleware(cfg))
	settleRouter.HandleFunc("/{id:[0-9]+}/update-status", h.UpdateTransactionStatus).Methods("PATCH")
	settleRouter.HandleFunc("/pending", h.ListPendingTransactions).Methods("GET")
}

type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, code int, message string, data any) {
	writeJSON(w, code, envelope{Status: "success", Message: message, Data: data})
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, envelope{Status: "error", Message: message})
}

// writeServiceError maps domain errors onto HTTP responses. Validation
// failures carry field-level detail like the serializer errors the API
// clients already expect.
func writeServiceError(w http.ResponseWriter, err error, message string) {
	if fe, ok := models.AsFieldErrors(err); ok {
		writeJSON(w, http.StatusBadRequest, envelope{
			Status:  "error",
			Message: message,
			Errors:  fe.ByField(),
		})
		return
	}
	switch {
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "Invalid status")
	case errors.Is(err, models.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

// Health reports service liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// AddCard validates and stores a new card for the authenticated user.
func (h *Handler) AddCard(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req models.AddCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	card, err := h.svc.AddCard(userID, req)
	if err != nil {
		writeServiceError(w, err, "Failed to add card")
		return
	}
	writeSuccess(w, http.StatusCreated, "Card added successfully", card)
}

// ListCards lists the authenticated user's cards.
func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	cards, err := h.svc.ListCards(userID)
	if err != nil {
		writeServiceError(w, err, "Failed to list cards")
		return
	}
	count := len(cards)
	if cards == nil {
		cards = []models.Card{}
	}
	writeJSON(w, http.StatusOK, envelope{Status: "success", Data: cards, Count: &count})
}

// GetCard returns one of the authenticated user's cards.
func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid card ID")
		return
	}

	card, err := h.svc.GetCard(id, userID)
	if err != nil {
		writeServiceError(w, err, "Failed to get card")
		return
	}
	writeSuccess(w, http.StatusOK, "", card)
}

// DeleteCard removes one of the authenticated user's cards.
func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid card ID")
		return
	}

	info, err := h.svc.DeleteCard(id, userID)
	if err != nil {
		writeServiceError(w, err, "Failed to delete card")
		return
	}
	writeSuccess(w, http.StatusOK, fmt.Sprintf("Card %s deleted successfully", info), nil)
}

// CreateTransaction opens a new PENDING transaction.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req models.CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	tx, err := h.svc.CreateTransaction(userID, middleware.UserEmail(r.Context()), req)
	if err != nil {
		writeServiceError(w, err, "Failed to create transaction")
		return
	}
	writeSuccess(w, http.StatusCreated, "Transaction created successfully", tx)
}

// ListTransactions lists the authenticated user's transactions with
// optional status, date and amount filters.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	txs, err := h.svc.ListTransactions(userID, filter)
	if err != nil {
		writeServiceError(w, err, "Failed to list transactions")
		return
	}
	count := len(txs)
	if txs == nil {
		txs = []models.Transaction{}
	}
	writeJSON(w, http.StatusOK, envelope{Status: "success", Data: txs, Count: &count})
}

func parseFilter(r *http.Request) (models.TransactionFilter, error) {
	var f models.TransactionFilter
	q := r.URL.Query()

	if s := q.Get("status"); s != "" {
		status := models.TransactionStatus(s)
		if !status.Valid() {
			return f, fmt.Errorf("unknown status %q", s)
		}
		f.Status = status
	}
	for name, dst := range map[string]**time.Time{"date_from": &f.DateFrom, "date_to": &f.DateTo} {
		if s := q.Get(name); s != "" {
			t, err := time.Parse("2006-01-02", s)
			if err != nil {
				return f, fmt.Errorf("invalid %s, expected YYYY-MM-DD", name)
			}
			*dst = &t
		}
	}
	for name, dst := range map[string]**decimal.Decimal{"min_amount": &f.MinAmount, "max_amount": &f.MaxAmount} {
		if s := q.Get(name); s != "" {
			d, err := decimal.NewFromString(s)
			if err != nil {
				return f, fmt.Errorf("invalid %s", name)
			}
			*dst = &d
		}
	}
	return f, nil
}

// GetTransaction returns a transaction. Authenticated users only see
// their own; anonymous and service-token reads are unrestricted, which
// keeps the settlement processor's fetch path working.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid transaction ID")
		return
	}

	tx, err := h.svc.GetTransaction(id)
	if err != nil {
		writeServiceError(w, err, "Failed to get transaction")
		return
	}
	if userID, ok := middleware.UserID(r.Context()); ok && tx.UserID != userID {
		writeError(w, http.StatusNotFound, "Transaction not found")
		return
	}
	writeSuccess(w, http.StatusOK, "", tx)
}

// UpdateTransactionStatus commits a settlement decision. Reached by
// the settlement processor with the service token, or by an
// authenticated operator; never anonymously.
func (h *Handler) UpdateTransactionStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid transaction ID")
		return
	}

	var req models.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	tx, err := h.svc.TransitionStatus(id, req.Status)
	if err != nil {
		writeServiceError(w, err, "Failed to update transaction status")
		return
	}
	writeSuccess(w, http.StatusOK, fmt.Sprintf("Transaction status updated to %s", tx.Status), tx)
}

// ListPendingTransactions returns stale PENDING transaction ids for
// the settlement sweeper. Service-token only.
func (h *Handler) ListPendingTransactions(w http.ResponseWriter, r *http.Request) {
	if !middleware.IsServiceCall(r.Context()) {
		writeError(w, http.StatusForbidden, "Service credential required")
		return
	}

	olderThan := 0 * time.Second
	if s := r.URL.Query().Get("older_than"); s != "" {
		secs, err := strconv.Atoi(s)
		if err != nil || secs < 0 {
			writeError(w, http.StatusBadRequest, "Invalid older_than, expected seconds")
			return
		}
		olderThan = time.Duration(secs) * time.Second
	}

	ids, err := h.svc.ListPendingOlderThan(olderThan)
	if err != nil {
		writeServiceError(w, err, "Failed to list pending transactions")
		return
	}
	count := len(ids)
	if ids == nil {
		ids = []int64{}
	}
	writeJSON(w, http.StatusOK, envelope{Status: "success", Data: ids, Count: &count})
}
