package repository

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"payment-gateway-backend/internal/models"
)

// Repository provides database operations for cards and transactions.
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateCard persists the non-sensitive card projection.
func (r *Repository) CreateCard(card *models.Card) error {
	query := `
		INSERT INTO payments.cards
			(user_id, card_type, masked_number, last_four_digits, card_holder_name, expiry_month, expiry_year, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err := r.db.QueryRow(query,
		card.UserID, card.CardType, card.MaskedNumber, card.LastFourDigits,
		card.CardHolderName, card.ExpiryMonth, card.ExpiryYear).
		Scan(&card.ID, &card.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create card: %w", err)
	}
	return nil
}

// FindCardByID retrieves a card owned by the given user. A card owned
// by another user is indistinguishable from a missing one.
func (r *Repository) FindCardByID(id, userID int64) (*models.Card, error) {
	card := &models.Card{}
	query := `
		SELECT id, user_id, card_type, masked_number, last_four_digits, card_holder_name, expiry_month, expiry_year, created_at
		FROM payments.cards
		WHERE id = $1 AND user_id = $2`
	err := r.db.QueryRow(query, id, userID).
		Scan(&card.ID, &card.UserID, &card.CardType, &card.MaskedNumber, &card.LastFourDigits,
			&card.CardHolderName, &card.ExpiryMonth, &card.ExpiryYear, &card.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: card %d", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find card: %w", err)
	}
	return card, nil
}

// ListCards returns all cards for a user, newest first.
func (r *Repository) ListCards(userID int64) ([]models.Card, error) {
	query := `
		SELECT id, user_id, card_type, masked_number, last_four_digits, card_holder_name, expiry_month, expiry_year, created_at
		FROM payments.cards
		WHERE user_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	var cards []models.Card
	for rows.Next() {
		var card models.Card
		if err := rows.Scan(&card.ID, &card.UserID, &card.CardType, &card.MaskedNumber, &card.LastFourDigits,
			&card.CardHolderName, &card.ExpiryMonth, &card.ExpiryYear, &card.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

// DeleteCard removes a card owned by the given user.
func (r *Repository) DeleteCard(id, userID int64) error {
	res, err := r.db.Exec(`DELETE FROM payments.cards WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: card %d", models.ErrNotFound, id)
	}
	return nil
}

// CreateTransaction persists a new transaction. The status column is
// set by the database default and always starts PENDING.
func (r *Repository) CreateTransaction(tx *models.Transaction) error {
	query := `
		INSERT INTO payments.transactions
			(user_id, card_id, amount, currency, status, payment_method, description, owner_email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'PENDING', $5, $6, $7, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, status, created_at, updated_at`
	err := r.db.QueryRow(query,
		tx.UserID, tx.CardID, tx.Amount, tx.Currency, tx.PaymentMethod, tx.Description, tx.OwnerEmail).
		Scan(&tx.ID, &tx.Status, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

const transactionColumns = `
	t.id, t.user_id, t.card_id, t.amount, t.currency, t.status, t.payment_method,
	t.description, t.owner_email, t.created_at, t.updated_at,
	c.id, c.user_id, c.card_type, c.masked_number, c.last_four_digits, c.card_holder_name,
	c.expiry_month, c.expiry_year, c.created_at`

func scanTransaction(row interface{ Scan(...any) error }) (*models.Transaction, error) {
	tx := &models.Transaction{CardDetails: &models.Card{}}
	c := tx.CardDetails
	err := row.Scan(
		&tx.ID, &tx.UserID, &tx.CardID, &tx.Amount, &tx.Currency, &tx.Status, &tx.PaymentMethod,
		&tx.Description, &tx.OwnerEmail, &tx.CreatedAt, &tx.UpdatedAt,
		&c.ID, &c.UserID, &c.CardType, &c.MaskedNumber, &c.LastFourDigits, &c.CardHolderName,
		&c.ExpiryMonth, &c.ExpiryYear, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// FindTransactionByID retrieves a transaction with its card projection.
func (r *Repository) FindTransactionByID(id int64) (*models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM payments.transactions t
		JOIN payments.cards c ON c.id = t.card_id
		WHERE t.id = $1`
	tx, err := scanTransaction(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: transaction %d", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find transaction: %w", err)
	}
	return tx, nil
}

// ListTransactions returns a user's transactions, newest first,
// narrowed by the optional filter fields.
func (r *Repository) ListTransactions(userID int64, f models.TransactionFilter) ([]models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM payments.transactions t
		JOIN payments.cards c ON c.id = t.card_id
		WHERE t.user_id = $1`
	args := []any{userID}

	addArg := func(clause string, v any) {
		args = append(args, v)
		query += " AND " + clause + "$" + strconv.Itoa(len(args))
	}
	if f.Status != "" {
		addArg("t.status = ", f.Status)
	}
	if f.DateFrom != nil {
		addArg("t.created_at >= ", *f.DateFrom)
	}
	if f.DateTo != nil {
		addArg("t.created_at <= ", *f.DateTo)
	}
	if f.MinAmount != nil {
		addArg("t.amount >= ", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		addArg("t.amount <= ", *f.MaxAmount)
	}
	query += " ORDER BY t.created_at DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, *tx)
	}
	return txs, rows.Err()
}

// ListPendingOlderThan returns ids of PENDING transactions created more
// than age ago. Used by the settlement sweeper.
func (r *Repository) ListPendingOlderThan(age time.Duration) ([]int64, error) {
	query := `
		SELECT id FROM payments.transactions
		WHERE status = 'PENDING' AND created_at <= $1
		ORDER BY id`
	rows, err := r.db.Query(query, time.Now().Add(-age))
	if err != nil {
		return nil, fmt.Errorf("failed to list pending transactions: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan transaction id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// TransitionIfPending atomically moves a transaction from PENDING to
// the given terminal status. The guard lives in the UPDATE itself, so
// of two concurrent settlement attempts only one commits; the loser
// gets ErrInvalidTransition with the already-committed status.
func (r *Repository) TransitionIfPending(id int64, status models.TransactionStatus) (*models.Transaction, error) {
	query := `
		UPDATE payments.transactions
		SET status = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = 'PENDING'
		RETURNING id`
	var updatedID int64
	err := r.db.QueryRow(query, id, status).Scan(&updatedID)
	if err == sql.ErrNoRows {
		var current models.TransactionStatus
		err = r.db.QueryRow(`SELECT status FROM payments.transactions WHERE id = $1`, id).Scan(&current)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: transaction %d", models.ErrNotFound, id)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read transaction status: %w", err)
		}
		return nil, fmt.Errorf("%w: transaction %d is already %s", models.ErrInvalidTransition, id, current)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update transaction status: %w", err)
	}
	return r.FindTransactionByID(id)
}
