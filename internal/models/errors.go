package models

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the transaction pipeline. Callers branch with
// errors.Is; the wrapped message carries the human-readable reason.
var (
	// ErrNotFound is returned when a card or transaction does not exist
	// or is owned by another user.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidTransition is returned when a status transition is
	// attempted on an already-terminal transaction.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInvalidStatus is returned when the requested target status is
	// not one of the terminal values.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrCommunication is returned when a cross-service call fails at
	// the transport level or times out. The stored transaction status
	// stays authoritative; callers must re-query before retrying.
	ErrCommunication = errors.New("communication error")
	// ErrReconciliation is returned when a settlement decision was
	// computed but could not be written back to the store. The
	// transaction remains PENDING.
	ErrReconciliation = errors.New("reconciliation error")
)

// Validation rule kinds, the machine-readable side of a FieldError.
const (
	RuleFormat   = "format"
	RuleChecksum = "checksum"
	RuleExpiry   = "expiry"
	RuleRange    = "range"
)

// FieldError is a single violated validation rule on a named field.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// FieldErrors accumulates every violated rule so callers see all
// failures at once, field by field.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	msgs := make([]string, len(fe))
	for i, e := range fe {
		msgs[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Add appends a violation and returns the extended list.
func (fe FieldErrors) Add(field, rule, message string) FieldErrors {
	return append(fe, FieldError{Field: field, Rule: rule, Message: message})
}

// ByField groups messages per field for error response payloads.
func (fe FieldErrors) ByField() map[string][]string {
	out := make(map[string][]string, len(fe))
	for _, e := range fe {
		out[e.Field] = append(out[e.Field], e.Message)
	}
	return out
}

// AsFieldErrors unwraps err into FieldErrors if it is one.
func AsFieldErrors(err error) (FieldErrors, bool) {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
