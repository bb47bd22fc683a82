package xerrors

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

// ParsePGErrorCode extracts the SQLSTATE code from a pgx error.
func ParsePGErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code // e.g. 23505 for unique_violation, 40001 for serialization_failure
	}
	return "unknown"
}

// Generic
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternalServer = errors.New("internal server error")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("not found")
)

// Accounts / balances
var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountExists       = errors.New("account already exists")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrIneligibleRecipient = errors.New("recipient account type not eligible")
)

// Transactions
var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrTransactionExists   = errors.New("transaction already exists")
)

// Atomic commit outcomes
var (
	ErrTxConflict       = errors.New("transaction aborted by concurrent commit")
	ErrDeadlineExceeded = errors.New("deadline exceeded")
	ErrStoreUnavailable = errors.New("ledger store unavailable")
)

// HTTPStatus maps a ledger error to a transport status code. Only the
// boundary layer should call this; the engine never reasons about HTTP.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrTransactionNotFound),
		errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrIneligibleRecipient):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrTransactionExists),
		errors.Is(err, ErrAccountExists):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrTxConflict):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrDeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
