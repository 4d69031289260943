package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// ---- Validation & Resources (VAL / RES) ----

// Validation returns a VAL_001 validation error.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

func ErrPayloadTooLarge() *AppError {
	return New("VAL_002", "Request body too large", http.StatusRequestEntityTooLarge)
}

func ErrNotFound(entity string) *AppError {
	return New("RES_001", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrAlreadyExists(entity string) *AppError {
	return New("RES_002", fmt.Sprintf("%s already exists", entity), http.StatusConflict)
}

func ErrInvalidTransition(from, to string) *AppError {
	return New("RES_003", fmt.Sprintf("cannot move donation from %s to %s", from, to), http.StatusConflict)
}

// ---- Ledger (LED) ----

func ErrInvalidCredential() *AppError {
	return New("LED_001", "Invalid source secret key", http.StatusUnauthorized)
}

func ErrSelfTransfer() *AppError {
	return New("LED_002", "Sender and recipient wallets must be different", http.StatusBadRequest)
}

func ErrUnfundedDestination() *AppError {
	return New("LED_003", "Destination account is not funded", http.StatusUnprocessableEntity)
}

func ErrInvalidAmount() *AppError {
	return New("LED_004", "Invalid amount", http.StatusBadRequest)
}

// ---- Receipts (RCP) ----

func ErrInvalidReceipt() *AppError {
	return New("RCP_001", "Invalid or expired receipt", http.StatusUnauthorized)
}

func ErrReceiptUnavailable() *AppError {
	return New("RCP_002", "Receipts are only issued for confirmed donations", http.StatusConflict)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

func ErrLedgerInvariant(err error) *AppError {
	return Wrap("SYS_002", "Ledger invariant violated", http.StatusInternalServerError, err)
}

func ErrStorage(err error) *AppError {
	return Wrap("SYS_003", "Storage failure", http.StatusInternalServerError, err)
}
