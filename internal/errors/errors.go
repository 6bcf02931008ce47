// Package errors defines the error taxonomy shared by the settlement
// services and the HTTP layer. Handlers translate these values to status
// codes with StatusCode.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInsufficientFunds   = errors.New("insufficient balance")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrDuplicate           = errors.New("duplicate record")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrTransactionLocked   = errors.New("transaction pin locked")
	ErrInvalidPin          = errors.New("invalid transaction pin")
	ErrPinNotSet           = errors.New("transaction pin not set")
	ErrNotFound            = errors.New("record not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUnauthorized        = errors.New("unauthorized")
)

// ValidationError reports malformed input. It never touches the ledger.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validation is a shorthand for &ValidationError{...}.
func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// ProviderError is a failure reported by, or while reaching, an external
// provider. Code is empty when no response code could be classified.
type ProviderError struct {
	Provider   string
	Code       string
	Message    string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Code != "":
		return fmt.Sprintf("%s: %s (%s)", e.Provider, e.Message, e.Code)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Classified reports whether the provider answered with a known failure code.
func (e *ProviderError) Classified() bool { return e.Code != "" }

// PersistenceError wraps a storage failure. Nothing was committed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Persistence wraps err unless it is nil or already part of the taxonomy.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsDomain(err) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// IsDomain reports whether err already carries a taxonomy meaning.
func IsDomain(err error) bool {
	var ve *ValidationError
	var pe *ProviderError
	var se *PersistenceError
	switch {
	case errors.As(err, &ve), errors.As(err, &pe), errors.As(err, &se):
		return true
	case errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrTransactionNotFound),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrWalletNotFound),
		errors.Is(err, ErrDuplicate),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrTransactionLocked),
		errors.Is(err, ErrInvalidPin),
		errors.Is(err, ErrPinNotSet),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrUnauthorized):
		return true
	}
	return false
}

// StatusCode maps an error to the HTTP status the API answers with.
func StatusCode(err error) int {
	var ve *ValidationError
	var pe *ProviderError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	case errors.As(err, &pe):
		if pe.Classified() {
			return http.StatusBadRequest
		}
		return http.StatusBadGateway
	case errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrDuplicate),
		errors.Is(err, ErrPinNotSet),
		errors.Is(err, ErrInvalidTransition):
		return http.StatusBadRequest
	case errors.Is(err, ErrTransactionNotFound),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrWalletNotFound),
		errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidPin),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrTransactionLocked):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
