package provider

import (
	"errors"
	"fmt"

	"github.com/wekeepgrowing/jobportal-payment/internal/domain/model"
)

// ErrorKind classifies a vendor failure
type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindNotFound    ErrorKind = "not_found"
	KindConflict    ErrorKind = "conflict"
	KindRejected    ErrorKind = "rejected"
	KindUnavailable ErrorKind = "unavailable"
)

// ErrInvalidSignature is returned by ParseWebhook for unverifiable payloads
var ErrInvalidSignature = errors.New("invalid webhook signature")

// ProviderError is returned by every PaymentProvider operation that reached the vendor
type ProviderError struct {
	Provider model.ProviderType `json:"provider"`
	Kind     ErrorKind          `json:"kind"`
	Code     string             `json:"code,omitempty"`
	Message  string             `json:"message"`
	Err      error              `json:"-"`
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s %s", e.Provider, e.Kind)
	if e.Code != "" {
		msg += " (" + e.Code + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func NewError(provider model.ProviderType, kind ErrorKind, code, message string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Code: code, Message: message, Err: err}
}

// KindOf returns the classification of err, or "" when err is not a ProviderError.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsRetryable reports whether repeating the call may succeed.
func IsRetryable(err error) bool {
	return KindOf(err) == KindUnavailable
}
