package errors

import "errors"

var (
	// ErrPaymentNotFound indicates that no payment matches the id or vendor reference
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrInvalidTransition indicates a status change the payment state machine forbids
	ErrInvalidTransition = errors.New("invalid payment status transition")

	// ErrAlreadyCaptured indicates a capture request for an order that is past pending
	ErrAlreadyCaptured = errors.New("payment already captured")

	// ErrIdempotencyMismatch indicates an idempotency key reused with a different request
	ErrIdempotencyMismatch = errors.New("idempotency key reused with different parameters")

	// ErrProviderNotConfigured indicates a request for a vendor without credentials
	ErrProviderNotConfigured = errors.New("payment provider not configured")

	// ErrPlanNotFound indicates an unknown or inactive catalogue plan
	ErrPlanNotFound = errors.New("plan not found")

	// ErrEventNotFound indicates an unknown webhook event
	ErrEventNotFound = errors.New("webhook event not found")
)

// ErrDuplicatePayment indicates a concurrent create with the same idempotency key
var ErrDuplicatePayment = errors.New("payment with this idempotency key already exists")
