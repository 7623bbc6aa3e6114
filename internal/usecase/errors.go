package usecase

import (
	"context"
	"errors"

	domainerrors "github.com/wekeepgrowing/jobportal-payment/internal/domain/errors"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/provider"
	pkgerrors "github.com/wekeepgrowing/jobportal-payment/pkg/errors"
)

// toAppError maps domain and vendor failures onto the shared error codes.
// Errors that already carry a code pass through unchanged.
func toAppError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *pkgerrors.AppError
	if errors.As(err, &appErr) {
		return err
	}

	var pe *provider.ProviderError
	if errors.As(err, &pe) {
		switch pe.Kind {
		case provider.KindValidation:
			return pkgerrors.NewAppError(pkgerrors.ErrInvalidArgument, pe.Message, err)
		case provider.KindNotFound:
			return pkgerrors.NewAppError(pkgerrors.ErrNotFound, pe.Message, err)
		case provider.KindConflict:
			return pkgerrors.NewAppError(pkgerrors.ErrConflict, pe.Message, err)
		case provider.KindUnavailable:
			return pkgerrors.NewAppError(pkgerrors.ErrVendorUnavailable, "payment provider is unavailable", err)
		default:
			return pkgerrors.NewAppError(pkgerrors.ErrVendorRejected, vendorMessage(pe), err)
		}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return pkgerrors.NewAppError(pkgerrors.ErrVendorUnavailable, "payment provider timed out", err)
	case errors.Is(err, domainerrors.ErrPaymentNotFound),
		errors.Is(err, domainerrors.ErrPlanNotFound),
		errors.Is(err, domainerrors.ErrSubscriptionNotFound),
		errors.Is(err, domainerrors.ErrEventNotFound):
		return pkgerrors.NewAppError(pkgerrors.ErrNotFound, err.Error(), err)
	case errors.Is(err, domainerrors.ErrInvalidTransition),
		errors.Is(err, domainerrors.ErrAlreadyCaptured),
		errors.Is(err, domainerrors.ErrIdempotencyMismatch),
		errors.Is(err, domainerrors.ErrDuplicatePayment),
		errors.Is(err, domainerrors.ErrSubscriptionCancelled):
		return pkgerrors.NewAppError(pkgerrors.ErrConflict, err.Error(), err)
	case errors.Is(err, domainerrors.ErrProviderNotConfigured),
		errors.Is(err, domainerrors.ErrPlanNotSubscribable):
		return pkgerrors.NewAppError(pkgerrors.ErrInvalidArgument, err.Error(), err)
	}

	return pkgerrors.NewAppError(pkgerrors.ErrInternal, "internal error", err)
}

func vendorMessage(pe *provider.ProviderError) string {
	if pe.Message != "" {
		return pe.Message
	}
	return "payment provider rejected the request"
}
