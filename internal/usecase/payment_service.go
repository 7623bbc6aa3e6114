package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/entity"
	domainerrors "github.com/wekeepgrowing/jobportal-payment/internal/domain/errors"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/model"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/money"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/provider"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/repository"
	pkgerrors "github.com/wekeepgrowing/jobportal-payment/pkg/errors"
	"go.uber.org/zap"
)

// checkoutExpired is the failure code for checkouts the vendor no longer finds
const checkoutExpired = "checkout_expired"

// CheckoutInput is a Stripe hosted checkout for catalogue prices
type CheckoutInput struct {
	CustomerID     string
	IdempotencyKey string
	Items          []model.LineItem
}

// OrderInput is a PayPal order for an arbitrary amount
type OrderInput struct {
	CustomerID     string
	IdempotencyKey string
	Amount         decimal.Decimal
	Currency       string
}

// CheckoutResult points the buyer at the vendor's hosted page
type CheckoutResult struct {
	Payment     *model.Payment
	ProviderRef string
	URL         string
}

// CaptureOutput pairs the stored payment with the vendor's capture answer
type CaptureOutput struct {
	Payment *model.Payment
	Capture *provider.CaptureResult
}

type PaymentService struct {
	payments  repository.PaymentRepository
	providers *provider.Registry
	policy    VendorPolicy
	metrics   MetricsRecorder
	tx        *transitioner
	logger    *zap.Logger
}

func NewPaymentService(
	payments repository.PaymentRepository,
	providers *provider.Registry,
	publisher EventPublisher,
	metrics MetricsRecorder,
	policy VendorPolicy,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		payments:  payments,
		providers: providers,
		policy:    policy,
		metrics:   metrics,
		tx: &transitioner{
			payments:  payments,
			publisher: publisher,
			metrics:   metrics,
			logger:    logger,
		},
		logger: logger,
	}
}

// CreateStripeCheckout opens a one-time hosted checkout session for the given prices
func (s *PaymentService) CreateStripeCheckout(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	if len(in.Items) == 0 {
		return nil, pkgerrors.InvalidArgument("at least one line item is required")
	}
	for i, item := range in.Items {
		if strings.TrimSpace(item.Price) == "" {
			return nil, pkgerrors.InvalidArgument(fmt.Sprintf("items[%d].price is required", i))
		}
		if item.Quantity < 1 {
			return nil, pkgerrors.InvalidArgument(fmt.Sprintf("items[%d].quantity must be at least 1", i))
		}
	}

	p, err := s.providers.Get(model.ProviderStripe)
	if err != nil {
		return nil, toAppError(err)
	}

	candidate := s.newPayment(model.ProviderStripe, in.CustomerID, in.IdempotencyKey)
	candidate.LineItems = in.Items

	payment, done, err := s.begin(ctx, candidate, func(existing *model.Payment) bool {
		return sameLineItems(existing.LineItems, in.Items)
	})
	if err != nil || done {
		return s.result(payment), err
	}

	var checkout *provider.Checkout
	err = s.policy.call(ctx, s.metrics, p.Name(), "create_checkout", true, func(ctx context.Context) error {
		var callErr error
		checkout, callErr = p.CreateCheckout(ctx, &provider.CheckoutRequest{
			PaymentID:      payment.ID.String(),
			CustomerID:     in.CustomerID,
			IdempotencyKey: *payment.IdempotencyKey,
			LineItems:      in.Items,
		})
		return callErr
	})
	if err != nil {
		return nil, s.failCreate(ctx, payment, err)
	}

	return s.finishCreate(ctx, payment, checkout)
}

// CreatePayPalOrder creates a CAPTURE order for amount/currency
func (s *PaymentService) CreatePayPalOrder(ctx context.Context, in OrderInput) (*CheckoutResult, error) {
	currency, err := money.ParseCurrency(in.Currency)
	if err != nil {
		return nil, pkgerrors.InvalidArgument(err.Error())
	}
	if err := money.Validate(in.Amount, currency); err != nil {
		return nil, pkgerrors.InvalidArgument(err.Error())
	}

	p, err := s.providers.Get(model.ProviderPayPal)
	if err != nil {
		return nil, toAppError(err)
	}

	candidate := s.newPayment(model.ProviderPayPal, in.CustomerID, in.IdempotencyKey)
	candidate.Amount = in.Amount
	candidate.Currency = currency

	payment, done, err := s.begin(ctx, candidate, func(existing *model.Payment) bool {
		return existing.Amount.Equal(in.Amount) && existing.Currency == currency
	})
	if err != nil || done {
		return s.result(payment), err
	}

	var checkout *provider.Checkout
	err = s.policy.call(ctx, s.metrics, p.Name(), "create_checkout", true, func(ctx context.Context) error {
		var callErr error
		checkout, callErr = p.CreateCheckout(ctx, &provider.CheckoutRequest{
			PaymentID:      payment.ID.String(),
			CustomerID:     in.CustomerID,
			IdempotencyKey: *payment.IdempotencyKey,
			Amount:         in.Amount,
			Currency:       currency,
		})
		return callErr
	})
	if err != nil {
		return nil, s.failCreate(ctx, payment, err)
	}

	return s.finishCreate(ctx, payment, checkout)
}

// Capture completes an approved order. Orders already past pending are a conflict.
func (s *PaymentService) Capture(ctx context.Context, providerType model.ProviderType, providerRef string) (*CaptureOutput, error) {
	if strings.TrimSpace(providerRef) == "" {
		return nil, pkgerrors.InvalidArgument("order id is required")
	}

	payment, err := s.payments.GetByProviderRef(ctx, providerType, providerRef)
	if err != nil {
		if errors.Is(err, domainerrors.ErrPaymentNotFound) {
			return nil, pkgerrors.NotFound(fmt.Sprintf("order %s not found", providerRef))
		}
		return nil, toAppError(err)
	}

	switch payment.Status {
	case model.PaymentStatusCaptured, model.PaymentStatusSettled, model.PaymentStatusRefunded:
		return nil, toAppError(fmt.Errorf("%w: order %s is %s", domainerrors.ErrAlreadyCaptured, providerRef, payment.Status))
	case model.PaymentStatusFailed:
		return nil, toAppError(fmt.Errorf("%w: order %s has failed", domainerrors.ErrInvalidTransition, providerRef))
	}

	p, err := s.providers.Get(providerType)
	if err != nil {
		return nil, toAppError(err)
	}

	var captured *provider.CaptureResult
	err = s.policy.call(ctx, s.metrics, p.Name(), "capture", true, func(ctx context.Context) error {
		var callErr error
		captured, callErr = p.Capture(ctx, &provider.CaptureRequest{
			PaymentID:   payment.ID.String(),
			ProviderRef: providerRef,
		})
		return callErr
	})
	if err != nil {
		s.logger.Warn("Capture failed",
			zap.String("payment_id", payment.ID.String()),
			zap.String("provider_ref", providerRef),
			zap.Error(err))
		return nil, toAppError(err)
	}

	payment, _, err = s.tx.advance(ctx, payment, captured.Status, repository.TransitionUpdate{
		CaptureRef:     captured.CaptureRef,
		FailureCode:    captured.FailureCode,
		FailureMessage: captured.FailureMessage,
		ProviderData:   captured.Raw,
	})
	if err != nil {
		return nil, toAppError(err)
	}

	if payment.Status == model.PaymentStatusFailed {
		return nil, declinedCapture(providerType, providerRef, captured)
	}
	return &CaptureOutput{Payment: payment, Capture: captured}, nil
}

// declinedCapture reports a capture the vendor answered but did not complete
func declinedCapture(providerType model.ProviderType, providerRef string, captured *provider.CaptureResult) error {
	code := captured.FailureCode
	if code == "" {
		code = "CAPTURE_FAILED"
	}
	message := fmt.Sprintf("capture of order %s was declined (%s)", providerRef, code)
	if captured.FailureMessage != "" {
		message += ": " + captured.FailureMessage
	}
	pe := provider.NewError(providerType, provider.KindRejected, code, message, nil)
	return pkgerrors.NewAppError(pkgerrors.ErrVendorRejected, message, pe)
}

// GetPayment hides other customers' payments behind not found. An empty
// customerID reads any payment.
func (s *PaymentService) GetPayment(ctx context.Context, id uuid.UUID, customerID string) (*model.Payment, error) {
	payment, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, toAppError(err)
	}
	if customerID != "" && (payment.CustomerID == nil || *payment.CustomerID != customerID) {
		return nil, toAppError(domainerrors.ErrPaymentNotFound)
	}
	return payment, nil
}

func (s *PaymentService) ListPayments(ctx context.Context, customerID string, params entity.PaginationParams) (*entity.PaginatedPaymentsResponse, error) {
	if customerID == "" {
		return nil, pkgerrors.InvalidArgument("customer id is required")
	}
	if err := params.Normalize(); err != nil {
		return nil, pkgerrors.NewAppError(pkgerrors.ErrInvalidArgument, err.Error(), err)
	}

	payments, total, err := s.payments.ListByCustomer(ctx, repository.PaymentListFilter{
		CustomerID: customerID,
		Status:     params.Status,
		Provider:   params.Provider,
		Limit:      params.Limit,
		Offset:     params.Offset(),
	})
	if err != nil {
		return nil, toAppError(err)
	}
	if payments == nil {
		payments = []*model.Payment{}
	}

	return &entity.PaginatedPaymentsResponse{
		Data:       payments,
		Pagination: entity.NewPaginationMeta(params.Page, params.Limit, total),
	}, nil
}

// Refund returns the full amount of a captured or settled payment
func (s *PaymentService) Refund(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	payment, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, toAppError(err)
	}

	if payment.Status == model.PaymentStatusRefunded {
		return payment, nil
	}
	if !payment.Status.CanTransitionTo(model.PaymentStatusRefunded) {
		return nil, toAppError(fmt.Errorf("%w: cannot refund a %s payment", domainerrors.ErrInvalidTransition, payment.Status))
	}
	if payment.ProviderCaptureRef == nil || *payment.ProviderCaptureRef == "" {
		return nil, pkgerrors.Conflict("payment has no capture to refund")
	}

	p, err := s.providers.Get(payment.Provider)
	if err != nil {
		return nil, toAppError(err)
	}

	var refunded *provider.RefundResult
	err = s.policy.call(ctx, s.metrics, p.Name(), "refund", true, func(ctx context.Context) error {
		var callErr error
		refunded, callErr = p.Refund(ctx, &provider.RefundRequest{
			PaymentID:      payment.ID.String(),
			ProviderRef:    deref(payment.ProviderRef),
			CaptureRef:     *payment.ProviderCaptureRef,
			Amount:         payment.Amount,
			Currency:       payment.Currency,
			IdempotencyKey: "refund-" + payment.ID.String(),
		})
		return callErr
	})
	if err != nil {
		return nil, toAppError(err)
	}

	s.logger.Info("Payment refunded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("refund_id", refunded.ID),
		zap.String("refund_status", refunded.Status))

	payment, _, err = s.tx.advance(ctx, payment, model.PaymentStatusRefunded, repository.TransitionUpdate{
		ProviderData: model.JSONB{"refund_id": refunded.ID, "refund_status": refunded.Status},
	})
	if err != nil {
		return nil, toAppError(err)
	}
	return payment, nil
}

// Refresh re-reads the checkout from the vendor and applies its status
func (s *PaymentService) Refresh(ctx context.Context, id uuid.UUID, customerID string) (*model.Payment, error) {
	payment, err := s.GetPayment(ctx, id, customerID)
	if err != nil {
		return nil, err
	}
	payment, err = s.refresh(ctx, payment)
	if err != nil {
		return nil, toAppError(err)
	}
	return payment, nil
}

func (s *PaymentService) refresh(ctx context.Context, payment *model.Payment) (*model.Payment, error) {
	if payment.ProviderRef == nil {
		return nil, pkgerrors.Conflict("payment has no vendor checkout yet")
	}
	if payment.Status.IsTerminal() {
		return payment, nil
	}

	p, err := s.providers.Get(payment.Provider)
	if err != nil {
		return nil, err
	}

	var checkout *provider.Checkout
	err = s.policy.call(ctx, s.metrics, p.Name(), "get_checkout", true, func(ctx context.Context) error {
		var callErr error
		checkout, callErr = p.GetCheckout(ctx, *payment.ProviderRef)
		return callErr
	})
	if provider.KindOf(err) == provider.KindNotFound && payment.Status.CanTransitionTo(model.PaymentStatusFailed) {
		// PayPal stops answering for orders abandoned past their expiry
		payment, _, err = s.tx.advance(ctx, payment, model.PaymentStatusFailed, repository.TransitionUpdate{
			FailureCode:    checkoutExpired,
			FailureMessage: "vendor no longer knows this checkout",
		})
		return payment, err
	}
	if err != nil {
		return nil, err
	}

	payment, _, err = s.tx.advance(ctx, payment, checkout.Status, repository.TransitionUpdate{
		CaptureRef:   checkout.CaptureRef,
		ProviderData: checkout.Raw,
	})
	return payment, err
}

// SweepStale refreshes payments stuck in pending since before olderThan and
// reports how many changed status
func (s *PaymentService) SweepStale(ctx context.Context, olderThan time.Time, limit int) (int, error) {
	stale, err := s.payments.ListStale(ctx, model.PaymentStatusPending, olderThan, limit)
	if err != nil {
		return 0, err
	}

	// stamp first so rows that keep failing rotate behind the rest
	ids := make([]uuid.UUID, 0, len(stale))
	for _, payment := range stale {
		ids = append(ids, payment.ID)
	}
	if err := s.payments.MarkChecked(ctx, ids, time.Now()); err != nil {
		return 0, err
	}

	changed := 0
	for _, payment := range stale {
		if ctx.Err() != nil {
			return changed, ctx.Err()
		}

		fresh, err := s.refresh(ctx, payment)
		if err != nil {
			s.logger.Warn("Failed to refresh stale payment",
				zap.String("payment_id", payment.ID.String()),
				zap.Error(err))
			continue
		}
		if fresh.Status != payment.Status {
			changed++
		}
	}

	if len(stale) > 0 {
		s.logger.Info("Stale pending payments refreshed",
			zap.Int("checked", len(stale)),
			zap.Int("changed", changed))
	}
	return changed, nil
}

func (s *PaymentService) newPayment(p model.ProviderType, customerID, idempotencyKey string) *model.Payment {
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}
	payment := &model.Payment{
		ID:             uuid.New(),
		Provider:       p,
		Kind:           model.PaymentKindOneTime,
		IdempotencyKey: &idempotencyKey,
		Status:         model.PaymentStatusCreated,
	}
	if customerID != "" {
		payment.CustomerID = &customerID
	}
	return payment
}

// begin stores the candidate or resumes the payment created earlier with the
// same idempotency key. done reports that the stored payment already has a
// vendor checkout and no vendor call is needed.
func (s *PaymentService) begin(ctx context.Context, candidate *model.Payment, matches func(existing *model.Payment) bool) (*model.Payment, bool, error) {
	existing, err := s.payments.GetByIdempotencyKey(ctx, *candidate.IdempotencyKey)
	switch {
	case err == nil:
		return s.resume(existing, candidate, matches)
	case !errors.Is(err, domainerrors.ErrPaymentNotFound):
		return nil, false, toAppError(err)
	}

	if err := s.payments.Create(ctx, candidate); err != nil {
		if errors.Is(err, domainerrors.ErrDuplicatePayment) {
			return nil, false, pkgerrors.Conflict("a request with this idempotency key is already in progress")
		}
		return nil, false, toAppError(err)
	}
	return candidate, false, nil
}

func (s *PaymentService) resume(existing, candidate *model.Payment, matches func(existing *model.Payment) bool) (*model.Payment, bool, error) {
	if existing.Provider != candidate.Provider || !matches(existing) {
		return nil, false, toAppError(domainerrors.ErrIdempotencyMismatch)
	}
	if existing.Status == model.PaymentStatusFailed {
		return nil, false, pkgerrors.Conflict("a previous request with this idempotency key failed")
	}

	s.logger.Debug("Idempotent replay",
		zap.String("payment_id", existing.ID.String()),
		zap.String("status", string(existing.Status)))

	done := existing.ProviderRef != nil && existing.ApprovalURL != ""
	return existing, done, nil
}

// finishCreate attaches the vendor checkout and moves the payment to pending
func (s *PaymentService) finishCreate(ctx context.Context, payment *model.Payment, checkout *provider.Checkout) (*CheckoutResult, error) {
	if err := s.payments.AttachCheckout(ctx, payment.ID, checkout.ID, checkout.URL); err != nil {
		return nil, toAppError(err)
	}
	payment.ProviderRef = &checkout.ID
	payment.ApprovalURL = checkout.URL

	update := repository.TransitionUpdate{ProviderData: checkout.Raw}
	if payment.Amount.IsZero() && checkout.Currency != "" {
		update.Amount = checkout.Amount
		update.Currency = checkout.Currency
	}

	stored, _, err := s.tx.advance(ctx, payment, model.PaymentStatusPending, update)
	if err != nil {
		return nil, toAppError(err)
	}

	s.logger.Info("Checkout created",
		zap.String("payment_id", stored.ID.String()),
		zap.String("provider", string(stored.Provider)),
		zap.String("provider_ref", checkout.ID))

	return s.result(stored), nil
}

// failCreate records vendor rejections on the payment so the key is not
// reused. Unavailable vendors leave it created for a retry with the same key.
func (s *PaymentService) failCreate(ctx context.Context, payment *model.Payment, cause error) error {
	var pe *provider.ProviderError
	if errors.As(cause, &pe) && (pe.Kind == provider.KindValidation || pe.Kind == provider.KindRejected) {
		if _, _, err := s.tx.advance(ctx, payment, model.PaymentStatusFailed, repository.TransitionUpdate{
			FailureCode:    pe.Code,
			FailureMessage: pe.Message,
		}); err != nil {
			s.logger.Error("Failed to record rejected checkout",
				zap.String("payment_id", payment.ID.String()),
				zap.Error(err))
		}
	}

	s.logger.Warn("Checkout creation failed",
		zap.String("payment_id", payment.ID.String()),
		zap.String("provider", string(payment.Provider)),
		zap.Error(cause))
	return toAppError(cause)
}

func (s *PaymentService) result(payment *model.Payment) *CheckoutResult {
	if payment == nil {
		return nil
	}
	return &CheckoutResult{
		Payment:     payment,
		ProviderRef: deref(payment.ProviderRef),
		URL:         payment.ApprovalURL,
	}
}

func sameLineItems(a, b []model.LineItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
