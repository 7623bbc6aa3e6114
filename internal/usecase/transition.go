package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainerrors "github.com/wekeepgrowing/jobportal-payment/internal/domain/errors"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/model"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/repository"
	"go.uber.org/zap"
)

// maxHops is longer than any path through the payment state machine
const maxHops = 5

// EventPublisher announces applied transitions to other services
type EventPublisher interface {
	PublishTransition(ctx context.Context, payment *model.Payment, from model.PaymentStatus)
}

// MetricsRecorder is the subset of the Prometheus collectors the usecases report to
type MetricsRecorder interface {
	RecordTransition(p model.ProviderType, from, to model.PaymentStatus)
	RecordWebhook(p model.ProviderType, outcome string)
	ObserveVendorCall(p model.ProviderType, operation string, started time.Time, err error)
}

// transitioner applies state machine moves and reports the ones that stuck
type transitioner struct {
	payments  repository.PaymentRepository
	publisher EventPublisher
	metrics   MetricsRecorder
	logger    *zap.Logger
}

// advance moves the payment towards target, passing through intermediate
// states when the vendor skipped reporting them. A payment already at or past
// target is returned unchanged.
func (t *transitioner) advance(ctx context.Context, payment *model.Payment, target model.PaymentStatus, update repository.TransitionUpdate) (*model.Payment, bool, error) {
	changed := false
	for hop := 0; hop < maxHops && !payment.Status.Supersedes(target); hop++ {
		hops := route(payment.Status, target)
		if len(hops) == 0 {
			return payment, changed, fmt.Errorf("%w: %s -> %s", domainerrors.ErrInvalidTransition, payment.Status, target)
		}

		next, applied, err := t.step(ctx, payment, hops[0], update)
		if err != nil {
			return nil, changed, err
		}
		payment = next
		changed = changed || applied
	}
	return payment, changed, nil
}

func (t *transitioner) step(ctx context.Context, payment *model.Payment, target model.PaymentStatus, update repository.TransitionUpdate) (*model.Payment, bool, error) {
	res, err := t.payments.Transition(ctx, payment.ID, target, update)
	if err != nil {
		// someone else moved it further while we were deciding
		if errors.Is(err, domainerrors.ErrInvalidTransition) && res != nil && res.From.Supersedes(target) {
			return res.Payment, false, nil
		}
		return nil, false, err
	}

	if res.Applied {
		t.logger.Info("Payment status changed",
			zap.String("payment_id", payment.ID.String()),
			zap.String("provider", string(payment.Provider)),
			zap.String("from", string(res.From)),
			zap.String("to", string(res.To)))
		t.metrics.RecordTransition(payment.Provider, res.From, res.To)
		t.publisher.PublishTransition(ctx, res.Payment, res.From)
	}
	return res.Payment, res.Applied, nil
}

// route returns the hops from one status to another, excluding from itself.
// It is nil when to cannot be reached.
func route(from, to model.PaymentStatus) []model.PaymentStatus {
	if from == to {
		return []model.PaymentStatus{}
	}

	// breadth-first from the target over predecessors gives the shortest path
	toward := map[model.PaymentStatus]model.PaymentStatus{}
	seen := map[model.PaymentStatus]bool{to: true}
	queue := []model.PaymentStatus{to}
	for len(queue) > 0 && !seen[from] {
		cur := queue[0]
		queue = queue[1:]
		for _, src := range model.SourcesOf(cur) {
			if !seen[src] {
				seen[src] = true
				toward[src] = cur
				queue = append(queue, src)
			}
		}
	}
	if !seen[from] {
		return nil
	}

	var hops []model.PaymentStatus
	for s := from; s != to; {
		s = toward[s]
		hops = append(hops, s)
	}
	return hops
}
