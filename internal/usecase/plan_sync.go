package usecase

import (
	"context"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/model"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/money"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/repository"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var planIntervals = map[string]bool{"day": true, "week": true, "month": true, "year": true}

// PlanEntry is one plan as written in the YAML catalogue. The amount is a
// string so "9.90" keeps its precision.
type PlanEntry struct {
	ID            string                 `yaml:"id"`
	Name          string                 `yaml:"name"`
	Kind          model.PaymentKind      `yaml:"kind"`
	Amount        string                 `yaml:"amount"`
	Currency      string                 `yaml:"currency"`
	Interval      string                 `yaml:"interval"`
	StripePriceID string                 `yaml:"stripe_price_id"`
	PayPalPlanID  string                 `yaml:"paypal_plan_id"`
	Features      map[string]interface{} `yaml:"features"`
	SortOrder     int                    `yaml:"sort_order"`
	Active        *bool                  `yaml:"active"`
}

// PlanCatalogue is the file read by `paymentctl sync-plans`
type PlanCatalogue struct {
	Plans []PlanEntry `yaml:"plans"`
}

// LoadPlanCatalogue decodes and validates a catalogue
func LoadPlanCatalogue(r io.Reader) ([]*model.PaymentPlan, error) {
	var catalogue PlanCatalogue
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&catalogue); err != nil {
		return nil, fmt.Errorf("failed to parse plan catalogue: %w", err)
	}

	seen := make(map[string]bool, len(catalogue.Plans))
	plans := make([]*model.PaymentPlan, 0, len(catalogue.Plans))
	for i, entry := range catalogue.Plans {
		plan, err := entry.toPlan()
		if err != nil {
			return nil, fmt.Errorf("plans[%d]: %w", i, err)
		}
		if seen[plan.ID] {
			return nil, fmt.Errorf("plans[%d]: duplicate plan id %q", i, plan.ID)
		}
		seen[plan.ID] = true
		plans = append(plans, plan)
	}
	return plans, nil
}

func (e PlanEntry) toPlan() (*model.PaymentPlan, error) {
	if e.ID == "" || e.Name == "" {
		return nil, fmt.Errorf("id and name are required")
	}
	if e.Kind != model.PaymentKindOneTime && e.Kind != model.PaymentKindSubscription {
		return nil, fmt.Errorf("plan %s: kind must be %q or %q", e.ID, model.PaymentKindOneTime, model.PaymentKindSubscription)
	}

	currency, err := money.ParseCurrency(e.Currency)
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", e.ID, err)
	}
	amount, err := decimal.NewFromString(e.Amount)
	if err != nil {
		return nil, fmt.Errorf("plan %s: invalid amount %q", e.ID, e.Amount)
	}
	if err := money.Validate(amount, currency); err != nil {
		return nil, fmt.Errorf("plan %s: %w", e.ID, err)
	}

	if e.Kind == model.PaymentKindSubscription {
		if !planIntervals[e.Interval] {
			return nil, fmt.Errorf("plan %s: subscription interval must be day, week, month or year", e.ID)
		}
		if e.StripePriceID == "" && e.PayPalPlanID == "" {
			return nil, fmt.Errorf("plan %s: a subscription needs stripe_price_id or paypal_plan_id", e.ID)
		}
	}

	plan := &model.PaymentPlan{
		ID:        e.ID,
		Name:      e.Name,
		Kind:      e.Kind,
		Amount:    amount,
		Currency:  currency,
		Interval:  e.Interval,
		Features:  model.JSONB(e.Features),
		SortOrder: e.SortOrder,
		IsActive:  e.Active == nil || *e.Active,
	}
	if e.StripePriceID != "" {
		plan.StripePriceID = &e.StripePriceID
	}
	if e.PayPalPlanID != "" {
		plan.PayPalPlanID = &e.PayPalPlanID
	}
	return plan, nil
}

// PlanSyncResult summarizes one catalogue synchronization
type PlanSyncResult struct {
	Upserted    int
	Deactivated int64
}

// PlanSyncService keeps the payment_plans table in line with the catalogue
type PlanSyncService struct {
	plans  repository.PlanRepository
	logger *zap.Logger
}

// NewPlanSyncService creates a new plan synchronization service
func NewPlanSyncService(plans repository.PlanRepository, logger *zap.Logger) *PlanSyncService {
	return &PlanSyncService{
		plans:  plans,
		logger: logger,
	}
}

// Sync upserts every plan; with prune, plans missing from the catalogue are deactivated
func (s *PlanSyncService) Sync(ctx context.Context, plans []*model.PaymentPlan, prune bool) (*PlanSyncResult, error) {
	result := &PlanSyncResult{}
	ids := make([]string, 0, len(plans))

	for _, plan := range plans {
		if err := s.plans.Upsert(ctx, plan); err != nil {
			return result, fmt.Errorf("failed to sync plan %s: %w", plan.ID, err)
		}
		ids = append(ids, plan.ID)
		result.Upserted++

		s.logger.Info("Plan synced",
			zap.String("plan_id", plan.ID),
			zap.String("kind", string(plan.Kind)),
			zap.String("amount", plan.Amount.String()),
			zap.String("currency", plan.Currency),
			zap.Bool("active", plan.IsActive))
	}

	if prune {
		n, err := s.plans.Deactivate(ctx, ids)
		if err != nil {
			return result, fmt.Errorf("failed to deactivate removed plans: %w", err)
		}
		result.Deactivated = n
	}

	return result, nil
}

// ListActive returns the plans offered to customers
func (s *PlanSyncService) ListActive(ctx context.Context) ([]*model.PaymentPlan, error) {
	plans, err := s.plans.ListActive(ctx)
	if err != nil {
		return nil, toAppError(err)
	}
	if plans == nil {
		plans = []*model.PaymentPlan{}
	}
	return plans, nil
}
