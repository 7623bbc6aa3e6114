package provider

import (
	"fmt"

	"github.com/wekeepgrowing/jobportal-payment/internal/config"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/provider"
	paypalProvider "github.com/wekeepgrowing/jobportal-payment/internal/infrastructure/provider/paypal"
	stripeProvider "github.com/wekeepgrowing/jobportal-payment/internal/infrastructure/provider/stripe"
	"go.uber.org/zap"
)

// Factory creates payment providers from configuration
type Factory struct {
	config *config.Config
	logger *zap.Logger
}

// NewFactory creates a new provider factory
func NewFactory(config *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		config: config,
		logger: logger,
	}
}

// Registry builds one client per configured vendor. Vendors without
// credentials are left out and resolve to ErrProviderNotConfigured.
func (f *Factory) Registry() (*provider.Registry, error) {
	var providers []provider.PaymentProvider

	if f.config.Stripe.SecretKey != "" {
		providers = append(providers, f.createStripeProvider())
	}

	if f.config.PayPal.ClientID != "" {
		p, err := f.createPayPalProvider()
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no payment provider configured")
	}

	registry := provider.NewRegistry(providers...)
	f.logger.Info("Payment providers configured", zap.Any("providers", registry.Names()))
	return registry, nil
}

// createStripeProvider creates a new Stripe provider instance
func (f *Factory) createStripeProvider() provider.PaymentProvider {
	return stripeProvider.NewStripeProvider(stripeProvider.Config{
		SecretKey:          f.config.Stripe.SecretKey,
		WebhookSecret:      f.config.Stripe.WebhookSecret,
		PaymentMethodTypes: f.config.Stripe.PaymentMethodTypes,
		SuccessURL:         f.config.Checkout.SuccessURL,
		CancelURL:          f.config.Checkout.CancelURL,
	}, f.logger.Named("stripe"))
}

// createPayPalProvider creates a new PayPal provider instance
func (f *Factory) createPayPalProvider() (provider.PaymentProvider, error) {
	if f.config.PayPal.Secret == "" {
		return nil, fmt.Errorf("PayPal secret not configured")
	}

	p, err := paypalProvider.NewPayPalProvider(paypalProvider.Config{
		ClientID:    f.config.PayPal.ClientID,
		Secret:      f.config.PayPal.Secret,
		WebhookID:   f.config.PayPal.WebhookID,
		Environment: f.config.PayPal.Environment,
		BrandName:   f.config.Checkout.BrandName,
		ReturnURL:   f.config.Checkout.SuccessURL,
		CancelURL:   f.config.Checkout.CancelURL,
	}, f.logger.Named("paypal"))
	if err != nil {
		return nil, err
	}
	return p, nil
}
