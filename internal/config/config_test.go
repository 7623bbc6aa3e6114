package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
service:
  environment: production
stripe:
  secret_key: sk_test_123
  payment_method_types: [card, alipay]
paypal:
  client_id: cid
  secret: csecret
  environment: live
checkout:
  success_url: https://portal.example.com/payment/success
  cancel_url: https://portal.example.com/payment/cancel
reconcile:
  interval: 1m
`

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payment.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("PAYMENT_PAYPAL_WEBHOOK_ID", "WH-1")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"card", "alipay"}, cfg.Stripe.PaymentMethodTypes)
	assert.Equal(t, "WH-1", cfg.PayPal.WebhookID)
	assert.Equal(t, PayPalLive, cfg.PayPal.Environment)
	assert.Equal(t, time.Minute, cfg.Reconcile.Interval)
	assert.Equal(t, 15*time.Second, cfg.Reconcile.VendorTimeout)
	assert.Equal(t, 8080, cfg.Server.HTTP.Port)
	assert.Equal(t, "payments.events", cfg.Redis.Channel)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Stripe:   StripeConfig{SecretKey: "sk"},
			Checkout: CheckoutConfig{SuccessURL: "https://a", CancelURL: "https://b"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"stripe only", func(c *Config) {}, false},
		{"no provider", func(c *Config) { c.Stripe.SecretKey = "" }, true},
		{"paypal without secret", func(c *Config) { c.PayPal.ClientID = "id" }, true},
		{"unknown paypal environment", func(c *Config) { c.PayPal.Environment = "prod" }, true},
		{"missing redirect", func(c *Config) { c.Checkout.CancelURL = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "payment"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=payment sslmode=disable", c.DSN())
}
