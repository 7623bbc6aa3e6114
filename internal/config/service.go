package config

import "time"

const (
	PayPalSandbox = "sandbox"
	PayPalLive    = "live"
)

type ServiceConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type StripeConfig struct {
	SecretKey     string `yaml:"secret_key"`
	WebhookSecret string `yaml:"webhook_secret"`
	// Card plus any regional wallets enabled on the account, e.g. "alipay".
	PaymentMethodTypes []string `yaml:"payment_method_types"`
}

type PayPalConfig struct {
	ClientID    string `yaml:"client_id"`
	Secret      string `yaml:"secret"`
	WebhookID   string `yaml:"webhook_id"`
	Environment string `yaml:"environment"`
}

// CheckoutConfig holds the frontend-facing redirect targets shared by all providers.
type CheckoutConfig struct {
	BrandName  string `yaml:"brand_name"`
	SuccessURL string `yaml:"success_url"`
	CancelURL  string `yaml:"cancel_url"`
	ClientURL  string `yaml:"client_url"`
}

type ReconcileConfig struct {
	Workers        int           `yaml:"workers"`
	Interval       time.Duration `yaml:"interval"`
	BatchSize      int           `yaml:"batch_size"`
	StaleAfter     time.Duration `yaml:"stale_after"`
	VendorTimeout  time.Duration `yaml:"vendor_timeout"`
	MaxReadRetries int           `yaml:"max_read_retries"`
}
