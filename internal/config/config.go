package config

import (
	"fmt"

	pkgconfig "github.com/wekeepgrowing/jobportal-payment/pkg/config"
)

const serviceName = "payment"

type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	JWT       JWTConfig       `yaml:"jwt"`
	Stripe    StripeConfig    `yaml:"stripe"`
	PayPal    PayPalConfig    `yaml:"paypal"`
	Checkout  CheckoutConfig  `yaml:"checkout"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
}

// LoadConfig reads ./configs/payment.yaml (or CONFIG_PATH) and applies
// PAYMENT_* environment overrides.
func LoadConfig() (*Config, error) {
	src, err := pkgconfig.Load(serviceName, defaults())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	var cfg Config
	if err := src.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks settings that would otherwise fail on the first request.
func (c *Config) Validate() error {
	if c.Stripe.SecretKey == "" && c.PayPal.ClientID == "" {
		return fmt.Errorf("invalid config: no payment provider configured (stripe.secret_key or paypal.client_id)")
	}
	if c.PayPal.ClientID != "" && c.PayPal.Secret == "" {
		return fmt.Errorf("invalid config: paypal.secret is required when paypal.client_id is set")
	}
	switch c.PayPal.Environment {
	case "", PayPalSandbox, PayPalLive:
	default:
		return fmt.Errorf("invalid config: paypal.environment must be %q or %q", PayPalSandbox, PayPalLive)
	}
	if c.Checkout.SuccessURL == "" || c.Checkout.CancelURL == "" {
		return fmt.Errorf("invalid config: checkout.success_url and checkout.cancel_url are required")
	}
	return nil
}

// IsProduction reports whether the service runs with live credentials.
func (c *Config) IsProduction() bool {
	return c.Service.Environment == "production"
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"service.name":        serviceName,
		"service.environment": "development",
		"service.version":     "dev",

		"server.http.host":             "0.0.0.0",
		"server.http.port":             8080,
		"server.http.shutdown_timeout": "15s",
		"server.grpc.host":             "0.0.0.0",
		"server.grpc.port":             9090,

		"database.host":               "localhost",
		"database.port":               5432,
		"database.name":               "payment",
		"database.user":               "postgres",
		"database.password":           "",
		"database.sslmode":            "disable",
		"database.max_open_conns":     20,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "30m",
		"database.conn_max_idle_time": "5m",
		"database.slow_threshold":     "200ms",
		"database.connect_timeout":    "30s",

		"redis.addr":     "",
		"redis.password": "",
		"redis.db":       0,
		"redis.channel":  "payments.events",

		"log.level":  "info",
		"log.format": "json",
		"log.output": "stdout",

		"jwt.secret":     "",
		"jwt.admin_role": "admin",

		"stripe.secret_key":           "",
		"stripe.webhook_secret":       "",
		"stripe.payment_method_types": []string{"card"},

		"paypal.client_id":   "",
		"paypal.secret":      "",
		"paypal.webhook_id":  "",
		"paypal.environment": PayPalSandbox,

		"checkout.brand_name":  "Job Portal",
		"checkout.success_url": "",
		"checkout.cancel_url":  "",
		"checkout.client_url":  "",

		"reconcile.workers":          4,
		"reconcile.interval":         "30s",
		"reconcile.batch_size":       50,
		"reconcile.stale_after":      "30m",
		"reconcile.vendor_timeout":   "15s",
		"reconcile.max_read_retries": 3,
	}
}
