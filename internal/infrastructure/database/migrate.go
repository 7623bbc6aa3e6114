package database

import (
	"fmt"

	"github.com/wekeepgrowing/jobportal-payment/internal/domain/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// enumTypes are created on Postgres before auto-migrate; other dialects store plain text.
var enumTypes = []struct {
	name   string
	labels []string
}{
	{"payment_provider", []string{string(model.ProviderStripe), string(model.ProviderPayPal)}},
	{"payment_status", []string{
		string(model.PaymentStatusCreated), string(model.PaymentStatusPending), string(model.PaymentStatusCaptured),
		string(model.PaymentStatusSettled), string(model.PaymentStatusFailed), string(model.PaymentStatusRefunded),
	}},
	{"subscription_status", []string{
		string(model.SubscriptionStatusActive), string(model.SubscriptionStatusTrialing),
		string(model.SubscriptionStatusCancelled), string(model.SubscriptionStatusPastDue),
	}},
	{"webhook_status", []string{
		string(model.WebhookStatusPending), string(model.WebhookStatusProcessing),
		string(model.WebhookStatusCompleted), string(model.WebhookStatusFailed),
	}},
}

// Migrate runs database migrations
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	dialect := db.Dialector.Name()
	logger.Info("Running database migrations...", zap.String("dialect", dialect))

	if dialect == "postgres" {
		// Create custom types BEFORE auto-migrate
		if err := createCustomTypes(db, logger); err != nil {
			logger.Error("Failed to create custom types", zap.Error(err))
			return err
		}
	}

	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}

	// Create custom indexes and constraints
	if err := createCustomIndexes(db); err != nil {
		logger.Error("Failed to create custom indexes", zap.Error(err))
		return err
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// createCustomIndexes creates partial indexes GORM tags cannot express.
// The syntax is shared by Postgres and SQLite.
func createCustomIndexes(db *gorm.DB) error {
	statements := []string{
		`CREATE INDEX IF NOT EXISTS idx_webhook_events_due ON webhook_events (next_retry_at) WHERE status IN ('pending', 'failed', 'processing')`,
		`CREATE INDEX IF NOT EXISTS idx_payments_pending ON payments (updated_at) WHERE status IN ('created', 'pending')`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// createCustomTypes creates missing enum types and appends labels added since the last run.
func createCustomTypes(db *gorm.DB, logger *zap.Logger) error {
	for _, enum := range enumTypes {
		var exists bool
		if err := db.Raw(`SELECT EXISTS (SELECT 1 FROM pg_type WHERE typname = ?)`, enum.name).Scan(&exists).Error; err != nil {
			return err
		}

		if !exists {
			quoted := ""
			for i, label := range enum.labels {
				if i > 0 {
					quoted += ", "
				}
				quoted += "'" + label + "'"
			}
			if err := db.Exec(fmt.Sprintf(`CREATE TYPE %s AS ENUM (%s)`, enum.name, quoted)).Error; err != nil {
				return err
			}
			logger.Info("Created enum type", zap.String("type", enum.name))
			continue
		}

		for _, label := range enum.labels {
			// ALTER TYPE ... ADD VALUE cannot run inside a transaction block on older Postgres
			if err := db.Exec(fmt.Sprintf(`ALTER TYPE %s ADD VALUE IF NOT EXISTS '%s'`, enum.name, label)).Error; err != nil {
				logger.Warn("Failed to add enum label",
					zap.String("type", enum.name),
					zap.String("label", label),
					zap.Error(err))
			}
		}
	}
	return nil
}
