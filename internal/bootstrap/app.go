// Package bootstrap wires configuration, storage, vendors and usecases
// for both the server and the paymentctl commands.
package bootstrap

import (
	"fmt"

	"github.com/wekeepgrowing/jobportal-payment/internal/config"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/provider"
	"github.com/wekeepgrowing/jobportal-payment/internal/infrastructure/database"
	"github.com/wekeepgrowing/jobportal-payment/internal/infrastructure/events"
	"github.com/wekeepgrowing/jobportal-payment/internal/infrastructure/metrics"
	providerFactory "github.com/wekeepgrowing/jobportal-payment/internal/infrastructure/provider"
	"github.com/wekeepgrowing/jobportal-payment/internal/usecase"
	"github.com/wekeepgrowing/jobportal-payment/pkg/logger"
	"github.com/wekeepgrowing/jobportal-payment/pkg/messaging"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	DB        *gorm.DB
	Repos     *database.Repositories
	Metrics   *metrics.Metrics
	Redis     messaging.RedisClient
	Publisher *events.Publisher
	Providers *provider.Registry

	Payments      *usecase.PaymentService
	Subscriptions *usecase.SubscriptionService
	Plans         *usecase.PlanSyncService
	Reconciler    *usecase.Reconciler
}

// NewLogger builds the service logger from the log section
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.NewZapLogger(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      cfg.Log.Output,
		FilePath:    cfg.Log.File,
		Development: !cfg.IsProduction(),
		Service:     cfg.Service.Name,
		Version:     cfg.Service.Version,
	})
}

// New connects to Postgres and Redis and builds every usecase. The caller
// owns the returned App and must Close it.
func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	app := &App{
		Config:  cfg,
		Logger:  log,
		Metrics: metrics.New(),
	}

	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		return nil, err
	}
	app.DB = db
	app.Repos = database.NewRepositories(db, log)

	// Event fan-out is optional; without Redis transitions are only stored
	if cfg.Redis.Addr != "" {
		client, err := messaging.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.Redis = client
	} else {
		log.Info("Redis not configured, payment events will not be published")
		app.Redis = messaging.NoopClient{}
	}
	app.Publisher = events.NewPublisher(app.Redis, cfg.Redis.Channel, log)

	providers, err := providerFactory.NewFactory(cfg, log).Registry()
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Providers = providers

	policy := usecase.VendorPolicy{
		Timeout:    cfg.Reconcile.VendorTimeout,
		MaxRetries: cfg.Reconcile.MaxReadRetries,
	}

	app.Payments = usecase.NewPaymentService(app.Repos.Payment, providers, app.Publisher, app.Metrics, policy, log)
	app.Subscriptions = usecase.NewSubscriptionService(app.Repos.Subscription, app.Repos.Plan, app.Payments, log)
	app.Plans = usecase.NewPlanSyncService(app.Repos.Plan, log)
	app.Reconciler = usecase.NewReconciler(
		providers,
		app.Repos.Webhook,
		app.Repos.Payment,
		app.Repos.Subscription,
		app.Repos.Plan,
		app.Publisher,
		app.Metrics,
		log,
	)

	return app, nil
}

// Migrate creates or updates the schema
func (a *App) Migrate() error {
	return database.Migrate(a.DB, a.Logger)
}

func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("Failed to close redis client", zap.Error(err))
		}
	}
	if a.DB != nil {
		if err := database.Close(a.DB, a.Logger); err != nil {
			a.Logger.Error("Failed to close database connection", zap.Error(err))
		}
	}
}
