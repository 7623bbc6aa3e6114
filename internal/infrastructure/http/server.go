package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	handlers "github.com/wekeepgrowing/jobportal-payment/internal/adapter/handler/http"
	"github.com/wekeepgrowing/jobportal-payment/internal/config"
	"github.com/wekeepgrowing/jobportal-payment/internal/infrastructure/metrics"
	"github.com/wekeepgrowing/jobportal-payment/internal/middleware/auth"
	"github.com/wekeepgrowing/jobportal-payment/pkg/logger"
	"go.uber.org/zap"
)

// Services are the usecases the routes are served from
type Services struct {
	Payments      handlers.PaymentService
	Subscriptions handlers.SubscriptionService
	Plans         handlers.PlanCatalogue
	Reconciler    handlers.WebhookReconciler
}

type Server struct {
	config   *config.Config
	logger   *zap.Logger
	echo     *echo.Echo
	services Services
	metrics  *metrics.Metrics
}

func NewServer(cfg *config.Config, log *zap.Logger, services Services, m *metrics.Metrics) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewRequestValidator()

	logger.WithEchoLogger(e, log)

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(logger.NewEchoRequestLogger(log))
	e.Use(m.EchoMiddleware())
	if cfg.Checkout.ClientURL != "" {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: []string{cfg.Checkout.ClientURL},
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization, handlers.IdempotencyKeyHeader},
		}))
	}

	s := &Server{
		config:   cfg,
		logger:   log,
		echo:     e,
		services: services,
		metrics:  m,
	}
	s.setupRoutes()
	return s
}

// Echo exposes the router for tests
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.Service.Name,
			"version": s.config.Service.Version,
		})
	})
	s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))

	checkoutHandler := handlers.NewCheckoutHandler(s.services.Payments, s.logger)
	paymentHandler := handlers.NewPaymentHandler(s.services.Payments, s.config.JWT.AdminRole, s.logger)
	plansHandler := handlers.NewPlansHandler(s.services.Plans, s.logger)
	subscriptionHandler := handlers.NewSubscriptionHandler(s.services.Subscriptions, s.logger)
	webhookHandler := handlers.NewWebhookHandler(s.services.Reconciler, s.logger)

	jwtConfig := auth.JWTConfig{
		Secret: s.config.JWT.Secret,
		Logger: s.logger,
	}

	// Legacy checkout routes; a bearer token is optional and only attributes the payment
	optionalJWT := jwtConfig
	optionalJWT.Optional = true
	legacy := s.echo.Group("", auth.JWTMiddleware(optionalJWT))
	legacy.POST("/stripe/create-checkout-session", checkoutHandler.CreateStripeCheckout)
	legacy.POST("/payments/stripe/create-checkout-session", checkoutHandler.CreateStripeCheckout)
	legacy.POST("/paypal/create-paypal-order", checkoutHandler.CreatePayPalOrder)
	legacy.POST("/paypal/capture-paypal-order", checkoutHandler.CapturePayPalOrder)

	// Vendor notifications are authenticated by signature, not JWT
	webhooks := s.echo.Group("/webhooks")
	webhooks.POST("/stripe", webhookHandler.HandleStripe)
	webhooks.POST("/paypal", webhookHandler.HandlePayPal)

	v1 := s.echo.Group("/api/v1")

	// Public routes
	v1.GET("/plans", plansHandler.GetPlans)

	protected := v1.Group("", auth.JWTMiddleware(jwtConfig))

	payments := protected.Group("/payments")
	payments.GET("", paymentHandler.ListPayments)
	payments.GET("/:id", paymentHandler.GetPayment)
	payments.POST("/:id/refresh", paymentHandler.Refresh)
	payments.POST("/:id/refund", paymentHandler.Refund, auth.RequireRole(s.config.JWT.AdminRole, s.logger))

	subscriptions := protected.Group("/subscriptions")
	subscriptions.POST("", subscriptionHandler.CreateSubscription)
	subscriptions.GET("", subscriptionHandler.ListSubscriptions)
	subscriptions.GET("/current", subscriptionHandler.GetCurrentSubscription)
	subscriptions.POST("/:id/cancel", subscriptionHandler.CancelSubscription)
}
