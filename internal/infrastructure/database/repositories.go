package database

import (
	"github.com/wekeepgrowing/jobportal-payment/internal/adapter/repository"
	domainRepo "github.com/wekeepgrowing/jobportal-payment/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	Payment      domainRepo.PaymentRepository
	Subscription domainRepo.SubscriptionRepository
	Plan         domainRepo.PlanRepository
	Webhook      domainRepo.WebhookEventRepository
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Payment:      repository.NewPaymentRepository(db, logger),
		Subscription: repository.NewSubscriptionRepository(db, logger),
		Plan:         repository.NewPlanRepository(db, logger),
		Webhook:      repository.NewWebhookRepository(db, logger),
	}
}
