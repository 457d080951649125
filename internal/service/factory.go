package service

import (
	"time"

	"github.com/flexprice/reconciler/internal/config"
	"github.com/flexprice/reconciler/internal/domain/catalog"
	"github.com/flexprice/reconciler/internal/domain/household"
	"github.com/flexprice/reconciler/internal/domain/intensive"
	"github.com/flexprice/reconciler/internal/domain/order"
	"github.com/flexprice/reconciler/internal/domain/payment"
	"github.com/flexprice/reconciler/internal/domain/storage"
	"github.com/flexprice/reconciler/internal/domain/subscription"
	"github.com/flexprice/reconciler/internal/domain/user"
	"github.com/flexprice/reconciler/internal/idempotency"
	"github.com/flexprice/reconciler/internal/interfaces"
	"github.com/flexprice/reconciler/internal/logger"
	"github.com/flexprice/reconciler/internal/postgres"
	"github.com/flexprice/reconciler/internal/sentry"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient
	Sentry *sentry.Service

	// Repositories
	OrderRepo     order.Repository
	OrderItemRepo order.ItemRepository
	SubRepo       subscription.Repository
	StorageRepo   storage.Repository
	HouseholdRepo household.Repository
	UserRepo      user.Repository
	CatalogRepo   catalog.Repository
	PaymentRepo   payment.Repository
	ChecklistRepo intensive.Repository

	// Outbound collaborators
	Provider interfaces.PaymentProvider
	Identity interfaces.IdentityProvider
	Ledger   interfaces.TokenLedger

	Keys *idempotency.Generator
	// Now is the processing clock. Deadlines are derived from it.
	Now func() time.Time
}

// Common service params
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	sentry *sentry.Service,
	orderRepo order.Repository,
	orderItemRepo order.ItemRepository,
	subRepo subscription.Repository,
	storageRepo storage.Repository,
	householdRepo household.Repository,
	userRepo user.Repository,
	catalogRepo catalog.Repository,
	paymentRepo payment.Repository,
	checklistRepo intensive.Repository,
	provider interfaces.PaymentProvider,
	identity interfaces.IdentityProvider,
	ledger interfaces.TokenLedger,
) ServiceParams {
	return ServiceParams{
		Logger:        logger,
		Config:        config,
		DB:            db,
		Sentry:        sentry,
		OrderRepo:     orderRepo,
		OrderItemRepo: orderItemRepo,
		SubRepo:       subRepo,
		StorageRepo:   storageRepo,
		HouseholdRepo: householdRepo,
		UserRepo:      userRepo,
		CatalogRepo:   catalogRepo,
		PaymentRepo:   paymentRepo,
		ChecklistRepo: checklistRepo,
		Provider:      provider,
		Identity:      identity,
		Ledger:        ledger,
		Keys:          idempotency.NewGenerator(),
		Now:           func() time.Time { return time.Now().UTC() },
	}
}

func (p ServiceParams) now() time.Time {
	if p.Now == nil {
		return time.Now().UTC()
	}
	return p.Now().UTC()
}
