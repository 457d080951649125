package repository

import (
	"github.com/flexprice/reconciler/internal/cache"
	"github.com/flexprice/reconciler/internal/domain/catalog"
	"github.com/flexprice/reconciler/internal/domain/household"
	"github.com/flexprice/reconciler/internal/domain/intensive"
	"github.com/flexprice/reconciler/internal/domain/order"
	"github.com/flexprice/reconciler/internal/domain/payment"
	"github.com/flexprice/reconciler/internal/domain/storage"
	"github.com/flexprice/reconciler/internal/domain/subscription"
	"github.com/flexprice/reconciler/internal/domain/user"
	"github.com/flexprice/reconciler/internal/logger"
	"github.com/flexprice/reconciler/internal/postgres"
	postgresRepo "github.com/flexprice/reconciler/internal/repository/postgres"
)

func NewOrderRepository(db *postgres.DB, logger *logger.Logger) order.Repository {
	return postgresRepo.NewOrderRepository(db, logger)
}

func NewOrderItemRepository(db *postgres.DB, logger *logger.Logger) order.ItemRepository {
	return postgresRepo.NewOrderItemRepository(db, logger)
}

func NewSubscriptionRepository(db *postgres.DB, logger *logger.Logger) subscription.Repository {
	return postgresRepo.NewSubscriptionRepository(db, logger)
}

func NewStorageGrantRepository(db *postgres.DB, logger *logger.Logger) storage.Repository {
	return postgresRepo.NewStorageGrantRepository(db, logger)
}

func NewHouseholdRepository(db *postgres.DB, logger *logger.Logger) household.Repository {
	return postgresRepo.NewHouseholdRepository(db, logger)
}

func NewUserRepository(db *postgres.DB, logger *logger.Logger) user.Repository {
	return postgresRepo.NewUserRepository(db, logger)
}

func NewPaymentRepository(db *postgres.DB, logger *logger.Logger) payment.Repository {
	return postgresRepo.NewPaymentRepository(db, logger)
}

func NewChecklistRepository(db *postgres.DB, logger *logger.Logger) intensive.Repository {
	return postgresRepo.NewChecklistRepository(db, logger)
}

// NewCatalogRepository returns the catalog reader behind the process cache
func NewCatalogRepository(db *postgres.DB, c cache.Cache, logger *logger.Logger) catalog.Repository {
	return postgresRepo.NewCachedCatalogRepository(postgresRepo.NewCatalogRepository(db, logger), c, logger)
}
