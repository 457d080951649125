package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/flexprice/reconciler/internal/cache"
	"github.com/flexprice/reconciler/internal/config"
	"github.com/flexprice/reconciler/internal/domain/order"
	"github.com/flexprice/reconciler/internal/domain/storage"
	ierr "github.com/flexprice/reconciler/internal/errors"
	"github.com/flexprice/reconciler/internal/logger"
	"github.com/flexprice/reconciler/internal/postgres"
	"github.com/flexprice/reconciler/internal/types"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type RepositorySuite struct {
	suite.Suite
	ctx  context.Context
	mock sqlmock.Sqlmock
	db   *postgres.DB
	log  *logger.Logger
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) SetupTest() {
	raw, mock, err := sqlmock.New()
	s.Require().NoError(err)

	s.ctx = context.Background()
	s.mock = mock
	s.log = logger.NewNopLogger()
	s.db = postgres.NewFromSQLX(sqlx.NewDb(raw, "postgres"), s.log)
}

func (s *RepositorySuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.db.Close()
}

func (s *RepositorySuite) TestOrderCreate() {
	repo := NewOrderRepository(s.db, s.log)
	now := time.Now().UTC()

	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(s.ctx, &order.Order{
		ID:                "ord_1",
		UserID:            "u1",
		ExternalSessionID: "cs_1",
		TotalAmount:       2500,
		Currency:          "usd",
		Status:            types.OrderStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	s.NoError(err)
}

func (s *RepositorySuite) TestOrderCreateUniqueViolation() {
	repo := NewOrderRepository(s.db, s.log)

	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "orders_external_session_id_key"})

	err := repo.Create(s.ctx, &order.Order{ID: "ord_2", UserID: "u1", ExternalSessionID: "cs_1"})
	s.Error(err)
	s.True(ierr.IsAlreadyExists(err))
}

func (s *RepositorySuite) TestOrderItemCreateMissingOrder() {
	repo := NewOrderItemRepository(s.db, s.log)

	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).
		WillReturnError(&pq.Error{Code: "23503", Constraint: "order_items_order_id_fkey"})

	err := repo.Create(s.ctx, &order.OrderItem{ID: "item_1", OrderID: "ord_gone", ProductID: "prod_1", Quantity: 1})
	s.Error(err)
	s.True(ierr.IsNotFound(err))
	s.False(ierr.IsAlreadyExists(err))
}

func (s *RepositorySuite) TestOrderGetBySessionID() {
	repo := NewOrderRepository(s.db, s.log)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "external_session_id", "payment_intent_id", "total_amount", "currency",
		"status", "promo_code", "referral_source", "campaign_name", "metadata", "created_at", "updated_at",
	}).AddRow("ord_1", "u1", "cs_1", nil, 2500, "usd", "paid", "SPRING", nil, nil, []byte(`{"pack_id":"p1"}`), now, now)

	s.mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE external_session_id = $1")).
		WithArgs("cs_1").
		WillReturnRows(rows)

	o, err := repo.GetBySessionID(s.ctx, "cs_1")
	s.Require().NoError(err)
	s.Equal("ord_1", o.ID)
	s.True(o.IsPaid())
	s.Equal("SPRING", lo.FromPtr(o.PromoCode))
	s.Nil(o.PaymentIntentID)
	s.Equal("p1", o.Metadata["pack_id"])
}

func (s *RepositorySuite) TestOrderGetBySessionIDNotFound() {
	repo := NewOrderRepository(s.db, s.log)

	s.mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE external_session_id = $1")).
		WithArgs("cs_missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetBySessionID(s.ctx, "cs_missing")
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *RepositorySuite) TestOrderUpdateStatusMissingRow() {
	repo := NewOrderRepository(s.db, s.log)

	s.mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status = $1")).
		WithArgs(types.OrderStatusPaid, sqlmock.AnyArg(), "ord_missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(s.ctx, "ord_missing", types.OrderStatusPaid)
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *RepositorySuite) TestOrderDeleteRemovesItemsInTransaction() {
	repo := NewOrderRepository(s.db, s.log)

	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta("DELETE FROM order_items WHERE order_id = $1")).
		WithArgs("ord_1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectExec(regexp.QuoteMeta("DELETE FROM orders WHERE id = $1")).
		WithArgs("ord_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	s.NoError(repo.Delete(s.ctx, "ord_1"))
}

func (s *RepositorySuite) TestOrderItemGetByProductIgnoresPricedItems() {
	repo := NewOrderItemRepository(s.db, s.log)

	s.mock.ExpectQuery(regexp.QuoteMeta("WHERE order_id = $1 AND product_id = $2 AND price_id IS NULL")).
		WithArgs("ord_1", "prod_1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByProduct(s.ctx, "ord_1", "prod_1")
	s.True(ierr.IsNotFound(err))
}

func (s *RepositorySuite) TestStorageGrantCreateAndDelete() {
	repo := NewStorageGrantRepository(s.db, s.log)

	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO storage_grants")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(regexp.QuoteMeta("DELETE FROM storage_grants WHERE id = ANY($1)")).
		WithArgs(pq.Array([]string{"stg_1", "stg_2"})).
		WillReturnResult(sqlmock.NewResult(0, 2))

	s.NoError(repo.Create(s.ctx, &storage.Grant{
		ID:              "stg_1",
		UserID:          "u1",
		QuotaGB:         decimal.NewFromInt(50),
		SubscriptionID:  lo.ToPtr("sub_1"),
		StorageAddon:    true,
		ExternalPriceID: "price_addon",
		Quantity:        1,
	}))
	s.NoError(repo.DeleteByIDs(s.ctx, []string{"stg_1", "stg_2"}))
	s.NoError(repo.DeleteByIDs(s.ctx, nil))
}

func (s *RepositorySuite) TestPaymentCountSucceeded() {
	repo := NewPaymentRepository(s.db, s.log)

	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM payment_history")).
		WithArgs("sub_1", types.PaymentStatusSucceeded).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountSucceededBySubscription(s.ctx, "sub_1")
	s.NoError(err)
	s.Equal(3, count)
}

func (s *RepositorySuite) TestCachedCatalogReadsOnce() {
	cfg := config.GetDefaultConfig()
	cfg.Cache.Enabled = true
	repo := NewCachedCatalogRepository(NewCatalogRepository(s.db, s.log), cache.NewInMemoryCache(cfg, s.log), s.log)

	rows := sqlmock.NewRows([]string{
		"id", "tier_type", "name", "billing_cycle", "external_price_id", "storage_quota_gb", "shared_seats",
	}).AddRow("tier_1", "pro", "Pro", "annual", "price_pro", "100", 1)

	s.mock.ExpectQuery(regexp.QuoteMeta("FROM membership_tiers WHERE tier_type = $1")).
		WithArgs("pro").
		WillReturnRows(rows)

	for range 2 {
		tier, err := repo.GetTierByType(s.ctx, "pro")
		s.Require().NoError(err)
		s.Equal("price_pro", tier.ExternalPriceID)
		s.True(decimal.NewFromInt(100).Equal(tier.StorageQuotaGB))
		s.Equal(types.BillingCycleAnnual, tier.BillingCycle)
	}
}

func (s *RepositorySuite) TestCatalogListStorageAddons() {
	repo := NewCatalogRepository(s.db, s.log)

	rows := sqlmock.NewRows([]string{"id", "product_id", "external_price_id", "amount", "currency", "active", "metadata"}).
		AddRow("price_1", "prod_1", "price_addon_50", 499, "usd", true, []byte(`{"addon_key":"storage_addon_50","grant_amount":"50"}`))

	s.mock.ExpectQuery(regexp.QuoteMeta("FROM prices")).
		WithArgs(types.StorageAddonKeyPrefix + "%").
		WillReturnRows(rows)

	prices, err := repo.ListStorageAddonPrices(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(prices, 1)
	s.True(prices[0].IsStorageAddon())
	s.True(decimal.NewFromInt(50).Equal(prices[0].AddonQuotaGB()))
}
