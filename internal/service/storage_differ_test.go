package service

import (
	"testing"

	"github.com/flexprice/reconciler/internal/domain/catalog"
	"github.com/flexprice/reconciler/internal/domain/order"
	ierr "github.com/flexprice/reconciler/internal/errors"
	"github.com/flexprice/reconciler/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type StorageServiceSuite struct {
	reconcilerTestSuite
}

func TestStorageService(t *testing.T) {
	suite.Run(t, new(StorageServiceSuite))
}

func (s *StorageServiceSuite) reconcile(subID string, grantMissing bool, active ...string) *StorageAddonResult {
	result, err := s.storage.ReconcileStorageAddons(s.GetContext(), StorageAddonRequest{
		SubscriptionID: subID,
		UserID:         "u1",
		ActivePriceIDs: active,
		GrantMissing:   grantMissing,
	})
	s.Require().NoError(err)
	return result
}

func (s *StorageServiceSuite) TestReconcileReplacesStaleAddons() {
	ctx := s.GetContext()
	grants := s.GetStores().StorageRepo

	result := s.reconcile("sub_1", true, priceAddonA, priceAddonB)
	s.ElementsMatch([]string{priceAddonA, priceAddonB}, result.Added)
	s.Empty(result.Removed)

	result = s.reconcile("sub_1", true, priceAddonB, priceAddonC)
	s.Equal([]string{priceAddonA}, result.Removed)
	s.Equal([]string{priceAddonC}, result.Added)
	s.ElementsMatch([]string{priceAddonB, priceAddonC}, grants.AddonPriceIDs(ctx, "sub_1"))

	// replaying the same set changes nothing
	result = s.reconcile("sub_1", true, priceAddonB, priceAddonC)
	s.Empty(result.Removed)
	s.Empty(result.Added)
}

func (s *StorageServiceSuite) TestReconcileGrantsAddonQuota() {
	s.reconcile("sub_1", true, priceAddonA, priceAddonA)

	g, err := s.GetStores().StorageRepo.GetBySubscriptionPrice(s.GetContext(), "sub_1", priceAddonA)
	s.Require().NoError(err)
	s.True(g.StorageAddon)
	s.Equal(int64(1), g.Quantity)
	s.True(decimal.NewFromInt(50).Equal(g.QuotaGB))
	s.Equal("sub_1", lo.FromPtr(g.SubscriptionID))
}

func (s *StorageServiceSuite) TestReconcileIgnoresPricesOutsideTheAddonCatalog() {
	result := s.reconcile("sub_1", true, priceContinuity, "price_unknown", priceAddonB)
	s.Equal([]string{priceAddonB}, result.Added)
	s.Equal([]string{priceAddonB}, s.GetStores().StorageRepo.AddonPriceIDs(s.GetContext(), "sub_1"))
}

func (s *StorageServiceSuite) TestPruneOnlyNeverGrants() {
	ctx := s.GetContext()
	s.reconcile("sub_1", true, priceAddonA, priceAddonB)

	result := s.reconcile("sub_1", false, priceAddonB, priceAddonC)
	s.Equal([]string{priceAddonA}, result.Removed)
	s.Empty(result.Added)
	s.Equal([]string{priceAddonB}, s.GetStores().StorageRepo.AddonPriceIDs(ctx, "sub_1"))

	result = s.reconcile("sub_1", false)
	s.Equal([]string{priceAddonB}, result.Removed)
	s.Empty(s.GetStores().StorageRepo.AddonPriceIDs(ctx, "sub_1"))
}

func (s *StorageServiceSuite) TestReconcileKeepsTierGrant() {
	ctx := s.GetContext()
	tier, err := s.GetStores().CatalogRepo.GetTierByType(ctx, tierContinuity)
	s.Require().NoError(err)
	_, err = s.storage.EnsureTierGrant(ctx, "sub_1", "u1", tier)
	s.Require().NoError(err)

	s.reconcile("sub_1", false)

	_, err = s.GetStores().StorageRepo.GetBySubscriptionPrice(ctx, "sub_1", priceContinuity)
	s.NoError(err)
}

func (s *StorageServiceSuite) TestReconcileRequiresSubscription() {
	_, err := s.storage.ReconcileStorageAddons(s.GetContext(), StorageAddonRequest{UserID: "u1"})
	s.True(ierr.IsValidation(err))
}

func (s *StorageServiceSuite) TestEnsureTierGrant() {
	ctx := s.GetContext()
	tier, err := s.GetStores().CatalogRepo.GetTierByType(ctx, tierContinuity)
	s.Require().NoError(err)

	first, err := s.storage.EnsureTierGrant(ctx, "sub_1", "u1", tier)
	s.NoError(err)
	second, err := s.storage.EnsureTierGrant(ctx, "sub_1", "u1", tier)
	s.NoError(err)
	s.Equal(first.ID, second.ID)
	s.False(first.StorageAddon)
	s.True(decimal.NewFromInt(50).Equal(first.QuotaGB))

	none, err := s.storage.EnsureTierGrant(ctx, "sub_1", "u1", &catalog.MembershipTier{TierType: "free", ExternalPriceID: "price_free"})
	s.NoError(err)
	s.Nil(none)
}

func (s *StorageServiceSuite) TestEnsurePackGrantScalesWithQuantity() {
	ctx := s.GetContext()
	price, err := s.GetStores().CatalogRepo.GetPackByKey(ctx, "storage_100")
	s.Require().NoError(err)
	pack, err := price.Pack()
	s.Require().NoError(err)
	s.Equal(types.GrantUnitStorageGB, pack.GrantUnit)

	item := &order.OrderItem{ID: "oit_1", Quantity: 3}
	first, err := s.storage.EnsurePackGrant(ctx, "u1", item, pack)
	s.NoError(err)
	s.True(decimal.NewFromInt(300).Equal(first.QuotaGB))
	s.Equal("storage_100", first.PackKey)

	second, err := s.storage.EnsurePackGrant(ctx, "u1", item, pack)
	s.NoError(err)
	s.Equal(first.ID, second.ID)
}
