package service

import (
	"context"

	"github.com/cenkalti/backoff/v4"
	"github.com/flexprice/reconciler/internal/domain/catalog"
	"github.com/flexprice/reconciler/internal/domain/order"
	"github.com/flexprice/reconciler/internal/domain/storage"
	ierr "github.com/flexprice/reconciler/internal/errors"
	"github.com/flexprice/reconciler/internal/metrics"
	"github.com/flexprice/reconciler/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// StorageAddonRequest describes the add-on prices a subscription currently bills
type StorageAddonRequest struct {
	SubscriptionID string
	UserID         string
	ActivePriceIDs []string
	// GrantMissing inserts grants for active add-ons that have none. Without
	// it the call only prunes.
	GrantMissing bool
}

// StorageAddonResult lists the add-on prices whose grants changed
type StorageAddonResult struct {
	Removed []string
	Added   []string
}

// StorageService owns storage quota grants
type StorageService interface {
	// ReconcileStorageAddons makes the subscription's add-on grants equal the
	// active add-on prices, in one transaction
	ReconcileStorageAddons(ctx context.Context, req StorageAddonRequest) (*StorageAddonResult, error)
	// EnsureTierGrant inserts the base quota of a tier for a subscription
	EnsureTierGrant(ctx context.Context, subscriptionID, userID string, tier *catalog.MembershipTier) (*storage.Grant, error)
	// EnsurePackGrant inserts the quota bought with a one-time pack
	EnsurePackGrant(ctx context.Context, userID string, item *order.OrderItem, pack *catalog.Pack) (*storage.Grant, error)
}

type storageService struct {
	ServiceParams
}

func NewStorageService(params ServiceParams) StorageService {
	return &storageService{ServiceParams: params}
}

func (s *storageService) ReconcileStorageAddons(ctx context.Context, req StorageAddonRequest) (*StorageAddonResult, error) {
	if req.SubscriptionID == "" {
		return nil, ierr.NewError("subscription id is required").
			WithHint("Storage add-ons are reconciled per subscription").
			Mark(ierr.ErrValidation)
	}

	addonPrices, err := s.CatalogRepo.ListStorageAddonPrices(ctx)
	if err != nil {
		return nil, err
	}
	addons := lo.KeyBy(addonPrices, func(p *catalog.Price) string { return p.ExternalPriceID })
	active := lo.Filter(lo.Uniq(req.ActivePriceIDs), func(id string, _ int) bool {
		_, ok := addons[id]
		return ok
	})

	// A concurrent delivery can insert the same grant first. The rollback
	// then leaves nothing applied and the next pass sees the winner's rows.
	var result *StorageAddonResult
	err = backoff.Retry(func() error {
		var err error
		result, err = s.applyAddonDiff(ctx, req, active, addons)
		if err == nil {
			return nil
		}
		if ierr.IsAlreadyExists(err) {
			metrics.DuplicateWritesTotal.WithLabelValues("storage_grant").Inc()
			return err
		}
		return backoff.Permanent(err)
	}, refetchBackOff(ctx))
	if err != nil {
		return nil, err
	}

	if len(result.Removed) > 0 || len(result.Added) > 0 {
		s.Logger.WithContext(ctx).Infow("reconciled storage add-ons",
			"subscription_id", req.SubscriptionID,
			"user_id", req.UserID,
			"removed", result.Removed,
			"added", result.Added,
		)
	}
	return result, nil
}

func (s *storageService) applyAddonDiff(ctx context.Context, req StorageAddonRequest, active []string, addons map[string]*catalog.Price) (*StorageAddonResult, error) {
	result := &StorageAddonResult{}

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		grants, err := s.StorageRepo.ListAddonsBySubscription(ctx, req.SubscriptionID)
		if err != nil {
			return err
		}

		stale := lo.Filter(grants, func(g *storage.Grant, _ int) bool {
			return !lo.Contains(active, g.ExternalPriceID)
		})
		if len(stale) > 0 {
			ids := lo.Map(stale, func(g *storage.Grant, _ int) string { return g.ID })
			if err := s.StorageRepo.DeleteByIDs(ctx, ids); err != nil {
				return err
			}
			result.Removed = lo.Map(stale, func(g *storage.Grant, _ int) string { return g.ExternalPriceID })
		}

		if !req.GrantMissing {
			return nil
		}

		held := lo.Map(grants, func(g *storage.Grant, _ int) string { return g.ExternalPriceID })
		missing, _ := lo.Difference(active, held)
		for _, priceID := range missing {
			price := addons[priceID]
			quota := price.AddonQuotaGB()
			if !quota.IsPositive() {
				s.Logger.WithContext(ctx).Warnw("storage add-on price has no quota",
					"price_id", priceID,
					"grant_amount", price.Metadata[types.PriceMetadataGrantAmount],
				)
				continue
			}
			grant := &storage.Grant{
				ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_STORAGE_GRANT),
				UserID:          req.UserID,
				QuotaGB:         quota,
				SubscriptionID:  lo.ToPtr(req.SubscriptionID),
				StorageAddon:    true,
				ExternalPriceID: priceID,
				Quantity:        1,
				Metadata:        types.Metadata{types.PriceMetadataAddonKey: price.Metadata.Get(types.PriceMetadataAddonKey)},
				CreatedAt:       s.now(),
			}
			if err := grant.Validate(); err != nil {
				return err
			}
			if err := s.StorageRepo.Create(ctx, grant); err != nil {
				return err
			}
			result.Added = append(result.Added, priceID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *storageService) EnsureTierGrant(ctx context.Context, subscriptionID, userID string, tier *catalog.MembershipTier) (*storage.Grant, error) {
	if !tier.StorageQuotaGB.IsPositive() {
		return nil, nil
	}

	grant, _, err := ensure(ctx, "storage_grant",
		func(ctx context.Context) (*storage.Grant, error) {
			return s.StorageRepo.GetBySubscriptionPrice(ctx, subscriptionID, tier.ExternalPriceID)
		},
		func(ctx context.Context) (*storage.Grant, error) {
			g := &storage.Grant{
				ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_STORAGE_GRANT),
				UserID:          userID,
				QuotaGB:         tier.StorageQuotaGB,
				SubscriptionID:  lo.ToPtr(subscriptionID),
				ExternalPriceID: tier.ExternalPriceID,
				Quantity:        1,
				Metadata:        types.Metadata{"tier_type": tier.TierType},
				CreatedAt:       s.now(),
			}
			return g, s.createGrant(ctx, g)
		},
	)
	return grant, err
}

func (s *storageService) EnsurePackGrant(ctx context.Context, userID string, item *order.OrderItem, pack *catalog.Pack) (*storage.Grant, error) {
	grant, _, err := ensure(ctx, "storage_grant",
		func(ctx context.Context) (*storage.Grant, error) {
			return s.StorageRepo.GetByOrderItem(ctx, item.ID)
		},
		func(ctx context.Context) (*storage.Grant, error) {
			g := &storage.Grant{
				ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_STORAGE_GRANT),
				UserID:          userID,
				QuotaGB:         pack.GrantAmount.Mul(decimal.NewFromInt(item.Quantity)),
				OrderItemID:     lo.ToPtr(item.ID),
				ExternalPriceID: pack.ExternalPriceID,
				PackKey:         pack.Key,
				Quantity:        item.Quantity,
				CreatedAt:       s.now(),
			}
			return g, s.createGrant(ctx, g)
		},
	)
	return grant, err
}

func (s *storageService) createGrant(ctx context.Context, g *storage.Grant) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if err := s.StorageRepo.Create(ctx, g); err != nil {
		return err
	}
	s.Logger.WithContext(ctx).Infow("created storage grant",
		"grant_id", g.ID,
		"user_id", g.UserID,
		"quota_gb", g.QuotaGB.String(),
		"pack_key", g.PackKey,
	)
	return nil
}
