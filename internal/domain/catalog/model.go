package catalog

import (
	"strings"

	ierr "github.com/flexprice/reconciler/internal/errors"
	"github.com/flexprice/reconciler/internal/types"
	"github.com/shopspring/decimal"
)

// MembershipTier is a recurring plan sold through a provider price
type MembershipTier struct {
	ID string `db:"id" json:"id"`
	// TierType is the code carried in checkout metadata, e.g. pro or vision_pro_28day
	TierType        string             `db:"tier_type" json:"tier_type"`
	Name            string             `db:"name" json:"name"`
	BillingCycle    types.BillingCycle `db:"billing_cycle" json:"billing_cycle"`
	ExternalPriceID string             `db:"external_price_id" json:"external_price_id"`
	// StorageQuotaGB is the base storage granted with the tier
	StorageQuotaGB decimal.Decimal `db:"storage_quota_gb" json:"storage_quota_gb"`
	// SharedSeats above one means the tier comes with a household
	SharedSeats int `db:"shared_seats" json:"shared_seats"`
}

// HasSharedSeats reports whether subscribing creates a household
func (t *MembershipTier) HasSharedSeats() bool {
	return t.SharedSeats > 1
}

// Product is a sellable item identified by a stable key
type Product struct {
	ID   string `db:"id" json:"id"`
	Key  string `db:"key" json:"key"`
	Name string `db:"name" json:"name"`
}

// Price is a provider price of a product. Pack and add-on definitions live in
// its metadata.
type Price struct {
	ID              string         `db:"id" json:"id"`
	ProductID       string         `db:"product_id" json:"product_id"`
	ExternalPriceID string         `db:"external_price_id" json:"external_price_id"`
	Amount          int64          `db:"amount" json:"amount"`
	Currency        string         `db:"currency" json:"currency"`
	Active          bool           `db:"active" json:"active"`
	Metadata        types.Metadata `db:"metadata" json:"metadata,omitempty"`
}

// IsStorageAddon reports whether the price is a recurring storage add-on
func (p *Price) IsStorageAddon() bool {
	return types.IsStorageAddonKey(p.Metadata.Get(types.PriceMetadataAddonKey))
}

// Pack is a one-time bundle defined by price metadata
type Pack struct {
	Key             string
	ProductID       string
	PriceID         string
	ExternalPriceID string
	Amount          int64
	Currency        string
	GrantAmount     decimal.Decimal
	GrantUnit       types.GrantUnit
}

// Pack decodes the pack definition stored on the price. The grant unit is
// checked by the caller so an unknown unit fails only that grant.
func (p *Price) Pack() (*Pack, error) {
	key := p.Metadata.Get(types.PriceMetadataPackKey)
	if key == "" {
		return nil, ierr.NewError("price is not a pack").
			WithHintf("Price %s has no pack_key", p.ExternalPriceID).
			Mark(ierr.ErrValidation)
	}

	amount, err := decimal.NewFromString(p.Metadata.Get(types.PriceMetadataGrantAmount))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Pack %s has an invalid grant_amount", key).
			WithReportableDetails(map[string]any{
				"pack_key":     key,
				"grant_amount": p.Metadata[types.PriceMetadataGrantAmount],
			}).
			Mark(ierr.ErrValidation)
	}

	return &Pack{
		Key:             key,
		ProductID:       p.ProductID,
		PriceID:         p.ID,
		ExternalPriceID: p.ExternalPriceID,
		Amount:          p.Amount,
		Currency:        p.Currency,
		GrantAmount:     amount,
		GrantUnit:       types.GrantUnit(strings.ToLower(p.Metadata.Get(types.PriceMetadataGrantUnit))),
	}, nil
}

// AddonQuotaGB is the storage granted per unit of an add-on price
func (p *Price) AddonQuotaGB() decimal.Decimal {
	q, err := decimal.NewFromString(p.Metadata.Get(types.PriceMetadataGrantAmount))
	if err != nil {
		return decimal.Zero
	}
	return q
}
