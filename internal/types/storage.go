package types

import (
	"strings"

	ierr "github.com/flexprice/reconciler/internal/errors"
	"github.com/samber/lo"
)

// GrantUnit is what a flexible pack grants
type GrantUnit string

const (
	GrantUnitTokens    GrantUnit = "tokens"
	GrantUnitStorageGB GrantUnit = "storage_gb"
)

func (u GrantUnit) Validate() error {
	allowed := []GrantUnit{GrantUnitTokens, GrantUnitStorageGB}
	if !lo.Contains(allowed, u) {
		return ierr.NewError("invalid grant unit").
			WithHintf("Unsupported pack grant unit %q", string(u)).
			WithReportableDetails(map[string]any{
				"grant_unit": string(u),
				"allowed":    allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Catalog price metadata keys
const (
	PriceMetadataPackKey     = "pack_key"
	PriceMetadataAddonKey    = "addon_key"
	PriceMetadataGrantAmount = "grant_amount"
	PriceMetadataGrantUnit   = "grant_unit"
)

// StorageAddonKeyPrefix tags catalog prices that are storage add-ons
const StorageAddonKeyPrefix = "storage_addon"

// IsStorageAddonKey reports whether an addon key names a storage add-on
func IsStorageAddonKey(key string) bool {
	return strings.HasPrefix(strings.ToLower(key), StorageAddonKeyPrefix)
}
