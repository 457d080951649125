package types

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with a prefix ex ord_01HZX4E6W3C2N0K9R8T5V7Y1QA
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}

const (
	UUID_PREFIX_ORDER            = "ord"
	UUID_PREFIX_ORDER_ITEM       = "oit"
	UUID_PREFIX_SUBSCRIPTION     = "sub"
	UUID_PREFIX_STORAGE_GRANT    = "stg"
	UUID_PREFIX_HOUSEHOLD        = "hh"
	UUID_PREFIX_HOUSEHOLD_MEMBER = "hhm"
	UUID_PREFIX_PAYMENT          = "pay"
	UUID_PREFIX_CHECKLIST        = "chk"
	UUID_PREFIX_MEMBERSHIP_TIER  = "tier"
	UUID_PREFIX_CATALOG_PRODUCT  = "prod"
	UUID_PREFIX_CATALOG_PRICE    = "price"
)
