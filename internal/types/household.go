package types

type HouseholdRole string

const (
	HouseholdRoleAdmin  HouseholdRole = "admin"
	HouseholdRoleMember HouseholdRole = "member"
)

type HouseholdMemberStatus string

const (
	HouseholdMemberStatusActive  HouseholdMemberStatus = "active"
	HouseholdMemberStatusPending HouseholdMemberStatus = "pending"
)
