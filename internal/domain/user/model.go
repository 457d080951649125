package user

// Profile is the subset of the identity profile the engine reads and updates
type Profile struct {
	UserID           string  `db:"user_id" json:"user_id"`
	Email            string  `db:"email" json:"email"`
	HouseholdID      *string `db:"household_id" json:"household_id,omitempty"`
	IsHouseholdAdmin bool    `db:"is_household_admin" json:"is_household_admin"`
}
