package types

// OrderStatus tracks whether the entitlements of an order were fulfilled
type OrderStatus string

const (
	// OrderStatusPending means the order is recorded but its grant has not completed
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPaid means the entitlement for the order was granted
	OrderStatusPaid    OrderStatus = "paid"
)

// ChecklistStatus is the completion status of an intensive checklist
type ChecklistStatus string

const (
	ChecklistStatusPending   ChecklistStatus = "pending"
	ChecklistStatusCompleted ChecklistStatus = "completed"
)
