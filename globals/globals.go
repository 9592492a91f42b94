package globals

// Context keys
type ContextKey string

const (
	RoleKey    ContextKey = "role"
	UserIDKey  ContextKey = "userId"
	SessionKey ContextKey = "session"
)

const (
	// DemoVendorID is assigned to vendor accounts created through self-registration.
	DemoVendorID = "v1"

	OTPLength = 4

	// CommissionRate is the platform's cut of gross order value.
	CommissionRate = "0.05"

	MaxRecommendations = 2
)

// Persistence keys, one JSON blob each.
const (
	OrdersKey   = "cc_orders"
	ProductsKey = "cc_products"
	VendorsKey  = "cc_vendors"
	UsersKey    = "cc_users"

	SessionKeyPrefix = "cc_session:"
)
