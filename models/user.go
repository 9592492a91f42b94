package models

// Role scopes what a session user may do.
type Role string

const (
	RoleStudent  Role = "STUDENT"
	RoleVendor   Role = "VENDOR"
	RoleDelivery Role = "DELIVERY"
	RoleAdmin    Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleVendor, RoleDelivery, RoleAdmin:
		return true
	}
	return false
}

// User is the identity exposed to clients. It never carries a credential.
type User struct {
	ID       string `json:"id" bson:"id" validate:"required"`
	Name     string `json:"name" bson:"name" validate:"required"`
	Email    string `json:"email" bson:"email" validate:"required,email"`
	Role     Role   `json:"role" bson:"role" validate:"required,oneof=STUDENT VENDOR DELIVERY ADMIN"`
	Avatar   string `json:"avatar" bson:"avatar"`
	VendorID string `json:"vendorId,omitempty" bson:"vendorId,omitempty" validate:"required_if=Role VENDOR"`
}

// Account is a registered user together with its password hash, as held by the identity store.
type Account struct {
	User         `bson:",inline"`
	PasswordHash string `json:"passwordHash" bson:"passwordHash" validate:"required"`
}
