package auth

import (
	"strings"

	"campuscrave/globals"
	"campuscrave/models"

	"golang.org/x/crypto/bcrypt"
)

// DemoAccounts returns one account per role: <role>@gla.ac.in with password <role>123.
func DemoAccounts() ([]models.Account, error) {
	roles := []models.Role{models.RoleStudent, models.RoleVendor, models.RoleDelivery, models.RoleAdmin}
	out := make([]models.Account, 0, len(roles))
	for _, role := range roles {
		name := strings.ToLower(string(role))
		hash, err := bcrypt.GenerateFromPassword([]byte(name+"123"), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		u := models.User{
			ID:     name + "_1",
			Name:   "Test " + strings.ToUpper(name[:1]) + name[1:],
			Email:  name + "@gla.ac.in",
			Role:   role,
			Avatar: "https://i.pravatar.cc/150?u=" + string(role),
		}
		if role == models.RoleVendor {
			u.VendorID = globals.DemoVendorID
		}
		out = append(out, models.Account{User: u, PasswordHash: string(hash)})
	}
	return out, nil
}
