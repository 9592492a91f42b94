package orders

import "campuscrave/models"

// canView reports whether actor may read o at all.
func canView(actor Actor, o models.Order) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleStudent:
		return o.StudentID == actor.ID
	case models.RoleVendor:
		return o.VendorID == actor.VendorID
	case models.RoleDelivery:
		return o.DeliveryID == actor.ID ||
			(o.DeliveryID == "" && o.Status == models.StatusReadyForPickup)
	}
	return false
}

// seesOTP: the delivery code is shown to the ordering student and admins only; the
// delivery partner has to obtain it at the door.
func seesOTP(actor Actor, o models.Order) bool {
	return actor.Role == models.RoleAdmin || (actor.Role == models.RoleStudent && o.StudentID == actor.ID)
}

func redact(actor Actor, o models.Order) models.Order {
	if !seesOTP(actor, o) {
		o.OTP = ""
	}
	return o
}

func redactAll(actor Actor, list []models.Order) []models.Order {
	for i := range list {
		list[i] = redact(actor, list[i])
	}
	return list
}
