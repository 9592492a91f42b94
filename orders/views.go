package orders

import (
	"slices"

	"campuscrave/models"
)

// All returns every order, newest first.
func (e *Engine) All() []models.Order {
	return e.filter(func(models.Order) bool { return true })
}

// AvailablePickups are ready orders no delivery partner has claimed yet.
func (e *Engine) AvailablePickups() []models.Order {
	return e.filter(func(o models.Order) bool {
		return o.Status == models.StatusReadyForPickup && o.DeliveryID == ""
	})
}

// ActiveDeliveries are the partner's claimed orders not yet delivered. An order cancelled
// after the claim stays listed so the partner sees it was called off.
func (e *Engine) ActiveDeliveries(deliveryID string) []models.Order {
	return e.filter(func(o models.Order) bool {
		return o.DeliveryID == deliveryID && o.Status != models.StatusDelivered
	})
}

func (e *Engine) VendorPending(vendorID string) []models.Order {
	return e.vendorIn(vendorID, models.StatusPending)
}

func (e *Engine) VendorActive(vendorID string) []models.Order {
	return e.vendorIn(vendorID, models.StatusPreparing, models.StatusReadyForPickup, models.StatusOutForDelivery)
}

func (e *Engine) VendorHistory(vendorID string) []models.Order {
	return e.vendorIn(vendorID, models.StatusDelivered, models.StatusCancelled)
}

func (e *Engine) StudentOrders(studentID string) []models.Order {
	return e.filter(func(o models.Order) bool { return o.StudentID == studentID })
}

// StudentActive are the student's orders that are not yet closed.
func (e *Engine) StudentActive(studentID string) []models.Order {
	return e.filter(func(o models.Order) bool {
		return o.StudentID == studentID && !o.Status.Terminal()
	})
}

func (e *Engine) vendorIn(vendorID string, statuses ...models.OrderStatus) []models.Order {
	return e.filter(func(o models.Order) bool {
		return o.VendorID == vendorID && slices.Contains(statuses, o.Status)
	})
}

func (e *Engine) filter(keep func(models.Order) bool) []models.Order {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := []models.Order{}
	for _, o := range e.orders {
		if keep(o) {
			out = append(out, o.Clone())
		}
	}
	return out
}
