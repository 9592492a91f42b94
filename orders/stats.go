package orders

import (
	"campuscrave/globals"
	"campuscrave/models"

	"github.com/shopspring/decimal"
)

var commissionRate = decimal.RequireFromString(globals.CommissionRate)

// Stats summarises the platform for the admin dashboard.
type Stats struct {
	TotalOrders      int                        `json:"totalOrders"`
	TotalRevenue     float64                    `json:"totalRevenue"`
	Commission       float64                    `json:"platformCommission"`
	ByStatus         map[models.OrderStatus]int `json:"byStatus"`
	SalesByVendor    map[string]float64         `json:"salesByVendor"`
	EarningsByVendor map[string]float64         `json:"deliveredEarningsByVendor"`
	ActiveDeliveries int                        `json:"activeDeliveries"`
}

// Stats counts revenue over every order that was not cancelled. Vendor earnings only include
// delivered orders.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	revenue := decimal.Zero
	sales := map[string]decimal.Decimal{}
	earnings := map[string]decimal.Decimal{}
	st := Stats{
		TotalOrders:      len(e.orders),
		ByStatus:         map[models.OrderStatus]int{},
		SalesByVendor:    map[string]float64{},
		EarningsByVendor: map[string]float64{},
	}

	for _, o := range e.orders {
		st.ByStatus[o.Status]++
		if o.Status == models.StatusOutForDelivery {
			st.ActiveDeliveries++
		}
		if o.Status == models.StatusCancelled {
			continue
		}
		amount := decimal.NewFromFloat(o.TotalAmount)
		revenue = revenue.Add(amount)
		sales[o.VendorID] = sales[o.VendorID].Add(amount)
		if o.Status == models.StatusDelivered {
			earnings[o.VendorID] = earnings[o.VendorID].Add(amount)
		}
	}

	st.TotalRevenue = revenue.InexactFloat64()
	st.Commission = revenue.Mul(commissionRate).Round(2).InexactFloat64()
	for id, v := range sales {
		st.SalesByVendor[id] = v.InexactFloat64()
	}
	for id, v := range earnings {
		st.EarningsByVendor[id] = v.InexactFloat64()
	}
	return st
}
