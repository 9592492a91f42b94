package models

// CartItem is a product snapshot plus the quantity ordered.
type CartItem struct {
	Product  `bson:",inline"`
	Quantity int `json:"quantity" bson:"quantity" validate:"gte=1"`
}

// LineTotal is price times quantity.
func (c CartItem) LineTotal() float64 {
	return c.Price * float64(c.Quantity)
}
