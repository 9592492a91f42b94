package models

import "time"

type OrderStatus string

const (
	StatusPending        OrderStatus = "PENDING"
	StatusPreparing      OrderStatus = "PREPARING"
	StatusReadyForPickup OrderStatus = "READY_FOR_PICKUP"
	StatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	StatusDelivered      OrderStatus = "DELIVERED"
	StatusCancelled      OrderStatus = "CANCELLED"
)

var validStatuses = map[OrderStatus]bool{
	StatusPending:        true,
	StatusPreparing:      true,
	StatusReadyForPickup: true,
	StatusOutForDelivery: true,
	StatusDelivered:      true,
	StatusCancelled:      true,
}

func (s OrderStatus) Valid() bool {
	return validStatuses[s]
}

// Terminal reports whether no further transitions are accepted.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

type Order struct {
	ID              string         `json:"id" bson:"id" validate:"required"`
	StudentID       string         `json:"studentId" bson:"studentId" validate:"required"`
	VendorID        string         `json:"vendorId" bson:"vendorId" validate:"required"`
	DeliveryID      string         `json:"deliveryId,omitempty" bson:"deliveryId,omitempty"`
	Items           []CartItem     `json:"items" bson:"items" validate:"required,min=1,dive"`
	TotalAmount     float64        `json:"totalAmount" bson:"totalAmount" validate:"gte=0"`
	Status          OrderStatus    `json:"status" bson:"status" validate:"oneof=PENDING PREPARING READY_FOR_PICKUP OUT_FOR_DELIVERY DELIVERED CANCELLED"`
	CreatedAt       time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt" bson:"updatedAt"`
	DeliveryAddress string         `json:"deliveryAddress" bson:"deliveryAddress"`
	OTP             string         `json:"otp" bson:"otp" validate:"len=4,numeric"`
	History         []StatusChange `json:"history,omitempty" bson:"history,omitempty"`
}

// StatusChange is one accepted transition in an order's audit trail.
type StatusChange struct {
	From      OrderStatus `json:"from,omitempty" bson:"from,omitempty"`
	To        OrderStatus `json:"to" bson:"to"`
	ActorID   string      `json:"actorId" bson:"actorId"`
	ActorRole Role        `json:"actorRole" bson:"actorRole"`
	At        time.Time   `json:"at" bson:"at"`
}

// Clone returns a copy that shares no slices with o.
func (o Order) Clone() Order {
	c := o
	c.Items = append([]CartItem(nil), o.Items...)
	c.History = append([]StatusChange(nil), o.History...)
	return c
}
