package models

type Vendor struct {
	ID            string  `json:"id" bson:"id" validate:"required"`
	Name          string  `json:"name" bson:"name" validate:"required"`
	Location      string  `json:"location" bson:"location"`
	Image         string  `json:"image" bson:"image"`
	Rating        float64 `json:"rating" bson:"rating" validate:"gte=0,lte=5"`
	EstimatedTime string  `json:"estimatedTime" bson:"estimatedTime"`
	IsOpen        bool    `json:"isOpen" bson:"isOpen"`
}

type Product struct {
	ID          string  `json:"id" bson:"id" validate:"required"`
	VendorID    string  `json:"vendorId" bson:"vendorId" validate:"required"`
	Name        string  `json:"name" bson:"name" validate:"required"`
	Price       float64 `json:"price" bson:"price" validate:"gte=0"`
	Description string  `json:"description" bson:"description"`
	Category    string  `json:"category" bson:"category"`
	Image       string  `json:"image" bson:"image"`
	IsAvailable bool    `json:"isAvailable" bson:"isAvailable"`
}

// ProductPatch carries the product fields a vendor or admin may change. Nil fields are left alone.
type ProductPatch struct {
	Name        *string  `json:"name,omitempty"`
	Price       *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	Description *string  `json:"description,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Image       *string  `json:"image,omitempty"`
	IsAvailable *bool    `json:"isAvailable,omitempty"`
}

type VendorPatch struct {
	Name          *string `json:"name,omitempty"`
	Location      *string `json:"location,omitempty"`
	Image         *string `json:"image,omitempty"`
	EstimatedTime *string `json:"estimatedTime,omitempty"`
	IsOpen        *bool   `json:"isOpen,omitempty"`
}
