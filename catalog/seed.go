package catalog

import "campuscrave/models"

// DefaultVendors is the catalog a fresh install starts with.
func DefaultVendors() []models.Vendor {
	return []models.Vendor{
		{ID: "v1", Name: "Academic Canteen", Location: "Block A, Ground Floor", Image: "https://picsum.photos/seed/v1/400/300", Rating: 4.5, EstimatedTime: "15-20 min", IsOpen: true},
		{ID: "v2", Name: "Spicy Bites (Hostel 4)", Location: "Nearby Boys Hostel 4", Image: "https://picsum.photos/seed/v2/400/300", Rating: 4.2, EstimatedTime: "10-15 min", IsOpen: true},
		{ID: "v3", Name: "Juice Junction", Location: "Main Gate Complex", Image: "https://picsum.photos/seed/v3/400/300", Rating: 4.8, EstimatedTime: "5-10 min", IsOpen: true},
		{ID: "v4", Name: "Stationary & Essentials", Location: "Central Library Basement", Image: "https://picsum.photos/seed/v4/400/300", Rating: 4.0, EstimatedTime: "20-30 min", IsOpen: true},
	}
}

func DefaultProducts() []models.Product {
	return []models.Product{
		{ID: "p1", VendorID: "v1", Name: "Paneer Butter Masala", Price: 180, Description: "Creamy paneer cubes in rich tomato gravy.", Category: "Main Course", Image: "https://picsum.photos/seed/p1/200/200", IsAvailable: true},
		{ID: "p2", VendorID: "v1", Name: "Butter Naan", Price: 40, Description: "Freshly baked tandoori bread with butter.", Category: "Bread", Image: "https://picsum.photos/seed/p2/200/200", IsAvailable: true},
		{ID: "p3", VendorID: "v2", Name: "Chicken Biryani", Price: 220, Description: "Hyderabadi style spicy chicken biryani.", Category: "Rice", Image: "https://picsum.photos/seed/p3/200/200", IsAvailable: true},
		{ID: "p4", VendorID: "v3", Name: "Mixed Fruit Juice", Price: 60, Description: "Fresh blend of seasonal fruits.", Category: "Beverage", Image: "https://picsum.photos/seed/p4/200/200", IsAvailable: true},
		{ID: "p5", VendorID: "v4", Name: "Register (120 Pages)", Price: 55, Description: "Hardbound A4 size register.", Category: "Retail", Image: "https://picsum.photos/seed/p5/200/200", IsAvailable: true},
	}
}
