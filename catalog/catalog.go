// Package catalog holds vendors and their products.
package catalog

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"campuscrave/globals"
	"campuscrave/models"
	"campuscrave/persist"
	"campuscrave/utils"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var (
	ErrVendorNotFound     = errors.New("vendor not found")
	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product is not available")
	ErrVendorClosed       = errors.New("vendor is closed")
	ErrValidation         = errors.New("invalid product")
)

// NewProduct is what a vendor supplies when listing an item. Id, image and availability are
// assigned by the store.
type NewProduct struct {
	VendorID    string  `json:"vendorId" validate:"required"`
	Name        string  `json:"name" validate:"required"`
	Price       float64 `json:"price" validate:"gte=0"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
}

type Store struct {
	mu       sync.RWMutex
	vendors  []models.Vendor
	products []models.Product
	mirror   persist.Mirror
	validate *validator.Validate
}

func NewStore(vendors []models.Vendor, products []models.Product, mirror persist.Mirror) *Store {
	if mirror == nil {
		mirror = persist.Discard{}
	}
	return &Store{
		vendors:  append([]models.Vendor(nil), vendors...),
		products: append([]models.Product(nil), products...),
		mirror:   mirror,
		validate: validator.New(),
	}
}

func (s *Store) Vendors() []models.Vendor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Vendor{}, s.vendors...)
}

func (s *Store) Vendor(id string) (models.Vendor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.vendorIndex(id)
	if i < 0 {
		return models.Vendor{}, false
	}
	return s.vendors[i], true
}

func (s *Store) Products() []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Product{}, s.products...)
}

func (s *Store) Product(id string) (models.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.productIndex(id)
	if i < 0 {
		return models.Product{}, false
	}
	return s.products[i], true
}

// Menu lists every product of vendorID, hidden ones included.
func (s *Store) Menu(vendorID string) []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Product{}
	for _, p := range s.products {
		if p.VendorID == vendorID {
			out = append(out, p)
		}
	}
	return out
}

// Browse is the student view: available products, optionally of one vendor. Products of a
// closed vendor stay listed; buying them is refused by CheckPurchasable.
func (s *Store) Browse(vendorID string) []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Product{}
	for _, p := range s.products {
		if p.IsAvailable && (vendorID == "" || p.VendorID == vendorID) {
			out = append(out, p)
		}
	}
	return out
}

// CheckPurchasable returns the product if a student may add it to a cart right now.
func (s *Store) CheckPurchasable(productID string) (models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.productIndex(productID)
	if i < 0 {
		return models.Product{}, errors.Wrap(ErrProductNotFound, productID)
	}
	p := s.products[i]
	if !p.IsAvailable {
		return models.Product{}, errors.Wrap(ErrProductUnavailable, p.Name)
	}
	v := s.vendorIndex(p.VendorID)
	if v < 0 {
		return models.Product{}, errors.Wrap(ErrVendorNotFound, p.VendorID)
	}
	if !s.vendors[v].IsOpen {
		return models.Product{}, errors.Wrap(ErrVendorClosed, s.vendors[v].Name)
	}
	return p, nil
}

// AddProduct lists a new, available product with a placeholder image.
func (s *Store) AddProduct(in NewProduct) (models.Product, error) {
	if err := s.validate.Struct(in); err != nil {
		return models.Product{}, errors.Wrap(ErrValidation, err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vendorIndex(in.VendorID) < 0 {
		return models.Product{}, errors.Wrap(ErrVendorNotFound, in.VendorID)
	}
	p := models.Product{
		ID:          utils.GenerateID("p-", 9),
		VendorID:    in.VendorID,
		Name:        in.Name,
		Price:       in.Price,
		Description: in.Description,
		Category:    in.Category,
		Image:       fmt.Sprintf("https://picsum.photos/seed/%d/200/200", rand.Int63()),
		IsAvailable: true,
	}
	s.products = append(s.products, p)
	s.mirror.Mirror(globals.ProductsKey, s.products)
	return p, nil
}

// UpdateProduct merges patch into the product. It reports false, changing nothing, when id is
// unknown.
func (s *Store) UpdateProduct(id string, patch models.ProductPatch) (models.Product, bool, error) {
	if err := s.validate.Struct(patch); err != nil {
		return models.Product{}, false, errors.Wrap(ErrValidation, err.Error())
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return models.Product{}, false, errors.Wrap(ErrValidation, "name must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.productIndex(id)
	if i < 0 {
		return models.Product{}, false, nil
	}
	p := &s.products[i]
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Image != nil {
		p.Image = *patch.Image
	}
	if patch.IsAvailable != nil {
		p.IsAvailable = *patch.IsAvailable
	}
	s.mirror.Mirror(globals.ProductsKey, s.products)
	return *p, true, nil
}

func (s *Store) ToggleProductAvailability(id string) (models.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.productIndex(id)
	if i < 0 {
		return models.Product{}, false
	}
	s.products[i].IsAvailable = !s.products[i].IsAvailable
	s.mirror.Mirror(globals.ProductsKey, s.products)
	return s.products[i], true
}

func (s *Store) UpdateVendor(id string, patch models.VendorPatch) (models.Vendor, bool, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return models.Vendor{}, false, errors.Wrap(ErrValidation, "name must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.vendorIndex(id)
	if i < 0 {
		return models.Vendor{}, false, nil
	}
	v := &s.vendors[i]
	if patch.Name != nil {
		v.Name = *patch.Name
	}
	if patch.Location != nil {
		v.Location = *patch.Location
	}
	if patch.Image != nil {
		v.Image = *patch.Image
	}
	if patch.EstimatedTime != nil {
		v.EstimatedTime = *patch.EstimatedTime
	}
	if patch.IsOpen != nil {
		v.IsOpen = *patch.IsOpen
	}
	s.mirror.Mirror(globals.VendorsKey, s.vendors)
	return *v, true, nil
}

func (s *Store) vendorIndex(id string) int {
	for i := range s.vendors {
		if s.vendors[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) productIndex(id string) int {
	for i := range s.products {
		if s.products[i].ID == id {
			return i
		}
	}
	return -1
}
