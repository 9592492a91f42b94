package cart

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"campuscrave/auth"
	"campuscrave/catalog"
	"campuscrave/models"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	paneer = models.Product{ID: "p1", VendorID: "v1", Name: "Paneer Butter Masala", Price: 180, IsAvailable: true}
	naan   = models.Product{ID: "p2", VendorID: "v1", Name: "Butter Naan", Price: 40, IsAvailable: true}
	juice  = models.Product{ID: "p4", VendorID: "v3", Name: "Mixed Fruit Juice", Price: 60, IsAvailable: true}
)

func TestAddCountsQuantity(t *testing.T) {
	c := &Cart{}
	for i := 0; i < 3; i++ {
		_, err := c.Add(naan)
		require.NoError(t, err)
	}
	_, err := c.Add(paneer)
	require.NoError(t, err)

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "p2", items[0].ID)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, 1, items[1].Quantity)
}

func TestTotal(t *testing.T) {
	c := &Cart{}
	c.Add(paneer)
	c.Add(naan)
	assert.Equal(t, 220.0, c.Total())

	c.Add(naan)
	assert.Equal(t, 260.0, c.Total())

	assert.Equal(t, 0.3, Total([]models.CartItem{
		{Product: models.Product{Price: 0.1}, Quantity: 1},
		{Product: models.Product{Price: 0.2}, Quantity: 1},
	}))
}

func TestAddRejectsSecondVendor(t *testing.T) {
	c := &Cart{}
	c.Add(paneer)

	_, err := c.Add(juice)
	assert.True(t, errors.Is(err, ErrMixedVendors))
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, "v1", c.VendorID())

	c.Clear()
	_, err = c.Add(juice)
	assert.NoError(t, err)
	assert.Equal(t, "v3", c.VendorID())
}

func TestRemove(t *testing.T) {
	c := &Cart{}
	c.Add(paneer)
	c.Add(naan)

	c.Remove("p404")
	assert.Equal(t, 2, c.Len())

	c.Remove("p1")
	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "p2", items[0].ID)
}

func TestDrainAndRestore(t *testing.T) {
	c := &Cart{}
	c.Add(paneer)
	c.Add(naan)

	items := c.Drain()
	assert.Len(t, items, 2)
	assert.Zero(t, c.Len())
	assert.Empty(t, c.VendorID())

	c.Restore(items)
	assert.Equal(t, 220.0, c.Total())
}

func TestRestoreMergesItemsAddedMeanwhile(t *testing.T) {
	c := &Cart{}
	c.Add(paneer)
	c.Add(naan)
	items := c.Drain()

	// an item added between Drain and Restore merges with the restored entry
	_, err := c.Add(naan)
	require.NoError(t, err)
	c.Restore(items)
	_, err = c.Add(paneer)
	require.NoError(t, err)

	got := c.Items()
	require.Len(t, got, 2)
	assert.Equal(t, "p1", got[0].ID)
	assert.Equal(t, 2, got[0].Quantity)
	assert.Equal(t, "p2", got[1].ID)
	assert.Equal(t, 2, got[1].Quantity)

	// another vendor's item added in between is discarded
	drained := c.Drain()
	_, err = c.Add(juice)
	require.NoError(t, err)
	c.Restore(drained)

	got = c.Items()
	require.Len(t, got, 2)
	assert.Equal(t, "v1", c.VendorID())
	for _, it := range got {
		assert.NotEqual(t, "p4", it.ID)
	}
	assert.Equal(t, 440.0, c.Total())
}

func TestConcurrentAdds(t *testing.T) {
	c := &Cart{}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Add(naan)
		}()
	}
	wg.Wait()

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 50, items[0].Quantity)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a := r.For("s1")
	a.Add(naan)

	assert.Same(t, a, r.For("s1"))
	assert.Zero(t, r.For("s2").Len())

	r.Drop("s1")
	assert.Zero(t, r.For("s1").Len())
}

func withSession(req *http.Request, sid string) *http.Request {
	sess := auth.Session{ID: sid, User: models.User{ID: "student_1", Role: models.RoleStudent}}
	return req.WithContext(auth.WithSession(req.Context(), sess))
}

func TestAddItemHandler(t *testing.T) {
	store := catalog.NewStore(catalog.DefaultVendors(), catalog.DefaultProducts(), nil)
	h := &Handler{Carts: NewRegistry(), Catalog: store}

	add := func(productID string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/cart/items", bytes.NewBufferString(`{"productId":"`+productID+`"}`))
		rec := httptest.NewRecorder()
		h.AddItem(rec, withSession(req, "s1"), nil)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, add("p1"))
	assert.Equal(t, http.StatusOK, add("p2"))
	assert.Equal(t, http.StatusNotFound, add("p404"))
	assert.Equal(t, http.StatusConflict, add("p3"), "different vendor")

	store.ToggleProductAvailability("p2")
	assert.Equal(t, http.StatusConflict, add("p2"))

	assert.Equal(t, 220.0, h.Carts.For("s1").Total())

	rec := httptest.NewRecorder()
	h.RemoveItem(rec, withSession(httptest.NewRequest(http.MethodDelete, "/", nil), "s1"),
		httprouter.Params{{Key: "productid", Value: "p1"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 40.0, h.Carts.For("s1").Total())

	rec = httptest.NewRecorder()
	h.ClearCart(rec, withSession(httptest.NewRequest(http.MethodDelete, "/", nil), "s1"), nil)
	assert.Zero(t, h.Carts.For("s1").Len())
}
