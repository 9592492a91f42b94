package cart

import (
	"net/http"

	"campuscrave/auth"
	"campuscrave/catalog"
	"campuscrave/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
)

type Handler struct {
	Carts   *Registry
	Catalog *catalog.Store
}

type addItemInput struct {
	ProductID string `json:"productId"`
}

// view is the cart as returned to clients.
type view struct {
	Items    any     `json:"items"`
	Total    float64 `json:"total"`
	VendorID string  `json:"vendorId,omitempty"`
}

func render(c *Cart) view {
	items := c.Items()
	vendorID := ""
	if len(items) > 0 {
		vendorID = items[0].VendorID
	}
	return view{Items: items, Total: Total(items), VendorID: vendorID}
}

func (h *Handler) cartOf(r *http.Request) *Cart {
	sess, _ := auth.SessionFrom(r.Context())
	return h.Carts.For(sess.ID)
}

// GetCart handles GET /api/cart
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	utils.SendResponse(w, http.StatusOK, render(h.cartOf(r)), "", nil)
}

// AddItem handles POST /api/cart/items
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input addItemInput
	if err := utils.DecodeJSON(r, &input); err != nil || input.ProductID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "productId is required")
		return
	}

	p, err := h.Catalog.CheckPurchasable(input.ProductID)
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		utils.SendResponse(w, http.StatusNotFound, nil, "Product not found", err)
		return
	case err != nil:
		utils.SendResponse(w, http.StatusConflict, nil, "Product cannot be ordered right now", err)
		return
	}

	c := h.cartOf(r)
	if _, err := c.Add(p); err != nil {
		utils.SendResponse(w, http.StatusConflict, nil, "Finish or clear your current cart first", err)
		return
	}
	utils.SendResponse(w, http.StatusOK, render(c), "Added to cart", nil)
}

// RemoveItem handles DELETE /api/cart/items/:productid
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	c := h.cartOf(r)
	c.Remove(ps.ByName("productid"))
	utils.SendResponse(w, http.StatusOK, render(c), "Removed from cart", nil)
}

// ClearCart handles DELETE /api/cart
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	c := h.cartOf(r)
	c.Clear()
	utils.SendResponse(w, http.StatusOK, render(c), "Cart cleared", nil)
}
