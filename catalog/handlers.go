package catalog

import (
	"net/http"

	"campuscrave/auth"
	"campuscrave/filemgr"
	"campuscrave/models"
	"campuscrave/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	Store *Store
	Files *filemgr.Manager
}

// GetVendors handles GET /api/vendors
func (h *Handler) GetVendors(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	utils.SendResponse(w, http.StatusOK, h.Store.Vendors(), "", nil)
}

// UpdateVendor handles PUT /api/vendors/:id
func (h *Handler) UpdateVendor(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if !canManage(r, id) {
		utils.RespondWithError(w, http.StatusForbidden, "You are not authorized to edit this vendor")
		return
	}

	var patch models.VendorPatch
	if err := utils.DecodeJSON(r, &patch); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	v, ok, err := h.Store.UpdateVendor(id, patch)
	if err != nil {
		utils.SendResponse(w, http.StatusBadRequest, nil, "Invalid vendor update", err)
		return
	}
	if !ok {
		utils.RespondWithError(w, http.StatusNotFound, "Vendor not found")
		return
	}
	utils.SendResponse(w, http.StatusOK, v, "Vendor updated", nil)
}

// GetProducts handles GET /api/products?vendor=
func (h *Handler) GetProducts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	utils.SendResponse(w, http.StatusOK, h.Store.Browse(r.URL.Query().Get("vendor")), "", nil)
}

// GetMenu handles GET /api/vendor/menu, the vendor's full menu including hidden items.
func (h *Handler) GetMenu(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sess, _ := auth.SessionFrom(r.Context())
	utils.SendResponse(w, http.StatusOK, h.Store.Menu(sess.User.VendorID), "", nil)
}

// CreateProduct handles POST /api/products. Vendors always list under their own vendor.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input NewProduct
	if err := utils.DecodeJSON(r, &input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	sess, _ := auth.SessionFrom(r.Context())
	if sess.User.Role == models.RoleVendor {
		input.VendorID = sess.User.VendorID
	}

	p, err := h.Store.AddProduct(input)
	switch {
	case errors.Is(err, ErrVendorNotFound):
		utils.SendResponse(w, http.StatusNotFound, nil, "Vendor not found", err)
		return
	case err != nil:
		utils.SendResponse(w, http.StatusBadRequest, nil, "Invalid product", err)
		return
	}
	utils.SendResponse(w, http.StatusCreated, p, "Product added", nil)
}

// UpdateProduct handles PUT /api/products/:id
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := h.authorizeProduct(w, r, ps)
	if !ok {
		return
	}

	var patch models.ProductPatch
	if err := utils.DecodeJSON(r, &patch); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	p, found, err := h.Store.UpdateProduct(id, patch)
	if err != nil {
		utils.SendResponse(w, http.StatusBadRequest, nil, "Invalid product update", err)
		return
	}
	if !found {
		utils.RespondWithError(w, http.StatusNotFound, "Product not found")
		return
	}
	utils.SendResponse(w, http.StatusOK, p, "Product updated", nil)
}

// ToggleProduct handles POST /api/products/:id/toggle
func (h *Handler) ToggleProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := h.authorizeProduct(w, r, ps)
	if !ok {
		return
	}
	p, found := h.Store.ToggleProductAvailability(id)
	if !found {
		utils.RespondWithError(w, http.StatusNotFound, "Product not found")
		return
	}
	utils.SendResponse(w, http.StatusOK, p, "Availability updated", nil)
}

// UploadProductImage handles POST /api/products/:id/image with a multipart "image" field.
func (h *Handler) UploadProductImage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := h.authorizeProduct(w, r, ps)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(filemgr.MaxUploadSize); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Unable to parse form")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "No image file uploaded")
		return
	}
	defer file.Close()

	saved, err := h.Files.SaveImage(file, header.Filename, "product")
	if err != nil {
		log.WithError(err).WithField("productId", id).Warn("product image rejected")
		utils.SendResponse(w, http.StatusBadRequest, nil, "Image upload failed", err)
		return
	}

	p, found, err := h.Store.UpdateProduct(id, models.ProductPatch{Image: &saved.Image})
	if err != nil || !found {
		utils.RespondWithError(w, http.StatusNotFound, "Product not found")
		return
	}
	utils.SendResponse(w, http.StatusOK, map[string]any{
		"product": p,
		"thumb":   saved.Thumb,
	}, "Image updated", nil)
}

// authorizeProduct checks the product exists and the caller may manage its vendor.
func (h *Handler) authorizeProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) (string, bool) {
	id := ps.ByName("id")
	p, ok := h.Store.Product(id)
	if !ok {
		utils.RespondWithError(w, http.StatusNotFound, "Product not found")
		return "", false
	}
	if !canManage(r, p.VendorID) {
		utils.RespondWithError(w, http.StatusForbidden, "You are not authorized to edit this product")
		return "", false
	}
	return id, true
}

func canManage(r *http.Request, vendorID string) bool {
	sess, ok := auth.SessionFrom(r.Context())
	if !ok {
		return false
	}
	switch sess.User.Role {
	case models.RoleAdmin:
		return true
	case models.RoleVendor:
		return sess.User.VendorID == vendorID
	}
	return false
}
