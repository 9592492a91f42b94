package orders

import (
	"bytes"
	"net/http"

	"campuscrave/auth"
	"campuscrave/cart"
	"campuscrave/catalog"
	"campuscrave/globals"
	"campuscrave/models"
	"campuscrave/receipt"
	"campuscrave/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	Engine   *Engine
	Carts    *cart.Registry
	Catalog  *catalog.Store
	Receipts *receipt.Printer
}

type placeOrderInput struct {
	DeliveryAddress string `json:"deliveryAddress"`
}

type statusInput struct {
	Status     models.OrderStatus `json:"status"`
	DeliveryID string             `json:"deliveryId,omitempty"`
}

// verifyInput takes either the typed code or the scanned receipt QR payload.
type verifyInput struct {
	OTP string `json:"otp"`
	QR  string `json:"qr"`
}

func caller(r *http.Request) (auth.Session, Actor) {
	sess, _ := auth.SessionFrom(r.Context())
	return sess, ActorOf(sess.User)
}

// PlaceOrder handles POST /api/orders
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input placeOrderInput
	if err := utils.DecodeJSON(r, &input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if input.DeliveryAddress == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "deliveryAddress is required")
		return
	}

	sess, actor := caller(r)
	o, err := h.Engine.CreateOrder(actor, h.Carts.For(sess.ID), input.DeliveryAddress)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.SendResponse(w, http.StatusCreated, o, "Order placed", nil)
}

// GetOrder handles GET /api/orders/:id
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	_, actor := caller(r)
	o, err := h.Engine.Get(ps.ByName("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !canView(actor, o) {
		utils.RespondWithError(w, http.StatusForbidden, "Forbidden")
		return
	}
	utils.SendResponse(w, http.StatusOK, redact(actor, o), "", nil)
}

// GetReceipt handles GET /api/orders/:id/receipt and returns a PDF.
func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	_, actor := caller(r)
	o, err := h.Engine.Get(ps.ByName("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !seesOTP(actor, o) {
		utils.RespondWithError(w, http.StatusForbidden, "Forbidden")
		return
	}

	vendorName := o.VendorID
	if v, ok := h.Catalog.Vendor(o.VendorID); ok {
		vendorName = v.Name
	}

	var buf bytes.Buffer
	if err := h.Receipts.Write(&buf, o, vendorName); err != nil {
		log.WithError(err).WithField("orderId", o.ID).Error("receipt")
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate PDF")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=receipt-"+o.ID+".pdf")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// StudentOrders handles GET /api/student/orders?active=true
func (h *Handler) StudentOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	_, actor := caller(r)
	list := h.Engine.StudentOrders(actor.ID)
	if r.URL.Query().Get("active") == "true" {
		list = h.Engine.StudentActive(actor.ID)
	}
	utils.SendResponse(w, http.StatusOK, list, "", nil)
}

// VendorOrders handles GET /api/vendor/orders?view=pending|active|history
func (h *Handler) VendorOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	_, actor := caller(r)
	var list []models.Order
	switch view := r.URL.Query().Get("view"); view {
	case "", "pending":
		list = h.Engine.VendorPending(actor.VendorID)
	case "active":
		list = h.Engine.VendorActive(actor.VendorID)
	case "history":
		list = h.Engine.VendorHistory(actor.VendorID)
	default:
		utils.RespondWithError(w, http.StatusBadRequest, "unknown view "+view)
		return
	}
	utils.SendResponse(w, http.StatusOK, redactAll(actor, list), "", nil)
}

// VendorUpdateStatus handles POST /api/vendor/orders/:id/status
func (h *Handler) VendorUpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var input statusInput
	if err := utils.DecodeJSON(r, &input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if !input.Status.Valid() {
		utils.RespondWithError(w, http.StatusBadRequest, "Unknown status "+string(input.Status))
		return
	}
	_, actor := caller(r)
	o, err := h.Engine.UpdateOrderStatus(actor, ps.ByName("id"), input.Status, "")
	if err != nil {
		writeError(w, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, redact(actor, o), "Order updated", nil)
}

// Pickups handles GET /api/delivery/pickups
func (h *Handler) Pickups(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	_, actor := caller(r)
	utils.SendResponse(w, http.StatusOK, redactAll(actor, h.Engine.AvailablePickups()), "", nil)
}

// ActiveDeliveries handles GET /api/delivery/active
func (h *Handler) ActiveDeliveries(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	_, actor := caller(r)
	utils.SendResponse(w, http.StatusOK, redactAll(actor, h.Engine.ActiveDeliveries(actor.ID)), "", nil)
}

// Claim handles POST /api/delivery/orders/:id/claim
func (h *Handler) Claim(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	_, actor := caller(r)
	o, err := h.Engine.Claim(actor, ps.ByName("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, redact(actor, o), "Order picked up", nil)
}

// Verify handles POST /api/delivery/orders/:id/verify
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var input verifyInput
	if err := utils.DecodeJSON(r, &input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	orderID := ps.ByName("id")

	otp := input.OTP
	if input.QR != "" {
		scannedID, code, err := h.Receipts.ParsePayload(input.QR)
		if err != nil || scannedID != orderID {
			utils.SendResponse(w, http.StatusUnprocessableEntity, nil, "Invalid receipt code", receipt.ErrBadPayload)
			return
		}
		otp = code
	}
	if len(otp) != globals.OTPLength {
		utils.RespondWithError(w, http.StatusBadRequest, "Enter the 4 digit delivery code")
		return
	}

	_, actor := caller(r)
	o, err := h.Engine.VerifyDelivery(actor, orderID, otp)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, redact(actor, o), "Delivered", nil)
}

// AllOrders handles GET /api/admin/orders
func (h *Handler) AllOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	utils.SendResponse(w, http.StatusOK, h.Engine.All(), "", nil)
}

// GetStats handles GET /api/admin/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	utils.SendResponse(w, http.StatusOK, h.Engine.Stats(), "", nil)
}

// AdminSetStatus handles POST /api/admin/orders/:id/status
func (h *Handler) AdminSetStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var input statusInput
	if err := utils.DecodeJSON(r, &input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if !input.Status.Valid() {
		utils.RespondWithError(w, http.StatusBadRequest, "Unknown status "+string(input.Status))
		return
	}
	_, actor := caller(r)
	var (
		o   models.Order
		err error
	)
	if input.DeliveryID != "" {
		o, err = h.Engine.UpdateOrderStatus(actor, ps.ByName("id"), input.Status, input.DeliveryID)
	} else {
		o, err = h.Engine.ForceStatus(actor, ps.ByName("id"), input.Status)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, o, "Order updated", nil)
}

// AdminDeliver handles POST /api/admin/orders/:id/deliver
func (h *Handler) AdminDeliver(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	_, actor := caller(r)
	o, err := h.Engine.ForceDeliver(actor, ps.ByName("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, o, "Order marked delivered", nil)
}

// AdminCancel handles POST /api/admin/orders/:id/cancel
func (h *Handler) AdminCancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	_, actor := caller(r)
	o, err := h.Engine.Cancel(actor, ps.ByName("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, o, "Order cancelled", nil)
}

func writeError(w http.ResponseWriter, err error) {
	var te *TransitionError
	switch {
	case errors.Is(err, ErrOrderNotFound):
		utils.SendResponse(w, http.StatusNotFound, nil, "Order not found", err)
	case errors.Is(err, ErrOTPMismatch):
		utils.SendResponse(w, http.StatusUnprocessableEntity, nil, "Invalid delivery code", err)
	case errors.Is(err, ErrEmptyCart):
		utils.SendResponse(w, http.StatusBadRequest, nil, "Your cart is empty", err)
	case errors.Is(err, ErrNoSession):
		utils.SendResponse(w, http.StatusUnauthorized, nil, "Please log in", err)
	case errors.Is(err, ErrForbidden):
		utils.SendResponse(w, http.StatusForbidden, nil, "Forbidden", err)
	case errors.As(err, &te):
		utils.SendResponse(w, http.StatusConflict, nil, "Order cannot move to "+string(te.To), err)
	default:
		log.WithError(err).Error("order request failed")
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal error")
	}
}
