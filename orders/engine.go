// Package orders runs the order lifecycle: checkout, the per-role status transitions, the
// delivery handshake and the dashboard views built on top of them.
package orders

import (
	"context"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"campuscrave/cart"
	"campuscrave/globals"
	"campuscrave/models"
	"campuscrave/mq"
	"campuscrave/persist"
	"campuscrave/utils"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Actor is whoever asks for a change. VendorID is set for vendor accounts only.
type Actor struct {
	ID       string
	Role     models.Role
	VendorID string
}

func ActorOf(u models.User) Actor {
	return Actor{ID: u.ID, Role: u.Role, VendorID: u.VendorID}
}

// Engine owns every order. All operations are atomic with respect to each other.
type Engine struct {
	mu       sync.RWMutex
	orders   []models.Order // newest first
	mirror   persist.Mirror
	bus      mq.Bus
	validate *validator.Validate
	now      func() time.Time
}

func NewEngine(orders []models.Order, mirror persist.Mirror, bus mq.Bus) *Engine {
	if mirror == nil {
		mirror = persist.Discard{}
	}
	if bus == nil {
		bus = mq.Discard{}
	}
	e := &Engine{
		mirror:   mirror,
		bus:      bus,
		validate: validator.New(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, o := range orders {
		e.orders = append(e.orders, o.Clone())
	}
	return e
}

// CreateOrder turns the student's cart into a PENDING order and empties the cart. With no
// session or an empty cart nothing is created.
func (e *Engine) CreateOrder(actor Actor, c *cart.Cart, address string) (models.Order, error) {
	if actor.ID == "" || c == nil {
		return models.Order{}, ErrNoSession
	}
	if actor.Role != models.RoleStudent {
		return models.Order{}, errors.Wrap(ErrForbidden, "only students place orders")
	}

	items := c.Drain()
	if len(items) == 0 {
		return models.Order{}, ErrEmptyCart
	}

	now := e.now()
	o := models.Order{
		ID:              "ORD-" + strings.ToUpper(utils.GenerateRandomString(9)),
		StudentID:       actor.ID,
		VendorID:        items[0].VendorID,
		Items:           items,
		TotalAmount:     cart.Total(items),
		Status:          models.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
		DeliveryAddress: address,
		OTP:             newOTP(),
		History: []models.StatusChange{{
			To:        models.StatusPending,
			ActorID:   actor.ID,
			ActorRole: actor.Role,
			At:        now,
		}},
	}
	if err := e.validate.Struct(o); err != nil {
		c.Restore(items)
		return models.Order{}, errors.Wrap(err, "invalid order")
	}

	e.mu.Lock()
	e.orders = append([]models.Order{o}, e.orders...)
	e.mirror.Mirror(globals.OrdersKey, e.orders)
	e.mu.Unlock()

	log.WithFields(log.Fields{
		"orderId":   o.ID,
		"studentId": o.StudentID,
		"vendorId":  o.VendorID,
		"total":     o.TotalAmount,
	}).Info("order placed")
	e.publish(mq.EventOrderPlaced, o, actor)
	return o.Clone(), nil
}

// UpdateOrderStatus applies status on behalf of actor. deliveryID, when not empty, is
// recorded as the assigned delivery partner.
//
// Vendors move their own orders PENDING -> PREPARING -> READY_FOR_PICKUP. Delivery partners
// may only claim (see Claim); completing a delivery needs the OTP (see VerifyDelivery).
// Admins may move any open order to any status. Closed orders never change.
func (e *Engine) UpdateOrderStatus(actor Actor, orderID string, status models.OrderStatus, deliveryID string) (models.Order, error) {
	if actor.Role == models.RoleDelivery && status == models.StatusOutForDelivery {
		return e.Claim(actor, orderID)
	}

	e.mu.Lock()
	o, err := e.find(orderID)
	if err != nil {
		e.mu.Unlock()
		return models.Order{}, err
	}
	if err := checkTransition(actor, o, status); err != nil {
		e.mu.Unlock()
		return models.Order{}, err
	}
	if deliveryID != "" {
		o.DeliveryID = deliveryID
	}
	e.apply(o, status, actor)
	out := o.Clone()
	e.mu.Unlock()

	ev := mq.EventStatusChanged
	if status == models.StatusCancelled {
		ev = mq.EventOrderCancelled
	}
	e.publish(ev, out, actor)
	return out, nil
}

// Claim assigns a ready, unclaimed order to the calling delivery partner and marks it
// OUT_FOR_DELIVERY. Only one concurrent claim can win.
func (e *Engine) Claim(actor Actor, orderID string) (models.Order, error) {
	e.mu.Lock()
	o, err := e.find(orderID)
	if err != nil {
		e.mu.Unlock()
		return models.Order{}, err
	}
	refuse := func(cause error) (models.Order, error) {
		e.mu.Unlock()
		return models.Order{}, &TransitionError{OrderID: o.ID, From: o.Status, To: models.StatusOutForDelivery, Role: actor.Role, Err: cause}
	}
	switch {
	case actor.Role != models.RoleDelivery:
		return refuse(ErrForbidden)
	case o.Status.Terminal():
		return refuse(ErrTerminalState)
	case o.DeliveryID != "":
		return refuse(ErrAlreadyClaimed)
	case o.Status != models.StatusReadyForPickup:
		return refuse(ErrIllegalTransition)
	}

	o.DeliveryID = actor.ID
	e.apply(o, models.StatusOutForDelivery, actor)
	out := o.Clone()
	e.mu.Unlock()

	log.WithFields(log.Fields{"orderId": out.ID, "deliveryId": actor.ID}).Info("order claimed")
	e.publish(mq.EventOrderClaimed, out, actor)
	return out, nil
}

// VerifyDelivery completes a delivery when otp matches the order's code exactly. A mismatch
// leaves the order as it was and may be retried.
func (e *Engine) VerifyDelivery(actor Actor, orderID, otp string) (models.Order, error) {
	e.mu.Lock()
	o, err := e.find(orderID)
	if err != nil {
		e.mu.Unlock()
		return models.Order{}, err
	}
	refuse := func(cause error) (models.Order, error) {
		e.mu.Unlock()
		return models.Order{}, &TransitionError{OrderID: o.ID, From: o.Status, To: models.StatusDelivered, Role: actor.Role, Err: cause}
	}
	switch {
	case actor.Role != models.RoleDelivery || o.DeliveryID != actor.ID:
		return refuse(ErrForbidden)
	case o.Status.Terminal():
		return refuse(ErrTerminalState)
	case o.Status != models.StatusOutForDelivery:
		return refuse(ErrIllegalTransition)
	}
	if otp != o.OTP {
		e.mu.Unlock()
		log.WithFields(log.Fields{"orderId": o.ID, "deliveryId": actor.ID}).Warn("delivery code mismatch")
		return models.Order{}, errors.Wrap(ErrOTPMismatch, o.ID)
	}

	e.apply(o, models.StatusDelivered, actor)
	out := o.Clone()
	e.mu.Unlock()

	e.publish(mq.EventStatusChanged, out, actor)
	return out, nil
}

// ForceStatus is the admin override.
func (e *Engine) ForceStatus(actor Actor, orderID string, status models.OrderStatus) (models.Order, error) {
	if actor.Role != models.RoleAdmin {
		return models.Order{}, errors.Wrap(ErrForbidden, "admin only")
	}
	return e.UpdateOrderStatus(actor, orderID, status, "")
}

func (e *Engine) ForceDeliver(actor Actor, orderID string) (models.Order, error) {
	return e.ForceStatus(actor, orderID, models.StatusDelivered)
}

func (e *Engine) Cancel(actor Actor, orderID string) (models.Order, error) {
	return e.ForceStatus(actor, orderID, models.StatusCancelled)
}

// Get returns a copy of the order.
func (e *Engine) Get(orderID string) (models.Order, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	o, err := e.find(orderID)
	if err != nil {
		return models.Order{}, err
	}
	return o.Clone(), nil
}

// checkTransition decides whether actor may move o to status.
func checkTransition(actor Actor, o *models.Order, status models.OrderStatus) error {
	refuse := func(cause error) error {
		return &TransitionError{OrderID: o.ID, From: o.Status, To: status, Role: actor.Role, Err: cause}
	}
	if o.Status.Terminal() {
		return refuse(ErrTerminalState)
	}
	if !status.Valid() {
		return refuse(ErrIllegalTransition)
	}

	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleVendor:
		if actor.VendorID == "" || actor.VendorID != o.VendorID {
			return refuse(ErrForbidden)
		}
		if vendorNext[o.Status] != status {
			return refuse(ErrIllegalTransition)
		}
		return nil
	default:
		return refuse(ErrForbidden)
	}
}

var vendorNext = map[models.OrderStatus]models.OrderStatus{
	models.StatusPending:   models.StatusPreparing,
	models.StatusPreparing: models.StatusReadyForPickup,
}

// apply must be called with e.mu held.
func (e *Engine) apply(o *models.Order, status models.OrderStatus, actor Actor) {
	now := e.now()
	o.History = append(o.History, models.StatusChange{
		From:      o.Status,
		To:        status,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		At:        now,
	})
	o.Status = status
	o.UpdatedAt = now
	e.mirror.Mirror(globals.OrdersKey, e.orders)
}

func (e *Engine) find(orderID string) (*models.Order, error) {
	for i := range e.orders {
		if e.orders[i].ID == orderID {
			return &e.orders[i], nil
		}
	}
	return nil, errors.Wrap(ErrOrderNotFound, orderID)
}

func (e *Engine) publish(kind string, o models.Order, actor Actor) {
	e.bus.Publish(context.Background(), mq.OrderEvent{
		Type:      kind,
		Order:     o,
		Seq:       len(o.History),
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		At:        e.now(),
	})
}

// newOTP returns a four digit code that never starts with zero.
func newOTP() string {
	return strconv.Itoa(1000 + rand.Intn(9000))
}
