package orders

import (
	"sync"
	"testing"

	"campuscrave/cart"
	"campuscrave/catalog"
	"campuscrave/globals"
	"campuscrave/models"
	"campuscrave/mq"
	"campuscrave/persist"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	student = Actor{ID: "student_1", Role: models.RoleStudent}
	vendor  = Actor{ID: "vendor_1", Role: models.RoleVendor, VendorID: "v1"}
	rival   = Actor{ID: "vendor_2", Role: models.RoleVendor, VendorID: "v2"}
	rider   = Actor{ID: "delivery_1", Role: models.RoleDelivery}
	rider2  = Actor{ID: "delivery_2", Role: models.RoleDelivery}
	admin   = Actor{ID: "admin_1", Role: models.RoleAdmin}
)

func product(t *testing.T, s *catalog.Store, id string) models.Product {
	t.Helper()
	p, ok := s.Product(id)
	require.True(t, ok)
	return p
}

// placeOrder checks out p1 + p2 from the default catalog.
func placeOrder(t *testing.T, e *Engine) models.Order {
	t.Helper()
	s := catalog.NewStore(catalog.DefaultVendors(), catalog.DefaultProducts(), nil)
	c := &cart.Cart{}
	_, err := c.Add(product(t, s, "p1"))
	require.NoError(t, err)
	_, err = c.Add(product(t, s, "p2"))
	require.NoError(t, err)

	o, err := e.CreateOrder(student, c, "Hostel 4")
	require.NoError(t, err)
	return o
}

func readyOrder(t *testing.T, e *Engine) models.Order {
	t.Helper()
	o := placeOrder(t, e)
	_, err := e.UpdateOrderStatus(vendor, o.ID, models.StatusPreparing, "")
	require.NoError(t, err)
	o, err = e.UpdateOrderStatus(vendor, o.ID, models.StatusReadyForPickup, "")
	require.NoError(t, err)
	return o
}

func TestCreateOrder(t *testing.T) {
	e := NewEngine(nil, nil, nil)
	s := catalog.NewStore(catalog.DefaultVendors(), catalog.DefaultProducts(), nil)
	c := &cart.Cart{}
	c.Add(product(t, s, "p1"))
	c.Add(product(t, s, "p2"))

	o, err := e.CreateOrder(student, c, "Hostel 4")
	require.NoError(t, err)

	assert.Regexp(t, `^ORD-[A-Z0-9]{9}$`, o.ID)
	assert.Equal(t, 220.0, o.TotalAmount)
	assert.Equal(t, models.StatusPending, o.Status)
	assert.Len(t, o.Items, 2)
	assert.Regexp(t, `^[1-9][0-9]{3}$`, o.OTP)
	assert.Equal(t, "v1", o.VendorID)
	assert.Equal(t, "student_1", o.StudentID)
	assert.Equal(t, "Hostel 4", o.DeliveryAddress)
	assert.Zero(t, c.Len(), "cart is emptied")
	require.Len(t, o.History, 1)
	assert.Equal(t, models.StatusPending, o.History[0].To)
}

func TestCreateOrderNewestFirst(t *testing.T) {
	e := NewEngine(nil, nil, nil)
	first := placeOrder(t, e)
	second := placeOrder(t, e)

	all := e.All()
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)
}

func TestCreateOrderEmptyCart(t *testing.T) {
	e := NewEngine(nil, nil, nil)
	placeOrder(t, e)

	_, err := e.CreateOrder(student, &cart.Cart{}, "Hostel 4")
	assert.Equal(t, ErrEmptyCart, err)
	assert.Len(t, e.All(), 1)

	_, err = e.CreateOrder(Actor{}, &cart.Cart{}, "Hostel 4")
	assert.Equal(t, ErrNoSession, err)
	assert.Len(t, e.All(), 1)
}

func TestCreateOrderOnlyStudents(t *testing.T) {
	e := NewEngine(nil, nil, nil)
	c := &cart.Cart{}
	c.Add(models.Product{ID: "p2", VendorID: "v1", Name: "Butter Naan", Price: 40})

	_, err := e.CreateOrder(vendor, c, "Block A")
	assert.True(t, errors.Is(err, ErrForbidden))
	assert.Equal(t, 1, c.Len(), "cart untouched")
}

func TestTotalIgnoresLaterPriceChanges(t *testing.T) {
	e := NewEngine(nil, nil, nil)
	s := catalog.NewStore(catalog.DefaultVendors(), catalog.DefaultProducts(), nil)
	c := &cart.Cart{}
	c.Add(product(t, s, "p1"))
	c.Add(product(t, s, "p1"))

	o, err := e.CreateOrder(student, c, "Hostel 4")
	require.NoError(t, err)

	price := 999.0
	_, _, err = s.UpdateProduct("p1", models.ProductPatch{Price: &price})
	require.NoError(t, err)

	got, err := e.Get(o.ID)
	require.NoError(t, err)
	assert.Equal(t, 360.0, got.TotalAmount)
	assert.Equal(t, 180.0, got.Items[0].Price)
}

func TestVendorFlowAndClaim(t *testing.T) {
	e := NewEngine(nil, nil, nil)
	o := placeOrder(t, e)

	assert.Len(t, e.VendorPending("v1"), 1)

	o, err := e.UpdateOrderStatus(vendor, o.ID, models.StatusPreparing, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPreparing, o.Status)
	assert.Empty(t, e.VendorPending("v1"))
	assert.Len(t, e.VendorActive("v1"), 1)

	_, err = e.UpdateOrderStatus(vendor, o.ID, models.StatusReadyForPickup, "")
	require.NoError(t, err)
	require.Len(t, e.AvailablePickups(), 1)

	o, err = e.Claim(rider, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOutForDelivery, o.Status)
	assert.Equal(t, rider.ID, o.DeliveryID)

	assert.Empty(t, e.AvailablePickups(), "claimed orders leave the pickup list")
	assert.Len(t, e.ActiveDeliveries(rider.ID), 1)
	assert.Empty(t, e.ActiveDeliveries(rider2.ID))

	_, err = e.Claim(rider2, o.ID)
	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, ErrAlreadyClaimed, te.Err)

	got, _ := e.Get(o.ID)
	assert.Equal(t, rider.ID, got.DeliveryID)
	assert.Len(t, got.History, 4)
}

func TestUpdateOrderStatusAsDeliveryClaims(t *testing.T) {
	e := NewEngine(nil, nil, nil)
	o := readyOrder(t, e)

	o, err := e.UpdateOrderStatus(rider, o.ID, models.StatusOutForDelivery, rider.ID)
	require.NoError(t, err)
	assert.Equal(t, rider.ID, o.DeliveryID)
}

func TestConcurrentClaimsHaveOneWinner(t *testing.T) {
	e := NewEngine(nil, nil, nil)
	o := readyOrder(t, e)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a := Actor{ID: "rider-" + string(rune('a'+i)), Role: models.RoleDelivery}
			if _, err := e.Claim(a, o.ID); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestIllegalTransitions(t *testing.T) {
	e := NewEngine(nil, nil, nil)
	o := placeOrder(t, e)

	cases := []struct {
		name   string
		actor  Actor
		status models.OrderStatus
		want   error
	}{
		{"vendor skips a step", vendor, models.StatusReadyForPickup, ErrIllegalTransition},
		{"vendor delivers", vendor, models.StatusDelivered, ErrIllegalTransition},
		{"other vendor", rival, models.StatusPreparing, ErrForbidden},
		{"student", student, models.StatusCancelled, ErrForbidden},
		{"delivery without otp", rider, models.StatusDelivered, ErrForbidden},
		{"unknown status", admin, models.OrderStatus("LOST"), ErrIllegalTransition},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.UpdateOrderStatus(tc.actor, o.ID, tc.status, "")
			var te *TransitionError
			require.True(t, errors.As(err, &te), "got %v", err)
			assert.True(t, errors.Is(err, tc.want))
			assert.Equal(t, o.ID, te.OrderID)
			assert.Equal(t, models.StatusPending, te.From)

			got, _ := e.Get(o.ID)
			assert.Equal(t, models.StatusPending, got.Status)
		})
	}
}

func TestClaimBeforeReady(t *testing.T) {
	e := NewEngine(nil, nil, nil)
	o := placeOrder(t, e)

	_, err := e.Claim(rider, o.ID)
	assert.True(t, errors.Is(err, ErrIllegalTransition))

	_, err = e.Claim(vendor, o.ID)
	assert.True(t, errors.Is(err, ErrForbidden))
}

func TestMissingOrder(t *testing.T) {
	e := NewEngine(nil, nil, nil)
	placeOrder(t, e)

	_, err := e.UpdateOrderStatus(admin, "ORD-NOPE", models.StatusCancelled, "")
	assert.True(t, errors.Is(err, ErrOrderNotFound))
	_, err = e.Claim(rider, "ORD-NOPE")
	assert.True(t, errors.Is(err, ErrOrderNotFound))
	_, err = e.Get("ORD-NOPE")
	assert.True(t, errors.Is(err, ErrOrderNotFound))
}

func TestVerifyDelivery(t *testing.T) {
	e := NewEngine(nil, nil, nil)
	o := readyOrder(t, e)
	_, err := e.Claim(rider, o.ID)
	require.NoError(t, err)

	wrong := "0000"
	if o.OTP == wrong {
		wrong = "0001"
	}
	for _, bad := range []string{wrong, o.OTP + " ", "", o.OTP[:3]} {
		_, err = e.VerifyDelivery(rider, o.ID, bad)
		assert.True(t, errors.Is(err, ErrOTPMismatch), "otp %q", bad)
		got, _ := e.Get(o.ID)
		assert.Equal(t, models.StatusOutForDelivery, got.Status)
	}

	_, err = e.VerifyDelivery(rider2, o.ID, o.OTP)
	assert.True(t, errors.Is(err, ErrForbidden), "only the claimer completes")

	got, err := e.VerifyDelivery(rider, o.ID, o.OTP)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, got.Status)
	assert.Empty(t, e.ActiveDeliveries(rider.ID))
	assert.Len(t, e.VendorHistory("v1"), 1)
}

func TestActiveDeliveriesKeepCancelledClaims(t *testing.T) {
	e := NewEngine(nil, nil, nil)
	o := readyOrder(t, e)
	_, err := e.Claim(rider, o.ID)
	require.NoError(t, err)

	_, err = e.Cancel(admin, o.ID)
	require.NoError(t, err)

	active := e.ActiveDeliveries(rider.ID)
	require.Len(t, active, 1)
	assert.Equal(t, o.ID, active[0].ID)
	assert.Equal(t, models.StatusCancelled, active[0].Status)
	assert.Empty(t, e.ActiveDeliveries(rider2.ID))
}

func TestAdminOverrides(t *testing.T) {
	e := NewEngine(nil, nil, nil)
	o := placeOrder(t, e)

	got, err := e.ForceStatus(admin, o.ID, models.StatusReadyForPickup)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReadyForPickup, got.Status)

	_, err = e.ForceStatus(vendor, o.ID, models.StatusDelivered)
	assert.True(t, errors.Is(err, ErrForbidden))

	got, err = e.UpdateOrderStatus(admin, o.ID, models.StatusOutForDelivery, rider.ID)
	require.NoError(t, err)
	assert.Equal(t, rider.ID, got.DeliveryID)

	got, err = e.ForceDeliver(admin, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, got.Status)
}

func TestTerminalOrdersAreFrozen(t *testing.T) {
	e := NewEngine(nil, nil, nil)
	o := placeOrder(t, e)
	_, err := e.Cancel(admin, o.ID)
	require.NoError(t, err)

	_, err = e.ForceStatus(admin, o.ID, models.StatusPending)
	assert.True(t, errors.Is(err, ErrTerminalState))
	_, err = e.ForceDeliver(admin, o.ID)
	assert.True(t, errors.Is(err, ErrTerminalState))
	_, err = e.UpdateOrderStatus(vendor, o.ID, models.StatusPreparing, "")
	assert.True(t, errors.Is(err, ErrTerminalState))

	got, _ := e.Get(o.ID)
	assert.Equal(t, models.StatusCancelled, got.Status)
}

func TestStudentViews(t *testing.T) {
	e := NewEngine(nil, nil, nil)
	a := placeOrder(t, e)
	placeOrder(t, e)
	_, err := e.Cancel(admin, a.ID)
	require.NoError(t, err)

	assert.Len(t, e.StudentOrders(student.ID), 2)
	assert.Len(t, e.StudentActive(student.ID), 1)
	assert.Empty(t, e.StudentOrders("someone_else"))
}

func TestStats(t *testing.T) {
	e := NewEngine(nil, nil, nil)
	delivered := readyOrder(t, e)
	_, err := e.Claim(rider, delivered.ID)
	require.NoError(t, err)
	_, err = e.VerifyDelivery(rider, delivered.ID, delivered.OTP)
	require.NoError(t, err)

	cancelled := placeOrder(t, e)
	_, err = e.Cancel(admin, cancelled.ID)
	require.NoError(t, err)
	placeOrder(t, e)

	st := e.Stats()
	assert.Equal(t, 3, st.TotalOrders)
	assert.Equal(t, 440.0, st.TotalRevenue)
	assert.Equal(t, 22.0, st.Commission)
	assert.Equal(t, 1, st.ByStatus[models.StatusDelivered])
	assert.Equal(t, 1, st.ByStatus[models.StatusCancelled])
	assert.Equal(t, 1, st.ByStatus[models.StatusPending])
	assert.Equal(t, 440.0, st.SalesByVendor["v1"])
	assert.Equal(t, 220.0, st.EarningsByVendor["v1"])
}

func TestEventsAndPersistence(t *testing.T) {
	bus := mq.NewLocalBus()
	var kinds []string
	var seqs []int
	bus.Subscribe(func(ev mq.OrderEvent) {
		kinds = append(kinds, ev.Type)
		seqs = append(seqs, ev.Seq)
	})
	adapter := persist.NewAdapter(persist.NewMemoryStore(), "cc_")

	e := NewEngine(nil, adapter, bus)
	o := readyOrder(t, e)
	_, err := e.Claim(rider, o.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{
		mq.EventOrderPlaced,
		mq.EventStatusChanged,
		mq.EventStatusChanged,
		mq.EventOrderClaimed,
	}, kinds)
	assert.Equal(t, []int{1, 2, 3, 4}, seqs)

	var stored []models.Order
	require.True(t, adapter.Load(t.Context(), globals.OrdersKey, &stored))
	require.Len(t, stored, 1)
	assert.Equal(t, models.StatusOutForDelivery, stored[0].Status)
	assert.Equal(t, rider.ID, stored[0].DeliveryID)

	restored := NewEngine(stored, adapter, nil)
	got, err := restored.Get(o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.OTP, got.OTP)
}
