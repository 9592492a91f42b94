package live

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"campuscrave/auth"
	"campuscrave/models"
	"campuscrave/mq"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, c *Client) outboundPayload {
	t.Helper()
	select {
	case data := <-c.Send:
		var out outboundPayload
		require.NoError(t, json.Unmarshal(data, &out))
		return out
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
	return outboundPayload{}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("unexpected message %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubRegisterBroadcastUnregister(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	client := &Client{Send: make(chan []byte, 10), Rooms: []string{"room1"}}
	require.True(t, hub.Register(client))

	hub.Broadcast([]byte(`{"action":"ping"}`), "room1")
	select {
	case got := <-client.Send:
		assert.JSONEq(t, `{"action":"ping"}`, string(got))
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}

	hub.Unregister(client)
	_, open := <-client.Send
	assert.False(t, open)
	assert.Zero(t, hub.RoomSize("room1"))
}

func TestOrderChangedRoutesByAudience(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	newClient := func(u models.User) *Client {
		c := &Client{Send: make(chan []byte, 10), Rooms: RoomsFor(u), UserID: u.ID}
		require.True(t, hub.Register(c))
		return c
	}
	student := newClient(models.User{ID: "student_1", Role: models.RoleStudent})
	otherStudent := newClient(models.User{ID: "student_2", Role: models.RoleStudent})
	vendor := newClient(models.User{ID: "vendor_1", Role: models.RoleVendor, VendorID: "v1"})
	rider := newClient(models.User{ID: "delivery_1", Role: models.RoleDelivery})
	admin := newClient(models.User{ID: "admin_1", Role: models.RoleAdmin})

	o := models.Order{ID: "ORD-ABCDEFGHI", StudentID: "student_1", VendorID: "v1", Status: models.StatusReadyForPickup, OTP: "4821"}
	hub.OrderChanged(mq.OrderEvent{Type: mq.EventStatusChanged, Order: o, Seq: 3, At: time.Now()})

	got := receive(t, student)
	assert.Equal(t, "4821", got.Order.OTP)
	assert.Equal(t, mq.EventStatusChanged, got.Action)
	assert.Equal(t, "4821", receive(t, admin).Order.OTP)
	assert.Empty(t, receive(t, vendor).Order.OTP)
	assert.Empty(t, receive(t, rider).Order.OTP)
	assertSilent(t, otherStudent)

	// the claimer sits in both the pickup room and its own room but hears the claim once
	o.Status = models.StatusOutForDelivery
	o.DeliveryID = "delivery_1"
	hub.OrderChanged(mq.OrderEvent{Type: mq.EventOrderClaimed, Order: o, Seq: 4, At: time.Now()})
	got = receive(t, rider)
	assert.Equal(t, mq.EventOrderClaimed, got.Action)
	assertSilent(t, rider)
}

func TestOrderChangedDropsStaleEvents(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	admin := &Client{Send: make(chan []byte, 10), Rooms: []string{AdminRoom}}
	require.True(t, hub.Register(admin))

	o := models.Order{ID: "ORD-SEQ", StudentID: "student_1", VendorID: "v1"}
	newer, older := o, o
	newer.Status = models.StatusReadyForPickup
	older.Status = models.StatusPreparing

	hub.OrderChanged(mq.OrderEvent{Type: mq.EventStatusChanged, Order: newer, Seq: 3, At: time.Now()})
	hub.OrderChanged(mq.OrderEvent{Type: mq.EventStatusChanged, Order: older, Seq: 2, At: time.Now()})

	assert.Equal(t, models.StatusReadyForPickup, receive(t, admin).Order.Status)
	assertSilent(t, admin)

	// other orders keep their own sequence
	hub.OrderChanged(mq.OrderEvent{Type: mq.EventOrderPlaced, Order: models.Order{ID: "ORD-OTHER", VendorID: "v1"}, Seq: 1, At: time.Now()})
	assert.Equal(t, "ORD-OTHER", receive(t, admin).Order.ID)
}

func TestStopClosesClients(t *testing.T) {
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		hub.Run()
		close(done)
	}()

	c := &Client{Send: make(chan []byte, 1), Rooms: []string{AdminRoom}}
	require.True(t, hub.Register(c))
	hub.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	_, open := <-c.Send
	assert.False(t, open)
	assert.False(t, hub.Register(&Client{Send: make(chan []byte, 1)}))
}

func TestWebSocketHandlerDeliversEvents(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	user := models.User{ID: "student_1", Role: models.RoleStudent}
	handle := WebSocketHandler(hub)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = r.WithContext(auth.WithSession(r.Context(), auth.Session{ID: "s1", User: user}))
		handle(w, r, httprouter.Params{})
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return hub.RoomSize(StudentRoom("student_1")) == 1
	}, time.Second, 10*time.Millisecond)

	hub.OrderChanged(mq.OrderEvent{
		Type:  mq.EventOrderPlaced,
		Order: models.Order{ID: "ORD-XYZ", StudentID: "student_1", VendorID: "v1", Status: models.StatusPending, OTP: "1234"},
		Seq:   1,
		At:    time.Now(),
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got outboundPayload
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, mq.EventOrderPlaced, got.Action)
	assert.Equal(t, "ORD-XYZ", got.Order.ID)
}
