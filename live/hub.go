// Package live pushes order updates to connected dashboards over websockets.
package live

import (
	"encoding/json"
	"sync"

	"campuscrave/models"
	"campuscrave/mq"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

type Client struct {
	Conn   *websocket.Conn
	Send   chan []byte
	Rooms  []string
	UserID string
}

type broadcastMsg struct {
	Rooms []string
	Data  []byte
}

// Hub tracks clients by room. Every map access happens on the Run goroutine or under mu.
type Hub struct {
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastMsg
	quit       chan struct{}
	stopOnce   sync.Once
	mu         sync.Mutex

	seqMu   sync.Mutex
	lastSeq map[string]int
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastMsg, 64),
		quit:       make(chan struct{}),
		lastSeq:    make(map[string]int),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			for _, room := range c.Rooms {
				if h.rooms[room] == nil {
					h.rooms[room] = make(map[*Client]bool)
				}
				h.rooms[room][c] = true
			}
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			h.drop(c)
			h.mu.Unlock()

		case m := <-h.broadcast:
			h.mu.Lock()
			targets := make(map[*Client]bool)
			for _, room := range m.Rooms {
				for c := range h.rooms[room] {
					targets[c] = true
				}
			}
			for c := range targets {
				select {
				case c.Send <- m.Data:
				default:
					// slow consumer
					h.drop(c)
				}
			}
			h.mu.Unlock()

		case <-h.quit:
			h.mu.Lock()
			for _, conns := range h.rooms {
				for c := range conns {
					h.drop(c)
				}
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop ends Run and closes every client.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

// drop must be called with mu held. It is safe to call more than once per client.
func (h *Hub) drop(c *Client) {
	registered := false
	for _, room := range c.Rooms {
		if conns := h.rooms[room]; conns != nil && conns[c] {
			registered = true
			delete(conns, c)
			if len(conns) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	if registered {
		close(c.Send)
	}
}

// Register adds c to its rooms. It returns false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.quit:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

// Broadcast sends data once to every client in any of rooms.
func (h *Hub) Broadcast(data []byte, rooms ...string) {
	select {
	case h.broadcast <- broadcastMsg{Rooms: rooms, Data: data}:
	case <-h.quit:
	}
}

// RoomSize reports how many clients are in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[room])
}

// Room names.
func StudentRoom(id string) string  { return "student:" + id }
func VendorRoom(id string) string   { return "vendor:" + id }
func DeliveryRoom(id string) string { return "delivery:" + id }

const (
	PickupRoom = "delivery"
	AdminRoom  = "admin"
)

// RoomsFor lists the rooms a user's dashboard listens on.
func RoomsFor(u models.User) []string {
	switch u.Role {
	case models.RoleStudent:
		return []string{StudentRoom(u.ID)}
	case models.RoleVendor:
		return []string{VendorRoom(u.VendorID)}
	case models.RoleDelivery:
		return []string{PickupRoom, DeliveryRoom(u.ID)}
	case models.RoleAdmin:
		return []string{AdminRoom}
	}
	return nil
}

type outboundPayload struct {
	Action    string       `json:"action"`
	Order     models.Order `json:"order"`
	Timestamp int64        `json:"timestamp"`
}

// OrderChanged routes ev to every room with an interest in the order. Only the student and
// admins receive the delivery code. Events older than one already sent for the same order
// are dropped.
func (h *Hub) OrderChanged(ev mq.OrderEvent) {
	if !h.advance(ev) {
		log.WithFields(log.Fields{"orderId": ev.Order.ID, "seq": ev.Seq}).Debug("live: dropping stale event")
		return
	}
	full := h.encode(ev, ev.Order)
	redacted := ev.Order
	redacted.OTP = ""
	partial := h.encode(ev, redacted)
	if full == nil || partial == nil {
		return
	}

	h.Broadcast(full, StudentRoom(ev.Order.StudentID), AdminRoom)

	rooms := []string{VendorRoom(ev.Order.VendorID)}
	if ev.Order.Status == models.StatusReadyForPickup || ev.Type == mq.EventOrderClaimed {
		rooms = append(rooms, PickupRoom)
	}
	if ev.Order.DeliveryID != "" {
		rooms = append(rooms, DeliveryRoom(ev.Order.DeliveryID))
	}
	h.Broadcast(partial, rooms...)
}

// advance records ev's sequence number, reporting false when a newer event for the order has
// already gone out.
func (h *Hub) advance(ev mq.OrderEvent) bool {
	h.seqMu.Lock()
	defer h.seqMu.Unlock()
	if ev.Seq <= h.lastSeq[ev.Order.ID] {
		return false
	}
	h.lastSeq[ev.Order.ID] = ev.Seq
	return true
}

func (h *Hub) encode(ev mq.OrderEvent, o models.Order) []byte {
	data, err := json.Marshal(outboundPayload{Action: ev.Type, Order: o, Timestamp: ev.At.Unix()})
	if err != nil {
		log.WithError(err).Error("live: marshal order event")
		return nil
	}
	return data
}
