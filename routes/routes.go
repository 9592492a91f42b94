package routes

import (
	"fmt"
	"net/http"
	"path/filepath"

	"campuscrave/agi"
	"campuscrave/auth"
	"campuscrave/cart"
	"campuscrave/catalog"
	"campuscrave/live"
	"campuscrave/middleware"
	"campuscrave/models"
	"campuscrave/orders"
	"campuscrave/ratelim"

	"github.com/julienschmidt/httprouter"
)

// Handlers is everything the router dispatches to.
type Handlers struct {
	Guard     *middleware.Guard
	Limiter   *ratelim.RateLimiter
	Auth      *auth.Handler
	Catalog   *catalog.Handler
	Cart      *cart.Handler
	Orders    *orders.Handler
	Recommend *agi.Handler
	Hub       *live.Hub
	StaticDir string
}

// Index is a simple health check handler.
func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fmt.Fprint(w, "200")
}

func RoutesWrapper(router *httprouter.Router, h *Handlers) {
	router.GET("/health", Index)

	AddAuthRoutes(router, h)
	AddCatalogRoutes(router, h)
	AddCartRoutes(router, h)
	AddOrderRoutes(router, h)
	AddDeliveryRoutes(router, h)
	AddAdminRoutes(router, h)
	AddRecommendationRoutes(router, h)
	AddLiveRoutes(router, h)
	AddStaticRoutes(router, h)
}

func AddAuthRoutes(router *httprouter.Router, h *Handlers) {
	router.POST("/api/auth/register", h.Limiter.Limit(h.Auth.Register))
	router.POST("/api/auth/login", h.Limiter.Limit(h.Auth.Login))
	router.POST("/api/auth/logout", h.Guard.Authenticate(h.Auth.Logout))
	router.GET("/api/auth/me", h.Guard.Authenticate(h.Auth.Me))
}

func AddCatalogRoutes(router *httprouter.Router, h *Handlers) {
	g := h.Guard
	router.GET("/api/vendors", h.Catalog.GetVendors)
	router.PUT("/api/vendors/:id", g.RequireRole(h.Catalog.UpdateVendor, models.RoleVendor, models.RoleAdmin))
	router.GET("/api/products", h.Catalog.GetProducts)
	router.POST("/api/products", g.RequireRole(h.Catalog.CreateProduct, models.RoleVendor, models.RoleAdmin))
	router.PUT("/api/products/:id", g.RequireRole(h.Catalog.UpdateProduct, models.RoleVendor, models.RoleAdmin))
	router.POST("/api/products/:id/toggle", g.RequireRole(h.Catalog.ToggleProduct, models.RoleVendor, models.RoleAdmin))
	router.POST("/api/products/:id/image", g.RequireRole(h.Catalog.UploadProductImage, models.RoleVendor, models.RoleAdmin))
	router.GET("/api/vendor/menu", g.RequireRole(h.Catalog.GetMenu, models.RoleVendor))
}

func AddCartRoutes(router *httprouter.Router, h *Handlers) {
	g := h.Guard
	router.GET("/api/cart", g.RequireRole(h.Cart.GetCart, models.RoleStudent))
	router.POST("/api/cart/items", g.RequireRole(h.Cart.AddItem, models.RoleStudent))
	router.DELETE("/api/cart/items/:productid", g.RequireRole(h.Cart.RemoveItem, models.RoleStudent))
	router.DELETE("/api/cart", g.RequireRole(h.Cart.ClearCart, models.RoleStudent))
}

func AddOrderRoutes(router *httprouter.Router, h *Handlers) {
	g := h.Guard
	router.POST("/api/orders", g.RequireRole(h.Orders.PlaceOrder, models.RoleStudent))
	router.GET("/api/orders/:id", g.Authenticate(h.Orders.GetOrder))
	router.GET("/api/orders/:id/receipt", g.RequireRole(h.Orders.GetReceipt, models.RoleStudent, models.RoleAdmin))
	router.GET("/api/student/orders", g.RequireRole(h.Orders.StudentOrders, models.RoleStudent))

	router.GET("/api/vendor/orders", g.RequireRole(h.Orders.VendorOrders, models.RoleVendor))
	router.POST("/api/vendor/orders/:id/status", g.RequireRole(h.Orders.VendorUpdateStatus, models.RoleVendor))
}

func AddDeliveryRoutes(router *httprouter.Router, h *Handlers) {
	g := h.Guard
	router.GET("/api/delivery/pickups", g.RequireRole(h.Orders.Pickups, models.RoleDelivery))
	router.GET("/api/delivery/active", g.RequireRole(h.Orders.ActiveDeliveries, models.RoleDelivery))
	router.POST("/api/delivery/orders/:id/claim", g.RequireRole(h.Orders.Claim, models.RoleDelivery))
	router.POST("/api/delivery/orders/:id/verify", g.RequireRole(h.Orders.Verify, models.RoleDelivery))
}

func AddAdminRoutes(router *httprouter.Router, h *Handlers) {
	g := h.Guard
	router.GET("/api/admin/orders", g.RequireRole(h.Orders.AllOrders, models.RoleAdmin))
	router.GET("/api/admin/stats", g.RequireRole(h.Orders.GetStats, models.RoleAdmin))
	router.POST("/api/admin/orders/:id/status", g.RequireRole(h.Orders.AdminSetStatus, models.RoleAdmin))
	router.POST("/api/admin/orders/:id/deliver", g.RequireRole(h.Orders.AdminDeliver, models.RoleAdmin))
	router.POST("/api/admin/orders/:id/cancel", g.RequireRole(h.Orders.AdminCancel, models.RoleAdmin))
}

func AddRecommendationRoutes(router *httprouter.Router, h *Handlers) {
	router.POST("/api/recommendations", h.Limiter.Limit(h.Guard.Authenticate(h.Recommend.Recommend)))
}

func AddLiveRoutes(router *httprouter.Router, h *Handlers) {
	router.GET("/ws/orders", h.Guard.Authenticate(live.WebSocketHandler(h.Hub)))
}

func AddStaticRoutes(router *httprouter.Router, h *Handlers) {
	router.ServeFiles("/static/uploads/*filepath", http.Dir(filepath.Join(h.StaticDir, "uploads")))
}
