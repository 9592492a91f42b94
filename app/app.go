// Package app assembles the stores, handlers and background workers of the service.
package app

import (
	"context"
	"net"
	"net/http"
	"time"

	"campuscrave/agi"
	"campuscrave/auth"
	"campuscrave/cart"
	"campuscrave/catalog"
	"campuscrave/config"
	"campuscrave/db"
	"campuscrave/filemgr"
	"campuscrave/globals"
	"campuscrave/live"
	"campuscrave/middleware"
	"campuscrave/models"
	"campuscrave/mq"
	"campuscrave/orders"
	"campuscrave/persist"
	"campuscrave/ratelim"
	"campuscrave/rdx"
	"campuscrave/receipt"
	"campuscrave/routes"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const keyPrefix = "cc_"

// App is the process-wide application state. Every mutation goes through one of its stores.
type App struct {
	Config   config.Config
	Store    *persist.Adapter
	Catalog  *catalog.Store
	Identity *auth.Store
	Carts    *cart.Registry
	Orders   *orders.Engine
	Tokens   *auth.Tokens
	Bus      mq.Bus
	Hub      *live.Hub
	Limiter  *ratelim.RateLimiter

	router   *httprouter.Router
	redisBus *mq.RedisBus
	stop     chan struct{}
}

// OpenStore connects the configured persistence backend. The redis store is returned as well
// when that backend is selected so order events can share the connection.
func OpenStore(ctx context.Context, cfg config.Config) (*persist.Adapter, *rdx.Store, error) {
	switch cfg.PersistBackend {
	case "redis":
		r := rdx.New(cfg.RedisAddr, cfg.RedisPassword)
		if err := r.Ping(ctx); err != nil {
			r.Close()
			return nil, nil, err
		}
		return persist.NewAdapter(r, keyPrefix), r, nil
	case "mongo":
		m, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, nil, err
		}
		return persist.NewAdapter(m, keyPrefix), nil, nil
	default:
		return persist.NewAdapter(persist.NewMemoryStore(), keyPrefix), nil, nil
	}
}

// New rehydrates state from store and wires the HTTP surface. redis may be nil, in which case
// order events stay in process.
func New(ctx context.Context, cfg config.Config, store *persist.Adapter, redis *rdx.Store) (*App, error) {
	a := &App{
		Config:  cfg,
		Store:   store,
		Carts:   cart.NewRegistry(),
		Tokens:  auth.NewTokens(cfg.JWTSecret),
		Hub:     live.NewHub(),
		Limiter: ratelim.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst),
		stop:    make(chan struct{}),
	}

	if redis != nil {
		a.redisBus = mq.NewRedisBus(redis, cfg.EventsChannel)
		a.Bus = a.redisBus
	} else {
		a.Bus = mq.NewLocalBus()
	}
	a.Bus.Subscribe(a.Hub.OrderChanged)

	vendors := loadOr(ctx, store, globals.VendorsKey, catalog.DefaultVendors)
	products := loadOr(ctx, store, globals.ProductsKey, catalog.DefaultProducts)
	a.Catalog = catalog.NewStore(vendors, products, store)

	var accounts []models.Account
	if !store.Load(ctx, globals.UsersKey, &accounts) {
		seeded, err := auth.DemoAccounts()
		if err != nil {
			return nil, errors.Wrap(err, "seed demo accounts")
		}
		accounts = seeded
		store.Mirror(globals.UsersKey, accounts)
	}
	sessions, err := loadSessions(ctx, store)
	if err != nil {
		return nil, err
	}
	a.Identity = auth.NewStore(accounts, sessions, store)
	a.Identity.OnLogout(a.Carts.Drop)

	var history []models.Order
	store.Load(ctx, globals.OrdersKey, &history)
	a.Orders = orders.NewEngine(history, store, a.Bus)

	log.WithFields(log.Fields{
		"vendors":  len(vendors),
		"products": len(products),
		"users":    len(accounts),
		"sessions": len(sessions),
		"orders":   len(history),
	}).Info("app: state loaded")

	a.router = httprouter.New()
	routes.RoutesWrapper(a.router, &routes.Handlers{
		Guard:   middleware.New(a.Identity, a.Tokens),
		Limiter: a.Limiter,
		Auth:    &auth.Handler{Store: a.Identity, Tokens: a.Tokens},
		Catalog: &catalog.Handler{Store: a.Catalog, Files: filemgr.New(cfg.StaticDir)},
		Cart:    &cart.Handler{Carts: a.Carts, Catalog: a.Catalog},
		Orders: &orders.Handler{
			Engine:   a.Orders,
			Carts:    a.Carts,
			Catalog:  a.Catalog,
			Receipts: receipt.NewPrinter(cfg.JWTSecret),
		},
		Recommend: &agi.Handler{
			Recommender: agi.NewRecommender(agi.NewClient(cfg.GeminiAPIKey, cfg.GeminiBaseURL, cfg.GeminiModel)),
			Catalog:     a.Catalog,
		},
		Hub:       a.Hub,
		StaticDir: cfg.StaticDir,
	})
	return a, nil
}

func loadOr[T any](ctx context.Context, store *persist.Adapter, key string, seed func() []T) []T {
	var v []T
	if store.Load(ctx, key, &v) {
		return v
	}
	v = seed()
	store.Mirror(key, v)
	return v
}

func loadSessions(ctx context.Context, store *persist.Adapter) ([]auth.Session, error) {
	keys, err := store.Keys(ctx, globals.SessionKeyPrefix)
	if err != nil {
		return nil, err
	}
	sessions := make([]auth.Session, 0, len(keys))
	for _, key := range keys {
		var sess auth.Session
		if store.Load(ctx, key, &sess) {
			sessions = append(sessions, sess)
		}
	}
	return sessions, nil
}

func (a *App) Handler() http.Handler {
	return a.router
}

// Start launches the websocket hub, the rate limiter sweeper and, with redis, the event relay.
func (a *App) Start(ctx context.Context) {
	go a.Hub.Run()
	go a.Limiter.RunSweeper(time.Minute, a.stop)
	if a.redisBus != nil {
		go func() {
			if err := a.redisBus.Run(ctx); err != nil && ctx.Err() == nil {
				log.WithError(err).Error("app: event relay stopped")
			}
		}()
	}
}

// Serve runs server on ln until ctx is done, then lets in-flight requests finish for up to
// drain before closing the app. The app is closed on every return path.
func (a *App) Serve(ctx context.Context, server *http.Server, ln net.Listener, drain time.Duration) error {
	defer func() {
		if err := a.Close(); err != nil {
			log.WithError(err).Warn("app: close store")
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", ln.Addr().String()).Info("server listening")
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "serve")
	case <-ctx.Done():
	}

	log.Info("shutdown signal received; shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), drain)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "graceful shutdown")
	}
	log.Info("server stopped cleanly")
	return nil
}

// Close stops background work and releases the store.
func (a *App) Close() error {
	a.Hub.Stop()
	select {
	case <-a.stop:
	default:
		close(a.stop)
	}
	return a.Store.Close()
}
