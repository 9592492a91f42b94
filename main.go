package main

import (
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campuscrave/app"
	"campuscrave/config"

	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// securityHeaders applies a set of recommended HTTP security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs each request method, path, remote address, and duration.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.RequestURI,
			"remote":   r.RemoteAddr,
			"duration": time.Since(start),
		}).Info("request")
	})
}

func setupLogging(level string) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("unknown LOG_LEVEL, using info")
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}

func serve(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.LogLevel)
	if err := cfg.CheckSecret(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, redis, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	a, err := app.New(ctx, cfg, store, redis)
	if err != nil {
		store.Close()
		return err
	}
	a.Start(ctx)

	// apply middleware: CORS → security headers → logging → router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(a.Handler())

	server := &http.Server{
		Handler:           loggingMiddleware(securityHeaders(corsHandler)),
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	ln, err := net.Listen("tcp", cfg.Port)
	if err != nil {
		a.Close()
		return err
	}
	return a.Serve(ctx, server, ln, 10*time.Second)
}

func reset(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.LogLevel)

	store, _, err := app.OpenStore(c.Context, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.Reset(c.Context)
	if err != nil {
		return err
	}
	log.WithField("keys", n).Info("state reset; defaults are reseeded on next start")
	return nil
}

func main() {
	cliApp := &cli.App{
		Name:   "campuscrave",
		Usage:  "campus food ordering backend",
		Action: serve,
		Commands: []*cli.Command{
			{Name: "serve", Usage: "run the HTTP API", Action: serve},
			{Name: "reset", Usage: "delete all persisted state", Action: reset},
		},
	}
	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
