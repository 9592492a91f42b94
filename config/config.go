package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// DevJWTSecret is the JWT_SECRET default. It also keys receipt QR signatures, so it is only
// accepted with the in-memory backend.
const DevJWTSecret = "campuscrave-dev-secret"

// Config is read from the environment, optionally seeded from a .env file.
type Config struct {
	Port      string `envconfig:"PORT" default:":8080"`
	JWTSecret string `envconfig:"JWT_SECRET" default:"campuscrave-dev-secret"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	StaticDir string `envconfig:"STATIC_DIR" default:"static"`

	// PersistBackend is one of memory, redis, mongo.
	PersistBackend string `envconfig:"PERSIST_BACKEND" default:"memory"`
	RedisAddr      string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword  string `envconfig:"REDIS_PASSWORD"`
	MongoURI       string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDB        string `envconfig:"MONGO_DB" default:"campuscrave"`

	// EventsChannel is the redis pub/sub channel order events go out on. Events are
	// only published when the redis backend is in use.
	EventsChannel string `envconfig:"EVENTS_CHANNEL" default:"order-events"`

	// RateLimitPerMinute and RateLimitBurst apply per client IP to login, register and
	// recommendations.
	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"20"`
	RateLimitBurst     int `envconfig:"RATE_LIMIT_BURST" default:"5"`

	GeminiAPIKey  string `envconfig:"GEMINI_API_KEY"`
	GeminiModel   string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	GeminiBaseURL string `envconfig:"GEMINI_BASE_URL"`
}

// Load reads .env if present, then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found; using system environment")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, errors.Wrap(err, "process env config")
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = DevJWTSecret
	}
	if cfg.Port == "" {
		cfg.Port = ":8080"
	} else if cfg.Port[0] != ':' {
		cfg.Port = ":" + cfg.Port
	}
	switch cfg.PersistBackend {
	case "":
		cfg.PersistBackend = "memory"
	case "memory", "redis", "mongo":
	default:
		return Config{}, errors.Errorf("unknown PERSIST_BACKEND %q", cfg.PersistBackend)
	}
	if cfg.RateLimitPerMinute <= 0 || cfg.RateLimitBurst <= 0 {
		return Config{}, errors.New("rate limits must be positive")
	}
	return cfg, nil
}

// CheckSecret refuses the development JWT secret when state outlives the process.
func (c Config) CheckSecret() error {
	if c.PersistBackend != "memory" && (c.JWTSecret == "" || c.JWTSecret == DevJWTSecret) {
		return errors.Errorf("JWT_SECRET must be set when PERSIST_BACKEND is %s", c.PersistBackend)
	}
	return nil
}
