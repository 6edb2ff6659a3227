package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server struct {
		Port         string
		Host         string
		ReadTimeout  time.Duration
		WriteTimeout time.Duration
		CORSOrigins  []string
	}

	Mongo struct {
		URI      string
		Database string
	}

	Redis struct {
		Address  string
		Password string
		DB       int
		// NotifyChannel is the pub/sub channel lifecycle notifications
		// are published on.
		NotifyChannel string
	}

	JWT struct {
		Secret      string
		TokenExpiry time.Duration
	}

	RateLimit struct {
		// IssuesPerDay caps issue reports per citizen; zero disables the limit.
		IssuesPerDay int
		KeyPrefix    string
	}

	// Storage is "mongo" or "memory".
	Storage string

	// StrictArea refuses assignments outside the contractor's area.
	StrictArea bool

	Environment string
}

// Load reads .env, if present, and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := &Config{}

	cfg.Server.Port = getEnv("SERVER_PORT", "8080")
	cfg.Server.Host = getEnv("SERVER_HOST", "0.0.0.0")
	cfg.Server.ReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	cfg.Server.WriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	cfg.Server.CORSOrigins = splitList(getEnv("CORS_ORIGINS", "http://localhost:5173"))

	cfg.Mongo.URI = os.Getenv("MONGODB_URI")
	cfg.Mongo.Database = getEnv("MONGODB_DATABASE", "civicresolve")

	cfg.Redis.Address = os.Getenv("REDIS_ADDRESS")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)
	cfg.Redis.NotifyChannel = getEnv("REDIS_NOTIFY_CHANNEL", "civicresolve:notifications")

	cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	cfg.JWT.TokenExpiry = getEnvDuration("JWT_EXPIRY", 72*time.Hour)

	cfg.RateLimit.IssuesPerDay = getEnvInt("ISSUE_LIMIT_PER_DAY", 10)
	cfg.RateLimit.KeyPrefix = getEnv("REDIS_QUEUE_FOR_ISSUE_LIMIT", "issue-limit")

	cfg.Storage = strings.ToLower(getEnv("STORAGE", "mongo"))
	cfg.StrictArea = getEnvBool("STRICT_AREA", false)
	cfg.Environment = getEnv("ENV", "development")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is not set")
	}
	switch c.Storage {
	case "mongo":
		if c.Mongo.URI == "" {
			return fmt.Errorf("please define the MONGODB_URI environment variable")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown STORAGE %q, want mongo or memory", c.Storage)
	}
	return nil
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

func (c *Config) Production() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("[config] invalid %s=%q, using %d", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
		log.Printf("[config] invalid %s=%q, using %t", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("[config] invalid %s=%q, using %s", key, value, defaultValue)
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
