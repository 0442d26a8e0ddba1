package app

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	httpapi "github.com/aussiebroadwan/freightdesk/internal/freight/http"
	"github.com/aussiebroadwan/freightdesk/pkg/httpx"
)

type Config struct {
	Addr                string        // HTTP listen address (default: :8080)
	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)

	StoreDriver string // sqlite or mongo (default: sqlite)
	SQLiteDSN   string // SQLite file or DSN (default: freightdesk.db)
	MongoURI    string // Required when StoreDriver is mongo
	MongoDB     string // Mongo database name (default: freightdesk)

	Issuer             string        // iss claim (default: freightdesk)
	SigningKeyPath     string        // Ed25519 PEM, created on first start (default: ./keys/signing.pem)
	TokenTTL           time.Duration // Session token lifetime (default: 24h)
	PepperPath         string        // Password pepper, created on first start (default: ./keys/pepper)
	SealerKeyPath      string        // Key for sealing TOTP secrets (default: ./keys/sealer)
	Argon2MemoryKiB    int           // Optional argon2id memory override
	Argon2Iterations   int           // Optional argon2id iteration override
	Argon2Parallelism  int           // Optional argon2id parallelism override
	OTPTTL             time.Duration // One-time code lifetime (default: 5m)
	OTPCooldown        time.Duration // Minimum gap between codes (default: 60s)
	QuoteTTL           time.Duration // Quote validity (default: 7 days)
	StrictTransitions  bool          // Reject backwards shipment events (default: false)
	CORSAllowedOrigins []string      // Browser origins allowed to call the API

	NotifyQueue       string // memory or redis (default: memory)
	NotifyQueueSize   int    // Buffer for the in-memory queue (default: 1024)
	RedisURL          string // Required when NotifyQueue is redis
	NotifyWorkers     int    // Delivery goroutines (default: 2)
	NotifyMaxAttempts int    // Send attempts per message, never below 3 (default: 3)
	Mailer            string // log or ses (default: log)
	MailFrom          string // Sender address for SES
	SupportEmail      string // Recipient of contact form messages
	AWSRegion         string
	AWSAccessKeyID    string
	AWSSecretKey      string

	HousekeepingInterval time.Duration // Expired code sweep interval (default: 1h)

	SeedAdminEmail    string
	SeedAdminUsername string
	SeedAdminPassword string

	// Per-IP buckets, overridable through
	// RATELIMIT_{STRICT,MODERATE,PUBLIC}_{REQUESTS,WINDOW_SEC,BURST}.
	RateLimits httpapi.RateLimits
}

// LoadConfig reads configuration from the environment. A .env file in the
// working directory is loaded first, then CONFIG_FILE (YAML) fills in
// anything the environment leaves unset.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadYAMLDefaults(path); err != nil {
			return Config{}, err
		}
	}

	cfg := Config{
		Addr:                getEnvOrDefault("ADDR", ":8080"),
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),

		StoreDriver: strings.ToLower(getEnvOrDefault("STORE_DRIVER", "sqlite")),
		SQLiteDSN:   getEnvOrDefault("SQLITE_DSN", "freightdesk.db"),
		MongoURI:    os.Getenv("MONGO_URI"),
		MongoDB:     getEnvOrDefault("MONGO_DB", "freightdesk"),

		Issuer:             getEnvOrDefault("TOKEN_ISSUER", "freightdesk"),
		SigningKeyPath:     getEnvOrDefault("SIGNING_KEY_PATH", "keys/signing.pem"),
		TokenTTL:           getEnvDurationOrDefault("TOKEN_TTL", 24*time.Hour),
		PepperPath:         getEnvOrDefault("PASSWORD_PEPPER_PATH", "keys/pepper"),
		SealerKeyPath:      getEnvOrDefault("SEALER_KEY_PATH", "keys/sealer"),
		Argon2MemoryKiB:    getEnvIntOrDefault("ARGON2_MEMORY_KIB", 0),
		Argon2Iterations:   getEnvIntOrDefault("ARGON2_ITERATIONS", 0),
		Argon2Parallelism:  getEnvIntOrDefault("ARGON2_PARALLELISM", 0),
		OTPTTL:             getEnvDurationOrDefault("OTP_TTL", 5*time.Minute),
		OTPCooldown:        getEnvDurationOrDefault("OTP_COOLDOWN", 60*time.Second),
		QuoteTTL:           getEnvDurationOrDefault("QUOTE_TTL", 7*24*time.Hour),
		StrictTransitions:  getEnvBoolOrDefault("SHIPMENT_STRICT_TRANSITIONS", false),
		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),

		NotifyQueue:       strings.ToLower(getEnvOrDefault("NOTIFY_QUEUE", "memory")),
		NotifyQueueSize:   getEnvIntOrDefault("NOTIFY_QUEUE_SIZE", 1024),
		RedisURL:          os.Getenv("REDIS_URL"),
		NotifyWorkers:     getEnvIntOrDefault("NOTIFY_WORKERS", 2),
		NotifyMaxAttempts: getEnvIntOrDefault("NOTIFY_MAX_ATTEMPTS", 3),
		Mailer:            strings.ToLower(getEnvOrDefault("MAILER", "log")),
		MailFrom:          os.Getenv("MAIL_FROM"),
		SupportEmail:      getEnvOrDefault("SUPPORT_EMAIL", "support@freightdesk.local"),
		AWSRegion:         getEnvOrDefault("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:    os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretKey:      os.Getenv("AWS_SECRET_ACCESS_KEY"),

		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),

		SeedAdminEmail:    os.Getenv("SEED_ADMIN_EMAIL"),
		SeedAdminUsername: getEnvOrDefault("SEED_ADMIN_USERNAME", "admin"),
		SeedAdminPassword: os.Getenv("SEED_ADMIN_PASSWORD"),

		RateLimits: httpapi.RateLimits{
			Strict:   httpx.RateLimitFromEnv("STRICT", httpx.StrictLimit),
			Moderate: httpx.RateLimitFromEnv("MODERATE", httpx.ModerateLimit),
			Public:   httpx.RateLimitFromEnv("PUBLIC", httpx.PublicLimit),
		},
	}

	return cfg, cfg.Validate()
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case "sqlite":
	case "mongo":
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required when STORE_DRIVER=mongo"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	switch c.NotifyQueue {
	case "memory":
	case "redis":
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required when NOTIFY_QUEUE=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown NOTIFY_QUEUE %q", c.NotifyQueue))
	}
	switch c.Mailer {
	case "log":
	case "ses":
		if c.MailFrom == "" {
			errs = append(errs, errors.New("MAIL_FROM is required when MAILER=ses"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown MAILER %q", c.Mailer))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	return errors.Join(errs...)
}

// loadYAMLDefaults sets every key in the YAML file that the environment does
// not already define. Nested maps flatten to upper-case underscore keys, so
//
//	notify:
//	  queue: redis
//
// becomes NOTIFY_QUEUE.
func loadYAMLDefaults(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	flat := make(map[string]string)
	flatten("", tree, flat)

	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, set := os.LookupEnv(k); set {
			continue
		}
		if err := os.Setenv(k, flat[k]); err != nil {
			return err
		}
	}
	return nil
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := strings.ToUpper(strings.ReplaceAll(k, "-", "_"))
		if prefix != "" {
			key = prefix + "_" + key
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case []any:
			parts := make([]string, len(val))
			for i, item := range val {
				parts[i] = fmt.Sprint(item)
			}
			out[key] = strings.Join(parts, ",")
		case nil:
		default:
			out[key] = fmt.Sprint(val)
		}
	}
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

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
