package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env      string `yaml:"env"`
	HTTPPort string `yaml:"http_port"`

	StoreBackend  string        `yaml:"store_backend"` // mongo | postgres | memory
	MongoURI      string        `yaml:"mongodb_uri"`
	MongoDatabase string        `yaml:"mongodb_database"`
	DatabaseURL   string        `yaml:"database_url"`
	StoreTimeout  time.Duration `yaml:"store_timeout"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	QueueBackend  string `yaml:"queue_backend"` // memory | redis
	RelayQueueKey string `yaml:"relay_queue_key"`

	JWTIssuer     string        `yaml:"jwt_issuer"`
	JWTSigningKey string        `yaml:"jwt_signing_key"`
	AccessTTL     time.Duration `yaml:"access_ttl"`
	QRTTL         time.Duration `yaml:"qr_ttl"`
	BcryptCost    int           `yaml:"bcrypt_cost"`

	RateLimitPerMin int      `yaml:"rate_limit_per_min"`
	CORSOrigins     []string `yaml:"cors_origins"`

	SendGridAPIKey   string        `yaml:"sendgrid_api_key"`
	EmailFrom        string        `yaml:"email_from"`
	EmailFromName    string        `yaml:"email_from_name"`
	TwilioAccountSID string        `yaml:"twilio_account_sid"`
	TwilioAuthToken  string        `yaml:"twilio_auth_token"`
	TwilioFromNumber string        `yaml:"twilio_from_number"`
	RelayTimeout     time.Duration `yaml:"relay_timeout"`

	CloudinaryCloudName string `yaml:"cloudinary_cloud_name"`
	CloudinaryAPIKey    string `yaml:"cloudinary_api_key"`
	CloudinaryAPISecret string `yaml:"cloudinary_api_secret"`
	CloudinaryFolder    string `yaml:"cloudinary_folder"`

	RollbarToken string `yaml:"rollbar_token"`
}

// Load reads .env (if present), then the environment, then an optional YAML
// file named by CONFIG_FILE whose non-zero values override the environment.
func Load() (App, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: .env not loaded: %v", err)
	}

	cfg := App{
		Env:      getEnv("APP_ENV", "dev"),
		HTTPPort: getEnv("HTTP_PORT", "5000"),

		StoreBackend:  getEnv("STORE_BACKEND", "mongo"),
		MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "smart-attendance"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		StoreTimeout:  durationEnv("STORE_TIMEOUT", 5*time.Second),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		QueueBackend:  getEnv("QUEUE_BACKEND", "memory"),
		RelayQueueKey: getEnv("RELAY_QUEUE_KEY", "notify:relay"),

		JWTIssuer:     getEnv("JWT_ISSUER", "smart-attendance"),
		JWTSigningKey: getEnv("JWT_SIGNING_KEY", ""),
		AccessTTL:     durationEnv("ACCESS_TTL", 24*time.Hour),
		QRTTL:         durationEnv("QR_TTL", 5*time.Minute),
		BcryptCost:    intEnv("BCRYPT_COST", 10),

		RateLimitPerMin: intEnv("RATE_LIMIT_PER_MIN", 120),
		CORSOrigins:     listEnv("CORS_ORIGINS", []string{"http://localhost:5173"}),

		SendGridAPIKey:   getEnv("SENDGRID_API_KEY", ""),
		EmailFrom:        getEnv("EMAIL_FROM", ""),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "Smart Attendance"),
		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber: getEnv("TWILIO_FROM_NUMBER", ""),
		RelayTimeout:     durationEnv("RELAY_TIMEOUT", 10*time.Second),

		CloudinaryCloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		CloudinaryFolder:    getEnv("CLOUDINARY_FOLDER", "assignments"),

		RollbarToken: getEnv("ROLLBAR_TOKEN", ""),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.overlay(path); err != nil {
			return App{}, err
		}
	}
	return cfg, cfg.Validate()
}

func (c *App) overlay(path string) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	// unmarshal onto the env-populated struct: keys present in the file win
	if err := yaml.Unmarshal(buf, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// Validate checks the settings the core cannot start without.
func (c App) Validate() error {
	if c.JWTSigningKey == "" {
		return errors.New("config: JWT_SIGNING_KEY is required")
	}
	switch c.StoreBackend {
	case "mongo":
		if c.MongoURI == "" {
			return errors.New("config: MONGODB_URI is required for the mongo store")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required for the postgres store")
		}
	case "memory":
	default:
		return fmt.Errorf("config: unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.QueueBackend != "memory" && c.QueueBackend != "redis" {
		return fmt.Errorf("config: unknown QUEUE_BACKEND %q", c.QueueBackend)
	}
	return nil
}

// Production reports whether the app runs with production defaults.
func (c App) Production() bool {
	return c.Env == "production" || c.Env == "prod"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using fallback %s", key, err, fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		log.Printf("invalid int for %s, using fallback %d", key, fallback)
	}
	return fallback
}

func listEnv(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
