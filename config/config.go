package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	Env           string
	LogLevel      string
	AllowedOrigin string
	// Upstream backend
	BackendURL     string
	BackendTimeout time.Duration
	// Session
	JWTSecret     string // optional; when empty tokens are read unverified
	AdminRoleName string
	SessionTTL    time.Duration
	// Cart snapshot store; in-memory when DBUrl is empty
	DBUrl             string
	DBMaxConns        int32
	DBMinConns        int32
	DBMaxConnIdleTime time.Duration
	// R2 Storage for exports
	R2AccountID       string
	R2AccessKeyID     string
	R2AccessKeySecret string
	R2BucketName      string
	R2PublicURL       string
	R2UploadTimeout   time.Duration
	R2LinkExpiry      time.Duration
	// Cache
	CacheCategoryTTL time.Duration
	CacheProductTTL  time.Duration
	// Chat assistant
	LLMAPIKey   string
	LLMEndpoint string
	LLMTimeout  time.Duration
	// Tracing; disabled when empty
	OTLPEndpoint string
	// Rate limiting per client IP
	RateLimitRPS   float64
	RateLimitBurst int
	// Business Rules
	TransitionTimeout time.Duration
	ExportRowCap      int
	MaxCartQuantity   int
	MaxUploadSizeMB   int64
}

func LoadConfig() *Config {
	configFile := os.Getenv("CONFIG_FILE")
	if configFile != "" {
		if err := godotenv.Load(configFile); err != nil {
			log.Printf("Warning: Failed to load config file '%s': %v", configFile, err)
		} else {
			log.Printf("Loaded configuration from %s", configFile)
		}
	} else {
		// In containers .env is usually absent and system env vars are used.
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found or error loading it, relying on system env vars")
		}
	}

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "http://localhost:3000"),

		BackendURL:     getEnv("BACKEND_URL", ""),
		BackendTimeout: getDurationEnv("BACKEND_TIMEOUT", 15*time.Second),

		JWTSecret:     getEnv("JWT_SECRET", ""),
		AdminRoleName: getEnv("ADMIN_ROLE_NAME", "SUPER_ADMIN"),
		SessionTTL:    getDurationEnv("SESSION_TTL", 30*time.Minute),

		DBUrl:             getEnv("DB_DSN", ""),
		DBMaxConns:        getInt32Env("DB_MAX_CONNS", 10),
		DBMinConns:        getInt32Env("DB_MIN_CONNS", 2),
		DBMaxConnIdleTime: getDurationEnv("DB_MAX_CONN_IDLE_TIME", time.Minute*15),

		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2AccessKeySecret: getEnv("R2_ACCESS_KEY_SECRET", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:       getEnv("R2_PUBLIC_URL", ""),
		R2UploadTimeout:   getDurationEnv("R2_UPLOAD_TIMEOUT", 30*time.Second),
		R2LinkExpiry:      getDurationEnv("R2_LINK_EXPIRY", 15*time.Minute),

		// Cache defaults: 30m Category, 10m Product
		CacheCategoryTTL: getDurationEnv("CACHE_CATEGORY_TTL", 30*time.Minute),
		CacheProductTTL:  getDurationEnv("CACHE_PRODUCT_TTL", 10*time.Minute),

		LLMAPIKey:   getEnv("LLM_API_KEY", ""),
		LLMEndpoint: getEnv("LLM_ENDPOINT", ""),
		LLMTimeout:  getDurationEnv("LLM_TIMEOUT", 30*time.Second),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		RateLimitRPS:   getFloatEnv("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getIntEnv("RATE_LIMIT_BURST", 40),

		TransitionTimeout: getDurationEnv("TRANSITION_TIMEOUT", 10*time.Second),
		ExportRowCap:      getIntEnv("EXPORT_ROW_CAP", 5000),
		MaxCartQuantity:   getIntEnv("MAX_CART_QUANTITY", 1000),
		MaxUploadSizeMB:   getInt64Env("MAX_UPLOAD_SIZE_MB", 10),
	}

	cfg.Validate()
	return cfg
}

func (c *Config) Validate() {
	if c.BackendURL == "" {
		log.Fatal("CRITICAL: BACKEND_URL environment variable is required")
	}
	if c.JWTSecret == "" {
		log.Println("WARNING: JWT_SECRET not set, access tokens are not verified locally")
	}
	if c.TransitionTimeout <= 0 {
		log.Fatal("CRITICAL: TRANSITION_TIMEOUT must be positive")
	}
}

// R2Enabled reports whether export uploads can go to object storage.
func (c *Config) R2Enabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2AccessKeySecret != "" && c.R2BucketName != ""
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Invalid duration for %s, using fallback", key)
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
		log.Printf("Invalid int for %s, using fallback", key)
	}
	return fallback
}

func getInt64Env(key string, fallback int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
		log.Printf("Invalid int64 for %s, using fallback", key)
	}
	return fallback
}

func getInt32Env(key string, fallback int32) int32 {
	if value, exists := os.LookupEnv(key); exists {
		if i, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(i)
		}
		log.Printf("Invalid int32 for %s, using fallback", key)
	}
	return fallback
}

func getFloatEnv(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		log.Printf("Invalid float for %s, using fallback", key)
	}
	return fallback
}
