package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig
	Store      StoreConfig
	JWT        JWTConfig
	Cache      CacheConfig
	Mail       MailConfig
	Cloudinary CloudinaryConfig
	Payment    PaymentConfig
	RateLimit  RateLimitConfig
	Jobs       JobsConfig
	Admin      AdminConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	GinMode        string
	AllowedOrigins []string
}

type StoreConfig struct {
	// Driver is "postgres" or "memory".
	Driver       string
	URL          string
	MaxIdleConns int
	MaxOpenConns int
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

type CacheConfig struct {
	RedisAddr string
	TTL       time.Duration
}

type MailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

type PaymentConfig struct {
	KeyID     string
	KeySecret string
	Currency  string
}

type RateLimitConfig struct {
	PerMinute     int
	Burst         int
	AuthPerMinute int
}

type JobsConfig struct {
	ReminderSchedule string
}

type AdminConfig struct {
	Email    string
	Password string
}

// Load builds the configuration from the environment.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            getEnv("APP_ENV", "development"),
			GinMode:        getEnv("GIN_MODE", "debug"),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Store: StoreConfig{
			Driver:       getEnv("STORE_DRIVER", "postgres"),
			URL:          getEnv("DB_URL", ""),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "your-super-secret-jwt-key-change-this-in-production"),
			ExpiryHours: getEnvAsInt("JWT_EXPIRY_HOURS", 24),
		},
		Cache: CacheConfig{
			RedisAddr: getEnv("REDIS_ADDR", ""),
			TTL:       time.Duration(getEnvAsInt("CACHE_TTL_SECONDS", 300)) * time.Second,
		},
		Mail: MailConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			User:     getEnv("EMAIL_USER", ""),
			Password: getEnv("EMAIL_PASS", ""),
		},
		Cloudinary: CloudinaryConfig{
			CloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
			APIKey:    getEnv("CLOUDINARY_API_KEY", ""),
			APISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		},
		Payment: PaymentConfig{
			KeyID:     getEnv("RAZORPAY_KEY_ID", ""),
			KeySecret: getEnv("RAZORPAY_KEY_SECRET", ""),
			Currency:  getEnv("PAYMENT_CURRENCY", "INR"),
		},
		RateLimit: RateLimitConfig{
			PerMinute:     getEnvAsInt("RATE_LIMIT_PER_MINUTE", 120),
			Burst:         getEnvAsInt("RATE_LIMIT_BURST", 40),
			AuthPerMinute: getEnvAsInt("AUTH_RATE_LIMIT_PER_MINUTE", 10),
		},
		Jobs: JobsConfig{
			ReminderSchedule: getEnv("REMINDER_SCHEDULE", "* * * * *"),
		},
		Admin: AdminConfig{
			Email:    getEnv("ADMIN_EMAIL", ""),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
	}
}

// IsDevelopment reports whether error responses may carry stack traces.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
