// Package config reads the storefront settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	orders "github.com/fjod/storefront/internal/orders/repository"
)

type Config struct {
	HTTPPort           string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
	LogLevel           string

	RedisAddr     string
	RedisPassword string
	MongoURI      string
	MongoDBName   string
	Postgres      orders.Credentials
	KafkaBrokers  []string

	MongoMaxPoolSize    int
	MongoConnectTimeout time.Duration
	CartCacheTTL        time.Duration
	CartCacheJitter     time.Duration

	StripeSecretKey      string
	PublicBaseURL        string
	MadaCheckoutURL      string
	TabbyCheckoutURL     string
	TamaraCheckoutURL    string
	ApplePayMerchantID   string
	ApplePayMerchantName string
	Currency             string
	CurrencyExponent     int32
	TaxRate              float64
	GatewayTimeout       time.Duration
	AllowCardFallback    bool

	PaymentCallbackSecret    string
	PaymentCallbackTolerance time.Duration

	ShippingTablePath string
	StrictShipping    bool
	CartFlatShipping  float64
}

// Load reads every setting, falling back to local development defaults.
// Malformed numeric, boolean or duration values are an error.
func Load() (*Config, error) {
	p := &parser{}
	cfg := &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		RequestTimeout:     p.getDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:    p.getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxRequestBodySize: 1 << 20, // 1MB
		LogLevel:           getEnv("LOG_LEVEL", "info"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:   getEnv("MONGO_DB_NAME", "cartdb"),
		Postgres: orders.Credentials{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              p.getInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", "postgres"),
			DBName:            getEnv("DB_NAME", "orders"),
			MigrationsDirPath: getEnv("MIGRATIONS_PATH", "internal/orders/repository/migrations"),
		},
		KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),

		MongoMaxPoolSize:    p.getInt("MONGO_MAX_POOL_SIZE", 100),
		MongoConnectTimeout: p.getDuration("MONGO_CONNECT_TIMEOUT", 10*time.Second),
		CartCacheTTL:        p.getDuration("CART_CACHE_TTL", 15*time.Minute),
		CartCacheJitter:     p.getDuration("CART_CACHE_JITTER", 5*time.Minute),

		StripeSecretKey:      getEnv("STRIPE_SECRET_KEY", ""),
		PublicBaseURL:        getEnv("PUBLIC_BASE_URL", "http://localhost:3000"),
		MadaCheckoutURL:      getEnv("MADA_CHECKOUT_URL", "http://localhost:3000/checkout/mada"),
		TabbyCheckoutURL:     getEnv("TABBY_CHECKOUT_URL", "http://localhost:3000/checkout/tabby"),
		TamaraCheckoutURL:    getEnv("TAMARA_CHECKOUT_URL", "http://localhost:3000/checkout/tamara"),
		ApplePayMerchantID:   getEnv("APPLE_PAY_MERCHANT_ID", "merchant.com.storefront"),
		ApplePayMerchantName: getEnv("APPLE_PAY_MERCHANT_NAME", "Storefront"),
		Currency:             strings.ToUpper(getEnv("CURRENCY", "SAR")),
		CurrencyExponent:     int32(p.getInt("CURRENCY_EXPONENT", 2)),
		TaxRate:              p.getFloat("TAX_RATE", 0.15),
		GatewayTimeout:       p.getDuration("GATEWAY_TIMEOUT", 15*time.Second),
		AllowCardFallback:    p.getBool("ALLOW_CARD_FALLBACK", true),

		PaymentCallbackSecret:    getEnv("PAYMENT_CALLBACK_SECRET", ""),
		PaymentCallbackTolerance: p.getDuration("PAYMENT_CALLBACK_TOLERANCE", 5*time.Minute),

		ShippingTablePath: getEnv("SHIPPING_TABLE_PATH", ""),
		StrictShipping:    p.getBool("STRICT_SHIPPING", false),
		CartFlatShipping:  p.getFloat("CART_FLAT_SHIPPING", 30),
	}
	if p.err != nil {
		return nil, p.err
	}
	if cfg.CurrencyExponent < 0 || cfg.CurrencyExponent > 4 {
		return nil, fmt.Errorf("CURRENCY_EXPONENT must be between 0 and 4, got %d", cfg.CurrencyExponent)
	}
	if cfg.MongoMaxPoolSize < 1 {
		return nil, fmt.Errorf("MONGO_MAX_POOL_SIZE must be positive, got %d", cfg.MongoMaxPoolSize)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parser keeps the first conversion error so Load can report it once.
type parser struct {
	err error
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s=%q: %w", key, value, err)
	}
}

func (p *parser) getInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, raw, err)
		return defaultValue
	}
	return v
}

func (p *parser) getFloat(key string, defaultValue float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(key, raw, err)
		return defaultValue
	}
	return v
}

func (p *parser) getBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(key, raw, err)
		return defaultValue
	}
	return v
}

func (p *parser) getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key, raw, err)
		return defaultValue
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
