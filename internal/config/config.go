package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	App      AppConfig
	HTTP     HTTPConfig
	Store    StoreConfig
	Mongo    MongoConfig
	Postgres PostgresConfig
	Kafka    KafkaConfig
	Product  ProductConfig
	Redis    RedisConfig
	Order    OrderConfig
}

type AppConfig struct {
	Name string
	Env  string
}

type HTTPConfig struct {
	Host string
	Port int
}

type StoreConfig struct {
	Driver string
}

type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

type PostgresConfig struct {
	DSN      string
	Migrate  bool
	MaxConns int
}

type KafkaConfig struct {
	Brokers []string
	GroupID string
}

type ProductConfig struct {
	BaseURL string
	Timeout time.Duration
}

// RedisConfig is optional, an empty Addr disables the product cache.
type RedisConfig struct {
	Addr     string
	CacheTTL time.Duration
}

type OrderConfig struct {
	PaymentWindow time.Duration
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Name: getEnv("APP_NAME", "order-service"),
			Env:  getEnv("APP_ENV", "development"),
		},
		HTTP: HTTPConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnvAsInt("HTTP_PORT", 8080),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(getEnv("STORE_DRIVER", StoreMongo)),
		},
		Mongo: MongoConfig{
			URI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:   getEnv("MONGO_DATABASE", "orders"),
			Collection: getEnv("MONGO_COLLECTION", "orders"),
		},
		Postgres: PostgresConfig{
			DSN:      getEnv("DB_STRING", ""),
			Migrate:  getEnvAsBool("DB_MIGRATE", true),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 10),
		},
		Kafka: KafkaConfig{
			Brokers: splitAndTrim(getEnv("KAFKA_BROKERS", "localhost:9092")),
			GroupID: getEnv("KAFKA_GROUP_ID", "order-service"),
		},
		Product: ProductConfig{
			BaseURL: getEnv("PRODUCT_SERVICE_URL", "http://localhost:3002"),
			Timeout: getEnvAsDuration("PRODUCT_LOOKUP_TIMEOUT", 3*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			CacheTTL: getEnvAsDuration("PRODUCT_CACHE_TTL", 30*time.Second),
		},
		Order: OrderConfig{
			PaymentWindow: getEnvAsDuration("ORDER_PAYMENT_WINDOW", 15*time.Minute),
		},
	}

	return cfg, cfg.validate()
}

func (h HTTPConfig) Address() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

func (c *Config) validate() error {
	if c.HTTP.Port <= 0 {
		return fmt.Errorf("HTTP_PORT is invalid")
	}
	switch c.Store.Driver {
	case StoreMongo:
		if c.Mongo.URI == "" || c.Mongo.Database == "" {
			return fmt.Errorf("mongo config is incomplete")
		}
	case StorePostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("DB_STRING is required for postgres store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers is empty")
	}
	if c.Product.BaseURL == "" {
		return fmt.Errorf("PRODUCT_SERVICE_URL is empty")
	}
	if c.Product.Timeout <= 0 {
		return fmt.Errorf("PRODUCT_LOOKUP_TIMEOUT must be positive")
	}
	if c.Order.PaymentWindow <= 0 {
		return fmt.Errorf("ORDER_PAYMENT_WINDOW must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if val := strings.TrimSpace(p); val != "" {
			out = append(out, val)
		}
	}
	return out
}
