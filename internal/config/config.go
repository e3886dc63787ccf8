package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type MySQL struct {
	User         string
	Password     string
	Host         string
	Port         string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
}

type Config struct {
	Port     string
	LogLevel string
	MySQL    MySQL

	RedisAddr      string
	ProductTTL     time.Duration
	CheckoutLock   time.Duration
	EventBroker    string // amqp | kafka | none
	RabbitMQURL    string
	Exchange       string
	KafkaBrokers   string
	KafkaTopic     string
	JWTSecret      string
	TokenTTL       time.Duration
	ImageUploadURL string

	PaymentURL      string
	PaymentAPIKey   string
	PaymentTimeout  time.Duration
	Currency        string
	CallbackToken   string
	PendingOrderTTL time.Duration
	ReconcileEvery  time.Duration
	NotifyTimeout   time.Duration
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:     getenv("PORT", "8080"),
		LogLevel: getenv("LOG_LEVEL", "info"),
		MySQL: MySQL{
			User:         getenv("MYSQL_USER", "root"),
			Password:     os.Getenv("MYSQL_PASSWORD"),
			Host:         getenv("MYSQL_HOST", "127.0.0.1"),
			Port:         getenv("MYSQL_PORT", "3306"),
			Database:     getenv("MYSQL_DATABASE", "storefront"),
			MaxOpenConns: getint("MYSQL_MAX_OPEN_CONNS", 100),
			MaxIdleConns: getint("MYSQL_MAX_IDLE_CONNS", 20),
		},
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		ProductTTL:     getduration("PRODUCT_CACHE_TTL", time.Minute),
		CheckoutLock:   getduration("CHECKOUT_LOCK_TTL", 2*time.Minute),
		EventBroker:    strings.ToLower(getenv("EVENT_BROKER", "amqp")),
		RabbitMQURL:    os.Getenv("RABBITMQ_URL"),
		Exchange:       getenv("RABBITMQ_EXCHANGE", "storefront.exchange"),
		KafkaBrokers:   os.Getenv("KAFKA_BROKERS"),
		KafkaTopic:     getenv("KAFKA_TOPIC", "storefront.events"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		TokenTTL:       getduration("JWT_TTL", time.Hour),
		ImageUploadURL: os.Getenv("IMAGE_UPLOAD_URL"),

		PaymentURL:      strings.TrimRight(os.Getenv("PAYMENT_BASE_URL"), "/"),
		PaymentAPIKey:   os.Getenv("PAYMENT_API_KEY"),
		PaymentTimeout:  getduration("PAYMENT_TIMEOUT", 10*time.Second),
		Currency:        getenv("CURRENCY", "KES"),
		CallbackToken:   os.Getenv("PAYMENT_CALLBACK_TOKEN"),
		PendingOrderTTL: getduration("PENDING_ORDER_TTL", 30*time.Minute),
		ReconcileEvery:  getduration("RECONCILE_INTERVAL", time.Minute),
		NotifyTimeout:   getduration("NOTIFY_TIMEOUT", 5*time.Second),
	}

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	switch cfg.EventBroker {
	case "amqp":
		if cfg.RabbitMQURL == "" {
			return Config{}, errors.New("RABBITMQ_URL is required when EVENT_BROKER=amqp")
		}
	case "kafka":
		if cfg.KafkaBrokers == "" {
			return Config{}, errors.New("KAFKA_BROKERS is required when EVENT_BROKER=kafka")
		}
	case "none":
	default:
		return Config{}, errors.New("EVENT_BROKER must be amqp, kafka or none")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return fallback
}
