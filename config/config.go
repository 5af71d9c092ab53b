package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	DriverMemory    = "memory"
	DriverPostgres  = "postgres"
	DriverFirestore = "firestore"
)

type Config struct {
	Port      string    `yaml:"port" env:"PORT" env-default:"8083"`
	JWTSecret string    `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	Store     Store     `yaml:"store"`
	Database  Database  `yaml:"database"`
	Firestore Firestore `yaml:"firestore"`
	Redis     Redis     `yaml:"redis"`
	Kafka     Kafka     `yaml:"kafka"`
	Booking   Booking   `yaml:"booking"`
	Worker    Worker    `yaml:"worker"`
	Webhook   Webhook   `yaml:"webhook"`
	Log       Log       `yaml:"log"`
}

type Store struct {
	Driver string `yaml:"driver" env:"STORE_DRIVER" env-default:"postgres"`
}

type Worker struct {
	MaxWorkers      int `yaml:"max_workers" env:"WORKER_MAX_WORKERS" env-default:"20"`
	MetricsInterval int `yaml:"metrics_interval_seconds" env:"WORKER_METRICS_INTERVAL" env-default:"30"`
	RetryBackoffMs  int `yaml:"retry_backoff_ms" env:"WORKER_RETRY_BACKOFF_MS" env-default:"250"`
	MaxRetryBackoff int `yaml:"max_retry_backoff_seconds" env:"WORKER_MAX_RETRY_BACKOFF" env-default:"30"`
}

type Database struct {
	User         string `yaml:"user" env:"DB_USER"`
	Password     string `yaml:"password" env:"DB_PASSWORD"`
	DatabaseName string `yaml:"database_name" env:"DB_NAME"`
	Host         string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port         string `yaml:"port" env:"DB_PORT" env-default:"5432"`
	SSLMode      string `yaml:"ssl_mode" env:"DB_SSL_MODE" env-default:"disable"`

	// Connection Pool Settings
	MaxOpenConns    int `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	MaxIdleConns    int `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	ConnMaxLifetime int `yaml:"conn_max_lifetime_minutes" env:"DB_CONN_MAX_LIFETIME" env-default:"30"`
}

func (d *Database) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DatabaseName, d.SSLMode)
}

type Firestore struct {
	ProjectID          string `yaml:"project_id" env:"FIRESTORE_PROJECT_ID"`
	CredentialsFile    string `yaml:"credentials_file" env:"GOOGLE_APPLICATION_CREDENTIALS"`
	CarsCollection     string `yaml:"cars_collection" env:"FIRESTORE_CARS_COLLECTION" env-default:"cars"`
	BookingsCollection string `yaml:"bookings_collection" env:"FIRESTORE_BOOKINGS_COLLECTION" env-default:"bookings"`
}

type Redis struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	// StatusTTL bounds how long a cached booking status is served.
	StatusTTL int `yaml:"status_ttl_seconds" env:"REDIS_STATUS_TTL" env-default:"300"`
	// EventTTL is how long a claimed payment event id is remembered.
	EventTTL int `yaml:"event_ttl_hours" env:"REDIS_EVENT_TTL" env-default:"72"`
}

func (r *Redis) GetRedisURL() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

type Kafka struct {
	Enabled           bool     `yaml:"enabled" env:"KAFKA_ENABLED" env-default:"false"`
	Brokers           []string `yaml:"brokers" env:"KAFKA_BROKERS" env-default:"localhost:9092" env-separator:","`
	PaymentTopic      string   `yaml:"payment_topic" env:"KAFKA_PAYMENT_TOPIC" env-default:"payment-events"`
	NotificationTopic string   `yaml:"notification_topic" env:"KAFKA_NOTIFICATION_TOPIC" env-default:"notification-requests"`
	ConsumerGroup     string   `yaml:"consumer_group" env:"KAFKA_CONSUMER_GROUP" env-default:"booking-service"`
	NotifierGroup     string   `yaml:"notifier_group" env:"KAFKA_NOTIFIER_GROUP" env-default:"notification-service"`
}

type Booking struct {
	HoldTTLMinutes  int     `yaml:"hold_ttl_minutes" env:"BOOKING_HOLD_TTL" env-default:"30"`
	TaxRate         float64 `yaml:"tax_rate" env:"BOOKING_TAX_RATE" env-default:"0.16"`
	DefaultCurrency string  `yaml:"default_currency" env:"BOOKING_DEFAULT_CURRENCY" env-default:"KES"`
}

func (b *Booking) HoldTTL() time.Duration {
	return time.Duration(b.HoldTTLMinutes) * time.Minute
}

type Webhook struct {
	Secret string `yaml:"secret" env:"PAYMENT_WEBHOOK_SECRET"`
}

type Log struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

func Initialise(configPath string, useEnv bool) (*Config, error) {
	cfg := &Config{}

	if useEnv {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment variables: %w", err)
		}
		return cfg, cfg.Validate()
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := cleanenv.ReadConfig(configPath, cfg); err != nil {
				return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
			}
			return cfg, cfg.Validate()
		}
	}

	// Fallback to environment variables
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment variables: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate checks the settings the chosen store driver and features need.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.User == "" || c.Database.DatabaseName == "" {
			return errors.New("postgres store requires database user and database_name")
		}
	case DriverFirestore:
		if c.Firestore.ProjectID == "" {
			return errors.New("firestore store requires project_id")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	if c.Booking.HoldTTLMinutes <= 0 {
		return errors.New("booking hold_ttl_minutes must be positive")
	}
	if c.Booking.TaxRate < 0 {
		return errors.New("booking tax_rate must not be negative")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka is enabled but no brokers are configured")
	}
	if c.Worker.MaxWorkers <= 0 {
		return errors.New("worker max_workers must be positive")
	}
	return nil
}
