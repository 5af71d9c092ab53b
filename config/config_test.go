package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
port: "9090"
jwt_secret: test-secret
store:
  driver: memory
booking:
  hold_ttl_minutes: 15
  tax_rate: 0.16
  default_currency: KES
kafka:
  enabled: false
webhook:
  secret: hook
`

func TestInitialiseReadsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	cfg, err := Initialise(path, false)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, 15*time.Minute, cfg.Booking.HoldTTL())
	assert.Equal(t, "hook", cfg.Webhook.Secret)
	assert.False(t, cfg.Kafka.Enabled)
	// defaults still apply to sections the file leaves out
	assert.Equal(t, "payment-events", cfg.Kafka.PaymentTopic)
	assert.Equal(t, 20, cfg.Worker.MaxWorkers)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Store:   Store{Driver: DriverMemory},
			Booking: Booking{HoldTTLMinutes: 30, TaxRate: 0.16},
			Kafka:   Kafka{Enabled: true, Brokers: []string{"localhost:9092"}},
			Worker:  Worker{MaxWorkers: 4},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.Store.Driver = "mongo" }, wantErr: "unknown store driver"},
		{name: "postgres without credentials", mutate: func(c *Config) { c.Store.Driver = DriverPostgres }, wantErr: "postgres"},
		{name: "firestore without project", mutate: func(c *Config) { c.Store.Driver = DriverFirestore }, wantErr: "project_id"},
		{name: "zero hold", mutate: func(c *Config) { c.Booking.HoldTTLMinutes = 0 }, wantErr: "hold_ttl"},
		{name: "negative tax", mutate: func(c *Config) { c.Booking.TaxRate = -1 }, wantErr: "tax_rate"},
		{name: "kafka without brokers", mutate: func(c *Config) { c.Kafka.Brokers = nil }, wantErr: "brokers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseURL(t *testing.T) {
	d := Database{User: "app", Password: "pw", Host: "db", Port: "5432", DatabaseName: "rentals", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:pw@db:5432/rentals?sslmode=disable", d.GetDatabaseURL())
}
