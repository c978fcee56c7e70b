package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPConfig_Address(t *testing.T) {
	tests := []struct {
		name string
		http HTTPConfig
		want string
	}{
		{name: "bind all interfaces", http: HTTPConfig{Host: "0.0.0.0", Port: 8080}, want: "0.0.0.0:8080"},
		{name: "localhost", http: HTTPConfig{Host: "localhost", Port: 9000}, want: "localhost:9000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.http.Address())
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092 ,")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 3*time.Second, cfg.Product.Timeout)
	assert.Equal(t, 15*time.Minute, cfg.Order.PaymentWindow)
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown driver", env: map[string]string{"STORE_DRIVER": "cassandra"}},
		{name: "postgres without dsn", env: map[string]string{"STORE_DRIVER": "postgres", "DB_STRING": ""}},
		{name: "no brokers", env: map[string]string{"STORE_DRIVER": "memory", "KAFKA_BROKERS": " , "}},
		{name: "bad port", env: map[string]string{"STORE_DRIVER": "memory", "HTTP_PORT": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestGetEnvAsDuration_FallsBackOnGarbage(t *testing.T) {
	t.Setenv("PRODUCT_LOOKUP_TIMEOUT", "soon")
	assert.Equal(t, 3*time.Second, getEnvAsDuration("PRODUCT_LOOKUP_TIMEOUT", 3*time.Second))
}
