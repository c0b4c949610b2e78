package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8012, cfg.HTTPPort)
	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, "review-service", cfg.Tracing.ServiceName)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 1.0, cfg.WriteRateLimitRPS)
	assert.Equal(t, 5, cfg.WriteRateLimitBurst)
	assert.False(t, cfg.CacheEnabled())
	assert.False(t, cfg.KafkaEnabled())
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "mongo")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("OTEL_SAMPLE_RATE", "0.5")
	t.Setenv("DB_MAX_CONN_LIFETIME_MINUTES", "10")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, BackendMongo, cfg.StoreBackend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.CacheEnabled())
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, 0.5, cfg.Tracing.SampleRate)
	assert.Equal(t, 10*time.Minute, cfg.PostgresConfig().MaxConnLifetime)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"port", map[string]string{"REVIEW_HTTP_PORT": "0"}, "invalid HTTP port"},
		{"backend", map[string]string{"STORE_BACKEND": "sqlite"}, "STORE_BACKEND"},
		{"sample rate", map[string]string{"OTEL_SAMPLE_RATE": "1.5"}, "OTEL_SAMPLE_RATE"},
		{"jwt secret", map[string]string{"ENVIRONMENT": "production"}, "JWT_SECRET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()

			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_ProductionWithGatewayAuth(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("AUTH_TRUST_GATEWAY", "true")

	cfg, err := Load()

	require.NoError(t, err)
	assert.False(t, cfg.IsDevelopment())
}
