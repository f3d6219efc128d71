package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":8081", cfg.HTTPAddr)
	require.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	require.Equal(t, "inr", cfg.Currency)
	require.Equal(t, time.Hour, cfg.JWTTTL)
	require.Equal(t, "http://localhost:3000/paymentsuccess", cfg.SuccessURL())
	require.Equal(t, "http://localhost:3000/paymentfailure", cfg.CancelURL())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("JWT_TTL", "15m")
	t.Setenv("PUBLIC_BASE_URL", "https://tickets.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	require.Equal(t, 15*time.Minute, cfg.JWTTTL)
	require.Equal(t, "https://tickets.example.com/paymentfailure", cfg.CancelURL())
}
