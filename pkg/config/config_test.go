package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Checkout.HoldMinutes, "la reserva dura 30 minutos por defecto")
	assert.Equal(t, time.Minute, cfg.Checkout.SweepInterval())
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, 2, cfg.Stripe.MaxNetworkRetries)
	assert.Empty(t, cfg.PayPal.WebhookID)
}

func TestLoad_EnvSobrescribe(t *testing.T) {
	t.Setenv("CHECKOUT_HOLD_MINUTES", "15")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("CHECKOUT_CURRENCY", "USD")
	t.Setenv("PAYPAL_WEBHOOK_ID", "WH-1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15, cfg.Checkout.HoldMinutes)
	assert.Equal(t, "memory", cfg.DB.Driver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "usd", cfg.Checkout.Currency)
	assert.Equal(t, "WH-1", cfg.PayPal.WebhookID)
}

func TestLoad_DriverInvalido(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	_, err := Load()
	assert.Error(t, err)
}

func TestDBConfig_DSNEscapaPassword(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss:w/rd", DBName: "shop", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%3Aw%2Frd@db:5432/shop?sslmode=disable", c.ConnectionString())
}
