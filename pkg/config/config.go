package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App      AppConfig
	DB       DBConfig
	JWT      JWTConfig
	HTTP     HTTPConfig
	Checkout CheckoutConfig
	Stripe   StripeConfig
	PayPal   PayPalConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	SMTP     SMTPConfig
	Owner    OwnerConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	Driver      string // postgres | memory
	Migrate     bool   // aplicar migraciones embebidas al iniciar
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	MaxConns    int32
	MinConns    int32
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// JWTConfig configuración de JWT (rutas de administración).
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CheckoutConfig parámetros de reservas y del barrido de expiración.
type CheckoutConfig struct {
	HoldMinutes          int
	SweepIntervalSeconds int
	SweepBatch           int
	Currency             string // ISO 4217 en minúsculas (nzd, usd...)
	SuccessURL           string
	CancelURL            string
	WebhookRatePerMinute int
}

// SweepInterval devuelve el intervalo del sweeper como time.Duration.
func (c CheckoutConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// StripeConfig credenciales del proveedor de pago con tarjeta.
type StripeConfig struct {
	SecretKey         string
	WebhookSecret     string
	APIBase           string
	MaxNetworkRetries int
}

// PayPalConfig credenciales del proveedor billetera (OAuth2 client credentials).
type PayPalConfig struct {
	ClientID     string
	ClientSecret string
	APIBase      string
	WebhookID    string
}

// RedisConfig conexión a Redis (vacío = deshabilitado).
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig brokers para el stream de eventos de checkout (vacío = deshabilitado).
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// SMTPConfig envío de correos de confirmación (Host vacío = deshabilitado).
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// OwnerConfig operador owner que se crea al iniciar si no existe (Email vacío = no se crea).
type OwnerConfig struct {
	TenantID string
	Email    string
	Password string
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, CHECKOUT_HOLD_MINUTES, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "storefront-checkout"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		DB: DBConfig{
			Driver:      getString(v, "STORE_DRIVER", "postgres"),
			Migrate:     getBool(v, "DB_MIGRATE", true),
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "storefront"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
			MaxConns:    int32(getInt(v, "DB_MAX_CONNS", 25)),
			MinConns:    int32(getInt(v, "DB_MIN_CONNS", 2)),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "storefront-checkout"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		Checkout: CheckoutConfig{
			HoldMinutes:          getInt(v, "CHECKOUT_HOLD_MINUTES", 30),
			SweepIntervalSeconds: getInt(v, "CHECKOUT_SWEEP_INTERVAL_SECONDS", 60),
			SweepBatch:           getInt(v, "CHECKOUT_SWEEP_BATCH", 200),
			Currency:             strings.ToLower(getString(v, "CHECKOUT_CURRENCY", "nzd")),
			SuccessURL:           getString(v, "CHECKOUT_SUCCESS_URL", "http://localhost:3000/checkout/success"),
			CancelURL:            getString(v, "CHECKOUT_CANCEL_URL", "http://localhost:3000/checkout/cancel"),
			WebhookRatePerMinute: getInt(v, "WEBHOOK_RATE_LIMIT_PER_MINUTE", 120),
		},
		Stripe: StripeConfig{
			SecretKey:         getString(v, "STRIPE_SECRET_KEY", ""),
			WebhookSecret:     getString(v, "STRIPE_WEBHOOK_SECRET", ""),
			APIBase:           getString(v, "STRIPE_API_BASE", "https://api.stripe.com"),
			// Reintentos internos de stripe-go (con Idempotency-Key) antes de contar el fallo en el breaker.
			MaxNetworkRetries: getInt(v, "STRIPE_MAX_NETWORK_RETRIES", 2),
		},
		PayPal: PayPalConfig{
			ClientID:     getString(v, "PAYPAL_CLIENT_ID", ""),
			ClientSecret: getString(v, "PAYPAL_CLIENT_SECRET", ""),
			APIBase:      getString(v, "PAYPAL_API_BASE", "https://api-m.sandbox.paypal.com"),
			WebhookID:    getString(v, "PAYPAL_WEBHOOK_ID", ""),
		},
		Redis: RedisConfig{
			Addr:     getString(v, "REDIS_ADDR", ""),
			Password: getString(v, "REDIS_PASSWORD", ""),
			DB:       getInt(v, "REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: splitCSV(getString(v, "KAFKA_BROKERS", "")),
			Topic:   getString(v, "KAFKA_TOPIC", "checkout-events"),
		},
		SMTP: SMTPConfig{
			Host:     getString(v, "SMTP_HOST", ""),
			Port:     getInt(v, "SMTP_PORT", 587),
			User:     getString(v, "SMTP_USER", ""),
			Password: getString(v, "SMTP_PASSWORD", ""),
			From:     getString(v, "SMTP_FROM", "pedidos@localhost"),
		},
		Owner: OwnerConfig{
			TenantID: getString(v, "BOOTSTRAP_OWNER_TENANT", ""),
			Email:    getString(v, "BOOTSTRAP_OWNER_EMAIL", ""),
			Password: getString(v, "BOOTSTRAP_OWNER_PASSWORD", ""),
		},
	}

	if cfg.Checkout.HoldMinutes <= 0 {
		return nil, fmt.Errorf("config: CHECKOUT_HOLD_MINUTES debe ser mayor que cero")
	}
	if cfg.Checkout.SweepIntervalSeconds <= 0 {
		return nil, fmt.Errorf("config: CHECKOUT_SWEEP_INTERVAL_SECONDS debe ser mayor que cero")
	}
	if cfg.DB.Driver != "postgres" && cfg.DB.Driver != "memory" {
		return nil, fmt.Errorf("config: STORE_DRIVER %q no soportado", cfg.DB.Driver)
	}
	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if v.IsSet(key) {
		return v.GetBool(key)
	}
	return def
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
