package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"

	"github.com/jhoicas/storefront-checkout/docs"
	"github.com/jhoicas/storefront-checkout/internal/application/auth"
	"github.com/jhoicas/storefront-checkout/internal/application/checkout"
	"github.com/jhoicas/storefront-checkout/internal/application/dto"
	"github.com/jhoicas/storefront-checkout/internal/application/ports"
	"github.com/jhoicas/storefront-checkout/internal/application/settlement"
	"github.com/jhoicas/storefront-checkout/internal/application/stock"
	"github.com/jhoicas/storefront-checkout/internal/domain"
	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
	"github.com/jhoicas/storefront-checkout/internal/domain/repository"
	"github.com/jhoicas/storefront-checkout/internal/infrastructure/events"
	"github.com/jhoicas/storefront-checkout/internal/infrastructure/memory"
	"github.com/jhoicas/storefront-checkout/internal/infrastructure/notify"
	"github.com/jhoicas/storefront-checkout/internal/infrastructure/payment"
	infrapdf "github.com/jhoicas/storefront-checkout/internal/infrastructure/pdf"
	"github.com/jhoicas/storefront-checkout/internal/infrastructure/postgres"
	"github.com/jhoicas/storefront-checkout/internal/infrastructure/redisstore"
	httpRouter "github.com/jhoicas/storefront-checkout/internal/interfaces/http"
	"github.com/jhoicas/storefront-checkout/pkg/config"
	"github.com/jhoicas/storefront-checkout/pkg/logger"
)

// stores agrupa los adaptadores de persistencia según STORE_DRIVER.
type stores struct {
	reservations repository.ReservationStore
	pieces       repository.PieceRepository
	orders       repository.OrderRepository
	anomalies    repository.AnomalyRepository
	operators    repository.OperatorRepository
	movements    repository.StockMovementRepository
	tx           settlement.TxRunner
	close        func()
}

// @title                      Storefront Checkout API
// @version                    1.0
// @description                Reserva de stock y liquidación de pagos para tiendas multi-tenant.
// @BasePath                   /
// @securityDefinitions.apikey Bearer
// @in                         header
// @name                       Authorization
// @description                Bearer <JWT>
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("store", cfg.DB.Driver).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := openStores(ctx, cfg, log)
	defer st.close()

	// Proveedores de pago: solo se registran los que tienen credenciales
	var providers []ports.PaymentProvider
	if cfg.Stripe.SecretKey != "" {
		providers = append(providers, payment.NewStripe(payment.StripeConfig{
			SecretKey:         cfg.Stripe.SecretKey,
			WebhookSecret:     cfg.Stripe.WebhookSecret,
			APIBase:           cfg.Stripe.APIBase,
			MaxNetworkRetries: int64(cfg.Stripe.MaxNetworkRetries),
		}, log))
	}
	if cfg.PayPal.ClientID != "" {
		pp, err := payment.NewPayPal(payment.PayPalConfig{
			ClientID:     cfg.PayPal.ClientID,
			ClientSecret: cfg.PayPal.ClientSecret,
			APIBase:      cfg.PayPal.APIBase,
			WebhookID:    cfg.PayPal.WebhookID,
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("configuración de PayPal inválida")
		}
		if cfg.PayPal.WebhookID == "" {
			log.Warn().Msg("PAYPAL_WEBHOOK_ID vacío; los webhooks de PayPal se rechazarán y solo liquida la captura directa")
		}
		providers = append(providers, pp)
	}
	registry := payment.NewRegistry(providers...)
	if len(providers) == 0 {
		log.Warn().Msg("ningún proveedor de pago configurado; el checkout responderá UNKNOWN_PROVIDER")
	}

	// Redis opcional: deduplicación de webhooks y rate limit compartido entre réplicas
	var (
		deduper        settlement.EventDeduper
		webhookLimiter httpRouter.RateLimiter
	)
	if cfg.Redis.Addr != "" {
		rdb, err := redisstore.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rdb.Close()
		deduper = redisstore.NewEventDeduper(rdb, "")
		webhookLimiter = redisstore.NewRateLimiter(rdb, cfg.Checkout.WebhookRatePerMinute, time.Minute)
	}

	var publisher ports.EventPublisher = events.NewLogPublisher(log)
	if len(cfg.Kafka.Brokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		defer func() {
			if err := kp.Close(); err != nil {
				log.Error().Err(err).Msg("cerrar productor Kafka")
			}
		}()
		publisher = kp
	}

	receipts := infrapdf.NewReceiptGenerator(cfg.App.Name, language.English)
	var notifier ports.Notifier = notify.NewLogNotifier(log)
	if cfg.SMTP.Host != "" {
		notifier = notify.NewSMTPNotifier(cfg.SMTP, receipts, log)
	}

	stockSvc := stock.NewService(st.reservations, log).WithMovementLog(st.movements)
	checkoutUC := checkout.NewUseCase(st.pieces, stockSvc, registry, publisher, log, checkout.Config{
		HoldMinutes: cfg.Checkout.HoldMinutes,
		Currency:    cfg.Checkout.Currency,
		SuccessURL:  cfg.Checkout.SuccessURL,
		CancelURL:   cfg.Checkout.CancelURL,
	})
	settlementUC := settlement.NewUseCase(
		st.tx, st.reservations, st.orders, st.anomalies,
		registry, notifier, publisher, deduper, log,
		settlement.Config{Currency: cfg.Checkout.Currency},
	)

	authUC := auth.NewUseCase(st.operators, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	}, log)
	bootstrapOwner(ctx, authUC, cfg.Owner, log)

	// Sweeper: libera reservas vencidas hasta que llegue la señal de apagado
	var wg sync.WaitGroup
	sweeper := stock.NewSweeper(st.reservations, publisher, log, stock.SweeperConfig{
		Interval: cfg.Checkout.SweepInterval(),
		Batch:    cfg.Checkout.SweepBatch,
	})
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Run(ctx)
	}()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(docs.SwaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: docs.SwaggerFile,
			Path:     "docs",
			Title:    docs.SwaggerInfo.Title,
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"service":   cfg.App.Name,
			"providers": registry.Names(),
		})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		CheckoutUC:           checkoutUC,
		SettlementUC:         settlementUC,
		StockService:         stockSvc,
		AuthUC:               authUC,
		Receipts:             receipts,
		WebhookLimiter:       webhookLimiter,
		WebhookRatePerMinute: cfg.Checkout.WebhookRatePerMinute,
		JWTSecret:            cfg.JWT.Secret,
		Logger:               log,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	wg.Wait()

	log.Info().Msg("aplicación detenida")
}

func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) *stores {
	if cfg.DB.Driver == "memory" {
		store := memory.NewStore(nil)
		catalog := memory.NewPieceCatalog()
		orders := memory.NewOrderRepo()
		if cfg.App.Env == "development" {
			seedDemo(store, catalog, log)
		}
		return &stores{
			reservations: store,
			pieces:       catalog,
			orders:       orders,
			anomalies:    memory.NewAnomalyRepo(),
			operators:    memory.NewOperatorRepo(),
			movements:    memory.NewMovementLog(),
			tx:           memory.NewTxRunner(store, orders),
			close:        func() {},
		}
	}

	if cfg.DB.Migrate {
		if err := postgres.Migrate(cfg.DB.ConnectionString()); err != nil {
			log.Fatal().Err(err).Msg("migraciones PostgreSQL")
		}
	}
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	return &stores{
		reservations: postgres.NewReservationStore(pool),
		pieces:       postgres.NewPieceRepository(pool),
		orders:       postgres.NewOrderRepository(pool),
		anomalies:    postgres.NewAnomalyRepository(pool),
		operators:    postgres.NewOperatorRepository(pool),
		movements:    postgres.NewStockMovementRepository(pool),
		tx:           postgres.NewTxRunner(pool),
		close:        pool.Close,
	}
}

// seedDemo carga una pieza de ejemplo para probar el flujo sin base de datos.
func seedDemo(store *memory.Store, catalog *memory.PieceCatalog, log *logger.Logger) {
	const tenant = "demo"
	catalog.Put(&entity.Piece{
		ID:       "vase-01",
		TenantID: tenant,
		Name:     "Jarrón de gres",
		Status:   entity.PieceStatusActive,
		Price:    decimal.NewFromInt(120),
	})
	store.SetStock(tenant, "vase-01", "", 1)
	log.Info().Str("tenant_id", tenant).Msg("datos de demostración cargados en memoria")
}

// bootstrapOwner crea el owner inicial de la tienda; si ya existe no hace nada.
func bootstrapOwner(ctx context.Context, uc *auth.UseCase, owner config.OwnerConfig, log *logger.Logger) {
	if owner.Email == "" {
		return
	}
	_, err := uc.CreateOperator(ctx, owner.TenantID, dto.CreateOperatorRequest{
		Email:    owner.Email,
		Password: owner.Password,
		Role:     entity.OperatorRoleOwner,
	})
	switch {
	case err == nil:
		log.Info().Str("tenant_id", owner.TenantID).Msg("owner inicial creado")
	case errors.Is(err, domain.ErrDuplicate):
	default:
		log.Fatal().Err(err).Msg("crear owner inicial")
	}
}
