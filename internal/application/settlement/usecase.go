package settlement

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/storefront-checkout/internal/application/ports"
	"github.com/jhoicas/storefront-checkout/internal/domain"
	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
	"github.com/jhoicas/storefront-checkout/internal/domain/repository"
	"github.com/jhoicas/storefront-checkout/internal/domain/reservation"
	"github.com/jhoicas/storefront-checkout/pkg/logger"
)

// Outcome resultado de procesar un evento de pago.
type Outcome string

const (
	OutcomeSettled   Outcome = "settled"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeReleased  Outcome = "released"
	OutcomeAnomaly   Outcome = "anomaly"
	OutcomeIgnored   Outcome = "ignored"
)

// Result resultado de la liquidación. Order se completa en settled y duplicate.
type Result struct {
	Outcome Outcome
	Order   *entity.Order
}

// Config parámetros de la liquidación.
type Config struct {
	Currency          string
	ProcessedEventTTL time.Duration
	NotifyTimeout     time.Duration
}

var (
	errReservationNotHeld = errors.New("settlement: reserva no retenida")
	errOrderExists        = errors.New("settlement: pedido ya creado")
)

// UseCase procesa eventos de pago: pending → settling → settled, o pending → released.
// Toda respuesta sin error significa que el evento llegó a un estado terminal y el proveedor
// puede dejar de reintentar.
type UseCase struct {
	tx        TxRunner
	store     repository.ReservationStore
	orders    repository.OrderRepository
	anomalies repository.AnomalyRepository
	providers ProviderLookup
	notifier  ports.Notifier
	publisher ports.EventPublisher
	deduper   EventDeduper
	log       *logger.Logger
	cfg       Config
	now       func() time.Time
}

// NewUseCase construye el caso de uso. notifier, publisher y deduper son opcionales.
func NewUseCase(
	tx TxRunner,
	store repository.ReservationStore,
	orders repository.OrderRepository,
	anomalies repository.AnomalyRepository,
	providers ProviderLookup,
	notifier ports.Notifier,
	publisher ports.EventPublisher,
	deduper EventDeduper,
	log *logger.Logger,
	cfg Config,
) *UseCase {
	if cfg.ProcessedEventTTL <= 0 {
		cfg.ProcessedEventTTL = 24 * time.Hour
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 30 * time.Second
	}
	return &UseCase{
		tx:        tx,
		store:     store,
		orders:    orders,
		anomalies: anomalies,
		providers: providers,
		notifier:  notifier,
		publisher: publisher,
		deduper:   deduper,
		log:       log.Component("settlement"),
		cfg:       cfg,
		now:       time.Now,
	}
}

// HandleWebhook verifica la firma del webhook del proveedor y procesa el evento.
// Retorna domain.ErrInvalidSignature si la firma no es válida.
func (uc *UseCase) HandleWebhook(ctx context.Context, providerName string, payload []byte, headers http.Header) (*Result, error) {
	provider, err := uc.providers.Provider(providerName)
	if err != nil {
		return nil, err
	}
	parser, ok := provider.(ports.WebhookParser)
	if !ok {
		return nil, fmt.Errorf("%w: %s no recibe webhooks", domain.ErrInvalidInput, providerName)
	}
	ev, err := parser.ParseWebhook(ctx, payload, headers)
	if err != nil {
		return nil, err
	}
	return uc.HandleEvent(ctx, ev)
}

// Capture confirma desde el servidor un pago aprobado por el comprador (billetera) y lo liquida.
// Antes de mover dinero comprueba el tenant y que la reserva siga retenida; si la liquidación
// falla después de capturar, el cobro se reembolsa y queda como anomalía.
func (uc *UseCase) Capture(ctx context.Context, tenantID, providerName, providerSessionID string) (*Result, error) {
	if tenantID == "" || providerSessionID == "" {
		return nil, domain.ErrInvalidInput
	}
	provider, err := uc.providers.Provider(providerName)
	if err != nil {
		return nil, err
	}
	capturer, ok := provider.(ports.Capturer)
	if !ok {
		return nil, fmt.Errorf("%w: %s no soporta captura", domain.ErrInvalidInput, providerName)
	}

	// Reintento del comprador (doble clic, recarga): no volver a capturar
	existing, err := uc.orders.FindBySessionRef(ctx, tenantID, provider.Name(), providerSessionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &Result{Outcome: OutcomeDuplicate, Order: existing}, nil
	}

	pre, err := capturer.Lookup(ctx, providerSessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	if pre.TenantID != tenantID {
		return nil, domain.ErrForbidden
	}
	if pre.Kind == entity.PaymentSucceeded {
		// Capturada en un intento anterior cuya liquidación no terminó
		return uc.settleCaptured(ctx, pre)
	}
	if err := uc.ensureHeld(ctx, tenantID, pre.ReservationSessionID); err != nil {
		return nil, err
	}

	ev, err := capturer.Capture(ctx, providerSessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	if ev.TenantID != tenantID {
		uc.log.Error().Str("tenant_id", tenantID).Str("provider_session_id", providerSessionID).
			Msg("la captura devolvió otro tenant, se reembolsa")
		return uc.compensate(ctx, ev, entity.AnomalyMissingMetadata)
	}
	return uc.settleCaptured(ctx, ev)
}

// ensureHeld falla con domain.ErrReservationReleased si la sesión no tiene reservas held vigentes.
func (uc *UseCase) ensureHeld(ctx context.Context, tenantID, sessionID string) error {
	if sessionID == "" {
		return domain.ErrReservationReleased
	}
	rs, err := uc.store.ListBySession(ctx, tenantID, sessionID)
	if err != nil {
		return err
	}
	held := reservation.Held(rs)
	if len(held) == 0 {
		return domain.ErrReservationReleased
	}
	now := uc.now()
	for _, r := range held {
		if !r.ExpiresAt.After(now) {
			return domain.ErrReservationReleased
		}
	}
	return nil
}

// settleCaptured liquida un cobro ya capturado. Si no se puede persistir, compensa.
func (uc *UseCase) settleCaptured(ctx context.Context, ev *entity.PaymentEvent) (*Result, error) {
	res, err := uc.HandleEvent(ctx, ev)
	if err == nil {
		return res, nil
	}
	uc.log.Error().Err(err).
		Str("tenant_id", ev.TenantID).
		Str("session_id", ev.ReservationSessionID).
		Str("provider", ev.Provider).
		Str("provider_session_id", ev.ProviderSessionID).
		Msg("liquidación fallida tras capturar, se compensa")
	return uc.compensate(ctx, ev, entity.AnomalySettlementFailed)
}

// compensate libera la reserva y registra la anomalía con su reembolso. Si tampoco eso se puede
// persistir, el webhook de captura del proveedor vuelve a entregar el pago.
func (uc *UseCase) compensate(ctx context.Context, ev *entity.PaymentEvent, reason string) (*Result, error) {
	ctx = context.WithoutCancel(ctx)
	if ev.TenantID != "" && ev.ReservationSessionID != "" {
		if _, err := uc.store.Cancel(ctx, ev.TenantID, ev.ReservationSessionID); err != nil {
			uc.log.Error().Err(err).Str("tenant_id", ev.TenantID).Str("session_id", ev.ReservationSessionID).
				Msg("liberar reserva tras captura fallida")
		}
	}
	res, err := uc.anomaly(ctx, ev, reason)
	if err != nil {
		uc.log.Error().Err(err).Str("provider", ev.Provider).Str("payment_ref", ev.PaymentRef).
			Msg("cobro capturado sin pedido ni anomalía, queda a la espera del webhook")
		return nil, err
	}
	return res, nil
}

// HandleEvent procesa un evento normalizado del proveedor. Es idempotente: reentregas del mismo
// evento devuelven el mismo pedido. Solo retorna error si no se pudo persistir (el proveedor reintenta).
func (uc *UseCase) HandleEvent(ctx context.Context, ev *entity.PaymentEvent) (*Result, error) {
	if ev == nil || ev.Provider == "" {
		return nil, domain.ErrInvalidInput
	}
	if uc.seen(ctx, ev) {
		return &Result{Outcome: OutcomeDuplicate}, nil
	}

	var (
		res *Result
		err error
	)
	switch ev.Kind {
	case entity.PaymentSucceeded:
		res, err = uc.settle(ctx, ev)
	case entity.PaymentFailed, entity.PaymentExpired:
		res, err = uc.release(ctx, ev)
	default:
		uc.log.Debug().Str("provider", ev.Provider).Str("type", ev.Type).Msg("evento ignorado")
		res = &Result{Outcome: OutcomeIgnored}
	}
	if err != nil {
		return nil, err
	}
	uc.markProcessed(ctx, ev)
	return res, nil
}

func (uc *UseCase) settle(ctx context.Context, ev *entity.PaymentEvent) (*Result, error) {
	if ev.TenantID == "" || ev.ReservationSessionID == "" || ev.ProviderSessionID == "" {
		return uc.anomaly(ctx, ev, entity.AnomalyMissingMetadata)
	}

	existing, err := uc.orders.FindBySessionRef(ctx, ev.TenantID, ev.Provider, ev.ProviderSessionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &Result{Outcome: OutcomeDuplicate, Order: existing}, nil
	}
	// Un cobro ya compensado no se convierte en pedido aunque la reserva siga held
	prev, err := uc.anomalies.FindBySessionRef(ctx, ev.TenantID, ev.Provider, ev.ProviderSessionID)
	if err != nil {
		return nil, err
	}
	if prev != nil {
		return &Result{Outcome: OutcomeAnomaly}, nil
	}

	now := uc.now()
	order := uc.buildOrder(ev, now)
	err = uc.tx.RunSettlement(ctx, func(store repository.ReservationStore, orders repository.OrderRepository) error {
		ok, err := store.Commit(ctx, ev.TenantID, ev.ReservationSessionID)
		if err != nil {
			return err
		}
		if !ok {
			return errReservationNotHeld
		}
		if err := orders.Create(ctx, order); err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				return errOrderExists
			}
			return fmt.Errorf("settlement: crear pedido: %w", err)
		}
		if err := orders.MarkPaid(ctx, ev.TenantID, order.ID, now); err != nil {
			return fmt.Errorf("settlement: marcar pagado: %w", err)
		}
		return nil
	})

	switch {
	case errors.Is(err, errReservationNotHeld):
		return uc.anomaly(ctx, ev, entity.AnomalyReservationNotHeld)
	case errors.Is(err, errOrderExists):
		// Otra entrega concurrente ganó la restricción única
		existing, ferr := uc.orders.FindBySessionRef(ctx, ev.TenantID, ev.Provider, ev.ProviderSessionID)
		if ferr != nil {
			return nil, ferr
		}
		return &Result{Outcome: OutcomeDuplicate, Order: existing}, nil
	case err != nil:
		uc.log.Error().Err(err).
			Str("tenant_id", ev.TenantID).
			Str("session_id", ev.ReservationSessionID).
			Str("provider", ev.Provider).
			Msg("liquidación fallida, el proveedor reintentará")
		return nil, err
	}

	order.Status = entity.OrderStatusPaid
	order.PaidAt = &now
	uc.log.Info().
		Str("tenant_id", ev.TenantID).
		Str("session_id", ev.ReservationSessionID).
		Str("provider", ev.Provider).
		Str("order_id", order.ID).
		Str("total", order.Total.StringFixed(2)).
		Msg("pedido liquidado")

	uc.notifyAsync("confirmación de pedido", func(ctx context.Context) error {
		return uc.notifier.SendOrderConfirmation(ctx, order)
	})
	uc.publish(ctx, ports.CheckoutEvent{
		Type:       ports.EventOrderSettled,
		TenantID:   ev.TenantID,
		SessionID:  ev.ReservationSessionID,
		Provider:   ev.Provider,
		OrderID:    order.ID,
		OccurredAt: now,
		Attributes: map[string]string{"total": order.Total.StringFixed(2), "currency": order.Currency},
	})
	return &Result{Outcome: OutcomeSettled, Order: order}, nil
}

// anomaly registra un pago que no puede convertirse en pedido, pide el reembolso y avisa al comprador.
// La anomalía se inserta antes de reembolsar: una reentrega del mismo pago choca con la restricción
// única y no repite ni el reembolso ni el aviso.
func (uc *UseCase) anomaly(ctx context.Context, ev *entity.PaymentEvent, reason string) (*Result, error) {
	if ev.ProviderSessionID != "" {
		prev, err := uc.anomalies.FindBySessionRef(ctx, ev.TenantID, ev.Provider, ev.ProviderSessionID)
		if err != nil {
			return nil, err
		}
		if prev != nil {
			return &Result{Outcome: OutcomeAnomaly}, nil
		}
	}

	a := &entity.SettlementAnomaly{
		ID:                   uuid.New().String(),
		TenantID:             ev.TenantID,
		Provider:             ev.Provider,
		ProviderSessionID:    ev.ProviderSessionID,
		ReservationSessionID: ev.ReservationSessionID,
		PaymentRef:           ev.PaymentRef,
		Currency:             uc.currency(ev),
		Amount:               ev.AmountTotal,
		Reason:               reason,
		RefundStatus:         entity.RefundPending,
		CreatedAt:            uc.now(),
	}
	if err := uc.anomalies.Create(ctx, a); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return &Result{Outcome: OutcomeAnomaly}, nil
		}
		return nil, fmt.Errorf("settlement: registrar anomalía: %w", err)
	}

	a.RefundStatus = uc.refund(ctx, ev)
	if err := uc.anomalies.SetRefundStatus(ctx, a.TenantID, a.ID, a.RefundStatus); err != nil {
		uc.log.Error().Err(err).Str("anomaly_id", a.ID).Str("refund", a.RefundStatus).Msg("guardar estado del reembolso")
	}

	uc.log.Warn().
		Str("tenant_id", ev.TenantID).
		Str("session_id", ev.ReservationSessionID).
		Str("provider", ev.Provider).
		Str("provider_session_id", ev.ProviderSessionID).
		Str("reason", reason).
		Str("refund", a.RefundStatus).
		Msg("pago sin pedido, requiere conciliación")

	customer := ev.Customer
	uc.notifyAsync("aviso de reembolso", func(ctx context.Context) error {
		return uc.notifier.SendRefundNotice(ctx, customer, a)
	})
	uc.publish(ctx, ports.CheckoutEvent{
		Type:       ports.EventSettlementAnomaly,
		TenantID:   ev.TenantID,
		SessionID:  ev.ReservationSessionID,
		Provider:   ev.Provider,
		OccurredAt: a.CreatedAt,
		Attributes: map[string]string{"reason": reason, "refund": a.RefundStatus},
	})
	return &Result{Outcome: OutcomeAnomaly}, nil
}

func (uc *UseCase) refund(ctx context.Context, ev *entity.PaymentEvent) string {
	if ev.PaymentRef == "" {
		return entity.RefundSkipped
	}
	provider, err := uc.providers.Provider(ev.Provider)
	if err != nil {
		return entity.RefundSkipped
	}
	if err := provider.Refund(ctx, ev.PaymentRef); err != nil {
		uc.log.Error().Err(err).Str("provider", ev.Provider).Str("payment_ref", ev.PaymentRef).Msg("solicitar reembolso")
		return entity.RefundFailed
	}
	return entity.RefundRequested
}

// release libera las reservas de un pago fallido o vencido. Cancel es idempotente.
func (uc *UseCase) release(ctx context.Context, ev *entity.PaymentEvent) (*Result, error) {
	if ev.TenantID == "" || ev.ReservationSessionID == "" {
		uc.log.Warn().Str("provider", ev.Provider).Str("type", ev.Type).Msg("evento de fallo sin metadata de reserva")
		return &Result{Outcome: OutcomeIgnored}, nil
	}
	ok, err := uc.store.Cancel(ctx, ev.TenantID, ev.ReservationSessionID)
	if err != nil {
		return nil, err
	}
	if ok {
		uc.log.Info().
			Str("tenant_id", ev.TenantID).
			Str("session_id", ev.ReservationSessionID).
			Str("provider", ev.Provider).
			Str("kind", string(ev.Kind)).
			Msg("reserva liberada por pago no completado")
		uc.publish(ctx, ports.CheckoutEvent{
			Type:       ports.EventReservationReleased,
			TenantID:   ev.TenantID,
			SessionID:  ev.ReservationSessionID,
			Provider:   ev.Provider,
			OccurredAt: uc.now(),
			Attributes: map[string]string{"reason": string(ev.Kind)},
		})
	}
	return &Result{Outcome: OutcomeReleased}, nil
}

// buildOrder arma el pedido a partir de lo que cobró el proveedor, nunca del carrito del cliente.
func (uc *UseCase) buildOrder(ev *entity.PaymentEvent, now time.Time) *entity.Order {
	orderID := uuid.New().String()
	items := make([]entity.OrderItem, 0, len(ev.LineItems))
	subtotal := decimal.Zero
	for _, li := range ev.LineItems {
		line := li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
		subtotal = subtotal.Add(line)
		items = append(items, entity.OrderItem{
			PieceID:   li.PieceID,
			VariantID: li.VariantID,
			Name:      li.Name,
			Quantity:  li.Quantity,
			UnitPrice: li.UnitPrice,
			Subtotal:  line,
		})
	}
	total := ev.AmountTotal
	if total.IsZero() {
		total = subtotal.Add(ev.ShippingTotal)
	}
	return &entity.Order{
		ID:                   orderID,
		TenantID:             ev.TenantID,
		Provider:             ev.Provider,
		ProviderSessionID:    ev.ProviderSessionID,
		ReservationSessionID: ev.ReservationSessionID,
		PaymentRef:           ev.PaymentRef,
		Status:               entity.OrderStatusPending,
		Currency:             uc.currency(ev),
		Subtotal:             subtotal,
		ShippingTotal:        ev.ShippingTotal,
		Total:                total,
		Customer:             ev.Customer,
		Shipping:             ev.Shipping,
		Items:                items,
		CreatedAt:            now,
	}
}

func (uc *UseCase) currency(ev *entity.PaymentEvent) string {
	if ev.Currency != "" {
		return ev.Currency
	}
	return uc.cfg.Currency
}

func (uc *UseCase) seen(ctx context.Context, ev *entity.PaymentEvent) bool {
	if uc.deduper == nil || ev.EventID == "" {
		return false
	}
	ok, err := uc.deduper.Seen(ctx, ev.Provider, ev.EventID)
	if err != nil {
		uc.log.Warn().Err(err).Str("event_id", ev.EventID).Msg("consultar eventos procesados")
		return false
	}
	return ok
}

func (uc *UseCase) markProcessed(ctx context.Context, ev *entity.PaymentEvent) {
	if uc.deduper == nil || ev.EventID == "" {
		return
	}
	if err := uc.deduper.MarkProcessed(ctx, ev.Provider, ev.EventID, uc.cfg.ProcessedEventTTL); err != nil {
		uc.log.Warn().Err(err).Str("event_id", ev.EventID).Msg("marcar evento procesado")
	}
}

// notifyAsync envía correos sin bloquear la respuesta al proveedor; los fallos solo se registran.
func (uc *UseCase) notifyAsync(what string, send func(ctx context.Context) error) {
	if uc.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), uc.cfg.NotifyTimeout)
		defer cancel()
		if err := send(ctx); err != nil {
			uc.log.Error().Err(err).Msg("enviar " + what)
		}
	}()
}

func (uc *UseCase) publish(ctx context.Context, ev ports.CheckoutEvent) {
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.Publish(ctx, ev); err != nil {
		uc.log.Warn().Err(err).Str("event", ev.Type).Str("session_id", ev.SessionID).Msg("publicar evento")
	}
}
