package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/refund"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/jhoicas/storefront-checkout/internal/application/ports"
	"github.com/jhoicas/storefront-checkout/internal/domain"
	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
	"github.com/jhoicas/storefront-checkout/pkg/logger"
)

var (
	_ ports.PaymentProvider = (*Stripe)(nil)
	_ ports.WebhookParser   = (*Stripe)(nil)
)

const (
	// Stripe exige que una Checkout Session viva al menos 30 minutos.
	stripeMinSessionTTL    = 30*time.Minute + time.Minute
	stripeDefaultTolerance = 5 * time.Minute
	stripeMetaTenant       = "tenant_id"
	stripeMetaReservation  = "reservation_session_id"
	stripeMetaPiece        = "piece_id"
	stripeMetaVariant      = "variant_id"
)

// StripeConfig credenciales y endpoint.
type StripeConfig struct {
	SecretKey        string
	WebhookSecret    string
	APIBase          string // vacío: api.stripe.com
	WebhookTolerance time.Duration
	// MaxNetworkRetries reintentos del SDK ante errores de red o 5xx, dentro de una llamada del breaker.
	MaxNetworkRetries int64
	Breaker           BreakerConfig
	HTTPClient        *http.Client
}

// Stripe adaptador de tarjeta sobre Checkout Sessions (stripe-go).
type Stripe struct {
	cfg      StripeConfig
	sessions session.Client
	refunds  refund.Client
	breaker  *breaker
	now      func() time.Time
}

// NewStripe construye el adaptador con un backend propio (no toca el backend global del SDK).
func NewStripe(cfg StripeConfig, log *logger.Logger) *Stripe {
	if cfg.WebhookTolerance <= 0 {
		cfg.WebhookTolerance = stripeDefaultTolerance
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 20 * time.Second}
	}
	l := log.Component("payment." + entity.ProviderStripe)

	bc := &stripe.BackendConfig{
		HTTPClient:        cfg.HTTPClient,
		LeveledLogger:     stripeLogger{log: l},
		MaxNetworkRetries: stripe.Int64(cfg.MaxNetworkRetries),
		EnableTelemetry:   stripe.Bool(false),
	}
	if cfg.APIBase != "" {
		bc.URL = stripe.String(strings.TrimRight(cfg.APIBase, "/"))
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, bc)

	return &Stripe{
		cfg:      cfg,
		sessions: session.Client{B: backend, Key: cfg.SecretKey},
		refunds:  refund.Client{B: backend, Key: cfg.SecretKey},
		breaker:  newBreaker(entity.ProviderStripe, cfg.Breaker, l),
		now:      time.Now,
	}
}

// Name nombre del proveedor.
func (s *Stripe) Name() string { return entity.ProviderStripe }

// CreateSession crea una Checkout Session en modo pago. Los IDs de tenant y de reserva viajan
// en metadata; el vencimiento se alinea con la reserva (mínimo permitido por Stripe).
func (s *Stripe) CreateSession(ctx context.Context, in ports.ProviderSessionInput) (*ports.ProviderSession, error) {
	if s.cfg.SecretKey == "" {
		return nil, fmt.Errorf("stripe: STRIPE_SECRET_KEY no configurado")
	}
	expiresAt := in.ExpiresAt
	if minExp := s.now().Add(stripeMinSessionTTL); expiresAt.Before(minExp) {
		expiresAt = minExp
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(in.SuccessURL),
		CancelURL:         stripe.String(in.CancelURL),
		ClientReferenceID: stripe.String(in.ReservationSessionID),
		ExpiresAt:         stripe.Int64(expiresAt.Unix()),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{},
	}
	params.Context = ctx
	params.SetIdempotencyKey(in.ReservationSessionID)
	params.AddMetadata(stripeMetaTenant, in.TenantID)
	params.AddMetadata(stripeMetaReservation, in.ReservationSessionID)
	params.PaymentIntentData.AddMetadata(stripeMetaTenant, in.TenantID)
	params.PaymentIntentData.AddMetadata(stripeMetaReservation, in.ReservationSessionID)
	if in.Customer.Email != "" {
		params.CustomerEmail = stripe.String(in.Customer.Email)
	}

	currency := strings.ToLower(in.Currency)
	for _, it := range in.Items {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{Name: stripe.String(it.Name)}
		product.AddMetadata(stripeMetaPiece, it.PieceID)
		if it.VariantID != "" {
			product.AddMetadata(stripeMetaVariant, it.VariantID)
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(it.Quantity)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(currency),
				UnitAmount:  stripe.Int64(toMinorUnits(it.UnitPrice, currency)),
				ProductData: product,
			},
		})
	}

	sess, err := run(s.breaker, func() (*stripe.CheckoutSession, error) {
		return s.sessions.New(params)
	})
	if err != nil {
		return nil, fmt.Errorf("stripe: crear checkout session: %w", err)
	}
	return &ports.ProviderSession{ID: sess.ID, RedirectURL: sess.URL}, nil
}

// Refund reembolsa el payment intent completo.
func (s *Stripe) Refund(ctx context.Context, paymentRef string) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentRef),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.Context = ctx
	params.SetIdempotencyKey("refund-" + paymentRef)

	if _, err := run(s.breaker, func() (*stripe.Refund, error) {
		return s.refunds.New(params)
	}); err != nil {
		return fmt.Errorf("stripe: reembolsar %s: %w", paymentRef, err)
	}
	return nil
}

// ParseWebhook verifica Stripe-Signature y normaliza el evento. Para pagos completados trae
// las líneas cobradas desde la API (el pedido se arma con ellas).
func (s *Stripe) ParseWebhook(ctx context.Context, payload []byte, headers http.Header) (*entity.PaymentEvent, error) {
	if s.cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("%w: STRIPE_WEBHOOK_SECRET no configurado", domain.ErrInvalidSignature)
	}
	evt, err := webhook.ConstructEventWithOptions(payload, headers.Get("Stripe-Signature"), s.cfg.WebhookSecret,
		webhook.ConstructEventOptions{
			Tolerance: s.cfg.WebhookTolerance,
			// La versión de la API la fija la cuenta; el adaptador solo lee campos estables de la sesión.
			IgnoreAPIVersionMismatch: true,
		})
	if err != nil {
		if isSignatureError(err) {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
		}
		return nil, fmt.Errorf("%w: evento stripe ilegible: %v", domain.ErrInvalidInput, err)
	}

	out := &entity.PaymentEvent{EventID: evt.ID, Provider: entity.ProviderStripe, Type: string(evt.Type), Kind: entity.PaymentIgnored}
	if !strings.HasPrefix(string(evt.Type), "checkout.session.") || evt.Data == nil {
		return out, nil
	}
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(evt.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("%w: checkout session ilegible: %v", domain.ErrInvalidInput, err)
	}
	fillFromSession(out, &sess)

	switch evt.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		// Con métodos asíncronos el cobro llega después en async_payment_succeeded.
		if sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid ||
			sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired {
			out.Kind = entity.PaymentSucceeded
		}
	case stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		out.Kind = entity.PaymentSucceeded
	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		out.Kind = entity.PaymentFailed
	case stripe.EventTypeCheckoutSessionExpired:
		out.Kind = entity.PaymentExpired
	}

	if out.Kind == entity.PaymentSucceeded {
		items, err := s.lineItems(ctx, sess.ID, out.Currency)
		if err != nil {
			return nil, err
		}
		out.LineItems = items
	}
	return out, nil
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}

func fillFromSession(out *entity.PaymentEvent, sess *stripe.CheckoutSession) {
	out.ProviderSessionID = sess.ID
	if sess.PaymentIntent != nil {
		out.PaymentRef = sess.PaymentIntent.ID
	}
	out.Currency = string(sess.Currency)
	out.AmountTotal = fromMinorUnits(sess.AmountTotal, out.Currency)
	if sess.TotalDetails != nil {
		out.ShippingTotal = fromMinorUnits(sess.TotalDetails.AmountShipping, out.Currency)
	}
	out.TenantID = sess.Metadata[stripeMetaTenant]
	out.ReservationSessionID = sess.Metadata[stripeMetaReservation]
	if out.ReservationSessionID == "" {
		out.ReservationSessionID = sess.ClientReferenceID
	}
	if sess.CustomerDetails != nil {
		out.Customer = entity.Customer{Name: sess.CustomerDetails.Name, Email: sess.CustomerDetails.Email}
	}
	if sh := sess.ShippingDetails; sh != nil && sh.Address != nil {
		out.Shipping = &entity.ShippingAddress{
			Name:       sh.Name,
			Line1:      sh.Address.Line1,
			Line2:      sh.Address.Line2,
			City:       sh.Address.City,
			Region:     sh.Address.State,
			PostalCode: sh.Address.PostalCode,
			Country:    sh.Address.Country,
		}
	}
}

func (s *Stripe) lineItems(ctx context.Context, sessionID, currency string) ([]entity.ProviderLineItem, error) {
	params := &stripe.CheckoutSessionListLineItemsParams{Session: stripe.String(sessionID)}
	params.Context = ctx
	params.Limit = stripe.Int64(100)
	params.AddExpand("data.price.product")

	return run(s.breaker, func() ([]entity.ProviderLineItem, error) {
		var out []entity.ProviderLineItem
		it := s.sessions.ListLineItems(params)
		for it.Next() {
			li := it.LineItem()
			item := entity.ProviderLineItem{Name: li.Description, Quantity: int(li.Quantity)}
			if li.Price != nil {
				item.UnitPrice = fromMinorUnits(li.Price.UnitAmount, currency)
				if p := li.Price.Product; p != nil {
					if p.Name != "" {
						item.Name = p.Name
					}
					item.PieceID = p.Metadata[stripeMetaPiece]
					item.VariantID = p.Metadata[stripeMetaVariant]
				}
			}
			out = append(out, item)
		}
		if err := it.Err(); err != nil {
			return nil, fmt.Errorf("stripe: líneas de %s: %w", sessionID, err)
		}
		return out, nil
	})
}

// stripeLogger conecta el log del SDK con el logger de la aplicación.
type stripeLogger struct {
	log *logger.Logger
}

func (l stripeLogger) Debugf(format string, v ...interface{}) { l.log.Debug().Msgf(format, v...) }
func (l stripeLogger) Infof(format string, v ...interface{})  { l.log.Debug().Msgf(format, v...) }
func (l stripeLogger) Warnf(format string, v ...interface{})  { l.log.Warn().Msgf(format, v...) }
func (l stripeLogger) Errorf(format string, v ...interface{}) { l.log.Warn().Msgf(format, v...) }
