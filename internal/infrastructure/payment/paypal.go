package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/plutov/paypal/v4"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/storefront-checkout/internal/application/ports"
	"github.com/jhoicas/storefront-checkout/internal/domain"
	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
	"github.com/jhoicas/storefront-checkout/pkg/logger"
)

var (
	_ ports.PaymentProvider = (*PayPal)(nil)
	_ ports.Capturer        = (*PayPal)(nil)
	_ ports.WebhookParser   = (*PayPal)(nil)
)

const (
	paypalIssueAlreadyCaptured = "ORDER_ALREADY_CAPTURED"
	paypalCaptureCompleted     = "PAYMENT.CAPTURE.COMPLETED"
	paypalCaptureDenied        = "PAYMENT.CAPTURE.DENIED"
)

// PayPalConfig credenciales (client credentials), endpoint y webhook.
type PayPalConfig struct {
	ClientID     string
	ClientSecret string
	APIBase      string
	// WebhookID identificador del webhook registrado en PayPal; sin él se rechazan todas las notificaciones.
	WebhookID string
	Breaker   BreakerConfig
	Timeout   time.Duration
}

// PayPal adaptador billetera sobre Orders v2: el comprador aprueba en PayPal y el servidor captura.
// PAYMENT.CAPTURE.COMPLETED llega además por webhook y liquida capturas que el servidor no llegó a registrar.
type PayPal struct {
	cfg     PayPalConfig
	client  *paypal.Client
	breaker *breaker
	log     *logger.Logger
}

// NewPayPal construye el adaptador. El SDK obtiene y renueva el token OAuth2.
func NewPayPal(cfg PayPalConfig, log *logger.Logger) (*PayPal, error) {
	if cfg.APIBase == "" {
		cfg.APIBase = paypal.APIBaseSandBox
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	cfg.APIBase = strings.TrimRight(cfg.APIBase, "/")

	client, err := paypal.NewClient(cfg.ClientID, cfg.ClientSecret, cfg.APIBase)
	if err != nil {
		return nil, fmt.Errorf("paypal: crear cliente: %w", err)
	}
	client.SetHTTPClient(&http.Client{Timeout: cfg.Timeout})

	l := log.Component("payment." + entity.ProviderPayPal)
	return &PayPal{
		cfg:     cfg,
		client:  client,
		breaker: newBreaker(entity.ProviderPayPal, cfg.Breaker, l),
		log:     l,
	}, nil
}

// Name nombre del proveedor.
func (p *PayPal) Name() string { return entity.ProviderPayPal }

// paypalOrder vista de la orden que usa el adaptador (custom_id, items y capturas).
type paypalOrder struct {
	ID            string               `json:"id"`
	Status        string               `json:"status"`
	PurchaseUnits []paypalPurchaseUnit `json:"purchase_units"`
	Payer         *struct {
		Name *struct {
			GivenName string `json:"given_name"`
			Surname   string `json:"surname"`
		} `json:"name"`
		Email string `json:"email_address"`
	} `json:"payer,omitempty"`
}

type paypalPurchaseUnit struct {
	ReferenceID string `json:"reference_id"`
	CustomID    string `json:"custom_id"`
	Amount      struct {
		paypal.Money
		Breakdown *struct {
			Shipping *paypal.Money `json:"shipping"`
		} `json:"breakdown"`
	} `json:"amount"`
	Items    []paypal.Item `json:"items"`
	Shipping *struct {
		Name *struct {
			FullName string `json:"full_name"`
		} `json:"name"`
		Address *struct {
			Line1      string `json:"address_line_1"`
			Line2      string `json:"address_line_2"`
			City       string `json:"admin_area_2"`
			Region     string `json:"admin_area_1"`
			PostalCode string `json:"postal_code"`
			Country    string `json:"country_code"`
		} `json:"address"`
	} `json:"shipping"`
	Payments *struct {
		Captures []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"captures"`
	} `json:"payments"`
}

// paypalWebhookEvent notificación de PayPal; resource es la captura.
type paypalWebhookEvent struct {
	ID        string `json:"id"`
	EventType string `json:"event_type"`
	Resource  struct {
		ID                string `json:"id"`
		Status            string `json:"status"`
		CustomID          string `json:"custom_id"`
		SupplementaryData struct {
			RelatedIDs struct {
				OrderID string `json:"order_id"`
			} `json:"related_ids"`
		} `json:"supplementary_data"`
	} `json:"resource"`
}

// CreateSession crea una orden intent=CAPTURE. custom_id lleva "tenant:reserva" de vuelta en la captura.
func (p *PayPal) CreateSession(ctx context.Context, in ports.ProviderSessionInput) (*ports.ProviderSession, error) {
	currency := strings.ToUpper(in.Currency)
	unit := paypal.PurchaseUnitRequest{
		ReferenceID: in.ReservationSessionID,
		CustomID:    encodeCustomID(in.TenantID, in.ReservationSessionID),
	}
	total := decimal.Zero
	for _, it := range in.Items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
		unit.Items = append(unit.Items, paypal.Item{
			Name:       truncate(it.Name, 127),
			Quantity:   strconv.Itoa(it.Quantity),
			UnitAmount: &paypal.Money{Currency: currency, Value: formatAmount(it.UnitPrice, currency)},
			SKU:        encodeSKU(it.PieceID, it.VariantID),
		})
	}
	value := formatAmount(total, currency)
	unit.Amount = &paypal.PurchaseUnitAmount{
		Currency:  currency,
		Value:     value,
		Breakdown: &paypal.PurchaseUnitAmountBreakdown{ItemTotal: &paypal.Money{Currency: currency, Value: value}},
	}
	appCtx := &paypal.ApplicationContext{
		ReturnURL:  in.SuccessURL,
		CancelURL:  in.CancelURL,
		UserAction: paypal.UserActionPayNow,
	}

	order, err := run(p.breaker, func() (*paypal.Order, error) {
		return p.client.CreateOrder(ctx, paypal.OrderIntentCapture, []paypal.PurchaseUnitRequest{unit}, nil, appCtx)
	})
	if err != nil {
		return nil, fmt.Errorf("paypal: crear orden: %w", err)
	}
	redirect := ""
	for _, l := range order.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			redirect = l.Href
			break
		}
	}
	return &ports.ProviderSession{ID: order.ID, RedirectURL: redirect}, nil
}

// Lookup lee la orden sin capturar.
func (p *PayPal) Lookup(ctx context.Context, orderID string) (*entity.PaymentEvent, error) {
	order, err := p.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return orderToEvent(order), nil
}

// Capture captura la orden aprobada y devuelve el evento normalizado. Si ya estaba capturada
// (reintento) lee la orden y devuelve el mismo resultado.
func (p *PayPal) Capture(ctx context.Context, orderID string) (*entity.PaymentEvent, error) {
	_, err := run(p.breaker, func() (*paypal.CaptureOrderResponse, error) {
		return p.client.CaptureOrder(ctx, orderID, paypal.CaptureOrderRequest{})
	})
	if err != nil && paypalIssue(err) != paypalIssueAlreadyCaptured {
		return nil, fmt.Errorf("paypal: capturar %s: %w", orderID, err)
	}
	// La respuesta de captura no siempre trae items ni custom_id: se relee la orden completa.
	return p.Lookup(ctx, orderID)
}

// Refund reembolsa la captura completa.
func (p *PayPal) Refund(ctx context.Context, captureID string) error {
	if _, err := run(p.breaker, func() (*paypal.RefundResponse, error) {
		return p.client.RefundCapture(ctx, captureID, paypal.RefundCaptureRequest{})
	}); err != nil {
		return fmt.Errorf("paypal: reembolsar %s: %w", captureID, err)
	}
	return nil
}

// ParseWebhook verifica la notificación contra PayPal (verify-webhook-signature) y normaliza las
// capturas completadas o denegadas; el resto de eventos se ignora.
func (p *PayPal) ParseWebhook(ctx context.Context, payload []byte, headers http.Header) (*entity.PaymentEvent, error) {
	if p.cfg.WebhookID == "" {
		return nil, fmt.Errorf("%w: PAYPAL_WEBHOOK_ID no configurado", domain.ErrInvalidSignature)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("paypal: armar verificación: %w", err)
	}
	req.Header = headers.Clone()

	verified, err := run(p.breaker, func() (*paypal.VerifyWebhookResponse, error) {
		return p.client.VerifyWebhookSignature(ctx, req, p.cfg.WebhookID)
	})
	if err != nil {
		return nil, fmt.Errorf("paypal: verificar webhook: %w", err)
	}
	if verified.VerificationStatus != "SUCCESS" {
		return nil, fmt.Errorf("%w: verificación %q", domain.ErrInvalidSignature, verified.VerificationStatus)
	}

	var evt paypalWebhookEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("%w: evento paypal ilegible: %v", domain.ErrInvalidInput, err)
	}
	out := &entity.PaymentEvent{EventID: evt.ID, Provider: entity.ProviderPayPal, Type: evt.EventType, Kind: entity.PaymentIgnored}
	res := evt.Resource
	orderID := res.SupplementaryData.RelatedIDs.OrderID

	switch evt.EventType {
	case paypalCaptureCompleted:
		if orderID == "" {
			return nil, fmt.Errorf("%w: captura %s sin order_id", domain.ErrInvalidInput, res.ID)
		}
		// El webhook no trae items ni envío: se lee la orden.
		order, err := p.getOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		ev := orderToEvent(order)
		ev.EventID, ev.Type = evt.ID, evt.EventType
		ev.Kind = entity.PaymentSucceeded
		ev.PaymentRef = res.ID
		return ev, nil
	case paypalCaptureDenied:
		out.Kind = entity.PaymentFailed
		out.ProviderSessionID = orderID
		out.PaymentRef = res.ID
		out.TenantID, out.ReservationSessionID = decodeCustomID(res.CustomID)
	}
	return out, nil
}

// getOrder GET /v2/checkout/orders/{id}. Se decodifica a paypalOrder porque el tipo del SDK no
// expone todo lo que el pedido necesita.
func (p *PayPal) getOrder(ctx context.Context, orderID string) (*paypalOrder, error) {
	return run(p.breaker, func() (*paypalOrder, error) {
		req, err := p.client.NewRequest(ctx, http.MethodGet,
			fmt.Sprintf("%s/v2/checkout/orders/%s", p.client.APIBase, url.PathEscape(orderID)), nil)
		if err != nil {
			return nil, fmt.Errorf("paypal: armar request: %w", err)
		}
		var order paypalOrder
		if err := p.client.SendWithAuth(req, &order); err != nil {
			return nil, fmt.Errorf("paypal: leer orden %s: %w", orderID, err)
		}
		return &order, nil
	})
}

// paypalIssue primer issue del error de PayPal ("ORDER_ALREADY_CAPTURED", ...).
func paypalIssue(err error) string {
	var perr *paypal.ErrorResponse
	if !errors.As(err, &perr) {
		return ""
	}
	if len(perr.Details) > 0 {
		return perr.Details[0].Issue
	}
	return perr.Name
}

func orderToEvent(order *paypalOrder) *entity.PaymentEvent {
	ev := &entity.PaymentEvent{
		EventID:           order.ID,
		Provider:          entity.ProviderPayPal,
		Type:              "order." + strings.ToLower(order.Status),
		Kind:              entity.PaymentIgnored,
		ProviderSessionID: order.ID,
	}
	if order.Payer != nil {
		ev.Customer.Email = order.Payer.Email
		if order.Payer.Name != nil {
			ev.Customer.Name = strings.TrimSpace(order.Payer.Name.GivenName + " " + order.Payer.Name.Surname)
		}
	}
	if len(order.PurchaseUnits) == 0 {
		return ev
	}
	pu := order.PurchaseUnits[0]
	ev.TenantID, ev.ReservationSessionID = decodeCustomID(pu.CustomID)
	if ev.ReservationSessionID == "" {
		ev.ReservationSessionID = pu.ReferenceID
	}
	ev.Currency = strings.ToLower(pu.Amount.Currency)
	ev.AmountTotal, _ = decimal.NewFromString(pu.Amount.Value)
	if b := pu.Amount.Breakdown; b != nil && b.Shipping != nil {
		ev.ShippingTotal, _ = decimal.NewFromString(b.Shipping.Value)
	}
	for _, it := range pu.Items {
		qty, _ := strconv.Atoi(it.Quantity)
		var price decimal.Decimal
		if it.UnitAmount != nil {
			price, _ = decimal.NewFromString(it.UnitAmount.Value)
		}
		piece, variant := decodeSKU(it.SKU)
		ev.LineItems = append(ev.LineItems, entity.ProviderLineItem{
			PieceID: piece, VariantID: variant, Name: it.Name, Quantity: qty, UnitPrice: price,
		})
	}
	if sh := pu.Shipping; sh != nil && sh.Address != nil {
		ev.Shipping = &entity.ShippingAddress{
			Line1:      sh.Address.Line1,
			Line2:      sh.Address.Line2,
			City:       sh.Address.City,
			Region:     sh.Address.Region,
			PostalCode: sh.Address.PostalCode,
			Country:    sh.Address.Country,
		}
		if sh.Name != nil {
			ev.Shipping.Name = sh.Name.FullName
		}
	}
	if pu.Payments != nil && len(pu.Payments.Captures) > 0 {
		c := pu.Payments.Captures[0]
		ev.PaymentRef = c.ID
		ev.EventID = c.ID
		switch c.Status {
		case "COMPLETED":
			ev.Kind = entity.PaymentSucceeded
		case "DECLINED", "FAILED":
			ev.Kind = entity.PaymentFailed
		}
	}
	return ev
}

func encodeCustomID(tenantID, sessionID string) string { return tenantID + ":" + sessionID }

func decodeCustomID(s string) (tenantID, sessionID string) {
	tenantID, sessionID, _ = strings.Cut(s, ":")
	return tenantID, sessionID
}

func encodeSKU(pieceID, variantID string) string {
	if variantID == "" {
		return pieceID
	}
	return pieceID + "|" + variantID
}

func decodeSKU(s string) (pieceID, variantID string) {
	pieceID, variantID, _ = strings.Cut(s, "|")
	return pieceID, variantID
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
