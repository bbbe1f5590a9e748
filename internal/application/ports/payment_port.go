package ports

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
)

// CheckoutLine línea ya validada contra el catálogo que se envía al proveedor.
// Los IDs viajan como metadata para reconstruir el pedido desde el proveedor.
type CheckoutLine struct {
	PieceID   string
	VariantID string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// ProviderSessionInput datos para crear la sesión de pago.
type ProviderSessionInput struct {
	TenantID             string
	ReservationSessionID string
	Currency             string
	Items                []CheckoutLine
	Customer             entity.Customer
	ExpiresAt            time.Time // alineado con el vencimiento de la reserva
	SuccessURL           string
	CancelURL            string
}

// ProviderSession handle devuelto por el proveedor para redirigir al comprador.
type ProviderSession struct {
	ID          string
	RedirectURL string
}

// PaymentProvider puerto común a los proveedores (tarjeta y billetera).
type PaymentProvider interface {
	Name() string
	CreateSession(ctx context.Context, in ProviderSessionInput) (*ProviderSession, error)
	// Refund anula/reembolsa un cobro cuya reserva ya no existe.
	Refund(ctx context.Context, paymentRef string) error
}

// WebhookParser lo implementan los proveedores que notifican por webhook firmado. headers son los
// de la petición entrante (cada proveedor firma con cabeceras distintas).
type WebhookParser interface {
	ParseWebhook(ctx context.Context, payload []byte, headers http.Header) (*entity.PaymentEvent, error)
}

// Capturer lo implementan los proveedores cuyo cobro se confirma capturando desde el servidor.
type Capturer interface {
	// Lookup lee la sesión del proveedor sin mover dinero. Kind es PaymentSucceeded si ya está capturada.
	Lookup(ctx context.Context, providerSessionID string) (*entity.PaymentEvent, error)
	Capture(ctx context.Context, providerSessionID string) (*entity.PaymentEvent, error)
}
