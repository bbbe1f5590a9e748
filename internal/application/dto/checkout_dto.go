package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CheckoutItemRequest línea del carrito. UnitPrice es el precio que vio el comprador; se valida contra el catálogo.
type CheckoutItemRequest struct {
	PieceID   string          `json:"piece_id"`
	VariantID string          `json:"variant_id,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CustomerRequest datos de contacto del comprador.
type CustomerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CreateCheckoutRequest body para POST /api/checkout/{provider}/create.
type CreateCheckoutRequest struct {
	Items    []CheckoutItemRequest `json:"items"`
	Customer CustomerRequest       `json:"customer"`
}

// CheckoutSessionResponse respuesta de creación de checkout.
type CheckoutSessionResponse struct {
	Provider             string    `json:"provider"`
	ProviderSessionID    string    `json:"provider_session_id"`
	RedirectURL          string    `json:"redirect_url"`
	ReservationSessionID string    `json:"reservation_session_id"`
	ExpiresAt            time.Time `json:"expires_at"`
}

// CancelCheckoutRequest body para POST /api/checkout/{provider}/cancel.
type CancelCheckoutRequest struct {
	ReservationSessionID string `json:"reservation_session_id"`
}

// CancelCheckoutResponse resultado de la cancelación.
type CancelCheckoutResponse struct {
	ReservationSessionID string `json:"reservation_session_id"`
	Released             bool   `json:"released"`
}

// CaptureRequest body para POST /api/checkout/paypal/capture (id de la orden aprobada).
type CaptureRequest struct {
	ProviderSessionID string `json:"provider_session_id"`
}

// SettlementResponse resultado de procesar un evento de pago.
type SettlementResponse struct {
	Outcome string `json:"outcome"` // settled | duplicate | released | anomaly | ignored
	OrderID string `json:"order_id,omitempty"`
}
