package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de un pedido.
const (
	OrderStatusPending = "pending"
	OrderStatusPaid    = "paid"
)

// Order venta finalizada. Única por (TenantID, Provider, ProviderSessionID).
type Order struct {
	ID                   string
	TenantID             string
	Provider             string
	ProviderSessionID    string
	ReservationSessionID string
	PaymentRef           string // payment intent / capture id para reembolsos
	Status               string
	Currency             string
	Subtotal             decimal.Decimal
	ShippingTotal        decimal.Decimal
	Total                decimal.Decimal
	Customer             Customer
	Shipping             *ShippingAddress
	Items                []OrderItem
	CreatedAt            time.Time
	PaidAt               *time.Time
}

// OrderItem línea del pedido tomada del proveedor de pago (no del carrito del cliente).
type OrderItem struct {
	PieceID   string          `json:"piece_id"`
	VariantID string          `json:"variant_id,omitempty"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Customer datos del comprador.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ShippingAddress dirección de envío reportada por el proveedor.
type ShippingAddress struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}
