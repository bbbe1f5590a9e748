package entity

import "github.com/shopspring/decimal"

// Proveedores de pago soportados.
const (
	ProviderStripe = "stripe" // tarjeta
	ProviderPayPal = "paypal" // billetera
)

// PaymentEventKind resultado reportado por el proveedor.
type PaymentEventKind string

const (
	PaymentSucceeded PaymentEventKind = "succeeded"
	PaymentFailed    PaymentEventKind = "failed"
	PaymentExpired   PaymentEventKind = "expired"
	PaymentIgnored   PaymentEventKind = "ignored" // tipo de evento que no afecta reservas
)

// PaymentEvent evento asíncrono normalizado de un proveedor (webhook o captura).
// Los datos de pedido provienen del proveedor, nunca del carrito del cliente.
type PaymentEvent struct {
	EventID              string // id del evento en el proveedor (deduplicación rápida)
	Provider             string
	Kind                 PaymentEventKind
	Type                 string // tipo crudo del proveedor, para logs
	TenantID             string
	ProviderSessionID    string
	ReservationSessionID string
	PaymentRef           string
	Currency             string
	AmountTotal          decimal.Decimal
	ShippingTotal        decimal.Decimal
	Customer             Customer
	Shipping             *ShippingAddress
	LineItems            []ProviderLineItem
}

// ProviderLineItem línea tal como la cobró el proveedor.
type ProviderLineItem struct {
	PieceID   string
	VariantID string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}
