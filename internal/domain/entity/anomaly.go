package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Motivos de anomalía de liquidación.
const (
	AnomalyReservationNotHeld = "reservation_not_held"
	AnomalyMissingMetadata    = "missing_metadata"
	// AnomalySettlementFailed cobro capturado cuya liquidación no se pudo persistir.
	AnomalySettlementFailed = "settlement_failed"
)

// Estados del reembolso asociado a la anomalía.
const (
	RefundPending   = "pending"
	RefundRequested = "requested"
	RefundFailed    = "failed"
	RefundSkipped   = "skipped"
)

// SettlementAnomaly pago confirmado que no pudo convertirse en pedido (reserva liberada o desconocida).
// Queda registrado para conciliación manual. Hay a lo sumo una por sesión del proveedor.
type SettlementAnomaly struct {
	ID                   string
	TenantID             string
	Provider             string
	ProviderSessionID    string
	ReservationSessionID string
	PaymentRef           string
	Currency             string
	Amount               decimal.Decimal
	Reason               string
	RefundStatus         string
	CreatedAt            time.Time
	ResolvedAt           *time.Time
}
