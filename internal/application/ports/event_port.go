package ports

import (
	"context"
	"time"
)

// Tipos de evento del stream de checkout.
const (
	EventReservationHeld     = "reservation.held"
	EventReservationReleased = "reservation.released"
	EventReservationExpired  = "reservation.expired"
	EventOrderSettled        = "order.settled"
	EventSettlementAnomaly   = "settlement.anomaly"
)

// CheckoutEvent evento de análisis (abandono vs pago fallido, ventas, anomalías).
type CheckoutEvent struct {
	Type       string            `json:"type"`
	TenantID   string            `json:"tenant_id"`
	SessionID  string            `json:"session_id"`
	Provider   string            `json:"provider,omitempty"`
	OrderID    string            `json:"order_id,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// EventPublisher publica eventos de checkout. Best-effort: un fallo no revierte la operación.
type EventPublisher interface {
	Publish(ctx context.Context, ev CheckoutEvent) error
}
