package ports

import (
	"context"

	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
)

// Notifier envío de correos al comprador. Fire-and-forget: los fallos se registran y nunca
// bloquean la liquidación.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, order *entity.Order) error
	SendRefundNotice(ctx context.Context, customer entity.Customer, anomaly *entity.SettlementAnomaly) error
}
