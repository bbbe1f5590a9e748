package notify

import (
	"context"

	"github.com/jhoicas/storefront-checkout/internal/application/ports"
	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
	"github.com/jhoicas/storefront-checkout/pkg/logger"
)

var _ ports.Notifier = (*LogNotifier)(nil)

// LogNotifier se usa cuando SMTP no está configurado.
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log.Component("notify")}
}

func (n *LogNotifier) SendOrderConfirmation(_ context.Context, order *entity.Order) error {
	n.log.Info().Str("order_id", order.ID).Str("email", order.Customer.Email).Msg("confirmación de pedido (SMTP deshabilitado)")
	return nil
}

func (n *LogNotifier) SendRefundNotice(_ context.Context, customer entity.Customer, a *entity.SettlementAnomaly) error {
	n.log.Info().Str("anomaly_id", a.ID).Str("email", customer.Email).Str("refund_status", a.RefundStatus).Msg("aviso de reembolso (SMTP deshabilitado)")
	return nil
}
