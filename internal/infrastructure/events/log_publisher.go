package events

import (
	"context"

	"github.com/jhoicas/storefront-checkout/internal/application/ports"
	"github.com/jhoicas/storefront-checkout/pkg/logger"
)

var _ ports.EventPublisher = (*LogPublisher)(nil)

// LogPublisher registra los eventos en el log cuando no hay brokers configurados.
type LogPublisher struct {
	log *logger.Logger
}

func NewLogPublisher(log *logger.Logger) *LogPublisher {
	return &LogPublisher{log: log.Component("events")}
}

func (p *LogPublisher) Publish(_ context.Context, ev ports.CheckoutEvent) error {
	e := p.log.Info().
		Str("type", ev.Type).
		Str("tenant_id", ev.TenantID).
		Str("session_id", ev.SessionID)
	if ev.Provider != "" {
		e = e.Str("provider", ev.Provider)
	}
	if ev.OrderID != "" {
		e = e.Str("order_id", ev.OrderID)
	}
	for k, v := range ev.Attributes {
		e = e.Str(k, v)
	}
	e.Msg("evento de checkout")
	return nil
}
