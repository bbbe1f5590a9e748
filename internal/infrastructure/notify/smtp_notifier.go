// Package notify correos al comprador: confirmación de pedido (con comprobante PDF) y aviso de reembolso.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"

	"gopkg.in/gomail.v2"

	"github.com/jhoicas/storefront-checkout/internal/application/ports"
	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
	"github.com/jhoicas/storefront-checkout/pkg/config"
	"github.com/jhoicas/storefront-checkout/pkg/logger"
)

var _ ports.Notifier = (*SMTPNotifier)(nil)

// ReceiptRenderer genera el PDF adjunto a la confirmación.
type ReceiptRenderer interface {
	GenerateReceipt(ctx context.Context, order *entity.Order) ([]byte, error)
}

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPNotifier envía los correos con gomail.
type SMTPNotifier struct {
	from     string
	dialer   sender
	receipts ReceiptRenderer
	log      *logger.Logger
}

// NewSMTPNotifier receipts es opcional: sin él la confirmación va sin adjunto.
func NewSMTPNotifier(cfg config.SMTPConfig, receipts ReceiptRenderer, log *logger.Logger) *SMTPNotifier {
	return &SMTPNotifier{
		from:     cfg.From,
		dialer:   gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		receipts: receipts,
		log:      log.Component("notify.smtp"),
	}
}

var (
	confirmationTmpl = template.Must(template.New("confirmation").Parse(`<p>Hola {{.Customer.Name}},</p>
<p>Recibimos tu pago. Tu pedido <strong>{{.ShortID}}</strong> está confirmado.</p>
<ul>{{range .Items}}<li>{{.Quantity}} × {{.Name}}</li>{{end}}</ul>
<p>Total: {{.Total}} {{.Currency}}</p>`))

	refundTmpl = template.Must(template.New("refund").Parse(`<p>Hola {{.Name}},</p>
<p>No pudimos completar tu pedido porque la reserva de las piezas venció antes de confirmar el pago.</p>
<p>{{if .Refunded}}Ya solicitamos el reembolso completo de {{.Amount}} {{.Currency}}; puede tardar unos días en verse reflejado.{{else}}Nuestro equipo revisará el cobro y te contactará para el reembolso.{{end}}</p>`))
)

// SendOrderConfirmation envía la confirmación con el comprobante adjunto.
func (n *SMTPNotifier) SendOrderConfirmation(ctx context.Context, order *entity.Order) error {
	if order.Customer.Email == "" {
		return fmt.Errorf("notify: pedido %s sin email del comprador", order.ID)
	}
	var body bytes.Buffer
	err := confirmationTmpl.Execute(&body, struct {
		*entity.Order
		ShortID string
		Total   string
	}{order, shortID(order.ID), order.Total.StringFixed(2)})
	if err != nil {
		return fmt.Errorf("notify: render confirmación: %w", err)
	}

	m := n.message(order.Customer.Email, "Pedido "+shortID(order.ID)+" confirmado", body.String())
	if n.receipts != nil {
		pdf, err := n.receipts.GenerateReceipt(ctx, order)
		if err != nil {
			n.log.Warn().Err(err).Str("order_id", order.ID).Msg("no se pudo generar el comprobante; se envía sin adjunto")
		} else {
			m.Attach("pedido-"+shortID(order.ID)+".pdf", gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(pdf)
				return err
			}))
		}
	}
	return n.send(ctx, m)
}

// SendRefundNotice avisa al comprador que su pago se reembolsa porque la reserva ya no existía.
func (n *SMTPNotifier) SendRefundNotice(ctx context.Context, customer entity.Customer, a *entity.SettlementAnomaly) error {
	if customer.Email == "" {
		return fmt.Errorf("notify: anomalía %s sin email del comprador", a.ID)
	}
	var body bytes.Buffer
	err := refundTmpl.Execute(&body, struct {
		Name     string
		Refunded bool
		Amount   string
		Currency string
	}{customer.Name, a.RefundStatus == entity.RefundRequested, a.Amount.StringFixed(2), a.Currency})
	if err != nil {
		return fmt.Errorf("notify: render aviso de reembolso: %w", err)
	}
	return n.send(ctx, n.message(customer.Email, "Tu pago será reembolsado", body.String()))
}

func (n *SMTPNotifier) message(to, subject, html string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", html)
	return m
}

// send gomail no acepta context: se respeta la cancelación previa al envío.
func (n *SMTPNotifier) send(ctx context.Context, m *gomail.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := n.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("notify: smtp: %w", err)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
