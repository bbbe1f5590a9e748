// Package pdf genera el comprobante de pedido que se adjunta al correo de confirmación.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Tienda              │  N° Pedido + Fecha            │
//	│  ─────────────────────────────────────────────────────────  │
//	│  COMPRADOR: Nombre + email   │  ENVÍO: dirección             │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cant | Pieza | P.Unit | Subtotal                     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Subtotal / Envío / TOTAL PAGADO                    │
//	│  FOOTER: QR con la referencia del pedido + proveedor         │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
)

var (
	colorPrimary = &props.Color{Red: 38, Green: 70, Blue: 83}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ReceiptGenerator genera el comprobante con Maroto v2.
type ReceiptGenerator struct {
	storeName string
	printer   *message.Printer
}

// NewReceiptGenerator storeName aparece en el encabezado; lang define el formato de montos.
func NewReceiptGenerator(storeName string, lang language.Tag) *ReceiptGenerator {
	return &ReceiptGenerator{storeName: storeName, printer: message.NewPrinter(lang)}
}

// GenerateReceipt genera el PDF del pedido y devuelve sus bytes.
func (g *ReceiptGenerator) GenerateReceipt(_ context.Context, order *entity.Order) ([]byte, error) {
	if order == nil {
		return nil, fmt.Errorf("pdf: pedido nil")
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Comprobante de pedido "+shortID(order.ID), true).
		WithAuthor(g.storeName, true).
		Build()

	m := maroto.New(cfg)
	m.AddRows(g.headerRow(order))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(buyerRow(order))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(g.itemRows(order)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(g.totalsRow(order))
	m.AddRows(line.NewRow(3))
	m.AddRows(footerRow(order))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

func (g *ReceiptGenerator) headerRow(order *entity.Order) core.Row {
	date := order.CreatedAt
	if order.PaidAt != nil {
		date = *order.PaidAt
	}
	return row.New(18).Add(
		col.New(7).Add(
			text.New(g.storeName, props.Text{Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1}),
			text.New("Comprobante de compra", props.Text{Size: 9, Top: 9, Color: colorGray}),
		),
		col.New(5).Add(
			text.New("PEDIDO", props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1}),
			text.New(shortID(order.ID), props.Text{Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7}),
			text.New("Fecha: "+date.Format("02/01/2006"), props.Text{Size: 8, Align: align.Right, Top: 14, Color: colorGray}),
		),
	)
}

func buyerRow(order *entity.Order) core.Row {
	shipping := "Sin envío"
	if sh := order.Shipping; sh != nil {
		parts := []string{sh.Line1, sh.Line2, sh.City, sh.Region, sh.PostalCode, sh.Country}
		shipping = joinNonEmpty(parts, ", ")
	}
	return row.New(16).Add(
		col.New(6).Add(
			text.New("COMPRADOR", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(nonEmpty(order.Customer.Name, "—"), props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
			text.New(nonEmpty(order.Customer.Email, "—"), props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
		col.New(6).Add(
			text.New("ENVÍO", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(shipping, props.Text{Size: 8, Top: 6, Color: colorGray}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cant.", 1, align.Center),
		h("Pieza", 6, align.Left),
		h("Precio Unit.", 2, align.Right),
		h("Subtotal", 3, align.Right),
	)
}

func (g *ReceiptGenerator) itemRows(order *entity.Order) []core.Row {
	rows := make([]core.Row, 0, len(order.Items))
	for _, it := range order.Items {
		rows = append(rows, row.New(7).Add(
			col.New(1).Add(text.New(fmt.Sprint(it.Quantity), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(6).Add(text.New(it.Name, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(2).Add(text.New(g.formatMoney(it.UnitPrice, order.Currency), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(3).Add(text.New(g.formatMoney(it.Subtotal, order.Currency), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return rows
}

func (g *ReceiptGenerator) totalsRow(order *entity.Order) core.Row {
	label := func(s string, size float64) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: size, Align: align.Right, Right: 2})
	}
	value := func(s string, size float64) core.Component {
		return text.New(s, props.Text{Size: size, Align: align.Right, Right: 1})
	}
	return row.New(22).Add(
		col.New(6),
		col.New(3).Add(
			label("Subtotal:", 9),
			label("Envío:", 9),
			label("TOTAL PAGADO:", 10),
		),
		col.New(3).Add(
			value(g.formatMoney(order.Subtotal, order.Currency), 9),
			value(g.formatMoney(order.ShippingTotal, order.Currency), 9),
			value(g.formatMoney(order.Total, order.Currency), 10),
		),
	)
}

func footerRow(order *entity.Order) core.Row {
	return row.New(36).Add(
		col.New(3).Add(code.NewQr(order.ID, props.Rect{Percent: 95, Center: true})),
		col.New(9).Add(
			text.New("Referencia de pago: "+nonEmpty(order.PaymentRef, "—"), props.Text{Size: 8, Top: 4, Left: 3, Color: colorGray}),
			text.New("Pagado con "+order.Provider, props.Text{Size: 8, Top: 10, Left: 3, Color: colorGray}),
			text.New("Conserve este comprobante para cambios y devoluciones.", props.Text{Size: 7, Top: 20, Left: 3, Color: colorGray}),
		),
	)
}

// formatMoney formatea el monto con el código ISO de la moneda ("NZD 12.50").
// Si la moneda no es ISO válida se muestra el decimal tal cual.
func (g *ReceiptGenerator) formatMoney(amount decimal.Decimal, code string) string {
	unit, err := currency.ParseISO(strings.ToUpper(code))
	if err != nil {
		return amount.StringFixed(2) + " " + strings.ToUpper(code)
	}
	return g.printer.Sprint(currency.ISO(unit.Amount(amount.InexactFloat64())))
}

func shortID(id string) string {
	if len(id) > 8 {
		return strings.ToUpper(id[:8])
	}
	return strings.ToUpper(id)
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func joinNonEmpty(parts []string, sep string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
