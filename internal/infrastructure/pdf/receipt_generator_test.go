package pdf

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
)

func sampleOrder() *entity.Order {
	paid := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return &entity.Order{
		ID:            "0f8fad5b-d9cb-469f-a165-70867728950e",
		TenantID:      "t1",
		Provider:      entity.ProviderStripe,
		PaymentRef:    "pi_123",
		Currency:      "nzd",
		Subtotal:      decimal.NewFromInt(120),
		ShippingTotal: decimal.NewFromInt(10),
		Total:         decimal.NewFromInt(130),
		Customer:      entity.Customer{Name: "Ana", Email: "ana@example.com"},
		Shipping:      &entity.ShippingAddress{Line1: "1 Queen St", City: "Auckland", Country: "NZ"},
		Items: []entity.OrderItem{
			{PieceID: "vase", Name: "Vase", Quantity: 1, UnitPrice: decimal.NewFromInt(120), Subtotal: decimal.NewFromInt(120)},
		},
		CreatedAt: paid,
		PaidAt:    &paid,
	}
}

func TestGenerateReceipt(t *testing.T) {
	g := NewReceiptGenerator("Taller Cerámica", language.English)

	doc, err := g.GenerateReceipt(context.Background(), sampleOrder())
	require.NoError(t, err)
	require.NotEmpty(t, doc)
	assert.Equal(t, "%PDF", string(doc[:4]))
}

func TestGenerateReceipt_PedidoNil(t *testing.T) {
	_, err := NewReceiptGenerator("x", language.English).GenerateReceipt(context.Background(), nil)
	assert.Error(t, err)
}

func TestFormatMoney(t *testing.T) {
	g := NewReceiptGenerator("x", language.English)

	got := g.formatMoney(decimal.RequireFromString("12.5"), "nzd")
	assert.Contains(t, got, "NZD")
	assert.Contains(t, got, "12.5")

	assert.Equal(t, "3.00 ZZ", g.formatMoney(decimal.NewFromInt(3), "zz"))
}

func TestShortIDYJoin(t *testing.T) {
	assert.Equal(t, "0F8FAD5B", shortID("0f8fad5b-d9cb"))
	assert.Equal(t, "AB", shortID("ab"))
	assert.Equal(t, "a, c", joinNonEmpty([]string{"a", " ", "c"}, ", "))
}
