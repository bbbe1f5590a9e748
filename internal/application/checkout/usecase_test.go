package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/storefront-checkout/internal/application/dto"
	"github.com/jhoicas/storefront-checkout/internal/application/ports"
	"github.com/jhoicas/storefront-checkout/internal/application/stock"
	"github.com/jhoicas/storefront-checkout/internal/domain"
	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
	"github.com/jhoicas/storefront-checkout/internal/infrastructure/memory"
	"github.com/jhoicas/storefront-checkout/pkg/logger"
)

type fakeProvider struct {
	mu    sync.Mutex
	fail  error
	calls []ports.ProviderSessionInput
}

func (p *fakeProvider) Name() string { return entity.ProviderStripe }

func (p *fakeProvider) CreateSession(_ context.Context, in ports.ProviderSessionInput) (*ports.ProviderSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, in)
	if p.fail != nil {
		return nil, p.fail
	}
	return &ports.ProviderSession{ID: "cs_test_1", RedirectURL: "https://pay.example/cs_test_1"}, nil
}

func (p *fakeProvider) Refund(context.Context, string) error { return nil }

type lookup map[string]ports.PaymentProvider

func (l lookup) Provider(name string) (ports.PaymentProvider, error) {
	p, ok := l[name]
	if !ok {
		return nil, domain.ErrUnknownProvider
	}
	return p, nil
}

type fixture struct {
	uc       *UseCase
	store    *memory.Store
	catalog  *memory.PieceCatalog
	provider *fakeProvider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore(nil)
	catalog := memory.NewPieceCatalog()
	provider := &fakeProvider{}
	uc := NewUseCase(catalog, stock.NewService(store, logger.Nop()), lookup{"stripe": provider}, nil, logger.Nop(), Config{
		HoldMinutes: 30,
		Currency:    "nzd",
		SuccessURL:  "https://shop.example/ok",
		CancelURL:   "https://shop.example/cancel",
	})

	catalog.Put(&entity.Piece{ID: "vase", TenantID: "t1", Name: "Vase", Status: entity.PieceStatusActive, Price: decimal.NewFromInt(120)})
	catalog.Put(&entity.Piece{
		ID: "bowl", TenantID: "t1", Name: "Bowl", Status: entity.PieceStatusActive, Price: decimal.NewFromInt(40),
		Variants: []entity.PieceVariant{
			{ID: "blue", PieceID: "bowl", Name: "Blue", Sellable: true},
			{ID: "red", PieceID: "bowl", Name: "Red", Price: decimal.NewFromInt(45), Sellable: true},
			{ID: "green", PieceID: "bowl", Name: "Green", Sellable: false},
		},
	})
	catalog.Put(&entity.Piece{ID: "draft", TenantID: "t1", Name: "Draft", Status: entity.PieceStatusDraft, Price: decimal.NewFromInt(10)})
	store.SetStock("t1", "vase", "", 1)
	store.SetStock("t1", "bowl", "blue", 5)
	store.SetStock("t1", "bowl", "red", 5)

	return &fixture{uc: uc, store: store, catalog: catalog, provider: provider}
}

func (f *fixture) available(t *testing.T, piece, variant string) int {
	t.Helper()
	u, err := f.store.GetStockUnit(context.Background(), "t1", piece, variant)
	require.NoError(t, err)
	return u.AvailableQuantity
}

func TestCreateCheckout_Exitoso(t *testing.T) {
	f := newFixture(t)

	resp, err := f.uc.CreateCheckout(context.Background(), "t1", "stripe", dto.CreateCheckoutRequest{
		Items: []dto.CheckoutItemRequest{
			{PieceID: "vase", Quantity: 1, UnitPrice: decimal.NewFromInt(120)},
			{PieceID: "bowl", VariantID: "red", Quantity: 2, UnitPrice: decimal.NewFromInt(45)},
		},
		Customer: dto.CustomerRequest{Name: "Ana", Email: "ana@example.com"},
	})
	require.NoError(t, err)

	assert.Equal(t, "stripe", resp.Provider)
	assert.Equal(t, "cs_test_1", resp.ProviderSessionID)
	assert.NotEmpty(t, resp.ReservationSessionID)
	assert.False(t, resp.ExpiresAt.IsZero())
	assert.Equal(t, 0, f.available(t, "vase", ""))
	assert.Equal(t, 3, f.available(t, "bowl", "red"))

	require.Len(t, f.provider.calls, 1)
	call := f.provider.calls[0]
	assert.Equal(t, resp.ReservationSessionID, call.ReservationSessionID)
	assert.Equal(t, "t1", call.TenantID)
	assert.Equal(t, resp.ExpiresAt, call.ExpiresAt)
	assert.Equal(t, "Bowl - Red", call.Items[1].Name)
}

func TestCreateCheckout_SinStockIndicaLinea(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.CreateCheckout(context.Background(), "t1", "stripe", dto.CreateCheckoutRequest{
		Items: []dto.CheckoutItemRequest{
			{PieceID: "bowl", VariantID: "blue", Quantity: 1, UnitPrice: decimal.NewFromInt(40)},
			{PieceID: "vase", Quantity: 2, UnitPrice: decimal.NewFromInt(120)},
		},
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	var itemErr *domain.ItemError
	require.True(t, errors.As(err, &itemErr))
	assert.Equal(t, 1, itemErr.Index)
	assert.Equal(t, "vase", itemErr.PieceID)

	assert.Equal(t, 5, f.available(t, "bowl", "blue"), "la reserva parcial se revierte")
	assert.Equal(t, 1, f.available(t, "vase", ""))
	assert.Empty(t, f.provider.calls)
}

func TestCreateCheckout_Validaciones(t *testing.T) {
	cases := []struct {
		name string
		item dto.CheckoutItemRequest
		want error
	}{
		{"pieza inexistente", dto.CheckoutItemRequest{PieceID: "nope", Quantity: 1}, domain.ErrNotFound},
		{"pieza no publicada", dto.CheckoutItemRequest{PieceID: "draft", Quantity: 1, UnitPrice: decimal.NewFromInt(10)}, domain.ErrNotSellable},
		{"variante no vendible", dto.CheckoutItemRequest{PieceID: "bowl", VariantID: "green", Quantity: 1, UnitPrice: decimal.NewFromInt(40)}, domain.ErrNotSellable},
		{"variante inexistente", dto.CheckoutItemRequest{PieceID: "bowl", VariantID: "pink", Quantity: 1, UnitPrice: decimal.NewFromInt(40)}, domain.ErrNotFound},
		{"falta variante", dto.CheckoutItemRequest{PieceID: "bowl", Quantity: 1, UnitPrice: decimal.NewFromInt(40)}, domain.ErrInvalidInput},
		{"precio alterado", dto.CheckoutItemRequest{PieceID: "vase", Quantity: 1, UnitPrice: decimal.NewFromInt(1)}, domain.ErrPriceMismatch},
		{"cantidad cero", dto.CheckoutItemRequest{PieceID: "vase", Quantity: 0, UnitPrice: decimal.NewFromInt(120)}, domain.ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.uc.CreateCheckout(context.Background(), "t1", "stripe", dto.CreateCheckoutRequest{
				Items: []dto.CheckoutItemRequest{tc.item},
			})
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, 1, f.available(t, "vase", ""))
		})
	}
}

func TestCreateCheckout_ProveedorDesconocidoOCarritoVacio(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.CreateCheckout(context.Background(), "t1", "bitcoin", dto.CreateCheckoutRequest{
		Items: []dto.CheckoutItemRequest{{PieceID: "vase", Quantity: 1, UnitPrice: decimal.NewFromInt(120)}},
	})
	assert.ErrorIs(t, err, domain.ErrUnknownProvider)

	_, err = f.uc.CreateCheckout(context.Background(), "t1", "stripe", dto.CreateCheckoutRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateCheckout_FalloProveedorLiberaReservas(t *testing.T) {
	f := newFixture(t)
	f.provider.fail = errors.New("timeout")

	_, err := f.uc.CreateCheckout(context.Background(), "t1", "stripe", dto.CreateCheckoutRequest{
		Items: []dto.CheckoutItemRequest{{PieceID: "vase", Quantity: 1, UnitPrice: decimal.NewFromInt(120)}},
	})
	require.ErrorIs(t, err, domain.ErrProviderUnavailable)
	assert.Equal(t, 1, f.available(t, "vase", ""))

	rs, err := f.store.ListBySession(context.Background(), "t1", f.provider.calls[0].ReservationSessionID)
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, entity.ReservationCancelled, rs[0].Status)
}

func TestCancelCheckout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.uc.CreateCheckout(ctx, "t1", "stripe", dto.CreateCheckoutRequest{
		Items: []dto.CheckoutItemRequest{{PieceID: "vase", Quantity: 1, UnitPrice: decimal.NewFromInt(120)}},
	})
	require.NoError(t, err)

	ok, err := f.uc.CancelCheckout(ctx, "t1", resp.ReservationSessionID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, f.available(t, "vase", ""))

	ok, err = f.uc.CancelCheckout(ctx, "t1", resp.ReservationSessionID)
	require.NoError(t, err)
	assert.True(t, ok, "cancelar dos veces es idempotente")
	assert.Equal(t, 1, f.available(t, "vase", ""), "el stock se acredita una sola vez")

	ok, err = f.uc.CancelCheckout(ctx, "t1", "desconocida")
	require.NoError(t, err)
	assert.False(t, ok)
}

// Dos compradores por la última unidad: exactamente uno obtiene la reserva.
func TestCreateCheckout_UltimaUnidadConcurrente(t *testing.T) {
	f := newFixture(t)
	const buyers = 20

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, outOfStock := 0, 0
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.uc.CreateCheckout(context.Background(), "t1", "stripe", dto.CreateCheckoutRequest{
				Items: []dto.CheckoutItemRequest{{PieceID: "vase", Quantity: 1, UnitPrice: decimal.NewFromInt(120)}},
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, domain.ErrInsufficientStock):
				outOfStock++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, buyers-1, outOfStock)
	assert.Equal(t, 0, f.available(t, "vase", ""))
}
