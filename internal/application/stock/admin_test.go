package stock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/storefront-checkout/internal/domain"
	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
	"github.com/jhoicas/storefront-checkout/internal/infrastructure/memory"
)

func adjust(delta int) entity.StockAdjustment {
	return entity.StockAdjustment{TenantID: "t1", PieceID: "p1", Delta: delta, Reason: "recuento", ActorID: "op-1"}
}

func TestAdjustStock(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	unit, err := svc.AdjustStock(ctx, adjust(4))
	require.NoError(t, err)
	assert.Equal(t, 4, unit.AvailableQuantity)

	unit, err = svc.AdjustStock(ctx, adjust(-3))
	require.NoError(t, err)
	assert.Equal(t, 1, unit.AvailableQuantity)

	_, err = svc.AdjustStock(ctx, adjust(-2))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	_, err = svc.AdjustStock(ctx, adjust(0))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStockLevel(t *testing.T) {
	svc, store := newService(t)
	store.SetStock("t1", "p1", "v1", 2)

	unit, err := svc.StockLevel(context.Background(), "t1", "p1", "v1")
	require.NoError(t, err)
	assert.Equal(t, 2, unit.AvailableQuantity)

	_, err = svc.StockLevel(context.Background(), "t2", "p1", "v1")
	assert.ErrorIs(t, err, domain.ErrNotFound, "otro tenant no ve el stock")
}

func TestSessionReservations(t *testing.T) {
	svc, store := newService(t)
	store.SetStock("t1", "p1", "", 2)
	_, err := svc.ReserveMultiple(context.Background(), "t1", "s1", []ReserveItem{{PieceID: "p1", Quantity: 1}}, 30)
	require.NoError(t, err)

	rs, err := svc.SessionReservations(context.Background(), "t1", "s1")
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, "p1", rs[0].PieceID)

	_, err = svc.SessionReservations(context.Background(), "t1", "otra")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAdjustStock_AuditaMovimientos(t *testing.T) {
	svc, _ := newService(t)
	log := memory.NewMovementLog()
	svc.WithMovementLog(log)
	ctx := context.Background()

	_, err := svc.AdjustStock(ctx, adjust(5))
	require.NoError(t, err)
	_, err = svc.AdjustStock(ctx, adjust(-2))
	require.NoError(t, err)
	_, err = svc.AdjustStock(ctx, adjust(-10))
	require.Error(t, err)

	ms, err := svc.StockMovements(ctx, "t1", "p1", 10, 0)
	require.NoError(t, err)
	require.Len(t, ms, 2, "el ajuste rechazado no se audita")
	assert.Equal(t, -2, ms[0].Delta, "más reciente primero")
	assert.Equal(t, 3, ms[0].AvailableAfter)
	assert.Equal(t, "op-1", ms[0].CreatedBy)
	assert.Equal(t, "recuento", ms[1].Reason)

	other, err := svc.StockMovements(ctx, "t2", "p1", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestStockMovements_SinAuditoria(t *testing.T) {
	svc, _ := newService(t)
	ms, err := svc.StockMovements(context.Background(), "t1", "p1", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, ms)
}
