package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
	"github.com/jhoicas/storefront-checkout/internal/domain/repository"
)

// orderWriter repositorio de pedidos que sabe deshacer un alta.
type orderWriter interface {
	repository.OrderRepository
	delete(orderID string)
}

// TxRunner ejecuta la liquidación sobre los repos en memoria. Las liquidaciones se serializan y,
// si fn falla, se deshacen los commits de reservas y las altas de pedidos que hizo: el reintento
// del proveedor encuentra la sesión held y sin pedido.
type TxRunner struct {
	mu     sync.Mutex
	store  *Store
	orders orderWriter
}

// NewTxRunner construye el runner.
func NewTxRunner(store *Store, orders *OrderRepo) *TxRunner {
	return &TxRunner{store: store, orders: orders}
}

// RunSettlement ejecuta fn con el store y el repositorio de pedidos.
func (r *TxRunner) RunSettlement(_ context.Context, fn func(
	store repository.ReservationStore,
	orders repository.OrderRepository,
) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := &txStore{Store: r.store}
	to := &txOrders{orderWriter: r.orders}
	if err := fn(ts, to); err != nil {
		for _, id := range to.created {
			r.orders.delete(id)
		}
		r.store.undoCommit(ts.committed)
		return err
	}
	return nil
}

// txStore registra las reservas que la transacción pasó a committed.
type txStore struct {
	*Store
	committed []string
}

func (t *txStore) Commit(_ context.Context, tenantID, sessionID string) (bool, error) {
	t.Store.mu.Lock()
	defer t.Store.mu.Unlock()

	ok, ids := t.Store.commitLocked(tenantID, sessionID)
	t.committed = append(t.committed, ids...)
	return ok, nil
}

// txOrders registra los pedidos creados por la transacción.
type txOrders struct {
	orderWriter
	created []string
}

func (t *txOrders) Create(ctx context.Context, order *entity.Order) error {
	if err := t.orderWriter.Create(ctx, order); err != nil {
		return err
	}
	t.created = append(t.created, order.ID)
	return nil
}
