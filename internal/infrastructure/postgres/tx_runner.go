package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/storefront-checkout/internal/application/settlement"
	"github.com/jhoicas/storefront-checkout/internal/domain/repository"
)

var _ settlement.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunSettlement inicia una transacción con el libro de stock y los pedidos atados a ella:
// el commit de la reserva y el pedido se confirman juntos o se revierten juntos.
// Las operaciones del store abren savepoints dentro de esta tx.
func (r *TxRunner) RunSettlement(ctx context.Context, fn func(
	store repository.ReservationStore,
	orders repository.OrderRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return transient("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewReservationStore(tx), NewOrderRepository(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", transient("settlement", err))
	}
	return nil
}
