package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/storefront-checkout/internal/domain"
	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
	"github.com/jhoicas/storefront-checkout/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo implementación de OrderRepository (usable con pool o tx).
type OrderRepo struct {
	q Querier
}

// NewOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOrderRepository(q Querier) *OrderRepo {
	return &OrderRepo{q: q}
}

const orderColumns = `id, tenant_id, provider, provider_session_id, reservation_session_id, payment_ref, status,
	currency, subtotal, shipping_total, total, customer_name, customer_email, shipping_address, items, created_at, paid_at`

// Create inserta el pedido. La restricción orders_provider_session_uniq convierte una segunda
// entrega del mismo pago en domain.ErrDuplicate.
func (r *OrderRepo) Create(ctx context.Context, order *entity.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("marshal order items: %w", err)
	}
	var shipping []byte
	if order.Shipping != nil {
		if shipping, err = json.Marshal(order.Shipping); err != nil {
			return fmt.Errorf("marshal shipping: %w", err)
		}
	}

	_, err = r.q.Exec(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		order.ID, order.TenantID, order.Provider, order.ProviderSessionID, order.ReservationSessionID,
		nullIfEmpty(order.PaymentRef), order.Status, order.Currency,
		order.Subtotal, order.ShippingTotal, order.Total,
		nullIfEmpty(order.Customer.Name), nullIfEmpty(order.Customer.Email),
		shipping, items, order.CreatedAt, order.PaidAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return transient("insert order", err)
	}
	return nil
}

// MarkPaid marca el pedido como pagado.
func (r *OrderRepo) MarkPaid(ctx context.Context, tenantID, orderID string, paidAt time.Time) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE orders SET status = $3, paid_at = $4
		WHERE tenant_id = $1 AND id = $2`,
		tenantID, orderID, entity.OrderStatusPaid, paidAt)
	if err != nil {
		return transient("mark order paid", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// FindBySessionRef busca el pedido de una sesión del proveedor (nil si no existe).
func (r *OrderRepo) FindBySessionRef(ctx context.Context, tenantID, provider, providerSessionID string) (*entity.Order, error) {
	o, err := scanOrder(r.q.QueryRow(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE tenant_id = $1 AND provider = $2 AND provider_session_id = $3`,
		tenantID, provider, providerSessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, transient("find order by session", err)
	}
	return o, nil
}

// GetByID obtiene un pedido del tenant (nil si no existe).
func (r *OrderRepo) GetByID(ctx context.Context, tenantID, orderID string) (*entity.Order, error) {
	o, err := scanOrder(r.q.QueryRow(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE tenant_id = $1 AND id = $2`,
		tenantID, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, transient("get order", err)
	}
	return o, nil
}

func scanOrder(row pgx.Row) (*entity.Order, error) {
	var (
		o                               entity.Order
		paymentRef, custName, custEmail *string
		shipping, items                 []byte
	)
	if err := row.Scan(&o.ID, &o.TenantID, &o.Provider, &o.ProviderSessionID, &o.ReservationSessionID,
		&paymentRef, &o.Status, &o.Currency, &o.Subtotal, &o.ShippingTotal, &o.Total,
		&custName, &custEmail, &shipping, &items, &o.CreatedAt, &o.PaidAt); err != nil {
		return nil, err
	}
	o.PaymentRef = deref(paymentRef)
	o.Customer = entity.Customer{Name: deref(custName), Email: deref(custEmail)}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return nil, fmt.Errorf("unmarshal order items: %w", err)
		}
	}
	if len(shipping) > 0 {
		o.Shipping = &entity.ShippingAddress{}
		if err := json.Unmarshal(shipping, o.Shipping); err != nil {
			return nil, fmt.Errorf("unmarshal shipping: %w", err)
		}
	}
	return &o, nil
}
