package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/storefront-checkout/internal/domain"
	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
	"github.com/jhoicas/storefront-checkout/internal/domain/repository"
)

var (
	_ repository.OrderRepository   = (*OrderRepo)(nil)
	_ repository.AnomalyRepository = (*AnomalyRepo)(nil)
)

type orderRef struct {
	tenantID, provider, providerSessionID string
}

// OrderRepo pedidos en memoria con índice único por sesión del proveedor.
type OrderRepo struct {
	mu        sync.Mutex
	orders    map[string]*entity.Order
	bySession map[orderRef]string
}

// NewOrderRepo construye el repositorio.
func NewOrderRepo() *OrderRepo {
	return &OrderRepo{
		orders:    make(map[string]*entity.Order),
		bySession: make(map[orderRef]string),
	}
}

// Create inserta el pedido; ErrDuplicate si la sesión del proveedor ya tiene pedido.
func (r *OrderRepo) Create(_ context.Context, order *entity.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ref := orderRef{order.TenantID, order.Provider, order.ProviderSessionID}
	if _, exists := r.bySession[ref]; exists {
		return domain.ErrDuplicate
	}
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	r.orders[order.ID] = cloneOrder(order)
	r.bySession[ref] = order.ID
	return nil
}

// MarkPaid marca el pedido como pagado.
func (r *OrderRepo) MarkPaid(_ context.Context, tenantID, orderID string, paidAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok || o.TenantID != tenantID {
		return domain.ErrNotFound
	}
	o.Status = entity.OrderStatusPaid
	o.PaidAt = &paidAt
	return nil
}

// FindBySessionRef camino rápido del guardián de idempotencia.
func (r *OrderRepo) FindBySessionRef(_ context.Context, tenantID, provider, providerSessionID string) (*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.bySession[orderRef{tenantID, provider, providerSessionID}]
	if !ok {
		return nil, nil
	}
	return cloneOrder(r.orders[id]), nil
}

// GetByID obtiene un pedido del tenant.
func (r *OrderRepo) GetByID(_ context.Context, tenantID, orderID string) (*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok || o.TenantID != tenantID {
		return nil, nil
	}
	return cloneOrder(o), nil
}

// delete quita el pedido (rollback de TxRunner).
func (r *OrderRepo) delete(orderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok {
		return
	}
	delete(r.bySession, orderRef{o.TenantID, o.Provider, o.ProviderSessionID})
	delete(r.orders, orderID)
}

// Count número de pedidos guardados (tests).
func (r *OrderRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

func cloneOrder(o *entity.Order) *entity.Order {
	cp := *o
	cp.Items = append([]entity.OrderItem(nil), o.Items...)
	if o.Shipping != nil {
		sh := *o.Shipping
		cp.Shipping = &sh
	}
	if o.PaidAt != nil {
		t := *o.PaidAt
		cp.PaidAt = &t
	}
	return &cp
}

// AnomalyRepo anomalías de liquidación en memoria, únicas por sesión del proveedor.
type AnomalyRepo struct {
	mu        sync.Mutex
	items     []*entity.SettlementAnomaly
	bySession map[orderRef]*entity.SettlementAnomaly
}

// NewAnomalyRepo construye el repositorio.
func NewAnomalyRepo() *AnomalyRepo {
	return &AnomalyRepo{bySession: make(map[orderRef]*entity.SettlementAnomaly)}
}

// Create registra la anomalía; ErrDuplicate si la sesión del proveedor ya tiene una.
// Sin sesión del proveedor (metadata incompleta) no hay restricción.
func (r *AnomalyRepo) Create(_ context.Context, a *entity.SettlementAnomaly) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ref := orderRef{a.TenantID, a.Provider, a.ProviderSessionID}
	if a.ProviderSessionID != "" {
		if _, exists := r.bySession[ref]; exists {
			return domain.ErrDuplicate
		}
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	cp := *a
	r.items = append(r.items, &cp)
	if a.ProviderSessionID != "" {
		r.bySession[ref] = &cp
	}
	return nil
}

// FindBySessionRef anomalía de la sesión del proveedor (nil si no existe).
func (r *AnomalyRepo) FindBySessionRef(_ context.Context, tenantID, provider, providerSessionID string) (*entity.SettlementAnomaly, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.bySession[orderRef{tenantID, provider, providerSessionID}]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

// SetRefundStatus actualiza el estado del reembolso.
func (r *AnomalyRepo) SetRefundStatus(_ context.Context, tenantID, anomalyID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.items {
		if a.ID == anomalyID && a.TenantID == tenantID {
			a.RefundStatus = status
			return nil
		}
	}
	return domain.ErrNotFound
}

// Count número de anomalías registradas (tests).
func (r *AnomalyRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// ListOpen anomalías sin resolver del tenant, más recientes primero.
func (r *AnomalyRepo) ListOpen(_ context.Context, tenantID string, limit, offset int) ([]*entity.SettlementAnomaly, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.SettlementAnomaly
	for _, a := range r.items {
		if a.TenantID == tenantID && a.ResolvedAt == nil {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
