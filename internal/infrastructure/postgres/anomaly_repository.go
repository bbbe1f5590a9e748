package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/storefront-checkout/internal/domain"
	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
	"github.com/jhoicas/storefront-checkout/internal/domain/repository"
)

var _ repository.AnomalyRepository = (*AnomalyRepo)(nil)

// AnomalyRepo registro de anomalías de liquidación.
type AnomalyRepo struct {
	q Querier
}

// NewAnomalyRepository construye el adaptador.
func NewAnomalyRepository(q Querier) *AnomalyRepo {
	return &AnomalyRepo{q: q}
}

const anomalyColumns = `id, tenant_id, provider, provider_session_id, reservation_session_id, payment_ref,
	currency, amount, reason, refund_status, created_at, resolved_at`

// Create inserta la anomalía. settlement_anomalies_session_uq convierte una segunda anomalía
// de la misma sesión del proveedor en domain.ErrDuplicate.
func (r *AnomalyRepo) Create(ctx context.Context, a *entity.SettlementAnomaly) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO settlement_anomalies (id, tenant_id, provider, provider_session_id, reservation_session_id,
			payment_ref, currency, amount, reason, refund_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.TenantID, a.Provider, a.ProviderSessionID, nullIfEmpty(a.ReservationSessionID),
		nullIfEmpty(a.PaymentRef), nullIfEmpty(a.Currency), a.Amount, a.Reason, a.RefundStatus, a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return transient("insert anomaly", err)
	}
	return nil
}

// FindBySessionRef anomalía de la sesión del proveedor (nil si no existe).
func (r *AnomalyRepo) FindBySessionRef(ctx context.Context, tenantID, provider, providerSessionID string) (*entity.SettlementAnomaly, error) {
	a, err := scanAnomaly(r.q.QueryRow(ctx, `
		SELECT `+anomalyColumns+` FROM settlement_anomalies
		WHERE tenant_id = $1 AND provider = $2 AND provider_session_id = $3`,
		tenantID, provider, providerSessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, transient("find anomaly by session", err)
	}
	return a, nil
}

// SetRefundStatus actualiza el estado del reembolso.
func (r *AnomalyRepo) SetRefundStatus(ctx context.Context, tenantID, anomalyID, status string) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE settlement_anomalies SET refund_status = $3 WHERE tenant_id = $1 AND id = $2`,
		tenantID, anomalyID, status)
	if err != nil {
		return transient("update anomaly refund", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListOpen anomalías sin resolver del tenant, más recientes primero.
func (r *AnomalyRepo) ListOpen(ctx context.Context, tenantID string, limit, offset int) ([]*entity.SettlementAnomaly, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+anomalyColumns+`
		FROM settlement_anomalies
		WHERE tenant_id = $1 AND resolved_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, tenantID, limit, offset)
	if err != nil {
		return nil, transient("list anomalies", err)
	}
	defer rows.Close()

	var out []*entity.SettlementAnomaly
	for rows.Next() {
		a, err := scanAnomaly(rows)
		if err != nil {
			return nil, transient("scan anomaly", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, transient("list anomalies", err)
	}
	return out, nil
}

func scanAnomaly(row pgx.Row) (*entity.SettlementAnomaly, error) {
	var (
		a                         entity.SettlementAnomaly
		session, paymentRef, curr *string
	)
	if err := row.Scan(&a.ID, &a.TenantID, &a.Provider, &a.ProviderSessionID, &session, &paymentRef,
		&curr, &a.Amount, &a.Reason, &a.RefundStatus, &a.CreatedAt, &a.ResolvedAt); err != nil {
		return nil, err
	}
	a.ReservationSessionID = deref(session)
	a.PaymentRef = deref(paymentRef)
	a.Currency = deref(curr)
	return &a, nil
}
