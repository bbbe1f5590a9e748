package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/storefront-checkout/internal/domain"
	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
	"github.com/jhoicas/storefront-checkout/internal/domain/repository"
	"github.com/jhoicas/storefront-checkout/internal/domain/reservation"
)

var _ repository.ReservationStore = (*ReservationStore)(nil)

// ReservationStore libro de stock y reservas sobre PostgreSQL (usable con pool o tx).
//
// Reserve es un UPDATE condicional (available_quantity >= q) más el INSERT de la reserva en la
// misma transacción. Las transiciones de sesión bloquean las filas de la sesión
// (SELECT … FOR UPDATE ORDER BY id) y actualizan el libro en orden ascendente de
// (piece_id, variant_id), de modo que commit, cancel y expire se serializan por sesión.
type ReservationStore struct {
	q   Querier
	now func() time.Time
}

// NewReservationStore construye el adaptador. Pasar pool o tx (Querier).
func NewReservationStore(q Querier) *ReservationStore {
	return &ReservationStore{q: q, now: time.Now}
}

// Reserve descuenta el disponible si alcanza y crea la reserva held.
func (r *ReservationStore) Reserve(ctx context.Context, in entity.ReserveInput) (*entity.Reservation, error) {
	if in.Quantity <= 0 || in.TenantID == "" || in.PieceID == "" || in.SessionID == "" {
		return nil, domain.ErrInvalidInput
	}
	now := r.now().UTC()
	res := &entity.Reservation{
		ID:        uuid.New().String(),
		TenantID:  in.TenantID,
		PieceID:   in.PieceID,
		VariantID: in.VariantID,
		Quantity:  in.Quantity,
		SessionID: in.SessionID,
		Status:    entity.ReservationHeld,
		CreatedAt: now,
		ExpiresAt: now.Add(in.HoldDuration()),
	}

	err := withTx(ctx, r.q, "reserve", func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE stock_units
			SET available_quantity = available_quantity - $4,
			    reserved_quantity  = reserved_quantity + $4,
			    updated_at         = $5
			WHERE tenant_id = $1 AND piece_id = $2 AND variant_id = $3
			  AND available_quantity >= $4`,
			in.TenantID, in.PieceID, in.VariantID, in.Quantity, now)
		if err != nil {
			return transient("reserve: update stock", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrInsufficientStock
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO reservations (id, tenant_id, piece_id, variant_id, quantity, session_id, status, created_at, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			res.ID, res.TenantID, res.PieceID, res.VariantID, res.Quantity, res.SessionID,
			string(res.Status), res.CreatedAt, res.ExpiresAt)
		if err != nil {
			return transient("reserve: insert reservation", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Commit held → committed: el stock pasa de reservado a vendido.
func (r *ReservationStore) Commit(ctx context.Context, tenantID, sessionID string) (bool, error) {
	d, err := r.transition(ctx, "commit", tenantID, sessionID, reservation.DecideCommit, entity.ReservationCommitted, `
		UPDATE stock_units
		SET reserved_quantity = reserved_quantity - $4,
		    sold_quantity     = sold_quantity + $4,
		    updated_at        = $5
		WHERE tenant_id = $1 AND piece_id = $2 AND variant_id = $3`)
	return d.Result, err
}

// Cancel held → cancelled devolviendo el stock una sola vez.
func (r *ReservationStore) Cancel(ctx context.Context, tenantID, sessionID string) (bool, error) {
	d, err := r.transition(ctx, "cancel", tenantID, sessionID, reservation.DecideCancel, entity.ReservationCancelled, releaseStockSQL)
	return d.Result, err
}

// Expire held → expired si todas las reservas held de la sesión vencieron antes de now.
func (r *ReservationStore) Expire(ctx context.Context, tenantID, sessionID string, now time.Time) (bool, error) {
	decide := func(rs []*entity.Reservation) reservation.Decision {
		return reservation.DecideExpire(rs, now)
	}
	d, err := r.transition(ctx, "expire", tenantID, sessionID, decide, entity.ReservationExpired, releaseStockSQL)
	return d.Apply, err
}

const releaseStockSQL = `
	UPDATE stock_units
	SET available_quantity = available_quantity + $4,
	    reserved_quantity  = reserved_quantity - $4,
	    updated_at         = $5
	WHERE tenant_id = $1 AND piece_id = $2 AND variant_id = $3`

// transition bloquea la sesión, consulta la regla de dominio y, si corresponde, mueve el libro
// (stockSQL por cada reserva held, en orden de clave) y marca las reservas con el estado destino.
func (r *ReservationStore) transition(
	ctx context.Context,
	op, tenantID, sessionID string,
	decide func([]*entity.Reservation) reservation.Decision,
	target entity.ReservationStatus,
	stockSQL string,
) (reservation.Decision, error) {
	var d reservation.Decision
	err := withTx(ctx, r.q, op, func(tx pgx.Tx) error {
		rs, err := listSession(ctx, tx, tenantID, sessionID, true)
		if err != nil {
			return transient(op+": lock session", err)
		}
		d = decide(rs)
		if !d.Apply {
			return nil
		}

		now := r.now().UTC()
		held := reservation.Held(rs)
		sort.SliceStable(held, func(i, j int) bool { return held[i].Key().Less(held[j].Key()) })
		for _, res := range held {
			if _, err := tx.Exec(ctx, stockSQL, res.TenantID, res.PieceID, res.VariantID, res.Quantity, now); err != nil {
				return transient(op+": update stock", err)
			}
		}
		if _, err := tx.Exec(ctx, `
			UPDATE reservations SET status = $3, settled_at = $4
			WHERE tenant_id = $1 AND session_id = $2 AND status = 'held'`,
			tenantID, sessionID, string(target), now); err != nil {
			return transient(op+": update reservations", err)
		}
		return nil
	})
	if err != nil {
		return reservation.Decision{}, err
	}
	return d, nil
}

// ListExpiredSessions sesiones con reservas held vencidas, las más antiguas primero.
func (r *ReservationStore) ListExpiredSessions(ctx context.Context, now time.Time, limit int) ([]entity.SessionRef, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.q.Query(ctx, `
		SELECT tenant_id, session_id
		FROM reservations
		WHERE status = 'held' AND expires_at < $1
		GROUP BY tenant_id, session_id
		ORDER BY MIN(expires_at)
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, transient("list expired sessions", err)
	}
	defer rows.Close()

	var out []entity.SessionRef
	for rows.Next() {
		var ref entity.SessionRef
		if err := rows.Scan(&ref.TenantID, &ref.SessionID); err != nil {
			return nil, transient("scan expired session", err)
		}
		out = append(out, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, transient("list expired sessions", err)
	}
	return out, nil
}

// ListBySession reservas de una sesión del tenant.
func (r *ReservationStore) ListBySession(ctx context.Context, tenantID, sessionID string) ([]*entity.Reservation, error) {
	rs, err := listSession(ctx, r.q, tenantID, sessionID, false)
	if err != nil {
		return nil, transient("list session", err)
	}
	return rs, nil
}

// GetStockUnit lee una unidad del libro (nil si no existe).
func (r *ReservationStore) GetStockUnit(ctx context.Context, tenantID, pieceID, variantID string) (*entity.StockUnit, error) {
	u, err := scanStockUnit(r.q.QueryRow(ctx, `
		SELECT tenant_id, piece_id, variant_id, available_quantity, reserved_quantity, sold_quantity, updated_at
		FROM stock_units WHERE tenant_id = $1 AND piece_id = $2 AND variant_id = $3`,
		tenantID, pieceID, variantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, transient("get stock unit", err)
	}
	return u, nil
}

// AdjustAvailable suma delta al disponible en una sola sentencia (crea la fila si no existe).
// Un ajuste que dejaría el disponible negativo devuelve domain.ErrInsufficientStock.
func (r *ReservationStore) AdjustAvailable(ctx context.Context, tenantID, pieceID, variantID string, delta int) (*entity.StockUnit, error) {
	u, err := scanStockUnit(r.q.QueryRow(ctx, `
		INSERT INTO stock_units (tenant_id, piece_id, variant_id, available_quantity, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_id, piece_id, variant_id) DO UPDATE
		SET available_quantity = stock_units.available_quantity + EXCLUDED.available_quantity,
		    updated_at         = EXCLUDED.updated_at
		WHERE stock_units.available_quantity + EXCLUDED.available_quantity >= 0
		RETURNING tenant_id, piece_id, variant_id, available_quantity, reserved_quantity, sold_quantity, updated_at`,
		tenantID, pieceID, variantID, delta, r.now().UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isCheckViolation(err) {
			return nil, domain.ErrInsufficientStock
		}
		return nil, transient("adjust stock", err)
	}
	return u, nil
}

func listSession(ctx context.Context, q Querier, tenantID, sessionID string, forUpdate bool) ([]*entity.Reservation, error) {
	query := `
		SELECT id, tenant_id, piece_id, variant_id, quantity, session_id, status, created_at, expires_at, settled_at
		FROM reservations
		WHERE tenant_id = $1 AND session_id = $2
		ORDER BY id`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	rows, err := q.Query(ctx, query, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.Reservation
	for rows.Next() {
		var (
			res    entity.Reservation
			status string
		)
		if err := rows.Scan(&res.ID, &res.TenantID, &res.PieceID, &res.VariantID, &res.Quantity,
			&res.SessionID, &status, &res.CreatedAt, &res.ExpiresAt, &res.SettledAt); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		res.Status = entity.ReservationStatus(status)
		out = append(out, &res)
	}
	return out, rows.Err()
}

func scanStockUnit(row pgx.Row) (*entity.StockUnit, error) {
	var u entity.StockUnit
	if err := row.Scan(&u.TenantID, &u.PieceID, &u.VariantID, &u.AvailableQuantity,
		&u.ReservedQuantity, &u.SoldQuantity, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
