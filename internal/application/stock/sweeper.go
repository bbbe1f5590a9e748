package stock

import (
	"context"
	"time"

	"github.com/jhoicas/storefront-checkout/internal/application/ports"
	"github.com/jhoicas/storefront-checkout/internal/domain/repository"
	"github.com/jhoicas/storefront-checkout/pkg/logger"
)

// SweeperConfig intervalo y tamaño de lote del barrido.
type SweeperConfig struct {
	Interval time.Duration
	Batch    int
	Now      func() time.Time
}

// Sweeper libera el stock de checkouts abandonados: reservas held con ExpiresAt < now pasan a expired.
// Compite con commit/cancel por la misma transición condicional; si pierde, Expire no hace nada.
type Sweeper struct {
	store     repository.ReservationStore
	publisher ports.EventPublisher
	log       *logger.Logger
	interval  time.Duration
	batch     int
	now       func() time.Time
}

// NewSweeper construye el sweeper.
func NewSweeper(store repository.ReservationStore, publisher ports.EventPublisher, log *logger.Logger, cfg SweeperConfig) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Batch <= 0 {
		cfg.Batch = 200
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Sweeper{
		store:     store,
		publisher: publisher,
		log:       log.Component("sweeper"),
		interval:  cfg.Interval,
		batch:     cfg.Batch,
		now:       cfg.Now,
	}
}

// Run ejecuta el barrido en cada tick hasta que ctx se cancela.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", s.interval).Int("batch", s.batch).Msg("sweeper iniciado")
	for {
		select {
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.log.Error().Err(err).Msg("barrido de reservas vencidas")
			}
		case <-ctx.Done():
			s.log.Info().Msg("sweeper detenido")
			return
		}
	}
}

// SweepOnce expira todas las sesiones vencidas disponibles (por lotes) y devuelve cuántas liberó.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	expired := 0
	for {
		now := s.now()
		sessions, err := s.store.ListExpiredSessions(ctx, now, s.batch)
		if err != nil {
			return expired, err
		}
		failed, progressed := false, 0
		for _, ref := range sessions {
			ok, err := s.store.Expire(ctx, ref.TenantID, ref.SessionID, now)
			if err != nil {
				failed = true
				s.log.Error().Err(err).Str("tenant_id", ref.TenantID).Str("session_id", ref.SessionID).Msg("expirar sesión")
				continue
			}
			if !ok {
				continue
			}
			expired++
			progressed++
			s.log.Info().Str("tenant_id", ref.TenantID).Str("session_id", ref.SessionID).Msg("reserva expirada, stock liberado")
			publish(ctx, s.publisher, s.log, ports.CheckoutEvent{
				Type:       ports.EventReservationExpired,
				TenantID:   ref.TenantID,
				SessionID:  ref.SessionID,
				OccurredAt: now,
			})
		}
		// Lote incompleto: no queda backlog. Con errores o sin avance se reintenta en el próximo tick.
		if failed || progressed == 0 || len(sessions) < s.batch || ctx.Err() != nil {
			return expired, nil
		}
	}
}

func publish(ctx context.Context, p ports.EventPublisher, log *logger.Logger, ev ports.CheckoutEvent) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		log.Warn().Err(err).Str("event", ev.Type).Str("session_id", ev.SessionID).Msg("publicar evento")
	}
}
