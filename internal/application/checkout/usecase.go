package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/storefront-checkout/internal/application/dto"
	"github.com/jhoicas/storefront-checkout/internal/application/ports"
	"github.com/jhoicas/storefront-checkout/internal/application/stock"
	"github.com/jhoicas/storefront-checkout/internal/domain"
	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
	"github.com/jhoicas/storefront-checkout/internal/domain/repository"
	"github.com/jhoicas/storefront-checkout/pkg/logger"
)

// Config parámetros del checkout.
type Config struct {
	HoldMinutes int
	Currency    string
	SuccessURL  string
	CancelURL   string
}

// UseCase orquesta el checkout: valida el carrito contra el catálogo, reserva stock y abre la
// sesión del proveedor. Si algo falla después de reservar, libera las reservas antes de responder.
type UseCase struct {
	pieces    repository.PieceRepository
	stock     StockReserver
	providers ProviderLookup
	publisher ports.EventPublisher
	log       *logger.Logger
	cfg       Config
}

// NewUseCase construye el caso de uso.
func NewUseCase(
	pieces repository.PieceRepository,
	stock StockReserver,
	providers ProviderLookup,
	publisher ports.EventPublisher,
	log *logger.Logger,
	cfg Config,
) *UseCase {
	if cfg.HoldMinutes <= 0 {
		cfg.HoldMinutes = int(entity.DefaultHoldDuration / time.Minute)
	}
	return &UseCase{
		pieces:    pieces,
		stock:     stock,
		providers: providers,
		publisher: publisher,
		log:       log.Component("checkout"),
		cfg:       cfg,
	}
}

// CreateCheckout valida, reserva y crea la sesión de pago.
//
// Retorna:
//   - domain.ErrInvalidInput / ErrUnknownProvider  si el request es inválido.
//   - *domain.ItemError                            envolviendo ErrNotFound, ErrNotSellable,
//     ErrPriceMismatch o ErrInsufficientStock con la línea que falló.
//   - domain.ErrTransientStore                     si el almacén no respondió.
//   - domain.ErrProviderUnavailable                si el proveedor falló (las reservas ya se liberaron).
func (uc *UseCase) CreateCheckout(ctx context.Context, tenantID, providerName string, in dto.CreateCheckoutRequest) (*dto.CheckoutSessionResponse, error) {
	if tenantID == "" || len(in.Items) == 0 {
		return nil, domain.ErrInvalidInput
	}
	provider, err := uc.providers.Provider(providerName)
	if err != nil {
		return nil, err
	}

	// Validar contra el catálogo (solo lectura, antes de tocar stock)
	lines := make([]ports.CheckoutLine, 0, len(in.Items))
	items := make([]stock.ReserveItem, 0, len(in.Items))
	for i, it := range in.Items {
		line, err := uc.validateItem(ctx, tenantID, i, it)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
		items = append(items, stock.ReserveItem{Index: i, PieceID: it.PieceID, VariantID: it.VariantID, Quantity: it.Quantity})
	}

	sessionID := uuid.New().String()
	held, err := uc.stock.ReserveMultiple(ctx, tenantID, sessionID, items, uc.cfg.HoldMinutes)
	if err != nil {
		return nil, err
	}
	expiresAt := held[0].ExpiresAt
	for _, r := range held[1:] {
		if r.ExpiresAt.Before(expiresAt) {
			expiresAt = r.ExpiresAt
		}
	}

	session, err := provider.CreateSession(ctx, ports.ProviderSessionInput{
		TenantID:             tenantID,
		ReservationSessionID: sessionID,
		Currency:             uc.cfg.Currency,
		Items:                lines,
		Customer:             entity.Customer{Name: in.Customer.Name, Email: in.Customer.Email},
		ExpiresAt:            expiresAt,
		SuccessURL:           uc.cfg.SuccessURL,
		CancelURL:            uc.cfg.CancelURL,
	})
	tlog := uc.log.Tenant(tenantID)
	if err != nil {
		if _, cerr := uc.stock.CancelReservation(context.WithoutCancel(ctx), tenantID, sessionID); cerr != nil {
			tlog.Error().Err(cerr).Str("session_id", sessionID).Msg("liberar reservas tras fallo del proveedor")
		}
		tlog.Error().Err(err).Str("provider", provider.Name()).Msg("crear sesión de pago")
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}

	tlog.Info().
		Str("session_id", sessionID).
		Str("provider", provider.Name()).
		Str("provider_session_id", session.ID).
		Int("items", len(held)).
		Msg("checkout creado, stock reservado")
	uc.publish(ctx, ports.CheckoutEvent{
		Type:       ports.EventReservationHeld,
		TenantID:   tenantID,
		SessionID:  sessionID,
		Provider:   provider.Name(),
		OccurredAt: time.Now(),
	})

	return &dto.CheckoutSessionResponse{
		Provider:             provider.Name(),
		ProviderSessionID:    session.ID,
		RedirectURL:          session.RedirectURL,
		ReservationSessionID: sessionID,
		ExpiresAt:            expiresAt,
	}, nil
}

// CancelCheckout libera de inmediato las reservas de un checkout abandonado por el comprador.
// Devuelve false si la sesión no existe o ya se vendió.
func (uc *UseCase) CancelCheckout(ctx context.Context, tenantID, reservationSessionID string) (bool, error) {
	if tenantID == "" || reservationSessionID == "" {
		return false, domain.ErrInvalidInput
	}
	ok, err := uc.stock.CancelReservation(ctx, tenantID, reservationSessionID)
	if err != nil {
		return false, err
	}
	if ok {
		uc.publish(ctx, ports.CheckoutEvent{
			Type:       ports.EventReservationReleased,
			TenantID:   tenantID,
			SessionID:  reservationSessionID,
			OccurredAt: time.Now(),
			Attributes: map[string]string{"reason": "buyer_cancelled"},
		})
	}
	return ok, nil
}

func (uc *UseCase) validateItem(ctx context.Context, tenantID string, index int, it dto.CheckoutItemRequest) (ports.CheckoutLine, error) {
	itemErr := func(err error) error {
		return &domain.ItemError{Index: index, PieceID: it.PieceID, VariantID: it.VariantID, Err: err}
	}
	if it.PieceID == "" || it.Quantity <= 0 || it.UnitPrice.LessThan(decimal.Zero) {
		return ports.CheckoutLine{}, itemErr(domain.ErrInvalidInput)
	}

	piece, err := uc.pieces.GetByID(ctx, tenantID, it.PieceID)
	if err != nil {
		return ports.CheckoutLine{}, fmt.Errorf("checkout: obtener pieza %s: %w", it.PieceID, err)
	}
	if piece == nil {
		return ports.CheckoutLine{}, itemErr(domain.ErrNotFound)
	}
	if !piece.IsSellable() {
		return ports.CheckoutLine{}, itemErr(domain.ErrNotSellable)
	}

	var variant *entity.PieceVariant
	name := piece.Name
	switch {
	case it.VariantID != "":
		v, ok := piece.Variant(it.VariantID)
		if !ok {
			return ports.CheckoutLine{}, itemErr(domain.ErrNotFound)
		}
		if !v.Sellable {
			return ports.CheckoutLine{}, itemErr(domain.ErrNotSellable)
		}
		variant = v
		name = piece.Name + " - " + v.Name
	case len(piece.Variants) > 0:
		// Pieza con variantes: el comprador debe elegir una
		return ports.CheckoutLine{}, itemErr(domain.ErrInvalidInput)
	}

	price := piece.PriceFor(variant)
	if !it.UnitPrice.Equal(price) {
		return ports.CheckoutLine{}, itemErr(fmt.Errorf("%w: cotizado %s, vigente %s", domain.ErrPriceMismatch, it.UnitPrice, price))
	}

	return ports.CheckoutLine{
		PieceID:   it.PieceID,
		VariantID: it.VariantID,
		Name:      name,
		Quantity:  it.Quantity,
		UnitPrice: price,
	}, nil
}

func (uc *UseCase) publish(ctx context.Context, ev ports.CheckoutEvent) {
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.Publish(ctx, ev); err != nil {
		uc.log.Warn().Err(err).Str("event", ev.Type).Str("session_id", ev.SessionID).Msg("publicar evento")
	}
}
