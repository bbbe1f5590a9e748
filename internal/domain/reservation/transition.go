// Package reservation contiene las reglas de transición de una sesión de reservas (servicio de dominio).
// Los adaptadores (postgres, memory) bloquean las filas de la sesión, consultan estas reglas y
// aplican la transición dentro de la misma sección crítica: así solo una de
// {commit, cancel, expire} observa "held" y gana.
package reservation

import (
	"time"

	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
)

// Decision resultado de evaluar una transición sobre las reservas de una sesión.
type Decision struct {
	Apply  bool // hay reservas held que deben pasar al estado destino
	Result bool // valor que devuelve la operación al caller
}

// DecideCommit: held → committed. Idempotente si ya está committed; false si se liberó o no existe.
func DecideCommit(rs []*entity.Reservation) Decision {
	if len(rs) == 0 {
		return Decision{}
	}
	held := 0
	for _, r := range rs {
		if r.Status.IsReleased() {
			return Decision{}
		}
		if r.Status == entity.ReservationHeld {
			held++
		}
	}
	return Decision{Apply: held > 0, Result: true}
}

// DecideCancel: held → cancelled devolviendo stock. Si ya está liberada devuelve true sin
// volver a acreditar; si ya se vendió (committed) devuelve false.
func DecideCancel(rs []*entity.Reservation) Decision {
	if len(rs) == 0 {
		return Decision{}
	}
	held := 0
	for _, r := range rs {
		if r.Status == entity.ReservationCommitted {
			return Decision{}
		}
		if r.Status == entity.ReservationHeld {
			held++
		}
	}
	return Decision{Apply: held > 0, Result: true}
}

// DecideExpire igual que DecideCancel pero solo aplica si todas las reservas held vencieron (ExpiresAt < now).
func DecideExpire(rs []*entity.Reservation, now time.Time) Decision {
	d := DecideCancel(rs)
	if !d.Apply {
		return d
	}
	for _, r := range rs {
		if r.Status == entity.ReservationHeld && !r.ExpiresAt.Before(now) {
			return Decision{}
		}
	}
	return d
}

// Held filtra las reservas en estado held (las que la transición debe tocar).
func Held(rs []*entity.Reservation) []*entity.Reservation {
	out := make([]*entity.Reservation, 0, len(rs))
	for _, r := range rs {
		if r.Status == entity.ReservationHeld {
			out = append(out, r)
		}
	}
	return out
}
