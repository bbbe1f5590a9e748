package stock

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/storefront-checkout/internal/application/ports"
	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
	"github.com/jhoicas/storefront-checkout/internal/infrastructure/memory"
	"github.com/jhoicas/storefront-checkout/pkg/logger"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []ports.CheckoutEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev ports.CheckoutEvent) error {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) count(kind string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, ev := range p.events {
		if ev.Type == kind {
			n++
		}
	}
	return n
}

func TestSweepOnce_ExpiraSoloVencidas(t *testing.T) {
	clk := &clock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	store := memory.NewStore(clk.Now)
	store.SetStock("t1", "p1", "", 10)
	pub := &recordingPublisher{}
	sw := NewSweeper(store, pub, logger.Nop(), SweeperConfig{Interval: time.Second, Batch: 2, Now: clk.Now})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.Reserve(ctx, entity.ReserveInput{TenantID: "t1", PieceID: "p1", Quantity: 1, SessionID: fmt.Sprintf("viejo-%d", i), HoldMinutes: 10})
		require.NoError(t, err)
	}
	clk.Advance(5 * time.Minute)
	_, err := store.Reserve(ctx, entity.ReserveInput{TenantID: "t1", PieceID: "p1", Quantity: 1, SessionID: "nuevo", HoldMinutes: 10})
	require.NoError(t, err)

	clk.Advance(6 * time.Minute)
	n, err := sw.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n, "procesa varios lotes hasta vaciar el backlog")
	assert.Equal(t, 5, pub.count(ports.EventReservationExpired))
	assert.Equal(t, 9, available(t, store, "t1", "p1", ""))

	rs, err := store.ListBySession(ctx, "t1", "nuevo")
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, entity.ReservationHeld, rs[0].Status)

	n, err = sw.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "un segundo barrido no libera nada")
}

func TestSweepOnce_NoTocaSesionConfirmada(t *testing.T) {
	clk := &clock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	store := memory.NewStore(clk.Now)
	store.SetStock("t1", "p1", "", 1)
	sw := NewSweeper(store, nil, logger.Nop(), SweeperConfig{Now: clk.Now})
	ctx := context.Background()

	_, err := store.Reserve(ctx, entity.ReserveInput{TenantID: "t1", PieceID: "p1", Quantity: 1, SessionID: "s1", HoldMinutes: 1})
	require.NoError(t, err)
	ok, err := store.Commit(ctx, "t1", "s1")
	require.NoError(t, err)
	require.True(t, ok)

	clk.Advance(time.Hour)
	n, err := sw.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	u, err := store.GetStockUnit(ctx, "t1", "p1", "")
	require.NoError(t, err)
	assert.Equal(t, 0, u.AvailableQuantity)
	assert.Equal(t, 1, u.SoldQuantity)
}

func TestSweeperRun_SeDetieneConContexto(t *testing.T) {
	store := memory.NewStore(nil)
	sw := NewSweeper(store, nil, logger.Nop(), SweeperConfig{Interval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sw.Run(ctx)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("el sweeper no se detuvo")
	}
}
