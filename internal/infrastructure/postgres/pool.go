package postgres

import (
	"context"
	"fmt"
	"net"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/storefront-checkout/pkg/config"
)

// PoolSize límites de conexiones del pool. Cero usa los valores por defecto de pgxpool.
type PoolSize struct {
	Max int32
	Min int32
}

// NewPool abre el pool de la tienda con el tamaño configurado en DB_MAX_CONNS / DB_MIN_CONNS.
func NewPool(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	return Connect(ctx, cfg.ConnectionString(), PoolSize{Max: cfg.MaxConns, Min: cfg.MinConns})
}

// Connect abre un pool desde un DSN. Cada conexión nueva registra el codec
// NUMERIC <-> decimal.Decimal, que usan precios y totales de órdenes.
func Connect(ctx context.Context, dsn string, size PoolSize) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}

	pc.ConnConfig.DialFunc = dialPreferIPv4
	if size.Max > 0 {
		pc.MaxConns = size.Max
	}
	if size.Min > 0 && size.Min <= pc.MaxConns {
		pc.MinConns = size.Min
	}
	// Checkout, webhooks y sweeper abren transacciones cortas; no hace falta retener conexiones ociosas mucho tiempo.
	pc.MaxConnIdleTime = 15 * time.Minute
	pc.MaxConnLifetime = time.Hour
	pc.HealthCheckPeriod = time.Minute

	pc.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("crear pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping DB: %w", err)
	}
	return pool, nil
}

// dialPreferIPv4 conecta por IPv4 cuando el host lo resuelve; en contenedores sin IPv6 el dial por defecto se cuelga.
func dialPreferIPv4(ctx context.Context, network, addr string) (net.Conn, error) {
	d := &net.Dialer{Timeout: 5 * time.Second}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	if ip := net.ParseIP(host); ip != nil {
		return d.DialContext(ctx, network, addr)
	}
	ips, err := net.DefaultResolver.LookupIP(ctx, "ip4", host)
	if err != nil || len(ips) == 0 {
		return d.DialContext(ctx, network, addr)
	}
	return d.DialContext(ctx, "tcp4", net.JoinHostPort(ips[0].String(), port))
}
