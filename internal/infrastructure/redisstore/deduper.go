package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/storefront-checkout/internal/application/settlement"
)

var _ settlement.EventDeduper = (*EventDeduper)(nil)

// EventDeduper registra eventos de proveedor ya procesados con TTL.
type EventDeduper struct {
	client *redis.Client
	prefix string
}

// NewEventDeduper crea el deduper; las claves quedan como "<prefix>:<provider>:<eventID>".
func NewEventDeduper(client *redis.Client, prefix string) *EventDeduper {
	if prefix == "" {
		prefix = "webhook:processed"
	}
	return &EventDeduper{client: client, prefix: prefix}
}

// Seen indica si el evento ya se procesó.
func (d *EventDeduper) Seen(ctx context.Context, provider, eventID string) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(provider, eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

// MarkProcessed marca el evento como procesado durante ttl.
func (d *EventDeduper) MarkProcessed(ctx context.Context, provider, eventID string, ttl time.Duration) error {
	if err := d.client.Set(ctx, d.key(provider, eventID), time.Now().UTC().Format(time.RFC3339), ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (d *EventDeduper) key(provider, eventID string) string {
	return fmt.Sprintf("%s:%s:%s", d.prefix, provider, eventID)
}
