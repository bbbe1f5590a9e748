// Package events publica el stream de eventos de checkout (Kafka o log).
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jhoicas/storefront-checkout/internal/application/ports"
	"github.com/jhoicas/storefront-checkout/pkg/logger"
)

var _ ports.EventPublisher = (*KafkaPublisher)(nil)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher escribe un mensaje por evento, con clave tenant:sesión para conservar el orden
// de una misma sesión dentro de la partición.
type KafkaPublisher struct {
	writer messageWriter
	log    *logger.Logger
}

// NewKafkaPublisher crea el writer hacia topic.
func NewKafkaPublisher(brokers []string, topic string, log *logger.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
	return &KafkaPublisher{writer: w, log: log.Component("events.kafka")}
}

// Publish serializa el evento como JSON.
func (p *KafkaPublisher) Publish(ctx context.Context, ev ports.CheckoutEvent) error {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("serializar evento %s: %w", ev.Type, err)
	}
	msg := kafka.Message{
		Key:   []byte(ev.TenantID + ":" + ev.SessionID),
		Value: data,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publicar %s: %w", ev.Type, err)
	}
	return nil
}

// Close vacía y cierra el writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
