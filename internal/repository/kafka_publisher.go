package repository

import (
	"context"
	"fmt"

	"MarketLens/internal/domain/models"
	"MarketLens/internal/domain/repository"
	pkgkafka "MarketLens/pkg/kafka"
)

// KafkaPublisher implements Publisher for the record firehose. Every
// validated record goes to a single topic, keyed by venue|symbol|kind
// so one stream's records land on one partition in order.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

type recordEnvelope struct {
	Kind    models.Kind   `json:"kind"`
	Venue   string        `json:"venue"`
	Symbol  string        `json:"symbol"`
	Payload models.Record `json:"payload"`
}

func (p *KafkaPublisher) PublishRecord(ctx context.Context, rec models.Record) error {
	k := rec.RecordKey()
	key := fmt.Sprintf("%s|%s|%s", k.Venue, k.Symbol, k.Kind)
	return p.producer.Publish(ctx, p.topic, []byte(key), recordEnvelope{
		Kind:    k.Kind,
		Venue:   k.Venue,
		Symbol:  k.Symbol,
		Payload: rec,
	})
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
