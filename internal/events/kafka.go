package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aditya/go-boleia/internal/models"
	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes seat changes keyed by ride id, so each ride's
// changes stay ordered within a partition.
type KafkaPublisher struct {
	writer  *kafka.Writer
	timeout time.Duration
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w, timeout: 2 * time.Second}
}

func (k *KafkaPublisher) PublishSeatChange(ctx context.Context, change models.SeatChange) error {
	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	b, err := json.Marshal(change)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(change.RideID), Value: b, Time: change.At})
}

func (k *KafkaPublisher) Close() error {
	if k.writer == nil {
		return nil
	}
	return k.writer.Close()
}
