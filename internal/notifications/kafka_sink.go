package notifications

import (
	"context"

	"kitchenrent/pkg/kafka"
)

const schemaVersion = "1"

type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// KafkaSink writes events through the shared producer.
type KafkaSink struct {
	producer Publisher
	source   string
}

func NewKafkaSink(producer Publisher, source string) *KafkaSink {
	return &KafkaSink{producer: producer, source: source}
}

func (s *KafkaSink) Publish(ctx context.Context, topic, key string, event Event) error {
	msg, err := kafka.NewMessage().
		WithTopic(topic).
		WithKey(key).
		WithValue(event).
		WithEventID(event.ID).
		WithEventType(string(event.Type)).
		WithCorrelationID(event.ReservationID).
		WithSchemaVersion(schemaVersion).
		WithSource(s.source).
		WithTimestamp(event.OccurredAt).
		Build()
	if err != nil {
		return err
	}
	return s.producer.Publish(ctx, msg)
}
