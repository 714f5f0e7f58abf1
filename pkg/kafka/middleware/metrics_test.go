package middleware

import (
	"context"
	"errors"
	"testing"

	"kitchenrent/pkg/kafka"
)

func TestMetricsMiddleware_Counts(t *testing.T) {
	m := GetMetrics()
	m.Reset()

	publish := MetricsProducerMiddleware()
	consume := MetricsConsumerMiddleware()
	ok := func(ctx context.Context, msg kafka.Message) error { return nil }
	fail := func(ctx context.Context, msg kafka.Message) error { return errors.New("broker down") }

	_ = publish(context.Background(), kafka.Message{}, ok)
	_ = publish(context.Background(), kafka.Message{}, ok)
	_ = publish(context.Background(), kafka.Message{}, fail)
	_ = consume(context.Background(), kafka.Message{}, ok)
	_ = consume(context.Background(), kafka.Message{}, fail)

	s := m.Snapshot()
	if s.Published != 2 || s.PublishFailed != 1 {
		t.Errorf("unexpected producer counters: %+v", s)
	}
	if s.Consumed != 1 || s.ConsumeFailed != 1 {
		t.Errorf("unexpected consumer counters: %+v", s)
	}
}

func TestMetricsMiddleware_PropagatesError(t *testing.T) {
	GetMetrics().Reset()
	want := errors.New("boom")
	got := MetricsConsumerMiddleware()(context.Background(), kafka.Message{}, func(ctx context.Context, msg kafka.Message) error {
		return want
	})
	if !errors.Is(got, want) {
		t.Errorf("expected handler error to pass through, got %v", got)
	}
}
