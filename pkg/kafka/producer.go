package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	kafka_config "kitchenrent/pkg/kafka/config"
	"kitchenrent/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// Producer publishes to any topic; each Message names its destination.
// Messages that cannot be written are parked on the DLQ topic if one is set.
type Producer struct {
	writer     *kafka.Writer
	dlqWriter  *kafka.Writer
	log        *logger.Logger
	middleware []ProducerMiddleware
	closed     bool
	mu         sync.RWMutex
}

type ProducerMiddleware func(ctx context.Context, msg Message, next func(ctx context.Context, msg Message) error) error

func NewProducer(cfg *kafka_config.Config, log *logger.Logger, dlqTopic string) (*Producer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}

	producer := &Producer{
		writer: newWriter(cfg, log, "", requiredAcks(cfg.ProducerRequireAcks), cfg.ProducerMaxAttempts),
		log:    log,
	}

	if dlqTopic != "" {
		dlq := newWriter(cfg, log, dlqTopic, kafka.RequireAll, 3)
		dlq.Async = false
		producer.dlqWriter = dlq
	}

	return producer, nil
}

func (p *Producer) Use(middleware ProducerMiddleware) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.middleware = append(p.middleware, middleware)
}

func (p *Producer) Publish(ctx context.Context, msg Message) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrProducerClosed
	}
	chain := p.middleware
	p.mu.RUnlock()

	switch {
	case msg.Topic == "":
		return ErrEmptyTopic
	case msg.Key == "":
		return ErrEmptyKey
	case len(msg.Value) == 0:
		return ErrEmptyValue
	}

	handler := p.publish
	for i := len(chain) - 1; i >= 0; i-- {
		mw := chain[i]
		next := handler
		handler = func(ctx context.Context, m Message) error {
			return mw(ctx, m, next)
		}
	}

	return handler(ctx, msg)
}

func (p *Producer) publish(ctx context.Context, msg Message) error {
	err := p.writer.WriteMessages(ctx, toKafkaMessage(msg))
	if err == nil {
		return nil
	}

	if p.dlqWriter != nil {
		if dlqErr := p.sendToDLQ(ctx, msg, err); dlqErr != nil {
			return fmt.Errorf("publish to %s failed: %w (dlq: %v)", msg.Topic, err, dlqErr)
		}
		p.log.Warn("Message parked on DLQ", "topic", msg.Topic, "key", msg.Key, "event_id", msg.GetEventID(), "error", err)
	}
	return err
}

func (p *Producer) sendToDLQ(ctx context.Context, msg Message, cause error) error {
	headers := make(map[string]string, len(msg.Headers)+3)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[HeaderOriginalTopic] = msg.Topic
	headers[HeaderDLQError] = cause.Error()
	headers[HeaderDLQTimestamp] = time.Now().UTC().Format(time.RFC3339)

	parked := msg
	parked.Topic = ""
	parked.Headers = headers
	parked.Timestamp = time.Now()

	return p.dlqWriter.WriteMessages(ctx, toKafkaMessage(parked))
}

func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	err := p.writer.Close()
	if p.dlqWriter != nil {
		if dlqErr := p.dlqWriter.Close(); err == nil {
			err = dlqErr
		}
	}
	return err
}
