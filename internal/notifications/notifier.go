// Package notifications fans domain events out to customer and operator
// channels. Delivery is best effort: a failed publish is logged and never
// reaches the operation that produced the event.
package notifications

import (
	"context"
	"sync"
	"time"

	"kitchenrent/pkg/logger"
)

// Sink delivers one event to one topic.
type Sink interface {
	Publish(ctx context.Context, topic, key string, event Event) error
}

type Topics struct {
	Customer  string
	Operators string
}

type Options struct {
	PublishTimeout time.Duration
	Buffer         int
	Workers        int
}

type delivery struct {
	topic    string
	key      string
	audience Audience
	event    Event
}

// Notifier queues deliveries and publishes them from a fixed pool of
// workers, so a slow broker never holds up the caller. When the queue is
// full the delivery is dropped and logged.
type Notifier struct {
	sink    Sink
	topics  Topics
	timeout time.Duration
	log     *logger.Logger

	queue  chan delivery
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

func NewNotifier(sink Sink, topics Topics, opts Options, log *logger.Logger) *Notifier {
	if opts.Buffer <= 0 {
		opts.Buffer = 1
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}

	n := &Notifier{
		sink:    sink,
		topics:  topics,
		timeout: opts.PublishTimeout,
		log:     log,
		queue:   make(chan delivery, opts.Buffer),
	}
	for i := 0; i < opts.Workers; i++ {
		n.wg.Add(1)
		go n.run()
	}
	return n
}

// Notify queues event once per audience and returns immediately. Customer
// messages are keyed by customer so a customer's feed stays ordered;
// operator messages are keyed by equipment for the same reason.
func (n *Notifier) Notify(_ context.Context, event Event, audiences ...Audience) {
	if n == nil || n.sink == nil {
		return
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		n.log.Warn("Notification dropped, notifier closed", "type", event.Type, "reservation_id", event.ReservationID)
		return
	}

	for _, audience := range audiences {
		topic, key := n.route(audience, event)
		if topic == "" || key == "" {
			n.log.Warn("Notification skipped, no route", "type", event.Type, "audience", audience, "reservation_id", event.ReservationID)
			continue
		}

		select {
		case n.queue <- delivery{topic: topic, key: key, audience: audience, event: event}:
		default:
			n.log.Error("Notification dropped, queue full",
				"type", event.Type,
				"audience", audience,
				"reservation_id", event.ReservationID,
				"event_id", event.ID,
			)
		}
	}
}

// Close stops accepting events and waits for queued ones to be published,
// or for ctx to expire.
func (n *Notifier) Close(ctx context.Context) error {
	if n == nil || n.sink == nil {
		return nil
	}

	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		n.log.Warn("Notifier closed with deliveries pending", "pending", len(n.queue))
		return ctx.Err()
	}
}

func (n *Notifier) run() {
	defer n.wg.Done()
	for d := range n.queue {
		n.publish(d)
	}
}

// publish gives every delivery its own budget so one stalled topic cannot
// starve the next.
func (n *Notifier) publish(d delivery) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	if err := n.sink.Publish(ctx, d.topic, d.key, d.event); err != nil {
		n.log.Error("Failed to publish notification",
			"type", d.event.Type,
			"audience", d.audience,
			"reservation_id", d.event.ReservationID,
			"event_id", d.event.ID,
			"error", err,
		)
		return
	}
	n.log.Debug("Notification published", "type", d.event.Type, "audience", d.audience, "event_id", d.event.ID)
}

func (n *Notifier) route(audience Audience, event Event) (string, string) {
	switch audience {
	case AudienceCustomer:
		return n.topics.Customer, event.CustomerID
	case AudienceOperators:
		return n.topics.Operators, event.EquipmentID
	}
	return "", ""
}
