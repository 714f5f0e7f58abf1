package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"kitchenrent/pkg/kafka"
	"kitchenrent/pkg/logger"
	"kitchenrent/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	topic string
	key   string
	event Event
}

type recordingSink struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (s *recordingSink) Publish(ctx context.Context, topic, key string, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, published{topic: topic, key: key, event: event})
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: logger.JSON, Service: "test"})
}

func sampleReservation() *model.Reservation {
	return &model.Reservation{
		ID:          "r1",
		CustomerID:  "c1",
		EquipmentID: "e1",
		Status:      model.StatusPending,
		TotalAmount: 150,
		Currency:    "usd",
	}
}

// newTestNotifier runs a single worker so deliveries keep their order.
func newTestNotifier(t *testing.T, sink Sink, topics Topics) *Notifier {
	t.Helper()
	return NewNotifier(sink, topics, Options{PublishTimeout: time.Second, Buffer: 16, Workers: 1}, testLogger())
}

// drain closes n and waits for queued deliveries.
func drain(t *testing.T, n *Notifier) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, n.Close(ctx))
}

func TestNotify_RoutesByAudience(t *testing.T) {
	sink := &recordingSink{}
	n := newTestNotifier(t, sink, Topics{Customer: "cust", Operators: "ops"})

	n.Notify(context.Background(), NewReservationEvent(ReservationCreated, sampleReservation()), AudienceCustomer, AudienceOperators)
	drain(t, n)

	require.Len(t, sink.sent, 2)
	assert.Equal(t, "cust", sink.sent[0].topic)
	assert.Equal(t, "c1", sink.sent[0].key)
	assert.Equal(t, "ops", sink.sent[1].topic)
	assert.Equal(t, "e1", sink.sent[1].key)
	assert.Equal(t, sink.sent[0].event.ID, sink.sent[1].event.ID)
}

func TestNotify_SinkFailureIsSwallowed(t *testing.T) {
	sink := &recordingSink{err: errors.New("broker unreachable")}
	n := newTestNotifier(t, sink, Topics{Customer: "cust", Operators: "ops"})

	assert.NotPanics(t, func() {
		n.Notify(context.Background(), NewReservationEvent(ReservationCancelled, sampleReservation()), AudienceCustomer)
	})
	drain(t, n)
}

func TestNotify_CancelledCallerStillPublishes(t *testing.T) {
	sink := &recordingSink{}
	n := newTestNotifier(t, sink, Topics{Customer: "cust"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n.Notify(ctx, NewReservationEvent(ReservationConfirmed, sampleReservation()), AudienceCustomer)
	drain(t, n)

	assert.Len(t, sink.sent, 1)
}

// hangingSink blocks every publish until its context ends.
type hangingSink struct {
	mu       sync.Mutex
	attempts int
}

func (s *hangingSink) Publish(ctx context.Context, topic, key string, event Event) error {
	s.mu.Lock()
	s.attempts++
	s.mu.Unlock()
	<-ctx.Done()
	return ctx.Err()
}

func (s *hangingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

func TestNotify_HangingSinkDoesNotBlockCaller(t *testing.T) {
	sink := &hangingSink{}
	n := NewNotifier(sink, Topics{Customer: "cust", Operators: "ops"}, Options{PublishTimeout: 200 * time.Millisecond, Buffer: 16, Workers: 1}, testLogger())

	started := time.Now()
	n.Notify(context.Background(), NewReservationEvent(ReservationCreated, sampleReservation()), AudienceCustomer, AudienceOperators)
	assert.Less(t, time.Since(started), 50*time.Millisecond)

	// Each audience gets its own publish budget, so both are attempted.
	drain(t, n)
	assert.Equal(t, 2, sink.count())
}

func TestNotify_FullQueueDrops(t *testing.T) {
	sink := &hangingSink{}
	n := NewNotifier(sink, Topics{Customer: "cust"}, Options{PublishTimeout: 100 * time.Millisecond, Buffer: 1, Workers: 1}, testLogger())

	started := time.Now()
	for i := 0; i < 10; i++ {
		n.Notify(context.Background(), NewReservationEvent(ReservationUpdated, sampleReservation()), AudienceCustomer)
	}
	assert.Less(t, time.Since(started), 50*time.Millisecond)

	drain(t, n)
	assert.Less(t, sink.count(), 10)
}

func TestNotify_AfterCloseIsDropped(t *testing.T) {
	sink := &recordingSink{}
	n := newTestNotifier(t, sink, Topics{Customer: "cust"})
	drain(t, n)

	assert.NotPanics(t, func() {
		n.Notify(context.Background(), NewReservationEvent(ReservationConfirmed, sampleReservation()), AudienceCustomer)
	})
	assert.Empty(t, sink.sent)
	require.NoError(t, n.Close(context.Background()))
}

func TestNilNotifierIsNoop(t *testing.T) {
	var n *Notifier
	assert.NotPanics(t, func() {
		n.Notify(context.Background(), Event{}, AudienceCustomer)
	})
	assert.NoError(t, n.Close(context.Background()))
}

func TestEventWith_DoesNotAlias(t *testing.T) {
	base := NewReservationEvent(PaymentRefunded, sampleReservation())
	a := base.With("refund_amount", int64(50))
	b := base.With("refund_id", "re_1")

	assert.Nil(t, base.Data)
	assert.Len(t, a.Data, 1)
	assert.Len(t, b.Data, 1)
}

type capturePublisher struct {
	msg kafka.Message
}

func (p *capturePublisher) Publish(ctx context.Context, msg kafka.Message) error {
	p.msg = msg
	return nil
}

func TestKafkaSink_BuildsMessage(t *testing.T) {
	p := &capturePublisher{}
	sink := NewKafkaSink(p, "reservations-api")
	event := NewReservationEvent(ReservationCreated, sampleReservation())

	require.NoError(t, sink.Publish(context.Background(), "cust", "c1", event))

	assert.Equal(t, "cust", p.msg.Topic)
	assert.Equal(t, "c1", p.msg.Key)
	assert.Equal(t, event.ID, p.msg.GetEventID())
	assert.Equal(t, string(ReservationCreated), p.msg.GetEventType())
	assert.Equal(t, "r1", p.msg.GetCorrelationID())

	var decoded Event
	require.NoError(t, json.Unmarshal(p.msg.Value, &decoded))
	assert.Equal(t, int64(150), decoded.TotalAmount)
}
