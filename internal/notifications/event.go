package notifications

import (
	"time"

	"kitchenrent/pkg/model"

	"github.com/google/uuid"
)

type EventType string

const (
	ReservationCreated      EventType = "reservation.created"
	ReservationUpdated      EventType = "reservation.updated"
	ReservationConfirmed    EventType = "reservation.confirmed"
	ReservationStarted      EventType = "reservation.started"
	ReservationCompleted    EventType = "reservation.completed"
	ReservationCancelled    EventType = "reservation.cancelled"
	ReservationDeleted      EventType = "reservation.deleted"
	ReservationStartingSoon EventType = "reservation.starting_soon"
	ReservationOverdue      EventType = "reservation.overdue"
	PaymentFailed           EventType = "payment.failed"
	PaymentRefunded         EventType = "payment.refunded"
)

type Audience string

const (
	AudienceCustomer  Audience = "customer"
	AudienceOperators Audience = "operators"
)

// Event is the envelope pushed to the notification topics.
type Event struct {
	ID            string                  `json:"event_id"`
	Type          EventType               `json:"type"`
	ReservationID string                  `json:"reservation_id"`
	CustomerID    string                  `json:"customer_id"`
	EquipmentID   string                  `json:"equipment_id"`
	Status        model.ReservationStatus `json:"status"`
	TotalAmount   int64                   `json:"total_amount"`
	Currency      string                  `json:"currency,omitempty"`
	OccurredAt    time.Time               `json:"occurred_at"`
	Data          map[string]any          `json:"data,omitempty"`
}

// NewReservationEvent snapshots r into an event envelope.
func NewReservationEvent(eventType EventType, r *model.Reservation) Event {
	return Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		ReservationID: r.ID,
		CustomerID:    r.CustomerID,
		EquipmentID:   r.EquipmentID,
		Status:        r.Status,
		TotalAmount:   r.TotalAmount,
		Currency:      r.Currency,
		OccurredAt:    time.Now().UTC(),
	}
}

func (e Event) With(key string, value any) Event {
	data := make(map[string]any, len(e.Data)+1)
	for k, v := range e.Data {
		data[k] = v
	}
	data[key] = value
	e.Data = data
	return e
}
