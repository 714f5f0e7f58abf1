package model

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for reservation window dates.
const DateLayout = "2006-01-02"

type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusActive    ReservationStatus = "active"
	StatusCompleted ReservationStatus = "completed"
	StatusCancelled ReservationStatus = "cancelled"
)

// BlockingStatuses are the statuses that occupy an equipment's timeline.
var BlockingStatuses = []ReservationStatus{StatusPending, StatusConfirmed, StatusActive}

// EditableStatuses are the non-terminal statuses, in which address and notes may change.
var EditableStatuses = []ReservationStatus{StatusPending, StatusConfirmed, StatusActive}

// ReschedulableStatuses are the statuses in which the rental window may change.
var ReschedulableStatuses = []ReservationStatus{StatusPending, StatusConfirmed}

// DeletableStatuses are the statuses in which a reservation may be removed.
var DeletableStatuses = []ReservationStatus{StatusPending, StatusCancelled}

func (s ReservationStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s ReservationStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s ReservationStatus) In(set []ReservationStatus) bool {
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}

type Reservation struct {
	ID              string            `json:"id,omitempty" bson:"_id,omitempty"`
	CustomerID      string            `json:"customer_id" bson:"customer_id"`
	EquipmentID     string            `json:"equipment_id" bson:"equipment_id"`
	StartDate       time.Time         `json:"start_date" bson:"start_date"`
	EndDate         time.Time         `json:"end_date" bson:"end_date"`
	DeliveryAddress string            `json:"delivery_address" bson:"delivery_address"`
	Status          ReservationStatus `json:"status" bson:"status"`
	TotalAmount     int64             `json:"total_amount" bson:"total_amount"`
	Currency        string            `json:"currency" bson:"currency"`
	Notes           string            `json:"notes,omitempty" bson:"notes,omitempty"`
	CreatedAt       time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" bson:"updated_at"`
}

// ReservationCreate is the inbound shape of a new reservation request.
// CustomerID is only honoured when an operator books on behalf of a customer.
type ReservationCreate struct {
	CustomerID      string `json:"customer_id,omitempty" validate:"omitempty,min=1,max=64"`
	EquipmentID     string `json:"equipment_id" validate:"required,mongodb"`
	StartDate       string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate         string `json:"end_date" validate:"required,datetime=2006-01-02"`
	DeliveryAddress string `json:"delivery_address" validate:"required,min=5,max=300"`
	Notes           string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// ReservationUpdate is a partial patch; nil fields are left untouched.
type ReservationUpdate struct {
	StartDate       *string `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate         *string `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DeliveryAddress *string `json:"delivery_address,omitempty" validate:"omitempty,min=5,max=300"`
	Notes           *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

func (u *ReservationUpdate) IsEmpty() bool {
	return u.StartDate == nil && u.EndDate == nil && u.DeliveryAddress == nil && u.Notes == nil
}

func (u *ReservationUpdate) ChangesWindow() bool {
	return u.StartDate != nil || u.EndDate != nil
}

type ReservationFilter struct {
	CustomerID  string
	EquipmentID string
	Status      ReservationStatus
	StartFrom   *time.Time
	StartTo     *time.Time
	EndFrom     *time.Time
	EndTo       *time.Time
}

// ParseDate parses a YYYY-MM-DD value as midnight UTC.
func ParseDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return t, nil
}

// TruncateDay strips the time of day, normalising to UTC.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
