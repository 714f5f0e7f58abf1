package model

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
)

func TestReservationStatus_Helpers(t *testing.T) {
	tests := []struct {
		status   ReservationStatus
		valid    bool
		terminal bool
		blocking bool
	}{
		{StatusPending, true, false, true},
		{StatusConfirmed, true, false, true},
		{StatusActive, true, false, true},
		{StatusCompleted, true, true, false},
		{StatusCancelled, true, true, false},
		{ReservationStatus("archived"), false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if tt.status.IsValid() != tt.valid {
				t.Errorf("IsValid() = %v, want %v", tt.status.IsValid(), tt.valid)
			}
			if tt.status.IsTerminal() != tt.terminal {
				t.Errorf("IsTerminal() = %v, want %v", tt.status.IsTerminal(), tt.terminal)
			}
			if tt.status.In(BlockingStatuses) != tt.blocking {
				t.Errorf("In(BlockingStatuses) = %v, want %v", tt.status.In(BlockingStatuses), tt.blocking)
			}
		})
	}
}

func TestReservationCreate_Validation(t *testing.T) {
	v := validator.New()

	valid := ReservationCreate{
		EquipmentID:     "507f1f77bcf86cd799439011",
		StartDate:       "2026-11-01",
		EndDate:         "2026-11-04",
		DeliveryAddress: "12 Baker Street, London",
	}

	tests := []struct {
		name        string
		mutate      func(r *ReservationCreate)
		expectValid bool
	}{
		{"valid request", func(r *ReservationCreate) {}, true},
		{"missing equipment", func(r *ReservationCreate) { r.EquipmentID = "" }, false},
		{"equipment not an object id", func(r *ReservationCreate) { r.EquipmentID = "oven-42" }, false},
		{"bad start format", func(r *ReservationCreate) { r.StartDate = "01/11/2026" }, false},
		{"missing end", func(r *ReservationCreate) { r.EndDate = "" }, false},
		{"empty address", func(r *ReservationCreate) { r.DeliveryAddress = "" }, false},
		{"notes optional", func(r *ReservationCreate) { r.Notes = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			err := v.Struct(req)
			if tt.expectValid && err != nil {
				t.Errorf("expected valid, got: %v", err)
			}
			if !tt.expectValid && err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestReservationUpdate_Flags(t *testing.T) {
	start := "2026-11-02"
	notes := "ring the bell"

	if !(&ReservationUpdate{}).IsEmpty() {
		t.Errorf("empty patch should report IsEmpty")
	}
	if (&ReservationUpdate{Notes: &notes}).ChangesWindow() {
		t.Errorf("notes-only patch should not change the window")
	}
	if !(&ReservationUpdate{StartDate: &start}).ChangesWindow() {
		t.Errorf("start-only patch should change the window")
	}
}

func TestParseDateAndTruncateDay(t *testing.T) {
	d, err := ParseDate("2026-03-09")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Equal(time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected parsed date: %v", d)
	}

	if _, err := ParseDate("2026-13-01"); err == nil {
		t.Errorf("expected error for month 13")
	}

	loc := time.FixedZone("UTC+3", 3*3600)
	got := TruncateDay(time.Date(2026, 3, 10, 1, 30, 0, 0, loc))
	if !got.Equal(time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("TruncateDay should normalise to the UTC calendar day, got %v", got)
	}
}

func TestActor_Roles(t *testing.T) {
	if !(Actor{Role: RoleAdmin}).IsOperator() || !(Actor{Role: RoleLogistics}).IsOperator() {
		t.Errorf("admin and logistics must be operators")
	}
	if (Actor{Role: RoleCustomer}).IsOperator() {
		t.Errorf("customer must not be an operator")
	}
	if RoleSystem.IsValid() {
		t.Errorf("system role must not be accepted from tokens")
	}
	if !SystemActor("payment-reconciler").IsSystem() {
		t.Errorf("SystemActor should carry the system role")
	}
}
