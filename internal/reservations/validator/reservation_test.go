package validator

import (
	"errors"
	"testing"

	"kitchenrent/pkg/logger"
	"kitchenrent/pkg/model"
)

func newTestValidator() *ReservationValidator {
	log := logger.New(logger.Config{
		Level:     "error",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
	})
	return NewReservationValidator(log)
}

func strPtr(s string) *string { return &s }

func TestValidateCreate(t *testing.T) {
	v := newTestValidator()

	valid := func() *model.ReservationCreate {
		return &model.ReservationCreate{
			EquipmentID:     "665f1c2e9b1e8a3d4c5b6a79",
			StartDate:       "2025-07-01",
			EndDate:         "2025-07-04",
			DeliveryAddress: "12 Baker Street, London",
		}
	}

	tests := []struct {
		name      string
		mutate    func(r *model.ReservationCreate)
		wantField string
	}{
		{"valid request", func(r *model.ReservationCreate) {}, ""},
		{"missing equipment", func(r *model.ReservationCreate) { r.EquipmentID = "" }, "EquipmentID"},
		{"equipment not an object id", func(r *model.ReservationCreate) { r.EquipmentID = "oven-1" }, "EquipmentID"},
		{"bad start format", func(r *model.ReservationCreate) { r.StartDate = "01/07/2025" }, "StartDate"},
		{"missing end", func(r *model.ReservationCreate) { r.EndDate = "" }, "EndDate"},
		{"short address", func(r *model.ReservationCreate) { r.DeliveryAddress = "x" }, "DeliveryAddress"},
		{"blank address", func(r *model.ReservationCreate) { r.DeliveryAddress = "       " }, "DeliveryAddress"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(req)
			err := v.ValidateCreate(req)

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %T: %v", err, err)
			}
			found := false
			for _, e := range verrs {
				if e.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on field %s, got %v", tt.wantField, verrs)
			}
		})
	}
}

func TestValidateUpdate(t *testing.T) {
	v := newTestValidator()

	if err := v.ValidateUpdate(&model.ReservationUpdate{}); err == nil {
		t.Errorf("empty patch should be rejected")
	}
	if err := v.ValidateUpdate(&model.ReservationUpdate{Notes: strPtr("ring twice")}); err != nil {
		t.Errorf("notes-only patch should pass, got %v", err)
	}
	if err := v.ValidateUpdate(&model.ReservationUpdate{EndDate: strPtr("2025-13-01")}); err == nil {
		t.Errorf("invalid month should be rejected")
	}
	if err := v.ValidateUpdate(&model.ReservationUpdate{DeliveryAddress: strPtr("         ")}); err == nil {
		t.Errorf("blank address should be rejected")
	}
}

func TestValidateRefund(t *testing.T) {
	v := newTestValidator()
	negative := int64(-5)
	positive := int64(500)

	if err := v.ValidateRefund(&model.RefundRequest{}); err != nil {
		t.Errorf("full refund should pass, got %v", err)
	}
	if err := v.ValidateRefund(&model.RefundRequest{Amount: &positive}); err != nil {
		t.Errorf("positive amount should pass, got %v", err)
	}
	if err := v.ValidateRefund(&model.RefundRequest{Amount: &negative}); err == nil {
		t.Errorf("negative amount should be rejected")
	}
}
