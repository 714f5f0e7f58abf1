package validator

import (
	"errors"
	"fmt"
	"strings"

	"kitchenrent/pkg/logger"
	"kitchenrent/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// ReservationValidator checks the shape of inbound reservation requests.
// Business rules on the window live in ValidateCreationWindow.
type ReservationValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewReservationValidator(log *logger.Logger) *ReservationValidator {
	v := validator.New()

	if err := v.RegisterValidation("not_blank", validateNotBlank); err != nil {
		log.Fatal("Failed to register 'not_blank' validator", "error", err)
	}

	log.Info("Reservation validator initialized successfully")

	return &ReservationValidator{
		validate: v,
		logger:   log,
	}
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func (v *ReservationValidator) ValidateCreate(req *model.ReservationCreate) error {
	if err := v.structErrors(req); err != nil {
		return err
	}
	if strings.TrimSpace(req.DeliveryAddress) == "" {
		return ValidationErrors{{Field: "DeliveryAddress", Message: "DeliveryAddress is required"}}
	}
	return nil
}

func (v *ReservationValidator) ValidateUpdate(update *model.ReservationUpdate) error {
	if update.IsEmpty() {
		return ValidationErrors{{Field: "body", Message: "at least one field must be provided"}}
	}
	if err := v.structErrors(update); err != nil {
		return err
	}
	if update.DeliveryAddress != nil && strings.TrimSpace(*update.DeliveryAddress) == "" {
		return ValidationErrors{{Field: "DeliveryAddress", Message: "DeliveryAddress cannot be blank"}}
	}
	return nil
}

func (v *ReservationValidator) ValidatePaymentIntent(req *model.PaymentIntentRequest) error {
	return v.structErrors(req)
}

func (v *ReservationValidator) ValidateRefund(req *model.RefundRequest) error {
	return v.structErrors(req)
}

func (v *ReservationValidator) structErrors(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *ReservationValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s characters", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "datetime":
			message = fmt.Sprintf("%s must be a date in YYYY-MM-DD format", err.Field())
		case "gt":
			message = fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
		case "not_blank":
			message = fmt.Sprintf("%s cannot be blank", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
