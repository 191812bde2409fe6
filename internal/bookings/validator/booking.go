package validator

import (
	"tripmarket/pkg/logger"
	"tripmarket/pkg/model"
	"tripmarket/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type ValidationErrors = validation.Errors

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	log.Info("Booking validator initialized successfully")
	return &BookingValidator{
		validate: validation.New(),
		logger:   log,
	}
}

// Validate checks the request shape only. Availability and pricing depend on
// the offering and are checked by the service.
func (v *BookingValidator) Validate(req *model.BookingRequest) error {
	return validation.Struct(v.validate, req)
}

// ValidateSchedule requires an explicit date for multi-date offerings.
func (v *BookingValidator) ValidateSchedule(req *model.BookingRequest, kind model.OfferingKind) error {
	if kind == model.KindItinerary && req.ScheduledDate == nil {
		return ValidationErrors{{
			Field:   "scheduled_date",
			Message: "scheduled_date is required for itinerary bookings",
		}}
	}
	return nil
}
