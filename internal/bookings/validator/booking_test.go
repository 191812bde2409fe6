package validator

import (
	"errors"
	"io"
	"testing"
	"time"
	"tripmarket/pkg/logger"
	"tripmarket/pkg/model"
)

func newTestValidator() *BookingValidator {
	return NewBookingValidator(logger.New(logger.Config{Level: "error", Output: io.Discard}))
}

func TestValidate(t *testing.T) {
	amount := 40.0
	negative := -1.0

	tests := []struct {
		name      string
		req       model.BookingRequest
		wantField string
	}{
		{
			name: "valid wallet booking",
			req: model.BookingRequest{
				OfferingID:      "507f1f77bcf86cd799439011",
				PaymentType:     model.PaymentWallet,
				PaymentAmount:   &amount,
				NumberOfTickets: 1,
			},
		},
		{
			name: "missing offering",
			req: model.BookingRequest{
				PaymentType:     model.PaymentCreditCard,
				NumberOfTickets: 1,
			},
			wantField: "offering_id",
		},
		{
			name: "malformed offering id",
			req: model.BookingRequest{
				OfferingID:      "abc",
				PaymentType:     model.PaymentCreditCard,
				NumberOfTickets: 1,
			},
			wantField: "offering_id",
		},
		{
			name: "unknown payment type",
			req: model.BookingRequest{
				OfferingID:      "507f1f77bcf86cd799439011",
				PaymentType:     "Cash",
				NumberOfTickets: 1,
			},
			wantField: "payment_type",
		},
		{
			name: "zero tickets",
			req: model.BookingRequest{
				OfferingID:  "507f1f77bcf86cd799439011",
				PaymentType: model.PaymentDebitCard,
			},
			wantField: "number_of_tickets",
		},
		{
			name: "negative amount",
			req: model.BookingRequest{
				OfferingID:      "507f1f77bcf86cd799439011",
				PaymentType:     model.PaymentWallet,
				PaymentAmount:   &negative,
				NumberOfTickets: 2,
			},
			wantField: "payment_amount",
		},
	}

	v := newTestValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tt.req)

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}

			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
			if verrs[0].Field != tt.wantField {
				t.Errorf("expected error on %s, got %s", tt.wantField, verrs[0].Field)
			}
		})
	}
}

func TestValidateSchedule(t *testing.T) {
	v := newTestValidator()
	day := time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC)

	if err := v.ValidateSchedule(&model.BookingRequest{}, model.KindItinerary); err == nil {
		t.Error("expected itinerary without date to fail")
	}
	if err := v.ValidateSchedule(&model.BookingRequest{ScheduledDate: &day}, model.KindItinerary); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := v.ValidateSchedule(&model.BookingRequest{}, model.KindActivity); err != nil {
		t.Errorf("activity does not need a date, got %v", err)
	}
}
