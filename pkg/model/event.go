package model

import "time"

const (
	EventBookingCreated   = "booking.created"
	EventBookingCancelled = "booking.cancelled"
	EventBookingReminder  = "booking.reminder"
)

// BookingEvent is the payload published on the booking events topic.
type BookingEvent struct {
	Type          string       `json:"type"`
	BookingID     string       `json:"booking_id"`
	RiderID       string       `json:"rider_id"`
	RiderEmail    string       `json:"rider_email,omitempty"`
	RiderPhone    string       `json:"rider_phone,omitempty"`
	OfferingID    string       `json:"offering_id"`
	OfferingKind  OfferingKind `json:"offering_kind"`
	OfferingName  string       `json:"offering_name,omitempty"`
	PaymentType   string       `json:"payment_type,omitempty"`
	PaymentAmount float64      `json:"payment_amount"`
	Currency      string       `json:"currency,omitempty"`
	ScheduledDate time.Time    `json:"scheduled_date"`
	PointsEarned  float64      `json:"points_earned,omitempty"`
	OccurredAt    time.Time    `json:"occurred_at"`
}
