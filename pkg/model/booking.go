package model

import (
	"time"
)

const (
	PaymentCreditCard = "CreditCard"
	PaymentDebitCard  = "DebitCard"
	PaymentWallet     = "Wallet"
)

// Booking is immutable once persisted, apart from the reminder flag.
type Booking struct {
	ID              string       `json:"id,omitempty" bson:"_id,omitempty"`
	RiderID         string       `json:"rider_id" bson:"rider_id"`
	OfferingID      string       `json:"offering_id" bson:"offering_id"`
	OfferingKind    OfferingKind `json:"offering_kind" bson:"offering_kind"`
	PaymentType     string       `json:"payment_type" bson:"payment_type"`
	PaymentAmount   float64      `json:"payment_amount" bson:"payment_amount"`
	UnitPrice       float64      `json:"unit_price" bson:"unit_price"`
	Currency        string       `json:"currency,omitempty" bson:"currency,omitempty"`
	NumberOfTickets int          `json:"number_of_tickets" bson:"number_of_tickets"`
	ScheduledDate   time.Time    `json:"scheduled_date" bson:"scheduled_date"`
	PointsEarned    float64      `json:"points_earned" bson:"points_earned"`
	ReminderSent    bool         `json:"reminder_sent" bson:"reminder_sent"`
	CreatedAt       time.Time    `json:"created_at" bson:"created_at"`
}

type BookingRequest struct {
	OfferingID      string     `json:"offering_id" validate:"required,mongodb"`
	PaymentType     string     `json:"payment_type" validate:"required,oneof=CreditCard DebitCard Wallet"`
	PaymentAmount   *float64   `json:"payment_amount,omitempty" validate:"omitempty,gte=0"`
	NumberOfTickets int        `json:"number_of_tickets" validate:"required,min=1,max=100"`
	ScheduledDate   *time.Time `json:"scheduled_date,omitempty" validate:"omitempty"`
}

// BookingReceipt is the combined result of a successful booking.
type BookingReceipt struct {
	Booking *Booking      `json:"booking"`
	Rider   RiderSnapshot `json:"rider"`
}

// CancellationReceipt is returned after a booking is cancelled and refunded.
type CancellationReceipt struct {
	BookingID string        `json:"booking_id"`
	Refunded  float64       `json:"refunded"`
	Rider     RiderSnapshot `json:"rider"`
}
