// Package events turns booking lifecycle changes into messages on the
// booking events topic.
package events

import (
	"context"
	"errors"
	"time"
	"tripmarket/pkg/kafka"
	"tripmarket/pkg/logger"
	"tripmarket/pkg/middleware"
	"tripmarket/pkg/model"
	"tripmarket/pkg/sanitizer"
)

const SchemaVersion = "1"

var ErrEncodeEvent = errors.New("failed to encode booking event")

type Publisher interface {
	Publish(ctx context.Context, event model.BookingEvent) error
}

// MessageProducer is satisfied by *kafka.Producer.
type MessageProducer interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// NewBookingEvent snapshots a booking together with the contact details the
// notifier needs. Offering and rider may be nil.
func NewBookingEvent(eventType string, booking *model.Booking, offering *model.Offering, rider *model.Rider, at time.Time) model.BookingEvent {
	event := model.BookingEvent{
		Type:          eventType,
		BookingID:     booking.ID,
		RiderID:       booking.RiderID,
		OfferingID:    booking.OfferingID,
		OfferingKind:  booking.OfferingKind,
		PaymentType:   booking.PaymentType,
		PaymentAmount: booking.PaymentAmount,
		Currency:      booking.Currency,
		ScheduledDate: booking.ScheduledDate,
		PointsEarned:  booking.PointsEarned,
		OccurredAt:    at.UTC(),
	}
	if offering != nil {
		event.OfferingName = offering.Name
	}
	if rider != nil {
		event.RiderEmail = rider.Email
		event.RiderPhone = sanitizer.NormalizePhone(rider.Phone)
	}
	return event
}

type KafkaPublisher struct {
	producer MessageProducer
	source   string
	log      *logger.Logger
}

func NewKafkaPublisher(producer MessageProducer, source string, log *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		source:   source,
		log:      log,
	}
}

// Publish keys messages by booking ID so every event of one booking lands on
// the same partition.
func (p *KafkaPublisher) Publish(ctx context.Context, event model.BookingEvent) error {
	msg := kafka.NewMessage().
		WithKey(event.BookingID).
		WithValue(event).
		WithEventType(event.Type).
		WithSource(p.source).
		WithSchemaVersion(SchemaVersion).
		WithCorrelationID(middleware.RequestIDFromContext(ctx)).
		Build()

	if len(msg.Value) == 0 {
		return ErrEncodeEvent
	}

	return p.producer.Publish(ctx, msg)
}

// LogPublisher is used when Kafka is disabled. Events are only logged.
type LogPublisher struct {
	log *logger.Logger
}

func NewLogPublisher(log *logger.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(ctx context.Context, event model.BookingEvent) error {
	p.log.Debug("Booking event not published, kafka disabled",
		"type", event.Type,
		"booking_id", event.BookingID,
	)
	return nil
}
