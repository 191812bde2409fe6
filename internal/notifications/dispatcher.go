// Package notifications turns booking events into messages for riders.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"
	"tripmarket/pkg/kafka"
	"tripmarket/pkg/locale"
	"tripmarket/pkg/logger"
	"tripmarket/pkg/model"

	"github.com/karlseguin/ccache/v3"
)

var ErrInvalidEvent = errors.New("invalid booking event")

// Notification is a rendered message addressed to one rider.
type Notification struct {
	EventID string
	RiderID string
	Email   string
	Phone   string
	Subject string
	Body    string
}

// Sender delivers a notification over some channel.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

type Dispatcher struct {
	sender Sender
	seen   *ccache.Cache[bool]
	ttl    time.Duration
	log    *logger.Logger
}

// NewDispatcher builds a dispatcher that suppresses redelivered events for ttl.
func NewDispatcher(sender Sender, ttl time.Duration, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		sender: sender,
		seen:   ccache.New(ccache.Configure[bool]().MaxSize(10000)),
		ttl:    ttl,
		log:    log,
	}
}

// Handle is a kafka.MessageHandler. Undecodable or unknown events are
// permanent failures and go straight to the dead letter topic.
func (d *Dispatcher) Handle(ctx context.Context, msg kafka.Message) error {
	eventID := msg.GetEventID()
	if eventID != "" {
		if item := d.seen.Get(eventID); item != nil && !item.Expired() {
			d.log.Debug("duplicate booking event skipped", "event_id", eventID)
			return nil
		}
	}

	var event model.BookingEvent
	if err := msg.DecodeValue(&event); err != nil {
		return kafka.NewPermanentError("failed to decode booking event", err)
	}
	if event.Type == "" {
		event.Type = msg.GetEventType()
	}

	notification, err := Render(event)
	if err != nil {
		return kafka.NewPermanentError("failed to render notification", err)
	}
	notification.EventID = eventID

	if err := d.sender.Send(ctx, notification); err != nil {
		return kafka.NewTransientError("failed to send notification", err)
	}

	if eventID != "" {
		d.seen.Set(eventID, true, d.ttl)
	}
	return nil
}

// Render builds the notification text for a booking event.
func Render(event model.BookingEvent) (Notification, error) {
	if event.BookingID == "" || event.RiderID == "" {
		return Notification{}, fmt.Errorf("%w: booking and rider are required", ErrInvalidEvent)
	}

	name := event.OfferingName
	if name == "" {
		name = fmt.Sprintf("your %s", event.OfferingKind)
	}
	// Shown in the rider's home time zone when the phone number reveals it.
	when := event.ScheduledDate.In(locale.LocationForPhone(event.RiderPhone)).Format("Mon 02 Jan 2006 15:04 MST")

	n := Notification{
		RiderID: event.RiderID,
		Email:   event.RiderEmail,
		Phone:   event.RiderPhone,
	}

	switch event.Type {
	case model.EventBookingCreated:
		n.Subject = "Booking confirmed: " + name
		n.Body = fmt.Sprintf("Your booking %s for %s on %s is confirmed. You paid %.2f %s and earned %.0f points.",
			event.BookingID, name, when, event.PaymentAmount, event.Currency, event.PointsEarned)
	case model.EventBookingCancelled:
		n.Subject = "Booking cancelled: " + name
		n.Body = fmt.Sprintf("Your booking %s for %s on %s was cancelled. %.2f %s was returned to your wallet.",
			event.BookingID, name, when, event.PaymentAmount, event.Currency)
	case model.EventBookingReminder:
		n.Subject = "Reminder: " + name
		n.Body = fmt.Sprintf("Your booking %s for %s starts on %s.", event.BookingID, name, when)
	default:
		return Notification{}, fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, event.Type)
	}

	return n, nil
}

// LogSender writes notifications to the service log. Delivery channels such
// as email or SMS plug in behind Sender.
type LogSender struct {
	log *logger.Logger
}

func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, n Notification) error {
	if n.Email == "" && n.Phone == "" {
		s.log.Warn("rider has no contact details, notification logged only", "rider_id", n.RiderID, "subject", n.Subject)
	}
	s.log.Info("notification sent",
		"event_id", n.EventID,
		"rider_id", n.RiderID,
		"email", n.Email,
		"phone", n.Phone,
		"subject", n.Subject,
		"body", n.Body,
	)
	return nil
}
