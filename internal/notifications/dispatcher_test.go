package notifications

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
	"tripmarket/pkg/kafka"
	"tripmarket/pkg/logger"
	"tripmarket/pkg/model"
)

type recordingSender struct {
	sent []Notification
	err  error
}

func (s *recordingSender) Send(ctx context.Context, n Notification) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, n)
	return nil
}

func newTestDispatcher(sender Sender) *Dispatcher {
	log := logger.New(logger.Config{Level: "error", Output: io.Discard, Service: "test"})
	return NewDispatcher(sender, time.Minute, log)
}

func sampleEvent(eventType string) model.BookingEvent {
	return model.BookingEvent{
		Type:          eventType,
		BookingID:     "b-1",
		RiderID:       "rider-1",
		RiderEmail:    "amal@example.com",
		OfferingID:    "off-1",
		OfferingKind:  model.KindActivity,
		OfferingName:  "Sunset kayak",
		PaymentAmount: 40,
		Currency:      "EGP",
		ScheduledDate: time.Date(2030, 3, 6, 17, 0, 0, 0, time.UTC),
		PointsEarned:  20,
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		eventType   string
		wantSubject string
		wantInBody  string
	}{
		{model.EventBookingCreated, "Booking confirmed: Sunset kayak", "earned 20 points"},
		{model.EventBookingCancelled, "Booking cancelled: Sunset kayak", "40.00 EGP was returned"},
		{model.EventBookingReminder, "Reminder: Sunset kayak", "starts on Wed 06 Mar 2030 17:00 UTC"},
	}

	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			n, err := Render(sampleEvent(tt.eventType))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if n.Subject != tt.wantSubject {
				t.Errorf("subject = %q, want %q", n.Subject, tt.wantSubject)
			}
			if !strings.Contains(n.Body, tt.wantInBody) {
				t.Errorf("body %q does not contain %q", n.Body, tt.wantInBody)
			}
		})
	}
}

func TestRender_RiderLocalTime(t *testing.T) {
	event := sampleEvent(model.EventBookingReminder)
	event.RiderPhone = "+201001234567"

	n, err := Render(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(n.Body, "19:00 EET") {
		t.Errorf("expected Cairo local time in %q", n.Body)
	}
}

func TestRender_Invalid(t *testing.T) {
	unknown := sampleEvent("booking.exploded")
	missing := sampleEvent(model.EventBookingCreated)
	missing.RiderID = ""

	for _, event := range []model.BookingEvent{unknown, missing} {
		if _, err := Render(event); !errors.Is(err, ErrInvalidEvent) {
			t.Errorf("expected ErrInvalidEvent for %+v, got %v", event, err)
		}
	}
}

func TestHandle_DeliversOnceAndSkipsRedelivery(t *testing.T) {
	sender := &recordingSender{}
	dispatcher := newTestDispatcher(sender)
	msg := kafka.NewMessage().WithKey("b-1").WithValue(sampleEvent(model.EventBookingCreated)).Build()

	for i := 0; i < 2; i++ {
		if err := dispatcher.Handle(context.Background(), msg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if len(sender.sent) != 1 {
		t.Fatalf("expected one notification, got %d", len(sender.sent))
	}
	if sender.sent[0].EventID != msg.GetEventID() {
		t.Errorf("event id = %q, want %q", sender.sent[0].EventID, msg.GetEventID())
	}
}

func TestHandle_EventTypeFromHeader(t *testing.T) {
	sender := &recordingSender{}
	event := sampleEvent("")
	msg := kafka.NewMessage().WithKey("b-1").WithValue(event).WithEventType(model.EventBookingReminder).Build()

	if err := newTestDispatcher(sender).Handle(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 1 || !strings.HasPrefix(sender.sent[0].Subject, "Reminder") {
		t.Errorf("expected reminder notification, got %+v", sender.sent)
	}
}

func TestHandle_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		msg      kafka.Message
		sendErr  error
		wantType kafka.ErrorType
	}{
		{
			name:     "garbage payload",
			msg:      kafka.Message{Key: "b-1", Value: []byte("{not json"), Headers: map[string]string{}},
			wantType: kafka.ErrorTypePermanent,
		},
		{
			name:     "unknown event",
			msg:      kafka.NewMessage().WithKey("b-1").WithValue(sampleEvent("booking.exploded")).Build(),
			wantType: kafka.ErrorTypePermanent,
		},
		{
			name:     "sender down",
			msg:      kafka.NewMessage().WithKey("b-1").WithValue(sampleEvent(model.EventBookingCreated)).Build(),
			sendErr:  errors.New("smtp unavailable"),
			wantType: kafka.ErrorTypeTransient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newTestDispatcher(&recordingSender{err: tt.sendErr}).Handle(context.Background(), tt.msg)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if got := kafka.ClassifyError(err); got != tt.wantType {
				t.Errorf("error type = %v, want %v", got, tt.wantType)
			}
		})
	}
}

func TestHandle_FailedSendIsRetried(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp unavailable")}
	dispatcher := newTestDispatcher(sender)
	msg := kafka.NewMessage().WithKey("b-1").WithValue(sampleEvent(model.EventBookingCreated)).Build()

	if err := dispatcher.Handle(context.Background(), msg); err == nil {
		t.Fatal("expected error on first attempt")
	}
	sender.err = nil
	if err := dispatcher.Handle(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Errorf("expected delivery on retry, got %d", len(sender.sent))
	}
}
