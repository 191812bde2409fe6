// Package reminders emits booking.reminder events for bookings that start
// within the configured lookahead.
package reminders

import (
	"context"
	"errors"
	"time"
	bookingserrors "tripmarket/internal/bookings/errors"
	"tripmarket/internal/bookings/events"
	"tripmarket/internal/bookings/repository"
	"tripmarket/pkg/jobstatus"
	"tripmarket/pkg/logger"
	"tripmarket/pkg/metrics"
	"tripmarket/pkg/model"
)

const (
	JobName          = "booking-reminders"
	DefaultBatchSize = 200
)

type OfferingLookup interface {
	FindByID(ctx context.Context, id string) (*model.Offering, error)
}

type RiderLookup interface {
	FindByID(ctx context.Context, id string) (*model.Rider, error)
}

// Source pairs a booking collection with the offerings it refers to.
type Source struct {
	Bookings  repository.BookingRepository
	Offerings OfferingLookup
}

type Job struct {
	sources   []Source
	riders    RiderLookup
	publisher events.Publisher
	status    jobstatus.JobStatusStore
	lookahead time.Duration
	interval  time.Duration
	batchSize int
	log       *logger.Logger
	now       func() time.Time
}

func NewJob(sources []Source, riders RiderLookup, publisher events.Publisher, status jobstatus.JobStatusStore, lookahead, interval time.Duration, log *logger.Logger) *Job {
	return &Job{
		sources:   sources,
		riders:    riders,
		publisher: publisher,
		status:    status,
		lookahead: lookahead,
		interval:  interval,
		batchSize: DefaultBatchSize,
		log:       log,
		now:       time.Now,
	}
}

// Run executes the job immediately and then once per interval until ctx is
// cancelled.
func (j *Job) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		if _, err := j.RunOnce(ctx); err != nil && ctx.Err() == nil {
			j.log.Error("reminder run failed", "job", JobName, "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce sends reminders for bookings scheduled in [now, now+lookahead) and
// returns how many were sent. A run is skipped when another worker completed
// one less than an interval ago.
func (j *Job) RunOnce(ctx context.Context) (int, error) {
	now := j.now().UTC()

	lastRun, err := j.status.GetLastRun(ctx, JobName)
	if err != nil {
		j.log.Warn("could not read last run, running anyway", "job", JobName, "error", err)
	} else if !lastRun.IsZero() && now.Sub(lastRun) < j.interval {
		j.log.Debug("skipping reminder run", "job", JobName, "last_run", lastRun)
		return 0, nil
	}

	sent := 0
	var errs []error
	for _, source := range j.sources {
		n, err := j.remind(ctx, source, now, now.Add(j.lookahead))
		sent += n
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return sent, errors.Join(errs...)
	}

	if err := j.status.SetLastRun(ctx, JobName, now); err != nil {
		j.log.Warn("failed to record last run", "job", JobName, "error", err)
	}

	j.log.Info("reminder run completed", "job", JobName, "sent", sent)
	return sent, nil
}

func (j *Job) remind(ctx context.Context, source Source, from, to time.Time) (int, error) {
	kind := source.Bookings.Kind()

	due, err := source.Bookings.FindDueForReminder(ctx, from, to, j.batchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, booking := range due {
		// Claim before publishing: a reminder goes out at most once.
		if err := source.Bookings.MarkReminderSent(ctx, booking.ID); err != nil {
			if errors.Is(err, bookingserrors.ErrReminderAlreadySent) {
				continue
			}
			j.log.Error("failed to mark reminder sent", "kind", kind, "booking_id", booking.ID, "error", err)
			continue
		}

		offering, err := source.Offerings.FindByID(ctx, booking.OfferingID)
		if err != nil {
			j.log.Warn("offering lookup failed, sending reminder without it", "booking_id", booking.ID, "offering_id", booking.OfferingID, "error", err)
			offering = nil
		}
		rider, err := j.riders.FindByID(ctx, booking.RiderID)
		if err != nil {
			j.log.Warn("rider lookup failed, sending reminder without contact details", "booking_id", booking.ID, "rider_id", booking.RiderID, "error", err)
			rider = nil
		}

		event := events.NewBookingEvent(model.EventBookingReminder, booking, offering, rider, j.now())
		if err := j.publisher.Publish(ctx, event); err != nil {
			j.log.Error("failed to publish reminder", "kind", kind, "booking_id", booking.ID, "error", err)
			continue
		}

		metrics.RemindersSent.Inc()
		sent++
	}

	return sent, nil
}
