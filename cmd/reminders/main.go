package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"tripmarket/internal/bookings/events"
	"tripmarket/internal/bookings/repository"
	offeringrepo "tripmarket/internal/offerings/repository"
	"tripmarket/internal/reminders"
	riderrepo "tripmarket/internal/riders/repository"
	"tripmarket/pkg/config"
	"tripmarket/pkg/jobstatus"
	"tripmarket/pkg/model"
)

const JobName = "reminders"

func main() {
	cfg := config.Load(JobName)
	cfg.SetMongo()
	cfg.SetRedis()
	defer cfg.GracefulShutdown()

	publisher, closePublisher, err := events.Connect(cfg, JobName)
	if err != nil {
		cfg.Log.Fatal("Failed to set up booking events", "error", err)
	}
	defer closePublisher()

	var sources []reminders.Source
	for _, kind := range []model.OfferingKind{model.KindActivity, model.KindItinerary} {
		sources = append(sources, reminders.Source{
			Bookings:  repository.NewMongoBookingRepository(cfg, kind),
			Offerings: offeringrepo.NewMongoOfferingRepository(cfg, kind),
		})
	}

	job := reminders.NewJob(
		sources,
		riderrepo.NewMongoRiderRepository(cfg),
		publisher,
		jobstatus.NewRedisJobStatusStore(cfg.Client.Redis, 0),
		cfg.ReminderLookahead,
		cfg.ReminderInterval,
		cfg.Log,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg.Log.Info("Starting reminders job", "interval", cfg.ReminderInterval, "lookahead", cfg.ReminderLookahead)
	job.Run(ctx)
	cfg.Log.Info("Reminders job stopped")
}
