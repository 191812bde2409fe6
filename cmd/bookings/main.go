package main

import (
	"tripmarket/internal/bookings/events"
	"tripmarket/internal/bookings/handler"
	"tripmarket/internal/bookings/repository"
	"tripmarket/internal/bookings/service"
	"tripmarket/internal/bookings/validator"
	offeringrepo "tripmarket/internal/offerings/repository"
	riderhandler "tripmarket/internal/riders/handler"
	riderrepo "tripmarket/internal/riders/repository"
	riderservice "tripmarket/internal/riders/service"
	ridervalidator "tripmarket/internal/riders/validator"
	"tripmarket/pkg/app"
	"tripmarket/pkg/config"
	"tripmarket/pkg/health"
	"tripmarket/pkg/model"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	healthHandler := health.NewHealthHandler(cfg.Log).AddCheck("mongo", health.MongoCheck(cfg.Client.Mongo))
	if cfg.SharedIdempotency {
		cfg.SetRedis()
		healthHandler.AddCheck("redis", health.RedisCheck(cfg.Client.Redis))
	}

	publisher, closePublisher, err := events.Connect(cfg, ServiceName)
	if err != nil {
		cfg.Log.Fatal("Failed to set up booking events", "error", err)
	}

	cfg.Log.Info("Starting Bookings service")
	serverApp := app.NewApplication()
	serverApp.SetApp(cfg, healthHandler, initHandlers(cfg, publisher)...)
	serverApp.OnShutdown(closePublisher)
	serverApp.Run()
}

func initHandlers(cfg *config.Config, publisher events.Publisher) []app.Handler {
	riders := riderrepo.NewMongoRiderRepository(cfg)
	bookingValidator := validator.NewBookingValidator(cfg.Log)

	var handlers []app.Handler
	for _, kind := range []model.OfferingKind{model.KindActivity, model.KindItinerary} {
		bookingService := service.NewBookingService(
			repository.NewMongoBookingRepository(cfg, kind),
			offeringrepo.NewMongoOfferingRepository(cfg, kind),
			riders,
			publisher,
			bookingValidator,
			cfg,
		)
		handlers = append(handlers, handler.NewBookingHandler(bookingService, cfg.Log))
	}

	riderService := riderservice.NewRiderService(riders, ridervalidator.NewRedeemValidator(), cfg)
	handlers = append(handlers, riderhandler.NewRiderHandler(riderService, cfg.Log))

	cfg.Log.Info("Booking services initialized", "database", cfg.MongoDatabaseName)
	return handlers
}
