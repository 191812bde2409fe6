package main

import (
	"tripmarket/internal/offerings/handler"
	"tripmarket/internal/offerings/repository"
	"tripmarket/internal/offerings/service"
	"tripmarket/internal/offerings/validator"
	riderrepo "tripmarket/internal/riders/repository"
	"tripmarket/pkg/app"
	"tripmarket/pkg/cache"
	"tripmarket/pkg/config"
	"tripmarket/pkg/health"
	"tripmarket/pkg/model"
)

const ServiceName = "offerings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetMemcache()

	cfg.Log.Info("Starting Offerings service")
	serverApp := app.NewApplication()
	serverApp.SetApp(cfg,
		health.NewHealthHandler(cfg.Log).AddCheck("mongo", health.MongoCheck(cfg.Client.Mongo)),
		initHandlers(cfg)...,
	)
	serverApp.Run()
}

func initHandlers(cfg *config.Config) []app.Handler {
	categoryCache := cache.NewCategoryCache(cfg.Client.Memcache, cfg.CategoryCacheSize, cfg.CategoryCacheTTL, cfg.Log)
	categories := repository.NewCachedCategoryRepository(repository.NewMongoCategoryRepository(cfg), categoryCache)
	riders := riderrepo.NewMongoRiderRepository(cfg)
	commentValidator := validator.NewCommentValidator()

	var handlers []app.Handler
	for _, kind := range []model.OfferingKind{model.KindActivity, model.KindItinerary} {
		offeringService := service.NewOfferingService(
			repository.NewMongoOfferingRepository(cfg, kind),
			categories,
			riders,
			commentValidator,
			cfg,
		)
		handlers = append(handlers, handler.NewOfferingHandler(offeringService, cfg.Log))
	}

	cfg.Log.Info("Offering services initialized", "database", cfg.MongoDatabaseName)
	return handlers
}
