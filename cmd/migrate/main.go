package main

import (
	"context"
	"os"
	"time"
	mongoMigration "tripmarket/internal/migrations/mongo"
	"tripmarket/pkg/config"
)

const JobName = "mongo-migration"

func main() {
	cfg := config.Load(JobName)
	cfg.SetMongo()

	cfg.Log.Info("Starting Mongo migration job")
	err := migrate(cfg)
	cfg.GracefulShutdown()

	if err != nil {
		cfg.Log.Error("Migration failed", "error", err)
		os.Exit(1)
	}
	cfg.Log.Info("Migration completed successfully")
}

func migrate(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()
	return mongoMigration.RunMigration(ctx, cfg.Client.Mongo, cfg.MongoDatabaseName, cfg.Log)
}
