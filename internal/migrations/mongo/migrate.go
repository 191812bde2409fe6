package mongo

import (
	"context"
	"fmt"
	bookingrepo "tripmarket/internal/bookings/repository"
	"tripmarket/internal/migrations/mongo/validators"
	offeringrepo "tripmarket/internal/offerings/repository"
	riderrepo "tripmarket/internal/riders/repository"
	"tripmarket/pkg/logger"
	"tripmarket/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionDef describes one collection the services expect to exist.
type CollectionDef struct {
	Name      string
	Validator bson.M
	Indexes   []mongo.IndexModel
}

var (
	OfferingIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "active", Value: 1},
			{Key: "appropriate", Value: 1},
			{Key: "timing", Value: 1},
		}},
		{Keys: bson.D{
			{Key: "active", Value: 1},
			{Key: "appropriate", Value: 1},
			{Key: "available_dates.date", Value: 1},
		}},
		{Keys: bson.D{{Key: "categories", Value: 1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}}},
	}

	RiderIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
	}

	BookingIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "rider_id", Value: 1},
			{Key: "scheduled_date", Value: -1},
			{Key: "_id", Value: -1},
		}},
		{Keys: bson.D{
			{Key: "reminder_sent", Value: 1},
			{Key: "scheduled_date", Value: 1},
		}},
		{Keys: bson.D{{Key: "offering_id", Value: 1}}},
	}
)

// Collections lists every collection with its validator and indexes.
func Collections() []CollectionDef {
	return []CollectionDef{
		{
			Name:      offeringrepo.CollectionFor(model.KindActivity),
			Validator: validators.OfferingValidator(string(model.KindActivity)),
			Indexes:   OfferingIndexes,
		},
		{
			Name:      offeringrepo.CollectionFor(model.KindItinerary),
			Validator: validators.OfferingValidator(string(model.KindItinerary)),
			Indexes:   OfferingIndexes,
		},
		{
			Name:      offeringrepo.CategoriesCollection,
			Validator: validators.CategoryValidator,
		},
		{
			Name:      riderrepo.CollectionName,
			Validator: validators.RiderValidator,
			Indexes:   RiderIndexes,
		},
		{
			Name:      bookingrepo.CollectionFor(model.KindActivity),
			Validator: validators.BookingValidator,
			Indexes:   BookingIndexes,
		},
		{
			Name:      bookingrepo.CollectionFor(model.KindItinerary),
			Validator: validators.BookingValidator,
			Indexes:   BookingIndexes,
		},
	}
}

func RunMigration(ctx context.Context, client *mongo.Client, dbName string, log *logger.Logger) error {
	db := client.Database(dbName)
	log.Info("Running Mongo migrations", "database", dbName)

	for _, def := range Collections() {
		if err := ensureCollection(ctx, db, def.Name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", def.Name, err)
		}
		if err := ensureIndexes(ctx, db, def.Name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", def.Name, err)
		}
	}

	log.Info("All migrations applied successfully", "database", dbName)
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	if len(models) == 0 {
		return nil
	}
	if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "count", len(models))
	return nil
}
