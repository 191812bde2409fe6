package repository

import (
	"context"
	"errors"
	"fmt"
	"time"
	offeringserrors "tripmarket/internal/offerings/errors"
	"tripmarket/pkg/config"
	mongotx "tripmarket/pkg/db/mongo"
	"tripmarket/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ActivitiesCollection  = "Activities"
	ItinerariesCollection = "Itineraries"
)

// CollectionFor maps an offering kind to its collection.
func CollectionFor(kind model.OfferingKind) string {
	if kind == model.KindItinerary {
		return ItinerariesCollection
	}
	return ActivitiesCollection
}

// PoolFilter narrows the candidate pool loaded for discovery. Zero values
// impose nothing.
type PoolFilter struct {
	ListedOnly    bool
	UpcomingAfter *time.Time
	OwnerID       string
}

type OfferingRepository interface {
	Kind() model.OfferingKind
	FindByID(ctx context.Context, id string) (*model.Offering, error)
	FindPool(ctx context.Context, filter PoolFilter) ([]*model.Offering, error)
	AppendComment(ctx context.Context, id string, comment model.Comment, expectedCount int, rating float64) error
}

type mongoOfferingRepository struct {
	cfg        *config.Config
	kind       model.OfferingKind
	db         *mongo.Database
	collection *mongo.Collection
}

func NewMongoOfferingRepository(cfg *config.Config, kind model.OfferingKind) OfferingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoOfferingRepository{
		cfg:        cfg,
		kind:       kind,
		db:         db,
		collection: db.Collection(CollectionFor(kind)),
	}
}

func (r *mongoOfferingRepository) Kind() model.OfferingKind {
	return r.kind
}

func (r *mongoOfferingRepository) FindByID(ctx context.Context, id string) (*model.Offering, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", offeringserrors.ErrInvalidID, id)
	}

	var offering model.Offering
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&offering)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", offeringserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find offering: %w", err)
	}
	offering.Kind = r.kind

	return &offering, nil
}

// FindPool loads every offering matching filter, newest first.
func (r *mongoOfferingRepository) FindPool(ctx context.Context, filter PoolFilter) ([]*model.Offering, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, r.poolQuery(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query offerings: %w", err)
	}
	defer cursor.Close(ctx)

	var offerings []*model.Offering
	if err = cursor.All(ctx, &offerings); err != nil {
		return nil, fmt.Errorf("failed to decode offerings: %w", err)
	}
	for _, o := range offerings {
		o.Kind = r.kind
	}

	return offerings, nil
}

func (r *mongoOfferingRepository) poolQuery(filter PoolFilter) bson.M {
	query := bson.M{}
	if filter.ListedOnly {
		query["active"] = true
		query["appropriate"] = true
	}
	if filter.OwnerID != "" {
		query["owner_id"] = filter.OwnerID
	}
	if filter.UpcomingAfter != nil {
		if r.kind == model.KindItinerary {
			query["available_dates.date"] = bson.M{"$gt": *filter.UpcomingAfter}
		} else {
			query["timing"] = bson.M{"$gt": *filter.UpcomingAfter}
		}
	}
	return query
}

// AppendComment pushes comment and stores the new running rating, provided the
// offering still holds exactly expectedCount comments.
func (r *mongoOfferingRepository) AppendComment(ctx context.Context, id string, comment model.Comment, expectedCount int, rating float64) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", offeringserrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID}
	if expectedCount == 0 {
		filter["$or"] = bson.A{
			bson.M{"comments": bson.M{"$exists": false}},
			bson.M{"comments": bson.M{"$size": 0}},
		}
	} else {
		filter["comments"] = bson.M{"$size": expectedCount}
	}

	update := bson.M{
		"$push": bson.M{"comments": comment},
		"$set":  bson.M{"rating": rating},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to append comment: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	exists, err := r.collection.CountDocuments(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to check offering existence: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", offeringserrors.ErrNotFound, id)
	}

	return fmt.Errorf("%w: %s", offeringserrors.ErrConcurrentUpdate, id)
}
