package repository

import (
	"context"
	"errors"
	"fmt"
	riderserrors "tripmarket/internal/riders/errors"
	"tripmarket/pkg/config"
	mongotx "tripmarket/pkg/db/mongo"
	"tripmarket/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Tourists"
)

// RiderRepository owns every write to wallet, points and badge. Each balance
// change is a single conditional update so that concurrent callers can never
// push a balance below zero.
type RiderRepository interface {
	FindByID(ctx context.Context, id string) (*model.Rider, error)

	// ApplyPayment debits walletDebit (zero for card payments) and credits
	// points. It returns riderserrors.ErrInsufficientFunds when the wallet
	// holds less than walletDebit at write time.
	ApplyPayment(ctx context.Context, id string, walletDebit, points float64) (*model.Rider, error)
	// PromoteBadge sets badge provided total_points still equals observedTotal.
	PromoteBadge(ctx context.Context, id string, badge string, observedTotal float64) error
	Refund(ctx context.Context, id string, amount float64) (*model.Rider, error)
	RedeemPoints(ctx context.Context, id string, points, credit float64) (*model.Rider, error)
}

type mongoRiderRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
}

func NewMongoRiderRepository(cfg *config.Config) RiderRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoRiderRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoRiderRepository) FindByID(ctx context.Context, id string) (*model.Rider, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", riderserrors.ErrInvalidID, id)
	}

	var rider model.Rider
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&rider)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", riderserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find rider: %w", err)
	}

	return &rider, nil
}

func (r *mongoRiderRepository) ApplyPayment(ctx context.Context, id string, walletDebit, points float64) (*model.Rider, error) {
	filter := bson.M{}
	if walletDebit > 0 {
		filter["wallet"] = bson.M{"$gte": walletDebit}
	}

	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "wallet", Value: roundedAdd("wallet", -walletDebit)},
			{Key: "loyalty_points", Value: roundedAdd("loyalty_points", points)},
			{Key: "total_points", Value: roundedAdd("total_points", points)},
		}}},
	}

	return r.conditionalUpdate(ctx, id, filter, update, riderserrors.ErrInsufficientFunds)
}

func (r *mongoRiderRepository) PromoteBadge(ctx context.Context, id string, badge string, observedTotal float64) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", riderserrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID, "total_points": observedTotal}
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"loyalty_badge": badge}})
	if err != nil {
		return fmt.Errorf("failed to update loyalty badge: %w", err)
	}
	if result.MatchedCount == 0 {
		r.cfg.Log.Debug("Badge promotion skipped, total moved on",
			"rider_id", id,
			"badge", badge,
			"observed_total", observedTotal,
		)
	}

	return nil
}

func (r *mongoRiderRepository) Refund(ctx context.Context, id string, amount float64) (*model.Rider, error) {
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "wallet", Value: roundedAdd("wallet", amount)},
		}}},
	}

	return r.conditionalUpdate(ctx, id, bson.M{}, update, riderserrors.ErrNotFound)
}

func (r *mongoRiderRepository) RedeemPoints(ctx context.Context, id string, points, credit float64) (*model.Rider, error) {
	filter := bson.M{"loyalty_points": bson.M{"$gte": points}}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "loyalty_points", Value: roundedAdd("loyalty_points", -points)},
			{Key: "wallet", Value: roundedAdd("wallet", credit)},
		}}},
	}

	return r.conditionalUpdate(ctx, id, filter, update, riderserrors.ErrInsufficientPoints)
}

// conditionalUpdate applies update to the rider matching id and filter and
// returns the document after the update. When nothing matches, it tells a
// missing rider apart from a failed condition.
func (r *mongoRiderRepository) conditionalUpdate(ctx context.Context, id string, filter bson.M, update mongo.Pipeline, conditionErr error) (*model.Rider, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", riderserrors.ErrInvalidID, id)
	}
	filter["_id"] = objectID

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var rider model.Rider
	err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&rider)
	if err == nil {
		return &rider, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update rider: %w", err)
	}

	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": objectID})
	if err != nil {
		return nil, fmt.Errorf("failed to check rider existence: %w", err)
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: %s", riderserrors.ErrNotFound, id)
	}

	return nil, fmt.Errorf("%w: %s", conditionErr, id)
}

// roundedAdd is the aggregation expression for round(field + delta, 2),
// treating a missing field as zero.
func roundedAdd(field string, delta float64) bson.D {
	return bson.D{{Key: "$round", Value: bson.A{
		bson.D{{Key: "$add", Value: bson.A{
			bson.D{{Key: "$ifNull", Value: bson.A{"$" + field, 0}}},
			delta,
		}}},
		2,
	}}}
}
