package repository

import (
	"context"
	"errors"
	"fmt"
	"time"
	bookingserrors "tripmarket/internal/bookings/errors"
	"tripmarket/pkg/config"
	mongotx "tripmarket/pkg/db/mongo"
	"tripmarket/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ActivityBookingsCollection  = "Activity_bookings"
	ItineraryBookingsCollection = "Itinerary_bookings"
)

func CollectionFor(kind model.OfferingKind) string {
	if kind == model.KindItinerary {
		return ItineraryBookingsCollection
	}
	return ActivityBookingsCollection
}

type BookingRepository interface {
	Kind() model.OfferingKind
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindByRider(ctx context.Context, riderID string, limit int, offset int64) ([]*model.Booking, error)
	CountByRider(ctx context.Context, riderID string) (int64, error)
	Delete(ctx context.Context, id string) error
	// FindDueForReminder returns bookings scheduled in [from, to) whose
	// reminder has not been sent yet, soonest first.
	FindDueForReminder(ctx context.Context, from, to time.Time, limit int) ([]*model.Booking, error)
	// MarkReminderSent flips reminder_sent once. A second call returns
	// ErrReminderAlreadySent.
	MarkReminderSent(ctx context.Context, id string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoBookingRepository struct {
	cfg        *config.Config
	kind       model.OfferingKind
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoBookingRepository(cfg *config.Config, kind model.OfferingKind) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		kind:       kind,
		db:         db,
		collection: db.Collection(CollectionFor(kind)),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoBookingRepository) Kind() model.OfferingKind {
	return r.kind
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}
	booking.OfferingKind = r.kind

	result, err := r.collection.InsertOne(ctx, booking)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		booking.ID = oid.Hex()
	}
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var booking model.Booking
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", bookingserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) FindByRider(ctx context.Context, riderID string, limit int, offset int64) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "scheduled_date", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	bookings, err := r.find(ctx, bson.M{"rider_id": riderID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list rider bookings: %w", err)
	}
	return bookings, nil
}

func (r *mongoBookingRepository) CountByRider(ctx context.Context, riderID string) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"rider_id": riderID})
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func (r *mongoBookingRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := parseID(id)
	if err != nil {
		return err
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}

	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", bookingserrors.ErrNotFound, id)
	}

	return nil
}

func (r *mongoBookingRepository) FindDueForReminder(ctx context.Context, from, to time.Time, limit int) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"scheduled_date": bson.M{"$gte": from, "$lt": to},
		"reminder_sent":  bson.M{"$ne": true},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "scheduled_date", Value: 1}}).
		SetLimit(int64(limit))

	bookings, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list due bookings: %w", err)
	}
	return bookings, nil
}

func (r *mongoBookingRepository) MarkReminderSent(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := parseID(id)
	if err != nil {
		return err
	}

	filter := bson.M{"_id": objectID, "reminder_sent": bson.M{"$ne": true}}
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"reminder_sent": true}})
	if err != nil {
		return fmt.Errorf("failed to mark reminder: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", bookingserrors.ErrReminderAlreadySent, id)
	}

	return nil
}

func (r *mongoBookingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Booking, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	bookings := []*model.Booking{}
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}
	return oid, nil
}

func (r *mongoBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
