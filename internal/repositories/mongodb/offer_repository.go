package mongodb

import (
	"context"
	"errors"
	"regexp"
	"time"

	"offer-moderation/internal/apperrors"
	"offer-moderation/internal/models"
	"offer-moderation/internal/repositories/interfaces"
	"offer-moderation/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const OffersCollection = "driver_offers"

type offerRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewOfferRepository(db *mongo.Database) interfaces.OfferRepository {
	return &offerRepository{
		collection: db.Collection(OffersCollection),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Basic operations
func (r *offerRepository) Create(ctx context.Context, offer *models.DriverOffer) error {
	if offer.ID.IsZero() {
		offer.ID = primitive.NewObjectID()
	}
	if offer.CreatedAt.IsZero() {
		offer.CreatedAt = r.now()
	}
	offer.UpdatedAt = offer.CreatedAt
	if offer.Version == 0 {
		offer.Version = 1
	}
	if err := offer.Validate(); err != nil {
		return err
	}

	_, err := r.collection.InsertOne(ctx, offer)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.Conflict("offer.create", "offer already exists")
		}
		return apperrors.Storage("offer.create", err)
	}

	return nil
}

func (r *offerRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.DriverOffer, error) {
	var offer models.DriverOffer
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&offer)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("offer.get", "offer")
		}
		return nil, apperrors.Storage("offer.get", err)
	}

	return &offer, nil
}

func (r *offerRepository) List(ctx context.Context, filter *interfaces.OfferFilter) ([]*models.DriverOffer, int64, error) {
	if filter == nil {
		filter = &interfaces.OfferFilter{}
	}
	params := filter.Pagination
	if params == nil {
		params = utils.NewPaginationParams(utils.DefaultPageSize, 0, "", "", "")
	}

	query := buildOfferQuery(filter)

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, apperrors.Storage("offer.list", err)
	}

	cursor, err := r.collection.Find(ctx, query, params.GetSortOptions())
	if err != nil {
		return nil, 0, apperrors.Storage("offer.list", err)
	}
	defer cursor.Close(ctx)

	offers := make([]*models.DriverOffer, 0, params.Limit)
	for cursor.Next(ctx) {
		var offer models.DriverOffer
		if err := cursor.Decode(&offer); err != nil {
			return nil, 0, apperrors.Storage("offer.list", err)
		}
		offers = append(offers, &offer)
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, apperrors.Storage("offer.list", err)
	}

	return offers, total, nil
}

// Transition is a single FindOneAndUpdate filtered on the expected status, so
// the check and the write are one atomic document operation.
func (r *offerRepository) Transition(ctx context.Context, id primitive.ObjectID, change models.StatusChange) (*models.DriverOffer, error) {
	const op = "offer.transition"

	if err := change.Validate(); err != nil {
		return nil, err
	}

	now := r.now()
	set := bson.M{
		"status":     change.To,
		"updated_at": now,
	}
	update := bson.M{
		"$set": set,
		"$inc": bson.M{"version": 1},
	}
	if change.To == models.OfferStatusRejected {
		set["rejection_reason"] = change.Reason
	} else {
		update["$unset"] = bson.M{"rejection_reason": ""}
	}
	if change.SetsReview() {
		set["reviewed_by"] = change.Actor
		set["reviewed_at"] = now
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var offer models.DriverOffer
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id, "status": change.From}, update, opts).Decode(&offer)
	if err == nil {
		return &offer, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.Storage(op, err)
	}

	// Nothing matched: either the offer is gone or its status moved on.
	count, countErr := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if countErr != nil {
		return nil, apperrors.Storage(op, countErr)
	}
	if count == 0 {
		return nil, apperrors.NotFound(op, "offer")
	}
	return nil, apperrors.Conflict(op, "offer is no longer "+string(change.From))
}

// Statistics
func (r *offerRepository) CountByStatus(ctx context.Context) (map[models.OfferStatus]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   "$status",
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, apperrors.Storage("offer.count", err)
	}
	defer cursor.Close(ctx)

	counts := make(map[models.OfferStatus]int64, len(models.AllOfferStatuses))
	for cursor.Next(ctx) {
		var result struct {
			Status models.OfferStatus `bson:"_id"`
			Count  int64              `bson:"count"`
		}

		if err := cursor.Decode(&result); err != nil {
			return nil, apperrors.Storage("offer.count", err)
		}

		counts[result.Status] = result.Count
	}
	if err := cursor.Err(); err != nil {
		return nil, apperrors.Storage("offer.count", err)
	}

	return counts, nil
}

// Helper methods
func buildOfferQuery(filter *interfaces.OfferFilter) bson.M {
	query := bson.M{}

	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.DriverID != nil {
		query["driver_id"] = *filter.DriverID
	}

	createdAt := bson.M{}
	if filter.CreatedFrom != nil {
		createdAt["$gte"] = *filter.CreatedFrom
	}
	if filter.CreatedTo != nil {
		createdAt["$lte"] = *filter.CreatedTo
	}
	if len(createdAt) > 0 {
		query["created_at"] = createdAt
	}

	if filter.Search != "" {
		pattern := regexp.QuoteMeta(filter.Search)
		query["$or"] = []bson.M{
			{"origin": bson.M{"$regex": pattern, "$options": "i"}},
			{"destination": bson.M{"$regex": pattern, "$options": "i"}},
		}
	}

	return query
}
