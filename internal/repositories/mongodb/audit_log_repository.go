package mongodb

import (
	"context"
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

const AuditLogsCollection = "offer_audit_logs"

type auditLogRepository struct {
	collection *mongo.Collection
}

func NewAuditLogRepository(db *mongo.Database) interfaces.AuditLogRepository {
	return &auditLogRepository{
		collection: db.Collection(AuditLogsCollection),
	}
}

func (r *auditLogRepository) Create(ctx context.Context, entry *models.AuditEntry) error {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		return apperrors.Storage("audit.append", err)
	}

	return nil
}

// GetByOfferID returns the offer's history oldest first.
func (r *auditLogRepository) GetByOfferID(ctx context.Context, offerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.AuditEntry, int64, error) {
	if params == nil {
		params = utils.NewPaginationParams(utils.MaxPageSize, 0, "created_at", "asc", "")
	}
	filter := bson.M{"offer_id": offerID}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.Storage("audit.history", err)
	}

	opts := options.Find().
		SetSkip(int64(params.GetSkip())).
		SetLimit(int64(params.GetLimit())).
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, apperrors.Storage("audit.history", err)
	}
	defer cursor.Close(ctx)

	var entries []*models.AuditEntry
	for cursor.Next(ctx) {
		var entry models.AuditEntry
		if err := cursor.Decode(&entry); err != nil {
			return nil, 0, apperrors.Storage("audit.history", err)
		}
		entries = append(entries, &entry)
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, apperrors.Storage("audit.history", err)
	}

	return entries, total, nil
}
