package interfaces

import (
	"context"

	"offer-moderation/internal/models"
	"offer-moderation/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuditLogRepository is append-only: there is no update or delete.
type AuditLogRepository interface {
	Create(ctx context.Context, entry *models.AuditEntry) error
	GetByOfferID(ctx context.Context, offerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.AuditEntry, int64, error)
}
