package interfaces

import (
	"context"
	"time"

	"offer-moderation/internal/models"
	"offer-moderation/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OfferFilter narrows ListOffers. Zero values mean "no constraint".
type OfferFilter struct {
	Status      models.OfferStatus
	DriverID    *primitive.ObjectID
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Search      string
	Pagination  *utils.PaginationParams
}

type OfferRepository interface {
	// Basic operations
	Create(ctx context.Context, offer *models.DriverOffer) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.DriverOffer, error)
	List(ctx context.Context, filter *OfferFilter) ([]*models.DriverOffer, int64, error)

	// Transition applies change only while the stored status equals
	// change.From. Undefined edges fail with ErrIllegalTransition, a missing
	// rejection reason with ErrValidation, a moved offer with ErrConflict.
	Transition(ctx context.Context, id primitive.ObjectID, change models.StatusChange) (*models.DriverOffer, error)

	// Statistics
	CountByStatus(ctx context.Context) (map[models.OfferStatus]int64, error)
}
