package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ModerationEvent is broadcast after a transition commits so that other
// moderator sessions can refresh the affected offer.
type ModerationEvent struct {
	Type       AuditAction        `json:"type"`
	OfferID    primitive.ObjectID `json:"offer_id"`
	ActorID    primitive.ObjectID `json:"actor_id"`
	FromStatus OfferStatus        `json:"from_status,omitempty"`
	ToStatus   OfferStatus        `json:"to_status"`
	Version    int64              `json:"version"`
	OccurredAt time.Time          `json:"occurred_at"`
}
