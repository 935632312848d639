package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AuditAction string

const (
	AuditActionOfferSubmit  AuditAction = "offer.submit"
	AuditActionOfferApprove AuditAction = "offer.approve"
	AuditActionOfferReject  AuditAction = "offer.reject"
	AuditActionOfferPublish AuditAction = "offer.publish"
	AuditActionOfferArchive AuditAction = "offer.archive"
)

// AuditEntry is written once and never updated. Payload is masked before it
// reaches storage.
type AuditEntry struct {
	ID        primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	ActorID   primitive.ObjectID     `json:"actor_id" bson:"actor_id"`
	Action    AuditAction            `json:"action" bson:"action"`
	OfferID   primitive.ObjectID     `json:"offer_id" bson:"offer_id"`
	Payload   map[string]interface{} `json:"payload,omitempty" bson:"payload,omitempty"`
	CreatedAt time.Time              `json:"created_at" bson:"created_at"`
}
