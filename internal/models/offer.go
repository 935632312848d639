package models

import (
	"fmt"
	"strings"
	"time"

	"offer-moderation/internal/apperrors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OfferStatus string

const (
	OfferStatusDraft         OfferStatus = "draft"
	OfferStatusPendingReview OfferStatus = "pending_review"
	OfferStatusApproved      OfferStatus = "approved"
	OfferStatusPublished     OfferStatus = "published"
	OfferStatusRejected      OfferStatus = "rejected"
	OfferStatusArchived      OfferStatus = "archived"
)

// AllOfferStatuses lists every status in lifecycle order.
var AllOfferStatuses = []OfferStatus{
	OfferStatusDraft,
	OfferStatusPendingReview,
	OfferStatusApproved,
	OfferStatusPublished,
	OfferStatusRejected,
	OfferStatusArchived,
}

func (s OfferStatus) IsValid() bool {
	for _, status := range AllOfferStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func (s OfferStatus) IsTerminal() bool {
	return s == OfferStatusArchived
}

type GeoPoint struct {
	Lat float64 `json:"lat" bson:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" bson:"lng" validate:"gte=-180,lte=180"`
}

type DriverOffer struct {
	ID               primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	DriverID         primitive.ObjectID  `json:"driver_id" bson:"driver_id"`
	Origin           string              `json:"origin" bson:"origin"`
	Destination      string              `json:"destination" bson:"destination"`
	OriginPoint      *GeoPoint           `json:"origin_point,omitempty" bson:"origin_point,omitempty"`
	DestinationPoint *GeoPoint           `json:"destination_point,omitempty" bson:"destination_point,omitempty"`
	SeatsTotal       int                 `json:"seats_total" bson:"seats_total"`
	SeatsFree        int                 `json:"seats_free" bson:"seats_free"`
	PricePerSeat     float64             `json:"price_per_seat" bson:"price_per_seat"`
	Currency         string              `json:"currency" bson:"currency"`
	StartAt          time.Time           `json:"start_at" bson:"start_at"`
	Status           OfferStatus         `json:"status" bson:"status"`
	RejectionReason  string              `json:"rejection_reason,omitempty" bson:"rejection_reason,omitempty"`
	ReviewedBy       *primitive.ObjectID `json:"reviewed_by,omitempty" bson:"reviewed_by,omitempty"`
	ReviewedAt       *time.Time          `json:"reviewed_at,omitempty" bson:"reviewed_at,omitempty"`
	Version          int64               `json:"version" bson:"version"`
	CreatedAt        time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at" bson:"updated_at"`
}

// Validate checks the invariants every stored offer must satisfy.
func (o *DriverOffer) Validate() error {
	const op = "offer.validate"

	if !o.Status.IsValid() {
		return apperrors.Validation(op, fmt.Sprintf("unknown status %q", o.Status))
	}
	if o.SeatsTotal <= 0 {
		return apperrors.Validation(op, "seats_total must be positive")
	}
	if o.SeatsFree < 0 || o.SeatsFree > o.SeatsTotal {
		return apperrors.Validation(op, "seats_free must be between 0 and seats_total")
	}
	if o.PricePerSeat < 0 {
		return apperrors.Validation(op, "price_per_seat must not be negative")
	}
	if o.Status == OfferStatusRejected && strings.TrimSpace(o.RejectionReason) == "" {
		return apperrors.Validation(op, "rejected offer requires a rejection reason")
	}
	if o.Status != OfferStatusRejected && o.RejectionReason != "" {
		return apperrors.Validation(op, "rejection reason is only allowed on rejected offers")
	}
	if (o.ReviewedBy == nil) != (o.ReviewedAt == nil) {
		return apperrors.Validation(op, "reviewed_by and reviewed_at must be set together")
	}
	return nil
}

// ValidateNew checks the fields a driver supplies when creating an offer.
func (o *DriverOffer) ValidateNew(now time.Time) error {
	const op = "offer.create"

	if o.Status != OfferStatusDraft && o.Status != OfferStatusPendingReview {
		return apperrors.Validation(op, "new offers start as draft or pending_review")
	}
	if strings.TrimSpace(o.Origin) == "" || strings.TrimSpace(o.Destination) == "" {
		return apperrors.Validation(op, "origin and destination are required")
	}
	if o.StartAt.Before(now) {
		return apperrors.Validation(op, "start_at must not be in the past")
	}
	if o.ReviewedBy != nil || o.ReviewedAt != nil || o.RejectionReason != "" {
		return apperrors.Validation(op, "review fields are set by moderators only")
	}
	return o.Validate()
}

func (o *DriverOffer) IsReviewed() bool {
	return o.ReviewedBy != nil
}

// Clone returns a deep copy so stored rows never share pointers with callers.
func (o *DriverOffer) Clone() *DriverOffer {
	c := *o
	if o.OriginPoint != nil {
		p := *o.OriginPoint
		c.OriginPoint = &p
	}
	if o.DestinationPoint != nil {
		p := *o.DestinationPoint
		c.DestinationPoint = &p
	}
	if o.ReviewedBy != nil {
		id := *o.ReviewedBy
		c.ReviewedBy = &id
	}
	if o.ReviewedAt != nil {
		t := *o.ReviewedAt
		c.ReviewedAt = &t
	}
	return &c
}
