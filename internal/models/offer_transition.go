package models

import (
	"strings"
	"time"

	"offer-moderation/internal/apperrors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// transitions is the complete edge set of the offer lifecycle.
// Driver edges do not touch the review fields.
var transitions = map[OfferStatus]map[OfferStatus]TransitionKind{
	OfferStatusDraft: {
		OfferStatusPendingReview: TransitionByDriver,
	},
	OfferStatusRejected: {
		OfferStatusPendingReview: TransitionByDriver,
		OfferStatusArchived:      TransitionByModerator,
	},
	OfferStatusPendingReview: {
		OfferStatusApproved:  TransitionByModerator,
		OfferStatusPublished: TransitionByModerator,
		OfferStatusRejected:  TransitionByModerator,
	},
	OfferStatusApproved: {
		OfferStatusPublished: TransitionByModerator,
		OfferStatusArchived:  TransitionByModerator,
	},
	OfferStatusPublished: {
		OfferStatusArchived: TransitionByModerator,
	},
}

type TransitionKind int

const (
	TransitionByDriver TransitionKind = iota + 1
	TransitionByModerator
)

// StatusChange describes one guarded transition: it applies only while the
// offer is still in From.
type StatusChange struct {
	From   OfferStatus
	To     OfferStatus
	Actor  primitive.ObjectID
	Reason string
}

func CanTransition(from, to OfferStatus) bool {
	_, ok := transitions[from][to]
	return ok
}

// Kind reports who is allowed to trigger the change. It is only meaningful
// for changes that passed Validate.
func (c StatusChange) Kind() TransitionKind {
	return transitions[c.From][c.To]
}

// SetsReview reports whether the change records its actor as reviewer.
// Archiving keeps the last reviewer.
func (c StatusChange) SetsReview() bool {
	return c.Kind() == TransitionByModerator && c.To != OfferStatusArchived
}

// Validate rejects undefined edges and missing rejection reasons before
// anything is read or written.
func (c StatusChange) Validate() error {
	const op = "offer.transition"

	if !CanTransition(c.From, c.To) {
		return apperrors.IllegalTransition(op, string(c.From), string(c.To))
	}
	if c.To == OfferStatusRejected && strings.TrimSpace(c.Reason) == "" {
		return apperrors.Validation(op, "rejection reason is required")
	}
	if c.Actor.IsZero() {
		return apperrors.Validation(op, "actor is required")
	}
	return nil
}

// Apply mutates o according to c. The caller must hold whatever guard makes
// the From comparison atomic with the write.
func (o *DriverOffer) Apply(c StatusChange, now time.Time) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if o.Status != c.From {
		return apperrors.Conflict("offer.transition", "offer is "+string(o.Status)+", expected "+string(c.From))
	}

	o.Status = c.To
	if c.To == OfferStatusRejected {
		o.RejectionReason = strings.TrimSpace(c.Reason)
	} else {
		o.RejectionReason = ""
	}
	if c.SetsReview() {
		actor := c.Actor
		reviewedAt := now
		o.ReviewedBy = &actor
		o.ReviewedAt = &reviewedAt
	}
	o.UpdatedAt = now
	o.Version++

	return o.Validate()
}
