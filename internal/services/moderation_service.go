package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"offer-moderation/internal/apperrors"
	"offer-moderation/internal/models"
	"offer-moderation/internal/repositories/interfaces"
	"offer-moderation/internal/utils"
	"offer-moderation/pkg/logger"
	"offer-moderation/pkg/metrics"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ModerationService interface {
	// Moderator actions
	Approve(ctx context.Context, offerID, actorID primitive.ObjectID, autoPublish bool) (*models.DriverOffer, error)
	Reject(ctx context.Context, offerID, actorID primitive.ObjectID, reason string) (*models.DriverOffer, error)
	Publish(ctx context.Context, offerID, actorID primitive.ObjectID) (*models.DriverOffer, error)
	Archive(ctx context.Context, offerID, actorID primitive.ObjectID) (*models.DriverOffer, error)

	// Queries
	GetOffer(ctx context.Context, offerID primitive.ObjectID) (*models.DriverOffer, error)
	ListOffers(ctx context.Context, filter *interfaces.OfferFilter) ([]*models.DriverOffer, int64, error)
	GetAuditHistory(ctx context.Context, offerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.AuditEntry, int64, error)
}

type moderationService struct {
	offerRepo interfaces.OfferRepository
	audit     *AuditTrail
	events    EventPublisher
	locks     *OfferLocks
	logger    *logger.Logger
}

func NewModerationService(
	offerRepo interfaces.OfferRepository,
	audit *AuditTrail,
	events EventPublisher,
	locks *OfferLocks,
	log *logger.Logger,
) ModerationService {
	if events == nil {
		events = NoopEventPublisher{}
	}
	if locks == nil {
		locks = NewOfferLocks()
	}
	if log == nil {
		log = logger.NewDiscard()
	}

	return &moderationService{
		offerRepo: offerRepo,
		audit:     audit,
		events:    events,
		locks:     locks,
		logger:    log.WithField("component", "moderation_service"),
	}
}

func (s *moderationService) Approve(ctx context.Context, offerID, actorID primitive.ObjectID, autoPublish bool) (*models.DriverOffer, error) {
	const op = "moderation.approve"

	target := models.OfferStatusApproved
	if autoPublish {
		target = models.OfferStatusPublished
	}

	records := []AuditRecord{{
		Action: models.AuditActionOfferApprove,
		Payload: map[string]interface{}{
			"from_status":  string(models.OfferStatusPendingReview),
			"to_status":    string(models.OfferStatusApproved),
			"auto_publish": autoPublish,
		},
	}}
	if autoPublish {
		records = append(records, AuditRecord{
			Action: models.AuditActionOfferPublish,
			Payload: map[string]interface{}{
				"from_status":  string(models.OfferStatusApproved),
				"to_status":    string(models.OfferStatusPublished),
				"auto_publish": true,
			},
		})
	}

	return s.moderate(ctx, op, offerID, actorID, moderation{
		action:   models.AuditActionOfferApprove,
		from:     []models.OfferStatus{models.OfferStatusPendingReview},
		reviewed: []models.OfferStatus{models.OfferStatusApproved, models.OfferStatusPublished},
		to:       target,
		records:  records,
	})
}

func (s *moderationService) Reject(ctx context.Context, offerID, actorID primitive.ObjectID, reason string) (*models.DriverOffer, error) {
	const op = "moderation.reject"

	reason = strings.TrimSpace(reason)
	if reason == "" {
		metrics.ModerationActionsTotal.WithLabelValues(string(models.AuditActionOfferReject), "invalid").Inc()
		return nil, apperrors.Validation(op, "rejection reason is required")
	}
	if utf8.RuneCountInString(reason) > utils.MaxRejectionReasonLen {
		metrics.ModerationActionsTotal.WithLabelValues(string(models.AuditActionOfferReject), "invalid").Inc()
		return nil, apperrors.Validation(op, "rejection reason is too long")
	}

	return s.moderate(ctx, op, offerID, actorID, moderation{
		action:   models.AuditActionOfferReject,
		from:     []models.OfferStatus{models.OfferStatusPendingReview},
		reviewed: []models.OfferStatus{models.OfferStatusApproved, models.OfferStatusPublished, models.OfferStatusRejected},
		to:       models.OfferStatusRejected,
		reason:   reason,
		records: []AuditRecord{{
			Action: models.AuditActionOfferReject,
			Payload: map[string]interface{}{
				"from_status": string(models.OfferStatusPendingReview),
				"to_status":   string(models.OfferStatusRejected),
			},
			Plain: map[string]interface{}{"reason": reason},
		}},
	})
}

func (s *moderationService) Publish(ctx context.Context, offerID, actorID primitive.ObjectID) (*models.DriverOffer, error) {
	return s.moderate(ctx, "moderation.publish", offerID, actorID, moderation{
		action:   models.AuditActionOfferPublish,
		from:     []models.OfferStatus{models.OfferStatusApproved},
		reviewed: []models.OfferStatus{models.OfferStatusPublished},
		to:       models.OfferStatusPublished,
		records: []AuditRecord{{
			Action: models.AuditActionOfferPublish,
			Payload: map[string]interface{}{
				"from_status":  string(models.OfferStatusApproved),
				"to_status":    string(models.OfferStatusPublished),
				"auto_publish": false,
			},
		}},
	})
}

func (s *moderationService) Archive(ctx context.Context, offerID, actorID primitive.ObjectID) (*models.DriverOffer, error) {
	return s.moderate(ctx, "moderation.archive", offerID, actorID, moderation{
		action: models.AuditActionOfferArchive,
		from: []models.OfferStatus{
			models.OfferStatusApproved,
			models.OfferStatusPublished,
			models.OfferStatusRejected,
		},
		reviewed: []models.OfferStatus{models.OfferStatusArchived},
		to:       models.OfferStatusArchived,
		records: []AuditRecord{{
			Action:  models.AuditActionOfferArchive,
			Payload: map[string]interface{}{"to_status": string(models.OfferStatusArchived)},
		}},
	})
}

func (s *moderationService) GetOffer(ctx context.Context, offerID primitive.ObjectID) (*models.DriverOffer, error) {
	return s.offerRepo.GetByID(ctx, offerID)
}

func (s *moderationService) ListOffers(ctx context.Context, filter *interfaces.OfferFilter) ([]*models.DriverOffer, int64, error) {
	if filter != nil && filter.Status != "" && !filter.Status.IsValid() {
		return nil, 0, apperrors.Validation("moderation.list", "unknown status "+string(filter.Status))
	}
	if filter != nil && filter.CreatedFrom != nil && filter.CreatedTo != nil && filter.CreatedFrom.After(*filter.CreatedTo) {
		return nil, 0, apperrors.Validation("moderation.list", "from must not be after to")
	}
	return s.offerRepo.List(ctx, filter)
}

func (s *moderationService) GetAuditHistory(ctx context.Context, offerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.AuditEntry, int64, error) {
	if _, err := s.offerRepo.GetByID(ctx, offerID); err != nil {
		return nil, 0, err
	}
	return s.audit.History(ctx, offerID, params)
}

// moderation describes one moderator action. from lists the statuses the
// action applies to; reviewed lists the statuses that mean another moderator
// got there first.
type moderation struct {
	action   models.AuditAction
	from     []models.OfferStatus
	reviewed []models.OfferStatus
	to       models.OfferStatus
	reason   string
	records  []AuditRecord
}

func (s *moderationService) moderate(ctx context.Context, op string, offerID, actorID primitive.ObjectID, m moderation) (*models.DriverOffer, error) {
	offer, err := s.commit(ctx, op, offerID, actorID, m)
	metrics.ModerationActionsTotal.WithLabelValues(string(m.action), outcome(err)).Inc()
	return offer, err
}

func (s *moderationService) commit(ctx context.Context, op string, offerID, actorID primitive.ObjectID, m moderation) (*models.DriverOffer, error) {
	if actorID.IsZero() {
		return nil, apperrors.Validation(op, "actor is required")
	}

	unlock := s.locks.Lock(offerID)
	defer unlock()

	current, err := s.offerRepo.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}

	from, ok := matchStatus(current.Status, m.from)
	if !ok {
		if _, done := matchStatus(current.Status, m.reviewed); done {
			return nil, apperrors.Conflict(op, "offer was already reviewed: status is "+string(current.Status))
		}
		return nil, apperrors.IllegalTransition(op, string(current.Status), string(m.to))
	}

	updated, err := s.offerRepo.Transition(ctx, offerID, models.StatusChange{
		From:   from,
		To:     m.to,
		Actor:  actorID,
		Reason: m.reason,
	})
	if err != nil {
		return nil, err
	}

	log := s.logger.WithContext(ctx).WithOfferID(offerID).WithActorID(actorID)
	log.LogOfferEvent(offerID, string(m.action), map[string]interface{}{
		"from_status": string(from),
		"to_status":   string(updated.Status),
		"version":     updated.Version,
	})

	for _, rec := range m.records {
		rec.ActorID = actorID
		rec.OfferID = offerID
		rec.Payload = withOfferSnapshot(rec.Payload, updated)
		if rec.Action == models.AuditActionOfferArchive {
			rec.Payload["from_status"] = string(from)
		}
		if _, err := s.audit.Record(ctx, rec); err != nil {
			log.WithError(err).WithField("action", string(rec.Action)).
				Warn("Audit entry not yet persisted")
		}
	}

	event := &models.ModerationEvent{
		Type:       m.action,
		OfferID:    offerID,
		ActorID:    actorID,
		FromStatus: from,
		ToStatus:   updated.Status,
		Version:    updated.Version,
		OccurredAt: updated.UpdatedAt,
	}
	if err := s.events.Publish(ctx, event); err != nil {
		log.WithError(err).Warn("Failed to publish moderation event")
	}

	return updated, nil
}

func matchStatus(status models.OfferStatus, candidates []models.OfferStatus) (models.OfferStatus, bool) {
	for _, candidate := range candidates {
		if status == candidate {
			return candidate, true
		}
	}
	return "", false
}

// withOfferSnapshot adds the offer fields a reviewer needs to understand the
// entry later. The audit trail masks the result.
func withOfferSnapshot(payload map[string]interface{}, offer *models.DriverOffer) map[string]interface{} {
	out := utils.CloneMap(payload)
	if out == nil {
		out = make(map[string]interface{})
	}
	out["driver_id"] = offer.DriverID.Hex()
	out["origin"] = offer.Origin
	out["destination"] = offer.Destination
	out["seats_total"] = offer.SeatsTotal
	out["seats_free"] = offer.SeatsFree
	out["price_per_seat"] = offer.PricePerSeat
	out["currency"] = offer.Currency
	out["version"] = offer.Version
	return out
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, apperrors.ErrConflict):
		return "conflict"
	case errors.Is(err, apperrors.ErrIllegalTransition):
		return "illegal"
	case errors.Is(err, apperrors.ErrValidation):
		return "invalid"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	}
	return "error"
}
