package services

import (
	"context"
	"strings"
	"time"

	"offer-moderation/internal/apperrors"
	"offer-moderation/internal/models"
	"offer-moderation/internal/repositories/interfaces"
	"offer-moderation/internal/utils"
	"offer-moderation/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OfferService covers the driver side of the lifecycle: creating offers and
// sending them to moderation.
type OfferService interface {
	Create(ctx context.Context, driverID primitive.ObjectID, req *models.CreateOfferRequest) (*models.DriverOffer, error)
	Submit(ctx context.Context, offerID, driverID primitive.ObjectID) (*models.DriverOffer, error)
	GetOwn(ctx context.Context, offerID, driverID primitive.ObjectID) (*models.DriverOffer, error)
	ListOwn(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.DriverOffer, int64, error)
}

type offerService struct {
	offerRepo       interfaces.OfferRepository
	audit           *AuditTrail
	events          EventPublisher
	locks           *OfferLocks
	logger          *logger.Logger
	defaultCurrency string
	now             func() time.Time
}

func NewOfferService(
	offerRepo interfaces.OfferRepository,
	audit *AuditTrail,
	events EventPublisher,
	locks *OfferLocks,
	log *logger.Logger,
	defaultCurrency string,
) OfferService {
	return NewOfferServiceWithClock(offerRepo, audit, events, locks, log, defaultCurrency, func() time.Time { return time.Now().UTC() })
}

func NewOfferServiceWithClock(
	offerRepo interfaces.OfferRepository,
	audit *AuditTrail,
	events EventPublisher,
	locks *OfferLocks,
	log *logger.Logger,
	defaultCurrency string,
	now func() time.Time,
) OfferService {
	if events == nil {
		events = NoopEventPublisher{}
	}
	if locks == nil {
		locks = NewOfferLocks()
	}
	if log == nil {
		log = logger.NewDiscard()
	}
	if defaultCurrency == "" {
		defaultCurrency = utils.DefaultCurrency
	}

	return &offerService{
		offerRepo:       offerRepo,
		audit:           audit,
		events:          events,
		locks:           locks,
		logger:          log.WithField("component", "offer_service"),
		defaultCurrency: strings.ToUpper(defaultCurrency),
		now:             now,
	}
}

func (s *offerService) Create(ctx context.Context, driverID primitive.ObjectID, req *models.CreateOfferRequest) (*models.DriverOffer, error) {
	const op = "offer.create"

	if driverID.IsZero() {
		return nil, apperrors.Validation(op, "driver is required")
	}
	if req == nil {
		return nil, apperrors.Validation(op, "offer is required")
	}

	status := models.OfferStatusDraft
	if req.Submit {
		status = models.OfferStatusPendingReview
	}
	seatsFree := req.SeatsTotal
	if req.SeatsFree != nil {
		seatsFree = *req.SeatsFree
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}

	offer := &models.DriverOffer{
		DriverID:         driverID,
		Origin:           strings.TrimSpace(req.Origin),
		Destination:      strings.TrimSpace(req.Destination),
		OriginPoint:      req.OriginPoint,
		DestinationPoint: req.DestinationPoint,
		SeatsTotal:       req.SeatsTotal,
		SeatsFree:        seatsFree,
		PricePerSeat:     req.PricePerSeat,
		Currency:         currency,
		StartAt:          req.StartAt.UTC(),
		Status:           status,
	}
	if err := offer.ValidateNew(s.now()); err != nil {
		return nil, err
	}
	if err := s.offerRepo.Create(ctx, offer); err != nil {
		return nil, err
	}

	log := s.logger.WithContext(ctx).WithOfferID(offer.ID)
	log.LogOfferEvent(offer.ID, "offer.create", map[string]interface{}{
		"driver_id": driverID.Hex(),
		"status":    string(offer.Status),
	})

	if req.Submit {
		// Created straight into review: there is no previous status.
		s.recordSubmit(ctx, offer, "", driverID)
	}
	return offer, nil
}

// Submit sends a draft or a rejected offer back to moderation.
func (s *offerService) Submit(ctx context.Context, offerID, driverID primitive.ObjectID) (*models.DriverOffer, error) {
	const op = "offer.submit"

	if driverID.IsZero() {
		return nil, apperrors.Validation(op, "driver is required")
	}

	unlock := s.locks.Lock(offerID)
	defer unlock()

	current, err := s.GetOwn(ctx, offerID, driverID)
	if err != nil {
		return nil, err
	}

	switch current.Status {
	case models.OfferStatusDraft, models.OfferStatusRejected:
	case models.OfferStatusPendingReview:
		return nil, apperrors.Conflict(op, "offer is already pending review")
	default:
		return nil, apperrors.IllegalTransition(op, string(current.Status), string(models.OfferStatusPendingReview))
	}
	if current.StartAt.Before(s.now()) {
		return nil, apperrors.Validation(op, "start_at is in the past")
	}

	updated, err := s.offerRepo.Transition(ctx, offerID, models.StatusChange{
		From:  current.Status,
		To:    models.OfferStatusPendingReview,
		Actor: driverID,
	})
	if err != nil {
		return nil, err
	}

	s.recordSubmit(ctx, updated, current.Status, driverID)
	return updated, nil
}

// GetOwn hides offers of other drivers behind NotFound.
func (s *offerService) GetOwn(ctx context.Context, offerID, driverID primitive.ObjectID) (*models.DriverOffer, error) {
	offer, err := s.offerRepo.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.DriverID != driverID {
		return nil, apperrors.NotFound("offer.get", "offer")
	}
	return offer, nil
}

func (s *offerService) ListOwn(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.DriverOffer, int64, error) {
	return s.offerRepo.List(ctx, &interfaces.OfferFilter{
		DriverID:   &driverID,
		Pagination: params,
	})
}

func (s *offerService) recordSubmit(ctx context.Context, offer *models.DriverOffer, from models.OfferStatus, driverID primitive.ObjectID) {
	log := s.logger.WithContext(ctx).WithOfferID(offer.ID)

	payload := map[string]interface{}{"to_status": string(offer.Status)}
	if from != "" {
		payload["from_status"] = string(from)
	}

	_, err := s.audit.Record(ctx, AuditRecord{
		ActorID: driverID,
		Action:  models.AuditActionOfferSubmit,
		OfferID: offer.ID,
		Payload: withOfferSnapshot(payload, offer),
	})
	if err != nil {
		log.WithError(err).Warn("Audit entry not yet persisted")
	}

	err = s.events.Publish(ctx, &models.ModerationEvent{
		Type:       models.AuditActionOfferSubmit,
		OfferID:    offer.ID,
		ActorID:    driverID,
		FromStatus: from,
		ToStatus:   offer.Status,
		Version:    offer.Version,
		OccurredAt: offer.UpdatedAt,
	})
	if err != nil {
		log.WithError(err).Warn("Failed to publish moderation event")
	}
}
