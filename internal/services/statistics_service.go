package services

import (
	"context"
	"errors"
	"time"

	"offer-moderation/internal/apperrors"
	"offer-moderation/internal/models"
	"offer-moderation/internal/repositories/interfaces"
)

type StatisticsService interface {
	Snapshot(ctx context.Context) (*models.StatisticsSnapshot, error)
}

type statisticsService struct {
	offerRepo interfaces.OfferRepository
	now       func() time.Time
}

func NewStatisticsService(offerRepo interfaces.OfferRepository) StatisticsService {
	return NewStatisticsServiceWithClock(offerRepo, func() time.Time { return time.Now().UTC() })
}

func NewStatisticsServiceWithClock(offerRepo interfaces.OfferRepository, now func() time.Time) StatisticsService {
	return &statisticsService{offerRepo: offerRepo, now: now}
}

// Snapshot counts offers per status. Counts are recomputed on every call and
// may lag concurrent transitions.
func (s *statisticsService) Snapshot(ctx context.Context) (*models.StatisticsSnapshot, error) {
	counts, err := s.offerRepo.CountByStatus(ctx)
	if err != nil {
		var appErr *apperrors.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperrors.Storage("statistics.snapshot", err)
	}
	return models.NewStatisticsSnapshot(counts, s.now()), nil
}
