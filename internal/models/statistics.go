package models

import "time"

type StatisticsSnapshot struct {
	Total         int64     `json:"total"`
	Draft         int64     `json:"draft"`
	PendingReview int64     `json:"pending_review"`
	Approved      int64     `json:"approved"`
	Published     int64     `json:"published"`
	Rejected      int64     `json:"rejected"`
	Archived      int64     `json:"archived"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// NewStatisticsSnapshot builds a snapshot whose total is the sum of the
// per-status counts. Unknown statuses are ignored.
func NewStatisticsSnapshot(counts map[OfferStatus]int64, at time.Time) *StatisticsSnapshot {
	s := &StatisticsSnapshot{
		Draft:         counts[OfferStatusDraft],
		PendingReview: counts[OfferStatusPendingReview],
		Approved:      counts[OfferStatusApproved],
		Published:     counts[OfferStatusPublished],
		Rejected:      counts[OfferStatusRejected],
		Archived:      counts[OfferStatusArchived],
		GeneratedAt:   at,
	}
	s.Total = s.Draft + s.PendingReview + s.Approved + s.Published + s.Rejected + s.Archived
	return s
}
