package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"offer-moderation/internal/models"
	"offer-moderation/internal/repositories/interfaces"
	"offer-moderation/internal/repositories/memory"
	"offer-moderation/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var baseTime = time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)

// testClock hands out strictly increasing timestamps.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock { return &testClock{now: baseTime} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// flakyAuditRepo fails every append while failing is set.
type flakyAuditRepo struct {
	*memory.AuditLogRepository

	mu      sync.Mutex
	failing bool
	calls   int
}

func newFlakyAuditRepo() *flakyAuditRepo {
	return &flakyAuditRepo{AuditLogRepository: memory.NewAuditLogRepository()}
}

func (r *flakyAuditRepo) SetFailing(failing bool) {
	r.mu.Lock()
	r.failing = failing
	r.mu.Unlock()
}

func (r *flakyAuditRepo) Create(ctx context.Context, entry *models.AuditEntry) error {
	r.mu.Lock()
	r.calls++
	failing := r.failing
	r.mu.Unlock()

	if failing {
		return errors.New("audit store unavailable")
	}
	return r.AuditLogRepository.Create(ctx, entry)
}

var _ interfaces.AuditLogRepository = (*flakyAuditRepo)(nil)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*models.ModerationEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event *models.ModerationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Events() []*models.ModerationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*models.ModerationEvent(nil), p.events...)
}

type fixture struct {
	clock      *testClock
	offers     *memory.OfferRepository
	auditRepo  *flakyAuditRepo
	audit      *AuditTrail
	events     *recordingPublisher
	moderation ModerationService
	drivers    OfferService
	stats      StatisticsService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := newTestClock()
	offers := memory.NewOfferRepository().WithClock(clock.Now)
	auditRepo := newFlakyAuditRepo()
	audit := NewAuditTrail(auditRepo, nil, AuditRetryConfig{
		MaxAttempts: 3,
		QueueSize:   8,
		Backoff:     BackoffConfig{BaseDelay: time.Second, MaxDelay: 4 * time.Second},
	}).WithClock(clock.Now)
	events := &recordingPublisher{}
	locks := NewOfferLocks()

	return &fixture{
		clock:      clock,
		offers:     offers,
		auditRepo:  auditRepo,
		audit:      audit,
		events:     events,
		moderation: NewModerationService(offers, audit, events, locks, nil),
		drivers:    NewOfferServiceWithClock(offers, audit, events, locks, nil, "uzs", clock.Now),
		stats:      NewStatisticsServiceWithClock(offers, clock.Now),
	}
}

func (f *fixture) seed(t *testing.T, status models.OfferStatus) *models.DriverOffer {
	t.Helper()

	offer := &models.DriverOffer{
		DriverID:     primitive.NewObjectID(),
		Origin:       "Tashkent",
		Destination:  "Samarkand",
		SeatsTotal:   4,
		SeatsFree:    3,
		PricePerSeat: 120000,
		Currency:     "UZS",
		StartAt:      baseTime.Add(72 * time.Hour),
		Status:       status,
	}
	if status == models.OfferStatusRejected {
		offer.RejectionReason = "missing car photo"
	}
	if err := f.offers.Create(context.Background(), offer); err != nil {
		t.Fatalf("seed %s offer: %v", status, err)
	}
	return offer
}

func (f *fixture) history(t *testing.T, offerID primitive.ObjectID) []*models.AuditEntry {
	t.Helper()
	entries, _, err := f.audit.History(context.Background(), offerID, utils.NewPaginationParams(utils.MaxPageSize, 0, "created_at", "asc", ""))
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	return entries
}
