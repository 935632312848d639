package services

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"sync"
	"time"

	"offer-moderation/internal/apperrors"
	"offer-moderation/internal/config"
	"offer-moderation/internal/models"
	"offer-moderation/internal/repositories/interfaces"
	"offer-moderation/internal/utils"
	"offer-moderation/pkg/logger"
	"offer-moderation/pkg/metrics"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuditRecord is one moderation action to be written to the audit trail.
// Payload is masked before storage; Plain is stored as given.
type AuditRecord struct {
	ActorID primitive.ObjectID
	Action  models.AuditAction
	OfferID primitive.ObjectID
	Payload map[string]interface{}
	Plain   map[string]interface{}
}

type AuditRetryConfig struct {
	MaxAttempts   int
	QueueSize     int
	Backoff       BackoffConfig
	AppendTimeout time.Duration
	PollInterval  time.Duration
}

func AuditRetryConfigFrom(cfg *config.ModerationConfig) AuditRetryConfig {
	return AuditRetryConfig{
		MaxAttempts: cfg.AuditRetryAttempts,
		QueueSize:   cfg.AuditRetryQueueSize,
		Backoff: BackoffConfig{
			BaseDelay: cfg.AuditRetryBaseDelay,
			MaxDelay:  cfg.AuditRetryMaxDelay,
		},
		AppendTimeout: cfg.AuditAppendTimeout,
		PollInterval:  cfg.AuditRetryBaseDelay,
	}
}

// AuditTrail appends masked entries to the audit log. An append that fails
// is kept in memory and retried by Run until it succeeds or runs out of
// attempts, at which point the entry is written to the error log.
type AuditTrail struct {
	repo        interfaces.AuditLogRepository
	logger      *logger.Logger
	auditLogger *logger.AuditLogger
	cfg         AuditRetryConfig
	now         func() time.Time

	mu      sync.Mutex
	rng     *rand.Rand
	pending []*pendingAudit
	stopped bool
}

type pendingAudit struct {
	entry       *models.AuditEntry
	attempts    int
	nextAttempt time.Time
}

func NewAuditTrail(repo interfaces.AuditLogRepository, log *logger.Logger, cfg AuditRetryConfig) *AuditTrail {
	if log == nil {
		log = logger.NewDiscard()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = utils.DefaultAuditRetryAttempts
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = utils.DefaultAuditRetryQueue
	}
	if cfg.AppendTimeout <= 0 {
		cfg.AppendTimeout = 5 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultBackoff().BaseDelay
	}

	return &AuditTrail{
		repo:        repo,
		logger:      log.WithField("component", "audit_trail"),
		auditLogger: logger.NewAuditLoggerFrom(log),
		cfg:         cfg,
		now:         func() time.Time { return time.Now().UTC() },
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (a *AuditTrail) WithClock(now func() time.Time) *AuditTrail {
	a.now = now
	return a
}

// Record masks and appends one entry. A non-nil error means the append failed
// and the entry was handed to the retry queue; the returned entry is still the
// one that will eventually be stored.
func (a *AuditTrail) Record(ctx context.Context, rec AuditRecord) (*models.AuditEntry, error) {
	const op = "audit.record"

	if rec.ActorID.IsZero() {
		return nil, apperrors.Validation(op, "actor is required")
	}
	if rec.OfferID.IsZero() {
		return nil, apperrors.Validation(op, "offer is required")
	}
	if rec.Action == "" {
		return nil, apperrors.Validation(op, "action is required")
	}

	entry := &models.AuditEntry{
		ID:        primitive.NewObjectID(),
		ActorID:   rec.ActorID,
		Action:    rec.Action,
		OfferID:   rec.OfferID,
		Payload:   buildAuditPayload(rec.Payload, rec.Plain),
		CreatedAt: a.now(),
	}

	a.auditLogger.LogModeration(string(entry.Action), entry.OfferID, entry.ActorID, entry.Payload)

	err := a.append(ctx, entry)
	if err == nil {
		return entry, nil
	}

	metrics.AuditAppendFailuresTotal.Inc()
	a.logger.WithOfferID(entry.OfferID).WithError(err).
		WithField("action", string(entry.Action)).
		Warn("Audit append failed, queued for retry")
	a.schedule(entry, 1, err)

	return entry, apperrors.Storage(op, err)
}

// History lists the audit entries of one offer, oldest first.
func (a *AuditTrail) History(ctx context.Context, offerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.AuditEntry, int64, error) {
	entries, total, err := a.repo.GetByOfferID(ctx, offerID, params)
	if err != nil {
		var appErr *apperrors.Error
		if errors.As(err, &appErr) {
			return nil, 0, err
		}
		return nil, 0, apperrors.Storage("audit.history", err)
	}
	return entries, total, nil
}

// Pending reports how many entries wait for another attempt.
func (a *AuditTrail) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// Run drains the retry queue until ctx is cancelled. On shutdown every
// remaining entry gets one last attempt; appends failing after that are
// dropped straight away since nothing would retry them.
func (a *AuditTrail) Run(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()

	a.logger.Infof("Audit retry worker started: max_attempts=%d queue=%d", a.cfg.MaxAttempts, a.cfg.QueueSize)

	for {
		select {
		case <-ctx.Done():
			a.stop()
			a.Flush(context.Background())
			a.logger.Info("Audit retry worker stopped")
			return
		case <-ticker.C:
			a.ProcessDue(ctx)
		}
	}
}

// ProcessDue retries every queued entry whose backoff has elapsed and
// returns how many were persisted.
func (a *AuditTrail) ProcessDue(ctx context.Context) int {
	due := a.takePending(func(p *pendingAudit) bool {
		return !p.nextAttempt.After(a.now())
	})
	return a.retry(ctx, due, false)
}

// Flush makes one final attempt for every queued entry regardless of its
// backoff. Entries that still fail are written to the error log.
func (a *AuditTrail) Flush(ctx context.Context) int {
	all := a.takePending(func(*pendingAudit) bool { return true })
	return a.retry(ctx, all, true)
}

func (a *AuditTrail) retry(ctx context.Context, batch []*pendingAudit, final bool) int {
	persisted := 0
	for _, p := range batch {
		p.attempts++
		err := a.append(ctx, p.entry)
		if err == nil {
			persisted++
			a.logger.WithOfferID(p.entry.OfferID).
				WithFields(map[string]interface{}{
					"action":   string(p.entry.Action),
					"attempts": p.attempts,
				}).Info("Audit entry persisted after retry")
			continue
		}

		if final || p.attempts >= a.cfg.MaxAttempts {
			a.drop(p.entry, p.attempts, err)
			continue
		}
		a.schedule(p.entry, p.attempts, err)
	}
	a.updateDepth()
	return persisted
}

func (a *AuditTrail) append(ctx context.Context, entry *models.AuditEntry) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.AppendTimeout)
	defer cancel()

	stored := *entry
	stored.Payload = utils.CloneMap(entry.Payload)
	return a.repo.Create(ctx, &stored)
}

func (a *AuditTrail) schedule(entry *models.AuditEntry, attempts int, err error) {
	if attempts >= a.cfg.MaxAttempts {
		a.drop(entry, attempts, err)
		return
	}

	a.mu.Lock()
	if a.stopped || len(a.pending) >= a.cfg.QueueSize {
		a.mu.Unlock()
		a.drop(entry, attempts, err)
		return
	}
	a.pending = append(a.pending, &pendingAudit{
		entry:       entry,
		attempts:    attempts,
		nextAttempt: NextRetryAt(a.now(), attempts, a.cfg.Backoff, a.rng),
	})
	a.mu.Unlock()

	a.updateDepth()
}

func (a *AuditTrail) stop() {
	a.mu.Lock()
	a.stopped = true
	a.mu.Unlock()
}

func (a *AuditTrail) takePending(match func(*pendingAudit) bool) []*pendingAudit {
	a.mu.Lock()
	defer a.mu.Unlock()

	var taken, kept []*pendingAudit
	for _, p := range a.pending {
		if match(p) {
			taken = append(taken, p)
		} else {
			kept = append(kept, p)
		}
	}
	a.pending = kept

	sort.SliceStable(taken, func(i, j int) bool {
		return taken[i].entry.CreatedAt.Before(taken[j].entry.CreatedAt)
	})
	return taken
}

func (a *AuditTrail) drop(entry *models.AuditEntry, attempts int, err error) {
	metrics.AuditEntriesDroppedTotal.Inc()
	a.auditLogger.LogDropped(string(entry.Action), entry.OfferID, entry.ActorID, entry.Payload, attempts, err)
}

func (a *AuditTrail) updateDepth() {
	metrics.AuditRetryQueueDepth.Set(float64(a.Pending()))
}

func buildAuditPayload(payload, plain map[string]interface{}) map[string]interface{} {
	masked := utils.MaskPayload(payload)
	if len(plain) == 0 {
		return masked
	}
	if masked == nil {
		masked = make(map[string]interface{}, len(plain))
	}
	for key, value := range plain {
		masked[key] = value
	}
	return masked
}
