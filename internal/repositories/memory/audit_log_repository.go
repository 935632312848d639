package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"offer-moderation/internal/models"
	"offer-moderation/internal/repositories/interfaces"
	"offer-moderation/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AuditLogRepository struct {
	mu      sync.RWMutex
	entries []*models.AuditEntry
	byOffer map[primitive.ObjectID][]*models.AuditEntry
}

func NewAuditLogRepository() *AuditLogRepository {
	return &AuditLogRepository{
		byOffer: make(map[primitive.ObjectID][]*models.AuditEntry),
	}
}

var _ interfaces.AuditLogRepository = (*AuditLogRepository)(nil)

func (r *AuditLogRepository) Create(_ context.Context, entry *models.AuditEntry) error {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	stored := *entry
	stored.Payload = utils.CloneMap(entry.Payload)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, &stored)

	// Retried entries can arrive after younger ones; keep history in
	// creation order.
	history := append(r.byOffer[stored.OfferID], &stored)
	sort.SliceStable(history, func(i, j int) bool {
		a, b := history[i], history[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.Hex() < b.ID.Hex()
	})
	r.byOffer[stored.OfferID] = history
	return nil
}

// GetByOfferID returns entries oldest first.
func (r *AuditLogRepository) GetByOfferID(_ context.Context, offerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.AuditEntry, int64, error) {
	if params == nil {
		params = utils.NewPaginationParams(utils.MaxPageSize, 0, "created_at", "asc", "")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.byOffer[offerID]
	start, end := params.Window(len(all))

	out := make([]*models.AuditEntry, 0, end-start)
	for _, entry := range all[start:end] {
		copied := *entry
		copied.Payload = utils.CloneMap(entry.Payload)
		out = append(out, &copied)
	}
	return out, int64(len(all)), nil
}

// Entries returns every stored entry in append order.
func (r *AuditLogRepository) Entries() []*models.AuditEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.AuditEntry, len(r.entries))
	copy(out, r.entries)
	return out
}
