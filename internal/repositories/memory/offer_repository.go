package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"offer-moderation/internal/apperrors"
	"offer-moderation/internal/models"
	"offer-moderation/internal/repositories/interfaces"
	"offer-moderation/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// offerRow guards a single offer. Transitions lock only the row they touch.
type offerRow struct {
	mu    sync.Mutex
	offer *models.DriverOffer
}

type OfferRepository struct {
	mu   sync.RWMutex
	rows map[primitive.ObjectID]*offerRow
	now  func() time.Time
}

func NewOfferRepository() *OfferRepository {
	return &OfferRepository{
		rows: make(map[primitive.ObjectID]*offerRow),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

var _ interfaces.OfferRepository = (*OfferRepository)(nil)

// WithClock replaces the time source used for created_at, updated_at and
// reviewed_at.
func (r *OfferRepository) WithClock(now func() time.Time) *OfferRepository {
	r.now = now
	return r
}

func (r *OfferRepository) Create(_ context.Context, offer *models.DriverOffer) error {
	if offer.ID.IsZero() {
		offer.ID = primitive.NewObjectID()
	}
	now := r.now()
	if offer.CreatedAt.IsZero() {
		offer.CreatedAt = now
	}
	offer.UpdatedAt = offer.CreatedAt
	if offer.Version == 0 {
		offer.Version = 1
	}
	if err := offer.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rows[offer.ID]; exists {
		return apperrors.Conflict("offer.create", "offer already exists")
	}
	r.rows[offer.ID] = &offerRow{offer: offer.Clone()}
	return nil
}

func (r *OfferRepository) GetByID(_ context.Context, id primitive.ObjectID) (*models.DriverOffer, error) {
	row, ok := r.row(id)
	if !ok {
		return nil, apperrors.NotFound("offer.get", "offer")
	}

	row.mu.Lock()
	defer row.mu.Unlock()
	return row.offer.Clone(), nil
}

func (r *OfferRepository) List(_ context.Context, filter *interfaces.OfferFilter) ([]*models.DriverOffer, int64, error) {
	if filter == nil {
		filter = &interfaces.OfferFilter{}
	}
	params := filter.Pagination
	if params == nil {
		params = utils.NewPaginationParams(utils.DefaultPageSize, 0, "", "", "")
	}
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	var matched []*models.DriverOffer
	for _, row := range r.snapshotRows() {
		row.mu.Lock()
		offer := row.offer.Clone()
		row.mu.Unlock()

		if matchesFilter(offer, filter, search) {
			matched = append(matched, offer)
		}
	}

	sortOffers(matched, params.Sort, params.Order == "asc")

	start, end := params.Window(len(matched))
	return matched[start:end], int64(len(matched)), nil
}

func (r *OfferRepository) Transition(_ context.Context, id primitive.ObjectID, change models.StatusChange) (*models.DriverOffer, error) {
	if err := change.Validate(); err != nil {
		return nil, err
	}

	row, ok := r.row(id)
	if !ok {
		return nil, apperrors.NotFound("offer.transition", "offer")
	}

	row.mu.Lock()
	defer row.mu.Unlock()

	next := row.offer.Clone()
	if err := next.Apply(change, r.now()); err != nil {
		return nil, err
	}
	row.offer = next
	return next.Clone(), nil
}

func (r *OfferRepository) CountByStatus(_ context.Context) (map[models.OfferStatus]int64, error) {
	counts := make(map[models.OfferStatus]int64, len(models.AllOfferStatuses))
	for _, row := range r.snapshotRows() {
		row.mu.Lock()
		status := row.offer.Status
		row.mu.Unlock()
		counts[status]++
	}
	return counts, nil
}

func (r *OfferRepository) row(id primitive.ObjectID) (*offerRow, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[id]
	return row, ok
}

func (r *OfferRepository) snapshotRows() []*offerRow {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rows := make([]*offerRow, 0, len(r.rows))
	for _, row := range r.rows {
		rows = append(rows, row)
	}
	return rows
}

func matchesFilter(offer *models.DriverOffer, filter *interfaces.OfferFilter, search string) bool {
	if filter.Status != "" && offer.Status != filter.Status {
		return false
	}
	if filter.DriverID != nil && offer.DriverID != *filter.DriverID {
		return false
	}
	if filter.CreatedFrom != nil && offer.CreatedAt.Before(*filter.CreatedFrom) {
		return false
	}
	if filter.CreatedTo != nil && offer.CreatedAt.After(*filter.CreatedTo) {
		return false
	}
	if search != "" &&
		!strings.Contains(strings.ToLower(offer.Origin), search) &&
		!strings.Contains(strings.ToLower(offer.Destination), search) {
		return false
	}
	return true
}

func sortOffers(offers []*models.DriverOffer, field string, asc bool) {
	less := func(a, b *models.DriverOffer) bool {
		switch field {
		case "updated_at":
			if !a.UpdatedAt.Equal(b.UpdatedAt) {
				return a.UpdatedAt.Before(b.UpdatedAt)
			}
		case "start_at":
			if !a.StartAt.Equal(b.StartAt) {
				return a.StartAt.Before(b.StartAt)
			}
		case "price_per_seat":
			if a.PricePerSeat != b.PricePerSeat {
				return a.PricePerSeat < b.PricePerSeat
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		}
		return a.ID.Hex() < b.ID.Hex()
	}

	sort.Slice(offers, func(i, j int) bool {
		if asc {
			return less(offers[i], offers[j])
		}
		return less(offers[j], offers[i])
	})
}
