package services

import (
	"context"
	"testing"

	"offer-moderation/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSnapshotWithoutOffers(t *testing.T) {
	f := newFixture(t)

	snapshot, err := f.stats.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snapshot.Total != 0 || snapshot.PendingReview != 0 || snapshot.GeneratedAt.IsZero() {
		t.Fatalf("expected an empty snapshot, got %+v", snapshot)
	}
}

func TestSnapshotCountsEveryStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, status := range models.AllOfferStatuses {
		f.seed(t, status)
	}
	pending := f.seed(t, models.OfferStatusPendingReview)
	if _, err := f.moderation.Approve(ctx, pending.ID, primitive.NewObjectID(), false); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	snapshot, err := f.stats.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snapshot.Approved != 2 || snapshot.PendingReview != 1 || snapshot.Draft != 1 || snapshot.Archived != 1 {
		t.Fatalf("unexpected counts %+v", snapshot)
	}
	sum := snapshot.Draft + snapshot.PendingReview + snapshot.Approved + snapshot.Published + snapshot.Rejected + snapshot.Archived
	if snapshot.Total != sum || snapshot.Total != 7 {
		t.Fatalf("expected total 7 equal to the sum, got %d (sum %d)", snapshot.Total, sum)
	}
}
