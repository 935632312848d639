package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"offer-moderation/internal/apperrors"
	"offer-moderation/internal/models"
	"offer-moderation/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestApprovePendingOffer(t *testing.T) {
	f := newFixture(t)
	offer := f.seed(t, models.OfferStatusPendingReview)
	moderator := primitive.NewObjectID()

	updated, err := f.moderation.Approve(context.Background(), offer.ID, moderator, false)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if updated.Status != models.OfferStatusApproved {
		t.Fatalf("expected approved, got %s", updated.Status)
	}
	if updated.ReviewedBy == nil || *updated.ReviewedBy != moderator || updated.ReviewedAt == nil {
		t.Fatalf("expected review fields to be set, got %+v", updated)
	}
	if updated.SeatsFree != offer.SeatsFree || updated.SeatsTotal != offer.SeatsTotal {
		t.Fatalf("moderation must not touch seats")
	}

	entries := f.history(t, offer.ID)
	if len(entries) != 1 || entries[0].Action != models.AuditActionOfferApprove || entries[0].ActorID != moderator {
		t.Fatalf("expected one offer.approve entry, got %+v", entries)
	}

	events := f.events.Events()
	if len(events) != 1 || events[0].ToStatus != models.OfferStatusApproved {
		t.Fatalf("expected one approved event, got %+v", events)
	}
}

func TestApproveWithAutoPublishWritesTwoEntriesInOrder(t *testing.T) {
	f := newFixture(t)
	offer := f.seed(t, models.OfferStatusPendingReview)

	updated, err := f.moderation.Approve(context.Background(), offer.ID, primitive.NewObjectID(), true)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if updated.Status != models.OfferStatusPublished {
		t.Fatalf("expected published, got %s", updated.Status)
	}
	if updated.Version != offer.Version+1 {
		t.Fatalf("expected a single write, version went %d -> %d", offer.Version, updated.Version)
	}

	entries := f.history(t, offer.ID)
	if len(entries) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(entries))
	}
	if entries[0].Action != models.AuditActionOfferApprove || entries[1].Action != models.AuditActionOfferPublish {
		t.Fatalf("expected approve then publish, got %s then %s", entries[0].Action, entries[1].Action)
	}
}

func TestApproveReportsConflictOnceReviewed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, status := range []models.OfferStatus{models.OfferStatusApproved, models.OfferStatusPublished} {
		offer := f.seed(t, status)
		_, err := f.moderation.Approve(ctx, offer.ID, primitive.NewObjectID(), false)
		if !errors.Is(err, apperrors.ErrConflict) {
			t.Fatalf("%s: expected conflict, got %v", status, err)
		}
	}

	for _, status := range []models.OfferStatus{models.OfferStatusDraft, models.OfferStatusRejected, models.OfferStatusArchived} {
		offer := f.seed(t, status)
		_, err := f.moderation.Approve(ctx, offer.ID, primitive.NewObjectID(), false)
		if !errors.Is(err, apperrors.ErrIllegalTransition) {
			t.Fatalf("%s: expected illegal transition, got %v", status, err)
		}
	}
}

func TestApproveUnknownOffer(t *testing.T) {
	f := newFixture(t)
	_, err := f.moderation.Approve(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(), false)
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestModerationRequiresActor(t *testing.T) {
	f := newFixture(t)
	offer := f.seed(t, models.OfferStatusPendingReview)

	_, err := f.moderation.Approve(context.Background(), offer.ID, primitive.NilObjectID, false)
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestConcurrentApprovals(t *testing.T) {
	f := newFixture(t)
	offer := f.seed(t, models.OfferStatusPendingReview)

	var (
		wg      sync.WaitGroup
		results = make([]error, 2)
	)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.moderation.Approve(context.Background(), offer.ID, primitive.NewObjectID(), false)
		}(i)
	}
	wg.Wait()

	successes, conflicts := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, apperrors.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 || conflicts != 1 {
		t.Fatalf("expected one success and one conflict, got %d and %d", successes, conflicts)
	}
	if n := len(f.history(t, offer.ID)); n != 1 {
		t.Fatalf("expected a single audit entry, got %d", n)
	}
}

func TestRejectRequiresReason(t *testing.T) {
	f := newFixture(t)
	offer := f.seed(t, models.OfferStatusPendingReview)
	ctx := context.Background()

	for _, reason := range []string{"", "   ", strings.Repeat("x", 501)} {
		_, err := f.moderation.Reject(ctx, offer.ID, primitive.NewObjectID(), reason)
		if !errors.Is(err, apperrors.ErrValidation) {
			t.Fatalf("reason %q: expected validation error, got %v", reason, err)
		}
	}

	stored, _ := f.offers.GetByID(ctx, offer.ID)
	if stored.Status != models.OfferStatusPendingReview {
		t.Fatalf("expected status to stay pending_review, got %s", stored.Status)
	}
	if n := len(f.history(t, offer.ID)); n != 0 {
		t.Fatalf("expected no audit entries, got %d", n)
	}
}

func TestRejectStoresTrimmedReasonUnmasked(t *testing.T) {
	f := newFixture(t)
	offer := f.seed(t, models.OfferStatusPendingReview)
	reason := "Call the office at +998901234567 to confirm"

	updated, err := f.moderation.Reject(context.Background(), offer.ID, primitive.NewObjectID(), "  "+reason+"  ")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if updated.Status != models.OfferStatusRejected || updated.RejectionReason != reason {
		t.Fatalf("expected rejected with trimmed reason, got %s %q", updated.Status, updated.RejectionReason)
	}

	entries := f.history(t, offer.ID)
	if len(entries) != 1 || entries[0].Action != models.AuditActionOfferReject {
		t.Fatalf("expected one offer.reject entry, got %+v", entries)
	}
	if entries[0].Payload["reason"] != reason {
		t.Fatalf("expected the reason to be stored as given, got %v", entries[0].Payload["reason"])
	}
}

func TestRejectAfterApproveConflicts(t *testing.T) {
	f := newFixture(t)
	offer := f.seed(t, models.OfferStatusPendingReview)
	ctx := context.Background()

	if _, err := f.moderation.Approve(ctx, offer.ID, primitive.NewObjectID(), false); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	_, err := f.moderation.Reject(ctx, offer.ID, primitive.NewObjectID(), "too late")
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestApproveRejectedOfferIsIllegal(t *testing.T) {
	f := newFixture(t)
	offer := f.seed(t, models.OfferStatusPendingReview)
	ctx := context.Background()

	if _, err := f.moderation.Reject(ctx, offer.ID, primitive.NewObjectID(), "blurry photo"); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	_, err := f.moderation.Approve(ctx, offer.ID, primitive.NewObjectID(), false)
	if !errors.Is(err, apperrors.ErrIllegalTransition) {
		t.Fatalf("expected illegal transition, got %v", err)
	}
}

func TestPublishRequiresApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pending := f.seed(t, models.OfferStatusPendingReview)
	if _, err := f.moderation.Publish(ctx, pending.ID, primitive.NewObjectID()); !errors.Is(err, apperrors.ErrIllegalTransition) {
		t.Fatalf("expected illegal transition, got %v", err)
	}

	approved := f.seed(t, models.OfferStatusApproved)
	updated, err := f.moderation.Publish(ctx, approved.ID, primitive.NewObjectID())
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if updated.Status != models.OfferStatusPublished {
		t.Fatalf("expected published, got %s", updated.Status)
	}

	if _, err := f.moderation.Publish(ctx, approved.ID, primitive.NewObjectID()); !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("expected conflict on second publish, got %v", err)
	}
}

func TestArchive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, status := range []models.OfferStatus{models.OfferStatusApproved, models.OfferStatusPublished, models.OfferStatusRejected} {
		offer := f.seed(t, status)
		updated, err := f.moderation.Archive(ctx, offer.ID, primitive.NewObjectID())
		if err != nil {
			t.Fatalf("%s: Archive: %v", status, err)
		}
		if updated.Status != models.OfferStatusArchived || updated.RejectionReason != "" {
			t.Fatalf("%s: expected archived without reason, got %s %q", status, updated.Status, updated.RejectionReason)
		}
		if updated.SeatsFree != offer.SeatsFree {
			t.Fatalf("%s: archiving must not touch seats_free", status)
		}
		entries := f.history(t, offer.ID)
		if len(entries) != 1 || entries[0].Payload["from_status"] != string(status) {
			t.Fatalf("%s: expected one archive entry with from_status, got %+v", status, entries)
		}

		if _, err := f.moderation.Archive(ctx, offer.ID, primitive.NewObjectID()); !errors.Is(err, apperrors.ErrConflict) {
			t.Fatalf("%s: expected conflict on second archive, got %v", status, err)
		}
	}

	for _, status := range []models.OfferStatus{models.OfferStatusDraft, models.OfferStatusPendingReview} {
		offer := f.seed(t, status)
		if _, err := f.moderation.Archive(ctx, offer.ID, primitive.NewObjectID()); !errors.Is(err, apperrors.ErrIllegalTransition) {
			t.Fatalf("%s: expected illegal transition, got %v", status, err)
		}
	}
}

func TestArchiveKeepsReviewer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	offer := f.seed(t, models.OfferStatusPendingReview)
	reviewer := primitive.NewObjectID()

	approved, err := f.moderation.Approve(ctx, offer.ID, reviewer, true)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	archiver := primitive.NewObjectID()
	archived, err := f.moderation.Archive(ctx, offer.ID, archiver)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}

	if archived.ReviewedBy == nil || *archived.ReviewedBy != reviewer || !archived.ReviewedAt.Equal(*approved.ReviewedAt) {
		t.Fatalf("expected the approving moderator to stay the reviewer, got %v", archived.ReviewedBy)
	}
	entries := f.history(t, offer.ID)
	last := entries[len(entries)-1]
	if last.Action != models.AuditActionOfferArchive || last.ActorID != archiver {
		t.Fatalf("expected the archive entry to name the archiving moderator, got %+v", last)
	}
}

func TestAuditFailureDoesNotUndoTransition(t *testing.T) {
	f := newFixture(t)
	offer := f.seed(t, models.OfferStatusPendingReview)
	ctx := context.Background()

	f.auditRepo.SetFailing(true)
	updated, err := f.moderation.Approve(ctx, offer.ID, primitive.NewObjectID(), false)
	if err != nil {
		t.Fatalf("expected approve to succeed despite the audit failure, got %v", err)
	}
	if updated.Status != models.OfferStatusApproved {
		t.Fatalf("expected approved, got %s", updated.Status)
	}
	if f.audit.Pending() != 1 {
		t.Fatalf("expected the entry to wait for retry, pending=%d", f.audit.Pending())
	}

	f.auditRepo.SetFailing(false)
	f.clock.Advance(time.Minute)
	if n := f.audit.ProcessDue(ctx); n != 1 {
		t.Fatalf("expected 1 entry persisted on retry, got %d", n)
	}
	entries := f.history(t, offer.ID)
	if len(entries) != 1 || entries[0].Action != models.AuditActionOfferApprove {
		t.Fatalf("expected the retried approve entry, got %+v", entries)
	}
}

func TestEventPublishFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("redis down")
	offer := f.seed(t, models.OfferStatusPendingReview)

	if _, err := f.moderation.Approve(context.Background(), offer.ID, primitive.NewObjectID(), false); err != nil {
		t.Fatalf("expected approve to succeed, got %v", err)
	}
}

func TestListOffersValidatesFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, models.OfferStatusPendingReview)
	f.seed(t, models.OfferStatusDraft)

	if _, _, err := f.moderation.ListOffers(ctx, &interfaces.OfferFilter{Status: "bogus"}); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}

	from, to := baseTime.Add(time.Hour), baseTime
	if _, _, err := f.moderation.ListOffers(ctx, &interfaces.OfferFilter{CreatedFrom: &from, CreatedTo: &to}); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected validation error for inverted range, got %v", err)
	}

	offers, total, err := f.moderation.ListOffers(ctx, &interfaces.OfferFilter{Status: models.OfferStatusPendingReview})
	if err != nil {
		t.Fatalf("ListOffers: %v", err)
	}
	if total != 1 || len(offers) != 1 {
		t.Fatalf("expected 1 pending offer, got %d", total)
	}
}

func TestGetAuditHistoryUnknownOffer(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.moderation.GetAuditHistory(context.Background(), primitive.NewObjectID(), nil)
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
