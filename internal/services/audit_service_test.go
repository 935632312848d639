package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"offer-moderation/internal/apperrors"
	"offer-moderation/internal/models"
	"offer-moderation/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func approveRecord(offerID primitive.ObjectID) AuditRecord {
	return AuditRecord{
		ActorID: primitive.NewObjectID(),
		Action:  models.AuditActionOfferApprove,
		OfferID: offerID,
		Payload: map[string]interface{}{
			"phone":   "+998901234567",
			"email":   "driver@example.com",
			"token":   "secret",
			"contact": map[string]interface{}{"password": "hunter2", "city": "Tashkent"},
		},
	}
}

func TestRecordMasksPayload(t *testing.T) {
	f := newFixture(t)
	offerID := primitive.NewObjectID()

	entry, err := f.audit.Record(context.Background(), approveRecord(offerID))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if entry.ID.IsZero() || entry.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp to be assigned")
	}

	stored := f.history(t, offerID)[0].Payload
	if stored["phone"] != "+998**...67" {
		t.Fatalf("expected masked phone, got %v", stored["phone"])
	}
	if stored["email"] != "d**r@example.com" {
		t.Fatalf("expected masked email, got %v", stored["email"])
	}
	if stored["token"] != utils.RedactionMarker {
		t.Fatalf("expected redacted token, got %v", stored["token"])
	}
	contact, ok := stored["contact"].(map[string]interface{})
	if !ok || contact["password"] != utils.RedactionMarker || contact["city"] != "Tashkent" {
		t.Fatalf("expected nested password to be masked, got %v", stored["contact"])
	}
}

func TestRecordRejectsIncompleteRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := approveRecord(primitive.NewObjectID())
	rec.ActorID = primitive.NilObjectID
	if _, err := f.audit.Record(ctx, rec); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected validation error for missing actor, got %v", err)
	}

	rec = approveRecord(primitive.NewObjectID())
	rec.Action = ""
	if _, err := f.audit.Record(ctx, rec); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected validation error for missing action, got %v", err)
	}
}

func TestFailedAppendIsQueued(t *testing.T) {
	f := newFixture(t)
	f.auditRepo.SetFailing(true)

	entry, err := f.audit.Record(context.Background(), approveRecord(primitive.NewObjectID()))
	if !errors.Is(err, apperrors.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if entry == nil {
		t.Fatalf("expected the queued entry to be returned")
	}
	if f.audit.Pending() != 1 {
		t.Fatalf("expected 1 pending entry, got %d", f.audit.Pending())
	}
}

func TestProcessDueWaitsForBackoff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.auditRepo.SetFailing(true)

	for i := 0; i < 3; i++ {
		f.audit.Record(ctx, approveRecord(primitive.NewObjectID()))
	}
	f.auditRepo.SetFailing(false)

	// Backoff after the first failure is at most one second.
	f.clock.Advance(2 * time.Second)
	if n := f.audit.ProcessDue(ctx); n != 3 {
		t.Fatalf("expected 3 entries persisted, got %d", n)
	}
	if f.audit.Pending() != 0 {
		t.Fatalf("expected an empty queue, got %d", f.audit.Pending())
	}
	if n := len(f.auditRepo.Entries()); n != 3 {
		t.Fatalf("expected 3 stored entries, got %d", n)
	}
}

func TestEntryDroppedAfterMaxAttempts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.auditRepo.SetFailing(true)

	f.audit.Record(ctx, approveRecord(primitive.NewObjectID()))
	for i := 0; i < 5 && f.audit.Pending() > 0; i++ {
		f.clock.Advance(time.Minute)
		f.audit.ProcessDue(ctx)
	}

	if f.audit.Pending() != 0 {
		t.Fatalf("expected the entry to be dropped, pending=%d", f.audit.Pending())
	}
	if f.auditRepo.calls != 3 {
		t.Fatalf("expected 3 append attempts, got %d", f.auditRepo.calls)
	}
}

func TestQueueOverflowDropsEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.auditRepo.SetFailing(true)

	for i := 0; i < 10; i++ {
		f.audit.Record(ctx, approveRecord(primitive.NewObjectID()))
	}
	if f.audit.Pending() != 8 {
		t.Fatalf("expected the queue to stop at its capacity of 8, got %d", f.audit.Pending())
	}
}

func TestFlushIgnoresBackoff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.auditRepo.SetFailing(true)

	f.audit.Record(ctx, approveRecord(primitive.NewObjectID()))
	f.auditRepo.SetFailing(false)

	if n := f.audit.Flush(ctx); n != 1 {
		t.Fatalf("expected flush to persist 1 entry, got %d", n)
	}
	if f.audit.Pending() != 0 {
		t.Fatalf("expected an empty queue after flush")
	}
}

func TestRunFlushesOnShutdown(t *testing.T) {
	f := newFixture(t)
	f.auditRepo.SetFailing(true)
	f.audit.Record(context.Background(), approveRecord(primitive.NewObjectID()))
	f.auditRepo.SetFailing(false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.audit.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
	if n := len(f.auditRepo.Entries()); n != 1 {
		t.Fatalf("expected the queued entry to be flushed, got %d stored", n)
	}
}

func TestAppendFailingAfterShutdownIsDropped(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.audit.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}

	f.auditRepo.SetFailing(true)
	entry, err := f.audit.Record(context.Background(), approveRecord(primitive.NewObjectID()))
	if !errors.Is(err, apperrors.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if entry == nil {
		t.Fatalf("expected the dropped entry to be returned")
	}
	if f.audit.Pending() != 0 {
		t.Fatalf("expected nothing queued once the worker stopped, got %d", f.audit.Pending())
	}
	if f.auditRepo.calls != 1 {
		t.Fatalf("expected a single append attempt, got %d", f.auditRepo.calls)
	}
}
