package interactions

import (
	"context"
	"errors"
	"testing"
)

func TestRecordStampsIDAndTimestamp(t *testing.T) {
	repo := NewMemoryRepo()
	rec := NewRecorder(repo)

	err := rec.Record(context.Background(), Entry{LeadID: "l1", UserID: "u1", Type: TypeCallPlaced, Detail: "outbound call"})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	got := repo.Entries()
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	if got[0].ID == "" || got[0].CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp to be stamped: %+v", got[0])
	}
}

func TestRecordRejectsInvalidEntry(t *testing.T) {
	rec := NewRecorder(NewMemoryRepo())
	if err := rec.Record(context.Background(), Entry{Type: TypeCallPlaced}); !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("expected ErrInvalidEntry, got %v", err)
	}
	if err := rec.Record(context.Background(), Entry{LeadID: "l1"}); !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("expected ErrInvalidEntry, got %v", err)
	}
}

func TestRecordBestEffortSwallowsFailure(t *testing.T) {
	repo := NewMemoryRepo()
	repo.FailWith = errors.New("db down")
	rec := NewRecorder(repo)

	// Must not panic or propagate.
	rec.RecordBestEffort(context.Background(), Entry{LeadID: "l1", Type: TypeCallPlaced})

	if len(repo.Entries()) != 0 {
		t.Fatalf("expected no entries")
	}
}
