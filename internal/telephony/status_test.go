package telephony

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStatusStoreOverwrites(t *testing.T) {
	store := NewMemoryStatusStore()
	ctx := context.Background()

	first := StatusRecord{
		CallSid:     "CA123",
		UserID:      "user-1",
		Status:      StatusRinging,
		Message:     "call ringing",
		LastUpdated: time.Unix(1700000010, 0),
	}
	if err := store.Set(ctx, first); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// A late-arriving earlier event still overwrites: arrival order is
	// the tracking policy, not provider timestamps.
	second := StatusRecord{
		CallSid:     "CA123",
		Status:      StatusInitiated,
		Message:     "call initiated",
		LastUpdated: time.Unix(1700000011, 0),
	}
	if err := store.Set(ctx, second); err != nil {
		t.Fatalf("Set: %v", err)
	}

	rec, found, err := store.Get(ctx, "CA123")
	if err != nil || !found {
		t.Fatalf("Get: found=%v err=%v", found, err)
	}
	if rec.Status != StatusInitiated {
		t.Fatalf("status = %q, want last write %q", rec.Status, StatusInitiated)
	}
}

func TestMemoryStatusStoreMissing(t *testing.T) {
	store := NewMemoryStatusStore()

	if _, found, err := store.Get(context.Background(), "CA404"); found || err != nil {
		t.Fatalf("Get unknown sid: found=%v err=%v", found, err)
	}

	if err := store.Set(context.Background(), StatusRecord{Status: StatusRinging}); err == nil {
		t.Fatalf("record without call sid accepted")
	}
}
