package telephony

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"claims-dialer/internal/interactions"
	"claims-dialer/internal/leads"

	"github.com/gin-gonic/gin"
)

func newWebhookFixture(t *testing.T) (*WebhookHandler, *MemoryStatusStore, *leads.MemoryRepo, *interactions.MemoryRepo, *MemoryCallSlots) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := NewMemoryStatusStore()
	leadRepo := leads.NewMemoryRepo()
	interRepo := interactions.NewMemoryRepo()
	slots := NewMemoryCallSlots(1)

	h := &WebhookHandler{
		Store:        store,
		Leads:        leadRepo,
		Interactions: interactions.NewRecorder(interRepo),
		Waiter:       NewJoinWaiter(),
		Slots:        slots,
		Now:          func() time.Time { return time.Unix(1700000100, 0) },
	}
	return h, store, leadRepo, interRepo, slots
}

func postWebhook(t *testing.T, h *WebhookHandler, form url.Values) *httptest.ResponseRecorder {
	t.Helper()

	r := gin.New()
	r.POST("/webhooks/voice/status", h.HandleStatusCallback)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/voice/status", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookLastWriteWins(t *testing.T) {
	h, store, _, _, _ := newWebhookFixture(t)

	// Delivery is unordered: ringing lands first, then a late initiated.
	// The later arrival wins.
	w := postWebhook(t, h, url.Values{"CallSid": {"CA123"}, "CallStatus": {"ringing"}})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	w = postWebhook(t, h, url.Values{"CallSid": {"CA123"}, "CallStatus": {"initiated"}})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	rec, found, _ := store.Get(context.Background(), "CA123")
	if !found || rec.Status != StatusInitiated {
		t.Fatalf("record %+v, want last-arrival status %q", rec, StatusInitiated)
	}
}

func TestWebhookPreservesSeededUser(t *testing.T) {
	h, store, _, _, _ := newWebhookFixture(t)

	seed := StatusRecord{CallSid: "CA123", UserID: "user-1", Status: StatusInitiated, LastUpdated: time.Unix(1700000000, 0)}
	if err := store.Set(context.Background(), seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	postWebhook(t, h, url.Values{"CallSid": {"CA123"}, "CallStatus": {"ringing"}})

	rec, _, _ := store.Get(context.Background(), "CA123")
	if rec.UserID != "user-1" {
		t.Fatalf("user lost on overwrite: %+v", rec)
	}
	if !rec.LastUpdated.Equal(time.Unix(1700000100, 0)) {
		t.Fatalf("arrival stamp not applied: %+v", rec)
	}
}

func TestWebhookTerminalReleasesSlotAndLogsInteraction(t *testing.T) {
	h, store, leadRepo, interRepo, slots := newWebhookFixture(t)

	leadRepo.Put(leads.Lead{ID: "lead-9", Name: "Pat", Phone: "3055551234"})

	if ok, _ := slots.Acquire(context.Background(), "user-1"); !ok {
		t.Fatalf("slot setup failed")
	}
	_ = store.Set(context.Background(), StatusRecord{CallSid: "CA123", UserID: "user-1", Status: StatusInProgress, LastUpdated: time.Unix(1700000000, 0)})

	postWebhook(t, h, url.Values{
		"CallSid":      {"CA123"},
		"CallStatus":   {"completed"},
		"CallDuration": {"72"},
		"To":           {"+13055551234"},
		"From":         {"+13055550000"},
	})

	if ok, _ := slots.Acquire(context.Background(), "user-1"); !ok {
		t.Fatalf("slot not released on terminal status")
	}

	entries := interRepo.Entries()
	if len(entries) != 1 {
		t.Fatalf("interaction entries %+v", entries)
	}
	e := entries[0]
	if e.Type != interactions.TypeCallCompleted || e.LeadID != "lead-9" || e.CallSid != "CA123" {
		t.Fatalf("entry %+v", e)
	}
	if !strings.Contains(e.Detail, "72") {
		t.Fatalf("duration missing from detail %q", e.Detail)
	}
}

func TestWebhookFailedCallLogsFailure(t *testing.T) {
	h, _, leadRepo, interRepo, _ := newWebhookFixture(t)
	leadRepo.Put(leads.Lead{ID: "lead-9", Phone: "+13055551234"})

	postWebhook(t, h, url.Values{
		"CallSid":    {"CA123"},
		"CallStatus": {"no-answer"},
		"To":         {"+13055551234"},
	})

	entries := interRepo.Entries()
	if len(entries) != 1 || entries[0].Type != interactions.TypeCallFailed {
		t.Fatalf("entries %+v", entries)
	}
}

func TestWebhookConferenceLeaveCompletesCall(t *testing.T) {
	h, store, _, _, _ := newWebhookFixture(t)

	postWebhook(t, h, url.Values{
		"StatusCallbackEvent": {"participant-leave"},
		"ConferenceName":      {"dialer-1700000000-abc123xyz"},
	})

	rec, found, _ := store.Get(context.Background(), "1700000000-abc123xyz")
	if !found {
		t.Fatalf("no record under extracted ref")
	}
	if rec.Status != StatusCompleted {
		t.Fatalf("status = %q", rec.Status)
	}
}

func TestWebhookConferenceJoinSignalsWaiter(t *testing.T) {
	h, store, _, _, _ := newWebhookFixture(t)

	postWebhook(t, h, url.Values{
		"StatusCallbackEvent": {"participant-join"},
		"ConferenceName":      {"dialer-1700000000-abc123xyz"},
	})

	if !h.Waiter.Wait(context.Background(), "dialer-1700000000-abc123xyz", 10*time.Millisecond) {
		t.Fatalf("waiter not notified on participant join")
	}

	rec, found, _ := store.Get(context.Background(), "1700000000-abc123xyz")
	if !found || rec.Status != StatusAnswered {
		t.Fatalf("record %+v", rec)
	}
}

func TestWebhookReclaimsWaiterStateOnTeardown(t *testing.T) {
	h, _, _, _, _ := newWebhookFixture(t)

	// A join redelivered after call setup finished re-creates waiter
	// state; the leave event for the room must reclaim it.
	postWebhook(t, h, url.Values{
		"StatusCallbackEvent": {"participant-join"},
		"ConferenceName":      {"dialer-1700000000-abc123xyz"},
	})
	postWebhook(t, h, url.Values{
		"StatusCallbackEvent": {"participant-leave"},
		"ConferenceName":      {"dialer-1700000000-abc123xyz"},
	})

	h.Waiter.mu.Lock()
	n := len(h.Waiter.rooms)
	h.Waiter.mu.Unlock()
	if n != 0 {
		t.Fatalf("%d waiter rooms retained after conference teardown", n)
	}
}

func TestWebhookIgnoresForeignConferences(t *testing.T) {
	h, store, _, _, _ := newWebhookFixture(t)

	w := postWebhook(t, h, url.Values{
		"StatusCallbackEvent": {"participant-leave"},
		"ConferenceName":      {"support-room-7"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, webhooks are always acknowledged", w.Code)
	}

	if _, found, _ := store.Get(context.Background(), "support-room-7"); found {
		t.Fatalf("foreign conference wrote to the status table")
	}
}

func TestWebhookAcksUnrecognizedEvents(t *testing.T) {
	h, _, _, _, _ := newWebhookFixture(t)

	w := postWebhook(t, h, url.Values{"Digits": {"1"}})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 ack", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"success":true`) {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestWebhookDuplicateTerminalKeepsNewCallSlot(t *testing.T) {
	h, store, _, _, slots := newWebhookFixture(t)

	// First call holds the user's slot and completes.
	if ok, _ := slots.Acquire(context.Background(), "user-1"); !ok {
		t.Fatalf("slot setup failed")
	}
	_ = store.Set(context.Background(), StatusRecord{CallSid: "CA1", UserID: "user-1", Status: StatusInProgress, LastUpdated: time.Unix(1700000000, 0)})
	postWebhook(t, h, url.Values{"CallSid": {"CA1"}, "CallStatus": {"completed"}})

	// Second call takes the freed slot.
	if ok, _ := slots.Acquire(context.Background(), "user-1"); !ok {
		t.Fatalf("slot not released by first terminal event")
	}
	_ = store.Set(context.Background(), StatusRecord{CallSid: "CA2", UserID: "user-1", Status: StatusInProgress, LastUpdated: time.Unix(1700000050, 0)})

	// The provider redelivers the first call's terminal event. The
	// second call's slot must stay held.
	postWebhook(t, h, url.Values{"CallSid": {"CA1"}, "CallStatus": {"completed"}})

	if ok, _ := slots.Acquire(context.Background(), "user-1"); ok {
		t.Fatalf("redelivered terminal event released an active call's slot")
	}
}

func TestWebhookDuplicateTerminalLogsOneInteraction(t *testing.T) {
	h, _, leadRepo, interRepo, _ := newWebhookFixture(t)
	leadRepo.Put(leads.Lead{ID: "lead-9", Phone: "+13055551234"})

	form := url.Values{"CallSid": {"CA1"}, "CallStatus": {"completed"}, "To": {"+13055551234"}}
	postWebhook(t, h, form)
	postWebhook(t, h, form)

	if entries := interRepo.Entries(); len(entries) != 1 {
		t.Fatalf("interaction entries %+v, want one per call", entries)
	}
}

func TestWebhookToleratesDuplicates(t *testing.T) {
	h, store, _, _, _ := newWebhookFixture(t)

	for i := 0; i < 3; i++ {
		w := postWebhook(t, h, url.Values{"CallSid": {"CA123"}, "CallStatus": {"completed"}})
		if w.Code != http.StatusOK {
			t.Fatalf("delivery %d: status = %d", i, w.Code)
		}
	}

	rec, found, _ := store.Get(context.Background(), "CA123")
	if !found || rec.Status != StatusCompleted {
		t.Fatalf("record %+v", rec)
	}
}
