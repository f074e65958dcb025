package telephony

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"claims-dialer/internal/interactions"
	"claims-dialer/internal/leads"
	"claims-dialer/pkg/logger"

	"github.com/gin-gonic/gin"
)

// WebhookHandler receives asynchronous call and conference lifecycle
// events from the telephony network. Delivery is at-least-once and
// unordered across legs; every event is treated as the authoritative
// latest status for its call ref and written through unconditionally.
//
// The endpoint is public: provider webhooks carry no credential and are
// identified by payload shape. Once an event parses, the response is a
// success acknowledgement no matter what the secondary bookkeeping did;
// a non-2xx would make the provider retry and eventually disable the
// callback URL.
type WebhookHandler struct {
	Store        StatusStore
	Leads        leads.Repository
	Interactions *interactions.Recorder
	Waiter       *JoinWaiter
	Slots        CallSlots

	Now func() time.Time
}

func (h *WebhookHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// HandleStatusCallback is the status-webhook endpoint.
func (h *WebhookHandler) HandleStatusCallback(c *gin.Context) {
	log := logger.FromGin(c)

	if err := c.Request.ParseForm(); err != nil {
		log.Warn("status webhook form parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid form"})
		return
	}

	ev, err := DecodeEvent(c.Request.Form)
	if err != nil {
		// Unknown shapes are acknowledged, not rejected: a 4xx would
		// only make the provider redeliver something we still can't read.
		log.Warn("status webhook event not recognized", "err", err)
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	ctx := logger.With(c.Request.Context(), log)

	switch ev := ev.(type) {
	case *CallStatusEvent:
		h.applyCallStatus(ctx, ev)
	case *ConferenceEvent:
		h.applyConferenceEvent(ctx, ev)
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *WebhookHandler) applyCallStatus(ctx context.Context, ev *CallStatusEvent) {
	log := logger.From(ctx)

	prev, found, err := h.Store.Get(ctx, ev.CallSid)
	if err != nil {
		log.Warn("status read failed", "call_sid", ev.CallSid, "err", err)
	}

	rec := StatusRecord{
		CallSid:     ev.CallSid,
		Status:      ev.Status,
		Message:     "call " + ev.RawStatus,
		LastUpdated: h.now(),
	}
	if found {
		rec.UserID = prev.UserID
	}
	if err := h.Store.Set(ctx, rec); err != nil {
		log.Warn("status write failed", "call_sid", ev.CallSid, "err", err)
	}

	if !ev.Status.IsTerminal() {
		return
	}

	// Delivery is at-least-once; the first terminal event did the slot
	// release and the interaction write. A redelivered terminal status
	// must not release a slot a newer call now holds.
	if found && prev.Status.IsTerminal() {
		return
	}

	if h.Slots != nil && rec.UserID != "" {
		if err := h.Slots.Release(ctx, rec.UserID); err != nil {
			log.Warn("call slot release failed", "user_id", rec.UserID, "err", err)
		}
	}

	h.recordTerminalInteraction(ctx, ev, rec.UserID)
}

// recordTerminalInteraction matches the dialed number back to a lead and
// appends an interaction entry. Pure bookkeeping: lookup and write
// failures are logged and dropped.
func (h *WebhookHandler) recordTerminalInteraction(ctx context.Context, ev *CallStatusEvent, userID string) {
	if h.Leads == nil || h.Interactions == nil {
		return
	}

	phone := ev.To
	if phone == "" {
		phone = ev.From
	}
	if phone == "" {
		return
	}

	lead, err := h.Leads.FindByPhone(ctx, phone)
	if err != nil {
		if !errors.Is(err, leads.ErrNotFound) {
			logger.From(ctx).Warn("reverse lead lookup failed", "phone", phone, "err", err)
		}
		return
	}

	entryType := interactions.TypeCallCompleted
	detail := fmt.Sprintf("call %s after %ds", ev.RawStatus, ev.Duration)
	if ev.Status == StatusFailed {
		entryType = interactions.TypeCallFailed
		detail = "call " + ev.RawStatus
	}

	h.Interactions.RecordBestEffort(ctx, interactions.Entry{
		LeadID:  lead.ID,
		UserID:  userID,
		Type:    entryType,
		Detail:  detail,
		CallSid: ev.CallSid,
	})
}

func (h *WebhookHandler) applyConferenceEvent(ctx context.Context, ev *ConferenceEvent) {
	log := logger.From(ctx)

	if h.Waiter != nil {
		switch ev.Event {
		case ConferenceParticipantJoin:
			h.Waiter.Notify(ev.ConferenceName)
		case ConferenceParticipantLeave, ConferenceEnd:
			// Join events redelivered after the orchestrator moved on
			// re-create waiter state; teardown is the last event for a
			// room, so reclaim it here.
			h.Waiter.Forget(ev.ConferenceName)
		}
	}

	ref, ok := ExtractCallRef(ev.ConferenceName)
	if !ok {
		// Not one of ours; nothing to track.
		log.Debug("conference event for unrecognized room", "conference", ev.ConferenceName)
		return
	}

	prev, found, err := h.Store.Get(ctx, ref)
	if err != nil {
		log.Warn("status read failed", "call_ref", ref, "err", err)
	}

	rec := StatusRecord{
		CallSid:     ref,
		Status:      ev.Status,
		Message:     "conference " + ev.Event,
		LastUpdated: h.now(),
	}
	if found {
		rec.UserID = prev.UserID
	}
	if err := h.Store.Set(ctx, rec); err != nil {
		log.Warn("status write failed", "call_ref", ref, "err", err)
	}
}
