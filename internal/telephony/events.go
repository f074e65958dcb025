package telephony

import (
	"errors"
	"net/url"
	"strconv"
)

// CallStatus is the lifecycle status tracked per call.
type CallStatus string

const (
	StatusInitiated  CallStatus = "initiated"
	StatusRinging    CallStatus = "ringing"
	StatusAnswered   CallStatus = "answered"
	StatusInProgress CallStatus = "in-progress"
	StatusCompleted  CallStatus = "completed"
	StatusFailed     CallStatus = "failed"
)

// MapProviderStatus folds the provider's call-status vocabulary into the
// internal enum. Unknown values report ok=false and are ignored by the
// receiver rather than written through.
func MapProviderStatus(raw string) (CallStatus, bool) {
	switch raw {
	case "queued", "initiated":
		return StatusInitiated, true
	case "ringing":
		return StatusRinging, true
	case "answered":
		return StatusAnswered, true
	case "in-progress":
		return StatusInProgress, true
	case "completed":
		return StatusCompleted, true
	case "busy", "failed", "no-answer", "canceled":
		return StatusFailed, true
	default:
		return "", false
	}
}

// Webhook payloads arrive as one flat form with no explicit type tag.
// DecodeEvent discriminates the two shapes by which required fields are
// present and returns a typed event, so no state-transition logic ever
// touches raw form values.

// Event is either a *CallStatusEvent or a *ConferenceEvent.
type Event interface {
	isEvent()
}

// CallStatusEvent is a direct status notification for one call leg.
type CallStatusEvent struct {
	CallSid   string
	Status    CallStatus
	RawStatus string
	Duration  int
	From      string
	To        string
}

func (*CallStatusEvent) isEvent() {}

// ConferenceEvent is a conference lifecycle notification.
type ConferenceEvent struct {
	Event          string
	ConferenceName string
	ConferenceSid  string

	// Status is the call status the conference event maps to.
	Status CallStatus
}

func (*ConferenceEvent) isEvent() {}

// Conference lifecycle event names, as delivered by the provider.
const (
	ConferenceParticipantJoin  = "participant-join"
	ConferenceParticipantLeave = "participant-leave"
	ConferenceStart            = "conference-start"
	ConferenceEnd              = "conference-end"
)

var ErrUnrecognizedEvent = errors.New("telephony: unrecognized webhook event shape")

// mapConferenceEvent folds a conference lifecycle event into a call
// status: a join or start means a live leg is in the room, a leave or
// end means the call is over.
func mapConferenceEvent(event string) (CallStatus, bool) {
	switch event {
	case ConferenceParticipantJoin, ConferenceStart:
		return StatusAnswered, true
	case ConferenceParticipantLeave, ConferenceEnd:
		return StatusCompleted, true
	default:
		return "", false
	}
}

// DecodeEvent parses one webhook form into a typed event.
func DecodeEvent(form url.Values) (Event, error) {
	if ev := form.Get("StatusCallbackEvent"); ev != "" && form.Get("ConferenceName") != "" {
		status, ok := mapConferenceEvent(ev)
		if !ok {
			return nil, ErrUnrecognizedEvent
		}
		return &ConferenceEvent{
			Event:          ev,
			ConferenceName: form.Get("ConferenceName"),
			ConferenceSid:  form.Get("ConferenceSid"),
			Status:         status,
		}, nil
	}

	if sid, raw := form.Get("CallSid"), form.Get("CallStatus"); sid != "" && raw != "" {
		status, ok := MapProviderStatus(raw)
		if !ok {
			return nil, ErrUnrecognizedEvent
		}
		dur, _ := strconv.Atoi(form.Get("CallDuration"))
		return &CallStatusEvent{
			CallSid:   sid,
			Status:    status,
			RawStatus: raw,
			Duration:  dur,
			From:      form.Get("From"),
			To:        form.Get("To"),
		}, nil
	}

	return nil, ErrUnrecognizedEvent
}

// IsTerminal reports whether s ends the call lifecycle.
func (s CallStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}
