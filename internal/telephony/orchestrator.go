package telephony

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"claims-dialer/internal/config"
	"claims-dialer/internal/interactions"
	"claims-dialer/internal/numbers"
	"claims-dialer/pkg/logger"
)

// Orchestrator performs the two-leg call setup: the browser leg joins a
// named conference through the softphone SDK, and the PSTN leg is dialed
// into the same conference through the provider's REST API. The webhook
// receiver then tracks both legs by conference name and call SID.
type Orchestrator struct {
	Twilio config.TwilioConfig

	Rest         *RestClient
	Store        StatusStore
	Numbers      numbers.Resolver
	Interactions *interactions.Recorder
	Waiter       *JoinWaiter
	Slots        CallSlots

	// Now is injectable for tests; time.Now when nil.
	Now func() time.Time
}

// StartCallRequest is one outbound call attempt.
type StartCallRequest struct {
	UserID      string
	PhoneNumber string
	LeadID      string

	// ConferenceID names the room the browser leg already joined (or is
	// joining). Empty when the client delegates naming to the server.
	ConferenceID string
}

// StartCallResult reports the created PSTN leg.
type StartCallResult struct {
	CallSid      string
	Status       CallStatus
	ConferenceID string
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// StartCall validates the request, resolves the caller ID, waits for the
// browser leg to join the conference (bounded by the join grace period),
// dials the destination into the same conference, and seeds the status
// table with the provider-assigned call SID.
func (o *Orchestrator) StartCall(ctx context.Context, req StartCallRequest) (StartCallResult, error) {
	log := logger.From(ctx)

	if req.PhoneNumber == "" {
		return StartCallResult{}, ErrMissingPhoneNumber
	}

	if missing := o.missingSettings(); len(missing) > 0 {
		return StartCallResult{}, &ConfigError{Missing: missing}
	}

	callerID, err := o.resolveCallerID(ctx, req.UserID)
	if err != nil {
		return StartCallResult{}, err
	}

	to := NormalizeE164(req.PhoneNumber)
	from := NormalizeE164(callerID)

	conference := req.ConferenceID
	if conference == "" {
		conference = NewConferenceName(o.now())
	}

	if o.Slots != nil && req.UserID != "" {
		ok, err := o.Slots.Acquire(ctx, req.UserID)
		if err != nil {
			// A broken cap store must not take the dialer down with it.
			log.Warn("call slot check failed, allowing call", "user_id", req.UserID, "err", err)
		} else if !ok {
			return StartCallResult{}, ErrTooManyCalls
		}
	}

	// Hold the dial until the browser leg confirms it joined the room,
	// or the grace deadline passes. Past the deadline the PSTN leg is
	// parked in the conference until the browser arrives.
	if o.Waiter != nil {
		joined := o.Waiter.Wait(ctx, conference, o.Twilio.JoinGrace)
		o.Waiter.Forget(conference)
		if !joined {
			log.Debug("browser leg join not confirmed before grace deadline",
				"conference", conference,
				"grace", o.Twilio.JoinGrace.String(),
			)
		}
	}

	res, err := o.Rest.CreateCall(ctx, CreateCallParams{
		To:             to,
		From:           from,
		URL:            o.connectURL(conference),
		StatusCallback: o.statusCallbackURL(),
		StatusCallbackEvents: []string{
			"initiated", "ringing", "answered", "completed",
		},
		TimeoutSeconds: int(o.Twilio.RingTimeout / time.Second),
	})
	if err != nil {
		if o.Slots != nil && req.UserID != "" {
			_ = o.Slots.Release(ctx, req.UserID)
		}
		return StartCallResult{}, err
	}

	status, ok := MapProviderStatus(res.Status)
	if !ok {
		status = StatusInitiated
	}
	if o.Store != nil {
		if err := o.Store.Set(ctx, StatusRecord{
			CallSid:     res.Sid,
			UserID:      req.UserID,
			Status:      status,
			Message:     "outbound call " + res.Status,
			LastUpdated: o.now(),
		}); err != nil {
			log.Warn("seeding call status failed", "call_sid", res.Sid, "err", err)
		}
	}

	if req.LeadID != "" && o.Interactions != nil {
		o.Interactions.RecordBestEffort(ctx, interactions.Entry{
			LeadID:  req.LeadID,
			UserID:  req.UserID,
			Type:    interactions.TypeCallPlaced,
			Detail:  fmt.Sprintf("outbound dialer call to %s", to),
			CallSid: res.Sid,
		})
	}

	log.Info("outbound call created",
		"call_sid", res.Sid,
		"conference", conference,
		"to", to,
		"from", from,
		"status", string(status),
	)

	return StartCallResult{
		CallSid:      res.Sid,
		Status:       status,
		ConferenceID: conference,
	}, nil
}

func (o *Orchestrator) missingSettings() []string {
	missing := missingCredentialNames(o.Twilio.AccountSID, o.Twilio.APIKeySID, o.Twilio.APISecret)
	if o.Twilio.PublicBaseURL == "" {
		missing = append(missing, "PUBLIC_BASE_URL")
	}
	return missing
}

// resolveCallerID prefers the user's assigned outbound number and falls
// back to the platform default. Assignment lookups never fail the call;
// having no number at all is an operator error.
func (o *Orchestrator) resolveCallerID(ctx context.Context, userID string) (string, error) {
	if o.Numbers != nil && userID != "" {
		n, err := o.Numbers.AssignedNumber(ctx, userID)
		if err == nil && n != "" {
			return n, nil
		}
		if err != nil && !errors.Is(err, numbers.ErrNotAssigned) {
			logger.From(ctx).Warn("assigned number lookup failed, using default", "user_id", userID, "err", err)
		}
	}
	if o.Twilio.DefaultCallerID != "" {
		return o.Twilio.DefaultCallerID, nil
	}
	return "", &ConfigError{Missing: []string{"TWILIO_DEFAULT_CALLER_ID"}}
}

func (o *Orchestrator) connectURL(conference string) string {
	return fmt.Sprintf("%s/webhooks/voice/connect?conferenceId=%s",
		o.Twilio.PublicBaseURL, url.QueryEscape(conference))
}

func (o *Orchestrator) statusCallbackURL() string {
	return o.Twilio.PublicBaseURL + "/webhooks/voice/status"
}
