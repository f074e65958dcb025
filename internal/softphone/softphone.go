// Package softphone drives a voice device through the dialer call flow:
// fetch a capability token, register the device, join the conference,
// and ask the server to dial the far end. The browser dashboard runs the
// same flow in JavaScript against the provider's SDK; this client exists
// for headless agents and integration tooling, and it pins down the
// state machine the UI mirrors.
package softphone

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"claims-dialer/pkg/logger"
)

// State is the softphone lifecycle state shown to the operator.
type State string

const (
	StateIdle      State = "idle"
	StateReady     State = "ready"
	StateCalling   State = "calling"
	StateConnected State = "connected"
	StateError     State = "error"
)

// Device is the underlying voice endpoint. The production implementation
// wraps the provider's client SDK over WebRTC; tests use a fake.
type Device interface {
	// Register brings the device online with a capability token.
	Register(ctx context.Context, token string) error

	// Connect places the device's leg into the named conference.
	Connect(ctx context.Context, conferenceID string) error

	// Disconnect tears down the active leg. Idempotent.
	Disconnect(ctx context.Context) error
}

// API is the dialer server surface the softphone talks to.
type API interface {
	FetchToken(ctx context.Context, identity, conferenceID string) (token string, err error)
	StartCall(ctx context.Context, phoneNumber, leadID, conferenceID string) (callSid string, err error)
	CallStatus(ctx context.Context, callSid string) (status, message string, err error)
}

var (
	ErrNotReady      = errors.New("softphone: device not registered")
	ErrCallInFlight  = errors.New("softphone: a call is already in progress")
	ErrNoActiveCall  = errors.New("softphone: no active call")
	ErrMissingNumber = errors.New("softphone: phone number is required")
)

// Client ties a Device to the dialer API and tracks call state. All
// methods are safe for concurrent use; device callbacks and user actions
// arrive on different goroutines.
type Client struct {
	device Device
	api    API

	mu         sync.Mutex
	state      State
	identity   string
	callSid    string
	conference string
	lastErr    error
}

func NewClient(device Device, api API) *Client {
	return &Client{device: device, api: api, state: StateIdle}
}

// Setup fetches a capability token and registers the device. Must
// succeed before any call can be placed.
func (c *Client) Setup(ctx context.Context, identity string) error {
	token, err := c.api.FetchToken(ctx, identity, "")
	if err != nil {
		c.setError(err)
		return fmt.Errorf("softphone: fetching token: %w", err)
	}
	if err := c.device.Register(ctx, token); err != nil {
		c.setError(err)
		return fmt.Errorf("softphone: registering device: %w", err)
	}

	c.mu.Lock()
	c.identity = identity
	c.state = StateReady
	c.lastErr = nil
	c.mu.Unlock()
	return nil
}

// PlaceCall joins the conference with the browser leg first, then asks
// the server to dial the destination into the same room. If the server
// dial fails the local leg is torn down so the device does not sit in an
// empty conference.
func (c *Client) PlaceCall(ctx context.Context, phoneNumber, leadID, conferenceID string) (string, error) {
	if phoneNumber == "" {
		return "", ErrMissingNumber
	}

	c.mu.Lock()
	switch c.state {
	case StateReady:
	case StateCalling, StateConnected:
		c.mu.Unlock()
		return "", ErrCallInFlight
	default:
		c.mu.Unlock()
		return "", ErrNotReady
	}
	c.state = StateCalling
	c.conference = conferenceID
	c.mu.Unlock()

	if err := c.device.Connect(ctx, conferenceID); err != nil {
		c.setError(err)
		return "", fmt.Errorf("softphone: joining conference: %w", err)
	}

	callSid, err := c.api.StartCall(ctx, phoneNumber, leadID, conferenceID)
	if err != nil {
		// Leave the room; the far leg was never dialed.
		if derr := c.device.Disconnect(ctx); derr != nil {
			logger.From(ctx).Warn("disconnect after failed dial", "err", derr)
		}
		c.mu.Lock()
		c.state = StateReady
		c.conference = ""
		c.mu.Unlock()
		return "", fmt.Errorf("softphone: starting call: %w", err)
	}

	c.mu.Lock()
	c.callSid = callSid
	c.mu.Unlock()
	return callSid, nil
}

// HangUp ends the active call from the agent's side.
func (c *Client) HangUp(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateCalling && c.state != StateConnected {
		c.mu.Unlock()
		return ErrNoActiveCall
	}
	c.mu.Unlock()

	if err := c.device.Disconnect(ctx); err != nil {
		return fmt.Errorf("softphone: hanging up: %w", err)
	}
	c.mu.Lock()
	c.state = StateReady
	c.callSid = ""
	c.conference = ""
	c.mu.Unlock()
	return nil
}

// PollStatus reads the server-side view of the active call.
func (c *Client) PollStatus(ctx context.Context) (string, string, error) {
	c.mu.Lock()
	sid := c.callSid
	c.mu.Unlock()
	if sid == "" {
		return "", "", ErrNoActiveCall
	}
	return c.api.CallStatus(ctx, sid)
}

// HandleConnected is the device callback for an established media path.
func (c *Client) HandleConnected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateCalling {
		c.state = StateConnected
	}
}

// HandleDisconnected is the device callback for call teardown, whether
// local or remote.
func (c *Client) HandleDisconnected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateCalling || c.state == StateConnected {
		c.state = StateReady
		c.callSid = ""
		c.conference = ""
	}
}

// HandleIncoming is the device callback for an inbound connection. The
// dialer auto-accepts: the only inbound leg a registered agent receives
// is the conference bridge calling back.
func (c *Client) HandleIncoming(ctx context.Context, accept func(context.Context) error) {
	if err := accept(ctx); err != nil {
		c.setError(err)
		return
	}
	c.mu.Lock()
	c.state = StateConnected
	c.mu.Unlock()
}

// HandleDeviceError is the device callback for fatal device errors.
func (c *Client) HandleDeviceError(err error) {
	c.setError(err)
}

func (c *Client) setError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateError
	c.lastErr = err
}

// State reports the current lifecycle state and last error.
func (c *Client) State() (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.lastErr
}

// CallSid reports the active server-side call, empty when none.
func (c *Client) CallSid() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.callSid
}
