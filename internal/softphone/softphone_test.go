package softphone

import (
	"context"
	"errors"
	"testing"
)

type fakeDevice struct {
	registered  bool
	connected   string
	disconnects int
	registerErr error
	connectErr  error
}

func (d *fakeDevice) Register(ctx context.Context, token string) error {
	if d.registerErr != nil {
		return d.registerErr
	}
	d.registered = true
	return nil
}

func (d *fakeDevice) Connect(ctx context.Context, conferenceID string) error {
	if d.connectErr != nil {
		return d.connectErr
	}
	d.connected = conferenceID
	return nil
}

func (d *fakeDevice) Disconnect(ctx context.Context) error {
	d.disconnects++
	d.connected = ""
	return nil
}

type fakeAPI struct {
	token        string
	tokenErr     error
	callSid      string
	startErr     error
	startedCalls []string
	status       string
}

func (a *fakeAPI) FetchToken(ctx context.Context, identity, conferenceID string) (string, error) {
	if a.tokenErr != nil {
		return "", a.tokenErr
	}
	return a.token, nil
}

func (a *fakeAPI) StartCall(ctx context.Context, phoneNumber, leadID, conferenceID string) (string, error) {
	a.startedCalls = append(a.startedCalls, phoneNumber)
	if a.startErr != nil {
		return "", a.startErr
	}
	return a.callSid, nil
}

func (a *fakeAPI) CallStatus(ctx context.Context, callSid string) (string, string, error) {
	return a.status, "", nil
}

func newTestClient(t *testing.T) (*Client, *fakeDevice, *fakeAPI) {
	t.Helper()
	dev := &fakeDevice{}
	api := &fakeAPI{token: "tok", callSid: "CA123", status: "ringing"}
	c := NewClient(dev, api)
	if err := c.Setup(context.Background(), "agent-7"); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	return c, dev, api
}

func TestSetupReady(t *testing.T) {
	c, dev, _ := newTestClient(t)

	if !dev.registered {
		t.Fatalf("device not registered")
	}
	if st, err := c.State(); st != StateReady || err != nil {
		t.Fatalf("state = %q err = %v", st, err)
	}
}

func TestSetupFailure(t *testing.T) {
	dev := &fakeDevice{registerErr: errors.New("ice gathering failed")}
	c := NewClient(dev, &fakeAPI{token: "tok"})

	if err := c.Setup(context.Background(), "agent-7"); err == nil {
		t.Fatalf("expected error")
	}
	if st, _ := c.State(); st != StateError {
		t.Fatalf("state = %q", st)
	}
}

func TestPlaceCall(t *testing.T) {
	c, dev, api := newTestClient(t)

	sid, err := c.PlaceCall(context.Background(), "3055551234", "lead-9", "dialer-1-a")
	if err != nil {
		t.Fatalf("PlaceCall: %v", err)
	}
	if sid != "CA123" || c.CallSid() != "CA123" {
		t.Fatalf("sid = %q", sid)
	}
	if dev.connected != "dialer-1-a" {
		t.Fatalf("device joined %q", dev.connected)
	}
	if len(api.startedCalls) != 1 {
		t.Fatalf("server dials = %v", api.startedCalls)
	}
	if st, _ := c.State(); st != StateCalling {
		t.Fatalf("state = %q", st)
	}

	// A second attempt while calling is refused before touching anything.
	if _, err := c.PlaceCall(context.Background(), "3055555678", "", "x"); !errors.Is(err, ErrCallInFlight) {
		t.Fatalf("err = %v, want ErrCallInFlight", err)
	}
	if len(api.startedCalls) != 1 {
		t.Fatalf("refused attempt reached the server")
	}
}

func TestPlaceCallRequiresSetup(t *testing.T) {
	c := NewClient(&fakeDevice{}, &fakeAPI{})

	if _, err := c.PlaceCall(context.Background(), "3055551234", "", ""); !errors.Is(err, ErrNotReady) {
		t.Fatalf("err = %v, want ErrNotReady", err)
	}
}

func TestPlaceCallServerDialFailure(t *testing.T) {
	c, dev, api := newTestClient(t)
	api.startErr = errors.New("provider rejected")

	if _, err := c.PlaceCall(context.Background(), "3055551234", "", "dialer-1-a"); err == nil {
		t.Fatalf("expected error")
	}
	if dev.disconnects != 1 {
		t.Fatalf("local leg left in empty conference")
	}
	if st, _ := c.State(); st != StateReady {
		t.Fatalf("state = %q, want recovery to ready", st)
	}
}

func TestCallLifecycleCallbacks(t *testing.T) {
	c, _, _ := newTestClient(t)

	if _, err := c.PlaceCall(context.Background(), "3055551234", "", "dialer-1-a"); err != nil {
		t.Fatalf("PlaceCall: %v", err)
	}

	c.HandleConnected()
	if st, _ := c.State(); st != StateConnected {
		t.Fatalf("state = %q", st)
	}

	c.HandleDisconnected()
	if st, _ := c.State(); st != StateReady {
		t.Fatalf("state = %q", st)
	}
	if c.CallSid() != "" {
		t.Fatalf("call sid survived disconnect")
	}
}

func TestHangUp(t *testing.T) {
	c, dev, _ := newTestClient(t)

	if err := c.HangUp(context.Background()); !errors.Is(err, ErrNoActiveCall) {
		t.Fatalf("err = %v, want ErrNoActiveCall", err)
	}

	if _, err := c.PlaceCall(context.Background(), "3055551234", "", "dialer-1-a"); err != nil {
		t.Fatalf("PlaceCall: %v", err)
	}
	if err := c.HangUp(context.Background()); err != nil {
		t.Fatalf("HangUp: %v", err)
	}
	if dev.disconnects != 1 {
		t.Fatalf("device not disconnected")
	}
	if st, _ := c.State(); st != StateReady {
		t.Fatalf("state = %q", st)
	}
}

func TestHandleIncomingAutoAccepts(t *testing.T) {
	c, _, _ := newTestClient(t)

	accepted := false
	c.HandleIncoming(context.Background(), func(context.Context) error {
		accepted = true
		return nil
	})
	if !accepted {
		t.Fatalf("incoming connection not accepted")
	}
	if st, _ := c.State(); st != StateConnected {
		t.Fatalf("state = %q", st)
	}
}

func TestPollStatus(t *testing.T) {
	c, _, api := newTestClient(t)

	if _, _, err := c.PollStatus(context.Background()); !errors.Is(err, ErrNoActiveCall) {
		t.Fatalf("err = %v, want ErrNoActiveCall", err)
	}

	if _, err := c.PlaceCall(context.Background(), "3055551234", "", "dialer-1-a"); err != nil {
		t.Fatalf("PlaceCall: %v", err)
	}
	api.status = "in-progress"
	status, _, err := c.PollStatus(context.Background())
	if err != nil || status != "in-progress" {
		t.Fatalf("status = %q err = %v", status, err)
	}
}
