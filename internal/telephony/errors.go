package telephony

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingPhoneNumber is a client input error: no destination to dial.
var ErrMissingPhoneNumber = errors.New("telephony: phone number is required")

// ErrMissingCallSid is a client input error on the status poll.
var ErrMissingCallSid = errors.New("telephony: call sid is required")

// ErrTooManyCalls means the user is at their simultaneous-call cap.
var ErrTooManyCalls = errors.New("telephony: too many active calls")

// ConfigError reports which platform settings are absent, by env var name.
// Missing configuration is an operator problem, not a client one, and is
// never silently defaulted.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("telephony: missing configuration: %s", strings.Join(e.Missing, ", "))
}

// APIError preserves a provider-side rejection. The provider's own
// message and status code travel with it so the UI can show the real
// reason a dial was refused (invalid number, unverified caller ID, ...).
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("telephony: provider error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("telephony: provider error (http %d): %s", e.StatusCode, e.Message)
}
