package telephony

import (
	"fmt"
	"time"

	"claims-dialer/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

// Softphone capability tokens are valid for one hour; the browser client
// refreshes on expiry.
const capabilityTokenTTL = time.Hour

const identityPrefix = "agent"

// AccessToken is the credential a browser softphone presents to the
// telephony network to register as an endpoint and place calls.
type AccessToken struct {
	Token    string `json:"token"`
	Identity string `json:"identity"`
}

// TokenIssuer mints provider access tokens (JWT, HS256, signed with the
// API secret) granting the voice capability scoped to the platform's
// registered TwiML application. Stateless; nothing is persisted.
type TokenIssuer struct {
	accountSID  string
	apiKeySID   string
	apiSecret   string
	twimlAppSID string

	now func() time.Time
}

func NewTokenIssuer(cfg config.TwilioConfig) *TokenIssuer {
	return &TokenIssuer{
		accountSID:  cfg.AccountSID,
		apiKeySID:   cfg.APIKeySID,
		apiSecret:   cfg.APISecret,
		twimlAppSID: cfg.TwiMLAppSID,
		now:         time.Now,
	}
}

// Issue produces a signed capability token. If identity is empty one is
// synthesized, unique per request, so concurrent anonymous sessions do
// not collide on the signaling network. A non-empty conferenceID is
// carried as an outgoing-call parameter, surfacing later in the
// call-flow instruction request when the client places its call.
//
// All four platform settings must be present; otherwise a ConfigError
// naming the absent ones is returned and no token is produced.
func (i *TokenIssuer) Issue(identity, conferenceID string) (AccessToken, error) {
	var missing []string
	if i.accountSID == "" {
		missing = append(missing, "TWILIO_ACCOUNT_SID")
	}
	if i.apiKeySID == "" {
		missing = append(missing, "TWILIO_API_KEY_SID")
	}
	if i.apiSecret == "" {
		missing = append(missing, "TWILIO_API_SECRET")
	}
	if i.twimlAppSID == "" {
		missing = append(missing, "TWILIO_TWIML_APP_SID")
	}
	if len(missing) > 0 {
		return AccessToken{}, &ConfigError{Missing: missing}
	}

	now := i.now()
	if identity == "" {
		identity = fmt.Sprintf("%s-%d", identityPrefix, now.UnixNano())
	}

	outgoing := map[string]any{
		"application_sid": i.twimlAppSID,
	}
	if conferenceID != "" {
		outgoing["params"] = map[string]string{"conferenceId": conferenceID}
	}

	claims := jwt.MapClaims{
		"jti": fmt.Sprintf("%s-%d", i.apiKeySID, now.Unix()),
		"iss": i.apiKeySID,
		"sub": i.accountSID,
		"iat": now.Unix(),
		"exp": now.Add(capabilityTokenTTL).Unix(),
		"grants": map[string]any{
			"identity": identity,
			"voice": map[string]any{
				"incoming": map[string]any{"allow": true},
				"outgoing": outgoing,
			},
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	// Provider access tokens carry a format marker in the content type.
	tok.Header["cty"] = "twilio-fv=1"

	signed, err := tok.SignedString([]byte(i.apiSecret))
	if err != nil {
		return AccessToken{}, fmt.Errorf("telephony: signing capability token: %w", err)
	}
	return AccessToken{Token: signed, Identity: identity}, nil
}
