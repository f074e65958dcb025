package telephony

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultAPIBaseURL = "https://api.twilio.com"

// RestClient is a minimal client for the provider's call-creation API.
// Only the one endpoint the dialer needs is wrapped; no SDK dependency.
type RestClient struct {
	AccountSID string
	APIKeySID  string
	APISecret  string

	// BaseURL overrides the provider API root; tests point it at an
	// httptest server.
	BaseURL string

	HTTPClient *http.Client
}

func NewRestClient(accountSID, apiKeySID, apiSecret string) *RestClient {
	return &RestClient{
		AccountSID: accountSID,
		APIKeySID:  apiKeySID,
		APISecret:  apiSecret,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateCallParams describes one outbound dial request.
type CreateCallParams struct {
	To   string
	From string

	// URL is fetched by the provider for call-flow instructions once the
	// callee answers.
	URL string

	StatusCallback       string
	StatusCallbackEvents []string

	// TimeoutSeconds is the provider-level ring timeout; past it the
	// provider marks the call no-answer and reports via status callback.
	TimeoutSeconds int
}

// CallResource is the provider's representation of a created call.
type CallResource struct {
	Sid    string `json:"sid"`
	Status string `json:"status"`
	To     string `json:"to"`
	From   string `json:"from"`
}

type providerErrorBody struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

// CreateCall issues the outbound dial. Provider rejections come back as
// *APIError with the provider's own code and message preserved.
func (c *RestClient) CreateCall(ctx context.Context, p CreateCallParams) (CallResource, error) {
	if c.AccountSID == "" || c.APIKeySID == "" || c.APISecret == "" {
		return CallResource{}, &ConfigError{Missing: missingCredentialNames(c.AccountSID, c.APIKeySID, c.APISecret)}
	}

	form := url.Values{}
	form.Set("To", p.To)
	form.Set("From", p.From)
	form.Set("Url", p.URL)
	if p.StatusCallback != "" {
		form.Set("StatusCallback", p.StatusCallback)
		for _, ev := range p.StatusCallbackEvents {
			form.Add("StatusCallbackEvent", ev)
		}
	}
	if p.TimeoutSeconds > 0 {
		form.Set("Timeout", strconv.Itoa(p.TimeoutSeconds))
	}

	base := c.BaseURL
	if base == "" {
		base = defaultAPIBaseURL
	}
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls.json", base, c.AccountSID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return CallResource{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.APIKeySID, c.APISecret)

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return CallResource{}, fmt.Errorf("telephony: call creation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var body providerErrorBody
		_ = json.NewDecoder(resp.Body).Decode(&body)
		msg := body.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return CallResource{}, &APIError{
			StatusCode: resp.StatusCode,
			Code:       body.Code,
			Message:    msg,
		}
	}

	var res CallResource
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return CallResource{}, fmt.Errorf("telephony: decoding call resource: %w", err)
	}
	if res.Sid == "" {
		return CallResource{}, fmt.Errorf("telephony: provider returned no call sid")
	}
	return res, nil
}

func missingCredentialNames(accountSID, apiKeySID, apiSecret string) []string {
	var missing []string
	if accountSID == "" {
		missing = append(missing, "TWILIO_ACCOUNT_SID")
	}
	if apiKeySID == "" {
		missing = append(missing, "TWILIO_API_KEY_SID")
	}
	if apiSecret == "" {
		missing = append(missing, "TWILIO_API_SECRET")
	}
	return missing
}
