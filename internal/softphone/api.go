package softphone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPAPI talks to the dialer server's REST surface with a bearer token.
type HTTPAPI struct {
	BaseURL     string
	AccessToken string
	HTTPClient  *http.Client
}

func NewHTTPAPI(baseURL, accessToken string) *HTTPAPI {
	return &HTTPAPI{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		AccessToken: accessToken,
		HTTPClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (a *HTTPAPI) FetchToken(ctx context.Context, identity, conferenceID string) (string, error) {
	var out struct {
		Token    string `json:"token"`
		Identity string `json:"identity"`
	}
	err := a.postJSON(ctx, "/v1/dialer/token", map[string]string{
		"identity":     identity,
		"conferenceId": conferenceID,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.Token, nil
}

func (a *HTTPAPI) StartCall(ctx context.Context, phoneNumber, leadID, conferenceID string) (string, error) {
	var out struct {
		Success bool   `json:"success"`
		CallSid string `json:"callSid"`
		Message string `json:"message"`
	}
	err := a.postJSON(ctx, "/v1/dialer/calls", map[string]string{
		"phoneNumber":  phoneNumber,
		"leadId":       leadID,
		"conferenceId": conferenceID,
	}, &out)
	if err != nil {
		return "", err
	}
	if !out.Success {
		return "", fmt.Errorf("softphone: call refused: %s", out.Message)
	}
	return out.CallSid, nil
}

func (a *HTTPAPI) CallStatus(ctx context.Context, callSid string) (string, string, error) {
	var out struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	path := "/v1/dialer/calls/status?callSid=" + url.QueryEscape(callSid)
	if err := a.getJSON(ctx, path, &out); err != nil {
		return "", "", err
	}
	return out.Status, out.Message, nil
}

func (a *HTTPAPI) postJSON(ctx context.Context, path string, body any, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return a.do(req, out)
}

func (a *HTTPAPI) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.BaseURL+path, nil)
	if err != nil {
		return err
	}
	return a.do(req, out)
}

func (a *HTTPAPI) do(req *http.Request, out any) error {
	if a.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+a.AccessToken)
	}

	client := a.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiBody struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiBody)
		msg := apiBody.Error
		if msg == "" {
			msg = apiBody.Message
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("softphone: api %s (http %d)", msg, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
