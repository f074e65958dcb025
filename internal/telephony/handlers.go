package telephony

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"claims-dialer/internal/auth"
	"claims-dialer/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups the dialer's HTTP endpoints for dependency injection.
// Parse and validate input, call the core, shape JSON; nothing else.
type Handlers struct {
	Tokens       *TokenIssuer
	Orchestrator *Orchestrator
	Store        StatusStore
}

type tokenRequest struct {
	Identity     string `json:"identity"`
	ConferenceID string `json:"conferenceId"`
}

// IssueToken mints a softphone capability token for the caller.
func (h Handlers) IssueToken(c *gin.Context) {
	log := logger.FromGin(c)

	// Both fields are optional, so an empty or absent body is fine.
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req = tokenRequest{}
	}

	tok, err := h.Tokens.Issue(req.Identity, req.ConferenceID)
	if err != nil {
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) {
			log.Error("capability token refused", "missing", strings.Join(cfgErr.Missing, ","))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": cfgErr.Error()})
			return
		}
		log.Error("capability token signing failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}

	c.JSON(http.StatusOK, tok)
}

type startCallRequest struct {
	PhoneNumber    string `json:"phoneNumber"`
	LeadID         string `json:"leadId"`
	ConnectionMode string `json:"connectionMode"`
	ConferenceID   string `json:"conferenceId"`
}

type startCallResponse struct {
	Success      bool   `json:"success"`
	CallSid      string `json:"callSid,omitempty"`
	Status       string `json:"status,omitempty"`
	ConferenceID string `json:"conferenceId,omitempty"`
	Message      string `json:"message"`
	Detail       string `json:"detail,omitempty"`
}

// StartCall initiates the outbound leg of a dialer call.
func (h Handlers) StartCall(c *gin.Context) {
	log := logger.FromGin(c)

	var req startCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, startCallResponse{Success: false, Message: "invalid json"})
		return
	}

	userID, _ := auth.UserID(c.Request.Context())

	ctx := logger.With(c.Request.Context(), log)
	res, err := h.Orchestrator.StartCall(ctx, StartCallRequest{
		UserID:       userID,
		PhoneNumber:  req.PhoneNumber,
		LeadID:       req.LeadID,
		ConferenceID: req.ConferenceID,
	})
	if err != nil {
		h.writeStartCallError(c, err)
		return
	}

	c.JSON(http.StatusOK, startCallResponse{
		Success:      true,
		CallSid:      res.CallSid,
		Status:       string(res.Status),
		ConferenceID: res.ConferenceID,
		Message:      "call initiated",
	})
}

func (h Handlers) writeStartCallError(c *gin.Context, err error) {
	log := logger.FromGin(c)

	var cfgErr *ConfigError
	var apiErr *APIError
	switch {
	case errors.Is(err, ErrMissingPhoneNumber):
		c.AbortWithStatusJSON(http.StatusBadRequest, startCallResponse{Success: false, Message: "phoneNumber is required"})
	case errors.Is(err, ErrTooManyCalls):
		c.AbortWithStatusJSON(http.StatusTooManyRequests, startCallResponse{Success: false, Message: "another call is already in progress"})
	case errors.As(err, &cfgErr):
		log.Error("call setup refused", "missing", strings.Join(cfgErr.Missing, ","))
		c.AbortWithStatusJSON(http.StatusInternalServerError, startCallResponse{Success: false, Message: cfgErr.Error()})
	case errors.As(err, &apiErr):
		status := apiErr.StatusCode
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		log.Error("provider rejected dial", "code", apiErr.Code, "provider_message", apiErr.Message)
		c.AbortWithStatusJSON(status, startCallResponse{Success: false, Message: "call setup failed", Detail: apiErr.Message})
	default:
		log.Error("call setup failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, startCallResponse{Success: false, Message: "call setup failed"})
	}
}

type callStatusResponse struct {
	CallSid     string    `json:"callSid"`
	Status      string    `json:"status"`
	Message     string    `json:"message"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// CallStatus returns the last known status for a call. The browser polls
// here because its SDK events and the provider webhooks arrive on
// independent channels; this table is the reconciled view.
func (h Handlers) CallStatus(c *gin.Context) {
	callSid := strings.TrimSpace(c.Query("callSid"))
	if callSid == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": ErrMissingCallSid.Error()})
		return
	}

	rec, found, err := h.Store.Get(c.Request.Context(), callSid)
	if err != nil {
		logger.FromGin(c).Warn("status poll read failed", "call_sid", callSid, "err", err)
	}
	if !found {
		// Poll raced ahead of the first webhook; report the optimistic
		// default rather than erroring.
		c.JSON(http.StatusOK, callStatusResponse{
			CallSid:     callSid,
			Status:      string(StatusInProgress),
			Message:     "no status callback received yet",
			LastUpdated: time.Now().UTC(),
		})
		return
	}

	c.JSON(http.StatusOK, callStatusResponse{
		CallSid:     rec.CallSid,
		Status:      string(rec.Status),
		Message:     rec.Message,
		LastUpdated: rec.LastUpdated,
	})
}

// VoiceConnect is the call-flow instruction endpoint the telephony
// network fetches when a leg needs to know where to go. The conference
// id arrives as a form field or query parameter depending on which side
// placed the leg; all encodings are tolerated.
func (h Handlers) VoiceConnect(c *gin.Context) {
	conference := resolveConferenceID(c)
	if conference == "" {
		doc, err := RenderErrorTwiML("")
		if err != nil {
			c.String(http.StatusInternalServerError, "instruction rendering failed")
			return
		}
		logger.FromGin(c).Warn("call-flow instruction request with no conference id")
		c.Header("Content-Type", "application/xml")
		c.String(http.StatusBadRequest, doc)
		return
	}

	doc, err := RenderConferenceTwiML(conference)
	if err != nil {
		logger.FromGin(c).Error("twiml render failed", "err", err)
		c.String(http.StatusInternalServerError, "instruction rendering failed")
		return
	}

	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, doc)
}

func resolveConferenceID(c *gin.Context) string {
	for _, key := range []string{"conferenceId", "ConferenceId", "conference_id"} {
		if v := strings.TrimSpace(c.PostForm(key)); v != "" {
			return v
		}
		if v := strings.TrimSpace(c.Query(key)); v != "" {
			return v
		}
	}
	return ""
}
