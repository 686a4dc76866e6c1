package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/honeypot/internal/interaction"
	"github.com/jmerrifield20/honeypot/internal/reply"
	"github.com/jmerrifield20/honeypot/internal/threat"
	"go.uber.org/zap"
)

// successMessage is returned on every authorised validate call.
const successMessage = "Honeypot Reachable & Secured"

// honeypotSvc is the interface expected by the handlers, satisfied by
// *service.HoneypotService.
type honeypotSvc interface {
	Engage(ctx context.Context, remoteAddr, text string) (*interaction.Record, error)
	Interactions() []interaction.Record
}

// fallbackPicker supplies the reply used in synthetic responses.
// *reply.Picker satisfies this interface.
type fallbackPicker interface {
	From(c reply.Category) string
}

// ValidateHandler serves the bait endpoint.
type ValidateHandler struct {
	svc      honeypotSvc
	apiKey   string
	fallback fallbackPicker
	limit    gin.HandlerFunc
	logger   *zap.Logger
}

// NewValidateHandler creates a ValidateHandler.
func NewValidateHandler(svc honeypotSvc, apiKey string, logger *zap.Logger) *ValidateHandler {
	return &ValidateHandler{
		svc:      svc,
		apiKey:   apiKey,
		fallback: reply.NewPicker(),
		logger:   logger,
	}
}

// SetFallbackPicker overrides the picker used for synthetic responses.
func (h *ValidateHandler) SetFallbackPicker(p fallbackPicker) {
	h.fallback = p
}

// SetRateLimiter installs a limiter that runs after the key check. Build it
// with OnLimit(h.Throttled) so that authorised callers over their budget
// still get a 200. Must be called before Register.
func (h *ValidateHandler) SetRateLimiter(mw gin.HandlerFunc) {
	h.limit = mw
}

// Register mounts the validate routes on the given router group.
func (h *ValidateHandler) Register(rg *gin.RouterGroup) {
	chain := []gin.HandlerFunc{h.neverFail(), RequireAPIKey(h.apiKey, h.logger)}
	if h.limit != nil {
		chain = append(chain, h.limit)
	}
	chain = append(chain, h.Validate)

	api := rg.Group("/api")
	{
		api.OPTIONS("/validate", h.Preflight)
		api.GET("/validate", chain...)
		api.POST("/validate", chain...)
	}
}

// ─── Request / Response types ────────────────────────────────────────────────

type validateData struct {
	RiskScore        int      `json:"risk_score"`
	RiskLevel        string   `json:"risk_level"`
	DetectedTriggers []string `json:"detected_triggers"`
	AgentReplySent   string   `json:"agent_reply_sent"`
}

type validateResponse struct {
	Status   string       `json:"status"`
	Message  string       `json:"message"`
	Verified bool         `json:"verified"`
	Data     validateData `json:"data"`
}

func successResponse(d validateData) validateResponse {
	if d.DetectedTriggers == nil {
		d.DetectedTriggers = []string{}
	}
	return validateResponse{
		Status:   "success",
		Message:  successMessage,
		Verified: true,
		Data:     d,
	}
}

// ─── Handlers ────────────────────────────────────────────────────────────────

// Preflight handles OPTIONS /api/validate with an empty 200.
func (h *ValidateHandler) Preflight(c *gin.Context) {
	c.Status(http.StatusOK)
}

// Validate handles GET|POST /api/validate and scores the submitted text and
// answers with a canned reply.
func (h *ValidateHandler) Validate(c *gin.Context) {
	text := h.extractText(c)

	rec, err := h.svc.Engage(c.Request.Context(), c.ClientIP(), text)
	if err != nil {
		h.logger.Error("engage", zap.Error(err))
		c.JSON(http.StatusOK, h.synthetic())
		return
	}

	RecordInteraction(rec.RiskLevel)
	c.JSON(http.StatusOK, successResponse(validateData{
		RiskScore:        rec.RiskScore,
		RiskLevel:        rec.RiskLevel,
		DetectedTriggers: rec.Triggers,
		AgentReplySent:   rec.Reply,
	}))
}

// Throttled answers an over-limit validate call with a synthetic success
// body. Nothing is scored or logged.
func (h *ValidateHandler) Throttled(c *gin.Context) {
	h.logger.Debug("validate throttled", zap.String("client_ip", c.ClientIP()))
	c.AbortWithStatusJSON(http.StatusOK, h.synthetic())
}

// synthetic is the body returned when processing failed.
func (h *ValidateHandler) synthetic() validateResponse {
	return successResponse(validateData{
		RiskScore:      0,
		RiskLevel:      threat.LevelSafe,
		AgentReplySent: h.fallback.From(reply.CategoryGeneric),
	})
}

// neverFail recovers panics further down the chain and answers with a
// synthetic success body.
func (h *ValidateHandler) neverFail() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error("validate panic recovered", zap.Any("panic", r))
				if !c.Writer.Written() {
					c.AbortWithStatusJSON(http.StatusOK, h.synthetic())
				} else {
					c.Abort()
				}
			}
		}()
		c.Next()
	}
}

// extractText pulls the message text out of the request. The body is
// optional; anything unparseable is treated as empty. Fields are tried in
// order: message (string), message.text, text. GET requests may use the
// same names as query parameters.
func (h *ValidateHandler) extractText(c *gin.Context) string {
	if c.Request.Body != nil {
		raw, err := c.GetRawData()
		if err != nil {
			h.logger.Debug("read validate body", zap.Error(err))
		} else if t := textFromJSON(raw); t != "" {
			return t
		}
	}
	if t := c.Query("message"); t != "" {
		return t
	}
	return c.Query("text")
}

func textFromJSON(raw []byte) string {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return ""
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return ""
	}

	if msg, ok := fields["message"]; ok {
		var s string
		if json.Unmarshal(msg, &s) == nil && s != "" {
			return s
		}
		var obj struct {
			Text string `json:"text"`
		}
		if json.Unmarshal(msg, &obj) == nil && obj.Text != "" {
			return obj.Text
		}
	}

	if txt, ok := fields["text"]; ok {
		var s string
		if json.Unmarshal(txt, &s) == nil {
			return s
		}
	}
	return ""
}
