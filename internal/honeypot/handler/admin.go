package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/honeypot/internal/reply"
	"github.com/jmerrifield20/honeypot/internal/threat"
	"go.uber.org/zap"
)

// keywordSource exposes the scoring table. *threat.KeywordScorer satisfies this.
type keywordSource interface {
	Keywords() []threat.Keyword
}

// streamer serves the live feed. *realtime.Hub satisfies this.
type streamer interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
}

// AdminHandler exposes the key-gated inspection endpoints.
type AdminHandler struct {
	svc      honeypotSvc
	keywords keywordSource
	stream   streamer // nil = no /admin/stream route
	apiKey   string
	logger   *zap.Logger
}

// NewAdminHandler creates an AdminHandler. stream may be nil.
func NewAdminHandler(svc honeypotSvc, keywords keywordSource, stream streamer, apiKey string, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		svc:      svc,
		keywords: keywords,
		stream:   stream,
		apiKey:   apiKey,
		logger:   logger,
	}
}

// Register mounts the admin routes on the given router group.
func (h *AdminHandler) Register(rg *gin.RouterGroup) {
	admin := rg.Group("/admin")
	admin.Use(RequireAPIKey(h.apiKey, h.logger))
	{
		admin.GET("/logs", h.Logs)
		admin.GET("/config", h.Config)
		if h.stream != nil {
			admin.GET("/stream", h.Stream)
		}
	}
}

// Logs handles GET /admin/logs and dumps the whole engagement log in
// insertion order.
func (h *AdminHandler) Logs(c *gin.Context) {
	records := h.svc.Interactions()
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"count":  len(records),
		"logs":   records,
	})
}

type replyCategory struct {
	Name    reply.Category `json:"name"`
	Replies []string       `json:"replies"`
}

// Config handles GET /admin/config and returns the scoring table, level
// thresholds and reply lists.
func (h *AdminHandler) Config(c *gin.Context) {
	cats := make([]replyCategory, 0, len(reply.Categories()))
	for _, cat := range reply.Categories() {
		cats = append(cats, replyCategory{Name: cat, Replies: reply.Replies(cat)})
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "success",
		"keywords": h.keywords.Keywords(),
		"thresholds": gin.H{
			threat.LevelLow:    threat.ThresholdLow,
			threat.LevelMedium: threat.ThresholdMedium,
			threat.LevelHigh:   threat.ThresholdHigh,
		},
		"reply_categories": cats,
	})
}

// Stream handles GET /admin/stream and upgrades to a WebSocket carrying new
// engagements as they happen.
func (h *AdminHandler) Stream(c *gin.Context) {
	h.stream.ServeWS(c.Writer, c.Request)
}

// Liveness handles GET / with a plain-text liveness string.
func Liveness(c *gin.Context) {
	c.String(http.StatusOK, "Honeypot API is running")
}

// Healthz handles GET /healthz.
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
