// Package adminapi exposes the small administrative HTTP surface
// named in spec.md §6: a manual test-email endpoint and a liveness
// probe, in the teacher's gin idiom.
package adminapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/payperplay/autoscaler/internal/notify"
)

// Handler wires the notifier into gin routes.
type Handler struct {
	notifier *notify.Notifier
	enabled  bool
}

// NewHandler builds a Handler. enabled mirrors the notifier's own
// enabled flag so /api/test-email can return 400 without attempting a
// send.
func NewHandler(notifier *notify.Notifier, enabled bool) *Handler {
	return &Handler{notifier: notifier, enabled: enabled}
}

// Register attaches this handler's routes to an existing gin engine,
// following the teacher's pattern of grouping handlers by concern
// rather than building a new engine per handler.
func (h *Handler) Register(engine *gin.Engine) {
	engine.GET("/healthz", h.healthz)
	engine.GET("/api/test-email", h.testEmail)
	engine.POST("/api/test-email", h.testEmail)
}

type testEmailRequest struct {
	To      string `json:"to" form:"to"`
	Subject string `json:"subject" form:"subject"`
	Body    string `json:"body" form:"body"`
}

func (h *Handler) testEmail(c *gin.Context) {
	var req testEmailRequest
	if c.Request.Method == http.MethodPost {
		_ = c.ShouldBindJSON(&req)
	}
	if req.To == "" {
		req.To = c.Query("to")
	}
	if req.Subject == "" {
		req.Subject = c.Query("subject")
	}
	if req.Body == "" {
		req.Body = c.Query("body")
	}

	if !h.enabled {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "notifier disabled"})
		return
	}
	if req.To == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "missing recipients"})
		return
	}

	subject := req.Subject
	if subject == "" {
		subject = "autoscaler test email"
	}
	body := req.Body
	if body == "" {
		body = "this is a test message from the autoscaler admin api"
	}

	if err := h.notifier.SendTestEmail([]string{req.To}, subject, body); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "to": req.To})
}

func (h *Handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}
