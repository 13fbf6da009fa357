package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zologic/city-ride/internal/webhook"
)

// WebhookHandler exposes operator endpoints for the outbound webhooks.
type WebhookHandler struct {
	dispatcher *webhook.Dispatcher
	legacy     *webhook.LegacyNotifier
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(dispatcher *webhook.Dispatcher, legacy *webhook.LegacyNotifier) *WebhookHandler {
	return &WebhookHandler{dispatcher: dispatcher, legacy: legacy}
}

// SendTest handles POST /v1/webhooks/test. It posts a sample payload to the
// configured endpoint and reports what came back.
func (h *WebhookHandler) SendTest(c *gin.Context) {
	status, err := h.dispatcher.SendTest(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"delivered": false, "error": err.Error()})
		return
	}
	respondJSON(c, http.StatusOK, gin.H{
		"delivered":       status >= 200 && status < 300,
		"endpoint_status": status,
	})
}

// Failures handles GET /v1/webhooks/failures, returning the journal of
// recent delivery failures, newest first.
func (h *WebhookHandler) Failures(c *gin.Context) {
	failures, err := h.dispatcher.RecentFailures(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"failures": failures})
}

// LastStatus handles GET /v1/webhooks/last-status, returning the outcome of
// the most recent plain booking notification.
func (h *WebhookHandler) LastStatus(c *gin.Context) {
	delivery, err := h.legacy.LastDelivery(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"delivery": delivery})
}
