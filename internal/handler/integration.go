package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zologic/city-ride/internal/service"
)

// IntegrationHandler exposes the inbound webhooks called by the SMS provider
// and the payment processor.
type IntegrationHandler struct {
	reconcileService *service.ReconcileService
	bookingService   *service.BookingService
}

// NewIntegrationHandler creates a new IntegrationHandler.
func NewIntegrationHandler(reconcileService *service.ReconcileService, bookingService *service.BookingService) *IntegrationHandler {
	return &IntegrationHandler{
		reconcileService: reconcileService,
		bookingService:   bookingService,
	}
}

// LinkMessageRequest is the SMS provider's correlation callback body.
type LinkMessageRequest struct {
	BookingID int64  `json:"booking_id"`
	MessageID string `json:"message_id"`
}

// LinkMessage handles POST /integration/sms-message-id
func (h *IntegrationHandler) LinkMessage(c *gin.Context) {
	var req LinkMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.reconcileService.LinkMessage(c.Request.Context(), req.BookingID, req.MessageID); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"linked": true})
}

// DeliveryReportRequest is the SMS provider's batch delivery callback body.
type DeliveryReportRequest struct {
	Results []struct {
		MessageID string `json:"messageId"`
		Status    struct {
			GroupName string `json:"groupName"`
		} `json:"status"`
	} `json:"results"`
}

// DeliveryReport handles POST /integration/sms-delivery
func (h *IntegrationHandler) DeliveryReport(c *gin.Context) {
	var req DeliveryReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	reports := make([]service.DeliveryReport, 0, len(req.Results))
	for _, r := range req.Results {
		reports = append(reports, service.DeliveryReport{
			MessageID: r.MessageID,
			Status:    r.Status.GroupName,
		})
	}

	updated, err := h.reconcileService.ApplyDeliveryReports(c.Request.Context(), reports)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"updated": updated})
}

// PaymentWebhook handles POST /integration/payment-webhook. The raw body is
// needed intact for signature verification.
func (h *IntegrationHandler) PaymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unreadable request body"})
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if err := h.bookingService.HandlePaymentEvent(c.Request.Context(), body, signature); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"received": true})
}
