package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zologic/city-ride/internal/service"
)

// PricingHandler handles HTTP requests for ride quotes and discount checks.
type PricingHandler struct {
	pricingService  *service.PricingService
	discountService *service.DiscountService
}

// NewPricingHandler creates a new PricingHandler.
func NewPricingHandler(pricingService *service.PricingService, discountService *service.DiscountService) *PricingHandler {
	return &PricingHandler{
		pricingService:  pricingService,
		discountService: discountService,
	}
}

// QuoteRequest is the HTTP request body for pricing a ride. Either a known
// distance or a pair of addresses must be supplied.
type QuoteRequest struct {
	DistanceKm  float64 `json:"distance_km,omitempty"`
	AddressFrom string  `json:"address_from,omitempty"`
	AddressTo   string  `json:"address_to,omitempty"`
	At          string  `json:"at,omitempty"` // RFC 3339; defaults to now
}

// Quote handles POST /v1/pricing/quote
func (h *PricingHandler) Quote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	var at time.Time
	if req.At != "" {
		parsed, err := time.Parse(time.RFC3339, req.At)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid timestamp"})
			return
		}
		at = parsed
	}

	ctx := c.Request.Context()
	if req.DistanceKm > 0 {
		quote, err := h.pricingService.Quote(ctx, service.QuoteRequest{DistanceKm: req.DistanceKm, At: at})
		if err != nil {
			respondError(c, err)
			return
		}
		respondJSON(c, http.StatusOK, quote)
		return
	}

	quote, err := h.pricingService.QuoteRoute(ctx, req.AddressFrom, req.AddressTo, at)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, quote)
}

// ValidateDiscountRequest is the HTTP request body for checking a code.
type ValidateDiscountRequest struct {
	Code        string  `json:"code"`
	OrderAmount float64 `json:"order_amount"`
}

// ValidateDiscount handles POST /v1/discounts/validate
func (h *PricingHandler) ValidateDiscount(c *gin.Context) {
	var req ValidateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	application, err := h.discountService.Apply(c.Request.Context(), req.Code, req.OrderAmount, time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, application)
}
