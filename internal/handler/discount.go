package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zologic/city-ride/internal/domain"
	"github.com/zologic/city-ride/internal/service"
)

// DiscountHandler handles HTTP requests for discount code management.
type DiscountHandler struct {
	discountService *service.DiscountService
}

// NewDiscountHandler creates a new DiscountHandler.
func NewDiscountHandler(discountService *service.DiscountService) *DiscountHandler {
	return &DiscountHandler{discountService: discountService}
}

// SaveDiscountRequest is the HTTP request body for creating or updating a code.
type SaveDiscountRequest struct {
	Code              string  `json:"code"`
	DiscountType      string  `json:"discount_type"` // percent, fixed
	DiscountValue     float64 `json:"discount_value"`
	MinOrderAmount    float64 `json:"min_order_amount,omitempty"`
	MaxDiscountAmount float64 `json:"max_discount_amount,omitempty"`
	UsageLimit        int64   `json:"usage_limit,omitempty"`
	ValidFrom         string  `json:"valid_from,omitempty"`  // RFC 3339
	ValidUntil        string  `json:"valid_until,omitempty"` // RFC 3339
	IsActive          bool    `json:"is_active"`
}

func (r SaveDiscountRequest) toService() (service.SaveDiscountRequest, error) {
	req := service.SaveDiscountRequest{
		Code:              r.Code,
		DiscountType:      domain.DiscountType(r.DiscountType),
		DiscountValue:     r.DiscountValue,
		MinOrderAmount:    r.MinOrderAmount,
		MaxDiscountAmount: r.MaxDiscountAmount,
		UsageLimit:        r.UsageLimit,
		IsActive:          r.IsActive,
	}
	if r.ValidFrom != "" {
		t, err := time.Parse(time.RFC3339, r.ValidFrom)
		if err != nil {
			return req, err
		}
		req.ValidFrom = t
	}
	if r.ValidUntil != "" {
		t, err := time.Parse(time.RFC3339, r.ValidUntil)
		if err != nil {
			return req, err
		}
		req.ValidUntil = t
	}
	return req, nil
}

// DiscountResponse is the HTTP representation of a discount code.
type DiscountResponse struct {
	ID                int64   `json:"id"`
	Code              string  `json:"code"`
	DiscountType      string  `json:"discount_type"`
	DiscountValue     float64 `json:"discount_value"`
	MinOrderAmount    float64 `json:"min_order_amount"`
	MaxDiscountAmount float64 `json:"max_discount_amount,omitempty"`
	UsageLimit        int64   `json:"usage_limit,omitempty"`
	UsageCount        int64   `json:"usage_count"`
	ValidFrom         string  `json:"valid_from,omitempty"`
	ValidUntil        string  `json:"valid_until,omitempty"`
	IsActive          bool    `json:"is_active"`
}

func toDiscountResponse(dc *domain.DiscountCode) DiscountResponse {
	resp := DiscountResponse{
		ID:                dc.ID,
		Code:              dc.Code,
		DiscountType:      string(dc.DiscountType),
		DiscountValue:     dc.DiscountValue,
		MinOrderAmount:    dc.MinOrderAmount,
		MaxDiscountAmount: dc.MaxDiscountAmount,
		UsageLimit:        dc.UsageLimit,
		UsageCount:        dc.UsageCount,
		IsActive:          dc.IsActive,
	}
	if !dc.ValidFrom.IsZero() {
		resp.ValidFrom = dc.ValidFrom.Format(time.RFC3339)
	}
	if !dc.ValidUntil.IsZero() {
		resp.ValidUntil = dc.ValidUntil.Format(time.RFC3339)
	}
	return resp
}

// Create handles POST /v1/discount-codes
func (h *DiscountHandler) Create(c *gin.Context) {
	var req SaveDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	svcReq, err := req.toService()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid validity timestamp"})
		return
	}

	dc, err := h.discountService.Create(c.Request.Context(), svcReq)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, toDiscountResponse(dc))
}

// Update handles PUT /v1/discount-codes/:id
func (h *DiscountHandler) Update(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid discount id"})
		return
	}

	var req SaveDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	svcReq, err := req.toService()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid validity timestamp"})
		return
	}

	dc, err := h.discountService.Update(c.Request.Context(), id, svcReq)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toDiscountResponse(dc))
}

// SetActiveRequest is the HTTP request body for toggling a code.
type SetActiveRequest struct {
	IsActive bool `json:"is_active"`
}

// SetActive handles PATCH /v1/discount-codes/:id/active
func (h *DiscountHandler) SetActive(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid discount id"})
		return
	}

	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.discountService.SetActive(c.Request.Context(), id, req.IsActive); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Delete handles DELETE /v1/discount-codes/:id
func (h *DiscountHandler) Delete(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid discount id"})
		return
	}

	if err := h.discountService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// List handles GET /v1/discount-codes
func (h *DiscountHandler) List(c *gin.Context) {
	codes, err := h.discountService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]DiscountResponse, 0, len(codes))
	for _, dc := range codes {
		out = append(out, toDiscountResponse(dc))
	}
	respondJSON(c, http.StatusOK, gin.H{"discount_codes": out})
}
