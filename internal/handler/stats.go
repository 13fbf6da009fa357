package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zologic/city-ride/internal/service"
)

// StatsHandler handles HTTP requests for dashboard statistics.
type StatsHandler struct {
	statsService *service.StatsService
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(statsService *service.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

// Dashboard handles GET /v1/stats/dashboard
func (h *StatsHandler) Dashboard(c *gin.Context) {
	stats, err := h.statsService.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, stats)
}

// Drivers handles GET /v1/stats/drivers
func (h *StatsHandler) Drivers(c *gin.Context) {
	stats, err := h.statsService.Drivers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, stats)
}

// KeyMetrics handles GET /v1/stats/key-metrics
func (h *StatsHandler) KeyMetrics(c *gin.Context) {
	metrics, err := h.statsService.KeyMetrics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, metrics)
}

// PeakHours handles GET /v1/stats/peak-hours
func (h *StatsHandler) PeakHours(c *gin.Context) {
	data, err := h.statsService.PeakHours(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, data)
}

// StatusDistribution handles GET /v1/stats/status-distribution
func (h *StatsHandler) StatusDistribution(c *gin.Context) {
	data, err := h.statsService.StatusDistribution(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, data)
}

// Analytics handles GET /v1/stats/analytics?from=YYYY-MM-DD&to=YYYY-MM-DD&group_by=day
func (h *StatsHandler) Analytics(c *gin.Context) {
	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid from date"})
		return
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid to date"})
		return
	}

	rows, err := h.statsService.Analytics(c.Request.Context(), from, to.AddDate(0, 0, 1), c.Query("group_by"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"analytics": rows})
}
