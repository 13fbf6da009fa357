package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zologic/city-ride/internal/domain"
	"github.com/zologic/city-ride/internal/service"
)

// DriverHandler handles HTTP requests for fleet management.
type DriverHandler struct {
	driverService *service.DriverService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(driverService *service.DriverService) *DriverHandler {
	return &DriverHandler{driverService: driverService}
}

// SaveDriverRequest is the HTTP request body for creating or updating a driver.
type SaveDriverRequest struct {
	Name          string  `json:"name"`
	Phone         string  `json:"phone"`
	VehicleNumber string  `json:"vehicle_number"`
	VehicleModel  string  `json:"vehicle_model,omitempty"`
	LicenseNumber string  `json:"license_number,omitempty"`
	Status        string  `json:"status,omitempty"`
	Rating        float64 `json:"rating,omitempty"`
}

func (r SaveDriverRequest) toService() service.SaveDriverRequest {
	return service.SaveDriverRequest{
		Name:          r.Name,
		Phone:         r.Phone,
		VehicleNumber: r.VehicleNumber,
		VehicleModel:  r.VehicleModel,
		LicenseNumber: r.LicenseNumber,
		Status:        domain.DriverStatus(r.Status),
		Rating:        r.Rating,
	}
}

// DriverResponse is the HTTP representation of a driver.
type DriverResponse struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Phone         string  `json:"phone"`
	VehicleNumber string  `json:"vehicle_number"`
	VehicleModel  string  `json:"vehicle_model,omitempty"`
	LicenseNumber string  `json:"license_number,omitempty"`
	Status        string  `json:"status"`
	TotalRides    int64   `json:"total_rides"`
	TotalEarnings float64 `json:"total_earnings"`
	Rating        float64 `json:"rating"`
}

func toDriverResponse(driver *domain.Driver) DriverResponse {
	return DriverResponse{
		ID:            driver.ID,
		Name:          driver.Name,
		Phone:         driver.Phone,
		VehicleNumber: driver.VehicleNumber,
		VehicleModel:  driver.VehicleModel,
		LicenseNumber: driver.LicenseNumber,
		Status:        string(driver.Status),
		TotalRides:    driver.TotalRides,
		TotalEarnings: driver.TotalEarnings,
		Rating:        driver.Rating,
	}
}

// Create handles POST /v1/drivers
func (h *DriverHandler) Create(c *gin.Context) {
	var req SaveDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	driver, err := h.driverService.Create(c.Request.Context(), req.toService())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, toDriverResponse(driver))
}

// Update handles PUT /v1/drivers/:id
func (h *DriverHandler) Update(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid driver id"})
		return
	}

	var req SaveDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	driver, err := h.driverService.Update(c.Request.Context(), id, req.toService())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toDriverResponse(driver))
}

// Delete handles DELETE /v1/drivers/:id
func (h *DriverHandler) Delete(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid driver id"})
		return
	}

	if err := h.driverService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Get handles GET /v1/drivers/:id
func (h *DriverHandler) Get(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid driver id"})
		return
	}

	driver, err := h.driverService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toDriverResponse(driver))
}

// List handles GET /v1/drivers. The available=true query narrows to drivers
// offered for assignment.
func (h *DriverHandler) List(c *gin.Context) {
	var (
		drivers []*domain.Driver
		err     error
	)
	if c.Query("available") == "true" {
		drivers, err = h.driverService.ListAvailable(c.Request.Context())
	} else {
		drivers, err = h.driverService.List(c.Request.Context())
	}
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]DriverResponse, 0, len(drivers))
	for _, driver := range drivers {
		out = append(out, toDriverResponse(driver))
	}
	respondJSON(c, http.StatusOK, gin.H{"drivers": out})
}

// Earnings handles GET /v1/drivers/:id/earnings?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *DriverHandler) Earnings(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid driver id"})
		return
	}

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

	report, err := h.driverService.Earnings(c.Request.Context(), id, from, to.AddDate(0, 0, 1))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, report)
}
