package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zologic/city-ride/internal/domain"
	"github.com/zologic/city-ride/internal/repository"
	"github.com/zologic/city-ride/internal/service"
)

// BookingHandler handles HTTP requests for the ride lifecycle.
type BookingHandler struct {
	bookingService *service.BookingService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(bookingService *service.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

// RideResponse is the HTTP representation of a ride.
type RideResponse struct {
	ID             int64   `json:"id"`
	PassengerName  string  `json:"passenger_name"`
	PassengerPhone string  `json:"passenger_phone"`
	PassengerEmail string  `json:"passenger_email,omitempty"`
	AddressFrom    string  `json:"address_from"`
	AddressTo      string  `json:"address_to"`
	DistanceKm     float64 `json:"distance_km"`

	TotalPrice     float64 `json:"total_price"`
	DiscountCode   string  `json:"discount_code,omitempty"`
	DiscountAmount float64 `json:"discount_amount,omitempty"`
	OriginalPrice  float64 `json:"original_price,omitempty"`

	PaymentIntentID string `json:"payment_reference"`
	CabDriverID     string `json:"cab_driver_id,omitempty"`
	ETA             string `json:"eta,omitempty"`

	Status             string `json:"status"`
	StatusLabel        string `json:"status_label"`
	Actionable         bool   `json:"actionable"`
	CancellationReason string `json:"cancellation_reason,omitempty"`
	DispatcherNotes    string `json:"dispatcher_notes,omitempty"`

	SMSDeliveryStatus string    `json:"sms_delivery_status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func toRideResponse(ride *domain.Ride) RideResponse {
	return RideResponse{
		ID:                 ride.ID,
		PassengerName:      ride.PassengerName,
		PassengerPhone:     ride.PassengerPhone,
		PassengerEmail:     ride.PassengerEmail,
		AddressFrom:        ride.AddressFrom,
		AddressTo:          ride.AddressTo,
		DistanceKm:         ride.DistanceKm,
		TotalPrice:         ride.TotalPrice,
		DiscountCode:       ride.DiscountCode,
		DiscountAmount:     ride.DiscountAmount,
		OriginalPrice:      ride.OriginalPrice,
		PaymentIntentID:    ride.PaymentIntentID,
		CabDriverID:        ride.CabDriverID,
		ETA:                ride.ETA,
		Status:             string(ride.Status),
		StatusLabel:        ride.Status.Label(),
		Actionable:         ride.Status.Actionable(),
		CancellationReason: ride.CancellationReason,
		DispatcherNotes:    ride.DispatcherNotes,
		SMSDeliveryStatus:  string(ride.SMSDeliveryStatus),
		CreatedAt:          ride.CreatedAt,
		UpdatedAt:          ride.UpdatedAt,
	}
}

// CreateBookingRequest is the HTTP request body for creating a booking.
type CreateBookingRequest struct {
	PaymentReference string  `json:"payment_reference"`
	PassengerName    string  `json:"passenger_name"`
	PassengerPhone   string  `json:"passenger_phone"`
	PassengerEmail   string  `json:"passenger_email,omitempty"`
	PushSubscriberID string  `json:"push_subscriber_id,omitempty"`
	AddressFrom      string  `json:"address_from"`
	AddressTo        string  `json:"address_to"`
	DistanceKm       float64 `json:"distance_km"`
	TotalPrice       float64 `json:"total_price"`
	DiscountCode     string  `json:"discount_code,omitempty"`
	DiscountAmount   float64 `json:"discount_amount,omitempty"`
	OriginalPrice    float64 `json:"original_price,omitempty"`
	FinalPrice       float64 `json:"final_price,omitempty"`
}

func (r CreateBookingRequest) toService() service.CreateBookingRequest {
	return service.CreateBookingRequest{
		PaymentIntentID:  r.PaymentReference,
		PassengerName:    r.PassengerName,
		PassengerPhone:   r.PassengerPhone,
		PassengerEmail:   r.PassengerEmail,
		PushSubscriberID: r.PushSubscriberID,
		AddressFrom:      r.AddressFrom,
		AddressTo:        r.AddressTo,
		DistanceKm:       r.DistanceKm,
		TotalPrice:       r.TotalPrice,
		DiscountCode:     r.DiscountCode,
		DiscountAmount:   r.DiscountAmount,
		OriginalPrice:    r.OriginalPrice,
		FinalPrice:       r.FinalPrice,
	}
}

// CreateBookingResponse is the HTTP response for creating a booking.
type CreateBookingResponse struct {
	Ride           RideResponse `json:"ride"`
	AlreadyExisted bool         `json:"already_existed"`
}

// CreateBooking handles POST /v1/bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.bookingService.CreateBooking(c.Request.Context(), req.toService())
	if err != nil {
		respondError(c, err)
		return
	}

	code := http.StatusCreated
	if result.AlreadyExisted {
		code = http.StatusOK
	}
	respondJSON(c, code, CreateBookingResponse{
		Ride:           toRideResponse(result.Ride),
		AlreadyExisted: result.AlreadyExisted,
	})
}

// CreatePaymentIntent handles POST /v1/payments/intent
func (h *BookingHandler) CreatePaymentIntent(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	intent, err := h.bookingService.CreatePaymentIntent(c.Request.Context(), req.toService())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, gin.H{
		"payment_intent_id": intent.ID,
		"client_secret":     intent.ClientSecret,
		"amount":            intent.Amount,
		"currency":          intent.Currency,
	})
}

// GetPaymentIntent handles GET /v1/payments/intent/:id
func (h *BookingHandler) GetPaymentIntent(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid payment intent id"})
		return
	}

	intent, err := h.bookingService.GetPaymentIntent(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{
		"payment_intent_id": intent.ID,
		"status":            intent.Status,
		"succeeded":         intent.Succeeded(),
		"amount":            intent.Amount,
		"currency":          intent.Currency,
	})
}

// GetRide handles GET /v1/bookings/:id
func (h *BookingHandler) GetRide(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid ride id"})
		return
	}

	ride, err := h.bookingService.GetRide(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// ListRides handles GET /v1/bookings
func (h *BookingHandler) ListRides(c *gin.Context) {
	filter := repository.RideFilter{
		Status: domain.RideStatus(c.Query("status")),
		Search: c.Query("search"),
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}
	if v := c.Query("from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			filter.DateFrom = t
		}
	}
	if v := c.Query("to"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			filter.DateTo = t.AddDate(0, 0, 1)
		}
	}

	rides, err := h.bookingService.ListRides(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]RideResponse, 0, len(rides))
	for _, ride := range rides {
		out = append(out, toRideResponse(ride))
	}
	respondJSON(c, http.StatusOK, gin.H{"rides": out})
}

// AssignDriverRequest is the HTTP request body for assigning a driver.
type AssignDriverRequest struct {
	DriverID   int64  `json:"driver_id"`
	ETA        string `json:"eta"`
	AssignedBy string `json:"assigned_by,omitempty"`
}

// AssignDriver handles POST /v1/bookings/:id/assign
func (h *BookingHandler) AssignDriver(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid ride id"})
		return
	}

	var req AssignDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.bookingService.AssignDriver(c.Request.Context(), service.AssignDriverRequest{
		RideID:     id,
		DriverID:   req.DriverID,
		ETA:        req.ETA,
		AssignedBy: req.AssignedBy,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// StatusChangeRequest is the HTTP request body for completion and no-show.
type StatusChangeRequest struct {
	ChangedBy string `json:"changed_by,omitempty"`
}

// CompleteRide handles POST /v1/bookings/:id/complete
func (h *BookingHandler) CompleteRide(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid ride id"})
		return
	}

	var req StatusChangeRequest
	_ = c.ShouldBindJSON(&req) // body is optional

	ride, err := h.bookingService.CompleteRide(c.Request.Context(), id, req.ChangedBy)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// CancelRideRequest is the HTTP request body for cancelling a ride.
type CancelRideRequest struct {
	Reason        string `json:"reason"`
	CancelledBy   string `json:"cancelled_by,omitempty"`
	ProcessRefund bool   `json:"process_refund"`
}

// CancelRideResponse is the HTTP response for cancelling a ride.
type CancelRideResponse struct {
	Ride   RideResponse `json:"ride"`
	Refund string       `json:"refund"`
}

// CancelRide handles POST /v1/bookings/:id/cancel
func (h *BookingHandler) CancelRide(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid ride id"})
		return
	}

	var req CancelRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.bookingService.CancelRide(c.Request.Context(), service.CancelRideRequest{
		RideID:        id,
		Reason:        req.Reason,
		CancelledBy:   req.CancelledBy,
		ProcessRefund: req.ProcessRefund,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, CancelRideResponse{
		Ride:   toRideResponse(result.Ride),
		Refund: string(result.Refund),
	})
}

// UpdateNotesRequest is the HTTP request body for saving dispatcher notes.
type UpdateNotesRequest struct {
	DispatcherNotes string `json:"dispatcher_notes"`
}

// UpdateNotes handles PATCH /v1/bookings/:id/notes
func (h *BookingHandler) UpdateNotes(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid ride id"})
		return
	}

	var req UpdateNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.bookingService.UpdateNotes(c.Request.Context(), id, req.DispatcherNotes)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// MarkNoShow handles POST /v1/bookings/:id/no-show
func (h *BookingHandler) MarkNoShow(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid ride id"})
		return
	}

	var req StatusChangeRequest
	_ = c.ShouldBindJSON(&req) // body is optional

	ride, err := h.bookingService.MarkNoShow(c.Request.Context(), id, req.ChangedBy)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

func parseID(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}
