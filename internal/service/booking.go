package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/zologic/city-ride/internal/cache"
	"github.com/zologic/city-ride/internal/domain"
	"github.com/zologic/city-ride/internal/payment"
	"github.com/zologic/city-ride/internal/push"
	"github.com/zologic/city-ride/internal/repository"
	"github.com/zologic/city-ride/internal/settings"
)

// EventNotifier delivers a ride-lifecycle event to the automation webhook.
type EventNotifier interface {
	SendEvent(ctx context.Context, ride *domain.Ride, driver *domain.Driver, event domain.EventType) error
}

// BookingNotifier posts the plain new-booking notification. Unlike the event
// path it makes a single attempt and never retries.
type BookingNotifier interface {
	Notify(ctx context.Context, ride *domain.Ride) error
}

// RefundOutcome reports what happened to the payment when a ride was
// cancelled.
type RefundOutcome string

const (
	RefundProcessed    RefundOutcome = "refunded"
	RefundFailed       RefundOutcome = "refund_failed"
	RefundNotProcessed RefundOutcome = "not_processed"
)

// BookingService owns the ride lifecycle: idempotent creation, driver
// assignment, completion and cancellation with refund.
type BookingService struct {
	rideRepo     repository.RideRepository
	driverRepo   repository.DriverRepository
	discountRepo repository.DiscountRepository
	payments     payment.Provider
	pusher       push.Sender
	notifier     EventNotifier
	legacy       BookingNotifier
	cache        cache.Store
	settings     settings.Provider
}

// NewBookingService creates a new BookingService. pusher, notifier, legacy
// and cache may be nil; the corresponding side effects are then skipped.
func NewBookingService(
	rideRepo repository.RideRepository,
	driverRepo repository.DriverRepository,
	discountRepo repository.DiscountRepository,
	payments payment.Provider,
	pusher push.Sender,
	notifier EventNotifier,
	legacy BookingNotifier,
	cacheStore cache.Store,
	provider settings.Provider,
) *BookingService {
	return &BookingService{
		rideRepo:     rideRepo,
		driverRepo:   driverRepo,
		discountRepo: discountRepo,
		payments:     payments,
		pusher:       pusher,
		notifier:     notifier,
		legacy:       legacy,
		cache:        cacheStore,
		settings:     provider,
	}
}

// invalidateStats drops the cached aggregates touched by a state mutation.
// Best effort; a failed invalidation only extends staleness up to the TTL.
func (s *BookingService) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx,
		cache.KeyDashboard, cache.KeyKeyMetrics, cache.KeyDrivers,
		cache.KeyPeakHours, cache.KeyStatusDistribution); err != nil {
		log.Printf("booking: cache invalidation: %v", err)
	}
}

// notify delivers a webhook event, logging failures instead of failing the
// parent operation.
func (s *BookingService) notify(ctx context.Context, ride *domain.Ride, driver *domain.Driver, event domain.EventType) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendEvent(ctx, ride, driver, event); err != nil {
		log.Printf("booking: webhook %s for ride %d: %v", event, ride.ID, err)
	}
}

// notifyLegacy posts the plain new-booking notification, logging failures
// instead of failing the parent operation.
func (s *BookingService) notifyLegacy(ctx context.Context, ride *domain.Ride) {
	if s.legacy == nil {
		return
	}
	if err := s.legacy.Notify(ctx, ride); err != nil {
		log.Printf("booking: legacy notification for ride %d: %v", ride.ID, err)
	}
}

// pushToPassenger sends a push notification, logging failures.
func (s *BookingService) pushToPassenger(ctx context.Context, ride *domain.Ride, title, message string) {
	if s.pusher == nil || ride.PushSubscriberID == "" {
		return
	}
	if err := s.pusher.Send(ctx, ride.PushSubscriberID, title, message); err != nil {
		log.Printf("booking: push for ride %d: %v", ride.ID, err)
	}
}

// CreateBookingRequest contains the parameters for creating a booking. Price
// fields come from the pricing engine; TotalPrice is the amount actually
// paid (post-discount when a code was applied).
type CreateBookingRequest struct {
	PaymentIntentID  string
	PassengerName    string
	PassengerPhone   string
	PassengerEmail   string
	PushSubscriberID string

	AddressFrom string
	AddressTo   string
	DistanceKm  float64

	TotalPrice     float64
	DiscountCode   string
	DiscountAmount float64
	OriginalPrice  float64
	FinalPrice     float64
}

// CreateBookingResponse contains the created or pre-existing ride.
type CreateBookingResponse struct {
	Ride           *domain.Ride
	AlreadyExisted bool
}

// CreateBooking creates a ride in unassigned state. It is idempotent on the
// payment reference: a second call with the same reference returns the
// existing ride without duplicating side effects.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*CreateBookingResponse, error) {
	if req.PaymentIntentID == "" {
		return nil, ErrMissingPaymentReference
	}
	if req.PassengerName == "" || req.PassengerPhone == "" {
		return nil, ErrMissingPassenger
	}
	if req.AddressFrom == "" || req.AddressTo == "" {
		return nil, ErrMissingAddress
	}
	if req.DistanceKm <= 0 {
		return nil, ErrInvalidDistance
	}
	if req.TotalPrice <= 0 {
		return nil, ErrInvalidPrice
	}

	if existing, err := s.rideRepo.GetByPaymentIntentID(ctx, req.PaymentIntentID); err == nil {
		return &CreateBookingResponse{Ride: existing, AlreadyExisted: true}, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	ride := &domain.Ride{
		PassengerName:     req.PassengerName,
		PassengerPhone:    req.PassengerPhone,
		PassengerEmail:    req.PassengerEmail,
		PushSubscriberID:  req.PushSubscriberID,
		AddressFrom:       req.AddressFrom,
		AddressTo:         req.AddressTo,
		DistanceKm:        req.DistanceKm,
		TotalPrice:        req.TotalPrice,
		DiscountCode:      req.DiscountCode,
		DiscountAmount:    req.DiscountAmount,
		OriginalPrice:     req.OriginalPrice,
		FinalPrice:        req.FinalPrice,
		PaymentIntentID:   req.PaymentIntentID,
		Status:            domain.RideStatusUnassigned,
		SMSDeliveryStatus: domain.SMSStatusNotSent,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.rideRepo.Create(ctx, ride); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost the race against a concurrent creation for the same
			// payment; the winner's row is the booking.
			existing, gerr := s.rideRepo.GetByPaymentIntentID(ctx, req.PaymentIntentID)
			if gerr != nil {
				return nil, gerr
			}
			return &CreateBookingResponse{Ride: existing, AlreadyExisted: true}, nil
		}
		return nil, err
	}

	if ride.DiscountCode != "" {
		s.recordDiscountUsage(ctx, ride.DiscountCode)
	}

	s.invalidateStats(ctx)
	s.notify(ctx, ride, nil, domain.EventBookingConfirmed)
	s.notifyLegacy(ctx, ride)

	return &CreateBookingResponse{Ride: ride, AlreadyExisted: false}, nil
}

func (s *BookingService) recordDiscountUsage(ctx context.Context, code string) {
	dc, err := s.discountRepo.GetActiveByCode(ctx, code)
	if err != nil {
		log.Printf("booking: discount usage lookup %s: %v", code, err)
		return
	}
	if err := s.discountRepo.IncrementUsage(ctx, dc.ID, time.Now()); err != nil {
		log.Printf("booking: discount usage increment %s: %v", code, err)
	}
}

// AssignDriverRequest contains the parameters for assigning a driver.
type AssignDriverRequest struct {
	RideID     int64
	DriverID   int64
	ETA        string
	AssignedBy string
}

// AssignDriver writes the assignment and transitions the ride to assigned.
// The write is not guarded on the current status, but the passenger webhook
// and push fire only on the true unassigned to assigned edge, so repeated
// assignments never renotify.
func (s *BookingService) AssignDriver(ctx context.Context, req AssignDriverRequest) (*domain.Ride, error) {
	ride, err := s.rideRepo.GetByID(ctx, req.RideID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRideNotFound
		}
		return nil, err
	}

	driver, err := s.driverRepo.GetByID(ctx, req.DriverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDriverNotFound
		}
		return nil, err
	}

	wasUnassigned := ride.Status == domain.RideStatusUnassigned

	now := time.Now()
	ride.CabDriverID = driver.VehicleNumber
	ride.ETA = req.ETA
	ride.Status = domain.RideStatusAssigned
	ride.StatusChangedBy = req.AssignedBy
	ride.StatusChangedAt = now
	ride.UpdatedAt = now

	if err := s.rideRepo.Update(ctx, ride); err != nil {
		return nil, err
	}

	if wasUnassigned {
		s.notify(ctx, ride, driver, domain.EventDriverAssigned)
		s.pushToPassenger(ctx, ride, "Vozač dodijeljen",
			fmt.Sprintf("Taksi %s je na putu! Dolazak za %s.", driver.VehicleNumber, req.ETA))
	}

	s.invalidateStats(ctx)
	return ride, nil
}

// CompleteRide transitions a ride to completed and credits the assigned
// driver. Completing straight from unassigned is allowed; re-completing a
// terminal ride is not, so driver earnings are never double counted.
func (s *BookingService) CompleteRide(ctx context.Context, rideID int64, completedBy string) (*domain.Ride, error) {
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRideNotFound
		}
		return nil, err
	}
	if ride.Status.IsTerminal() {
		return nil, ErrRideTerminal
	}

	now := time.Now()
	ride.Status = domain.RideStatusCompleted
	ride.StatusChangedBy = completedBy
	ride.StatusChangedAt = now
	ride.UpdatedAt = now

	if err := s.rideRepo.Update(ctx, ride); err != nil {
		return nil, err
	}

	if ride.CabDriverID != "" {
		if err := s.driverRepo.IncrementEarnings(ctx, ride.CabDriverID, ride.TotalPrice, now); err != nil {
			log.Printf("booking: earnings for vehicle %s: %v", ride.CabDriverID, err)
		}
	}

	s.pushToPassenger(ctx, ride, "Vožnja završena",
		fmt.Sprintf("Hvala na vožnji! Ukupno: %.2f.", ride.TotalPrice))
	s.invalidateStats(ctx)
	return ride, nil
}

// CancelRideRequest contains the parameters for cancelling a ride.
type CancelRideRequest struct {
	RideID        int64
	Reason        string
	CancelledBy   string
	ProcessRefund bool
}

// CancelRideResponse carries the cancelled ride and the refund outcome.
type CancelRideResponse struct {
	Ride   *domain.Ride
	Refund RefundOutcome
}

// CancelRide transitions a non-terminal ride to cancelled and optionally
// refunds the payment. A refund failure never rolls back the cancellation;
// it is surfaced as the refund_failed outcome.
func (s *BookingService) CancelRide(ctx context.Context, req CancelRideRequest) (*CancelRideResponse, error) {
	ride, err := s.rideRepo.GetByID(ctx, req.RideID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRideNotFound
		}
		return nil, err
	}
	if ride.Status.IsTerminal() {
		return nil, ErrRideTerminal
	}

	now := time.Now()
	ride.Status = domain.RideStatusCancelled
	ride.CancellationReason = req.Reason
	ride.StatusChangedBy = req.CancelledBy
	ride.StatusChangedAt = now
	ride.UpdatedAt = now

	if err := s.rideRepo.Update(ctx, ride); err != nil {
		return nil, err
	}

	outcome := RefundNotProcessed
	if req.ProcessRefund && ride.PaymentIntentID != "" && s.payments != nil {
		if err := s.payments.Refund(ctx, ride.PaymentIntentID); err != nil {
			log.Printf("booking: refund for ride %d: %v", ride.ID, err)
			outcome = RefundFailed
		} else {
			outcome = RefundProcessed
		}
	}

	s.notify(ctx, ride, nil, domain.EventRideCancelled)
	s.invalidateStats(ctx)

	return &CancelRideResponse{Ride: ride, Refund: outcome}, nil
}

// MarkNoShow transitions a non-terminal ride to no_show. Guarded the same
// way as cancellation; no passenger notification is sent.
func (s *BookingService) MarkNoShow(ctx context.Context, rideID int64, markedBy string) (*domain.Ride, error) {
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRideNotFound
		}
		return nil, err
	}
	if ride.Status.IsTerminal() {
		return nil, ErrRideTerminal
	}

	now := time.Now()
	ride.Status = domain.RideStatusNoShow
	ride.StatusChangedBy = markedBy
	ride.StatusChangedAt = now
	ride.UpdatedAt = now

	if err := s.rideRepo.Update(ctx, ride); err != nil {
		return nil, err
	}

	s.invalidateStats(ctx)
	return ride, nil
}

// UpdateNotes stores dispatcher notes on a ride. Notes are free text for the
// dispatch desk and carry no lifecycle side effects.
func (s *BookingService) UpdateNotes(ctx context.Context, rideID int64, notes string) (*domain.Ride, error) {
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRideNotFound
		}
		return nil, err
	}

	ride.DispatcherNotes = notes
	ride.UpdatedAt = time.Now()

	if err := s.rideRepo.Update(ctx, ride); err != nil {
		return nil, err
	}
	return ride, nil
}

// GetRide retrieves one ride.
func (s *BookingService) GetRide(ctx context.Context, rideID int64) (*domain.Ride, error) {
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrRideNotFound
	}
	return ride, err
}

// ListRides lists rides matching the filter.
func (s *BookingService) ListRides(ctx context.Context, filter repository.RideFilter) ([]*domain.Ride, error) {
	return s.rideRepo.List(ctx, filter)
}

// CreatePaymentIntent opens a payment intent for a quoted amount with the
// booking details attached as metadata, so the server-side payment webhook
// can reconstruct the booking if the client never calls back.
func (s *BookingService) CreatePaymentIntent(ctx context.Context, req CreateBookingRequest) (*payment.Intent, error) {
	if req.PassengerName == "" || req.PassengerPhone == "" {
		return nil, ErrMissingPassenger
	}
	if req.AddressFrom == "" || req.AddressTo == "" {
		return nil, ErrMissingAddress
	}
	if req.TotalPrice <= 0 {
		return nil, ErrInvalidPrice
	}

	currency := settings.String(ctx, s.settings, settings.KeyCurrency, settings.DefaultCurrency)
	metadata := map[string]string{
		"passenger_name":     req.PassengerName,
		"passenger_phone":    req.PassengerPhone,
		"passenger_email":    req.PassengerEmail,
		"push_subscriber_id": req.PushSubscriberID,
		"address_from":       req.AddressFrom,
		"address_to":         req.AddressTo,
		"distance_km":        strconv.FormatFloat(req.DistanceKm, 'f', 2, 64),
		"discount_code":      req.DiscountCode,
		"discount_amount":    strconv.FormatFloat(req.DiscountAmount, 'f', 2, 64),
		"original_price":     strconv.FormatFloat(req.OriginalPrice, 'f', 2, 64),
	}
	return s.payments.CreateIntent(ctx, req.TotalPrice, currency, metadata)
}

// GetPaymentIntent looks up the current state of a payment intent so clients
// can poll while the passenger completes the payment.
func (s *BookingService) GetPaymentIntent(ctx context.Context, paymentIntentID string) (*payment.Intent, error) {
	if paymentIntentID == "" {
		return nil, ErrMissingPaymentReference
	}
	return s.payments.RetrieveIntent(ctx, paymentIntentID)
}

// paymentIntentObject is the subset of the gateway's intent object carried in
// a webhook event.
type paymentIntentObject struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Metadata map[string]string `json:"metadata"`
}

// HandlePaymentEvent verifies a payment-processor webhook and, on a captured
// payment, creates the booking from the intent metadata. This is the
// idempotent server-side fallback for clients that pay but never confirm.
func (s *BookingService) HandlePaymentEvent(ctx context.Context, payload []byte, signature string) error {
	event, err := s.payments.VerifyEvent(payload, signature)
	if err != nil {
		return ErrInvalidSignature
	}

	if event.Type != "payment_intent.succeeded" {
		return nil
	}

	var intent paymentIntentObject
	if err := json.Unmarshal(event.Raw, &intent); err != nil {
		return fmt.Errorf("decode payment intent: %w", err)
	}

	distance, _ := strconv.ParseFloat(intent.Metadata["distance_km"], 64)
	discountAmount, _ := strconv.ParseFloat(intent.Metadata["discount_amount"], 64)
	originalPrice, _ := strconv.ParseFloat(intent.Metadata["original_price"], 64)

	total := float64(intent.Amount) / 100
	req := CreateBookingRequest{
		PaymentIntentID:  intent.ID,
		PassengerName:    intent.Metadata["passenger_name"],
		PassengerPhone:   intent.Metadata["passenger_phone"],
		PassengerEmail:   intent.Metadata["passenger_email"],
		PushSubscriberID: intent.Metadata["push_subscriber_id"],
		AddressFrom:      intent.Metadata["address_from"],
		AddressTo:        intent.Metadata["address_to"],
		DistanceKm:       distance,
		TotalPrice:       total,
		DiscountCode:     intent.Metadata["discount_code"],
		DiscountAmount:   discountAmount,
		OriginalPrice:    originalPrice,
	}
	if discountAmount > 0 {
		req.FinalPrice = total
	}

	_, err = s.CreateBooking(ctx, req)
	return err
}
