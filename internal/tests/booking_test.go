package tests

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/zologic/city-ride/internal/domain"
	"github.com/zologic/city-ride/internal/service"
	"github.com/zologic/city-ride/internal/settings"
)

// bookingFixture bundles a BookingService with its mocked collaborators.
type bookingFixture struct {
	svc       *service.BookingService
	rides     *MockRideRepository
	drivers   *MockDriverRepository
	discounts *MockDiscountRepository
	payments  *MockPaymentProvider
	pusher    *MockPushSender
	notifier  *MockNotifier
	legacy    *MockBookingNotifier
	cache     *MockCacheStore
}

func newBookingFixture() *bookingFixture {
	f := &bookingFixture{
		rides:     NewMockRideRepository(),
		drivers:   NewMockDriverRepository(),
		discounts: NewMockDiscountRepository(),
		payments:  &MockPaymentProvider{},
		pusher:    &MockPushSender{},
		notifier:  &MockNotifier{},
		legacy:    &MockBookingNotifier{},
		cache:     NewMockCacheStore(),
	}
	f.svc = service.NewBookingService(
		f.rides, f.drivers, f.discounts,
		f.payments, f.pusher, f.notifier, f.legacy, f.cache,
		settings.NewStatic(map[string]string{settings.KeyTimezone: "UTC"}),
	)
	return f
}

func validBookingRequest() service.CreateBookingRequest {
	return service.CreateBookingRequest{
		PaymentIntentID:  "pi_123",
		PassengerName:    "Amina Hodžić",
		PassengerPhone:   "061 123 456",
		PushSubscriberID: "sub-1",
		AddressFrom:      "Baščaršija 1",
		AddressTo:        "Ilidža 5",
		DistanceKm:       10,
		TotalPrice:       17.50,
	}
}

func TestCreateBookingValidation(t *testing.T) {
	f := newBookingFixture()

	testCases := []struct {
		name    string
		mutate  func(*service.CreateBookingRequest)
		wantErr error
	}{
		{"missing payment reference", func(r *service.CreateBookingRequest) { r.PaymentIntentID = "" }, service.ErrMissingPaymentReference},
		{"missing passenger name", func(r *service.CreateBookingRequest) { r.PassengerName = "" }, service.ErrMissingPassenger},
		{"missing passenger phone", func(r *service.CreateBookingRequest) { r.PassengerPhone = "" }, service.ErrMissingPassenger},
		{"missing pickup address", func(r *service.CreateBookingRequest) { r.AddressFrom = "" }, service.ErrMissingAddress},
		{"missing destination", func(r *service.CreateBookingRequest) { r.AddressTo = "" }, service.ErrMissingAddress},
		{"zero distance", func(r *service.CreateBookingRequest) { r.DistanceKm = 0 }, service.ErrInvalidDistance},
		{"zero price", func(r *service.CreateBookingRequest) { r.TotalPrice = 0 }, service.ErrInvalidPrice},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := validBookingRequest()
			tc.mutate(&req)
			_, err := f.svc.CreateBooking(context.Background(), req)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Expected %v, got %v", tc.wantErr, err)
			}
		})
	}

	if f.rides.Count() != 0 {
		t.Errorf("Expected no rides persisted, got %d", f.rides.Count())
	}
}

func TestCreateBookingIdempotent(t *testing.T) {
	f := newBookingFixture()
	req := validBookingRequest()

	first, err := f.svc.CreateBooking(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateBooking failed: %v", err)
	}
	if first.AlreadyExisted {
		t.Error("Expected first creation to be new")
	}
	if first.Ride.Status != domain.RideStatusUnassigned {
		t.Errorf("Expected status unassigned, got %s", first.Ride.Status)
	}

	second, err := f.svc.CreateBooking(context.Background(), req)
	if err != nil {
		t.Fatalf("Second CreateBooking failed: %v", err)
	}
	if !second.AlreadyExisted {
		t.Error("Expected second creation to report an existing booking")
	}
	if second.Ride.ID != first.Ride.ID {
		t.Errorf("Expected same ride id, got %d and %d", first.Ride.ID, second.Ride.ID)
	}
	if f.rides.Count() != 1 {
		t.Errorf("Expected one persisted ride, got %d", f.rides.Count())
	}
	if n := f.notifier.EventCount(domain.EventBookingConfirmed); n != 1 {
		t.Errorf("Expected exactly one booking_confirmed event, got %d", n)
	}
}

func TestCreateBookingRecordsDiscountUsageOnce(t *testing.T) {
	f := newBookingFixture()
	code := f.discounts.AddCode(activeCode(&domain.DiscountCode{
		Code:          "SUMMER10",
		DiscountType:  domain.DiscountTypePercent,
		DiscountValue: 10,
	}))

	req := validBookingRequest()
	req.DiscountCode = "SUMMER10"
	req.DiscountAmount = 1.75
	req.OriginalPrice = 17.50
	req.FinalPrice = 15.75
	req.TotalPrice = 15.75

	if _, err := f.svc.CreateBooking(context.Background(), req); err != nil {
		t.Fatalf("CreateBooking failed: %v", err)
	}
	if _, err := f.svc.CreateBooking(context.Background(), req); err != nil {
		t.Fatalf("Second CreateBooking failed: %v", err)
	}

	if f.discounts.GetCode(code.ID).UsageCount != 1 {
		t.Errorf("Expected usage counted once, got %d", f.discounts.GetCode(code.ID).UsageCount)
	}
}

func TestCreateBookingDiscountUsageCappedAtLimit(t *testing.T) {
	f := newBookingFixture()
	code := f.discounts.AddCode(activeCode(&domain.DiscountCode{
		Code:          "LASTSLOT",
		DiscountType:  domain.DiscountTypePercent,
		DiscountValue: 10,
		UsageLimit:    1,
	}))

	first := validBookingRequest()
	first.DiscountCode = "LASTSLOT"
	second := validBookingRequest()
	second.PaymentIntentID = "pi_456"
	second.DiscountCode = "LASTSLOT"

	// Both bookings validated while the last slot was still free; only one
	// increment may land.
	if _, err := f.svc.CreateBooking(context.Background(), first); err != nil {
		t.Fatalf("CreateBooking failed: %v", err)
	}
	if _, err := f.svc.CreateBooking(context.Background(), second); err != nil {
		t.Fatalf("Second CreateBooking failed: %v", err)
	}

	if got := f.discounts.GetCode(code.ID).UsageCount; got != 1 {
		t.Errorf("Expected usage capped at the limit of 1, got %d", got)
	}
	if f.rides.Count() != 2 {
		t.Errorf("Expected both bookings persisted, got %d", f.rides.Count())
	}
}

func TestCreateBookingSendsLegacyNotificationOnce(t *testing.T) {
	f := newBookingFixture()

	first, err := f.svc.CreateBooking(context.Background(), validBookingRequest())
	if err != nil {
		t.Fatalf("CreateBooking failed: %v", err)
	}
	if _, err := f.svc.CreateBooking(context.Background(), validBookingRequest()); err != nil {
		t.Fatalf("Second CreateBooking failed: %v", err)
	}

	if f.legacy.NotifyCount() != 1 {
		t.Errorf("Expected one legacy notification, got %d", f.legacy.NotifyCount())
	}
	if f.legacy.RideIDs[0] != first.Ride.ID {
		t.Errorf("Expected notification for ride %d, got %d", first.Ride.ID, f.legacy.RideIDs[0])
	}
}

func TestCreateBookingInvalidatesStatsCache(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()
	keys := []string{
		"stats_dashboard", "stats_key_metrics", "stats_drivers",
		"stats_peak_hours", "stats_status_distribution",
	}
	for _, key := range keys {
		f.cache.Set(ctx, key, []byte("{}"), 0)
	}

	if _, err := f.svc.CreateBooking(ctx, validBookingRequest()); err != nil {
		t.Fatalf("CreateBooking failed: %v", err)
	}

	for _, key := range keys {
		if f.cache.Has(key) {
			t.Errorf("Expected %s to be invalidated", key)
		}
	}
}

func TestAssignDriverNotifiesOnlyOnFirstAssignment(t *testing.T) {
	f := newBookingFixture()
	ride := f.rides.AddRide(&domain.Ride{
		PassengerName:    "Amina Hodžić",
		PassengerPhone:   "061 123 456",
		PushSubscriberID: "sub-1",
		AddressFrom:      "Baščaršija 1",
		AddressTo:        "Ilidža 5",
		DistanceKm:       10,
		TotalPrice:       15.75,
		PaymentIntentID:  "pi_123",
		Status:           domain.RideStatusUnassigned,
	})
	driver := f.drivers.AddDriver(&domain.Driver{
		Name:          "Emir Begić",
		VehicleNumber: "SA-123-AB",
		Status:        domain.DriverStatusActive,
	})

	updated, err := f.svc.AssignDriver(context.Background(), service.AssignDriverRequest{
		RideID:     ride.ID,
		DriverID:   driver.ID,
		ETA:        "5 minuta",
		AssignedBy: "dispatcher",
	})
	if err != nil {
		t.Fatalf("AssignDriver failed: %v", err)
	}
	if updated.Status != domain.RideStatusAssigned {
		t.Errorf("Expected status assigned, got %s", updated.Status)
	}
	if updated.CabDriverID != "SA-123-AB" {
		t.Errorf("Expected vehicle SA-123-AB, got %s", updated.CabDriverID)
	}
	if n := f.notifier.EventCount(domain.EventDriverAssigned); n != 1 {
		t.Errorf("Expected one driver_assigned event, got %d", n)
	}
	if f.pusher.SentCount() != 1 {
		t.Fatalf("Expected one push, got %d", f.pusher.SentCount())
	}
	push := f.pusher.Sent[0]
	if !strings.Contains(push.Message, "SA-123-AB") || !strings.Contains(push.Message, "5 minuta") {
		t.Errorf("Expected push to mention vehicle and ETA, got %q", push.Message)
	}

	// Reassigning updates the record but does not renotify the passenger.
	updated, err = f.svc.AssignDriver(context.Background(), service.AssignDriverRequest{
		RideID:     ride.ID,
		DriverID:   driver.ID,
		ETA:        "10 minuta",
		AssignedBy: "dispatcher",
	})
	if err != nil {
		t.Fatalf("Second AssignDriver failed: %v", err)
	}
	if updated.ETA != "10 minuta" {
		t.Errorf("Expected ETA updated to 10 minuta, got %s", updated.ETA)
	}
	if n := f.notifier.EventCount(domain.EventDriverAssigned); n != 1 {
		t.Errorf("Expected still one driver_assigned event, got %d", n)
	}
	if f.pusher.SentCount() != 1 {
		t.Errorf("Expected still one push, got %d", f.pusher.SentCount())
	}
}

func TestAssignDriverNotFound(t *testing.T) {
	f := newBookingFixture()
	ride := f.rides.AddRide(&domain.Ride{Status: domain.RideStatusUnassigned})

	_, err := f.svc.AssignDriver(context.Background(), service.AssignDriverRequest{RideID: 999, DriverID: 1})
	if err != service.ErrRideNotFound {
		t.Errorf("Expected ErrRideNotFound, got %v", err)
	}

	_, err = f.svc.AssignDriver(context.Background(), service.AssignDriverRequest{RideID: ride.ID, DriverID: 999})
	if err != service.ErrDriverNotFound {
		t.Errorf("Expected ErrDriverNotFound, got %v", err)
	}
}

func TestCompleteRideCreditsDriverOnce(t *testing.T) {
	f := newBookingFixture()
	driver := f.drivers.AddDriver(&domain.Driver{
		Name:          "Emir Begić",
		VehicleNumber: "SA-123-AB",
		Status:        domain.DriverStatusActive,
	})
	ride := f.rides.AddRide(&domain.Ride{
		PassengerName:  "Amina Hodžić",
		PassengerPhone: "061 123 456",
		TotalPrice:     15.75,
		CabDriverID:    "SA-123-AB",
		Status:         domain.RideStatusAssigned,
	})

	completed, err := f.svc.CompleteRide(context.Background(), ride.ID, "dispatcher")
	if err != nil {
		t.Fatalf("CompleteRide failed: %v", err)
	}
	if completed.Status != domain.RideStatusCompleted {
		t.Errorf("Expected status completed, got %s", completed.Status)
	}
	if got := f.drivers.GetDriver(driver.ID).TotalEarnings; got != 15.75 {
		t.Errorf("Expected driver earnings 15.75, got %v", got)
	}
	if got := f.drivers.GetDriver(driver.ID).TotalRides; got != 1 {
		t.Errorf("Expected 1 completed ride for driver, got %d", got)
	}

	// Completing again must not double count.
	if _, err := f.svc.CompleteRide(context.Background(), ride.ID, "dispatcher"); err != service.ErrRideTerminal {
		t.Errorf("Expected ErrRideTerminal, got %v", err)
	}
	if got := f.drivers.GetDriver(driver.ID).TotalEarnings; got != 15.75 {
		t.Errorf("Expected earnings unchanged at 15.75, got %v", got)
	}
}

func TestCompleteRideWithoutDriver(t *testing.T) {
	f := newBookingFixture()
	ride := f.rides.AddRide(&domain.Ride{
		TotalPrice: 10,
		Status:     domain.RideStatusUnassigned,
	})

	completed, err := f.svc.CompleteRide(context.Background(), ride.ID, "dispatcher")
	if err != nil {
		t.Fatalf("CompleteRide failed: %v", err)
	}
	if completed.Status != domain.RideStatusCompleted {
		t.Errorf("Expected status completed, got %s", completed.Status)
	}
	if f.drivers.IncrementCallCount != 0 {
		t.Errorf("Expected no earnings credit without an assigned vehicle, got %d calls", f.drivers.IncrementCallCount)
	}
}

func TestCancelRideRefundOutcomes(t *testing.T) {
	testCases := []struct {
		name          string
		processRefund bool
		refundError   error
		want          service.RefundOutcome
	}{
		{"refund processed", true, nil, service.RefundProcessed},
		{"refund failed", true, errors.New("gateway down"), service.RefundFailed},
		{"refund not requested", false, nil, service.RefundNotProcessed},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newBookingFixture()
			f.payments.RefundError = tc.refundError
			ride := f.rides.AddRide(&domain.Ride{
				PaymentIntentID: "pi_123",
				Status:          domain.RideStatusUnassigned,
			})

			resp, err := f.svc.CancelRide(context.Background(), service.CancelRideRequest{
				RideID:        ride.ID,
				Reason:        "passenger request",
				CancelledBy:   "dispatcher",
				ProcessRefund: tc.processRefund,
			})
			if err != nil {
				t.Fatalf("CancelRide failed: %v", err)
			}
			if resp.Refund != tc.want {
				t.Errorf("Expected refund outcome %s, got %s", tc.want, resp.Refund)
			}
			// Cancellation holds regardless of the refund outcome.
			if resp.Ride.Status != domain.RideStatusCancelled {
				t.Errorf("Expected status cancelled, got %s", resp.Ride.Status)
			}
			if resp.Ride.CancellationReason != "passenger request" {
				t.Errorf("Expected reason recorded, got %q", resp.Ride.CancellationReason)
			}
			if n := f.notifier.EventCount(domain.EventRideCancelled); n != 1 {
				t.Errorf("Expected one ride_cancelled event, got %d", n)
			}
		})
	}
}

func TestCancelRideTerminalGuard(t *testing.T) {
	for _, status := range []domain.RideStatus{
		domain.RideStatusCompleted,
		domain.RideStatusCancelled,
		domain.RideStatusNoShow,
	} {
		t.Run(string(status), func(t *testing.T) {
			f := newBookingFixture()
			ride := f.rides.AddRide(&domain.Ride{Status: status})

			_, err := f.svc.CancelRide(context.Background(), service.CancelRideRequest{RideID: ride.ID})
			if err != service.ErrRideTerminal {
				t.Errorf("Expected ErrRideTerminal, got %v", err)
			}
			if f.rides.GetRide(ride.ID).Status != status {
				t.Errorf("Expected status unchanged, got %s", f.rides.GetRide(ride.ID).Status)
			}
			if f.payments.RefundCount() != 0 {
				t.Errorf("Expected no refund attempt, got %d", f.payments.RefundCount())
			}
		})
	}
}

func TestMarkNoShow(t *testing.T) {
	f := newBookingFixture()
	ride := f.rides.AddRide(&domain.Ride{
		PushSubscriberID: "sub-1",
		Status:           domain.RideStatusAssigned,
	})

	updated, err := f.svc.MarkNoShow(context.Background(), ride.ID, "dispatcher")
	if err != nil {
		t.Fatalf("MarkNoShow failed: %v", err)
	}
	if updated.Status != domain.RideStatusNoShow {
		t.Errorf("Expected status no_show, got %s", updated.Status)
	}
	if len(f.notifier.Events) != 0 {
		t.Errorf("Expected no webhook events for a no-show, got %v", f.notifier.Events)
	}
	if f.pusher.SentCount() != 0 {
		t.Errorf("Expected no push for a no-show, got %d", f.pusher.SentCount())
	}

	if _, err := f.svc.MarkNoShow(context.Background(), ride.ID, "dispatcher"); err != service.ErrRideTerminal {
		t.Errorf("Expected ErrRideTerminal on a second no-show, got %v", err)
	}
}

func TestUpdateDispatcherNotes(t *testing.T) {
	f := newBookingFixture()
	ride := f.rides.AddRide(&domain.Ride{Status: domain.RideStatusUnassigned})

	updated, err := f.svc.UpdateNotes(context.Background(), ride.ID, "Pickup at the side entrance")
	if err != nil {
		t.Fatalf("UpdateNotes failed: %v", err)
	}
	if updated.DispatcherNotes != "Pickup at the side entrance" {
		t.Errorf("Expected notes set, got %q", updated.DispatcherNotes)
	}
	if got := f.rides.GetRide(ride.ID).DispatcherNotes; got != "Pickup at the side entrance" {
		t.Errorf("Expected notes persisted, got %q", got)
	}
	if len(f.notifier.Events) != 0 || f.pusher.SentCount() != 0 {
		t.Error("Expected no notifications for a notes edit")
	}

	if _, err := f.svc.UpdateNotes(context.Background(), 999, "x"); err != service.ErrRideNotFound {
		t.Errorf("Expected ErrRideNotFound, got %v", err)
	}
}

func TestHandlePaymentEvent(t *testing.T) {
	f := newBookingFixture()

	payload := []byte(`{
		"id": "pi_evt",
		"amount": 1575,
		"metadata": {
			"passenger_name": "Amina Hodžić",
			"passenger_phone": "061 123 456",
			"address_from": "Baščaršija 1",
			"address_to": "Ilidža 5",
			"distance_km": "10.00",
			"discount_code": "SUMMER10",
			"discount_amount": "1.75",
			"original_price": "17.50"
		}
	}`)

	if err := f.svc.HandlePaymentEvent(context.Background(), payload, "sig"); err != nil {
		t.Fatalf("HandlePaymentEvent failed: %v", err)
	}

	if f.rides.Count() != 1 {
		t.Fatalf("Expected one booking created, got %d", f.rides.Count())
	}
	ride := f.rides.GetRide(1)
	if ride.PaymentIntentID != "pi_evt" {
		t.Errorf("Expected payment reference pi_evt, got %s", ride.PaymentIntentID)
	}
	if ride.TotalPrice != 15.75 {
		t.Errorf("Expected booked amount 15.75, got %v", ride.TotalPrice)
	}
	if ride.FinalPrice != 15.75 || ride.OriginalPrice != 17.50 {
		t.Errorf("Expected discount prices carried over, got original %v final %v", ride.OriginalPrice, ride.FinalPrice)
	}

	// Replaying the same event stays idempotent.
	if err := f.svc.HandlePaymentEvent(context.Background(), payload, "sig"); err != nil {
		t.Fatalf("Replayed HandlePaymentEvent failed: %v", err)
	}
	if f.rides.Count() != 1 {
		t.Errorf("Expected still one booking after replay, got %d", f.rides.Count())
	}
}

func TestHandlePaymentEventBadSignature(t *testing.T) {
	f := newBookingFixture()

	err := f.svc.HandlePaymentEvent(context.Background(), []byte(`{}`), "")
	if err != service.ErrInvalidSignature {
		t.Errorf("Expected ErrInvalidSignature, got %v", err)
	}
	if f.rides.Count() != 0 {
		t.Errorf("Expected no bookings, got %d", f.rides.Count())
	}
}

// TestBookingLifecycle walks a discounted booking end to end: quote, code,
// creation, assignment and completion with the driver credited the amount
// actually paid.
func TestBookingLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture()

	pricing := newPricing(nil)
	quote, err := pricing.Quote(ctx, service.QuoteRequest{DistanceKm: 10, At: tuesdayNoon})
	if err != nil {
		t.Fatalf("Quote failed: %v", err)
	}
	if quote.TotalPrice != 17.50 {
		t.Fatalf("Expected quote 17.50, got %v", quote.TotalPrice)
	}

	f.discounts.AddCode(activeCode(&domain.DiscountCode{
		Code:          "SUMMER10",
		DiscountType:  domain.DiscountTypePercent,
		DiscountValue: 10,
	}))
	app, err := service.NewDiscountService(f.discounts).Apply(ctx, "SUMMER10", quote.TotalPrice, tuesdayNoon)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if app.FinalPrice != 15.75 {
		t.Fatalf("Expected final price 15.75, got %v", app.FinalPrice)
	}

	created, err := f.svc.CreateBooking(ctx, service.CreateBookingRequest{
		PaymentIntentID:  "pi_123",
		PassengerName:    "Amina Hodžić",
		PassengerPhone:   "061 123 456",
		PushSubscriberID: "sub-1",
		AddressFrom:      "Baščaršija 1",
		AddressTo:        "Ilidža 5",
		DistanceKm:       10,
		TotalPrice:       app.FinalPrice,
		DiscountCode:     app.Code,
		DiscountAmount:   app.DiscountAmount,
		OriginalPrice:    app.OriginalPrice,
		FinalPrice:       app.FinalPrice,
	})
	if err != nil {
		t.Fatalf("CreateBooking failed: %v", err)
	}

	driver := f.drivers.AddDriver(&domain.Driver{
		Name:          "Emir Begić",
		VehicleNumber: "SA-123-AB",
		Status:        domain.DriverStatusActive,
	})
	if _, err := f.svc.AssignDriver(ctx, service.AssignDriverRequest{
		RideID:   created.Ride.ID,
		DriverID: driver.ID,
		ETA:      "5 minuta",
	}); err != nil {
		t.Fatalf("AssignDriver failed: %v", err)
	}

	if _, err := f.svc.CompleteRide(ctx, created.Ride.ID, "dispatcher"); err != nil {
		t.Fatalf("CompleteRide failed: %v", err)
	}

	if got := f.drivers.GetDriver(driver.ID).TotalEarnings; got != 15.75 {
		t.Errorf("Expected driver credited 15.75, got %v", got)
	}
}
