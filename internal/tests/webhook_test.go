package tests

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zologic/city-ride/internal/domain"
	"github.com/zologic/city-ride/internal/settings"
	"github.com/zologic/city-ride/internal/webhook"
)

// webhookReceiver is a scripted endpoint that returns the configured status
// codes in order and records what it received.
type webhookReceiver struct {
	mu       sync.Mutex
	statuses []int
	attempts []string
	secrets  []string
	bodies   [][]byte
}

func (r *webhookReceiver) handler(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)

	r.mu.Lock()
	r.attempts = append(r.attempts, req.Header.Get("X-Webhook-Attempt"))
	r.secrets = append(r.secrets, req.Header.Get("X-Webhook-Secret"))
	r.bodies = append(r.bodies, body)
	status := http.StatusOK
	if len(r.statuses) > 0 {
		status = r.statuses[0]
		r.statuses = r.statuses[1:]
	}
	r.mu.Unlock()

	w.WriteHeader(status)
}

func (r *webhookReceiver) requestCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.attempts)
}

func webhookSettings(url string) settings.Provider {
	return settings.NewStatic(map[string]string{
		settings.KeyWebhookURL:     url,
		settings.KeyWebhookSecret:  "s3cret",
		settings.KeyWebhookEnabled: "1",
	})
}

func sampleRide() *domain.Ride {
	return &domain.Ride{
		ID:             42,
		PassengerName:  "Amina Hodžić",
		PassengerPhone: "061 123 456",
		AddressFrom:    "Baščaršija 1",
		AddressTo:      "Ilidža 5",
		DistanceKm:     10,
		TotalPrice:     15.75,
		Status:         domain.RideStatusUnassigned,
	}
}

func TestWebhookRetrySchedule(t *testing.T) {
	receiver := &webhookReceiver{statuses: []int{500, 500, 200}}
	server := httptest.NewServer(http.HandlerFunc(receiver.handler))
	defer server.Close()

	scheduler := &MockScheduler{}
	journal := &MockJournal{}
	dispatcher := webhook.NewDispatcher(webhookSettings(server.URL), scheduler, journal)

	ctx := context.Background()
	before := time.Now()
	if err := dispatcher.SendEvent(ctx, sampleRide(), nil, domain.EventBookingConfirmed); err != nil {
		t.Fatalf("SendEvent failed: %v", err)
	}

	// First attempt failed with 500 and scheduled a retry 60s out.
	task := scheduler.Take()
	if task == nil {
		t.Fatal("Expected a scheduled retry after the first 500")
	}
	if delay := task.Due.Sub(before); delay < 60*time.Second || delay > 61*time.Second {
		t.Errorf("Expected first retry about 60s out, got %v", delay)
	}

	before = time.Now()
	dispatcher.HandleRetry(ctx, task.Payload)

	// Second attempt failed too; the delay doubles.
	task = scheduler.Take()
	if task == nil {
		t.Fatal("Expected a scheduled retry after the second 500")
	}
	if delay := task.Due.Sub(before); delay < 120*time.Second || delay > 121*time.Second {
		t.Errorf("Expected second retry about 120s out, got %v", delay)
	}

	dispatcher.HandleRetry(ctx, task.Payload)

	if receiver.requestCount() != 3 {
		t.Fatalf("Expected 3 delivery attempts, got %d", receiver.requestCount())
	}
	for i, want := range []string{"1", "2", "3"} {
		if receiver.attempts[i] != want {
			t.Errorf("Expected attempt header %s on request %d, got %s", want, i+1, receiver.attempts[i])
		}
		if receiver.secrets[i] != "s3cret" {
			t.Errorf("Expected secret header on request %d, got %q", i+1, receiver.secrets[i])
		}
	}
	if journal.FailureCount() != 2 {
		t.Errorf("Expected one journal entry per failed attempt, got %d", journal.FailureCount())
	}
	if scheduler.Take() != nil {
		t.Error("Expected no further retries after the successful attempt")
	}
}

func TestWebhookRetriesExhausted(t *testing.T) {
	receiver := &webhookReceiver{statuses: []int{500, 500, 500}}
	server := httptest.NewServer(http.HandlerFunc(receiver.handler))
	defer server.Close()

	scheduler := &MockScheduler{}
	journal := &MockJournal{}
	dispatcher := webhook.NewDispatcher(webhookSettings(server.URL), scheduler, journal)

	ctx := context.Background()
	if err := dispatcher.SendEvent(ctx, sampleRide(), nil, domain.EventBookingConfirmed); err != nil {
		t.Fatalf("SendEvent failed: %v", err)
	}
	dispatcher.HandleRetry(ctx, scheduler.Take().Payload)
	dispatcher.HandleRetry(ctx, scheduler.Take().Payload)

	if receiver.requestCount() != 3 {
		t.Errorf("Expected exactly 3 attempts, got %d", receiver.requestCount())
	}
	if scheduler.Take() != nil {
		t.Error("Expected no fourth attempt to be scheduled")
	}
	if journal.FailureCount() != 3 {
		t.Errorf("Expected 3 journal entries, got %d", journal.FailureCount())
	}

	failures, err := journal.Recent(ctx)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if failures[2].Attempts != 3 {
		t.Errorf("Expected final entry to record attempt 3, got %d", failures[2].Attempts)
	}
	if failures[0].RideID != 42 {
		t.Errorf("Expected ride id 42 in journal, got %d", failures[0].RideID)
	}
}

func TestWebhookPermanentFailureNoRetry(t *testing.T) {
	receiver := &webhookReceiver{statuses: []int{404}}
	server := httptest.NewServer(http.HandlerFunc(receiver.handler))
	defer server.Close()

	scheduler := &MockScheduler{}
	journal := &MockJournal{}
	dispatcher := webhook.NewDispatcher(webhookSettings(server.URL), scheduler, journal)

	err := dispatcher.SendEvent(context.Background(), sampleRide(), nil, domain.EventBookingConfirmed)
	if err == nil {
		t.Error("Expected an error for a permanent delivery failure")
	}
	if receiver.requestCount() != 1 {
		t.Errorf("Expected a single attempt on 404, got %d", receiver.requestCount())
	}
	if scheduler.Take() != nil {
		t.Error("Expected no retry scheduled for a 404")
	}
	if journal.FailureCount() != 1 {
		t.Errorf("Expected one journal entry, got %d", journal.FailureCount())
	}
}

func TestWebhookDisabledIsNoOp(t *testing.T) {
	receiver := &webhookReceiver{}
	server := httptest.NewServer(http.HandlerFunc(receiver.handler))
	defer server.Close()

	provider := settings.NewStatic(map[string]string{
		settings.KeyWebhookURL:     server.URL,
		settings.KeyWebhookEnabled: "0",
	})
	dispatcher := webhook.NewDispatcher(provider, &MockScheduler{}, &MockJournal{})

	if err := dispatcher.SendEvent(context.Background(), sampleRide(), nil, domain.EventBookingConfirmed); err != nil {
		t.Fatalf("Expected disabled webhook to be a no-op, got %v", err)
	}
	if receiver.requestCount() != 0 {
		t.Errorf("Expected no requests, got %d", receiver.requestCount())
	}
}

func TestWebhookPayloadContents(t *testing.T) {
	receiver := &webhookReceiver{}
	server := httptest.NewServer(http.HandlerFunc(receiver.handler))
	defer server.Close()

	dispatcher := webhook.NewDispatcher(webhookSettings(server.URL), nil, nil)

	ride := sampleRide()
	ride.CabDriverID = "SA-123-AB"
	ride.ETA = "5 minuta"
	ride.Status = domain.RideStatusAssigned
	driver := &domain.Driver{Name: "Emir Begić", VehicleNumber: "SA-123-AB"}

	if err := dispatcher.SendEvent(context.Background(), ride, driver, domain.EventDriverAssigned); err != nil {
		t.Fatalf("SendEvent failed: %v", err)
	}
	if receiver.requestCount() != 1 {
		t.Fatalf("Expected one request, got %d", receiver.requestCount())
	}

	var payload webhook.Payload
	if err := json.Unmarshal(receiver.bodies[0], &payload); err != nil {
		t.Fatalf("Payload did not parse: %v", err)
	}
	if payload.Event != domain.EventDriverAssigned {
		t.Errorf("Expected event driver_assigned, got %s", payload.Event)
	}
	if payload.BookingID != 42 {
		t.Errorf("Expected booking id 42, got %d", payload.BookingID)
	}
	if payload.Passenger.Phone != "+38761123456" {
		t.Errorf("Expected normalized phone, got %s", payload.Passenger.Phone)
	}
	if payload.Driver == nil || payload.Driver.VehicleNumber != "SA-123-AB" {
		t.Errorf("Expected driver block with vehicle, got %+v", payload.Driver)
	}
	if payload.SMS == nil {
		t.Fatal("Expected an SMS block")
	}
	if payload.SMS.To != "+38761123456" {
		t.Errorf("Expected SMS addressed to the normalized phone, got %s", payload.SMS.To)
	}
	// Default assignment template carries vehicle, driver name and ETA.
	for _, want := range []string{"SA-123-AB", "Emir Begić", "5 minuta"} {
		if !strings.Contains(payload.SMS.Message, want) {
			t.Errorf("Expected SMS message to contain %q, got %q", want, payload.SMS.Message)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{"local with spaces", "061 123 456", "+38761123456"},
		{"local with punctuation", "061/123-456", "+38761123456"},
		{"already international", "+38761123456", "+38761123456"},
		{"bare country code", "38761123456", "+38761123456"},
		{"no leading zero", "61123456", "+38761123456"},
		{"empty", "", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := webhook.NormalizePhone(tc.input, "+387"); got != tc.want {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestRenderTemplate(t *testing.T) {
	vars := map[string]string{
		"passenger_name": "Amina",
		"total_price":    "15.75",
	}

	got := webhook.RenderTemplate("Pozdrav {passenger_name}, cijena je {total_price}.", vars)
	if got != "Pozdrav Amina, cijena je 15.75." {
		t.Errorf("Unexpected rendering: %q", got)
	}

	// Unknown markers stay literal.
	got = webhook.RenderTemplate("Vozilo {vehicle_number} stiže.", vars)
	if got != "Vozilo {vehicle_number} stiže." {
		t.Errorf("Expected unknown marker left untouched, got %q", got)
	}
}

func legacySettings(url string, debug bool) settings.Provider {
	values := map[string]string{
		settings.KeyWebhookURL:     url,
		settings.KeyWebhookSecret:  "s3cret",
		settings.KeyWebhookEnabled: "1",
	}
	if debug {
		values[settings.KeyDebugMode] = "1"
	}
	return settings.NewStatic(values)
}

func TestLegacyWebhookPostsRideRow(t *testing.T) {
	receiver := &webhookReceiver{}
	server := httptest.NewServer(http.HandlerFunc(receiver.handler))
	defer server.Close()

	store := &MockStatusStore{}
	notifier := webhook.NewLegacyNotifier(legacySettings(server.URL, true), store)

	ride := sampleRide()
	ride.PaymentIntentID = "pi_123"
	if err := notifier.Notify(context.Background(), ride); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	if receiver.requestCount() != 1 {
		t.Fatalf("Expected a single delivery, got %d", receiver.requestCount())
	}
	if receiver.secrets[0] != "s3cret" {
		t.Errorf("Expected the secret header, got %q", receiver.secrets[0])
	}

	var body map[string]any
	if err := json.Unmarshal(receiver.bodies[0], &body); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	if body["booking_id"].(float64) != 42 {
		t.Errorf("Expected booking_id 42, got %v", body["booking_id"])
	}
	if body["passenger_name"] != "Amina Hodžić" {
		t.Errorf("Expected the passenger name in the row, got %v", body["passenger_name"])
	}
	if body["stripe_payment_id"] != "pi_123" {
		t.Errorf("Expected the payment reference in the row, got %v", body["stripe_payment_id"])
	}
	if body["status"] != "unassigned" {
		t.Errorf("Expected the raw status in the row, got %v", body["status"])
	}

	last, err := store.LastDelivery(context.Background())
	if err != nil || last == nil {
		t.Fatalf("Expected a recorded delivery, got %v err=%v", last, err)
	}
	if last.Status != "success" || last.HTTPCode != 200 || last.BookingID != 42 {
		t.Errorf("Unexpected delivery record: %+v", last)
	}
}

func TestLegacyWebhookSingleAttemptOnFailure(t *testing.T) {
	receiver := &webhookReceiver{statuses: []int{500}}
	server := httptest.NewServer(http.HandlerFunc(receiver.handler))
	defer server.Close()

	store := &MockStatusStore{}
	notifier := webhook.NewLegacyNotifier(legacySettings(server.URL, true), store)

	if err := notifier.Notify(context.Background(), sampleRide()); err == nil {
		t.Fatal("Expected a delivery error in debug mode")
	}

	if receiver.requestCount() != 1 {
		t.Errorf("Expected exactly one attempt, got %d", receiver.requestCount())
	}

	last, err := store.LastDelivery(context.Background())
	if err != nil || last == nil {
		t.Fatalf("Expected a recorded delivery, got %v err=%v", last, err)
	}
	if last.Status != "failed" || last.HTTPCode != 500 {
		t.Errorf("Unexpected delivery record: %+v", last)
	}
}

func TestLegacyWebhookNonBlocking(t *testing.T) {
	received := make(chan struct{}, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- struct{}{}
	}))
	defer server.Close()

	notifier := webhook.NewLegacyNotifier(legacySettings(server.URL, false), &MockStatusStore{})

	// Without debug mode the call returns before the delivery completes.
	if err := notifier.Notify(context.Background(), sampleRide()); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected the background delivery to reach the endpoint")
	}
}

func TestLegacyWebhookDisabledIsNoOp(t *testing.T) {
	receiver := &webhookReceiver{}
	server := httptest.NewServer(http.HandlerFunc(receiver.handler))
	defer server.Close()

	notifier := webhook.NewLegacyNotifier(settings.NewStatic(map[string]string{
		settings.KeyWebhookURL:     server.URL,
		settings.KeyWebhookEnabled: "0",
		settings.KeyDebugMode:      "1",
	}), &MockStatusStore{})

	if err := notifier.Notify(context.Background(), sampleRide()); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if receiver.requestCount() != 0 {
		t.Errorf("Expected no delivery when disabled, got %d", receiver.requestCount())
	}
}
