// Package webhook delivers ride lifecycle events to an external dispatch
// system over HTTP, with delayed retries and a journal of exhausted
// deliveries.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/zologic/city-ride/internal/domain"
	"github.com/zologic/city-ride/internal/settings"
)

const (
	deliverTimeout = 10 * time.Second
	maxAttempts    = 3
	baseRetryDelay = 60 * time.Second
)

// Scheduler enqueues a retry payload to be replayed at a later time.
type Scheduler interface {
	Schedule(ctx context.Context, payload []byte, due time.Time) error
}

// Journal records deliveries that failed permanently.
type Journal interface {
	Record(ctx context.Context, failure domain.WebhookFailure) error
	Recent(ctx context.Context) ([]domain.WebhookFailure, error)
}

// Dispatcher builds event payloads and delivers them with retry.
type Dispatcher struct {
	settings  settings.Provider
	scheduler Scheduler
	journal   Journal
	client    *http.Client
}

// NewDispatcher creates a Dispatcher. scheduler and journal may be nil, in
// which case failed deliveries are not retried or recorded.
func NewDispatcher(provider settings.Provider, scheduler Scheduler, journal Journal) *Dispatcher {
	return &Dispatcher{
		settings:  provider,
		scheduler: scheduler,
		journal:   journal,
		client:    &http.Client{Timeout: deliverTimeout},
	}
}

// retryTask is the serialized form of a pending delivery attempt.
type retryTask struct {
	ID      string           `json:"id"`
	RideID  int64            `json:"ride_id"`
	Event   domain.EventType `json:"event"`
	URL     string           `json:"url"`
	Secret  string           `json:"secret"`
	Body    json.RawMessage  `json:"body"`
	Attempt int              `json:"attempt"`
}

// SendEvent delivers a lifecycle event for the ride. driver may be nil for
// events without an assignment. Delivery failures that are worth retrying are
// scheduled; exhausted and permanent failures land in the journal. A disabled
// or unconfigured webhook is a no-op.
func (d *Dispatcher) SendEvent(ctx context.Context, ride *domain.Ride, driver *domain.Driver, event domain.EventType) error {
	cfg := settings.LoadWebhook(ctx, d.settings)
	if !cfg.Enabled || cfg.URL == "" {
		return nil
	}

	prefix := settings.String(ctx, d.settings, settings.KeyCountryDialPrefix, settings.DefaultCountryDialPrefix)
	phone := NormalizePhone(ride.PassengerPhone, prefix)

	smsMessage := d.renderSMS(ctx, ride, driver, event)

	body, err := json.Marshal(buildPayload(ride, event, phone, smsMessage, time.Now()))
	if err != nil {
		return err
	}

	return d.dispatch(ctx, retryTask{
		ID:      uuid.NewString(),
		RideID:  ride.ID,
		Event:   event,
		URL:     cfg.URL,
		Secret:  cfg.Secret,
		Body:    body,
		Attempt: 1,
	})
}

func (d *Dispatcher) renderSMS(ctx context.Context, ride *domain.Ride, driver *domain.Driver, event domain.EventType) string {
	template, enabled := settings.SMSTemplate(ctx, d.settings, event)
	if !enabled || template == "" {
		return ""
	}

	vars := map[string]string{
		"passenger_name":      ride.PassengerName,
		"vehicle_number":      ride.CabDriverID,
		"eta":                 ride.ETA,
		"total_price":         fmt.Sprintf("%.2f", ride.TotalPrice),
		"address_from":        ride.AddressFrom,
		"address_to":          ride.AddressTo,
		"booking_id":          strconv.FormatInt(ride.ID, 10),
		"cancellation_reason": ride.CancellationReason,
	}
	if driver != nil {
		vars["driver_name"] = driver.Name
	} else {
		vars["driver_name"] = ""
	}
	return RenderTemplate(template, vars)
}

// HandleRetry replays a scheduled delivery attempt. It is the handler wired
// into the scheduler worker.
func (d *Dispatcher) HandleRetry(ctx context.Context, payload []byte) {
	var task retryTask
	if err := json.Unmarshal(payload, &task); err != nil {
		log.Printf("webhook: corrupt retry task dropped: %v", err)
		return
	}
	if err := d.dispatch(ctx, task); err != nil {
		log.Printf("webhook: retry %s: %v", task.ID, err)
	}
}

// dispatch performs one delivery attempt and decides what happens next.
// Network errors and 5xx responses are retried with doubling delay; other
// failures are permanent.
func (d *Dispatcher) dispatch(ctx context.Context, task retryTask) error {
	status, err := d.deliver(ctx, task)
	if err == nil && status >= 200 && status < 300 {
		return nil
	}

	lastError := fmt.Sprintf("status %d", status)
	if err != nil {
		lastError = err.Error()
	}

	// Every failed attempt lands in the journal, including ones that will
	// be retried.
	d.recordFailure(ctx, task, lastError)

	retryable := err != nil || status >= 500
	if retryable && task.Attempt < maxAttempts && d.scheduler != nil {
		next := task
		next.Attempt++
		delay := baseRetryDelay << (task.Attempt - 1)
		payload, merr := json.Marshal(next)
		if merr != nil {
			return merr
		}
		serr := d.scheduler.Schedule(ctx, payload, time.Now().Add(delay))
		if serr == nil {
			return nil
		}
		log.Printf("webhook: schedule retry %s: %v", task.ID, serr)
	}

	return fmt.Errorf("webhook delivery failed after %d attempt(s): %s", task.Attempt, lastError)
}

func (d *Dispatcher) recordFailure(ctx context.Context, task retryTask, lastError string) {
	if d.journal == nil {
		return
	}
	err := d.journal.Record(ctx, domain.WebhookFailure{
		RideID:    task.RideID,
		Event:     task.Event,
		URL:       task.URL,
		Attempts:  task.Attempt,
		LastError: lastError,
		FailedAt:  time.Now().UTC(),
	})
	if err != nil {
		log.Printf("webhook: journal: %v", err)
	}
}

// deliver posts the payload once. It returns the response status, or an error
// when no response was received.
func (d *Dispatcher) deliver(ctx context.Context, task retryTask) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, task.URL, bytes.NewReader(task.Body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Secret", task.Secret)
	req.Header.Set("X-Webhook-Attempt", strconv.Itoa(task.Attempt))

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

// RecentFailures exposes the journal for the operator endpoint.
func (d *Dispatcher) RecentFailures(ctx context.Context) ([]domain.WebhookFailure, error) {
	if d.journal == nil {
		return nil, nil
	}
	return d.journal.Recent(ctx)
}

// SendTest posts a sample payload to the configured endpoint without retry.
// It returns the response status so operators can see what the endpoint said.
func (d *Dispatcher) SendTest(ctx context.Context) (int, error) {
	cfg := settings.LoadWebhook(ctx, d.settings)
	if cfg.URL == "" {
		return 0, fmt.Errorf("webhook URL is not configured")
	}

	ride := &domain.Ride{
		ID:             0,
		PassengerName:  "Test Passenger",
		PassengerPhone: "+38761000000",
		AddressFrom:    "Test pickup",
		AddressTo:      "Test destination",
		DistanceKm:     1,
		TotalPrice:     5,
		Status:         domain.RideStatusUnassigned,
	}
	body, err := json.Marshal(buildPayload(ride, domain.EventBookingConfirmed, ride.PassengerPhone, "", time.Now()))
	if err != nil {
		return 0, err
	}

	return d.deliver(ctx, retryTask{
		ID:      uuid.NewString(),
		URL:     cfg.URL,
		Secret:  cfg.Secret,
		Body:    body,
		Attempt: 1,
	})
}
