package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/zologic/city-ride/internal/domain"
	"github.com/zologic/city-ride/internal/settings"
)

const legacyDeliverTimeout = 30 * time.Second

// StatusStore persists the outcome of the most recent legacy delivery.
type StatusStore interface {
	SaveDelivery(ctx context.Context, delivery domain.WebhookDelivery) error
	LastDelivery(ctx context.Context) (*domain.WebhookDelivery, error)
}

// LegacyNotifier posts the raw ride row to the dispatch endpoint when a
// booking is created. Unlike the event dispatcher it makes a single attempt
// and never retries; the outcome of the newest delivery is kept for operator
// display. Delivery runs in the background unless debug mode is on, in which
// case the call blocks and surfaces the delivery error.
type LegacyNotifier struct {
	settings settings.Provider
	status   StatusStore
	client   *http.Client
}

// NewLegacyNotifier creates a LegacyNotifier. status may be nil, in which
// case delivery outcomes are not recorded.
func NewLegacyNotifier(provider settings.Provider, status StatusStore) *LegacyNotifier {
	return &LegacyNotifier{
		settings: provider,
		status:   status,
		client:   &http.Client{Timeout: legacyDeliverTimeout},
	}
}

// legacyPayload is the flat ride row the legacy endpoint expects. The field
// names are the wire contract of the original integration and must not
// change.
type legacyPayload struct {
	BookingID        int64     `json:"booking_id"`
	AddressFrom      string    `json:"address_from"`
	AddressTo        string    `json:"address_to"`
	DistanceKm       float64   `json:"distance_km"`
	TotalPrice       float64   `json:"total_price"`
	Status           string    `json:"status"`
	PassengerName    string    `json:"passenger_name"`
	PassengerPhone   string    `json:"passenger_phone"`
	PassengerEmail   string    `json:"passenger_email"`
	PushSubscriberID string    `json:"passenger_onesignal_id"`
	CabDriverID      string    `json:"cab_driver_id"`
	ETA              string    `json:"eta"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	PaymentIntentID  string    `json:"stripe_payment_id"`
}

// Notify posts the ride row once. A disabled or unconfigured webhook is a
// no-op.
func (n *LegacyNotifier) Notify(ctx context.Context, ride *domain.Ride) error {
	cfg := settings.LoadWebhook(ctx, n.settings)
	if !cfg.Enabled || cfg.URL == "" {
		return nil
	}

	body, err := json.Marshal(legacyPayload{
		BookingID:        ride.ID,
		AddressFrom:      ride.AddressFrom,
		AddressTo:        ride.AddressTo,
		DistanceKm:       ride.DistanceKm,
		TotalPrice:       ride.TotalPrice,
		Status:           string(ride.Status),
		PassengerName:    ride.PassengerName,
		PassengerPhone:   ride.PassengerPhone,
		PassengerEmail:   ride.PassengerEmail,
		PushSubscriberID: ride.PushSubscriberID,
		CabDriverID:      ride.CabDriverID,
		ETA:              ride.ETA,
		CreatedAt:        ride.CreatedAt,
		UpdatedAt:        ride.UpdatedAt,
		PaymentIntentID:  ride.PaymentIntentID,
	})
	if err != nil {
		return err
	}

	if settings.Bool(ctx, n.settings, settings.KeyDebugMode, false) {
		return n.deliver(ctx, cfg, ride.ID, body)
	}

	go func() {
		if err := n.deliver(context.WithoutCancel(ctx), cfg, ride.ID, body); err != nil {
			log.Printf("webhook: legacy notification for ride %d: %v", ride.ID, err)
		}
	}()
	return nil
}

func (n *LegacyNotifier) deliver(ctx context.Context, cfg settings.Webhook, rideID int64, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.Secret != "" {
		req.Header.Set("X-Webhook-Secret", cfg.Secret)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		n.record(ctx, domain.WebhookDelivery{
			BookingID: rideID,
			Status:    "failed",
			Error:     err.Error(),
			At:        time.Now().UTC(),
		})
		return err
	}
	defer resp.Body.Close()

	delivery := domain.WebhookDelivery{
		BookingID: rideID,
		HTTPCode:  resp.StatusCode,
		At:        time.Now().UTC(),
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		delivery.Status = "success"
		n.record(ctx, delivery)
		return nil
	}

	delivery.Status = "failed"
	delivery.Error = fmt.Sprintf("HTTP %d response", resp.StatusCode)
	n.record(ctx, delivery)
	return fmt.Errorf("legacy webhook returned HTTP %d", resp.StatusCode)
}

func (n *LegacyNotifier) record(ctx context.Context, delivery domain.WebhookDelivery) {
	if n.status == nil {
		return
	}
	if err := n.status.SaveDelivery(ctx, delivery); err != nil {
		log.Printf("webhook: legacy delivery status: %v", err)
	}
}

// LastDelivery exposes the stored delivery outcome for the operator endpoint.
func (n *LegacyNotifier) LastDelivery(ctx context.Context) (*domain.WebhookDelivery, error) {
	if n.status == nil {
		return nil, nil
	}
	return n.status.LastDelivery(ctx)
}
