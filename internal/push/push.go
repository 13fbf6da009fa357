// Package push sends booking status notifications to the passenger's browser
// through the OneSignal REST API.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zologic/city-ride/internal/settings"
)

const (
	oneSignalURL = "https://onesignal.com/api/v1/notifications"
	sendTimeout  = 10 * time.Second
)

// Sender delivers a push notification to a single subscriber.
type Sender interface {
	Send(ctx context.Context, subscriberID, title, message string) error
}

// OneSignal implements Sender against the OneSignal REST API. Credentials
// come from operator settings; push is silently skipped when disabled or the
// ride has no subscriber.
type OneSignal struct {
	settings settings.Provider
	client   *http.Client
}

// NewOneSignal creates a OneSignal sender.
func NewOneSignal(provider settings.Provider) *OneSignal {
	return &OneSignal{
		settings: provider,
		client:   &http.Client{Timeout: sendTimeout},
	}
}

type notificationRequest struct {
	AppID           string            `json:"app_id"`
	SubscriptionIDs []string          `json:"include_subscription_ids"`
	Headings        map[string]string `json:"headings"`
	Contents        map[string]string `json:"contents"`
}

// Send implements Sender.
func (o *OneSignal) Send(ctx context.Context, subscriberID, title, message string) error {
	if subscriberID == "" {
		return nil
	}

	cfg := settings.LoadPush(ctx, o.settings)
	if !cfg.Enabled || cfg.AppID == "" || cfg.APIKey == "" {
		return nil
	}

	body, err := json.Marshal(notificationRequest{
		AppID:           cfg.AppID,
		SubscriptionIDs: []string{subscriberID},
		Headings:        map[string]string{"en": title},
		Contents:        map[string]string{"en": message},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, oneSignalURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+cfg.APIKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("push request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("push rejected with status %d: %s", resp.StatusCode, detail)
	}
	return nil
}

var _ Sender = (*OneSignal)(nil)
