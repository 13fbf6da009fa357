// Package payment wraps the Stripe API for prepaid bookings and refunds.
package payment

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/zologic/city-ride/internal/settings"
)

// Intent is the subset of a payment intent the booking flow needs.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       float64
	Currency     string
}

// Succeeded reports whether the intent has been captured.
func (i *Intent) Succeeded() bool {
	return i.Status == string(stripe.PaymentIntentStatusSucceeded)
}

// Provider is the payment gateway used by the booking flow.
type Provider interface {
	// CreateIntent opens a payment intent for the quoted amount.
	CreateIntent(ctx context.Context, amount float64, currency string, metadata map[string]string) (*Intent, error)
	// RetrieveIntent fetches the current state of an intent.
	RetrieveIntent(ctx context.Context, id string) (*Intent, error)
	// Refund refunds the full captured amount of an intent.
	Refund(ctx context.Context, paymentIntentID string) error
	// VerifyEvent validates a gateway webhook signature and returns the event.
	VerifyEvent(payload []byte, signature string) (*Event, error)
}

// Event is a verified gateway webhook event.
type Event struct {
	Type            string
	PaymentIntentID string
	Raw             []byte
}

// StripeProvider implements Provider on the Stripe API. The client is built
// lazily from the secret key in operator settings.
type StripeProvider struct {
	settings settings.Provider

	mu     sync.Mutex
	api    *client.API
	secret string
}

// NewStripeProvider creates a StripeProvider reading keys from settings.
func NewStripeProvider(provider settings.Provider) *StripeProvider {
	return &StripeProvider{settings: provider}
}

func (p *StripeProvider) getAPI(ctx context.Context) (*client.API, error) {
	key := settings.String(ctx, p.settings, settings.KeyStripeSecretKey, "")
	if key == "" {
		return nil, fmt.Errorf("stripe secret key is not configured")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.api != nil && p.secret == key {
		return p.api, nil
	}

	api := &client.API{}
	api.Init(key, nil)
	p.api = api
	p.secret = key
	return api, nil
}

// unitAmount converts a decimal amount to the gateway's minor units.
func unitAmount(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// CreateIntent implements Provider.
func (p *StripeProvider) CreateIntent(ctx context.Context, amount float64, currency string, metadata map[string]string) (*Intent, error) {
	api, err := p.getAPI(ctx)
	if err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(unitAmount(amount)),
		Currency: stripe.String(strings.ToLower(currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return fromStripeIntent(pi), nil
}

// RetrieveIntent implements Provider.
func (p *StripeProvider) RetrieveIntent(ctx context.Context, id string) (*Intent, error) {
	api, err := p.getAPI(ctx)
	if err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("retrieve payment intent: %w", err)
	}
	return fromStripeIntent(pi), nil
}

// Refund implements Provider.
func (p *StripeProvider) Refund(ctx context.Context, paymentIntentID string) error {
	api, err := p.getAPI(ctx)
	if err != nil {
		return err
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	params.Context = ctx
	if _, err := api.Refunds.New(params); err != nil {
		return fmt.Errorf("refund: %w", err)
	}
	return nil
}

// VerifyEvent implements Provider using the signing secret from settings.
func (p *StripeProvider) VerifyEvent(payload []byte, signature string) (*Event, error) {
	secret := settings.String(context.Background(), p.settings, settings.KeyStripeWebhookSecret, "")
	if secret == "" {
		return nil, fmt.Errorf("stripe webhook secret is not configured")
	}

	event, err := webhook.ConstructEvent(payload, signature, secret)
	if err != nil {
		return nil, fmt.Errorf("verify webhook signature: %w", err)
	}

	var intentID string
	if obj, ok := event.Data.Object["id"].(string); ok {
		intentID = obj
	}
	return &Event{
		Type:            string(event.Type),
		PaymentIntentID: intentID,
		Raw:             event.Data.Raw,
	}, nil
}

func fromStripeIntent(pi *stripe.PaymentIntent) *Intent {
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       float64(pi.Amount) / 100,
		Currency:     string(pi.Currency),
	}
}

var _ Provider = (*StripeProvider)(nil)
