package settings

import (
	"context"
	"strconv"
	"strings"

	"github.com/zologic/city-ride/internal/domain"
)

// Provider is the typed key→value store for operator configuration. Every
// operation reads the settings it needs at its start through this interface.
type Provider interface {
	// Get returns the raw value for key and whether it was explicitly set.
	Get(ctx context.Context, key string) (string, bool)
}

// Setting keys. Values are stored as strings; typed accessors below apply
// the documented defaults when a key is unset.
const (
	KeyStartTariff             = "start_tariff"
	KeyPricePerKm              = "price_per_km"
	KeyMinimumFare             = "minimum_fare"
	KeyCurrency                = "currency"
	KeyTimezone                = "timezone"
	KeyNightSurchargeEnabled   = "night_surcharge_enabled"
	KeyNightSurchargePercent   = "night_surcharge_percent"
	KeyNightStartTime          = "night_start_time"
	KeyNightEndTime            = "night_end_time"
	KeyWeekendSurchargeEnabled = "weekend_surcharge_enabled"
	KeyWeekendSurchargePercent = "weekend_surcharge_percent"
	KeyHolidaySurchargeEnabled = "holiday_surcharge_enabled"
	KeyHolidaySurchargePercent = "holiday_surcharge_percent"
	KeyHolidayDates            = "holiday_dates" // comma-separated YYYY-MM-DD

	KeyWebhookURL          = "webhook_url"
	KeyWebhookSecret       = "webhook_secret"
	KeyWebhookEnabled      = "enable_webhook_notifications"
	KeyPushEnabled         = "enable_push_notifications"
	KeyPushAppID           = "push_app_id"
	KeyPushAPIKey          = "push_api_key"
	KeyMapsAPIKey          = "maps_api_key"
	KeyCountryDialPrefix   = "country_dial_prefix"
	KeyStripeSecretKey     = "stripe_secret_key"
	KeyStripeWebhookSecret = "stripe_webhook_secret"
	KeyDebugMode           = "debug_mode"
)

// Defaults applied when a key is unset.
const (
	DefaultStartTariff             = 2.50
	DefaultPricePerKm              = 1.50
	DefaultMinimumFare             = 5.00
	DefaultCurrency                = "BAM"
	DefaultTimezone                = "Europe/Sarajevo"
	DefaultNightSurchargePercent   = 20.0
	DefaultNightStartTime          = "22:00"
	DefaultNightEndTime            = "06:00"
	DefaultWeekendSurchargePercent = 15.0
	DefaultHolidaySurchargePercent = 25.0
	DefaultCountryDialPrefix       = "+387"
)

// String returns the value for key, or def when unset.
func String(ctx context.Context, p Provider, key, def string) string {
	if v, ok := p.Get(ctx, key); ok && v != "" {
		return v
	}
	return def
}

// Float returns the value for key parsed as float64, or def when unset or
// unparseable.
func Float(ctx context.Context, p Provider, key string, def float64) float64 {
	if v, ok := p.Get(ctx, key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// Bool returns the value for key as a feature flag. "1", "true" and "yes"
// are truthy, matching the stored representations.
func Bool(ctx context.Context, p Provider, key string, def bool) bool {
	v, ok := p.Get(ctx, key)
	if !ok || v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// SurchargeRule is one independently toggleable percentage uplift.
type SurchargeRule struct {
	Enabled bool
	Percent float64
}

// Tariff is the full pricing configuration read at the start of a quote.
type Tariff struct {
	StartTariff float64
	PricePerKm  float64
	MinimumFare float64
	Currency    string
	Timezone    string

	Night        SurchargeRule
	NightStart   string // HH:MM
	NightEnd     string // HH:MM
	Weekend      SurchargeRule
	Holiday      SurchargeRule
	HolidayDates []string // YYYY-MM-DD
}

// LoadTariff reads the tariff configuration, applying defaults for unset keys.
func LoadTariff(ctx context.Context, p Provider) Tariff {
	t := Tariff{
		StartTariff: Float(ctx, p, KeyStartTariff, DefaultStartTariff),
		PricePerKm:  Float(ctx, p, KeyPricePerKm, DefaultPricePerKm),
		MinimumFare: Float(ctx, p, KeyMinimumFare, DefaultMinimumFare),
		Currency:    String(ctx, p, KeyCurrency, DefaultCurrency),
		Timezone:    String(ctx, p, KeyTimezone, DefaultTimezone),
		Night: SurchargeRule{
			Enabled: Bool(ctx, p, KeyNightSurchargeEnabled, true),
			Percent: Float(ctx, p, KeyNightSurchargePercent, DefaultNightSurchargePercent),
		},
		NightStart: String(ctx, p, KeyNightStartTime, DefaultNightStartTime),
		NightEnd:   String(ctx, p, KeyNightEndTime, DefaultNightEndTime),
		Weekend: SurchargeRule{
			Enabled: Bool(ctx, p, KeyWeekendSurchargeEnabled, true),
			Percent: Float(ctx, p, KeyWeekendSurchargePercent, DefaultWeekendSurchargePercent),
		},
		Holiday: SurchargeRule{
			Enabled: Bool(ctx, p, KeyHolidaySurchargeEnabled, true),
			Percent: Float(ctx, p, KeyHolidaySurchargePercent, DefaultHolidaySurchargePercent),
		},
	}

	if raw := String(ctx, p, KeyHolidayDates, ""); raw != "" {
		for _, d := range strings.Split(raw, ",") {
			if d = strings.TrimSpace(d); d != "" {
				t.HolidayDates = append(t.HolidayDates, d)
			}
		}
	}
	return t
}

// Webhook is the outbound-webhook configuration.
type Webhook struct {
	URL     string
	Secret  string
	Enabled bool
}

// LoadWebhook reads the outbound-webhook configuration.
func LoadWebhook(ctx context.Context, p Provider) Webhook {
	return Webhook{
		URL:     String(ctx, p, KeyWebhookURL, ""),
		Secret:  String(ctx, p, KeyWebhookSecret, ""),
		Enabled: Bool(ctx, p, KeyWebhookEnabled, true),
	}
}

// Push is the push-notification provider configuration.
type Push struct {
	AppID   string
	APIKey  string
	Enabled bool
}

// LoadPush reads the push-notification configuration.
func LoadPush(ctx context.Context, p Provider) Push {
	return Push{
		AppID:   String(ctx, p, KeyPushAppID, ""),
		APIKey:  String(ctx, p, KeyPushAPIKey, ""),
		Enabled: Bool(ctx, p, KeyPushEnabled, true),
	}
}

// SMSTemplate returns the SMS template and enable flag for an event type.
// Every event stores its template under "sms_template_<event>" and its flag
// under "enable_sms_<event>" (enabled by default).
func SMSTemplate(ctx context.Context, p Provider, event domain.EventType) (template string, enabled bool) {
	template = String(ctx, p, "sms_template_"+string(event), defaultSMSTemplates[event])
	enabled = Bool(ctx, p, "enable_sms_"+string(event), true)
	return template, enabled
}

var defaultSMSTemplates = map[domain.EventType]string{
	domain.EventBookingConfirmed: "Vaša rezervacija je potvrđena! Od: {address_from} Do: {address_to}. Cijena: {total_price}. Taksi će uskoro biti dodijeljen.",
	domain.EventDriverAssigned:   "Taksi {vehicle_number} ({driver_name}) je na putu! Procijenjeno vrijeme dolaska: {eta}.",
	domain.EventRideCompleted:    "Hvala što ste se vozili s nama! Ukupna cijena: {total_price}. Vidimo se ponovo!",
	domain.EventRideCancelled:    "Vaša rezervacija #{booking_id} je otkazana. Razlog: {cancellation_reason}. Za dodatna pitanja kontaktirajte nas.",
}
