package webhook

import (
	"strings"
	"time"

	"github.com/zologic/city-ride/internal/domain"
)

// Payload is the JSON body posted to the dispatch webhook endpoint.
type Payload struct {
	Event     domain.EventType `json:"event"`
	BookingID int64            `json:"booking_id"`
	Timestamp time.Time        `json:"timestamp"`
	Passenger PassengerInfo    `json:"passenger"`
	Ride      RideInfo         `json:"ride"`
	Driver    *DriverInfo      `json:"driver,omitempty"`
	SMS       *SMSInfo         `json:"sms,omitempty"`
}

// PassengerInfo identifies the passenger. Phone is in international format.
type PassengerInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// RideInfo carries route and pricing details.
type RideInfo struct {
	AddressFrom        string  `json:"address_from"`
	AddressTo          string  `json:"address_to"`
	DistanceKm         float64 `json:"distance_km"`
	TotalPrice         float64 `json:"total_price"`
	DiscountCode       string  `json:"discount_code,omitempty"`
	DiscountAmount     float64 `json:"discount_amount,omitempty"`
	Status             string  `json:"status"`
	CancellationReason string  `json:"cancellation_reason,omitempty"`
}

// DriverInfo identifies the assigned driver.
type DriverInfo struct {
	VehicleNumber string `json:"vehicle_number"`
	ETA           string `json:"eta,omitempty"`
}

// SMSInfo is the text message the receiving system should send out.
type SMSInfo struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// buildPayload assembles the webhook body for a ride event. smsMessage may be
// empty when SMS is disabled for the event.
func buildPayload(ride *domain.Ride, event domain.EventType, phone, smsMessage string, now time.Time) Payload {
	p := Payload{
		Event:     event,
		BookingID: ride.ID,
		Timestamp: now.UTC(),
		Passenger: PassengerInfo{
			Name:  ride.PassengerName,
			Phone: phone,
			Email: ride.PassengerEmail,
		},
		Ride: RideInfo{
			AddressFrom:        ride.AddressFrom,
			AddressTo:          ride.AddressTo,
			DistanceKm:         ride.DistanceKm,
			TotalPrice:         ride.TotalPrice,
			DiscountCode:       ride.DiscountCode,
			DiscountAmount:     ride.DiscountAmount,
			Status:             string(ride.Status),
			CancellationReason: ride.CancellationReason,
		},
	}

	if ride.CabDriverID != "" {
		p.Driver = &DriverInfo{
			VehicleNumber: ride.CabDriverID,
			ETA:           ride.ETA,
		}
	}
	if smsMessage != "" {
		p.SMS = &SMSInfo{To: phone, Message: smsMessage}
	}
	return p
}

// NormalizePhone converts a locally formatted phone number to international
// form using the given dial prefix. Spacing and punctuation are stripped; a
// leading zero is replaced by the prefix. Numbers already carrying a plus or
// the bare country code pass through.
func NormalizePhone(phone, dialPrefix string) string {
	var b strings.Builder
	for _, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	cleaned := b.String()

	switch {
	case cleaned == "":
		return cleaned
	case strings.HasPrefix(cleaned, "+"):
		return cleaned
	case strings.HasPrefix(cleaned, strings.TrimPrefix(dialPrefix, "+")):
		return "+" + cleaned
	case strings.HasPrefix(cleaned, "0"):
		return dialPrefix + cleaned[1:]
	default:
		return dialPrefix + cleaned
	}
}

// RenderTemplate substitutes {placeholder} markers in an SMS template.
// Markers without a value in vars are left untouched.
func RenderTemplate(template string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for key, value := range vars {
		pairs = append(pairs, "{"+key+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
