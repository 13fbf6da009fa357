package domain

import "time"

// WebhookDelivery is the outcome of the most recent plain booking
// notification, kept for operator display.
type WebhookDelivery struct {
	BookingID int64     `json:"booking_id"`
	Status    string    `json:"status"` // success or failed
	HTTPCode  int       `json:"http_code,omitempty"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// WebhookFailure records a delivery that exhausted all retry attempts. Recent
// failures are kept for operator inspection.
type WebhookFailure struct {
	RideID    int64     `json:"ride_id"`
	Event     EventType `json:"event"`
	URL       string    `json:"url"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error"`
	FailedAt  time.Time `json:"failed_at"`
}
