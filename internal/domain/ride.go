package domain

import "time"

// RideStatus represents the current status of a ride.
type RideStatus string

const (
	RideStatusUnassigned RideStatus = "unassigned"
	RideStatusAssigned   RideStatus = "assigned"
	RideStatusCompleted  RideStatus = "completed"
	RideStatusCancelled  RideStatus = "cancelled"
	RideStatusNoShow     RideStatus = "no_show"
)

// SMSDeliveryStatus represents the delivery state of the passenger SMS.
type SMSDeliveryStatus string

const (
	SMSStatusNotSent   SMSDeliveryStatus = "not_sent"
	SMSStatusPending   SMSDeliveryStatus = "pending"
	SMSStatusDelivered SMSDeliveryStatus = "delivered"
	SMSStatusFailed    SMSDeliveryStatus = "failed"
	SMSStatusRejected  SMSDeliveryStatus = "rejected"
	SMSStatusUnknown   SMSDeliveryStatus = "unknown"
)

// Ride represents one paid trip request in the system.
type Ride struct {
	ID               int64
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
	OriginalPrice  float64 // populated only when a discount was applied
	FinalPrice     float64 // populated only when a discount was applied

	PaymentIntentID string // unique; doubles as the booking idempotency key

	CabDriverID string // assigned vehicle number
	ETA         string

	Status             RideStatus
	CancellationReason string
	DispatcherNotes    string
	StatusChangedBy    string
	StatusChangedAt    time.Time

	SMSMessageID         string
	SMSDeliveryStatus    SMSDeliveryStatus
	SMSDeliveryUpdatedAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// transition is one row of the authoritative status table: allowed next
// states plus the label/actionability used by rendering layers.
type transition struct {
	Next       []RideStatus
	Label      string
	Actionable bool
}

var transitions = map[RideStatus]transition{
	RideStatusUnassigned: {
		Next:       []RideStatus{RideStatusAssigned, RideStatusCompleted, RideStatusCancelled, RideStatusNoShow},
		Label:      "Plaćeno - Čeka Vozača",
		Actionable: true,
	},
	RideStatusAssigned: {
		Next:       []RideStatus{RideStatusCompleted, RideStatusCancelled, RideStatusNoShow},
		Label:      "Vozač Dodijeljen",
		Actionable: true,
	},
	RideStatusCompleted: {Label: "Završeno"},
	RideStatusCancelled: {Label: "Otkazano"},
	RideStatusNoShow:    {Label: "Nije se pojavio"},
}

// CanTransition reports whether a ride may move from one status to another.
func CanTransition(from, to RideStatus) bool {
	for _, next := range transitions[from].Next {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status permits no further transition.
func (s RideStatus) IsTerminal() bool {
	t, ok := transitions[s]
	return ok && len(t.Next) == 0
}

// Label returns the human-readable label for a status.
func (s RideStatus) Label() string {
	return transitions[s].Label
}

// Actionable reports whether dispatcher actions apply to rides in this status.
func (s RideStatus) Actionable() bool {
	return transitions[s].Actionable
}

// ValidStatus reports whether s is a member of the closed status enum.
func ValidStatus(s RideStatus) bool {
	_, ok := transitions[s]
	return ok
}
