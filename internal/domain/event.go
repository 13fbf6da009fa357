package domain

// EventType identifies a ride-lifecycle event delivered to the automation
// webhook receiver.
type EventType string

const (
	EventBookingConfirmed EventType = "booking_confirmed"
	EventDriverAssigned   EventType = "driver_assigned"
	EventRideCompleted    EventType = "ride_completed"
	EventRideCancelled    EventType = "ride_cancelled"
)
