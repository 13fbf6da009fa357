package domain

import "time"

// DriverStatus represents the current status of a driver.
type DriverStatus string

const (
	DriverStatusActive   DriverStatus = "active"
	DriverStatusInactive DriverStatus = "inactive"
	DriverStatusOnBreak  DriverStatus = "on_break"
)

// Driver represents a vehicle/operator pair available for assignment.
// VehicleNumber is the natural key correlated with Ride.CabDriverID.
type Driver struct {
	ID            int64
	Name          string
	Phone         string
	VehicleNumber string
	VehicleModel  string
	LicenseNumber string
	Status        DriverStatus
	TotalRides    int64
	TotalEarnings float64
	Rating        float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ValidDriverStatus reports whether s is a known driver status.
func ValidDriverStatus(s DriverStatus) bool {
	switch s {
	case DriverStatusActive, DriverStatusInactive, DriverStatusOnBreak:
		return true
	}
	return false
}
