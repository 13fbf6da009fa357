package repository

import (
	"context"
	"time"

	"github.com/zologic/city-ride/internal/domain"
)

// RideFilter narrows ride listings.
type RideFilter struct {
	Status   domain.RideStatus
	DateFrom time.Time
	DateTo   time.Time
	Search   string
	Limit    int
	Offset   int
}

// RideRepository defines the persistence operations for rides.
type RideRepository interface {
	// Create persists a new ride and assigns its ID. A payment intent id
	// collision returns ErrDuplicate.
	Create(ctx context.Context, ride *domain.Ride) error

	// GetByID retrieves a ride by ID.
	GetByID(ctx context.Context, id int64) (*domain.Ride, error)

	// GetByPaymentIntentID retrieves a ride by its payment intent id.
	GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*domain.Ride, error)

	// List retrieves rides matching the filter, newest first.
	List(ctx context.Context, filter RideFilter) ([]*domain.Ride, error)

	// Update updates an existing ride.
	Update(ctx context.Context, ride *domain.Ride) error

	// LinkSMSMessage stores the provider message id for a ride and seeds
	// its delivery status to pending.
	LinkSMSMessage(ctx context.Context, rideID int64, messageID string, at time.Time) error

	// GetBySMSMessageIDs retrieves all rides whose message id appears in ids.
	GetBySMSMessageIDs(ctx context.Context, ids []string) ([]*domain.Ride, error)

	// BatchUpdateSMSDelivery applies per-ride delivery statuses in a single
	// statement and stamps one shared update time. Returns rows updated.
	BatchUpdateSMSDelivery(ctx context.Context, statuses map[int64]domain.SMSDeliveryStatus, at time.Time) (int64, error)

	// DashboardStats computes the dispatch-board aggregates relative to now.
	DashboardStats(ctx context.Context, now time.Time) (*domain.DashboardStats, error)

	// KeyMetrics computes the analytics headline numbers relative to now.
	KeyMetrics(ctx context.Context, now time.Time) (*domain.KeyMetrics, error)

	// Analytics computes grouped period aggregates. groupBy is one of
	// "day", "week", "month".
	Analytics(ctx context.Context, from, to time.Time, groupBy string) ([]domain.AnalyticsRow, error)

	// PeakHours computes the bookings-per-hour histogram over the 30 days
	// before now.
	PeakHours(ctx context.Context, now time.Time) (*domain.PeakHours, error)

	// StatusDistribution computes per-status ride counts over the 30 days
	// before now.
	StatusDistribution(ctx context.Context, now time.Time) (*domain.StatusDistribution, error)

	// CompletedByVehicle retrieves completed rides for one vehicle in a
	// date range, newest first.
	CompletedByVehicle(ctx context.Context, vehicleNumber string, from, to time.Time) ([]*domain.Ride, error)
}
