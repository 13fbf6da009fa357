package repository

import (
	"context"
	"time"

	"github.com/zologic/city-ride/internal/domain"
)

// DriverRepository defines the persistence operations for drivers.
type DriverRepository interface {
	// Create persists a new driver and assigns its ID. A vehicle number
	// collision returns ErrDuplicate.
	Create(ctx context.Context, driver *domain.Driver) error

	// GetByID retrieves a driver by ID.
	GetByID(ctx context.Context, id int64) (*domain.Driver, error)

	// GetAll retrieves all drivers ordered by name.
	GetAll(ctx context.Context) ([]*domain.Driver, error)

	// ListActive retrieves drivers with status active, ordered by name.
	ListActive(ctx context.Context) ([]*domain.Driver, error)

	// Update updates an existing driver.
	Update(ctx context.Context, driver *domain.Driver) error

	// Delete removes a driver.
	Delete(ctx context.Context, id int64) error

	// IncrementEarnings adds one completed ride and its earnings to the
	// driver identified by vehicle number.
	IncrementEarnings(ctx context.Context, vehicleNumber string, amount float64, at time.Time) error

	// Stats computes fleet-level aggregates.
	Stats(ctx context.Context) (*domain.DriverStats, error)
}
