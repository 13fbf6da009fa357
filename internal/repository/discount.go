package repository

import (
	"context"
	"time"

	"github.com/zologic/city-ride/internal/domain"
)

// DiscountRepository defines the persistence operations for discount codes.
type DiscountRepository interface {
	// Create persists a new code. A code collision returns ErrDuplicate.
	Create(ctx context.Context, code *domain.DiscountCode) error

	// GetByID retrieves a code by ID.
	GetByID(ctx context.Context, id int64) (*domain.DiscountCode, error)

	// GetActiveByCode retrieves an active code by its (uppercase) code string.
	GetActiveByCode(ctx context.Context, code string) (*domain.DiscountCode, error)

	// GetAll retrieves all codes, newest first.
	GetAll(ctx context.Context) ([]*domain.DiscountCode, error)

	// Update updates an existing code.
	Update(ctx context.Context, code *domain.DiscountCode) error

	// Delete removes a code.
	Delete(ctx context.Context, id int64) error

	// SetActive toggles a code's active flag.
	SetActive(ctx context.Context, id int64, active bool, at time.Time) error

	// IncrementUsage adds one use to a code after it is applied to a
	// booking. A code with no remaining headroom returns ErrLimitReached
	// instead of exceeding its usage limit.
	IncrementUsage(ctx context.Context, id int64, at time.Time) error
}
