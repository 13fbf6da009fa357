package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/zologic/city-ride/internal/domain"
	"github.com/zologic/city-ride/internal/repository"
)

// DiscountRepository is a PostgreSQL implementation of repository.DiscountRepository.
type DiscountRepository struct {
	q Querier
}

// NewDiscountRepository creates a new PostgreSQL discount repository.
func NewDiscountRepository(db *sql.DB) *DiscountRepository {
	return &DiscountRepository{q: db}
}

const discountColumns = `
	id, code, discount_type, discount_value, min_order_amount, max_discount_amount,
	usage_limit, usage_count, valid_from, valid_until, is_active, created_at, updated_at`

// Create persists a new discount code and assigns its ID.
func (r *DiscountRepository) Create(ctx context.Context, code *domain.DiscountCode) error {
	query := `
		INSERT INTO discount_codes (
			code, discount_type, discount_value, min_order_amount, max_discount_amount,
			usage_limit, usage_count, valid_from, valid_until, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	err := r.q.QueryRowContext(ctx, query,
		code.Code,
		code.DiscountType,
		code.DiscountValue,
		code.MinOrderAmount,
		code.MaxDiscountAmount,
		code.UsageLimit,
		code.UsageCount,
		nullTime(code.ValidFrom),
		nullTime(code.ValidUntil),
		code.IsActive,
		code.CreatedAt,
		code.UpdatedAt,
	).Scan(&code.ID)
	if err != nil {
		return mapUniqueViolation(err)
	}
	return nil
}

func scanDiscount(row interface{ Scan(...any) error }) (*domain.DiscountCode, error) {
	var code domain.DiscountCode
	var validFrom, validUntil sql.NullTime

	err := row.Scan(
		&code.ID,
		&code.Code,
		&code.DiscountType,
		&code.DiscountValue,
		&code.MinOrderAmount,
		&code.MaxDiscountAmount,
		&code.UsageLimit,
		&code.UsageCount,
		&validFrom,
		&validUntil,
		&code.IsActive,
		&code.CreatedAt,
		&code.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if validFrom.Valid {
		code.ValidFrom = validFrom.Time
	}
	if validUntil.Valid {
		code.ValidUntil = validUntil.Time
	}
	return &code, nil
}

// GetByID retrieves a discount code by ID.
func (r *DiscountRepository) GetByID(ctx context.Context, id int64) (*domain.DiscountCode, error) {
	code, err := scanDiscount(r.q.QueryRowContext(ctx,
		`SELECT `+discountColumns+` FROM discount_codes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return code, nil
}

// GetActiveByCode retrieves an active discount code by its code value.
func (r *DiscountRepository) GetActiveByCode(ctx context.Context, codeValue string) (*domain.DiscountCode, error) {
	code, err := scanDiscount(r.q.QueryRowContext(ctx,
		`SELECT `+discountColumns+` FROM discount_codes WHERE code = $1 AND is_active = TRUE`, codeValue))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return code, nil
}

// GetAll retrieves all discount codes, newest first.
func (r *DiscountRepository) GetAll(ctx context.Context) ([]*domain.DiscountCode, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+discountColumns+` FROM discount_codes ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []*domain.DiscountCode
	for rows.Next() {
		code, err := scanDiscount(rows)
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// Update updates an existing discount code.
func (r *DiscountRepository) Update(ctx context.Context, code *domain.DiscountCode) error {
	query := `
		UPDATE discount_codes SET
			code = $1, discount_type = $2, discount_value = $3,
			min_order_amount = $4, max_discount_amount = $5, usage_limit = $6,
			valid_from = $7, valid_until = $8, is_active = $9, updated_at = $10
		WHERE id = $11
	`

	result, err := r.q.ExecContext(ctx, query,
		code.Code,
		code.DiscountType,
		code.DiscountValue,
		code.MinOrderAmount,
		code.MaxDiscountAmount,
		code.UsageLimit,
		nullTime(code.ValidFrom),
		nullTime(code.ValidUntil),
		code.IsActive,
		code.UpdatedAt,
		code.ID,
	)
	if err != nil {
		return mapUniqueViolation(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a discount code.
func (r *DiscountRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM discount_codes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SetActive toggles a discount code's active flag.
func (r *DiscountRepository) SetActive(ctx context.Context, id int64, active bool, at time.Time) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE discount_codes SET is_active = $1, updated_at = $2 WHERE id = $3`, active, at, id)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// IncrementUsage bumps the usage counter after a code is applied to a booking.
// The update is guarded on remaining headroom, so concurrent bookings that
// both validated against the last free slot cannot push usage_count past
// usage_limit.
func (r *DiscountRepository) IncrementUsage(ctx context.Context, id int64, at time.Time) error {
	result, err := r.q.ExecContext(ctx, `
		UPDATE discount_codes
		SET usage_count = usage_count + 1, updated_at = $1
		WHERE id = $2 AND (usage_limit = 0 OR usage_count < usage_limit)
	`, at, id)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		var exists bool
		if err := r.q.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM discount_codes WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return repository.ErrNotFound
		}
		return repository.ErrLimitReached
	}
	return nil
}

var _ repository.DiscountRepository = (*DiscountRepository)(nil)
