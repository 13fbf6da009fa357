package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/zologic/city-ride/internal/domain"
	"github.com/zologic/city-ride/internal/repository"
)

// DriverRepository is a PostgreSQL implementation of repository.DriverRepository.
type DriverRepository struct {
	q Querier
}

// NewDriverRepository creates a new PostgreSQL driver repository.
func NewDriverRepository(db *sql.DB) *DriverRepository {
	return &DriverRepository{q: db}
}

const driverColumns = `
	id, name, phone, vehicle_number, vehicle_model, license_number,
	status, total_rides, total_earnings, rating, created_at, updated_at`

// Create persists a new driver and assigns its ID.
func (r *DriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	query := `
		INSERT INTO drivers (
			name, phone, vehicle_number, vehicle_model, license_number,
			status, total_rides, total_earnings, rating, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	err := r.q.QueryRowContext(ctx, query,
		driver.Name,
		driver.Phone,
		driver.VehicleNumber,
		nullString(driver.VehicleModel),
		nullString(driver.LicenseNumber),
		driver.Status,
		driver.TotalRides,
		driver.TotalEarnings,
		driver.Rating,
		driver.CreatedAt,
		driver.UpdatedAt,
	).Scan(&driver.ID)
	if err != nil {
		return mapUniqueViolation(err)
	}
	return nil
}

func scanDriver(row interface{ Scan(...any) error }) (*domain.Driver, error) {
	var driver domain.Driver
	var vehicleModel, licenseNumber sql.NullString

	err := row.Scan(
		&driver.ID,
		&driver.Name,
		&driver.Phone,
		&driver.VehicleNumber,
		&vehicleModel,
		&licenseNumber,
		&driver.Status,
		&driver.TotalRides,
		&driver.TotalEarnings,
		&driver.Rating,
		&driver.CreatedAt,
		&driver.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	driver.VehicleModel = vehicleModel.String
	driver.LicenseNumber = licenseNumber.String
	return &driver, nil
}

// GetByID retrieves a driver by ID.
func (r *DriverRepository) GetByID(ctx context.Context, id int64) (*domain.Driver, error) {
	driver, err := scanDriver(r.q.QueryRowContext(ctx,
		`SELECT `+driverColumns+` FROM drivers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return driver, nil
}

// GetAll retrieves all drivers ordered by name.
func (r *DriverRepository) GetAll(ctx context.Context) ([]*domain.Driver, error) {
	return r.list(ctx, `SELECT `+driverColumns+` FROM drivers ORDER BY name`)
}

// ListActive retrieves drivers available for assignment.
func (r *DriverRepository) ListActive(ctx context.Context) ([]*domain.Driver, error) {
	return r.list(ctx, `SELECT `+driverColumns+` FROM drivers WHERE status = $1 ORDER BY name`, domain.DriverStatusActive)
}

func (r *DriverRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Driver, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drivers []*domain.Driver
	for rows.Next() {
		driver, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, driver)
	}
	return drivers, rows.Err()
}

// Update updates an existing driver.
func (r *DriverRepository) Update(ctx context.Context, driver *domain.Driver) error {
	query := `
		UPDATE drivers SET
			name = $1, phone = $2, vehicle_number = $3, vehicle_model = $4,
			license_number = $5, status = $6, rating = $7, updated_at = $8
		WHERE id = $9
	`

	result, err := r.q.ExecContext(ctx, query,
		driver.Name,
		driver.Phone,
		driver.VehicleNumber,
		nullString(driver.VehicleModel),
		nullString(driver.LicenseNumber),
		driver.Status,
		driver.Rating,
		driver.UpdatedAt,
		driver.ID,
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

// Delete removes a driver.
func (r *DriverRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM drivers WHERE id = $1`, id)
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

// IncrementEarnings adds a completed ride to the driver identified by vehicle
// number. Unknown vehicle numbers are ignored so ride completion never fails
// on a stale assignment.
func (r *DriverRepository) IncrementEarnings(ctx context.Context, vehicleNumber string, amount float64, at time.Time) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE drivers SET total_rides = total_rides + 1, total_earnings = total_earnings + $1, updated_at = $2
		WHERE vehicle_number = $3
	`, amount, at, vehicleNumber)
	return err
}

// Stats computes fleet-wide aggregates plus the top earner.
func (r *DriverRepository) Stats(ctx context.Context) (*domain.DriverStats, error) {
	var stats domain.DriverStats
	err := r.q.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(total_earnings), 0)
		FROM drivers
	`).Scan(&stats.TotalDrivers, &stats.ActiveDrivers, &stats.TotalEarnings)
	if err != nil {
		return nil, err
	}

	var topDriver sql.NullString
	err = r.q.QueryRowContext(ctx, `
		SELECT name FROM drivers ORDER BY total_earnings DESC LIMIT 1
	`).Scan(&topDriver)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	stats.TopDriver = topDriver.String
	return &stats, nil
}

var _ repository.DriverRepository = (*DriverRepository)(nil)
