package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/zologic/city-ride/internal/domain"
	"github.com/zologic/city-ride/internal/repository"
)

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
type RideRepository struct {
	q Querier
}

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{q: db}
}

// NewRideRepositoryWithTx creates a ride repository using a transaction.
func NewRideRepositoryWithTx(tx *sql.Tx) *RideRepository {
	return &RideRepository{q: tx}
}

const rideColumns = `
	id, passenger_name, passenger_phone, passenger_email, push_subscriber_id,
	address_from, address_to, distance_km,
	total_price, discount_code, discount_amount, original_price, final_price,
	stripe_payment_id, cab_driver_id, eta,
	status, cancellation_reason, dispatcher_notes, status_changed_by, status_changed_at,
	sms_message_id, sms_delivery_status, sms_delivery_updated_at,
	created_at, updated_at`

// Create persists a new ride and assigns its ID.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (
			passenger_name, passenger_phone, passenger_email, push_subscriber_id,
			address_from, address_to, distance_km,
			total_price, discount_code, discount_amount, original_price, final_price,
			stripe_payment_id, status, sms_delivery_status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id
	`

	var originalPrice, finalPrice sql.NullFloat64
	if ride.DiscountAmount > 0 {
		originalPrice = sql.NullFloat64{Float64: ride.OriginalPrice, Valid: true}
		finalPrice = sql.NullFloat64{Float64: ride.FinalPrice, Valid: true}
	}

	smsStatus := ride.SMSDeliveryStatus
	if smsStatus == "" {
		smsStatus = domain.SMSStatusNotSent
	}

	err := r.q.QueryRowContext(ctx, query,
		ride.PassengerName,
		ride.PassengerPhone,
		nullString(ride.PassengerEmail),
		nullString(ride.PushSubscriberID),
		ride.AddressFrom,
		ride.AddressTo,
		ride.DistanceKm,
		ride.TotalPrice,
		nullString(ride.DiscountCode),
		ride.DiscountAmount,
		originalPrice,
		finalPrice,
		ride.PaymentIntentID,
		ride.Status,
		smsStatus,
		ride.CreatedAt,
		ride.UpdatedAt,
	).Scan(&ride.ID)
	if err != nil {
		return mapUniqueViolation(err)
	}
	return nil
}

func scanRide(row interface{ Scan(...any) error }) (*domain.Ride, error) {
	var ride domain.Ride
	var email, pushID, discountCode, cabDriverID, eta sql.NullString
	var cancellationReason, dispatcherNotes, changedBy, smsMessageID sql.NullString
	var originalPrice, finalPrice sql.NullFloat64
	var changedAt, smsUpdatedAt sql.NullTime

	err := row.Scan(
		&ride.ID,
		&ride.PassengerName,
		&ride.PassengerPhone,
		&email,
		&pushID,
		&ride.AddressFrom,
		&ride.AddressTo,
		&ride.DistanceKm,
		&ride.TotalPrice,
		&discountCode,
		&ride.DiscountAmount,
		&originalPrice,
		&finalPrice,
		&ride.PaymentIntentID,
		&cabDriverID,
		&eta,
		&ride.Status,
		&cancellationReason,
		&dispatcherNotes,
		&changedBy,
		&changedAt,
		&smsMessageID,
		&ride.SMSDeliveryStatus,
		&smsUpdatedAt,
		&ride.CreatedAt,
		&ride.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	ride.PassengerEmail = email.String
	ride.PushSubscriberID = pushID.String
	ride.DiscountCode = discountCode.String
	ride.OriginalPrice = originalPrice.Float64
	ride.FinalPrice = finalPrice.Float64
	ride.CabDriverID = cabDriverID.String
	ride.ETA = eta.String
	ride.CancellationReason = cancellationReason.String
	ride.DispatcherNotes = dispatcherNotes.String
	ride.StatusChangedBy = changedBy.String
	if changedAt.Valid {
		ride.StatusChangedAt = changedAt.Time
	}
	ride.SMSMessageID = smsMessageID.String
	if smsUpdatedAt.Valid {
		ride.SMSDeliveryUpdatedAt = smsUpdatedAt.Time
	}
	return &ride, nil
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id int64) (*domain.Ride, error) {
	ride, err := scanRide(r.q.QueryRowContext(ctx,
		`SELECT `+rideColumns+` FROM rides WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return ride, nil
}

// GetByPaymentIntentID retrieves a ride by its payment intent id.
func (r *RideRepository) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*domain.Ride, error) {
	ride, err := scanRide(r.q.QueryRowContext(ctx,
		`SELECT `+rideColumns+` FROM rides WHERE stripe_payment_id = $1`, paymentIntentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return ride, nil
}

// List retrieves rides matching the filter, newest first.
func (r *RideRepository) List(ctx context.Context, filter repository.RideFilter) ([]*domain.Ride, error) {
	var where []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != "" {
		where = append(where, "status = "+arg(filter.Status))
	}
	if !filter.DateFrom.IsZero() {
		where = append(where, "created_at >= "+arg(filter.DateFrom))
	}
	if !filter.DateTo.IsZero() {
		where = append(where, "created_at <= "+arg(filter.DateTo))
	}
	if filter.Search != "" {
		like := arg("%" + filter.Search + "%")
		where = append(where, fmt.Sprintf(
			"(passenger_name ILIKE %[1]s OR passenger_phone ILIKE %[1]s OR address_from ILIKE %[1]s OR address_to ILIKE %[1]s OR cab_driver_id ILIKE %[1]s)", like))
	}

	query := `SELECT ` + rideColumns + ` FROM rides`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT " + arg(limit)
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []*domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}

// Update updates an existing ride.
func (r *RideRepository) Update(ctx context.Context, ride *domain.Ride) error {
	query := `
		UPDATE rides SET
			cab_driver_id = $1, eta = $2, status = $3,
			cancellation_reason = $4, dispatcher_notes = $5,
			status_changed_by = $6, status_changed_at = $7,
			updated_at = $8
		WHERE id = $9
	`

	result, err := r.q.ExecContext(ctx, query,
		nullString(ride.CabDriverID),
		nullString(ride.ETA),
		ride.Status,
		nullString(ride.CancellationReason),
		nullString(ride.DispatcherNotes),
		nullString(ride.StatusChangedBy),
		nullTime(ride.StatusChangedAt),
		ride.UpdatedAt,
		ride.ID,
	)
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

// LinkSMSMessage stores the provider message id for a ride and seeds its
// delivery status to pending.
func (r *RideRepository) LinkSMSMessage(ctx context.Context, rideID int64, messageID string, at time.Time) error {
	result, err := r.q.ExecContext(ctx, `
		UPDATE rides SET sms_message_id = $1, sms_delivery_status = $2, sms_delivery_updated_at = $3, updated_at = $3
		WHERE id = $4
	`, messageID, domain.SMSStatusPending, at, rideID)
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

// GetBySMSMessageIDs retrieves all rides whose message id appears in ids.
func (r *RideRepository) GetBySMSMessageIDs(ctx context.Context, ids []string) ([]*domain.Ride, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT `+rideColumns+` FROM rides WHERE sms_message_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []*domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}

// BatchUpdateSMSDelivery applies per-ride delivery statuses in one CASE-based
// statement with a single shared timestamp.
func (r *RideRepository) BatchUpdateSMSDelivery(ctx context.Context, statuses map[int64]domain.SMSDeliveryStatus, at time.Time) (int64, error) {
	if len(statuses) == 0 {
		return 0, nil
	}

	var cases []string
	var args []any
	args = append(args, at)

	ids := make([]int64, 0, len(statuses))
	for id, status := range statuses {
		args = append(args, id, string(status))
		cases = append(cases, fmt.Sprintf("WHEN $%d THEN $%d", len(args)-1, len(args)))
		ids = append(ids, id)
	}
	args = append(args, pq.Array(ids))

	query := fmt.Sprintf(`
		UPDATE rides SET
			sms_delivery_status = CASE id %s END,
			sms_delivery_updated_at = $1
		WHERE id = ANY($%d)
	`, strings.Join(cases, " "), len(args))

	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DashboardStats computes the dispatch-board aggregates in one
// conditional-aggregation query.
func (r *RideRepository) DashboardStats(ctx context.Context, now time.Time) (*domain.DashboardStats, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var stats domain.DashboardStats
	err := r.q.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN created_at >= $1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN created_at >= $2 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status IN ('completed', 'unassigned', 'assigned') AND created_at >= $2 THEN total_price ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'unassigned' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'assigned' THEN 1 ELSE 0 END), 0)
		FROM rides
	`, dayStart, monthStart).Scan(
		&stats.TodayRides,
		&stats.ThisMonthRides,
		&stats.MonthlyRevenue,
		&stats.PendingRides,
		&stats.AssignedRides,
	)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// KeyMetrics computes the analytics headline numbers relative to now.
func (r *RideRepository) KeyMetrics(ctx context.Context, now time.Time) (*domain.KeyMetrics, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	yesterdayStart := dayStart.AddDate(0, 0, -1)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	thirtyDaysAgo := now.AddDate(0, 0, -30)

	var m domain.KeyMetrics
	var yesterdayRevenue float64
	var totalRecent, cancelledRecent int64
	err := r.q.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'completed' AND created_at >= $1 THEN total_price ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'completed' AND created_at >= $2 AND created_at < $1 THEN total_price ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'completed' AND created_at >= $3 THEN total_price ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'completed' AND created_at >= $3 THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(CASE WHEN status = 'completed' AND created_at >= $4 THEN total_price END), 0),
			COALESCE(SUM(CASE WHEN created_at >= $4 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'cancelled' AND created_at >= $4 THEN 1 ELSE 0 END), 0)
		FROM rides
	`, dayStart, yesterdayStart, monthStart, thirtyDaysAgo).Scan(
		&m.TodayRevenue,
		&yesterdayRevenue,
		&m.MonthRevenue,
		&m.MonthRides,
		&m.AvgRideValue,
		&totalRecent,
		&cancelledRecent,
	)
	if err != nil {
		return nil, err
	}

	if yesterdayRevenue > 0 {
		m.TodayVsYesterday = (m.TodayRevenue - yesterdayRevenue) / yesterdayRevenue * 100
	}
	if totalRecent > 0 {
		m.CancellationRate = float64(cancelledRecent) / float64(totalRecent) * 100
	}
	return &m, nil
}

// Analytics computes grouped period aggregates.
func (r *RideRepository) Analytics(ctx context.Context, from, to time.Time, groupBy string) ([]domain.AnalyticsRow, error) {
	var format string
	switch groupBy {
	case "week":
		format = "IYYY-IW"
	case "month":
		format = "YYYY-MM"
	default:
		format = "YYYY-MM-DD"
	}

	rows, err := r.q.QueryContext(ctx, `
		SELECT
			TO_CHAR(created_at, $1) AS period,
			COUNT(*),
			SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'cancelled' THEN 1 ELSE 0 END),
			COALESCE(SUM(CASE WHEN status = 'completed' THEN total_price ELSE 0 END), 0),
			COALESCE(AVG(CASE WHEN status = 'completed' THEN total_price END), 0)
		FROM rides
		WHERE created_at BETWEEN $2 AND $3
		GROUP BY period
		ORDER BY period DESC
	`, format, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AnalyticsRow
	for rows.Next() {
		var row domain.AnalyticsRow
		if err := rows.Scan(
			&row.Period,
			&row.TotalRides,
			&row.CompletedRides,
			&row.CancelledRides,
			&row.TotalRevenue,
			&row.AvgRideValue,
		); err != nil {
			return nil, err
		}
		if row.TotalRides > 0 {
			row.CancellationRate = float64(row.CancelledRides) / float64(row.TotalRides) * 100
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// PeakHours computes the bookings-per-hour histogram over the trailing
// 30 days. Hours with no bookings are kept at zero so all 24 slots appear.
func (r *RideRepository) PeakHours(ctx context.Context, now time.Time) (*domain.PeakHours, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT EXTRACT(HOUR FROM created_at)::int AS hour, COUNT(*)
		FROM rides
		WHERE created_at >= $1
		GROUP BY hour
		ORDER BY hour
	`, now.AddDate(0, 0, -30))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	data := &domain.PeakHours{
		Hours:  make([]string, 24),
		Counts: make([]int64, 24),
	}
	for i := range data.Hours {
		data.Hours[i] = fmt.Sprintf("%02d:00", i)
	}

	for rows.Next() {
		var hour int
		var count int64
		if err := rows.Scan(&hour, &count); err != nil {
			return nil, err
		}
		if hour >= 0 && hour < 24 {
			data.Counts[hour] = count
		}
	}
	return data, rows.Err()
}

// StatusDistribution computes per-status ride counts over the trailing
// 30 days.
func (r *RideRepository) StatusDistribution(ctx context.Context, now time.Time) (*domain.StatusDistribution, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM rides
		WHERE created_at >= $1
		GROUP BY status
		ORDER BY status
	`, now.AddDate(0, 0, -30))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dist := &domain.StatusDistribution{}
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		label := domain.RideStatus(status).Label()
		if label == "" {
			label = status
		}
		dist.Labels = append(dist.Labels, label)
		dist.Counts = append(dist.Counts, count)
	}
	return dist, rows.Err()
}

// CompletedByVehicle retrieves completed rides for one vehicle in a date range.
func (r *RideRepository) CompletedByVehicle(ctx context.Context, vehicleNumber string, from, to time.Time) ([]*domain.Ride, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+rideColumns+` FROM rides
		WHERE cab_driver_id = $1 AND status = 'completed' AND created_at >= $2 AND created_at <= $3
		ORDER BY created_at DESC
	`, vehicleNumber, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []*domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}

var _ repository.RideRepository = (*RideRepository)(nil)
