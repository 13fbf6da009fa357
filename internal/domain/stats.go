package domain

// DashboardStats are the aggregate counters shown on the dispatch board.
type DashboardStats struct {
	TodayRides     int64   `json:"today_rides"`
	ThisMonthRides int64   `json:"this_month_rides"`
	MonthlyRevenue float64 `json:"monthly_revenue"`
	PendingRides   int64   `json:"pending_rides"`
	AssignedRides  int64   `json:"assigned_rides"`
}

// DriverStats are fleet-level aggregates.
type DriverStats struct {
	TotalDrivers  int64   `json:"total_drivers"`
	ActiveDrivers int64   `json:"active_drivers"`
	TotalEarnings float64 `json:"total_earnings"`
	TopDriver     string  `json:"top_driver"`
}

// KeyMetrics are the analytics headline numbers.
type KeyMetrics struct {
	TodayRevenue        float64 `json:"today_revenue"`
	TodayVsYesterday    float64 `json:"today_vs_yesterday_change"`
	MonthRevenue        float64 `json:"month_revenue"`
	MonthRides          int64   `json:"month_rides"`
	AvgRideValue        float64 `json:"avg_ride_value"`
	CancellationRate    float64 `json:"cancellation_rate"`
}

// PeakHours is the bookings-per-hour histogram over the trailing 30 days.
// Hours always holds all 24 slots so charts render a full day.
type PeakHours struct {
	Hours  []string `json:"hours"`
	Counts []int64  `json:"counts"`
}

// StatusDistribution is the per-status ride breakdown over the trailing
// 30 days. Labels carry the display names used on the dispatch board.
type StatusDistribution struct {
	Labels []string `json:"labels"`
	Counts []int64  `json:"counts"`
}

// AnalyticsRow is one period of the grouped analytics report.
type AnalyticsRow struct {
	Period           string  `json:"period"`
	TotalRides       int64   `json:"total_rides"`
	CompletedRides   int64   `json:"completed_rides"`
	CancelledRides   int64   `json:"cancelled_rides"`
	TotalRevenue     float64 `json:"total_revenue"`
	AvgRideValue     float64 `json:"avg_ride_value"`
	CancellationRate float64 `json:"cancellation_rate"`
}
