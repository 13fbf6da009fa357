package service

import (
	"context"
	"time"

	"github.com/zologic/city-ride/internal/cache"
	"github.com/zologic/city-ride/internal/domain"
	"github.com/zologic/city-ride/internal/repository"
)

// StatsService serves dashboard aggregates through the two-tier cache.
type StatsService struct {
	rideRepo   repository.RideRepository
	driverRepo repository.DriverRepository
	cache      cache.Store
}

// NewStatsService creates a new StatsService. cacheStore may be nil, in which
// case every call recomputes.
func NewStatsService(rideRepo repository.RideRepository, driverRepo repository.DriverRepository, cacheStore cache.Store) *StatsService {
	return &StatsService{rideRepo: rideRepo, driverRepo: driverRepo, cache: cacheStore}
}

// Dashboard returns the dispatch-board counters.
func (s *StatsService) Dashboard(ctx context.Context) (*domain.DashboardStats, error) {
	return cache.Fetch(ctx, s.cache, cache.KeyDashboard, cache.DefaultTTL,
		func(ctx context.Context) (*domain.DashboardStats, error) {
			return s.rideRepo.DashboardStats(ctx, time.Now())
		})
}

// Drivers returns the fleet aggregates.
func (s *StatsService) Drivers(ctx context.Context) (*domain.DriverStats, error) {
	return cache.Fetch(ctx, s.cache, cache.KeyDrivers, cache.DefaultTTL,
		func(ctx context.Context) (*domain.DriverStats, error) {
			return s.driverRepo.Stats(ctx)
		})
}

// KeyMetrics returns the revenue headline numbers.
func (s *StatsService) KeyMetrics(ctx context.Context) (*domain.KeyMetrics, error) {
	return cache.Fetch(ctx, s.cache, cache.KeyKeyMetrics, cache.DefaultTTL,
		func(ctx context.Context) (*domain.KeyMetrics, error) {
			return s.rideRepo.KeyMetrics(ctx, time.Now())
		})
}

// PeakHours returns the bookings-per-hour chart feed.
func (s *StatsService) PeakHours(ctx context.Context) (*domain.PeakHours, error) {
	return cache.Fetch(ctx, s.cache, cache.KeyPeakHours, cache.DefaultTTL,
		func(ctx context.Context) (*domain.PeakHours, error) {
			return s.rideRepo.PeakHours(ctx, time.Now())
		})
}

// StatusDistribution returns the per-status chart feed.
func (s *StatsService) StatusDistribution(ctx context.Context) (*domain.StatusDistribution, error) {
	return cache.Fetch(ctx, s.cache, cache.KeyStatusDistribution, cache.DefaultTTL,
		func(ctx context.Context) (*domain.StatusDistribution, error) {
			return s.rideRepo.StatusDistribution(ctx, time.Now())
		})
}

// Analytics returns grouped period aggregates. Parameterized queries bypass
// the cache.
func (s *StatsService) Analytics(ctx context.Context, from, to time.Time, groupBy string) ([]domain.AnalyticsRow, error) {
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return nil, ErrInvalidDateRange
	}
	switch groupBy {
	case "day", "week", "month":
	case "":
		groupBy = "day"
	default:
		return nil, ErrInvalidDateRange
	}
	return s.rideRepo.Analytics(ctx, from, to, groupBy)
}

// Invalidate drops all cached aggregates.
func (s *StatsService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx,
		cache.KeyDashboard, cache.KeyKeyMetrics, cache.KeyDrivers,
		cache.KeyPeakHours, cache.KeyStatusDistribution)
}
