package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/zologic/city-ride/internal/domain"
	"github.com/zologic/city-ride/internal/repository"
)

// DriverService backs the dispatcher's fleet management screens.
type DriverService struct {
	driverRepo repository.DriverRepository
	rideRepo   repository.RideRepository
}

// NewDriverService creates a new DriverService.
func NewDriverService(driverRepo repository.DriverRepository, rideRepo repository.RideRepository) *DriverService {
	return &DriverService{driverRepo: driverRepo, rideRepo: rideRepo}
}

// SaveDriverRequest contains the fields for creating or updating a driver.
type SaveDriverRequest struct {
	Name          string
	Phone         string
	VehicleNumber string
	VehicleModel  string
	LicenseNumber string
	Status        domain.DriverStatus
	Rating        float64
}

func (r SaveDriverRequest) validate() error {
	if strings.TrimSpace(r.Name) == "" || strings.TrimSpace(r.Phone) == "" || strings.TrimSpace(r.VehicleNumber) == "" {
		return ErrInvalidDriver
	}
	if r.Status != "" && !domain.ValidDriverStatus(r.Status) {
		return ErrInvalidDriverStatus
	}
	return nil
}

// Create registers a new driver.
func (s *DriverService) Create(ctx context.Context, req SaveDriverRequest) (*domain.Driver, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = domain.DriverStatusActive
	}

	now := time.Now()
	driver := &domain.Driver{
		Name:          strings.TrimSpace(req.Name),
		Phone:         strings.TrimSpace(req.Phone),
		VehicleNumber: strings.TrimSpace(req.VehicleNumber),
		VehicleModel:  req.VehicleModel,
		LicenseNumber: req.LicenseNumber,
		Status:        status,
		Rating:        req.Rating,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.driverRepo.Create(ctx, driver); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateVehicle
		}
		return nil, err
	}
	return driver, nil
}

// Update edits an existing driver.
func (s *DriverService) Update(ctx context.Context, id int64, req SaveDriverRequest) (*domain.Driver, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	driver, err := s.driverRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDriverNotFound
		}
		return nil, err
	}

	driver.Name = strings.TrimSpace(req.Name)
	driver.Phone = strings.TrimSpace(req.Phone)
	driver.VehicleNumber = strings.TrimSpace(req.VehicleNumber)
	driver.VehicleModel = req.VehicleModel
	driver.LicenseNumber = req.LicenseNumber
	if req.Status != "" {
		driver.Status = req.Status
	}
	driver.Rating = req.Rating
	driver.UpdatedAt = time.Now()

	if err := s.driverRepo.Update(ctx, driver); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateVehicle
		}
		return nil, err
	}
	return driver, nil
}

// Delete removes a driver.
func (s *DriverService) Delete(ctx context.Context, id int64) error {
	err := s.driverRepo.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrDriverNotFound
	}
	return err
}

// Get retrieves one driver.
func (s *DriverService) Get(ctx context.Context, id int64) (*domain.Driver, error) {
	driver, err := s.driverRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrDriverNotFound
	}
	return driver, err
}

// List returns all drivers.
func (s *DriverService) List(ctx context.Context) ([]*domain.Driver, error) {
	return s.driverRepo.GetAll(ctx)
}

// ListAvailable returns drivers offered for assignment.
func (s *DriverService) ListAvailable(ctx context.Context) ([]*domain.Driver, error) {
	return s.driverRepo.ListActive(ctx)
}

// EarningsReport summarizes one driver's completed rides in a period.
type EarningsReport struct {
	Driver        *domain.Driver `json:"driver"`
	From          time.Time      `json:"from"`
	To            time.Time      `json:"to"`
	RideCount     int            `json:"ride_count"`
	TotalEarnings float64        `json:"total_earnings"`
	Rides         []*domain.Ride `json:"rides"`
}

// Earnings builds the per-driver earnings report for a date range.
func (s *DriverService) Earnings(ctx context.Context, driverID int64, from, to time.Time) (*EarningsReport, error) {
	if to.Before(from) {
		return nil, ErrInvalidDateRange
	}

	driver, err := s.Get(ctx, driverID)
	if err != nil {
		return nil, err
	}

	rides, err := s.rideRepo.CompletedByVehicle(ctx, driver.VehicleNumber, from, to)
	if err != nil {
		return nil, err
	}

	report := &EarningsReport{
		Driver:    driver,
		From:      from,
		To:        to,
		RideCount: len(rides),
		Rides:     rides,
	}
	for _, ride := range rides {
		report.TotalEarnings += ride.TotalPrice
	}
	return report, nil
}
