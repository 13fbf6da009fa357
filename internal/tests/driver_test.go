package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/zologic/city-ride/internal/domain"
	"github.com/zologic/city-ride/internal/service"
)

func validDriverRequest() service.SaveDriverRequest {
	return service.SaveDriverRequest{
		Name:          "Emir Begić",
		Phone:         "062 555 444",
		VehicleNumber: "SA-123-AB",
		VehicleModel:  "Škoda Octavia",
	}
}

func TestCreateDriverDefaultsToActive(t *testing.T) {
	svc := service.NewDriverService(NewMockDriverRepository(), NewMockRideRepository())

	driver, err := svc.Create(context.Background(), validDriverRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if driver.Status != domain.DriverStatusActive {
		t.Errorf("Expected default status active, got %s", driver.Status)
	}
	if driver.ID == 0 {
		t.Error("Expected an assigned id")
	}
}

func TestCreateDriverValidation(t *testing.T) {
	svc := service.NewDriverService(NewMockDriverRepository(), NewMockRideRepository())

	testCases := []struct {
		name    string
		mutate  func(*service.SaveDriverRequest)
		wantErr error
	}{
		{"missing name", func(r *service.SaveDriverRequest) { r.Name = " " }, service.ErrInvalidDriver},
		{"missing phone", func(r *service.SaveDriverRequest) { r.Phone = "" }, service.ErrInvalidDriver},
		{"missing vehicle", func(r *service.SaveDriverRequest) { r.VehicleNumber = "" }, service.ErrInvalidDriver},
		{"unknown status", func(r *service.SaveDriverRequest) { r.Status = "parked" }, service.ErrInvalidDriverStatus},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := validDriverRequest()
			tc.mutate(&req)
			if _, err := svc.Create(context.Background(), req); !errors.Is(err, tc.wantErr) {
				t.Errorf("Expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestCreateDriverDuplicateVehicle(t *testing.T) {
	svc := service.NewDriverService(NewMockDriverRepository(), NewMockRideRepository())

	if _, err := svc.Create(context.Background(), validDriverRequest()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := svc.Create(context.Background(), validDriverRequest()); !errors.Is(err, service.ErrDuplicateVehicle) {
		t.Errorf("Expected ErrDuplicateVehicle, got %v", err)
	}
}

func TestListAvailableFiltersInactive(t *testing.T) {
	drivers := NewMockDriverRepository()
	drivers.AddDriver(&domain.Driver{Name: "A", VehicleNumber: "SA-1", Status: domain.DriverStatusActive})
	drivers.AddDriver(&domain.Driver{Name: "B", VehicleNumber: "SA-2", Status: domain.DriverStatusInactive})
	drivers.AddDriver(&domain.Driver{Name: "C", VehicleNumber: "SA-3", Status: domain.DriverStatusOnBreak})
	svc := service.NewDriverService(drivers, NewMockRideRepository())

	available, err := svc.ListAvailable(context.Background())
	if err != nil {
		t.Fatalf("ListAvailable failed: %v", err)
	}
	if len(available) != 1 || available[0].VehicleNumber != "SA-1" {
		t.Errorf("Expected only the active driver, got %v", available)
	}
}

func TestDriverEarningsReport(t *testing.T) {
	drivers := NewMockDriverRepository()
	driver := drivers.AddDriver(&domain.Driver{
		Name:          "Emir Begić",
		VehicleNumber: "SA-123-AB",
		Status:        domain.DriverStatusActive,
	})

	rides := NewMockRideRepository()
	rides.AddRide(&domain.Ride{CabDriverID: "SA-123-AB", TotalPrice: 15.75, Status: domain.RideStatusCompleted})
	rides.AddRide(&domain.Ride{CabDriverID: "SA-123-AB", TotalPrice: 10.25, Status: domain.RideStatusCompleted})
	rides.AddRide(&domain.Ride{CabDriverID: "SA-123-AB", TotalPrice: 99, Status: domain.RideStatusCancelled})
	rides.AddRide(&domain.Ride{CabDriverID: "SA-999-ZZ", TotalPrice: 50, Status: domain.RideStatusCompleted})

	svc := service.NewDriverService(drivers, rides)

	report, err := svc.Earnings(context.Background(), driver.ID, tuesdayNoon.AddDate(0, -1, 0), tuesdayNoon)
	if err != nil {
		t.Fatalf("Earnings failed: %v", err)
	}
	if report.RideCount != 2 {
		t.Errorf("Expected 2 completed rides, got %d", report.RideCount)
	}
	if report.TotalEarnings != 26 {
		t.Errorf("Expected total earnings 26, got %v", report.TotalEarnings)
	}
}

func TestDriverEarningsErrors(t *testing.T) {
	svc := service.NewDriverService(NewMockDriverRepository(), NewMockRideRepository())

	if _, err := svc.Earnings(context.Background(), 999, tuesdayNoon.AddDate(0, -1, 0), tuesdayNoon); err != service.ErrDriverNotFound {
		t.Errorf("Expected ErrDriverNotFound, got %v", err)
	}
	if _, err := svc.Earnings(context.Background(), 1, tuesdayNoon, tuesdayNoon.AddDate(0, -1, 0)); err != service.ErrInvalidDateRange {
		t.Errorf("Expected ErrInvalidDateRange, got %v", err)
	}
}
