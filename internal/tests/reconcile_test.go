package tests

import (
	"context"
	"testing"

	"github.com/zologic/city-ride/internal/domain"
	"github.com/zologic/city-ride/internal/service"
)

func TestLinkMessage(t *testing.T) {
	rides := NewMockRideRepository()
	ride := rides.AddRide(&domain.Ride{Status: domain.RideStatusUnassigned})
	svc := service.NewReconcileService(rides)

	if err := svc.LinkMessage(context.Background(), ride.ID, "msg-1"); err != nil {
		t.Fatalf("LinkMessage failed: %v", err)
	}

	stored := rides.GetRide(ride.ID)
	if stored.SMSMessageID != "msg-1" {
		t.Errorf("Expected message id recorded, got %q", stored.SMSMessageID)
	}
	if stored.SMSDeliveryStatus != domain.SMSStatusPending {
		t.Errorf("Expected delivery status pending, got %s", stored.SMSDeliveryStatus)
	}
}

func TestLinkMessageErrors(t *testing.T) {
	rides := NewMockRideRepository()
	rides.AddRide(&domain.Ride{Status: domain.RideStatusUnassigned})
	svc := service.NewReconcileService(rides)

	testCases := []struct {
		name      string
		bookingID int64
		messageID string
		wantErr   error
	}{
		{"zero booking id", 0, "msg-1", service.ErrMalformedReport},
		{"blank message id", 1, "   ", service.ErrMalformedReport},
		{"unknown booking", 999, "msg-1", service.ErrRideNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if err := svc.LinkMessage(context.Background(), tc.bookingID, tc.messageID); err != tc.wantErr {
				t.Errorf("Expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestApplyDeliveryReports(t *testing.T) {
	rides := NewMockRideRepository()
	first := rides.AddRide(&domain.Ride{SMSMessageID: "msg-1", SMSDeliveryStatus: domain.SMSStatusPending})
	second := rides.AddRide(&domain.Ride{SMSMessageID: "msg-2", SMSDeliveryStatus: domain.SMSStatusPending})
	svc := service.NewReconcileService(rides)

	// msg-3 has no matching ride and is skipped without failing the batch.
	updated, err := svc.ApplyDeliveryReports(context.Background(), []service.DeliveryReport{
		{MessageID: "msg-1", Status: "DELIVERED"},
		{MessageID: "msg-2", Status: "UNDELIVERABLE"},
		{MessageID: "msg-3", Status: "DELIVERED"},
	})
	if err != nil {
		t.Fatalf("ApplyDeliveryReports failed: %v", err)
	}
	if updated != 2 {
		t.Errorf("Expected 2 rides updated, got %d", updated)
	}
	if rides.BatchUpdateCallCount != 1 {
		t.Errorf("Expected a single batch update, got %d", rides.BatchUpdateCallCount)
	}
	if got := rides.GetRide(first.ID).SMSDeliveryStatus; got != domain.SMSStatusDelivered {
		t.Errorf("Expected msg-1 delivered, got %s", got)
	}
	if got := rides.GetRide(second.ID).SMSDeliveryStatus; got != domain.SMSStatusFailed {
		t.Errorf("Expected msg-2 failed, got %s", got)
	}
}

func TestApplyDeliveryReportsMalformed(t *testing.T) {
	rides := NewMockRideRepository()
	rides.AddRide(&domain.Ride{SMSMessageID: "msg-1", SMSDeliveryStatus: domain.SMSStatusPending})
	svc := service.NewReconcileService(rides)

	testCases := []struct {
		name    string
		reports []service.DeliveryReport
	}{
		{"empty batch", nil},
		{"blank message id", []service.DeliveryReport{{MessageID: " ", Status: "DELIVERED"}}},
		{"blank status", []service.DeliveryReport{
			{MessageID: "msg-1", Status: "DELIVERED"},
			{MessageID: "msg-2", Status: ""},
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.ApplyDeliveryReports(context.Background(), tc.reports); err != service.ErrMalformedReport {
				t.Errorf("Expected ErrMalformedReport, got %v", err)
			}
		})
	}

	// A malformed batch must not touch any ride.
	if rides.BatchUpdateCallCount != 0 {
		t.Errorf("Expected no batch updates, got %d", rides.BatchUpdateCallCount)
	}
}

func TestDeliveryStatusMapping(t *testing.T) {
	testCases := []struct {
		provider string
		want     domain.SMSDeliveryStatus
	}{
		{"PENDING", domain.SMSStatusPending},
		{"DELIVERED", domain.SMSStatusDelivered},
		{"delivered", domain.SMSStatusDelivered},
		{"UNDELIVERABLE", domain.SMSStatusFailed},
		{"EXPIRED", domain.SMSStatusFailed},
		{"REJECTED", domain.SMSStatusRejected},
		{" Delivered ", domain.SMSStatusDelivered},
		{"SOMETHING_NEW", domain.SMSStatusUnknown},
	}

	for _, tc := range testCases {
		t.Run(tc.provider, func(t *testing.T) {
			rides := NewMockRideRepository()
			ride := rides.AddRide(&domain.Ride{SMSMessageID: "msg-1", SMSDeliveryStatus: domain.SMSStatusPending})
			svc := service.NewReconcileService(rides)

			updated, err := svc.ApplyDeliveryReports(context.Background(), []service.DeliveryReport{
				{MessageID: "msg-1", Status: tc.provider},
			})
			if err != nil {
				t.Fatalf("ApplyDeliveryReports failed: %v", err)
			}
			if updated != 1 {
				t.Fatalf("Expected one update, got %d", updated)
			}
			if got := rides.GetRide(ride.ID).SMSDeliveryStatus; got != tc.want {
				t.Errorf("Provider status %q: expected %s, got %s", tc.provider, tc.want, got)
			}
		})
	}
}

func TestApplyDeliveryReportsNoMatches(t *testing.T) {
	rides := NewMockRideRepository()
	svc := service.NewReconcileService(rides)

	updated, err := svc.ApplyDeliveryReports(context.Background(), []service.DeliveryReport{
		{MessageID: "msg-unknown", Status: "DELIVERED"},
	})
	if err != nil {
		t.Fatalf("ApplyDeliveryReports failed: %v", err)
	}
	if updated != 0 {
		t.Errorf("Expected zero updates, got %d", updated)
	}
	if rides.BatchUpdateCallCount != 0 {
		t.Errorf("Expected the batch update to be skipped, got %d calls", rides.BatchUpdateCallCount)
	}
}
