package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/zologic/city-ride/internal/domain"
	"github.com/zologic/city-ride/internal/repository"
)

// ReconcileService applies asynchronous SMS delivery reports from the
// messaging provider back onto rides.
type ReconcileService struct {
	rideRepo repository.RideRepository
}

// NewReconcileService creates a new ReconcileService.
func NewReconcileService(rideRepo repository.RideRepository) *ReconcileService {
	return &ReconcileService{rideRepo: rideRepo}
}

// LinkMessage records the provider's message id for a booking so later
// delivery reports can be correlated. Seeds delivery status to pending.
func (s *ReconcileService) LinkMessage(ctx context.Context, bookingID int64, messageID string) error {
	if bookingID <= 0 || strings.TrimSpace(messageID) == "" {
		return ErrMalformedReport
	}

	err := s.rideRepo.LinkSMSMessage(ctx, bookingID, messageID, time.Now())
	if errors.Is(err, repository.ErrNotFound) {
		return ErrRideNotFound
	}
	return err
}

// DeliveryReport is one provider callback entry.
type DeliveryReport struct {
	MessageID string
	Status    string
}

// providerStatus maps the messaging provider's status group names onto the
// internal delivery states. Unrecognized names map to unknown.
var providerStatus = map[string]domain.SMSDeliveryStatus{
	"PENDING":       domain.SMSStatusPending,
	"DELIVERED":     domain.SMSStatusDelivered,
	"UNDELIVERABLE": domain.SMSStatusFailed,
	"EXPIRED":       domain.SMSStatusFailed,
	"REJECTED":      domain.SMSStatusRejected,
}

func mapProviderStatus(name string) domain.SMSDeliveryStatus {
	if status, ok := providerStatus[strings.ToUpper(strings.TrimSpace(name))]; ok {
		return status
	}
	return domain.SMSStatusUnknown
}

// ApplyDeliveryReports applies a batch of delivery outcomes in one statement
// with a single shared timestamp. Message ids with no matching ride are
// logged and skipped; a batch with missing fields is rejected wholesale.
func (s *ReconcileService) ApplyDeliveryReports(ctx context.Context, reports []DeliveryReport) (int64, error) {
	if len(reports) == 0 {
		return 0, ErrMalformedReport
	}

	byMessageID := make(map[string]domain.SMSDeliveryStatus, len(reports))
	ids := make([]string, 0, len(reports))
	for _, report := range reports {
		if strings.TrimSpace(report.MessageID) == "" || strings.TrimSpace(report.Status) == "" {
			return 0, ErrMalformedReport
		}
		if _, seen := byMessageID[report.MessageID]; !seen {
			ids = append(ids, report.MessageID)
		}
		byMessageID[report.MessageID] = mapProviderStatus(report.Status)
	}

	rides, err := s.rideRepo.GetBySMSMessageIDs(ctx, ids)
	if err != nil {
		return 0, err
	}

	statuses := make(map[int64]domain.SMSDeliveryStatus, len(rides))
	matched := make(map[string]bool, len(rides))
	for _, ride := range rides {
		statuses[ride.ID] = byMessageID[ride.SMSMessageID]
		matched[ride.SMSMessageID] = true
	}
	for _, id := range ids {
		if !matched[id] {
			log.Printf("reconcile: no ride for message id %s, skipped", id)
		}
	}

	if len(statuses) == 0 {
		return 0, nil
	}
	return s.rideRepo.BatchUpdateSMSDelivery(ctx, statuses, time.Now())
}
