package redis

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/zologic/city-ride/internal/domain"
)

const lastDeliveryKey = "webhooks:last_delivery"

// DeliveryStatusStore keeps the outcome of the most recent legacy booking
// notification. Each save overwrites the previous one.
type DeliveryStatusStore struct {
	client *redis.Client
}

// NewDeliveryStatusStore creates a new DeliveryStatusStore.
func NewDeliveryStatusStore(client *redis.Client) *DeliveryStatusStore {
	return &DeliveryStatusStore{client: client}
}

// SaveDelivery stores the delivery outcome.
func (s *DeliveryStatusStore) SaveDelivery(ctx context.Context, delivery domain.WebhookDelivery) error {
	data, err := json.Marshal(delivery)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, lastDeliveryKey, data, 0).Err()
}

// LastDelivery returns the stored outcome, or nil when nothing was delivered
// yet.
func (s *DeliveryStatusStore) LastDelivery(ctx context.Context) (*domain.WebhookDelivery, error) {
	data, err := s.client.Get(ctx, lastDeliveryKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var delivery domain.WebhookDelivery
	if err := json.Unmarshal(data, &delivery); err != nil {
		return nil, err
	}
	return &delivery, nil
}
