package redis

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/zologic/city-ride/internal/domain"
)

const (
	failureListKey = "webhooks:failures"

	// FailureJournalCap bounds how many failure records are retained.
	FailureJournalCap = 50
)

// FailureJournal keeps the most recent webhook delivery failures in a
// fixed-size Redis list, newest first.
type FailureJournal struct {
	client *redis.Client
}

// NewFailureJournal creates a new FailureJournal.
func NewFailureJournal(client *redis.Client) *FailureJournal {
	return &FailureJournal{client: client}
}

// Record appends a failure and trims the list to its cap.
func (j *FailureJournal) Record(ctx context.Context, failure domain.WebhookFailure) error {
	data, err := json.Marshal(failure)
	if err != nil {
		return err
	}

	pipe := j.client.TxPipeline()
	pipe.LPush(ctx, failureListKey, data)
	pipe.LTrim(ctx, failureListKey, 0, FailureJournalCap-1)
	_, err = pipe.Exec(ctx)
	return err
}

// Recent returns the retained failures, newest first.
func (j *FailureJournal) Recent(ctx context.Context) ([]domain.WebhookFailure, error) {
	items, err := j.client.LRange(ctx, failureListKey, 0, FailureJournalCap-1).Result()
	if err != nil {
		return nil, err
	}

	failures := make([]domain.WebhookFailure, 0, len(items))
	for _, item := range items {
		var failure domain.WebhookFailure
		if err := json.Unmarshal([]byte(item), &failure); err != nil {
			log.Printf("journal: corrupt failure record skipped: %v", err)
			continue
		}
		failures = append(failures, failure)
	}
	return failures, nil
}
