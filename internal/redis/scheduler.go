package redis

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const retryQueueKey = "webhooks:retry"

// Scheduler is a Redis-backed delayed task queue. Tasks are opaque payloads
// stored in a sorted set scored by their due time, so pending retries survive
// a process restart.
type Scheduler struct {
	client   *redis.Client
	interval time.Duration
}

// NewScheduler creates a Scheduler polling at the given interval.
func NewScheduler(client *redis.Client, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Scheduler{client: client, interval: interval}
}

// Schedule enqueues a task payload to be handed to the worker at due.
func (s *Scheduler) Schedule(ctx context.Context, payload []byte, due time.Time) error {
	return s.client.ZAdd(ctx, retryQueueKey, redis.Z{
		Score:  float64(due.Unix()),
		Member: payload,
	}).Err()
}

// Run polls for due tasks and hands each to handler. A task is claimed by
// removing it from the set first, so concurrent workers never process the
// same task twice. Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, handler func(ctx context.Context, payload []byte)) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.drain(ctx, handler)
		}
	}
}

func (s *Scheduler) drain(ctx context.Context, handler func(ctx context.Context, payload []byte)) {
	now := time.Now()
	members, err := s.client.ZRangeByScore(ctx, retryQueueKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: formatUnix(now),
	}).Result()
	if err != nil {
		log.Printf("scheduler: poll: %v", err)
		return
	}

	for _, member := range members {
		removed, err := s.client.ZRem(ctx, retryQueueKey, member).Result()
		if err != nil {
			log.Printf("scheduler: claim: %v", err)
			continue
		}
		if removed == 0 {
			continue // another worker claimed it
		}
		handler(ctx, []byte(member))
	}
}

func formatUnix(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}
