package redis

import (
	"github.com/zologic/city-ride/internal/cache"
	"github.com/zologic/city-ride/internal/webhook"
)

// Ensure concrete types implement the consumer interfaces.
var (
	_ cache.Store       = (*CacheStore)(nil)
	_ webhook.Scheduler = (*Scheduler)(nil)
	_ webhook.Journal   = (*FailureJournal)(nil)

	_ webhook.StatusStore = (*DeliveryStatusStore)(nil)
)
