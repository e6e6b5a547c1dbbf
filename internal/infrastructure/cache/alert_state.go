package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pharmaledger/internal/core/id"
	"pharmaledger/internal/domain/reorder"
)

const alertKeyPrefix = "pharmaledger:lowstock:"

// AlertState remembers reported low-stock items in Redis so that repeated
// scans, from any worker, report an item once per TTL.
type AlertState struct {
	client redis.Cmdable
}

var _ reorder.AlertState = (*AlertState)(nil)

// NewAlertState creates an alert state over client.
func NewAlertState(client redis.Cmdable) *AlertState {
	return &AlertState{client: client}
}

func alertKey(itemID id.ID) string {
	return alertKeyPrefix + itemID.String()
}

// MarkFlagged sets the item key if absent. It reports true when the key was
// created, i.e. the item was not reported within ttl.
func (s *AlertState) MarkFlagged(ctx context.Context, itemID id.ID, ttl time.Duration) (bool, error) {
	created, err := s.client.SetNX(ctx, alertKey(itemID), time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark low stock %s: %w", itemID, err)
	}
	return created, nil
}

// Clear forgets the item.
func (s *AlertState) Clear(ctx context.Context, itemID id.ID) error {
	if err := s.client.Del(ctx, alertKey(itemID)).Err(); err != nil {
		return fmt.Errorf("clear low stock %s: %w", itemID, err)
	}
	return nil
}
