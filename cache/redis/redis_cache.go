package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arunvm123/carrental/cache"
	"github.com/arunvm123/carrental/model"
)

type RedisCacheRepository struct {
	client *redis.Client
}

var _ cache.CacheRepository = (*RedisCacheRepository)(nil)

func NewRedisCacheRepository(ctx context.Context, redisURL, password string, db int) (*RedisCacheRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     redisURL,
		Password: password,
		DB:       db,
	})

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCacheRepository{client: client}, nil
}

// Cache key generators
func bookingStatusKey(bookingID string) string {
	return fmt.Sprintf("booking_status:%s", bookingID)
}

func paymentEventKey(eventID string) string {
	return fmt.Sprintf("payment_event:%s", eventID)
}

// GetBookingStatus retrieves booking status update from cache
func (r *RedisCacheRepository) GetBookingStatus(ctx context.Context, bookingID string) (*model.BookingStatusUpdate, error) {
	statusData, err := r.client.Get(ctx, bookingStatusKey(bookingID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var status model.BookingStatusUpdate
	if err := json.Unmarshal([]byte(statusData), &status); err != nil {
		return nil, err
	}

	return &status, nil
}

// setNewerStatus writes ARGV[1] unless the cached entry already carries a
// revision >= ARGV[2]. ARGV[3] is the ttl in milliseconds, 0 for none.
var setNewerStatus = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur then
	local ok, cached = pcall(cjson.decode, cur)
	if ok and tonumber(cached['revision'] or 0) >= tonumber(ARGV[2]) then
		return 0
	end
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`)

// SetBookingStatus stores booking status update in cache unless a newer
// revision is already there
func (r *RedisCacheRepository) SetBookingStatus(ctx context.Context, bookingID string, status *model.BookingStatusUpdate, ttl time.Duration) error {
	statusData, err := json.Marshal(status)
	if err != nil {
		return err
	}

	keys := []string{bookingStatusKey(bookingID)}
	return setNewerStatus.Run(ctx, r.client, keys, statusData, status.Revision, ttl.Milliseconds()).Err()
}

// InvalidateBookingStatus removes booking status from cache
func (r *RedisCacheRepository) InvalidateBookingStatus(ctx context.Context, bookingID string) error {
	return r.client.Del(ctx, bookingStatusKey(bookingID)).Err()
}

// ClaimPaymentEvent marks a payment event as being processed. Only the first
// claim within ttl succeeds.
func (r *RedisCacheRepository) ClaimPaymentEvent(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, paymentEventKey(eventID), time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

// ReleasePaymentEvent drops a claim so a failed event can be redelivered.
func (r *RedisCacheRepository) ReleasePaymentEvent(ctx context.Context, eventID string) error {
	return r.client.Del(ctx, paymentEventKey(eventID)).Err()
}

// Ping checks if Redis is healthy
func (r *RedisCacheRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCacheRepository) Close() error {
	return r.client.Close()
}
