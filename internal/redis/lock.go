package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const defaultLockTTL = 30 * time.Second

type Redis struct {
	Client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &Redis{Client: client, ttl: ttl}
}

func paymentLockKey(bookingID int64) string {
	return fmt.Sprintf("payment_lock:booking:%d", bookingID)
}

// AcquirePaymentLock takes the per-booking payment lock. ok is false when
// another request holds it; the returned token is needed to release it.
func (r *Redis) AcquirePaymentLock(ctx context.Context, bookingID int64) (string, bool, error) {
	token := uuid.NewString()
	ok, err := r.Client.SetNX(ctx, paymentLockKey(bookingID), token, r.ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// releaseScript deletes the key only while it still holds the caller's token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ReleasePaymentLock deletes the lock only if it is still owned by token. A
// lock that expired and was taken by another request is left alone.
func (r *Redis) ReleasePaymentLock(ctx context.Context, bookingID int64, token string) error {
	err := releaseScript.Run(ctx, r.Client, []string{paymentLockKey(bookingID)}, token).Err()
	if err == redis.Nil {
		return nil
	}
	return err
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

// NoopLock is used when Redis is disabled; the store transaction alone
// keeps payments consistent.
type NoopLock struct{}

func (NoopLock) AcquirePaymentLock(ctx context.Context, bookingID int64) (string, bool, error) {
	return "", true, nil
}

func (NoopLock) ReleasePaymentLock(ctx context.Context, bookingID int64, token string) error {
	return nil
}
