package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentLockKey(t *testing.T) {
	assert.Equal(t, "payment_lock:booking:42", paymentLockKey(42))
}

func TestNoopLockAlwaysGranted(t *testing.T) {
	var lock NoopLock
	_, ok, err := lock.AcquirePaymentLock(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, lock.ReleasePaymentLock(context.Background(), 1, ""))
}

// TestPaymentLockIntegration requires a running Redis server
func TestPaymentLockIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Skipping test because Redis is not available:", err)
	}

	lock := NewRedis(client, 5*time.Second)
	bookingID := time.Now().UnixNano()

	token, ok, err := lock.AcquirePaymentLock(ctx, bookingID)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = lock.AcquirePaymentLock(ctx, bookingID)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must fail while the lock is held")

	require.NoError(t, lock.ReleasePaymentLock(ctx, bookingID, "someone-else"))
	_, ok, _ = lock.AcquirePaymentLock(ctx, bookingID)
	assert.False(t, ok, "a foreign token must not release the lock")

	require.NoError(t, lock.ReleasePaymentLock(ctx, bookingID, token))
	_, ok, err = lock.AcquirePaymentLock(ctx, bookingID)
	require.NoError(t, err)
	assert.True(t, ok)
}

// TestPaymentLockExpiredTokenIntegration requires a running Redis server
func TestPaymentLockExpiredTokenIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Skipping test because Redis is not available:", err)
	}

	lock := NewRedis(client, 200*time.Millisecond)
	bookingID := time.Now().UnixNano()

	stale, ok, err := lock.AcquirePaymentLock(ctx, bookingID)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(400 * time.Millisecond)

	current, ok, err := lock.AcquirePaymentLock(ctx, bookingID)
	require.NoError(t, err)
	require.True(t, ok, "an expired lock can be taken again")

	// the first holder finishing late must not free the new holder's lock
	require.NoError(t, lock.ReleasePaymentLock(ctx, bookingID, stale))
	val, err := client.Get(ctx, paymentLockKey(bookingID)).Result()
	require.NoError(t, err)
	assert.Equal(t, current, val)

	require.NoError(t, lock.ReleasePaymentLock(ctx, bookingID, current))
	assert.Equal(t, redis.Nil, client.Get(ctx, paymentLockKey(bookingID)).Err())
}

func TestReleasePaymentLockReportsConnectionErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 50 * time.Millisecond})
	defer client.Close()

	err := NewRedis(client, 0).ReleasePaymentLock(context.Background(), 1, "token")
	assert.Error(t, err)
}
