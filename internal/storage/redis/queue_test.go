package redis_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khangpt2k6/bullroom/internal/domain"
	"github.com/khangpt2k6/bullroom/internal/storage/redis"
)

func newQueue(t *testing.T, consumer string) (*redis.NotificationQueue, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redis.NewNotificationQueue(client, redis.QueueConfig{
		Consumer: consumer,
		MinIdle:  0,
		Block:    -1,
	}), client
}

func testNotification(typ domain.NotificationType) domain.Notification {
	start := time.Date(2025, 4, 1, 14, 0, 0, 0, time.UTC)
	return domain.Notification{
		Type:      typ,
		BookingID: "b-1",
		UserID:    "alice",
		RoomID:    "LIB-224",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		CreatedAt: start.Add(-time.Hour),
	}
}

func TestNotificationQueue_EnqueuePoll(t *testing.T) {
	ctx := context.Background()
	q, client := newQueue(t, "c-1")

	handled, err := q.Poll(ctx, func(context.Context, redis.Delivery) error {
		t.Fatal("handler called on empty stream")
		return nil
	})
	require.NoError(t, err)
	assert.False(t, handled)

	want := testNotification(domain.NotificationBookingConfirmed)
	require.NoError(t, q.Enqueue(ctx, want))

	var got redis.Delivery
	handled, err = q.Poll(ctx, func(_ context.Context, d redis.Delivery) error {
		got = d
		return nil
	})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.NotEmpty(t, got.StreamID)
	assert.False(t, got.Reclaimed)
	assert.Equal(t, want.DedupKey(), got.Notification.DedupKey())
	assert.True(t, got.Notification.StartTime.Equal(want.StartTime))

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
	n, err := client.XLen(ctx, q.Stream()).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNotificationQueue_PayloadCarriesMessage(t *testing.T) {
	ctx := context.Background()
	q, client := newQueue(t, "c-1")

	start := time.Date(2025, 4, 1, 14, 0, 0, 0, time.UTC)
	b := domain.Booking{ID: "b-1", UserID: "alice", RoomID: "LIB-224", StartTime: start, EndTime: start.Add(time.Hour)}
	want := domain.NewNotification(domain.NotificationBookingCreated, b, start.Add(-time.Hour))
	require.NotEmpty(t, want.Message)
	assert.Equal(t, want.Body(), want.Message)
	require.NoError(t, q.Enqueue(ctx, want))

	entries, err := client.XRange(ctx, q.Stream(), "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(entries[0].Values["payload"].(string)), &raw))
	assert.Equal(t, want.Message, raw["message"])

	var got redis.Delivery
	_, err = q.Poll(ctx, func(_ context.Context, d redis.Delivery) error {
		got = d
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, want.Message, got.Notification.Message)
}

func TestNotificationQueue_FailedDeliveryIsRedelivered(t *testing.T) {
	ctx := context.Background()
	q, _ := newQueue(t, "c-1")
	require.NoError(t, q.Enqueue(ctx, testNotification(domain.NotificationBookingCreated)))

	boom := errors.New("smtp down")
	handled, err := q.Poll(ctx, func(context.Context, redis.Delivery) error { return boom })
	assert.True(t, handled)
	assert.ErrorIs(t, err, boom)

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, pending)

	var redelivered redis.Delivery
	handled, err = q.Poll(ctx, func(_ context.Context, d redis.Delivery) error {
		redelivered = d
		return nil
	})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.True(t, redelivered.Reclaimed)
	assert.Equal(t, "b-1", redelivered.Notification.BookingID)

	pending, err = q.Pending(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestNotificationQueue_SurvivesConsumerRestart(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	first := redis.NewNotificationQueue(client, redis.QueueConfig{Consumer: "c-1", MinIdle: 0, Block: -1})
	require.NoError(t, first.Enqueue(ctx, testNotification(domain.NotificationBookingExpired)))

	// c-1 reads the entry and dies before acknowledging it
	_, err := first.Poll(ctx, func(context.Context, redis.Delivery) error { return errors.New("crash") })
	require.Error(t, err)

	second := redis.NewNotificationQueue(client, redis.QueueConfig{Consumer: "c-2", MinIdle: 0, Block: -1})
	var got domain.NotificationType
	handled, err := second.Poll(ctx, func(_ context.Context, d redis.Delivery) error {
		got = d.Notification.Type
		return nil
	})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, domain.NotificationBookingExpired, got)
}

func TestNotificationQueue_MalformedEntryIsDropped(t *testing.T) {
	ctx := context.Background()
	q, client := newQueue(t, "c-1")

	require.NoError(t, client.XAdd(ctx, &goredis.XAddArgs{
		Stream: q.Stream(),
		Values: map[string]any{"type": "booking_created"},
	}).Err())

	handled, err := q.Poll(ctx, func(context.Context, redis.Delivery) error {
		t.Fatal("handler called for malformed entry")
		return nil
	})
	assert.True(t, handled)
	assert.ErrorIs(t, err, redis.ErrMalformedNotification)

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}
