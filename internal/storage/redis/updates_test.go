package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khangpt2k6/bullroom/internal/domain"
	"github.com/khangpt2k6/bullroom/internal/storage/redis"
)

func TestUpdateBus_PublishSubscribe(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	bus := redis.NewUpdateBus(client, "", nil)
	assert.Equal(t, redis.DefaultUpdatesChannel, bus.Channel())

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan domain.RoomUpdate, 4)
	done := make(chan error, 1)
	go func() {
		done <- bus.Subscribe(ctx, func(ev domain.RoomUpdate) { got <- ev })
	}()

	require.Eventually(t, func() bool {
		n, err := client.PubSubNumSub(ctx, bus.Channel()).Result()
		return err == nil && n[bus.Channel()] == 1
	}, 2*time.Second, 10*time.Millisecond)

	// malformed payloads are skipped
	require.NoError(t, client.Publish(ctx, bus.Channel(), "not json").Err())

	slot := testSlot()
	at := time.Date(2025, 4, 1, 13, 0, 0, 0, time.UTC)
	want := domain.NewRoomUpdate(slot, domain.SlotHeld, "alice", at)
	require.NoError(t, bus.PublishRoomUpdate(ctx, want))

	select {
	case ev := <-got:
		assert.Equal(t, want.RoomID, ev.RoomID)
		assert.Equal(t, want.TimeSlot, ev.TimeSlot)
		assert.Equal(t, domain.SlotHeld, ev.Status)
		assert.Equal(t, "alice", ev.UserID)
		assert.True(t, ev.Timestamp.Equal(at))
	case <-time.After(2 * time.Second):
		t.Fatal("room update not delivered")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Subscribe did not return after cancel")
	}
}

func TestUpdateBus_PublishUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer func() { _ = client.Close() }()
	mr.Close()

	bus := redis.NewUpdateBus(client, "room:updates", nil)
	err := bus.PublishRoomUpdate(context.Background(), domain.RoomUpdate{RoomID: "LIB-224"})
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}
