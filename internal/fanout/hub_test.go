package fanout_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/khangpt2k6/bullroom/internal/domain"
	"github.com/khangpt2k6/bullroom/internal/fanout"
	"github.com/khangpt2k6/bullroom/internal/storage/redis"
	"github.com/khangpt2k6/bullroom/internal/testutil"
)

var at = time.Date(2025, 4, 1, 13, 0, 0, 0, time.UTC)

func update(roomID string, status domain.SlotStatus) domain.RoomUpdate {
	slot := domain.Slot{RoomID: roomID, Start: at.Add(time.Hour), End: at.Add(2 * time.Hour)}
	return domain.NewRoomUpdate(slot, status, "u-1", at)
}

func drain(s *fanout.Subscriber) []fanout.Frame {
	var out []fanout.Frame
	for {
		select {
		case f, ok := <-s.Frames():
			if !ok {
				return out
			}
			out = append(out, f)
		default:
			return out
		}
	}
}

func TestHub_RoutesByRoom(t *testing.T) {
	hub := fanout.NewHub(8, nil)
	lib := hub.Subscribe("LIB-224")
	defer lib.Close()
	all := hub.Subscribe()
	defer all.Close()

	hub.PublishRoomUpdate(update("LIB-224", domain.SlotHeld))
	hub.PublishRoomUpdate(update("MSC-101", domain.SlotHeld))

	libFrames := drain(lib)
	require.Len(t, libFrames, 3)
	assert.Equal(t, fanout.EventRoomStatus, libFrames[0].Event)
	assert.Equal(t, fanout.EventRoomUpdate, libFrames[1].Event)
	assert.Equal(t, fanout.EventRoomUpdate, libFrames[2].Event)

	status := libFrames[0].Data.(domain.RoomUpdate)
	assert.Equal(t, "u-1", status.UserID)
	global := libFrames[1].Data.(domain.RoomUpdate)
	assert.Empty(t, global.UserID, "global feed omits the user")

	allFrames := drain(all)
	require.Len(t, allFrames, 2)
	for _, f := range allFrames {
		assert.Equal(t, fanout.EventRoomUpdate, f.Event)
	}
}

func TestHub_WatchUnwatch(t *testing.T) {
	hub := fanout.NewHub(8, nil)
	s := hub.Subscribe()
	defer s.Close()

	s.Watch("ENB-110")
	assert.Equal(t, []string{"ENB-110"}, s.Rooms())
	hub.PublishRoomUpdate(update("ENB-110", domain.SlotBooked))
	assert.Len(t, drain(s), 2)

	s.Unwatch("ENB-110")
	hub.PublishRoomUpdate(update("ENB-110", domain.SlotAvailable))
	assert.Len(t, drain(s), 1)
}

func TestHub_FullBufferDropsForThatObserverOnly(t *testing.T) {
	hub := fanout.NewHub(2, nil)
	slow := hub.Subscribe()
	defer slow.Close()
	fast := hub.Subscribe()
	defer fast.Close()

	var got []fanout.Frame
	for i := 0; i < 5; i++ {
		hub.PublishRoomUpdate(update("LIB-224", domain.SlotHeld))
		got = append(got, drain(fast)...)
	}

	assert.Len(t, got, 5)
	assert.Len(t, drain(slow), 2)
}

func TestHub_NotificationAndClose(t *testing.T) {
	hub := fanout.NewHub(4, nil)
	s := hub.Subscribe()
	assert.Equal(t, 1, hub.Count())

	b := domain.Booking{ID: "b-1", UserID: "u-1", RoomID: "LIB-224", StartTime: at, EndTime: at.Add(time.Hour)}
	hub.PublishNotification(domain.NewNotification(domain.NotificationBookingConfirmed, b, at), at)

	frames := drain(s)
	require.Len(t, frames, 1)
	assert.Equal(t, fanout.EventNotification, frames[0].Event)
	n := frames[0].Data.(fanout.NotificationFrame)
	assert.Equal(t, "b-1", n.BookingID)
	assert.Contains(t, n.Message, "LIB-224")

	s.Close()
	s.Close()
	assert.Equal(t, 0, hub.Count())
	_, open := <-s.Frames()
	assert.False(t, open)
	assert.False(t, s.Send(fanout.Frame{Event: fanout.EventConnected}))
}

func TestHub_ConcurrentPublishers(t *testing.T) {
	hub := fanout.NewHub(1000, nil)
	s := hub.Subscribe("LIB-224")
	defer s.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				hub.PublishRoomUpdate(update("LIB-224", domain.SlotHeld))
			}
		}()
	}
	wg.Wait()
	assert.Len(t, drain(s), 200)
}

func TestHub_RelayFromRedis(t *testing.T) {
	_, client := testutil.NewRedis(t)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	bus := redis.NewUpdateBus(client, "", nil)
	hub := fanout.NewHub(8, nil)
	s := hub.Subscribe("LIB-224")
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Relay(ctx, bus) }()

	want := update("LIB-224", domain.SlotBooked)
	require.Eventually(t, func() bool {
		// publishing before the subscription is live is lost, so keep trying
		_ = bus.PublishRoomUpdate(context.Background(), want)
		select {
		case f := <-s.Frames():
			return f.Event == fanout.EventRoomStatus
		case <-time.After(20 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop")
	}
	_ = client.Close()
}
