package redis

import (
	"context"
	"encoding/json"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/khangpt2k6/bullroom/internal/domain"
)

const DefaultUpdatesChannel = "room:updates"

// UpdateBus carries RoomUpdate events over Redis pub/sub. Delivery is
// at-most-once; a subscriber that was not connected misses the event.
type UpdateBus struct {
	client  goredis.UniversalClient
	channel string
	log     *zap.Logger
}

func NewUpdateBus(client goredis.UniversalClient, channel string, log *zap.Logger) *UpdateBus {
	if channel == "" {
		channel = DefaultUpdatesChannel
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &UpdateBus{client: client, channel: channel, log: log}
}

func (b *UpdateBus) Channel() string {
	return b.channel
}

func (b *UpdateBus) PublishRoomUpdate(ctx context.Context, ev domain.RoomUpdate) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return mapErr("publish room update", b.client.Publish(ctx, b.channel, payload).Err())
}

// Subscribe delivers every decoded event to handle until ctx is cancelled.
// Undecodable payloads are logged and skipped.
func (b *UpdateBus) Subscribe(ctx context.Context, handle func(domain.RoomUpdate)) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer func() { _ = sub.Close() }()

	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return mapErr("subscribe room updates", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev domain.RoomUpdate
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.log.Warn("drop malformed room update", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			handle(ev)
		}
	}
}
