package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/khangpt2k6/bullroom/internal/domain"
)

const (
	DefaultNotifyStream = "notifications:email"
	DefaultNotifyGroup  = "notifier"

	// DefaultMinIdle is the idle duration before an unacknowledged
	// notification is reclaimed by another poll
	DefaultMinIdle = 30 * time.Second

	DefaultBlock = 2 * time.Second

	payloadField = "payload"
)

var ErrMalformedNotification = errors.New("notification record malformed")

type QueueConfig struct {
	Stream   string
	Group    string
	Consumer string
	MinIdle  time.Duration
	// Block bounds how long a poll waits for new entries; negative means
	// do not wait.
	Block time.Duration
}

// Delivery is one notification read from the stream.
type Delivery struct {
	StreamID     string
	Notification domain.Notification
	// Reclaimed is set when the entry was taken over after MinIdle.
	Reclaimed bool
}

// NotificationHandler processes one delivery. Returning an error leaves the
// entry pending so it is redelivered.
type NotificationHandler func(context.Context, Delivery) error

// NotificationQueue is a durable at-least-once queue on a Redis stream read
// through a consumer group.
type NotificationQueue struct {
	client     goredis.UniversalClient
	cfg        QueueConfig
	consumeLua *goredis.Script

	groupMu    sync.Mutex
	groupReady bool
}

func NewNotificationQueue(client goredis.UniversalClient, cfg QueueConfig) *NotificationQueue {
	if cfg.Stream == "" {
		cfg.Stream = DefaultNotifyStream
	}
	if cfg.Group == "" {
		cfg.Group = DefaultNotifyGroup
	}
	if cfg.Consumer == "" {
		cfg.Consumer = "consumer-1"
	}
	if cfg.MinIdle < 0 {
		cfg.MinIdle = DefaultMinIdle
	}
	if cfg.Block == 0 {
		cfg.Block = DefaultBlock
	}
	return &NotificationQueue{
		client:     client,
		cfg:        cfg,
		consumeLua: goredis.NewScript(luaConsumeNotification),
	}
}

func (q *NotificationQueue) Stream() string {
	return q.cfg.Stream
}

func (q *NotificationQueue) Enqueue(ctx context.Context, n domain.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	err = q.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: q.cfg.Stream,
		Values: map[string]any{
			"type":       string(n.Type),
			"booking_id": n.BookingID,
			payloadField: string(payload),
		},
	}).Err()
	return mapErr("enqueue notification", err)
}

// Poll handles at most one notification, preferring entries abandoned by a
// failed or crashed consumer. It reports whether an entry was handled.
func (q *NotificationQueue) Poll(ctx context.Context, handler NotificationHandler) (bool, error) {
	if handler == nil {
		return false, errors.New("notification handler is required")
	}
	if err := q.ensureGroup(ctx); err != nil {
		return false, err
	}

	msg, reclaimed, err := q.next(ctx)
	if err != nil || msg == nil {
		return false, err
	}

	d, err := parseDelivery(*msg)
	if err != nil {
		// a poison entry would be reclaimed forever
		_ = q.ack(ctx, msg.ID)
		return true, err
	}
	d.Reclaimed = reclaimed

	if err := handler(ctx, d); err != nil {
		return true, err
	}
	return true, q.ack(ctx, msg.ID)
}

// Pending returns the number of delivered but unacknowledged entries.
func (q *NotificationQueue) Pending(ctx context.Context) (int64, error) {
	if err := q.ensureGroup(ctx); err != nil {
		return 0, err
	}
	res, err := q.client.XPending(ctx, q.cfg.Stream, q.cfg.Group).Result()
	if err != nil {
		return 0, mapErr("pending notifications", err)
	}
	return res.Count, nil
}

func (q *NotificationQueue) next(ctx context.Context) (*goredis.XMessage, bool, error) {
	msgs, _, err := q.client.XAutoClaim(ctx, &goredis.XAutoClaimArgs{
		Stream:   q.cfg.Stream,
		Group:    q.cfg.Group,
		Consumer: q.cfg.Consumer,
		MinIdle:  q.cfg.MinIdle,
		Start:    "0-0",
		Count:    1,
	}).Result()
	if err != nil {
		return nil, false, mapErr("reclaim notification", err)
	}
	if len(msgs) > 0 {
		return &msgs[0], true, nil
	}

	streams, err := q.client.XReadGroup(ctx, &goredis.XReadGroupArgs{
		Group:    q.cfg.Group,
		Consumer: q.cfg.Consumer,
		Streams:  []string{q.cfg.Stream, ">"},
		Count:    1,
		Block:    q.cfg.Block,
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, mapErr("read notification", err)
	}
	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, false, nil
	}
	return &streams[0].Messages[0], false, nil
}

func (q *NotificationQueue) ack(ctx context.Context, id string) error {
	_, err := q.consumeLua.Run(ctx, q.client, []string{q.cfg.Stream}, q.cfg.Group, id).Result()
	return mapErr("ack notification", err)
}

func (q *NotificationQueue) ensureGroup(ctx context.Context) error {
	q.groupMu.Lock()
	defer q.groupMu.Unlock()
	if q.groupReady {
		return nil
	}
	err := q.client.XGroupCreateMkStream(ctx, q.cfg.Stream, q.cfg.Group, "0-0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return mapErr("create consumer group", err)
	}
	q.groupReady = true
	return nil
}

func parseDelivery(msg goredis.XMessage) (Delivery, error) {
	raw, ok := msg.Values[payloadField]
	if !ok {
		return Delivery{}, ErrMalformedNotification
	}
	payload, ok := raw.(string)
	if !ok {
		return Delivery{}, ErrMalformedNotification
	}
	var n domain.Notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return Delivery{}, errors.Join(ErrMalformedNotification, err)
	}
	return Delivery{StreamID: msg.ID, Notification: n}, nil
}
