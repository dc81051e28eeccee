package fanout

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/khangpt2k6/bullroom/internal/domain"
	"github.com/khangpt2k6/bullroom/internal/metrics"
)

// Frame names sent to observers.
const (
	EventConnected    = "connected"
	EventSubscribed   = "subscribed"
	EventUnsubscribed = "unsubscribed"
	EventRoomStatus   = "room:status"
	EventRoomUpdate   = "room:update"
	EventNotification = "notification"
)

const DefaultBuffer = 64

// Frame is one message pushed to an observer.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// NotificationFrame is the observer-facing view of a delivered notification.
type NotificationFrame struct {
	Type      domain.NotificationType `json:"type"`
	BookingID string                  `json:"bookingId"`
	RoomID    string                  `json:"roomId"`
	Message   string                  `json:"message"`
	Timestamp time.Time               `json:"timestamp"`
}

// UpdateSource delivers room updates to handle until ctx ends.
type UpdateSource interface {
	Subscribe(ctx context.Context, handle func(domain.RoomUpdate)) error
}

// Hub routes room updates and notifications to connected observers. Every
// observer owns a bounded buffer; when it is full the frame is dropped for
// that observer only.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscriber
	nextID uint64
	buffer int
	log    *zap.Logger
}

func NewHub(buffer int, log *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		subs:   make(map[uint64]*Subscriber),
		buffer: buffer,
		log:    log,
	}
}

// Subscribe registers an observer watching rooms. An observer with no rooms
// still receives the global room:update feed and notifications.
func (h *Hub) Subscribe(rooms ...string) *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	s := &Subscriber{
		id:    h.nextID,
		hub:   h,
		ch:    make(chan Frame, h.buffer),
		rooms: make(map[string]struct{}, len(rooms)),
	}
	for _, r := range rooms {
		if r != "" {
			s.rooms[r] = struct{}{}
		}
	}
	h.subs[s.id] = s
	metrics.FanoutSubscribers.Inc()
	return s
}

func (h *Hub) remove(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s.id]; !ok {
		return
	}
	delete(h.subs, s.id)
	close(s.ch)
	metrics.FanoutSubscribers.Dec()
}

// Count returns the number of connected observers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// PublishRoomUpdate sends room:status to observers of the room and
// room:update to everyone.
func (h *Hub) PublishRoomUpdate(ev domain.RoomUpdate) {
	status := Frame{Event: EventRoomStatus, Data: ev}
	global := ev
	global.UserID = ""
	update := Frame{Event: EventRoomUpdate, Data: global}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subs {
		if s.watches(ev.RoomID) {
			s.offer(status)
		}
		s.offer(update)
	}
}

// PublishNotification sends a notification frame to every observer.
func (h *Hub) PublishNotification(n domain.Notification, at time.Time) {
	f := Frame{Event: EventNotification, Data: NotificationFrame{
		Type:      n.Type,
		BookingID: n.BookingID,
		RoomID:    n.RoomID,
		Message:   n.Body(),
		Timestamp: at,
	}}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subs {
		s.offer(f)
	}
}

// Relay feeds updates from src into the hub until ctx ends. A source
// failure is returned so the caller can restart it.
func (h *Hub) Relay(ctx context.Context, src UpdateSource) error {
	h.log.Info("relaying room updates")
	err := src.Subscribe(ctx, h.PublishRoomUpdate)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Subscriber is one observer registered with a Hub.
type Subscriber struct {
	id  uint64
	hub *Hub
	ch  chan Frame

	mu    sync.RWMutex
	rooms map[string]struct{}

	closeOnce sync.Once
}

// Frames is closed when the subscriber is closed.
func (s *Subscriber) Frames() <-chan Frame {
	return s.ch
}

func (s *Subscriber) Watch(roomID string) {
	if roomID == "" {
		return
	}
	s.mu.Lock()
	s.rooms[roomID] = struct{}{}
	s.mu.Unlock()
}

func (s *Subscriber) Unwatch(roomID string) {
	s.mu.Lock()
	delete(s.rooms, roomID)
	s.mu.Unlock()
}

func (s *Subscriber) Rooms() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.rooms))
	for r := range s.rooms {
		out = append(out, r)
	}
	return out
}

func (s *Subscriber) watches(roomID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[roomID]
	return ok
}

// Send queues a frame for this subscriber only. It reports false when the
// frame was dropped.
func (s *Subscriber) Send(f Frame) bool {
	s.hub.mu.RLock()
	defer s.hub.mu.RUnlock()
	if _, ok := s.hub.subs[s.id]; !ok {
		return false
	}
	return s.offer(f)
}

// offer must be called with the hub lock held.
func (s *Subscriber) offer(f Frame) bool {
	select {
	case s.ch <- f:
		return true
	default:
		metrics.FanoutDroppedTotal.Inc()
		return false
	}
}

func (s *Subscriber) Close() {
	s.closeOnce.Do(func() { s.hub.remove(s) })
}
