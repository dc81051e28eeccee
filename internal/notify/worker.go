package notify

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/khangpt2k6/bullroom/internal/clock"
	"github.com/khangpt2k6/bullroom/internal/domain"
	"github.com/khangpt2k6/bullroom/internal/metrics"
	"github.com/khangpt2k6/bullroom/internal/storage/redis"
)

// Queue hands out one pending notification per call.
type Queue interface {
	Poll(ctx context.Context, handler redis.NotificationHandler) (bool, error)
}

// Broadcaster receives delivered notifications for connected observers.
type Broadcaster interface {
	PublishNotification(n domain.Notification, at time.Time)
}

const maxPollBackoff = 10 * time.Second

// Worker drains the notification queue into a Sender. A failed send leaves
// the entry pending; the queue hands it out again once it has been idle.
type Worker struct {
	queue  Queue
	sender Sender
	hub    Broadcaster
	clock  clock.Clock
	log    *zap.Logger
	idle   time.Duration
}

type WorkerOption func(*Worker)

func WithBroadcaster(b Broadcaster) WorkerOption {
	return func(w *Worker) { w.hub = b }
}

func WithLogger(l *zap.Logger) WorkerOption {
	return func(w *Worker) {
		if l != nil {
			w.log = l
		}
	}
}

// WithIdleDelay sets how long Run waits after an empty poll. Queues that
// block on read need none.
func WithIdleDelay(d time.Duration) WorkerOption {
	return func(w *Worker) { w.idle = d }
}

func NewWorker(q Queue, s Sender, clk clock.Clock, opts ...WorkerOption) *Worker {
	w := &Worker{
		queue:  q,
		sender: s,
		clock:  clk,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ProcessOne handles at most one notification and reports whether one was
// taken from the queue.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	return w.queue.Poll(ctx, w.handle)
}

func (w *Worker) handle(ctx context.Context, d redis.Delivery) error {
	n := d.Notification
	if err := w.sender.Send(ctx, n); err != nil {
		metrics.NotificationsTotal.WithLabelValues(metrics.NotifyFailed).Inc()
		return err
	}
	metrics.NotificationsTotal.WithLabelValues(metrics.NotifyDelivered).Inc()
	w.log.Debug("notification delivered",
		zap.String("stream_id", d.StreamID),
		zap.String("booking_id", n.BookingID),
		zap.String("type", string(n.Type)),
		zap.Bool("reclaimed", d.Reclaimed))
	if w.hub != nil {
		w.hub.PublishNotification(n, w.clock.Now())
	}
	return nil
}

// Run processes notifications until ctx is cancelled. Store outages back
// off exponentially; send failures are logged and left for redelivery.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("notification worker started")
	defer w.log.Info("notification worker stopped")

	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = maxPollBackoff

	for {
		if ctx.Err() != nil {
			return nil
		}

		handled, err := w.ProcessOne(ctx)
		var wait time.Duration
		switch {
		case err != nil && errors.Is(err, domain.ErrStoreUnavailable):
			wait = bo.NextBackOff()
			w.log.Warn("notification queue unavailable", zap.Duration("retry_in", wait), zap.Error(err))
		case err != nil && ctx.Err() == nil:
			bo.Reset()
			w.log.Warn("notification not delivered", zap.Error(err))
		case err == nil:
			bo.Reset()
			if !handled {
				wait = w.idle
			}
		}
		if wait <= 0 {
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}
