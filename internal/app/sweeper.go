package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/khangpt2k6/bullroom/internal/metrics"
)

type dueExpirer interface {
	ExpireDue(ctx context.Context, limit int) (int, error)
}

const (
	defaultSweepInterval = 30 * time.Second
	defaultSweepBatch    = 100
)

// Sweeper periodically expires PENDING bookings whose confirmation window
// has elapsed, so the durable record converges without a reader touching it.
type Sweeper struct {
	bookings dueExpirer
	interval time.Duration
	batch    int
	log      *zap.Logger
}

func NewSweeper(bookings dueExpirer, interval time.Duration, batch int, log *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{
		bookings: bookings,
		interval: interval,
		batch:    batch,
		log:      log,
	}
}

// Run sweeps on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("expiry sweeper started", zap.Duration("interval", s.interval), zap.Int("batch", s.batch))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("expiry sweeper stopped")
			return nil
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
				s.log.Warn("expiry sweep failed", zap.Error(err))
			}
		}
	}
}

// SweepOnce drains due bookings in batches and returns the number expired.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	total := 0
	for {
		n, err := s.bookings.ExpireDue(ctx, s.batch)
		total += n
		if n > 0 {
			metrics.SweeperExpiredTotal.Add(float64(n))
		}
		if err != nil {
			return total, err
		}
		if n < s.batch {
			break
		}
	}
	if total > 0 {
		s.log.Info("expired lapsed holds", zap.Int("count", total))
	}
	return total, nil
}
