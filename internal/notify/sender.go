package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/khangpt2k6/bullroom/internal/domain"
)

// Sender delivers one notification to its recipient. Deliveries may repeat
// after a crash; DedupKey identifies a logical message.
type Sender interface {
	Send(ctx context.Context, n domain.Notification) error
}

// LogSender writes the rendered message to the log instead of mailing it.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, n domain.Notification) error {
	s.log.Info("email notification",
		zap.String("dedup_key", n.DedupKey()),
		zap.String("user_id", n.UserID),
		zap.String("subject", n.Subject()),
		zap.String("body", n.Body()))
	return nil
}
