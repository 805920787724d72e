package notifications

import (
	"context"
	"log/slog"

	"swap/internal/models"
	"swap/internal/observability"
)

// PushSender delivers a chat message to the recipient's devices. The
// actual transport (FCM, APNs, ...) lives outside this codebase; callers
// treat a failure as terminal for that delivery attempt and never retry.
type PushSender interface {
	Send(ctx context.Context, msg *models.Message, recipientID uint) error
}

// LogPushSender is the default PushSender: it records the dispatch and
// delivers nothing. Used in development and as a stand-in until a real
// transport is configured.
type LogPushSender struct {
	logger *slog.Logger
}

// NewLogPushSender returns a PushSender that only logs.
func NewLogPushSender(logger *slog.Logger) *LogPushSender {
	if logger == nil {
		logger = observability.Logger
	}
	return &LogPushSender{logger: logger}
}

func (s *LogPushSender) Send(ctx context.Context, msg *models.Message, recipientID uint) error {
	s.logger.InfoContext(ctx, "push dispatch",
		slog.Uint64("message_id", uint64(msg.ID)),
		slog.Uint64("recipient_id", uint64(recipientID)),
	)
	return nil
}
