package service

import (
	"context"
	"log/slog"

	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

// LogNotificationSink implements command.NotificationSink by writing
// notifications to the log. The hub has no delivery channel of its own
// yet; the corporate messenger integration will replace this.
type LogNotificationSink struct {
	logger *slog.Logger
}

func NewLogNotificationSink(logger *slog.Logger) *LogNotificationSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotificationSink{logger: logger}
}

func (s *LogNotificationSink) Notify(ctx context.Context, userID shared.UserID, title, body, category string) error {
	s.logger.InfoContext(ctx, "notification",
		"user_id", string(userID),
		"category", category,
		"title", title,
		"body", body,
	)
	return nil
}
