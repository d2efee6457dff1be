package notify

import (
	"context"
	"log/slog"

	"github.com/postwave/postwave/internal/models"
)

// Notifier alerts a user that some or all targets of a post failed to
// publish. Callers treat delivery as fire-and-forget: a notifier error is
// logged and swallowed, never propagated into the publish pipeline.
type Notifier interface {
	NotifyFailure(ctx context.Context, user *models.User, post *models.Post, reason string) error
}

// LogNotifier is the fallback sink when no alerting channel is configured.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) NotifyFailure(ctx context.Context, user *models.User, post *models.Post, reason string) error {
	userID := int64(0)
	if user != nil {
		userID = user.ID
	}
	slog.Error("post publication failed", "post_id", post.ID, "user_id", userID, "status", post.Status, "reason", reason)
	return nil
}
