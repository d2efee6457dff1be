package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/postwave/postwave/internal/models"
	"github.com/slack-go/slack"
)

// SlackNotifier posts publish failures to an alert channel.
type SlackNotifier struct {
	client  *slack.Client
	channel string
}

func NewSlackNotifier(token, channel string) *SlackNotifier {
	return &SlackNotifier{
		client:  slack.New(token),
		channel: channel,
	}
}

func (n *SlackNotifier) NotifyFailure(ctx context.Context, user *models.User, post *models.Post, reason string) error {
	who := "unknown user"
	if user != nil {
		who = fmt.Sprintf("%s <%s>", user.Name, user.Email)
	}

	text := fmt.Sprintf("Post %d (%s) for %s ended in status %q:\n%s",
		post.ID, post.Title, who, post.Status, reason)

	_, _, err := n.client.PostMessageContext(ctx, n.channel,
		slack.MsgOptionText(text, false),
	)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
