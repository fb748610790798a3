package platform

import (
	"context"
	"log/slog"
)

// NotificationsFunction is the platform function delivering notifications.
const NotificationsFunction = "send-notification"

type notificationRequest struct {
	Channel    string         `json:"channel"`
	Recipients []string       `json:"recipients"`
	Template   string         `json:"template,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// NotificationClient sends notifications through the send-notification function.
type NotificationClient struct {
	client *Client
}

func NewNotificationClient(logger *slog.Logger, baseURL string, opts ...Option) (*NotificationClient, error) {
	client, err := NewClient(logger, baseURL, opts...)
	if err != nil {
		return nil, err
	}

	return &NotificationClient{client: client}, nil
}

func (n *NotificationClient) Send(ctx context.Context, channel string, recipients []string, template string, data map[string]any) (any, error) {
	if recipients == nil {
		recipients = []string{}
	}

	return n.client.invoke(ctx, NotificationsFunction, notificationRequest{
		Channel:    channel,
		Recipients: recipients,
		Template:   template,
		Data:       data,
	})
}
