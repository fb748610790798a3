package cmd

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukex/siteflow/pkg/platform"
)

// Collaborators holds the platform clients the engine calls out to.
type Collaborators struct {
	Actions       *platform.ActionClient
	Notifications *platform.NotificationClient
}

// NewCollaborators creates the platform-actions and send-notification
// clients. Both share one HTTP client and bearer token.
func NewCollaborators(logger *slog.Logger, actionsURL, notificationsURL, token string, timeout time.Duration) (*Collaborators, error) {
	opts := []platform.Option{
		platform.WithHTTPClient(&http.Client{Timeout: timeout}),
	}

	if token != "" {
		opts = append(opts, platform.WithToken(token))
	}

	actions, err := platform.NewActionClient(logger, actionsURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("actions client: %w", err)
	}

	if notificationsURL == "" {
		notificationsURL = actionsURL
	}

	notifications, err := platform.NewNotificationClient(logger, notificationsURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("notifications client: %w", err)
	}

	return &Collaborators{Actions: actions, Notifications: notifications}, nil
}
