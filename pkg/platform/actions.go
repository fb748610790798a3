package platform

import (
	"context"
	"log/slog"
)

// ActionsFunction is the platform function executing business actions.
const ActionsFunction = "platform-actions"

type actionRequest struct {
	Action    string         `json:"action"`
	Resource  string         `json:"resource"`
	Data      map[string]any `json:"data"`
	UserID    string         `json:"user_id,omitempty"`
	ProjectID string         `json:"project_id,omitempty"`
}

// ActionClient executes actions through the platform-actions function.
type ActionClient struct {
	client *Client
}

func NewActionClient(logger *slog.Logger, baseURL string, opts ...Option) (*ActionClient, error) {
	client, err := NewClient(logger, baseURL, opts...)
	if err != nil {
		return nil, err
	}

	return &ActionClient{client: client}, nil
}

func (a *ActionClient) Execute(ctx context.Context, action string, data map[string]any, userID, projectID string) (any, error) {
	if data == nil {
		data = map[string]any{}
	}

	return a.client.invoke(ctx, ActionsFunction, actionRequest{
		Action:    "execute",
		Resource:  action,
		Data:      data,
		UserID:    userID,
		ProjectID: projectID,
	})
}
