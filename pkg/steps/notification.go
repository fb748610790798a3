package steps

import (
	"context"
	"fmt"
	"maps"

	"github.com/dukex/siteflow/pkg/models"
	"github.com/dukex/siteflow/pkg/template"
)

func (e *Executor) executeNotification(ctx context.Context, req Request, config *models.NotificationConfig) (any, error) {
	if e.notifications == nil {
		return nil, fmt.Errorf("notification %s: no dispatcher configured", config.Template)
	}

	deliveries := make([]any, 0, len(config.EffectiveChannels()))

	for _, channel := range config.EffectiveChannels() {
		recipients := ResolveRecipients(config.Recipients.For(channel), req.Variables)
		data := maps.Clone(req.Variables)

		result, err := e.call(ctx, req.RetryPolicy, func(ctx context.Context) (any, error) {
			return e.notifications.Send(ctx, channel, recipients, config.Template, data)
		})
		if err != nil {
			return nil, fmt.Errorf("notification on channel %s failed: %w", channel, err)
		}

		deliveries = append(deliveries, map[string]any{
			"channel":    channel,
			"recipients": recipients,
			"result":     result,
		})
	}

	return map[string]any{"notifications": deliveries}, nil
}

// ResolveRecipients replaces {{path}} entries with the variables they name.
// Lists are flattened and absent variables dropped.
func ResolveRecipients(recipients []string, vars map[string]any) []string {
	resolved := make([]string, 0, len(recipients))

	for _, recipient := range recipients {
		if _, ok := template.Placeholder(recipient); !ok {
			resolved = append(resolved, recipient)

			continue
		}

		switch value := template.Resolve(recipient, vars).(type) {
		case nil:
		case string:
			resolved = append(resolved, value)
		case []string:
			resolved = append(resolved, value...)
		case []any:
			for _, item := range value {
				if item != nil {
					resolved = append(resolved, fmt.Sprint(item))
				}
			}
		default:
			resolved = append(resolved, fmt.Sprint(value))
		}
	}

	return resolved
}
