package steps

import (
	"context"
	"fmt"

	"github.com/dukex/siteflow/pkg/models"
	"github.com/dukex/siteflow/pkg/template"
)

func (e *Executor) executeAction(ctx context.Context, req Request, config *models.ActionConfig) (any, error) {
	if e.actions == nil {
		return nil, fmt.Errorf("action %s: no action executor configured", config.Action)
	}

	data := template.ResolveMap(config.Data, req.Variables)

	result, err := e.call(ctx, req.RetryPolicy, func(ctx context.Context) (any, error) {
		return e.actions.Execute(ctx, config.Action, data, req.UserID, projectID(req))
	})
	if err != nil {
		return nil, fmt.Errorf("action %s failed: %w", config.Action, err)
	}

	return result, nil
}
