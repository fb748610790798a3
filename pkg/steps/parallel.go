package steps

import (
	"context"
	"fmt"
	"sync"

	"github.com/dukex/siteflow/pkg/models"
	"github.com/dukex/siteflow/pkg/template"
	"golang.org/x/sync/errgroup"
)

// executeParallel fans the sub actions out concurrently. Any failure fails
// the step and no partial results are returned.
func (e *Executor) executeParallel(ctx context.Context, req Request, config *models.ParallelConfig) (any, error) {
	if e.actions == nil {
		return nil, fmt.Errorf("parallel step %s: no action executor configured", req.Step.ID)
	}

	var (
		mu      sync.Mutex
		results = make(map[string]any, len(config.Steps))
	)

	group, groupCtx := errgroup.WithContext(ctx)

	for _, sub := range config.Steps {
		data := template.ResolveMap(sub.Data, req.Variables)

		group.Go(func() error {
			result, err := e.call(groupCtx, req.RetryPolicy, func(ctx context.Context) (any, error) {
				return e.actions.Execute(ctx, sub.Action, data, req.UserID, projectID(req))
			})
			if err != nil {
				return &SubActionError{SubStepID: sub.ID, Action: sub.Action, Err: err}
			}

			mu.Lock()
			results[sub.ID] = result
			mu.Unlock()

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
