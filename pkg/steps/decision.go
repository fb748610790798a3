package steps

import (
	"github.com/dukex/siteflow/pkg/conditional"
	"github.com/dukex/siteflow/pkg/models"
)

// executeDecision returns the output of the first rule that holds. Rules are
// tried in declaration order.
func (e *Executor) executeDecision(req Request, config *models.DecisionConfig) (any, error) {
	for index, rule := range config.Rules {
		matched := rule.Default
		if !matched && rule.Condition != nil {
			matched = conditional.Evaluate(*rule.Condition, req.Variables)
		}

		if !matched {
			continue
		}

		req.record(models.EventDecisionMade, map[string]any{
			"output":  rule.Output,
			"rule":    index,
			"default": rule.Default,
		})

		return map[string]any{"output": rule.Output}, nil
	}

	return nil, ErrNoDecisionRuleMatched
}
