package registry

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dukex/siteflow/pkg/models"
	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

// ErrInvalidDefinition is wrapped by every registration validation failure.
var ErrInvalidDefinition = errors.New("invalid workflow definition")

// ValidationError lists every problem found in a definition.
type ValidationError struct {
	DefinitionID string
	Problems     []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid workflow definition %s: %s", e.DefinitionID, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidDefinition
}

// IsInvalidDefinition checks if an error indicates a rejected definition.
func IsInvalidDefinition(err error) bool {
	return errors.Is(err, ErrInvalidDefinition)
}

// Validate checks a definition before registration: struct constraints, the
// config shape of every step, trigger settings and the dependency graph.
// Cycles are not rejected here; the runner reports them as a deadlock.
func Validate(v *validator.Validate, definition *models.WorkflowDefinition) error {
	if definition == nil {
		return &ValidationError{Problems: []string{"definition is nil"}}
	}

	var problems []string

	if err := v.Struct(definition); err != nil {
		problems = append(problems, err.Error())
	}

	problems = append(problems, validateTrigger(definition.Trigger)...)

	ids := make(map[string]bool, len(definition.Steps))

	for _, step := range definition.Steps {
		if step == nil {
			continue
		}

		if ids[step.ID] {
			problems = append(problems, fmt.Sprintf("duplicate step id %q", step.ID))
		}

		ids[step.ID] = true
	}

	for _, step := range definition.Steps {
		if step == nil {
			continue
		}

		problems = append(problems, validateStep(v, step, ids)...)
	}

	problems = append(problems, validateOutputs(definition)...)

	if len(problems) > 0 {
		return &ValidationError{DefinitionID: definition.ID, Problems: problems}
	}

	return nil
}

func validateTrigger(trigger models.Trigger) []string {
	switch trigger.Type {
	case models.TriggerTypeSchedule:
		if _, err := ParseSchedule(trigger); err != nil {
			return []string{err.Error()}
		}
	case models.TriggerTypeEvent:
		if trigger.EventName() == "" {
			return []string{"event trigger requires config.event"}
		}
	case models.TriggerTypeManual, models.TriggerTypeCondition:
	}

	return nil
}

// ScheduleSpec returns the cron spec of a schedule trigger, prefixed with
// CRON_TZ when a timezone is configured.
func ScheduleSpec(trigger models.Trigger) string {
	if tz := trigger.Timezone(); tz != "" {
		return "CRON_TZ=" + tz + " " + trigger.CronExpression()
	}

	return trigger.CronExpression()
}

// ParseSchedule parses the cron expression and timezone of a schedule trigger.
func ParseSchedule(trigger models.Trigger) (cron.Schedule, error) {
	if trigger.CronExpression() == "" {
		return nil, errors.New("schedule trigger requires config.cron")
	}

	if tz := trigger.Timezone(); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return nil, fmt.Errorf("invalid schedule timezone %q: %w", tz, err)
		}
	}

	schedule, err := cron.ParseStandard(ScheduleSpec(trigger))
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", trigger.CronExpression(), err)
	}

	return schedule, nil
}

func validateStep(v *validator.Validate, step *models.Step, ids map[string]bool) []string {
	var problems []string

	prefix := "step " + step.ID + ": "

	if step.ID == "" {
		problems = append(problems, "step id is required")
	}

	if step.Config == nil {
		return append(problems, prefix+"config is required")
	}

	if step.Config.Kind() != step.Kind {
		problems = append(problems, fmt.Sprintf("%sconfig of kind %s does not match step type %s", prefix, step.Config.Kind(), step.Kind))
	}

	if err := validateConfigSchema(step); err != nil {
		problems = append(problems, prefix+err.Error())
	}

	if err := v.Struct(step.Config); err != nil {
		problems = append(problems, prefix+err.Error())
	}

	for _, condition := range step.Conditions {
		if err := v.Struct(condition); err != nil {
			problems = append(problems, prefix+err.Error())
		}
	}

	for _, dependency := range step.Dependencies {
		switch {
		case dependency == step.ID:
			problems = append(problems, prefix+"depends on itself")
		case !ids[dependency]:
			problems = append(problems, fmt.Sprintf("%sunknown dependency %q", prefix, dependency))
		}
	}

	switch config := step.Config.(type) {
	case *models.DecisionConfig:
		if !config.HasDefault() {
			problems = append(problems, prefix+"decision requires a default rule")
		}
	case *models.ParallelConfig:
		seen := map[string]bool{}

		for _, sub := range config.Steps {
			if seen[sub.ID] {
				problems = append(problems, fmt.Sprintf("%sduplicate sub action id %q", prefix, sub.ID))
			}

			seen[sub.ID] = true
		}
	}

	return problems
}

// validateOutputs rejects variable and output keys that shadow step results
// and keys written by two steps that may run in the same round.
func validateOutputs(definition *models.WorkflowDefinition) []string {
	var problems []string

	for key := range definition.Variables {
		if _, isStep := definition.Step(key); isStep {
			problems = append(problems, fmt.Sprintf("variable %q shadows a step result", key))
		}
	}

	ancestors := ancestorSets(definition)
	writers := map[string][]string{}

	for _, step := range definition.Steps {
		if step == nil {
			continue
		}

		for key := range step.Outputs {
			if _, isStep := definition.Step(key); isStep {
				problems = append(problems, fmt.Sprintf("step %s: output %q shadows a step result", step.ID, key))
			}

			writers[key] = append(writers[key], step.ID)
		}
	}

	keys := make([]string, 0, len(writers))
	for key := range writers {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	for _, key := range keys {
		stepIDs := writers[key]

		for i := range stepIDs {
			for j := i + 1; j < len(stepIDs); j++ {
				a, b := stepIDs[i], stepIDs[j]
				if !ancestors[a][b] && !ancestors[b][a] {
					problems = append(problems, fmt.Sprintf("steps %s and %s may run concurrently and both write output %q", a, b, key))
				}
			}
		}
	}

	return problems
}

// ancestorSets returns, per step, every step it transitively depends on.
func ancestorSets(definition *models.WorkflowDefinition) map[string]map[string]bool {
	deps := map[string][]string{}

	for _, step := range definition.Steps {
		if step != nil {
			deps[step.ID] = step.Dependencies
		}
	}

	result := make(map[string]map[string]bool, len(deps))

	for id := range deps {
		seen := map[string]bool{}
		stack := slices.Clone(deps[id])

		for len(stack) > 0 {
			current := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if seen[current] {
				continue
			}

			seen[current] = true
			stack = append(stack, deps[current]...)
		}

		result[id] = seen
	}

	return result
}
