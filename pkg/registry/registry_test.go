package registry_test

import (
	"log/slog"
	"testing"
	"testing/fstest"

	"github.com/dukex/siteflow/pkg/models"
	"github.com/dukex/siteflow/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func actionStep(id string, deps ...string) *models.Step {
	return &models.Step{
		ID:           id,
		Kind:         models.StepKindAction,
		Config:       &models.ActionConfig{Action: "do-" + id},
		Dependencies: deps,
	}
}

func definition(steps ...*models.Step) *models.WorkflowDefinition {
	return &models.WorkflowDefinition{
		ID:      "test-workflow",
		Name:    "Test Workflow",
		Trigger: models.Trigger{Type: models.TriggerTypeManual},
		Steps:   steps,
	}
}

func TestRegistry_RegisterAndList(t *testing.T) {
	t.Parallel()

	r := registry.NewRegistry(slog.Default())

	first := definition(actionStep("a"))
	second := definition(actionStep("b"))
	second.ID = "another"

	require.NoError(t, r.Register(first))
	require.NoError(t, r.Register(second))

	got, ok := r.Get("test-workflow")
	require.True(t, ok)
	assert.Same(t, first, got)

	_, ok = r.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, []*models.WorkflowDefinition{first, second}, r.List())

	replacement := definition(actionStep("c"))
	require.NoError(t, r.Register(replacement))

	assert.Equal(t, 2, r.Len())
	got, _ = r.Get("test-workflow")
	assert.Same(t, replacement, got)
}

func TestRegistry_RejectsInvalidDefinitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		definition *models.WorkflowDefinition
		problem    string
	}{
		{
			name:       "no steps",
			definition: definition(),
			problem:    "Steps",
		},
		{
			name:       "duplicate ids",
			definition: definition(actionStep("a"), actionStep("a")),
			problem:    `duplicate step id "a"`,
		},
		{
			name:       "unknown dependency",
			definition: definition(actionStep("a", "ghost")),
			problem:    `unknown dependency "ghost"`,
		},
		{
			name:       "self dependency",
			definition: definition(actionStep("a", "a")),
			problem:    "depends on itself",
		},
		{
			name: "action without name",
			definition: definition(&models.Step{
				ID: "a", Kind: models.StepKindAction, Config: &models.ActionConfig{},
			}),
			problem: "config schema validation failed",
		},
		{
			name: "kind mismatch",
			definition: definition(&models.Step{
				ID: "a", Kind: models.StepKindWait, Config: &models.ActionConfig{Action: "x"},
			}),
			problem: "does not match step type",
		},
		{
			name: "decision without default",
			definition: definition(&models.Step{
				ID: "route", Kind: models.StepKindDecision, Config: &models.DecisionConfig{Rules: []models.DecisionRule{
					{Condition: &models.Condition{Field: "x", Operator: models.OperatorExists}, Output: "y"},
				}},
			}),
			problem: "decision requires a default rule",
		},
		{
			name: "decision rule without condition",
			definition: definition(&models.Step{
				ID: "route", Kind: models.StepKindDecision, Config: &models.DecisionConfig{Rules: []models.DecisionRule{
					{Output: "y"},
				}},
			}),
			problem: "config schema validation failed",
		},
		{
			name: "bad condition operator",
			definition: definition(&models.Step{
				ID: "a", Kind: models.StepKindAction, Config: &models.ActionConfig{Action: "x"},
				Conditions: []models.Condition{{Field: "x", Operator: "matches"}},
			}),
			problem: "Operator",
		},
		{
			name: "duplicate parallel sub action",
			definition: definition(&models.Step{
				ID: "p", Kind: models.StepKindParallel, Config: &models.ParallelConfig{Steps: []models.ParallelAction{
					{ID: "x", Action: "one"}, {ID: "x", Action: "two"},
				}},
			}),
			problem: `duplicate sub action id "x"`,
		},
		{
			name: "concurrent output writers",
			definition: definition(
				&models.Step{ID: "a", Kind: models.StepKindAction, Config: &models.ActionConfig{Action: "x"}, Outputs: map[string]any{"flag": 1}},
				&models.Step{ID: "b", Kind: models.StepKindAction, Config: &models.ActionConfig{Action: "x"}, Outputs: map[string]any{"flag": 2}},
			),
			problem: `may run concurrently and both write output "flag"`,
		},
		{
			name: "output shadows step",
			definition: definition(
				&models.Step{ID: "a", Kind: models.StepKindAction, Config: &models.ActionConfig{Action: "x"}, Outputs: map[string]any{"b": 1}},
				actionStep("b"),
			),
			problem: "shadows a step result",
		},
		{
			name: "variable shadows step",
			definition: func() *models.WorkflowDefinition {
				d := definition(actionStep("a"))
				d.Variables = map[string]any{"a": "preset"}

				return d
			}(),
			problem: `variable "a" shadows a step result`,
		},
		{
			name: "schedule without cron",
			definition: func() *models.WorkflowDefinition {
				d := definition(actionStep("a"))
				d.Trigger = models.Trigger{Type: models.TriggerTypeSchedule}

				return d
			}(),
			problem: "requires config.cron",
		},
		{
			name: "schedule with bad timezone",
			definition: func() *models.WorkflowDefinition {
				d := definition(actionStep("a"))
				d.Trigger = models.Trigger{Type: models.TriggerTypeSchedule, Config: map[string]any{"cron": "0 17 * * 1-5", "timezone": "Mars/Olympus"}}

				return d
			}(),
			problem: "invalid schedule timezone",
		},
		{
			name: "event without name",
			definition: func() *models.WorkflowDefinition {
				d := definition(actionStep("a"))
				d.Trigger = models.Trigger{Type: models.TriggerTypeEvent}

				return d
			}(),
			problem: "requires config.event",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := registry.NewRegistry(slog.Default())
			err := r.Register(tt.definition)

			require.Error(t, err)
			assert.True(t, registry.IsInvalidDefinition(err))
			assert.Contains(t, err.Error(), tt.problem)
			assert.Equal(t, 0, r.Len())
		})
	}
}

func TestRegistry_AllowsOrderedOutputWriters(t *testing.T) {
	t.Parallel()

	r := registry.NewRegistry(slog.Default())

	err := r.Register(definition(
		&models.Step{ID: "a", Kind: models.StepKindAction, Config: &models.ActionConfig{Action: "x"}, Outputs: map[string]any{"stage": "one"}},
		&models.Step{ID: "b", Kind: models.StepKindAction, Config: &models.ActionConfig{Action: "x"}, Dependencies: []string{"a"}, Outputs: map[string]any{"stage": "two"}},
	))

	require.NoError(t, err)
}

func TestRegistry_CyclesAreNotRejected(t *testing.T) {
	t.Parallel()

	r := registry.NewRegistry(slog.Default())

	require.NoError(t, r.Register(definition(actionStep("a", "b"), actionStep("b", "a"))))
}

func TestLoadDefinitions(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"defs/b.yaml": {Data: []byte(`
id: yaml-workflow
name: From YAML
trigger: {type: manual}
steps:
  - id: wait
    type: wait
    config: {timeout_hours: 1}
`)},
		"defs/a.json": {Data: []byte(`{
  "id": "json-workflow",
  "name": "From JSON",
  "trigger": {"type": "manual"},
  "steps": [{"id": "notify", "type": "notification", "config": {"template": "hello"}}]
}`)},
		"defs/readme.md": {Data: []byte("ignored")},
	}

	definitions, err := registry.LoadDefinitions(fsys, "defs")
	require.NoError(t, err)
	require.Len(t, definitions, 2)

	assert.Equal(t, "json-workflow", definitions[0].ID)
	assert.Equal(t, "yaml-workflow", definitions[1].ID)

	wait, ok := definitions[1].Steps[0].Config.(*models.WaitConfig)
	require.True(t, ok)
	assert.InDelta(t, 1.0, wait.TimeoutHours, 0)
}

func TestParseDefinition_Unsupported(t *testing.T) {
	t.Parallel()

	_, err := registry.ParseDefinition("workflow.toml", nil)

	assert.Error(t, err)
}
