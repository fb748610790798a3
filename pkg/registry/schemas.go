package registry

import (
	"fmt"
	"strings"

	"github.com/dukex/siteflow/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

var conditionSchema = map[string]any{
	"type":     "object",
	"required": []any{"field", "operator"},
	"properties": map[string]any{
		"field":    map[string]any{"type": "string", "minLength": 1},
		"operator": map[string]any{"enum": []any{"equals", "not_equals", "greater_than", "less_than", "contains", "exists"}},
	},
}

var stringList = map[string]any{
	"type":  "array",
	"items": map[string]any{"type": "string"},
}

// configSchemas describes the accepted config shape of each step kind.
var configSchemas = map[models.StepKind]map[string]any{
	models.StepKindAction: {
		"$schema":  "http://json-schema.org/draft-07/schema#",
		"type":     "object",
		"required": []any{"action"},
		"properties": map[string]any{
			"action": map[string]any{"type": "string", "minLength": 1},
			"data":   map[string]any{"type": []any{"object", "null"}},
		},
	},
	models.StepKindDecision: {
		"$schema":  "http://json-schema.org/draft-07/schema#",
		"type":     "object",
		"required": []any{"rules"},
		"properties": map[string]any{
			"rules": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type":     "object",
					"required": []any{"output"},
					"properties": map[string]any{
						"condition": conditionSchema,
						"default":   map[string]any{"type": "boolean"},
						"output":    map[string]any{"type": "string", "minLength": 1},
					},
					"anyOf": []any{
						map[string]any{"required": []any{"condition"}},
						map[string]any{"required": []any{"default"}},
					},
				},
			},
		},
	},
	models.StepKindApproval: {
		"$schema":  "http://json-schema.org/draft-07/schema#",
		"type":     "object",
		"required": []any{"approver"},
		"properties": map[string]any{
			"approver":      map[string]any{"type": "string", "minLength": 1},
			"timeout_hours": map[string]any{"type": "number", "minimum": 0},
			"escalation":    map[string]any{"type": "string"},
			"options":       stringList,
			"action":        map[string]any{"type": "string"},
		},
	},
	models.StepKindNotification: {
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type":    "object",
		"properties": map[string]any{
			"template": map[string]any{"type": "string"},
			"channels": stringList,
			"recipients": map[string]any{
				"oneOf": []any{
					map[string]any{"type": "null"},
					stringList,
					map[string]any{"type": "object", "additionalProperties": stringList},
				},
			},
			"urgency": map[string]any{"enum": []any{"low", "normal", "high", "critical"}},
		},
	},
	models.StepKindWait: {
		"$schema":  "http://json-schema.org/draft-07/schema#",
		"type":     "object",
		"required": []any{"timeout_hours"},
		"properties": map[string]any{
			"timeout_hours":        map[string]any{"type": "number", "minimum": 0},
			"check_interval_hours": map[string]any{"type": "number", "minimum": 0},
		},
	},
	models.StepKindParallel: {
		"$schema":  "http://json-schema.org/draft-07/schema#",
		"type":     "object",
		"required": []any{"steps"},
		"properties": map[string]any{
			"steps": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type":     "object",
					"required": []any{"id", "action"},
					"properties": map[string]any{
						"id":     map[string]any{"type": "string", "minLength": 1},
						"action": map[string]any{"type": "string", "minLength": 1},
						"data":   map[string]any{"type": []any{"object", "null"}},
					},
				},
			},
		},
	},
}

// ConfigSchema returns the JSON schema of a step kind's config.
func ConfigSchema(kind models.StepKind) (map[string]any, bool) {
	schema, ok := configSchemas[kind]

	return schema, ok
}

// validateConfigSchema validates the step config against the schema of its kind.
func validateConfigSchema(step *models.Step) error {
	schema, ok := configSchemas[step.Kind]
	if !ok {
		return fmt.Errorf("%w: %q", models.ErrUnknownStepKind, step.Kind)
	}

	config, err := step.ConfigMap()
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(config))
	if err != nil {
		return err
	}

	if !result.Valid() {
		var errors []string
		for _, resultError := range result.Errors() {
			errors = append(errors, resultError.String())
		}

		return fmt.Errorf("config schema validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}
