// Package registry holds the workflow definitions known to an engine and
// validates them on registration.
package registry

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/dukex/siteflow/pkg/models"
	"github.com/go-playground/validator/v10"
)

// Registry maps definition ids to immutable workflow definitions.
type Registry struct {
	logger    *slog.Logger
	validator *validator.Validate

	mu          sync.RWMutex
	definitions map[string]*models.WorkflowDefinition
	order       []string
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:      logger.With("module", "registry"),
		validator:   validator.New(validator.WithRequiredStructEnabled()),
		definitions: make(map[string]*models.WorkflowDefinition),
	}
}

// Register validates definition and makes it available to new instances.
// Registering an id again replaces the previous definition; running
// instances keep the definition they started with.
func (r *Registry) Register(definition *models.WorkflowDefinition) error {
	if err := Validate(r.validator, definition); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.definitions[definition.ID]; exists {
		r.logger.Warn("Replacing workflow definition", "workflow_id", definition.ID)
	} else {
		r.order = append(r.order, definition.ID)
	}

	r.definitions[definition.ID] = definition

	r.logger.Info("Registered workflow definition", "workflow_id", definition.ID, "steps", len(definition.Steps), "trigger", definition.Trigger.Type)

	return nil
}

// Get returns the definition registered under id.
func (r *Registry) Get(id string) (*models.WorkflowDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	definition, ok := r.definitions[id]

	return definition, ok
}

// List returns every definition in registration order.
func (r *Registry) List() []*models.WorkflowDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	definitions := make([]*models.WorkflowDefinition, 0, len(r.order))
	for _, id := range r.order {
		definitions = append(definitions, r.definitions[id])
	}

	return definitions
}

// Len returns the number of registered definitions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.order)
}

// IDs returns the registered definition ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := slices.Clone(r.order)
	slices.Sort(ids)

	return ids
}
