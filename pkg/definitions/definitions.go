// Package definitions ships the standard construction workflows.
package definitions

import (
	"embed"

	"github.com/dukex/siteflow/pkg/models"
	"github.com/dukex/siteflow/pkg/registry"
)

//go:embed workflows/*.yaml
var workflows embed.FS

// Standard returns the change order, safety incident, daily report and RFI
// workflows.
func Standard() ([]*models.WorkflowDefinition, error) {
	return registry.LoadDefinitions(workflows, "workflows")
}
