// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dukex/siteflow/pkg/definitions"
	"github.com/dukex/siteflow/pkg/registry"
)

// NewRegistry registers the standard workflows, then every definition found
// in definitionsPath. A definition in the directory replaces the standard
// one with the same id.
func NewRegistry(logger *slog.Logger, definitionsPath string) (*registry.Registry, error) {
	reg := registry.NewRegistry(logger)

	standard, err := definitions.Standard()
	if err != nil {
		return nil, fmt.Errorf("failed to load standard workflows: %w", err)
	}

	if err := reg.RegisterAll(standard); err != nil {
		return nil, err
	}

	if definitionsPath == "" {
		return reg, nil
	}

	custom, err := registry.LoadDefinitions(os.DirFS(definitionsPath), ".")
	if err != nil {
		return nil, fmt.Errorf("failed to load definitions from %s: %w", definitionsPath, err)
	}

	if err := reg.RegisterAll(custom); err != nil {
		return nil, err
	}

	logger.Info("Loaded workflow definitions", "standard", len(standard), "custom", len(custom), "path", definitionsPath)

	return reg, nil
}
