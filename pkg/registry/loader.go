package registry

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/dukex/siteflow/pkg/models"
	"gopkg.in/yaml.v3"
)

// ParseDefinition decodes a YAML or JSON workflow definition. The format is
// chosen from the file name extension.
func ParseDefinition(name string, data []byte) (*models.WorkflowDefinition, error) {
	var definition models.WorkflowDefinition

	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		if err := json.Unmarshal(data, &definition); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", name, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &definition); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", name, err)
		}
	default:
		return nil, fmt.Errorf("unsupported definition format %q", name)
	}

	return &definition, nil
}

// LoadDefinitions reads every .yaml, .yml and .json file under dir, sorted
// by file name.
func LoadDefinitions(fsys fs.FS, dir string) ([]*models.WorkflowDefinition, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read definitions directory %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		switch strings.ToLower(path.Ext(entry.Name())) {
		case ".yaml", ".yml", ".json":
			names = append(names, entry.Name())
		}
	}

	sort.Strings(names)

	definitions := make([]*models.WorkflowDefinition, 0, len(names))

	for _, name := range names {
		data, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}

		definition, err := ParseDefinition(name, data)
		if err != nil {
			return nil, err
		}

		definitions = append(definitions, definition)
	}

	return definitions, nil
}

// RegisterAll registers every definition, stopping at the first invalid one.
func (r *Registry) RegisterAll(definitions []*models.WorkflowDefinition) error {
	for _, definition := range definitions {
		if err := r.Register(definition); err != nil {
			return err
		}
	}

	return nil
}
