package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CatalogEntry is one tool as declared in a YAML catalog file.
type CatalogEntry struct {
	Name           string      `yaml:"name"`
	Category       string      `yaml:"category"`
	Description    string      `yaml:"description"`
	Classification string      `yaml:"classification"`
	SideEffect     bool        `yaml:"side_effect"`
	Endpoint       string      `yaml:"endpoint"`
	Parameters     []Parameter `yaml:"parameters"`
}

// Catalog is the root of a YAML catalog file.
type Catalog struct {
	Tools []CatalogEntry `yaml:"tools"`
}

// LoadCatalogFile parses a YAML catalog and registers every entry.
// Registration is all-or-nothing in spirit: the first bad entry aborts
// the load, since a partially loaded catalog would silently hide tools.
func LoadCatalogFile(r *Registry, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("LoadCatalogFile: %w", err)
	}
	return LoadCatalog(r, data)
}

// LoadCatalog registers every entry of a YAML catalog document.
func LoadCatalog(r *Registry, data []byte) (int, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return 0, fmt.Errorf("LoadCatalog: parse: %w", err)
	}

	for i, entry := range cat.Tools {
		d := &ToolDescriptor{
			Name:           entry.Name,
			Category:       entry.Category,
			Description:    entry.Description,
			Classification: Classification(entry.Classification),
			SideEffect:     entry.SideEffect,
			Endpoint:       entry.Endpoint,
			Parameters:     entry.Parameters,
		}
		if err := r.Register(d); err != nil {
			return i, fmt.Errorf("LoadCatalog: entry %d (%s): %w", i, entry.Name, err)
		}
	}
	return len(cat.Tools), nil
}
