// Package registry loads the ordered list of monitored targets.
package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/docwatch/docwatch/internal/watch"
)

// Registry holds the validated target list for one run. Immutable after
// Load; the pipeline fans out over Targets in order.
type Registry struct {
	targets []watch.Target
}

type targetsFile struct {
	Targets []watch.Target `yaml:"targets"`
}

// Load reads a registry file and validates every entry. Malformed
// entries are rejected here, before any fetch begins. The file is YAML
// (a top-level `targets:` list); JSON registries parse as well since
// YAML is a superset.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read targets file: %w", err)
	}
	return Parse(data)
}

// Parse builds a Registry from raw file contents.
func Parse(data []byte) (*Registry, error) {
	var file targetsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode targets file: %w", err)
	}
	if len(file.Targets) == 0 {
		return nil, fmt.Errorf("targets file declares no targets")
	}

	seen := make(map[watch.SnapshotKey]int, len(file.Targets))
	for i, target := range file.Targets {
		if err := target.Validate(); err != nil {
			return nil, fmt.Errorf("target %d: %w", i, err)
		}
		key := target.Key()
		if prev, dup := seen[key]; dup {
			return nil, fmt.Errorf("target %d duplicates target %d (same url/api/method key)", i, prev)
		}
		seen[key] = i
	}

	targets := make([]watch.Target, len(file.Targets))
	copy(targets, file.Targets)
	return &Registry{targets: targets}, nil
}

// Targets returns the ordered target list. Callers must not mutate it.
func (r *Registry) Targets() []watch.Target {
	return r.targets
}

// Len returns the number of registered targets.
func (r *Registry) Len() int {
	return len(r.targets)
}
