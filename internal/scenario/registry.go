package scenario

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads all scenario YAML files from dir and returns them sorted by
// ascending expected difficulty, ties broken by ID. Each file holds one
// scenario document.
func Load(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenarios dir: %w", err)
	}

	var scenarios []*Scenario
	seen := make(map[string]string) // id -> filename

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read scenario %s: %w", name, err)
		}

		var s Scenario
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parse scenario %s: %w", name, err)
		}

		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("invalid scenario %s: %w", name, err)
		}

		if prev, dup := seen[s.ID]; dup {
			return nil, fmt.Errorf("duplicate scenario id %q in %s (first seen in %s)", s.ID, name, prev)
		}
		seen[s.ID] = name

		scenarios = append(scenarios, &s)
	}

	if len(scenarios) == 0 {
		return nil, fmt.Errorf("no scenarios found in %s", dir)
	}

	sort.Slice(scenarios, func(i, j int) bool {
		if scenarios[i].ExpectedDifficulty != scenarios[j].ExpectedDifficulty {
			return scenarios[i].ExpectedDifficulty < scenarios[j].ExpectedDifficulty
		}
		return scenarios[i].ID < scenarios[j].ID
	})

	return scenarios, nil
}
