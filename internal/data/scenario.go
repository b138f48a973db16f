package data

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ScenarioEntry is a named preset for ball count and arena size.
type ScenarioEntry struct {
	Name   string  `yaml:"name"`
	Balls  int     `yaml:"balls"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
	Note   string  `yaml:"note"`
}

// ScenarioTable provides lookup of presets by name.
type ScenarioTable struct {
	scenarios map[string]*ScenarioEntry
}

// LoadScenarioTable loads scenarios.yaml.
func LoadScenarioTable(path string) (*ScenarioTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario list: %w", err)
	}
	var entries []ScenarioEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse scenario list: %w", err)
	}
	t := &ScenarioTable{
		scenarios: make(map[string]*ScenarioEntry, len(entries)),
	}
	for i := range entries {
		e := &entries[i]
		if e.Name == "" {
			return nil, fmt.Errorf("scenario %d: missing name", i)
		}
		if _, dup := t.scenarios[e.Name]; dup {
			return nil, fmt.Errorf("scenario %q: duplicate name", e.Name)
		}
		if e.Balls < 0 || e.Width <= 0 || e.Height <= 0 {
			return nil, fmt.Errorf("scenario %q: balls must be >= 0 and arena positive", e.Name)
		}
		t.scenarios[e.Name] = e
	}
	return t, nil
}

// Get returns the scenario with the given name, or nil if none.
func (t *ScenarioTable) Get(name string) *ScenarioEntry {
	return t.scenarios[name]
}

// Names returns every scenario name in sorted order.
func (t *ScenarioTable) Names() []string {
	names := make([]string, 0, len(t.scenarios))
	for n := range t.scenarios {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Count returns the total number of scenarios loaded.
func (t *ScenarioTable) Count() int {
	return len(t.scenarios)
}
