package forecast

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"gopkg.in/yaml.v3"
)

// Scenario is a file based snapshot of teams and the features they work on.
type Scenario struct {
	Name     string     `json:"name,omitempty" yaml:"name,omitempty"`
	Teams    []Team     `json:"teams" yaml:"teams"`
	Features []*Feature `json:"features" yaml:"features"`
}

// ScenarioSchema returns the JSON schema scenario files are validated against.
func ScenarioSchema() (*jsonschema.Schema, error) {
	schema, err := jsonschema.For[Scenario](nil)
	if err != nil {
		return nil, fmt.Errorf("failed to derive scenario schema: %w", err)
	}
	requireNonNegative(schema)
	return schema, nil
}

// requireNonNegative adds minimum constraints to the counts in the schema.
func requireNonNegative(schema *jsonschema.Schema) {
	zero := 0.0
	if teams := schema.Properties["teams"]; teams != nil && teams.Items != nil {
		team := teams.Items
		if wip := team.Properties["feature_wip"]; wip != nil {
			wip.Minimum = &zero
		}
		if capacity := team.Properties["daily_capacity"]; capacity != nil {
			capacity.Minimum = &zero
		}
		if tp := team.Properties["throughput"]; tp != nil && tp.Items != nil {
			tp.Items.Minimum = &zero
		}
	}
	if features := schema.Properties["features"]; features != nil && features.Items != nil {
		if remaining := features.Items.Properties["remaining"]; remaining != nil && remaining.AdditionalProperties != nil {
			remaining.AdditionalProperties.Minimum = &zero
		}
	}
}

// LoadScenario reads a JSON or YAML scenario file, chosen by extension.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseScenarioYAML(data)
	default:
		return ParseScenarioJSON(data)
	}
}

// ParseScenarioJSON validates and decodes a JSON scenario.
func ParseScenarioJSON(data []byte) (*Scenario, error) {
	var instance map[string]any
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := validateScenario(instance); err != nil {
		return nil, err
	}

	var sc Scenario
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to decode scenario: %w", err)
	}
	return &sc, nil
}

// ParseScenarioYAML decodes a YAML scenario and validates it through its JSON form.
func ParseScenarioYAML(data []byte) (*Scenario, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	asJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to convert scenario to JSON: %w", err)
	}
	return ParseScenarioJSON(asJSON)
}

func validateScenario(instance map[string]any) error {
	schema, err := ScenarioSchema()
	if err != nil {
		return err
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return fmt.Errorf("failed to resolve scenario schema: %w", err)
	}
	if err := resolved.Validate(instance); err != nil {
		return fmt.Errorf("invalid scenario: %w", err)
	}
	return nil
}

// Save writes the scenario as indented JSON, or YAML for .yaml/.yml paths.
func (sc *Scenario) Save(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(sc)
	default:
		data, err = json.MarshalIndent(sc, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode scenario: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write scenario %s: %w", path, err)
	}
	return nil
}
