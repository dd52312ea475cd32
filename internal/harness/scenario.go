package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file
	// in Go tests and seeds the fixed execution ID.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Model is the model directory. LoadScenario resolves it relative to
	// the scenario file.
	Model string `yaml:"model"`

	// Runs and Timesteps override the model's values when set.
	Runs      *int `yaml:"runs,omitempty"`
	Timesteps *int `yaml:"timesteps,omitempty"`

	// Workers bounds session parallelism. Zero uses the engine default.
	Workers int `yaml:"workers,omitempty"`

	// Expect lists what the execution must produce.
	Expect Expect `yaml:"expect"`

	// Golden enables byte comparison of the canonical trajectory.
	Golden bool `yaml:"golden,omitempty"`
}

// Expect holds the expectations of a scenario. Nil fields are not checked.
type Expect struct {
	// Rows is the number of trajectory records.
	Rows *int `yaml:"rows,omitempty"`

	// FailedSessions is the number of sessions that did not succeed.
	FailedSessions *int `yaml:"failed_sessions,omitempty"`

	// Configurations is the number of sweep configurations.
	Configurations *int `yaml:"configurations,omitempty"`

	// RowsAt pins state values at specific records.
	RowsAt []RowAt `yaml:"rows_at,omitempty"`

	// FinalState is checked against the last record of every succeeded
	// session.
	FinalState map[string]any `yaml:"final_state,omitempty"`
}

// RowAt addresses exactly one record and lists expected state values.
type RowAt struct {
	Run      int            `yaml:"run"`
	Subset   int            `yaml:"subset"`
	Timestep int            `yaml:"timestep"`
	Substep  int            `yaml:"substep"`
	State    map[string]any `yaml:"state"`
}

// empty reports whether no expectation is set.
func (e Expect) empty() bool {
	return e.Rows == nil && e.FailedSessions == nil && e.Configurations == nil &&
		len(e.RowsAt) == 0 && len(e.FinalState) == 0
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the model path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "expects:" vs "expect:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Model != "" && !filepath.IsAbs(scenario.Model) && basePath != "" {
		scenario.Model = filepath.Join(basePath, scenario.Model)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Model == "" {
		return fmt.Errorf("model is required")
	}
	if info, err := os.Stat(s.Model); err != nil || !info.IsDir() {
		return fmt.Errorf("model directory not found: %s", s.Model)
	}

	if s.Runs != nil && *s.Runs < 1 {
		return fmt.Errorf("runs must be at least 1, got %d", *s.Runs)
	}
	if s.Timesteps != nil && *s.Timesteps < 0 {
		return fmt.Errorf("timesteps must be non-negative, got %d", *s.Timesteps)
	}
	if s.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", s.Workers)
	}

	if s.Expect.empty() && !s.Golden {
		return fmt.Errorf("expect is required unless golden is set")
	}

	for i, r := range s.Expect.RowsAt {
		if r.Run < 1 {
			return fmt.Errorf("expect.rows_at[%d]: run must be at least 1", i)
		}
		if len(r.State) == 0 {
			return fmt.Errorf("expect.rows_at[%d]: state is required", i)
		}
	}

	return nil
}
