package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario scripts a simulated run by virtual time.
type Scenario struct {
	Name       string     `yaml:"name"`
	DurationMs int64      `yaml:"duration_ms"`
	Tags       []TagEvent `yaml:"tags"`
	Left       Timeline   `yaml:"left"`
	Right      Timeline   `yaml:"right"`
	Front      Timeline   `yaml:"front"`
}

// LoadScenario reads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes a YAML scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if s.DurationMs <= 0 {
		return nil, fmt.Errorf("scenario %q: duration_ms must be positive", s.Name)
	}
	return &s, nil
}

// Robot builds a simulated robot playing the scenario.
func (s *Scenario) Robot() *Robot {
	r := NewRobot()
	r.Left = s.Left
	r.Right = s.Right
	r.Front = s.Front
	r.Tags = append([]TagEvent(nil), s.Tags...)
	return r
}
