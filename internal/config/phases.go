package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"alfredoptarigan/interview-panel/internal/interview"
)

type phaseLayout struct {
	Phases []interview.PhaseConfig `yaml:"phases"`
}

// LoadPhaseConfigs reads the interview phase layout from a YAML file. An
// empty path selects the built-in layout.
func LoadPhaseConfigs(path string) ([]interview.PhaseConfig, error) {
	if path == "" {
		return interview.DefaultPhaseConfigs(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read phases file %s: %w", path, err)
	}

	return ParsePhaseConfigs(data)
}

func ParsePhaseConfigs(data []byte) ([]interview.PhaseConfig, error) {
	var layout phaseLayout
	if err := yaml.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("failed to parse phases YAML: %w", err)
	}

	if err := interview.ValidatePhaseConfigs(layout.Phases); err != nil {
		return nil, err
	}

	return layout.Phases, nil
}
