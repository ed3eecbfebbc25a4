package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultPuzzleYAML []byte

// EnvConfigPath selects a puzzle file instead of the embedded default.
const EnvConfigPath = "TORCH_CONFIG"

type ActorConfig struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
	Cost  int    `yaml:"cost"`
}

type PuzzleConfig struct {
	Version int `yaml:"version"`
	Puzzle  struct {
		ID          string `yaml:"id"`
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		GoalMinutes int    `yaml:"goal_minutes"`
	} `yaml:"puzzle"`
	Timing struct {
		TravelDelay      time.Duration `yaml:"travel_delay"`
		StepDelay        time.Duration `yaml:"step_delay"`
		AdvisoryDuration time.Duration `yaml:"advisory_duration"`
	} `yaml:"timing"`
	Actors   []ActorConfig `yaml:"actors"`
	Solution [][]string    `yaml:"solution"`
	Network  struct {
		UIPort int `yaml:"ui_port"`
	} `yaml:"network"`
	MQTT struct {
		URL      string `yaml:"url"`
		Room     string `yaml:"room"`
		ClientID string `yaml:"client_id"`
	} `yaml:"mqtt"`
}

// UIPort returns the configured UI port, defaulting to 8080 if not set.
func (c *PuzzleConfig) UIPort() int {
	if c.Network.UIPort == 0 {
		return 8080
	}
	return c.Network.UIPort
}

// Room is the MQTT topic namespace, defaulting to the puzzle id.
func (c *PuzzleConfig) Room() string {
	if c.MQTT.Room != "" {
		return c.MQTT.Room
	}
	return c.Puzzle.ID
}

// Default returns the embedded reference puzzle.
func Default() *PuzzleConfig {
	cfg, err := ParsePuzzleConfig(defaultPuzzleYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default.yaml is invalid: %v", err))
	}
	return cfg
}

// Load reads the file named by TORCH_CONFIG, or returns the default.
func Load() (*PuzzleConfig, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return LoadPuzzleConfig(path)
	}
	return Default(), nil
}

func LoadPuzzleConfig(path string) (*PuzzleConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read puzzle config: %w", err)
	}
	cfg, err := ParsePuzzleConfig(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func ParsePuzzleConfig(b []byte) (*PuzzleConfig, error) {
	var cfg PuzzleConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse puzzle yaml: %w", err)
	}
	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported puzzle.yaml version: %d", cfg.Version)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the roster, goal and solution. The solution is only checked
// structurally; whether it actually solves the puzzle is up to its author.
func (c *PuzzleConfig) Validate() error {
	if c.Puzzle.GoalMinutes <= 0 {
		return fmt.Errorf("puzzle.goal_minutes must be positive")
	}
	if len(c.Actors) == 0 {
		return fmt.Errorf("actors: at least one actor is required")
	}

	known := make(map[string]bool, len(c.Actors))
	for i, a := range c.Actors {
		id := strings.TrimSpace(a.ID)
		if id == "" {
			return fmt.Errorf("actors[%d]: id is required", i)
		}
		if known[id] {
			return fmt.Errorf("actors[%d]: duplicate id %q", i, id)
		}
		if a.Cost <= 0 {
			return fmt.Errorf("actors[%d]: cost must be positive", i)
		}
		known[id] = true
	}

	for i, step := range c.Solution {
		if len(step) < 1 || len(step) > 2 {
			return fmt.Errorf("solution[%d]: expected 1 or 2 actors, got %d", i, len(step))
		}
		for _, id := range step {
			if !known[id] {
				return fmt.Errorf("solution[%d]: unknown actor %q", i, id)
			}
		}
	}

	for name, d := range map[string]time.Duration{
		"travel_delay":      c.Timing.TravelDelay,
		"step_delay":        c.Timing.StepDelay,
		"advisory_duration": c.Timing.AdvisoryDuration,
	} {
		if d < 0 {
			return fmt.Errorf("timing.%s must not be negative", name)
		}
	}
	return nil
}
