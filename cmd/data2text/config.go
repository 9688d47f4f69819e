package main

import (
	"os"

	"github.com/unixpickle/essentials"
	yaml "gopkg.in/yaml.v3"
)

// A Config holds the training hyper-parameters and output paths.
type Config struct {
	// Hidden is the width of every hidden representation.
	Hidden int `yaml:"hidden"`

	LearningRate       float64 `yaml:"learning_rate"`
	InitialAccumulator float64 `yaml:"initial_accumulator"`
	ClipThreshold      float64 `yaml:"clip_threshold"`

	// ForcingRatio is the probability of teacher forcing an example.
	ForcingRatio float64 `yaml:"forcing_ratio"`

	Epochs             int `yaml:"epochs"`
	LogInterval        int `yaml:"log_interval"`
	CheckpointInterval int `yaml:"checkpoint_interval"`

	CheckpointDir string `yaml:"checkpoint_dir"`
	PlannerPath   string `yaml:"planner_path"`
	GeneratorPath string `yaml:"generator_path"`

	// MaxTextLen caps generation length during evaluation.
	MaxTextLen int `yaml:"max_text_len"`
}

// DefaultConfig returns the stock hyper-parameters.
func DefaultConfig() *Config {
	return &Config{
		Hidden:             600,
		LearningRate:       0.15,
		InitialAccumulator: 0.1,
		ClipThreshold:      7,
		ForcingRatio:       1,
		Epochs:             25,
		LogInterval:        100,
		CheckpointInterval: 4,
		CheckpointDir:      "checkpoints",
		PlannerPath:        "planner.bin",
		GeneratorPath:      "generator.bin",
		MaxTextLen:         500,
	}
}

// LoadConfig reads a YAML configuration file over the defaults.
// A missing file yields the defaults unchanged.
func LoadConfig(path string) (cfg *Config, err error) {
	defer essentials.AddCtxTo("load config", &err)
	cfg = DefaultConfig()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	} else if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
