// Copyright 2026 The Patchforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the bps command.
//
// Configuration is loaded from a single file specified by:
//   - the BPS_CONFIG environment variable, or
//   - the --config flag passed to the command
//
// There are no fallbacks or automatic discovery; with neither set,
// built-in defaults apply. This keeps behavior deterministic and
// auditable: a patch produced on one machine reproduces exactly on
// another unless a config file says otherwise.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable that points at the config
// file.
const EnvVar = "BPS_CONFIG"

// Config holds the bps command's tunable defaults.
type Config struct {
	// Diff configures patch creation.
	Diff DiffConfig `yaml:"diff"`
}

// DiffConfig configures patch creation.
type DiffConfig struct {
	// BlockSize is the diff engine's match granularity in bytes.
	// Zero means derive it from the input sizes.
	BlockSize int `yaml:"block_size"`

	// Optimize runs the optimizer over freshly created patches.
	// Defaults to true.
	Optimize *bool `yaml:"optimize"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{}
}

// Load reads the configuration file at path. An empty path falls
// back to the BPS_CONFIG environment variable, and if that is unset
// too, the built-in defaults are returned.
func Load(path string) (Config, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if config.Diff.BlockSize < 0 {
		return Config{}, fmt.Errorf("config %s: block_size must not be negative", path)
	}
	return config, nil
}

// ShouldOptimize reports whether freshly created patches are run
// through the optimizer.
func (c Config) ShouldOptimize() bool {
	return c.Diff.Optimize == nil || *c.Diff.Optimize
}
