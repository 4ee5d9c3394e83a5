// Package config loads process-wide settings from environment variables.
//
// The settings are parsed once at startup into a Settings struct and passed
// explicitly to the packages that need them. There is no package-level state;
// callers that want different binaries (e.g. a stub python in tests) populate
// the struct directly.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Settings holds the external-tool and layout configuration for a stencil run.
type Settings struct {
	// PythonBin is the interpreter used to create virtual environments.
	PythonBin string `env:"STENCIL_PYTHON" envDefault:"python3"`

	// GitBin is the git binary used for all version-control operations.
	GitBin string `env:"STENCIL_GIT" envDefault:"git"`

	// VenvDir is the fixed relative location of the reusable virtual
	// environment, resolved against the directory `stencil verify` runs from.
	VenvDir string `env:"STENCIL_VENV_DIR" envDefault:".venv"`

	// NoColor disables styled output. Any non-empty value counts, per the
	// informal NO_COLOR convention.
	NoColor string `env:"NO_COLOR"`
}

// Load parses Settings from the environment.
func Load() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	return s, nil
}

// ColorEnabled reports whether styled output should be used.
func (s Settings) ColorEnabled() bool {
	return s.NoColor == ""
}
