// Package config merges hard-coded defaults, the user configuration
// file, and per-call overrides into the effective configuration for one
// rehydration attempt. Environment identifiers pass through the alias
// table before anything else looks at them.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Hard-coded defaults, applied before the file and overrides layers.
const (
	DefaultEnvironment     = "development"
	DefaultVerifyIntegrity = true
	DefaultLogLevel        = "info"
	DefaultMaxRetries      = 3
	DefaultTimeoutSeconds  = 300
)

// File is the on-disk user configuration. Pointer fields distinguish
// "not set" from an explicit zero so the defaults layer is only applied
// where the file is silent.
type File struct {
	DefaultEnvironment       string            `yaml:"defaultEnvironment"`
	VerifyIntegrityByDefault *bool             `yaml:"verifyIntegrityByDefault"`
	LogLevel                 string            `yaml:"logLevel"`
	MaxRetryAttempts         *int              `yaml:"maxRetryAttempts"`
	TimeoutSeconds           *int              `yaml:"timeoutSeconds"`
	EnvironmentAliases       map[string]string `yaml:"environmentAliases"`
}

// DefaultFilePath returns the default configuration file location
// (~/.rehydrate/config.yaml).
func DefaultFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".rehydrate/config.yaml"
	}
	return filepath.Join(home, ".rehydrate", "config.yaml")
}

// ResolveFilePath returns the config file path from env var or default.
func ResolveFilePath(environ []string) string {
	for _, env := range environ {
		if strings.HasPrefix(env, "REHYDRATE_CONFIG=") {
			return strings.TrimPrefix(env, "REHYDRATE_CONFIG=")
		}
	}
	return DefaultFilePath()
}

// LoadFile parses the user configuration. A missing file is not an
// error: the zero File makes every layer fall through to defaults.
func LoadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return File{}, nil
		}
		return File{}, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return f, nil
}
