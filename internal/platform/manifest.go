package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnsupportedPlatform is returned when the manifest carries no
// routine for the host platform.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// Routine describes one platform's restoration routine: the script to
// run and the parameter names it accepts.
type Routine struct {
	Platform   string   `yaml:"platform"`
	ScriptPath string   `yaml:"scriptPath"`
	Parameters []string `yaml:"parameters"`
}

// Manifest is the full platform-to-routine mapping.
type Manifest struct {
	Scripts []Routine `yaml:"scripts"`
}

// DefaultManifestPath returns the default manifest location
// (~/.rehydrate/manifest.yaml).
func DefaultManifestPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".rehydrate/manifest.yaml"
	}
	return filepath.Join(home, ".rehydrate", "manifest.yaml")
}

// ResolveManifestPath returns the manifest path from env var or default.
func ResolveManifestPath(environ []string) string {
	for _, env := range environ {
		if strings.HasPrefix(env, "REHYDRATE_MANIFEST=") {
			return strings.TrimPrefix(env, "REHYDRATE_MANIFEST=")
		}
	}
	return DefaultManifestPath()
}

// LoadManifest parses the routine manifest. A missing file yields an
// empty manifest, which resolves no platform.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Manifest{}, nil
		}
		return Manifest{}, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("invalid manifest %s: %w", path, err)
	}

	return m, nil
}

// Resolve returns the routine for the given platform. Darwin hosts fall
// back to the linux routine when no darwin entry exists, since the unix
// script shape is shared. Unknown never falls back.
func (m Manifest) Resolve(id ID) (Routine, error) {
	if r, ok := m.lookup(id); ok {
		return r, nil
	}
	if id == Darwin {
		if r, ok := m.lookup(Linux); ok {
			return r, nil
		}
	}
	return Routine{}, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, id)
}

func (m Manifest) lookup(id ID) (Routine, bool) {
	for _, r := range m.Scripts {
		if r.Platform == string(id) {
			return r, true
		}
	}
	return Routine{}, false
}
