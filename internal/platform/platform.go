// Package platform maps the executing host to the restoration routine
// that knows how to rehydrate it. The routine manifest is external
// read-only configuration, not owned state.
package platform

import "runtime"

// ID identifies a platform family the manifest can target.
type ID string

const (
	Windows ID = "windows"
	Linux   ID = "linux"
	Darwin  ID = "darwin"
	Unknown ID = "unknown"
)

// Current returns the platform of the executing host. Pure function of
// the build target; no side effects.
func Current() ID {
	switch runtime.GOOS {
	case "windows":
		return Windows
	case "linux":
		return Linux
	case "darwin":
		return Darwin
	default:
		return Unknown
	}
}
