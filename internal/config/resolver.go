package config

import (
	"errors"
	"strings"
)

// ErrUnknownEnvironment is returned when neither the request, the alias
// table, nor the configured default yields a usable environment
// identifier. Any non-empty identifier is otherwise accepted; there is
// no closed enumeration of valid environments.
var ErrUnknownEnvironment = errors.New("unknown environment")

// Operation is the fully resolved configuration for one rehydration
// attempt. Immutable once built; a fresh value is resolved per request.
type Operation struct {
	Environment      string
	VerifyIntegrity  bool
	Force            bool
	TimeoutSeconds   int
	MaxRetryAttempts int
}

// Overrides carries explicit per-call values, the highest-precedence
// layer. Pointer fields distinguish "flag absent" from an explicit
// false/zero.
type Overrides struct {
	VerifyIntegrity *bool
	Force           bool
	TimeoutSeconds  *int
}

// Resolver builds Operation values by layering defaults, the user
// configuration file, and per-call overrides, in that order.
type Resolver struct {
	file File
}

// NewResolver creates a resolver over the given user configuration.
func NewResolver(file File) *Resolver {
	return &Resolver{file: file}
}

// Normalize passes an environment identifier through the alias table
// (e.g. "prod" -> "production"). Identifiers without an alias entry
// pass through unchanged apart from whitespace trimming.
func (r *Resolver) Normalize(environment string) string {
	env := strings.TrimSpace(environment)
	if alias, ok := r.file.EnvironmentAliases[env]; ok {
		return strings.TrimSpace(alias)
	}
	return env
}

// Resolve produces the effective configuration for one attempt. The
// requested environment is normalized first; when empty, the configured
// default environment applies (itself normalized). An empty result
// after all layers is ErrUnknownEnvironment.
func (r *Resolver) Resolve(requestedEnvironment string, ov Overrides) (Operation, error) {
	env := r.Normalize(requestedEnvironment)
	if env == "" {
		def := r.file.DefaultEnvironment
		if def == "" {
			def = DefaultEnvironment
		}
		env = r.Normalize(def)
	}
	if env == "" {
		return Operation{}, ErrUnknownEnvironment
	}

	op := Operation{
		Environment:      env,
		VerifyIntegrity:  DefaultVerifyIntegrity,
		Force:            ov.Force,
		TimeoutSeconds:   DefaultTimeoutSeconds,
		MaxRetryAttempts: DefaultMaxRetries,
	}

	// File layer.
	if r.file.VerifyIntegrityByDefault != nil {
		op.VerifyIntegrity = *r.file.VerifyIntegrityByDefault
	}
	if r.file.TimeoutSeconds != nil && *r.file.TimeoutSeconds > 0 {
		op.TimeoutSeconds = *r.file.TimeoutSeconds
	}
	if r.file.MaxRetryAttempts != nil && *r.file.MaxRetryAttempts >= 0 {
		op.MaxRetryAttempts = *r.file.MaxRetryAttempts
	}

	// Override layer wins over everything.
	if ov.VerifyIntegrity != nil {
		op.VerifyIntegrity = *ov.VerifyIntegrity
	}
	if ov.TimeoutSeconds != nil && *ov.TimeoutSeconds > 0 {
		op.TimeoutSeconds = *ov.TimeoutSeconds
	}

	return op, nil
}

// LogLevel returns the configured log level, defaulting to "info".
func (r *Resolver) LogLevel() string {
	if r.file.LogLevel != "" {
		return r.file.LogLevel
	}
	return DefaultLogLevel
}
