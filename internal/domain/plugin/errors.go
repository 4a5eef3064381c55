package plugin

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for programmatic error handling.
var (
	// ErrNilPlugin indicates a nil plugin was provided.
	ErrNilPlugin = errors.New("plugin cannot be nil")
	// ErrEmptyPluginName indicates a plugin declared an empty name.
	ErrEmptyPluginName = errors.New("plugin name cannot be empty")
	// ErrMissingMarker indicates a declaration lacks `kind: berth-plugin`.
	ErrMissingMarker = errors.New("declaration is not a berth plugin")
	// ErrUnknownFactory indicates an identifier has no registered constructor.
	ErrUnknownFactory = errors.New("no constructor registered for identifier")
)

// Config validation rules. ConfigError unwraps to one of these.
var (
	ErrUnknownField = errors.New("unknown field")
	ErrInvalidType  = errors.New("invalid type")
	ErrOutOfRange   = errors.New("out of range")
	ErrNotInEnum    = errors.New("not an allowed value")
	ErrNullValue    = errors.New("null value")
)

// ConfigError reports a plugin configuration value that violates the
// plugin's schema.
type ConfigError struct {
	// Plugin is set once the error leaves the registry.
	Plugin  string
	Field   string
	Rule    error
	Message string
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	if e.Plugin != "" {
		fmt.Fprintf(&b, "plugin %q: ", e.Plugin)
	}
	fmt.Fprintf(&b, "config field %q: %v", e.Field, e.Rule)
	if e.Message != "" {
		fmt.Fprintf(&b, " (%s)", e.Message)
	}
	return b.String()
}

func (e *ConfigError) Unwrap() error {
	return e.Rule
}

// IsConfigError returns true if the error is a configuration violation.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

// NotFoundError indicates a registry lookup for an unknown plugin.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("plugin %q not found", e.Name)
}

// IsNotFound returns true if the error is a plugin lookup miss.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// HookError wraps the error of a lifecycle handler.
type HookError struct {
	Plugin string
	Event  Event
	Err    error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("plugin %q failed handling %s: %v", e.Plugin, e.Event, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}

// IsHookError returns true if the error came from a lifecycle handler.
func IsHookError(err error) bool {
	var hookErr *HookError
	return errors.As(err, &hookErr)
}

// ValidationError collects multiple problems found in a plugin declaration.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0]
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Errors, "; "))
}

// Add adds an error message to the collection.
func (e *ValidationError) Add(msg string) {
	e.Errors = append(e.Errors, msg)
}

// Addf adds a formatted error message to the collection.
func (e *ValidationError) Addf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are validation errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// IsValidationError returns true if the error is a declaration validation
// error.
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}
