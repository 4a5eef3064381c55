package config

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorization.
const (
	ErrCodeConfigNotFound  = "CONFIG_NOT_FOUND"
	ErrCodeConfigParse     = "CONFIG_PARSE"
	ErrCodeConfigInvalid   = "CONFIG_INVALID"
	ErrCodeConfigExists    = "CONFIG_EXISTS"
	ErrCodePluginConfig    = "PLUGIN_CONFIG"
	ErrCodePluginNotFound  = "PLUGIN_NOT_FOUND"
	ErrCodeHookFailed      = "HOOK_FAILED"
	ErrCodeServiceNotFound = "SERVICE_NOT_FOUND"
	ErrCodeCommandFailed   = "COMMAND_FAILED"
)

// UserError represents a user-friendly error with actionable suggestions.
type UserError struct {
	Code       string // Error code for categorization (e.g., "CONFIG_NOT_FOUND")
	Message    string // User-friendly error message
	Context    string // File path, plugin, or other location context
	Suggestion string // Actionable suggestion to fix the error
	Underlying error  // Wrapped error for error chain
}

// Error returns the message with its context.
func (e *UserError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s (at %s)", e.Message, e.Context)
	}
	return e.Message
}

// Unwrap returns the underlying error for error chain support.
func (e *UserError) Unwrap() error {
	return e.Underlying
}

// Is supports errors.Is() for comparing error codes.
func (e *UserError) Is(target error) bool {
	if t, ok := target.(*UserError); ok {
		return e.Code == t.Code
	}
	return false
}

// Format returns a fully formatted error with all details.
func (e *UserError) Format(verbose bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Error: %s", e.Error())
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "\n  Suggestion: %s", e.Suggestion)
	}
	if verbose && e.Underlying != nil {
		fmt.Fprintf(&b, "\n  Details: %v", e.Underlying)
	}
	return b.String()
}

// NewUserError creates a new UserError with the given code and message.
func NewUserError(code, message string) *UserError {
	return &UserError{Code: code, Message: message}
}

// WithSuggestion returns a copy of the error with suggestion set.
func (e *UserError) WithSuggestion(suggestion string) *UserError {
	clone := *e
	clone.Suggestion = suggestion
	return &clone
}

// WithUnderlying returns a copy of the error wrapping err.
func (e *UserError) WithUnderlying(err error) *UserError {
	clone := *e
	clone.Underlying = err
	return &clone
}

// NewConfigNotFoundError creates an error for a missing berth.yaml.
func NewConfigNotFoundError(path string) *UserError {
	return &UserError{
		Code:       ErrCodeConfigNotFound,
		Message:    "project configuration not found",
		Context:    path,
		Suggestion: "Run 'berth init' to create one, or set BERTH_PROJECT_DIR to your project root.",
	}
}

// NewConfigExistsError creates an error for init over an existing file.
func NewConfigExistsError(path string) *UserError {
	return &UserError{
		Code:       ErrCodeConfigExists,
		Message:    "project configuration already exists",
		Context:    path,
		Suggestion: "Use --force to overwrite it.",
	}
}

// NewInvalidConfigError creates an error for a structurally invalid file.
func NewInvalidConfigError(path, message string) *UserError {
	return &UserError{
		Code:    ErrCodeConfigInvalid,
		Message: message,
		Context: path,
	}
}

// NewPluginConfigError wraps a plugin configuration violation.
func NewPluginConfigError(err error) *UserError {
	return &UserError{
		Code:       ErrCodePluginConfig,
		Message:    err.Error(),
		Suggestion: "Fix the setting under 'plugins:' in berth.yaml, or run 'berth plugin config <name>' to list accepted fields.",
		Underlying: err,
	}
}

// NewPluginNotFoundError creates an error for an unknown plugin name.
func NewPluginNotFoundError(name string, available []string) *UserError {
	suggestion := "Run 'berth plugin list' to see installed plugins."
	if len(available) > 0 {
		suggestion = fmt.Sprintf("Installed plugins: %s", strings.Join(available, ", "))
	}
	return &UserError{
		Code:       ErrCodePluginNotFound,
		Message:    fmt.Sprintf("plugin %q not found", name),
		Suggestion: suggestion,
	}
}

// NewServiceNotFoundError creates an error for an unknown service name.
func NewServiceNotFoundError(name string, available []string) *UserError {
	suggestion := "Run 'berth services' to see available services."
	if len(available) > 0 {
		suggestion = fmt.Sprintf("Available services: %s", strings.Join(available, ", "))
	}
	return &UserError{
		Code:       ErrCodeServiceNotFound,
		Message:    fmt.Sprintf("service %q not found", name),
		Suggestion: suggestion,
	}
}

// NewHookFailedError wraps a failed lifecycle handler.
func NewHookFailedError(err error) *UserError {
	return &UserError{
		Code:       ErrCodeHookFailed,
		Message:    err.Error(),
		Suggestion: "Run with --verbose to see which plugin handlers ran.",
		Underlying: err,
	}
}

// NewCommandFailedError wraps a failed docker invocation.
func NewCommandFailedError(err error) *UserError {
	return &UserError{
		Code:       ErrCodeCommandFailed,
		Message:    err.Error(),
		Suggestion: "Check that Docker is running and 'docker compose version' works.",
		Underlying: err,
	}
}

// IsUserError checks if an error is a UserError with a specific code.
func IsUserError(err error, code string) bool {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue.Code == code
	}
	return false
}

// GetUserError extracts a UserError from an error chain, if present.
func GetUserError(err error) *UserError {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue
	}
	return nil
}

// NewYAMLParseError translates technical YAML errors into user-friendly messages.
func NewYAMLParseError(path string, err error) *UserError {
	errStr := err.Error()
	var message, suggestion string

	switch {
	case strings.Contains(errStr, "cannot unmarshal !!seq into map"):
		message = "expected an object but found a list"
		suggestion = "Check that you're using 'key: value' format instead of '- item' list format."
	case strings.Contains(errStr, "cannot unmarshal !!str into"):
		message = "unexpected string value"
		suggestion = "Check that nested values are properly structured with correct indentation."
	case strings.Contains(errStr, "did not find expected key"):
		message = "missing required field or incorrect indentation"
		suggestion = "YAML is sensitive to indentation. Use 2 spaces (not tabs) for each level."
	case strings.Contains(errStr, "mapping values are not allowed"):
		message = "invalid YAML structure"
		suggestion = "Check for missing colons after keys, or incorrect indentation."
	case strings.Contains(errStr, "found character that cannot start"):
		message = "invalid character in YAML"
		suggestion = "Quote string values that contain special characters like ':', '#', or '{'."
	default:
		message = "invalid YAML syntax"
		suggestion = "Check your YAML syntax. Common issues: incorrect indentation, missing colons, or unquoted special characters."
	}

	context := path
	if _, rest, ok := strings.Cut(errStr, "line "); ok {
		line, _, _ := strings.Cut(rest, ":")
		context = fmt.Sprintf("%s (line %s)", path, line)
	}

	return &UserError{
		Code:       ErrCodeConfigParse,
		Message:    message,
		Context:    context,
		Suggestion: suggestion,
		Underlying: err,
	}
}
