package cli

import "fmt"

// ConfigError reports an invalid or unusable configuration value. Field is
// the dotted path of the offending setting ("audit.backend"); it is empty
// when the problem is not attributable to a single field.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "configuration error: " + e.Message
	}
	return fmt.Sprintf("configuration error at %s: %s", e.Field, e.Message)
}

// NewConfigError creates a ConfigError for the given field.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// CommandError tags a failure with the subcommand that produced it, so the
// root command reports where things went wrong without each RunE repeating
// its own name.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// NewCommandError wraps err with the name of the failing command.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{Command: command, Err: err}
}
