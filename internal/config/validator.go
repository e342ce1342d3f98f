package config

import (
	"fmt"
	"net"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "registry.message_size")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidPopOrders returns the list of valid pop order values
func ValidPopOrders() []string {
	return []string{"lifo", "fifo"}
}

// maxSizing bounds registry sizing so a misconfigured file cannot
// request an absurd preallocation (the arena is instances * capacity *
// message_size bytes).
const maxSizing = 65536

// Validate checks the Config for invalid values and returns all
// validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateRegistry()...)
	errors = append(errors, c.validateServer()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validateRegistry() []ValidationError {
	var errors []ValidationError

	sizing := []struct {
		field string
		value int
	}{
		{"registry.instances", c.Registry.Instances},
		{"registry.capacity", c.Registry.Capacity},
		{"registry.message_size", c.Registry.MessageSize},
	}
	for _, s := range sizing {
		if s.value < 1 {
			errors = append(errors, ValidationError{
				Field:   s.field,
				Value:   s.value,
				Message: "must be at least 1",
			})
		} else if s.value > maxSizing {
			errors = append(errors, ValidationError{
				Field:   s.field,
				Value:   s.value,
				Message: fmt.Sprintf("must be at most %d", maxSizing),
			})
		}
	}

	if !slices.Contains(ValidPopOrders(), strings.ToLower(c.Registry.PopOrder)) {
		errors = append(errors, ValidationError{
			Field:   "registry.pop_order",
			Value:   c.Registry.PopOrder,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidPopOrders(), ", ")),
		})
	}

	return errors
}

func (c *Config) validateServer() []ValidationError {
	var errors []ValidationError

	if _, _, err := net.SplitHostPort(c.Server.Listen); err != nil {
		errors = append(errors, ValidationError{
			Field:   "server.listen",
			Value:   c.Server.Listen,
			Message: "must be a host:port address",
		})
	}

	if c.Server.MaxConns < 0 {
		errors = append(errors, ValidationError{
			Field:   "server.max_conns",
			Value:   c.Server.MaxConns,
			Message: "must be zero or positive",
		})
	}

	if c.Server.IdleTimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "server.idle_timeout_seconds",
			Value:   c.Server.IdleTimeoutSeconds,
			Message: "must be zero or positive",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}
