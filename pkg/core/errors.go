package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors
var (
	ErrNotConnected   = errors.New("not connected")
	ErrClientClosed   = errors.New("client closed")
	ErrSessionClosed  = errors.New("session closed")
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrUnknownCommand = errors.New("unknown command")
)

// ConfigError represents configuration-related errors
type ConfigError struct {
	Field string
	Value any
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in field %s (value: %v): %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is reports every ConfigError as ErrInvalidConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// ConnectError represents a failure to open the socket or complete the handshake.
type ConnectError struct {
	URL string
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect to %s failed: %v", e.URL, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// ProtocolError represents protocol-level errors
type ProtocolError struct {
	Operation string
	Code      int
	Err       error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error in %s (code: %d): %v", e.Operation, e.Code, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// DecodeError represents an inbound payload that could not be decoded.
type DecodeError struct {
	Destination string
	Err         error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error on %s: %v", e.Destination, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ValidationViolation represents a single validation violation
type ValidationViolation struct {
	Field   string
	Message string
	Value   any
}

// ValidationError represents outbound payload validation failures
type ValidationError struct {
	Message    string
	Violations []ValidationViolation
}

// NewValidationError creates a new validation error
func NewValidationError(message string, violations ...ValidationViolation) *ValidationError {
	return &ValidationError{
		Message:    message,
		Violations: violations,
	}
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "validation error: " + e.Message
	}

	var b strings.Builder
	b.WriteString("validation error: ")
	b.WriteString(e.Message)
	for _, v := range e.Violations {
		fmt.Fprintf(&b, "\n  - %s: %s", v.Field, v.Message)
	}
	return b.String()
}
