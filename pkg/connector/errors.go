package connector

import (
	"errors"
	"fmt"
)

// Local error codes. Engine codes are positive; codes produced on this side are negative.
const (
	CodeOK             = 0
	CodeInvalidType    = -1
	CodeNotImplemented = -2
	CodeNetwork        = -10
	CodeNameExists     = -20
	CodeEmptyField     = -21
	CodeLoginFailed    = -300
	CodeClosed         = -301
	CodeEmptyCommand   = -401
	CodeNullResult     = -404
	CodeExecFailed     = -405
	CodeRowOutOfRange  = -501
	CodeRegisterFailed = -601
)

// Standard connector errors
var (
	// ErrConnectorNotFound is returned when a connector identifier resolves to nothing.
	ErrConnectorNotFound = errors.New("no such implementation")

	// ErrNotConnector is returned when a known connector type has no Connection factory.
	ErrNotConnector = errors.New("does not implement the Connection contract")

	// ErrConnectionFailed is returned when the login handshake cannot complete.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrAuthenticationFailed is returned when the engine rejects the credentials.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrConnectionClosed is reported by operations on a closed connection.
	ErrConnectionClosed = errors.New("connection is closed")

	// ErrEmptyCommand is reported for blank command text.
	ErrEmptyCommand = errors.New("no command to execute")

	// ErrNullResult is reported for empty or malformed response bodies.
	ErrNullResult = errors.New("result is empty or not valid JSON")

	// ErrRowOutOfRange is returned for row access outside the result.
	ErrRowOutOfRange = errors.New("row index out of range")

	// ErrUnknownColumn is returned for cell access by an unknown column name.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrInvalidConfiguration is returned for unusable connection settings.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// ConnectionError is returned when the login request fails at the transport level.
type ConnectionError struct {
	Type  ConnectorType
	Host  string
	Port  int
	Cause error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s at %s:%d: %v", e.Type, e.Host, e.Port, e.Cause)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// Is matches ErrConnectionFailed as well as the cause chain.
func (e *ConnectionError) Is(target error) bool {
	if target == ErrConnectionFailed {
		return true
	}
	return errors.Is(e.Cause, target)
}

// Code returns the local network failure code.
func (e *ConnectionError) Code() int {
	return CodeNetwork
}

// NewConnectionError creates a new ConnectionError.
func NewConnectionError(t ConnectorType, host string, port int, cause error) *ConnectionError {
	return &ConnectionError{Type: t, Host: host, Port: port, Cause: cause}
}

// LoginError is returned when the engine answers the handshake with a non-zero code.
type LoginError struct {
	User        string
	EngineCode  int
	Description string
}

// Error implements the error interface.
func (e *LoginError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("login as %q rejected with code %d: %s", e.User, e.EngineCode, e.Description)
	}
	return fmt.Sprintf("login as %q rejected with code %d", e.User, e.EngineCode)
}

// Is matches ErrAuthenticationFailed.
func (e *LoginError) Is(target error) bool {
	return target == ErrAuthenticationFailed
}

// Code returns the local login failure code.
func (e *LoginError) Code() int {
	return CodeLoginFailed
}

// ConfigurationError is returned when a configuration value is unusable.
type ConfigurationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid connector configuration: field '%s': %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid connector configuration: %s", e.Reason)
}

// Is matches ErrInvalidConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

// NewConfigurationError creates a new ConfigurationError.
func NewConfigurationError(field, reason string) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: reason}
}

// CodeOf maps an error from this package to its local code. Unknown errors map to CodeExecFailed.
func CodeOf(err error) int {
	if err == nil {
		return CodeOK
	}
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		return coded.Code()
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code
	}
	switch {
	case errors.Is(err, ErrConnectorNotFound):
		return CodeInvalidType
	case errors.Is(err, ErrNotConnector):
		return CodeNotImplemented
	case errors.Is(err, ErrConnectionClosed):
		return CodeClosed
	case errors.Is(err, ErrEmptyCommand):
		return CodeEmptyCommand
	case errors.Is(err, ErrNullResult):
		return CodeNullResult
	case errors.Is(err, ErrRowOutOfRange):
		return CodeRowOutOfRange
	case errors.Is(err, ErrConnectionFailed):
		return CodeNetwork
	}
	return CodeExecFailed
}

// ErrCommandFailed is matched by every CommandError.
var ErrCommandFailed = errors.New("command failed")

// CommandError turns a failed Result into an error. Op names the operation
// that issued the command.
type CommandError struct {
	Op          string
	Code        int
	Status      string
	Description string
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	origin := "engine"
	if e.Code < 0 {
		origin = "local"
	}
	if e.Op == "" {
		return fmt.Sprintf("command failed (%s code %d): %s", origin, e.Code, e.Description)
	}
	return fmt.Sprintf("%s: command failed (%s code %d): %s", e.Op, origin, e.Code, e.Description)
}

// Is matches ErrCommandFailed and the sentinel of a local code.
func (e *CommandError) Is(target error) bool {
	if target == ErrCommandFailed {
		return true
	}
	switch e.Code {
	case CodeNetwork:
		return target == ErrConnectionFailed
	case CodeClosed:
		return target == ErrConnectionClosed
	case CodeEmptyCommand:
		return target == ErrEmptyCommand
	case CodeNullResult:
		return target == ErrNullResult
	}
	return false
}

// ErrorCode returns the result code carried by the error.
func (e *CommandError) ErrorCode() int {
	return e.Code
}

// ResultError returns a *CommandError for a failed result and nil otherwise.
func ResultError(op string, r Result) error {
	if r == nil {
		return &CommandError{Op: op, Code: CodeNullResult, Status: StatusFailed, Description: ErrNullResult.Error()}
	}
	if !r.HasError() {
		return nil
	}
	return &CommandError{Op: op, Code: r.ErrorCode(), Status: r.Status(), Description: r.Description()}
}
