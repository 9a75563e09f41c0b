package meta

import (
	"errors"
	"fmt"

	"github.com/redbco/tdmeta/pkg/connector"
)

// Validation error kinds. They are detected before anything is written.
var (
	ErrValidation         = errors.New("validation failed")
	ErrEmptyName          = errors.New("name is empty")
	ErrNameTooLong        = errors.New("name is too long")
	ErrInvalidName        = errors.New("name contains quoting or control characters")
	ErrDescriptionTooLong = errors.New("description is too long")
	ErrDuplicateName      = errors.New("name already registered")
	ErrMissingReference   = errors.New("reference is missing")
	ErrNotRegistered      = errors.New("not registered")
	ErrUnknownTag         = errors.New("tag not declared by the collector")
	ErrInvalidPage        = errors.New("invalid page")
	ErrInvalidSchema      = errors.New("invalid collector schema")
	ErrInvalidStore       = errors.New("invalid store settings")
)

var (
	// ErrCreateCatalogDatabase is returned by Init when the catalog database cannot be created.
	ErrCreateCatalogDatabase = errors.New("could not create catalog database")

	// ErrCreateSystemTables is returned by Init when a system table cannot be created.
	ErrCreateSystemTables = errors.New("could not create system tables")

	// ErrRegisterFailed is matched by every RegisterError.
	ErrRegisterFailed = errors.New("registration failed")

	// ErrInconsistent is matched by every InconsistencyError.
	ErrInconsistent = errors.New("catalog left inconsistent")

	// ErrDanglingReference is returned when a point row names a store or
	// collector the catalog does not know.
	ErrDanglingReference = errors.New("dangling reference")

	// ErrMalformedRow is returned when a catalog row lacks a required column.
	ErrMalformedRow = errors.New("malformed catalog row")

	// ErrSagaAlreadyRun is returned when a Saga is run twice.
	ErrSagaAlreadyRun = errors.New("saga already run")
)

// CommandError is a failed engine command surfaced by the catalog.
type CommandError = connector.CommandError

// ValidationError reports a catalog invariant violation.
type ValidationError struct {
	Kind   error
	Object string
	Name   string
	Detail string
}

func newValidationError(kind error, object, name, detail string) *ValidationError {
	return &ValidationError{Kind: kind, Object: object, Name: name, Detail: detail}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s %q: %v", e.Object, e.Name, e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is matches ErrValidation and the error kind.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation || target == e.Kind
}

// Code returns the local error code of the violation.
func (e *ValidationError) Code() int {
	switch e.Kind {
	case ErrDuplicateName:
		return connector.CodeNameExists
	case ErrEmptyName, ErrMissingReference:
		return connector.CodeEmptyField
	}
	return connector.CodeRegisterFailed
}

// RegisterError reports a registration that failed after validation. When
// it is returned, every completed step has been undone.
type RegisterError struct {
	Object string
	Name   string
	Step   string
	Cause  error
}

// Error implements the error interface.
func (e *RegisterError) Error() string {
	return fmt.Sprintf("register %s %q failed at %q: %v", e.Object, e.Name, e.Step, e.Cause)
}

// Unwrap returns the underlying error.
func (e *RegisterError) Unwrap() error {
	return e.Cause
}

// Is matches ErrRegisterFailed.
func (e *RegisterError) Is(target error) bool {
	return target == ErrRegisterFailed
}

// Code returns the local registration failure code.
func (e *RegisterError) Code() int {
	return connector.CodeRegisterFailed
}

// InconsistencyError is fatal: a forward step failed and undoing the steps
// before it failed too, so the catalog may hold an orphaned row.
type InconsistencyError struct {
	Object string
	Name   string
	// Step is the forward step that failed.
	Step  string
	Cause error
	// UndoStep is the step whose compensation failed.
	UndoStep        string
	CompensationErr error
}

// Error implements the error interface.
func (e *InconsistencyError) Error() string {
	subject := "saga"
	if e.Object != "" {
		subject = fmt.Sprintf("register %s %q", e.Object, e.Name)
	}
	return fmt.Sprintf("%s: step %q failed (%v) and undoing %q failed (%v)",
		subject, e.Step, e.Cause, e.UndoStep, e.CompensationErr)
}

// Unwrap returns the forward and compensation errors.
func (e *InconsistencyError) Unwrap() []error {
	return []error{e.Cause, e.CompensationErr}
}

// Is matches ErrInconsistent.
func (e *InconsistencyError) Is(target error) bool {
	return target == ErrInconsistent
}
